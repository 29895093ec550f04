// Package queue defines message payloads exchanged over the message
// broker, the publisher used by the reservation service and the
// background consumer that drains confirmations into an audit log.
package queue

// ReservationConfirmedEvent is published when a privileged user
// confirms a reservation.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type ReservationConfirmedEvent struct {
	ReservationID   uint64 `json:"reservation_id"`
	UserID          uint64 `json:"user_id"`
	SessionID       uint64 `json:"exam_session_id"`
	SessionTitle    string `json:"session_title"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	NumParticipants uint32 `json:"num_participants"`
	ConfirmedAt     string `json:"confirmed_at"`
}
