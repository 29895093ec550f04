package model

import "time"

// Reservation records a user's claim on part of an exam session's
// capacity.  Each (user, session) pair may hold at most one reservation
// at any time; that uniqueness is enforced both by the admission logic
// and by a storage-level constraint.  A reservation starts tentative
// (IsConfirmed false) and only a privileged user may flip the flag.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who made the reservation.
//  SessionID       – exam session being reserved.
//  NumParticipants – number of seats claimed (must be > 0).
//  IsConfirmed     – tentative vs. confirmed state.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64    // reservations.id
	UserID          uint64    // reservations.user_id
	SessionID       uint64    // reservations.exam_session_id
	NumParticipants uint32    // reservations.num_participants
	IsConfirmed     bool      // reservations.is_confirmed
	CreatedAt       time.Time // reservations.created_at
	UpdatedAt       time.Time // reservations.updated_at
}
