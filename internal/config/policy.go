package config

import "time"

// ReservationPolicy collects the admission-policy knobs of the
// reservation engine.  Two of them resolve behaviors the observed
// reference implementations disagreed on, so they are explicit
// configuration rather than silent assumptions.
type ReservationPolicy struct {
	// BookingWindowDays is how far ahead a session may be booked.  A
	// session is bookable while now < start_time <= now + window.
	BookingWindowDays int

	// CountTentative makes unconfirmed reservations reserve capacity.
	// The default (false) matches the original behavior: only
	// confirmed reservations count toward a session's occupancy, and
	// confirmation itself re-runs the capacity check.
	CountTentative bool

	// BlockOccupiedCancel rejects cancellation of any reservation that
	// still holds participants, as the reference behavior does.
	// Disable to allow ordinary cancellation with implicit capacity
	// release.
	BlockOccupiedCancel bool
}

// LoadReservationPolicy reads the policy from environment variables,
// falling back to the documented defaults.
func LoadReservationPolicy() ReservationPolicy {
	return ReservationPolicy{
		BookingWindowDays:   envInt("RESERVATION_WINDOW_DAYS", 3),
		CountTentative:      envBool("RESERVATION_COUNT_TENTATIVE", false),
		BlockOccupiedCancel: envBool("RESERVATION_BLOCK_OCCUPIED_CANCEL", true),
	}
}

// Window returns the booking window as a duration.
func (p ReservationPolicy) Window() time.Duration {
	return time.Duration(p.BookingWindowDays) * 24 * time.Hour
}
