package service

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is the base sentinel for admission failures caused
// by the request itself: capacity exhaustion, booking-window misses,
// bad field values and unauthorized field mutation.  All specific
// variants wrap it, so handlers can match the whole family with
// errors.Is(err, ErrInvalidRequest) while tests and logs still see the
// precise cause.
var ErrInvalidRequest = errors.New("invalid request")

var (
	// ErrSessionUnavailable is returned when the target exam session
	// does not exist or is otherwise not open for booking.
	ErrSessionUnavailable = fmt.Errorf("%w: session not available for booking", ErrInvalidRequest)

	// ErrCapacityExceeded is returned when admitting the requested
	// participants would push the session past its maximum capacity.
	ErrCapacityExceeded = fmt.Errorf("%w: capacity exceeded", ErrInvalidRequest)

	// ErrOutsideBookingWindow is returned when the session has already
	// started or starts beyond the booking window.
	ErrOutsideBookingWindow = fmt.Errorf("%w: outside booking window", ErrInvalidRequest)

	// ErrParticipantsRequired is returned when a create or update asks
	// for a non-positive participant count.
	ErrParticipantsRequired = fmt.Errorf("%w: num_participants must be positive", ErrInvalidRequest)

	// ErrConfirmationDenied is returned when a non-privileged user
	// attempts to set or clear the confirmation state.
	ErrConfirmationDenied = fmt.Errorf("%w: only an admin may change confirmation state", ErrInvalidRequest)

	// ErrCancelBlocked is returned when cancellation is rejected
	// because the reservation still holds participants (see
	// ReservationPolicy.BlockOccupiedCancel).
	ErrCancelBlocked = fmt.Errorf("%w: reservation still holds participants", ErrInvalidRequest)
)
