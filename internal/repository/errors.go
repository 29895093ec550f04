// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation service and handlers to distinguish between different
// failure scenarios. For example, ErrForbidden indicates that the
// current user is not authorized to operate on a reservation owned by
// someone else, while ErrConflict signals a duplicate reservation for
// the same (user, session) pair.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// reservation they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert cannot proceed because the
// user already holds a reservation on the session. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSessionNotFound indicates that an exam session was not located in
// the DB.
var ErrSessionNotFound = errors.New("exam session not found")

// ErrReservationNotFound indicates that a reservation was not located
// in the DB.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrConstraintViolation is returned when a storage-level constraint
// (unique key or CHECK) rejects a write that passed the application
// checks. It points at a logic gap and is surfaced distinctly rather
// than folded into a validation error.
var ErrConstraintViolation = errors.New("constraint violation")
