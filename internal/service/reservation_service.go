// Package service implements the reservation admission controller: the
// policy layer that decides whether a reservation may be created,
// modified or cancelled against the current occupancy of an exam
// session.  All capacity-changing operations run inside one database
// transaction and take the session's row lock first, so concurrent
// requests against the same session are serialized while requests for
// different sessions never block each other.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/exam-reservation/internal/config"
	"github.com/iliyamo/exam-reservation/internal/model"
	"github.com/iliyamo/exam-reservation/internal/queue"
	"github.com/iliyamo/exam-reservation/internal/repository"
)

// Principal is the already-authenticated actor on whose behalf an
// operation runs.  The auth layer resolves it before the service is
// invoked; the service treats it as opaque.
type Principal struct {
	ID         uint64
	Privileged bool
}

// SessionStore is the catalog and occupancy read path consumed by the
// service.  *repository.SessionRepo satisfies it.
type SessionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.ExamSession, error)
	ListAvailable(ctx context.Context, windowStart, windowEnd time.Time, countTentative bool) ([]repository.AvailableTime, error)
	LockOccupancyTx(ctx context.Context, tx *sql.Tx, sessionID uint64, countTentative bool) (*model.ExamSession, uint32, error)
}

// ReservationStore is the ledger: the only write path into reservation
// rows.  *repository.ReservationRepo satisfies it.
type ReservationStore interface {
	FindByUserAndSessionTx(ctx context.Context, tx *sql.Tx, userID, sessionID uint64) (*model.Reservation, error)
	CreateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error)
	ListForUser(ctx context.Context, userID *uint64, page, pageSize int) ([]repository.ReservationDetail, int, error)
}

// TxRunner scopes a function to one transaction with guaranteed
// commit-or-rollback.  *repository.TxRunner satisfies it.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// EventPublisher receives domain events after they are committed.  A
// nil publisher disables eventing; publish failures never fail the
// request.
type EventPublisher interface {
	PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

// ReservationService holds no mutable state of its own; all cross-
// request coordination is delegated to the store's row locks, so one
// instance is safe for concurrent use.
type ReservationService struct {
	tx           TxRunner
	sessions     SessionStore
	reservations ReservationStore
	events       EventPublisher
	policy       config.ReservationPolicy
	clock        func() time.Time
}

// NewReservationService wires the admission controller.  events may be
// nil; clock defaults to time.Now.
func NewReservationService(tx TxRunner, sessions SessionStore, reservations ReservationStore, events EventPublisher, policy config.ReservationPolicy, clock func() time.Time) *ReservationService {
	if tx == nil || sessions == nil || reservations == nil {
		panic("nil dependency passed to NewReservationService")
	}
	if clock == nil {
		clock = time.Now
	}
	return &ReservationService{
		tx:           tx,
		sessions:     sessions,
		reservations: reservations,
		events:       events,
		policy:       policy,
		clock:        clock,
	}
}

// UpdatePatch carries the optional field changes of an update request.
// Nil pointers mean "leave unchanged".
type UpdatePatch struct {
	NumParticipants *uint32
	IsConfirmed     *bool
}

// counts reports whether a reservation in the given confirmation state
// contributes to the occupancy aggregate under the active policy.
func (s *ReservationService) counts(confirmed bool) bool {
	return confirmed || s.policy.CountTentative
}

// insideWindow reports whether a session starting at start may still be
// booked at instant now: strictly before the start, and no further out
// than the booking window (inclusive).
func (s *ReservationService) insideWindow(now, start time.Time) bool {
	return now.Before(start) && !start.After(now.Add(s.policy.Window()))
}

// Create admits a new reservation for the principal on the given
// session.  The checks run in a fixed order inside one transaction:
// duplicate detection, locked occupancy + capacity, booking window,
// then the insert.  Any failure rolls the whole transaction back.
func (s *ReservationService) Create(ctx context.Context, p Principal, sessionID uint64, numParticipants uint32) (*model.Reservation, error) {
	if numParticipants == 0 {
		return nil, ErrParticipantsRequired
	}
	var out *model.Reservation
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		// Duplicate booking: at most one reservation per (user, session).
		if _, err := s.reservations.FindByUserAndSessionTx(ctx, tx, p.ID, sessionID); err == nil {
			return repository.ErrConflict
		} else if !errors.Is(err, repository.ErrReservationNotFound) {
			return err
		}
		// Lock the session aggregate.  From here until commit no other
		// admission for this session can interleave.
		sess, reserved, err := s.sessions.LockOccupancyTx(ctx, tx, sessionID, s.policy.CountTentative)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return ErrSessionUnavailable
			}
			return err
		}
		// Capacity before window: the order is fixed for deterministic
		// error reporting.
		if uint64(reserved)+uint64(numParticipants) > uint64(sess.MaxCapacity) {
			return ErrCapacityExceeded
		}
		if !s.insideWindow(s.clock().UTC(), sess.StartTime) {
			return ErrOutsideBookingWindow
		}
		rec := &model.Reservation{
			UserID:          p.ID,
			SessionID:       sessionID,
			NumParticipants: numParticipants,
		}
		if err := s.reservations.CreateTx(ctx, tx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single reservation.  Non-privileged principals may only
// read their own.
func (s *ReservationService) Get(ctx context.Context, p Principal, id uint64) (*model.Reservation, error) {
	rec, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Privileged && rec.UserID != p.ID {
		return nil, repository.ErrForbidden
	}
	return rec, nil
}

// maxPageSize caps a single listing page.
const maxPageSize = 100

// List returns one page of reservations plus the total count.  A
// privileged principal may pass a user filter or nil for all users
// (rows then carry owner info); non-privileged principals always see
// only their own rows regardless of the filter.
func (s *ReservationService) List(ctx context.Context, p Principal, filterUserID *uint64, page, pageSize int) ([]repository.ReservationDetail, int, error) {
	if !p.Privileged {
		own := p.ID
		filterUserID = &own
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.reservations.ListForUser(ctx, filterUserID, page, pageSize)
}

// Update applies a patch to a reservation.  Ownership and confirmation
// rights are checked first; then the session lock is taken and the row
// re-read so the capacity re-check and the write see a stable
// aggregate.  The capacity check runs whenever the reservation's
// counted contribution would grow: a participant increase, or a
// confirmation under the confirmed-only counting policy.
func (s *ReservationService) Update(ctx context.Context, p Principal, id uint64, patch UpdatePatch) (*model.Reservation, error) {
	if patch.NumParticipants != nil && *patch.NumParticipants == 0 {
		return nil, ErrParticipantsRequired
	}
	var (
		out             *model.Reservation
		becameConfirmed bool
	)
	err := s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		rec, err := s.reservations.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.Privileged && rec.UserID != p.ID {
			return repository.ErrForbidden
		}
		if !p.Privileged && patch.IsConfirmed != nil {
			return ErrConfirmationDenied
		}
		sess, reserved, err := s.sessions.LockOccupancyTx(ctx, tx, rec.SessionID, s.policy.CountTentative)
		if err != nil {
			return err
		}
		// Re-read now that the session lock is held; the row may have
		// been cancelled while we waited.
		rec, err = s.reservations.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		newCount := rec.NumParticipants
		if patch.NumParticipants != nil {
			newCount = *patch.NumParticipants
		}
		newConfirmed := rec.IsConfirmed
		if patch.IsConfirmed != nil {
			newConfirmed = *patch.IsConfirmed
		}
		var oldShare, newShare uint64
		if s.counts(rec.IsConfirmed) {
			oldShare = uint64(rec.NumParticipants)
		}
		if s.counts(newConfirmed) {
			newShare = uint64(newCount)
		}
		// reserved already includes oldShare; swap it for newShare.
		if newShare > oldShare && uint64(reserved)-oldShare+newShare > uint64(sess.MaxCapacity) {
			return ErrCapacityExceeded
		}
		becameConfirmed = newConfirmed && !rec.IsConfirmed
		rec.NumParticipants = newCount
		rec.IsConfirmed = newConfirmed
		if err := s.reservations.UpdateTx(ctx, tx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	if becameConfirmed {
		s.publishConfirmed(ctx, out)
	}
	return out, nil
}

// Delete cancels a reservation.  Ownership follows the read rules; the
// session lock is taken before the row is removed so the occupancy
// aggregate never goes stale under a concurrent admission.  Capacity is
// released implicitly once the row is gone.
func (s *ReservationService) Delete(ctx context.Context, p Principal, id uint64) error {
	return s.tx.RunTx(ctx, func(tx *sql.Tx) error {
		rec, err := s.reservations.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.Privileged && rec.UserID != p.ID {
			return repository.ErrForbidden
		}
		if _, _, err := s.sessions.LockOccupancyTx(ctx, tx, rec.SessionID, s.policy.CountTentative); err != nil {
			return err
		}
		rec, err = s.reservations.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if s.policy.BlockOccupiedCancel && rec.NumParticipants > 0 {
			return ErrCancelBlocked
		}
		ok, err := s.reservations.DeleteTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return repository.ErrReservationNotFound
		}
		return nil
	})
}

// AvailableTimes lists sessions bookable right now: starting after the
// current instant and no later than the booking window, with remaining
// capacity.  Pure snapshot read; admission decisions never rely on it,
// so no locking is needed.
func (s *ReservationService) AvailableTimes(ctx context.Context) ([]repository.AvailableTime, error) {
	now := s.clock().UTC()
	return s.sessions.ListAvailable(ctx, now, now.Add(s.policy.Window()), s.policy.CountTentative)
}

// publishConfirmed emits a reservation.confirmed event after the
// confirming transaction has committed.  Failures are logged and
// dropped; eventing is best effort.
func (s *ReservationService) publishConfirmed(ctx context.Context, rec *model.Reservation) {
	if s.events == nil {
		return
	}
	sess, err := s.sessions.GetByID(ctx, rec.SessionID)
	if err != nil {
		log.Printf("reservation-events: load session %d failed: %v", rec.SessionID, err)
		return
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID:   rec.ID,
		UserID:          rec.UserID,
		SessionID:       rec.SessionID,
		SessionTitle:    sess.Title,
		StartTime:       sess.StartTime.UTC().Format(time.RFC3339),
		EndTime:         sess.EndTime.UTC().Format(time.RFC3339),
		NumParticipants: rec.NumParticipants,
		ConfirmedAt:     s.clock().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishReservationConfirmed(ctx, ev); err != nil {
		log.Printf("reservation-events: publish failed: %v", err)
	}
}
