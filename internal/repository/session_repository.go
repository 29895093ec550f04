package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/exam-reservation/internal/model"
)

// SessionRepo manages persistence for exam sessions.  It serves two
// distinct read paths: the plain catalog reads (GetByID, ListAvailable)
// and the locked occupancy read (LockOccupancyTx) that serializes all
// capacity-changing work for one session.  All timestamps are stored
// in UTC.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `id, title, start_time, end_time, max_capacity, created_at, updated_at`

func scanSession(row *sql.Row) (*model.ExamSession, error) {
	var s model.ExamSession
	err := row.Scan(&s.ID, &s.Title, &s.StartTime, &s.EndTime, &s.MaxCapacity, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves an exam session by its ID.  It returns
// ErrSessionNotFound when there is no matching row.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.ExamSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM exam_sessions WHERE id = ?`
	return scanSession(r.db.QueryRowContext(ctx, q, id))
}

// LockOccupancyTx acquires an exclusive row lock on the session row and
// returns the session together with the sum of counted participants.
// The lock is held until the enclosing transaction commits or rolls
// back, so the returned sum stays consistent with any write the caller
// performs afterwards.  Two concurrent admissions for the same session
// block here; admissions for different sessions do not interact.
//
// When countTentative is false only confirmed reservations contribute
// to the sum (the original capacity policy); when true, tentative
// reservations reserve capacity as well.
func (r *SessionRepo) LockOccupancyTx(ctx context.Context, tx *sql.Tx, sessionID uint64, countTentative bool) (*model.ExamSession, uint32, error) {
	const lockQ = `SELECT ` + sessionColumns + ` FROM exam_sessions WHERE id = ? FOR UPDATE`
	sess, err := scanSession(tx.QueryRowContext(ctx, lockQ, sessionID))
	if err != nil {
		return nil, 0, err
	}
	sumQ := `SELECT COALESCE(SUM(num_participants), 0) FROM reservations WHERE exam_session_id = ?`
	if !countTentative {
		sumQ += ` AND is_confirmed = TRUE`
	}
	var reserved uint32
	if err := tx.QueryRowContext(ctx, sumQ, sessionID).Scan(&reserved); err != nil {
		return nil, 0, err
	}
	return sess, reserved, nil
}

// AvailableTime is one row of the bookable-session listing: a session
// whose start time falls inside the requested window and which still
// has remaining capacity.
type AvailableTime struct {
	SessionID            uint64    `json:"exam_session_id"`
	Title                string    `json:"title"`
	StartTime            time.Time `json:"start_time"`
	MaxCapacity          uint32    `json:"max_capacity"`
	ReservedParticipants uint32    `json:"reserved_participants"`
	AvailableSlots       uint32    `json:"available_slots"`
}

// ListAvailable returns sessions whose start time lies in
// (windowStart, windowEnd] and whose remaining capacity is positive,
// ordered by start time ascending.  This is a snapshot read; admission
// decisions never rely on it.
func (r *SessionRepo) ListAvailable(ctx context.Context, windowStart, windowEnd time.Time, countTentative bool) ([]AvailableTime, error) {
	join := `LEFT JOIN reservations r ON r.exam_session_id = s.id`
	if !countTentative {
		join += ` AND r.is_confirmed = TRUE`
	}
	q := `SELECT s.id, s.title, s.start_time, s.max_capacity,
	             COALESCE(SUM(r.num_participants), 0) AS reserved
	      FROM exam_sessions s ` + join + `
	      WHERE s.start_time > ? AND s.start_time <= ?
	      GROUP BY s.id, s.title, s.start_time, s.max_capacity
	      HAVING reserved < s.max_capacity
	      ORDER BY s.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, windowStart.UTC(), windowEnd.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AvailableTime, 0)
	for rows.Next() {
		var a AvailableTime
		if err := rows.Scan(&a.SessionID, &a.Title, &a.StartTime, &a.MaxCapacity, &a.ReservedParticipants); err != nil {
			return nil, err
		}
		a.AvailableSlots = a.MaxCapacity - a.ReservedParticipants
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new exam session and populates the generated ID and
// DB-default timestamps on the given struct.  Administrative path only.
func (r *SessionRepo) Create(ctx context.Context, s *model.ExamSession) error {
	const q = `INSERT INTO exam_sessions (title, start_time, end_time, max_capacity) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.Title, s.StartTime.UTC(), s.EndTime.UTC(), s.MaxCapacity)
	if err != nil {
		return classifyMySQLError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	fresh, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = ?`, s.ID))
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// Update rewrites the mutable fields of an exam session.  It returns
// ErrSessionNotFound when the row does not exist.
func (r *SessionRepo) Update(ctx context.Context, s *model.ExamSession) error {
	const q = `UPDATE exam_sessions SET title = ?, start_time = ?, end_time = ?, max_capacity = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.Title, s.StartTime.UTC(), s.EndTime.UTC(), s.MaxCapacity, s.ID)
	if err != nil {
		return classifyMySQLError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Distinguish "missing row" from "no change": a same-value update
		// also reports zero affected rows on MySQL.
		if _, gerr := r.GetByID(ctx, s.ID); gerr != nil {
			return gerr
		}
	}
	fresh, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// Delete removes an exam session.  Reservations referencing it are
// removed by the storage layer's ON DELETE CASCADE.  It returns true
// when a row was deleted.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exam_sessions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
