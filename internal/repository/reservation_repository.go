package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/exam-reservation/internal/model"
)

// ReservationRepo owns the reservation rows and their relationship to
// users and exam sessions.  It is the only write path into the
// reservations table.  Methods with a Tx suffix participate in a
// caller-supplied transaction so they can run under the session lock
// taken by SessionRepo.LockOccupancyTx; the caller must commit or
// roll back.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, exam_session_id, num_participants, is_confirmed, created_at, updated_at`

func scanReservation(row *sql.Row) (*model.Reservation, error) {
	var rec model.Reservation
	err := row.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.NumParticipants, &rec.IsConfirmed, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByUserAndSessionTx returns the user's reservation on the given
// session, or ErrReservationNotFound when none exists.  It is used for
// duplicate detection inside the admission transaction.
func (r *ReservationRepo) FindByUserAndSessionTx(ctx context.Context, tx *sql.Tx, userID, sessionID uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? AND exam_session_id = ?`
	return scanReservation(tx.QueryRowContext(ctx, q, userID, sessionID))
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID and DB-default fields on
// the provided record.  The unique (user, session) key and the
// positive-participants CHECK act as a backstop behind the admission
// checks; violations surface as ErrConflict / ErrConstraintViolation.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, exam_session_id, num_participants, is_confirmed) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, rec.UserID, rec.SessionID, rec.NumParticipants, rec.IsConfirmed)
	if err != nil {
		return classifyMySQLError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	fresh, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, rec.ID))
	if err != nil {
		return err
	}
	*rec = *fresh
	return nil
}

// GetByID fetches a reservation outside any transaction.  Ownership is
// not checked here; that is the service's concern.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// GetTx fetches a reservation inside a transaction without locking the
// row.  The service uses it to learn the target session before taking
// the session lock, keeping the session-then-reservation lock order
// identical across create, update and delete.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx re-reads a reservation under an exclusive row lock.
// Call only after the session lock is held.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
	return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// UpdateTx rewrites the mutable fields of a reservation and refreshes
// the record (including updated_at) from the database.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error {
	const q = `UPDATE reservations SET num_participants = ?, is_confirmed = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, rec.NumParticipants, rec.IsConfirmed, rec.ID); err != nil {
		return classifyMySQLError(err)
	}
	fresh, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, rec.ID))
	if err != nil {
		return err
	}
	*rec = *fresh
	return nil
}

// DeleteTx removes a reservation within the given transaction.  It
// returns true when a row was removed.  Capacity is released
// implicitly: the occupancy aggregate recomputes from the remaining
// rows.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OwnerInfo identifies the user holding a reservation.  It is attached
// to listing rows only for privileged callers.
type OwnerInfo struct {
	UserID   uint64 `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// ReservationDetail is a reservation joined with its exam session (and,
// for privileged listings, its owner) for display.
type ReservationDetail struct {
	ID              uint64     `json:"id"`
	SessionID       uint64     `json:"exam_session_id"`
	NumParticipants uint32     `json:"num_participants"`
	IsConfirmed     bool       `json:"is_confirmed"`
	SessionTitle    string     `json:"session_title"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	CreatedAt       time.Time  `json:"created_at"`
	Owner           *OwnerInfo `json:"owner,omitempty"`
}

// ListForUser returns one page of reservations together with the total
// row count.  When userID is non-nil only that user's reservations are
// returned; when nil all reservations are returned with owner info
// attached (privileged listing).  Rows are ordered newest first.
func (r *ReservationRepo) ListForUser(ctx context.Context, userID *uint64, page, pageSize int) ([]ReservationDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countQ := `SELECT COUNT(*) FROM reservations`
	countArgs := []interface{}{}
	if userID != nil {
		countQ += ` WHERE user_id = ?`
		countArgs = append(countArgs, *userID)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT r.id, r.exam_session_id, r.num_participants, r.is_confirmed,
	             s.title, s.start_time, s.end_time, r.created_at`
	args := []interface{}{}
	if userID == nil {
		q += `, u.id, u.email, u.full_name`
	}
	q += ` FROM reservations r
	       JOIN exam_sessions s ON s.id = r.exam_session_id`
	if userID == nil {
		q += ` JOIN users u ON u.id = r.user_id`
	}
	if userID != nil {
		q += ` WHERE r.user_id = ?`
		args = append(args, *userID)
	}
	q += ` ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0, pageSize)
	for rows.Next() {
		var d ReservationDetail
		if userID == nil {
			var owner OwnerInfo
			if err := rows.Scan(&d.ID, &d.SessionID, &d.NumParticipants, &d.IsConfirmed,
				&d.SessionTitle, &d.StartTime, &d.EndTime, &d.CreatedAt,
				&owner.UserID, &owner.Email, &owner.FullName); err != nil {
				return nil, 0, err
			}
			d.Owner = &owner
		} else {
			if err := rows.Scan(&d.ID, &d.SessionID, &d.NumParticipants, &d.IsConfirmed,
				&d.SessionTitle, &d.StartTime, &d.EndTime, &d.CreatedAt); err != nil {
				return nil, 0, err
			}
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return details, total, nil
}
