package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestClassifyMySQLError(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7-1' for key 'uq_reservations_user_session'"}
	if got := classifyMySQLError(dup); !errors.Is(got, ErrConflict) {
		t.Errorf("duplicate key: want ErrConflict, got %v", got)
	}

	check := &mysql.MySQLError{Number: 3819, Message: "Check constraint 'chk_reservations_participants' is violated."}
	if got := classifyMySQLError(check); !errors.Is(got, ErrConstraintViolation) {
		t.Errorf("check violation: want ErrConstraintViolation, got %v", got)
	}

	// Wrapped driver errors are still classified.
	wrapped := fmt.Errorf("insert reservation: %w", dup)
	if got := classifyMySQLError(wrapped); !errors.Is(got, ErrConflict) {
		t.Errorf("wrapped duplicate: want ErrConflict, got %v", got)
	}

	// Anything else passes through untouched.
	plain := errors.New("connection reset")
	if got := classifyMySQLError(plain); got != plain {
		t.Errorf("unrelated error must pass through, got %v", got)
	}
}
