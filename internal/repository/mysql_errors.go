package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the storage layer can raise as a second
// line of defense behind the application-side checks.
const (
	mysqlErrDupEntry       = 1062 // unique key violated
	mysqlErrCheckViolation = 3819 // CHECK constraint violated
)

// classifyMySQLError maps driver errors onto the repository sentinels.
// A duplicate-key error on the reservations table can only mean the
// (user, session) uniqueness was hit, so it surfaces as ErrConflict,
// the same error the application-side duplicate check produces.  CHECK
// violations surface as ErrConstraintViolation so a logic gap is never
// silently reported as ordinary input validation.
func classifyMySQLError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDupEntry:
			return ErrConflict
		case mysqlErrCheckViolation:
			return ErrConstraintViolation
		}
	}
	return err
}
