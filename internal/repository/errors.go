// Package repository is the MySQL backed persistence for user profiles,
// refresh tokens, watchlists and bookings.  Every per-user query is scoped
// by user id; there is no path that reads another user's rows.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist for the
// calling user.  Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with an existing row, such
// as a booking id that is already taken.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by Register for an email that is already used.
var ErrEmailExists = errors.New("email already exists")

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
