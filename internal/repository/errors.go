// Package repository defines the storage contracts used by the services
// together with their MySQL implementations.  The sentinel values below
// allow higher layers to distinguish failure scenarios without looking at
// driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key, e.g. a
// second participant row for the same (reservation, user) pair or a
// username already in use.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a write is rejected by a CHECK constraint,
// such as a reservation whose end does not follow its start.
var ErrConflict = errors.New("conflict")

// ErrInUse is returned when a delete is blocked by rows that still
// reference the target, or an insert references a missing parent.
var ErrInUse = errors.New("in use")

// ErrLockTimeout is returned when a room lock could not be acquired in
// time.
var ErrLockTimeout = errors.New("room lock timeout")

// MySQL server error numbers mapped by mapWriteErr.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlCheckViolated   = 3819
)

// mapWriteErr translates driver errors raised by INSERT/UPDATE/DELETE
// into the package sentinels.  Unknown errors pass through unchanged.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return ErrDuplicate
	case mysqlRowIsReferenced, mysqlNoReferencedRow:
		return ErrInUse
	case mysqlCheckViolated:
		return ErrConflict
	}
	return err
}
