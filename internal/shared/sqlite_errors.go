// Package shared holds helpers used by more than one storage component.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteCode returns the primary result code of a driver error, or 0.
func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() & 0xff
	}
	return 0
}

// IsSQLiteBusyError reports whether another connection holds the database.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	if sqliteCode(err) == sqlite3.SQLITE_BUSY {
		return true
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsSQLiteLockedError reports a table-level lock conflict.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	if sqliteCode(err) == sqlite3.SQLITE_LOCKED {
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}

// IsSQLiteConflictError reports either kind of concurrency error. Both are
// worth retrying after a short pause.
func IsSQLiteConflictError(err error) bool {
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}
