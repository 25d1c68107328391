package catalog

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"os"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// dbError maps a database/sql error onto the library error kinds.
func dbError(err error) error {
	if err == nil {
		return nil
	}
	var fe *flm.Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return flm.Errorf(flm.KindEntityNotFound, "%v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return flm.Errorf(flm.KindTimedOut, "%v", err)
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return flm.Errorf(flm.KindDatabaseBusy, "%v", err)
		case sqlite3.SQLITE_NOTADB:
			return flm.Errorf(flm.KindNotADatabase, "%v", err)
		case sqlite3.SQLITE_FULL:
			return flm.Errorf(flm.KindDiskFull, "%v", err)
		case sqlite3.SQLITE_CANTOPEN:
			return flm.Errorf(flm.KindCannotOpenDatabase, "%v", err)
		}
	}
	return flm.Errorf(flm.KindOther, "database: %v", err)
}

// fsError maps a filesystem error onto the library error kinds.
func fsError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return flm.Errorf(flm.KindPathNotFound, "%v", err)
	case errors.Is(err, os.ErrPermission):
		return flm.Errorf(flm.KindPathHasDeniedPermission, "%v", err)
	case errors.Is(err, os.ErrExist):
		return flm.Errorf(flm.KindPathAlreadyExists, "%v", err)
	}
	return flm.Errorf(flm.KindOther, "%v", err)
}

// netError maps a transport error onto the library error kinds.
func netError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return flm.Errorf(flm.KindTimedOut, "%v", err)
	}
	return flm.Errorf(flm.KindHTTPClientNetworkError, "%v", err)
}
