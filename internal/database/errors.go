package database

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("database: not found")
	// ErrDuplicateKey is returned by Add when the record id is already taken.
	ErrDuplicateKey = errors.New("database: duplicate key")
	// ErrIO covers an unavailable store, a full disk and other storage failures.
	ErrIO = errors.New("database: io error")
	// ErrBusy reports that another connection holds the database lock.
	ErrBusy = fmt.Errorf("%w: database busy", ErrIO)
	// ErrMigration reports a failed schema upgrade. The handle is closed.
	ErrMigration = fmt.Errorf("%w: migration failed", ErrIO)
	// ErrUnknownCollection is returned for a collection name outside the schema.
	ErrUnknownCollection = errors.New("database: unknown collection")
	// ErrUnknownIndex is returned for an index name the collection does not define.
	ErrUnknownIndex = errors.New("database: unknown index")
)

// classifyError maps driver failures onto the package sentinels while
// keeping the driver error in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE"):
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ErrBusy, err)
		case code&0xff == sqlite3.SQLITE_FULL,
			code&0xff == sqlite3.SQLITE_IOERR,
			code&0xff == sqlite3.SQLITE_CANTOPEN,
			code&0xff == sqlite3.SQLITE_READONLY:
			return fmt.Errorf("%w: %w", ErrIO, err)
		case strings.Contains(err.Error(), "no such table"):
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		return err
	}

	if strings.Contains(err.Error(), "database is locked") {
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return err
}

func isBusy(err error) bool {
	return errors.Is(classifyError(err), ErrBusy)
}
