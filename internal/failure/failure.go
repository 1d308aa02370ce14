// Package failure sorts errors from the core into the categories shown to
// users.
package failure

import (
	"context"
	"errors"

	"github.com/cartracker/cartracker/internal/backup"
	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/database"
	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/settings"
	"github.com/cartracker/cartracker/internal/usecase"
)

// Kind is the user-facing category of an error.
type Kind int

const (
	Unknown Kind = iota
	// Retryable errors may succeed on a later attempt.
	Retryable
	// Rejected errors are caused by the input and need it changed.
	Rejected
	// Gone errors refer to something that does not exist.
	Gone
)

func (k Kind) String() string {
	switch k {
	case Retryable:
		return "retryable"
	case Rejected:
		return "rejected"
	case Gone:
		return "not found"
	default:
		return "unknown"
	}
}

// ExitCode is the process exit status the CLI uses for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case Rejected:
		return 2
	case Gone:
		return 3
	case Retryable:
		return 4
	default:
		return 1
	}
}

// Classify returns the category of err. A nil error is Unknown.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return Unknown
	case errors.Is(err, database.ErrNotFound), errors.Is(err, usecase.ErrNoSnapshot):
		return Gone
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrLimitExceeded),
		errors.Is(err, catalog.ErrUnknownTemplate),
		errors.Is(err, backup.ErrInvalidFormat),
		errors.Is(err, database.ErrDuplicateKey),
		errors.Is(err, settings.ErrUnknownKey),
		errors.Is(err, settings.ErrInvalidValue):
		return Rejected
	case errors.Is(err, database.ErrIO),
		errors.Is(err, context.DeadlineExceeded):
		return Retryable
	default:
		return Unknown
	}
}

// Is reports whether err falls into kind.
func Is(err error, kind Kind) bool {
	return err != nil && Classify(err) == kind
}
