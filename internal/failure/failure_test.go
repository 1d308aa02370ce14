package failure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cartracker/cartracker/internal/backup"
	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/database"
	"github.com/cartracker/cartracker/internal/failure"
	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/usecase"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want failure.Kind
	}{
		{"nil", nil, failure.Unknown},
		{"not found", fmt.Errorf("vehicle x: %w", services.ErrNotFound), failure.Gone},
		{"no snapshot", usecase.ErrNoSnapshot, failure.Gone},
		{"validation", fmt.Errorf("%w: name is required", services.ErrValidation), failure.Rejected},
		{"limit", services.ErrLimitExceeded, failure.Rejected},
		{"template", catalog.ErrUnknownTemplate, failure.Rejected},
		{"format", backup.ErrInvalidFormat, failure.Rejected},
		{"duplicate", database.ErrDuplicateKey, failure.Rejected},
		{"busy", fmt.Errorf("open: %w", database.ErrBusy), failure.Retryable},
		{"io", database.ErrIO, failure.Retryable},
		{"migration", database.ErrMigration, failure.Retryable},
		{"other", errors.New("boom"), failure.Unknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, failure.Classify(tc.err))
		})
	}
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 1, failure.Unknown.ExitCode())
	assert.Equal(t, 2, failure.Rejected.ExitCode())
	assert.Equal(t, 3, failure.Gone.ExitCode())
	assert.Equal(t, 4, failure.Retryable.ExitCode())
	assert.True(t, failure.Is(services.ErrLimitExceeded, failure.Rejected))
	assert.False(t, failure.Is(nil, failure.Unknown))
}
