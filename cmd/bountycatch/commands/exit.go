package commands

import (
	"errors"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitDegraded = 3
)

// UsageError marks bad flags or arguments.
type UsageError struct{ error }

func (e *UsageError) Unwrap() error {
	return e.error
}

// ExitCode picks the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsage
	}
	if errors.Is(err, core.ErrIndexesDropped) {
		return ExitDegraded
	}
	return ExitFailure
}
