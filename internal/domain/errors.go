package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// ErrTaskNotFound covers both a missing task and a task owned by someone
	// else. The two are deliberately indistinguishable so callers cannot
	// probe for other owners' data.
	ErrTaskNotFound = errors.New("task not found")

	// ErrValidation marks malformed input (unknown status value, bad index,
	// bad time string). Wrap with %w and detail.
	ErrValidation = errors.New("validation failed")

	// Timer state errors
	ErrTimerNotRunning  = errors.New("timer is not running")
	ErrTaskNotStartable = errors.New("cannot start timer on a completed or archived task")

	// ErrJournalNotFound means no journal was generated for the requested day.
	ErrJournalNotFound = errors.New("journal not found")

	// ErrUnsupportedSchedule marks a cron pattern outside the three supported
	// shapes. Raised at job registration, never per tick.
	ErrUnsupportedSchedule = errors.New("unsupported schedule pattern")

	// ErrJobNotFound means a manual trigger named an unregistered job id.
	ErrJobNotFound = errors.New("scheduled job not found")
)
