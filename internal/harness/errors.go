package harness

import (
	"errors"
	"fmt"
)

// HarnessErrorCode categorizes harness-level failures. Loader and
// engine failures keep their own types (netio.LoadError,
// engine.SimulationError); these codes cover what the harness itself
// detects.
type HarnessErrorCode string

const (
	// ErrCodeWorker indicates a worker process crashed or a task failed
	// outside the engine (broken pipe, bad frame, panic recovery).
	ErrCodeWorker HarnessErrorCode = "WORKER_FAILED"

	// ErrCodeTimeout indicates a worker exceeded the batch bound.
	ErrCodeTimeout HarnessErrorCode = "WORKER_TIMEOUT"

	// ErrCodeNoBaseline indicates the reference oracle could not be
	// established at all. This is the only batch-fatal condition.
	ErrCodeNoBaseline HarnessErrorCode = "NO_BASELINE"
)

// HarnessError reports a harness-level failure for one job (or, for
// ErrCodeNoBaseline, the whole run).
type HarnessError struct {
	Code     HarnessErrorCode
	Message  string
	JobIndex int
	Strategy string
}

// Error implements the error interface.
func (e *HarnessError) Error() string {
	if e.Strategy != "" {
		return fmt.Sprintf("%s: %s (strategy=%s, job=%d)", e.Code, e.Message, e.Strategy, e.JobIndex)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewWorkerError creates a HarnessError for a crashed worker.
func NewWorkerError(strategy string, jobIndex int, message string) *HarnessError {
	return &HarnessError{Code: ErrCodeWorker, Message: message, JobIndex: jobIndex, Strategy: strategy}
}

// NewTimeoutError creates a HarnessError for a worker that exceeded the
// batch bound.
func NewTimeoutError(strategy string, jobIndex int) *HarnessError {
	return &HarnessError{Code: ErrCodeTimeout, Message: "worker did not return within the batch bound", JobIndex: jobIndex, Strategy: strategy}
}

// NewNoBaselineError creates the batch-fatal oracle failure.
func NewNoBaselineError(message string) *HarnessError {
	return &HarnessError{Code: ErrCodeNoBaseline, Message: message}
}

// IsTimeout reports whether err is (or wraps) a timeout HarnessError.
func IsTimeout(err error) bool {
	var he *HarnessError
	if errors.As(err, &he) {
		return he.Code == ErrCodeTimeout
	}
	return false
}
