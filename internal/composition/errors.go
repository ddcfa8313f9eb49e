package composition

import (
	"errors"
	"fmt"

	"split-compositor/internal/layout"
	"split-compositor/internal/plan"
	"split-compositor/internal/storage"
	"split-compositor/internal/transcode"
)

// ErrorKind is the caller-facing classification of a failed run.
type ErrorKind string

const (
	KindFetchNotFound   ErrorKind = "fetch_not_found"
	KindFetchTransient  ErrorKind = "fetch_transient"
	KindToolUnavailable ErrorKind = "tool_unavailable"
	KindProcessFailed   ErrorKind = "process_failed"
	KindProcessTimedOut ErrorKind = "process_timed_out"
	KindProcessKilled   ErrorKind = "process_killed"
	KindInvalidPlan     ErrorKind = "invalid_plan"
	KindInternal        ErrorKind = "internal"
)

// ClientError reports whether the failure was caused by the request rather
// than the environment.
func (k ErrorKind) ClientError() bool {
	return k == KindFetchNotFound || k == KindInvalidPlan
}

// Retryable reports whether resubmitting the same job may succeed.
func (k ErrorKind) Retryable() bool {
	return k == KindFetchTransient
}

// RunError wraps a failure with the run it happened in and the step that failed.
type RunError struct {
	RunID string
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s: %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Classify maps any error returned by Engine.Compose to its ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ferr *storage.FetchError
	if errors.As(err, &ferr) {
		if ferr.Kind == storage.NotFound {
			return KindFetchNotFound
		}
		return KindFetchTransient
	}
	var perr *transcode.ProcessError
	if errors.As(err, &perr) {
		switch perr.Kind {
		case transcode.TimedOut:
			return KindProcessTimedOut
		case transcode.Killed:
			return KindProcessKilled
		default:
			return KindProcessFailed
		}
	}
	switch {
	case errors.Is(err, transcode.ErrToolUnavailable):
		return KindToolUnavailable
	case errors.Is(err, plan.ErrInvalidPlan),
		errors.Is(err, layout.ErrInvalidConfig),
		errors.Is(err, layout.ErrInvalidCanvas):
		return KindInvalidPlan
	}
	return KindInternal
}
