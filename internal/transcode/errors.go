package transcode

import (
	"errors"
	"fmt"
)

// ErrToolUnavailable is returned when the ffmpeg binary cannot be found.
var ErrToolUnavailable = errors.New("transcoding tool unavailable")

// ProcessKind classifies how a transcoding process ended unsuccessfully.
type ProcessKind string

const (
	// Failed means ffmpeg exited non-zero or produced nothing.
	Failed ProcessKind = "failed"
	// TimedOut means the hard wall-clock limit elapsed and the process was killed.
	TimedOut ProcessKind = "timed_out"
	// Killed means the caller cancelled the run and the process was killed.
	Killed ProcessKind = "killed"
)

// ProcessError describes a terminal transcoding failure.
// Diagnostic holds the tail of ffmpeg's stderr as written.
type ProcessError struct {
	Kind       ProcessKind
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("ffmpeg %s", e.Kind)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
