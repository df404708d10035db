package restorer

import (
	"fmt"
	"strings"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// ExecuteError is returned when rdiff-backup could not be run or exited
// with a non-zero status.
type ExecuteError struct {
	Args []string
	// ExitCode is -1 if the process could not be started.
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExecuteError) Error() string {
	msg := fmt.Sprintf("%v failed", strings.Join(e.Args, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		return msg + ": " + e.Stderr
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecuteError) Unwrap() error {
	return e.Err
}

// IsExecuteError returns true if err is or wraps an *ExecuteError.
func IsExecuteError(err error) bool {
	var e *ExecuteError
	return errors.As(err, &e)
}

// UnexpectedStateError is returned when rdiff-backup reports success but
// did not restore anything.
type UnexpectedStateError struct {
	Msg string
}

func (e *UnexpectedStateError) Error() string {
	return e.Msg
}

// IsUnexpectedState returns true if err is or wraps an
// *UnexpectedStateError.
func IsUnexpectedState(err error) bool {
	var e *UnexpectedStateError
	return errors.As(err, &e)
}
