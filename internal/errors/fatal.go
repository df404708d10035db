package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// fatalError carries a message meant for the user. The command line prints
// it without a stack trace and exits.
type fatalError struct {
	msg   string
	cause error
}

func (e *fatalError) Error() string { return e.msg }

func (e *fatalError) Unwrap() error { return e.cause }

// IsFatal reports whether err is or wraps an error created by Fatal or
// Fatalf.
func IsFatal(err error) bool {
	var f *fatalError
	return As(err, &f)
}

func newFatal(msg string, cause error) error {
	return errors.WithMessage(&fatalError{msg: msg, cause: cause}, "Fatal")
}

// Fatal returns an error that is marked fatal.
func Fatal(msg string) error {
	return newFatal(msg, nil)
}

// Fatalf returns an error that is marked fatal. If one of args is an error,
// the last one is wrapped, so that Is and As still find it.
func Fatalf(format string, args ...interface{}) error {
	var cause error
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			cause = err
		}
	}
	return newFatal(fmt.Sprintf(format, args...), cause)
}
