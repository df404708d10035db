// Package errors wraps github.com/pkg/errors and the standard library's
// errors package, so that callers only need a single import. Errors created
// or wrapped here carry a stack trace which is printed with "%+v".
package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// New creates a new error based on message. Wrapped so that this package does
// not appear in the stack trace.
var New = errors.New

// Errorf creates an error based on a format string and values.
var Errorf = errors.Errorf

// Wrap annotates err with message and a stack trace. Use it for errors from
// outside of rdiffbrowse, e.g. the filesystem or the rdiff-backup process.
// If err is nil, Wrap returns nil.
var Wrap = errors.Wrap

// Wrapf is like Wrap with a format specifier.
var Wrapf = errors.Wrapf

// WithStack annotates err with a stack trace at the point WithStack was called.
// If err is nil, WithStack returns nil.
var WithStack = errors.WithStack

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// Join returns an error that wraps the given errors, nil errors are discarded.
func Join(errs ...error) error { return stderrors.Join(errs...) }
