package repository

import (
	"fmt"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// NotFoundError is returned when a repository or a path inside a repository
// neither exists in the mirror nor has any increment.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v does not exist", e.Path)
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// AccessDeniedError is returned for paths that escape the repository or
// point into rdiff-backup-data.
type AccessDeniedError struct {
	Path string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access to %v denied", e.Path)
}

// IsAccessDenied returns true if err is or wraps an *AccessDeniedError.
func IsAccessDenied(err error) bool {
	var e *AccessDeniedError
	return errors.As(err, &e)
}
