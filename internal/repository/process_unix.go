//go:build unix

package repository

import (
	"golang.org/x/sys/unix"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// pidRunning reports whether a process with the given pid exists. Processes
// we may not signal are reported as not running.
func pidRunning(pid int) bool {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true
	case errors.Is(err, unix.ESRCH):
		return false
	default:
		debug.Log("warning: unable to check if pid %d is still running: %v", pid, err)
		return false
	}
}
