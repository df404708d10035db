//go:build !unix

package repository

import "github.com/rdiffweb/rdiffbrowse/internal/debug"

func pidRunning(pid int) bool {
	debug.Log("warning: unable to check if pid %d is still running on this platform", pid)
	return false
}
