// Package restorer restores files and directories from an rdiff-backup
// repository as they were at a given backup and streams the result to the
// caller.
//
// The actual restore is done by rdiff-backup. A Restore call returns as soon
// as the restore is started, the data is produced by a separate goroutine:
//
//	acquire a worker slot, or fail                [1]
//	create a staging directory                    [2]
//	go worker:
//	  run rdiff-backup --restore-as-of            [3]
//	  stream the file, or an archive of the dir   [4]
//	  remove the staging directory                [5]
//	  close the pipe, passing on any error        [6]
//
// The worker writes into an io.Pipe, so it blocks until the caller reads and
// a large restore is transferred while it is still being produced. When the
// caller closes the reader early, the next write fails and the worker cleans
// up (step [5]) as usual. Errors of the worker (steps [3] and [4]) are
// returned by the reader's Read method. The staging directory is always
// removed before the reader sees the end of the stream.
package restorer
