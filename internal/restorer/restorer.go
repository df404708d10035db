package restorer

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rdiffweb/rdiffbrowse/internal/archive"
	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/limiter"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
)

// DefaultCommand is the rdiff-backup binary used unless configured otherwise.
const DefaultCommand = "rdiff-backup"

// DefaultMaxConcurrent is the default number of restores running at once.
const DefaultMaxConcurrent = 4

// stagingPrefix is the name prefix of the temporary staging directories.
const stagingPrefix = "rdiffbrowse_restore_"

// Options configure a Restorer.
type Options struct {
	// Command is the rdiff-backup binary, DefaultCommand if empty.
	Command string
	// MaxConcurrent bounds the number of restores running at once,
	// DefaultMaxConcurrent if zero or less.
	MaxConcurrent int
	// TempDir is the directory staging directories are created in, the
	// system default if empty.
	TempDir string
	// Limiter limits the rate data is streamed with, may be nil.
	Limiter limiter.Limiter
}

// Restorer runs restores with rdiff-backup.
type Restorer struct {
	opts Options
	sem  *semaphore.Weighted
}

// New returns a Restorer configured by opts.
func New(opts Options) *Restorer {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}

	return &Restorer{
		opts: opts,
		sem:  semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
}

// job is a single restore handed to a worker.
type job struct {
	args    []string
	target  string
	staging string
	kind    archive.Kind
	entry   *repository.Entry
}

// Restore starts restoring the path p of repo as it was in the backup at
// date. It returns the name for the restored data and a stream delivering
// it: the file's content, or an archive of the given kind for directories.
// The stream must be closed by the caller. Errors of the restore itself are
// returned by the stream.
//
// At most MaxConcurrent restores run at the same time, and a worker is only
// released once its stream has been read to the end or closed. When all
// workers are taken, Restore blocks until one is released or ctx is done.
// With a context without deadline and streams which are neither read nor
// closed, this blocks forever.
func (r *Restorer) Restore(ctx context.Context, repo *repository.Repository, p string, date time.Time, kind archive.Kind) (filename string, rd io.ReadCloser, err error) {
	e, err := repo.GetPath(strings.Trim(p, "/"))
	if err != nil {
		return "", nil, err
	}
	return r.RestoreEntry(ctx, e, date, kind)
}

// Filename returns the name of the restored data for e: the entry's
// display name, with the archive extension appended for directories.
func Filename(e *repository.Entry, kind archive.Kind) string {
	if e.IsRoot() || e.IsDir() {
		return e.DisplayName() + "." + kind.Extension()
	}
	return e.DisplayName()
}

// RestoreEntry is like Restore for an entry obtained from a repository. It
// blocks in the same way while no worker is available.
func (r *Restorer) RestoreEntry(ctx context.Context, e *repository.Entry, date time.Time, kind archive.Kind) (filename string, rd io.ReadCloser, err error) {
	if _, err := archive.ParseKind(string(kind)); err != nil {
		return "", nil, err
	}

	filename = Filename(e, kind)
	pr, pw := io.Pipe()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		debug.Log("no worker for restore of %v: %v", e.FullPath(), err)
		_ = pr.CloseWithError(err)
		_ = pw.CloseWithError(err)
		return "", nil, errors.Wrap(err, "waiting for restore worker")
	}

	staging, err := os.MkdirTemp(r.opts.TempDir, stagingPrefix)
	if err != nil {
		r.sem.Release(1)
		_ = pr.CloseWithError(err)
		_ = pw.CloseWithError(err)
		return "", nil, errors.WithStack(err)
	}

	j := job{
		args: []string{
			"--restore-as-of=" + strconv.FormatInt(date.Unix(), 10),
			e.FullPath(),
		},
		target:  filepath.Join(staging, "restore"),
		staging: staging,
		kind:    kind,
		entry:   e,
	}
	j.args = append(j.args, j.target)

	go r.work(ctx, j, pw)

	rd = pr
	if r.opts.Limiter != nil {
		rd = limiter.LimitReadCloser(ctx, pr, r.opts.Limiter)
	}
	return filename, rd, nil
}

// work runs j and streams the result to w. The staging directory is removed
// before w is closed.
func (r *Restorer) work(ctx context.Context, j job, w *io.PipeWriter) {
	start := time.Now()
	restoresRunning.Inc()

	var err error
	defer func() {
		restoresRunning.Dec()
		restoreDuration.Observe(time.Since(start).Seconds())
		restoresTotal.WithLabelValues(restoreStatus(err)).Inc()
		_ = w.CloseWithError(err)
	}()
	defer r.sem.Release(1)
	defer func() {
		if rerr := os.RemoveAll(j.staging); rerr != nil {
			debug.Log("warning: unable to remove staging directory %v: %v", j.staging, rerr)
		}
	}()

	err = r.run(ctx, j, countingWriter{w: w})
	if err != nil {
		debug.Log("restore of %v failed: %v", j.entry.FullPath(), err)
	} else {
		debug.Log("restore of %v completed", j.entry.FullPath())
	}
}

func (r *Restorer) run(ctx context.Context, j job, w io.Writer) error {
	if err := r.execute(ctx, j.args); err != nil {
		return err
	}

	fi, err := os.Lstat(j.target)
	if errors.Is(err, os.ErrNotExist) {
		return &UnexpectedStateError{Msg: "rdiff-backup claimed success, but did not restore anything"}
	}
	if err != nil {
		return errors.WithStack(err)
	}

	if fi.IsDir() {
		return archive.Write(ctx, j.target, w, j.kind, j.entry.Repository().Charset())
	}

	f, err := os.Open(j.target)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(w, f)
	return errors.Wrap(err, "Copy")
}

// execute runs rdiff-backup with args. The environment only contains PATH.
func (r *Restorer) execute(ctx context.Context, args []string) error {
	debug.Log("execute %v %v", r.opts.Command, args)

	cmd := exec.CommandContext(ctx, r.opts.Command, args...)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH")}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		debug.Log("rdiff-backup output: %s", stdout.Bytes())
		return nil
	}

	execErr := &ExecuteError{
		Args:     append([]string{r.opts.Command}, args...),
		ExitCode: -1,
		Stderr:   strings.TrimSpace(strings.ToValidUTF8(stderr.String(), "�")),
		Err:      err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	return execErr
}
