package repository

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rdiffweb/rdiffbrowse/internal/increment"
	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

// TestRepo builds an rdiff-backup repository for tests in a temporary
// directory.
type TestRepo struct {
	tb  testing.TB
	Dir string
}

// NewTestRepo creates an empty repository with an rdiff-backup-data
// directory.
func NewTestRepo(tb testing.TB) *TestRepo {
	tb.Helper()
	dir := filepath.Join(rtest.TempDir(tb), "repo")
	rtest.Mkdir(tb, filepath.Join(dir, DataDir, IncrementsDir))
	return &TestRepo{tb: tb, Dir: dir}
}

// TestTime returns the time for Unix seconds sec in UTC.
func TestTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func (tr *TestRepo) data(name string) string {
	return filepath.Join(tr.Dir, DataDir, name)
}

// AddBackup records a backup run at t: a mirror_metadata file plus session
// statistics with the given source and increment sizes.
func (tr *TestRepo) AddBackup(t time.Time, sourceSize, incrementSize int64) {
	tr.tb.Helper()
	rtest.WriteGzipFile(tr.tb, tr.data(increment.Name("mirror_metadata", t, increment.Snapshot, true)), nil)

	session := fmt.Sprintf(`StartTime %d.00 (%s)
EndTime %d.00 (%s)
ElapsedTime 1.00 (1 second)
SourceFiles 2
SourceFileSize %d (%d bytes)
IncrementFileSize %d (%d bytes)
Errors 0
`, t.Unix(), t, t.Unix()+1, t, sourceSize, sourceSize, incrementSize, incrementSize)
	rtest.WriteFile(tr.tb, tr.data(increment.Name("session_statistics", t, increment.Data, false)), []byte(session))
}

// AddMirrorMetadata only creates a mirror_metadata file with the given name.
func (tr *TestRepo) AddMirrorMetadata(name string) {
	tr.tb.Helper()
	rtest.WriteFile(tr.tb, tr.data(name), nil)
}

// AddErrorLog writes the error log of the backup at t.
func (tr *TestRepo) AddErrorLog(t time.Time, content string, compressed bool) {
	tr.tb.Helper()
	name := tr.data(increment.Name("error_log", t, increment.Data, compressed))
	if compressed {
		rtest.WriteGzipFile(tr.tb, name, []byte(content))
		return
	}
	rtest.WriteFile(tr.tb, name, []byte(content))
}

// AddFileStatistics writes the file statistics of the backup at t. Each
// line has the form "name changed source mirror increment".
func (tr *TestRepo) AddFileStatistics(t time.Time, lines ...string) {
	tr.tb.Helper()
	content := "# Format of each line in file statistics file:\n# Filename Changed SourceSize MirrorSize IncrementSize\n"
	content += strings.Join(lines, "\n") + "\n"
	rtest.WriteGzipFile(tr.tb, tr.data(increment.Name("file_statistics", t, increment.Data, true)), []byte(content))
}

// AddCurrentMirror writes a current_mirror marker naming pid.
func (tr *TestRepo) AddCurrentMirror(t time.Time, pid int) {
	tr.tb.Helper()
	rtest.WriteFile(tr.tb, tr.data(increment.Name("current_mirror", t, increment.Data, false)), []byte(fmt.Sprintf("PID %d\n", pid)))
}

// AddFile creates a file in the mirror. p is relative to the repository
// root and slash separated.
func (tr *TestRepo) AddFile(p string, content []byte) {
	tr.tb.Helper()
	rtest.WriteFile(tr.tb, filepath.Join(tr.Dir, filepath.FromSlash(p)), content)
}

// AddDir creates a directory in the mirror.
func (tr *TestRepo) AddDir(p string) {
	tr.tb.Helper()
	rtest.Mkdir(tr.tb, filepath.Join(tr.Dir, filepath.FromSlash(p)))
}

// AddIncrement creates an increment for the file p at t.
func (tr *TestRepo) AddIncrement(p string, t time.Time, k increment.Kind) {
	tr.tb.Helper()
	dir, fn := filepath.Split(filepath.FromSlash(p))
	name := increment.Name(fn, t, k, false)
	target := filepath.Join(tr.Dir, DataDir, IncrementsDir, dir, name)
	if k == increment.Dir {
		// .dir increments are files, the increments of the directory's
		// content live in a directory named like the directory itself
		rtest.Mkdir(tr.tb, filepath.Join(tr.Dir, DataDir, IncrementsDir, dir, fn))
	}
	rtest.WriteFile(tr.tb, target, nil)
}

// AddRawIncrement creates a file with the given name in the increments
// directory dir.
func (tr *TestRepo) AddRawIncrement(dir, name string) {
	tr.tb.Helper()
	rtest.WriteFile(tr.tb, filepath.Join(tr.Dir, DataDir, IncrementsDir, filepath.FromSlash(dir), name), nil)
}

// WriteHints replaces the hint file.
func (tr *TestRepo) WriteHints(content string) {
	tr.tb.Helper()
	rtest.WriteFile(tr.tb, tr.data(HintFile), []byte(content))
}

// Open opens the repository with default options.
func (tr *TestRepo) Open() *Repository {
	tr.tb.Helper()
	return tr.OpenWith(Options{})
}

// OpenWith opens the repository with opts.
func (tr *TestRepo) OpenWith(opts Options) *Repository {
	tr.tb.Helper()
	repo, err := Open(tr.Dir, opts)
	rtest.OK(tr.tb, err)
	return repo
}
