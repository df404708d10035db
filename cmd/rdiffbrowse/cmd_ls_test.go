package main

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/increment"
	"github.com/rdiffweb/rdiffbrowse/internal/repository"
	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

func newLsTestRepo(t testing.TB) *repository.TestRepo {
	tr := repository.NewTestRepo(t)
	tr.AddBackup(repository.TestTime(100), 0, 0)
	tr.AddBackup(repository.TestTime(200), 0, 0)
	tr.AddFile("dir/a", []byte("a"))
	tr.AddFile("b", []byte("hello"))
	tr.AddIncrement("gone", repository.TestTime(100), increment.Snapshot)
	tr.AddIncrement("gone", repository.TestTime(200), increment.Missing)
	return tr
}

func TestLsWarnsInProgress(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("running processes are not detected on windows")
	}

	tr := newLsTestRepo(t)

	gopts, stdout, stderr := testGlobalOptions(tr.Dir)
	rtest.OK(t, runLs(LsOptions{}, gopts, nil))
	rtest.Equals(t, "", stderr.String())

	tr.AddCurrentMirror(repository.TestTime(200), os.Getpid())

	gopts, stdout, stderr = testGlobalOptions(tr.Dir)
	rtest.OK(t, runLs(LsOptions{}, gopts, nil))
	rtest.Equals(t, "dir/\nb\n", stdout.String())
	rtest.Assert(t, strings.Contains(stderr.String(), "backup is in progress"),
		"no warning in %q", stderr.String())
}

func TestLs(t *testing.T) {
	tr := newLsTestRepo(t)

	gopts, stdout, _ := testGlobalOptions(tr.Dir)
	rtest.OK(t, runLs(LsOptions{Deleted: true}, gopts, nil))
	rtest.Equals(t, "dir/\nb\ngone\n", stdout.String())

	gopts, stdout, _ = testGlobalOptions(tr.Dir)
	rtest.OK(t, runLs(LsOptions{}, gopts, []string{"/"}))
	rtest.Equals(t, "dir/\nb\n", stdout.String())

	gopts, stdout, _ = testGlobalOptions(tr.Dir)
	rtest.OK(t, runLs(LsOptions{Deleted: true}, gopts, []string{"dir"}))
	rtest.Equals(t, "a\n", stdout.String())
}

func TestLsLong(t *testing.T) {
	tr := newLsTestRepo(t)

	gopts, stdout, _ := testGlobalOptions(tr.Dir)
	rtest.OK(t, runLs(LsOptions{ListLong: true, Deleted: true}, gopts, nil))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	rtest.Equals(t, 6, len(lines))
	rtest.Equals(t, []string{"Type", "Size", "Last", "change", "Name"}, strings.Fields(lines[0]))

	last := repository.TestTime(200).Local().Format(TimeFormat)
	first := repository.TestTime(100).Local().Format(TimeFormat)
	rtest.Equals(t, strings.Fields("dir "+last+" dir"), strings.Fields(lines[2]))
	rtest.Equals(t, strings.Fields("file 5 "+last+" b"), strings.Fields(lines[3]))
	rtest.Equals(t, strings.Fields("file 0 "+first+" gone (deleted)"), strings.Fields(lines[4]))
}

func TestLsJSON(t *testing.T) {
	tr := newLsTestRepo(t)

	gopts, stdout, _ := testGlobalOptions(tr.Dir)
	gopts.JSON = true
	rtest.OK(t, runLs(LsOptions{Deleted: true}, gopts, nil))

	type node struct {
		MessageType string `json:"message_type"`
		Name        string `json:"name"`
		Path        string `json:"path"`
		Type        string `json:"type"`
		Exists      bool   `json:"exists"`
		Size        int64  `json:"size"`
	}

	want := []node{
		{"node", "dir", "dir", "dir", true, 0},
		{"node", "b", "b", "file", true, 5},
		{"node", "gone", "gone", "file", false, 0},
	}
	if diff := cmp.Diff(want, decodeLines[node](t, stdout)); diff != "" {
		t.Errorf("wrong nodes (-want +got):\n%s", diff)
	}
}

func TestLsErrors(t *testing.T) {
	tr := newLsTestRepo(t)
	gopts, _, _ := testGlobalOptions(tr.Dir)

	err := runLs(LsOptions{}, gopts, []string{"a", "b"})
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error, got %v", err)

	err = runLs(LsOptions{}, gopts, []string{"b"})
	rtest.Assert(t, errors.IsFatal(err), "expected fatal error for a file, got %v", err)

	err = runLs(LsOptions{}, gopts, []string{"missing"})
	rtest.Equals(t, 10, exitCode(err))

	err = runLs(LsOptions{}, gopts, []string{repository.DataDir})
	rtest.Equals(t, 11, exitCode(err))
}
