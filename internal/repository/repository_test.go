package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rdiffweb/rdiffbrowse/internal/increment"
	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

func unixSeconds(dates []time.Time) []int64 {
	out := make([]int64, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Unix())
	}
	return out
}

func TestOpenNotFound(t *testing.T) {
	dir := rtest.TempDir(t)

	_, err := Open(dir, Options{})
	rtest.Assert(t, IsNotFound(err), "expected not found error, got %v", err)

	// a file named like the metadata directory is not enough
	rtest.WriteFile(t, filepath.Join(dir, DataDir), []byte("x"))
	_, err = Open(dir, Options{})
	rtest.Assert(t, IsNotFound(err), "expected not found error, got %v", err)
}

func TestOpen(t *testing.T) {
	tr := NewTestRepo(t)
	repo := tr.Open()

	rtest.Equals(t, "repo", repo.DisplayName())
	rtest.Equals(t, tr.Dir, repo.FullPath())
	rtest.Equals(t, "utf-8", repo.Encoding())

	_, ok := repo.LastBackupDate()
	rtest.Assert(t, !ok, "empty repository has a last backup date")
	rtest.Equals(t, 0, len(repo.BackupDates()))
}

func TestBackupDates(t *testing.T) {
	tr := NewTestRepo(t)

	t1, t2, t3 := TestTime(1000), TestTime(2000), TestTime(3000)
	tr.AddMirrorMetadata(increment.Name("mirror_metadata", t3, increment.Snapshot, true))
	tr.AddMirrorMetadata(increment.Name("mirror_metadata", t1, increment.Diff, true))
	tr.AddMirrorMetadata(increment.Name("mirror_metadata", t2, increment.Diff, true))
	tr.AddMirrorMetadata(increment.Name("mirror_metadata", t1, increment.Snapshot, false))
	tr.AddMirrorMetadata("mirror_metadata.garbage.diff.gz")
	tr.AddMirrorMetadata("mirror_metadata")
	tr.AddMirrorMetadata("mirror_metadata.2014-13-45T99:00:00Z.diff.gz")
	// other records do not count as backups
	tr.AddErrorLog(TestTime(4000), "", false)

	repo := tr.Open()
	rtest.Equals(t, []int64{1000, 2000, 3000}, unixSeconds(repo.BackupDates()))

	last, ok := repo.LastBackupDate()
	rtest.Assert(t, ok, "no last backup date")
	rtest.Equals(t, int64(3000), last.Unix())
}

func TestBackupDatesStrictlyAscending(t *testing.T) {
	tr := NewTestRepo(t)

	for i, sec := range []int64{50, 10, 30, 10, 20, 50, 40} {
		tr.AddMirrorMetadata(increment.Name("mirror_metadata", TestTime(sec), increment.Diff, i%2 == 0))
	}

	// the same instant written with a different offset
	tr.AddMirrorMetadata("mirror_metadata.1970-01-01T01:00:30+01:00.snapshot.gz")

	dates := tr.Open().BackupDates()
	rtest.Equals(t, 5, len(dates))
	for i := 1; i < len(dates); i++ {
		rtest.Assert(t, dates[i-1].Before(dates[i]), "dates not strictly ascending: %v", dates)
	}
}

func TestHintEncoding(t *testing.T) {
	var tests = []struct {
		hints    string
		encoding string
	}{
		{"encoding=ISO-8859-1\n", "iso-8859-1"},
		{"# comment\n  Encoding = latin1  \n", "iso-8859-1"},
		{"encoding=latin_1\n", "iso-8859-1"},
		{"encoding=\"latin1\"\n", "iso-8859-1"},
		{"garbage\nencoding=latin1\n", "iso-8859-1"},
		{"bad-key!=1\nencoding=latin1\n", "iso-8859-1"},
		{"encoding=klingon\n", "utf-8"},
		{"other=value\n", "utf-8"},
		{"\xef\xbb\xbfencoding=utf-8\n", "utf-8"},
	}

	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			tr := NewTestRepo(t)
			tr.WriteHints(test.hints)
			rtest.Equals(t, test.encoding, tr.Open().Encoding())
		})
	}
}

func TestDefaultEncoding(t *testing.T) {
	tr := NewTestRepo(t)

	repo := tr.OpenWith(Options{DefaultEncoding: "latin1"})
	rtest.Equals(t, "iso-8859-1", repo.Encoding())
	rtest.Equals(t, "café", repo.Decode([]byte("caf\xe9")))

	// unknown defaults fall back to utf-8
	repo = tr.OpenWith(Options{DefaultEncoding: "no-such-encoding"})
	rtest.Equals(t, "utf-8", repo.Encoding())
	rtest.Equals(t, "caf�", repo.Decode([]byte("caf\xe9")))

	// an invalid hint keeps the default
	tr.WriteHints("encoding=no-such-encoding\n")
	repo = tr.OpenWith(Options{DefaultEncoding: "latin1"})
	rtest.Equals(t, "iso-8859-1", repo.Encoding())
}

func TestSetEncoding(t *testing.T) {
	tr := NewTestRepo(t)
	tr.WriteHints("# written by hand\nFoo = bar\nencoding=utf-8\n")

	repo := tr.Open()
	rtest.OK(t, repo.SetEncoding("ISO-8859-1"))
	rtest.Equals(t, "iso-8859-1", repo.Encoding())

	buf, err := os.ReadFile(filepath.Join(tr.Dir, DataDir, HintFile))
	rtest.OK(t, err)
	rtest.Equals(t, "encoding=iso-8859-1\nfoo=bar\n", string(buf))

	rtest.Equals(t, "iso-8859-1", tr.Open().Encoding())

	err = repo.SetEncoding("klingon")
	rtest.Assert(t, err != nil, "unknown encoding accepted")
	rtest.Equals(t, "iso-8859-1", repo.Encoding())
}

func TestSetEncodingWithoutHints(t *testing.T) {
	tr := NewTestRepo(t)
	repo := tr.Open()

	rtest.OK(t, repo.SetEncoding("utf-8"))
	buf, err := os.ReadFile(filepath.Join(tr.Dir, DataDir, HintFile))
	rtest.OK(t, err)
	rtest.Equals(t, "encoding=utf-8\n", string(buf))
}

func TestHistory(t *testing.T) {
	tr := NewTestRepo(t)
	t1, t2, t3 := TestTime(1000), TestTime(2000), TestTime(3000)
	tr.AddBackup(t1, 100, 0)
	tr.AddBackup(t2, 200, 20)
	tr.AddBackup(t3, 300, 30)
	tr.AddErrorLog(t2, "read error on /etc/shadow\n", true)
	tr.AddErrorLog(t3, "", false)
	// a backup without session statistics
	t4 := TestTime(4000)
	tr.AddMirrorMetadata(increment.Name("mirror_metadata", t4, increment.Snapshot, true))

	repo := tr.Open()
	history := repo.History(HistoryOptions{})
	rtest.Equals(t, 4, len(history))

	var sizes, incSizes []int64
	var hasErrors []bool
	for _, h := range history {
		sizes = append(sizes, h.Size())
		incSizes = append(incSizes, h.IncrementSize())
		hasErrors = append(hasErrors, h.HasErrors())
	}
	rtest.Equals(t, []int64{100, 200, 300, 0}, sizes)
	rtest.Equals(t, []int64{0, 20, 30, 0}, incSizes)
	rtest.Equals(t, []bool{false, true, false, false}, hasErrors)

	msg, err := history[1].Errors()
	rtest.OK(t, err)
	rtest.Equals(t, "read error on /etc/shadow\n", msg)

	msg, err = history[0].Errors()
	rtest.OK(t, err)
	rtest.Equals(t, "", msg)

	msg, err = history[2].Errors()
	rtest.OK(t, err)
	rtest.Equals(t, "", msg)
}

func TestHistoryOptions(t *testing.T) {
	tr := NewTestRepo(t)
	for _, sec := range []int64{1000, 2000, 3000, 4000} {
		tr.AddBackup(TestTime(sec), 0, 0)
	}
	repo := tr.Open()

	dates := func(entries []HistoryEntry) []int64 {
		out := []int64{}
		for _, h := range entries {
			out = append(out, h.Date.Unix())
		}
		return out
	}

	var tests = []struct {
		opts HistoryOptions
		want []int64
	}{
		{HistoryOptions{}, []int64{1000, 2000, 3000, 4000}},
		{HistoryOptions{Reverse: true}, []int64{4000, 3000, 2000, 1000}},
		{HistoryOptions{Limit: 2}, []int64{1000, 2000}},
		{HistoryOptions{Limit: 2, Reverse: true}, []int64{4000, 3000}},
		{HistoryOptions{Earliest: TestTime(2000)}, []int64{2000, 3000, 4000}},
		{HistoryOptions{Latest: TestTime(2000)}, []int64{1000, 2000}},
		{HistoryOptions{Earliest: TestTime(1500), Latest: TestTime(3500), Reverse: true}, []int64{3000, 2000}},
		{HistoryOptions{Earliest: TestTime(5000)}, []int64{}},
	}

	for _, test := range tests {
		t.Run("", func(t *testing.T) {
			got := dates(repo.History(test.opts))
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("History(%+v) returned wrong dates (-want +got):\n%s", test.opts, diff)
			}
		})
	}
}

func TestErrorLogsLastWins(t *testing.T) {
	tr := NewTestRepo(t)
	t1 := TestTime(1000)
	tr.AddErrorLog(t1, "plain", false)
	tr.AddErrorLog(t1, "compressed", true)

	repo := tr.Open()
	rtest.Equals(t, 1, len(repo.ErrorLogs()))
	_, ok := repo.ErrorLog(t1)
	rtest.Assert(t, ok, "error log not found")
}

func TestSessionStatistics(t *testing.T) {
	tr := NewTestRepo(t)
	tr.AddBackup(TestTime(2000), 20, 2)
	tr.AddBackup(TestTime(1000), 10, 1)

	repo := tr.Open()
	rtest.Equals(t, []int64{1000, 2000}, unixSeconds(repo.SessionDates()))

	f, ok := repo.SessionStatistics(TestTime(1000))
	rtest.Assert(t, ok, "session statistics not found")
	rtest.OK(t, f.EnsureLoaded())
	rtest.Equals(t, int64(10), f.Statistics().SourceFileSize())
	rtest.Equals(t, int64(2), f.Statistics().SourceFiles())

	_, ok = repo.SessionStatistics(TestTime(1500))
	rtest.Assert(t, !ok, "unexpected session statistics")
}

func TestFileStatistics(t *testing.T) {
	tr := NewTestRepo(t)
	tr.AddBackup(TestTime(1000), 0, 0)
	tr.AddFileStatistics(TestTime(1000), "a 1 10 11 NA", "b/c 0 20 21 5")

	repo := tr.Open()
	fs, ok := repo.FileStatistics(TestTime(1000))
	rtest.Assert(t, ok, "file statistics not found")
	rtest.Equals(t, int64(20), fs.SourceSize([]byte("b/c")))
	rtest.Equals(t, int64(11), fs.MirrorSize([]byte("a")))
	rtest.Equals(t, int64(0), fs.SourceSize([]byte("nothere")))

	again, _ := repo.FileStatistics(TestTime(1000))
	rtest.Assert(t, fs == again, "file statistics not cached")

	_, ok = repo.FileStatistics(TestTime(2000))
	rtest.Assert(t, !ok, "unexpected file statistics")
}

func TestInProgress(t *testing.T) {
	tr := NewTestRepo(t)
	tr.AddBackup(TestTime(1000), 0, 0)
	rtest.Assert(t, !tr.Open().InProgress(), "repository without marker in progress")

	tr.AddCurrentMirror(TestTime(1000), 2147483646)
	rtest.Assert(t, !tr.Open().InProgress(), "dead process reported as running")

	tr.AddCurrentMirror(TestTime(2000), os.Getpid())
	rtest.Assert(t, tr.Open().InProgress(), "running process not detected")
}

func TestInProgressWithoutPID(t *testing.T) {
	tr := NewTestRepo(t)
	rtest.WriteFile(t, filepath.Join(tr.Dir, DataDir, increment.Name("current_mirror", TestTime(1000), increment.Data, false)), []byte("no pid here\n"))
	rtest.Assert(t, !tr.Open().InProgress(), "marker without pid reported as running")
}

func TestIncrementsUnder(t *testing.T) {
	tr := NewTestRepo(t)
	tr.AddIncrement("a", TestTime(1000), increment.Snapshot)
	tr.AddIncrement("d", TestTime(1000), increment.Dir)
	tr.AddIncrement("d/b", TestTime(1000), increment.Diff)

	repo := tr.Open()

	incs, err := repo.IncrementsUnder("")
	rtest.OK(t, err)
	var names []string
	for _, inc := range incs {
		names = append(names, inc.Filename())
	}
	rtest.Assert(t, len(names) == 2, "expected two increments, got %v", names)

	incs, err = repo.IncrementsUnder("/d/")
	rtest.OK(t, err)
	rtest.Equals(t, 1, len(incs))
	rtest.Equals(t, "b", incs[0].Filename())

	incs, err = repo.IncrementsUnder("never/changed")
	rtest.OK(t, err)
	rtest.Equals(t, 0, len(incs))
}

func TestParents(t *testing.T) {
	tr := NewTestRepo(t)
	repo := tr.Open()

	want := []Crumb{
		{Path: "", Name: "repo"},
		{Path: "a", Name: "a"},
		{Path: "a/b;058c", Name: "b:c"},
	}
	if diff := cmp.Diff(want, repo.Parents("/a//b;058c/")); diff != "" {
		t.Errorf("wrong parents (-want +got):\n%s", diff)
	}

	rtest.Equals(t, []Crumb{{Path: "", Name: "repo"}}, repo.Parents(""))
}

func TestDelete(t *testing.T) {
	tr := NewTestRepo(t)
	tr.AddFile("a", []byte("x"))

	repo := tr.Open()
	rtest.OK(t, repo.Delete())

	_, err := os.Stat(tr.Dir)
	rtest.Assert(t, os.IsNotExist(err), "repository still exists: %v", err)

	_, err = Open(tr.Dir, Options{})
	rtest.Assert(t, IsNotFound(err), "expected not found error, got %v", err)
}
