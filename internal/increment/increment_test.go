package increment

import (
	"path/filepath"
	"testing"
	"time"

	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

func mustParseTime(t testing.TB, s string) time.Time {
	ts, err := ParseTime(s)
	rtest.OK(t, err)
	return ts
}

func TestParse(t *testing.T) {
	var tests = []struct {
		name       string
		kind       Kind
		filename   string
		date       string
		compressed bool
	}{
		{"Revisão.2014-11-05T16:05:07-05:00.dir", Dir, "Revisão", "2014-11-05T16:05:07-05:00", false},
		{"Fichier @ <root>.2014-11-01T15:51:15-04:00.missing", Missing, "Fichier @ <root>", "2014-11-01T15:51:15-04:00", false},
		{"my.file.txt.2014-11-02T09:16:43-05:00.snapshot.gz", Snapshot, "my.file.txt", "2014-11-02T09:16:43-05:00", true},
		{"a.2014-11-02T09:16:43Z.snapshot", Snapshot, "a", "2014-11-02T09:16:43Z", false},
		{"b.2014-11-02T09:16:43-05:00.diff.gz", Diff, "b", "2014-11-02T09:16:43-05:00", true},
		{"b.2014-11-02T09:16:43-05:00.diff", Diff, "b", "2014-11-02T09:16:43-05:00", false},
		{"file_statistics.2014-11-02T09:16:43-05:00.data.gz", Data, "file_statistics", "2014-11-02T09:16:43-05:00", true},
		{"session_statistics.2014-11-02T09:16:43-05:00.data", Data, "session_statistics", "2014-11-02T09:16:43-05:00", false},
		{"quoted.2014-11-02T09;05816;05843-05;05800.dir", Dir, "quoted", "2014-11-02T09:16:43-05:00", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			inc := Parse(test.name)
			rtest.Equals(t, test.kind, inc.Kind)
			rtest.Equals(t, test.filename, inc.Filename())
			rtest.Equals(t, test.compressed, inc.Compressed())
			rtest.Assert(t, inc.HasSuffix(), "expected a suffix for %v", test.name)
			rtest.Assert(t, inc.HasDate(), "expected a date for %v", test.name)
			rtest.Assert(t, inc.Date.Equal(mustParseTime(t, test.date)), "wrong date %v", inc.Date)
		})
	}
}

func TestParseFlags(t *testing.T) {
	missing := Parse("x.2014-11-02T09:16:43-05:00.missing")
	rtest.Assert(t, missing.IsMissing() && !missing.IsSnapshot() && !missing.IsDir(), "wrong flags for %v", missing)

	snap := Parse("x.2014-11-02T09:16:43-05:00.snapshot.gz")
	rtest.Assert(t, snap.IsSnapshot() && !snap.IsMissing(), "wrong flags for %v", snap)

	dir := Parse("x.2014-11-02T09:16:43-05:00.dir")
	rtest.Assert(t, dir.IsDir(), "wrong flags for %v", dir)
}

func TestParseInvalid(t *testing.T) {
	inc := Parse("broken.2014-13-45T99:99:99.dir")
	rtest.Equals(t, Dir, inc.Kind)
	rtest.Equals(t, "broken", inc.Filename())
	rtest.Assert(t, !inc.HasDate(), "invalid timestamp should not yield a date")

	inc = Parse("nosuffix.2014-11-02T09:16:43-05:00")
	rtest.Equals(t, Unknown, inc.Kind)
	rtest.Assert(t, !inc.HasSuffix(), "unexpected suffix")
	rtest.Assert(t, inc.HasDate(), "date should be parsed without suffix")
	rtest.Equals(t, "nosuffix", inc.Filename())

	inc = Parse("plain")
	rtest.Assert(t, !inc.HasDate(), "unexpected date")
	rtest.Equals(t, "plain", inc.Filename())
}

func TestNameRoundTrip(t *testing.T) {
	ts := mustParseTime(t, "2016-01-20T10:42:21-05:00")
	for _, kind := range []Kind{Missing, Snapshot, Diff, Data, Dir} {
		for _, compressed := range []bool{false, true} {
			name := Name("some.file", ts, kind, compressed)
			inc := Parse(name)
			rtest.Equals(t, kind, inc.Kind)
			rtest.Equals(t, "some.file", inc.Filename())
			rtest.Assert(t, inc.Date.Equal(ts), "%v: date %v != %v", name, inc.Date, ts)
		}
	}
}

func TestSort(t *testing.T) {
	incs := []Increment{
		Parse("a.2014-11-03T00:00:00Z.dir"),
		Parse("a.2014-11-01T00:00:00Z.missing"),
		Parse("a.garbage.dir"),
		Parse("a.2014-11-02T00:00:00Z.snapshot"),
	}
	Sort(incs)

	var names []string
	for _, inc := range incs {
		names = append(names, inc.Name)
	}
	rtest.Equals(t, []string{
		"a.garbage.dir",
		"a.2014-11-01T00:00:00Z.missing",
		"a.2014-11-02T00:00:00Z.snapshot",
		"a.2014-11-03T00:00:00Z.dir",
	}, names)
}

func TestRead(t *testing.T) {
	dir := rtest.TempDir(t)

	empty := Parse("error_log.2014-11-01T00:00:00Z.data")
	rtest.WriteFile(t, filepath.Join(dir, empty.Name), nil)
	isEmpty, err := empty.IsEmpty(dir)
	rtest.OK(t, err)
	rtest.Assert(t, isEmpty, "expected empty increment")
	buf, err := empty.Read(dir)
	rtest.OK(t, err)
	rtest.Equals(t, 0, len(buf))

	plain := Parse("error_log.2014-11-02T00:00:00Z.data")
	rtest.WriteFile(t, filepath.Join(dir, plain.Name), []byte("error\n"))
	buf, err = plain.Read(dir)
	rtest.OK(t, err)
	rtest.Equals(t, "error\n", string(buf))

	compressed := Parse("error_log.2014-11-03T00:00:00Z.data.gz")
	rtest.WriteGzipFile(t, filepath.Join(dir, compressed.Name), []byte("compressed error\n"))
	buf, err = compressed.Read(dir)
	rtest.OK(t, err)
	rtest.Equals(t, "compressed error\n", string(buf))

	_, err = Parse("error_log.2014-11-04T00:00:00Z.data").Read(dir)
	rtest.Assert(t, err != nil, "expected error for missing file")
}
