// Package increment parses the names of rdiff-backup increment files.
//
// An increment name has the form <name>.<timestamp><suffix>, e.g.
// "Documents.2014-11-02T17:23:41-05:00.dir" or
// "file_statistics.2014-11-02T17:23:41-05:00.data.gz". The suffix tells
// what the increment stores, the timestamp when the backup ran.
package increment

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// Kind is the type of an increment, derived from its suffix.
type Kind int

// Increment kinds.
const (
	Unknown Kind = iota
	Missing
	Snapshot
	Diff
	Data
	Dir
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Snapshot:
		return "snapshot"
	case Diff:
		return "diff"
	case Data:
		return "data"
	case Dir:
		return "dir"
	default:
		return "unknown"
	}
}

// suffixes is checked in order, the first match wins.
var suffixes = []struct {
	suffix string
	kind   Kind
}{
	{".missing", Missing},
	{".snapshot.gz", Snapshot},
	{".snapshot", Snapshot},
	{".diff.gz", Diff},
	{".data.gz", Data},
	{".data", Data},
	{".dir", Dir},
	{".diff", Diff},
}

// Suffix returns the suffix used for increments of kind k, compressed
// selects the ".gz" variant where one exists.
func Suffix(k Kind, compressed bool) string {
	fallback := ""
	for _, s := range suffixes {
		if s.kind != k {
			continue
		}
		if strings.HasSuffix(s.suffix, ".gz") == compressed {
			return s.suffix
		}
		if fallback == "" {
			fallback = s.suffix
		}
	}
	return fallback
}

// Increment is a single file in the rdiff-backup-data directory or in one
// of the increments directories below it.
type Increment struct {
	// Name is the file name as stored on disk.
	Name string
	Kind Kind
	// Date is the zero time if the name does not contain a valid timestamp.
	Date time.Time

	suffix string
}

// Parse classifies the increment with the given file name. Parsing never
// fails: a name without a valid timestamp yields an Increment without date.
func Parse(name string) Increment {
	inc := Increment{Name: name, Kind: Unknown}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			inc.Kind = s.kind
			inc.suffix = s.suffix
			break
		}
	}

	base := strings.TrimSuffix(name, inc.suffix)
	ts := base
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		ts = base[i+1:]
	}

	t, err := ParseTime(ts)
	if err != nil {
		debug.Log("warning: unable to parse date of increment %q: %v", name, err)
	} else {
		inc.Date = t
	}

	return inc
}

// HasDate reports whether the increment name contains a valid timestamp.
func (inc Increment) HasDate() bool {
	return !inc.Date.IsZero()
}

// HasSuffix reports whether the name ends with one of the known suffixes.
// Increments without suffix do not represent a version of a file.
func (inc Increment) HasSuffix() bool {
	return inc.suffix != ""
}

// Compressed reports whether the increment payload is gzip compressed.
func (inc Increment) Compressed() bool {
	return strings.HasSuffix(inc.Name, ".gz")
}

// IsMissing reports whether the increment marks a file that did not exist.
func (inc Increment) IsMissing() bool {
	return inc.Kind == Missing
}

// IsSnapshot reports whether the increment is a full copy of the file.
func (inc Increment) IsSnapshot() bool {
	return inc.Kind == Snapshot
}

// IsDir reports whether the increment marks a directory.
func (inc Increment) IsDir() bool {
	return inc.Kind == Dir
}

// Filename returns the logical name of the file the increment belongs to,
// that is the name without suffix and timestamp.
func (inc Increment) Filename() string {
	base := strings.TrimSuffix(inc.Name, inc.suffix)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

func (inc Increment) String() string {
	return inc.Name
}

// IsEmpty reports whether the increment file located in dir has zero
// length. The file is not opened.
func (inc Increment) IsEmpty(dir string) (bool, error) {
	fi, err := os.Stat(filepath.Join(dir, inc.Name))
	if err != nil {
		return false, errors.WithStack(err)
	}
	return fi.Size() == 0, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	err := g.Reader.Close()
	return errors.Join(err, g.f.Close())
}

// Open opens the increment file located in dir for reading. Compressed
// increments are decompressed transparently.
func (inc Increment) Open(dir string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(dir, inc.Name))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if !inc.Compressed() {
		return f, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "gzip %v", inc.Name)
	}
	return gzipFile{Reader: zr, f: f}, nil
}

// Read returns the whole (decompressed) content of the increment. Empty
// files are detected by their size and never opened.
func (inc Increment) Read(dir string) ([]byte, error) {
	empty, err := inc.IsEmpty(dir)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	rd, err := inc.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rd.Close()
	}()

	buf, err := io.ReadAll(rd)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v", inc.Name)
	}
	return buf, nil
}

// Sort orders increments by date, oldest first. Increments without a date
// come first, the order of increments with the same date is preserved.
func Sort(incs []Increment) {
	sort.SliceStable(incs, func(i, j int) bool {
		return incs[i].Date.Before(incs[j].Date)
	})
}
