package stats

import (
	"bytes"
	"io"
	"strconv"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/increment"
)

// ChunkSize is the amount of (decompressed) data processed at once while
// searching a file statistics record.
const ChunkSize = 1024 * 1024

// Record is one line of a file_statistics table.
type Record struct {
	Name          []byte
	Changed       bool
	SourceSize    int64
	MirrorSize    int64
	IncrementSize int64
}

// parseSize parses a size column, "NA" means not available.
func parseSize(b []byte) int64 {
	if string(b) == "NA" {
		return 0
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		debug.Log("warning: invalid size %q in file statistics", b)
		return 0
	}
	return v
}

// parseRecord splits a line from the right into its five columns, so that
// file names may contain spaces.
func parseRecord(line []byte) (Record, error) {
	line = bytes.TrimRight(line, "\r\n")

	var cols [4][]byte
	rest := line
	for i := 3; i >= 0; i-- {
		idx := bytes.LastIndexByte(rest, ' ')
		if idx < 0 {
			return Record{}, errors.Errorf("malformed file statistics line %q", line)
		}
		cols[i] = rest[idx+1:]
		rest = rest[:idx]
	}

	return Record{
		Name:          rest,
		Changed:       string(cols[0]) == "1",
		SourceSize:    parseSize(cols[1]),
		MirrorSize:    parseSize(cols[2]),
		IncrementSize: parseSize(cols[3]),
	}, nil
}

// Search reads rd in chunks of ChunkSize and returns the first line which
// starts with prefix. Only the current chunk and a partial line carried over
// from the previous chunk are held in memory. found is false if no line
// matches.
func Search(rd io.Reader, prefix []byte) (line []byte, found bool, err error) {
	return SearchFunc(rd, prefix, nil)
}

// SearchFunc is like Search, but a line starting with prefix is only
// returned if accept reports true for it. Otherwise the search continues
// with the next line. A nil accept takes every line.
func SearchFunc(rd io.Reader, prefix []byte, accept func(line []byte) bool) (line []byte, found bool, err error) {
	match := func(l []byte) bool {
		return bytes.HasPrefix(l, prefix) && (accept == nil || accept(l))
	}

	buf := make([]byte, ChunkSize)
	var carry []byte

	for {
		n, rerr := io.ReadFull(rd, buf)
		chunk := buf[:n]

		if len(carry) > 0 {
			chunk = append(carry, chunk...)
			carry = nil
		}

		for len(chunk) > 0 {
			idx := bytes.IndexByte(chunk, '\n')
			if idx < 0 {
				break
			}
			l := chunk[:idx+1]
			chunk = chunk[idx+1:]
			if match(l) {
				return append([]byte(nil), l...), true, nil
			}
		}

		// keep the partial line for the next chunk
		if len(chunk) > 0 {
			carry = append([]byte(nil), chunk...)
		}

		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return nil, false, errors.Wrap(rerr, "Read")
		}
	}

	if len(carry) > 0 && match(carry) {
		return carry, true, nil
	}

	return nil, false, nil
}

// FileStatistics is a file_statistics increment. The table is never loaded
// into memory, every lookup searches the file.
type FileStatistics struct {
	inc increment.Increment
	dir string
}

// NewFileStatistics returns the FileStatistics for inc, located in dir.
func NewFileStatistics(dir string, inc increment.Increment) *FileStatistics {
	return &FileStatistics{inc: inc, dir: dir}
}

// Increment returns the underlying increment.
func (f *FileStatistics) Increment() increment.Increment {
	return f.inc
}

// Lookup searches the record for path, which is relative to the repository
// root and unquoted. found is false if the table has no line for path.
func (f *FileStatistics) Lookup(path []byte) (rec Record, found bool, err error) {
	debug.Log("search %q in %v", path, f.inc.Name)

	rd, err := f.inc.Open(f.dir)
	if err != nil {
		return Record{}, false, err
	}
	defer func() {
		_ = rd.Close()
	}()

	prefix := make([]byte, 0, len(path)+1)
	prefix = append(prefix, path...)
	prefix = append(prefix, ' ')

	// names may contain spaces, so the prefix of "a b" also matches "a b c"
	_, found, err = SearchFunc(rd, prefix, func(line []byte) bool {
		r, perr := parseRecord(line)
		if perr != nil {
			debug.Log("warning: %v", perr)
			return false
		}
		if !bytes.Equal(r.Name, path) {
			return false
		}
		rec = r
		return true
	})
	if err != nil || !found {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (f *FileStatistics) size(path []byte, what string, get func(Record) int64) int64 {
	rec, found, err := f.Lookup(path)
	if err != nil {
		debug.Log("warning: %v not found for %q in %v: %v", what, path, f.inc.Name, err)
		return 0
	}
	if !found {
		debug.Log("warning: %v not found for %q in %v", what, path, f.inc.Name)
		return 0
	}
	return get(rec)
}

// SourceSize returns the size of path in the backup source, or zero if the
// table has no entry for it.
func (f *FileStatistics) SourceSize(path []byte) int64 {
	return f.size(path, "source size", func(r Record) int64 { return r.SourceSize })
}

// MirrorSize returns the size of path in the mirror, or zero if the table
// has no entry for it.
func (f *FileStatistics) MirrorSize(path []byte) int64 {
	return f.size(path, "mirror size", func(r Record) int64 { return r.MirrorSize })
}

// IncrementSize returns the size of the increment written for path, or zero
// if the table has no entry for it.
func (f *FileStatistics) IncrementSize(path []byte) int64 {
	return f.size(path, "increment size", func(r Record) int64 { return r.IncrementSize })
}
