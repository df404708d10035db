// Package stats reads the statistics rdiff-backup records for each backup
// session: the session_statistics summary and the per-file file_statistics
// table.
package stats

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/increment"
)

// Value is a single statistics value, either an integer or a real number.
type Value struct {
	Int     int64
	Float   float64
	IsFloat bool
}

// Float64 returns v as a real number.
func (v Value) Float64() float64 {
	if v.IsFloat {
		return v.Float
	}
	return float64(v.Int)
}

// Int64 returns v as an integer, real numbers are truncated.
func (v Value) Int64() int64 {
	if v.IsFloat {
		return int64(v.Float)
	}
	return v.Int
}

// SessionStatistics holds the counters of one backup session. Field names
// are the lower-cased keys of the record, e.g. "sourcefilesize".
type SessionStatistics struct {
	values map[string]Value
}

// ParseSession reads a session_statistics record. Lines starting with '#'
// are comments. Each other line is "<Key> <value> [extra]", e.g.
// "ElapsedTime 4.02 (4.02 seconds)". Malformed lines are skipped.
func ParseSession(rd io.Reader) (*SessionStatistics, error) {
	s := &SessionStatistics{values: make(map[string]Value)}

	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			debug.Log("warning: skipping malformed statistics line %q", line)
			continue
		}

		key, raw := strings.ToLower(fields[0]), fields[1]
		var v Value
		if strings.Contains(raw, ".") {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				debug.Log("warning: invalid value for %v: %q", key, raw)
				continue
			}
			v = Value{Float: f, IsFloat: true}
		} else {
			i, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				debug.Log("warning: invalid value for %v: %q", key, raw)
				continue
			}
			v = Value{Int: i}
		}
		s.values[key] = v
	}

	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "Scan")
	}

	return s, nil
}

// Get returns the value with the given (case-insensitive) name. Unknown
// fields are zero.
func (s *SessionStatistics) Get(name string) Value {
	if s == nil {
		return Value{}
	}
	return s.values[strings.ToLower(name)]
}

// Len returns the number of fields in the record.
func (s *SessionStatistics) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// StartTime returns the start of the backup in Unix seconds.
func (s *SessionStatistics) StartTime() float64 { return s.Get("starttime").Float64() }

// EndTime returns the end of the backup in Unix seconds.
func (s *SessionStatistics) EndTime() float64 { return s.Get("endtime").Float64() }

// ElapsedTime returns the duration of the backup in seconds.
func (s *SessionStatistics) ElapsedTime() float64 { return s.Get("elapsedtime").Float64() }

// The following accessors return the counters rdiff-backup writes for a
// backup session. Counts are numbers of files, sizes are in bytes. Missing
// or unparsable fields are zero.

// SourceFiles returns the number of files in the source tree.
func (s *SessionStatistics) SourceFiles() int64 { return s.Get("sourcefiles").Int64() }

// SourceFileSize returns the total size of the source tree.
func (s *SessionStatistics) SourceFileSize() int64 { return s.Get("sourcefilesize").Int64() }

// MirrorFiles returns the number of files in the mirror before the backup.
func (s *SessionStatistics) MirrorFiles() int64 { return s.Get("mirrorfiles").Int64() }

// MirrorFileSize returns the size of the mirror before the backup.
func (s *SessionStatistics) MirrorFileSize() int64 { return s.Get("mirrorfilesize").Int64() }

// NewFiles returns the number of files added by the backup.
func (s *SessionStatistics) NewFiles() int64 { return s.Get("newfiles").Int64() }

// NewFileSize returns the size of the added files.
func (s *SessionStatistics) NewFileSize() int64 { return s.Get("newfilesize").Int64() }

// DeletedFiles returns the number of files removed since the last backup.
func (s *SessionStatistics) DeletedFiles() int64 { return s.Get("deletedfiles").Int64() }

// DeletedFileSize returns the size of the removed files.
func (s *SessionStatistics) DeletedFileSize() int64 { return s.Get("deletedfilesize").Int64() }

// ChangedFiles returns the number of modified files.
func (s *SessionStatistics) ChangedFiles() int64 { return s.Get("changedfiles").Int64() }

// ChangedSourceSize returns the new size of the modified files.
func (s *SessionStatistics) ChangedSourceSize() int64 { return s.Get("changedsourcesize").Int64() }

// ChangedMirrorSize returns the previous size of the modified files.
func (s *SessionStatistics) ChangedMirrorSize() int64 { return s.Get("changedmirrorsize").Int64() }

// IncrementFiles returns the number of increments written.
func (s *SessionStatistics) IncrementFiles() int64 { return s.Get("incrementfiles").Int64() }

// IncrementFileSize returns the size of the increments written.
func (s *SessionStatistics) IncrementFileSize() int64 { return s.Get("incrementfilesize").Int64() }

// TotalDestinationSizeChange returns how much the repository grew, negative
// if it shrank.
func (s *SessionStatistics) TotalDestinationSizeChange() int64 {
	return s.Get("totaldestinationsizechange").Int64()
}

// Errors returns the number of errors logged during the backup.
func (s *SessionStatistics) Errors() int64 { return s.Get("errors").Int64() }

// SessionFile is a session_statistics increment which is parsed on first
// use.
type SessionFile struct {
	inc  increment.Increment
	dir  string
	data *SessionStatistics
}

// NewSessionFile returns a SessionFile for inc, located in dir.
func NewSessionFile(dir string, inc increment.Increment) *SessionFile {
	return &SessionFile{inc: inc, dir: dir}
}

// Increment returns the underlying increment.
func (f *SessionFile) Increment() increment.Increment {
	return f.inc
}

// EnsureLoaded parses the record unless this was done before. On error
// nothing is cached, so a later call tries again.
func (f *SessionFile) EnsureLoaded() error {
	if f.data != nil {
		return nil
	}

	rd, err := f.inc.Open(f.dir)
	if err != nil {
		return err
	}
	defer func() {
		_ = rd.Close()
	}()

	data, err := ParseSession(rd)
	if err != nil {
		return errors.Wrapf(err, "parse %v", f.inc.Name)
	}
	f.data = data
	return nil
}

// Statistics loads the record and returns it. If it cannot be read, a
// warning is logged and an empty record returned.
func (f *SessionFile) Statistics() *SessionStatistics {
	if err := f.EnsureLoaded(); err != nil {
		debug.Log("warning: unable to load session statistics %v: %v", f.inc.Name, err)
		return &SessionStatistics{values: map[string]Value{}}
	}
	return f.data
}
