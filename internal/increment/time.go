package increment

import (
	"time"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/quote"
)

// TimeFormat is the format rdiff-backup uses for timestamps in file names.
const TimeFormat = "2006-01-02T15:04:05Z07:00"

// ParseTime parses an rdiff-backup timestamp. Quoted timestamps, as written
// to targets which do not support colons, are accepted as well.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	t, err := time.Parse(TimeFormat, quote.UnquoteString(s))
	if err != nil {
		return time.Time{}, errors.Wrap(err, "ParseTime")
	}
	return t, nil
}

// FormatTime formats t the way rdiff-backup does.
func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// Name returns the name of an increment for the logical name fn, created at
// t, with the given kind.
func Name(fn string, t time.Time, k Kind, compressed bool) string {
	return fn + "." + FormatTime(t) + Suffix(k, compressed)
}
