package repository

import (
	"time"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
)

// HistoryEntry is a single backup run of a repository.
type HistoryEntry struct {
	repo *Repository
	Date time.Time
}

// Size returns the total size of the backup source, or zero if the session
// statistics are not available.
func (h HistoryEntry) Size() int64 {
	f, ok := h.repo.SessionStatistics(h.Date)
	if !ok {
		return 0
	}
	return f.Statistics().SourceFileSize()
}

// IncrementSize returns the total size of the increments written by the
// backup, or zero if the session statistics are not available.
func (h HistoryEntry) IncrementSize() int64 {
	f, ok := h.repo.SessionStatistics(h.Date)
	if !ok {
		return 0
	}
	return f.Statistics().IncrementFileSize()
}

// HasErrors reports whether the backup wrote a non-empty error log.
func (h HistoryEntry) HasErrors() bool {
	inc, ok := h.repo.ErrorLog(h.Date)
	if !ok {
		return false
	}

	empty, err := inc.IsEmpty(h.repo.dataPath)
	if err != nil {
		debug.Log("warning: unable to stat %v: %v", inc.Name, err)
		return false
	}
	return !empty
}

// Errors returns the content of the error log of the backup, decoded with
// the repository's encoding. It is empty if the backup has no error log.
func (h HistoryEntry) Errors() (string, error) {
	inc, ok := h.repo.ErrorLog(h.Date)
	if !ok {
		return "", nil
	}

	buf, err := inc.Read(h.repo.dataPath)
	if err != nil {
		return "", err
	}
	return h.repo.Decode(buf), nil
}

// HistoryOptions select the backups returned by History.
type HistoryOptions struct {
	// Limit is the maximum number of entries, zero or less means all.
	Limit int
	// Earliest and Latest bound the dates of the entries, both inclusive.
	// The zero time means no bound.
	Earliest time.Time
	Latest   time.Time
	// Reverse returns the newest backup first.
	Reverse bool
}

// History returns the backups of the repository, oldest first unless
// opts.Reverse is set.
func (r *Repository) History(opts HistoryOptions) []HistoryEntry {
	debug.Log("get history of %v: %+v", r.fullPath, opts)

	dates := r.BackupDates()
	entries := make([]HistoryEntry, 0, len(dates))
	for i := range dates {
		date := dates[i]
		if opts.Reverse {
			date = dates[len(dates)-1-i]
		}

		if !opts.Earliest.IsZero() && date.Before(opts.Earliest) {
			continue
		}
		if !opts.Latest.IsZero() && date.After(opts.Latest) {
			continue
		}

		entries = append(entries, HistoryEntry{repo: r, Date: date})
		if opts.Limit > 0 && len(entries) == opts.Limit {
			break
		}
	}
	return entries
}
