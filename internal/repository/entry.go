package repository

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/increment"
	"github.com/rdiffweb/rdiffbrowse/internal/quote"
)

// Entry is a file or directory in the repository, either present in the
// mirror, known from its increments, or both. Attributes derived from the
// filesystem or the increments are computed on first use and cached.
type Entry struct {
	repo *Repository

	// path is relative to the repository root, slash separated and quoted
	// as on disk. The root is the empty string.
	path       string
	fullPath   string
	exists     bool
	increments []increment.Increment

	isDir             *bool
	size              *int64
	changeDates       []time.Time
	changeDatesLoaded bool
}

func newEntry(repo *Repository, p string, exists bool, incs []increment.Increment) *Entry {
	sorted := make([]increment.Increment, len(incs))
	copy(sorted, incs)
	increment.Sort(sorted)

	return &Entry{
		repo:       repo,
		path:       p,
		fullPath:   filepath.Join(repo.fullPath, filepath.FromSlash(p)),
		exists:     exists,
		increments: sorted,
	}
}

// Repository returns the repository the entry belongs to.
func (e *Entry) Repository() *Repository {
	return e.repo
}

// Path returns the path relative to the repository root, as stored on disk.
func (e *Entry) Path() string {
	return e.path
}

// FullPath returns the location of the entry in the mirror.
func (e *Entry) FullPath() string {
	return e.fullPath
}

// Exists reports whether the entry is present in the most recent backup.
func (e *Entry) Exists() bool {
	return e.exists
}

// IsRoot reports whether e is the repository root.
func (e *Entry) IsRoot() bool {
	return e.path == ""
}

// Increments returns the increments of the entry, oldest first.
func (e *Entry) Increments() []increment.Increment {
	return e.increments
}

// DisplayName returns the base name of the entry, unquoted and decoded.
func (e *Entry) DisplayName() string {
	if e.IsRoot() {
		return e.repo.DisplayName()
	}
	return e.repo.Decode(quote.Unquote([]byte(path.Base(e.path))))
}

// IsDir reports whether the entry is a directory. For entries which no
// longer exist the oldest increment which is not a missing marker decides;
// without such an increment the entry is a file.
func (e *Entry) IsDir() bool {
	if e.isDir != nil {
		return *e.isDir
	}

	isDir := false
	if e.exists {
		fi, err := os.Stat(e.fullPath)
		if err != nil {
			debug.Log("warning: unable to stat %v: %v", e.fullPath, err)
		} else {
			isDir = fi.IsDir()
		}
	} else {
		for _, inc := range e.increments {
			if inc.IsMissing() {
				continue
			}
			isDir = inc.IsDir()
			break
		}
	}

	e.isDir = &isDir
	return isDir
}

// Size returns the size of the entry in bytes. For entries which no longer
// exist the size is taken from the file statistics of the last change, or
// zero if these do not cover the entry.
func (e *Entry) Size() int64 {
	if e.size != nil {
		return *e.size
	}

	var size int64
	if e.exists {
		fi, err := os.Lstat(e.fullPath)
		if err != nil {
			debug.Log("warning: unable to lstat %v: %v", e.fullPath, err)
		} else {
			size = fi.Size()
		}
	} else if last, ok := e.LastChangeDate(); ok {
		size = e.repo.sourceSize(last, quote.Unquote([]byte(e.path)))
	} else {
		debug.Log("warning: %v has no change date, size unknown", e.path)
	}

	e.size = &size
	return size
}

// ChangeDates returns the dates of the backups in which the entry changed,
// oldest first and without duplicates. The date of a deletion is the first
// backup which no longer contained the entry. If the entry exists, the last
// element is the date of the most recent backup. For the root these are the
// dates of all backups.
func (e *Entry) ChangeDates() []time.Time {
	if e.IsRoot() {
		return e.repo.BackupDates()
	}
	if e.changeDatesLoaded {
		return e.changeDates
	}

	var dates []time.Time
	for _, inc := range e.increments {
		if !inc.HasSuffix() || !inc.HasDate() {
			continue
		}

		date := inc.Date
		if inc.IsMissing() && !inc.IsSnapshot() {
			var ok bool
			date, ok = e.repo.firstBackupAfter(inc.Date)
			if !ok {
				debug.Log("no backup after %v for %v, ignoring deletion", inc.Date, inc.Name)
				continue
			}
		}

		if !containsDate(dates, date) {
			dates = append(dates, date)
		}
	}

	if e.exists {
		if last, ok := e.repo.LastBackupDate(); ok && !containsDate(dates, last) {
			dates = append(dates, last)
		}
	}

	e.changeDates = dates
	e.changeDatesLoaded = true
	return dates
}

func containsDate(dates []time.Time, t time.Time) bool {
	for _, d := range dates {
		if d.Equal(t) {
			return true
		}
	}
	return false
}

// FirstChangeDate returns the oldest change date. ok is false if there is
// none.
func (e *Entry) FirstChangeDate() (t time.Time, ok bool) {
	dates := e.ChangeDates()
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[0], true
}

// LastChangeDate returns the most recent change date. ok is false if there
// is none.
func (e *Entry) LastChangeDate() (t time.Time, ok bool) {
	dates := e.ChangeDates()
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

// Children lists the entries of the directory e, combining the files in the
// mirror with the increments stored for the directory. The order of the
// result is unspecified, use SortEntries for display.
func (e *Entry) Children() ([]*Entry, error) {
	debug.Log("list children of %v", e.fullPath)

	incs, err := e.repo.IncrementsUnder(e.path)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]increment.Increment)
	var names []string
	for _, inc := range incs {
		fn := inc.Filename()
		if _, ok := groups[fn]; !ok {
			names = append(names, fn)
		}
		groups[fn] = append(groups[fn], inc)
	}

	live, err := e.liveNames()
	if err != nil {
		return nil, err
	}

	children := make([]*Entry, 0, len(names)+len(live))
	for _, fn := range names {
		_, exists := live[fn]
		children = append(children, newEntry(e.repo, e.childPath(fn), exists, groups[fn]))
	}

	var liveOnly []string
	for fn := range live {
		if _, ok := groups[fn]; ok {
			continue
		}
		liveOnly = append(liveOnly, fn)
	}
	sort.Strings(liveOnly)

	for _, fn := range liveOnly {
		children = append(children, newEntry(e.repo, e.childPath(fn), true, nil))
	}

	return children, nil
}

func (e *Entry) childPath(name string) string {
	if e.path == "" {
		return name
	}
	return e.path + "/" + name
}

// liveNames returns the names of the files in the mirror directory of e. The
// result is empty if the directory no longer exists.
func (e *Entry) liveNames() (map[string]struct{}, error) {
	names := make(map[string]struct{})

	fi, err := os.Stat(e.fullPath)
	if err != nil || !fi.IsDir() {
		return names, nil
	}

	entries, err := os.ReadDir(e.fullPath)
	if err != nil {
		return nil, errors.Wrap(err, "ReadDir")
	}

	for _, de := range entries {
		if e.IsRoot() && de.Name() == DataDir {
			continue
		}
		names[de.Name()] = struct{}{}
	}
	return names, nil
}

// cleanPath normalizes p to a slash separated path relative to the root.
// The root is returned as the empty string.
func cleanPath(p string) string {
	p = path.Clean("/" + strings.Trim(filepath.ToSlash(p), "/"))
	return strings.TrimPrefix(p, "/")
}

// escapesRoot reports whether p walks above the directory it is relative to
// at any point.
func escapesRoot(p string) bool {
	depth := 0
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

// GetPath returns the entry for p, which is relative to the repository
// root. Paths leaving the repository or pointing into rdiff-backup-data
// yield an *AccessDeniedError, paths neither in the mirror nor in any
// increment a *NotFoundError.
func (r *Repository) GetPath(p string) (*Entry, error) {
	if escapesRoot(p) {
		return nil, &AccessDeniedError{Path: p}
	}

	cleaned := cleanPath(p)
	if cleaned == "" {
		return newEntry(r, "", true, nil), nil
	}

	first, _, _ := strings.Cut(cleaned, "/")
	if first == DataDir {
		return nil, &AccessDeniedError{Path: p}
	}

	full := filepath.Join(r.fullPath, filepath.FromSlash(cleaned))
	if full != r.fullPath && !strings.HasPrefix(full, r.fullPath+string(filepath.Separator)) {
		return nil, &AccessDeniedError{Path: p}
	}

	_, err := os.Lstat(full)
	exists := err == nil

	dir, base := path.Split(cleaned)
	candidates, err := r.IncrementsUnder(dir)
	if err != nil {
		return nil, err
	}

	var incs []increment.Increment
	for _, inc := range candidates {
		if inc.Filename() == base {
			incs = append(incs, inc)
		}
	}

	if !exists && len(incs) == 0 {
		debug.Log("path %v does not exist in %v", cleaned, r.fullPath)
		return nil, &NotFoundError{Path: p}
	}

	return newEntry(r, cleaned, exists, incs), nil
}

// ListChildren returns the entries of the directory p.
func (r *Repository) ListChildren(p string) ([]*Entry, error) {
	e, err := r.GetPath(p)
	if err != nil {
		return nil, err
	}
	return e.Children()
}

// SortEntries orders entries for display: directories first, then by
// display name.
func SortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return a.DisplayName() < b.DisplayName()
	})
}
