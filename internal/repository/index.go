package repository

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/increment"
	"github.com/rdiffweb/rdiffbrowse/internal/stats"
)

// Name prefixes of the files in rdiff-backup-data.
const (
	mirrorMetadataPrefix    = "mirror_metadata"
	errorLogPrefix          = "error_log."
	fileStatisticsPrefix    = "file_statistics."
	sessionStatisticsPrefix = "session_statistics."
	currentMirrorPrefix     = "current_mirror."
)

var pidPattern = regexp.MustCompile(`(?im)^PID\s*([0-9]+)`)

// dataEntries lists the names of the files directly in rdiff-backup-data
// which start with prefix, in directory order.
func (r *Repository) dataEntries(prefix string) ([]increment.Increment, error) {
	entries, err := os.ReadDir(r.dataPath)
	if err != nil {
		return nil, errors.Wrap(err, "ReadDir")
	}

	var incs []increment.Increment
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		incs = append(incs, increment.Parse(e.Name()))
	}
	return incs, nil
}

// datedEntries is like dataEntries but drops names without a valid timestamp.
func (r *Repository) datedEntries(prefix string) ([]increment.Increment, error) {
	incs, err := r.dataEntries(prefix)
	if err != nil {
		return nil, err
	}

	dated := incs[:0]
	for _, inc := range incs {
		if !inc.HasDate() {
			debug.Log("warning: ignoring %v without date", inc.Name)
			continue
		}
		dated = append(dated, inc)
	}
	return dated, nil
}

// BackupDates returns the dates of all backups in the repository, oldest
// first. The list is strictly ascending. Backups are identified by their
// mirror_metadata files.
func (r *Repository) BackupDates() []time.Time {
	if r.backupDatesLoaded {
		return r.backupDates
	}

	debug.Log("get backup dates for %v", r.fullPath)

	incs, err := r.datedEntries(mirrorMetadataPrefix)
	if err != nil {
		debug.Log("warning: unable to list backup dates of %v: %v", r.fullPath, err)
		return nil
	}

	dates := make([]time.Time, 0, len(incs))
	for _, inc := range incs {
		dates = append(dates, inc.Date)
	}
	r.backupDates = sortDates(dates)
	r.backupDatesLoaded = true
	return r.backupDates
}

// sortDates sorts dates in place and removes duplicates.
func sortDates(dates []time.Time) []time.Time {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	out := dates[:0]
	for i, d := range dates {
		if i > 0 && d.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// LastBackupDate returns the date of the most recent backup. ok is false if
// the repository does not contain any backup.
func (r *Repository) LastBackupDate() (t time.Time, ok bool) {
	dates := r.BackupDates()
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

// firstBackupAfter returns the first backup date strictly after t.
func (r *Repository) firstBackupAfter(t time.Time) (time.Time, bool) {
	dates := r.BackupDates()
	i := sort.Search(len(dates), func(i int) bool {
		return dates[i].After(t)
	})
	if i >= len(dates) {
		return time.Time{}, false
	}
	return dates[i], true
}

// ErrorLogs returns the error_log increments by backup date, in Unix
// seconds. For duplicate dates the last file listed wins.
func (r *Repository) ErrorLogs() map[int64]increment.Increment {
	if r.errorLogs != nil {
		return r.errorLogs
	}

	incs, err := r.datedEntries(errorLogPrefix)
	if err != nil {
		debug.Log("warning: unable to list error logs of %v: %v", r.fullPath, err)
		return map[int64]increment.Increment{}
	}

	logs := make(map[int64]increment.Increment, len(incs))
	for _, inc := range incs {
		logs[inc.Date.Unix()] = inc
	}
	r.errorLogs = logs
	return r.errorLogs
}

// ErrorLog returns the error_log increment written by the backup at date.
func (r *Repository) ErrorLog(date time.Time) (increment.Increment, bool) {
	inc, ok := r.ErrorLogs()[date.Unix()]
	return inc, ok
}

func (r *Repository) loadFileStatistics() map[int64]*fileStatsSlot {
	if r.fileStats != nil {
		return r.fileStats
	}

	incs, err := r.datedEntries(fileStatisticsPrefix)
	if err != nil {
		debug.Log("warning: unable to list file statistics of %v: %v", r.fullPath, err)
		return map[int64]*fileStatsSlot{}
	}

	slots := make(map[int64]*fileStatsSlot, len(incs))
	for _, inc := range incs {
		slots[inc.Date.Unix()] = &fileStatsSlot{inc: inc}
	}
	r.fileStats = slots
	return r.fileStats
}

// FileStatistics returns the per-file statistics written by the backup at
// date. ok is false if that backup has no such record.
func (r *Repository) FileStatistics(date time.Time) (fs *stats.FileStatistics, ok bool) {
	slot, ok := r.loadFileStatistics()[date.Unix()]
	if !ok {
		return nil, false
	}
	if slot.obj == nil {
		slot.obj = stats.NewFileStatistics(r.dataPath, slot.inc)
	}
	return slot.obj, true
}

func (r *Repository) loadSessionStatistics() map[int64]*stats.SessionFile {
	if r.sessionStats != nil {
		return r.sessionStats
	}

	incs, err := r.datedEntries(sessionStatisticsPrefix)
	if err != nil {
		debug.Log("warning: unable to list session statistics of %v: %v", r.fullPath, err)
		return map[int64]*stats.SessionFile{}
	}

	sort.Slice(incs, func(i, j int) bool {
		return incs[i].Name < incs[j].Name
	})

	files := make(map[int64]*stats.SessionFile, len(incs))
	dates := make([]time.Time, 0, len(incs))
	for _, inc := range incs {
		files[inc.Date.Unix()] = stats.NewSessionFile(r.dataPath, inc)
		dates = append(dates, inc.Date)
	}
	r.sessionDates = sortDates(dates)
	r.sessionStats = files
	return r.sessionStats
}

// SessionStatistics returns the session statistics written by the backup at
// date. The record is parsed on first access to its content.
func (r *Repository) SessionStatistics(date time.Time) (*stats.SessionFile, bool) {
	f, ok := r.loadSessionStatistics()[date.Unix()]
	return f, ok
}

// SessionDates returns the dates of all session statistics, oldest first.
func (r *Repository) SessionDates() []time.Time {
	r.loadSessionStatistics()
	return r.sessionDates
}

// InProgress reports whether rdiff-backup is currently writing to the
// repository, that is a current_mirror file names a running process.
func (r *Repository) InProgress() bool {
	if r.inProgress != nil {
		return *r.inProgress
	}

	incs, err := r.dataEntries(currentMirrorPrefix)
	if err != nil {
		debug.Log("warning: unable to list current mirror of %v: %v", r.fullPath, err)
		return false
	}

	running := false
	for _, inc := range incs {
		pid, ok := r.mirrorPID(inc)
		if ok && pidRunning(pid) {
			running = true
			break
		}
	}

	r.inProgress = &running
	return running
}

func (r *Repository) mirrorPID(inc increment.Increment) (int, bool) {
	buf, err := inc.Read(r.dataPath)
	if err != nil {
		debug.Log("warning: unable to read %v: %v", inc.Name, err)
		return 0, false
	}

	m := pidPattern.FindSubmatch(buf)
	if m == nil {
		return 0, false
	}

	pid, err := strconv.Atoi(string(m[1]))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// IncrementsUnder lists the increments stored for the files in the directory
// p, which is relative to the repository root. Sub directories of the
// increments directory are skipped. The result is empty if the directory
// never changed.
func (r *Repository) IncrementsUnder(p string) ([]increment.Increment, error) {
	dir := filepath.Join(r.incrementPath, filepath.FromSlash(strings.Trim(p, "/")))

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "ReadDir")
	}

	var incs []increment.Increment
	for _, e := range entries {
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			fi, err := os.Stat(filepath.Join(dir, e.Name()))
			isDir = err == nil && fi.IsDir()
		}
		if isDir {
			continue
		}
		incs = append(incs, increment.Parse(e.Name()))
	}
	return incs, nil
}

// sourceSize returns the size of the unquoted path in the backup at date, as
// recorded in the file statistics. Results are remembered.
func (r *Repository) sourceSize(date time.Time, path []byte) int64 {
	key := sizeKey{date: date.Unix(), path: string(path)}
	if size, ok := r.sizes.Get(key); ok {
		return size
	}

	fs, ok := r.FileStatistics(date)
	if !ok {
		debug.Log("warning: cannot find file statistics for %v", date)
		return 0
	}

	size := fs.SourceSize(path)
	r.sizes.Add(key, size)
	return size
}
