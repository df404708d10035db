// Package repository gives access to an rdiff-backup repository: the live
// mirror of the most recent backup and the rdiff-backup-data directory
// holding the increments of all previous backups.
//
// A Repository caches what it reads from rdiff-backup-data for its whole
// lifetime. Open a new Repository to observe changes made by later backups.
// A Repository and the entries derived from it must only be used by one
// goroutine at a time.
package repository

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rdiffweb/rdiffbrowse/internal/charset"
	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
	"github.com/rdiffweb/rdiffbrowse/internal/increment"
	"github.com/rdiffweb/rdiffbrowse/internal/quote"
	"github.com/rdiffweb/rdiffbrowse/internal/stats"
)

// DataDir is the name of the directory rdiff-backup stores its metadata in.
const DataDir = "rdiff-backup-data"

// IncrementsDir is the directory below DataDir which mirrors the tree and
// holds the increments of each file.
const IncrementsDir = "increments"

// HintFile is the name of the file below DataDir which holds settings for
// rdiffbrowse, e.g. the encoding of file names.
const HintFile = "rdiffweb"

// defaultSizeCacheEntries is the number of file statistics lookups
// remembered per repository.
const defaultSizeCacheEntries = 1024

// Options configure how a repository is opened.
type Options struct {
	// DefaultEncoding is used for file names unless the repository has a
	// hint naming another encoding. Empty means charset.Default.
	DefaultEncoding string
	// SizeCacheEntries bounds the number of remembered file statistics
	// lookups. Zero selects a default.
	SizeCacheEntries int
}

type fileStatsSlot struct {
	inc increment.Increment
	obj *stats.FileStatistics
}

type sizeKey struct {
	date int64
	path string
}

// Repository is an rdiff-backup repository on the local filesystem.
type Repository struct {
	path          string
	fullPath      string
	dataPath      string
	incrementPath string
	hintFile      string

	defaultEnc *charset.Encoding
	enc        *charset.Encoding

	// lazily populated, see index.go
	backupDates       []time.Time
	backupDatesLoaded bool
	errorLogs         map[int64]increment.Increment
	fileStats         map[int64]*fileStatsSlot
	sessionStats      map[int64]*stats.SessionFile
	sessionDates      []time.Time
	inProgress        *bool

	sizes *lru.Cache[sizeKey, int64]
}

// Open returns the repository located at root. It fails with a
// *NotFoundError if root does not contain an rdiff-backup-data directory.
func Open(root string, opts Options) (*Repository, error) {
	full, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "Abs")
	}
	r := &Repository{
		path:     filepath.Clean(root),
		fullPath: full,
		dataPath: filepath.Join(full, DataDir),
	}
	r.incrementPath = filepath.Join(r.dataPath, IncrementsDir)
	r.hintFile = filepath.Join(r.dataPath, HintFile)

	fi, err := os.Stat(r.dataPath)
	if err != nil || !fi.IsDir() {
		debug.Log("repository %v does not exist: %v", full, err)
		return nil, &NotFoundError{Path: root}
	}

	r.defaultEnc = charset.UTF8
	if opts.DefaultEncoding != "" {
		enc, err := charset.Lookup(opts.DefaultEncoding)
		if err != nil {
			debug.Log("warning: invalid default encoding %q, using %v: %v", opts.DefaultEncoding, charset.Default, err)
		} else {
			r.defaultEnc = enc
		}
	}
	r.enc = r.defaultEnc

	n := opts.SizeCacheEntries
	if n <= 0 {
		n = defaultSizeCacheEntries
	}
	r.sizes, err = lru.New[sizeKey, int64](n)
	if err != nil {
		return nil, errors.Wrap(err, "lru.New")
	}

	r.loadHints()
	return r, nil
}

// loadHints selects the encoding named in the hint file. A missing or broken
// hint file leaves the default encoding in place.
func (r *Repository) loadHints() {
	hints, err := readHints(r.hintFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			debug.Log("warning: unable to read hints %v: %v", r.hintFile, err)
		}
		return
	}

	name, ok := hints["encoding"]
	if !ok {
		return
	}
	enc, err := charset.Lookup(name)
	if err != nil {
		debug.Log("warning: unknown encoding %q in %v, using %v", name, r.hintFile, r.defaultEnc)
		return
	}
	r.enc = enc
}

// Path returns the location of the repository as passed to Open.
func (r *Repository) Path() string {
	return r.path
}

// FullPath returns the absolute location of the repository on disk.
func (r *Repository) FullPath() string {
	return r.fullPath
}

// DataPath returns the location of the rdiff-backup-data directory.
func (r *Repository) DataPath() string {
	return r.dataPath
}

// DisplayName returns the name of the repository directory as text.
func (r *Repository) DisplayName() string {
	return r.Decode([]byte(filepath.Base(r.fullPath)))
}

// Encoding returns the name of the encoding used for file names.
func (r *Repository) Encoding() string {
	return r.enc.Name()
}

// Charset returns the encoding used for file names.
func (r *Repository) Charset() *charset.Encoding {
	return r.enc
}

// SetEncoding changes the encoding used for file names and records it in
// the hint file, which is rewritten as a whole.
func (r *Repository) SetEncoding(name string) error {
	enc, err := charset.Lookup(name)
	if err != nil {
		return err
	}

	debug.Log("writing hints for %v", r.fullPath)

	hints, err := readHints(r.hintFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			debug.Log("warning: discarding unreadable hints %v: %v", r.hintFile, err)
		}
		hints = make(map[string]string)
	}
	hints["encoding"] = enc.Name()

	if err := writeHints(r.hintFile, hints); err != nil {
		return err
	}

	r.enc = enc
	return nil
}

// Decode converts a raw file name to text using the repository's encoding.
// Undecodable bytes are replaced, Decode never fails.
func (r *Repository) Decode(raw []byte) string {
	return r.enc.Decode(raw)
}

// Unquote removes rdiff-backup quoting from name.
func (r *Repository) Unquote(name []byte) []byte {
	return quote.Unquote(name)
}

// Delete removes the repository and all of its backups permanently.
func (r *Repository) Delete() error {
	debug.Log("delete repository %v", r.fullPath)
	return errors.WithStack(os.RemoveAll(r.fullPath))
}

// Crumb is one element of the path from the repository root to an entry.
type Crumb struct {
	Path string
	Name string
}

// Parents returns the chain of directories leading to p, starting with the
// repository itself and ending with p.
func (r *Repository) Parents(p string) []Crumb {
	crumbs := []Crumb{{Path: "", Name: r.DisplayName()}}

	cur := ""
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		cur = filepath.ToSlash(filepath.Join(cur, part))
		crumbs = append(crumbs, Crumb{
			Path: cur,
			Name: r.Decode(quote.Unquote([]byte(part))),
		})
	}
	return crumbs
}

func (r *Repository) String() string {
	return r.fullPath
}
