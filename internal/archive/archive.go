// Package archive writes the content of a directory to a stream as a zip or
// tar archive.
package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rdiffweb/rdiffbrowse/internal/charset"
	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// Kind is an archive format.
type Kind string

// Supported archive formats.
const (
	Zip   Kind = "zip"
	Tar   Kind = "tar"
	TarGz Kind = "tar.gz"
)

// Kinds lists all supported formats.
var Kinds = []Kind{Zip, Tar, TarGz}

// ErrUnknownKind is returned for unsupported archive formats.
var ErrUnknownKind = errors.New("unknown archive format")

// ParseKind returns the Kind named s. "tgz" is accepted for tar.gz.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "zip":
		return Zip, nil
	case "tar":
		return Tar, nil
	case "tar.gz", "tgz":
		return TarGz, nil
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Set implements pflag.Value.
func (k *Kind) Set(s string) error {
	kind, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

func (k *Kind) String() string {
	return string(*k)
}

// Type implements pflag.Value.
func (k *Kind) Type() string {
	return "format"
}

// Extension returns the file name extension for the format, without dot.
func (k Kind) Extension() string {
	return string(k)
}

// entry is a single file system object below the archived directory.
type entry struct {
	// path is the location on disk
	path string
	// name is the slash separated name inside the archive, decoded to
	// UTF-8
	name string
	fi   os.FileInfo
	// target is the destination of a symlink
	target string
}

func (e entry) isDir() bool {
	return e.fi.IsDir()
}

func (e entry) isLink() bool {
	return e.fi.Mode()&os.ModeSymlink != 0
}

func (e entry) isRegular() bool {
	return e.fi.Mode().IsRegular()
}

type archiver interface {
	writeEntry(ctx context.Context, e entry) error
	Close() error
}

// Write walks dir and writes an archive of the given kind containing its
// content to w. Names inside the archive are relative to dir and decoded
// from enc, which may be nil for UTF-8. Objects other than directories,
// regular files and symlinks are skipped.
func Write(ctx context.Context, dir string, w io.Writer, kind Kind, enc *charset.Encoding) error {
	if enc == nil {
		enc = charset.UTF8
	}

	var arch archiver
	switch kind {
	case Zip:
		arch = newZipArchiver(w)
	case Tar:
		arch = newTarArchiver(w, false)
	case TarGz:
		arch = newTarArchiver(w, true)
	default:
		return errors.Wrapf(ErrUnknownKind, "%q", kind)
	}

	debug.Log("write %v archive of %v", kind, dir)

	err := walk(ctx, dir, enc, func(e entry) error {
		return arch.writeEntry(ctx, e)
	})
	if err != nil {
		_ = arch.Close()
		return err
	}
	return arch.Close()
}

func walk(ctx context.Context, dir string, enc *charset.Encoding, fn func(entry) error) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return errors.WithStack(err)
		}

		fi, err := d.Info()
		if err != nil {
			return errors.WithStack(err)
		}

		e := entry{
			path: p,
			name: enc.Decode([]byte(filepath.ToSlash(rel))),
			fi:   fi,
		}

		switch {
		case e.isLink():
			e.target, err = os.Readlink(p)
			if err != nil {
				return errors.WithStack(err)
			}
		case e.isDir(), e.isRegular():
		default:
			debug.Log("skipping special file %v", p)
			return nil
		}

		return fn(e)
	})
}

// copyFile writes the content of the regular file at p to w.
func copyFile(ctx context.Context, w io.Writer, p string) error {
	f, err := os.Open(p)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(w, ctxReader{ctx: ctx, rd: f})
	return errors.Wrap(err, "Copy")
}

type ctxReader struct {
	ctx context.Context
	rd  io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.rd.Read(p)
}
