package archive

import (
	"archive/tar"
	"context"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/xattr"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

type tarArchiver struct {
	w  *tar.Writer
	zw *gzip.Writer
}

// Statically ensure that tarArchiver implements archiver.
var _ archiver = &tarArchiver{}

func newTarArchiver(w io.Writer, compress bool) *tarArchiver {
	a := &tarArchiver{}
	if compress {
		a.zw = gzip.NewWriter(w)
		w = a.zw
	}
	a.w = tar.NewWriter(w)
	return a
}

func (a *tarArchiver) Close() error {
	err := a.w.Close()
	if a.zw != nil {
		err = errors.Join(err, a.zw.Close())
	}
	return err
}

func (a *tarArchiver) writeEntry(ctx context.Context, e entry) error {
	header, err := tar.FileInfoHeader(e.fi, e.target)
	if err != nil {
		return errors.Wrapf(err, "header for %v", e.name)
	}

	header.Name = e.name
	header.Format = tar.FormatPAX
	header.PAXRecords = readXattrs(e.path)

	if e.isDir() {
		header.Name += "/"
	}

	if err := a.w.WriteHeader(header); err != nil {
		return errors.Wrapf(err, "writing header for %q", e.name)
	}

	if !e.isRegular() {
		return nil
	}
	return copyFile(ctx, a.w, e.path)
}

// readXattrs returns the extended attributes of the file at p as PAX
// records. Failures are logged and yield no records.
func readXattrs(p string) map[string]string {
	names, err := xattr.LList(p)
	if err != nil {
		debug.Log("unable to list xattrs of %v: %v", p, err)
		return nil
	}
	if len(names) == 0 {
		return nil
	}

	records := make(map[string]string, len(names))
	for _, name := range names {
		value, err := xattr.LGet(p, name)
		if err != nil {
			debug.Log("unable to read xattr %v of %v: %v", name, p, err)
			continue
		}

		if !strings.HasPrefix(name, "system.posix_acl_") {
			records["SCHILY.xattr."+name] = string(value)
			continue
		}

		text, err := formatLinuxACL(value)
		if err != nil {
			debug.Log("unable to decode %v of %v: %v", name, p, err)
			continue
		}
		switch name {
		case "system.posix_acl_access":
			records["SCHILY.acl.access"] = text
		case "system.posix_acl_default":
			records["SCHILY.acl.default"] = text
		}
	}
	return records
}
