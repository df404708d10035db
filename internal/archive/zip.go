package archive

import (
	"context"
	"io"

	"github.com/klauspost/compress/zip"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

type zipArchiver struct {
	w *zip.Writer
}

// Statically ensure that zipArchiver implements archiver.
var _ archiver = &zipArchiver{}

func newZipArchiver(w io.Writer) *zipArchiver {
	return &zipArchiver{w: zip.NewWriter(w)}
}

func (a *zipArchiver) Close() error {
	return a.w.Close()
}

func (a *zipArchiver) writeEntry(ctx context.Context, e entry) error {
	header, err := zip.FileInfoHeader(e.fi)
	if err != nil {
		return errors.Wrapf(err, "header for %v", e.name)
	}
	header.Name = e.name

	switch {
	case e.isDir():
		header.Name += "/"
		header.Method = zip.Store
	case e.isLink():
		header.Method = zip.Store
		header.UncompressedSize64 = uint64(len(e.target))
	default:
		header.Method = zip.Deflate
	}

	w, err := a.w.CreateHeader(header)
	if err != nil {
		return errors.Wrap(err, "ZipHeader")
	}

	switch {
	case e.isLink():
		_, err = w.Write([]byte(e.target))
		return errors.Wrap(err, "Write")
	case e.isRegular():
		return copyFile(ctx, w, e.path)
	}
	return nil
}
