// Package test contains helpers shared by the tests of all packages.
package test

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"

	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// Assert fails the test if the condition is false.
func Assert(tb testing.TB, condition bool, msg string, v ...interface{}) {
	tb.Helper()
	if !condition {
		tb.Fatalf(msg, v...)
	}
}

// OK fails the test if an err is not nil.
func OK(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("unexpected error: %+v", err)
	}
}

// Equals fails the test if exp is not equal to act. The message shows the
// difference between both values.
func Equals(tb testing.TB, exp, act interface{}) {
	tb.Helper()
	if reflect.DeepEqual(exp, act) {
		return
	}

	diff := ""
	func() {
		// cmp panics for structs with unexported fields
		defer func() {
			_ = recover()
		}()
		diff = cmp.Diff(exp, act)
	}()

	if diff == "" {
		tb.Fatalf("\n\texp: %#v\n\n\tgot: %#v", exp, act)
	}
	tb.Fatalf("\n\texp: %#v\n\n\tgot: %#v\n\ndiff (-exp +got):\n%s", exp, act, diff)
}

// Random returns count bytes of pseudo-random data derived from the seed.
func Random(seed, count int) []byte {
	p := make([]byte, count)
	rnd := rand.New(rand.NewSource(int64(seed)))
	_, _ = rnd.Read(p)
	return p
}

// WriteFile creates the file at path, including all missing parent
// directories, and fills it with data.
func WriteFile(tb testing.TB, path string, data []byte) {
	tb.Helper()
	OK(tb, os.MkdirAll(filepath.Dir(path), 0755))
	OK(tb, os.WriteFile(path, data, 0644))
}

// WriteGzipFile is like WriteFile, but stores data gzip compressed as
// rdiff-backup does for .gz increments and metadata.
func WriteGzipFile(tb testing.TB, path string, data []byte) {
	tb.Helper()
	buf := bytes.NewBuffer(nil)
	zw := gzip.NewWriter(buf)
	_, err := zw.Write(data)
	OK(tb, err)
	OK(tb, zw.Close())
	WriteFile(tb, path, buf.Bytes())
}

// Mkdir creates the directory at path, including all parents.
func Mkdir(tb testing.TB, path string) {
	tb.Helper()
	OK(tb, os.MkdirAll(path, 0755))
}

// RemoveAll makes everything below path writable and removes it. Read-only
// files cannot be removed on Windows, and restored files keep the modes
// they had in the backup.
func RemoveAll(tb testing.TB, path string) {
	tb.Helper()

	err := filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if fi == nil {
			return err
		}
		switch {
		case fi.IsDir():
			return os.Chmod(p, 0700)
		case fi.Mode().IsRegular():
			return os.Chmod(p, 0600)
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		tb.Logf("unable to reset permissions below %v: %v", path, err)
	}

	err = os.RemoveAll(path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	OK(tb, err)
}

// TempDir returns a temporary directory that is removed when the test ends,
// except if TestCleanupTempDirs is set to false.
func TempDir(tb testing.TB) string {
	tb.Helper()

	tempdir, err := os.MkdirTemp(TestTempDir, "rdiffbrowse-test-")
	OK(tb, err)

	tb.Cleanup(func() {
		if !TestCleanupTempDirs {
			tb.Logf("leaving temporary directory %v used for test", tempdir)
			return
		}
		RemoveAll(tb, tempdir)
	})
	return tempdir
}
