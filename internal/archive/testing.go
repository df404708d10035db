package archive

import (
	"os"
	"path/filepath"
	"testing"

	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

// TestFile describes a file created by TestCreateFiles.
type TestFile struct {
	Content string
}

// TestSymlink describes a symlink created by TestCreateFiles.
type TestSymlink struct {
	Target string
}

// TestDir describes a directory created by TestCreateFiles. Values are
// TestFile, TestSymlink or TestDir.
type TestDir map[string]interface{}

// TestCreateFiles creates the tree described by dir below target.
func TestCreateFiles(t testing.TB, target string, dir TestDir) {
	t.Helper()
	rtest.Mkdir(t, target)

	for name, item := range dir {
		p := filepath.Join(target, name)
		switch it := item.(type) {
		case TestFile:
			rtest.WriteFile(t, p, []byte(it.Content))
		case TestSymlink:
			rtest.OK(t, os.Symlink(filepath.FromSlash(it.Target), p))
		case TestDir:
			TestCreateFiles(t, p, it)
		default:
			t.Fatalf("unknown item %T", item)
		}
	}
}
