package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rdiffweb/rdiffbrowse/internal/restorer"
	rtest "github.com/rdiffweb/rdiffbrowse/internal/test"
)

// testGlobalOptions returns options for the repository at dir. Everything
// written to stdout and stderr is collected in the returned buffers.
func testGlobalOptions(dir string) (gopts GlobalOptions, stdout, stderr *bytes.Buffer) {
	stdout = bytes.NewBuffer(nil)
	stderr = bytes.NewBuffer(nil)
	gopts = GlobalOptions{
		Repo:        dir,
		Encoding:    "utf-8",
		RdiffBackup: restorer.DefaultCommand,
		MaxRestores: 2,
		stdout:      stdout,
		stderr:      stderr,
		verbosity:   1,
	}
	return gopts, stdout, stderr
}

// decodeLines decodes one JSON value per line of buf into values of type T.
func decodeLines[T any](t testing.TB, buf *bytes.Buffer) []T {
	t.Helper()

	var out []T
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var v T
		rtest.OK(t, json.Unmarshal(sc.Bytes(), &v))
		out = append(out, v)
	}
	rtest.OK(t, sc.Err())
	return out
}
