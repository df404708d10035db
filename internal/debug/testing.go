package debug

import (
	"io"
	"log"
	"testing"
)

// TestLogTo sends all debug messages to w until the test ends.
func TestLogTo(t testing.TB, w io.Writer) {
	old := cfg
	cfg = &config{logger: log.New(w, "", 0), stderr: io.Discard}
	t.Cleanup(func() {
		cfg = old
	})
}
