// Package debug writes a trace of what the program does. It is disabled
// unless one of these environment variables is set:
//
//	DEBUG_LOG=<file>       append all messages to file
//	DEBUG_FUNCS=<pattern>  print messages of matching functions to stderr
//	DEBUG_FILES=<pattern>  print messages of matching files to stderr
//
// Patterns are comma separated path.Match globs, a leading "-" disables
// matching messages again and "all" matches everything. File patterns
// match "dir/file.go:line", a pattern without a directory or line gets
// "*/" and ":*" added.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

type rule struct {
	pattern string
	enable  bool
}

// filter decides which messages are printed to stderr. The last matching
// rule wins.
type filter []rule

func parseFilter(s string, pad func(string) string) (filter, error) {
	var f filter
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		r := rule{enable: true}
		switch item[0] {
		case '-':
			r.enable = false
			item = item[1:]
		case '+':
			item = item[1:]
		}
		r.pattern = pad(item)

		if _, err := path.Match(r.pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", r.pattern, err)
		}
		f = append(f, r)
	}
	return f, nil
}

func (f filter) match(key string) bool {
	result := false
	for _, r := range f {
		if r.pattern == "all" {
			result = r.enable
			continue
		}
		if ok, _ := path.Match(r.pattern, key); ok {
			result = r.enable
		}
	}
	return result
}

func padFile(s string) string {
	if s == "all" {
		return s
	}
	if !strings.Contains(s, "/") {
		s = "*/" + s
	}
	if !strings.Contains(s, ":") {
		s += ":*"
	}
	return s
}

type config struct {
	logger *log.Logger
	stderr io.Writer
	funcs  filter
	files  filter
}

func (c *config) enabled() bool {
	return c.logger != nil || len(c.funcs) > 0 || len(c.files) > 0
}

func newConfig(getenv func(string) string) (*config, error) {
	c := &config{stderr: os.Stderr}

	var err error
	c.funcs, err = parseFilter(getenv("DEBUG_FUNCS"), func(s string) string { return s })
	if err != nil {
		return nil, err
	}
	c.files, err = parseFilter(getenv("DEBUG_FILES"), padFile)
	if err != nil {
		return nil, err
	}

	if name := getenv("DEBUG_LOG"); name != "" {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("unable to open debug log file: %w", err)
		}
		c.logger = log.New(f, "", log.LstdFlags)
	}

	return c, nil
}

// cfg is set up during package initialization, before any init function
// which might log runs.
var cfg = setup()

func setup() *config {
	c, err := newConfig(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "debug: %v\n", err)
		os.Exit(2)
	}
	if c.enabled() {
		fmt.Fprintf(os.Stderr, "debug enabled\n")
	}
	return c
}

// Enabled reports whether debug logging is active.
func Enabled() bool {
	return cfg.enabled()
}

func caller() (fn, pos string) {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "?", "?:0"
	}

	if f := runtime.FuncForPC(pc); f != nil {
		fn = path.Base(f.Name())
	}
	pos = fmt.Sprintf("%s/%s:%d", filepath.Base(filepath.Dir(file)), filepath.Base(file), line)
	return fn, pos
}

// Log prints a message to the debug log (if debug is enabled). Arguments
// of type []byte, usually raw file names, are printed as quoted strings.
func Log(f string, args ...interface{}) {
	c := cfg
	if !c.enabled() {
		return
	}

	fn, pos := caller()

	for i, arg := range args {
		if b, ok := arg.([]byte); ok {
			args[i] = strconv.Quote(string(b))
		}
	}

	msg := fmt.Sprintf(f, args...)
	line := fmt.Sprintf("%s\t%s\t%s", pos, fn, strings.TrimSuffix(msg, "\n"))

	if c.logger != nil {
		c.logger.Println(line)
	}
	if c.files.match(pos) || c.funcs.match(fn) {
		_, _ = fmt.Fprintln(c.stderr, line)
	}
}

// DumpStacktrace returns the stack traces of all goroutines.
func DumpStacktrace() string {
	buf := make([]byte, 128*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}
