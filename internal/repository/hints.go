package repository

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/rdiffweb/rdiffbrowse/internal/charset"
	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// parseHints reads the dotenv style hint record. Keys are converted to
// lower-case. Lines without '=' are skipped. When the rest does not parse as
// a whole, it is read line by line and invalid assignments are dropped.
func parseHints(data []byte) map[string]string {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && trimmed[0] != '#' && !bytes.ContainsRune(trimmed, '=') {
			debug.Log("ignoring hint line without '=': %q", line)
			continue
		}
		lines = append(lines, line)
	}

	parsed, err := godotenv.Parse(bytes.NewReader(bytes.Join(lines, []byte("\n"))))
	if err != nil {
		debug.Log("hint record is malformed, parsing line by line: %v", err)

		parsed = make(map[string]string)
		for _, line := range lines {
			kv, err := godotenv.Parse(bytes.NewReader(line))
			if err != nil {
				debug.Log("ignoring hint line %q: %v", line, err)
				continue
			}
			for k, v := range kv {
				parsed[k] = v
			}
		}
	}

	hints := make(map[string]string, len(parsed))
	for k, v := range parsed {
		if k == "" {
			continue
		}
		hints[strings.ToLower(k)] = v
	}
	return hints
}

func readHints(filename string) (map[string]string, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, errors.Errorf("%v is a directory", filename)
	}

	data, err := charset.ReadTextFile(filename)
	if err != nil {
		return nil, err
	}
	return parseHints(data), nil
}

// writeHints replaces the hint file with hints, one key=value per line in
// sorted key order. Values are written unquoted since the web interface
// reads them verbatim.
func writeHints(filename string, hints map[string]string) error {
	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%s\n", k, hints[k])
	}

	err := os.WriteFile(filename, buf.Bytes(), 0644)
	if err != nil {
		return errors.Wrap(err, "WriteFile")
	}
	return nil
}
