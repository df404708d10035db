// Package quote implements the filename quoting used by rdiff-backup. Bytes
// that cannot be stored on the backup target are replaced by the quoting
// character ';' followed by the byte value as three decimal digits.
package quote

import (
	"bytes"
	"regexp"
	"strconv"
)

// Char is the quoting character. It is always quoted itself.
const Char = ';'

// unsafe lists the printable bytes quoted in addition to control bytes. This
// matches what rdiff-backup escapes for targets that cannot store them.
const unsafe = `;:\"*?<>|`

var token = regexp.MustCompile(`;[0-9]{3}`)

func needsQuote(b byte) bool {
	return b < 0x20 || b == 0x7f || bytes.IndexByte([]byte(unsafe), b) >= 0
}

// Quote returns name with every byte that needs escaping replaced by ";NNN".
func Quote(name []byte) []byte {
	buf := make([]byte, 0, len(name))
	for _, b := range name {
		if !needsQuote(b) {
			buf = append(buf, b)
			continue
		}
		buf = append(buf, Char)
		buf = append(buf, []byte(padded(b))...)
	}
	return buf
}

func padded(b byte) string {
	s := strconv.Itoa(int(b))
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// Unquote reverses Quote. Tokens that do not denote a byte value (e.g.
// ";999") are left as they are.
func Unquote(raw []byte) []byte {
	if bytes.IndexByte(raw, Char) < 0 {
		return raw
	}

	return token.ReplaceAllFunc(raw, func(m []byte) []byte {
		v, err := strconv.Atoi(string(m[1:]))
		if err != nil || v > 255 {
			return m
		}
		return []byte{byte(v)}
	})
}

// UnquoteString is like Unquote, for strings.
func UnquoteString(raw string) string {
	return string(Unquote([]byte(raw)))
}
