// Package charset converts raw filenames stored in a repository to text for
// display. Repositories may have been written on hosts using a legacy
// encoding, so the encoding is configurable per repository.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/rdiffweb/rdiffbrowse/internal/debug"
	"github.com/rdiffweb/rdiffbrowse/internal/errors"
)

// Default is the encoding used when nothing else is configured.
const Default = "utf-8"

// Encoding is a named text encoding.
type Encoding struct {
	name string
	enc  encoding.Encoding
}

// UTF8 is the UTF-8 encoding.
var UTF8 = &Encoding{name: "utf-8", enc: unicode.UTF8}

// ErrUnknownEncoding is returned by Lookup for names that do not denote a
// supported encoding.
var ErrUnknownEncoding = errors.New("unknown encoding")

// pythonAliases maps codec names written by Python programs, after
// normalize, to names the registries know.
var pythonAliases = map[string]string{
	"ascii":      "us-ascii",
	"latin":      "iso-8859-1",
	"latin-1":    "iso-8859-1",
	"iso8859-1":  "iso-8859-1",
	"latin9":     "iso-8859-15",
	"iso8859-15": "iso-8859-15",
}

// normalize turns names like "UTF_8" or " Latin_1" into the form used by the
// IANA and WHATWG registries.
func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "-")
	if alias, ok := pythonAliases[name]; ok {
		return alias
	}
	return name
}

// ianaLookup resolves name with the IANA registry. The canonical name is the
// preferred MIME name where one exists, e.g. "iso-8859-1".
func ianaLookup(name string) (*Encoding, bool) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, false
	}

	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil {
		canonical, err = ianaindex.IANA.Name(enc)
	}
	if err != nil {
		canonical = name
	}
	return &Encoding{name: strings.ToLower(canonical), enc: enc}, true
}

// Lookup returns the encoding with the given name. IANA names and aliases
// are tried first, so "latin1" is ISO-8859-1 and not windows-1252 as in
// browsers. WHATWG labels and common Python codec names are accepted as
// well.
func Lookup(name string) (*Encoding, error) {
	n := normalize(name)
	if n == "" {
		return nil, errors.Wrap(ErrUnknownEncoding, "empty name")
	}

	if n == "utf-8" || n == "utf8" {
		return UTF8, nil
	}

	// official IANA names may contain underscores
	for _, candidate := range []string{strings.TrimSpace(name), n} {
		if enc, ok := ianaLookup(candidate); ok {
			return enc, nil
		}
	}

	if enc, err := htmlindex.Get(n); err == nil && enc != nil {
		canonical, err := htmlindex.Name(enc)
		if err != nil {
			canonical = n
		}
		return &Encoding{name: strings.ToLower(canonical), enc: enc}, nil
	}

	return nil, errors.Wrapf(ErrUnknownEncoding, "%q", name)
}

// Name returns the canonical, lower-case name of the encoding.
func (e *Encoding) Name() string {
	return e.name
}

func (e *Encoding) String() string {
	return e.name
}

// Decode converts raw to a string. Sequences which are invalid in the
// encoding are replaced with U+FFFD, Decode never fails.
func (e *Encoding) Decode(raw []byte) string {
	if e == nil || e.enc == nil {
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	}

	out, err := e.enc.NewDecoder().Bytes(raw)
	if err != nil {
		debug.Log("decoding %q as %v failed: %v", raw, e.name, err)
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	}
	return strings.ToValidUTF8(string(out), string(utf8.RuneError))
}

// Encode converts text to the encoding. Runes which cannot be represented
// are replaced by the encoding's replacement byte.
func (e *Encoding) Encode(text string) []byte {
	if e == nil || e.enc == nil || e == UTF8 {
		return []byte(text)
	}

	out, err := encoding.ReplaceUnsupported(e.enc.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		debug.Log("encoding %q as %v failed: %v", text, e.name, err)
		return []byte(text)
	}
	return out
}

// FromLocale derives the encoding name from locale environment variables
// such as LC_ALL=fr_CA.ISO-8859-1. getenv is usually os.Getenv. Default is
// returned if no variable names a known encoding.
func FromLocale(getenv func(string) string) string {
	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := getenv(name)
		if v == "" {
			continue
		}

		_, codeset, ok := strings.Cut(v, ".")
		if !ok {
			// the first variable that is set wins, even without a codeset
			break
		}
		codeset, _, _ = strings.Cut(codeset, "@")

		enc, err := Lookup(codeset)
		if err != nil {
			debug.Log("ignoring codeset %q from %v: %v", codeset, name, err)
			break
		}
		return enc.Name()
	}

	return Default
}
