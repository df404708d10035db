package charset

import (
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StripBOM removes a leading byte order mark. UTF-16 input with a BOM is
// converted to UTF-8, everything else is returned unchanged.
func StripBOM(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	return out, err
}

// ReadTextFile reads a small configuration file, like the hint file written
// by the web interface, and returns its content without a BOM.
func ReadTextFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return StripBOM(data)
}
