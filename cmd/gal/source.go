package main

import (
	"bytes"
	"os"

	"golang.org/x/text/encoding/unicode"
)

// readSource loads a GAL source file, transcoding it from UTF-16 to UTF-8
// first if it opens with a UTF-16 byte-order mark (grounded on the
// teacher's own BOM-aware resource-string decoding in helper.go, which
// reaches for the same golang.org/x/text/encoding/unicode decoder).
func readSource(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !hasUTF16BOM(raw) {
		return string(raw), nil
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xFF, 0xFE}) || bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}
