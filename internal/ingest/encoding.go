package ingest

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode detects the encoding of an extract, strips any BOM and returns NFC
// normalized UTF-8 with the name of the detected encoding. Input that is
// neither BOM-marked nor valid UTF-8 is read as Latin-1.
func Decode(data []byte) ([]byte, string, error) {
	var (
		dec  encoding.Encoding
		name string
	)
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data, name = data[len(bomUTF8):], "utf-8-bom"
	case bytes.HasPrefix(data, bomUTF16LE):
		dec, name = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), "utf-16le"
	case bytes.HasPrefix(data, bomUTF16BE):
		dec, name = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), "utf-16be"
	case !utf8.Valid(data):
		dec, name = charmap.ISO8859_1, "latin-1"
	default:
		name = "utf-8"
	}

	if dec != nil {
		decoded, _, err := transform.Bytes(dec.NewDecoder(), data)
		if err != nil {
			return nil, name, err
		}
		data = decoded
	}
	return norm.NFC.Bytes(data), name, nil
}
