package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ToUTF8 normalises an extract to UTF-8. HR exports arrive either as UTF-8
// (with or without BOM), UTF-16 with BOM, or Windows-1252 from Excel "CSV".
func ToUTF8(b []byte) []byte {
	if len(b) == 0 {
		return b
	}

	if bytes.HasPrefix(b, utf8BOM) {
		return b[len(utf8BOM):]
	}

	if len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return decoded
		}
	}

	if utf8.Valid(b) {
		return b
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		// Fallback: raw bytes are better than dropping the file
		return b
	}
	return decoded
}
