package loader

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readSource reads path and decodes it to a UTF-8 string, detecting a
// UTF-8/UTF-16 LE/UTF-16 BE byte-order mark (spec §6 "UTF-8 text"; the
// BOM handling generalizes the text to whatever a source editor actually
// wrote). A file without a BOM is taken as UTF-8 when it is valid UTF-8;
// otherwise each byte is decoded as one rune (Latin-1).
//
// Grounded on the teacher's internal/interp/encoding.go
// detectAndDecodeFile/decodeUTF16.
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loader: %w", err)
	}

	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:]), nil
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return decodeUTF16(data, unicode.LittleEndian)
	}
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return decodeUTF16(data, unicode.BigEndian)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

func decodeUTF16(data []byte, endianness unicode.Endianness) (string, error) {
	decoder := unicode.UTF16(endianness, unicode.UseBOM).NewDecoder()
	utf8Data, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("loader: decoding UTF-16: %w", err)
	}
	if len(utf8Data) >= 3 && utf8Data[0] == 0xEF && utf8Data[1] == 0xBB && utf8Data[2] == 0xBF {
		utf8Data = utf8Data[3:]
	}
	result := bytes.TrimPrefix(utf8Data, []byte{0xEF, 0xBB, 0xBF})
	return string(result), nil
}
