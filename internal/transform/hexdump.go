package transform

import (
	"strings"
	"unicode"

	"github.com/dshills/burrow/internal/engine/rope"
)

// Hex dump layout.
const (
	// BytesPerRow is the number of bytes rendered on each row.
	BytesPerRow = 16

	// GroupSize is the byte index within a row after which a space
	// column is inserted.
	GroupSize = 8
)

const hexDigits = "0123456789abcdef"

// EncodeHex renders data as rows of lowercase hex digit pairs.
//
//	0011223344556677 8899aabbccddeeff
//
// Each row holds BytesPerRow bytes with one space after the first
// GroupSize, and ends with a newline.
func EncodeHex(data []byte) string {
	rows := (len(data) + BytesPerRow - 1) / BytesPerRow
	var sb strings.Builder
	sb.Grow(len(data)*2 + rows*2)

	for i, b := range data {
		col := i % BytesPerRow
		if col == GroupSize {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0f])
		if col == BytesPerRow-1 || i == len(data)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// DecodeHex parses hex dump text back into bytes. Whitespace anywhere is
// ignored. A trailing lone digit becomes the high nibble of a final byte.
// Any other character yields a *HexError with its 1-based row and column.
func DecodeHex(r rope.Rope) ([]byte, error) {
	out := make([]byte, 0, r.Len()/2)
	row, col := 1, 0
	var pending byte
	half := false

	it := r.Chunks()
	for it.Next() {
		for _, ch := range it.Chunk() {
			col++
			if ch == '\n' {
				row++
				col = 0
				continue
			}
			if unicode.IsSpace(ch) {
				continue
			}

			nibble, ok := hexValue(ch)
			if !ok {
				return nil, &HexError{Row: row, Col: col, Char: ch}
			}
			if half {
				out = append(out, pending<<4|nibble)
				half = false
			} else {
				pending = nibble
				half = true
			}
		}
	}

	if half {
		out = append(out, pending<<4)
	}
	return out, nil
}

func hexValue(ch rune) (byte, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return byte(ch - '0'), true
	case ch >= 'a' && ch <= 'f':
		return byte(ch-'a') + 10, true
	case ch >= 'A' && ch <= 'F':
		return byte(ch-'A') + 10, true
	default:
		return 0, false
	}
}
