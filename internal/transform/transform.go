package transform

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dshills/burrow/internal/engine/rope"
)

// Kind identifies how a document's text maps to bytes.
type Kind uint8

const (
	// PlainText stores the text verbatim.
	PlainText Kind = iota

	// HexDump stores the bytes spelled out as hex digits.
	HexDump

	// StructuredBinary stores a compressed CBOR payload rendered as YAML.
	StructuredBinary
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case PlainText:
		return "text"
	case HexDump:
		return "hex"
	case StructuredBinary:
		return "structured"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Transform is the encoding chosen for a document. Compression is only
// meaningful for StructuredBinary.
type Transform struct {
	Kind        Kind
	Compression Compression
}

// String returns a short description such as "structured+zstd".
func (t Transform) String() string {
	if t.Kind == StructuredBinary {
		return t.Kind.String() + "+" + t.Compression.String()
	}
	return t.Kind.String()
}

// Text is the plain text transform.
var Text = Transform{Kind: PlainText}

// Hex is the hex dump transform.
var Hex = Transform{Kind: HexDump}

// ReadFrom decodes raw bytes into editable text, trying PlainText, then
// StructuredBinary, then HexDump. The returned Transform records which one
// succeeded.
func ReadFrom(data []byte) (rope.Rope, Transform) {
	if utf8.Valid(data) {
		return rope.FromString(string(data)), Text
	}

	if text, compression, err := decodeStructured(data); err == nil {
		return rope.FromString(text), Transform{Kind: StructuredBinary, Compression: compression}
	}

	return rope.FromString(EncodeHex(data)), Hex
}

// ReadAs decodes raw bytes with a specific transform instead of detecting
// one. Forcing HexDump always succeeds.
func ReadAs(data []byte, t Transform) (rope.Rope, error) {
	switch t.Kind {
	case PlainText:
		if !utf8.Valid(data) {
			return rope.Rope{}, fmt.Errorf("decoding text: invalid UTF-8")
		}
		return rope.FromString(string(data)), nil
	case HexDump:
		return rope.FromString(EncodeHex(data)), nil
	case StructuredBinary:
		text, compression, err := decodeStructured(data)
		if err != nil {
			return rope.Rope{}, err
		}
		if compression != t.Compression {
			return rope.Rope{}, fmt.Errorf("decoding structured payload: found %s, want %s", compression, t.Compression)
		}
		return rope.FromString(text), nil
	default:
		return rope.Rope{}, ErrUnknownKind
	}
}

// WriteTo encodes the text of r with transform t and writes the bytes to w.
func WriteTo(w io.Writer, r rope.Rope, t Transform) error {
	switch t.Kind {
	case PlainText:
		_, err := r.WriteTo(w)
		return err
	case HexDump:
		data, err := DecodeHex(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case StructuredBinary:
		data, err := encodeStructured(r.String(), t.Compression)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return ErrUnknownKind
	}
}

// Encode is WriteTo into a byte slice.
func Encode(r rope.Rope, t Transform) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(r.Len())
	if err := WriteTo(&buf, r, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
