package transform

import (
	"errors"
	"fmt"
)

// Errors returned by transform operations.
var (
	// ErrNotStructured indicates the bytes do not start with a known
	// compression header.
	ErrNotStructured = errors.New("not a compressed structured payload")

	// ErrUnsupportedValue indicates a decoded payload value that has no
	// text representation.
	ErrUnsupportedValue = errors.New("unsupported structured value")

	// ErrUnknownKind indicates a Transform with an invalid kind.
	ErrUnknownKind = errors.New("unknown transform kind")
)

// HexError reports a character in hex dump text that is neither a hex
// digit nor whitespace. Row and Col are 1-based; Col counts characters.
type HexError struct {
	Row  int
	Col  int
	Char rune
}

func (e *HexError) Error() string {
	return fmt.Sprintf("invalid hex digit %q at row %d, column %d", e.Char, e.Row, e.Col)
}
