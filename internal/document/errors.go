package document

import "errors"

// Errors returned by document operations.
var (
	// ErrReadOnly is returned when writing a file opened without write
	// permission.
	ErrReadOnly = errors.New("document is read-only")

	// ErrNoPool is returned when opening or writing a remote path without a
	// connection pool.
	ErrNoPool = errors.New("remote path requires a connection pool")

	// ErrClosed is returned for operations on a closed document.
	ErrClosed = errors.New("document is closed")
)
