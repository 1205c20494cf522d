package document

import (
	"fmt"

	"github.com/dshills/burrow/internal/tunnel"
)

// StorageKind identifies where a document lives.
type StorageKind uint8

const (
	// Scratch is an in-memory buffer that is never saved.
	Scratch StorageKind = iota

	// NewFile is a local path that did not exist (or could not be opened)
	// when the document was opened. The first write creates it.
	NewFile

	// LocalFile is an existing local file.
	LocalFile

	// Remote is a file reached through a tunnel chain.
	Remote
)

// String returns a short name for the kind.
func (k StorageKind) String() string {
	switch k {
	case Scratch:
		return "scratch"
	case NewFile:
		return "new"
	case LocalFile:
		return "local"
	case Remote:
		return "remote"
	default:
		return fmt.Sprintf("StorageKind(%d)", k)
	}
}

// Storage is a document's provenance. Path applies to every kind but
// Scratch; ReadOnly only to LocalFile; Chain only to Remote.
type Storage struct {
	Kind     StorageKind
	Path     string
	ReadOnly bool
	Chain    tunnel.Chain
}

// String describes the storage for status lines.
func (s Storage) String() string {
	switch s.Kind {
	case LocalFile:
		if s.ReadOnly {
			return "local (read-only)"
		}
		return "local"
	case Remote:
		return "remote via " + s.Chain.String()
	default:
		return s.Kind.String()
	}
}
