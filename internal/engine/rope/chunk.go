package rope

import (
	"strings"
	"unicode/utf8"
)

// Size constants control the shape of the tree.
const (
	// MaxChunkSize is the maximum bytes per chunk.
	MaxChunkSize = 256

	// MaxChunksPerLeaf is the maximum number of chunks in a leaf node.
	MaxChunksPerLeaf = 8

	// MaxChildren is the maximum fan-out of an internal node.
	MaxChildren = 8
)

// chunk is a bounded, immutable piece of text stored in a leaf.
type chunk struct {
	data    string
	summary TextSummary
}

func newChunk(s string) chunk {
	return chunk{data: s, summary: ComputeSummary(s)}
}

// splitIntoChunks splits a string into chunks of at most MaxChunkSize bytes,
// never cutting through a UTF-8 sequence.
func splitIntoChunks(s string) []chunk {
	if len(s) == 0 {
		return nil
	}

	chunks := make([]chunk, 0, len(s)/MaxChunkSize+1)
	for len(s) > MaxChunkSize {
		cut := utf8Boundary(s, MaxChunkSize)
		chunks = append(chunks, newChunk(s[:cut]))
		s = s[cut:]
	}
	return append(chunks, newChunk(s))
}

// utf8Boundary backs off from target to the nearest rune start, preferring a
// cut just after a newline within the last few bytes.
func utf8Boundary(s string, target int) int {
	if target >= len(s) {
		return len(s)
	}
	if i := strings.LastIndexByte(s[target-16:target], '\n'); i >= 0 {
		return target - 16 + i + 1
	}
	cut := target
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		// Not valid UTF-8 around the target; cut on the byte.
		return target
	}
	return cut
}

// joinChunks concatenates the text of a leaf.
func joinChunks(chunks []chunk) string {
	if len(chunks) == 1 {
		return chunks[0].data
	}
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.data)
	}
	return sb.String()
}
