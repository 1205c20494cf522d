package rope

import (
	"io"
	"strings"
	"unicode/utf8"
)

// Rope is an immutable rope data structure for efficient text storage.
// Operations return new Rope values; the original is never modified.
// The zero value is an empty rope.
type Rope struct {
	root *node
}

// New creates an empty rope.
func New() Rope {
	return Rope{}
}

// FromString creates a rope from a string.
func FromString(s string) Rope {
	return Rope{root: buildRoot(leavesFrom(s))}
}

// FromReader creates a rope from an io.Reader.
func FromReader(r io.Reader) (Rope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Rope{}, err
	}
	return FromString(string(data)), nil
}

// Summary returns the aggregated metrics for the entire rope.
func (r Rope) Summary() TextSummary {
	if r.root == nil {
		return TextSummary{}
	}
	return r.root.summary
}

// Len returns the total byte length.
func (r Rope) Len() int {
	return r.Summary().Bytes
}

// CharCount returns the number of code points.
func (r Rope) CharCount() int {
	return r.Summary().Chars
}

// LineCount returns the number of lines (newlines + 1).
func (r Rope) LineCount() int {
	return r.Summary().Lines + 1
}

// IsEmpty returns true if the rope contains no text.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// Height returns the height of the tree. Useful for testing balance.
func (r Rope) Height() int {
	if r.root == nil {
		return 0
	}
	return r.root.height + 1
}

// String returns the full text as a string.
// Use sparingly for large ropes.
func (r Rope) String() string {
	return r.Slice(0, r.Len())
}

// Slice returns the text in the byte range [start, end).
func (r Rope) Slice(start, end int) string {
	start = clamp(start, 0, r.Len())
	end = clamp(end, 0, r.Len())
	if r.root == nil || start >= end {
		return ""
	}

	var sb strings.Builder
	sb.Grow(end - start)
	r.root.appendRange(&sb, start, end)
	return sb.String()
}

// WriteTo writes the rope chunk by chunk to w.
func (r Rope) WriteTo(w io.Writer) (int64, error) {
	var total int64
	it := r.Chunks()
	for it.Next() {
		n, err := io.WriteString(w, it.Chunk())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Edit Operations

// Insert inserts text at the given byte offset.
func (r Rope) Insert(offset int, text string) Rope {
	return r.Replace(offset, offset, text)
}

// Delete removes text in the byte range [start, end).
func (r Rope) Delete(start, end int) Rope {
	return r.Replace(start, end, "")
}

// Replace replaces the byte range [start, end) with text.
// Offsets are clamped to the rope.
func (r Rope) Replace(start, end int, text string) Rope {
	start = clamp(start, 0, r.Len())
	end = clamp(end, start, r.Len())
	if start == end && len(text) == 0 {
		return r
	}
	if r.root == nil {
		return FromString(text)
	}
	return Rope{root: buildRoot(r.root.splice(start, end, text))}
}

// Index Conversion

// seek descends to the chunk in which metric first exceeds target. It returns
// the chunk and the summary of all text before it.
func (r Rope) seek(target int, metric func(TextSummary) int) (chunk, TextSummary, bool) {
	if r.root == nil || target < 0 || target >= metric(r.root.summary) {
		return chunk{}, TextSummary{}, false
	}

	var base TextSummary
	n := r.root
	for !n.isLeaf() {
		next := n.children[len(n.children)-1]
		for _, child := range n.children {
			if target < metric(base.Add(child.summary)) {
				next = child
				break
			}
			base = base.Add(child.summary)
		}
		n = next
	}

	for _, c := range n.chunks {
		if target < metric(base.Add(c.summary)) {
			return c, base, true
		}
		base = base.Add(c.summary)
	}
	return chunk{}, base, false
}

// CharToByte converts a char index to a byte offset.
func (r Rope) CharToByte(char int) int {
	c, base, ok := r.seek(char, charMetric)
	if !ok {
		if char <= 0 {
			return 0
		}
		return r.Len()
	}
	return base.Bytes + byteOfChar(c.data, char-base.Chars)
}

// ByteToChar converts a byte offset to a char index.
func (r Rope) ByteToChar(offset int) int {
	c, base, ok := r.seek(offset, byteMetric)
	if !ok {
		if offset <= 0 {
			return 0
		}
		return r.CharCount()
	}
	return base.Chars + utf8.RuneCountInString(c.data[:offset-base.Bytes])
}

// ByteToLine returns the 0-indexed line containing the byte offset.
func (r Rope) ByteToLine(offset int) int {
	c, base, ok := r.seek(offset, byteMetric)
	if !ok {
		if offset <= 0 {
			return 0
		}
		return r.Summary().Lines
	}
	return base.Lines + strings.Count(c.data[:offset-base.Bytes], "\n")
}

// LineToByte returns the byte offset at which line starts. Lines past the
// end map to the rope length.
func (r Rope) LineToByte(line int) int {
	if line <= 0 {
		return 0
	}
	c, base, ok := r.seek(line-1, lineMetric)
	if !ok {
		return r.Len()
	}
	return base.Bytes + nthNewline(c.data, line-base.Lines) + 1
}

// CharToLine returns the line containing the char index.
func (r Rope) CharToLine(char int) int {
	return r.ByteToLine(r.CharToByte(char))
}

// LineToChar returns the char index at which line starts.
func (r Rope) LineToChar(line int) int {
	return r.ByteToChar(r.LineToByte(line))
}

// ByteToPoint converts a byte offset to a line/column position.
func (r Rope) ByteToPoint(offset int) Point {
	offset = clamp(offset, 0, r.Len())
	line := r.ByteToLine(offset)
	return Point{Line: line, Column: offset - r.LineToByte(line)}
}

// LineText returns the text of the given line without its newline.
func (r Rope) LineText(line int) string {
	start := r.LineToByte(line)
	end := r.LineToByte(line + 1)
	if line+1 < r.LineCount() {
		end--
	}
	return r.Slice(start, end)
}

// ChunkAt returns the chunk containing the byte offset and the offset at
// which that chunk starts. It returns "" past the end of the rope.
func (r Rope) ChunkAt(offset int) (string, int) {
	c, base, ok := r.seek(offset, byteMetric)
	if !ok {
		return "", r.Len()
	}
	return c.data, base.Bytes
}

// Equals returns true if two ropes contain the same text.
func (r Rope) Equals(other Rope) bool {
	if r.Len() != other.Len() {
		return false
	}
	return r.String() == other.String()
}
