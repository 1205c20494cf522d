package document

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/dshills/burrow/internal/syntax"
)

// Range is a half-open span of char indices.
type Range struct {
	Start int
	End   int
}

// normalize orders the range and clamps it to [0, chars].
func (r Range) normalize(chars int) Range {
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	r.Start = min(max(r.Start, 0), chars)
	r.End = min(max(r.End, 0), chars)
	return r
}

// apply replaces bytes [start, end) with text and keeps the syntax tree in
// step with the rope.
func (d *Document) apply(start, end int, text string) {
	before := d.text
	d.text = before.Replace(start, end, text)
	d.modified = true

	if d.tracker == nil {
		return
	}
	e := syntax.EditFor(before, d.text, start, end, len(text))
	if err := d.tracker.Edit(d.text, e); err != nil {
		d.logger.Warn("syntax update failed", "error", err)
	}
}

func (d *Document) byteRange(r Range) (int, int) {
	r = r.normalize(d.text.CharCount())
	return d.text.CharToByte(r.Start), d.text.CharToByte(r.End)
}

// InsertText inserts text before the char at index char.
func (d *Document) InsertText(char int, text string) {
	if text == "" {
		return
	}
	offset := d.text.CharToByte(max(char, 0))
	d.apply(offset, offset, text)
}

// InsertTextAt inserts text at the start of r.
func (d *Document) InsertTextAt(r Range, text string) {
	r = r.normalize(d.text.CharCount())
	d.InsertText(r.Start, text)
}

// ReplaceTextAt replaces the chars covered by r with text.
func (d *Document) ReplaceTextAt(r Range, text string) {
	start, end := d.byteRange(r)
	if start == end && text == "" {
		return
	}
	d.apply(start, end, text)
}

// OverwriteChar replaces the char at index char with c. At the end of the
// document c is appended instead.
func (d *Document) OverwriteChar(char int, c rune) {
	chars := d.text.CharCount()
	char = min(max(char, 0), chars)
	end := char
	if char < chars {
		end++
	}
	d.ReplaceTextAt(Range{Start: char, End: end}, string(c))
}

// DeleteRange removes the chars covered by r.
func (d *Document) DeleteRange(r Range) {
	d.ReplaceTextAt(r, "")
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int {
	return d.text.LineCount()
}

// CharToLine returns the line containing the char index.
func (d *Document) CharToLine(char int) int {
	return d.text.CharToLine(char)
}

// LineToChar returns the char index at which line starts.
func (d *Document) LineToChar(line int) int {
	return d.text.LineToChar(line)
}

// NextGraphemeBoundary returns the char index of the first grapheme
// cluster boundary after char. A "\r\n" pair counts as one cluster.
func (d *Document) NextGraphemeBoundary(char int) int {
	chars := d.text.CharCount()
	if char >= chars {
		return chars
	}
	char = max(char, 0)

	line := d.text.CharToLine(char)
	pos := d.text.LineToChar(line)
	for _, n := range d.clusters(line) {
		pos += n
		if pos > char {
			return pos
		}
	}
	return char + 1
}

// PrevGraphemeBoundary returns the char index of the last grapheme cluster
// boundary before char.
func (d *Document) PrevGraphemeBoundary(char int) int {
	if char <= 0 {
		return 0
	}
	char = min(char, d.text.CharCount())

	line := d.text.CharToLine(char - 1)
	pos := d.text.LineToChar(line)
	prev := pos
	for _, n := range d.clusters(line) {
		if pos+n >= char {
			return pos
		}
		pos += n
		prev = pos
	}
	return prev
}

// clusters returns the char length of each grapheme cluster on line,
// including its line break.
func (d *Document) clusters(line int) []int {
	s := d.text.Slice(d.text.LineToByte(line), d.text.LineToByte(line+1))

	var sizes []int
	state := -1
	for s != "" {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		sizes = append(sizes, utf8.RuneCountInString(cluster))
	}
	return sizes
}
