package rope

import (
	"strings"
	"unicode/utf8"
)

// Point represents a line/column position.
// Line and Column are both 0-indexed; Column counts bytes from the line start.
type Point struct {
	Line   int
	Column int
}

// TextSummary holds aggregated metrics for a text span.
type TextSummary struct {
	// Bytes is the UTF-8 byte count.
	Bytes int

	// Chars is the Unicode code point count.
	Chars int

	// Lines is the number of newline characters.
	Lines int
}

// Add combines two summaries.
func (s TextSummary) Add(other TextSummary) TextSummary {
	return TextSummary{
		Bytes: s.Bytes + other.Bytes,
		Chars: s.Chars + other.Chars,
		Lines: s.Lines + other.Lines,
	}
}

// ComputeSummary calculates metrics for a string.
func ComputeSummary(s string) TextSummary {
	return TextSummary{
		Bytes: len(s),
		Chars: utf8.RuneCountInString(s),
		Lines: strings.Count(s, "\n"),
	}
}

func byteMetric(s TextSummary) int { return s.Bytes }
func charMetric(s TextSummary) int { return s.Chars }
func lineMetric(s TextSummary) int { return s.Lines }

// byteOfChar returns the byte offset of the n-th code point in s.
func byteOfChar(s string, n int) int {
	if n <= 0 {
		return 0
	}
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

// nthNewline returns the byte position of the n-th newline in s (1-indexed),
// or -1.
func nthNewline(s string, n int) int {
	pos := 0
	for n > 0 {
		i := strings.IndexByte(s[pos:], '\n')
		if i < 0 {
			return -1
		}
		pos += i
		n--
		if n == 0 {
			return pos
		}
		pos++
	}
	return -1
}
