// Package rope provides an immutable rope data structure for the text of a
// document.
//
// A rope is a balanced tree where leaf nodes hold bounded text chunks and
// internal nodes store aggregated metrics (byte count, char count, newline
// count). Every edit copies only the path from the root to the touched
// leaves; the original rope is never modified.
//
// Key features:
//   - O(log n) conversion between char, byte and line indexes
//   - Immutable edits; old ropes stay valid as cheap snapshots
//   - Chunk-level iteration so consumers (a parser, a file writer) never
//     have to materialize the whole text
//
// Basic usage:
//
//	r := rope.FromString("hello world")
//	r = r.Insert(5, ",")            // "hello, world"
//	r = r.Delete(0, 7)              // "world"
//	b := r.CharToByte(2)            // byte offset of the third char
//
// Offsets passed to edit methods are byte offsets and must fall on UTF-8
// boundaries. Char indexes count Unicode code points.
package rope
