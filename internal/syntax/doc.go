// Package syntax keeps a tree-sitter parse tree aligned with a document's
// rope across edits.
//
// A Tracker is created for a file extension with a known grammar. After
// each document mutation the caller passes the new rope and an InputEdit
// describing the change; the tracker adjusts the old tree and reparses
// incrementally, reading source bytes directly from the rope's chunks.
//
// Trackers are not safe for concurrent use. A document owns one tracker and
// drives it from its single editing goroutine.
package syntax
