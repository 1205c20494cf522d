// Package document implements the editable buffer.
//
// A Document couples a rope of text with where that text came from
// (scratch, a new file, an existing local file, or a remote file behind a
// tunnel chain), the content transform that produced it, and an optional
// syntax tracker. Every edit updates the rope and the tracker in one call,
// so the parse tree is never observed out of step with the text.
//
// Documents are not safe for concurrent use.
package document
