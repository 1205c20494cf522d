package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/burrow/internal/engine/rope"
)

// InputEdit describes one replacement in byte and point coordinates.
// Start/OldEnd are positions in the text before the edit; NewEnd is the
// end of the inserted text in the text after it.
type InputEdit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  rope.Point
	OldEndPoint rope.Point
	NewEndPoint rope.Point
}

// EditFor builds the InputEdit for replacing bytes [start, oldEnd) of
// before with newLen bytes, producing after.
func EditFor(before, after rope.Rope, start, oldEnd, newLen int) InputEdit {
	return InputEdit{
		StartByte:   start,
		OldEndByte:  oldEnd,
		NewEndByte:  start + newLen,
		StartPoint:  before.ByteToPoint(start),
		OldEndPoint: before.ByteToPoint(oldEnd),
		NewEndPoint: after.ByteToPoint(start + newLen),
	}
}

// Tracker owns a parser and the current parse tree for one document.
type Tracker struct {
	parser   *sitter.Parser
	tree     *sitter.Tree
	language string
	source   rope.Rope
}

// New parses r with the grammar registered for ext. It returns nil, false
// when no grammar is known for the extension.
func New(ext string, r rope.Rope) (*Tracker, bool) {
	g, ok := lookup(ext)
	if !ok {
		return nil, false
	}

	parser := sitter.NewParser()
	parser.SetLanguage(g.lang())

	tree, err := parser.ParseInputCtx(context.Background(), nil, input(r))
	if err != nil || tree == nil {
		parser.Close()
		return nil, false
	}

	return &Tracker{
		parser:   parser,
		tree:     tree,
		language: g.name,
		source:   r,
	}, true
}

// Edit informs the tracker that the text changed from its previous source
// to r as described by e, and reparses incrementally.
func (t *Tracker) Edit(r rope.Rope, e InputEdit) error {
	return t.EditContext(context.Background(), r, e)
}

// EditContext is Edit with a cancellable reparse. If ctx is cancelled the
// tracker falls back to a full parse so the tree never lags the rope.
func (t *Tracker) EditContext(ctx context.Context, r rope.Rope, e InputEdit) error {
	t.tree.Edit(sitter.EditInput{
		StartIndex:  uint32(e.StartByte),
		OldEndIndex: uint32(e.OldEndByte),
		NewEndIndex: uint32(e.NewEndByte),
		StartPoint:  toPoint(e.StartPoint),
		OldEndPoint: toPoint(e.OldEndPoint),
		NewEndPoint: toPoint(e.NewEndPoint),
	})

	tree, err := t.parser.ParseInputCtx(ctx, t.tree, input(r))
	if err != nil || tree == nil {
		t.parser.Reset()
		tree, err = t.parser.ParseInputCtx(context.Background(), nil, input(r))
		if err != nil {
			return fmt.Errorf("reparse %s: %w", t.language, err)
		}
	}

	old := t.tree
	t.tree = tree
	t.source = r
	old.Close()
	return nil
}

// Tree returns the current parse tree.
func (t *Tracker) Tree() *sitter.Tree {
	return t.tree
}

// Root returns the root node of the current tree.
func (t *Tracker) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Language returns the grammar name, such as "go" or "rust".
func (t *Tracker) Language() string {
	return t.language
}

// Source returns the rope the current tree was parsed from.
func (t *Tracker) Source() rope.Rope {
	return t.source
}

// NodeAt returns the smallest named node whose byte range covers
// [start, end), or nil if the range lies outside the tree.
func (t *Tracker) NodeAt(start, end int) *sitter.Node {
	if start < 0 || end < start {
		return nil
	}
	s, e := uint32(start), uint32(end)

	node := t.tree.RootNode()
	if node == nil || s < node.StartByte() || e > node.EndByte() {
		return nil
	}

	best := node
	for {
		var next *sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child != nil && child.StartByte() <= s && e <= child.EndByte() {
				next = child
				break
			}
		}
		if next == nil {
			return best
		}
		node = next
		if node.IsNamed() {
			best = node
		}
	}
}

// Text returns the source text spanned by n.
func (t *Tracker) Text(n *sitter.Node) string {
	return t.source.Slice(int(n.StartByte()), int(n.EndByte()))
}

// Close releases the parser and tree.
func (t *Tracker) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
	if t.parser != nil {
		t.parser.Close()
		t.parser = nil
	}
}

// input serves parser reads from the rope's chunks without flattening it.
func input(r rope.Rope) sitter.Input {
	return sitter.Input{
		Encoding: sitter.InputEncodingUTF8,
		Read: func(offset uint32, _ sitter.Point) []byte {
			chunk, start := r.ChunkAt(int(offset))
			if chunk == "" {
				return nil
			}
			return []byte(chunk[int(offset)-start:])
		},
	}
}

func toPoint(p rope.Point) sitter.Point {
	return sitter.Point{Row: uint32(p.Line), Column: uint32(p.Column)}
}
