package rope

import "strings"

// node is a rope tree node. Leaves hold chunks, internal nodes hold
// children of uniform height.
type node struct {
	height   int
	summary  TextSummary
	chunks   []chunk
	children []*node
}

func newLeaf(chunks []chunk) *node {
	n := &node{chunks: chunks}
	for _, c := range chunks {
		n.summary = n.summary.Add(c.summary)
	}
	return n
}

func newInternal(children []*node) *node {
	n := &node{height: children[0].height + 1, children: children}
	for _, child := range children {
		n.summary = n.summary.Add(child.summary)
	}
	return n
}

func (n *node) isLeaf() bool {
	return n.height == 0
}

// leavesFrom builds leaf nodes holding s.
func leavesFrom(s string) []*node {
	chunks := splitIntoChunks(s)
	if len(chunks) == 0 {
		return nil
	}

	leaves := make([]*node, 0, len(chunks)/MaxChunksPerLeaf+1)
	for i := 0; i < len(chunks); i += MaxChunksPerLeaf {
		end := min(i+MaxChunksPerLeaf, len(chunks))
		leaves = append(leaves, newLeaf(chunks[i:end:end]))
	}
	return leaves
}

// group wraps nodes into parents of the given height. The nodes must all be
// one level below height.
func group(nodes []*node, height int) []*node {
	if len(nodes) == 0 {
		return nil
	}
	if nodes[0].height == height {
		return nodes
	}

	parents := make([]*node, 0, len(nodes)/MaxChildren+1)
	for i := 0; i < len(nodes); i += MaxChildren {
		end := min(i+MaxChildren, len(nodes))
		children := make([]*node, end-i)
		copy(children, nodes[i:end])
		parents = append(parents, newInternal(children))
	}
	return parents
}

// buildRoot stacks nodes of equal height into a single root.
func buildRoot(nodes []*node) *node {
	if len(nodes) == 0 {
		return nil
	}
	for len(nodes) > 1 {
		nodes = group(nodes, nodes[0].height+1)
	}

	root := nodes[0]
	for !root.isLeaf() && len(root.children) == 1 {
		root = root.children[0]
	}
	return root
}

// splice replaces the bytes [start, end) of n with text and returns the
// nodes, of n's height, that take n's place. Text goes into the child that
// contains start; any other child overlapping the range only loses bytes.
func (n *node) splice(start, end int, text string) []*node {
	if n.isLeaf() {
		local := joinChunks(n.chunks)
		return leavesFrom(local[:start] + text + local[end:])
	}

	target := n.childIndex(start)
	out := make([]*node, 0, len(n.children)+1)
	offset := 0
	for i, child := range n.children {
		cs, ce := offset, offset+child.summary.Bytes
		offset = ce

		if i != target && (ce <= start || cs >= end) {
			out = append(out, child)
			continue
		}

		ins := ""
		if i == target {
			ins = text
		}
		ls := clamp(start-cs, 0, child.summary.Bytes)
		le := clamp(end-cs, 0, child.summary.Bytes)
		out = append(out, child.splice(ls, le, ins)...)
	}
	return group(out, n.height)
}

// childIndex returns the child containing byte offset, or the last child
// when offset is at the end of n.
func (n *node) childIndex(offset int) int {
	for i, child := range n.children {
		if offset < child.summary.Bytes {
			return i
		}
		offset -= child.summary.Bytes
	}
	return len(n.children) - 1
}

// appendRange writes the bytes [start, end) of n to sb.
func (n *node) appendRange(sb *strings.Builder, start, end int) {
	offset := 0
	if n.isLeaf() {
		for _, c := range n.chunks {
			cs, ce := offset, offset+len(c.data)
			offset = ce
			if ce <= start || cs >= end {
				continue
			}
			sb.WriteString(c.data[max(start-cs, 0):min(end-cs, len(c.data))])
		}
		return
	}

	for _, child := range n.children {
		cs, ce := offset, offset+child.summary.Bytes
		offset = ce
		if ce <= start || cs >= end {
			continue
		}
		child.appendRange(sb, start-cs, end-cs)
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
