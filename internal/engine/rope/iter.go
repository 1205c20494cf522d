package rope

// ChunkIterator iterates over the chunks of a rope in order.
type ChunkIterator struct {
	stack  []*node
	leaf   *node
	idx    int
	cur    string
	offset int
}

// Chunks returns an iterator over the rope's chunks.
//
//	it := r.Chunks()
//	for it.Next() {
//	    use(it.Chunk(), it.Offset())
//	}
func (r Rope) Chunks() *ChunkIterator {
	it := &ChunkIterator{}
	if r.root != nil {
		it.stack = []*node{r.root}
	}
	return it
}

// Next advances to the next chunk. Returns false when done.
func (it *ChunkIterator) Next() bool {
	it.offset += len(it.cur)
	it.cur = ""

	for {
		if it.leaf != nil && it.idx < len(it.leaf.chunks) {
			it.cur = it.leaf.chunks[it.idx].data
			it.idx++
			return true
		}
		if len(it.stack) == 0 {
			return false
		}

		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if n.isLeaf() {
			it.leaf, it.idx = n, 0
			continue
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			it.stack = append(it.stack, n.children[i])
		}
	}
}

// Chunk returns the current chunk's text.
func (it *ChunkIterator) Chunk() string {
	return it.cur
}

// Offset returns the byte offset at which the current chunk starts.
func (it *ChunkIterator) Offset() int {
	return it.offset
}
