package tunnel

import "sync"

// Str is a compact handle to a string stored in an Interner. Handles from
// the same Interner compare equal iff their strings are equal.
type Str struct {
	start uint32
	len   uint32
}

// Len returns the byte length of the interned string.
func (s Str) Len() int {
	return int(s.len)
}

// Interner is an append-only string pool. It is safe for concurrent use.
type Interner struct {
	mu    sync.RWMutex
	pool  []byte
	index map[string]Str
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{index: make(map[string]Str)}
}

// Intern returns the handle for s, storing it on first use.
func (in *Interner) Intern(s string) Str {
	in.mu.RLock()
	h, ok := in.index[s]
	in.mu.RUnlock()
	if ok {
		return h
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if h, ok := in.index[s]; ok {
		return h
	}
	h = Str{start: uint32(len(in.pool)), len: uint32(len(s))}
	in.pool = append(in.pool, s...)
	in.index[s] = h
	return h
}

// Lookup returns the string for a handle.
func (in *Interner) Lookup(h Str) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	end := int(h.start) + int(h.len)
	if end > len(in.pool) {
		return ""
	}
	return string(in.pool[h.start:end])
}

// Size returns the number of bytes held by the pool.
func (in *Interner) Size() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.pool)
}
