package tunnel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Pool caches idle sessions per chain. Sessions are checked out with
// Connect or ConnectTo and handed back with Recycle or Release. The mutex
// only guards the idle lists; logins and commands run outside it.
type Pool struct {
	interner *Interner
	opts     *options
	logger   *slog.Logger

	mu     sync.Mutex
	idle   map[ChainKey][]*Session
	closed bool
}

// NewPool creates an empty pool.
func NewPool(opts ...Option) *Pool {
	o := newOptions(opts)
	return &Pool{
		interner: NewInterner(),
		opts:     o,
		logger:   o.logger.With("component", "tunnel.pool"),
		idle:     make(map[ChainKey][]*Session),
	}
}

// Interner returns the pool's string interner.
func (p *Pool) Interner() *Interner {
	return p.interner
}

// Parse parses a chain string with the pool's interner.
func (p *Pool) Parse(s string) (Chain, error) {
	return ParseChain(p.interner, s)
}

// SplitPath splits "<chain>:<path>" using the pool's interner.
func (p *Pool) SplitPath(s string) (Chain, string, bool) {
	return SplitPath(p.interner, s)
}

// Connect parses chain and checks out a session for it.
func (p *Pool) Connect(ctx context.Context, chain string) (*Session, error) {
	c, err := p.Parse(chain)
	if err != nil {
		return nil, err
	}
	return p.ConnectTo(ctx, c)
}

// ConnectTo returns an idle session for chain, or logs in a new one.
// Idle sessions are not health checked.
func (p *Pool) ConnectTo(ctx context.Context, chain Chain) (*Session, error) {
	if chain.interner != p.interner {
		c, err := p.Parse(chain.String())
		if err != nil {
			return nil, err
		}
		chain = c
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	key := chain.Key()
	if stack := p.idle[key]; len(stack) > 0 {
		s := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		p.idle[key] = stack[:len(stack)-1]
		p.mu.Unlock()

		p.logger.Debug("reusing session", "session", s.ID(), "chain", chain.String())
		return s, nil
	}
	p.mu.Unlock()

	p.logger.Info("connecting", "chain", chain.String())
	return connect(ctx, chain, p.opts)
}

// Recycle returns a session to the idle list for its chain. Broken or
// closed sessions are closed instead.
func (p *Pool) Recycle(s *Session) {
	if s == nil {
		return
	}
	if s.Broken() || s.pending != nil {
		p.logger.Debug("discarding session", "session", s.ID())
		s.Close()
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		s.Close()
		return
	}
	key := s.chain.Key()
	p.idle[key] = append(p.idle[key], s)
	p.mu.Unlock()
}

// Release recycles s when err is nil and closes it otherwise.
func (p *Pool) Release(s *Session, err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.Close()
		return
	}
	p.Recycle(s)
}

// Idle returns the number of idle sessions for chain.
func (p *Pool) Idle(chain Chain) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[chain.Key()])
}

// Close closes every idle session. Sessions checked out at the time are
// closed when recycled.
func (p *Pool) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = make(map[ChainKey][]*Session)
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for _, stack := range idle {
		for _, s := range stack {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
