package tunnel

import (
	"context"
	"sync"

	"github.com/dshills/burrow/internal/tunnel/tunneltest"
)

// fakeDialer hands out scripted shells and counts logins.
type fakeDialer struct {
	mu     sync.Mutex
	dials  int
	shells []*tunneltest.Shell
	setup  func(*tunneltest.Shell)
}

func (d *fakeDialer) Dial(ctx context.Context, cfg SessionConfig) (Terminal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := tunneltest.NewShell(cfg.PromptMarker, cfg.PasswordMarker)
	if d.setup != nil {
		d.setup(sh)
	}

	d.mu.Lock()
	d.dials++
	d.shells = append(d.shells, sh)
	d.mu.Unlock()
	return sh, nil
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) shell(i int) *tunneltest.Shell {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shells[i]
}
