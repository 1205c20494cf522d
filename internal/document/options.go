package document

import (
	"log/slog"

	"github.com/dshills/burrow/internal/logging"
	"github.com/dshills/burrow/internal/transform"
	"github.com/dshills/burrow/internal/tunnel"
)

// Option configures how a document is opened.
type Option func(*options)

type options struct {
	pool      *tunnel.Pool
	logger    *slog.Logger
	transform *transform.Transform
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithPool sets the connection pool used for remote paths.
func WithPool(p *tunnel.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTransform skips detection and decodes the content with t.
func WithTransform(t transform.Transform) Option {
	return func(o *options) {
		o.transform = &t
	}
}
