package tunnel

import (
	"context"
	"io"
	"log/slog"
)

// Prompter supplies passwords when a hop asks for one.
type Prompter interface {
	Password(ctx context.Context, prompt string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, prompt string) (string, error)

// Password calls f.
func (f PrompterFunc) Password(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Dialer starts the local shell a session is built on.
type Dialer interface {
	Dial(ctx context.Context, cfg SessionConfig) (Terminal, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, cfg SessionConfig) (Terminal, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, cfg SessionConfig) (Terminal, error) {
	return f(ctx, cfg)
}

// Option configures a Pool or a directly connected Session.
type Option func(*options)

type options struct {
	dialer   Dialer
	prompter Prompter
	logger   *slog.Logger
	config   SessionConfig
}

func newOptions(opts []Option) *options {
	o := &options{
		dialer: PtyDialer{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		config: DefaultSessionConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDialer replaces the pty dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithPrompter sets the password source for askpw hops.
func WithPrompter(p Prompter) Option {
	return func(o *options) {
		o.prompter = p
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

// WithSessionConfig sets the session settings. Zero fields keep their
// defaults.
func WithSessionConfig(cfg SessionConfig) Option {
	return func(o *options) {
		if cfg.Shell != "" {
			o.config.Shell = cfg.Shell
		}
		if cfg.Timeout > 0 {
			o.config.Timeout = cfg.Timeout
		}
		if cfg.PromptMarker != "" {
			o.config.PromptMarker = cfg.PromptMarker
		}
		if cfg.PasswordMarker != "" {
			o.config.PasswordMarker = cfg.PasswordMarker
		}
	}
}
