package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/burrow/internal/tunnel"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BURROW_"

// Config holds all settings.
type Config struct {
	Tunnel TunnelConfig `toml:"tunnel"`
	Log    LogConfig    `toml:"log"`
}

// TunnelConfig controls remote sessions.
type TunnelConfig struct {
	// Shell is the local shell each session starts from.
	Shell string `toml:"shell"`

	// Timeout bounds each wait for a shell prompt.
	Timeout Duration `toml:"timeout"`

	// PromptMarker is the PS1 used to detect command completion.
	PromptMarker string `toml:"prompt_marker"`

	// PasswordMarker is the prompt sudo prints when asking for a password.
	PasswordMarker string `toml:"password_marker"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is text, json, or auto (text on a terminal, json otherwise).
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	session := tunnel.DefaultSessionConfig()
	return Config{
		Tunnel: TunnelConfig{
			Shell:          session.Shell,
			Timeout:        Duration(session.Timeout),
			PromptMarker:   session.PromptMarker,
			PasswordMarker: session.PasswordMarker,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// DefaultPath returns the user configuration file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "burrow", "config.toml")
}

// Load builds a Config from defaults, the file at path and the process
// environment. An empty path means DefaultPath. A missing file is skipped.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(&cfg, path, bytes.NewReader(data)); err != nil {
				return Config{}, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromReader overlays TOML from r onto the defaults and validates the
// result. The environment is not consulted.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	if err := decode(&cfg, "<reader>", r); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(cfg *Config, source string, r io.Reader) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}

		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			perr.Message = "unknown setting: " + strings.TrimSpace(serr.String())
		}
		return perr
	}
	return nil
}

// envSetters maps environment variables to the settings they override.
var envSetters = map[string]func(*Config, string) error{
	"TUNNEL_SHELL": func(c *Config, v string) error {
		c.Tunnel.Shell = v
		return nil
	},
	"TUNNEL_TIMEOUT": func(c *Config, v string) error {
		return c.Tunnel.Timeout.UnmarshalText([]byte(v))
	},
	"TUNNEL_PROMPT_MARKER": func(c *Config, v string) error {
		c.Tunnel.PromptMarker = v
		return nil
	},
	"TUNNEL_PASSWORD_MARKER": func(c *Config, v string) error {
		c.Tunnel.PasswordMarker = v
		return nil
	},
	"LOG_LEVEL": func(c *Config, v string) error {
		c.Log.Level = strings.ToLower(v)
		return nil
	},
	"LOG_FORMAT": func(c *Config, v string) error {
		c.Log.Format = strings.ToLower(v)
		return nil
	},
}

// ApplyEnv overrides settings from BURROW_* variables found by lookup.
// Empty values are treated as set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for name, set := range envSetters {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(c, v); err != nil {
			return fmt.Errorf("environment %s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

var markerPattern = regexp.MustCompile(`^[A-Za-z0-9_]{4,}$`)

// Validate checks every setting.
func (c Config) Validate() error {
	var errs []error
	invalid := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if strings.TrimSpace(c.Tunnel.Shell) == "" {
		invalid("tunnel.shell", "must not be empty", c.Tunnel.Shell)
	}
	if c.Tunnel.Timeout <= 0 {
		invalid("tunnel.timeout", "must be positive", time.Duration(c.Tunnel.Timeout))
	}
	if !markerPattern.MatchString(c.Tunnel.PromptMarker) {
		invalid("tunnel.prompt_marker", "must be at least 4 letters, digits or underscores", c.Tunnel.PromptMarker)
	}
	if !markerPattern.MatchString(c.Tunnel.PasswordMarker) {
		invalid("tunnel.password_marker", "must be at least 4 letters, digits or underscores", c.Tunnel.PasswordMarker)
	}
	if c.Tunnel.PromptMarker != "" && c.Tunnel.PromptMarker == c.Tunnel.PasswordMarker {
		invalid("tunnel.password_marker", "must differ from prompt_marker", c.Tunnel.PasswordMarker)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		invalid("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json", "auto":
	default:
		invalid("log.format", "must be text, json or auto", c.Log.Format)
	}

	return errors.Join(errs...)
}

// Session converts the tunnel settings for tunnel.WithSessionConfig.
func (t TunnelConfig) Session() tunnel.SessionConfig {
	return tunnel.SessionConfig{
		Shell:          t.Shell,
		Timeout:        time.Duration(t.Timeout),
		PromptMarker:   t.PromptMarker,
		PasswordMarker: t.PasswordMarker,
	}
}
