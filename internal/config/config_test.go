package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
[tunnel]
shell = "bash"
timeout = "5s"

[log]
level = "debug"
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Tunnel.Shell != "bash" {
		t.Errorf("Shell = %q, want bash", cfg.Tunnel.Shell)
	}
	if time.Duration(cfg.Tunnel.Timeout) != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", time.Duration(cfg.Tunnel.Timeout))
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Format = %q, want default auto", cfg.Log.Format)
	}
	if cfg.Tunnel.PromptMarker != Default().Tunnel.PromptMarker {
		t.Errorf("PromptMarker = %q, want default", cfg.Tunnel.PromptMarker)
	}
}

func TestLoadFromReaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"syntax", "[tunnel\nshell = 1", nil},
		{"unknown key", "[tunnel]\nshel = \"sh\"", nil},
		{"bad duration", "[tunnel]\ntimeout = \"soon\"", nil},
		{"negative timeout", "[tunnel]\ntimeout = \"-1s\"", ErrValidationFailed},
		{"bad level", "[log]\nlevel = \"loud\"", ErrValidationFailed},
		{"marker with space", "[tunnel]\nprompt_marker = \"a b c d\"", ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Errorf("expected *ParseError, got %T: %v", err, err)
				}
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("[log]\nlevel = = 1\n"))

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Line != 2 {
		t.Errorf("Line = %d, want 2", perr.Line)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BURROW_TUNNEL_TIMEOUT": "90s",
		"BURROW_LOG_FORMAT":     "JSON",
		"BURROW_UNRELATED":      "x",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if time.Duration(cfg.Tunnel.Timeout) != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", time.Duration(cfg.Tunnel.Timeout))
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Log.Format)
	}

	env["BURROW_TUNNEL_TIMEOUT"] = "later"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[tunnel]\nshell = \"dash\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BURROW_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tunnel.Shell != "dash" {
		t.Errorf("Shell = %q, want dash", cfg.Tunnel.Shell)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tunnel.Shell != Default().Tunnel.Shell {
		t.Errorf("Shell = %q, want default", cfg.Tunnel.Shell)
	}
}

func TestSessionConversion(t *testing.T) {
	cfg := Default()
	cfg.Tunnel.Timeout = Duration(3 * time.Second)

	s := cfg.Tunnel.Session()
	if s.Timeout != 3*time.Second || s.Shell != cfg.Tunnel.Shell || s.PromptMarker != cfg.Tunnel.PromptMarker {
		t.Errorf("Session() = %+v", s)
	}
}
