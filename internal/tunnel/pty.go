package tunnel

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
)

// PtyDialer spawns the configured shell on a new pseudo-terminal.
type PtyDialer struct {
	// Cols is the terminal width. Zero means 512, wide enough that shells
	// do not wrap command lines.
	Cols uint16
}

// Dial starts cfg.Shell with the prompt marker as PS1.
func (d PtyDialer) Dial(ctx context.Context, cfg SessionConfig) (Terminal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shell, err := exec.LookPath(cfg.Shell)
	if err != nil {
		return nil, fmt.Errorf("shell %q: %w", cfg.Shell, err)
	}

	cmd := exec.Command(shell)
	cmd.Env = append(shellEnv(), "PS1="+cfg.PromptMarker, "TERM=dumb")

	cols := d.Cols
	if cols == 0 {
		cols = 512
	}
	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}
	return &ptyTerminal{file: f, cmd: cmd}, nil
}

// shellEnv is the current environment minus variables that would make the
// shell source startup files or override the prompt.
func shellEnv() []string {
	env := os.Environ()
	out := env[:0:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, "ENV=") || strings.HasPrefix(kv, "PS1=") ||
			strings.HasPrefix(kv, "PROMPT_COMMAND=") || strings.HasPrefix(kv, "TERM=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// ptyTerminal is a shell process attached to a pty master.
type ptyTerminal struct {
	file *os.File
	cmd  *exec.Cmd
}

func (t *ptyTerminal) Read(p []byte) (int, error) {
	return t.file.Read(p)
}

func (t *ptyTerminal) Write(p []byte) (int, error) {
	return t.file.Write(p)
}

// Close closes the master side and reaps the shell.
func (t *ptyTerminal) Close() error {
	err := t.file.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
		_ = t.cmd.Wait()
	}
	return err
}
