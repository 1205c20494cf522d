package tunnel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Terminal is the byte stream of an interactive shell.
type Terminal interface {
	io.Reader
	io.Writer
	Close() error
}

// SessionConfig controls how sessions talk to their shells.
type SessionConfig struct {
	// Shell is the local shell spawned for each session.
	Shell string

	// Timeout bounds every wait for a prompt.
	Timeout time.Duration

	// PromptMarker is set as PS1 in every nested shell. It must not occur
	// in ordinary output.
	PromptMarker string

	// PasswordMarker is the prompt sudo prints when it needs a password.
	PasswordMarker string
}

// DefaultSessionConfig returns the default session settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Shell:          "sh",
		Timeout:        30 * time.Second,
		PromptMarker:   "__burrow_prompt__",
		PasswordMarker: "__burrow_askpw__",
	}
}

// sshPasswordMarker matches both "Password:" and "user@host's password:".
const sshPasswordMarker = "assword:"

// wrapWidth keeps encoded payload lines well below the terminal's
// canonical line limit.
const wrapWidth = 76

// Session is one live shell reached by replaying a Chain. A Session is
// used by one caller at a time.
type Session struct {
	id       string
	chain    Chain
	cfg      SessionConfig
	term     Terminal
	prompter Prompter
	logger   *slog.Logger

	// depth counts nested shells entered, each needing an exit on close.
	depth int

	mu      sync.Mutex
	out     bytes.Buffer
	readErr error
	notify  chan struct{}

	broken  bool
	closed  bool
	pending *fileWriter
}

func newSession(term Terminal, chain Chain, o *options) *Session {
	s := &Session{
		id:       uuid.NewString(),
		chain:    chain,
		cfg:      o.config,
		term:     term,
		prompter: o.prompter,
		notify:   make(chan struct{}, 1),
	}
	s.logger = o.logger.With("session", s.id, "chain", chain.String())
	go s.readLoop()
	return s
}

// Connect dials a new shell and logs in through every hop of chain.
func Connect(ctx context.Context, chain Chain, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	return connect(ctx, chain, o)
}

func connect(ctx context.Context, chain Chain, o *options) (*Session, error) {
	term, err := o.dialer.Dial(ctx, o.config)
	if err != nil {
		return nil, fmt.Errorf("dial shell: %w", err)
	}

	s := newSession(term, chain, o)
	if err := s.login(ctx); err != nil {
		s.Close()
		return nil, err
	}
	s.logger.Debug("session connected", "hops", chain.Len())
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Chain returns the chain this session was built from.
func (s *Session) Chain() Chain {
	return s.chain
}

// Broken reports whether the session failed in a way that makes it unsafe
// to reuse.
func (s *Session) Broken() bool {
	return s.broken || s.closed
}

func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.term.Read(buf)

		s.mu.Lock()
		s.out.Write(buf[:n])
		if err != nil {
			s.readErr = err
		}
		s.mu.Unlock()

		select {
		case s.notify <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) login(ctx context.Context) error {
	if _, _, err := s.Wait(ctx, ""); err != nil {
		return fmt.Errorf("waiting for local shell: %w", err)
	}
	if err := s.send("stty -echo"); err != nil {
		return err
	}
	if _, _, err := s.Wait(ctx, ""); err != nil {
		return err
	}

	for i := 0; i < s.chain.Len(); i++ {
		if err := s.hop(ctx, i); err != nil {
			return fmt.Errorf("hop %s: %w", s.chain.FormatHop(i), err)
		}
	}
	return nil
}

func (s *Session) hop(ctx context.Context, i int) error {
	h := s.chain.Hop(i)
	cmd := s.launchCommand(h)
	if cmd == "" {
		return nil
	}

	if err := s.send(cmd); err != nil {
		return err
	}

	extra := ""
	if h.AskPassword {
		extra = s.cfg.PasswordMarker
		if h.Kind == SSH {
			extra = sshPasswordMarker
		}
	}

	for {
		_, askpw, err := s.Wait(ctx, extra)
		if err != nil {
			return err
		}
		if !askpw {
			break
		}
		if s.prompter == nil {
			s.broken = true
			return ErrNoPrompter
		}
		password, err := s.prompter.Password(ctx, "password for "+s.chain.FormatHop(i))
		if err != nil {
			s.broken = true
			return fmt.Errorf("reading password: %w", err)
		}
		if err := s.send(password); err != nil {
			return err
		}
	}

	// A failed launch leaves us at the previous shell's prompt with a
	// non-zero status; a fresh shell reports 0. The nested terminal starts
	// with echo on.
	if err := s.send("echo $?; stty -echo"); err != nil {
		return err
	}
	out, _, err := s.Wait(ctx, "")
	if err != nil {
		return err
	}
	status, err := parseStatus(lastLine(out))
	if err != nil {
		s.broken = true
		return err
	}
	if status != 0 {
		s.broken = true
		return &CommandError{Command: cmd, Status: status}
	}

	s.depth++
	return nil
}

func (s *Session) launchCommand(h Hop) string {
	shell := "env PS1=" + splitMarker(s.cfg.PromptMarker) + " TERM=dumb sh"
	switch h.Kind {
	case SSH:
		return fmt.Sprintf("ssh -p %d -t -t %s %s", h.Port, Quote(s.chain.Resolve(h.Host)), shell)
	case Sudo:
		if h.AskPassword {
			return "sudo -S -p " + splitMarker(s.cfg.PasswordMarker) + " " + shell
		}
		return "sudo -n " + shell
	case Docker:
		return fmt.Sprintf("docker exec -it %s %s", Quote(s.chain.Resolve(h.Container)), shell)
	default:
		return ""
	}
}

// splitMarker quotes a marker so that its literal text never appears in
// the command line itself, only in what the shell prints.
func splitMarker(m string) string {
	half := len(m) / 2
	return "'" + m[:half] + "''" + m[half:] + "'"
}

func (s *Session) send(line string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if _, err := io.WriteString(s.term, line+"\n"); err != nil {
		s.broken = true
		return fmt.Errorf("writing to shell: %w", err)
	}
	return nil
}

// Wait blocks until the prompt marker or, if non-empty, extra appears in
// the shell output. It returns the output preceding the match with line
// endings normalized, and whether extra was the match. On timeout or
// cancellation the session is marked broken.
func (s *Session) Wait(ctx context.Context, extra string) (string, bool, error) {
	if s.closed {
		return "", false, ErrSessionClosed
	}

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		out, matchedExtra, ok := s.take(extra)
		readErr := s.readErr
		s.mu.Unlock()

		if ok {
			return out, matchedExtra, nil
		}
		if readErr != nil {
			s.broken = true
			return "", false, fmt.Errorf("%w: %v", ErrSessionClosed, readErr)
		}

		select {
		case <-s.notify:
		case <-timer.C:
			s.broken = true
			return "", false, ErrTimeout
		case <-ctx.Done():
			s.broken = true
			return "", false, ctx.Err()
		}
	}
}

// take consumes output through the earliest marker. Callers hold s.mu.
func (s *Session) take(extra string) (string, bool, bool) {
	data := s.out.Bytes()

	i := bytes.Index(data, []byte(s.cfg.PromptMarker))
	j := -1
	if extra != "" {
		j = bytes.Index(data, []byte(extra))
	}

	var end, skip int
	var matchedExtra bool
	switch {
	case j >= 0 && (i < 0 || j < i):
		end, skip, matchedExtra = j, len(extra), true
	case i >= 0:
		end, skip = i, len(s.cfg.PromptMarker)
	default:
		return "", false, false
	}

	out := strings.ReplaceAll(string(data[:end]), "\r", "")
	s.out.Next(end + skip)
	return out, matchedExtra, true
}

// RunChecked runs cmd and returns its output. A non-zero exit status is
// reported as a *CommandError.
func (s *Session) RunChecked(ctx context.Context, cmd string) (string, error) {
	if s.pending != nil {
		return "", ErrWriteInProgress
	}
	if err := s.send(cmd); err != nil {
		return "", err
	}
	if err := s.send("echo $?"); err != nil {
		return "", err
	}
	return s.collect(ctx, cmd)
}

// collect waits for a command's output and then its exit status probe.
func (s *Session) collect(ctx context.Context, cmd string) (string, error) {
	out, _, err := s.Wait(ctx, "")
	if err != nil {
		return "", err
	}
	statusText, _, err := s.Wait(ctx, "")
	if err != nil {
		return "", err
	}

	status, err := parseStatus(lastLine(statusText))
	if err != nil {
		s.broken = true
		return "", err
	}
	if status != 0 {
		return out, &CommandError{Command: cmd, Status: status, Output: strings.TrimSpace(out)}
	}

	s.logger.Debug("command succeeded", "command", cmd, "bytes", len(out))
	return out, nil
}

func parseStatus(text string) (int, error) {
	status, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: exit status %q", ErrMalformedResponse, text)
	}
	return status, nil
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// ReadFile returns a reader decoding the remote file's contents.
func (s *Session) ReadFile(ctx context.Context, path string) (io.Reader, error) {
	out, err := s.RunChecked(ctx, "base64 -w 0 "+Quote(path))
	if err != nil {
		return nil, err
	}
	return base64.NewDecoder(base64.StdEncoding, strings.NewReader(strings.TrimSpace(out))), nil
}

// Exists reports whether path exists on the remote side.
func (s *Session) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.RunChecked(ctx, "test -e "+Quote(path))
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Status == 1 {
		return false, nil
	}
	return false, err
}

// Canonicalize resolves path with realpath on the remote side.
func (s *Session) Canonicalize(ctx context.Context, path string) (string, error) {
	out, err := s.RunChecked(ctx, "realpath "+Quote(path))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ListFiles returns the lines of "ls -al path".
func (s *Session) ListFiles(ctx context.Context, path string) ([]string, error) {
	out, err := s.RunChecked(ctx, "ls -al "+Quote(path))
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// WriteFile starts replacing the remote file at path. Bytes written to the
// returned writer are streamed to the shell base64 encoded; the write takes
// effect when FinishWriteFile is called.
func (s *Session) WriteFile(path string) (io.WriteCloser, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.pending != nil {
		return nil, ErrWriteInProgress
	}

	if _, err := io.WriteString(s.term, "echo '"); err != nil {
		s.broken = true
		return nil, fmt.Errorf("writing to shell: %w", err)
	}

	buffered := bufio.NewWriter(s.term)
	w := &fileWriter{
		session:  s,
		path:     path,
		buffered: buffered,
	}
	w.encoder = base64.NewEncoder(base64.StdEncoding, &lineWrapper{w: buffered, width: wrapWidth})
	s.pending = w
	return w, nil
}

// FinishWriteFile completes the write begun by WriteFile and checks that
// the remote side decoded and stored it.
func (s *Session) FinishWriteFile(ctx context.Context) error {
	w := s.pending
	if w == nil {
		return ErrNoWriteInProgress
	}
	if err := w.Close(); err != nil {
		s.pending = nil
		s.broken = true
		return err
	}
	s.pending = nil

	cmd := "base64 -d - > " + Quote(w.path)
	if err := s.send("' | " + cmd); err != nil {
		return err
	}
	if err := s.send("echo $?"); err != nil {
		return err
	}
	_, err := s.collect(ctx, cmd)
	return err
}

// Close leaves every nested shell and closes the terminal.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	if s.pending != nil {
		s.broken = true
	}
	if !s.broken {
		for i := 0; i <= s.depth; i++ {
			if _, err := io.WriteString(s.term, "exit\n"); err != nil {
				break
			}
		}
	}
	s.closed = true
	s.logger.Debug("session closed", "broken", s.broken)
	return s.term.Close()
}

// fileWriter streams encoded file contents into an open echo command.
type fileWriter struct {
	session  *Session
	path     string
	encoder  io.WriteCloser
	buffered *bufio.Writer
	closed   bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrSessionClosed
	}
	n, err := w.encoder.Write(p)
	if err != nil {
		w.session.broken = true
		return n, fmt.Errorf("streaming file contents: %w", err)
	}
	return n, nil
}

// Close flushes the encoder. It does not end the remote command.
func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.encoder.Close(); err != nil {
		return fmt.Errorf("streaming file contents: %w", err)
	}
	if err := w.buffered.Flush(); err != nil {
		return fmt.Errorf("streaming file contents: %w", err)
	}
	return nil
}

// lineWrapper inserts a newline every width bytes.
type lineWrapper struct {
	w     io.Writer
	width int
	col   int
}

func (l *lineWrapper) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n := min(len(p), l.width-l.col)
		if _, err := l.w.Write(p[:n]); err != nil {
			return written, err
		}
		written += n
		l.col += n
		p = p[n:]

		if l.col == l.width {
			if _, err := l.w.Write([]byte{'\n'}); err != nil {
				return written, err
			}
			l.col = 0
		}
	}
	return written, nil
}
