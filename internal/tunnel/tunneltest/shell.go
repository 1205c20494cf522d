// Package tunneltest provides a scripted stand-in for the shells a tunnel
// session drives.
package tunneltest

import (
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Shell emulates a POSIX shell behind a pty closely enough to run the
// session protocol. It prints the prompt marker, tracks $?, keeps an
// in-memory file system and implements the handful of commands sessions
// issue: stty, echo, base64, test, realpath, ls, ssh, sudo, docker and
// exit. Output uses CRLF line endings like a real terminal.
//
// The hosts "unreachable" (ssh) and "missing" (docker) fail to connect.
type Shell struct {
	prompt   string
	askpw    string
	mu       sync.Mutex
	files    map[string][]byte
	password map[string]string
	received []string
	commands []string
	bad      string

	pr    *io.PipeReader
	pw    *io.PipeWriter
	queue chan string

	input    strings.Builder
	status   int
	depth    int
	quoting  bool
	payload  strings.Builder
	awaiting string
	silent   bool
	closed   bool
}

// NewShell starts a shell that prints promptMarker and uses passwordMarker
// as the sudo password prompt.
func NewShell(promptMarker, passwordMarker string) *Shell {
	pr, pw := io.Pipe()
	s := &Shell{
		prompt:   promptMarker,
		askpw:    passwordMarker,
		files:    make(map[string][]byte),
		password: make(map[string]string),
		pr:       pr,
		pw:       pw,
		queue:    make(chan string, 4096),
	}
	go s.drain()
	s.emit(promptMarker)
	return s
}

// SetFile stores a file in the shell's file system.
func (s *Shell) SetFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), data...)
}

// File returns a stored file.
func (s *Shell) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

// RequirePassword makes an ssh host, or "sudo", ask for password.
func (s *Shell) RequirePassword(hop, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password[hop] = password
}

// SetSilent makes the shell swallow all further input, like a hung host.
func (s *Shell) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = silent
}

// Received returns the password lines the shell was sent.
func (s *Shell) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Commands returns every command line executed.
func (s *Shell) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Violation returns the first input line that contained a marker
// literally, or "".
func (s *Shell) Violation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bad
}

// Depth returns the number of nested shells currently entered.
func (s *Shell) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

func (s *Shell) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

func (s *Shell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}

	s.input.Write(p)
	for {
		buf := s.input.String()
		i := strings.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		s.input.Reset()
		s.input.WriteString(buf[i+1:])
		s.line(buf[:i])
	}
	return len(p), nil
}

// Close ends the shell's output stream.
func (s *Shell) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	return s.pw.Close()
}

func (s *Shell) drain() {
	for out := range s.queue {
		if _, err := s.pw.Write([]byte(out)); err != nil {
			return
		}
	}
}

func (s *Shell) emit(out string) {
	s.queue <- strings.ReplaceAll(out, "\n", "\r\n")
}

// reply prints output followed by the prompt.
func (s *Shell) reply(status int, out string) {
	s.status = status
	s.emit(out + s.prompt)
}

func (s *Shell) line(line string) {
	if s.silent {
		return
	}
	if s.bad == "" && (strings.Contains(line, s.prompt) || strings.Contains(line, s.askpw)) {
		s.bad = line
	}

	if s.awaiting != "" {
		s.received = append(s.received, line)
		if line != s.password[s.awaiting] {
			s.emit(s.awaiting + "'s password: ")
			return
		}
		s.awaiting = ""
		s.depth++
		s.reply(0, "")
		return
	}

	if s.quoting {
		s.quoted(line)
		return
	}

	if strings.HasPrefix(line, "echo '") {
		s.quoting = true
		s.payload.Reset()
		s.quoted(line[len("echo '"):])
		return
	}

	s.commands = append(s.commands, line)
	s.run(line)
}

const decodeTail = "' | base64 -d - > "

func (s *Shell) quoted(line string) {
	i := strings.Index(line, decodeTail)
	if i < 0 {
		s.payload.WriteString(line)
		s.emit("> ")
		return
	}

	s.payload.WriteString(line[:i])
	s.quoting = false
	s.commands = append(s.commands, "echo ... | base64 -d - > "+line[i+len(decodeTail):])

	data, err := base64.StdEncoding.DecodeString(s.payload.String())
	if err != nil {
		s.reply(1, "base64: invalid input\n")
		return
	}
	s.files[Unquote(line[i+len(decodeTail):])] = data
	s.reply(0, "")
}

func (s *Shell) run(line string) {
	switch {
	case line == "stty -echo":
		s.reply(0, "")

	case line == "echo $?", line == "echo $?; stty -echo":
		s.reply(0, fmt.Sprintf("%d\n", s.status))

	case strings.HasPrefix(line, "base64 -w 0 "):
		path := Unquote(strings.TrimPrefix(line, "base64 -w 0 "))
		data, ok := s.files[path]
		if !ok {
			s.reply(1, "base64: "+path+": No such file or directory\n")
			return
		}
		s.reply(0, base64.StdEncoding.EncodeToString(data))

	case strings.HasPrefix(line, "test -e "):
		if _, ok := s.files[Unquote(strings.TrimPrefix(line, "test -e "))]; ok {
			s.reply(0, "")
		} else {
			s.reply(1, "")
		}

	case strings.HasPrefix(line, "realpath "):
		path := Unquote(strings.TrimPrefix(line, "realpath "))
		s.reply(0, "/home/user/"+strings.TrimPrefix(path, "./")+"\n")

	case strings.HasPrefix(line, "ls -al "):
		names := make([]string, 0, len(s.files))
		for name := range s.files {
			names = append(names, name)
		}
		sort.Strings(names)
		var sb strings.Builder
		sb.WriteString("total 8\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "-rw-r--r-- 1 user user %d Jan  1 00:00 %s\n", len(s.files[name]), name)
		}
		s.reply(0, sb.String())

	case strings.HasPrefix(line, "ssh "):
		fields := strings.Fields(line)
		if len(fields) < 6 {
			s.reply(255, "usage: ssh\n")
			return
		}
		host := Unquote(fields[5])
		s.enter(host, host+"'s password: ")

	case strings.HasPrefix(line, "sudo -S -p "):
		s.enter("sudo", s.askpw)

	case strings.HasPrefix(line, "sudo -n "):
		if _, ok := s.password["sudo"]; ok {
			s.reply(1, "sudo: a password is required\n")
			return
		}
		s.depth++
		s.reply(0, "")

	case strings.HasPrefix(line, "docker exec -it "):
		fields := strings.Fields(line)
		if len(fields) < 4 || Unquote(fields[3]) == "missing" {
			s.reply(1, "Error: No such container\n")
			return
		}
		s.depth++
		s.reply(0, "")

	case line == "exit":
		if s.depth > 0 {
			s.depth--
		}

	default:
		s.reply(127, "sh: "+line+": not found\n")
	}
}

func (s *Shell) enter(hop, prompt string) {
	if hop == "unreachable" {
		s.reply(255, "ssh: connect to host unreachable port 22: Connection refused\n")
		return
	}
	if _, ok := s.password[hop]; ok {
		s.awaiting = hop
		s.emit(prompt)
		return
	}
	s.depth++
	s.reply(0, "")
}

// Unquote reverses single-quote shell quoting of one word.
func Unquote(word string) string {
	word = strings.TrimSpace(word)
	word = strings.ReplaceAll(word, `'\''`, "\x00")
	word = strings.Trim(word, "'")
	return strings.ReplaceAll(word, "\x00", "'")
}
