package tunnel

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tunnel package.
var (
	// ErrUnknownHop is returned when a chain segment names no known protocol.
	ErrUnknownHop = errors.New("unknown hop protocol")

	// ErrInvalidHop is returned for empty segments or unexpected parameters.
	ErrInvalidHop = errors.New("malformed hop")

	// ErrEmptyChain is returned when parsing an empty chain string.
	ErrEmptyChain = errors.New("empty chain")

	// ErrMissingHost is returned when an ssh hop has no destination.
	ErrMissingHost = errors.New("missing ssh destination")

	// ErrMissingContainer is returned when a docker hop has no container id.
	ErrMissingContainer = errors.New("missing container id")

	// ErrBadPort is returned when an ssh port is not a number in 1..65535.
	ErrBadPort = errors.New("invalid ssh port")

	// ErrTimeout is returned when the shell does not answer in time. The
	// session is unusable afterwards.
	ErrTimeout = errors.New("timed out waiting for shell prompt")

	// ErrSessionClosed is returned for operations on a closed or dead session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNoPrompter is returned when a hop asks for a password and no
	// Prompter was configured.
	ErrNoPrompter = errors.New("password requested but no prompter configured")

	// ErrMalformedResponse is returned when the shell's reply cannot be
	// interpreted, such as a non-numeric exit status.
	ErrMalformedResponse = errors.New("malformed shell response")

	// ErrNoWriteInProgress is returned by FinishWriteFile without a prior
	// WriteFile.
	ErrNoWriteInProgress = errors.New("no file write in progress")

	// ErrWriteInProgress is returned when a command is issued while a file
	// write is still open.
	ErrWriteInProgress = errors.New("file write in progress")

	// ErrPoolClosed is returned when connecting through a closed pool.
	ErrPoolClosed = errors.New("connection pool is closed")
)

// CommandError reports a remote command that exited with a non-zero status.
type CommandError struct {
	Command string
	Status  int
	Output  string
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("command %q failed with exit status %d", e.Command, e.Status)
	}
	return fmt.Sprintf("command %q failed with exit status %d: %s", e.Command, e.Status, e.Output)
}
