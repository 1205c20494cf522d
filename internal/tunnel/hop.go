package tunnel

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the protocol of a hop.
type Kind uint8

const (
	// Direct is a no-op hop that stays in the current shell.
	Direct Kind = iota

	// SSH logs in to another host.
	SSH

	// Sudo escalates privileges in place.
	Sudo

	// Docker enters a running container.
	Docker
)

// String returns the protocol token used in chain strings.
func (k Kind) String() string {
	switch k {
	case Direct:
		return "bash"
	case SSH:
		return "ssh"
	case Sudo:
		return "sudo"
	case Docker:
		return "docker"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// DefaultSSHPort is used when an ssh hop names no port.
const DefaultSSHPort = 22

// Hop is one step of a chain. Which fields apply depends on Kind: SSH uses
// Host, Port and AskPassword; Sudo uses AskPassword; Docker uses Container.
// Hops are comparable.
type Hop struct {
	Kind        Kind
	Host        Str
	Port        uint16
	AskPassword bool
	Container   Str
}

// ChainKey identifies a chain within one Interner.
type ChainKey string

// Chain is an immutable, ordered list of hops.
type Chain struct {
	hops     []Hop
	interner *Interner
	key      ChainKey
}

// ParseChain parses a '|' separated chain string, interning hosts and
// container ids into in.
func ParseChain(in *Interner, s string) (Chain, error) {
	if s == "" {
		return Chain{}, ErrEmptyChain
	}

	segments := strings.Split(s, "|")
	hops := make([]Hop, 0, len(segments))
	for _, seg := range segments {
		hop, err := parseHop(in, seg)
		if err != nil {
			return Chain{}, fmt.Errorf("hop %q: %w", seg, err)
		}
		hops = append(hops, hop)
	}

	return newChain(in, hops), nil
}

func newChain(in *Interner, hops []Hop) Chain {
	buf := make([]byte, 0, len(hops)*16)
	for _, h := range hops {
		buf = append(buf, byte(h.Kind))
		buf = binary.LittleEndian.AppendUint32(buf, h.Host.start)
		buf = binary.LittleEndian.AppendUint32(buf, h.Host.len)
		buf = binary.LittleEndian.AppendUint16(buf, h.Port)
		if h.AskPassword {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = binary.LittleEndian.AppendUint32(buf, h.Container.start)
		buf = binary.LittleEndian.AppendUint32(buf, h.Container.len)
	}
	return Chain{hops: hops, interner: in, key: ChainKey(buf)}
}

func parseHop(in *Interner, seg string) (Hop, error) {
	args := strings.Split(seg, ":")
	switch args[0] {
	case "ssh":
		hop := Hop{Kind: SSH, Port: DefaultSSHPort}
		if len(args) < 2 || args[1] == "" {
			return Hop{}, ErrMissingHost
		}
		hop.Host = in.Intern(args[1])

		rest := args[2:]
		if len(rest) > 0 && rest[0] != "askpw" {
			port, err := strconv.ParseUint(rest[0], 10, 16)
			if err != nil || port == 0 {
				return Hop{}, fmt.Errorf("%w: %q", ErrBadPort, rest[0])
			}
			hop.Port = uint16(port)
			rest = rest[1:]
		}
		if len(rest) > 0 && rest[0] == "askpw" {
			hop.AskPassword = true
			rest = rest[1:]
		}
		if len(rest) > 0 {
			return Hop{}, fmt.Errorf("%w: unexpected %q", ErrInvalidHop, rest[0])
		}
		return hop, nil

	case "sudo":
		hop := Hop{Kind: Sudo}
		switch {
		case len(args) == 1:
		case len(args) == 2 && args[1] == "askpw":
			hop.AskPassword = true
		default:
			return Hop{}, fmt.Errorf("%w: unexpected %q", ErrInvalidHop, args[1])
		}
		return hop, nil

	case "docker":
		if len(args) < 2 || args[1] == "" {
			return Hop{}, ErrMissingContainer
		}
		if len(args) > 2 {
			return Hop{}, fmt.Errorf("%w: unexpected %q", ErrInvalidHop, args[2])
		}
		return Hop{Kind: Docker, Container: in.Intern(args[1])}, nil

	case "bash":
		if len(args) > 1 {
			return Hop{}, fmt.Errorf("%w: unexpected %q", ErrInvalidHop, args[1])
		}
		return Hop{Kind: Direct}, nil

	case "":
		return Hop{}, fmt.Errorf("%w: empty segment", ErrInvalidHop)

	default:
		return Hop{}, fmt.Errorf("%w: %q", ErrUnknownHop, args[0])
	}
}

// Len returns the number of hops.
func (c Chain) Len() int {
	return len(c.hops)
}

// Hop returns the i-th hop.
func (c Chain) Hop(i int) Hop {
	return c.hops[i]
}

// Hops returns a copy of the hops.
func (c Chain) Hops() []Hop {
	return append([]Hop(nil), c.hops...)
}

// Key returns a value suitable as a map key. Keys are only comparable
// between chains parsed with the same Interner.
func (c Chain) Key() ChainKey {
	return c.key
}

// Resolve returns the string behind a handle held by one of the hops.
func (c Chain) Resolve(s Str) string {
	if c.interner == nil {
		return ""
	}
	return c.interner.Lookup(s)
}

// FormatHop returns the canonical text of the i-th hop.
func (c Chain) FormatHop(i int) string {
	h := c.hops[i]
	switch h.Kind {
	case SSH:
		s := "ssh:" + c.Resolve(h.Host)
		if h.Port != DefaultSSHPort {
			s += ":" + strconv.Itoa(int(h.Port))
		}
		if h.AskPassword {
			s += ":askpw"
		}
		return s
	case Sudo:
		if h.AskPassword {
			return "sudo:askpw"
		}
		return "sudo"
	case Docker:
		return "docker:" + c.Resolve(h.Container)
	default:
		return "bash"
	}
}

// String returns the canonical chain text, which parses back to an equal
// chain.
func (c Chain) String() string {
	parts := make([]string, len(c.hops))
	for i := range c.hops {
		parts[i] = c.FormatHop(i)
	}
	return strings.Join(parts, "|")
}

// SplitPath splits "<chain>:<path>" at the last colon. It reports false,
// meaning s is a local path, when there is no colon or the prefix does not
// parse as a chain.
func SplitPath(in *Interner, s string) (Chain, string, bool) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return Chain{}, "", false
	}
	chain, err := ParseChain(in, s[:i])
	if err != nil {
		return Chain{}, "", false
	}
	return chain, s[i+1:], true
}

// Quote single-quotes s for the shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
