package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind is what a command bar entry does.
type CommandKind uint8

const (
	CommandNoop CommandKind = iota
	CommandIncrement
	CommandDecrement
	CommandSeek
)

// Command is a parsed command bar entry.
type Command struct {
	Kind CommandKind
	N    uint64
}

func (c Command) String() string {
	switch c.Kind {
	case CommandIncrement:
		return fmt.Sprintf("+%d", c.N)
	case CommandDecrement:
		return fmt.Sprintf("-%d", c.N)
	case CommandSeek:
		return strconv.FormatUint(c.N, 10)
	default:
		return ""
	}
}

// ErrInvalidCommand is returned for command bar input that does not parse.
var ErrInvalidCommand = errors.New("invalid command")

// ParseCommand parses "+N", "-N" or "N". Blank input is a no-op.
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Command{}, nil
	}
	kind := CommandSeek
	digits := s
	switch s[0] {
	case '+':
		kind, digits = CommandIncrement, s[1:]
	case '-':
		kind, digits = CommandDecrement, s[1:]
	}
	n, err := strconv.ParseUint(strings.TrimSpace(digits), 10, 64)
	if err != nil {
		return Command{}, fmt.Errorf("%q: %w", s, ErrInvalidCommand)
	}
	return Command{Kind: kind, N: n}, nil
}

// Cursor is a bounded position the command bar moves. Seek clamps to the
// bound.
type Cursor interface {
	Position() (pos, limit uint64)
	Seek(n uint64)
}

// Apply runs c against cur.
func (c Command) Apply(cur Cursor) {
	pos, limit := cur.Position()
	if limit == 0 {
		return
	}
	switch c.Kind {
	case CommandIncrement:
		if c.N > limit-pos {
			cur.Seek(limit - 1)
			return
		}
		cur.Seek(pos + c.N)
	case CommandDecrement:
		if c.N > pos {
			cur.Seek(0)
			return
		}
		cur.Seek(pos - c.N)
	case CommandSeek:
		cur.Seek(c.N)
	}
}

// frameCursor moves the frame of an image leaf.
type frameCursor struct {
	frame  *int
	frames int
}

func (f frameCursor) Position() (uint64, uint64) {
	return uint64(*f.frame), uint64(f.frames)
}

func (f frameCursor) Seek(n uint64) {
	if f.frames <= 0 {
		return
	}
	if n >= uint64(f.frames) {
		n = uint64(f.frames - 1)
	}
	*f.frame = int(n)
}
