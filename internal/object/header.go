package object

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
)

// maxContinuations bounds the continuation blocks followed for one header,
// so a cycle in a damaged file ends.
const maxContinuations = 4096

// Header is a decoded object header. Messages that fail to decode are
// left out.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message

	continuations int
}

// Read decodes the object header at address.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", address, err)
	}

	h := &Header{Address: address}
	switch {
	case bytes.Equal(peek, []byte("OHDR")):
		h.Version = 2
		err = h.readV2(hr)
	case peek[0] == 1:
		h.Version = 1
		err = h.readV1(hr)
	default:
		return nil, fmt.Errorf("%w: unknown format at address %d", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}
	return h, nil
}

// frame is one undecoded message.
type frame struct {
	typ   message.Type
	flags uint8
	data  []byte
}

// decode appends the message in f. A continuation is returned instead of
// appended, for the caller to follow in its own block format.
func (h *Header) decode(r *binary.Reader, f frame) *message.Continuation {
	switch f.typ {
	case 0:
		return nil
	case message.TypeObjectHeaderContinuation:
		c, err := message.ParseContinuation(f.data, r)
		if err != nil || h.continuations >= maxContinuations {
			return nil
		}
		h.continuations++
		return c
	}
	msg, err := message.Parse(f.typ, f.data, f.flags, r)
	if err == nil {
		h.Messages = append(h.Messages, msg)
	}
	return nil
}

// GetMessage returns the first message of type typ, or nil.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// GetMessages returns every message of type typ in header order.
func (h *Header) GetMessages(typ message.Type) []message.Message {
	var out []message.Message
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.GetMessage(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.GetMessage(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.GetMessage(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.GetMessage(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}
