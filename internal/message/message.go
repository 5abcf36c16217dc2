package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Type is a header message type number.
type Type uint16

const (
	TypeDataspace                Type = 0x0001
	TypeDatatype                 Type = 0x0003
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
)

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Parse decodes one message body. Types this package does not decode come
// back as *Unknown.
func Parse(typ Type, data []byte, flags uint8, r *binpkg.Reader) (Message, error) {
	switch typ {
	case TypeDataspace:
		return parseDataspace(data, r)
	case TypeDatatype:
		return parseDatatype(data, r)
	case TypeDataLayout:
		return parseDataLayout(data, r)
	case TypeFilterPipeline:
		return parseFilterPipeline(data, r)
	case TypeAttribute:
		return parseAttribute(data, r)
	case TypeLink:
		return parseLink(data, r)
	case TypeSymbolTable:
		return parseSymbolTable(data, r)
	case TypeObjectHeaderContinuation:
		return ParseContinuation(data, r)
	}
	return &Unknown{typ: typ}, nil
}

// Unknown stands in for a message type that is skipped.
type Unknown struct {
	typ Type
}

func (m *Unknown) Type() Type { return m.typ }

// Continuation points at the next block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

// ParseContinuation decodes an offset/length pair.
func ParseContinuation(data []byte, r *binpkg.Reader) (*Continuation, error) {
	c := newCursor(data, r)
	m := &Continuation{Offset: c.offset(), Length: c.offset()}
	if c.err != nil {
		return nil, fmt.Errorf("continuation message: %w", c.err)
	}
	return m, nil
}

// cursor reads little-endian fields from a message body. The first short
// read sets err; later reads return zero values.
type cursor struct {
	data []byte
	pos  int
	r    *binpkg.Reader
	err  error
}

func newCursor(data []byte, r *binpkg.Reader) *cursor {
	return &cursor{data: data, r: r}
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.data) {
		c.err = fmt.Errorf("need %d bytes at %d, have %d", n, c.pos, len(c.data))
		return nil
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u8() uint8 {
	if b := c.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (c *cursor) u16() uint16 {
	if b := c.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (c *cursor) u32() uint32 {
	if b := c.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// uint reads an n-byte integer in the file's byte order.
func (c *cursor) uint(n int) uint64 {
	b := c.take(n)
	if b == nil {
		return 0
	}
	order := binary.ByteOrder(binary.LittleEndian)
	if c.r != nil {
		order = c.r.ByteOrder()
	}
	return decodeUint(b, n, order)
}

func (c *cursor) offset() uint64 { return c.uint(c.r.OffsetSize()) }
func (c *cursor) length() uint64 { return c.uint(c.r.LengthSize()) }

// name reads an n-byte field and trims it at the first NUL.
func (c *cursor) name(n int) string {
	return cstring(c.take(n))
}

// align8 skips to the next multiple of 8 from the start of the body.
func (c *cursor) align8() {
	if rem := c.pos % 8; rem != 0 {
		c.take(8 - rem)
	}
}

func (c *cursor) rest() []byte {
	if c.err != nil || c.pos >= len(c.data) {
		return nil
	}
	return c.data[c.pos:]
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func decodeUint(buf []byte, size int, order binary.ByteOrder) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
