package object

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

const (
	v2SizeWidth   = 0x03 // chunk 0 size field is 1 << (flags & 3) bytes
	v2CreationOrd = 0x04
	v2PhaseChange = 0x10
	v2Timestamps  = 0x20
)

func (h *Header) readV2(r *binary.Reader) error {
	r.Skip(4) // OHDR
	version, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if version != 2 {
		return fmt.Errorf("%w: OHDR version %d", ErrUnsupportedVersion, version)
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if flags&v2Timestamps != 0 {
		r.Skip(16)
	}
	if flags&v2PhaseChange != 0 {
		r.Skip(4)
	}
	size, err := r.ReadUintN(1 << (flags & v2SizeWidth))
	if err != nil {
		return err
	}
	h.readV2Block(r, r.Pos()+int64(size), flags&v2CreationOrd != 0)
	return nil
}

// readV2Block decodes messages up to end. A gap shorter than a message
// prefix may pad the block.
func (h *Header) readV2Block(r *binary.Reader, end int64, ordered bool) {
	for r.Pos()+4 <= end {
		typ, err := r.ReadUint8()
		if err != nil {
			return
		}
		size, err := r.ReadUint16()
		if err != nil {
			return
		}
		flags, err := r.ReadUint8()
		if err != nil {
			return
		}
		if ordered {
			r.Skip(2)
		}
		data, err := r.ReadBytes(int(size))
		if err != nil {
			return
		}
		c := h.decode(r, frame{typ: message.Type(typ), flags: flags, data: data})
		if c != nil {
			h.readContinuation(r, c, ordered)
		}
	}
}

// readContinuation follows an OCHK block; its last 4 bytes are a checksum.
func (h *Header) readContinuation(r *binary.Reader, c *message.Continuation, ordered bool) {
	cr := r.At(int64(c.Offset))
	sig, err := cr.ReadBytes(4)
	if err != nil || !bytes.Equal(sig, []byte("OCHK")) {
		return
	}
	h.readV2Block(cr, int64(c.Offset+c.Length)-4, ordered)
}
