package object

import (
	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Version 1 prefix: version(1) reserved(1) message count(2) reference
// count(4) header size(4), then messages aligned to 8 bytes.
func (h *Header) readV1(r *binary.Reader) error {
	r.Skip(8)
	size, err := r.ReadUint32()
	if err != nil {
		return err
	}
	r.Align(8)
	h.readV1Block(r, r.Pos()+int64(size))
	return nil
}

func (h *Header) readV1Block(r *binary.Reader, end int64) {
	for r.Pos()+8 <= end {
		f, err := readV1Frame(r)
		if err != nil {
			return
		}
		if c := h.decode(r, f); c != nil {
			h.readV1Block(r.At(int64(c.Offset)), int64(c.Offset+c.Length))
		}
	}
}

// readV1Frame reads type(2) size(2) flags(1) reserved(3) and the data,
// padded to 8 bytes.
func readV1Frame(r *binary.Reader) (frame, error) {
	typ, err := r.ReadUint16()
	if err != nil {
		return frame{}, err
	}
	size, err := r.ReadUint16()
	if err != nil {
		return frame{}, err
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return frame{}, err
	}
	r.Skip(3)
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return frame{}, err
	}
	r.Align(8)
	return frame{typ: message.Type(typ), flags: flags, data: data}, nil
}
