// Package binary reads the fixed- and variable-width fields HDF5 metadata
// is built from.
package binary

import (
	"encoding/binary"
	"io"
)

// Config sets the byte order and the widths of file offsets and lengths,
// normally taken from the superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultConfig is little-endian with 8-byte offsets and lengths, enough to
// read the superblock itself.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// Reader is a positioned cursor over an io.ReaderAt. Readers made with At
// share the source and move independently.
type Reader struct {
	r   io.ReaderAt
	cfg Config
	pos int64
}

func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{r: r, cfg: cfg}
}

// At returns a reader over the same source positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, cfg: r.cfg, pos: offset}
}

func (r *Reader) Pos() int64 { return r.pos }

func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

func (r *Reader) ByteOrder() binary.ByteOrder { return r.cfg.ByteOrder }

// ReadBytes reads n bytes and advances. A short read is an error; n <= 0
// reads nothing.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(len(buf))
	return buf, nil
}

// Peek reads n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := r.r.ReadAt(buf, r.pos)
	if got == n {
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.ReadUintN(1)
	return uint8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUintN(8)
}

// ReadUintN reads an n-byte unsigned integer in the configured order.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return r.Uint(buf), nil
}

// ReadOffset reads a file address.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUintN(r.cfg.OffsetSize)
}

// ReadLength reads a length field.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadUintN(r.cfg.LengthSize)
}

// Uint decodes buf, of any width up to 8, in the configured order.
func (r *Reader) Uint(buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(r.cfg.ByteOrder.Uint16(buf))
	case 4:
		return uint64(r.cfg.ByteOrder.Uint32(buf))
	case 8:
		return r.cfg.ByteOrder.Uint64(buf)
	}
	var v uint64
	if r.cfg.ByteOrder == binary.BigEndian {
		for _, b := range buf {
			v = v<<8 | uint64(b)
		}
		return v
	}
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// IsUndefinedOffset reports whether offset is the all-ones address HDF5
// uses for "not allocated".
func (r *Reader) IsUndefinedOffset(offset uint64) bool {
	if r.cfg.OffsetSize >= 8 {
		return offset == ^uint64(0)
	}
	return offset == uint64(1)<<(8*r.cfg.OffsetSize)-1
}

func (r *Reader) Skip(n int64) { r.pos += n }

// Align moves forward to the next multiple of alignment.
func (r *Reader) Align(alignment int64) {
	if alignment <= 1 {
		return
	}
	if rem := r.pos % alignment; rem != 0 {
		r.pos += alignment - rem
	}
}
