package binary

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestReaderWidths(t *testing.T) {
	data := []byte{
		0x42,
		0x02, 0x01,
		0x78, 0x56, 0x34, 0x12,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	r := NewReader(bytes.NewReader(data), DefaultConfig())

	u8, _ := r.ReadUint8()
	u16, _ := r.ReadUint16()
	u32, _ := r.ReadUint32()
	u64, err := r.ReadUint64()
	if err != nil {
		t.Fatalf("ReadUint64 failed: %v", err)
	}
	if u8 != 0x42 || u16 != 0x0102 || u32 != 0x12345678 || u64 != 0x0102030405060708 {
		t.Errorf("got %#x %#x %#x %#x", u8, u16, u32, u64)
	}
	if r.Pos() != int64(len(data)) {
		t.Errorf("Pos = %d, want %d", r.Pos(), len(data))
	}
	if _, err := r.ReadUint8(); err == nil {
		t.Error("expected error reading past the end")
	}
}

func TestReaderBigEndian(t *testing.T) {
	cfg := Config{ByteOrder: binary.BigEndian, OffsetSize: 4, LengthSize: 2}
	r := NewReader(bytes.NewReader([]byte{0, 0, 1, 0, 0x12, 0x34}), cfg)

	off, _ := r.ReadOffset()
	length, err := r.ReadLength()
	if err != nil {
		t.Fatalf("ReadLength failed: %v", err)
	}
	if off != 256 || length != 0x1234 {
		t.Errorf("offset = %d, length = %#x", off, length)
	}
	if r.ByteOrder() != binary.BigEndian || r.OffsetSize() != 4 || r.LengthSize() != 2 {
		t.Error("config not carried")
	}
}

func TestReaderOddWidth(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01, 0x02, 0x03}), DefaultConfig())
	v, err := r.ReadUintN(3)
	if err != nil {
		t.Fatalf("ReadUintN failed: %v", err)
	}
	if v != 0x030201 {
		t.Errorf("got %#x, want 0x030201", v)
	}
}

func TestUndefinedOffset(t *testing.T) {
	tests := []struct {
		size int
		v    uint64
		want bool
	}{
		{8, 0xFFFFFFFFFFFFFFFF, true},
		{8, 0xFFFFFFFF, false},
		{4, 0xFFFFFFFF, true},
		{2, 0xFFFF, true},
		{2, 0xFFFE, false},
	}
	for _, tt := range tests {
		r := NewReader(bytes.NewReader(nil), Config{ByteOrder: binary.LittleEndian, OffsetSize: tt.size, LengthSize: 8})
		if got := r.IsUndefinedOffset(tt.v); got != tt.want {
			t.Errorf("size %d IsUndefinedOffset(%#x) = %v", tt.size, tt.v, got)
		}
	}
}

func TestReaderPositioning(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	r := NewReader(bytes.NewReader(data), DefaultConfig())

	r.Skip(3)
	r.Align(4)
	if r.Pos() != 4 {
		t.Fatalf("Pos after Align = %d, want 4", r.Pos())
	}
	r.Align(4)
	if r.Pos() != 4 {
		t.Errorf("Align moved an aligned reader to %d", r.Pos())
	}

	peek, err := r.Peek(2)
	if err != nil || !bytes.Equal(peek, []byte{4, 5}) || r.Pos() != 4 {
		t.Errorf("Peek = %v, %v at %d", peek, err, r.Pos())
	}

	other := r.At(8)
	b, _ := other.ReadUint8()
	if b != 8 || r.Pos() != 4 {
		t.Errorf("At shares position: got %d, parent at %d", b, r.Pos())
	}

	if got, _ := r.ReadBytes(0); got != nil {
		t.Errorf("ReadBytes(0) = %v", got)
	}
}

// eofAtEnd returns io.EOF alongside a full read that reaches the end, as
// io.ReaderAt permits.
type eofAtEnd []byte

func (e eofAtEnd) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, e[off:])
	if off+int64(n) == int64(len(e)) {
		return n, io.EOF
	}
	return n, nil
}

func TestReadBytesAtEnd(t *testing.T) {
	r := NewReader(eofAtEnd{1, 2, 3}, DefaultConfig())
	got, err := r.ReadBytes(3)
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("ReadBytes = %v, %v", got, err)
	}
	if _, err := r.At(1).ReadBytes(3); err == nil {
		t.Error("expected error for a short read")
	}
}

func TestUint(t *testing.T) {
	le := NewReader(nil, DefaultConfig())
	be := NewReader(nil, Config{ByteOrder: binary.BigEndian, OffsetSize: 8, LengthSize: 8})
	if v := le.Uint([]byte{0x01, 0x02, 0x03, 0x04, 0x05}); v != 0x0504030201 {
		t.Errorf("little-endian 5 bytes = %#x", v)
	}
	if v := be.Uint([]byte{0x01, 0x02, 0x03}); v != 0x010203 {
		t.Errorf("big-endian 3 bytes = %#x", v)
	}
	if v := le.Uint(nil); v != 0 {
		t.Errorf("empty = %d", v)
	}
}
