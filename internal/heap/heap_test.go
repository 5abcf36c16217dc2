package heap

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

type image struct{ bytes.Buffer }

func (m *image) ReadAt(p []byte, off int64) (int, error) {
	b := m.Bytes()
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *image) u16(v uint16) { binary.Write(m, binary.LittleEndian, v) }
func (m *image) u64(v uint64) { binary.Write(m, binary.LittleEndian, v) }

func (m *image) reader() *binpkg.Reader {
	return binpkg.NewReader(m, binpkg.DefaultConfig())
}

func TestLocalHeap(t *testing.T) {
	var m image
	m.WriteString("HEAP")
	m.Write([]byte{0, 0, 0, 0})
	m.u64(16) // data size
	m.u64(8)  // free list
	m.u64(32) // data address
	m.WriteString("\x00alpha\x00beta")
	m.Write(make([]byte, 5))

	h, err := ReadLocalHeap(m.reader(), 0)
	if err != nil {
		t.Fatalf("ReadLocalHeap: %v", err)
	}
	if h.DataSize != 16 || h.DataAddress != 32 {
		t.Errorf("header = %+v", h)
	}
	for off, want := range map[uint64]string{0: "", 1: "alpha", 7: "beta", 100: ""} {
		if got := h.GetString(off); got != want {
			t.Errorf("GetString(%d) = %q, want %q", off, got, want)
		}
	}
}

func TestLocalHeapRejects(t *testing.T) {
	var m image
	m.WriteString("HEAX")
	if _, err := ReadLocalHeap(m.reader(), 0); err == nil {
		t.Error("expected signature error")
	}

	m.Reset()
	m.WriteString("HEAP")
	m.Write([]byte{1, 0, 0, 0})
	if _, err := ReadLocalHeap(m.reader(), 0); err == nil {
		t.Error("expected version error")
	}
}

func collection(addr int, objs ...[]byte) *image {
	var body image
	for i, o := range objs {
		body.u16(uint16(i + 1))
		body.u16(1)
		body.Write(make([]byte, 4))
		body.u64(uint64(len(o)))
		body.Write(o)
		body.Write(make([]byte, (8-len(o)%8)%8))
	}
	body.Write(make([]byte, 16))

	m := &image{}
	m.Write(make([]byte, addr))
	m.WriteString("GCOL")
	m.Write([]byte{1, 0, 0, 0})
	m.u64(uint64(16 + body.Len()))
	m.Write(body.Bytes())
	return m
}

func TestGlobalHeap(t *testing.T) {
	m := collection(8, []byte("ten bytes!"), []byte{0xFF, 0xD8})
	h, err := ReadGlobalHeap(m.reader(), 8)
	if err != nil {
		t.Fatalf("ReadGlobalHeap: %v", err)
	}

	first, err := h.GetObject(1)
	if err != nil || string(first) != "ten bytes!" {
		t.Errorf("object 1 = %q, %v", first, err)
	}
	second, err := h.GetObject(2)
	if err != nil || !bytes.Equal(second, []byte{0xFF, 0xD8}) {
		t.Errorf("object 2 = %v, %v", second, err)
	}

	second[0] = 0
	again, _ := h.GetObject(2)
	if again[0] != 0xFF {
		t.Error("GetObject returned shared storage")
	}

	if _, err := h.GetObject(3); err == nil {
		t.Error("expected error for missing index")
	}
	var nilHeap *GlobalHeap
	if _, err := nilHeap.GetObject(1); err == nil {
		t.Error("expected error for nil heap")
	}
}

func TestGlobalHeapRejects(t *testing.T) {
	m := collection(0)
	if _, err := ReadGlobalHeap(m.reader(), 0); err == nil {
		t.Error("expected error for address 0")
	}
	if _, err := ReadGlobalHeap(m.reader(), ^uint64(0)); err == nil {
		t.Error("expected error for undefined address")
	}

	var bad image
	bad.Write(make([]byte, 8))
	bad.WriteString("GCOX")
	if _, err := ReadGlobalHeap(bad.reader(), 8); err == nil {
		t.Error("expected signature error")
	}
}

func TestParseGlobalHeapID(t *testing.T) {
	id, err := ParseGlobalHeapID([]byte{0x00, 0x10, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if id.CollectionAddress != 0x1000 || id.ObjectIndex != 3 {
		t.Errorf("id = %+v", id)
	}

	id, err = ParseGlobalHeapID([]byte{0x34, 0x12, 0x02, 0x01, 0, 0}, 2)
	if err != nil || id.CollectionAddress != 0x1234 || id.ObjectIndex != 0x0102 {
		t.Errorf("2-byte id = %+v, %v", id, err)
	}

	if _, err := ParseGlobalHeapID(make([]byte, 6), 4); err == nil {
		t.Error("expected error for short data")
	}
	if _, err := ParseGlobalHeapID(make([]byte, 16), 3); err == nil {
		t.Error("expected error for offset size 3")
	}
}
