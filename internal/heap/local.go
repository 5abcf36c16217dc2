package heap

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// LocalHeap holds the link names of a symbol-table group.
type LocalHeap struct {
	DataSize    uint64
	FreeOffset  uint64
	DataAddress uint64
	data        []byte
}

// ReadLocalHeap reads the heap header at address and its data segment.
func ReadLocalHeap(r *binary.Reader, address uint64) (*LocalHeap, error) {
	hr := r.At(int64(address))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading local heap signature: %w", err)
	}
	if !bytes.Equal(sig, []byte("HEAP")) {
		return nil, fmt.Errorf("invalid local heap signature: %q", sig)
	}
	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("unsupported local heap version: %d", version)
	}
	hr.Skip(3)

	h := &LocalHeap{}
	if h.DataSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.FreeOffset, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	h.data, err = r.At(int64(h.DataAddress)).ReadBytes(int(h.DataSize))
	if err != nil {
		return nil, fmt.Errorf("reading local heap data: %w", err)
	}
	return h, nil
}

// GetString returns the NUL-terminated string at offset, or "" past the end.
func (h *LocalHeap) GetString(offset uint64) string {
	if offset >= uint64(len(h.data)) {
		return ""
	}
	s := h.data[offset:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}
