package heap

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
)

// GlobalHeap is a GCOL collection. Variable-length sequences and strings
// live here and are addressed by a GlobalHeapID.
type GlobalHeap struct {
	CollectionSize uint64
	objects        map[uint16][]byte
}

// GlobalHeapID locates one object: the collection address followed by the
// object index.
type GlobalHeapID struct {
	CollectionAddress uint64
	ObjectIndex       uint32
}

// ReadGlobalHeap reads the collection at address.
func ReadGlobalHeap(r *binary.Reader, address uint64) (*GlobalHeap, error) {
	if address == 0 || r.IsUndefinedOffset(address) {
		return nil, fmt.Errorf("invalid global heap address 0x%x", address)
	}
	hr := r.At(int64(address))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading global heap signature: %w", err)
	}
	if !bytes.Equal(sig, []byte("GCOL")) {
		return nil, fmt.Errorf("invalid global heap signature: %q", sig)
	}
	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("unsupported global heap version: %d", version)
	}
	hr.Skip(3)
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}

	h := &GlobalHeap{CollectionSize: size, objects: make(map[uint16][]byte)}

	// Each object header is index(2) refcount(2) reserved(4) size(L); data
	// is padded to 8 bytes. Index 0 is the free-space marker.
	objHeader := uint64(8 + r.LengthSize())
	used := uint64(8 + r.LengthSize())
	for used+objHeader <= size {
		index, err := hr.ReadUint16()
		if err != nil || index == 0 {
			break
		}
		hr.Skip(6)
		n, err := hr.ReadLength()
		if err != nil {
			break
		}
		pad := (8 - n%8) % 8
		if used+objHeader+n > size {
			break
		}
		if n > 0 {
			data, err := hr.ReadBytes(int(n))
			if err != nil {
				break
			}
			h.objects[index] = data
		}
		hr.Skip(int64(pad))
		used += objHeader + n + pad
	}
	return h, nil
}

// GetObject returns a copy of object index.
func (h *GlobalHeap) GetObject(index uint16) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("nil global heap")
	}
	data, ok := h.objects[index]
	if !ok {
		return nil, fmt.Errorf("object index %d not found in global heap", index)
	}
	return append([]byte(nil), data...), nil
}

// ParseGlobalHeapID decodes a little-endian heap ID with offsetSize-byte
// addresses.
func ParseGlobalHeapID(data []byte, offsetSize int) (GlobalHeapID, error) {
	switch offsetSize {
	case 2, 4, 8:
	default:
		return GlobalHeapID{}, fmt.Errorf("unsupported offset size: %d", offsetSize)
	}
	if len(data) < offsetSize+4 {
		return GlobalHeapID{}, fmt.Errorf("global heap ID too short: need %d bytes, have %d", offsetSize+4, len(data))
	}
	var id GlobalHeapID
	for i := offsetSize - 1; i >= 0; i-- {
		id.CollectionAddress = id.CollectionAddress<<8 | uint64(data[i])
	}
	for i := offsetSize + 3; i >= offsetSize; i-- {
		id.ObjectIndex = id.ObjectIndex<<8 | uint32(data[i])
	}
	return id, nil
}
