package btree

import (
	"encoding/binary"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// ChunkEntry locates one stored chunk.
type ChunkEntry struct {
	// Offset is the chunk's first element in dataset coordinates.
	Offset []uint64

	// FilterMask has bit i set when filter i was skipped for this chunk.
	FilterMask uint32

	// Size is the stored, possibly filtered, byte count. Zero means a full
	// unfiltered chunk.
	Size uint32

	Address uint64
}

// ChunkIndex lists the allocated chunks of a dataset.
type ChunkIndex struct {
	NDims   int
	Entries []ChunkEntry
}

// ReadChunkIndex collects the chunks of a version 1 chunk B-tree. Keys hold
// ndims+1 offsets; the last is the element-size dimension and is dropped.
func ReadChunkIndex(r *binpkg.Reader, addr uint64, ndims int) (*ChunkIndex, error) {
	idx := &ChunkIndex{NDims: ndims}
	keySize := 8 + 8*(ndims+1)
	err := walkV1(r, addr, nodeChunk, keySize, 0, func(key []byte, child uint64) error {
		size := binary.LittleEndian.Uint32(key)
		if size == 0 || r.IsUndefinedOffset(child) {
			return nil
		}
		offset := make([]uint64, ndims)
		for d := range offset {
			offset[d] = binary.LittleEndian.Uint64(key[8+8*d:])
		}
		idx.Entries = append(idx.Entries, ChunkEntry{
			Offset:     offset,
			FilterMask: binary.LittleEndian.Uint32(key[4:]),
			Size:       size,
			Address:    child,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}
