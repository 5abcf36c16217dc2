package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndexType is the chunk index declared by a version 4 layout.
// Older layouts leave it zero and always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

// DataLayout says where a dataset's raw data lives.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	CompactData []byte

	// contiguous
	Address uint64
	Size    uint64

	// ChunkDims has one entry per dataset axis plus a trailing entry for
	// the element size.
	ChunkDims      []uint32
	ChunkIndexAddr uint64
	ChunkIndexType ChunkIndexType

	// A filtered single chunk records its stored size and filter mask.
	FilteredChunkSize uint64
	FilterMask        uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	c := newCursor(data, r)
	l := &DataLayout{Version: c.u8()}

	switch l.Version {
	case 1, 2:
		parseLayoutV1(c, l)
	case 3, 4:
		l.Class = LayoutClass(c.u8())
		switch l.Class {
		case LayoutCompact:
			l.CompactData = append([]byte(nil), c.take(int(c.u16()))...)
		case LayoutContiguous:
			l.Address, l.Size = c.offset(), c.length()
		case LayoutChunked:
			if l.Version == 3 {
				parseChunkedV3(c, l)
			} else {
				parseChunkedV4(c, l)
			}
		case LayoutVirtual:
			return nil, fmt.Errorf("virtual dataset layout is not supported")
		}
	default:
		return nil, fmt.Errorf("unsupported data layout version: %d", l.Version)
	}
	if c.err != nil {
		return nil, fmt.Errorf("data layout v%d: %w", l.Version, c.err)
	}
	return l, nil
}

// Versions 1 and 2: rank(1) class(1) reserved(5), an address unless
// compact, then rank dimensions. A chunked layout's last dimension is the
// element size. Contiguous size is left for the reader to derive.
func parseLayoutV1(c *cursor, l *DataLayout) {
	rank := int(c.u8())
	l.Class = LayoutClass(c.u8())
	c.take(5)
	var addr uint64
	if l.Class != LayoutCompact {
		addr = c.offset()
	}
	dims := make([]uint32, rank)
	for i := range dims {
		dims[i] = c.u32()
	}
	switch l.Class {
	case LayoutCompact:
		l.CompactData = append([]byte(nil), c.take(int(c.u32()))...)
	case LayoutContiguous:
		l.Address = addr
	case LayoutChunked:
		l.ChunkIndexAddr = addr
		l.ChunkDims = dims
	}
}

func parseChunkedV3(c *cursor, l *DataLayout) {
	rank := int(c.u8())
	l.ChunkIndexAddr = c.offset()
	l.ChunkDims = make([]uint32, rank)
	for i := range l.ChunkDims {
		l.ChunkDims[i] = c.u32()
	}
}

func parseChunkedV4(c *cursor, l *DataLayout) {
	flags := c.u8()
	rank := int(c.u8())
	width := int(c.u8())
	l.ChunkDims = make([]uint32, rank)
	for i := range l.ChunkDims {
		l.ChunkDims[i] = uint32(c.uint(width))
	}
	l.ChunkIndexType = ChunkIndexType(c.u8())
	switch l.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if flags&0x02 != 0 {
			l.FilteredChunkSize = c.length()
			l.FilterMask = c.u32()
		}
	case ChunkIndexFixedArray:
		c.take(1) // page bits
	case ChunkIndexExtensibleArray:
		c.take(5)
	case ChunkIndexBTreeV2:
		c.take(6) // node size, split and merge percent
	}
	l.ChunkIndexAddr = c.offset()
}
