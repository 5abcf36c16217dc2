package superblock

import (
	"encoding/binary"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Versions 0 and 1 after the version byte:
//
//	free-space version, root entry version, reserved, shared header version,
//	offset size, length size, reserved, leaf K (2), internal K (2), flags (4),
//	[v1: indexed storage K (2), reserved (2)],
//	base, free-space info, EOF, driver info addresses,
//	root group symbol table entry.
const v0FixedSize = 15

// cacheSymbolTable marks a symbol table entry whose scratch pad holds the
// group's B-tree and local heap addresses.
const cacheSymbolTable = 1

func readV0(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	fixed, err := binpkg.NewReader(r, binpkg.DefaultConfig()).At(off + 9).ReadBytes(v0FixedSize)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb := &Superblock{
		ByteOrder:      binary.LittleEndian,
		OffsetSize:     fixed[4],
		LengthSize:     fixed[5],
		GroupLeafK:     uint16(fixed[7]) | uint16(fixed[8])<<8,
		GroupInternalK: uint16(fixed[9]) | uint16(fixed[10])<<8,
	}
	if err := sb.checkSizes(); err != nil {
		return nil, err
	}

	br := binpkg.NewReader(r, sb.ReaderConfig()).At(off + 9 + v0FixedSize)
	if version == 1 {
		if sb.IndexedStorageK, err = br.ReadUint16(); err != nil {
			return nil, err
		}
		br.Skip(2)
	}

	if sb.BaseAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize))
	if sb.EOFAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	br.Skip(int64(sb.OffsetSize))

	// root group symbol table entry: link name offset, object header,
	// cache type, reserved, 16-byte scratch pad
	br.Skip(int64(sb.OffsetSize))
	if sb.RootGroupAddress, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	cache, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	br.Skip(4)
	if cache == cacheSymbolTable {
		if sb.RootGroupBTreeAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
		if sb.RootGroupLocalHeapAddress, err = br.ReadOffset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}
