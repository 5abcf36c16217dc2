package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Signature opens every superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// searchOffsets are the places a superblock may start; anything before it
// is a user block.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// Superblock holds what the rest of the reader needs from the file's
// superblock. Addresses are relative to FileOffset.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8
	Flags      uint8

	BaseAddress      uint64
	ExtensionAddress uint64
	EOFAddress       uint64
	RootGroupAddress uint64

	// Version 0 and 1 only.
	GroupLeafK      uint16
	GroupInternalK  uint16
	IndexedStorageK uint16

	// Cached from the root symbol table entry's scratch pad when the
	// writer filled it in (version 0 and 1 only).
	RootGroupBTreeAddress     uint64
	RootGroupLocalHeapAddress uint64

	ByteOrder  binary.ByteOrder
	FileOffset int64
}

// Read finds the signature and parses the superblock behind it.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature))
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig, Signature) {
			continue
		}

		version, err := binpkg.NewReader(r, binpkg.DefaultConfig()).At(off + 8).ReadUint8()
		if err != nil {
			return nil, err
		}

		var sb *Superblock
		switch version {
		case 0, 1:
			sb, err = readV0(r, off, version)
		case 2, 3:
			sb, err = readV2(r, off)
		default:
			return nil, fmt.Errorf("version %d: %w", version, ErrUnsupportedVersion)
		}
		if err != nil {
			return nil, err
		}
		sb.Version = version
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// ReaderConfig returns the reader configuration for the rest of the file.
// Superblocks are always little-endian, which is also the default when
// ByteOrder is unset.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	order := sb.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	return binpkg.Config{
		ByteOrder:  order,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

func (sb *Superblock) checkSizes() error {
	for _, n := range []uint8{sb.OffsetSize, sb.LengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return fmt.Errorf("field size %d: %w", n, ErrInvalidSuperblock)
		}
	}
	return nil
}
