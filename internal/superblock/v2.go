package superblock

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// readV2 parses versions 2 and 3, which share a layout: offset size,
// length size, flags, then the base, extension, EOF and root object header
// addresses, closed by a lookup3 checksum over everything before it.
func readV2(r io.ReaderAt, off int64) (*Superblock, error) {
	sizes := make([]byte, 3)
	if _, err := r.ReadAt(sizes, off+9); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb := &Superblock{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: sizes[0],
		LengthSize: sizes[1],
		Flags:      sizes[2],
	}
	if err := sb.checkSizes(); err != nil {
		return nil, err
	}

	body := 12 + 4*int(sb.OffsetSize)
	block := make([]byte, body+4)
	if _, err := r.ReadAt(block, off); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if binary.LittleEndian.Uint32(block[body:]) != binpkg.Lookup3Checksum(block[:body]) {
		return nil, fmt.Errorf("checksum mismatch: %w", ErrInvalidSuperblock)
	}

	br := binpkg.NewReader(bytes.NewReader(block), sb.ReaderConfig()).At(12)
	for _, dst := range []*uint64{&sb.BaseAddress, &sb.ExtensionAddress, &sb.EOFAddress, &sb.RootGroupAddress} {
		v, err := br.ReadOffset()
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return sb, nil
}
