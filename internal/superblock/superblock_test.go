package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

const undef = ^uint64(0)

func le(buf *bytes.Buffer, vals ...interface{}) {
	for _, v := range vals {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

func v0Block(version uint8, cache uint32) []byte {
	var b bytes.Buffer
	b.Write(Signature)
	b.WriteByte(version)
	b.Write([]byte{0, 0, 0, 0, 8, 8, 0})
	le(&b, uint16(4), uint16(16), uint32(0))
	if version == 1 {
		le(&b, uint16(32), uint16(0))
	}
	le(&b, uint64(0), undef, uint64(0x1000), undef)
	le(&b, uint64(0), uint64(0x60), cache, uint32(0), uint64(0x88), uint64(0x2a8))
	return b.Bytes()
}

func v2Block(version uint8) []byte {
	var b bytes.Buffer
	b.Write(Signature)
	b.Write([]byte{version, 8, 8, 0})
	le(&b, uint64(0), undef, uint64(0x2000), uint64(0x30))
	le(&b, binpkg.Lookup3Checksum(b.Bytes()))
	return b.Bytes()
}

func TestReadV0(t *testing.T) {
	sb, err := Read(bytesReaderAt(v0Block(0, cacheSymbolTable)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := Superblock{
		OffsetSize:                8,
		LengthSize:                8,
		EOFAddress:                0x1000,
		RootGroupAddress:          0x60,
		GroupLeafK:                4,
		GroupInternalK:            16,
		RootGroupBTreeAddress:     0x88,
		RootGroupLocalHeapAddress: 0x2a8,
		ByteOrder:                 binary.LittleEndian,
	}
	if *sb != want {
		t.Errorf("got %+v\nwant %+v", *sb, want)
	}
	if cfg := sb.ReaderConfig(); cfg.OffsetSize != 8 || cfg.LengthSize != 8 {
		t.Errorf("ReaderConfig = %+v", cfg)
	}
}

func TestReadV1(t *testing.T) {
	sb, err := Read(bytesReaderAt(v0Block(1, 0)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sb.Version != 1 || sb.IndexedStorageK != 32 || sb.RootGroupAddress != 0x60 {
		t.Errorf("got %+v", sb)
	}
	if sb.RootGroupBTreeAddress != 0 {
		t.Error("scratch pad read without a symbol table cache type")
	}
}

func TestReadV2AfterUserBlock(t *testing.T) {
	file := append(make([]byte, 512), v2Block(3)...)
	sb, err := Read(bytesReaderAt(file))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if sb.Version != 3 || sb.FileOffset != 512 {
		t.Errorf("version %d at %d", sb.Version, sb.FileOffset)
	}
	if sb.RootGroupAddress != 0x30 || sb.EOFAddress != 0x2000 || sb.ExtensionAddress != undef {
		t.Errorf("addresses = %+v", sb)
	}
}

func TestReadRejects(t *testing.T) {
	if _, err := Read(make(bytesReaderAt, 4096)); !errors.Is(err, ErrNotHDF5) {
		t.Errorf("no signature: got %v", err)
	}
	if _, err := Read(bytesReaderAt("short")); !errors.Is(err, ErrNotHDF5) {
		t.Errorf("short file: got %v", err)
	}

	bad := v2Block(2)
	bad[9] = 3
	if _, err := Read(bytesReaderAt(bad)); !errors.Is(err, ErrInvalidSuperblock) {
		t.Errorf("offset size 3: got %v", err)
	}

	corrupt := v2Block(2)
	corrupt[20] ^= 0xFF
	if _, err := Read(bytesReaderAt(corrupt)); !errors.Is(err, ErrInvalidSuperblock) {
		t.Errorf("checksum: got %v", err)
	}

	future := v2Block(2)
	future[8] = 9
	if _, err := Read(bytesReaderAt(future)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("version 9: got %v", err)
	}

	truncated := v0Block(0, 0)[:40]
	if _, err := Read(bytesReaderAt(truncated)); err == nil {
		t.Error("expected error for truncated superblock")
	}
}

func TestReaderConfigByteOrder(t *testing.T) {
	var zero Superblock
	if cfg := zero.ReaderConfig(); cfg.ByteOrder != binary.LittleEndian {
		t.Errorf("unset ByteOrder gave %v", cfg.ByteOrder)
	}

	for _, block := range [][]byte{v0Block(0, 0), v2Block(2)} {
		sb, err := Read(bytesReaderAt(block))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if sb.ByteOrder != binary.LittleEndian {
			t.Errorf("version %d ByteOrder = %v", sb.Version, sb.ByteOrder)
		}
	}
}
