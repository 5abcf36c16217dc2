package btree

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Version 2 B-tree record types for chunk indexes.
const (
	recordChunk         uint8 = 10
	recordFilteredChunk uint8 = 11
)

// nodePrefix is the signature, version, type and checksum every v2 node
// carries besides its records.
const nodePrefix = 10

// v2Tree holds what is needed to decode nodes of one "BTHD" tree.
type v2Tree struct {
	r         *binpkg.Reader
	typ       uint8
	nodeSize  int
	recSize   int
	chunkDims []uint64

	// nrecSize is the width of a child's record count; cumSize[d] the width
	// of the subtree total stored in pointers to nodes at depth d.
	nrecSize int
	cumSize  []int
}

func countWidth(n uint64) int {
	return max(bits.Len64(n)-1, 0)/8 + 1
}

// ReadChunkIndexV2 collects the chunks of a version 2 B-tree chunk index.
// Records hold scaled offsets, which are multiplied back out by chunkDims.
func ReadChunkIndexV2(r *binpkg.Reader, addr uint64, chunkDims []uint64) (*ChunkIndex, error) {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree v2 header: %w", err)
	}
	if string(head[:4]) != "BTHD" {
		return nil, fmt.Errorf("invalid B-tree v2 signature: %q (expected BTHD)", head[:4])
	}
	if head[4] != 0 {
		return nil, fmt.Errorf("unsupported B-tree v2 version: %d", head[4])
	}
	t := &v2Tree{
		r:         r,
		typ:       head[5],
		nodeSize:  int(binary.LittleEndian.Uint32(head[6:])),
		recSize:   int(binary.LittleEndian.Uint16(head[10:])),
		chunkDims: chunkDims,
	}
	depth := int(binary.LittleEndian.Uint16(head[12:]))
	if t.typ != recordChunk && t.typ != recordFilteredChunk {
		return nil, fmt.Errorf("unexpected B-tree v2 type: %d (expected 10 or 11 for chunks)", t.typ)
	}
	if t.recSize == 0 || t.nodeSize <= nodePrefix || depth > maxDepth {
		return nil, fmt.Errorf("invalid B-tree v2 geometry")
	}

	root, err := nr.ReadOffset()
	if err != nil {
		return nil, err
	}
	rootRecords, err := nr.ReadUint16()
	if err != nil {
		return nil, err
	}
	total, err := nr.ReadLength()
	if err != nil {
		return nil, err
	}

	idx := &ChunkIndex{NDims: len(chunkDims)}
	if total == 0 || r.IsUndefinedOffset(root) {
		return idx, nil
	}
	t.layout(depth)
	if err := t.node(root, int(rootRecords), depth, &idx.Entries); err != nil {
		return nil, err
	}
	return idx, nil
}

// layout derives the pointer field widths from the node and record sizes.
func (t *v2Tree) layout(depth int) {
	leafMax := uint64((t.nodeSize - nodePrefix) / t.recSize)
	t.nrecSize = countWidth(leafMax)
	t.cumSize = []int{0}
	cum := leafMax
	for d := 1; d <= depth; d++ {
		ptr := t.pointerSize(d)
		n := uint64(max((t.nodeSize-nodePrefix-ptr)/(t.recSize+ptr), 0))
		cum = (n+1)*cum + n
		t.cumSize = append(t.cumSize, countWidth(cum))
	}
}

// pointerSize is the width of a child pointer in a node at depth d.
func (t *v2Tree) pointerSize(d int) int {
	size := t.r.OffsetSize() + t.nrecSize
	if d > 1 {
		size += t.cumSize[d-1]
	}
	return size
}

// node reads a leaf ("BTLF") at depth 0 or an internal node ("BTIN"),
// whose records all come before its nrec+1 child pointers.
func (t *v2Tree) node(addr uint64, nrec, depth int, out *[]ChunkEntry) error {
	buf, err := t.r.At(int64(addr)).ReadBytes(t.nodeSize)
	if err != nil {
		return fmt.Errorf("reading B-tree v2 node at %d: %w", addr, err)
	}
	sig := "BTLF"
	if depth > 0 {
		sig = "BTIN"
	}
	if string(buf[:4]) != sig {
		return fmt.Errorf("invalid B-tree v2 node signature: %q (expected %s)", buf[:4], sig)
	}
	if buf[4] != 0 {
		return fmt.Errorf("unsupported B-tree v2 node version: %d", buf[4])
	}

	pos := 6
	end := pos + nrec*t.recSize
	if depth > 0 {
		end += (nrec + 1) * t.pointerSize(depth)
	}
	if end > len(buf) {
		return fmt.Errorf("B-tree v2 node at %d overflows: %d records", addr, nrec)
	}

	emit := func(i int) {
		at := pos + i*t.recSize
		if e, ok := t.record(buf[at : at+t.recSize]); ok {
			*out = append(*out, e)
		}
	}
	if depth == 0 {
		for i := 0; i < nrec; i++ {
			emit(i)
		}
		return nil
	}

	// child i holds the records ordered before record i
	ptrs := pos + nrec*t.recSize
	osz := t.r.OffsetSize()
	for i := 0; i <= nrec; i++ {
		child := t.r.Uint(buf[ptrs : ptrs+osz])
		count := t.r.Uint(buf[ptrs+osz : ptrs+osz+t.nrecSize])
		ptrs += t.pointerSize(depth)
		if err := t.node(child, int(count), depth-1, out); err != nil {
			return err
		}
		if i < nrec {
			emit(i)
		}
	}
	return nil
}

// record decodes a chunk record: the address, for filtered chunks the
// stored size and filter mask, then one 8-byte scaled offset per axis.
func (t *v2Tree) record(rec []byte) (ChunkEntry, bool) {
	osz := t.r.OffsetSize()
	e := ChunkEntry{Address: t.r.Uint(rec[:osz])}
	pos := osz
	if t.typ == recordFilteredChunk {
		width := t.recSize - osz - 4 - 8*len(t.chunkDims)
		if width <= 0 {
			return e, false
		}
		e.Size = uint32(t.r.Uint(rec[pos : pos+width]))
		pos += width
		e.FilterMask = binary.LittleEndian.Uint32(rec[pos:])
		pos += 4
	}
	if pos+8*len(t.chunkDims) > len(rec) || e.Address == 0 || t.r.IsUndefinedOffset(e.Address) {
		return e, false
	}
	e.Offset = make([]uint64, len(t.chunkDims))
	for d := range e.Offset {
		e.Offset[d] = binary.LittleEndian.Uint64(rec[pos+8*d:]) * t.chunkDims[d]
	}
	return e, true
}
