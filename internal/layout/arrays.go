package layout

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/btree"
)

// filteredClient is the array client ID for chunks that went through a
// filter pipeline; their entries carry a size and a filter mask.
const filteredClient = 1

// scanner reads a run of index fields and keeps the first error.
type scanner struct {
	r   *binary.Reader
	err error
}

func (c *Chunked) scan(addr uint64) *scanner {
	return &scanner{r: c.reader.At(int64(addr))}
}

func (s *scanner) bytes(n int) []byte {
	if s.err != nil {
		return nil
	}
	b, err := s.r.ReadBytes(n)
	s.err = err
	return b
}

func (s *scanner) uint(n int) uint64 {
	if s.err != nil || n <= 0 {
		return 0
	}
	v, err := s.r.ReadUintN(n)
	s.err = err
	return v
}

func (s *scanner) u8() uint8      { return uint8(s.uint(1)) }
func (s *scanner) offset() uint64 { return s.uint(s.r.OffsetSize()) }
func (s *scanner) length() uint64 { return s.uint(s.r.LengthSize()) }
func (s *scanner) skip(n uint64)  { s.r.Skip(int64(n)) }
func (s *scanner) failed() bool   { return s.err != nil }

func (s *scanner) addrs(n uint64) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = s.offset()
	}
	return out
}

// prefix checks a block's signature and version 0, then skips the client
// ID and the header back-pointer.
func (s *scanner) prefix(sig string) {
	got := s.bytes(len(sig))
	if s.err == nil && string(got) != sig {
		s.err = fmt.Errorf("bad signature %q, want %q", got, sig)
		return
	}
	if v := s.u8(); s.err == nil && v != 0 {
		s.err = fmt.Errorf("%s version %d not supported", sig, v)
	}
	s.u8()
	s.offset()
}

// linearizer maps an array element index to a chunk origin. Chunks are
// numbered row-major over the maximum extents, with the unlimited axis,
// when there is one, moved to the front.
type linearizer struct {
	order     []int
	down      []uint64
	chunkDims []uint64
	dims      []uint64
}

func (c *Chunked) newLinearizer(dims, chunkDims []uint64, unlimited int) linearizer {
	n := len(dims)
	order := make([]int, 0, n)
	if unlimited >= 0 {
		order = append(order, unlimited)
	}
	for d := 0; d < n; d++ {
		if d != unlimited {
			order = append(order, d)
		}
	}

	maxDims := c.maxDims(dims)
	down := make([]uint64, n)
	step := uint64(1)
	for i := n - 1; i >= 0; i-- {
		down[i] = step
		axis := order[i]
		extent := maxDims[axis]
		if axis == unlimited || c.reader.IsUndefinedOffset(extent) {
			extent = dims[axis]
		}
		step *= max(1, (extent+chunkDims[axis]-1)/chunkDims[axis])
	}
	return linearizer{order: order, down: down, chunkDims: chunkDims, dims: dims}
}

// origin returns the origin of chunk i, or false when it lies outside the
// current extents.
func (l linearizer) origin(i uint64) ([]uint64, bool) {
	out := make([]uint64, len(l.order))
	for p, axis := range l.order {
		out[axis] = i / l.down[p] * l.chunkDims[axis]
		i %= l.down[p]
		if out[axis] >= l.dims[axis] {
			return nil, false
		}
	}
	return out, true
}

// readEntries decodes n array elements numbered from first.
func (c *Chunked) readEntries(s *scanner, filtered bool, elemSize int, first, n uint64, lin linearizer, out []btree.ChunkEntry) []btree.ChunkEntry {
	sizeWidth := elemSize - c.reader.OffsetSize() - 4
	for i := uint64(0); i < n && !s.failed(); i++ {
		e := btree.ChunkEntry{Address: s.offset()}
		if filtered {
			e.Size = uint32(s.uint(sizeWidth))
			e.FilterMask = uint32(s.uint(4))
		}
		if !allocated(e) {
			continue
		}
		if origin, ok := lin.origin(first + i); ok {
			e.Offset = origin
			out = append(out, e)
		}
	}
	return out
}

func pageSet(bitmap []byte, p uint64) bool {
	return bitmap == nil || bitmap[p/8]&(0x80>>(p%8)) != 0
}

// fixedArray reads a fixed array index: a header and one data block,
// split into pages when it holds more than 2^pageBits elements.
func (c *Chunked) fixedArray(lin linearizer) ([]btree.ChunkEntry, error) {
	h := c.scan(c.layout.ChunkIndexAddr)
	sig := h.bytes(4)
	if !h.failed() && string(sig) != "FAHD" {
		return nil, fmt.Errorf("bad signature %q, want \"FAHD\"", sig)
	}
	if v := h.u8(); !h.failed() && v != 0 {
		return nil, fmt.Errorf("fixed array version %d not supported", v)
	}
	filtered := h.u8() == filteredClient
	elemSize := int(h.u8())
	pageElems := uint64(1) << h.u8()
	n := h.length()
	block := h.offset()
	if h.failed() {
		return nil, h.err
	}

	s := c.scan(block)
	s.prefix("FADB")
	if n <= pageElems {
		entries := c.readEntries(s, filtered, elemSize, 0, n, lin, nil)
		return entries, s.err
	}

	pages := (n + pageElems - 1) / pageElems
	bitmap := s.bytes(int((pages + 7) / 8))
	s.skip(4)
	var entries []btree.ChunkEntry
	for p := uint64(0); p < pages && !s.failed(); p++ {
		count := min(pageElems, n-p*pageElems)
		if pageSet(bitmap, p) {
			entries = c.readEntries(s, filtered, elemSize, p*pageElems, count, lin, entries)
		} else {
			s.skip(count * uint64(elemSize))
		}
		s.skip(4)
	}
	return entries, s.err
}

// earray walks an extensible array: elements held in the index block, then
// data blocks reached directly from it or through super blocks.
type earray struct {
	c          *Chunked
	lin        linearizer
	filtered   bool
	elemSize   int
	dblkMin    uint64
	pageElems  uint64
	blkOffSize uint64
	entries    []btree.ChunkEntry
}

// super returns super block k's data block count and size, and the first
// element it covers past the index block.
func (a *earray) super(k int) (ndblks, dblkElems, first uint64) {
	for u := 0; u <= k; u++ {
		ndblks = 1 << (u / 2)
		dblkElems = (1 << ((u + 1) / 2)) * a.dblkMin
		if u < k {
			first += ndblks * dblkElems
		}
	}
	return ndblks, dblkElems, first
}

func log2(v uint64) int { return bits.Len64(v) - 1 }

func (c *Chunked) extensibleArray(lin linearizer) ([]btree.ChunkEntry, error) {
	h := c.scan(c.layout.ChunkIndexAddr)
	sig := h.bytes(4)
	if !h.failed() && string(sig) != "EAHD" {
		return nil, fmt.Errorf("bad signature %q, want \"EAHD\"", sig)
	}
	if v := h.u8(); !h.failed() && v != 0 {
		return nil, fmt.Errorf("extensible array version %d not supported", v)
	}
	a := &earray{c: c, lin: lin}
	a.filtered = h.u8() == filteredClient
	a.elemSize = int(h.u8())
	maxBits := int(h.u8())
	idxElems := uint64(h.u8())
	a.dblkMin = uint64(h.u8())
	sblkMinPtrs := uint64(h.u8())
	a.pageElems = uint64(1) << h.u8()
	for i := 0; i < 4; i++ {
		h.length()
	}
	total := h.length()
	h.length()
	iblock := h.offset()
	if h.failed() {
		return nil, h.err
	}
	if a.dblkMin == 0 || sblkMinPtrs == 0 {
		return nil, fmt.Errorf("invalid extensible array parameters")
	}
	if c.reader.IsUndefinedOffset(iblock) {
		return nil, nil
	}
	a.blkOffSize = uint64(maxBits+7) / 8

	nsblks := 1 + maxBits - log2(a.dblkMin)
	inIndex := 2 * log2(sblkMinPtrs)

	s := c.scan(iblock)
	s.prefix("EAIB")
	a.entries = c.readEntries(s, a.filtered, a.elemSize, 0, idxElems, lin, nil)
	dblks := s.addrs(2 * (sblkMinPtrs - 1))
	sblks := s.addrs(uint64(max(0, nsblks-inIndex)))
	if s.failed() {
		return nil, s.err
	}

	next := 0
	for k := 0; k < nsblks; k++ {
		ndblks, dblkElems, first := a.super(k)
		first += idxElems
		if first >= total {
			break
		}
		if k < inIndex {
			for d := uint64(0); d < ndblks && next < len(dblks); d++ {
				if err := a.dataBlock(dblks[next], first+d*dblkElems, dblkElems, nil); err != nil {
					return nil, err
				}
				next++
			}
			continue
		}
		if err := a.superBlock(sblks[k-inIndex], ndblks, dblkElems, first); err != nil {
			return nil, err
		}
	}
	return a.entries, nil
}

func (a *earray) superBlock(addr, ndblks, dblkElems, first uint64) error {
	if addr == 0 || a.c.reader.IsUndefinedOffset(addr) {
		return nil
	}
	s := a.c.scan(addr)
	s.prefix("EASB")
	s.skip(a.blkOffSize)

	var bitmaps []byte
	var per uint64
	if dblkElems > a.pageElems {
		per = (dblkElems/a.pageElems + 7) / 8
		bitmaps = s.bytes(int(ndblks * per))
	}
	dblks := s.addrs(ndblks)
	if s.failed() {
		return fmt.Errorf("reading super block: %w", s.err)
	}
	for d, dblk := range dblks {
		var bitmap []byte
		if bitmaps != nil {
			bitmap = bitmaps[uint64(d)*per : uint64(d+1)*per]
		}
		if err := a.dataBlock(dblk, first+uint64(d)*dblkElems, dblkElems, bitmap); err != nil {
			return err
		}
	}
	return nil
}

func (a *earray) dataBlock(addr, first, n uint64, bitmap []byte) error {
	if addr == 0 || a.c.reader.IsUndefinedOffset(addr) {
		return nil
	}
	s := a.c.scan(addr)
	s.prefix("EADB")
	s.skip(a.blkOffSize)
	if n <= a.pageElems {
		a.entries = a.c.readEntries(s, a.filtered, a.elemSize, first, n, a.lin, a.entries)
	} else {
		s.skip(4)
		for p := uint64(0); p*a.pageElems < n && !s.failed(); p++ {
			if pageSet(bitmap, p) {
				a.entries = a.c.readEntries(s, a.filtered, a.elemSize, first+p*a.pageElems, a.pageElems, a.lin, a.entries)
			} else {
				s.skip(a.pageElems * uint64(a.elemSize))
			}
			s.skip(4)
		}
	}
	if s.failed() {
		return fmt.Errorf("reading data block: %w", s.err)
	}
	return nil
}
