package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/btree"
	"github.com/robert-malhotra/h5view/internal/filter"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Chunked holds data split into equal chunks found through an index.
type Chunked struct {
	layout    *message.DataLayout
	dataspace *message.Dataspace
	datatype  *message.Datatype
	pipeline  *filter.Pipeline
	reader    *binary.Reader
}

type indexKind uint8

const (
	indexSingle indexKind = iota
	indexBTreeV1
	indexFixedArray
	indexExtensibleArray
	indexBTreeV2
)

func NewChunked(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	filterPipeline *message.FilterPipeline,
	reader *binary.Reader,
) (*Chunked, error) {
	var pipeline *filter.Pipeline
	if filterPipeline != nil {
		p, err := filter.NewPipeline(filterPipeline)
		if err != nil {
			return nil, fmt.Errorf("creating filter pipeline: %w", err)
		}
		pipeline = p
	}
	return &Chunked{
		layout:    layout,
		dataspace: dataspace,
		datatype:  datatype,
		pipeline:  pipeline,
		reader:    reader,
	}, nil
}

func (c *Chunked) Class() message.LayoutClass {
	return message.LayoutChunked
}

// Read assembles every allocated chunk. Unallocated chunks read as zero.
func (c *Chunked) Read() ([]byte, error) {
	dims, _, err := c.shapes()
	if err != nil {
		return nil, err
	}
	if calculateDataSize(c.dataspace, c.datatype) == 0 {
		return nil, nil
	}
	return c.read(make([]uint64, len(dims)), dims)
}

// ReadSlice decodes only the chunks that intersect the selection.
func (c *Chunked) ReadSlice(start, count []uint64) ([]byte, error) {
	dims, _, err := c.shapes()
	if err != nil {
		return nil, err
	}
	if err := checkSelection(dims, start, count); err != nil {
		return nil, err
	}
	return c.read(start, count)
}

func (c *Chunked) read(start, count []uint64) ([]byte, error) {
	dims, chunkDims, err := c.shapes()
	if err != nil {
		return nil, err
	}
	kind, err := c.indexKind()
	if err != nil {
		return nil, fmt.Errorf("detecting chunk index type: %w", err)
	}

	elem := uint64(c.datatype.Size)
	out := grid{make([]byte, product(count)*elem), start, count}
	hi := make([]uint64, len(dims))
	for d := range dims {
		hi[d] = start[d] + count[d]
	}

	if kind == indexSingle {
		data, err := c.readSingleChunk(calculateDataSize(c.dataspace, c.datatype))
		if err != nil {
			return nil, err
		}
		copyRegion(out, grid{data, make([]uint64, len(dims)), dims}, start, hi, elem)
		return out.data, nil
	}

	entries, err := c.entries(kind, dims, chunkDims)
	if err != nil {
		return nil, err
	}
	full := product(chunkDims) * elem
	for _, entry := range entries {
		if !allocated(entry) || len(entry.Offset) < len(dims) {
			continue
		}
		lo, top, ok := intersect(entry.Offset, chunkDims, start, hi)
		if !ok {
			continue
		}
		data, err := c.decodeChunk(entry, full)
		if err != nil {
			return nil, err
		}
		copyRegion(out, grid{data, entry.Offset[:len(dims)], chunkDims}, lo, top, elem)
	}
	return out.data, nil
}

// intersect clips a chunk to the selection [start, hi).
func intersect(origin, chunkDims, start, hi []uint64) (lo, top []uint64, ok bool) {
	lo = make([]uint64, len(chunkDims))
	top = make([]uint64, len(chunkDims))
	for d := range chunkDims {
		lo[d] = max(origin[d], start[d])
		top[d] = min(origin[d]+chunkDims[d], hi[d])
		if lo[d] >= top[d] {
			return nil, nil, false
		}
	}
	return lo, top, true
}

// ChunkShape returns the chunk extents trimmed to the dataset rank.
func (c *Chunked) ChunkShape() []uint64 {
	_, chunkDims, err := c.shapes()
	if err != nil {
		return nil
	}
	return chunkDims
}

// StorageSize sums the on-disk size of the allocated chunks.
func (c *Chunked) StorageSize() (uint64, error) {
	dims, chunkDims, err := c.shapes()
	if err != nil {
		return 0, err
	}
	kind, err := c.indexKind()
	if err != nil {
		return 0, fmt.Errorf("detecting chunk index type: %w", err)
	}
	if kind == indexSingle {
		switch {
		case c.layout.FilteredChunkSize > 0:
			return c.layout.FilteredChunkSize, nil
		case c.reader.IsUndefinedOffset(c.layout.ChunkIndexAddr):
			return 0, nil
		}
		return calculateDataSize(c.dataspace, c.datatype), nil
	}

	entries, err := c.entries(kind, dims, chunkDims)
	if err != nil {
		return 0, err
	}
	full := product(chunkDims) * uint64(c.datatype.Size)
	var total uint64
	for _, entry := range entries {
		switch {
		case !allocated(entry):
		case entry.Size == 0:
			total += full
		default:
			total += uint64(entry.Size)
		}
	}
	return total, nil
}

// shapes returns the dataset extents and the chunk extents without the
// trailing element-size dimension. A scalar reads as one element.
func (c *Chunked) shapes() ([]uint64, []uint64, error) {
	dims := c.dataspace.Dimensions
	if len(dims) == 0 {
		dims = []uint64{1}
	}
	if len(c.layout.ChunkDims) == 0 {
		return nil, nil, fmt.Errorf("chunked layout has no chunk dimensions")
	}
	chunkDims := make([]uint64, min(len(dims), len(c.layout.ChunkDims)))
	for d := range chunkDims {
		if c.layout.ChunkDims[d] == 0 {
			return nil, nil, fmt.Errorf("chunk dimension %d is zero", d)
		}
		chunkDims[d] = uint64(c.layout.ChunkDims[d])
	}
	if len(chunkDims) < len(dims) {
		return nil, nil, fmt.Errorf("chunk rank %d below dataset rank %d", len(chunkDims), len(dims))
	}
	return dims, chunkDims, nil
}

// maxDims returns the dataset's maximum extents, falling back to the
// current ones when the dataspace carries none.
func (c *Chunked) maxDims(dims []uint64) []uint64 {
	if len(c.dataspace.MaxDims) != len(dims) {
		return dims
	}
	return c.dataspace.MaxDims
}

func (c *Chunked) entries(kind indexKind, dims, chunkDims []uint64) ([]btree.ChunkEntry, error) {
	switch kind {
	case indexBTreeV1:
		idx, err := btree.ReadChunkIndex(c.reader, c.layout.ChunkIndexAddr, len(dims))
		if err != nil {
			return nil, fmt.Errorf("reading chunk index: %w", err)
		}
		return idx.Entries, nil
	case indexBTreeV2:
		idx, err := btree.ReadChunkIndexV2(c.reader, c.layout.ChunkIndexAddr, chunkDims)
		if err != nil {
			return nil, fmt.Errorf("reading B-tree v2 chunk index: %w", err)
		}
		return idx.Entries, nil
	case indexFixedArray:
		entries, err := c.fixedArray(c.newLinearizer(dims, chunkDims, -1))
		if err != nil {
			return nil, fmt.Errorf("reading fixed array index: %w", err)
		}
		return entries, nil
	case indexExtensibleArray:
		entries, err := c.extensibleArray(c.newLinearizer(dims, chunkDims, c.unlimitedAxis()))
		if err != nil {
			return nil, fmt.Errorf("reading extensible array index: %w", err)
		}
		return entries, nil
	}
	return nil, fmt.Errorf("unsupported chunk index %d", kind)
}

func (c *Chunked) unlimitedAxis() int {
	for d, m := range c.dataspace.MaxDims {
		if c.reader.IsUndefinedOffset(m) {
			return d
		}
	}
	return 0
}

// decodeChunk reads a chunk and undoes its filters. Entries without a
// recorded size span a full unfiltered chunk.
func (c *Chunked) decodeChunk(entry btree.ChunkEntry, full uint64) ([]byte, error) {
	size := uint64(entry.Size)
	if size == 0 {
		size = full
	}
	data, err := c.reader.At(int64(entry.Address)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading chunk at offset %v: %w", entry.Offset, err)
	}
	if c.pipeline != nil && !c.pipeline.Empty() {
		data, err = c.pipeline.Decode(data, entry.FilterMask)
		if err != nil {
			return nil, fmt.Errorf("decoding chunk at offset %v: %w", entry.Offset, err)
		}
	}
	return data, nil
}

func allocated(entry btree.ChunkEntry) bool {
	return entry.Address != 0 && entry.Address != ^uint64(0)
}

// indexKind names the chunk index. A version 4 layout declares it; older
// ones are told apart by the signature at ChunkIndexAddr.
func (c *Chunked) indexKind() (indexKind, error) {
	switch c.layout.ChunkIndexType {
	case message.ChunkIndexSingleChunk:
		return indexSingle, nil
	case message.ChunkIndexImplicit:
		return 0, fmt.Errorf("implicit chunk index is not supported")
	case message.ChunkIndexFixedArray:
		return indexFixedArray, nil
	case message.ChunkIndexExtensibleArray:
		return indexExtensibleArray, nil
	case message.ChunkIndexBTreeV2:
		return indexBTreeV2, nil
	}

	addr := c.layout.ChunkIndexAddr
	if addr == 0 || c.reader.IsUndefinedOffset(addr) {
		return indexSingle, nil
	}
	sig, err := c.reader.At(int64(addr)).ReadBytes(4)
	if err != nil {
		return indexSingle, nil
	}
	switch string(sig) {
	case "TREE":
		return indexBTreeV1, nil
	case "FAHD":
		return indexFixedArray, nil
	case "EAHD":
		return indexExtensibleArray, nil
	case "BTHD":
		return indexBTreeV2, nil
	}
	return indexSingle, nil
}

// readSingleChunk reads a dataset stored as one chunk. A filtered chunk
// records its stored size; an unfiltered one spans size bytes.
func (c *Chunked) readSingleChunk(size uint64) ([]byte, error) {
	if c.layout.FilteredChunkSize > 0 {
		size = c.layout.FilteredChunkSize
	}
	data, err := c.reader.At(int64(c.layout.ChunkIndexAddr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading single chunk: %w", err)
	}
	if c.pipeline != nil && !c.pipeline.Empty() {
		data, err = c.pipeline.Decode(data, c.layout.FilterMask)
		if err != nil {
			return nil, fmt.Errorf("decoding single chunk: %w", err)
		}
	}
	return data, nil
}
