package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Layout reads the raw bytes of a dataset in row-major order.
type Layout interface {
	// Read returns the whole dataset.
	Read() ([]byte, error)

	// ReadSlice returns the block of count elements per axis starting at
	// start.
	ReadSlice(start, count []uint64) ([]byte, error)

	Class() message.LayoutClass

	// StorageSize returns the bytes the data occupies in the file, which is
	// less than the logical size for filtered or sparse data.
	StorageSize() (uint64, error)
}

// New picks the reader for the layout message's storage class.
func New(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	filterPipeline *message.FilterPipeline,
	reader *binary.Reader,
) (Layout, error) {
	if layout == nil {
		return nil, fmt.Errorf("nil layout message")
	}

	switch layout.Class {
	case message.LayoutCompact:
		return NewCompact(layout, dataspace, datatype), nil
	case message.LayoutContiguous:
		return NewContiguous(layout, dataspace, datatype, reader), nil
	case message.LayoutChunked:
		return NewChunked(layout, dataspace, datatype, filterPipeline, reader)
	default:
		return nil, fmt.Errorf("unsupported layout class: %d", layout.Class)
	}
}

func calculateDataSize(dataspace *message.Dataspace, datatype *message.Datatype) uint64 {
	if dataspace == nil || datatype == nil {
		return 0
	}
	return dataspace.NumElements() * uint64(datatype.Size)
}

// checkSelection validates start and count against dims.
func checkSelection(dims, start, count []uint64) error {
	if len(start) != len(dims) || len(count) != len(dims) {
		return fmt.Errorf("start and count must have %d dimensions, got %d and %d",
			len(dims), len(start), len(count))
	}
	for d := range dims {
		if start[d]+count[d] > dims[d] {
			return fmt.Errorf("slice out of bounds: dimension %d, start=%d, count=%d, size=%d",
				d, start[d], count[d], dims[d])
		}
	}
	return nil
}

func product(v []uint64) uint64 {
	n := uint64(1)
	for _, x := range v {
		n *= x
	}
	return n
}

// grid is a row-major block of elements whose first element sits at origin
// in dataset coordinates.
type grid struct {
	data   []byte
	origin []uint64
	dims   []uint64
}

func (g grid) offset(pos []uint64, elem uint64) uint64 {
	var off uint64
	stride := elem
	for d := len(pos) - 1; d >= 0; d-- {
		off += (pos[d] - g.origin[d]) * stride
		stride *= g.dims[d]
	}
	return off
}

// copyRegion copies the elements in [lo, hi) from src to dst. Both grids
// must contain the region.
func copyRegion(dst, src grid, lo, hi []uint64, elem uint64) {
	n := len(lo)
	for d := range lo {
		if hi[d] <= lo[d] {
			return
		}
	}
	run := (hi[n-1] - lo[n-1]) * elem
	pos := append([]uint64(nil), lo...)
	for {
		do, so := dst.offset(pos, elem), src.offset(pos, elem)
		if do+run <= uint64(len(dst.data)) && so+run <= uint64(len(src.data)) {
			copy(dst.data[do:do+run], src.data[so:so+run])
		}

		d := n - 2
		for ; d >= 0; d-- {
			pos[d]++
			if pos[d] < hi[d] {
				break
			}
			pos[d] = lo[d]
		}
		if d < 0 {
			return
		}
	}
}

// extractHyperslab cuts the selection out of a fully read dataset.
func extractHyperslab(data []byte, dims, start, count []uint64, elem uint64) []byte {
	out := make([]byte, product(count)*elem)
	hi := make([]uint64, len(dims))
	for d := range dims {
		hi[d] = start[d] + count[d]
	}
	copyRegion(grid{out, start, count}, grid{data, make([]uint64, len(dims)), dims}, start, hi, elem)
	return out
}
