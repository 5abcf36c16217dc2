package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Contiguous holds data stored as one block in the file.
type Contiguous struct {
	address   uint64
	size      uint64
	dataspace *message.Dataspace
	datatype  *message.Datatype
	reader    *binary.Reader
}

// NewContiguous returns a reader for the block at the layout's address. A
// zero size in the message is derived from the dataspace.
func NewContiguous(
	layout *message.DataLayout,
	dataspace *message.Dataspace,
	datatype *message.Datatype,
	reader *binary.Reader,
) *Contiguous {
	size := layout.Size
	if size == 0 {
		size = calculateDataSize(dataspace, datatype)
	}
	return &Contiguous{
		address:   layout.Address,
		size:      size,
		dataspace: dataspace,
		datatype:  datatype,
		reader:    reader,
	}
}

func (c *Contiguous) Class() message.LayoutClass {
	return message.LayoutContiguous
}

func (c *Contiguous) Read() ([]byte, error) {
	if c.reader.IsUndefinedOffset(c.address) {
		return nil, fmt.Errorf("contiguous data not allocated")
	}
	if c.size == 0 {
		return []byte{}, nil
	}
	data, err := c.reader.At(int64(c.address)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data: %w", err)
	}
	return data, nil
}

func (c *Contiguous) Address() uint64 { return c.address }

func (c *Contiguous) Size() uint64 { return c.size }

// StorageSize is zero until the block has been allocated.
func (c *Contiguous) StorageSize() (uint64, error) {
	if c.reader.IsUndefinedOffset(c.address) {
		return 0, nil
	}
	return c.size, nil
}

// maxSpanRead bounds the single read used to serve a hyperslab. Larger
// selections are read one innermost run at a time.
const maxSpanRead = 64 << 20

// ReadSlice reads a hyperslab from contiguous storage.
func (c *Contiguous) ReadSlice(start, count []uint64) ([]byte, error) {
	dims := c.dataspace.Dimensions
	if len(dims) == 0 {
		if len(start) == 0 && len(count) == 0 {
			return c.Read()
		}
		return nil, fmt.Errorf("cannot slice scalar dataset with non-empty start/count")
	}
	if err := checkSelection(dims, start, count); err != nil {
		return nil, err
	}
	total := product(count)
	if c.reader.IsUndefinedOffset(c.address) {
		return nil, fmt.Errorf("contiguous data not allocated")
	}

	elementSize := uint64(c.datatype.Size)
	if total == 0 {
		return []byte{}, nil
	}

	strides := make([]uint64, len(dims))
	strides[len(dims)-1] = elementSize
	for d := len(dims) - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * dims[d+1]
	}
	var first, last uint64
	for d := range dims {
		first += start[d] * strides[d]
		last += (start[d] + count[d] - 1) * strides[d]
	}
	last += elementSize

	run := count[len(dims)-1] * elementSize
	out := make([]byte, 0, total*elementSize)

	if last-first <= maxSpanRead {
		span, err := c.reader.At(int64(c.address + first)).ReadBytes(int(last - first))
		if err != nil {
			return nil, fmt.Errorf("reading contiguous data: %w", err)
		}
		forEachRun(strides, start, count, func(off uint64) error {
			out = append(out, span[off-first:off-first+run]...)
			return nil
		})
		return out, nil
	}

	err := forEachRun(strides, start, count, func(off uint64) error {
		buf, err := c.reader.At(int64(c.address + off)).ReadBytes(int(run))
		if err != nil {
			return fmt.Errorf("reading contiguous data: %w", err)
		}
		out = append(out, buf...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// forEachRun calls fn with the byte offset of every innermost-dimension run
// of the selection, in row-major order.
func forEachRun(strides, start, count []uint64, fn func(off uint64) error) error {
	inner := len(strides) - 1
	idx := make([]uint64, inner)
	for {
		off := start[inner] * strides[inner]
		for d := range idx {
			off += (start[d] + idx[d]) * strides[d]
		}
		if err := fn(off); err != nil {
			return err
		}

		d := inner - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return nil
		}
	}
}
