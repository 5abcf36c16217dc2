package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/dtype"
	"github.com/robert-malhotra/h5view/internal/layout"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
)

// Dataset is an n-dimensional array of typed elements. Reads go through
// its storage layout, so nothing is loaded until asked for.
type Dataset struct {
	file   *File
	path   string
	header *object.Header
	space  *message.Dataspace
	elem   *message.Datatype
	store  layout.Layout
}

func newDataset(f *File, path string, h *object.Header) (*Dataset, error) {
	space, typ, lm := h.Dataspace(), h.Datatype(), h.DataLayout()
	switch {
	case space == nil:
		return nil, fmt.Errorf("%s: no dataspace message", path)
	case typ == nil:
		return nil, fmt.Errorf("%s: no datatype message", path)
	case lm == nil:
		return nil, fmt.Errorf("%s: no layout message", path)
	}
	store, err := layout.New(lm, space, typ, h.FilterPipeline(), f.reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Dataset{file: f, path: path, header: h, space: space, elem: typ, store: store}, nil
}

// Path is the path the dataset was opened under.
func (d *Dataset) Path() string { return d.path }

// Shape is nil for a scalar dataset.
func (d *Dataset) Shape() []uint64 {
	if d.space.IsScalar() {
		return nil
	}
	return d.space.Dimensions
}

// NumElements is the product of the shape, 1 for a scalar.
func (d *Dataset) NumElements() uint64 { return d.space.NumElements() }

// IsScalar reports whether the dataspace is scalar.
func (d *Dataset) IsScalar() bool { return d.space.IsScalar() }

// DtypeSize is the stored size of one element in bytes.
func (d *Dataset) DtypeSize() int { return int(d.elem.Size) }

// Datatype is the element type as stored in the file.
func (d *Dataset) Datatype() *message.Datatype { return d.elem }

// ChunkShape is nil unless the dataset is chunked.
func (d *Dataset) ChunkShape() []uint64 {
	if c, ok := d.store.(*layout.Chunked); ok {
		return c.ChunkShape()
	}
	return nil
}

// StorageSize reports the bytes allocated in the file, which compression
// and unwritten chunks can make smaller than the logical size.
func (d *Dataset) StorageSize() (uint64, error) {
	return d.store.StorageSize()
}

// Read decodes every element into dest; see dtype.ConvertWithReader for
// the destinations accepted.
func (d *Dataset) Read(dest interface{}) error {
	raw, err := d.store.Read()
	if err != nil {
		return fmt.Errorf("reading %s: %w", d.path, err)
	}
	return dtype.ConvertWithReader(d.elem, raw, d.space.NumElements(), dest, d.file.reader)
}

// ReadSliceRaw returns the raw element bytes of the hyperslab start/count
// in row-major order. A scalar dataset ignores the selection.
func (d *Dataset) ReadSliceRaw(start, count []uint64) ([]byte, error) {
	if d.space.IsScalar() {
		return d.store.Read()
	}
	raw, err := d.store.ReadSlice(start, count)
	if err != nil {
		return nil, fmt.Errorf("reading slice of %s: %w", d.path, err)
	}
	return raw, nil
}

// ReadSlice decodes the hyperslab start/count into dest.
func (d *Dataset) ReadSlice(start, count []uint64, dest interface{}) error {
	raw, err := d.ReadSliceRaw(start, count)
	if err != nil {
		return err
	}
	return dtype.ConvertWithReader(d.elem, raw, elements(count), dest, d.file.reader)
}

// ReadVarLen returns the bytes of each variable-length sequence in the
// hyperslab start/count. Variable-length strings are refused.
func (d *Dataset) ReadVarLen(start, count []uint64) ([][]byte, error) {
	if d.elem.Class != message.ClassVarLen || d.elem.IsVarLenString {
		return nil, fmt.Errorf("%s is not a variable-length sequence: %w", d.path, ErrUnsupported)
	}
	raw, err := d.ReadSliceRaw(start, count)
	if err != nil {
		return nil, err
	}
	return dtype.ReadVarLen(d.elem, raw, elements(count), d.file.reader)
}

// Attrs lists attribute names in storage order.
func (d *Dataset) Attrs() []string { return attrNames(d.header) }

// Attr returns nil when the dataset has no attribute called name.
func (d *Dataset) Attr(name string) *Attribute { return findAttr(d.header, name, d.file.reader) }

func elements(count []uint64) uint64 {
	n := uint64(1)
	for _, c := range count {
		n *= c
	}
	return n
}
