package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/message"
)

// Compact holds data stored inside the object header.
type Compact struct {
	data      []byte
	dataspace *message.Dataspace
	datatype  *message.Datatype
}

func NewCompact(layout *message.DataLayout, dataspace *message.Dataspace, datatype *message.Datatype) *Compact {
	return &Compact{data: layout.CompactData, dataspace: dataspace, datatype: datatype}
}

func (c *Compact) Class() message.LayoutClass {
	return message.LayoutCompact
}

// Read returns a copy of the stored bytes.
func (c *Compact) Read() ([]byte, error) {
	return append([]byte(nil), c.data...), nil
}

func (c *Compact) StorageSize() (uint64, error) {
	return uint64(len(c.data)), nil
}

func (c *Compact) ReadSlice(start, count []uint64) ([]byte, error) {
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
	return extractHyperslab(c.data, dims, start, count, uint64(c.datatype.Size)), nil
}
