package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// DataspaceType is the dataspace class.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace is the shape of a dataset or attribute. MaxDims is nil when
// the message does not carry maximum dimensions.
type Dataspace struct {
	Version    uint8
	Rank       int
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements is 1 for a scalar, 0 for a null space and the product of
// the dimensions otherwise.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		if len(m.Dimensions) == 0 {
			return 0
		}
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

func (m *Dataspace) IsScalar() bool {
	return m.SpaceType == DataspaceScalar
}

func parseDataspace(data []byte, r *binpkg.Reader) (*Dataspace, error) {
	c := newCursor(data, r)
	ds := &Dataspace{Version: c.u8()}
	ds.Rank = int(c.u8())
	rank := ds.Rank
	flags := c.u8()
	kind := c.u8()
	if c.err != nil {
		return nil, fmt.Errorf("dataspace message: %w", c.err)
	}

	switch {
	case ds.Version >= 2:
		ds.SpaceType = DataspaceType(kind)
	case rank == 0:
		ds.SpaceType = DataspaceScalar
	default:
		ds.SpaceType = DataspaceSimple
		c.take(4) // v1 reserved
	}
	if ds.SpaceType != DataspaceSimple || rank == 0 {
		return ds, nil
	}

	ds.Dimensions = make([]uint64, rank)
	for i := range ds.Dimensions {
		ds.Dimensions[i] = c.length()
	}
	if flags&0x01 != 0 {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			ds.MaxDims[i] = c.length()
		}
	}
	if c.err != nil {
		return nil, fmt.Errorf("dataspace dimensions: %w", c.err)
	}
	return ds, nil
}
