package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Registered filter identifiers.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports whether the stage may be skipped when the filter is
// unavailable.
func (f *FilterInfo) IsOptional() bool {
	return f.Flags&0x01 != 0
}

// FilterPipeline lists filters in the order they were applied on write.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte, r *binpkg.Reader) (*FilterPipeline, error) {
	c := newCursor(data, r)
	fp := &FilterPipeline{Version: c.u8()}
	n := int(c.u8())
	if fp.Version == 1 {
		c.take(6)
	}
	if c.err != nil {
		return nil, fmt.Errorf("filter pipeline: %w", c.err)
	}

	fp.Filters = make([]FilterInfo, n)
	for i := range fp.Filters {
		f := &fp.Filters[i]
		f.ID = c.u16()
		// version 2 omits the name length for reserved IDs below 256
		var nameLen int
		if fp.Version == 1 || f.ID >= 256 {
			nameLen = int(c.u16())
		}
		f.Flags = c.u16()
		f.ClientData = make([]uint32, c.u16())
		if nameLen > 0 {
			if fp.Version == 1 {
				nameLen = (nameLen + 7) / 8 * 8
			}
			f.Name = c.name(nameLen)
		}
		for j := range f.ClientData {
			f.ClientData[j] = c.u32()
		}
		if fp.Version == 1 && len(f.ClientData)%2 != 0 {
			c.take(4)
		}
		if c.err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, c.err)
		}
	}
	return fp, nil
}
