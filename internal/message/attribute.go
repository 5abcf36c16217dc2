package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Attribute is an attribute message. Datatype or Dataspace is nil when
// its encoding could not be decoded; the attribute is still listed.
type Attribute struct {
	Version   uint8
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

// Version 1 pads name, datatype and dataspace to 8 bytes. Version 3 adds
// a name encoding byte after the sizes.
func parseAttribute(data []byte, r *binpkg.Reader) (*Attribute, error) {
	c := newCursor(data, r)
	a := &Attribute{Version: c.u8()}
	if a.Version < 1 || a.Version > 3 {
		return nil, fmt.Errorf("unsupported attribute version: %d", a.Version)
	}
	c.u8() // reserved in v1, flags after
	nameSize := int(c.u16())
	dtSize := int(c.u16())
	dsSize := int(c.u16())
	if a.Version == 3 {
		c.u8()
	}

	field := func(n int) []byte {
		b := c.take(n)
		if a.Version == 1 {
			c.align8()
		}
		return b
	}
	a.Name = cstring(field(nameSize))
	dtBytes := field(dtSize)
	dsBytes := field(dsSize)
	if c.err != nil {
		return nil, fmt.Errorf("attribute %q: %w", a.Name, c.err)
	}

	a.Datatype, _ = parseDatatype(dtBytes, r)
	a.Dataspace, _ = parseDataspace(dsBytes, r)
	if rest := c.rest(); len(rest) > 0 {
		a.Data = append([]byte(nil), rest...)
	}
	return a, nil
}
