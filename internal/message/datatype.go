package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// DatatypeClass is the datatype class from the low nibble of the first byte.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

type CharacterSet uint8

const (
	CharsetASCII CharacterSet = 0
	CharsetUTF8  CharacterSet = 1
)

// Datatype is a decoded datatype message. Which fields are set depends
// on Class: Members for compounds, ArrayDims and BaseType for arrays,
// BaseType for enums, VarLenType for variable-length sequences.
type Datatype struct {
	Class     DatatypeClass
	Size      uint32
	ByteOrder ByteOrder
	Signed    bool

	StringPadding StringPadding
	CharSet       CharacterSet

	Members []CompoundMember

	ArrayDims []uint32
	BaseType  *Datatype

	VarLenType     *Datatype
	IsVarLenString bool

	// EnumNames lists enum member names in declaration order.
	EnumNames []string
}

// CompoundMember is one field of a compound datatype.
type CompoundMember struct {
	Name       string
	ByteOffset uint32
	Type       *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsString reports fixed-length and variable-length strings.
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || (m.Class == ClassVarLen && m.IsVarLenString)
}

func parseDatatype(data []byte, r *binpkg.Reader) (*Datatype, error) {
	dt, _, err := parseDatatypeWithSize(data, r)
	return dt, err
}

// parseDatatypeWithSize decodes a datatype and reports how many bytes it
// occupies, so that nested types inside compounds, arrays, enums and
// sequences can be walked in order.
func parseDatatypeWithSize(data []byte, r *binpkg.Reader) (*Datatype, int, error) {
	c := newCursor(data, r)
	head := c.u8()
	bits := uint32(c.u8()) | uint32(c.u8())<<8 | uint32(c.u8())<<16
	dt := &Datatype{Class: DatatypeClass(head & 0x0F), Size: c.u32()}
	version := int(head >> 4)
	if c.err != nil {
		return nil, 0, fmt.Errorf("datatype message: %w", c.err)
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(bits & 0x01)
		dt.Signed = bits&0x08 != 0
		c.take(4) // bit offset, precision
	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(bits & 0x01)
		c.take(12)
	case ClassTime:
		dt.ByteOrder = ByteOrder(bits & 0x01)
		c.take(2)
	case ClassString:
		dt.StringPadding = StringPadding(bits & 0x0F)
		dt.CharSet = CharacterSet((bits >> 4) & 0x0F)
	case ClassOpaque:
		// tag length includes NUL padding to a multiple of 8
		c.take(int(bits & 0xFF))
	case ClassReference:
	case ClassCompound:
		n := int(bits & 0xFFFF)
		dt.Members = make([]CompoundMember, 0, n)
		for i := 0; i < n && c.err == nil; i++ {
			m, used, err := parseCompoundMember(c.rest(), r, version, dt.Size)
			if err != nil {
				return nil, 0, fmt.Errorf("compound member %d: %w", i, err)
			}
			dt.Members = append(dt.Members, m)
			c.take(used)
		}
	case ClassEnum:
		base, used, err := parseDatatypeWithSize(c.rest(), r)
		if err != nil {
			return nil, 0, fmt.Errorf("enum base type: %w", err)
		}
		c.take(used)
		dt.BaseType = base
		dt.ByteOrder, dt.Signed = base.ByteOrder, base.Signed
		n := int(bits & 0xFFFF)
		for i := 0; i < n && c.err == nil; i++ {
			dt.EnumNames = append(dt.EnumNames, c.cname(version < 3))
		}
		c.take(n * int(base.Size))
	case ClassVarLen:
		dt.IsVarLenString = bits&0x0F == 1
		if dt.IsVarLenString {
			dt.StringPadding = StringPadding((bits >> 4) & 0x0F)
			dt.CharSet = CharacterSet((bits >> 8) & 0x0F)
		}
		base, used, err := parseDatatypeWithSize(c.rest(), r)
		if err != nil {
			return nil, 0, fmt.Errorf("variable-length base type: %w", err)
		}
		c.take(used)
		dt.VarLenType = base
	case ClassArray:
		rank := int(c.u8())
		if version < 3 {
			c.take(3)
		}
		dt.ArrayDims = make([]uint32, rank)
		for i := range dt.ArrayDims {
			dt.ArrayDims[i] = c.u32()
		}
		if version < 3 {
			c.take(4 * rank) // permutation indices
		}
		base, used, err := parseDatatypeWithSize(c.rest(), r)
		if err != nil {
			return nil, 0, fmt.Errorf("array base type: %w", err)
		}
		c.take(used)
		dt.BaseType = base
	default:
		return nil, 0, fmt.Errorf("unknown datatype class %d", dt.Class)
	}
	if c.err != nil {
		return nil, 0, fmt.Errorf("datatype class %d properties: %w", dt.Class, c.err)
	}
	return dt, c.pos, nil
}

func parseCompoundMember(data []byte, r *binpkg.Reader, version int, compoundSize uint32) (CompoundMember, int, error) {
	c := newCursor(data, r)
	m := CompoundMember{Name: c.cname(version < 3)}

	switch {
	case version >= 3:
		m.ByteOffset = uint32(c.uint(offsetWidth(compoundSize)))
	default:
		m.ByteOffset = c.u32()
		if version == 1 {
			// dimensionality, permutation and dimension sizes
			c.take(28)
		}
	}
	if c.err != nil {
		return m, 0, c.err
	}

	t, used, err := parseDatatypeWithSize(c.rest(), r)
	if err != nil {
		return m, 0, err
	}
	m.Type = t
	return m, c.pos + used, nil
}

// offsetWidth is the byte width of a version 3 member offset.
func offsetWidth(size uint32) int {
	switch {
	case size < 1<<8:
		return 1
	case size < 1<<16:
		return 2
	case size < 1<<24:
		return 3
	}
	return 4
}

// cname reads a NUL-terminated name. Padded names occupy a multiple of 8
// bytes counted from the start of the name.
func (c *cursor) cname(padded bool) string {
	rest := c.rest()
	end := 0
	for end < len(rest) && rest[end] != 0 {
		end++
	}
	n := end + 1
	if padded {
		n = (n + 7) / 8 * 8
	}
	if c.take(n) == nil {
		return ""
	}
	return string(rest[:end])
}
