package meta

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/message"
)

// TypeCategory is the normalized element type used to pick a renderer or a
// decode routine. Bit width is carried separately by LeafMeta.ElemSize.
type TypeCategory uint8

const (
	CategoryUnknown TypeCategory = iota
	CategoryInt
	CategoryUint
	CategoryFloat
	CategoryEnum
	CategoryString    // fixed-length string
	CategoryVarString // variable-length string
	CategoryVarLen    // variable-length sequence
	CategoryCompound
	CategoryArray
	CategoryReference
	CategoryOpaque
	CategoryBitfield
)

var categoryNames = [...]string{
	CategoryUnknown:   "unknown",
	CategoryInt:       "int",
	CategoryUint:      "uint",
	CategoryFloat:     "float",
	CategoryEnum:      "enum",
	CategoryString:    "string",
	CategoryVarString: "varstring",
	CategoryVarLen:    "varlen",
	CategoryCompound:  "compound",
	CategoryArray:     "array",
	CategoryReference: "reference",
	CategoryOpaque:    "opaque",
	CategoryBitfield:  "bitfield",
}

func (c TypeCategory) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("TypeCategory(%d)", c)
}

// Numeric reports whether values of this category can be read as float64.
func (c TypeCategory) Numeric() bool {
	switch c {
	case CategoryInt, CategoryUint, CategoryFloat, CategoryEnum:
		return true
	}
	return false
}

// Text reports whether values of this category are strings.
func (c TypeCategory) Text() bool {
	return c == CategoryString || c == CategoryVarString
}

// Encoding classifies how element bytes are encoded.
type Encoding uint8

const (
	EncodingUnknown Encoding = iota
	EncodingLittleEndian
	EncodingASCII
	EncodingASCIIFixed
	EncodingUTF8
	EncodingUTF8Fixed
)

func (e Encoding) String() string {
	switch e {
	case EncodingLittleEndian:
		return "little-endian"
	case EncodingASCII:
		return "ascii"
	case EncodingASCIIFixed:
		return "ascii (fixed)"
	case EncodingUTF8:
		return "utf-8"
	case EncodingUTF8Fixed:
		return "utf-8 (fixed)"
	default:
		return "unknown"
	}
}

// Matrixable tags leaves whose values can be shown in bulk as a matrix and
// names the Go element type they are read into.
type Matrixable uint8

const (
	MatrixNone Matrixable = iota
	MatrixFloat64
	MatrixUint64
	MatrixInt64
	MatrixCompound
	MatrixStrings
)

func (m Matrixable) String() string {
	switch m {
	case MatrixFloat64:
		return "float64"
	case MatrixUint64:
		return "uint64"
	case MatrixInt64:
		return "int64"
	case MatrixCompound:
		return "compound"
	case MatrixStrings:
		return "strings"
	default:
		return "none"
	}
}

// Categorize maps a datatype onto its TypeCategory.
func Categorize(dt *message.Datatype) TypeCategory {
	if dt == nil {
		return CategoryUnknown
	}
	switch dt.Class {
	case message.ClassFixedPoint:
		if dt.Signed {
			return CategoryInt
		}
		return CategoryUint
	case message.ClassFloatPoint:
		return CategoryFloat
	case message.ClassEnum:
		return CategoryEnum
	case message.ClassString:
		return CategoryString
	case message.ClassVarLen:
		if dt.IsVarLenString {
			return CategoryVarString
		}
		return CategoryVarLen
	case message.ClassCompound:
		return CategoryCompound
	case message.ClassArray:
		return CategoryArray
	case message.ClassReference:
		return CategoryReference
	case message.ClassOpaque:
		return CategoryOpaque
	case message.ClassBitfield:
		return CategoryBitfield
	}
	return CategoryUnknown
}

// TypeName returns the short type descriptor shown to users, such as "u8",
// "f64", "ascii" or "compound".
func TypeName(dt *message.Datatype) string {
	switch Categorize(dt) {
	case CategoryInt:
		return fmt.Sprintf("i%d", dt.Size*8)
	case CategoryUint:
		return fmt.Sprintf("u%d", dt.Size*8)
	case CategoryFloat:
		return fmt.Sprintf("f%d", dt.Size*8)
	case CategoryEnum:
		return "enum"
	case CategoryString, CategoryVarString:
		if dt.CharSet == message.CharsetUTF8 {
			return "unicode"
		}
		return "ascii"
	case CategoryVarLen, CategoryArray:
		return "array"
	case CategoryCompound:
		return "compound"
	case CategoryReference:
		return "reference"
	case CategoryOpaque:
		return "opaque"
	case CategoryBitfield:
		return fmt.Sprintf("b%d", dt.Size*8)
	}
	return "unknown"
}

// EncodingOf classifies the byte encoding of dt.
func EncodingOf(dt *message.Datatype) Encoding {
	switch c := Categorize(dt); c {
	case CategoryInt, CategoryUint, CategoryFloat, CategoryEnum:
		if dt.ByteOrder == message.OrderLE || dt.Size == 1 {
			return EncodingLittleEndian
		}
	case CategoryString:
		if dt.CharSet == message.CharsetUTF8 {
			return EncodingUTF8Fixed
		}
		return EncodingASCIIFixed
	case CategoryVarString:
		if dt.CharSet == message.CharsetUTF8 {
			return EncodingUTF8
		}
		return EncodingASCII
	}
	return EncodingUnknown
}

// MatrixableOf reports how values of dt are read for bulk display.
func MatrixableOf(dt *message.Datatype) Matrixable {
	switch Categorize(dt) {
	case CategoryFloat:
		return MatrixFloat64
	case CategoryUint:
		return MatrixUint64
	case CategoryInt, CategoryEnum:
		return MatrixInt64
	case CategoryCompound:
		return MatrixCompound
	case CategoryString, CategoryVarString:
		return MatrixStrings
	}
	return MatrixNone
}
