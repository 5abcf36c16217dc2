package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/message"
)

func f64() *message.Datatype {
	return &message.Datatype{Class: message.ClassFloatPoint, Size: 8, ByteOrder: message.OrderLE}
}

func TestLeafMetaStrings(t *testing.T) {
	m := NewLeafMeta(Facts{
		Shape:    []uint64{47, 47, 47},
		Datatype: f64(),
		Chunks:   []uint64{32, 16, 16},
		Storage:  1000,
	})

	assert.Equal(t, "47 x 47 x 47 = 103823", m.ShapeString())
	assert.Equal(t, "32 x 16 x 16 = 8192", m.ChunkString())
	assert.Equal(t, "811.12 KB", m.SizeString())
	assert.Equal(t, "f64", m.TypeName)
	assert.Equal(t, uint64(103823*8), m.Bytes)
	assert.Equal(t, EncodingLittleEndian, m.Encoding)
	assert.Equal(t, MatrixFloat64, m.Matrixable)
	assert.False(t, m.Scalar)
}

func TestLeafMetaScalarNormalized(t *testing.T) {
	m := NewLeafMeta(Facts{Datatype: f64()})

	assert.True(t, m.Scalar)
	assert.Equal(t, []uint64{1, 1}, m.Shape)
	assert.Equal(t, uint64(1), m.Elements)
	assert.Empty(t, m.ChunkString())
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		0:          "0 B",
		1023:       "1023 B",
		1024:       "1.00 KB",
		5242880:    "5.00 MB",
		3221225472: "3.00 GB",
	}
	for n, want := range cases {
		assert.Equal(t, want, FormatBytes(n), "FormatBytes(%d)", n)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name     string
		dt       *message.Datatype
		category TypeCategory
		typeName string
		encoding Encoding
		matrix   Matrixable
	}{
		{"u8", &message.Datatype{Class: message.ClassFixedPoint, Size: 1}, CategoryUint, "u8", EncodingLittleEndian, MatrixUint64},
		{"i32 big endian", &message.Datatype{Class: message.ClassFixedPoint, Size: 4, Signed: true, ByteOrder: message.OrderBE}, CategoryInt, "i32", EncodingUnknown, MatrixInt64},
		{"f32", &message.Datatype{Class: message.ClassFloatPoint, Size: 4}, CategoryFloat, "f32", EncodingLittleEndian, MatrixFloat64},
		{"fixed ascii", &message.Datatype{Class: message.ClassString, Size: 10}, CategoryString, "ascii", EncodingASCIIFixed, MatrixStrings},
		{"vlen utf8", &message.Datatype{Class: message.ClassVarLen, Size: 16, IsVarLenString: true, CharSet: message.CharsetUTF8}, CategoryVarString, "unicode", EncodingUTF8, MatrixStrings},
		{"vlen bytes", &message.Datatype{Class: message.ClassVarLen, Size: 16}, CategoryVarLen, "array", EncodingUnknown, MatrixNone},
		{"compound", &message.Datatype{Class: message.ClassCompound, Size: 12}, CategoryCompound, "compound", EncodingUnknown, MatrixCompound},
		{"enum", &message.Datatype{Class: message.ClassEnum, Size: 1}, CategoryEnum, "enum", EncodingLittleEndian, MatrixInt64},
		{"reference", &message.Datatype{Class: message.ClassReference, Size: 8}, CategoryReference, "reference", EncodingUnknown, MatrixNone},
		{"nil", nil, CategoryUnknown, "unknown", EncodingUnknown, MatrixNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, Categorize(tt.dt))
			assert.Equal(t, tt.typeName, TypeName(tt.dt))
			assert.Equal(t, tt.encoding, EncodingOf(tt.dt))
			assert.Equal(t, tt.matrix, MatrixableOf(tt.dt))
		})
	}
}

func TestDetectImage(t *testing.T) {
	assert.Nil(t, detectImage(nil))
	assert.Nil(t, detectImage(map[string]string{AttrImageSubclass: "IMAGE_PNG"}))

	desc := detectImage(map[string]string{
		AttrClass:         "IMAGE",
		AttrImageSubclass: "IMAGE_TRUECOLOR",
		AttrInterlaceMode: "INTERLACE_PLANE",
	})
	require.NotNil(t, desc)
	assert.Equal(t, ImageTrueColor, desc.Type)
	assert.Equal(t, InterlacePlane, desc.Interlace)
	assert.Equal(t, "TRUECOLOR", desc.Type.String())

	odd := detectImage(map[string]string{AttrClass: "IMAGE", AttrImageSubclass: "IMAGE_HOLOGRAM"})
	require.NotNil(t, odd)
	assert.Equal(t, ImageUnknown, odd.Type)
	assert.Equal(t, InterlacePixel, odd.Interlace)
	assert.Equal(t, "IMAGE_HOLOGRAM", odd.Subclass)
}

func TestLeafMetaHighlightAndImage(t *testing.T) {
	m := NewLeafMeta(Facts{
		Shape:    []uint64{4},
		Datatype: &message.Datatype{Class: message.ClassVarLen, Size: 16, IsVarLenString: true},
		Attrs:    map[string]string{AttrHighlight: " json "},
	})
	assert.Equal(t, "json", m.Highlight)
	assert.Nil(t, m.Image)
	assert.True(t, m.Category.Text())
	assert.False(t, m.Category.Numeric())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "counts", FormatValue("counts"))
	assert.Equal(t, "3.5", FormatValue(3.5))
	assert.Equal(t, "[a, b]", FormatValue([]string{"a", "b"}))
	assert.Equal(t, "[1, 2, 3]", FormatValue([]int64{1, 2, 3}))
	assert.Equal(t, "{x: 1, y: two}", FormatValue(map[string]interface{}{"y": "two", "x": int64(1)}))
	assert.Equal(t, "7", FormatValue(uint64(7)))
}
