package raster

import (
	"fmt"
	"image"

	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/meta"
)

// Family is the decode worker a request goes to.
type Family uint8

const (
	// FamilyStream is a whole dataset holding one encoded image.
	FamilyStream Family = iota
	// FamilyRows is a variable-length dataset holding one encoded image per
	// index of its leading axis.
	FamilyRows
	// FamilyNative is an array of pixel samples.
	FamilyNative
)

func (f Family) String() string {
	switch f {
	case FamilyStream:
		return "stream"
	case FamilyRows:
		return "rows"
	default:
		return "native"
	}
}

// DecodeRequest asks a worker to produce the raster for Key.
type DecodeRequest struct {
	Key    Key
	Family Family
	Image  meta.ImageDescriptor

	// Shape is the dataset shape. Frames are taken along axis 0 when the
	// rank exceeds what the image type needs.
	Shape     []uint64
	ElemSize  int
	BigEndian bool
}

// DecodeResult is the outcome of a DecodeRequest. Exactly one of Image and
// Err is set.
type DecodeResult struct {
	Key    Key
	Image  *image.RGBA
	Format string
	Err    error
}

// Failed reports whether decoding failed.
func (r DecodeResult) Failed() bool {
	return r.Err != nil
}

// NewDecodeRequest builds the request for frame of the leaf at path.
func NewDecodeRequest(path string, m *meta.LeafMeta, frame int) (DecodeRequest, error) {
	if m == nil || m.Image == nil {
		return DecodeRequest{}, fmt.Errorf("%s is not an image: %w", path, meta.ErrFormat)
	}
	fam, err := familyOf(m)
	if err != nil {
		return DecodeRequest{}, fmt.Errorf("%s: %w", path, err)
	}
	req := DecodeRequest{
		Key:      Key{Path: path, Frame: frame},
		Family:   fam,
		Image:    *m.Image,
		Shape:    append([]uint64(nil), m.Shape...),
		ElemSize: int(m.ElemSize),
	}
	if m.Datatype != nil {
		req.BigEndian = m.Datatype.ByteOrder == message.OrderBE
	}
	return req, nil
}

func familyOf(m *meta.LeafMeta) (Family, error) {
	if !m.Image.Type.Encoded() {
		return FamilyNative, nil
	}
	switch {
	case m.Category == meta.CategoryVarLen:
		return FamilyRows, nil
	case m.Category == meta.CategoryUint && m.ElemSize == 1:
		return FamilyStream, nil
	}
	return 0, fmt.Errorf("%s stream stored as %s: %w", m.Image.Type, m.TypeName, meta.ErrFormat)
}

// frameRank is the rank of one frame of the given image.
func frameRank(desc meta.ImageDescriptor) int {
	if desc.Type == meta.ImageTrueColor {
		return 3
	}
	return 2
}

// Frames returns how many frames the leaf holds along its leading axis.
func Frames(m *meta.LeafMeta) int {
	if m == nil || m.Image == nil || len(m.Shape) == 0 {
		return 1
	}
	fam, err := familyOf(m)
	if err != nil {
		return 1
	}
	switch fam {
	case FamilyRows:
		return int(m.Shape[0])
	case FamilyNative:
		if len(m.Shape) == frameRank(*m.Image)+1 {
			return int(m.Shape[0])
		}
	}
	return 1
}
