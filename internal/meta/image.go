package meta

import "strings"

// Reserved attribute names read for every leaf.
const (
	AttrClass         = "CLASS"
	AttrImageSubclass = "IMAGE_SUBCLASS"
	AttrInterlaceMode = "INTERLACE_MODE"
	AttrHighlight     = "HIGHLIGHT"
)

// ReservedAttrs lists the attributes consulted when describing a leaf.
var ReservedAttrs = []string{AttrClass, AttrImageSubclass, AttrInterlaceMode, AttrHighlight}

// ImageType is the image subclass declared by a dataset.
type ImageType uint8

const (
	ImageUnknown ImageType = iota
	ImageJPEG
	ImagePNG
	ImageIndexed
	ImageTrueColor
	ImageGrayscale
	ImageBitmap
)

var imageSubclasses = map[string]ImageType{
	"IMAGE_JPEG":      ImageJPEG,
	"IMAGE_PNG":       ImagePNG,
	"IMAGE_INDEXED":   ImageIndexed,
	"IMAGE_TRUECOLOR": ImageTrueColor,
	"IMAGE_GRAYSCALE": ImageGrayscale,
	"IMAGE_BITMAP":    ImageBitmap,
}

func (t ImageType) String() string {
	for name, v := range imageSubclasses {
		if v == t {
			return strings.TrimPrefix(name, "IMAGE_")
		}
	}
	return "UNKNOWN"
}

// Encoded reports whether the samples hold an embedded codec stream rather
// than native pixel values.
func (t ImageType) Encoded() bool {
	return t == ImageJPEG || t == ImagePNG
}

// Interlace is the channel layout of multi-channel native samples.
type Interlace uint8

const (
	// InterlacePixel stores channels as the fastest varying axis:
	// (row, column, channel).
	InterlacePixel Interlace = iota
	// InterlacePlane stores channels as the slowest varying axis:
	// (channel, row, column).
	InterlacePlane
)

func (i Interlace) String() string {
	if i == InterlacePlane {
		return "plane"
	}
	return "pixel"
}

// ImageDescriptor describes how a dataset is meant to be shown as an image.
type ImageDescriptor struct {
	Type      ImageType
	Interlace Interlace

	// Subclass keeps the raw IMAGE_SUBCLASS value for error messages.
	Subclass string
}

// detectImage builds an image descriptor from reserved attributes. It
// returns nil unless CLASS is "IMAGE".
func detectImage(attrs map[string]string) *ImageDescriptor {
	if strings.TrimSpace(attrs[AttrClass]) != "IMAGE" {
		return nil
	}
	sub := strings.TrimSpace(attrs[AttrImageSubclass])
	desc := &ImageDescriptor{Type: imageSubclasses[sub], Subclass: sub}
	if strings.TrimSpace(attrs[AttrInterlaceMode]) == "INTERLACE_PLANE" {
		desc.Interlace = InterlacePlane
	}
	return desc
}
