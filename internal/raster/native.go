package raster

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/robert-malhotra/h5view/internal/meta"
)

// Samples is a block of native image samples in row-major order. Shape
// excludes any frame axis.
type Samples struct {
	Data      []byte
	Shape     []uint64
	ElemSize  int
	BigEndian bool
}

func (s Samples) order() binary.ByteOrder {
	if s.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (s Samples) check() error {
	n := uint64(s.ElemSize)
	for _, d := range s.Shape {
		n *= d
	}
	if uint64(len(s.Data)) < n {
		return fmt.Errorf("%d sample bytes for shape %v: %w", len(s.Data), s.Shape, meta.ErrFormat)
	}
	return nil
}

// Assemble builds an opaque RGBA raster from native samples.
func Assemble(desc meta.ImageDescriptor, s Samples, gray GrayPolicy) (*image.RGBA, error) {
	if err := checkSubclass(desc); err != nil {
		return nil, err
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	switch desc.Type {
	case meta.ImageTrueColor:
		return assembleTrueColor(desc.Interlace, s)
	case meta.ImageGrayscale:
		return assembleGray(s, gray)
	default:
		return assembleBitmap(s)
	}
}

func checkSubclass(desc meta.ImageDescriptor) error {
	switch desc.Type {
	case meta.ImageTrueColor, meta.ImageGrayscale, meta.ImageBitmap:
		return nil
	case meta.ImageIndexed:
		return fmt.Errorf("indexed-color images are not supported: %w", meta.ErrFormat)
	default:
		return fmt.Errorf("unsupported image subclass %q: %w", desc.Subclass, meta.ErrFormat)
	}
}

// assembleTrueColor reads (row, col, ch) for Pixel interlace and
// (ch, row, col) for Plane interlace. Channels past the third are ignored.
func assembleTrueColor(il meta.Interlace, s Samples) (*image.RGBA, error) {
	if s.ElemSize != 1 {
		return nil, fmt.Errorf("truecolor samples of %d bytes are not supported: %w", s.ElemSize, meta.ErrFormat)
	}
	if len(s.Shape) != 3 {
		return nil, fmt.Errorf("truecolor image of rank %d: %w", len(s.Shape), meta.ErrFormat)
	}

	var rows, cols, chans uint64
	if il == meta.InterlacePlane {
		chans, rows, cols = s.Shape[0], s.Shape[1], s.Shape[2]
	} else {
		rows, cols, chans = s.Shape[0], s.Shape[1], s.Shape[2]
	}
	if chans < 3 {
		return nil, fmt.Errorf("truecolor image with %d channels: %w", chans, meta.ErrFormat)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(cols), int(rows)))
	for r := uint64(0); r < rows; r++ {
		for c := uint64(0); c < cols; c++ {
			var px [3]uint8
			for ch := uint64(0); ch < 3; ch++ {
				if il == meta.InterlacePlane {
					px[ch] = s.Data[(ch*rows+r)*cols+c]
				} else {
					px[ch] = s.Data[(r*cols+c)*chans+ch]
				}
			}
			img.SetRGBA(int(c), int(r), color.RGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	return img, nil
}

func grayShape(s Samples) (int, int, error) {
	if len(s.Shape) != 2 {
		return 0, 0, fmt.Errorf("grayscale image of rank %d: %w", len(s.Shape), meta.ErrFormat)
	}
	return int(s.Shape[0]), int(s.Shape[1]), nil
}

func assembleGray(s Samples, policy GrayPolicy) (*image.RGBA, error) {
	rows, cols, err := grayShape(s)
	if err != nil {
		return nil, err
	}
	var level func(i int) uint8
	switch s.ElemSize {
	case 1:
		level = func(i int) uint8 { return s.Data[i] }
	case 2:
		order := s.order()
		level = func(i int) uint8 { return policy.Scale16(order.Uint16(s.Data[2*i:])) }
	default:
		return nil, fmt.Errorf("grayscale samples of %d bytes are not supported: %w", s.ElemSize, meta.ErrFormat)
	}
	return fill(rows, cols, level), nil
}

// assembleBitmap shows every non-zero sample as white.
func assembleBitmap(s Samples) (*image.RGBA, error) {
	rows, cols, err := grayShape(s)
	if err != nil {
		return nil, err
	}
	if s.ElemSize != 1 {
		return nil, fmt.Errorf("bitmap samples of %d bytes are not supported: %w", s.ElemSize, meta.ErrFormat)
	}
	return fill(rows, cols, func(i int) uint8 {
		if s.Data[i] != 0 {
			return 255
		}
		return 0
	}), nil
}

func fill(rows, cols int, level func(i int) uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := level(r*cols + c)
			img.SetRGBA(c, r, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}
