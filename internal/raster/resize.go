package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/anthonynsimon/bild/transform"

	"github.com/robert-malhotra/h5view/internal/meta"
)

// Fit scales img to fit inside a box of cols x rows cells of cellW x cellH
// pixels, keeping its aspect ratio. The result is at least 1x1.
func Fit(img image.Image, cols, rows, cellW, cellH int) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty raster: %w", meta.ErrFormat)
	}
	if cols <= 0 || rows <= 0 || cellW <= 0 || cellH <= 0 {
		return nil, fmt.Errorf("target area %dx%d cells of %dx%d px: %w", cols, rows, cellW, cellH, meta.ErrFormat)
	}
	boxW, boxH := float64(cols*cellW), float64(rows*cellH)
	scale := min(boxW/float64(b.Dx()), boxH/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	return transform.Resize(img, w, h, transform.Linear), nil
}

// EncodePNG encodes img for terminals that accept inline PNG images.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
