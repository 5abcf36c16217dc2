package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/clone"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/robert-malhotra/h5view/internal/meta"
)

var codecs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// Sniff returns the MIME type of an embedded image stream.
func Sniff(data []byte) (string, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return "", fmt.Errorf("sniff image stream: %w: %w", meta.ErrFormat, err)
	}
	if kind == filetype.Unknown || !codecs[kind.MIME.Value] {
		return "", fmt.Errorf("unrecognized image stream of %d bytes: %w", len(data), meta.ErrFormat)
	}
	return kind.MIME.Value, nil
}

// DecodeStream decodes an embedded JPEG, PNG, GIF, BMP, TIFF or WebP stream.
// The declared type is advisory; the stream's own signature decides the
// codec.
func DecodeStream(data []byte) (*image.RGBA, string, error) {
	mime, err := Sniff(data)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, mime, fmt.Errorf("decode %s: %w: %w", mime, meta.ErrFormat, err)
	}
	return clone.AsRGBA(img), mime, nil
}
