package h5test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"testing"
)

// ExternalName is the file the explorer fixture's external links point at.
const ExternalName = "ext_target.h5"

// Explorer writes the explorer fixture and its external link target into a
// fresh temporary directory and returns the fixture's path.
//
// Layout:
//
//	/            title
//	/tree        ds1, soft_grp -> /tree/grp, grp/inner, ext_grp -> /remote,
//	             broken -> /missing, ext_ds -> /remote/values, soft_ds -> /tree/ds1
//	/data        matrix (10x3 i64, units), series (600000 f32, chunks of
//	             100000), scalar, json_doc, four_d, six_d, empty
//	/images      rgb_pixel, rgb_plane, gray16, png_rows, png_blob
func Explorer(tb testing.TB) string {
	tb.Helper()
	dir := tb.TempDir()

	values := &Dataset{Type: Float64, Shape: []uint64{4}, Data: float64s(0, 1, 2, 3)}
	remote := &Group{Links: []Link{Hard("values", values)}}
	if err := Write(filepath.Join(dir, ExternalName), &Group{Links: []Link{Hard("remote", remote)}}); err != nil {
		tb.Fatalf("writing %s: %v", ExternalName, err)
	}

	path := filepath.Join(dir, "explorer.h5")
	if err := Write(path, explorer(tb)); err != nil {
		tb.Fatalf("writing explorer.h5: %v", err)
	}
	return path
}

func explorer(tb testing.TB) *Group {
	ds1 := &Dataset{Type: Int32, Shape: []uint64{5}, Data: ints(Int32, 5)}
	grp := &Group{Links: []Link{
		Hard("inner", &Dataset{Type: Float64, Shape: []uint64{3}, Data: float64s(1, 1, 1)}),
	}}
	tree := &Group{Links: []Link{
		Hard("ds1", ds1),
		Soft("soft_grp", "/tree/grp"),
		Hard("grp", grp),
		External("ext_grp", ExternalName, "/remote"),
		Soft("broken", "/missing"),
		External("ext_ds", ExternalName, "/remote/values"),
		Soft("soft_ds", "/tree/ds1"),
	}}

	series := make([]byte, 0, 4*600000)
	for i := 0; i < 600000; i++ {
		series = binary.LittleEndian.AppendUint32(series, math.Float32bits(float32(i)))
	}
	data := &Group{Links: []Link{
		Hard("matrix", &Dataset{Type: Int64, Shape: []uint64{10, 3}, Data: ints(Int64, 30),
			Attrs: []Attr{StringAttr("units", "counts")}}),
		Hard("series", &Dataset{Type: Float32, Shape: []uint64{600000}, Data: series, ChunkRows: 100000}),
		Hard("scalar", &Dataset{Type: Float64, Data: float64s(3.5)}),
		Hard("json_doc", &Dataset{Type: VarString, Rows: [][]byte{[]byte(`{"a": 1, "b": [1, 2]}`)},
			Attrs: []Attr{StringAttr("HIGHLIGHT", "json")}}),
		Hard("four_d", &Dataset{Type: Uint8, Shape: []uint64{2, 2, 2, 2}, Data: ints(Uint8, 16)}),
		Hard("six_d", &Dataset{Type: Float64, Shape: []uint64{1, 1, 1, 1, 1, 2}, Data: float64s(0, 0)}),
		Hard("empty", &Dataset{Type: Float64, Shape: []uint64{0}}),
	}}

	images := &Group{Links: []Link{
		Hard("rgb_pixel", &Dataset{Type: Uint8, Shape: []uint64{2, 2, 3}, Data: ints(Uint8, 12),
			Attrs: imageAttrs("IMAGE_TRUECOLOR", "INTERLACE_PIXEL")}),
		Hard("rgb_plane", &Dataset{Type: Uint8, Shape: []uint64{3, 2, 2}, Data: ints(Uint8, 12),
			Attrs: imageAttrs("IMAGE_TRUECOLOR", "INTERLACE_PLANE")}),
		Hard("gray16", &Dataset{Type: Uint16, Shape: []uint64{2, 2}, Data: le(uint16(0), uint16(2048), uint16(4095), uint16(4200)),
			Attrs: imageAttrs("IMAGE_GRAYSCALE", "")}),
		Hard("png_rows", &Dataset{Type: VarBytes, Shape: []uint64{2},
			Rows:  [][]byte{solidPNG(tb, 2, 2, color.RGBA{255, 0, 0, 255}), solidPNG(tb, 3, 1, color.RGBA{0, 0, 255, 255})},
			Attrs: imageAttrs("IMAGE_PNG", "")}),
	}}
	blob := solidPNG(tb, 4, 2, color.RGBA{0, 255, 0, 255})
	images.Links = append(images.Links, Hard("png_blob", &Dataset{Type: Uint8, Shape: []uint64{uint64(len(blob))}, Data: blob,
		Attrs: imageAttrs("IMAGE_PNG", "")}))

	return &Group{
		Attrs: []Attr{StringAttr("title", "explorer fixture")},
		Links: []Link{Hard("tree", tree), Hard("data", data), Hard("images", images)},
	}
}

func imageAttrs(subclass, interlace string) []Attr {
	attrs := []Attr{StringAttr("CLASS", "IMAGE"), StringAttr("IMAGE_SUBCLASS", subclass)}
	if interlace != "" {
		attrs = append(attrs, StringAttr("INTERLACE_MODE", interlace))
	}
	return attrs
}

// ints is 0, 1, ... n-1 as t, which must be a fixed-point type.
func ints(t Type, n int) []byte {
	out := make([]byte, 0, n*t.size)
	for i := 0; i < n; i++ {
		switch t.size {
		case 1:
			out = append(out, byte(i))
		case 2:
			out = binary.LittleEndian.AppendUint16(out, uint16(i))
		case 4:
			out = binary.LittleEndian.AppendUint32(out, uint32(i))
		default:
			out = binary.LittleEndian.AppendUint64(out, uint64(i))
		}
	}
	return out
}

func float64s(vs ...float64) []byte {
	out := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

func solidPNG(tb testing.TB, w, h int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}
