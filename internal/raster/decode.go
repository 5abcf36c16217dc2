package raster

import (
	"fmt"
	"image"

	"github.com/robert-malhotra/h5view/internal/meta"
	"github.com/robert-malhotra/h5view/internal/selection"
)

// decode runs one request to completion on the calling worker.
func decode(src Source, req DecodeRequest, gray GrayPolicy) (*image.RGBA, string, error) {
	ds, err := src.Dataset(req.Key.Path)
	if err != nil {
		return nil, "", err
	}
	switch req.Family {
	case FamilyStream:
		return decodeStream(ds, req)
	case FamilyRows:
		return decodeRow(ds, req)
	default:
		img, err := decodeNative(ds, req, gray)
		return img, "", err
	}
}

func decodeStream(ds Dataset, req DecodeRequest) (*image.RGBA, string, error) {
	region, err := selection.RasterRegion(req.Shape, nil)
	if err != nil {
		return nil, "", err
	}
	raw, err := selection.ReadRaw(ds, region)
	if err != nil {
		return nil, "", err
	}
	return DecodeStream(raw)
}

func decodeRow(ds Dataset, req DecodeRequest) (*image.RGBA, string, error) {
	region, err := selection.RasterRegion(req.Shape, map[int]uint64{0: uint64(req.Key.Frame)})
	if err != nil {
		return nil, "", err
	}
	rows, err := ds.ReadVarLen(region.Start, region.Count)
	if err != nil {
		return nil, "", fmt.Errorf("read row %d: %w: %w", req.Key.Frame, meta.ErrIO, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, "", fmt.Errorf("row %d is empty: %w", req.Key.Frame, meta.ErrFormat)
	}
	return DecodeStream(rows[0])
}

func decodeNative(ds Dataset, req DecodeRequest, gray GrayPolicy) (*image.RGBA, error) {
	if err := checkSubclass(req.Image); err != nil {
		return nil, err
	}
	want := frameRank(req.Image)
	var pinned map[int]uint64
	switch len(req.Shape) {
	case want:
	case want + 1:
		pinned = map[int]uint64{0: uint64(req.Key.Frame)}
	default:
		return nil, fmt.Errorf("%s image of rank %d: %w", req.Image.Type, len(req.Shape), meta.ErrFormat)
	}
	region, err := selection.RasterRegion(req.Shape, pinned)
	if err != nil {
		return nil, err
	}
	raw, err := selection.ReadRaw(ds, region)
	if err != nil {
		return nil, err
	}
	return Assemble(req.Image, Samples{
		Data:      raw,
		Shape:     region.Count[len(region.Count)-want:],
		ElemSize:  req.ElemSize,
		BigEndian: req.BigEndian,
	}, gray)
}
