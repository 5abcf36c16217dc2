package selection

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/h5view/internal/meta"
)

// Reader is the part of a dataset handle the engine reads through.
// *hdf5.Dataset satisfies it.
type Reader interface {
	Read(dest interface{}) error
	ReadSlice(start, count []uint64, dest interface{}) error
	ReadSliceRaw(start, count []uint64) ([]byte, error)
}

// Bound is a minimum or maximum of a page. The zero value is NoData.
type Bound struct {
	Value float64
	Valid bool
}

// NoData marks the bound of a page that holds no finite values.
var NoData = Bound{}

func (b Bound) String() string {
	if !b.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%g", b.Value)
}

// Point is one sample of a series. Local is relative to the page start.
type Point struct {
	Local uint64
	Value float64
}

// Series is one page of the free axis.
type Series struct {
	Points []Point
	Min    Bound
	Max    Bound

	Page      int
	PageCount int
	Offset    uint64
}

// Len returns the number of points in the page.
func (s *Series) Len() int {
	return len(s.Points)
}

// Global converts a page-local index into a position on the free axis.
func (s *Series) Global(local uint64) uint64 {
	return s.Offset + local
}

// ReadSeries validates req and reads its page as float64 values. Invalid
// requests fail before r is touched.
func ReadSeries(r Reader, req Request) (*Series, error) {
	region, err := Compute(req)
	if err != nil {
		return nil, err
	}
	s := &Series{Page: region.Page, PageCount: region.PageCount, Offset: region.Offset}
	if region.Empty {
		return s, nil
	}

	var values []float64
	if region.Scalar {
		err = r.Read(&values)
	} else {
		err = r.ReadSlice(region.Start, region.Count, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w: %w", region.Page, meta.ErrIO, err)
	}
	if region.Scalar && len(values) > 1 {
		values = values[:1]
	}

	s.Points = make([]Point, len(values))
	for i, v := range values {
		s.Points[i] = Point{Local: uint64(i), Value: v}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !s.Min.Valid || v < s.Min.Value {
			s.Min = Bound{Value: v, Valid: true}
		}
		if !s.Max.Valid || v > s.Max.Value {
			s.Max = Bound{Value: v, Valid: true}
		}
	}
	return s, nil
}

// ReadRaw reads region as raw element bytes in row-major order.
func ReadRaw(r Reader, region Region) ([]byte, error) {
	if region.Empty {
		return nil, nil
	}
	raw, err := r.ReadSliceRaw(region.Start, region.Count)
	if err != nil {
		return nil, fmt.Errorf("read raster block: %w: %w", meta.ErrIO, err)
	}
	return raw, nil
}
