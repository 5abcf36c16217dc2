package selection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/meta"
)

// fakeArray is an in-memory row-major array that records how often it was
// read.
type fakeArray struct {
	shape []uint64
	data  []float64
	reads int
}

func newFakeArray(shape ...uint64) *fakeArray {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i)
	}
	return &fakeArray{shape: shape, data: data}
}

func (a *fakeArray) slice(start, count []uint64) []float64 {
	strides := make([]uint64, len(a.shape))
	s := uint64(1)
	for i := len(a.shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= a.shape[i]
	}
	var out []float64
	idx := make([]uint64, len(count))
	for {
		off := uint64(0)
		for i := range idx {
			off += (start[i] + idx[i]) * strides[i]
		}
		out = append(out, a.data[off])
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < count[i] {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

func (a *fakeArray) Read(dest interface{}) error {
	a.reads++
	return assign(a.data, dest)
}

func (a *fakeArray) ReadSlice(start, count []uint64, dest interface{}) error {
	a.reads++
	return assign(a.slice(start, count), dest)
}

func (a *fakeArray) ReadSliceRaw(start, count []uint64) ([]byte, error) {
	a.reads++
	var raw []byte
	for _, v := range a.slice(start, count) {
		raw = append(raw, byte(v))
	}
	return raw, nil
}

func assign(values []float64, dest interface{}) error {
	switch d := dest.(type) {
	case *[]float64:
		*d = values
	case *[]int64:
		for _, v := range values {
			*d = append(*d, int64(v))
		}
	case *[]string:
		for _, v := range values {
			*d = append(*d, fmt.Sprintf("s%g", v))
		}
	default:
		return errors.New("unsupported destination")
	}
	return nil
}

func TestPageLengths(t *testing.T) {
	const n = 600000
	assert.Equal(t, 3, PageCount(n))

	var lengths []uint64
	for page := 0; page < PageCount(n); page++ {
		region, err := Compute(Request{Shape: []uint64{n}, Page: page, Fixed: []uint64{}})
		require.NoError(t, err)
		lengths = append(lengths, region.Len())
		assert.Equal(t, uint64(page)*PageSize, region.Offset)
	}
	assert.Equal(t, []uint64{250000, 250000, 100000}, lengths)
}

func TestPageLengthProperty(t *testing.T) {
	shapes := [][]uint64{
		{7},
		{3, 250001},
		{2, 2, 600000},
		{1, 2, 3, 4, 5},
		{500000, 2, 1, 1, 2},
	}
	for _, shape := range shapes {
		for free := range shape {
			fixed := make([]uint64, len(shape)-1)
			n := shape[free]
			for page := 0; page < PageCount(n); page++ {
				region, err := Compute(Request{Shape: shape, FreeAxis: free, Fixed: fixed, Page: page})
				require.NoError(t, err)
				if region.Scalar {
					continue
				}
				want := min(uint64(PageSize), n-uint64(page)*PageSize)
				assert.Equal(t, want, region.Count[free], "shape %v free %d page %d", shape, free, page)
			}
		}
	}
}

func TestPageClamped(t *testing.T) {
	region, err := Compute(Request{Shape: []uint64{600000}, Fixed: []uint64{}, Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 2, region.Page)

	region, err = Compute(Request{Shape: []uint64{600000}, Fixed: []uint64{}, Page: -4})
	require.NoError(t, err)
	assert.Equal(t, 0, region.Page)
}

func TestColumnSeries(t *testing.T) {
	arr := newFakeArray(10, 3)

	s, err := ReadSeries(arr, Request{Shape: []uint64{10, 3}, FreeAxis: 0, Fixed: []uint64{1}})
	require.NoError(t, err)
	require.Equal(t, 10, s.Len())
	for i, p := range s.Points {
		assert.Equal(t, uint64(i), p.Local)
		assert.Equal(t, float64(i*3+1), p.Value)
	}
	assert.Equal(t, Bound{Value: 1, Valid: true}, s.Min)
	assert.Equal(t, Bound{Value: 28, Valid: true}, s.Max)
}

func TestSeriesLocalIndicesOnLaterPage(t *testing.T) {
	arr := newFakeArray(600000)

	s, err := ReadSeries(arr, Request{Shape: []uint64{600000}, Fixed: []uint64{}, Page: 2})
	require.NoError(t, err)
	require.Equal(t, 100000, s.Len())
	assert.Equal(t, uint64(0), s.Points[0].Local)
	assert.Equal(t, float64(500000), s.Points[0].Value)
	assert.Equal(t, uint64(500010), s.Global(10))
}

func TestTooManyDimensionsNeverReads(t *testing.T) {
	arr := newFakeArray(1, 1, 1, 1, 1, 2)

	_, err := ReadSeries(arr, Request{Shape: arr.shape, FreeAxis: 5, Fixed: make([]uint64, 5)})
	assert.ErrorIs(t, err, ErrTooManyDimensions)
	assert.ErrorIs(t, err, meta.ErrSelection)
	assert.Zero(t, arr.reads)
}

func TestInvalidSelections(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"fixed length mismatch", Request{Shape: []uint64{4, 4}, Fixed: []uint64{}}, ErrInvalidSelection},
		{"empty shape", Request{Shape: nil}, ErrInvalidSelection},
		{"fixed out of range", Request{Shape: []uint64{4, 4}, Fixed: []uint64{4}}, ErrIndexOutOfRange},
		{"free axis out of range", Request{Shape: []uint64{4, 4}, FreeAxis: 2, Fixed: []uint64{0}}, ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := newFakeArray(4, 4)
			_, err := ReadSeries(arr, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsSelectionError(err))
			assert.Zero(t, arr.reads)
		})
	}
}

func TestScalarShortCircuit(t *testing.T) {
	region, err := Compute(Request{Shape: []uint64{1, 1}, Fixed: []uint64{0}})
	require.NoError(t, err)
	assert.True(t, region.Scalar)

	arr := &fakeArray{shape: []uint64{1, 1}, data: []float64{3.5}}
	s, err := ReadSeries(arr, Request{Shape: arr.shape, Fixed: []uint64{0}})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, 3.5, s.Points[0].Value)
}

func TestEmptyAxisHasNoData(t *testing.T) {
	arr := newFakeArray(0)

	s, err := ReadSeries(arr, Request{Shape: []uint64{0}, Fixed: []uint64{}})
	require.NoError(t, err)
	assert.Zero(t, s.Len())
	assert.Equal(t, NoData, s.Min)
	assert.Equal(t, NoData, s.Max)
	assert.Equal(t, 1, s.PageCount)
	assert.Zero(t, arr.reads)
	assert.Equal(t, "n/a", s.Min.String())
}

func TestRasterRegion(t *testing.T) {
	region, err := RasterRegion([]uint64{5, 6, 7, 3}, map[int]uint64{0: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 0, 0, 0}, region.Start)
	assert.Equal(t, []uint64{1, 6, 7, 3}, region.Count)

	arr := newFakeArray(2, 2, 3)
	whole, err := RasterRegion(arr.shape, nil)
	require.NoError(t, err)
	raw, err := ReadRaw(arr, whole)
	require.NoError(t, err)
	assert.Len(t, raw, 12)

	_, err = RasterRegion([]uint64{5, 6}, map[int]uint64{0: 5})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = RasterRegion(make([]uint64, 6), nil)
	assert.ErrorIs(t, err, ErrTooManyDimensions)
}

func TestMatrixWindow(t *testing.T) {
	arr := newFakeArray(10, 3)

	m, err := ReadMatrix(arr, meta.MatrixInt64, MatrixRequest{
		Shape: arr.shape, RowAxis: 0, ColAxis: 1, Fixed: []uint64{0, 0},
		RowOffset: 8, Rows: 4, Cols: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), m.RowStart)
	assert.Equal(t, [][]string{{"18", "19"}, {"21", "22"}, {"24", "25"}, {"27", "28"}}, m.Cells)
}

func TestMatrixTransposedAndFixed(t *testing.T) {
	arr := newFakeArray(2, 3, 4)

	m, err := ReadMatrix(arr, meta.MatrixFloat64, MatrixRequest{
		Shape: arr.shape, RowAxis: 2, ColAxis: 1, Fixed: []uint64{1, 0, 0},
	})
	require.NoError(t, err)
	require.Len(t, m.Cells, 4)
	// element (1, c, r) = 12 + 4c + r
	assert.Equal(t, []string{"12", "16", "20"}, m.Cells[0])
	assert.Equal(t, []string{"15", "19", "23"}, m.Cells[3])
}

func TestMatrixSingleColumnStrings(t *testing.T) {
	arr := newFakeArray(3)

	m, err := ReadMatrix(arr, meta.MatrixStrings, MatrixRequest{Shape: arr.shape, ColAxis: -1, Fixed: []uint64{0}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"s0"}, {"s1"}, {"s2"}}, m.Cells)

	_, err = ReadMatrix(arr, meta.MatrixNone, MatrixRequest{Shape: arr.shape, ColAxis: -1, Fixed: []uint64{0}})
	assert.ErrorIs(t, err, meta.ErrFormat)
}
