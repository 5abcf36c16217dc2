package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/selection"
)

func series(offset uint64, values ...float64) *selection.Series {
	s := &selection.Series{Offset: offset, PageCount: 1}
	for i, v := range values {
		s.Points = append(s.Points, selection.Point{Local: uint64(i), Value: v})
		if math.IsNaN(v) {
			continue
		}
		if !s.Min.Valid || v < s.Min.Value {
			s.Min = selection.Bound{Value: v, Valid: true}
		}
		if !s.Max.Valid || v > s.Max.Value {
			s.Max = selection.Bound{Value: v, Valid: true}
		}
	}
	return s
}

func TestPlotSeriesRamp(t *testing.T) {
	lines := plotSeries(series(0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9), gutterWidth+10, 6)
	require.Len(t, lines, 6)

	assert.Equal(t, "         9 │", lines[0].gutter)
	assert.Equal(t, "         0 │", lines[4].gutter)
	assert.Equal(t, "        ██", lines[0].body)
	assert.Equal(t, "  ██      ", lines[3].body)
	assert.Equal(t, "██        ", lines[4].body)
	assert.Equal(t, "0        9", lines[5].body)
}

func TestPlotSeriesBucketsAndLabels(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i % 2)
	}
	lines := plotSeries(series(500000, values...), gutterWidth+20, 4)
	require.Len(t, lines, 4)
	// every column holds both values, so it spans the full height
	for _, l := range lines[:3] {
		assert.Equal(t, strings.Repeat("█", 20), l.body)
	}
	assert.Equal(t, "500000"+strings.Repeat(" ", 8)+"500099", lines[3].body)
}

func TestPlotSeriesSkipsNaN(t *testing.T) {
	lines := plotSeries(series(0, 1, math.NaN(), 3), gutterWidth+3, 3)
	require.Len(t, lines, 3)
	assert.Equal(t, "  █", lines[0].body)
	assert.Equal(t, "█  ", lines[1].body)
}

func TestPlotSeriesNothingToDraw(t *testing.T) {
	assert.Nil(t, plotSeries(nil, 80, 10))
	assert.Nil(t, plotSeries(&selection.Series{}, 80, 10))
	assert.Nil(t, plotSeries(series(0, math.NaN()), 80, 10))
	assert.Nil(t, plotSeries(series(0, 1, 2), gutterWidth, 10))

	flat := plotSeries(series(0, 4, 4, 4), gutterWidth+3, 3)
	require.NotNil(t, flat)
	assert.Equal(t, "███", flat[1].body)
}
