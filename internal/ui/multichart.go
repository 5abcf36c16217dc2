package ui

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/robert-malhotra/h5view/internal/selection"
)

var (
	errNotChartable = errors.New("only numeric datasets can be overlaid")
	errNoFinite     = errors.New("no finite values to overlay")
)

// overlay is one segment of a dataset drawn in the multi-chart.
type overlay struct {
	path   string
	series *selection.Series
}

// multiChart overlays segments of several datasets on shared axes. The
// visible window is [lo, hi] as fractions of the combined index extent.
type multiChart struct {
	overlays []overlay
	cursor   int
	lo, hi   float64
}

const (
	zoomStep = 0.1
	minSpan  = 0.001
)

func newMultiChart() multiChart {
	return multiChart{hi: 1}
}

// add overlays s under path. A dataset already shown is replaced in place.
func (mc *multiChart) add(path string, s *selection.Series) error {
	if s == nil || !s.Min.Valid {
		return fmt.Errorf("%s: %w", path, errNoFinite)
	}
	for i, o := range mc.overlays {
		if o.path == path {
			mc.overlays[i].series = s
			mc.cursor = i
			return nil
		}
	}
	mc.overlays = append(mc.overlays, overlay{path: path, series: s})
	mc.cursor = len(mc.overlays) - 1
	return nil
}

// remove drops the overlay under the cursor.
func (mc *multiChart) remove() {
	if len(mc.overlays) == 0 {
		return
	}
	mc.overlays = append(mc.overlays[:mc.cursor], mc.overlays[mc.cursor+1:]...)
	if len(mc.overlays) == 0 {
		mc.clear()
		return
	}
	mc.cursor = min(mc.cursor, len(mc.overlays)-1)
}

func (mc *multiChart) clear() {
	mc.overlays = nil
	mc.cursor = 0
	mc.resetZoom()
}

func (mc *multiChart) move(delta int) {
	if len(mc.overlays) == 0 {
		return
	}
	mc.cursor = min(max(mc.cursor+delta, 0), len(mc.overlays)-1)
}

func (mc *multiChart) resetZoom() {
	mc.lo, mc.hi = 0, 1
}

// zoom scales the window about its centre. factor < 1 zooms in.
func (mc *multiChart) zoom(factor float64) {
	half := max((mc.hi-mc.lo)*factor, minSpan) / 2
	if half >= 0.5 {
		mc.resetZoom()
		return
	}
	mid := (mc.lo + mc.hi) / 2
	mc.lo, mc.hi = mid-half, mid+half
	mc.pan(0)
}

// pan shifts the window by frac of its width and stops at either end.
func (mc *multiChart) pan(frac float64) {
	span := mc.hi - mc.lo
	lo := min(max(mc.lo+frac*span, 0), 1-span)
	mc.lo, mc.hi = lo, lo+span
}

// window is the visible range of global indices.
func (mc *multiChart) window() (x0, x1 float64) {
	first, last := math.Inf(1), math.Inf(-1)
	for _, o := range mc.overlays {
		if n := o.series.Len(); n > 0 {
			first = min(first, float64(o.series.Offset))
			last = max(last, float64(o.series.Global(uint64(n-1))))
		}
	}
	if first > last {
		return 0, 0
	}
	span := last - first
	return first + mc.lo*span, first + mc.hi*span
}

// visible calls fn for every finite point inside the window.
func (mc *multiChart) visible(fn func(i int, x, v float64)) {
	x0, x1 := mc.window()
	for i, o := range mc.overlays {
		for _, p := range o.series.Points {
			x := float64(o.series.Global(p.Local))
			if x < x0 || x > x1 || math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
				continue
			}
			fn(i, x, p.Value)
		}
	}
}

// plot maps the visible points onto a rows x cols grid of overlay indices,
// -1 where nothing is drawn. Each overlay fills the span between its lowest
// and highest point in a column, and later overlays draw over earlier ones.
// ok is false when no point is visible.
func (mc *multiChart) plot(cols, rows int) (grid [][]int, lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	mc.visible(func(_ int, _, v float64) {
		lo, hi = min(lo, v), max(hi, v)
	})
	if lo > hi || cols < 1 || rows < 1 {
		return nil, 0, 0, false
	}

	x0, x1 := mc.window()
	column := func(x float64) int {
		if x1 == x0 {
			return 0
		}
		return int(math.Round((x - x0) / (x1 - x0) * float64(cols-1)))
	}
	level := func(v float64) int {
		if hi == lo {
			return 0
		}
		return int(math.Round((v - lo) / (hi - lo) * float64(rows-1)))
	}

	type span struct{ bottom, top int }
	spans := make([][]span, len(mc.overlays))
	for i := range spans {
		spans[i] = make([]span, cols)
		for c := range spans[i] {
			spans[i][c] = span{-1, -1}
		}
	}
	mc.visible(func(i int, x, v float64) {
		s := &spans[i][column(x)]
		l := level(v)
		if s.bottom < 0 || l < s.bottom {
			s.bottom = l
		}
		if l > s.top {
			s.top = l
		}
	})

	grid = make([][]int, rows)
	for r := range grid {
		grid[r] = make([]int, cols)
		for c := range grid[r] {
			grid[r][c] = -1
		}
	}
	for i, cs := range spans {
		for c, s := range cs {
			for l := s.bottom; s.bottom >= 0 && l <= s.top; l++ {
				grid[rows-1-l][c] = i
			}
		}
	}
	return grid, lo, hi, true
}

// legend lists one line per overlay in its colour, marking the cursor.
func (mc *multiChart) legend(st *Styles, width int) []string {
	lines := make([]string, 0, len(mc.overlays))
	for i, o := range mc.overlays {
		s := o.series
		text := clip(fmt.Sprintf("%s  segment %d/%d  [%s, %s]", o.path, s.Page+1, s.PageCount, s.Min, s.Max), width-4)
		marker := "  "
		if i == mc.cursor {
			marker = "› "
		}
		lines = append(lines, marker+st.SeriesStyle(i).Render("■ ")+st.Value.Render(text))
	}
	return lines
}

func (mc *multiChart) render(st *Styles, width, height int) []string {
	if len(mc.overlays) == 0 {
		return []string{st.Muted.Render("nothing overlaid, press M on a numeric dataset")}
	}
	lines := mc.legend(st, width)
	cols, rows := width-gutterWidth, height-len(lines)-1
	grid, lo, hi, ok := mc.plot(cols, rows)
	if !ok {
		return append(lines, st.Muted.Render("no finite values in view"))
	}
	for r, row := range grid {
		label := ""
		switch r {
		case 0:
			label = fmt.Sprintf("%g", hi)
		case len(grid) - 1:
			label = fmt.Sprintf("%g", lo)
		}
		lines = append(lines, st.Axis.Render(fmt.Sprintf("%*.*s │", labelWidth, labelWidth, label))+paintRow(st, row))
	}

	x0, x1 := mc.window()
	first, last := fmt.Sprintf("%.0f", x0), fmt.Sprintf("%.0f", x1)
	pad := max(cols-len(first)-len(last), 1)
	return append(lines, st.Axis.Render(strings.Repeat(" ", labelWidth)+" └"+first+strings.Repeat(" ", pad)+last))
}

// paintRow renders runs of cells owned by the same overlay in one style.
func paintRow(st *Styles, row []int) string {
	var b strings.Builder
	for i := 0; i < len(row); {
		j := i
		for j < len(row) && row[j] == row[i] {
			j++
		}
		if row[i] < 0 {
			b.WriteString(strings.Repeat(" ", j-i))
		} else {
			b.WriteString(st.SeriesStyle(row[i]).Render(strings.Repeat("█", j-i)))
		}
		i = j
	}
	return b.String()
}
