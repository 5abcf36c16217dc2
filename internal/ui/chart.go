package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/robert-malhotra/h5view/internal/selection"
)

const (
	labelWidth = 10
	// gutterWidth is the label plus " │".
	gutterWidth = labelWidth + 2
)

type chartLine struct {
	gutter string
	body   string
}

// plotSeries draws a page as columns of block characters, height-1 plot
// rows topped by the maximum and floored by the minimum, plus an x axis
// labelled with global indices. It returns nil when nothing can be drawn.
func plotSeries(s *selection.Series, width, height int) []chartLine {
	plotW := width - gutterWidth
	if s == nil || s.Len() == 0 || !s.Min.Valid || plotW < 1 || height < 3 {
		return nil
	}
	plotH := height - 1
	n := s.Len()
	cols := min(plotW, n)

	grid := make([][]rune, plotH)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", cols))
	}
	span := s.Max.Value - s.Min.Value
	level := func(v float64) int {
		if span == 0 {
			return 0
		}
		return int(math.Round((v - s.Min.Value) / span * float64(plotH-1)))
	}
	for c := 0; c < cols; c++ {
		bottom, top := -1, -1
		for _, p := range s.Points[c*n/cols : (c+1)*n/cols] {
			if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
				continue
			}
			l := level(p.Value)
			if bottom < 0 || l < bottom {
				bottom = l
			}
			if l > top {
				top = l
			}
		}
		for l := bottom; bottom >= 0 && l <= top; l++ {
			grid[plotH-1-l][c] = '█'
		}
	}

	lines := make([]chartLine, 0, height)
	for r, row := range grid {
		label := ""
		switch r {
		case 0:
			label = s.Max.String()
		case plotH - 1:
			label = s.Min.String()
		}
		lines = append(lines, chartLine{
			gutter: fmt.Sprintf("%*.*s │", labelWidth, labelWidth, label),
			body:   string(row),
		})
	}

	first := strconv.FormatUint(s.Global(0), 10)
	last := strconv.FormatUint(s.Global(uint64(n-1)), 10)
	pad := cols - len(first) - len(last)
	if pad < 1 {
		pad = 1
	}
	lines = append(lines, chartLine{
		gutter: strings.Repeat(" ", labelWidth) + " └",
		body:   first + strings.Repeat(" ", pad) + last,
	})
	return lines
}

func renderChart(st *Styles, s *selection.Series, width, height int) string {
	lines := plotSeries(s, width, height)
	if lines == nil {
		return st.Muted.Render("no finite values in this segment")
	}
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(st.Axis.Render(l.gutter))
		if i == len(lines)-1 {
			b.WriteString(st.Axis.Render(l.body))
			continue
		}
		b.WriteString(st.Chart.Render(l.body))
	}
	return b.String()
}
