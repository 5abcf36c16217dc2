package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/meta"
	"github.com/robert-malhotra/h5view/internal/raster"
	"github.com/robert-malhotra/h5view/internal/selection"
	"github.com/robert-malhotra/h5view/internal/tree"
)

const (
	footerHeight  = 2
	infoHeight    = 12
	rowLabelWidth = 8
	cellWidth     = 12
	keyWidth      = 10
)

var errNotMatrixable = errors.New("values cannot be shown as a matrix")

// layout splits the window into the left column (tree over attributes) and
// the right column (info over content).
func (m *Model) layout() (leftW, rightW, treeH, attrH, contentH int) {
	leftW = max(m.width/3, 24)
	rightW = max(m.width-leftW, 24)
	body := max(m.height-footerHeight, 10)
	attrH = max(body/3, 4)
	treeH = body - attrH
	contentH = max(body-infoHeight, 5)
	return leftW, rightW, treeH, attrH, contentH
}

// contentSize is the cell area of the content panel below its title.
func (m *Model) contentSize() (cols, rows int) {
	_, rw, _, _, ch := m.layout()
	return max(rw-4, 1), max(ch-3, 1)
}

// View renders the explorer.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.screen == screenMultiChart {
		return m.multiChartView()
	}
	lw, rw, th, ah, ch := m.layout()
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.panel("tree", m.treeLines(lw-4, th-3), lw, th, m.focus == focusTree),
		m.panel("attributes", m.attrLines(lw-4, ah-3), lw, ah, m.focus == focusAttrs),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.panel("info", m.infoLines(rw-4), rw, infoHeight, false),
		m.panel(m.contentTitle(), m.contentLines(), rw, ch, m.focus == focusContent),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.footer(),
	)
}

func (m *Model) multiChartView() string {
	body := max(m.height-footerHeight, 10)
	w := max(m.width, 40)
	title := "multi-chart"
	if len(m.multi.overlays) > 0 {
		x0, x1 := m.multi.window()
		title += fmt.Sprintf("  %d series  x [%.0f, %.0f]", len(m.multi.overlays), x0, x1)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.panel(title, m.multi.render(m.styles, w-4, body-3), w, body, true),
		m.footer(),
	)
}

func (m *Model) panel(title string, lines []string, w, h int, active bool) string {
	st := m.styles.Panel
	if active {
		st = m.styles.ActivePanel
	}
	inner := max(h-2, 1)
	body := append([]string{m.styles.Title.Render(title)}, lines...)
	if len(body) > inner {
		body = body[:inner]
	}
	return st.Width(w - 2).Height(inner).MaxHeight(h).Render(strings.Join(body, "\n"))
}

// clip shortens s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (m *Model) treeLines(w, h int) []string {
	start := 0
	if m.cursor >= h {
		start = m.cursor - h + 1
	}
	var lines []string
	for i := start; i < len(m.rows) && i < start+h; i++ {
		lines = append(lines, m.rowLine(m.rows[i], w, i == m.cursor))
	}
	return lines
}

func (m *Model) rowLine(r tree.Row, w int, cursor bool) string {
	indent := strings.Repeat("  ", r.Depth)
	if r.More > 0 {
		text := clip(fmt.Sprintf("%s… %d more", indent, r.More), w)
		if cursor {
			return m.styles.Cursor.Render(text)
		}
		return m.styles.More.Render(text)
	}

	e, ok := m.tree.Get(r.ID)
	if !ok {
		return ""
	}
	marker := "· "
	if !e.IsLeaf() {
		marker = "▸ "
		if e.Expanded {
			marker = "▾ "
		}
	}
	suffix := ""
	if e.Link != hdf5.LinkHard {
		suffix = " (" + e.Link.String() + ")"
	}
	text := clip(indent+marker+e.Name+suffix, w)
	if cursor {
		return m.styles.Cursor.Render(text)
	}
	name := strings.TrimSuffix(text, suffix)
	if name == text {
		suffix = ""
	}
	st := m.styles.Leaf
	if !e.IsLeaf() {
		st = m.styles.Container
	}
	return st.Render(name) + m.styles.Link.Render(suffix)
}

func (m *Model) field(k, v string, w int) string {
	return m.styles.Label.Render(fmt.Sprintf("%-*s", keyWidth, k)) + m.styles.Value.Render(clip(v, w-keyWidth))
}

func (m *Model) infoLines(w int) []string {
	e, ok := m.tree.Get(m.selected)
	if !ok {
		return []string{m.styles.Muted.Render("nothing selected")}
	}
	lines := []string{
		m.field("path", e.Path, w),
		m.field("link", e.Link.String(), w),
	}
	if !e.IsLeaf() {
		children := "not loaded"
		if e.Loaded {
			children = fmt.Sprint(len(e.Children))
		}
		return append(lines, m.field("kind", "group", w), m.field("children", children, w))
	}
	md := e.Meta
	if md == nil {
		return append(lines, m.styles.Error.Render(clip(fmt.Sprint(e.MetaErr), w)))
	}

	shape := md.ShapeString()
	if md.Scalar {
		shape += " (scalar)"
	}
	chunks := md.ChunkString()
	if chunks == "" {
		chunks = "contiguous"
	}
	lines = append(lines,
		m.field("shape", shape, w),
		m.field("chunks", chunks, w),
		m.field("size", md.SizeString(), w),
		m.field("storage", fmt.Sprintf("%s (%.1f%%)", meta.FormatBytes(md.StorageBytes), md.StorageRatio()*100), w),
		m.field("type", fmt.Sprintf("%s (%s)", md.TypeName, md.Category), w),
		m.field("encoding", md.Encoding.String(), w),
	)
	if md.Image != nil {
		lines = append(lines, m.field("image", fmt.Sprintf("%s, %s", md.Image.Type, md.Image.Interlace), w))
	}
	return lines
}

func (m *Model) attrLines(w, h int) []string {
	if m.attrsErr != nil {
		return []string{m.styles.Error.Render(clip(m.attrsErr.Error(), w))}
	}
	if len(m.attrs) == 0 {
		return []string{m.styles.Muted.Render("no attributes")}
	}
	var lines []string
	for _, a := range m.attrs[min(m.attrOffset, len(m.attrs)):] {
		if len(lines) == h {
			break
		}
		if a.Err != nil {
			lines = append(lines, m.styles.Label.Render(a.Name+": ")+m.styles.Error.Render(clip(a.Err.Error(), w-len(a.Name)-2)))
			continue
		}
		text := clip(fmt.Sprintf("%s = %s  %s", a.Name, a.Value, a.Type), w)
		lines = append(lines, m.styles.Value.Render(text))
	}
	return lines
}

// selector shows the view's index tuple: ":" for the free axis and "*"
// after the pinned index the command bar moves.
func selector(e *tree.Entry) string {
	if e.Meta == nil {
		return ""
	}
	parts := make([]string, len(e.Meta.Shape))
	for axis := range e.Meta.Shape {
		switch {
		case axis == e.View.FreeAxis:
			parts[axis] = ":"
		case axis >= tree.MaxViewDims:
			parts[axis] = "0"
		default:
			parts[axis] = fmt.Sprint(e.View.Fixed[axis])
			if axis == e.View.ActiveAxis {
				parts[axis] += "*"
			}
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (m *Model) contentTitle() string {
	e := m.leaf()
	if e == nil {
		return "content"
	}
	if m.imageView(e) {
		return fmt.Sprintf("image %s  frame %d/%d", e.Meta.Image.Type, e.View.Frame+1, raster.Frames(e.Meta))
	}
	title := e.View.Mode.String() + "  " + selector(e)
	if e.View.Mode == tree.ModePreview {
		title += m.styles.Segment.Render(fmt.Sprintf("  segment %d/%d", e.View.Page+1, e.PageCount()))
	}
	return title
}

func (m *Model) contentLines() []string {
	e := m.leaf()
	if e == nil {
		return []string{m.styles.Muted.Render("select a dataset")}
	}
	if m.imageView(e) {
		return m.imageLines()
	}
	c := m.content
	if c.err != nil {
		return []string{m.styles.Error.Render(c.err.Error())}
	}
	cols, rows := m.contentSize()
	switch {
	case c.matrix != nil:
		return m.matrixLines(c.matrix)
	case c.series != nil:
		return strings.Split(renderChart(m.styles, c.series, cols, rows), "\n")
	case c.lines != nil:
		lines, _ := window(c.lines, e.View.LineOffset, rows)
		return lines
	}
	return []string{m.styles.Muted.Render("empty")}
}

func (m *Model) imageLines() []string {
	if m.track.Err != nil {
		return []string{m.styles.Error.Render(m.track.Err.Error())}
	}
	d := m.track.Display
	if d == nil {
		return []string{m.styles.Muted.Render("decoding…")}
	}
	switch m.proto {
	case ProtocolKitty:
		return []string{kittyImage(d.PNG, d.Cols, d.Rows)}
	case ProtocolITerm:
		return []string{itermImage(d.PNG, d.Cols, d.Rows)}
	case ProtocolSixel:
		out, err := sixelImage(d.Image)
		if err != nil {
			return []string{m.styles.Error.Render(err.Error())}
		}
		return []string{out}
	}
	return halfBlocks(d.Image, m.profile)
}

func (m *Model) matrixLines(mx *selection.Matrix) []string {
	cols := 0
	if len(mx.Cells) > 0 {
		cols = len(mx.Cells[0])
	}
	var header strings.Builder
	header.WriteString(strings.Repeat(" ", rowLabelWidth))
	for j := 0; j < cols; j++ {
		fmt.Fprintf(&header, "%*d", cellWidth, mx.ColStart+uint64(j))
	}
	lines := []string{m.styles.MatrixHeader.Render(header.String())}
	for i, row := range mx.Cells {
		var b strings.Builder
		for _, cell := range row {
			fmt.Fprintf(&b, "%*s", cellWidth, clip(cell, cellWidth-1))
		}
		label := fmt.Sprintf("%*d", rowLabelWidth, mx.RowStart+uint64(i))
		lines = append(lines, m.styles.MatrixHeader.Render(label)+m.styles.Value.Render(b.String()))
	}
	return lines
}

func (m *Model) footer() string {
	if m.commanding {
		return m.styles.Command.Render(m.input.View())
	}
	status := ""
	switch {
	case m.err != nil:
		status = m.styles.Error.Render(m.err.Error())
	case m.last.Kind != CommandNoop:
		status = m.styles.Muted.Render("last command " + m.last.String())
	}
	var km help.KeyMap = m.keys
	if m.screen == screenMultiChart {
		km = m.chartKeys
	}
	return lipgloss.JoinVertical(lipgloss.Left, status, m.help.View(km))
}
