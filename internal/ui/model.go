// Package ui is the interactive explorer: a bubbletea model over a lazy
// tree, with numeric, string, matrix and raster views of the selected leaf.
package ui

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/robert-malhotra/h5view/internal/config"
	"github.com/robert-malhotra/h5view/internal/meta"
	"github.com/robert-malhotra/h5view/internal/raster"
	"github.com/robert-malhotra/h5view/internal/selection"
	"github.com/robert-malhotra/h5view/internal/tree"
)

type focus uint8

const (
	focusTree focus = iota
	focusContent
	focusAttrs
)

// screen is what fills the window.
type screen uint8

const (
	screenExplorer screen = iota
	screenMultiChart
)

type tickMsg time.Time

// Options configure a Model.
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Profile termenv.Profile
	// Getenv reads the environment for terminal detection. Defaults to
	// os.Getenv.
	Getenv func(string) string
	// Path is expanded and selected on start.
	Path string
}

// Model is the explorer state. It is owned by the bubbletea loop.
type Model struct {
	tree  *tree.Tree
	store Store
	pipe  *raster.Pipeline
	track raster.Tracker

	styles    *Styles
	keys      keyMap
	chartKeys chartKeyMap
	help      help.Model
	input     textinput.Model
	logger    *slog.Logger

	proto        Protocol
	profile      termenv.Profile
	cellW, cellH int
	tick         time.Duration

	rows          []tree.Row
	cursor        int
	focus         focus
	width, height int

	commanding bool
	last       Command

	screen screen
	multi  multiChart

	selected   tree.NodeID
	content    content
	attrs      []meta.Attr
	attrsErr   error
	attrOffset int

	err      error
	quitting bool
}

// New creates a model over t. pipe must already be started.
func New(t *tree.Tree, store Store, pipe *raster.Pipeline, opts Options) *Model {
	cfg := opts.Config
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	ti := textinput.New()
	ti.Prompt = ":"
	ti.Placeholder = "+N, -N or N"
	ti.CharLimit = 24

	m := &Model{
		tree:      t,
		store:     store,
		pipe:      pipe,
		styles:    DefaultStyles(),
		keys:      newKeyMap(),
		chartKeys: newChartKeyMap(),
		help:      help.New(),
		input:     ti,
		logger:    opts.Logger,
		proto:     DetectProtocol(cfg.UI.Images, opts.Getenv),
		profile:   opts.Profile,
		cellW:     cfg.UI.CellWidthPX,
		cellH:     cfg.UI.CellHeightPX,
		tick:      time.Duration(cfg.UI.TickMS) * time.Millisecond,
		selected:  tree.NoNode,
		multi:     newMultiChart(),
	}
	m.logger.Debug("raster protocol", "protocol", m.proto)

	if err := t.Expand(t.Root()); err != nil {
		m.err = err
	}
	m.refresh()
	if opts.Path != "" {
		id, err := t.ExpandPath(t.Root(), opts.Path)
		if err != nil {
			m.err = err
		} else {
			m.refresh()
			m.moveTo(id)
		}
	}
	m.selectCurrent()
	return m
}

// Init starts the tick that drains the raster pipeline.
func (m *Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.reload()
		return m, nil

	case tickMsg:
		m.drain()
		return m, m.tickCmd()

	case tea.KeyMsg:
		switch {
		case m.commanding:
			return m.updateCommand(msg)
		case m.screen == screenMultiChart:
			return m.updateMultiChart(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

// drain applies finished pipeline work to the active raster and asks for a
// resize when the display is out of date.
func (m *Model) drain() {
	b := m.pipe.Drain()
	for _, r := range b.Decoded {
		if !m.track.ApplyDecode(r) {
			m.logger.Debug("stale decode dropped", "key", r.Key)
		}
	}
	for _, r := range b.Resized {
		if !m.track.ApplyResize(r) {
			m.logger.Debug("stale resize dropped", "key", r.Key, "cols", r.Cols, "rows", r.Rows)
		}
	}
	m.requestResize()
}

func (m *Model) requestResize() {
	key, ok := m.track.Active()
	if !ok || m.proto == ProtocolNone {
		return
	}
	cols, rows := m.contentSize()
	if !m.track.Target(cols, rows) {
		return
	}
	req := raster.ResizeRequest{
		Key:        key,
		Image:      m.track.Decoded,
		Cols:       cols,
		Rows:       rows,
		CellWidth:  1,
		CellHeight: 2,
	}
	if m.proto.Graphics() {
		req.CellWidth, req.CellHeight = m.cellW, m.cellH
		req.EncodePNG = m.proto != ProtocolSixel
	}
	if err := m.pipe.Resize(req); err != nil {
		m.logger.Warn("resize not queued", "key", key, "err", err)
		m.track.Retry()
	}
}

func (m *Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.commanding = false
		m.input.Blur()
		cmd, err := ParseCommand(m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		if cmd.Kind != CommandNoop {
			m.last = cmd
			m.runCommand(cmd)
		}
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.commanding = false
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Focus):
		m.focus = (m.focus + 1) % 3
	case key.Matches(msg, m.keys.Command):
		m.commanding = true
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Repeat):
		m.runCommand(m.last)
	case key.Matches(msg, m.keys.Up):
		m.scroll(-1)
	case key.Matches(msg, m.keys.Down):
		m.scroll(1)
	case key.Matches(msg, m.keys.PageUp):
		m.scroll(-20)
	case key.Matches(msg, m.keys.PageDown):
		m.scroll(20)
	case key.Matches(msg, m.keys.Left):
		m.left()
	case key.Matches(msg, m.keys.Right):
		m.right()
	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
	case key.Matches(msg, m.keys.Mode):
		m.toggleMode()
	case key.Matches(msg, m.keys.Overlay):
		m.showMultiChart()
	case key.Matches(msg, m.keys.FreeAxis):
		if e := m.leaf(); e != nil {
			m.err = e.CycleFreeAxis()
			m.reload()
		}
	case key.Matches(msg, m.keys.Active):
		if e := m.leaf(); e != nil {
			e.CycleActiveAxis()
		}
	case key.Matches(msg, m.keys.NextSeg):
		m.segment(1)
	case key.Matches(msg, m.keys.PrevSeg):
		m.segment(-1)
	}
	return m, nil
}

func (m *Model) updateMultiChart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	km := m.chartKeys
	switch {
	case key.Matches(msg, km.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, km.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, km.Back):
		m.screen = screenExplorer
	case key.Matches(msg, km.Up):
		m.multi.move(-1)
	case key.Matches(msg, km.Down):
		m.multi.move(1)
	case key.Matches(msg, km.ZoomIn):
		m.multi.zoom(1 - zoomStep)
	case key.Matches(msg, km.ZoomOut):
		m.multi.zoom(1 / (1 - zoomStep))
	case key.Matches(msg, km.PanLeft):
		m.multi.pan(-zoomStep)
	case key.Matches(msg, km.PanRight):
		m.multi.pan(zoomStep)
	case key.Matches(msg, km.Reset):
		m.multi.resetZoom()
	case key.Matches(msg, km.Remove):
		m.multi.remove()
	case key.Matches(msg, km.Clear):
		m.multi.clear()
	}
	return m, nil
}

// showMultiChart overlays the current segment of the selected numeric leaf
// and switches to the multi-chart. Without such a leaf it only switches
// when something is already overlaid.
func (m *Model) showMultiChart() {
	e := m.leaf()
	switch {
	case e != nil && e.Meta != nil && e.Meta.Category.Numeric():
		r, err := m.store.Reader(e.Path)
		if err != nil {
			m.err = err
			return
		}
		req, err := e.Request()
		if err != nil {
			m.err = err
			return
		}
		s, err := selection.ReadSeries(r, req)
		if err == nil {
			err = m.multi.add(e.Path, s)
		}
		if err != nil {
			m.err = err
			return
		}
	case len(m.multi.overlays) == 0:
		m.err = errNotChartable
		return
	}
	m.screen = screenMultiChart
	m.logger.Debug("multi-chart", "series", len(m.multi.overlays))
}

// refresh rebuilds the visible rows and keeps the cursor in range.
func (m *Model) refresh() {
	m.rows = m.tree.Visible()
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) moveTo(id tree.NodeID) {
	for i, r := range m.rows {
		if r.ID == id && r.More == 0 {
			m.cursor = i
			return
		}
	}
}

func (m *Model) current() (tree.Row, *tree.Entry) {
	if m.cursor >= len(m.rows) {
		return tree.Row{ID: tree.NoNode}, nil
	}
	r := m.rows[m.cursor]
	e, _ := m.tree.Get(r.ID)
	return r, e
}

// leaf returns the selected dataset, or nil.
func (m *Model) leaf() *tree.Entry {
	e, ok := m.tree.Get(m.selected)
	if !ok || !e.IsLeaf() {
		return nil
	}
	return e
}

func (m *Model) selectCurrent() {
	row, e := m.current()
	if e == nil || row.More > 0 || e.ID == m.selected {
		return
	}
	m.selected = e.ID
	m.attrs, m.attrsErr = m.store.Attributes(e.Path)
	m.attrOffset = 0
	m.reload()
}

// imageView reports whether e is shown as a raster.
func (m *Model) imageView(e *tree.Entry) bool {
	return e.Meta != nil && e.Meta.Image != nil && e.View.Mode == tree.ModePreview && m.proto != ProtocolNone
}

// reload re-reads the content of the selected leaf for its current view.
func (m *Model) reload() {
	e := m.leaf()
	if e == nil {
		m.content = content{}
		m.track.Clear()
		return
	}
	if m.imageView(e) {
		m.content = content{}
		m.submitDecode(e)
		return
	}
	m.track.Clear()
	cols, rows := m.contentSize()
	m.content = loadContent(m.store, e, uint64(max(rows-1, 1)), uint64(max((cols-rowLabelWidth)/cellWidth, 1)))
	if m.content.err != nil {
		m.logger.Debug("content failed", "path", e.Path, "err", m.content.err)
	}
	if mx := m.content.matrix; mx != nil {
		e.View.RowOffset, e.View.ColOffset = mx.RowStart, mx.ColStart
	}
}

func (m *Model) submitDecode(e *tree.Entry) {
	req, err := raster.NewDecodeRequest(e.Path, e.Meta, e.View.Frame)
	if err != nil {
		m.track.Clear()
		m.content = content{err: err}
		return
	}
	if !m.track.Select(req.Key) {
		m.requestResize()
		return
	}
	if err := m.pipe.Decode(req); err != nil {
		m.track.ApplyDecode(raster.DecodeResult{Key: req.Key, Err: err})
	}
}

func (m *Model) runCommand(c Command) {
	e := m.leaf()
	if e == nil || c.Kind == CommandNoop {
		return
	}
	if m.imageView(e) {
		c.Apply(frameCursor{frame: &e.View.Frame, frames: raster.Frames(e.Meta)})
	} else {
		c.Apply(e)
	}
	m.reload()
}

func (m *Model) segment(delta int) {
	e := m.leaf()
	if e == nil {
		return
	}
	if m.imageView(e) {
		cur := frameCursor{frame: &e.View.Frame, frames: raster.Frames(e.Meta)}
		if delta < 0 {
			Command{Kind: CommandDecrement, N: 1}.Apply(cur)
		} else {
			Command{Kind: CommandIncrement, N: 1}.Apply(cur)
		}
	} else {
		e.SetPage(e.View.Page + delta)
		e.View.LineOffset = 0
	}
	m.reload()
}

func (m *Model) scroll(delta int) {
	switch m.focus {
	case focusTree:
		m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
		m.selectCurrent()
	case focusAttrs:
		m.attrOffset = min(max(m.attrOffset+delta, 0), max(len(m.attrs)-1, 0))
	case focusContent:
		e := m.leaf()
		if e == nil {
			return
		}
		if e.View.Mode == tree.ModeMatrix {
			e.View.RowOffset = addOffset(e.View.RowOffset, delta)
			m.reload()
			return
		}
		_, rows := m.contentSize()
		_, e.View.LineOffset = window(m.content.lines, e.View.LineOffset+delta, rows)
	}
}

func addOffset(off uint64, delta int) uint64 {
	if delta < 0 && uint64(-delta) > off {
		return 0
	}
	return uint64(int64(off) + int64(delta))
}

func (m *Model) left() {
	if m.focus == focusContent {
		if e := m.leaf(); e != nil && e.View.Mode == tree.ModeMatrix {
			e.View.ColOffset = addOffset(e.View.ColOffset, -1)
			m.reload()
		}
		return
	}
	row, e := m.current()
	if e == nil || row.More > 0 {
		return
	}
	if !e.IsLeaf() && e.Expanded {
		m.err = m.tree.Collapse(e.ID)
		m.refresh()
		return
	}
	// move to the parent row
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].Depth < row.Depth && m.rows[i].More == 0 {
			m.cursor = i
			m.selectCurrent()
			return
		}
	}
}

func (m *Model) right() {
	if m.focus == focusContent {
		if e := m.leaf(); e != nil && e.View.Mode == tree.ModeMatrix {
			e.View.ColOffset = addOffset(e.View.ColOffset, 1)
			m.reload()
		}
		return
	}
	row, e := m.current()
	if e == nil || row.More > 0 || e.IsLeaf() {
		return
	}
	m.err = m.tree.Expand(e.ID)
	m.refresh()
}

func (m *Model) toggle() {
	row, e := m.current()
	if e == nil {
		return
	}
	switch {
	case row.More > 0:
		m.tree.ShowMore(row.ID)
	case e.IsLeaf():
		return
	default:
		m.err = m.tree.Toggle(e.ID)
	}
	m.refresh()
	m.selectCurrent()
}

func (m *Model) toggleMode() {
	e := m.leaf()
	if e == nil || e.Meta == nil {
		return
	}
	if e.View.Mode == tree.ModeMatrix {
		e.View.Mode = tree.ModePreview
	} else if e.Meta.Matrixable != meta.MatrixNone {
		e.View.Mode = tree.ModeMatrix
	} else {
		m.err = errNotMatrixable
		return
	}
	m.reload()
}
