package tree

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/meta"
	"github.com/robert-malhotra/h5view/internal/selection"
)

// MaxViewDims is the number of fixed-index slots kept per leaf.
const MaxViewDims = 15

// Mode is how a leaf's content is shown.
type Mode uint8

const (
	ModePreview Mode = iota
	ModeMatrix
)

func (m Mode) String() string {
	if m == ModeMatrix {
		return "matrix"
	}
	return "preview"
}

// View is the interactive state of a leaf. Fixed[axis] is the pinned index
// of every axis except FreeAxis.
type View struct {
	FreeAxis int
	Fixed    [MaxViewDims]uint64
	Page     int

	// ActiveAxis is the pinned axis the command bar moves, or -1 when only
	// the page can move.
	ActiveAxis int

	Mode       Mode
	ColAxis    int
	RowOffset  uint64
	ColOffset  uint64
	LineOffset int

	// Frame is the image frame shown for leaves that hold several.
	Frame int
}

func newView(shape []uint64) View {
	v := View{ActiveAxis: -1, ColAxis: -1}
	for axis, d := range shape {
		if d > 1 {
			v.FreeAxis = axis
			break
		}
	}
	for axis := range shape {
		if axis == v.FreeAxis {
			continue
		}
		if v.ActiveAxis < 0 {
			v.ActiveAxis = axis
		}
		if v.ColAxis < 0 || (shape[v.ColAxis] <= 1 && shape[axis] > 1) {
			v.ColAxis = axis
		}
	}
	return v
}

func (e *Entry) shape() ([]uint64, error) {
	if e.Meta == nil {
		return nil, fmt.Errorf("%s has no metadata: %w", e.Path, meta.ErrFormat)
	}
	return e.Meta.Shape, nil
}

// Request returns the selection for the leaf's current view.
func (e *Entry) Request() (selection.Request, error) {
	shape, err := e.shape()
	if err != nil {
		return selection.Request{}, err
	}
	v := &e.View
	fixed := make([]uint64, 0, len(shape))
	for axis := range shape {
		if axis != v.FreeAxis && axis < MaxViewDims {
			fixed = append(fixed, v.Fixed[axis])
		}
	}
	return selection.Request{Shape: shape, FreeAxis: v.FreeAxis, Fixed: fixed, Page: v.Page}, nil
}

// MatrixRequest returns the matrix window for the leaf's current view.
func (e *Entry) MatrixRequest(rows, cols uint64) (selection.MatrixRequest, error) {
	shape, err := e.shape()
	if err != nil {
		return selection.MatrixRequest{}, err
	}
	v := &e.View
	fixed := make([]uint64, len(shape))
	copy(fixed, v.Fixed[:min(len(shape), MaxViewDims)])
	return selection.MatrixRequest{
		Shape:     shape,
		RowAxis:   v.FreeAxis,
		ColAxis:   v.ColAxis,
		Fixed:     fixed,
		RowOffset: v.RowOffset,
		ColOffset: v.ColOffset,
		Rows:      rows,
		Cols:      cols,
	}, nil
}

// PageCount returns the number of pages along the free axis.
func (e *Entry) PageCount() int {
	shape, err := e.shape()
	if err != nil || e.View.FreeAxis >= len(shape) {
		return 1
	}
	return selection.PageCount(shape[e.View.FreeAxis])
}

// SetFreeAxis makes axis the free axis. An axis of extent 1 is refused while
// a longer one exists. The page resets to 0.
func (e *Entry) SetFreeAxis(axis int) error {
	shape, err := e.shape()
	if err != nil {
		return err
	}
	if axis < 0 || axis >= len(shape) || axis >= MaxViewDims {
		return fmt.Errorf("axis %d of %d: %w", axis, len(shape), selection.ErrIndexOutOfRange)
	}
	if shape[axis] <= 1 {
		for _, d := range shape {
			if d > 1 {
				return fmt.Errorf("axis %d has extent %d: %w", axis, shape[axis], selection.ErrInvalidSelection)
			}
		}
	}
	v := &e.View
	old := v.FreeAxis
	v.FreeAxis = axis
	v.Fixed[axis] = 0
	v.Page = 0
	v.RowOffset = 0
	if v.ActiveAxis == axis {
		v.ActiveAxis = old
	}
	if v.ColAxis == axis {
		v.ColAxis = old
	}
	return nil
}

// CycleFreeAxis moves the free axis to the next axis with extent above 1.
func (e *Entry) CycleFreeAxis() error {
	shape, err := e.shape()
	if err != nil {
		return err
	}
	for step := 1; step < len(shape); step++ {
		axis := (e.View.FreeAxis + step) % len(shape)
		if shape[axis] > 1 {
			return e.SetFreeAxis(axis)
		}
	}
	return nil
}

// CycleActiveAxis moves the command bar to the next pinned axis.
func (e *Entry) CycleActiveAxis() {
	shape, err := e.shape()
	if err != nil || e.View.ActiveAxis < 0 {
		return
	}
	for step := 1; step <= len(shape); step++ {
		axis := (e.View.ActiveAxis + step) % len(shape)
		if axis != e.View.FreeAxis {
			e.View.ActiveAxis = axis
			return
		}
	}
}

// SetFixed pins axis to idx.
func (e *Entry) SetFixed(axis int, idx uint64) error {
	shape, err := e.shape()
	if err != nil {
		return err
	}
	if axis < 0 || axis >= len(shape) || axis >= MaxViewDims || axis == e.View.FreeAxis {
		return fmt.Errorf("axis %d is not pinned: %w", axis, selection.ErrInvalidSelection)
	}
	if idx >= shape[axis] {
		return fmt.Errorf("index %d on axis %d of extent %d: %w", idx, axis, shape[axis], selection.ErrIndexOutOfRange)
	}
	e.View.Fixed[axis] = idx
	return nil
}

// SetPage moves to page p, clamped to the valid range.
func (e *Entry) SetPage(p int) {
	count := e.PageCount()
	switch {
	case p < 0:
		p = 0
	case p >= count:
		p = count - 1
	}
	e.View.Page = p
}

// Position returns the value the command bar moves and its exclusive upper
// bound: the active pinned index, or the page when no axis is pinned.
func (e *Entry) Position() (uint64, uint64) {
	shape, err := e.shape()
	v := &e.View
	if err != nil || v.ActiveAxis < 0 || v.ActiveAxis >= len(shape) {
		return uint64(v.Page), uint64(e.PageCount())
	}
	return v.Fixed[v.ActiveAxis], shape[v.ActiveAxis]
}

// Seek sets the command bar position to n, clamped to its range.
func (e *Entry) Seek(n uint64) {
	_, limit := e.Position()
	if limit == 0 {
		return
	}
	if n >= limit {
		n = limit - 1
	}
	if e.View.ActiveAxis < 0 {
		e.SetPage(int(n))
		return
	}
	e.View.Fixed[e.View.ActiveAxis] = n
}

// Move shifts the command bar position by delta, clamped to its range.
func (e *Entry) Move(delta int64) {
	pos, _ := e.Position()
	next := int64(pos) + delta
	if next < 0 {
		next = 0
	}
	e.Seek(uint64(next))
}
