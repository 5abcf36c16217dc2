// Package selection turns an N-dimensional dataset shape plus a free axis,
// fixed indices and a page index into a bounded hyperslab, and materializes
// that hyperslab as a numeric series, a raw raster buffer or a matrix window.
package selection

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5view/internal/meta"
)

const (
	// PageSize is the largest number of free-axis elements read at once.
	PageSize = 250000

	// MaxDims is the largest rank the engine navigates.
	MaxDims = 5
)

var (
	ErrTooManyDimensions = fmt.Errorf("too many dimensions: %w", meta.ErrSelection)
	ErrInvalidSelection  = fmt.Errorf("invalid selection: %w", meta.ErrSelection)
	ErrIndexOutOfRange   = fmt.Errorf("index out of range: %w", meta.ErrSelection)
)

// Request is a selection over a dataset of the given shape. Fixed holds one
// index per axis other than FreeAxis, in axis order.
type Request struct {
	Shape    []uint64
	FreeAxis int
	Fixed    []uint64
	Page     int
}

// Region is a validated hyperslab.
type Region struct {
	// Scalar is set when every extent is 1 and the dataset should be read
	// whole instead of sliced.
	Scalar bool

	// Empty is set when some extent is 0. Nothing is read.
	Empty bool

	Start []uint64
	Count []uint64

	Page      int
	PageCount int

	// Offset is the free-axis position of the first element of the page.
	Offset uint64
}

// Len returns the number of elements the region covers.
func (r Region) Len() uint64 {
	if r.Empty {
		return 0
	}
	if r.Scalar {
		return 1
	}
	n := uint64(1)
	for _, c := range r.Count {
		n *= c
	}
	return n
}

// PageCount returns how many pages an axis of length n is split into. An
// empty axis still has one (empty) page.
func PageCount(n uint64) int {
	if n == 0 {
		return 1
	}
	return int((n + PageSize - 1) / PageSize)
}

// ClampPage limits page to [0, PageCount(n)).
func ClampPage(page int, n uint64) int {
	return clamp(page, PageCount(n))
}

func clamp(page, count int) int {
	if page < 0 {
		return 0
	}
	if page >= count {
		return count - 1
	}
	return page
}

func checkRank(shape []uint64) error {
	if len(shape) == 0 {
		return fmt.Errorf("empty shape: %w", ErrInvalidSelection)
	}
	if len(shape) > MaxDims {
		return fmt.Errorf("%d dimensions, at most %d supported: %w", len(shape), MaxDims, ErrTooManyDimensions)
	}
	return nil
}

// Compute validates req and returns the region for its page. No I/O is done.
func Compute(req Request) (Region, error) {
	shape := req.Shape
	if err := checkRank(shape); err != nil {
		return Region{}, err
	}
	rank := len(shape)
	if len(req.Fixed) != rank-1 {
		return Region{}, fmt.Errorf("%d fixed indices for rank %d: %w", len(req.Fixed), rank, ErrInvalidSelection)
	}
	if req.FreeAxis < 0 || req.FreeAxis >= rank {
		return Region{}, fmt.Errorf("free axis %d of %d: %w", req.FreeAxis, rank, ErrIndexOutOfRange)
	}

	scalar := true
	for _, d := range shape {
		if d == 0 {
			return Region{Empty: true, PageCount: 1}, nil
		}
		if d > 1 {
			scalar = false
		}
	}

	start := make([]uint64, rank)
	count := make([]uint64, rank)
	j := 0
	for axis := range shape {
		if axis == req.FreeAxis {
			continue
		}
		idx := req.Fixed[j]
		j++
		if idx >= shape[axis] {
			return Region{}, fmt.Errorf("index %d on axis %d of extent %d: %w", idx, axis, shape[axis], ErrIndexOutOfRange)
		}
		start[axis], count[axis] = idx, 1
	}
	if scalar {
		return Region{Scalar: true, Start: start, Count: count, PageCount: 1}, nil
	}

	n := shape[req.FreeAxis]
	pages := PageCount(n)
	page := clamp(req.Page, pages)
	offset := uint64(page) * PageSize
	start[req.FreeAxis] = offset
	count[req.FreeAxis] = min(PageSize, n-offset)

	return Region{
		Start:     start,
		Count:     count,
		Page:      page,
		PageCount: pages,
		Offset:    offset,
	}, nil
}

// RasterRegion selects a block that keeps every axis whole except the ones
// in pinned, which are fixed to a single index. Dimensionality is preserved:
// pinned axes keep a count of 1.
func RasterRegion(shape []uint64, pinned map[int]uint64) (Region, error) {
	if err := checkRank(shape); err != nil {
		return Region{}, err
	}
	start := make([]uint64, len(shape))
	count := append([]uint64(nil), shape...)
	for axis, idx := range pinned {
		if axis < 0 || axis >= len(shape) {
			return Region{}, fmt.Errorf("axis %d of %d: %w", axis, len(shape), ErrIndexOutOfRange)
		}
		if idx >= shape[axis] {
			return Region{}, fmt.Errorf("index %d on axis %d of extent %d: %w", idx, axis, shape[axis], ErrIndexOutOfRange)
		}
		start[axis], count[axis] = idx, 1
	}
	for _, c := range count {
		if c == 0 {
			return Region{Empty: true, PageCount: 1}, nil
		}
	}
	return Region{Start: start, Count: count, PageCount: 1}, nil
}

// IsSelectionError reports whether err was produced by validation.
func IsSelectionError(err error) bool {
	return errors.Is(err, meta.ErrSelection)
}
