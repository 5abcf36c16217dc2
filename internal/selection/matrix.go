package selection

import (
	"fmt"
	"strconv"

	"github.com/robert-malhotra/h5view/internal/meta"
)

// MatrixRequest selects a window of a 2D view over a dataset. RowAxis and
// ColAxis name the displayed axes; ColAxis is -1 for a single column. Fixed
// holds an index for every axis and is ignored on the displayed ones.
type MatrixRequest struct {
	Shape     []uint64
	RowAxis   int
	ColAxis   int
	Fixed     []uint64
	RowOffset uint64
	ColOffset uint64
	Rows      uint64
	Cols      uint64
}

// Matrix is a block of formatted cells. Cells[r][c] is the element at
// (RowStart+r, ColStart+c).
type Matrix struct {
	RowStart uint64
	ColStart uint64
	Cells    [][]string
}

// MatrixRegion validates req and returns the hyperslab for its window. The
// window is clipped to the dataset; offsets past the end are pulled back so
// the last row or column stays visible.
func MatrixRegion(req MatrixRequest) (Region, uint64, uint64, error) {
	shape := req.Shape
	if err := checkRank(shape); err != nil {
		return Region{}, 0, 0, err
	}
	rank := len(shape)
	if len(req.Fixed) != rank {
		return Region{}, 0, 0, fmt.Errorf("%d fixed indices for rank %d: %w", len(req.Fixed), rank, ErrInvalidSelection)
	}
	if req.RowAxis < 0 || req.RowAxis >= rank || req.ColAxis >= rank || req.ColAxis == req.RowAxis {
		return Region{}, 0, 0, fmt.Errorf("axes %d, %d of %d: %w", req.RowAxis, req.ColAxis, rank, ErrIndexOutOfRange)
	}

	start := make([]uint64, rank)
	count := make([]uint64, rank)
	for axis, d := range shape {
		if d == 0 {
			return Region{Empty: true, PageCount: 1}, 0, 0, nil
		}
		if axis == req.RowAxis || axis == req.ColAxis {
			continue
		}
		if req.Fixed[axis] >= d {
			return Region{}, 0, 0, fmt.Errorf("index %d on axis %d of extent %d: %w", req.Fixed[axis], axis, d, ErrIndexOutOfRange)
		}
		start[axis], count[axis] = req.Fixed[axis], 1
	}

	rowStart, rows := window(shape[req.RowAxis], req.RowOffset, req.Rows)
	start[req.RowAxis], count[req.RowAxis] = rowStart, rows
	colStart, cols := uint64(0), uint64(1)
	if req.ColAxis >= 0 {
		colStart, cols = window(shape[req.ColAxis], req.ColOffset, req.Cols)
		start[req.ColAxis], count[req.ColAxis] = colStart, cols
	}
	return Region{Start: start, Count: count, PageCount: 1}, rowStart, colStart, nil
}

func window(extent, offset, size uint64) (uint64, uint64) {
	if size == 0 || size > extent {
		size = extent
	}
	if offset+size > extent {
		offset = extent - size
	}
	return offset, size
}

// ReadMatrix reads the window of req and formats every cell according to
// kind.
func ReadMatrix(r Reader, kind meta.Matrixable, req MatrixRequest) (*Matrix, error) {
	if kind == meta.MatrixNone {
		return nil, fmt.Errorf("values cannot be shown as a matrix: %w", meta.ErrFormat)
	}
	region, rowStart, colStart, err := MatrixRegion(req)
	if err != nil {
		return nil, err
	}
	m := &Matrix{RowStart: rowStart, ColStart: colStart}
	if region.Empty {
		return m, nil
	}

	cells, err := readCells(r, kind, region)
	if err != nil {
		return nil, fmt.Errorf("read matrix window: %w: %w", meta.ErrIO, err)
	}

	rows := region.Count[req.RowAxis]
	cols := uint64(1)
	if req.ColAxis >= 0 {
		cols = region.Count[req.ColAxis]
	}
	// Row-major order puts the lower axis outermost.
	transposed := req.ColAxis >= 0 && req.ColAxis < req.RowAxis

	m.Cells = make([][]string, rows)
	for i := uint64(0); i < rows; i++ {
		m.Cells[i] = make([]string, cols)
		for j := uint64(0); j < cols; j++ {
			k := i*cols + j
			if transposed {
				k = j*rows + i
			}
			if k < uint64(len(cells)) {
				m.Cells[i][j] = cells[k]
			}
		}
	}
	return m, nil
}

func readCells(r Reader, kind meta.Matrixable, region Region) ([]string, error) {
	var out []string
	switch kind {
	case meta.MatrixFloat64:
		var v []float64
		if err := r.ReadSlice(region.Start, region.Count, &v); err != nil {
			return nil, err
		}
		for _, x := range v {
			out = append(out, strconv.FormatFloat(x, 'g', 6, 64))
		}
	case meta.MatrixInt64:
		var v []int64
		if err := r.ReadSlice(region.Start, region.Count, &v); err != nil {
			return nil, err
		}
		for _, x := range v {
			out = append(out, strconv.FormatInt(x, 10))
		}
	case meta.MatrixUint64:
		var v []uint64
		if err := r.ReadSlice(region.Start, region.Count, &v); err != nil {
			return nil, err
		}
		for _, x := range v {
			out = append(out, strconv.FormatUint(x, 10))
		}
	case meta.MatrixStrings:
		if err := r.ReadSlice(region.Start, region.Count, &out); err != nil {
			return nil, err
		}
	case meta.MatrixCompound:
		var v []interface{}
		if err := r.ReadSlice(region.Start, region.Count, &v); err != nil {
			return nil, err
		}
		for _, x := range v {
			out = append(out, meta.FormatValue(x))
		}
	}
	return out, nil
}
