package ui

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/meta"
	"github.com/robert-malhotra/h5view/internal/selection"
	"github.com/robert-malhotra/h5view/internal/tree"
)

// Store is what the model reads leaf values and attributes from.
type Store interface {
	Reader(path string) (selection.Reader, error)
	Attributes(path string) ([]meta.Attr, error)
}

// FileStore adapts an open container to Store.
func FileStore(f *meta.File) Store {
	return fileStore{f}
}

type fileStore struct {
	f *meta.File
}

func (s fileStore) Reader(path string) (selection.Reader, error) {
	ds, err := s.f.Dataset(path)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (s fileStore) Attributes(path string) ([]meta.Attr, error) {
	return s.f.Attributes(path)
}

var _ selection.Reader = (*hdf5.Dataset)(nil)

// content is what the content panel shows for one leaf and view.
type content struct {
	series *selection.Series
	lines  []string
	matrix *selection.Matrix
	// segment and segments describe the page of a string preview.
	segment, segments int
	err               error
}

// readStrings reads the page of string elements req selects.
func readStrings(r selection.Reader, req selection.Request) ([]string, selection.Region, error) {
	region, err := selection.Compute(req)
	if err != nil || region.Empty {
		return nil, region, err
	}
	var out []string
	if region.Scalar {
		err = r.Read(&out)
	} else {
		err = r.ReadSlice(region.Start, region.Count, &out)
	}
	if err != nil {
		return nil, region, fmt.Errorf("read strings: %w: %w", meta.ErrIO, err)
	}
	return out, region, nil
}

// loadContent reads what e's view selects. Matrix mode needs the window
// size in cells.
func loadContent(store Store, e *tree.Entry, rows, cols uint64) content {
	if e.Meta == nil {
		return content{err: e.MetaErr}
	}
	r, err := store.Reader(e.Path)
	if err != nil {
		return content{err: err}
	}

	if e.View.Mode == tree.ModeMatrix {
		req, err := e.MatrixRequest(rows, cols)
		if err != nil {
			return content{err: err}
		}
		m, err := selection.ReadMatrix(r, e.Meta.Matrixable, req)
		return content{matrix: m, err: err}
	}

	req, err := e.Request()
	if err != nil {
		return content{err: err}
	}
	switch {
	case e.Meta.Category.Numeric():
		s, err := selection.ReadSeries(r, req)
		return content{series: s, err: err}
	case e.Meta.Category.Text():
		values, region, err := readStrings(r, req)
		if err != nil {
			return content{err: err}
		}
		text := strings.Join(values, "\n")
		if e.Meta.Highlight != "" {
			text = Highlight(text, e.Meta.Highlight)
		}
		return content{lines: splitText([]string{text}), segment: region.Page, segments: region.PageCount}
	}
	return content{err: fmt.Errorf("no preview for %s values: %w", e.Meta.TypeName, meta.ErrFormat)}
}
