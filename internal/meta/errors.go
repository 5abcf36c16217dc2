// Package meta reads per-node facts from an HDF5 file into the plain values
// the explorer core works with: child listings, leaf metadata and
// stringified attributes.
package meta

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/robert-malhotra/h5view/hdf5"
)

// Error classes shared by the explorer. Concrete errors wrap one of these and
// are matched with errors.Is.
var (
	// ErrIO covers open and read failures on the container or a file it
	// references.
	ErrIO = errors.New("i/o error")

	// ErrFormat covers unparseable type descriptors and malformed metadata.
	ErrFormat = errors.New("format error")

	// ErrSelection covers invalid read requests.
	ErrSelection = errors.New("selection error")

	// ErrChannel covers communication failures with background workers.
	ErrChannel = errors.New("channel error")

	// ErrNotFound is returned when a path segment has no matching node.
	ErrNotFound = errors.New("not found")
)

// classify attaches an error class to an access-layer error.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, hdf5.ErrNotFound), errors.Is(err, hdf5.ErrInvalidPath):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case errors.As(err, &pathErr), errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission), errors.Is(err, hdf5.ErrClosed):
		return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrFormat, err)
	}
}
