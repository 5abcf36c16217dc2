// Package hdf5 reads HDF5 files: groups, datasets, attributes, and the
// hard, soft and external links between them. It never writes.
package hdf5

import "errors"

// Common errors
var (
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth is the maximum number of soft/external links that can be followed
// in a single path resolution. This prevents stack overflow from deeply nested links.
const MaxLinkDepth = 100
