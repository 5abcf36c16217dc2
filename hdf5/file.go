package hdf5

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/object"
	"github.com/robert-malhotra/h5view/internal/superblock"
)

// File is an HDF5 file open for reading. Files reached through external
// links are opened on demand and closed along with it.
type File struct {
	path     string
	osFile   *os.File
	reader   *binary.Reader
	sb       *superblock.Superblock
	root     *Group
	opts     openOptions
	closed   bool
	external map[string]*File
}

// Open reads the superblock and root group of the file at path.
func Open(path string, opts ...OpenOption) (*File, error) {
	o := defaultOpenOptions()
	for _, opt := range opts {
		opt(&o)
	}

	osFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	sb, err := superblock.Read(osFile)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	f := &File{
		path:   path,
		osFile: osFile,
		reader: binary.NewReader(relativeTo(osFile, sb.FileOffset), sb.ReaderConfig()),
		sb:     sb,
		opts:   o,
	}
	if f.root, err = f.openGroupAt(sb.RootGroupAddress, "/"); err != nil {
		osFile.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	return f, nil
}

// relativeTo rebases addresses past a user block onto the superblock.
func relativeTo(f *os.File, base int64) io.ReaderAt {
	if base == 0 {
		return f
	}
	return io.NewSectionReader(f, base, math.MaxInt64-base)
}

// Close is idempotent.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	for _, ext := range f.external {
		ext.Close()
	}
	f.external = nil
	return f.osFile.Close()
}

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// Path is the name the file was opened with.
func (f *File) Path() string { return f.path }

// Version is the superblock version, 0 through 3.
func (f *File) Version() int { return int(f.sb.Version) }

// OpenGroup opens the group at an absolute path, following links.
func (f *File) OpenGroup(path string) (*Group, error) {
	obj, err := f.Object(path)
	if err != nil {
		return nil, err
	}
	g, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotGroup)
	}
	return g, nil
}

// OpenDataset opens the dataset at an absolute path, following links.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	obj, err := f.Object(path)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotDataset)
	}
	return ds, nil
}

// Object opens whatever path names, following links on the way: a
// *Group or a *Dataset.
func (f *File) Object(path string) (interface{}, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.open(path)
}

// GetAttr opens an attribute named as "/object/path@attr".
func (f *File) GetAttr(path string) (*Attribute, error) {
	objectPath, name, err := ParseAttrPath(path)
	if err != nil {
		return nil, err
	}
	obj, err := f.Object(objectPath)
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", objectPath, err)
	}

	var attr *Attribute
	switch o := obj.(type) {
	case *Group:
		attr = o.Attr(name)
	case *Dataset:
		attr = o.Attr(name)
	}
	if attr == nil {
		return nil, fmt.Errorf("attribute %s: %w", name, ErrNotFound)
	}
	return attr, nil
}

func (f *File) openGroupAt(addr uint64, path string) (*Group, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return &Group{file: f, path: path, addr: addr, header: h}, nil
}

func (f *File) openDatasetAt(addr uint64, path string) (*Dataset, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return newDataset(f, path, h)
}

// locate reads the header at addr to tell a dataset, which always has a
// dataspace, from a group.
func (f *File) locate(addr uint64) (*linkResolution, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	return &linkResolution{address: addr, isDataset: h.Dataspace() != nil, file: f}, nil
}

// follow resolves a soft link target from the root. visited holds every
// link followed so far in this resolution.
func (f *File) follow(target string, visited map[string]bool) (*linkResolution, error) {
	if len(visited) >= f.opts.maxLinkDepth {
		return nil, ErrLinkDepth
	}
	if visited[target] {
		return nil, fmt.Errorf("circular soft link to %s", target)
	}
	visited[target] = true
	res, _, err := f.root.descend(SplitPath(target), visited)
	return res, err
}

// followExternal resolves objPath inside the file an external link names,
// relative to this file's directory.
func (f *File) followExternal(name, objPath string, visited map[string]bool) (*linkResolution, error) {
	key := name + ":" + objPath
	switch {
	case !f.opts.followExternal:
		return nil, fmt.Errorf("external link %s: %w", key, ErrUnsupported)
	case len(visited) >= f.opts.maxLinkDepth:
		return nil, ErrLinkDepth
	case visited[key]:
		return nil, fmt.Errorf("circular external link to %s", key)
	}
	visited[key] = true

	ext, err := f.openExternal(name)
	if err != nil {
		return nil, err
	}
	res, _, err := ext.root.descend(SplitPath(objPath), visited)
	if err != nil {
		return nil, fmt.Errorf("resolving %q in external file %q: %w", objPath, name, err)
	}
	return res, nil
}

func (f *File) openExternal(name string) (*File, error) {
	if ext, ok := f.external[name]; ok {
		return ext, nil
	}
	full := name
	if !filepath.IsAbs(full) {
		full = filepath.Join(filepath.Dir(f.path), name)
	}
	ext, err := Open(full, func(o *openOptions) { *o = f.opts })
	if err != nil {
		return nil, fmt.Errorf("opening external file %q: %w", full, err)
	}
	if f.external == nil {
		f.external = make(map[string]*File)
	}
	f.external[name] = ext
	return ext, nil
}
