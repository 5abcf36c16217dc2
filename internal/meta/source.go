package meta

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/robert-malhotra/h5view/hdf5"
)

// NodeKind tags a node as a container (root or group) or a leaf (dataset).
type NodeKind uint8

const (
	Container NodeKind = iota
	Leaf
)

func (k NodeKind) String() string {
	if k == Leaf {
		return "leaf"
	}
	return "container"
}

// Child is one member of a container as discovered at load time.
type Child struct {
	Name string
	Path string
	Link hdf5.LinkKind
	Kind NodeKind

	// Meta describes a leaf. MetaErr is set instead when the leaf was found
	// but could not be described.
	Meta    *LeafMeta
	MetaErr error

	// Err is set when the link target could not be resolved.
	Err error
}

// Broken reports whether the child's link could not be resolved.
func (c Child) Broken() bool {
	return c.Err != nil
}

// Source enumerates the members of a container path.
type Source interface {
	Children(path string) ([]Child, error)
}

// Attr is an attribute rendered for display.
type Attr struct {
	Name  string
	Value string
	Type  string
	Err   error
}

// File is a Source backed by an open HDF5 file.
type File struct {
	h5     *hdf5.File
	logger *slog.Logger
}

// Open opens the file at path. Inaccessible paths fail with ErrIO and
// unreadable contents with ErrFormat.
func Open(path string, logger *slog.Logger, opts ...hdf5.OpenOption) (*File, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h5, err := hdf5.Open(path, opts...)
	if err != nil {
		return nil, classify("open "+path, err)
	}
	logger.Debug("opened container", "path", path, "superblock", h5.Version())
	return &File{h5: h5, logger: logger}, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string {
	return f.h5.Path()
}

// Close releases the file.
func (f *File) Close() error {
	return f.h5.Close()
}

// Children lists the members of the group at path in storage order. Leaves
// are described on the way.
func (f *File) Children(path string) ([]Child, error) {
	g, err := f.h5.OpenGroup(path)
	if err != nil {
		return nil, classify("open group "+path, err)
	}
	links, err := g.Links()
	if err != nil {
		return nil, classify("list "+path, err)
	}

	children := make([]Child, 0, len(links))
	for _, l := range links {
		c := Child{Name: l.Name, Path: l.Path(), Link: l.Kind}
		switch {
		case l.Broken():
			c.Err = l.Err
			f.logger.Debug("unresolved link", "path", c.Path, "kind", l.Kind, "target", l.Target, "err", l.Err)
		case l.IsDataset:
			c.Kind = Leaf
			ds, err := l.Dataset()
			if err != nil {
				c.MetaErr = classify("open dataset "+c.Path, err)
				break
			}
			c.Meta, c.MetaErr = Describe(ds)
		}
		children = append(children, c)
	}
	return children, nil
}

// Dataset opens the dataset at path.
func (f *File) Dataset(path string) (*hdf5.Dataset, error) {
	ds, err := f.h5.OpenDataset(path)
	if err != nil {
		return nil, classify("open dataset "+path, err)
	}
	return ds, nil
}

// Describe reads the facts of ds into a LeafMeta.
func Describe(ds *hdf5.Dataset) (*LeafMeta, error) {
	storage, err := ds.StorageSize()
	if err != nil {
		return nil, classify("storage size of "+ds.Path(), err)
	}
	facts := Facts{
		Shape:    ds.Shape(),
		Datatype: ds.Datatype(),
		Chunks:   ds.ChunkShape(),
		Storage:  storage,
		Attrs:    make(map[string]string),
	}
	for _, name := range ReservedAttrs {
		a := ds.Attr(name)
		if a == nil || a.Datatype() == nil || !a.Datatype().IsString() {
			continue
		}
		if s, err := a.ReadScalarString(); err == nil {
			facts.Attrs[name] = s
		}
	}
	return NewLeafMeta(facts), nil
}

type attributed interface {
	Attrs() []string
	Attr(name string) *hdf5.Attribute
}

// Attributes returns the attributes of the object at path sorted by name.
// A value that cannot be read is reported on its Attr rather than failing
// the whole listing.
func (f *File) Attributes(path string) ([]Attr, error) {
	obj, err := f.h5.Object(path)
	if err != nil {
		return nil, classify("open "+path, err)
	}
	holder, ok := obj.(attributed)
	if !ok {
		return nil, fmt.Errorf("%s has no attributes: %w", path, ErrFormat)
	}

	names := holder.Attrs()
	sort.Strings(names)
	attrs := make([]Attr, 0, len(names))
	for _, name := range names {
		a := holder.Attr(name)
		if a == nil {
			continue
		}
		out := Attr{Name: name, Type: TypeName(a.Datatype())}
		if v, err := a.Value(); err != nil {
			out.Err = fmt.Errorf("%w: %w", ErrFormat, err)
		} else {
			out.Value = FormatValue(v)
		}
		attrs = append(attrs, out)
	}
	return attrs, nil
}

// FormatValue renders an attribute value for display. Slices are shown in
// brackets and compound members as name: value pairs in sorted order.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case []string:
		return "[" + strings.Join(t, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + FormatValue(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []float64:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprintf("%g", e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return strings.ReplaceAll(fmt.Sprint(v), " ", ", ")
	}
}
