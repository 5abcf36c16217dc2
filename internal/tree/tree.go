// Package tree mirrors a container's hierarchy as an arena of entries
// addressed by NodeID. Children are loaded lazily, once, in a fixed bucket
// order, and leaves carry their metadata and interactive view state.
package tree

import (
	"fmt"
	"log/slog"
	"path"
	"sort"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/meta"
)

// NodeID addresses an entry in the arena. IDs are stable for the life of
// the tree.
type NodeID int

// NoNode is the invalid NodeID.
const NoNode NodeID = -1

// Entry is one node of the tree.
type Entry struct {
	ID   NodeID
	Name string
	Path string
	Link hdf5.LinkKind
	Kind meta.NodeKind

	Meta    *meta.LeafMeta
	MetaErr error

	Expanded bool
	Loaded   bool
	Children []NodeID
	Depth    int

	// View is the interactive state of a leaf.
	View View

	// shown is how many children are listed before a "load more" row.
	shown int
}

// IsLeaf reports whether the entry is a dataset.
func (e *Entry) IsLeaf() bool {
	return e.Kind == meta.Leaf
}

// Tree is the arena. It is not safe for concurrent use; it belongs to the UI
// goroutine.
type Tree struct {
	src    meta.Source
	nodes  []*Entry
	loads  int
	page   int
	links  []hdf5.OpenOption
	logger *slog.Logger
}

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used for load events.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithPageChildren sets how many children of a container are listed before
// a "load more" row. Zero or less lists all.
func WithPageChildren(n int) Option {
	return func(t *Tree) { t.page = n }
}

// WithLinks sets how Open follows links in the file.
func WithLinks(opts ...hdf5.OpenOption) Option {
	return func(t *Tree) { t.links = opts }
}

// New creates a tree whose root container is named name and reads children
// from src.
func New(src meta.Source, name string, opts ...Option) *Tree {
	t := &Tree{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	t.add(&Entry{Name: name, Path: "/", Kind: meta.Container})
	return t
}

// Open opens the file at path and returns a tree over it with the root
// unexpanded. The caller closes the returned file.
func Open(filename string, logger *slog.Logger, opts ...Option) (*Tree, *meta.File, error) {
	t := New(nil, path.Base(filename), append([]Option{WithLogger(logger)}, opts...)...)
	f, err := meta.Open(filename, t.logger, t.links...)
	if err != nil {
		return nil, nil, err
	}
	t.src = f
	return t, f, nil
}

func (t *Tree) add(e *Entry) NodeID {
	e.ID = NodeID(len(t.nodes))
	e.shown = t.page
	t.nodes = append(t.nodes, e)
	return e.ID
}

// Root returns the root ID.
func (t *Tree) Root() NodeID {
	return 0
}

// Len returns the number of entries created so far.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Loads returns how many times children were read from the source.
func (t *Tree) Loads() int {
	return t.loads
}

// Get returns the entry for id, or false if id is not in the arena.
func (t *Tree) Get(id NodeID) (*Entry, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

func (t *Tree) entry(id NodeID) (*Entry, error) {
	e, ok := t.Get(id)
	if !ok {
		return nil, fmt.Errorf("node %d: %w", id, meta.ErrNotFound)
	}
	return e, nil
}

// Expand loads the children of id if needed and marks it expanded. Leaves
// are left untouched.
func (t *Tree) Expand(id NodeID) error {
	e, err := t.entry(id)
	if err != nil {
		return err
	}
	if e.IsLeaf() {
		return nil
	}
	if err := t.load(e); err != nil {
		return err
	}
	e.Expanded = true
	return nil
}

// Collapse hides the children of id. They stay loaded.
func (t *Tree) Collapse(id NodeID) error {
	e, err := t.entry(id)
	if err != nil {
		return err
	}
	e.Expanded = false
	return nil
}

// Toggle flips id between expanded and collapsed.
func (t *Tree) Toggle(id NodeID) error {
	e, err := t.entry(id)
	if err != nil {
		return err
	}
	if e.Expanded {
		return t.Collapse(id)
	}
	return t.Expand(id)
}

// ExpandPath expands each segment of rel below id and returns the entry the
// last segment names. A segment with no matching child fails with
// meta.ErrNotFound.
func (t *Tree) ExpandPath(id NodeID, rel string) (NodeID, error) {
	cur, err := t.entry(id)
	if err != nil {
		return NoNode, err
	}
	for _, name := range hdf5.SplitPath(rel) {
		if err := t.Expand(cur.ID); err != nil {
			return NoNode, err
		}
		next := t.child(cur, name)
		if next == nil {
			return NoNode, fmt.Errorf("%q under %s: %w", name, cur.Path, meta.ErrNotFound)
		}
		cur = next
	}
	if err := t.Expand(cur.ID); err != nil {
		return NoNode, err
	}
	return cur.ID, nil
}

func (t *Tree) child(e *Entry, name string) *Entry {
	for _, id := range e.Children {
		if c := t.nodes[id]; c.Name == name {
			return c
		}
	}
	return nil
}

// bucket orders children: groups before datasets, and within each hard,
// external, then soft links.
func bucket(c meta.Child) int {
	b := 0
	switch c.Link {
	case hdf5.LinkExternal:
		b = 1
	case hdf5.LinkSoft:
		b = 2
	}
	if c.Kind == meta.Leaf {
		b += 3
	}
	return b
}

func (t *Tree) load(e *Entry) error {
	if e.Loaded {
		return nil
	}
	t.loads++
	children, err := t.src.Children(e.Path)
	if err != nil {
		t.logger.Warn("load children failed", "path", e.Path, "err", err)
		return err
	}

	kept := children[:0:0]
	for _, c := range children {
		if c.Broken() {
			continue
		}
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return bucket(kept[i]) < bucket(kept[j])
	})

	e.Children = make([]NodeID, 0, len(kept))
	for _, c := range kept {
		child := &Entry{
			Name:    c.Name,
			Path:    c.Path,
			Link:    c.Link,
			Kind:    c.Kind,
			Meta:    c.Meta,
			MetaErr: c.MetaErr,
			Depth:   e.Depth + 1,
		}
		if c.Meta != nil {
			child.View = newView(c.Meta.Shape)
		}
		e.Children = append(e.Children, t.add(child))
	}
	e.Loaded = true
	t.logger.Debug("loaded children", "path", e.Path, "children", len(kept), "skipped", len(children)-len(kept))
	return nil
}
