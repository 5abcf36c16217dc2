package hdf5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/h5view/internal/btree"
	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
)

// Group is a container of named links.
type Group struct {
	file   *File
	path   string
	addr   uint64
	header *object.Header
}

// Path is the path the group was opened under.
func (g *Group) Path() string { return g.path }

// Attrs lists attribute names in storage order.
func (g *Group) Attrs() []string { return attrNames(g.header) }

// Attr returns nil when the group has no attribute called name.
func (g *Group) Attr(name string) *Attribute { return findAttr(g.header, name, g.file.reader) }

// member is one unresolved entry of a group.
type member struct {
	name    string
	kind    LinkKind
	addr    uint64
	target  string // soft link path
	extFile string
	extPath string
}

// members lists g's entries in storage order. Newer groups keep link
// messages in their header; older ones a symbol table whose B-tree and
// local heap the root group may only record in the superblock.
func (g *Group) members() ([]member, error) {
	var out []member
	for _, msg := range g.header.GetMessages(message.TypeLink) {
		lm := msg.(*message.Link)
		m := member{name: lm.Name, addr: lm.ObjectAddress}
		switch {
		case lm.IsSoft():
			m.kind, m.target = LinkSoft, lm.SoftLinkValue
		case lm.IsExternal():
			m.kind, m.extFile, m.extPath = LinkExternal, lm.ExternalFile, lm.ExternalPath
		}
		out = append(out, m)
	}
	if len(out) > 0 {
		return out, nil
	}

	st := g.symbolTable()
	if st == nil {
		return nil, nil
	}
	names, err := heap.ReadLocalHeap(g.file.reader, st.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("reading local heap: %w", err)
	}
	entries, err := btree.ReadGroupEntries(g.file.reader, st.BTreeAddress, names)
	if err != nil {
		return nil, fmt.Errorf("reading B-tree: %w", err)
	}
	for _, e := range entries {
		m := member{name: e.Name, addr: e.ObjectAddress}
		if e.LinkType == 1 {
			m.kind, m.target = LinkSoft, e.SoftLinkValue
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *Group) symbolTable() *message.SymbolTable {
	if msg := g.header.GetMessage(message.TypeSymbolTable); msg != nil {
		return msg.(*message.SymbolTable)
	}
	sb := g.file.sb
	if g.addr == sb.RootGroupAddress && sb.RootGroupBTreeAddress != 0 {
		return &message.SymbolTable{
			BTreeAddress:     sb.RootGroupBTreeAddress,
			LocalHeapAddress: sb.RootGroupLocalHeapAddress,
		}
	}
	return nil
}

func (g *Group) resolve(m member, visited map[string]bool) (*linkResolution, error) {
	switch m.kind {
	case LinkSoft:
		return g.file.follow(m.target, visited)
	case LinkExternal:
		return g.file.followExternal(m.extFile, m.extPath, visited)
	}
	return g.file.locate(m.addr)
}

func (g *Group) child(name string, visited map[string]bool) (*linkResolution, error) {
	members, err := g.members()
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.name == name {
			return g.resolve(m, visited)
		}
	}
	return nil, ErrNotFound
}

// descend resolves parts one at a time below g, returning the final target
// and the path it was reached through. Every component but the last must
// be a group.
func (g *Group) descend(parts []string, visited map[string]bool) (*linkResolution, string, error) {
	res := &linkResolution{address: g.addr, file: g.file}
	at, p := g, g.path
	for i, name := range parts {
		next, err := at.child(name, visited)
		if err != nil {
			return nil, "", fmt.Errorf("resolving %q in %s: %w", name, p, err)
		}
		res, p = next, path.Join(p, name)
		if i == len(parts)-1 {
			break
		}
		if res.isDataset {
			return nil, "", fmt.Errorf("%s: %w", p, ErrNotGroup)
		}
		if at, err = res.file.openGroupAt(res.address, p); err != nil {
			return nil, "", err
		}
	}
	return res, p, nil
}

func (g *Group) open(rel string) (interface{}, error) {
	parts := SplitPath(rel)
	if len(parts) == 0 {
		return g, nil
	}
	res, p, err := g.descend(parts, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	if res.isDataset {
		return res.file.openDatasetAt(res.address, p)
	}
	return res.file.openGroupAt(res.address, p)
}

// Links lists the group's members in storage order. A member whose target
// cannot be resolved is still listed, with Err set.
func (g *Group) Links() ([]Link, error) {
	members, err := g.members()
	if err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(members))
	for _, m := range members {
		l := Link{Name: m.name, Kind: m.kind, Target: m.target, parent: g}
		if m.kind == LinkExternal {
			l.Target = m.extFile + ":" + m.extPath
		}
		if l.res, l.Err = g.resolve(m, make(map[string]bool)); l.Err == nil {
			l.IsDataset = l.res.isDataset
		}
		links = append(links, l)
	}
	return links, nil
}
