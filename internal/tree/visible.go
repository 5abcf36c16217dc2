package tree

// Row is one line of the flattened tree. When More is non-zero the row is a
// "load more" marker for the children of ID, and More is how many are
// hidden.
type Row struct {
	ID    NodeID
	Depth int
	More  int
}

// Visible flattens the expanded part of the tree, depth first, starting with
// the root.
func (t *Tree) Visible() []Row {
	var rows []Row
	t.walkVisible(t.nodes[0], &rows)
	return rows
}

func (t *Tree) walkVisible(e *Entry, rows *[]Row) {
	*rows = append(*rows, Row{ID: e.ID, Depth: e.Depth})
	if !e.Expanded {
		return
	}
	n := len(e.Children)
	if e.shown > 0 && e.shown < n {
		n = e.shown
	}
	for _, id := range e.Children[:n] {
		t.walkVisible(t.nodes[id], rows)
	}
	if hidden := len(e.Children) - n; hidden > 0 {
		*rows = append(*rows, Row{ID: e.ID, Depth: e.Depth + 1, More: hidden})
	}
}

// ShowMore widens the listed children of id by one page.
func (t *Tree) ShowMore(id NodeID) {
	if e, ok := t.Get(id); ok && e.shown > 0 {
		e.shown += t.page
	}
}

// Find returns the loaded entry with the given path.
func (t *Tree) Find(p string) (NodeID, bool) {
	for _, e := range t.nodes {
		if e.Path == p {
			return e.ID, true
		}
	}
	return NoNode, false
}
