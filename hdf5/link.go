package hdf5

import (
	"fmt"
	"path"
)

// LinkKind is how a member is attached to its group.
type LinkKind uint8

const (
	LinkHard     LinkKind = iota // object owned by the group
	LinkSoft                     // path alias within the same file
	LinkExternal                 // alias into another file
)

var linkKindNames = [...]string{"hard", "soft", "external"}

func (k LinkKind) String() string {
	if int(k) < len(linkKindNames) {
		return linkKindNames[k]
	}
	return fmt.Sprintf("LinkKind(%d)", k)
}

// Link is a named member of a group together with what it resolves to.
type Link struct {
	Name string
	Kind LinkKind

	// Target is the soft link path, or "file:path" for external links.
	Target string

	IsDataset bool

	// Err is set when the target could not be resolved.
	Err error

	parent *Group
	res    *linkResolution
}

// linkResolution is where a link leads: an object header address in file.
type linkResolution struct {
	address   uint64
	isDataset bool
	file      *File
}

// Path is the member's path beneath its parent, not the path of the
// object a link points at.
func (l Link) Path() string { return path.Join(l.parent.path, l.Name) }

// Broken reports whether the link failed to resolve.
func (l Link) Broken() bool { return l.Err != nil }

// Group opens the target under the member's path.
func (l Link) Group() (*Group, error) {
	switch {
	case l.Err != nil:
		return nil, l.Err
	case l.res.isDataset:
		return nil, ErrNotGroup
	}
	return l.res.file.openGroupAt(l.res.address, l.Path())
}

// Dataset opens the target under the member's path.
func (l Link) Dataset() (*Dataset, error) {
	switch {
	case l.Err != nil:
		return nil, l.Err
	case !l.res.isDataset:
		return nil, ErrNotDataset
	}
	return l.res.file.openDatasetAt(l.res.address, l.Path())
}
