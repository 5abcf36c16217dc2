package hdf5

import "errors"

// WalkFunc receives each object Walk reaches: its path, the kind of link
// it was reached through, and the *Group or *Dataset, or nil with err set
// when the object could not be opened. Returning ErrStopWalk ends the walk
// quietly; any other error aborts it.
type WalkFunc func(path string, kind LinkKind, obj interface{}, err error) error

var ErrStopWalk = errors.New("walk stopped")

// Walk visits g and everything below it depth-first in storage order.
// Soft and external links are reported but not descended into, and a
// group hard-linked from several places is entered once, so cyclic files
// terminate.
func Walk(g *Group, fn WalkFunc) error {
	w := walker{fn: fn, seen: make(map[uint64]bool)}
	if err := w.group(g, LinkHard); !errors.Is(err, ErrStopWalk) {
		return err
	}
	return nil
}

type walker struct {
	fn   WalkFunc
	seen map[uint64]bool
}

func (w walker) group(g *Group, kind LinkKind) error {
	if err := w.fn(g.Path(), kind, g, nil); err != nil || kind != LinkHard {
		return err
	}
	links, err := g.Links()
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := w.link(l); err != nil {
			return err
		}
	}
	return nil
}

func (w walker) link(l Link) error {
	if l.Broken() {
		return w.fn(l.Path(), l.Kind, nil, l.Err)
	}
	if l.IsDataset {
		ds, err := l.Dataset()
		if err != nil {
			return w.fn(l.Path(), l.Kind, nil, err)
		}
		return w.fn(l.Path(), l.Kind, ds, nil)
	}

	child, err := l.Group()
	if err != nil {
		return w.fn(l.Path(), l.Kind, nil, err)
	}
	if l.Kind == LinkHard {
		if w.seen[l.res.address] {
			return nil
		}
		w.seen[l.res.address] = true
	}
	return w.group(child, l.Kind)
}
