// Package raster turns dataset samples into RGBA rasters off the UI
// goroutine. Three decode workers (whole-buffer codec streams, per-row
// codec streams and native sample arrays) and one resize worker each read
// their own request channel. Every request and result carries a Key; a
// Tracker applies a result only while its Key is still the active one.
package raster

import (
	"fmt"
	"image"
)

// Key identifies what a request was made for: a leaf path and a frame (or
// page) index along it.
type Key struct {
	Path  string
	Frame int
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Path, k.Frame)
}

// Tracker holds the raster state of the active selection on the UI
// goroutine. Results for any other Key are dropped.
type Tracker struct {
	active Key
	set    bool

	cols, rows int
	pending    bool

	// Decoded is the full-resolution raster of the active key.
	Decoded *image.RGBA
	// Display is the latest resize of Decoded.
	Display *ResizeResult
	// Err is the failure reported for the active key.
	Err error
}

// Select makes k the active key. It reports whether k differs from the
// previous key, in which case state is reset and a decode should be
// requested.
func (t *Tracker) Select(k Key) bool {
	if t.set && t.active == k {
		return false
	}
	t.active, t.set = k, true
	t.Decoded, t.Display, t.Err = nil, nil, nil
	t.pending = false
	return true
}

// Clear forgets the active key.
func (t *Tracker) Clear() {
	*t = Tracker{}
}

// Active returns the active key.
func (t *Tracker) Active() (Key, bool) {
	return t.active, t.set
}

// Matches reports whether k is the active key.
func (t *Tracker) Matches(k Key) bool {
	return t.set && t.active == k
}

// ApplyDecode stores r if it belongs to the active key.
func (t *Tracker) ApplyDecode(r DecodeResult) bool {
	if !t.Matches(r.Key) {
		return false
	}
	t.Decoded, t.Err, t.Display = r.Image, r.Err, nil
	t.pending = false
	return true
}

// ApplyResize stores r if it belongs to the active key and the current
// target size.
func (t *Tracker) ApplyResize(r ResizeResult) bool {
	if !t.Matches(r.Key) || r.Cols != t.cols || r.Rows != t.rows {
		return false
	}
	t.pending = false
	if r.Err != nil {
		t.Err = r.Err
		return true
	}
	t.Display = &r
	return true
}

// Target records the cell area the raster is shown in. It reports whether
// a resize should be requested: a decoded raster exists, its display does
// not match the area and no resize for the area is outstanding.
func (t *Tracker) Target(cols, rows int) bool {
	if cols != t.cols || rows != t.rows {
		t.cols, t.rows = cols, rows
		t.Display, t.pending = nil, false
	}
	if t.pending || t.Decoded == nil || t.Display != nil || t.Err != nil || cols <= 0 || rows <= 0 {
		return false
	}
	t.pending = true
	return true
}

// Retry forgets an outstanding resize so Target asks again, for when the
// request could not be queued.
func (t *Tracker) Retry() {
	t.pending = false
}
