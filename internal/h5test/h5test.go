// Package h5test writes small HDF5 files for tests. Files use a version 0
// superblock, version 2 object headers and compact link storage, with 8-byte
// offsets and lengths throughout.
package h5test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/klauspost/compress/zlib"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
)

// Type is an encoded datatype message.
type Type struct {
	raw  []byte
	size int
	vlen bool
}

var (
	Int32   = fixed(4, true)
	Int64   = fixed(8, true)
	Uint8   = fixed(1, false)
	Uint16  = fixed(2, false)
	Float32 = Type{raw: le([]byte{0x11, 0x20, 0x1f, 0}, uint32(4), uint16(0), uint16(32), []byte{23, 8, 0, 23}, uint32(127)), size: 4}
	Float64 = Type{raw: le([]byte{0x11, 0x20, 0x3f, 0}, uint32(8), uint16(0), uint16(64), []byte{52, 11, 0, 52}, uint32(1023)), size: 8}

	// VarString is a variable-length UTF-8 string.
	VarString = Type{raw: le([]byte{0x19, 0x01, 0x01, 0}, uint32(16), Uint8.raw), size: 16, vlen: true}
	// VarBytes is a variable-length sequence of bytes.
	VarBytes = Type{raw: le([]byte{0x19, 0, 0, 0}, uint32(16), Uint8.raw), size: 16, vlen: true}
)

func fixed(size int, signed bool) Type {
	var bits byte
	if signed {
		bits = 0x08
	}
	return Type{raw: le([]byte{0x10, bits, 0, 0}, uint32(size), uint16(0), uint16(8*size)), size: size}
}

// String is a NUL-terminated ASCII string of n bytes.
func String(n int) Type {
	return Type{raw: le([]byte{0x13, 0, 0, 0}, uint32(n)), size: n}
}

// Attr is a scalar attribute.
type Attr struct {
	Name string
	Type Type
	Data []byte
}

// StringAttr is a fixed-length string attribute holding value.
func StringAttr(name, value string) Attr {
	return Attr{Name: name, Type: String(len(value) + 1), Data: append([]byte(value), 0)}
}

// Dataset is an array of Type elements. Data holds the raw little-endian
// elements; variable-length datasets put their payloads in Rows instead.
// A nil Shape is a scalar.
type Dataset struct {
	Type  Type
	Shape []uint64
	Data  []byte
	Rows  [][]byte
	Attrs []Attr

	// ChunkRows, when set, stores the data deflated in chunks of that many
	// leading-axis rows, indexed by a version 1 B-tree.
	ChunkRows uint64
}

// Group holds links in the order they are written.
type Group struct {
	Attrs []Attr
	Links []Link
}

// Link is a hard link to a *Group or *Dataset, a soft link to a path, or
// an external link to a path in another file.
type Link struct {
	Name   string
	Object interface{}
	Soft   string
	File   string
	Path   string
}

func Hard(name string, obj interface{}) Link { return Link{Name: name, Object: obj} }

func Soft(name, target string) Link { return Link{Name: name, Soft: target} }

func External(name, file, path string) Link { return Link{Name: name, File: file, Path: path} }

const (
	superblockSize = 96
	eofField       = 40
	rootField      = 64
	compactLimit   = 64
	undefined      = ^uint64(0)
)

// Write lays out root and everything reachable from it at path.
func Write(path string, root *Group) error {
	w := &writer{
		buf:  make([]byte, superblockSize),
		seen: make(map[interface{}]uint64),
	}
	w.superblock()
	addr, err := w.object(root)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(w.buf[rootField:], addr)
	binary.LittleEndian.PutUint64(w.buf[eofField:], uint64(len(w.buf)))
	return os.WriteFile(path, w.buf, 0o644)
}

type writer struct {
	buf  []byte
	seen map[interface{}]uint64
}

func (w *writer) superblock() {
	sb := le([]byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'},
		[]byte{0, 0, 0, 0, 0, 8, 8, 0}, uint16(4), uint16(16), uint32(0),
		uint64(0), undefined, uint64(0), undefined,
		uint64(0), uint64(0), uint32(0), uint32(0), make([]byte, 16))
	copy(w.buf, sb)
}

// put appends b aligned to 8 bytes and returns its address.
func (w *writer) put(b []byte) uint64 {
	for len(w.buf)%8 != 0 {
		w.buf = append(w.buf, 0)
	}
	addr := uint64(len(w.buf))
	w.buf = append(w.buf, b...)
	return addr
}

// object writes obj after everything it links to, so every address is
// known when its header is built. Objects linked twice are written once.
func (w *writer) object(obj interface{}) (uint64, error) {
	if addr, ok := w.seen[obj]; ok {
		return addr, nil
	}
	var (
		msgs [][]byte
		err  error
	)
	switch o := obj.(type) {
	case *Group:
		msgs, err = w.group(o)
	case *Dataset:
		msgs, err = w.dataset(o)
	default:
		return 0, fmt.Errorf("h5test: cannot write %T", obj)
	}
	if err != nil {
		return 0, err
	}
	addr := w.put(header(msgs))
	w.seen[obj] = addr
	return addr, nil
}

func (w *writer) group(g *Group) ([][]byte, error) {
	var msgs [][]byte
	for _, l := range g.Links {
		name := []byte(l.Name)
		switch {
		case l.Object != nil:
			addr, err := w.object(l.Object)
			if err != nil {
				return nil, fmt.Errorf("h5test: link %q: %w", l.Name, err)
			}
			msgs = append(msgs, message(0x06, le([]byte{1, 0, byte(len(name))}, name, addr)))
		case l.Soft != "":
			msgs = append(msgs, message(0x06, le([]byte{1, 0x08, 1, byte(len(name))}, name,
				uint16(len(l.Soft)), l.Soft)))
		default:
			value := le([]byte{0}, l.File, []byte{0}, l.Path, []byte{0})
			msgs = append(msgs, message(0x06, le([]byte{1, 0x08, 64, byte(len(name))}, name,
				uint16(len(value)), value)))
		}
	}
	return append(msgs, attributes(g.Attrs)...), nil
}

func (w *writer) dataset(d *Dataset) ([][]byte, error) {
	data := d.Data
	if d.Type.vlen {
		data = w.heap(d.Rows)
	}
	if want := int(count(d.Shape)) * d.Type.size; len(data) != want {
		return nil, fmt.Errorf("h5test: %d data bytes for %d elements of %d bytes", len(data), count(d.Shape), d.Type.size)
	}

	msgs := [][]byte{message(0x01, dataspace(d.Shape)), message(0x03, d.Type.raw)}
	switch {
	case d.ChunkRows > 0:
		layout, err := w.chunked(d, data)
		if err != nil {
			return nil, err
		}
		filters := le([]byte{2, 1}, uint16(1), uint16(0), uint16(1), uint32(6))
		msgs = append(msgs, message(0x0B, filters), message(0x08, layout))
	case len(data) <= compactLimit:
		msgs = append(msgs, message(0x08, le([]byte{3, 0}, uint16(len(data)), data)))
	default:
		addr := w.put(data)
		msgs = append(msgs, message(0x08, le([]byte{3, 1}, addr, uint64(len(data)))))
	}
	return append(msgs, attributes(d.Attrs)...), nil
}

// chunked deflates d one chunk at a time and indexes the chunks with a
// single B-tree leaf. The last chunk is zero-padded to full size.
func (w *writer) chunked(d *Dataset, data []byte) ([]byte, error) {
	if len(d.Shape) == 0 {
		return nil, fmt.Errorf("h5test: chunked scalar")
	}
	row := uint64(d.Type.size) * count(d.Shape[1:])
	full := d.ChunkRows * row

	var node bytes.Buffer
	node.Write(le("TREE", []byte{1, 0}, uint16(0), undefined, undefined))
	n := 0
	for r := uint64(0); r < d.Shape[0]; r += d.ChunkRows {
		chunk := make([]byte, full)
		copy(chunk, data[r*row:min((r+d.ChunkRows)*row, uint64(len(data)))])
		z, err := deflate(chunk)
		if err != nil {
			return nil, err
		}
		addr := w.put(z)
		node.Write(chunkKey(uint32(len(z)), r, len(d.Shape)))
		node.Write(le(addr))
		n++
	}
	node.Write(chunkKey(0, d.Shape[0], len(d.Shape)))
	tree := node.Bytes()
	binary.LittleEndian.PutUint16(tree[6:], uint16(n))
	index := w.put(tree)

	layout := le([]byte{3, 2, byte(len(d.Shape) + 1)}, index, uint32(d.ChunkRows))
	for _, dim := range d.Shape[1:] {
		layout = le(layout, uint32(dim))
	}
	return le(layout, uint32(d.Type.size)), nil
}

func chunkKey(size uint32, row uint64, rank int) []byte {
	key := le(size, uint32(0), row)
	return append(key, make([]byte, 8*rank)...)
}

// heap stores rows in one global heap collection and returns their
// references.
func (w *writer) heap(rows [][]byte) []byte {
	var objs bytes.Buffer
	for i, r := range rows {
		objs.Write(le(uint16(i+1), uint16(1), uint32(0), uint64(len(r)), r))
		objs.Write(make([]byte, (8-len(r)%8)%8))
	}
	objs.Write(make([]byte, 16))
	addr := w.put(le("GCOL", []byte{1, 0, 0, 0}, uint64(16+objs.Len()), objs.Bytes()))

	var refs []byte
	for i, r := range rows {
		refs = le(refs, uint32(len(r)), addr, uint32(i+1))
	}
	return refs
}

func deflate(b []byte) ([]byte, error) {
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func dataspace(shape []uint64) []byte {
	if shape == nil {
		return []byte{2, 0, 0, 0}
	}
	ds := []byte{2, byte(len(shape)), 0, 1}
	for _, d := range shape {
		ds = le(ds, d)
	}
	return ds
}

func attributes(attrs []Attr) [][]byte {
	var msgs [][]byte
	for _, a := range attrs {
		name := append([]byte(a.Name), 0)
		space := dataspace(nil)
		msgs = append(msgs, message(0x0C, le([]byte{3, 0}, uint16(len(name)), uint16(len(a.Type.raw)),
			uint16(len(space)), []byte{0}, name, a.Type.raw, space, a.Data)))
	}
	return msgs
}

func message(typ byte, data []byte) []byte {
	return le([]byte{typ}, uint16(len(data)), []byte{0}, data)
}

// header frames msgs as a version 2 object header with a 4-byte chunk size.
func header(msgs [][]byte) []byte {
	body := bytes.Join(msgs, nil)
	h := le("OHDR", []byte{2, 0x02}, uint32(len(body)), body)
	return le(h, binpkg.Lookup3Checksum(h))
}

func count(shape []uint64) uint64 {
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// le appends each value little-endian: strings and byte slices verbatim,
// everything else through binary.Write.
func le(vals ...interface{}) []byte {
	var b bytes.Buffer
	for _, v := range vals {
		switch v := v.(type) {
		case string:
			b.WriteString(v)
		case []byte:
			b.Write(v)
		default:
			binary.Write(&b, binary.LittleEndian, v)
		}
	}
	return b.Bytes()
}
