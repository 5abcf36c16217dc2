package hdf5

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/h5view/internal/h5test"
)

func openExplorer(t *testing.T) *File {
	t.Helper()
	f, err := Open(h5test.Explorer(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpenMinimalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.h5")
	values := &h5test.Dataset{Type: h5test.Int32, Shape: []uint64{3}, Data: []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}}
	if err := h5test.Write(path, &h5test.Group{Links: []h5test.Link{h5test.Hard("values", values)}}); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	if f.Version() != 0 || f.Root().Path() != "/" {
		t.Errorf("version %d, root %q", f.Version(), f.Root().Path())
	}

	ds, err := f.OpenDataset("/values")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	var got []int32
	if err := ds.Read(&got); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("values = %v", got)
	}
}

func TestOpenInvalidHDF5Signature(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"empty file", []byte{}},
		{"almost valid signature", []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, 'X'}},
		{"text file", []byte("This is not an HDF5 file")},
		{"binary garbage", bytes.Repeat([]byte{0xFF}, 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "invalid.h5")
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Open(path); err == nil {
				t.Error("expected error for invalid HDF5 file")
			}
		})
	}
}

func TestOpenNonExistentFile(t *testing.T) {
	_, err := Open("/nonexistent/path/to/file.h5")
	if err == nil {
		t.Fatal("expected error for non-existent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLinksStorageOrder(t *testing.T) {
	f := openExplorer(t)

	g, err := f.OpenGroup("/tree")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	links, err := g.Links()
	if err != nil {
		t.Fatalf("Links failed: %v", err)
	}

	want := []struct {
		name      string
		kind      LinkKind
		isDataset bool
		broken    bool
	}{
		{"ds1", LinkHard, true, false},
		{"soft_grp", LinkSoft, false, false},
		{"grp", LinkHard, false, false},
		{"ext_grp", LinkExternal, false, false},
		{"broken", LinkSoft, false, true},
		{"ext_ds", LinkExternal, true, false},
		{"soft_ds", LinkSoft, true, false},
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links, want %d", len(links), len(want))
	}
	for i, w := range want {
		l := links[i]
		if l.Name != w.name || l.Kind != w.kind || l.Broken() != w.broken {
			t.Errorf("link %d = {%s %v broken=%v}, want {%s %v broken=%v}",
				i, l.Name, l.Kind, l.Broken(), w.name, w.kind, w.broken)
		}
		if !w.broken && l.IsDataset != w.isDataset {
			t.Errorf("link %s IsDataset = %v, want %v", l.Name, l.IsDataset, w.isDataset)
		}
	}

	if links[1].Target != "/tree/grp" {
		t.Errorf("soft target = %q", links[1].Target)
	}
	if links[3].Target != "ext_target.h5:/remote" {
		t.Errorf("external target = %q", links[3].Target)
	}
}

func TestLinkOpensTargetUnderMemberPath(t *testing.T) {
	f := openExplorer(t)

	g, err := f.OpenGroup("/tree")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	links, err := g.Links()
	if err != nil {
		t.Fatalf("Links failed: %v", err)
	}

	byName := map[string]Link{}
	for _, l := range links {
		byName[l.Name] = l
	}

	ds, err := byName["ext_ds"].Dataset()
	if err != nil {
		t.Fatalf("external Dataset failed: %v", err)
	}
	if ds.Path() != "/tree/ext_ds" {
		t.Errorf("path = %q, want /tree/ext_ds", ds.Path())
	}
	var values []float64
	if err := ds.Read(&values); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(values) != 4 || values[3] != 3 {
		t.Errorf("values = %v", values)
	}

	if _, err := byName["soft_grp"].Dataset(); !errors.Is(err, ErrNotDataset) {
		t.Errorf("expected ErrNotDataset, got %v", err)
	}
	if _, err := byName["broken"].Group(); err == nil {
		t.Error("expected error opening broken link")
	}
}

func linksByName(t *testing.T, g *Group) map[string]Link {
	t.Helper()
	links, err := g.Links()
	if err != nil {
		t.Fatalf("Links failed: %v", err)
	}
	byName := map[string]Link{}
	for _, l := range links {
		byName[l.Name] = l
	}
	return byName
}

func TestMaxLinkDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.h5")
	target := &h5test.Dataset{Type: h5test.Uint8, Shape: []uint64{1}, Data: []byte{7}}
	root := &h5test.Group{Links: []h5test.Link{
		h5test.Soft("a", "/b"),
		h5test.Soft("b", "/c"),
		h5test.Hard("c", target),
	}}
	if err := h5test.Write(path, root); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path, WithMaxLinkDepth(1))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	byName := linksByName(t, f.Root())
	if !errors.Is(byName["a"].Err, ErrLinkDepth) {
		t.Errorf("a: expected ErrLinkDepth, got %v", byName["a"].Err)
	}
	if byName["b"].Broken() || !byName["b"].IsDataset {
		t.Errorf("b should resolve within one link, got %v", byName["b"].Err)
	}

	f2, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()
	if l := linksByName(t, f2.Root())["a"]; l.Broken() {
		t.Errorf("a should resolve at the default depth, got %v", l.Err)
	}
}

func TestExternalLinksDisabled(t *testing.T) {
	f, err := Open(h5test.Explorer(t), WithExternalLinks(false))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	g, err := f.OpenGroup("/tree")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	byName := linksByName(t, g)
	for _, name := range []string{"ext_grp", "ext_ds"} {
		if !errors.Is(byName[name].Err, ErrUnsupported) {
			t.Errorf("%s: expected ErrUnsupported, got %v", name, byName[name].Err)
		}
	}
	if byName["soft_ds"].Broken() {
		t.Errorf("soft_ds: %v", byName["soft_ds"].Err)
	}
}

func TestDatasetReadSlice(t *testing.T) {
	f := openExplorer(t)

	ds, err := f.OpenDataset("/data/matrix")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}

	var column []float64
	if err := ds.ReadSlice([]uint64{0, 1}, []uint64{10, 1}, &column); err != nil {
		t.Fatalf("ReadSlice failed: %v", err)
	}
	for r, v := range column {
		if v != float64(r*3+1) {
			t.Errorf("column[%d] = %v, want %d", r, v, r*3+1)
		}
	}

	if _, err := ds.ReadSliceRaw([]uint64{9, 0}, []uint64{2, 3}); err == nil {
		t.Error("expected out of bounds error")
	}
}

func TestChunkedSeriesMetadata(t *testing.T) {
	f := openExplorer(t)

	ds, err := f.OpenDataset("/data/series")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	if got := ds.ChunkShape(); len(got) != 1 || got[0] != 100000 {
		t.Errorf("ChunkShape = %v, want [100000]", got)
	}
	stored, err := ds.StorageSize()
	if err != nil {
		t.Fatalf("StorageSize failed: %v", err)
	}
	if logical := ds.NumElements() * uint64(ds.DtypeSize()); stored == 0 || stored >= logical {
		t.Errorf("StorageSize = %d, want compressed size below %d", stored, logical)
	}

	var page []float32
	if err := ds.ReadSlice([]uint64{500000}, []uint64{100000}, &page); err != nil {
		t.Fatalf("ReadSlice failed: %v", err)
	}
	if len(page) != 100000 || page[0] != 500000 || page[99999] != 599999 {
		t.Errorf("page bounds = %v..%v (len %d)", page[0], page[len(page)-1], len(page))
	}
}

func TestReadVarLenRows(t *testing.T) {
	f := openExplorer(t)

	ds, err := f.OpenDataset("/images/png_rows")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	rows, err := ds.ReadVarLen([]uint64{1}, []uint64{1})
	if err != nil {
		t.Fatalf("ReadVarLen failed: %v", err)
	}
	if len(rows) != 1 || !bytes.HasPrefix(rows[0], []byte("\x89PNG")) {
		t.Errorf("row 1 is not a PNG stream")
	}

	matrix, err := f.OpenDataset("/data/matrix")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	if _, err := matrix.ReadVarLen([]uint64{0, 0}, []uint64{1, 1}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestGetAttr(t *testing.T) {
	f := openExplorer(t)

	attr, err := f.GetAttr("/data/matrix@units")
	if err != nil {
		t.Fatalf("GetAttr failed: %v", err)
	}
	v, err := attr.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != "counts" {
		t.Errorf("units = %v, want counts", v)
	}

	if _, err := f.GetAttr("/data/matrix@nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWalkSkipsIntoLinksOnce(t *testing.T) {
	f := openExplorer(t)

	var paths []string
	var broken int
	err := Walk(f.Root(), func(path string, kind LinkKind, obj interface{}, err error) error {
		if err != nil {
			broken++
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if broken != 1 {
		t.Errorf("broken = %d, want 1", broken)
	}
	for _, p := range paths {
		if p == "/tree/soft_grp/inner" {
			t.Error("Walk descended into a soft link")
		}
	}
}

func TestWalkStop(t *testing.T) {
	f := openExplorer(t)

	calls := 0
	err := Walk(f.Root(), func(string, LinkKind, interface{}, error) error {
		calls++
		return ErrStopWalk
	})
	if err != nil {
		t.Fatalf("Walk returned %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestOperationsAfterClose(t *testing.T) {
	f, err := Open(h5test.Explorer(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if _, err := f.OpenGroup("/data"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
