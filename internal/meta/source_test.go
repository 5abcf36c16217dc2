package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/h5test"
)

func openFixture(t *testing.T) *File {
	t.Helper()
	f, err := Open(h5test.Explorer(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpenClassifiesErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.h5"), nil)
	assert.ErrorIs(t, err, ErrIO)

	junk := filepath.Join(t.TempDir(), "junk.h5")
	require.NoError(t, os.WriteFile(junk, []byte("not a container"), 0o644))
	_, err = Open(junk, nil)
	assert.ErrorIs(t, err, ErrFormat)
	assert.NotErrorIs(t, err, ErrIO)
}

func TestChildrenDescribesLeaves(t *testing.T) {
	f := openFixture(t)

	children, err := f.Children("/tree")
	require.NoError(t, err)
	require.Len(t, children, 7)

	byName := map[string]Child{}
	for _, c := range children {
		byName[c.Name] = c
	}

	ds1 := byName["ds1"]
	assert.Equal(t, Leaf, ds1.Kind)
	assert.Equal(t, hdf5.LinkHard, ds1.Link)
	require.NotNil(t, ds1.Meta)
	assert.Equal(t, "i32", ds1.Meta.TypeName)
	assert.Equal(t, []uint64{5}, ds1.Meta.Shape)

	assert.True(t, byName["broken"].Broken())
	assert.Equal(t, Container, byName["soft_grp"].Kind)
	assert.Equal(t, "/tree/soft_grp", byName["soft_grp"].Path)

	ext := byName["ext_ds"]
	assert.Equal(t, hdf5.LinkExternal, ext.Link)
	assert.Equal(t, Leaf, ext.Kind)
	require.NoError(t, ext.MetaErr)
	assert.Equal(t, "f64", ext.Meta.TypeName)
}

func TestChildrenReservedAttributes(t *testing.T) {
	f := openFixture(t)

	children, err := f.Children("/images")
	require.NoError(t, err)
	byName := map[string]*LeafMeta{}
	for _, c := range children {
		require.NoError(t, c.MetaErr, c.Name)
		byName[c.Name] = c.Meta
	}

	require.NotNil(t, byName["rgb_plane"].Image)
	assert.Equal(t, ImageTrueColor, byName["rgb_plane"].Image.Type)
	assert.Equal(t, InterlacePlane, byName["rgb_plane"].Image.Interlace)
	assert.Equal(t, ImagePNG, byName["png_rows"].Image.Type)
	assert.Equal(t, CategoryVarLen, byName["png_rows"].Category)

	data, err := f.Children("/data")
	require.NoError(t, err)
	for _, c := range data {
		switch c.Name {
		case "json_doc":
			assert.Equal(t, "json", c.Meta.Highlight)
			assert.Equal(t, EncodingUTF8, c.Meta.Encoding)
		case "scalar":
			assert.True(t, c.Meta.Scalar)
			assert.Equal(t, []uint64{1, 1}, c.Meta.Shape)
		case "series":
			assert.Equal(t, []uint64{100000}, c.Meta.Chunks)
			assert.Less(t, c.Meta.StorageRatio(), 1.0)
		}
	}
}

func TestAttributes(t *testing.T) {
	f := openFixture(t)

	attrs, err := f.Attributes("/data/matrix")
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, Attr{Name: "units", Value: "counts", Type: attrs[0].Type}, attrs[0])

	root, err := f.Attributes("/")
	require.NoError(t, err)
	require.NotEmpty(t, root)
	assert.Equal(t, "title", root[0].Name)

	_, err = f.Attributes("/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatasetNotFound(t *testing.T) {
	f := openFixture(t)

	_, err := f.Dataset("/data/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ds, err := f.Dataset("/data/matrix")
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 3}, ds.Shape())
}
