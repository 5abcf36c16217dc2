package raster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5view/internal/meta"
)

// fakeDataset serves byte samples laid out row-major along a leading axis.
type fakeDataset struct {
	raw     []byte
	shape   []uint64
	rows    [][]byte
	gate    chan struct{}
	panicky bool
}

func (d *fakeDataset) wait() {
	if d.gate != nil {
		<-d.gate
	}
	if d.panicky {
		panic("corrupt chunk index")
	}
}

func (d *fakeDataset) Read(dest interface{}) error {
	return errors.New("not used")
}

func (d *fakeDataset) ReadSlice(start, count []uint64, dest interface{}) error {
	return errors.New("not used")
}

func (d *fakeDataset) ReadSliceRaw(start, count []uint64) ([]byte, error) {
	d.wait()
	stride := uint64(1)
	for _, n := range d.shape[1:] {
		stride *= n
	}
	off := start[0] * stride
	return d.raw[off : off+count[0]*stride], nil
}

func (d *fakeDataset) ReadVarLen(start, count []uint64) ([][]byte, error) {
	d.wait()
	return d.rows[start[0] : start[0]+count[0]], nil
}

type fakeSource struct {
	mu       sync.Mutex
	datasets map[string]*fakeDataset
	closed   int
}

func (s *fakeSource) Dataset(path string) (Dataset, error) {
	if ds, ok := s.datasets[path]; ok {
		return ds, nil
	}
	return nil, meta.ErrNotFound
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func startPipeline(t *testing.T, src *fakeSource) *Pipeline {
	t.Helper()
	p := New(func() (Source, error) { return src, nil }, Config{QueueDepth: 4, Gray: DefaultGray()})
	p.Start(context.Background())
	t.Cleanup(func() { p.Close() })
	return p
}

// await drains p until n decode results arrived.
func await(t *testing.T, p *Pipeline, n int) []DecodeResult {
	t.Helper()
	var got []DecodeResult
	require.Eventually(t, func() bool {
		got = append(got, p.Drain().Decoded...)
		return len(got) >= n
	}, 5*time.Second, 5*time.Millisecond)
	return got
}

func grayRequest(path string, shape []uint64, frame int) DecodeRequest {
	return DecodeRequest{
		Key:      Key{Path: path, Frame: frame},
		Family:   FamilyNative,
		Image:    meta.ImageDescriptor{Type: meta.ImageGrayscale},
		Shape:    shape,
		ElemSize: 1,
	}
}

func TestDecodeFamilies(t *testing.T) {
	png1 := pngBytes(t, solid(2, 2, rgb(255, 0, 0)))
	png2 := pngBytes(t, solid(3, 1, rgb(0, 0, 255)))
	src := &fakeSource{datasets: map[string]*fakeDataset{
		"/blob":   {raw: png1, shape: []uint64{uint64(len(png1))}},
		"/rows":   {rows: [][]byte{png1, png2}, shape: []uint64{2}},
		"/frames": {raw: []byte{1, 2, 3, 4, 5, 6, 7, 8}, shape: []uint64{2, 2, 2}},
	}}
	p := startPipeline(t, src)

	require.NoError(t, p.Decode(DecodeRequest{
		Key: Key{Path: "/blob"}, Family: FamilyStream,
		Image: meta.ImageDescriptor{Type: meta.ImagePNG}, Shape: src.datasets["/blob"].shape, ElemSize: 1,
	}))
	require.NoError(t, p.Decode(DecodeRequest{
		Key: Key{Path: "/rows", Frame: 1}, Family: FamilyRows,
		Image: meta.ImageDescriptor{Type: meta.ImagePNG}, Shape: []uint64{2},
	}))
	require.NoError(t, p.Decode(grayRequest("/frames", []uint64{2, 2, 2}, 1)))

	byKey := map[Key]DecodeResult{}
	for _, r := range await(t, p, 3) {
		require.NoError(t, r.Err, r.Key.String())
		byKey[r.Key] = r
	}

	blob := byKey[Key{Path: "/blob"}]
	assert.Equal(t, "image/png", blob.Format)
	assert.Equal(t, rgb(255, 0, 0), blob.Image.RGBAAt(1, 1))

	row := byKey[Key{Path: "/rows", Frame: 1}]
	assert.Equal(t, 3, row.Image.Bounds().Dx())
	assert.Equal(t, rgb(0, 0, 255), row.Image.RGBAAt(0, 0))

	frame := byKey[Key{Path: "/frames", Frame: 1}]
	assert.Equal(t, rgb(5, 5, 5), frame.Image.RGBAAt(0, 0))
	assert.Equal(t, rgb(8, 8, 8), frame.Image.RGBAAt(1, 1))
}

func TestFailuresAreResults(t *testing.T) {
	src := &fakeSource{datasets: map[string]*fakeDataset{
		"/bad":    {raw: []byte{0}, shape: []uint64{1, 1}, panicky: true},
		"/frames": {raw: seq(4), shape: []uint64{2, 2}},
	}}
	p := startPipeline(t, src)

	require.NoError(t, p.Decode(grayRequest("/bad", []uint64{1, 1}, 0)))
	require.NoError(t, p.Decode(grayRequest("/missing", []uint64{1, 1}, 0)))
	indexed := grayRequest("/frames", []uint64{2, 2}, 0)
	indexed.Image.Type = meta.ImageIndexed
	require.NoError(t, p.Decode(indexed))
	require.NoError(t, p.Decode(grayRequest("/frames", []uint64{2, 2}, 0)))

	results := await(t, p, 4)
	// one worker, so FIFO order holds
	require.Len(t, results, 4)
	assert.ErrorIs(t, results[0].Err, meta.ErrFormat)
	assert.ErrorIs(t, results[1].Err, meta.ErrNotFound)
	assert.ErrorIs(t, results[2].Err, meta.ErrFormat)
	assert.True(t, results[2].Failed())
	assert.NoError(t, results[3].Err)
}

func TestLateResultDropped(t *testing.T) {
	gate := make(chan struct{})
	pngX := pngBytes(t, solid(1, 1, rgb(1, 1, 1)))
	src := &fakeSource{datasets: map[string]*fakeDataset{
		"/x": {raw: pngX, shape: []uint64{uint64(len(pngX))}, gate: gate},
		"/y": {raw: []byte{200}, shape: []uint64{1, 1}},
	}}
	p := startPipeline(t, src)

	var tr Tracker
	x := DecodeRequest{Key: Key{Path: "/x"}, Family: FamilyStream, Image: meta.ImageDescriptor{Type: meta.ImagePNG}, Shape: src.datasets["/x"].shape, ElemSize: 1}
	y := grayRequest("/y", []uint64{1, 1}, 0)

	require.True(t, tr.Select(x.Key))
	require.NoError(t, p.Decode(x))
	require.True(t, tr.Select(y.Key))
	require.NoError(t, p.Decode(y))

	first := await(t, p, 1)
	require.Len(t, first, 1)
	assert.Equal(t, y.Key, first[0].Key)
	assert.True(t, tr.ApplyDecode(first[0]))

	close(gate)
	late := await(t, p, 1)
	assert.Equal(t, x.Key, late[0].Key)
	assert.False(t, tr.ApplyDecode(late[0]))

	require.NotNil(t, tr.Decoded)
	assert.Equal(t, rgb(200, 200, 200), tr.Decoded.RGBAAt(0, 0))
	active, _ := tr.Active()
	assert.Equal(t, y.Key, active)
}

func TestResizeWorker(t *testing.T) {
	p := startPipeline(t, &fakeSource{})
	key := Key{Path: "/img"}

	var tr Tracker
	tr.Select(key)
	assert.False(t, tr.Target(4, 2), "nothing decoded yet")
	tr.ApplyDecode(DecodeResult{Key: key, Image: solid(8, 8, rgb(5, 6, 7))})
	require.True(t, tr.Target(4, 2))

	require.NoError(t, p.Resize(ResizeRequest{Key: key, Image: tr.Decoded, Cols: 4, Rows: 2, CellWidth: 1, CellHeight: 2, EncodePNG: true}))
	require.NoError(t, p.Resize(ResizeRequest{Key: key, Image: tr.Decoded, Cols: 9, Rows: 9, CellWidth: 1, CellHeight: 2}))

	var resized []ResizeResult
	require.Eventually(t, func() bool {
		resized = append(resized, p.Drain().Resized...)
		return len(resized) == 2
	}, 5*time.Second, 5*time.Millisecond)

	assert.True(t, tr.ApplyResize(resized[0]))
	assert.False(t, tr.ApplyResize(resized[1]), "size no longer wanted")
	require.NotNil(t, tr.Display)
	assert.Equal(t, 4, tr.Display.Image.Bounds().Dx())
	assert.NotEmpty(t, tr.Display.PNG)
	assert.False(t, tr.Target(4, 2))
}

func TestSubmitErrors(t *testing.T) {
	p := New(func() (Source, error) { return &fakeSource{}, nil }, Config{QueueDepth: 1})

	require.NoError(t, p.Decode(grayRequest("/a", []uint64{1, 1}, 0)))
	err := p.Decode(grayRequest("/b", []uint64{1, 1}, 0))
	assert.ErrorIs(t, err, meta.ErrChannel, "queue of a stopped pipeline fills up")

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Decode(grayRequest("/c", []uint64{1, 1}, 0)), meta.ErrChannel)
	assert.ErrorIs(t, p.Resize(ResizeRequest{}), meta.ErrChannel)
	assert.NoError(t, p.Close())
}

func TestSourceOpenFailure(t *testing.T) {
	p := New(func() (Source, error) { return nil, meta.ErrIO }, Config{})
	p.Start(context.Background())
	t.Cleanup(func() { p.Close() })

	require.NoError(t, p.Decode(grayRequest("/a", []uint64{1, 1}, 0)))
	results := await(t, p, 1)
	assert.ErrorIs(t, results[0].Err, meta.ErrIO)
}

func TestCloseReleasesSources(t *testing.T) {
	src := &fakeSource{datasets: map[string]*fakeDataset{"/a": {raw: []byte{1}, shape: []uint64{1, 1}}}}
	p := New(func() (Source, error) { return src, nil }, Config{})
	p.Start(context.Background())

	require.NoError(t, p.Decode(grayRequest("/a", []uint64{1, 1}, 0)))
	await(t, p, 1)
	require.NoError(t, p.Close())
	assert.Equal(t, 1, src.closed)
}

func TestCloseWithUndrainedResults(t *testing.T) {
	pngA := pngBytes(t, solid(1, 1, rgb(1, 2, 3)))
	src := &fakeSource{datasets: map[string]*fakeDataset{
		"/blob":   {raw: pngA, shape: []uint64{uint64(len(pngA))}},
		"/rows":   {rows: [][]byte{pngA}, shape: []uint64{1}},
		"/frames": {raw: []byte{1}, shape: []uint64{1, 1}},
	}}
	p := New(func() (Source, error) { return src, nil }, Config{QueueDepth: 1})
	p.Start(context.Background())

	require.NoError(t, p.Decode(DecodeRequest{
		Key: Key{Path: "/blob"}, Family: FamilyStream,
		Image: meta.ImageDescriptor{Type: meta.ImagePNG}, Shape: src.datasets["/blob"].shape, ElemSize: 1,
	}))
	require.NoError(t, p.Decode(DecodeRequest{
		Key: Key{Path: "/rows"}, Family: FamilyRows,
		Image: meta.ImageDescriptor{Type: meta.ImagePNG}, Shape: []uint64{1},
	}))
	require.NoError(t, p.Decode(grayRequest("/frames", []uint64{1, 1}, 0)))

	// only one of the three results fits, the other workers block sending
	require.Eventually(t, func() bool {
		return len(p.decoded) == 1
	}, 5*time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- p.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on undrained results")
	}
	assert.GreaterOrEqual(t, src.closed, 1)
}
