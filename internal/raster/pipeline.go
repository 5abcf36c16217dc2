package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/h5view/hdf5"
	"github.com/robert-malhotra/h5view/internal/meta"
	"github.com/robert-malhotra/h5view/internal/selection"
)

// Dataset is the read surface a worker needs. *hdf5.Dataset satisfies it.
type Dataset interface {
	selection.Reader
	ReadVarLen(start, count []uint64) ([][]byte, error)
}

// Source opens datasets by path. Each worker owns its Source and closes it
// when the pipeline stops.
type Source interface {
	Dataset(path string) (Dataset, error)
	Close() error
}

// SourceFunc opens a fresh Source.
type SourceFunc func() (Source, error)

// FileSource reopens the container at filename for each worker.
func FileSource(filename string, logger *slog.Logger, opts ...hdf5.OpenOption) SourceFunc {
	return func() (Source, error) {
		f, err := meta.Open(filename, logger, opts...)
		if err != nil {
			return nil, err
		}
		return fileSource{f}, nil
	}
}

type fileSource struct {
	f *meta.File
}

func (s fileSource) Dataset(path string) (Dataset, error) {
	ds, err := s.f.Dataset(path)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func (s fileSource) Close() error {
	return s.f.Close()
}

// ResizeRequest asks for Image scaled into Cols x Rows cells of
// CellWidth x CellHeight pixels.
type ResizeRequest struct {
	Key        Key
	Image      *image.RGBA
	Cols, Rows int

	CellWidth, CellHeight int

	// EncodePNG also produces PNG bytes of the result.
	EncodePNG bool
}

// ResizeResult is the outcome of a ResizeRequest.
type ResizeResult struct {
	Key        Key
	Cols, Rows int
	Image      *image.RGBA
	PNG        []byte
	Err        error
}

// Config sizes the pipeline.
type Config struct {
	// QueueDepth is the buffer of every request and result channel.
	QueueDepth int
	Gray       GrayPolicy
	Logger     *slog.Logger
}

// Pipeline runs the decode and resize workers. Submit and Drain are called
// from a single goroutine.
type Pipeline struct {
	open   SourceFunc
	gray   GrayPolicy
	logger *slog.Logger

	queues  [3]chan DecodeRequest
	resizeQ chan ResizeRequest
	decoded chan DecodeResult
	resized chan ResizeResult

	group   *errgroup.Group
	stop    context.CancelFunc
	started bool
	closed  bool
}

// New creates a stopped pipeline.
func New(open SourceFunc, cfg Config) *Pipeline {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	p := &Pipeline{
		open:    open,
		gray:    cfg.Gray,
		logger:  cfg.Logger,
		resizeQ: make(chan ResizeRequest, depth),
		decoded: make(chan DecodeResult, depth),
		resized: make(chan ResizeResult, depth),
	}
	for i := range p.queues {
		p.queues[i] = make(chan DecodeRequest, depth)
	}
	return p
}

// Start launches one goroutine per decode family and one for resizing.
func (p *Pipeline) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true
	ctx, p.stop = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)
	for i := range p.queues {
		fam := Family(i)
		p.group.Go(func() error { return p.decodeLoop(ctx, fam) })
	}
	p.group.Go(func() error { return p.resizeLoop(ctx) })
}

var errQueueFull = errors.New("queue full")

// Decode queues req on its family's worker without blocking.
func (p *Pipeline) Decode(req DecodeRequest) error {
	if p.closed {
		return fmt.Errorf("decode %s: pipeline closed: %w", req.Key, meta.ErrChannel)
	}
	select {
	case p.queues[req.Family] <- req:
		p.logger.Debug("decode queued", "key", req.Key, "family", req.Family)
		return nil
	default:
		return fmt.Errorf("decode %s: %w: %w", req.Key, errQueueFull, meta.ErrChannel)
	}
}

// Resize queues req on the resize worker without blocking.
func (p *Pipeline) Resize(req ResizeRequest) error {
	if p.closed {
		return fmt.Errorf("resize %s: pipeline closed: %w", req.Key, meta.ErrChannel)
	}
	select {
	case p.resizeQ <- req:
		return nil
	default:
		return fmt.Errorf("resize %s: %w: %w", req.Key, errQueueFull, meta.ErrChannel)
	}
}

// Batch is everything drained in one call.
type Batch struct {
	Decoded []DecodeResult
	Resized []ResizeResult
}

// Empty reports whether the batch holds no results.
func (b Batch) Empty() bool {
	return len(b.Decoded) == 0 && len(b.Resized) == 0
}

// Drain collects finished results without blocking.
func (p *Pipeline) Drain() Batch {
	var b Batch
	for {
		select {
		case r := <-p.decoded:
			b.Decoded = append(b.Decoded, r)
		case r := <-p.resized:
			b.Resized = append(b.Resized, r)
		default:
			return b
		}
	}
}

// Close stops accepting requests, abandons queued work and waits for the
// workers. Results nobody drained are dropped.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	close(p.resizeQ)
	if !p.started {
		return nil
	}
	p.stop()
	if err := p.group.Wait(); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (p *Pipeline) decodeLoop(ctx context.Context, fam Family) error {
	var src Source
	defer func() {
		if src != nil {
			src.Close()
		}
	}()

	for req := range p.queues[fam] {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if src == nil {
			s, err := p.open()
			if err != nil {
				p.send(ctx, DecodeResult{Key: req.Key, Err: err})
				continue
			}
			src = s
		}
		res := p.decodeSafely(src, req)
		if res.Err != nil {
			p.logger.Warn("decode failed", "key", req.Key, "family", fam, "err", res.Err)
		}
		if !p.send(ctx, res) {
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pipeline) send(ctx context.Context, r DecodeResult) bool {
	select {
	case p.decoded <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) decodeSafely(src Source, req DecodeRequest) (res DecodeResult) {
	defer func() {
		if v := recover(); v != nil {
			p.logger.Error("decode panic", "key", req.Key, "panic", v, "stack", string(debug.Stack()))
			res = DecodeResult{Key: req.Key, Err: fmt.Errorf("decode %s: %v: %w", req.Key, v, meta.ErrFormat)}
		}
	}()
	img, format, err := decode(src, req, p.gray)
	return DecodeResult{Key: req.Key, Image: img, Format: format, Err: err}
}

func (p *Pipeline) resizeLoop(ctx context.Context) error {
	for req := range p.resizeQ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res := resize(req)
		if res.Err != nil {
			p.logger.Warn("resize failed", "key", req.Key, "err", res.Err)
		}
		select {
		case p.resized <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func resize(req ResizeRequest) ResizeResult {
	res := ResizeResult{Key: req.Key, Cols: req.Cols, Rows: req.Rows}
	if req.Image == nil {
		res.Err = fmt.Errorf("resize %s: no raster: %w", req.Key, meta.ErrFormat)
		return res
	}
	res.Image, res.Err = Fit(req.Image, req.Cols, req.Rows, req.CellWidth, req.CellHeight)
	if res.Err == nil && req.EncodePNG {
		res.PNG, res.Err = EncodePNG(res.Image)
	}
	return res
}
