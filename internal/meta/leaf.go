package meta

import (
	"fmt"
	"strings"

	"github.com/robert-malhotra/h5view/internal/message"
)

// Facts are the raw per-dataset values a LeafMeta is derived from.
type Facts struct {
	// Shape is nil for scalar datasets.
	Shape    []uint64
	Datatype *message.Datatype
	Chunks   []uint64
	Storage  uint64

	// Attrs holds the string values of the reserved attributes present.
	Attrs map[string]string
}

// LeafMeta is the cached description of a dataset.
type LeafMeta struct {
	// Shape is normalized so that scalars read as [elements, 1].
	Shape  []uint64
	Scalar bool

	ElemSize     uint64
	Elements     uint64
	Bytes        uint64
	StorageBytes uint64
	Chunks       []uint64

	Category   TypeCategory
	TypeName   string
	Encoding   Encoding
	Matrixable Matrixable

	Image     *ImageDescriptor
	Highlight string

	Datatype *message.Datatype
}

// NewLeafMeta derives the leaf description from f.
func NewLeafMeta(f Facts) *LeafMeta {
	m := &LeafMeta{
		Chunks:       f.Chunks,
		StorageBytes: f.Storage,
		Category:     Categorize(f.Datatype),
		TypeName:     TypeName(f.Datatype),
		Encoding:     EncodingOf(f.Datatype),
		Matrixable:   MatrixableOf(f.Datatype),
		Image:        detectImage(f.Attrs),
		Highlight:    strings.TrimSpace(f.Attrs[AttrHighlight]),
		Datatype:     f.Datatype,
	}
	if f.Datatype != nil {
		m.ElemSize = uint64(f.Datatype.Size)
	}

	if len(f.Shape) == 0 {
		m.Scalar = true
		m.Elements = 1
		m.Shape = []uint64{1, 1}
	} else {
		m.Elements = 1
		for _, d := range f.Shape {
			m.Elements *= d
		}
		m.Shape = append([]uint64(nil), f.Shape...)
	}
	m.Bytes = m.Elements * m.ElemSize
	return m
}

// Rank returns the number of dimensions of the normalized shape.
func (m *LeafMeta) Rank() int {
	return len(m.Shape)
}

// ShapeString formats the shape as "47 x 47 x 47 = 103823".
func (m *LeafMeta) ShapeString() string {
	return fmt.Sprintf("%s = %d", joinDims(m.Shape), m.Elements)
}

// ChunkString formats the chunk shape like ShapeString, or returns "" for
// unchunked datasets.
func (m *LeafMeta) ChunkString() string {
	if len(m.Chunks) == 0 {
		return ""
	}
	n := uint64(1)
	for _, d := range m.Chunks {
		n *= d
	}
	return fmt.Sprintf("%s = %d", joinDims(m.Chunks), n)
}

// SizeString formats the logical byte size with a 1024 base.
func (m *LeafMeta) SizeString() string {
	return FormatBytes(m.Bytes)
}

// StorageRatio returns stored bytes over logical bytes, or 0 when the
// dataset is empty.
func (m *LeafMeta) StorageRatio() float64 {
	if m.Bytes == 0 {
		return 0
	}
	return float64(m.StorageBytes) / float64(m.Bytes)
}

// FormatBytes renders n as B, KB, MB or GB with two decimals above bytes.
func FormatBytes(n uint64) string {
	const k = 1024
	switch {
	case n < k:
		return fmt.Sprintf("%d B", n)
	case n < k*k:
		return fmt.Sprintf("%.2f KB", float64(n)/k)
	case n < k*k*k:
		return fmt.Sprintf("%.2f MB", float64(n)/k/k)
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/k/k/k)
	}
}

func joinDims(dims []uint64) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, " x ")
}
