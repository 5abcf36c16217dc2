package filter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// Filter reverses one stage of a chunk's filter pipeline.
type Filter interface {
	ID() uint16
	Decode(input []byte) ([]byte, error)
}

// Registry holds the constructors of the filters that can be undone.
// Each receives the filter's client data.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
}

var knownFilters = map[uint16]string{
	message.FilterSZIP:        "SZIP",
	message.FilterNBit:        "N-bit",
	message.FilterScaleOffset: "scale-offset",
}

// New returns the filter for info. An optional filter that is not in the
// Registry yields nil and no error, since writers may skip it per chunk.
func New(info message.FilterInfo) (Filter, error) {
	if ctor, ok := Registry[info.ID]; ok {
		return ctor(info.ClientData), nil
	}
	if info.IsOptional() {
		return nil, nil
	}
	if name, ok := knownFilters[info.ID]; ok {
		return nil, fmt.Errorf("%s filter (ID %d) is not supported", name, info.ID)
	}
	return nil, fmt.Errorf("unsupported filter ID: %d", info.ID)
}

// Deflate inflates zlib streams. The level in the client data only
// matters to writers.
type Deflate struct{}

func NewDeflate([]uint32) *Deflate { return &Deflate{} }

func (*Deflate) ID() uint16 { return message.FilterDeflate }

func (*Deflate) Decode(input []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return out, nil
}

// Shuffle regroups byte planes back into elements. Shuffled data stores
// byte 0 of every element, then byte 1, and so on; a trailing partial
// element is left in place.
type Shuffle struct {
	size int
}

func NewShuffle(clientData []uint32) *Shuffle {
	s := &Shuffle{size: 1}
	if len(clientData) > 0 && clientData[0] > 1 {
		s.size = int(clientData[0])
	}
	return s
}

func (*Shuffle) ID() uint16 { return message.FilterShuffle }

func (s *Shuffle) Decode(input []byte) ([]byte, error) {
	n := len(input) / s.size
	if s.size == 1 || n == 0 {
		return input, nil
	}
	out := make([]byte, len(input))
	for plane := 0; plane < s.size; plane++ {
		src := input[plane*n : (plane+1)*n]
		for i, b := range src {
			out[i*s.size+plane] = b
		}
	}
	copy(out[n*s.size:], input[n*s.size:])
	return out, nil
}

// Fletcher32 checks and strips the 4-byte checksum trailing each chunk.
type Fletcher32 struct{}

func NewFletcher32([]uint32) *Fletcher32 { return &Fletcher32{} }

func (*Fletcher32) ID() uint16 { return message.FilterFletcher32 }

func (*Fletcher32) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("fletcher32: %d bytes leave no room for a checksum", len(input))
	}
	data, tail := input[:len(input)-4], input[len(input)-4:]
	if stored, sum := binary.LittleEndian.Uint32(tail), binpkg.Fletcher32(data); stored != sum {
		return nil, fmt.Errorf("fletcher32: checksum mismatch (stored %#08x, computed %#08x)", stored, sum)
	}
	return data, nil
}
