package dtype

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/heap"
	"github.com/robert-malhotra/h5view/internal/message"
)

// varLenResolver turns variable-length references into the bytes they
// point at, reading each global heap collection at most once.
type varLenResolver struct {
	reader     *binpkg.Reader
	offsetSize int
	cache      map[uint64]*heap.GlobalHeap
}

func newVarLenResolver(reader *binpkg.Reader) *varLenResolver {
	offsetSize := 8
	if reader != nil {
		offsetSize = reader.OffsetSize()
	}
	return &varLenResolver{
		reader:     reader,
		offsetSize: offsetSize,
		cache:      make(map[uint64]*heap.GlobalHeap),
	}
}

// refSize is the on-disk size of one reference: length, collection
// address and object index.
func (r *varLenResolver) refSize() int {
	return 4 + r.offsetSize + 4
}

// resolve returns the heap object for ref. A null reference yields nil.
func (r *varLenResolver) resolve(ref []byte) ([]byte, error) {
	if len(ref) < r.refSize() {
		return nil, fmt.Errorf("variable-length reference too short: %d bytes", len(ref))
	}

	heapID, err := heap.ParseGlobalHeapID(ref[4:], r.offsetSize)
	if err != nil {
		return nil, fmt.Errorf("parsing global heap ID: %w", err)
	}
	if heapID.CollectionAddress == 0 {
		return nil, nil
	}
	if r.reader == nil {
		return nil, fmt.Errorf("variable-length read requires file reader (global heap at 0x%x)", heapID.CollectionAddress)
	}

	gh, ok := r.cache[heapID.CollectionAddress]
	if !ok {
		gh, err = heap.ReadGlobalHeap(r.reader, heapID.CollectionAddress)
		if err != nil {
			return nil, fmt.Errorf("reading global heap at 0x%x: %w", heapID.CollectionAddress, err)
		}
		r.cache[heapID.CollectionAddress] = gh
	}

	return gh.GetObject(uint16(heapID.ObjectIndex))
}

// sequence resolves one reference and trims the heap object to the
// recorded length times the base element size.
func (r *varLenResolver) sequence(dt *message.Datatype, ref []byte) ([]byte, error) {
	raw, err := r.resolve(ref)
	if err != nil || raw == nil {
		return raw, err
	}
	base := 1
	if dt.VarLenType != nil && dt.VarLenType.Size > 0 && !dt.IsVarLenString {
		base = int(dt.VarLenType.Size)
	}
	if want := int(binary.LittleEndian.Uint32(ref)) * base; want < len(raw) {
		raw = raw[:want]
	}
	return raw, nil
}

// ReadVarLen resolves n variable-length references stored in data and
// returns the raw bytes of each sequence.
func ReadVarLen(dt *message.Datatype, data []byte, n uint64, reader *binpkg.Reader) ([][]byte, error) {
	if dt == nil || dt.Class != message.ClassVarLen {
		return nil, fmt.Errorf("not a variable-length datatype")
	}

	res := newVarLenResolver(reader)
	size := uint64(res.refSize())
	if uint64(len(data)) < n*size {
		return nil, fmt.Errorf("variable-length data too short: %d references need %d bytes, have %d",
			n, n*size, len(data))
	}

	out := make([][]byte, n)
	for i := range out {
		seq, err := res.sequence(dt, data[uint64(i)*size:uint64(i+1)*size])
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = seq
	}
	return out, nil
}

func trimNull(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
