package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/dtype"
	"github.com/robert-malhotra/h5view/internal/message"
	"github.com/robert-malhotra/h5view/internal/object"
)

// Attribute is a small named value stored in an object header. Its data
// is already in memory; the reader is only needed for variable-length
// values living in the global heap.
type Attribute struct {
	msg    *message.Attribute
	reader *binary.Reader
}

func attributes(h *object.Header) []*message.Attribute {
	var out []*message.Attribute
	for _, m := range h.GetMessages(message.TypeAttribute) {
		out = append(out, m.(*message.Attribute))
	}
	return out
}

func attrNames(h *object.Header) []string {
	var names []string
	for _, a := range attributes(h) {
		names = append(names, a.Name)
	}
	return names
}

func findAttr(h *object.Header, name string, r *binary.Reader) *Attribute {
	for _, a := range attributes(h) {
		if a.Name == name {
			return &Attribute{msg: a, reader: r}
		}
	}
	return nil
}

// Datatype is nil when the attribute's type could not be decoded.
func (a *Attribute) Datatype() *message.Datatype { return a.msg.Datatype }

// IsScalar also holds for attributes without a dataspace.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

func (a *Attribute) count() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// Read decodes the value into dest like Dataset.Read.
func (a *Attribute) Read(dest interface{}) error {
	switch {
	case a.msg.Datatype == nil:
		return fmt.Errorf("attribute %s: no datatype", a.msg.Name)
	case a.msg.Data == nil:
		return fmt.Errorf("attribute %s: no data", a.msg.Name)
	}
	return dtype.ConvertWithReader(a.msg.Datatype, a.msg.Data, a.count(), dest, a.reader)
}

// ReadScalarString returns the first element of a string attribute.
func (a *Attribute) ReadScalarString() (string, error) {
	var vals []string
	if err := a.Read(&vals); err != nil {
		return "", err
	}
	if len(vals) == 0 {
		return "", fmt.Errorf("attribute %s is empty", a.msg.Name)
	}
	return vals[0], nil
}

// Value decodes the attribute into the widest Go type for its class:
// int64 or uint64 for integers and enums, float64 for floats, string for
// strings and map[string]interface{} for compounds. Scalars come back
// bare and anything else as a slice.
func (a *Attribute) Value() (interface{}, error) {
	dt := a.msg.Datatype
	if dt == nil {
		return nil, fmt.Errorf("attribute %s: no datatype", a.msg.Name)
	}
	switch {
	case dt.Class == message.ClassFixedPoint && !dt.Signed:
		return value[uint64](a)
	case dt.Class == message.ClassFixedPoint, dt.Class == message.ClassEnum:
		return value[int64](a)
	case dt.Class == message.ClassFloatPoint:
		return value[float64](a)
	case dt.IsString():
		return value[string](a)
	}
	return value[interface{}](a)
}

func value[T any](a *Attribute) (interface{}, error) {
	var vals []T
	if err := a.Read(&vals); err != nil {
		return nil, err
	}
	if a.IsScalar() && len(vals) == 1 {
		return vals[0], nil
	}
	return vals, nil
}
