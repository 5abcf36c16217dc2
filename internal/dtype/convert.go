package dtype

import (
	"fmt"
	"math"
	"reflect"

	"github.com/robert-malhotra/h5view/internal/binary"
	"github.com/robert-malhotra/h5view/internal/message"
)

// ConvertWithReader decodes numElements elements of dt from data into dest.
//
// dest is a pointer to a slice, to a single value, or to an interface{}.
// Every element is first decoded to its natural Go type: sized integers,
// float32 or float64, string, []byte for opaque and variable-length
// sequences, map[string]interface{} for compounds and []interface{} for
// arrays. Numbers then convert to any numeric element type of dest.
// Without a reader, variable-length elements other than null references
// fail.
func ConvertWithReader(dt *message.Datatype, data []byte, numElements uint64, dest interface{}, reader *binary.Reader) error {
	if dt == nil {
		return fmt.Errorf("nil datatype")
	}
	ptr := reflect.ValueOf(dest)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("dest must be a non-nil pointer, got %T", dest)
	}
	size := uint64(dt.Size)
	if size == 0 {
		return fmt.Errorf("datatype class %d has zero size", dt.Class)
	}
	if need := numElements * size; uint64(len(data)) < need {
		return fmt.Errorf("not enough data: need %d bytes, have %d", need, len(data))
	}

	d := decoder{vl: newVarLenResolver(reader)}
	values := make([]interface{}, numElements)
	for i := range values {
		at := uint64(i) * size
		v, err := d.value(dt, data[at:at+size])
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		values[i] = v
	}
	return assign(ptr.Elem(), values)
}

type decoder struct {
	vl *varLenResolver
}

func (d decoder) value(dt *message.Datatype, raw []byte) (interface{}, error) {
	switch dt.Class {
	case message.ClassFixedPoint:
		return integer(dt, raw, dt.Signed)
	case message.ClassEnum:
		return integer(dt, raw, dt.BaseType == nil || dt.BaseType.Signed)
	case message.ClassBitfield:
		return integer(dt, raw, false)
	case message.ClassFloatPoint:
		return float(dt, raw)
	case message.ClassString:
		return fixedString(dt, raw), nil
	case message.ClassVarLen:
		seq, err := d.vl.sequence(dt, raw)
		if err != nil || !dt.IsVarLenString {
			return seq, err
		}
		return trimNull(seq), nil
	case message.ClassOpaque:
		return append([]byte(nil), raw...), nil
	case message.ClassCompound:
		return d.compound(dt, raw)
	case message.ClassArray:
		return d.array(dt, raw)
	}
	return nil, fmt.Errorf("unsupported datatype class %d", dt.Class)
}

func integer(dt *message.Datatype, raw []byte, signed bool) (interface{}, error) {
	order := ByteOrder(dt)
	switch len(raw) {
	case 1:
		if signed {
			return int8(raw[0]), nil
		}
		return raw[0], nil
	case 2:
		v := order.Uint16(raw)
		if signed {
			return int16(v), nil
		}
		return v, nil
	case 4:
		v := order.Uint32(raw)
		if signed {
			return int32(v), nil
		}
		return v, nil
	case 8:
		v := order.Uint64(raw)
		if signed {
			return int64(v), nil
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported integer size %d", len(raw))
}

func float(dt *message.Datatype, raw []byte) (interface{}, error) {
	order := ByteOrder(dt)
	switch len(raw) {
	case 4:
		return math.Float32frombits(order.Uint32(raw)), nil
	case 8:
		return math.Float64frombits(order.Uint64(raw)), nil
	}
	return nil, fmt.Errorf("unsupported float size %d", len(raw))
}

// fixedString cuts at the first NUL and, for space-padded types, drops the
// trailing spaces.
func fixedString(dt *message.Datatype, raw []byte) string {
	s := trimNull(raw)
	if dt.StringPadding == message.PadSpacePad {
		for len(s) > 0 && s[len(s)-1] == ' ' {
			s = s[:len(s)-1]
		}
	}
	return s
}

func (d decoder) compound(dt *message.Datatype, raw []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(dt.Members))
	for _, m := range dt.Members {
		if m.Type == nil {
			continue
		}
		lo := int(m.ByteOffset)
		hi := lo + int(m.Type.Size)
		if hi > len(raw) {
			return nil, fmt.Errorf("member %q overruns the %d-byte element", m.Name, len(raw))
		}
		v, err := d.value(m.Type, raw[lo:hi])
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", m.Name, err)
		}
		out[m.Name] = v
	}
	return out, nil
}

func (d decoder) array(dt *message.Datatype, raw []byte) ([]interface{}, error) {
	base := dt.BaseType
	if base == nil || base.Size == 0 {
		return nil, fmt.Errorf("array datatype without a base type")
	}
	step := int(base.Size)
	out := make([]interface{}, 0, len(raw)/step)
	for at := 0; at+step <= len(raw); at += step {
		v, err := d.value(base, raw[at:at+step])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// assign stores values in dst. An interface{} receives the lone value, or
// the whole []interface{} when there are several.
func assign(dst reflect.Value, values []interface{}) error {
	switch dst.Kind() {
	case reflect.Interface:
		if len(values) != 1 {
			dst.Set(reflect.ValueOf(values))
		} else if values[0] != nil {
			dst.Set(reflect.ValueOf(values[0]))
		}
		return nil
	case reflect.Slice:
		out := reflect.MakeSlice(dst.Type(), len(values), len(values))
		for i, v := range values {
			if err := set(out.Index(i), v); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		dst.Set(out)
		return nil
	}
	if len(values) != 1 {
		return fmt.Errorf("cannot store %d elements in a %s", len(values), dst.Type())
	}
	return set(dst, values[0])
}

func set(dst reflect.Value, v interface{}) error {
	if v == nil {
		return nil
	}
	src := reflect.ValueOf(v)
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case isNumber(src.Kind()) && isNumber(dst.Kind()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot convert %T to %s", v, dst.Type())
	}
	return nil
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
