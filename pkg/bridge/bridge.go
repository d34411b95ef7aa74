package bridge

import (
	"fmt"
	"reflect"

	"github.com/aretw0/flowchain/pkg/value"
)

// ToValue converts v to a Value. The static type T matters for enums: pass the enum
// interface type so the variant is wrapped with its name.
func ToValue[T any](v T) (value.Value, error) {
	return encodeValue(reflect.ValueOf(&v).Elem(), nil)
}

// ToMap converts a record to a Map. It fails if v does not encode as a Map.
func ToMap[T any](v T) (*value.Map, error) {
	out, err := ToValue(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(*value.Map)
	if !ok {
		return nil, &Error{Kind: ErrInvalidType, Msg: fmt.Sprintf("%T encodes as %s, not map", v, value.KindOf(out))}
	}
	return m, nil
}

// FromValue converts v to a T.
func FromValue[T any](v value.Value) (T, error) {
	var out T
	err := Decode(v, &out)
	return out, err
}

// FromMap converts a Map to a T. A nil map is treated as empty.
func FromMap[T any](m *value.Map) (T, error) {
	if m == nil {
		m = value.NewMap()
	}
	return FromValue[T](m)
}

// Decode stores v in the value pointed to by out.
func Decode(v value.Value, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &Error{Kind: ErrUnsupported, Msg: fmt.Sprintf("decode target must be a non-nil pointer, got %T", out)}
	}
	return decodeValue(v, rv.Elem(), nil)
}

// Plain converts v to the closest untyped Go value: nil, string, bool, the sized integer
// and float types, *big.Int for 128-bit integers, decimal.Decimal, byte arrays and slices,
// []any and map[string]any.
func Plain(v value.Value) any {
	switch x := v.(type) {
	case nil, value.Null:
		return nil
	case value.String:
		return string(x)
	case value.Bool:
		return bool(x)
	case value.U8:
		return uint8(x)
	case value.U16:
		return uint16(x)
	case value.U32:
		return uint32(x)
	case value.U64:
		return uint64(x)
	case value.U128:
		return x.BigInt()
	case value.I8:
		return int8(x)
	case value.I16:
		return int16(x)
	case value.I32:
		return int32(x)
	case value.I64:
		return int64(x)
	case value.I128:
		return x.BigInt()
	case value.F32:
		return float32(x)
	case value.F64:
		return float64(x)
	case value.Decimal:
		return x.Decimal()
	case value.B32:
		return [32]byte(x)
	case value.B64:
		return [64]byte(x)
	case value.Bytes:
		return []byte(x)
	case value.Array:
		out := make([]any, len(x))
		for i, elem := range x {
			out[i] = Plain(elem)
		}
		return out
	case *value.Map:
		out := make(map[string]any, x.Len())
		for k, elem := range x.All() {
			out[k] = Plain(elem)
		}
		return out
	}
	return nil
}
