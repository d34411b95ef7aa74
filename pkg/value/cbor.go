package value

import (
	"fmt"
	stdmath "math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// The CBOR form mirrors the JSON wire tags but keeps payloads native: integers up to 64
// bits as CBOR integers, blobs as byte strings. Maps are encoded as a list of [key, value]
// pairs so insertion order survives. It is used for internal persistence only.

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("value: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("value: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeCBOR encodes v deterministically.
func EncodeCBOR(v Value) ([]byte, error) {
	tree, err := toCBORTree(v)
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(tree)
}

// DecodeCBOR decodes the output of EncodeCBOR.
func DecodeCBOR(data []byte) (Value, error) {
	var tree any
	if err := cborDec.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	return fromCBORTree(tree)
}

// MarshalCBOR implements cbor.Marshaler.
func (m *Map) MarshalCBOR() ([]byte, error) {
	if m == nil {
		return EncodeCBOR(NewMap())
	}
	return EncodeCBOR(m)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (m *Map) UnmarshalCBOR(data []byte) error {
	v, err := DecodeCBOR(data)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Map)
	if !ok {
		return fmt.Errorf("%w: expected map, got %s", ErrWireFormat, v.Kind())
	}
	*m = *decoded
	return nil
}

func toCBORTree(v Value) (map[string]any, error) {
	tag := func(t string, payload any) (map[string]any, error) {
		return map[string]any{t: payload}, nil
	}
	switch x := v.(type) {
	case nil, Null:
		return tag(TagNull, nil)
	case String:
		return tag(TagString, string(x))
	case Bool:
		return tag(TagBool, bool(x))
	case U8:
		return tag(TagU8, uint64(x))
	case U16:
		return tag(TagU16, uint64(x))
	case U32:
		return tag(TagU32, uint64(x))
	case U64:
		return tag(TagU64, uint64(x))
	case U128:
		return tag(TagU128, x.String())
	case I8:
		return tag(TagI8, int64(x))
	case I16:
		return tag(TagI16, int64(x))
	case I32:
		return tag(TagI32, int64(x))
	case I64:
		return tag(TagI64, int64(x))
	case I128:
		return tag(TagI128, x.String())
	case F32:
		return tag(TagF32, float32(x))
	case F64:
		return tag(TagF64, float64(x))
	case Decimal:
		return tag(TagDecimal, x.text())
	case B32:
		return tag(TagB32, x[:])
	case B64:
		return tag(TagB64, x[:])
	case Bytes:
		return tag(TagBytes, []byte(x))
	case Array:
		items := make([]any, len(x))
		for i, elem := range x {
			t, err := toCBORTree(elem)
			if err != nil {
				return nil, err
			}
			items[i] = t
		}
		return tag(TagArray, items)
	case *Map:
		pairs := make([]any, 0, x.Len())
		for k, elem := range x.All() {
			t, err := toCBORTree(elem)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, []any{k, t})
		}
		return tag(TagMap, pairs)
	default:
		return nil, fmt.Errorf("value: cannot encode variant %T", v)
	}
}

func fromCBORTree(node any) (Value, error) {
	m, ok := node.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, fmt.Errorf("%w: expected single-key map, got %T", ErrWireFormat, node)
	}
	for tag, payload := range m {
		v, err := fromCBORPayload(tag, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: tag %q: %v", ErrWireFormat, tag, err)
		}
		return v, nil
	}
	panic("unreachable")
}

func fromCBORPayload(tag string, payload any) (Value, error) {
	switch tag {
	case TagNull:
		return Null{}, nil
	case TagString:
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("expected text, got %T", payload)
		}
		return String(s), nil
	case TagBool:
		b, ok := payload.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", payload)
		}
		return Bool(b), nil
	case TagU8, TagU16, TagU32, TagU64:
		n, ok := payload.(uint64)
		if !ok {
			return nil, fmt.Errorf("expected unsigned integer, got %T", payload)
		}
		switch {
		case tag == TagU8 && n <= stdmath.MaxUint8:
			return U8(n), nil
		case tag == TagU16 && n <= stdmath.MaxUint16:
			return U16(n), nil
		case tag == TagU32 && n <= stdmath.MaxUint32:
			return U32(n), nil
		case tag == TagU64:
			return U64(n), nil
		}
		return nil, fmt.Errorf("%d out of range", n)
	case TagI8, TagI16, TagI32, TagI64:
		n, err := cborInt64(payload)
		if err != nil {
			return nil, err
		}
		switch {
		case tag == TagI8 && n >= stdmath.MinInt8 && n <= stdmath.MaxInt8:
			return I8(n), nil
		case tag == TagI16 && n >= stdmath.MinInt16 && n <= stdmath.MaxInt16:
			return I16(n), nil
		case tag == TagI32 && n >= stdmath.MinInt32 && n <= stdmath.MaxInt32:
			return I32(n), nil
		case tag == TagI64:
			return I64(n), nil
		}
		return nil, fmt.Errorf("%d out of range", n)
	case TagU128, TagI128, TagDecimal:
		s, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("expected text, got %T", payload)
		}
		switch tag {
		case TagU128:
			return ParseU128(s)
		case TagI128:
			return ParseI128(s)
		}
		return ParseDecimal(s)
	case TagF32, TagF64:
		f, ok := payload.(float64)
		if !ok {
			return nil, fmt.Errorf("expected float, got %T", payload)
		}
		if tag == TagF32 {
			return F32(f), nil
		}
		return F64(f), nil
	case TagB32, TagB64, TagBytes:
		b, ok := payload.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected byte string, got %T", payload)
		}
		switch {
		case tag == TagBytes:
			return Bytes(b), nil
		case tag == TagB32 && len(b) == 32:
			return B32(b), nil
		case tag == TagB64 && len(b) == 64:
			return B64(b), nil
		}
		return nil, fmt.Errorf("unexpected length %d", len(b))
	case TagArray:
		items, ok := payload.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", payload)
		}
		arr := make(Array, len(items))
		for i, item := range items {
			v, err := fromCBORTree(item)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case TagMap:
		pairs, ok := payload.([]any)
		if !ok {
			return nil, fmt.Errorf("expected pair list, got %T", payload)
		}
		out := NewMap()
		for _, p := range pairs {
			pair, ok := p.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("malformed map entry %v", p)
			}
			key, ok := pair[0].(string)
			if !ok {
				return nil, fmt.Errorf("map key is %T, not text", pair[0])
			}
			v, err := fromCBORTree(pair[1])
			if err != nil {
				return nil, err
			}
			out.Set(key, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown tag")
	}
}

func cborInt64(payload any) (int64, error) {
	switch n := payload.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > stdmath.MaxInt64 {
			return 0, fmt.Errorf("%d out of range", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", payload)
	}
}
