package value

import (
	"fmt"
	"maps"
	"math/big"
	"slices"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// FromAny builds a Value from a Go primitive, a Value, or nested []any and map[string]any.
// Go int and uint map to I64 and U64. Maps are inserted in sorted key order.
func FromAny(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case uint8:
		return U8(v), nil
	case uint16:
		return U16(v), nil
	case uint32:
		return U32(v), nil
	case uint64:
		return U64(v), nil
	case uint:
		return U64(v), nil
	case int8:
		return I8(v), nil
	case int16:
		return I16(v), nil
	case int32:
		return I32(v), nil
	case int64:
		return I64(v), nil
	case int:
		return I64(v), nil
	case float32:
		return F32(v), nil
	case float64:
		return F64(v), nil
	case decimal.Decimal:
		return NewDecimal(v), nil
	case *big.Int:
		if v.Sign() < 0 {
			return NewI128(v)
		}
		return NewU128(v)
	case math.Int:
		return FromAny(v.BigInt())
	case [32]byte:
		return B32(v), nil
	case [64]byte:
		return B64(v), nil
	case []byte:
		return Bytes(v), nil
	case []any:
		out := make(Array, len(v))
		for i, elem := range v {
			ev, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case map[string]any:
		m := NewMap()
		for _, k := range slices.Sorted(maps.Keys(v)) {
			ev, err := FromAny(v[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(k, ev)
		}
		return m, nil
	}
	return nil, fmt.Errorf("value: unsupported type %T", x)
}
