package value

import (
	stdmath "math"
	"math/big"
)

// Normalize returns the canonical form of v.
//
//   - Every integer variant becomes U64 when it is non-negative and I64 when it is negative,
//     provided it fits 64 bits, else U128 (non-negative) or I128. So U8(5), I8(5) and
//     Decimal("5") all become U64(5).
//   - A Decimal with a scale of exactly zero follows the integer rule when it fits 128 bits,
//     else it stays a Decimal. A nonzero scale never collapses, so "1.0" remains a Decimal.
//   - Arrays and Maps normalize their children.
//
// Normalize is idempotent.
func Normalize(v Value) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case U8:
		return U64(x)
	case U16:
		return U64(x)
	case U32:
		return U64(x)
	case I8:
		return signed(int64(x))
	case I16:
		return signed(int64(x))
	case I32:
		return signed(int64(x))
	case I64:
		return signed(int64(x))
	case U128:
		if n := x.Int(); n.IsUint64() {
			return U64(n.Uint64())
		}
		return x
	case I128:
		if out, ok := integer(x.BigInt()); ok {
			return out
		}
		return x
	case Decimal:
		return normalizeDecimal(x)
	case Array:
		out := make(Array, len(x))
		for i, elem := range x {
			out[i] = Normalize(elem)
		}
		return out
	case *Map:
		out := NewMap()
		for k, elem := range x.All() {
			out.Set(k, Normalize(elem))
		}
		return out
	default:
		return v
	}
}

func signed(n int64) Value {
	if n < 0 {
		return I64(n)
	}
	return U64(n)
}

// integer maps n to the narrowest canonical integer variant. It fails beyond 128 bits.
func integer(n *big.Int) (Value, bool) {
	if n.Sign() < 0 {
		if n.IsInt64() {
			return I64(n.Int64()), true
		}
		i, err := NewI128(n)
		return i, err == nil
	}
	if n.IsUint64() {
		return U64(n.Uint64()), true
	}
	u, err := NewU128(n)
	return u, err == nil
}

func normalizeDecimal(d Decimal) Value {
	if d.v.Exponent() < 0 {
		return d
	}
	if out, ok := integer(d.v.BigInt()); ok {
		return out
	}
	return d
}

// Equal reports whether a and b are structurally equal.
// Maps compare as sets of entries, floats compare bit for bit and decimals compare numerically.
// Callers that want numeric equivalence across variants should Normalize both sides first.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case U128:
		return x.Int().Equal(b.(U128).Int())
	case I128:
		return x.Int().Equal(b.(I128).Int())
	case F32:
		return stdmath.Float32bits(float32(x)) == stdmath.Float32bits(float32(b.(F32)))
	case F64:
		return stdmath.Float64bits(float64(x)) == stdmath.Float64bits(float64(b.(F64)))
	case Decimal:
		return x.v.Equal(b.(Decimal).v)
	case Bytes:
		y := b.(Bytes)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Map:
		y := b.(*Map)
		if x.Len() != y.Len() {
			return false
		}
		for k, xv := range x.All() {
			yv, ok := y.Get(k)
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		// remaining variants are comparable Go values
		return a == b
	}
}
