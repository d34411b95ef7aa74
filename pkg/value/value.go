package value

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindF32
	KindF64
	KindDecimal
	KindB32
	KindB64
	KindBytes
	KindArray
	KindMap
)

var kindNames = [...]string{
	KindNull:    "null",
	KindString:  "string",
	KindBool:    "bool",
	KindU8:      "u8",
	KindU16:     "u16",
	KindU32:     "u32",
	KindU64:     "u64",
	KindU128:    "u128",
	KindI8:      "i8",
	KindI16:     "i16",
	KindI32:     "i32",
	KindI64:     "i64",
	KindI128:    "i128",
	KindF32:     "f32",
	KindF64:     "f64",
	KindDecimal: "decimal",
	KindB32:     "b32",
	KindB64:     "b64",
	KindBytes:   "bytes",
	KindArray:   "array",
	KindMap:     "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsInteger reports whether the kind is one of the fixed-width integer variants.
func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindI128
}

// IsNumber reports whether the kind holds a numeric value (integer, float or decimal).
func (k Kind) IsNumber() bool {
	return k >= KindU8 && k <= KindDecimal
}

// Value is the closed union of all data a command can consume or produce.
// The set of implementations is fixed to the variant types of this package.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Null is the absence of a value.
	Null struct{}
	// String is a UTF-8 string.
	String string
	// Bool is a boolean.
	Bool bool

	U8  uint8
	U16 uint16
	U32 uint32
	U64 uint64

	I8  int8
	I16 int16
	I32 int32
	I64 int64

	F32 float32
	F64 float64

	// B32 is a 32 byte blob, the shape of a public key.
	B32 [32]byte
	// B64 is a 64 byte blob, the shape of a keypair or a signature.
	B64 [64]byte
	// Bytes is an arbitrary length byte string.
	Bytes []byte
	// Array is an ordered sequence of values.
	Array []Value
)

// U128 is an unsigned 128-bit integer.
// The zero value is 0.
type U128 struct {
	v math.Int
}

// I128 is a signed 128-bit integer.
// The zero value is 0.
type I128 struct {
	v math.Int
}

// Decimal is an arbitrary precision decimal number that remembers its scale.
type Decimal struct {
	v decimal.Decimal
}

func (Null) Kind() Kind    { return KindNull }
func (String) Kind() Kind  { return KindString }
func (Bool) Kind() Kind    { return KindBool }
func (U8) Kind() Kind      { return KindU8 }
func (U16) Kind() Kind     { return KindU16 }
func (U32) Kind() Kind     { return KindU32 }
func (U64) Kind() Kind     { return KindU64 }
func (U128) Kind() Kind    { return KindU128 }
func (I8) Kind() Kind      { return KindI8 }
func (I16) Kind() Kind     { return KindI16 }
func (I32) Kind() Kind     { return KindI32 }
func (I64) Kind() Kind     { return KindI64 }
func (I128) Kind() Kind    { return KindI128 }
func (F32) Kind() Kind     { return KindF32 }
func (F64) Kind() Kind     { return KindF64 }
func (Decimal) Kind() Kind { return KindDecimal }
func (B32) Kind() Kind     { return KindB32 }
func (B64) Kind() Kind     { return KindB64 }
func (Bytes) Kind() Kind   { return KindBytes }
func (Array) Kind() Kind   { return KindArray }
func (*Map) Kind() Kind    { return KindMap }

func (Null) isValue()    {}
func (String) isValue()  {}
func (Bool) isValue()    {}
func (U8) isValue()      {}
func (U16) isValue()     {}
func (U32) isValue()     {}
func (U64) isValue()     {}
func (U128) isValue()    {}
func (I8) isValue()      {}
func (I16) isValue()     {}
func (I32) isValue()     {}
func (I64) isValue()     {}
func (I128) isValue()    {}
func (F32) isValue()     {}
func (F64) isValue()     {}
func (Decimal) isValue() {}
func (B32) isValue()     {}
func (B64) isValue()     {}
func (Bytes) isValue()   {}
func (Array) isValue()   {}
func (*Map) isValue()    {}

// KindOf returns the kind of v, treating a nil interface as Null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

var (
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// NewU128 returns a U128 holding n. It fails if n is negative or wider than 128 bits.
func NewU128(n *big.Int) (U128, error) {
	if n == nil || n.Sign() < 0 || n.Cmp(maxU128) > 0 {
		return U128{}, fmt.Errorf("value %v out of range for u128", n)
	}
	return U128{v: math.NewIntFromBigInt(n)}, nil
}

// U128FromUint64 widens a uint64.
func U128FromUint64(n uint64) U128 {
	return U128{v: math.NewIntFromUint64(n)}
}

// ParseU128 parses a base 10 unsigned 128-bit integer.
func ParseU128(s string) (U128, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return U128{}, fmt.Errorf("invalid u128 %q", s)
	}
	return NewU128(n)
}

// Int returns the number as a cosmossdk math.Int.
func (u U128) Int() math.Int {
	if u.v.IsNil() {
		return math.ZeroInt()
	}
	return u.v
}

// BigInt returns a copy of the number.
func (u U128) BigInt() *big.Int { return u.Int().BigInt() }

func (u U128) String() string { return u.Int().String() }

// NewI128 returns an I128 holding n. It fails if n does not fit in 128 bits.
func NewI128(n *big.Int) (I128, error) {
	if n == nil || n.Cmp(minI128) < 0 || n.Cmp(maxI128) > 0 {
		return I128{}, fmt.Errorf("value %v out of range for i128", n)
	}
	return I128{v: math.NewIntFromBigInt(n)}, nil
}

// I128FromInt64 widens an int64.
func I128FromInt64(n int64) I128 {
	return I128{v: math.NewInt(n)}
}

// ParseI128 parses a base 10 signed 128-bit integer.
func ParseI128(s string) (I128, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return I128{}, fmt.Errorf("invalid i128 %q", s)
	}
	return NewI128(n)
}

// Int returns the number as a cosmossdk math.Int.
func (i I128) Int() math.Int {
	if i.v.IsNil() {
		return math.ZeroInt()
	}
	return i.v
}

// BigInt returns a copy of the number.
func (i I128) BigInt() *big.Int { return i.Int().BigInt() }

func (i I128) String() string { return i.Int().String() }

// NewDecimal wraps a shopspring decimal.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{v: d}
}

// ParseDecimal parses a decimal string such as "12.50" or "-3".
// The scale of the input is preserved.
func ParseDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Decimal{v: d}, nil
}

// MustDecimal is like ParseDecimal but panics on error. Intended for tests and constants.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Decimal returns the underlying decimal.
func (d Decimal) Decimal() decimal.Decimal { return d.v }

// Scale is the number of digits after the decimal point.
// Decimals with a positive exponent (e.g. 1e3) have scale 0.
func (d Decimal) Scale() int32 {
	if exp := d.v.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

func (d Decimal) String() string { return d.v.String() }

// text renders the decimal keeping trailing zeros implied by its scale.
func (d Decimal) text() string {
	return d.v.StringFixed(d.Scale())
}

// NewMapFrom builds a Map from alternating key/value pairs in order.
func NewMapFrom(pairs ...any) *Map {
	if len(pairs)%2 != 0 {
		panic("value: NewMapFrom needs an even number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("value: NewMapFrom key %d is %T, not string", i/2, pairs[i]))
		}
		v, ok := pairs[i+1].(Value)
		if !ok {
			panic(fmt.Sprintf("value: NewMapFrom value for %q is %T, not Value", key, pairs[i+1]))
		}
		m.Set(key, v)
	}
	return m
}
