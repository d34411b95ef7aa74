package value_test

import (
	"math/big"
	"testing"

	"github.com/aretw0/flowchain/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "u128", value.KindU128.String())
	assert.Equal(t, "map", value.NewMap().Kind().String())
	assert.Equal(t, "null", value.KindOf(nil).String())
	assert.True(t, value.KindI32.IsInteger())
	assert.False(t, value.KindF64.IsInteger())
	assert.True(t, value.KindDecimal.IsNumber())
}

func TestNormalize_128BitCollapse(t *testing.T) {
	small := value.U128FromUint64(42)
	assert.Equal(t, value.U64(42), value.Normalize(small))

	huge, err := value.ParseU128("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, value.KindU128, value.Normalize(huge).Kind(), "values over 64 bits stay 128-bit")

	neg := value.I128FromInt64(-7)
	assert.Equal(t, value.I64(-7), value.Normalize(neg))

	wide, err := value.ParseI128("-170141183460469231731687303715884105728")
	require.NoError(t, err)
	assert.Equal(t, value.KindI128, value.Normalize(wide).Kind())
}

func TestNormalize_Decimal(t *testing.T) {
	tests := []struct {
		in   string
		want value.Value
	}{
		{"42", value.U64(42)},
		{"-42", value.I64(-42)},
		{"0", value.U64(0)},
		{"1e3", value.U64(1000)},
	}
	for _, tt := range tests {
		got := value.Normalize(value.MustDecimal(tt.in))
		assert.True(t, value.Equal(tt.want, got), "%s: got %#v", tt.in, got)
	}

	t.Run("nonzero scale never collapses", func(t *testing.T) {
		got := value.Normalize(value.MustDecimal("1.0"))
		assert.Equal(t, value.KindDecimal, got.Kind())
	})

	t.Run("beyond 64 bits", func(t *testing.T) {
		got := value.Normalize(value.MustDecimal("18446744073709551616"))
		require.Equal(t, value.KindU128, got.Kind())
		assert.Equal(t, "18446744073709551616", got.(value.U128).String())
	})

	t.Run("beyond 128 bits stays decimal", func(t *testing.T) {
		got := value.Normalize(value.MustDecimal("340282366920938463463374607431768211456"))
		assert.Equal(t, value.KindDecimal, got.Kind())
	})
}

func TestNormalize_NumericEquivalence(t *testing.T) {
	pow63, err := value.ParseI128("9223372036854775808")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []value.Value
		want value.Value
	}{
		{"small non-negative", []value.Value{
			value.MustDecimal("42"), value.U128FromUint64(42), value.U8(42), value.U16(42), value.U32(42),
			value.U64(42), value.I8(42), value.I16(42), value.I32(42), value.I64(42), value.I128FromInt64(42),
		}, value.U64(42)},
		{"negative", []value.Value{
			value.MustDecimal("-5"), value.I8(-5), value.I16(-5), value.I32(-5), value.I64(-5), value.I128FromInt64(-5),
		}, value.I64(-5)},
		{"2^63 fits u64", []value.Value{
			pow63, value.MustDecimal("9223372036854775808"), value.U64(1 << 63),
		}, value.U64(1 << 63)},
		{"zero", []value.Value{value.I8(0), value.MustDecimal("0"), value.U8(0)}, value.U64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, in := range tt.in {
				got := value.Normalize(in)
				assert.True(t, value.Equal(tt.want, got), "%s: got %s", in.Kind(), got.Kind())
			}
		})
	}

	t.Run("i128 beyond u64 becomes u128", func(t *testing.T) {
		over, err := value.ParseI128("18446744073709551616")
		require.NoError(t, err)
		got := value.Normalize(over)
		require.Equal(t, value.KindU128, got.Kind())
		assert.True(t, value.Equal(got, value.Normalize(value.MustDecimal("18446744073709551616"))))
	})
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, v := range sampleValues(t) {
		once := value.Normalize(v)
		twice := value.Normalize(once)
		assert.True(t, value.Equal(once, twice), "not idempotent for %s", v.Kind())
	}
}

func TestNormalize_Composites(t *testing.T) {
	in := value.NewMapFrom(
		"list", value.Array{value.MustDecimal("5"), value.I16(-1)},
		"nested", value.NewMapFrom("x", value.U128FromUint64(9)),
	)
	out := value.Normalize(in).(*value.Map)

	list, _ := out.Get("list")
	assert.True(t, value.Equal(value.Array{value.U64(5), value.I64(-1)}, list))
	nested, _ := out.Get("nested")
	x, _ := nested.(*value.Map).Get("x")
	assert.Equal(t, value.U64(9), x)
}

func TestEqual(t *testing.T) {
	assert.True(t, value.Equal(nil, value.Null{}))
	assert.False(t, value.Equal(value.U64(1), value.I64(1)), "different variants are not equal before normalization")
	assert.True(t, value.Equal(value.Bytes{1, 2}, value.Bytes{1, 2}))
	assert.False(t, value.Equal(value.Bytes{1, 2}, value.Bytes{1}))

	t.Run("map order is not significant", func(t *testing.T) {
		a := value.NewMapFrom("a", value.Bool(true), "b", value.String("x"))
		b := value.NewMapFrom("b", value.String("x"), "a", value.Bool(true))
		assert.True(t, value.Equal(a, b))
		assert.Equal(t, []string{"a", "b"}, a.Keys())
		assert.Equal(t, []string{"b", "a"}, b.Keys())
	})
}

func TestMap_Operations(t *testing.T) {
	m := value.NewMap()
	m.Set("first", value.U8(1))
	m.Set("second", nil)
	m.Set("first", value.U8(2))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"first", "second"}, m.Keys(), "replacing keeps position")
	v, ok := m.Get("second")
	require.True(t, ok)
	assert.Equal(t, value.Null{}, v)

	clone := m.Clone()
	assert.True(t, m.Delete("first"))
	assert.False(t, m.Delete("first"))
	assert.Equal(t, 2, clone.Len())

	var nilMap *value.Map
	assert.Equal(t, 0, nilMap.Len())
	_, ok = nilMap.Get("x")
	assert.False(t, ok)
}

func TestRangeChecks(t *testing.T) {
	_, err := value.NewU128(big.NewInt(-1))
	assert.Error(t, err)
	_, err = value.ParseU128("340282366920938463463374607431768211456")
	assert.Error(t, err)
	_, err = value.ParseI128("170141183460469231731687303715884105728")
	assert.Error(t, err)
	_, err = value.ParseDecimal("abc")
	assert.Error(t, err)
}

func TestDecimal_NativeForm(t *testing.T) {
	for _, s := range []string{"0", "1", "-1", "12.50", "-0.000001", "79228162514264337593543950335"} {
		d := value.MustDecimal(s)
		raw, err := d.MarshalNative()
		require.NoError(t, err, s)
		back, err := value.DecimalFromNative(raw[:])
		require.NoError(t, err, s)
		assert.True(t, value.Equal(d, back), "%s round trip gave %s", s, back)
		assert.Equal(t, d.Scale(), back.Scale(), s)
	}

	t.Run("layout", func(t *testing.T) {
		raw, err := value.MustDecimal("-1.5").MarshalNative()
		require.NoError(t, err)
		// scale 1 in byte 2, sign in the top bit of byte 3, mantissa 15 in lo
		assert.Equal(t, [16]byte{0, 0, 1, 0x80, 15, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, raw)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := value.MustDecimal("79228162514264337593543950336").MarshalNative()
		assert.ErrorIs(t, err, value.ErrDecimalRange)
		_, err = value.DecimalFromNative([]byte{1, 2, 3})
		assert.Error(t, err)
	})
}

// sampleValues returns one instance of every variant, plus nested composites.
func sampleValues(t *testing.T) []value.Value {
	t.Helper()
	u128, err := value.ParseU128("340282366920938463463374607431768211455")
	require.NoError(t, err)
	i128, err := value.ParseI128("-170141183460469231731687303715884105728")
	require.NoError(t, err)

	var b32 value.B32
	var b64 value.B64
	for i := range b32 {
		b32[i] = byte(i + 1)
	}
	for i := range b64 {
		b64[i] = byte(255 - i)
	}

	scalars := []value.Value{
		value.Null{},
		value.String("hello <world> & \"friends\""),
		value.Bool(true),
		value.U8(255),
		value.U16(65535),
		value.U32(4294967295),
		value.U64(18446744073709551615),
		u128,
		value.U128FromUint64(7),
		value.I8(-128),
		value.I16(-32768),
		value.I32(-2147483648),
		value.I64(-9223372036854775808),
		i128,
		value.F32(1.5),
		value.F64(-0.1),
		value.MustDecimal("-12.3400"),
		value.MustDecimal("17"),
		b32,
		b64,
		value.Bytes{0, 1, 2, 250},
		value.Bytes{},
	}
	out := append([]value.Value{}, scalars...)
	out = append(out, value.Array(scalars))
	m := value.NewMap()
	for i, s := range scalars {
		m.Set(s.Kind().String()+string(rune('a'+i)), s)
	}
	m.Set("inner", value.Array{value.NewMapFrom("deep", value.Array{})})
	out = append(out, m)
	return out
}

func TestFromAny(t *testing.T) {
	v, err := value.FromAny(map[string]any{
		"b":    []any{uint8(1), -2, "x", nil},
		"a":    true,
		"blob": [32]byte{1},
	})
	require.NoError(t, err)

	m := v.(*value.Map)
	assert.Equal(t, []string{"a", "b", "blob"}, m.Keys())
	b, _ := m.Get("b")
	assert.True(t, value.Equal(value.Array{value.U8(1), value.I64(-2), value.String("x"), value.Null{}}, b))

	_, err = value.FromAny(struct{}{})
	assert.Error(t, err)
}
