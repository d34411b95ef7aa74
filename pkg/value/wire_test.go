package value_test

import (
	"encoding/json"
	stdmath "math"
	"testing"

	"github.com/aretw0/flowchain/pkg/value"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWire_RoundTrip(t *testing.T) {
	for _, v := range sampleValues(t) {
		data, err := value.EncodeJSON(v)
		require.NoError(t, err)

		back, err := value.DecodeJSON(data)
		require.NoError(t, err, "decoding %s", data)
		assert.True(t, value.Equal(v, back), "round trip changed %s: %s", v.Kind(), data)
		assert.True(t, value.Equal(value.Normalize(v), value.Normalize(back)))
	}
}

func TestWire_MaxU64AndBlob(t *testing.T) {
	var blob value.B32
	for i := range blob {
		blob[i] = 1
	}
	in := value.NewMapFrom(
		"a", value.U64(18446744073709551615),
		"b", blob,
	)

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"M":{"a":{"U":"18446744073709551615"},"b":{"B3":"`+base58.Encode(blob[:])+`"}}}`,
		string(data))

	var out value.Map
	require.NoError(t, json.Unmarshal(data, &out))
	a, _ := out.Get("a")
	assert.Equal(t, value.U64(18446744073709551615), a)
	b, _ := out.Get("b")
	assert.Equal(t, blob, b)
}

func TestWire_Format(t *testing.T) {
	tests := []struct {
		in   value.Value
		want string
	}{
		{value.Null{}, `{"N":0}`},
		{value.String("a<b"), `{"S":"a<b"}`},
		{value.Bool(false), `{"B":false}`},
		{value.U8(7), `{"U8":7}`},
		{value.U32(70000), `{"U32":70000}`},
		{value.I16(-3), `{"I16":-3}`},
		{value.I64(-3), `{"I":"-3"}`},
		{value.U128FromUint64(5), `{"U1":"5"}`},
		{value.F64(0.5), `{"F":"0.5"}`},
		{value.F32(float32(stdmath.Inf(-1))), `{"F32":"-inf"}`},
		{value.MustDecimal("1.50"), `{"D":"1.50"}`},
		{value.Bytes("hi"), `{"BY":"aGk="}`},
		{value.Array{value.Bool(true)}, `{"A":[{"B":true}]}`},
		{value.NewMapFrom("z", value.Null{}, "a", value.Null{}), `{"M":{"z":{"N":0},"a":{"N":0}}}`},
	}
	for _, tt := range tests {
		got, err := value.EncodeJSON(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "encoding %s", tt.in.Kind())
	}
}

func TestWire_PreservesMapOrder(t *testing.T) {
	data := []byte(`{"M":{"zeta":{"U8":1},"alpha":{"U8":2},"mid":{"U8":3}}}`)
	v, err := value.DecodeJSON(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, v.(*value.Map).Keys())

	again, err := value.EncodeJSON(v)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestWire_LenientNumbers(t *testing.T) {
	v, err := value.DecodeJSON([]byte(`{"U":42}`))
	require.NoError(t, err)
	assert.Equal(t, value.U64(42), v)

	v, err = value.DecodeJSON([]byte(`{"U8":"42"}`))
	require.NoError(t, err)
	assert.Equal(t, value.U8(42), v)
}

func TestWire_Errors(t *testing.T) {
	bad := []string{
		`{}`,
		`{"S":"a","B":true}`,
		`{"X":1}`,
		`{"U8":256}`,
		`{"B3":"1111"}`,
		`{"BY":"***"}`,
		`{"A":{"N":0}}`,
		`{"M":{"k":1}}`,
		`[]`,
		`{"N":0} {"N":0}`,
	}
	for _, in := range bad {
		_, err := value.DecodeJSON([]byte(in))
		assert.ErrorIs(t, err, value.ErrWireFormat, "input %s", in)
	}

	var m value.Map
	assert.Error(t, json.Unmarshal([]byte(`{"S":"not a map"}`), &m))
}

func TestWire_EmbeddedInStructs(t *testing.T) {
	type envelope struct {
		ID    string     `json:"id"`
		Value value.Wire `json:"value"`
	}
	in := envelope{ID: "x", Value: value.Wire{Value: value.Array{value.I8(1)}}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","value":{"A":[{"I8":1}]}}`, string(data))

	var out envelope
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, value.Equal(in.Value.Value, out.Value.Value))
}

func TestCBOR_RoundTrip(t *testing.T) {
	for _, v := range sampleValues(t) {
		data, err := value.EncodeCBOR(v)
		require.NoError(t, err)
		back, err := value.DecodeCBOR(data)
		require.NoError(t, err)
		assert.True(t, value.Equal(v, back), "CBOR round trip changed %s", v.Kind())
	}

	t.Run("deterministic", func(t *testing.T) {
		m := value.NewMapFrom("b", value.U8(1), "a", value.Bytes{9})
		first, err := value.EncodeCBOR(m)
		require.NoError(t, err)
		second, err := value.EncodeCBOR(m.Clone())
		require.NoError(t, err)
		assert.Equal(t, first, second)

		back, err := value.DecodeCBOR(first)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, back.(*value.Map).Keys())
	})
}
