package bridge_test

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowchain/pkg/bridge"
	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/value"
)

type Shape interface {
	bridge.Variant
	isShape()
}

type Empty struct{}

type Lamports uint64

type Pair struct {
	bridge.Tuple
	A uint8
	B string
}

type Transfer struct {
	To     solana.PublicKey `value:"to"`
	Amount uint64           `value:"amount"`
}

func (Empty) VariantName() string    { return "Empty" }
func (Lamports) VariantName() string { return "Lamports" }
func (Pair) VariantName() string     { return "Pair" }
func (Transfer) VariantName() string { return "Transfer" }

func (Empty) isShape()    {}
func (Lamports) isShape() {}
func (Pair) isShape()     {}
func (Transfer) isShape() {}

func init() {
	bridge.RegisterEnum[Shape](Empty{}, Lamports(0), Pair{}, Transfer{})
}

type Account struct {
	Owner     solana.PublicKey  `value:"owner"`
	Authority domain.Keypair    `value:"authority"`
	Sig       solana.Signature  `value:"sig"`
	Amount    decimal.Decimal   `value:"amount"`
	Lamports  uint64            `value:"lamports"`
	Label     string            `json:"label"`
	Memo      *string           `value:"memo"`
	Tags      []string          `value:"tags"`
	Slots     map[uint64]string `value:"slots"`
	Shape     Shape             `value:"shape"`
	Note      string            `value:"note,omitempty"`
}

type Positive struct {
	N int64 `value:"n"`
}

func (p Positive) Validate() error {
	if p.N <= 0 {
		return bridge.Custom("n must be positive, got %d", p.N)
	}
	return nil
}

func newAccount(t *testing.T) Account {
	t.Helper()
	kp, err := domain.NewRandomKeypair()
	require.NoError(t, err)
	memo := "rent"
	return Account{
		Owner:     solana.NewWallet().PublicKey(),
		Authority: kp,
		Sig:       solana.Signature{1, 2, 3},
		Amount:    decimal.RequireFromString("12.50"),
		Lamports:  1_000_000,
		Label:     "main",
		Memo:      &memo,
		Tags:      []string{"a", "b"},
		Slots:     map[uint64]string{20: "late", 1: "early"},
		Shape:     Transfer{To: kp.PublicKey(), Amount: 7},
	}
}

func TestRecord_RoundTrip(t *testing.T) {
	acc := newAccount(t)

	m, err := bridge.ToMap(acc)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "authority", "sig", "amount", "lamports", "label", "memo", "tags", "slots", "shape"}, m.Keys())

	owner, _ := m.Get("owner")
	assert.Equal(t, value.B32(acc.Owner), owner)
	auth, _ := m.Get("authority")
	assert.Equal(t, value.KindB64, auth.Kind())
	amount, _ := m.Get("amount")
	assert.Equal(t, value.KindDecimal, amount.Kind())
	slots, _ := m.Get("slots")
	assert.Equal(t, []string{"1", "20"}, slots.(*value.Map).Keys())

	back, err := bridge.FromMap[Account](m)
	require.NoError(t, err)
	assert.Equal(t, acc, back)
}

func TestRecord_RoundTripThroughWire(t *testing.T) {
	acc := newAccount(t)
	acc.Memo = nil

	m, err := bridge.ToMap(acc)
	require.NoError(t, err)
	data, err := value.EncodeJSON(m)
	require.NoError(t, err)
	decoded, err := value.DecodeJSON(data)
	require.NoError(t, err)

	back, err := bridge.FromValue[Account](value.Normalize(decoded))
	require.NoError(t, err)
	assert.True(t, acc.Amount.Equal(back.Amount))
	assert.Equal(t, acc.Owner, back.Owner)
	assert.Equal(t, acc.Authority.PublicKey(), back.Authority.PublicKey())
	assert.Equal(t, acc.Slots, back.Slots)
	assert.Equal(t, acc.Shape, back.Shape)
	assert.Nil(t, back.Memo)
}

func TestEnum_Encoding(t *testing.T) {
	to := solana.NewWallet().PublicKey()
	tests := []struct {
		name  string
		shape Shape
		want  value.Value
	}{
		{"unit", Empty{}, value.String("Empty")},
		{"newtype", Lamports(5), value.NewMapFrom("Lamports", value.U64(5))},
		{"tuple", Pair{A: 1, B: "x"}, value.NewMapFrom("Pair", value.Array{value.U8(1), value.String("x")})},
		{"struct", Transfer{To: to, Amount: 9}, value.NewMapFrom("Transfer",
			value.NewMapFrom("to", value.B32(to), "amount", value.U64(9)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bridge.ToValue(tt.shape)
			require.NoError(t, err)
			assert.True(t, value.Equal(tt.want, got), "got %v", got)

			back, err := bridge.FromValue[Shape](got)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, back)
		})
	}
}

func TestEnum_DecodeErrors(t *testing.T) {
	_, err := bridge.FromValue[Shape](value.NewMapFrom("Empty", value.Null{}, "Lamports", value.U64(1)))
	assert.ErrorIs(t, err, bridge.ErrExpectedOneKey)

	_, err = bridge.FromValue[Shape](value.NewMap())
	assert.ErrorIs(t, err, bridge.ErrExpectedOneKey)

	_, err = bridge.FromValue[Shape](value.String("Circle"))
	assert.ErrorIs(t, err, bridge.ErrUnknownVariant)

	_, err = bridge.FromValue[Shape](value.String("Lamports"))
	assert.ErrorIs(t, err, bridge.ErrInvalidType)

	_, err = bridge.FromValue[Shape](value.U64(1))
	assert.ErrorIs(t, err, bridge.ErrInvalidType)
}

func TestPubkey_Coercions(t *testing.T) {
	kp, err := domain.NewRandomKeypair()
	require.NoError(t, err)
	pub := kp.PublicKey()
	full := kp.Bytes()

	inputs := map[string]value.Value{
		"b32":         value.B32(pub),
		"b64":         value.B64(full),
		"base58 b32":  value.String(pub.String()),
		"base58 b64":  value.String(base58.Encode(full[:])),
		"bytes b32":   value.Bytes(pub[:]),
		"remote form": value.B64(domain.NewRemoteKeypair(pub).Bytes()),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := bridge.FromValue[solana.PublicKey](in)
			require.NoError(t, err)
			assert.Equal(t, pub, got)
		})
	}
}

func TestTokens_Errors(t *testing.T) {
	_, err := bridge.FromValue[solana.PublicKey](value.Bytes{1, 2, 3})
	assert.ErrorIs(t, err, bridge.ErrInvalidLength)

	_, err = bridge.FromValue[solana.PublicKey](value.String("0OIl"))
	assert.ErrorIs(t, err, bridge.ErrInvalidEncoding)

	_, err = bridge.FromValue[solana.PublicKey](value.U64(1))
	assert.ErrorIs(t, err, bridge.ErrWrongTokenType)
	assert.Contains(t, err.Error(), "wrong type for token pubkey")
	assert.Contains(t, err.Error(), "u64")

	_, err = bridge.FromValue[solana.Signature](value.B32{})
	assert.ErrorIs(t, err, bridge.ErrWrongTokenType)

	_, err = bridge.FromValue[domain.Keypair](value.String(base58.Encode(make([]byte, 10))))
	assert.ErrorIs(t, err, bridge.ErrInvalidLength)

	_, err = bridge.FromValue[decimal.Decimal](value.String("twelve"))
	assert.ErrorIs(t, err, bridge.ErrWrongTokenType)
}

func TestKeypair_Remote(t *testing.T) {
	pub := solana.NewWallet().PublicKey()
	remote := domain.NewRemoteKeypair(pub)

	v, err := bridge.ToValue(remote)
	require.NoError(t, err)

	back, err := bridge.FromValue[domain.Keypair](v)
	require.NoError(t, err)
	assert.True(t, back.IsRemote())
	assert.Equal(t, pub, back.PublicKey())
}

func TestDecimal_Coercions(t *testing.T) {
	native, err := value.MustDecimal("-3.250").MarshalNative()
	require.NoError(t, err)

	tests := []struct {
		in   value.Value
		want string
	}{
		{value.U64(5), "5"},
		{value.I8(-2), "-2"},
		{value.MustDecimal("1.5"), "1.5"},
		{value.String("0.001"), "0.001"},
		{value.F64(0.5), "0.5"},
		{value.Bytes(native[:]), "-3.25"},
	}
	for _, tt := range tests {
		got, err := bridge.FromValue[decimal.Decimal](tt.in)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%v -> %s", tt.in, got)
	}
}

func TestIntegers(t *testing.T) {
	n, err := bridge.FromValue[uint8](value.U64(255))
	require.NoError(t, err)
	assert.Equal(t, uint8(255), n)

	_, err = bridge.FromValue[uint8](value.U64(256))
	assert.ErrorIs(t, err, bridge.ErrInvalidType)

	_, err = bridge.FromValue[uint32](value.I64(-1))
	assert.ErrorIs(t, err, bridge.ErrInvalidType)

	i, err := bridge.FromValue[int64](value.MustDecimal("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	_, err = bridge.FromValue[int64](value.MustDecimal("4.2"))
	assert.ErrorIs(t, err, bridge.ErrInvalidType)

	wide, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	v, err := bridge.ToValue(wide)
	require.NoError(t, err)
	assert.Equal(t, value.KindU128, v.Kind())

	back, err := bridge.FromValue[*big.Int](v)
	require.NoError(t, err)
	assert.Equal(t, 0, wide.Cmp(back))

	_, err = bridge.FromValue[uint64](v)
	assert.ErrorIs(t, err, bridge.ErrInvalidType)
}

func TestMap_KeyCoercion(t *testing.T) {
	in := value.NewMapFrom("7", value.String("seven"), "-1", value.String("minus one"))

	ints, err := bridge.FromMap[map[int]string](in)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{7: "seven", -1: "minus one"}, ints)

	strs, err := bridge.FromMap[map[string]string](in)
	require.NoError(t, err)
	assert.Equal(t, "seven", strs["7"])

	_, err = bridge.FromMap[map[uint8]string](in)
	assert.ErrorIs(t, err, bridge.ErrInvalidType)

	_, err = bridge.ToValue(map[[2]int]string{{1, 2}: "x"})
	assert.ErrorIs(t, err, bridge.ErrKeyMustBeString)
}

func TestStruct_Errors(t *testing.T) {
	_, err := bridge.FromMap[Account](value.NewMapFrom("label", value.String("x")))
	require.ErrorIs(t, err, bridge.ErrMissingField)

	var be *bridge.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "owner", be.Path)

	type wrapper struct {
		Items []Positive `value:"items"`
	}
	in := value.NewMapFrom("items", value.Array{
		value.NewMapFrom("n", value.I64(1)),
		value.NewMapFrom("n", value.I64(0)),
	})
	_, err = bridge.FromMap[wrapper](in)
	require.ErrorIs(t, err, bridge.ErrCustom)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "items[1]", be.Path)
	assert.Contains(t, err.Error(), "n must be positive")
}

func TestOptionalFields(t *testing.T) {
	type opts struct {
		Name  string  `value:"name"`
		Limit *uint32 `value:"limit"`
		Skip  bool    `value:"skip,omitempty"`
	}

	got, err := bridge.FromMap[opts](value.NewMapFrom("name", value.String("a"), "limit", value.Null{}))
	require.NoError(t, err)
	assert.Nil(t, got.Limit)
	assert.False(t, got.Skip)

	got, err = bridge.FromMap[opts](value.NewMapFrom("name", value.String("a"), "limit", value.U64(3)))
	require.NoError(t, err)
	require.NotNil(t, got.Limit)
	assert.Equal(t, uint32(3), *got.Limit)

	m, err := bridge.ToMap(opts{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "limit"}, m.Keys())
}

func TestDynamicTargets(t *testing.T) {
	in := value.NewMapFrom(
		"inner", value.NewMapFrom("x", value.U64(1)),
		"any", value.Array{value.String("s"), value.Bool(true)},
	)
	type dyn struct {
		Inner *value.Map `value:"inner"`
		Any   any        `value:"any"`
	}
	got, err := bridge.FromMap[dyn](in)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Inner.Len())
	assert.Equal(t, []any{"s", true}, got.Any)

	v, err := bridge.FromValue[value.Value](in)
	require.NoError(t, err)
	assert.True(t, value.Equal(in, v))
}

func TestToMap_RejectsNonMap(t *testing.T) {
	_, err := bridge.ToMap(uint8(1))
	assert.ErrorIs(t, err, bridge.ErrInvalidType)
}
