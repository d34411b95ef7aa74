package bridge

import (
	"math"
	"math/big"
	"reflect"

	sdkmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/value"
)

// token handles a type that is encoded as a single value instead of by its fields.
type token struct {
	name   string
	encode func(rv reflect.Value) (value.Value, error)
	decode func(v value.Value, rv reflect.Value, p path) error
}

var tokens = map[reflect.Type]*token{}

func registerToken(t reflect.Type, tok *token) { tokens[t] = tok }

func tokenOf(t reflect.Type) (*token, bool) {
	tok, ok := tokens[t]
	return tok, ok
}

func init() {
	registerToken(reflect.TypeFor[solana.PublicKey](), &token{
		name: "pubkey",
		encode: func(rv reflect.Value) (value.Value, error) {
			return value.B32(rv.Interface().(solana.PublicKey)), nil
		},
		decode: decodePubkey,
	})
	registerToken(reflect.TypeFor[solana.Signature](), &token{
		name: "signature",
		encode: func(rv reflect.Value) (value.Value, error) {
			return value.B64(rv.Interface().(solana.Signature)), nil
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			b, err := blob64("signature", v, p)
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(solana.Signature(b)))
			return nil
		},
	})
	registerToken(reflect.TypeFor[domain.Keypair](), &token{
		name: "keypair",
		encode: func(rv reflect.Value) (value.Value, error) {
			return value.B64(rv.Interface().(domain.Keypair).Bytes()), nil
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			b, err := blob64("keypair", v, p)
			if err != nil {
				return err
			}
			kp, err := domain.KeypairFromBytes(b[:])
			if err != nil {
				return p.wrap(ErrWrongTokenType, err, "wrong type for token keypair")
			}
			rv.Set(reflect.ValueOf(kp))
			return nil
		},
	})
	registerToken(reflect.TypeFor[solana.PrivateKey](), &token{
		name: "keypair",
		encode: func(rv reflect.Value) (value.Value, error) {
			key := rv.Interface().(solana.PrivateKey)
			if len(key) != domain.KeypairSize {
				return nil, &Error{Kind: ErrInvalidLength, Msg: "private key must be 64 bytes"}
			}
			return value.B64(key), nil
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			b, err := blob64("keypair", v, p)
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(solana.PrivateKey(b[:])))
			return nil
		},
	})
	registerToken(reflect.TypeFor[decimal.Decimal](), &token{
		name: "decimal",
		encode: func(rv reflect.Value) (value.Value, error) {
			return value.NewDecimal(rv.Interface().(decimal.Decimal)), nil
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			d, err := decimalFrom(v, p)
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(d.Decimal()))
			return nil
		},
	})
	registerToken(reflect.TypeFor[value.Decimal](), &token{
		name: "decimal",
		encode: func(rv reflect.Value) (value.Value, error) {
			return rv.Interface().(value.Decimal), nil
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			d, err := decimalFrom(v, p)
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(d))
			return nil
		},
	})

	// Wide integers are not reserved names but still need a single-value form.
	registerToken(reflect.TypeFor[value.U128](), &token{
		name: "u128",
		encode: func(rv reflect.Value) (value.Value, error) {
			return rv.Interface().(value.U128), nil
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			n, err := bigFrom(v, p)
			if err != nil {
				return err
			}
			u, err := value.NewU128(n)
			if err != nil {
				return p.wrap(ErrInvalidType, err, "expected u128")
			}
			rv.Set(reflect.ValueOf(u))
			return nil
		},
	})
	registerToken(reflect.TypeFor[value.I128](), &token{
		name: "i128",
		encode: func(rv reflect.Value) (value.Value, error) {
			return rv.Interface().(value.I128), nil
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			n, err := bigFrom(v, p)
			if err != nil {
				return err
			}
			i, err := value.NewI128(n)
			if err != nil {
				return p.wrap(ErrInvalidType, err, "expected i128")
			}
			rv.Set(reflect.ValueOf(i))
			return nil
		},
	})
	registerToken(reflect.TypeFor[*big.Int](), &token{
		name: "bigint",
		encode: func(rv reflect.Value) (value.Value, error) {
			if rv.IsNil() {
				return value.Null{}, nil
			}
			return bigValue(rv.Interface().(*big.Int))
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			if value.KindOf(v) == value.KindNull {
				rv.Set(reflect.Zero(rv.Type()))
				return nil
			}
			n, err := bigFrom(v, p)
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(n))
			return nil
		},
	})
	registerToken(reflect.TypeFor[sdkmath.Int](), &token{
		name: "bigint",
		encode: func(rv reflect.Value) (value.Value, error) {
			n := rv.Interface().(sdkmath.Int)
			if n.IsNil() {
				return value.U64(0), nil
			}
			return bigValue(n.BigInt())
		},
		decode: func(v value.Value, rv reflect.Value, p path) error {
			n, err := bigFrom(v, p)
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(sdkmath.NewIntFromBigInt(n)))
			return nil
		},
	})
}

// decodePubkey accepts a 32 byte blob, the public half of a 64 byte keypair blob, or base58
// text of either.
func decodePubkey(v value.Value, rv reflect.Value, p path) error {
	var raw []byte
	switch x := v.(type) {
	case value.B32:
		raw = x[:]
	case value.B64:
		raw = x[:]
	case value.Bytes:
		raw = x
	case value.String:
		b, err := base58.Decode(string(x))
		if err != nil {
			return p.wrap(ErrInvalidEncoding, err, "wrong type for token pubkey: malformed base58")
		}
		raw = b
	default:
		return wrongToken("pubkey", v, p)
	}
	switch len(raw) {
	case solana.PublicKeyLength:
		rv.Set(reflect.ValueOf(solana.PublicKeyFromBytes(raw)))
	case domain.KeypairSize:
		rv.Set(reflect.ValueOf(solana.PublicKeyFromBytes(raw[solana.PublicKeyLength:])))
	default:
		return p.errorf(ErrInvalidLength, "wrong type for token pubkey: %d bytes", len(raw))
	}
	return nil
}

// blob64 extracts a 64 byte payload from a B64, a 64 byte Bytes or base58 text.
func blob64(name string, v value.Value, p path) ([64]byte, error) {
	var out [64]byte
	var raw []byte
	switch x := v.(type) {
	case value.B64:
		return [64]byte(x), nil
	case value.Bytes:
		raw = x
	case value.String:
		b, err := base58.Decode(string(x))
		if err != nil {
			return out, p.wrap(ErrInvalidEncoding, err, "wrong type for token %s: malformed base58", name)
		}
		raw = b
	default:
		return out, wrongToken(name, v, p)
	}
	if len(raw) != len(out) {
		return out, p.errorf(ErrInvalidLength, "wrong type for token %s: %d bytes", name, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

// decimalFrom accepts a Decimal, the native 16 byte form, any integer or float, or a
// numeric string.
func decimalFrom(v value.Value, p path) (value.Decimal, error) {
	switch x := v.(type) {
	case value.Decimal:
		return x, nil
	case value.Bytes:
		d, err := value.DecimalFromNative(x)
		if err != nil {
			return value.Decimal{}, p.wrap(ErrInvalidLength, err, "wrong type for token decimal")
		}
		return d, nil
	case value.String:
		d, err := value.ParseDecimal(string(x))
		if err != nil {
			return value.Decimal{}, p.wrap(ErrWrongTokenType, err, "wrong type for token decimal")
		}
		return d, nil
	case value.F32:
		return floatDecimal(float64(x), v, p)
	case value.F64:
		return floatDecimal(float64(x), v, p)
	}
	if value.KindOf(v).IsInteger() {
		n, _ := integerOf(v)
		return value.NewDecimal(decimal.NewFromBigInt(n, 0)), nil
	}
	return value.Decimal{}, wrongToken("decimal", v, p)
}

func floatDecimal(f float64, v value.Value, p path) (value.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return value.Decimal{}, p.errorf(ErrWrongTokenType, "wrong type for token decimal: %s is not finite", value.KindOf(v))
	}
	return value.NewDecimal(decimal.NewFromFloat(f)), nil
}

func wrongToken(name string, v value.Value, p path) error {
	return p.errorf(ErrWrongTokenType, "wrong type for token %s: got %s", name, value.KindOf(v))
}

// integerOf returns the value of an integer variant.
func integerOf(v value.Value) (*big.Int, bool) {
	switch x := v.(type) {
	case value.U8:
		return new(big.Int).SetUint64(uint64(x)), true
	case value.U16:
		return new(big.Int).SetUint64(uint64(x)), true
	case value.U32:
		return new(big.Int).SetUint64(uint64(x)), true
	case value.U64:
		return new(big.Int).SetUint64(uint64(x)), true
	case value.U128:
		return x.BigInt(), true
	case value.I8:
		return big.NewInt(int64(x)), true
	case value.I16:
		return big.NewInt(int64(x)), true
	case value.I32:
		return big.NewInt(int64(x)), true
	case value.I64:
		return big.NewInt(int64(x)), true
	case value.I128:
		return x.BigInt(), true
	}
	return nil, false
}

// bigFrom accepts any integer variant, an integral decimal or a base 10 string.
func bigFrom(v value.Value, p path) (*big.Int, error) {
	if n, ok := integerOf(v); ok {
		return n, nil
	}
	switch x := v.(type) {
	case value.Decimal:
		d := x.Decimal()
		if !d.IsInteger() {
			return nil, p.errorf(ErrInvalidType, "expected integer, got fractional decimal %s", d)
		}
		return d.BigInt(), nil
	case value.String:
		n, ok := new(big.Int).SetString(string(x), 10)
		if !ok {
			return nil, p.errorf(ErrInvalidType, "expected integer, got %q", string(x))
		}
		return n, nil
	}
	return nil, p.errorf(ErrInvalidType, "expected integer, got %s", value.KindOf(v))
}

// bigValue picks the narrowest integer variant that holds n.
func bigValue(n *big.Int) (value.Value, error) {
	switch {
	case n.IsUint64():
		return value.U64(n.Uint64()), nil
	case n.IsInt64():
		return value.I64(n.Int64()), nil
	case n.Sign() > 0:
		u, err := value.NewU128(n)
		if err != nil {
			return nil, &Error{Kind: ErrInvalidType, Msg: "integer does not fit in 128 bits"}
		}
		return u, nil
	default:
		i, err := value.NewI128(n)
		if err != nil {
			return nil, &Error{Kind: ErrInvalidType, Msg: "integer does not fit in 128 bits"}
		}
		return i, nil
	}
}
