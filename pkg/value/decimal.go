package value

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DecimalNativeSize is the length of the native binary decimal form.
const DecimalNativeSize = 16

// MaxDecimalScale is the largest scale the native form can carry.
const MaxDecimalScale = 28

const (
	decimalSignBit    = 1 << 31
	decimalScaleShift = 16
	decimalScaleMask  = 0x00FF0000
)

var (
	// ErrDecimalRange is returned when a decimal cannot be represented in the native form.
	ErrDecimalRange = errors.New("decimal out of range for native form")

	maxMantissa = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))
)

// MarshalNative encodes d in the 16 byte native form: a little endian flags word holding
// the scale (bits 16-23) and the sign (bit 31), followed by the 96-bit mantissa as three
// little endian 32-bit words (lo, mid, hi).
func (d Decimal) MarshalNative() ([DecimalNativeSize]byte, error) {
	var out [DecimalNativeSize]byte

	mantissa := new(big.Int).Set(d.v.Coefficient())
	exp := d.v.Exponent()
	if exp > 0 {
		mantissa.Mul(mantissa, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
		exp = 0
	}
	scale := -exp
	if scale > MaxDecimalScale {
		return out, fmt.Errorf("%w: scale %d", ErrDecimalRange, scale)
	}

	negative := mantissa.Sign() < 0
	mantissa.Abs(mantissa)
	if mantissa.Cmp(maxMantissa) > 0 {
		return out, fmt.Errorf("%w: mantissa has %d bits", ErrDecimalRange, mantissa.BitLen())
	}

	flags := uint32(scale) << decimalScaleShift
	if negative {
		flags |= decimalSignBit
	}
	binary.LittleEndian.PutUint32(out[0:4], flags)

	var words [12]byte
	mantissa.FillBytes(words[:])
	// FillBytes is big endian; hi occupies words[0:4], lo words[8:12].
	binary.LittleEndian.PutUint32(out[4:8], binary.BigEndian.Uint32(words[8:12]))
	binary.LittleEndian.PutUint32(out[8:12], binary.BigEndian.Uint32(words[4:8]))
	binary.LittleEndian.PutUint32(out[12:16], binary.BigEndian.Uint32(words[0:4]))
	return out, nil
}

// DecimalFromNative decodes the 16 byte native form.
func DecimalFromNative(b []byte) (Decimal, error) {
	if len(b) != DecimalNativeSize {
		return Decimal{}, fmt.Errorf("native decimal must be %d bytes, got %d", DecimalNativeSize, len(b))
	}
	flags := binary.LittleEndian.Uint32(b[0:4])
	if flags&^(decimalSignBit|decimalScaleMask) != 0 {
		return Decimal{}, fmt.Errorf("native decimal has reserved flag bits set: %#x", flags)
	}
	scale := int32((flags & decimalScaleMask) >> decimalScaleShift)
	if scale > MaxDecimalScale {
		return Decimal{}, fmt.Errorf("%w: scale %d", ErrDecimalRange, scale)
	}

	var words [12]byte
	binary.BigEndian.PutUint32(words[0:4], binary.LittleEndian.Uint32(b[12:16]))
	binary.BigEndian.PutUint32(words[4:8], binary.LittleEndian.Uint32(b[8:12]))
	binary.BigEndian.PutUint32(words[8:12], binary.LittleEndian.Uint32(b[4:8]))
	mantissa := new(big.Int).SetBytes(words[:])
	if flags&decimalSignBit != 0 {
		mantissa.Neg(mantissa)
	}
	return Decimal{v: decimal.NewFromBigInt(mantissa, -scale)}, nil
}
