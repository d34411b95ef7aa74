package value

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Visitor receives exactly one callback per Accept call, chosen by the variant of the value.
// It is the single dispatch point used to drive typed decoding of a Value.
type Visitor interface {
	VisitNull() error
	VisitString(string) error
	VisitBool(bool) error
	VisitU8(uint8) error
	VisitU16(uint16) error
	VisitU32(uint32) error
	VisitU64(uint64) error
	VisitU128(math.Int) error
	VisitI8(int8) error
	VisitI16(int16) error
	VisitI32(int32) error
	VisitI64(int64) error
	VisitI128(math.Int) error
	VisitF32(float32) error
	VisitF64(float64) error
	VisitDecimal(decimal.Decimal) error
	VisitB32([32]byte) error
	VisitB64([64]byte) error
	VisitBytes([]byte) error
	VisitArray(Array) error
	VisitMap(*Map) error
}

// Accept dispatches v to the matching method of vis.
func Accept(v Value, vis Visitor) error {
	switch x := v.(type) {
	case nil, Null:
		return vis.VisitNull()
	case String:
		return vis.VisitString(string(x))
	case Bool:
		return vis.VisitBool(bool(x))
	case U8:
		return vis.VisitU8(uint8(x))
	case U16:
		return vis.VisitU16(uint16(x))
	case U32:
		return vis.VisitU32(uint32(x))
	case U64:
		return vis.VisitU64(uint64(x))
	case U128:
		return vis.VisitU128(x.Int())
	case I8:
		return vis.VisitI8(int8(x))
	case I16:
		return vis.VisitI16(int16(x))
	case I32:
		return vis.VisitI32(int32(x))
	case I64:
		return vis.VisitI64(int64(x))
	case I128:
		return vis.VisitI128(x.Int())
	case F32:
		return vis.VisitF32(float32(x))
	case F64:
		return vis.VisitF64(float64(x))
	case Decimal:
		return vis.VisitDecimal(x.v)
	case B32:
		return vis.VisitB32([32]byte(x))
	case B64:
		return vis.VisitB64([64]byte(x))
	case Bytes:
		return vis.VisitBytes([]byte(x))
	case Array:
		return vis.VisitArray(x)
	case *Map:
		return vis.VisitMap(x)
	default:
		return fmt.Errorf("value: unknown variant %T", v)
	}
}
