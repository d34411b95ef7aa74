package bridge

import (
	"encoding"
	"math"
	"math/big"
	"reflect"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/aretw0/flowchain/pkg/value"
)

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// decodeValue stores v into rv, which must be settable.
func decodeValue(v value.Value, rv reflect.Value, p path) error {
	if v == nil {
		v = value.Null{}
	}
	t := rv.Type()

	switch t {
	case valueType:
		rv.Set(reflect.ValueOf(&v).Elem())
		return nil
	case mapPtrType:
		switch x := v.(type) {
		case value.Null:
			rv.Set(reflect.Zero(t))
		case *value.Map:
			rv.Set(reflect.ValueOf(x))
		default:
			return p.errorf(ErrInvalidType, "expected map, got %s", v.Kind())
		}
		return nil
	}

	if tok, ok := tokenOf(t); ok {
		if err := tok.decode(v, rv, p); err != nil {
			return err
		}
		return validate(rv, p)
	}

	if rv.Kind() == reflect.Pointer {
		if v.Kind() == value.KindNull {
			rv.Set(reflect.Zero(t))
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(t.Elem()))
		}
		return decodeValue(v, rv.Elem(), p)
	}

	if reflect.PointerTo(t).Implements(unmarshalerType) {
		if err := rv.Addr().Interface().(ValueUnmarshaler).UnmarshalValue(v); err != nil {
			return p.attach(err)
		}
		return validate(rv, p)
	}

	if rv.Kind() == reflect.Interface {
		if info, ok := enumOf(t); ok {
			return decodeVariant(info, v, rv, p)
		}
		if t.NumMethod() == 0 {
			if plain := Plain(v); plain != nil {
				rv.Set(reflect.ValueOf(plain))
			} else {
				rv.Set(reflect.Zero(t))
			}
			return nil
		}
		return p.errorf(ErrUnsupported, "cannot decode into interface %s", t)
	}

	if s, ok := v.(value.String); ok && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		if err := rv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return p.wrap(ErrInvalidEncoding, err, "cannot parse %s", t)
		}
		return validate(rv, p)
	}

	if err := value.Accept(v, &decoder{rv: rv, p: p}); err != nil {
		return err
	}
	return validate(rv, p)
}

func validate(rv reflect.Value, p path) error {
	if !rv.CanAddr() || !reflect.PointerTo(rv.Type()).Implements(validatorType) {
		return nil
	}
	if err := rv.Addr().Interface().(Validator).Validate(); err != nil {
		return p.attach(err)
	}
	return nil
}

// decoder writes one visited Value into its target.
type decoder struct {
	rv reflect.Value
	p  path
}

var _ value.Visitor = (*decoder)(nil)

func (d *decoder) mismatch(got value.Kind) error {
	return d.p.errorf(ErrInvalidType, "expected %s, got %s", d.rv.Type(), got)
}

func (d *decoder) VisitNull() error {
	switch d.rv.Kind() {
	case reflect.Slice, reflect.Map:
		d.rv.Set(reflect.Zero(d.rv.Type()))
		return nil
	}
	return d.mismatch(value.KindNull)
}

func (d *decoder) VisitString(s string) error {
	switch d.rv.Kind() {
	case reflect.String:
		d.rv.SetString(s)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return d.p.errorf(ErrInvalidType, "expected %s, got %q", d.rv.Type(), s)
		}
		return d.integer(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, d.rv.Type().Bits())
		if err != nil {
			return d.p.wrap(ErrInvalidType, err, "expected %s", d.rv.Type())
		}
		d.rv.SetFloat(f)
		return nil
	}
	return d.mismatch(value.KindString)
}

func (d *decoder) VisitBool(b bool) error {
	if d.rv.Kind() != reflect.Bool {
		return d.mismatch(value.KindBool)
	}
	d.rv.SetBool(b)
	return nil
}

func (d *decoder) VisitU8(n uint8) error   { return d.unsigned(uint64(n), value.KindU8) }
func (d *decoder) VisitU16(n uint16) error { return d.unsigned(uint64(n), value.KindU16) }
func (d *decoder) VisitU32(n uint32) error { return d.unsigned(uint64(n), value.KindU32) }
func (d *decoder) VisitU64(n uint64) error { return d.unsigned(n, value.KindU64) }
func (d *decoder) VisitI8(n int8) error    { return d.signed(int64(n), value.KindI8) }
func (d *decoder) VisitI16(n int16) error  { return d.signed(int64(n), value.KindI16) }
func (d *decoder) VisitI32(n int32) error  { return d.signed(int64(n), value.KindI32) }
func (d *decoder) VisitI64(n int64) error  { return d.signed(n, value.KindI64) }

func (d *decoder) VisitU128(n sdkmath.Int) error { return d.integer(n.BigInt()) }
func (d *decoder) VisitI128(n sdkmath.Int) error { return d.integer(n.BigInt()) }

func (d *decoder) unsigned(n uint64, got value.Kind) error {
	switch d.rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if d.rv.OverflowUint(n) {
			return d.overflow(strconv.FormatUint(n, 10))
		}
		d.rv.SetUint(n)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n > math.MaxInt64 || d.rv.OverflowInt(int64(n)) {
			return d.overflow(strconv.FormatUint(n, 10))
		}
		d.rv.SetInt(int64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		d.rv.SetFloat(float64(n))
		return nil
	}
	return d.mismatch(got)
}

func (d *decoder) signed(n int64, got value.Kind) error {
	switch d.rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if d.rv.OverflowInt(n) {
			return d.overflow(strconv.FormatInt(n, 10))
		}
		d.rv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n < 0 || d.rv.OverflowUint(uint64(n)) {
			return d.overflow(strconv.FormatInt(n, 10))
		}
		d.rv.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		d.rv.SetFloat(float64(n))
		return nil
	}
	return d.mismatch(got)
}

func (d *decoder) integer(n *big.Int) error {
	switch {
	case n.IsUint64():
		return d.unsigned(n.Uint64(), value.KindU128)
	case n.IsInt64():
		return d.signed(n.Int64(), value.KindI128)
	}
	switch d.rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f, _ := new(big.Float).SetInt(n).Float64()
		d.rv.SetFloat(f)
		return nil
	case reflect.String, reflect.Bool, reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return d.mismatch(value.KindU128)
	}
	return d.overflow(n.String())
}

func (d *decoder) overflow(n string) error {
	return d.p.errorf(ErrInvalidType, "value %s overflows %s", n, d.rv.Type())
}

func (d *decoder) VisitF32(f float32) error { return d.float(float64(f), value.KindF32) }
func (d *decoder) VisitF64(f float64) error { return d.float(f, value.KindF64) }

func (d *decoder) float(f float64, got value.Kind) error {
	switch d.rv.Kind() {
	case reflect.Float32, reflect.Float64:
		if d.rv.OverflowFloat(f) {
			return d.overflow(strconv.FormatFloat(f, 'g', -1, 64))
		}
		d.rv.SetFloat(f)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return d.p.errorf(ErrInvalidType, "expected %s, got non-integral %s", d.rv.Type(), got)
		}
		n, _ := big.NewFloat(f).Int(nil)
		return d.integer(n)
	}
	return d.mismatch(got)
}

func (d *decoder) VisitDecimal(x decimal.Decimal) error {
	switch d.rv.Kind() {
	case reflect.Float32, reflect.Float64:
		d.rv.SetFloat(x.InexactFloat64())
		return nil
	case reflect.String:
		d.rv.SetString(x.String())
		return nil
	}
	if !x.IsInteger() {
		return d.p.errorf(ErrInvalidType, "expected %s, got fractional decimal %s", d.rv.Type(), x)
	}
	return d.integer(x.BigInt())
}

func (d *decoder) VisitB32(b [32]byte) error { return d.bytes(b[:], value.KindB32) }
func (d *decoder) VisitB64(b [64]byte) error { return d.bytes(b[:], value.KindB64) }
func (d *decoder) VisitBytes(b []byte) error { return d.bytes(b, value.KindBytes) }

func (d *decoder) bytes(b []byte, got value.Kind) error {
	t := d.rv.Type()
	switch {
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		out := reflect.MakeSlice(t, len(b), len(b))
		reflect.Copy(out, reflect.ValueOf(b))
		d.rv.Set(out)
		return nil
	case t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Uint8:
		if t.Len() != len(b) {
			return d.p.errorf(ErrInvalidLength, "expected %d bytes, got %d", t.Len(), len(b))
		}
		reflect.Copy(d.rv, reflect.ValueOf(b))
		return nil
	}
	return d.mismatch(got)
}

func (d *decoder) VisitArray(a value.Array) error {
	t := d.rv.Type()
	switch t.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(t, len(a), len(a))
		for i, elem := range a {
			if err := decodeValue(elem, out.Index(i), d.p.index(i)); err != nil {
				return err
			}
		}
		d.rv.Set(out)
		return nil
	case reflect.Array:
		if t.Len() != len(a) {
			return d.p.errorf(ErrInvalidLength, "expected %d elements, got %d", t.Len(), len(a))
		}
		for i, elem := range a {
			if err := decodeValue(elem, d.rv.Index(i), d.p.index(i)); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		info := structInfoOf(t)
		if !info.tuple {
			return d.mismatch(value.KindArray)
		}
		return decodeTuple(info, a, d.rv, d.p)
	}
	return d.mismatch(value.KindArray)
}

func (d *decoder) VisitMap(m *value.Map) error {
	t := d.rv.Type()
	switch t.Kind() {
	case reflect.Struct:
		info := structInfoOf(t)
		if info.tuple {
			return d.mismatch(value.KindMap)
		}
		return decodeStruct(info, m, d.rv, d.p)
	case reflect.Map:
		return decodeMap(m, d.rv, d.p)
	}
	return d.mismatch(value.KindMap)
}

func decodeStruct(info *structInfo, m *value.Map, rv reflect.Value, p path) error {
	for _, f := range info.fields {
		v, ok := m.Get(f.name)
		if !ok {
			if f.optional {
				continue
			}
			return p.field(f.name).errorf(ErrMissingField, "missing field")
		}
		if err := decodeValue(v, rv.FieldByIndex(f.index), p.field(f.name)); err != nil {
			return err
		}
	}
	return nil
}

func decodeTuple(info *structInfo, a value.Array, rv reflect.Value, p path) error {
	if len(a) != len(info.fields) {
		return p.errorf(ErrInvalidLength, "expected %d elements, got %d", len(info.fields), len(a))
	}
	for i, f := range info.fields {
		if err := decodeValue(a[i], rv.FieldByIndex(f.index), p.index(i)); err != nil {
			return err
		}
	}
	return nil
}

func decodeMap(m *value.Map, rv reflect.Value, p path) error {
	t := rv.Type()
	out := reflect.MakeMapWithSize(t, m.Len())
	for key, v := range m.All() {
		kv := reflect.New(t.Key()).Elem()
		if err := decodeKey(key, kv, p); err != nil {
			return err
		}
		ev := reflect.New(t.Elem()).Elem()
		if err := decodeValue(v, ev, p.field(key)); err != nil {
			return err
		}
		out.SetMapIndex(kv, ev)
	}
	rv.Set(out)
	return nil
}

// decodeKey parses a string map key into the key type of the target map.
func decodeKey(key string, kv reflect.Value, p path) error {
	t := kv.Type()
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		if err := kv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(key)); err != nil {
			return p.wrap(ErrInvalidEncoding, err, "map key %q", key)
		}
		return nil
	}
	switch t.Kind() {
	case reflect.String:
		kv.SetString(key)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, t.Bits())
		if err != nil {
			return p.wrap(ErrInvalidType, err, "map key %q is not a %s", key, t)
		}
		kv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(key, 10, t.Bits())
		if err != nil {
			return p.wrap(ErrInvalidType, err, "map key %q is not a %s", key, t)
		}
		kv.SetUint(n)
		return nil
	}
	return p.errorf(ErrKeyMustBeString, "map key type %s", t)
}

func decodeVariant(info *enumInfo, v value.Value, rv reflect.Value, p path) error {
	var name string
	var payload value.Value
	switch x := v.(type) {
	case value.String:
		name = string(x)
	case *value.Map:
		if x.Len() != 1 {
			return p.errorf(ErrExpectedOneKey, "enum %s: expected exactly one key, got %d", info.iface, x.Len())
		}
		for k, inner := range x.All() {
			name, payload = k, inner
		}
	default:
		return p.errorf(ErrInvalidType, "enum %s: expected string or map, got %s", info.iface, value.KindOf(v))
	}

	vt, ok := info.byName[name]
	if !ok {
		return p.errorf(ErrUnknownVariant, "enum %s has no variant %q", info.iface, name)
	}

	target := reflect.New(vt).Elem()
	elem := target
	if vt.Kind() == reflect.Pointer {
		target.Set(reflect.New(vt.Elem()))
		elem = target.Elem()
	}

	inner := p.field(name)
	switch shape := shapeOf(vt); {
	case payload == nil:
		if shape != shapeUnit {
			return inner.errorf(ErrInvalidType, "variant %s needs a payload", name)
		}
	case shape == shapeUnit:
		if value.KindOf(payload) != value.KindNull {
			return inner.errorf(ErrInvalidType, "unit variant %s takes no payload, got %s", name, value.KindOf(payload))
		}
	case shape == shapeNewtype:
		under := reflect.New(underlying(elem.Type())).Elem()
		if err := decodeValue(payload, under, inner); err != nil {
			return err
		}
		elem.Set(under.Convert(elem.Type()))
	case shape == shapeTuple:
		a, ok := payload.(value.Array)
		if !ok {
			return inner.errorf(ErrInvalidType, "variant %s expects an array, got %s", name, value.KindOf(payload))
		}
		if err := decodeTuple(structInfoOf(elem.Type()), a, elem, inner); err != nil {
			return err
		}
	default:
		m, ok := payload.(*value.Map)
		if !ok {
			return inner.errorf(ErrInvalidType, "variant %s expects a map, got %s", name, value.KindOf(payload))
		}
		if err := decodeStruct(structInfoOf(elem.Type()), m, elem, inner); err != nil {
			return err
		}
	}

	if err := validate(elem, inner); err != nil {
		return err
	}
	rv.Set(target)
	return nil
}
