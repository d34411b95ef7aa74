package bridge

import (
	"cmp"
	"encoding"
	"reflect"
	"slices"
	"strconv"

	"github.com/aretw0/flowchain/pkg/value"
)

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

func encodeValue(rv reflect.Value, p path) (value.Value, error) {
	if !rv.IsValid() {
		return value.Null{}, nil
	}
	t := rv.Type()

	if tok, ok := tokenOf(t); ok {
		v, err := tok.encode(rv)
		if err != nil {
			return nil, p.attach(err)
		}
		return v, nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return value.Null{}, nil
		}
	}

	if t.Implements(valueType) {
		return rv.Interface().(value.Value), nil
	}
	if t.Implements(marshalerType) {
		v, err := rv.Interface().(ValueMarshaler).MarshalValue()
		if err != nil {
			return nil, p.attach(err)
		}
		return v, nil
	}
	if rv.CanAddr() && reflect.PointerTo(t).Implements(marshalerType) {
		v, err := rv.Addr().Interface().(ValueMarshaler).MarshalValue()
		if err != nil {
			return nil, p.attach(err)
		}
		return v, nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if info, ok := enumOf(t); ok {
			return encodeVariant(info, rv.Elem(), p)
		}
		return encodeValue(rv.Elem(), p)
	case reflect.Pointer:
		return encodeValue(rv.Elem(), p)
	}

	if t.Implements(textMarshalerType) {
		text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, p.attach(err)
		}
		return value.String(text), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.String:
		return value.String(rv.String()), nil
	case reflect.Int8:
		return value.I8(rv.Int()), nil
	case reflect.Int16:
		return value.I16(rv.Int()), nil
	case reflect.Int32:
		return value.I32(rv.Int()), nil
	case reflect.Int, reflect.Int64:
		return value.I64(rv.Int()), nil
	case reflect.Uint8:
		return value.U8(rv.Uint()), nil
	case reflect.Uint16:
		return value.U16(rv.Uint()), nil
	case reflect.Uint32:
		return value.U32(rv.Uint()), nil
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return value.U64(rv.Uint()), nil
	case reflect.Float32:
		return value.F32(rv.Float()), nil
	case reflect.Float64:
		return value.F64(rv.Float()), nil
	case reflect.Struct:
		return encodeStruct(rv, p)
	case reflect.Map:
		if rv.IsNil() {
			return value.Null{}, nil
		}
		return encodeMap(rv, p)
	case reflect.Slice:
		if rv.IsNil() {
			return value.Null{}, nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return value.Bytes(slices.Clone(rv.Bytes())), nil
		}
		return encodeSeq(rv, p)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return encodeByteArray(rv), nil
		}
		return encodeSeq(rv, p)
	}
	return nil, p.errorf(ErrUnsupported, "cannot encode %s", t)
}

func encodeByteArray(rv reflect.Value) value.Value {
	b := make([]byte, rv.Len())
	reflect.Copy(reflect.ValueOf(b), rv)
	switch len(b) {
	case 32:
		return value.B32(b)
	case 64:
		return value.B64(b)
	}
	return value.Bytes(b)
}

func encodeSeq(rv reflect.Value, p path) (value.Value, error) {
	out := make(value.Array, rv.Len())
	for i := range out {
		v, err := encodeValue(rv.Index(i), p.index(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func encodeStruct(rv reflect.Value, p path) (value.Value, error) {
	info := structInfoOf(rv.Type())
	if info.tuple {
		out := make(value.Array, 0, len(info.fields))
		for i, f := range info.fields {
			v, err := encodeValue(rv.FieldByIndex(f.index), p.index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	m := value.NewMap()
	for _, f := range info.fields {
		fv := rv.FieldByIndex(f.index)
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		v, err := encodeValue(fv, p.field(f.name))
		if err != nil {
			return nil, err
		}
		m.Set(f.name, v)
	}
	return m, nil
}

type mapEntry struct {
	key     string
	numeric bool
	n       int64
	u       uint64
	value   reflect.Value
}

func encodeMap(rv reflect.Value, p path) (value.Value, error) {
	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		e, err := mapKey(iter.Key(), p)
		if err != nil {
			return nil, err
		}
		e.value = iter.Value()
		entries = append(entries, e)
	}

	// Go maps have no order; sort so equal maps encode identically.
	slices.SortFunc(entries, func(a, b mapEntry) int {
		if a.numeric && b.numeric {
			if c := cmp.Compare(a.n, b.n); c != 0 {
				return c
			}
			return cmp.Compare(a.u, b.u)
		}
		return cmp.Compare(a.key, b.key)
	})

	m := value.NewMap()
	for _, e := range entries {
		v, err := encodeValue(e.value, p.field(e.key))
		if err != nil {
			return nil, err
		}
		m.Set(e.key, v)
	}
	return m, nil
}

func mapKey(k reflect.Value, p path) (mapEntry, error) {
	switch k.Kind() {
	case reflect.String:
		return mapEntry{key: k.String()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return mapEntry{key: strconv.FormatInt(k.Int(), 10), numeric: true, n: k.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return mapEntry{key: strconv.FormatUint(k.Uint(), 10), numeric: true, u: k.Uint()}, nil
	}
	if k.Type().Implements(textMarshalerType) {
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return mapEntry{}, p.wrap(ErrKeyMustBeString, err, "cannot encode map key")
		}
		return mapEntry{key: string(text)}, nil
	}
	return mapEntry{}, p.errorf(ErrKeyMustBeString, "map key of type %s", k.Type())
}

func encodeVariant(info *enumInfo, rv reflect.Value, p path) (value.Value, error) {
	variant, ok := rv.Interface().(Variant)
	if !ok {
		return nil, p.errorf(ErrUnsupported, "%s is not a variant of %s", rv.Type(), info.iface)
	}
	name := variant.VariantName()
	if registered, ok := info.byName[name]; !ok || registered != rv.Type() {
		return nil, p.errorf(ErrUnknownVariant, "%s is not a registered variant of %s", rv.Type(), info.iface)
	}

	elem := rv
	if elem.Kind() == reflect.Pointer {
		if elem.IsNil() {
			return nil, p.errorf(ErrUnsupported, "nil %s variant", rv.Type())
		}
		elem = elem.Elem()
	}

	var payload value.Value
	var err error
	inner := p.field(name)
	switch shapeOf(rv.Type()) {
	case shapeUnit:
		return value.String(name), nil
	case shapeNewtype:
		payload, err = encodeKind(elem, inner)
	default:
		payload, err = encodeStruct(elem, inner)
	}
	if err != nil {
		return nil, err
	}
	m := value.NewMap()
	m.Set(name, payload)
	return m, nil
}

// encodeKind encodes a newtype payload by its underlying kind, skipping the Variant type's
// own identity.
func encodeKind(rv reflect.Value, p path) (value.Value, error) {
	t := rv.Type()
	if tok, ok := tokenOf(t); ok {
		v, err := tok.encode(rv)
		if err != nil {
			return nil, p.attach(err)
		}
		return v, nil
	}
	under := reflect.New(underlying(t)).Elem()
	under.Set(rv.Convert(under.Type()))
	return encodeValue(under, p)
}

// underlying returns the unnamed type with the same kind and layout as t, when one exists.
func underlying(t reflect.Type) reflect.Type {
	switch t.Kind() {
	case reflect.Bool:
		return reflect.TypeFor[bool]()
	case reflect.String:
		return reflect.TypeFor[string]()
	case reflect.Int:
		return reflect.TypeFor[int]()
	case reflect.Int8:
		return reflect.TypeFor[int8]()
	case reflect.Int16:
		return reflect.TypeFor[int16]()
	case reflect.Int32:
		return reflect.TypeFor[int32]()
	case reflect.Int64:
		return reflect.TypeFor[int64]()
	case reflect.Uint:
		return reflect.TypeFor[uint]()
	case reflect.Uint8:
		return reflect.TypeFor[uint8]()
	case reflect.Uint16:
		return reflect.TypeFor[uint16]()
	case reflect.Uint32:
		return reflect.TypeFor[uint32]()
	case reflect.Uint64:
		return reflect.TypeFor[uint64]()
	case reflect.Float32:
		return reflect.TypeFor[float32]()
	case reflect.Float64:
		return reflect.TypeFor[float64]()
	case reflect.Slice:
		return reflect.SliceOf(t.Elem())
	case reflect.Array:
		return reflect.ArrayOf(t.Len(), t.Elem())
	case reflect.Map:
		return reflect.MapOf(t.Key(), t.Elem())
	}
	return t
}
