package bridge

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/aretw0/flowchain/pkg/value"
)

// ValueMarshaler is implemented by types that encode themselves.
type ValueMarshaler interface {
	MarshalValue() (value.Value, error)
}

// ValueUnmarshaler is implemented by types that decode themselves.
type ValueUnmarshaler interface {
	UnmarshalValue(value.Value) error
}

// Validator is called after a value of the implementing type has been decoded.
// A non-nil error is reported as ErrCustom on the field being decoded.
type Validator interface {
	Validate() error
}

// Variant is implemented by every variant type of a registered enum.
type Variant interface {
	VariantName() string
}

// Tuple marks a struct variant whose fields encode positionally as an Array.
// Embed it as the first field:
//
//	type Pair struct {
//	    bridge.Tuple
//	    Left, Right uint32
//	}
type Tuple struct{}

var (
	valueType       = reflect.TypeFor[value.Value]()
	mapPtrType      = reflect.TypeFor[*value.Map]()
	tupleType       = reflect.TypeFor[Tuple]()
	variantType     = reflect.TypeFor[Variant]()
	marshalerType   = reflect.TypeFor[ValueMarshaler]()
	unmarshalerType = reflect.TypeFor[ValueUnmarshaler]()
	validatorType   = reflect.TypeFor[Validator]()
)

// field describes one encodable struct field.
type field struct {
	name      string
	index     []int
	omitEmpty bool
	optional  bool // pointer typed or omitempty: may be absent on decode
}

// structInfo is the cached layout of a struct type.
type structInfo struct {
	fields []field
	tuple  bool
}

var structCache sync.Map // reflect.Type -> *structInfo

func structInfoOf(t reflect.Type) *structInfo {
	if cached, ok := structCache.Load(t); ok {
		return cached.(*structInfo)
	}
	info := &structInfo{}
	seen := map[string]bool{}
	collectFields(t, nil, info, seen)
	actual, _ := structCache.LoadOrStore(t, info)
	return actual.(*structInfo)
}

func collectFields(t reflect.Type, prefix []int, info *structInfo, seen map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous && sf.Type == tupleType {
			info.tuple = true
			continue
		}
		name, opts, tagged := fieldTag(sf)
		if name == "-" && !strings.Contains(opts, ",") && tagged {
			continue
		}
		index := append(prefix[:len(prefix):len(prefix)], i)

		// embedded structs without an explicit name are flattened, like encoding/json
		if sf.Anonymous && !tagged {
			ft := sf.Type
			if ft.Kind() == reflect.Struct && !isSpecial(ft) {
				collectFields(ft, index, info, seen)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		omit := strings.Contains(opts, "omitempty")
		info.fields = append(info.fields, field{
			name:      name,
			index:     index,
			omitEmpty: omit,
			optional:  omit || sf.Type.Kind() == reflect.Pointer,
		})
	}
}

// fieldTag returns the name and options from the value tag, or the json tag as a fallback.
func fieldTag(sf reflect.StructField) (name, opts string, tagged bool) {
	tag, ok := sf.Tag.Lookup("value")
	if !ok {
		tag, ok = sf.Tag.Lookup("json")
	}
	if !ok {
		return "", "", false
	}
	name, opts, _ = strings.Cut(tag, ",")
	return name, opts, true
}

// isSpecial reports whether t is handled as a unit rather than by its fields.
func isSpecial(t reflect.Type) bool {
	if _, ok := tokenOf(t); ok {
		return true
	}
	return t.Implements(variantType) || t.Implements(marshalerType) || reflect.PointerTo(t).Implements(unmarshalerType)
}

// enumInfo lists the variants of a registered enum interface.
type enumInfo struct {
	iface  reflect.Type
	byName map[string]reflect.Type
}

var (
	enumsMu sync.RWMutex
	enums   = map[reflect.Type]*enumInfo{}
)

// RegisterEnum registers the interface type I as an enum whose variants are the dynamic types
// of the given values. Registering the same interface again adds variants.
//
//	bridge.RegisterEnum[Shape](Empty{}, Circle{}, Square{})
func RegisterEnum[I any](variants ...I) {
	iface := reflect.TypeFor[I]()
	if iface.Kind() != reflect.Interface {
		panic(fmt.Sprintf("bridge: RegisterEnum needs an interface type, got %s", iface))
	}

	enumsMu.Lock()
	defer enumsMu.Unlock()

	info, ok := enums[iface]
	if !ok {
		info = &enumInfo{iface: iface, byName: map[string]reflect.Type{}}
		enums[iface] = info
	}
	for _, v := range variants {
		vv, ok := any(v).(Variant)
		if !ok {
			panic(fmt.Sprintf("bridge: %T does not implement Variant", v))
		}
		name := vv.VariantName()
		if prev, dup := info.byName[name]; dup && prev != reflect.TypeOf(v) {
			panic(fmt.Sprintf("bridge: variant %q of %s registered twice", name, iface))
		}
		info.byName[name] = reflect.TypeOf(v)
	}
}

func enumOf(t reflect.Type) (*enumInfo, bool) {
	enumsMu.RLock()
	defer enumsMu.RUnlock()
	info, ok := enums[t]
	return info, ok
}

// variantShape classifies how a variant type encodes its payload.
type variantShape int

const (
	shapeUnit variantShape = iota
	shapeNewtype
	shapeTuple
	shapeStruct
)

func shapeOf(t reflect.Type) variantShape {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return shapeNewtype
	}
	info := structInfoOf(t)
	switch {
	case info.tuple:
		return shapeTuple
	case len(info.fields) == 0:
		return shapeUnit
	default:
		return shapeStruct
	}
}
