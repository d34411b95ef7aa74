package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdmath "math"
	"strconv"

	"github.com/mr-tron/base58"
)

// Wire tags. Each encoded value is a JSON object with exactly one of these keys.
const (
	TagNull    = "N"
	TagString  = "S"
	TagBool    = "B"
	TagU8      = "U8"
	TagU16     = "U16"
	TagU32     = "U32"
	TagU64     = "U"
	TagU128    = "U1"
	TagI8      = "I8"
	TagI16     = "I16"
	TagI32     = "I32"
	TagI64     = "I"
	TagI128    = "I1"
	TagF32     = "F32"
	TagF64     = "F"
	TagDecimal = "D"
	TagB32     = "B3"
	TagB64     = "B6"
	TagBytes   = "BY"
	TagArray   = "A"
	TagMap     = "M"
)

// ErrWireFormat is wrapped by every decoding error of the wire codec.
var ErrWireFormat = errors.New("invalid wire value")

// EncodeJSON encodes v in the tagged wire format.
func EncodeJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeJSON decodes a value in the tagged wire format.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after value", ErrWireFormat)
	}
	return v, nil
}

// MarshalJSON encodes the map in the tagged wire format.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return EncodeJSON(NewMap())
	}
	return EncodeJSON(m)
}

// UnmarshalJSON decodes a tagged wire map. Any other variant is rejected.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Map)
	if !ok {
		return fmt.Errorf("%w: expected map, got %s", ErrWireFormat, v.Kind())
	}
	*m = *decoded
	return nil
}

// Wire adapts a Value to encoding/json so it can be embedded in request and response structs.
type Wire struct {
	Value Value
}

func (w Wire) MarshalJSON() ([]byte, error) {
	return EncodeJSON(w.Value)
}

func (w *Wire) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	w.Value = v
	return nil
}

func encodeJSON(buf *bytes.Buffer, v Value) error {
	if v == nil {
		v = Null{}
	}
	switch x := v.(type) {
	case Null:
		writeTag(buf, TagNull)
		buf.WriteString("0")
	case String:
		writeTag(buf, TagString)
		writeJSONString(buf, string(x))
	case Bool:
		writeTag(buf, TagBool)
		buf.WriteString(strconv.FormatBool(bool(x)))
	case U8:
		writeTag(buf, TagU8)
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
	case U16:
		writeTag(buf, TagU16)
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
	case U32:
		writeTag(buf, TagU32)
		buf.WriteString(strconv.FormatUint(uint64(x), 10))
	case U64:
		writeTag(buf, TagU64)
		writeJSONString(buf, strconv.FormatUint(uint64(x), 10))
	case U128:
		writeTag(buf, TagU128)
		writeJSONString(buf, x.String())
	case I8:
		writeTag(buf, TagI8)
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case I16:
		writeTag(buf, TagI16)
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case I32:
		writeTag(buf, TagI32)
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case I64:
		writeTag(buf, TagI64)
		writeJSONString(buf, strconv.FormatInt(int64(x), 10))
	case I128:
		writeTag(buf, TagI128)
		writeJSONString(buf, x.String())
	case F32:
		writeTag(buf, TagF32)
		writeJSONString(buf, formatFloat(float64(x), 32))
	case F64:
		writeTag(buf, TagF64)
		writeJSONString(buf, formatFloat(float64(x), 64))
	case Decimal:
		writeTag(buf, TagDecimal)
		writeJSONString(buf, x.text())
	case B32:
		writeTag(buf, TagB32)
		writeJSONString(buf, base58.Encode(x[:]))
	case B64:
		writeTag(buf, TagB64)
		writeJSONString(buf, base58.Encode(x[:]))
	case Bytes:
		writeTag(buf, TagBytes)
		writeJSONString(buf, base64.StdEncoding.EncodeToString(x))
	case Array:
		writeTag(buf, TagArray)
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSON(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Map:
		writeTag(buf, TagMap)
		buf.WriteByte('{')
		first := true
		for k, elem := range x.All() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeJSONString(buf, k)
			buf.WriteByte(':')
			if err := encodeJSON(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("value: cannot encode variant %T", v)
	}
	buf.WriteByte('}')
	return nil
}

func writeTag(buf *bytes.Buffer, tag string) {
	buf.WriteString(`{"`)
	buf.WriteString(tag)
	buf.WriteString(`":`)
}

// writeJSONString writes s as a JSON string without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // encoding a string cannot fail
	buf.Truncate(buf.Len() - 1)
}

func formatFloat(f float64, bits int) string {
	switch {
	case stdmath.IsNaN(f):
		return "NaN"
	case stdmath.IsInf(f, 1):
		return "inf"
	case stdmath.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func parseFloat(s string, bits int) (float64, error) {
	switch s {
	case "NaN":
		return stdmath.NaN(), nil
	case "inf":
		return stdmath.Inf(1), nil
	case "-inf":
		return stdmath.Inf(-1), nil
	}
	return strconv.ParseFloat(s, bits)
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	tag, ok := tok.(string)
	if !ok {
		return nil, fmt.Errorf("%w: expected exactly one key, got empty object", ErrWireFormat)
	}

	v, err := decodePayload(dec, tag)
	if err != nil {
		return nil, err
	}

	tok, err = dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	if tok != json.Delim('}') {
		return nil, fmt.Errorf("%w: expected exactly one key in %q value", ErrWireFormat, tag)
	}
	return v, nil
}

func decodePayload(dec *json.Decoder, tag string) (Value, error) {
	switch tag {
	case TagArray:
		if err := expectDelim(dec, '['); err != nil {
			return nil, err
		}
		arr := Array{}
		for dec.More() {
			elem, err := decodeJSON(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		return arr, nil
	case TagMap:
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		m := NewMap()
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrWireFormat, err)
			}
			key := tok.(string) // object keys are always strings
			elem, err := decodeJSON(dec)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			m.Set(key, elem)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		return m, nil
	}

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	v, err := decodeScalar(tag, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: tag %q: %v", ErrWireFormat, tag, err)
	}
	return v, nil
}

func decodeScalar(tag string, raw json.RawMessage) (Value, error) {
	switch tag {
	case TagNull:
		return Null{}, nil
	case TagString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return String(s), nil
	case TagBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	}

	text, err := numberText(raw)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagU8:
		n, err := strconv.ParseUint(text, 10, 8)
		return U8(n), err
	case TagU16:
		n, err := strconv.ParseUint(text, 10, 16)
		return U16(n), err
	case TagU32:
		n, err := strconv.ParseUint(text, 10, 32)
		return U32(n), err
	case TagU64:
		n, err := strconv.ParseUint(text, 10, 64)
		return U64(n), err
	case TagU128:
		return ParseU128(text)
	case TagI8:
		n, err := strconv.ParseInt(text, 10, 8)
		return I8(n), err
	case TagI16:
		n, err := strconv.ParseInt(text, 10, 16)
		return I16(n), err
	case TagI32:
		n, err := strconv.ParseInt(text, 10, 32)
		return I32(n), err
	case TagI64:
		n, err := strconv.ParseInt(text, 10, 64)
		return I64(n), err
	case TagI128:
		return ParseI128(text)
	case TagF32:
		f, err := parseFloat(text, 32)
		return F32(f), err
	case TagF64:
		f, err := parseFloat(text, 64)
		return F64(f), err
	case TagDecimal:
		return ParseDecimal(text)
	case TagB32:
		b, err := decodeBase58(text, 32)
		if err != nil {
			return nil, err
		}
		return B32(b), nil
	case TagB64:
		b, err := decodeBase58(text, 64)
		if err != nil {
			return nil, err
		}
		return B64(b), nil
	case TagBytes:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, err
		}
		return Bytes(b), nil
	default:
		return nil, fmt.Errorf("unknown tag")
	}
}

// numberText accepts both a JSON string and a bare JSON number.
func numberText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func decodeBase58(s string, size int) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWireFormat, err)
	}
	if tok != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrWireFormat, want, tok)
	}
	return nil
}
