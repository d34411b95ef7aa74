package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aretw0/flowchain/pkg/bridge"
	"github.com/aretw0/flowchain/pkg/value"
)

// ReadValue decodes one wire value from r.
func ReadValue(r io.Reader) (value.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return value.DecodeJSON(bytes.TrimSpace(data))
}

// ReadMap decodes one wire map from r. Empty input yields an empty map.
func ReadMap(r io.Reader) (*value.Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return value.NewMap(), nil
	}
	m := value.NewMap()
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteValue encodes v to w in the wire format, followed by a newline.
func WriteValue(w io.Writer, v value.Value) error {
	data, err := value.EncodeJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// Normalize rewrites the wire value read from in into its normal form.
func Normalize(in io.Reader, out io.Writer) error {
	v, err := ReadValue(in)
	if err != nil {
		return err
	}
	return WriteValue(out, value.Normalize(v))
}

// FromPlainJSON converts untagged JSON into the wire format. Integral numbers become I64,
// or U64 above the int64 range; every other number becomes a Decimal.
func FromPlainJSON(in io.Reader, out io.Writer) error {
	dec := json.NewDecoder(in)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	v, err := value.FromAny(plainNumbers(raw))
	if err != nil {
		return err
	}
	return WriteValue(out, v)
}

// ToPlainJSON converts a wire value into untagged JSON.
func ToPlainJSON(in io.Reader, out io.Writer) error {
	v, err := ReadValue(in)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return enc.Encode(bridge.Plain(v))
}

func plainNumbers(x any) any {
	switch v := x.(type) {
	case json.Number:
		s := v.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := v.Int64(); err == nil {
				return i
			}
			if u, err := strconv.ParseUint(s, 10, 64); err == nil {
				return u
			}
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return s
		}
		return d
	case []any:
		for i := range v {
			v[i] = plainNumbers(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = plainNumbers(v[k])
		}
		return v
	}
	return x
}
