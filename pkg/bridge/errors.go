package bridge

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every *Error matches exactly one of them with errors.Is.
var (
	ErrInvalidLength   = errors.New("invalid length")
	ErrInvalidEncoding = errors.New("invalid string encoding")
	ErrKeyMustBeString = errors.New("key must be a string")
	ErrExpectedOneKey  = errors.New("expected exactly one key")
	ErrWrongTokenType  = errors.New("wrong type for token")
	ErrInvalidType     = errors.New("invalid type")
	ErrMissingField    = errors.New("missing field")
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrUnsupported     = errors.New("unsupported type")
	ErrCustom          = errors.New("custom")
)

// Error is a marshalling failure attributed to a single field.
type Error struct {
	// Path locates the field, e.g. "signers[1].pubkey". Empty for the root value.
	Path string
	// Kind is one of the Err* sentinels of this package.
	Kind error
	// Msg describes the failure.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "field %q: ", e.Path)
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Custom builds a free-form error for a type's own validation, e.g. from Validate or
// UnmarshalValue. The bridge attaches the field path.
func Custom(format string, args ...any) error {
	return &Error{Kind: ErrCustom, Msg: fmt.Sprintf(format, args...)}
}

// path tracks the location of the value being processed.
type path []string

func (p path) String() string {
	var b strings.Builder
	for _, seg := range p {
		if b.Len() > 0 && !strings.HasPrefix(seg, "[") {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func (p path) field(name string) path {
	return append(p[:len(p):len(p)], name)
}

func (p path) index(i int) path {
	return append(p[:len(p):len(p)], fmt.Sprintf("[%d]", i))
}

func (p path) errorf(kind error, format string, args ...any) *Error {
	return &Error{Path: p.String(), Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (p path) wrap(kind error, cause error, format string, args ...any) *Error {
	return &Error{Path: p.String(), Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// attach sets the path on errors returned by user hooks.
func (p path) attach(err error) error {
	var be *Error
	if errors.As(err, &be) {
		if be.Path == "" {
			cp := *be
			cp.Path = p.String()
			return &cp
		}
		return err
	}
	return p.wrap(ErrCustom, err, "validation failed")
}
