package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/flowchain/pkg/domain"
	"github.com/aretw0/flowchain/pkg/ports"
	"github.com/aretw0/flowchain/pkg/value"
)

// Masked replaces every redacted output value.
const Masked = value.String("***")

type piiMiddleware struct {
	next     ports.Journal
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks output values whose key matches one of
// the patterns, at any depth. The record handed to Save is left untouched.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Journal) ports.Journal {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, record *domain.ExecutionRecord) error {
	if record.Outputs == nil || len(m.patterns) == 0 {
		return m.next.Save(ctx, record)
	}
	masked := *record
	masked.Outputs = maskMap(record.Outputs, m.patterns)
	return m.next.Save(ctx, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (*domain.ExecutionRecord, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// maskMap returns a copy of in with matching keys masked.
func maskMap(in *value.Map, patterns []*regexp.Regexp) *value.Map {
	out := value.NewMap()
	for k, v := range in.All() {
		if matchesAny(k, patterns) {
			out.Set(k, Masked)
			continue
		}
		out.Set(k, maskValue(v, patterns))
	}
	return out
}

func maskValue(v value.Value, patterns []*regexp.Regexp) value.Value {
	switch x := v.(type) {
	case *value.Map:
		return maskMap(x, patterns)
	case value.Array:
		out := make(value.Array, len(x))
		for i, elem := range x {
			out[i] = maskValue(elem, patterns)
		}
		return out
	}
	return v
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
