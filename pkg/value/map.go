package value

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is a string-keyed mapping that remembers insertion order.
// Order is kept for stable encoding but is not significant for Equal.
// A nil *Map behaves as an empty map for reads.
type Map struct {
	om *orderedmap.OrderedMap[string, Value]
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{om: orderedmap.New[string, Value]()}
}

// Set inserts or replaces key. Replacing keeps the original position.
func (m *Map) Set(key string, v Value) {
	if m.om == nil {
		m.om = orderedmap.New[string, Value]()
	}
	if v == nil {
		v = Null{}
	}
	m.om.Set(key, v)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil || m.om == nil {
		return nil, false
	}
	return m.om.Get(key)
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if m == nil || m.om == nil {
		return false
	}
	_, ok := m.om.Delete(key)
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil || m.om == nil {
		return 0
	}
	return m.om.Len()
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, m.Len())
	for k := range m.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates over the entries in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil || m.om == nil {
			return
		}
		for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Clone returns a shallow copy: the entries are shared, the ordering is not.
func (m *Map) Clone() *Map {
	out := NewMap()
	for k, v := range m.All() {
		out.Set(k, v)
	}
	return out
}

// Merge copies every entry of other into m, overwriting existing keys.
func (m *Map) Merge(other *Map) {
	for k, v := range other.All() {
		m.Set(k, v)
	}
}
