package params

import (
	"encoding/json/v2"
	"strings"
)

// Map is a parameter map with unique keys and preserved first-seen key order.
// Lookup is by exact key; ResolveFold adds the case-insensitive fallback used
// at translate time.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap creates an empty parameter map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores a value under key. The first Set of a key fixes its position in
// the iteration order; later Sets overwrite the value in place.
func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// ResolveFold returns the value for key, trying an exact match first and then
// a case-insensitive scan in key order.
func (m *Map) ResolveFold(key string) (Value, bool) {
	if v, ok := m.values[key]; ok {
		return v, true
	}
	for _, k := range m.keys {
		if strings.EqualFold(k, key) {
			return m.values[k], true
		}
	}
	return Value{}, false
}

// Keys returns the keys in first-seen order. The returned slice is shared;
// callers must not modify it.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

// MarshalJSON renders the map as a JSON object in key order, with every value
// as its display text.
func (m *Map) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 32*len(m.keys))
	buf = append(buf, '{')
	for i, k := range m.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k].Text())
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON reads a flat JSON object of scalars. Key order follows the
// document order.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// json/v2 preserves no order for map targets, so re-read keys from a
	// keyed slice decode to keep document order.
	order, err := objectKeyOrder(data)
	if err != nil {
		return err
	}
	m.keys = nil
	m.values = make(map[string]Value, len(raw))
	for _, k := range order {
		m.Set(k, fromAny(raw[k]))
	}
	return nil
}

// FromAny builds a Map from a decoded JSON object. Non-scalar values are
// skipped; use Flatten for nested parameter objects.
func FromAny(raw map[string]any, order []string) *Map {
	m := NewMap()
	for _, k := range order {
		v, ok := raw[k]
		if !ok {
			continue
		}
		if _, nested := v.(map[string]any); nested {
			continue
		}
		m.Set(k, fromAny(v))
	}
	return m
}

// fromAny coerces a decoded JSON scalar into a Value.
func fromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return String("")
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	default:
		return String("")
	}
}
