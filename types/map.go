package types

import (
	"fmt"
	"strings"
)

// MapValue represents an insertion-ordered map. Like lists, maps are
// copy-on-write.
type MapValue struct {
	keys  []string // key hashes in insertion order
	pairs map[string]mapEntry
}

type mapEntry struct {
	key Value
	val Value
}

// keyHash converts a value to a Go map key. Equal values hash equally, and
// ints and whole floats share a hash so 1 and 1.0 address the same entry.
func keyHash(v Value) string {
	if f, ok := v.(FloatValue); ok && f.Val == float64(int64(f.Val)) {
		v = NewInt(int64(f.Val))
	}
	return fmt.Sprintf("%d:%s", v.Type(), v.String())
}

// Hashable reports whether v may be used as a map key
func Hashable(v Value) bool {
	switch t := v.(type) {
	case NullValue, BoolValue, IntValue, FloatValue, StrValue:
		return true
	case TupleValue:
		for _, e := range t.elements {
			if !Hashable(e) {
				return false
			}
		}
		return true
	}
	return false
}

// NewMap creates an empty map value
func NewMap() MapValue {
	return MapValue{pairs: map[string]mapEntry{}}
}

// NewMapFromPairs builds a map from key/value pairs; later duplicates win
func NewMapFromPairs(pairs [][2]Value) MapValue {
	m := NewMap()
	for _, p := range pairs {
		m = m.set(p[0], p[1])
	}
	return m
}

func (m MapValue) Type() TypeCode {
	return TYPE_MAP
}

func (m MapValue) Truthy() bool {
	return len(m.keys) > 0
}

func (m MapValue) String() string {
	parts := make([]string, 0, len(m.keys))
	for _, h := range m.keys {
		e := m.pairs[h]
		parts = append(parts, e.key.String()+": "+e.val.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal compares contents regardless of insertion order
func (m MapValue) Equal(other Value) bool {
	o, ok := other.(MapValue)
	if !ok || len(m.keys) != len(o.keys) {
		return false
	}
	for h, e := range m.pairs {
		oe, ok := o.pairs[h]
		if !ok || !e.val.Equal(oe.val) {
			return false
		}
	}
	return true
}

func (m MapValue) Len() int {
	return len(m.keys)
}

// Get looks up a key
func (m MapValue) Get(key Value) (Value, bool) {
	e, ok := m.pairs[keyHash(key)]
	if !ok {
		return nil, false
	}
	return e.val, true
}

// Set returns a copy with key bound to val
func (m MapValue) Set(key, val Value) MapValue {
	out := MapValue{
		keys:  make([]string, len(m.keys), len(m.keys)+1),
		pairs: make(map[string]mapEntry, len(m.pairs)+1),
	}
	copy(out.keys, m.keys)
	for h, e := range m.pairs {
		out.pairs[h] = e
	}
	return out.set(key, val)
}

// set mutates in place; only used while building a fresh map
func (m MapValue) set(key, val Value) MapValue {
	h := keyHash(key)
	if _, exists := m.pairs[h]; !exists {
		m.keys = append(m.keys, h)
	}
	m.pairs[h] = mapEntry{key: key, val: val}
	return m
}

// Delete returns a copy without key
func (m MapValue) Delete(key Value) MapValue {
	h := keyHash(key)
	if _, exists := m.pairs[h]; !exists {
		return m
	}
	out := NewMap()
	for _, k := range m.keys {
		if k != h {
			e := m.pairs[k]
			out = out.set(e.key, e.val)
		}
	}
	return out
}

// Keys returns the keys in insertion order
func (m MapValue) Keys() []Value {
	keys := make([]Value, len(m.keys))
	for i, h := range m.keys {
		keys[i] = m.pairs[h].key
	}
	return keys
}

// Values returns the values in insertion order
func (m MapValue) Values() []Value {
	vals := make([]Value, len(m.keys))
	for i, h := range m.keys {
		vals[i] = m.pairs[h].val
	}
	return vals
}
