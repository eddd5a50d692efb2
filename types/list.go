package types

import "strings"

// ListValue represents a list. Lists are copy-on-write: every mutating
// operation returns a new list and leaves the receiver untouched, so a list
// captured by one binding never changes under another.
type ListValue struct {
	elements []Value
}

// NewList creates a new list value
func NewList(elements []Value) ListValue {
	return ListValue{elements: elements}
}

// NewEmptyList creates an empty list
func NewEmptyList() ListValue {
	return ListValue{elements: []Value{}}
}

func (l ListValue) String() string {
	return "[" + joinValues(l.elements) + "]"
}

func (l ListValue) Type() TypeCode {
	return TYPE_LIST
}

// Truthy: non-empty lists are truthy
func (l ListValue) Truthy() bool {
	return len(l.elements) > 0
}

func (l ListValue) Equal(other Value) bool {
	o, ok := other.(ListValue)
	return ok && equalValues(l.elements, o.elements)
}

// Len returns the number of elements
func (l ListValue) Len() int {
	return len(l.elements)
}

// Get returns the element at a 0-based index
func (l ListValue) Get(i int) Value {
	return l.elements[i]
}

// Set returns a copy with element i replaced
func (l ListValue) Set(i int, v Value) ListValue {
	out := make([]Value, len(l.elements))
	copy(out, l.elements)
	out[i] = v
	return ListValue{elements: out}
}

// Append returns a copy with v added at the end
func (l ListValue) Append(v Value) ListValue {
	out := make([]Value, len(l.elements), len(l.elements)+1)
	copy(out, l.elements)
	return ListValue{elements: append(out, v)}
}

// Concat returns a new list holding both lists' elements
func (l ListValue) Concat(other ListValue) ListValue {
	out := make([]Value, 0, len(l.elements)+len(other.elements))
	out = append(out, l.elements...)
	return ListValue{elements: append(out, other.elements...)}
}

// Elements returns the backing slice; callers must not modify it
func (l ListValue) Elements() []Value {
	return l.elements
}

// TupleValue is an immutable fixed-size sequence
type TupleValue struct {
	elements []Value
}

// NewTuple creates a new tuple value
func NewTuple(elements []Value) TupleValue {
	return TupleValue{elements: elements}
}

func (t TupleValue) String() string {
	if len(t.elements) == 1 {
		return "(" + t.elements[0].String() + ",)"
	}
	return "(" + joinValues(t.elements) + ")"
}

func (t TupleValue) Type() TypeCode {
	return TYPE_TUPLE
}

func (t TupleValue) Truthy() bool {
	return len(t.elements) > 0
}

func (t TupleValue) Equal(other Value) bool {
	o, ok := other.(TupleValue)
	return ok && equalValues(t.elements, o.elements)
}

func (t TupleValue) Len() int {
	return len(t.elements)
}

func (t TupleValue) Get(i int) Value {
	return t.elements[i]
}

func (t TupleValue) Elements() []Value {
	return t.elements
}

func joinValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func equalValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Elements returns the members of any sequence value in iteration order:
// list and tuple elements, string characters, map keys.
func Elements(v Value) ([]Value, bool) {
	switch s := v.(type) {
	case ListValue:
		return s.elements, true
	case TupleValue:
		return s.elements, true
	case StrValue:
		return s.Chars(), true
	case MapValue:
		return s.Keys(), true
	}
	return nil, false
}
