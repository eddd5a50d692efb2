package types

import "fmt"

// Value is the interface all runtime values implement
type Value interface {
	Type() TypeCode
	String() string   // literal representation
	Equal(Value) bool // deep equality
	Truthy() bool     // truthiness rules
}

// NullValue is the distinguished null sentinel. Unassigned bound variables,
// bodies that produce nothing and procedures without a return value all
// yield Null.
type NullValue struct{}

// Null is the only NullValue the runtime hands out
var Null = NullValue{}

func (NullValue) Type() TypeCode { return TYPE_NULL }

func (NullValue) String() string { return "null" }

func (NullValue) Equal(other Value) bool {
	_, ok := other.(NullValue)
	return ok
}

func (NullValue) Truthy() bool { return false }

// IsNull reports whether v is nil or the null sentinel
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NullValue)
	return ok
}

// Location identifies where a command came from.
// The zero Location is "internal": nodes synthesized by the runtime itself.
type Location struct {
	File   string
	Line   int
	Column int
}

// Internal is the location of runtime-synthesized nodes
var Internal = Location{}

// IsInternal reports whether the location carries no source position
func (l Location) IsInternal() bool {
	return l == Internal
}

func (l Location) String() string {
	if l.IsInternal() {
		return "internal"
	}
	file := l.File
	if file == "" {
		file = "<input>"
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", file, l.Line)
}

// Display renders a value the way print shows it: strings without quotes,
// everything else in literal form.
func Display(v Value) string {
	if v == nil {
		return Null.String()
	}
	if s, ok := v.(StrValue); ok {
		return s.Value()
	}
	return v.String()
}

// Ordinal renders n as "1st", "2nd", "3rd", "4th", "11th", "22nd" ...
// Operand validation messages use it to point at the offending argument.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// Plural picks the singular or plural noun for a count
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
