package types

import (
	"fmt"
	"strings"
)

// StrValue represents a string
type StrValue struct {
	val string
}

// NewStr creates a new string value
func NewStr(s string) StrValue {
	return StrValue{val: s}
}

// String returns the quoted literal form.
// Non-printable bytes are written as \xNN.
func (s StrValue) String() string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s.val); i++ {
		c := s.val[i]
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c >= 32 && c <= 126, c >= 0x80:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (s StrValue) Type() TypeCode {
	return TYPE_STR
}

// Truthy: empty strings are falsy
func (s StrValue) Truthy() bool {
	return len(s.val) > 0
}

func (s StrValue) Equal(other Value) bool {
	o, ok := other.(StrValue)
	return ok && s.val == o.val
}

// Value returns the underlying Go string
func (s StrValue) Value() string {
	return s.val
}

// Len returns the number of runes in the string
func (s StrValue) Len() int {
	return len([]rune(s.val))
}

// Chars splits the string into one-rune strings
func (s StrValue) Chars() []Value {
	runes := []rune(s.val)
	out := make([]Value, len(runes))
	for i, r := range runes {
		out[i] = NewStr(string(r))
	}
	return out
}
