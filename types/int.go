package types

import "strconv"

// IntValue represents an integer
type IntValue struct {
	Val int64
}

// NewInt creates a new IntValue
func NewInt(val int64) IntValue {
	return IntValue{Val: val}
}

func (i IntValue) Type() TypeCode {
	return TYPE_INT
}

func (i IntValue) String() string {
	return strconv.FormatInt(i.Val, 10)
}

// Equal compares numerically, so 1 == 1.0
func (i IntValue) Equal(other Value) bool {
	switch o := other.(type) {
	case IntValue:
		return i.Val == o.Val
	case FloatValue:
		return float64(i.Val) == o.Val
	}
	return false
}

// Truthy returns false only for 0
func (i IntValue) Truthy() bool {
	return i.Val != 0
}
