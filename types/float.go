package types

import (
	"math"
	"strconv"
	"strings"
)

// FloatValue represents a floating point number
type FloatValue struct {
	Val float64
}

// NewFloat creates a new FloatValue
func NewFloat(val float64) FloatValue {
	return FloatValue{Val: val}
}

func (f FloatValue) Type() TypeCode {
	return TYPE_FLOAT
}

// String returns the literal representation.
// Whole numbers keep a decimal point (3.0 not 3).
func (f FloatValue) String() string {
	if math.IsNaN(f.Val) {
		return "nan"
	}
	if math.IsInf(f.Val, 1) {
		return "inf"
	}
	if math.IsInf(f.Val, -1) {
		return "-inf"
	}
	s := strconv.FormatFloat(f.Val, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (f FloatValue) Equal(other Value) bool {
	switch o := other.(type) {
	case FloatValue:
		return f.Val == o.Val
	case IntValue:
		return f.Val == float64(o.Val)
	}
	return false
}

func (f FloatValue) Truthy() bool {
	return f.Val != 0
}

// ToFloat widens an int or float to float64
func ToFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case IntValue:
		return float64(n.Val), true
	case FloatValue:
		return n.Val, true
	}
	return 0, false
}
