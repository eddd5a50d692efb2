package builtins

import (
	"math"
	"strconv"
	"strings"

	"tram/eval"
	"tram/types"
)

// builtinTypeof returns the type name of a value
// typeof(value) -> str
// Exceptions report their class name.
func builtinTypeof(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "typeof", args, 1, 1); err != nil {
		return nil, err
	}
	return types.NewStr(p.TypeOf(args[0])), nil
}

// builtinTostr concatenates the display form of its arguments
// tostr(value, ...) -> str
func builtinTostr(p *eval.Processor, args []types.Value) (any, error) {
	var b strings.Builder
	for _, v := range args {
		b.WriteString(types.Display(v))
	}
	return types.NewStr(b.String()), nil
}

// builtinToint converts a value to an integer
// toint(value) -> int
// Floats truncate toward zero, strings are parsed, booleans give 0 or 1.
func builtinToint(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "toint", args, 1, 1); err != nil {
		return nil, err
	}

	switch v := args[0].(type) {
	case types.IntValue:
		return v, nil
	case types.FloatValue:
		if math.IsNaN(v.Val) || math.IsInf(v.Val, 0) {
			return nil, valueError(p, "cannot convert float %s to integer", v)
		}
		return types.NewInt(int64(v.Val)), nil
	case types.BoolValue:
		if v.Val {
			return types.NewInt(1), nil
		}
		return types.NewInt(0), nil
	case types.StrValue:
		s := strings.TrimSpace(v.Value())
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, valueError(p, "invalid literal for toint(): %s", v)
		}
		return types.NewInt(n), nil
	default:
		return nil, argTypeError(p, "toint", 0, args[0], "int, float, bool or str")
	}
}

// builtinTofloat converts a value to a float
// tofloat(value) -> float
func builtinTofloat(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "tofloat", args, 1, 1); err != nil {
		return nil, err
	}

	switch v := args[0].(type) {
	case types.IntValue:
		return types.NewFloat(float64(v.Val)), nil
	case types.FloatValue:
		return v, nil
	case types.StrValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Value()), 64)
		if err != nil {
			return nil, valueError(p, "invalid literal for tofloat(): %s", v)
		}
		return types.NewFloat(f), nil
	default:
		return nil, argTypeError(p, "tofloat", 0, args[0], "int, float or str")
	}
}

// builtinToliteral returns the literal representation of a value
// toliteral(value) -> str
func builtinToliteral(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "toliteral", args, 1, 1); err != nil {
		return nil, err
	}
	return types.NewStr(args[0].String()), nil
}

// builtinEqual compares two values strictly: unlike ==, 1 and 1.0 differ
// equal(a, b) -> bool
func builtinEqual(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "equal", args, 2, 2); err != nil {
		return nil, err
	}
	a, b := args[0], args[1]
	return types.NewBool(a.Type() == b.Type() && a.Equal(b)), nil
}
