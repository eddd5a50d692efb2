package builtins

import (
	"math"
	"math/rand"

	"tram/eval"
	"tram/types"
)

// ============================================================================
// MATH BUILTINS
// ============================================================================

// builtinAbs returns absolute value
// abs(number) -> int|float
func builtinAbs(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "abs", args, 1, 1); err != nil {
		return nil, err
	}

	switch v := args[0].(type) {
	case types.IntValue:
		if v.Val < 0 {
			return types.IntValue{Val: -v.Val}, nil
		}
		return v, nil
	case types.FloatValue:
		return types.FloatValue{Val: math.Abs(v.Val)}, nil
	default:
		return nil, argTypeError(p, "abs", 0, args[0], "int or float")
	}
}

// builtinMin returns the smallest value
// min(num1, num2, ...) -> int|float
// A single list argument is searched instead.
func builtinMin(p *eval.Processor, args []types.Value) (any, error) {
	return extremum(p, "min", args, func(a, b float64) bool { return a < b })
}

// builtinMax returns the largest value
// max(num1, num2, ...) -> int|float
func builtinMax(p *eval.Processor, args []types.Value) (any, error) {
	return extremum(p, "max", args, func(a, b float64) bool { return a > b })
}

func extremum(p *eval.Processor, name string, args []types.Value, better func(a, b float64) bool) (any, error) {
	if err := checkArgs(p, name, args, 1, -1); err != nil {
		return nil, err
	}
	if l, ok := args[0].(types.ListValue); ok && len(args) == 1 {
		args = l.Elements()
		if len(args) == 0 {
			return nil, valueError(p, "%s() arg is an empty list", name)
		}
	}

	best := args[0]
	bestFloat, ok := types.ToFloat(best)
	if !ok {
		return nil, argTypeError(p, name, 0, best, "int or float")
	}
	for i := 1; i < len(args); i++ {
		f, ok := types.ToFloat(args[i])
		if !ok {
			return nil, argTypeError(p, name, i, args[i], "int or float")
		}
		if better(f, bestFloat) {
			bestFloat = f
			best = args[i]
		}
	}
	return best, nil
}

func floatArg(p *eval.Processor, name string, args []types.Value, i int) (float64, error) {
	f, ok := types.ToFloat(args[i])
	if !ok {
		return 0, argTypeError(p, name, i, args[i], "int or float")
	}
	return f, nil
}

// builtinSqrt returns square root
// sqrt(number) -> float
func builtinSqrt(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "sqrt", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := floatArg(p, "sqrt", args, 0)
	if err != nil {
		return nil, err
	}
	if f < 0 {
		return nil, valueError(p, "math domain error")
	}
	return types.NewFloat(math.Sqrt(f)), nil
}

func rounding(name string, fn func(float64) float64) eval.ExternalFunc {
	return func(p *eval.Processor, args []types.Value) (any, error) {
		if err := checkArgs(p, name, args, 1, 1); err != nil {
			return nil, err
		}
		if n, ok := args[0].(types.IntValue); ok {
			return n, nil
		}
		f, err := floatArg(p, name, args, 0)
		if err != nil {
			return nil, err
		}
		r := fn(f)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, valueError(p, "cannot convert float %s to integer", types.NewFloat(f))
		}
		return types.NewInt(int64(r)), nil
	}
}

// floor(number) -> int
var builtinFloor = rounding("floor", math.Floor)

// ceil(number) -> int
var builtinCeil = rounding("ceil", math.Ceil)

// round(number) -> int
// Halves round to even.
var builtinRound = rounding("round", math.RoundToEven)

// builtinRandom returns a random integer
// random([max]) -> int in 1..max
// random() uses the largest int64 as max.
func builtinRandom(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "random", args, 0, 1); err != nil {
		return nil, err
	}
	limit := int64(math.MaxInt64)
	if len(args) == 1 {
		n, err := intArg(p, "random", args, 0)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, valueError(p, "random() bound must be positive")
		}
		limit = n
	}
	return types.NewInt(rand.Int63n(limit) + 1), nil
}
