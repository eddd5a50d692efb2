package builtins

import (
	"sort"

	"tram/eval"
	"tram/types"
)

// ============================================================================
// LIST BUILTINS
// ============================================================================

// builtinListappend adds a value at the end of a list
// listappend(list, value) -> list
func builtinListappend(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "listappend", args, 2, 2); err != nil {
		return nil, err
	}
	list, err := listArg(p, "listappend", args, 0)
	if err != nil {
		return nil, err
	}
	return list.Append(args[1]), nil
}

// builtinListinsert inserts value before the given position
// listinsert(list, value [, index]) -> list
// Default index 0 prepends; out of range indices are clamped.
func builtinListinsert(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "listinsert", args, 2, 3); err != nil {
		return nil, err
	}
	list, err := listArg(p, "listinsert", args, 0)
	if err != nil {
		return nil, err
	}
	index := 0
	if len(args) == 3 {
		n, err := intArg(p, "listinsert", args, 2)
		if err != nil {
			return nil, err
		}
		index = int(max(0, min(n, int64(list.Len()))))
	}
	elems := list.Elements()
	out := make([]types.Value, 0, len(elems)+1)
	out = append(out, elems[:index]...)
	out = append(out, args[1])
	out = append(out, elems[index:]...)
	return types.NewList(out), nil
}

// builtinListdelete removes the element at index
// listdelete(list, index) -> list
func builtinListdelete(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "listdelete", args, 2, 2); err != nil {
		return nil, err
	}
	list, err := listArg(p, "listdelete", args, 0)
	if err != nil {
		return nil, err
	}
	n, err := intArg(p, "listdelete", args, 1)
	if err != nil {
		return nil, err
	}
	i := int(n)
	if i < 0 {
		i += list.Len()
	}
	if i < 0 || i >= list.Len() {
		return nil, p.NewError(p.Classes.IndexError, types.Internal, "listdelete() index out of range")
	}
	elems := list.Elements()
	out := make([]types.Value, 0, len(elems)-1)
	out = append(out, elems[:i]...)
	out = append(out, elems[i+1:]...)
	return types.NewList(out), nil
}

// builtinReverse reverses a list, tuple or string
// reverse(seq) -> seq
func builtinReverse(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "reverse", args, 1, 1); err != nil {
		return nil, err
	}
	elems, ok := types.Elements(args[0])
	if !ok {
		return nil, argTypeError(p, "reverse", 0, args[0], "list, tuple or str")
	}
	out := make([]types.Value, len(elems))
	for i, e := range elems {
		out[len(elems)-1-i] = e
	}
	switch args[0].(type) {
	case types.TupleValue:
		return types.NewTuple(out), nil
	case types.StrValue:
		return tostrValues(out), nil
	case types.MapValue:
		return nil, argTypeError(p, "reverse", 0, args[0], "list, tuple or str")
	}
	return types.NewList(out), nil
}

func tostrValues(vals []types.Value) types.StrValue {
	s := ""
	for _, v := range vals {
		s += types.Display(v)
	}
	return types.NewStr(s)
}

// builtinSort returns a sorted copy of a list of numbers or of strings
// sort(list) -> list
func builtinSort(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "sort", args, 1, 1); err != nil {
		return nil, err
	}
	list, err := listArg(p, "sort", args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, list.Len())
	copy(out, list.Elements())
	if len(out) == 0 {
		return types.NewList(out), nil
	}

	allNumbers, allStrings := true, true
	for _, v := range out {
		if _, ok := types.ToFloat(v); !ok {
			allNumbers = false
		}
		if _, ok := v.(types.StrValue); !ok {
			allStrings = false
		}
	}
	switch {
	case allNumbers:
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := types.ToFloat(out[i])
			b, _ := types.ToFloat(out[j])
			return a < b
		})
	case allStrings:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].(types.StrValue).Value() < out[j].(types.StrValue).Value()
		})
	default:
		return nil, p.NewError(p.Classes.TypeError, types.Internal, "sort() needs a list of numbers or a list of strings")
	}
	return types.NewList(out), nil
}

// builtinUnique removes duplicate elements, keeping first occurrences
// unique(list) -> list
func builtinUnique(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "unique", args, 1, 1); err != nil {
		return nil, err
	}
	list, err := listArg(p, "unique", args, 0)
	if err != nil {
		return nil, err
	}
	var out []types.Value
	for _, v := range list.Elements() {
		dup := false
		for _, seen := range out {
			if seen.Equal(v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	if out == nil {
		return types.NewEmptyList(), nil
	}
	return types.NewList(out), nil
}

// builtinSlice extracts part of a sequence
// slice(seq, start [, end]) -> seq
// Negative bounds count from the end; bounds are clamped.
func builtinSlice(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "slice", args, 2, 3); err != nil {
		return nil, err
	}
	elems, ok := types.Elements(args[0])
	if _, isMap := args[0].(types.MapValue); !ok || isMap {
		return nil, argTypeError(p, "slice", 0, args[0], "list, tuple or str")
	}
	n := int64(len(elems))
	start, err := intArg(p, "slice", args, 1)
	if err != nil {
		return nil, err
	}
	end := n
	if len(args) == 3 {
		if end, err = intArg(p, "slice", args, 2); err != nil {
			return nil, err
		}
	}
	clamp := func(i int64) int64 {
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	start, end = clamp(start), clamp(end)
	if end < start {
		end = start
	}
	part := make([]types.Value, end-start)
	copy(part, elems[start:end])
	switch args[0].(type) {
	case types.TupleValue:
		return types.NewTuple(part), nil
	case types.StrValue:
		return tostrValues(part), nil
	}
	return types.NewList(part), nil
}

// builtinRange builds a list of integers
// range(stop) -> list
// range(start, stop [, step]) -> list
func builtinRange(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "range", args, 1, 3); err != nil {
		return nil, err
	}
	var bounds [3]int64
	bounds[2] = 1
	for i := range args {
		n, err := intArg(p, "range", args, i)
		if err != nil {
			return nil, err
		}
		bounds[i] = n
	}
	start, stop, step := bounds[0], bounds[1], bounds[2]
	if len(args) == 1 {
		start, stop = 0, bounds[0]
	}
	if step == 0 {
		return nil, valueError(p, "range() step must not be zero")
	}
	out := []types.Value{}
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, types.NewInt(i))
	}
	return types.NewList(out), nil
}

// builtinApply calls a procedure with a list of arguments
// apply(fn, args) -> value
// The call runs on the processor queue like any other call.
func builtinApply(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "apply", args, 2, 2); err != nil {
		return nil, err
	}
	callArgs, ok := types.Elements(args[1])
	if _, isMap := args[1].(types.MapValue); !ok || isMap {
		return nil, argTypeError(p, "apply", 1, args[1], "list or tuple")
	}
	return eval.CallValue(types.Internal, args[0], callArgs...), nil
}
