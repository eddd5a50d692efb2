package builtins

import (
	"tram/eval"
	"tram/types"
)

// ============================================================================
// MAP BUILTINS
// ============================================================================

// builtinMapkeys returns the keys of a map in insertion order
// mapkeys(map) -> list
func builtinMapkeys(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "mapkeys", args, 1, 1); err != nil {
		return nil, err
	}
	m, err := mapArg(p, "mapkeys", args, 0)
	if err != nil {
		return nil, err
	}
	return types.NewList(m.Keys()), nil
}

// builtinMapvalues returns the values of a map in insertion order
// mapvalues(map) -> list
func builtinMapvalues(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "mapvalues", args, 1, 1); err != nil {
		return nil, err
	}
	m, err := mapArg(p, "mapvalues", args, 0)
	if err != nil {
		return nil, err
	}
	return types.NewList(m.Values()), nil
}

// builtinMaphaskey checks whether a key is present
// maphaskey(map, key) -> bool
func builtinMaphaskey(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "maphaskey", args, 2, 2); err != nil {
		return nil, err
	}
	m, err := mapArg(p, "maphaskey", args, 0)
	if err != nil {
		return nil, err
	}
	if !types.Hashable(args[1]) {
		return nil, p.NewError(p.Classes.TypeError, types.Internal, "unhashable type: '%s'", p.TypeOf(args[1]))
	}
	_, ok := m.Get(args[1])
	return types.NewBool(ok), nil
}

// builtinMapdelete removes a key
// mapdelete(map, key) -> map
// Raises KeyError if the key is absent.
func builtinMapdelete(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "mapdelete", args, 2, 2); err != nil {
		return nil, err
	}
	m, err := mapArg(p, "mapdelete", args, 0)
	if err != nil {
		return nil, err
	}
	if !types.Hashable(args[1]) {
		return nil, p.NewError(p.Classes.TypeError, types.Internal, "unhashable type: '%s'", p.TypeOf(args[1]))
	}
	if _, ok := m.Get(args[1]); !ok {
		return nil, p.NewError(p.Classes.KeyError, types.Internal, "%s", args[1].String())
	}
	return m.Delete(args[1]), nil
}

// builtinMapmerge combines maps; later maps win on duplicate keys
// mapmerge(map, map, ...) -> map
func builtinMapmerge(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "mapmerge", args, 1, -1); err != nil {
		return nil, err
	}
	out := types.NewMap()
	for i := range args {
		m, err := mapArg(p, "mapmerge", args, i)
		if err != nil {
			return nil, err
		}
		keys, vals := m.Keys(), m.Values()
		for j, k := range keys {
			out = out.Set(k, vals[j])
		}
	}
	return out, nil
}
