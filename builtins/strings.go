package builtins

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"tram/eval"
	"tram/types"
)

// ============================================================================
// STRING BUILTINS
// ============================================================================

// builtinLength returns the length of a string, list, tuple, or map
// length(str) -> int
// Strings count characters, not bytes.
func builtinLength(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "length", args, 1, 1); err != nil {
		return nil, err
	}

	switch v := args[0].(type) {
	case types.StrValue:
		return types.NewInt(int64(v.Len())), nil
	case types.ListValue:
		return types.NewInt(int64(v.Len())), nil
	case types.TupleValue:
		return types.NewInt(int64(v.Len())), nil
	case types.MapValue:
		return types.NewInt(int64(v.Len())), nil
	default:
		return nil, argTypeError(p, "length", 0, args[0], "str, list, tuple or map")
	}
}

func stringTransform(name string, fn func(string) string) eval.ExternalFunc {
	return func(p *eval.Processor, args []types.Value) (any, error) {
		if err := checkArgs(p, name, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := strArg(p, name, args, 0)
		if err != nil {
			return nil, err
		}
		return types.NewStr(fn(s)), nil
	}
}

// upcase(str) -> str
var builtinUpcase = stringTransform("upcase", strings.ToUpper)

// downcase(str) -> str
var builtinDowncase = stringTransform("downcase", strings.ToLower)

// capitalize(str) -> str
var builtinCapitalize = stringTransform("capitalize", func(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
})

// builtinTrim removes leading and trailing characters
// trim(str [, chars]) -> str
// Default chars is whitespace.
func builtinTrim(p *eval.Processor, args []types.Value) (any, error) {
	return trimWith(p, "trim", args, strings.Trim, strings.TrimSpace)
}

// ltrim(str [, chars]) -> str
func builtinLtrim(p *eval.Processor, args []types.Value) (any, error) {
	return trimWith(p, "ltrim", args, strings.TrimLeft, func(s string) string {
		return strings.TrimLeftFunc(s, unicode.IsSpace)
	})
}

// rtrim(str [, chars]) -> str
func builtinRtrim(p *eval.Processor, args []types.Value) (any, error) {
	return trimWith(p, "rtrim", args, strings.TrimRight, func(s string) string {
		return strings.TrimRightFunc(s, unicode.IsSpace)
	})
}

func trimWith(p *eval.Processor, name string, args []types.Value, cut func(string, string) string, space func(string) string) (any, error) {
	if err := checkArgs(p, name, args, 1, 2); err != nil {
		return nil, err
	}
	s, err := strArg(p, name, args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return types.NewStr(space(s)), nil
	}
	chars, err := strArg(p, name, args, 1)
	if err != nil {
		return nil, err
	}
	return types.NewStr(cut(s, chars)), nil
}

// builtinExplode splits a string into a list
// explode(str [, sep]) -> list
// Default separator is whitespace; empty fields are dropped.
func builtinExplode(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "explode", args, 1, 2); err != nil {
		return nil, err
	}
	s, err := strArg(p, "explode", args, 0)
	if err != nil {
		return nil, err
	}

	var parts []string
	if len(args) == 2 {
		sep, err := strArg(p, "explode", args, 1)
		if err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, valueError(p, "empty separator")
		}
		for _, part := range strings.Split(s, sep) {
			if part != "" {
				parts = append(parts, part)
			}
		}
	} else {
		parts = strings.Fields(s)
	}

	out := make([]types.Value, len(parts))
	for i, part := range parts {
		out[i] = types.NewStr(part)
	}
	return types.NewList(out), nil
}

// builtinImplode joins a list of strings
// implode(list [, sep]) -> str
func builtinImplode(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "implode", args, 1, 2); err != nil {
		return nil, err
	}
	elems, ok := types.Elements(args[0])
	if !ok {
		return nil, argTypeError(p, "implode", 0, args[0], "list")
	}
	sep := ""
	if len(args) == 2 {
		var err error
		if sep, err = strArg(p, "implode", args, 1); err != nil {
			return nil, err
		}
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.(types.StrValue)
		if !ok {
			return nil, p.NewError(p.Classes.TypeError, types.Internal, "implode() element %d must be str, not %s", i, p.TypeOf(e))
		}
		parts[i] = s.Value()
	}
	return types.NewStr(strings.Join(parts, sep)), nil
}

// builtinIndex finds the first occurrence of a substring
// index(str, what) -> int
// Returns the 0-based character position, or -1 if not found.
func builtinIndex(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "index", args, 2, 2); err != nil {
		return nil, err
	}
	s, err := strArg(p, "index", args, 0)
	if err != nil {
		return nil, err
	}
	what, err := strArg(p, "index", args, 1)
	if err != nil {
		return nil, err
	}
	i := strings.Index(s, what)
	if i < 0 {
		return types.NewInt(-1), nil
	}
	return types.NewInt(int64(utf8.RuneCountInString(s[:i]))), nil
}

// builtinStrsub replaces all occurrences of a substring
// strsub(str, what, with) -> str
func builtinStrsub(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "strsub", args, 3, 3); err != nil {
		return nil, err
	}
	var strs [3]string
	for i := range strs {
		s, err := strArg(p, "strsub", args, i)
		if err != nil {
			return nil, err
		}
		strs[i] = s
	}
	if strs[1] == "" {
		return nil, valueError(p, "strsub() pattern must not be empty")
	}
	return types.NewStr(strings.ReplaceAll(strs[0], strs[1], strs[2])), nil
}
