package builtins

import (
	"sort"

	"tram/eval"
	"tram/types"
)

// Registry holds all registered builtin functions
type Registry struct {
	funcs map[string]eval.ExternalFunc
}

// NewRegistry creates a new builtin function registry
func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]eval.ExternalFunc),
	}

	// Register type conversion builtins
	r.Register("typeof", builtinTypeof)
	r.Register("tostr", builtinTostr)
	r.Register("toint", builtinToint)
	r.Register("tofloat", builtinTofloat)
	r.Register("toliteral", builtinToliteral)
	r.Register("equal", builtinEqual)

	// Register string builtins
	r.Register("length", builtinLength)
	r.Register("upcase", builtinUpcase)
	r.Register("downcase", builtinDowncase)
	r.Register("capitalize", builtinCapitalize)
	r.Register("trim", builtinTrim)
	r.Register("ltrim", builtinLtrim)
	r.Register("rtrim", builtinRtrim)
	r.Register("explode", builtinExplode)
	r.Register("implode", builtinImplode)
	r.Register("index", builtinIndex)
	r.Register("strsub", builtinStrsub)

	// Register list builtins
	r.Register("listappend", builtinListappend)
	r.Register("listinsert", builtinListinsert)
	r.Register("listdelete", builtinListdelete)
	r.Register("reverse", builtinReverse)
	r.Register("sort", builtinSort)
	r.Register("unique", builtinUnique)
	r.Register("slice", builtinSlice)
	r.Register("range", builtinRange)
	r.Register("apply", builtinApply)

	// Register math builtins
	r.Register("abs", builtinAbs)
	r.Register("min", builtinMin)
	r.Register("max", builtinMax)
	r.Register("sqrt", builtinSqrt)
	r.Register("floor", builtinFloor)
	r.Register("ceil", builtinCeil)
	r.Register("round", builtinRound)
	r.Register("random", builtinRandom)

	// Register map builtins
	r.Register("mapkeys", builtinMapkeys)
	r.Register("mapvalues", builtinMapvalues)
	r.Register("maphaskey", builtinMaphaskey)
	r.Register("mapdelete", builtinMapdelete)
	r.Register("mapmerge", builtinMapmerge)

	// Register JSON builtins
	r.Register("generate_json", builtinGenerateJson)
	r.Register("parse_json", builtinParseJson)

	// Register crypto builtins
	r.Register("encode_base64", builtinEncodeBase64)
	r.Register("decode_base64", builtinDecodeBase64)
	r.Register("string_hash", builtinStringHash)
	r.Register("string_hmac", builtinStringHmac)
	r.Register("random_bytes", builtinRandomBytes)
	r.Register("argon2", builtinArgon2)
	r.Register("argon2_verify", builtinArgon2Verify)

	// Register system builtins
	r.Register("getenv", builtinGetenv)
	r.Register("time", builtinTime)
	r.Register("ftime", builtinFtime)
	r.Register("module_state", builtinModuleState)
	r.Register("raise", builtinRaise)

	return r
}

// Register adds a builtin function to the registry
func (r *Registry) Register(name string, fn eval.ExternalFunc) {
	r.funcs[name] = fn
}

// Get retrieves a builtin function by name
// Returns (function, true) if found, (nil, false) if not found
func (r *Registry) Get(name string) (eval.ExternalFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Has checks if a builtin function is registered
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install registers every builtin as an external of p
func (r *Registry) Install(p *eval.Processor) {
	for _, name := range r.Names() {
		p.RegisterExternal(name, r.funcs[name])
	}
}

// ============================================================================
// ARGUMENT HELPERS
// ============================================================================

// checkArgs validates the argument count of a builtin; max < 0 means no
// upper bound
func checkArgs(p *eval.Processor, name string, args []types.Value, min, max int) error {
	n := len(args)
	if n >= min && (max < 0 || n <= max) {
		return nil
	}
	switch {
	case min == max:
		return p.NewError(p.Classes.TypeError, types.Internal, "%s() takes %d %s but %d %s given",
			name, min, types.Plural(min, "argument", "arguments"), n, types.Plural(n, "was", "were"))
	case n < min:
		return p.NewError(p.Classes.TypeError, types.Internal, "%s() takes at least %d %s but %d %s given",
			name, min, types.Plural(min, "argument", "arguments"), n, types.Plural(n, "was", "were"))
	default:
		return p.NewError(p.Classes.TypeError, types.Internal, "%s() takes at most %d %s but %d %s given",
			name, max, types.Plural(max, "argument", "arguments"), n, types.Plural(n, "was", "were"))
	}
}

// argTypeError reports an argument of the wrong type by position:
// "2nd argument of implode() must be str, not int"
func argTypeError(p *eval.Processor, name string, i int, v types.Value, expected string) error {
	return p.NewError(p.Classes.TypeError, types.Internal, "%s argument of %s() must be %s, not %s",
		types.Ordinal(i+1), name, expected, p.TypeOf(v))
}

func valueError(p *eval.Processor, format string, args ...any) error {
	return p.NewError(p.Classes.ValueError, types.Internal, format, args...)
}

func strArg(p *eval.Processor, name string, args []types.Value, i int) (string, error) {
	s, ok := args[i].(types.StrValue)
	if !ok {
		return "", argTypeError(p, name, i, args[i], "str")
	}
	return s.Value(), nil
}

func intArg(p *eval.Processor, name string, args []types.Value, i int) (int64, error) {
	n, ok := args[i].(types.IntValue)
	if !ok {
		return 0, argTypeError(p, name, i, args[i], "int")
	}
	return n.Val, nil
}

func listArg(p *eval.Processor, name string, args []types.Value, i int) (types.ListValue, error) {
	l, ok := args[i].(types.ListValue)
	if !ok {
		return types.ListValue{}, argTypeError(p, name, i, args[i], "list")
	}
	return l, nil
}

func mapArg(p *eval.Processor, name string, args []types.Value, i int) (types.MapValue, error) {
	m, ok := args[i].(types.MapValue)
	if !ok {
		return types.MapValue{}, argTypeError(p, name, i, args[i], "map")
	}
	return m, nil
}
