package builtins

import (
	"os"
	"time"

	"tram/eval"
	"tram/types"
)

// ============================================================================
// SYSTEM BUILTINS
// ============================================================================

// builtinGetenv implements getenv(name)
// Returns the environment variable value, or null if it is not set
func builtinGetenv(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "getenv", args, 1, 1); err != nil {
		return nil, err
	}
	name, err := strArg(p, "getenv", args, 0)
	if err != nil {
		return nil, err
	}
	value, exists := os.LookupEnv(name)
	if !exists {
		return types.Null, nil
	}
	return types.NewStr(value), nil
}

// builtinTime implements time()
// Returns seconds since the Unix epoch
func builtinTime(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "time", args, 0, 0); err != nil {
		return nil, err
	}
	return types.NewInt(time.Now().Unix()), nil
}

// builtinFtime implements ftime()
// Returns seconds since the Unix epoch with sub-second precision
func builtinFtime(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "ftime", args, 0, 0); err != nil {
		return nil, err
	}
	now := time.Now()
	return types.NewFloat(float64(now.UnixNano()) / float64(time.Second)), nil
}

// builtinModuleState implements module_state(module)
// The argument is a module value or its qualified name. Returns one of
// "init", "initialized" or "error".
func builtinModuleState(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "module_state", args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *eval.Module:
		return types.NewStr(v.State.String()), nil
	case types.StrValue:
		m, ok := p.Module(v.Value())
		if !ok {
			return nil, p.NewError(p.Classes.NameError, types.Internal, "module '%s' is not defined", v.Value())
		}
		return types.NewStr(m.State.String()), nil
	default:
		return nil, argTypeError(p, "module_state", 0, args[0], "module or str")
	}
}

// builtinRaise implements raise(class [, message])
// Raises a new exception of class from host code; the location is the call site
func builtinRaise(p *eval.Processor, args []types.Value) (any, error) {
	if err := checkArgs(p, "raise", args, 1, 2); err != nil {
		return nil, err
	}
	class, ok := args[0].(*eval.ExceptionClass)
	if !ok {
		return nil, argTypeError(p, "raise", 0, args[0], "class")
	}
	msg := ""
	if len(args) == 2 {
		msg = types.Display(args[1])
	}
	return nil, &eval.LangError{Class: class, Message: msg, Location: types.Internal}
}
