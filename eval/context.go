package eval

import "tram/types"

// CommandContext is the record of one activation of a scoped command:
// created by Enter, consumed by leave.
type CommandContext struct {
	Command Command
	Env     *Environment
	Depth   int            // value stack depth at entry
	Caught  *LangError     // exception being handled, for rethrow
	State   any            // per-activation loop state
	Frame   *Frame         // set for function-like activations
	Loc     types.Location // where the activation was entered
}

// isFunction reports whether the context is a procedure or module activation
func (c *CommandContext) isFunction() bool {
	return c.Command.scope() == scopeFunction
}
