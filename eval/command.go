package eval

import (
	"strings"

	"tram/types"
)

// Command is the unit of execution. Every control construct and operator
// is a Command; trees are built once by a front end and never mutated.
//
// Scoped commands call Processor.Enter from Expand and queue a Finalizer
// as their last item. Leave, FindExceptionHandler and DoContinue are only
// reached through that finalizer; commands that introduce no scope keep
// the defaults.
type Command interface {
	Kind() string
	Loc() types.Location
	String() string
	Expand(p *Processor) error
	Leave(p *Processor, f *Finalizer) error
	FindExceptionHandler(ctx *CommandContext, err *LangError) Command
	DoContinue(p *Processor, f *Finalizer) error

	scope() scopeKind
	subst(s *substitution) Command
}

type scopeKind int

const (
	scopeBlock scopeKind = iota
	scopeLoop
	scopeFunction
)

// defaults supplies the protocol methods of commands without teardown
type defaults struct{}

func (defaults) Leave(p *Processor, f *Finalizer) error {
	return p.leave(f.ctx)
}

func (defaults) FindExceptionHandler(*CommandContext, *LangError) Command {
	return nil
}

func (defaults) DoContinue(p *Processor, f *Finalizer) error {
	return p.fatalf("continue routed to a command that is not a loop")
}

func (defaults) scope() scopeKind {
	return scopeBlock
}

// substitution carries a macro expansion: parameter names mapped to the
// argument trees, and the call-site location stamped on every rebuilt node
type substitution struct {
	params map[string]Command
	loc    types.Location
}

func substAll(cmds []Command, s *substitution) []Command {
	if cmds == nil {
		return nil
	}
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.subst(s)
	}
	return out
}

func substOpt(c Command, s *substitution) Command {
	if c == nil {
		return nil
	}
	return c.subst(s)
}

func joinCommands(cmds []Command, sep string) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.String()
	}
	return strings.Join(parts, sep)
}

func blockString(cmds []Command) string {
	if len(cmds) == 0 {
		return "{ }"
	}
	return "{ " + joinCommands(cmds, "; ") + " }"
}
