package eval

import (
	"fmt"
	"strings"

	"tram/types"
)

// Procedure is a closure: a body plus the environment it was defined in.
// Procedures are immutable once created.
type Procedure struct {
	Name     string
	QualName string
	Params   []string
	Vararg   bool // the last parameter collects surplus arguments as a list
	Bound    []string
	Body     []Command
	Env      *Environment
	Pos      types.Location
}

func (f *Procedure) Type() types.TypeCode { return types.TYPE_PROC }

func (f *Procedure) String() string { return "<procedure " + f.QualName + ">" }

func (f *Procedure) Equal(other types.Value) bool {
	o, ok := other.(*Procedure)
	return ok && o == f
}

func (f *Procedure) Truthy() bool { return true }

// bind creates the activation environment for args
func (f *Procedure) bind(p *Processor, args []types.Value, loc types.Location) (*Environment, error) {
	if err := checkArity(p, f.Name, len(f.Params), f.Vararg, len(args), loc); err != nil {
		return nil, err
	}
	env := NewEnvironment(f.Env)
	for _, name := range f.Bound {
		env.DefineAt(name, types.Null, f.QualName+"."+name, f.Pos)
	}
	fixed := len(f.Params)
	if f.Vararg {
		fixed--
		rest := make([]types.Value, len(args)-fixed)
		copy(rest, args[fixed:])
		env.DefineAt(f.Params[fixed], types.NewList(rest), f.QualName+"."+f.Params[fixed], f.Pos)
	}
	for i := 0; i < fixed; i++ {
		env.DefineAt(f.Params[i], args[i], f.QualName+"."+f.Params[i], f.Pos)
	}
	return env, nil
}

// checkArity reports a positional argument count mismatch as a TypeError:
// "f() takes 2 positional arguments but 3 were given"
func checkArity(p *Processor, name string, params int, vararg bool, given int, loc types.Location) error {
	if vararg {
		if min := params - 1; given < min {
			return p.NewError(p.Classes.TypeError, loc, "%s() takes at least %d positional %s but %d %s given",
				name, min, types.Plural(min, "argument", "arguments"), given, types.Plural(given, "was", "were"))
		}
		return nil
	}
	if given != params {
		return p.NewError(p.Classes.TypeError, loc, "%s() takes %d positional %s but %d %s given",
			name, params, types.Plural(params, "argument", "arguments"), given, types.Plural(given, "was", "were"))
	}
	return nil
}

func paramString(params []string, vararg bool) string {
	parts := make([]string, len(params))
	copy(parts, params)
	if vararg && len(parts) > 0 {
		parts[len(parts)-1] = "*" + parts[len(parts)-1]
	}
	return strings.Join(parts, ", ")
}

// Function defines a named procedure in the current scope
type Function struct {
	defaults
	Pos    types.Location
	Name   string
	Params []string
	Vararg bool
	Bound  []string
	Body   []Command
}

func (n *Function) Kind() string        { return "function" }
func (n *Function) Loc() types.Location { return n.Pos }

func (n *Function) String() string {
	return fmt.Sprintf("function %s(%s) %s", n.Name, paramString(n.Params, n.Vararg), blockString(n.Body))
}

func (n *Function) Expand(p *Processor) error {
	qual := p.qualify(n.Name)
	proc := &Procedure{
		Name:     n.Name,
		QualName: qual,
		Params:   n.Params,
		Vararg:   n.Vararg,
		Bound:    n.Bound,
		Body:     n.Body,
		Env:      p.Env(),
		Pos:      n.Pos,
	}
	p.Env().DefineAt(n.Name, proc, qual, n.Pos)
	p.acc = proc
	return nil
}

func (n *Function) subst(s *substitution) Command {
	return &Function{Pos: s.loc, Name: n.Name, Params: n.Params, Vararg: n.Vararg, Bound: n.Bound, Body: substAll(n.Body, s)}
}

// Lambda is an anonymous procedure whose body is a single expression
type Lambda struct {
	defaults
	Pos    types.Location
	Params []string
	Vararg bool
	Body   Command
}

func (n *Lambda) Kind() string        { return "lambda" }
func (n *Lambda) Loc() types.Location { return n.Pos }

func (n *Lambda) String() string {
	return fmt.Sprintf("lambda(%s) %s", paramString(n.Params, n.Vararg), n.Body)
}

func (n *Lambda) Expand(p *Processor) error {
	p.acc = &Procedure{
		Name:     "<lambda>",
		QualName: p.qualify("<lambda>"),
		Params:   n.Params,
		Vararg:   n.Vararg,
		Body:     []Command{&Return{Pos: n.Body.Loc(), Value: n.Body}},
		Env:      p.Env(),
		Pos:      n.Pos,
	}
	return nil
}

func (n *Lambda) subst(s *substitution) Command {
	return &Lambda{Pos: s.loc, Params: n.Params, Vararg: n.Vararg, Body: n.Body.subst(s)}
}

// Call evaluates Fn and Args left to right, then invokes the callee
type Call struct {
	defaults
	Pos  types.Location
	Fn   Command
	Args []Command
}

func (n *Call) Kind() string        { return "call" }
func (n *Call) Loc() types.Location { return n.Pos }
func (n *Call) String() string      { return fmt.Sprintf("%s(%s)", n.Fn, joinCommands(n.Args, ", ")) }

func (n *Call) Expand(p *Processor) error {
	items := evalInto(append([]Command{n.Fn}, n.Args...))
	items = append(items, Thunk(func(p *Processor) error {
		vals, err := p.popN(len(n.Args) + 1)
		if err != nil {
			return err
		}
		return p.invoke(vals[0], vals[1:], n.Pos)
	}))
	p.pushFront(items...)
	return nil
}

func (n *Call) subst(s *substitution) Command {
	return &Call{Pos: s.loc, Fn: n.Fn.subst(s), Args: substAll(n.Args, s)}
}

// CallValue builds a command that calls fn with already evaluated
// arguments. Externals return it to call back into language code.
func CallValue(loc types.Location, fn types.Value, args ...types.Value) Command {
	consts := make([]Command, len(args))
	for i, a := range args {
		consts[i] = &Const{Pos: loc, Value: a}
	}
	return &Call{Pos: loc, Fn: &Const{Pos: loc, Value: fn}, Args: consts}
}

func (p *Processor) invoke(fn types.Value, args []types.Value, loc types.Location) error {
	switch f := fn.(type) {
	case *Procedure:
		env, err := f.bind(p, args, loc)
		if err != nil {
			return err
		}
		p.pushFront(Node(&activation{proc: f, env: env, args: args, pos: loc}))
		return nil
	case *External:
		return p.callExternal(f, args, loc)
	case *ExceptionClass:
		if len(args) > 1 {
			return p.NewError(p.Classes.TypeError, loc, "%s() takes at most 1 argument but %d were given", f.Name, len(args))
		}
		e := &LangError{Class: f, Location: loc}
		if len(args) == 1 {
			e.Message = types.Display(args[0])
		}
		p.acc = e
		return nil
	}
	return p.NewError(p.Classes.TypeError, loc, "'%s' object is not callable", p.TypeOf(fn))
}

// activation is one running call of a procedure
type activation struct {
	defaults
	proc *Procedure
	env  *Environment
	args []types.Value
	pos  types.Location
}

func (a *activation) Kind() string        { return a.proc.Name }
func (a *activation) Loc() types.Location { return a.pos }
func (a *activation) String() string      { return a.proc.QualName + "()" }
func (a *activation) scope() scopeKind    { return scopeFunction }

func (a *activation) Expand(p *Processor) error {
	ctx, err := p.Enter(a, a.env)
	if err != nil {
		return err
	}
	ctx.Frame = &Frame{Name: a.proc.QualName, Location: a.pos}
	if p.tracer != nil {
		p.tracer.Call(a.proc.QualName, a.args, a.pos.String())
	}
	items := make([]Item, 0, len(a.proc.Body)+2)
	items = append(items, Nodes(a.proc.Body)...)
	items = append(items, Value(types.Null), newFinalizer(ctx, nil))
	p.pushFront(items...)
	return nil
}

func (a *activation) Leave(p *Processor, f *Finalizer) error {
	if p.tracer != nil {
		if f.state.Kind == EventException {
			p.tracer.Exception(a.proc.QualName, f.state.Err.Error())
		} else {
			p.tracer.Return(a.proc.QualName, p.acc)
		}
	}
	return p.leave(f.ctx)
}

func (a *activation) subst(*substitution) Command { return a }

// External is a host function exposed as a language value
type External struct {
	Name string
	Fn   ExternalFunc
}

func (e *External) Type() types.TypeCode { return types.TYPE_EXTERNAL }

func (e *External) String() string { return "<external " + e.Name + ">" }

func (e *External) Equal(other types.Value) bool {
	o, ok := other.(*External)
	return ok && o == e
}

func (e *External) Truthy() bool { return true }

func (p *Processor) callExternal(ext *External, args []types.Value, loc types.Location) error {
	if p.tracer != nil {
		p.tracer.Call(ext.Name, args, loc.String())
	}
	res, err := ext.Fn(p, args)
	if err != nil {
		switch e := err.(type) {
		case *LangError:
			return e.raisedAt(loc)
		case *ProcessorError:
			return e
		}
		return p.NewError(p.Classes.RuntimeError, loc, "%s: %v", ext.Name, err)
	}
	switch r := res.(type) {
	case nil:
		p.acc = types.Null
	case types.Value:
		p.pushFront(Value(r))
	case Command:
		p.pushFront(Node(r))
	case Item:
		p.pushFront(r)
	default:
		return p.fatalf("external %s returned unsupported %T", ext.Name, res)
	}
	return nil
}

// ExternalCall calls a registered host function by name
type ExternalCall struct {
	defaults
	Pos  types.Location
	Name string
	Args []Command
}

func (n *ExternalCall) Kind() string        { return "external" }
func (n *ExternalCall) Loc() types.Location { return n.Pos }

func (n *ExternalCall) String() string {
	return fmt.Sprintf("$%s(%s)", n.Name, joinCommands(n.Args, ", "))
}

func (n *ExternalCall) Expand(p *Processor) error {
	ext, ok := p.externals[n.Name]
	if !ok {
		return p.NewError(p.Classes.NameError, n.Pos, "external '%s' is not registered", n.Name)
	}
	items := evalInto(n.Args)
	items = append(items, Thunk(func(p *Processor) error {
		args, err := p.popN(len(n.Args))
		if err != nil {
			return err
		}
		return p.callExternal(ext, args, n.Pos)
	}))
	p.pushFront(items...)
	return nil
}

func (n *ExternalCall) subst(s *substitution) Command {
	return &ExternalCall{Pos: s.loc, Name: n.Name, Args: substAll(n.Args, s)}
}
