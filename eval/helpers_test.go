package eval

import (
	"errors"
	"testing"

	"tram/types"
)

// Small constructors that keep test trees readable

func num(n int64) Command { return &Const{Value: types.NewInt(n)} }
func flt(x float64) Command { return &Const{Value: types.NewFloat(x)} }
func str(s string) Command { return &Const{Value: types.NewStr(s)} }
func boolean(b bool) Command { return &Const{Value: types.NewBool(b)} }
func get(name string) Command { return &GetVar{Name: name} }
func ret(v Command) Command { return &Return{Value: v} }
func throw(v Command) Command { return &Throw{Value: v} }
func printc(args ...Command) Command { return &Print{Args: args} }

func set(name string, v Command) Command {
	return &SetVar{Name: name, Value: v}
}

func incr(name string, v Command) Command {
	return &SetVar{Name: name, Op: "+", Value: v}
}

func bin(op string, l, r Command) Command {
	return &Binary{Op: op, Left: l, Right: r}
}

func call(fn Command, args ...Command) Command {
	return &Call{Fn: fn, Args: args}
}

func fn(name string, params []string, body ...Command) Command {
	return &Function{Name: name, Params: params, Body: body}
}

func list(elems ...Command) Command {
	return &ListLit{Elems: elems}
}

func iff(cond Command, then ...Command) *If {
	return &If{Cond: cond, Then: then}
}

// raise builds "throw Class(msg)"
func raise(class, msg string) Command {
	return throw(call(get(class), str(msg)))
}

func catch(classes []string, v string, body ...Command) *Catch {
	return &Catch{Classes: classes, Var: v, Body: body}
}

// testProcessor returns a processor whose print output is collected
func testProcessor(opts *Options) (*Processor, *[]string) {
	if opts == nil {
		opts = DefaultOptions()
	}
	var out []string
	opts.Print = func(text string) { out = append(out, text) }
	return NewProcessor(opts), &out
}

// mustEval runs cmds and fails the test on any error. It also checks
// that a completed run leaves both stacks empty.
func mustEval(t *testing.T, p *Processor, cmds ...Command) types.Value {
	t.Helper()
	v, err := p.Eval(cmds...)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if p.Depth() != 0 || p.ContextDepth() != 0 {
		t.Fatalf("unbalanced stacks after run:\n%s", p.Dump())
	}
	return v
}

// uncaught runs cmds expecting an exception to escape, and returns it
func uncaught(t *testing.T, p *Processor, cmds ...Command) *LangError {
	t.Helper()
	_, err := p.Eval(cmds...)
	if err == nil {
		t.Fatal("expected an uncaught exception")
	}
	var pe *ProcessorError
	if !errors.As(err, &pe) || pe.Msg != "uncaught exception" {
		t.Fatalf("expected uncaught exception, got %v", err)
	}
	var le *LangError
	if !errors.As(err, &le) {
		t.Fatalf("uncaught exception carries no language error: %v", err)
	}
	return le
}
