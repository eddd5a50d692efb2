package eval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tram/trace"
	"tram/types"
)

func TestEvalResults(t *testing.T) {
	tests := []struct {
		name string
		cmds []Command
		want string
	}{
		{"const", []Command{num(1)}, "1"},
		{"assign_and_read", []Command{set("x", num(2)), bin("*", get("x"), num(3))}, "6"},
		{"augmented_assign", []Command{set("x", num(1)), incr("x", num(2)), get("x")}, "3"},
		{"if_else", []Command{&If{Cond: boolean(false), Then: []Command{num(1)}, Else: []Command{num(2)}}}, "2"},
		{"if_without_else", []Command{iff(boolean(false), num(1))}, "null"},
		{"empty_block", []Command{&Block{}}, "null"},
		{"block_value_is_last", []Command{&Block{Body: []Command{num(1), num(2)}}}, "2"},
		{"scoped_block_shadows", []Command{
			set("x", num(1)),
			&Block{Scoped: true, Body: []Command{set("x", num(2))}},
			get("x"),
		}, "1"},
		{"plain_block_shares_scope", []Command{
			set("x", num(1)),
			&Block{Body: []Command{set("x", num(2))}},
			get("x"),
		}, "2"},
		{"negative_index", []Command{&Index{Object: list(num(1), num(2), num(3)), Key: num(-1)}}, "3"},
		{"string_index", []Command{&Index{Object: str("héllo"), Key: num(1)}}, `"é"`},
		{"map_literal", []Command{&Index{
			Object: &MapLit{Keys: []Command{str("a")}, Values: []Command{num(1)}},
			Key:    str("a"),
		}}, "1"},
		{"set_index", []Command{
			set("xs", list(num(1), num(2))),
			&SetIndex{Name: "xs", Key: num(0), Value: num(9)},
			get("xs"),
		}, "[9, 2]"},
		{"single_tuple", []Command{&TupleLit{Elems: []Command{num(1)}}}, "(1,)"},
		{"and_short_circuits", []Command{&And{Left: boolean(false), Right: get("undefined")}}, "false"},
		{"or_short_circuits", []Command{&Or{Left: num(7), Right: get("undefined")}}, "7"},
		{"assert_passes", []Command{&Assert{Cond: boolean(true)}}, "null"},
		{"class_attribute", []Command{&Attr{Object: get("KeyError"), Name: "base"}}, "<class LookupError>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := testProcessor(nil)
			got := mustEval(t, p, tt.cmds...)
			if diff := cmp.Diff(tt.want, got.String()); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLanguageErrors(t *testing.T) {
	tests := []struct {
		name  string
		cmds  []Command
		class string
		msg   string
	}{
		{"undefined_name", []Command{get("nope")}, "NameError", "name 'nope' is not defined"},
		{"unset_removes", []Command{set("x", num(1)), &Unset{Name: "x"}, get("x")}, "NameError", "name 'x' is not defined"},
		{"unset_missing", []Command{&Unset{Name: "x"}}, "NameError", "name 'x' is not defined"},
		{"index_out_of_range", []Command{&Index{Object: list(num(1)), Key: num(5)}}, "IndexError", "list index out of range"},
		{"missing_key", []Command{&Index{Object: &MapLit{}, Key: str("k")}}, "KeyError", `"k"`},
		{"not_subscriptable", []Command{&Index{Object: num(1), Key: num(0)}}, "TypeError", "'int' object is not subscriptable"},
		{"bad_operand", []Command{bin("+", num(1), str("a"))}, "TypeError", "2nd operand of '+' must be int or float, not str"},
		{"division_by_zero", []Command{bin("/", num(1), num(0))}, "ZeroDivisionError", "division by zero"},
		{"not_callable", []Command{call(num(1))}, "TypeError", "'int' object is not callable"},
		{"assert_message", []Command{&Assert{Cond: boolean(false), Message: str("boom")}}, "AssertionError", "boom"},
		{"throw_non_exception", []Command{throw(num(1))}, "TypeError", "exceptions must be classes or instances, not int"},
		{"rethrow_outside_handler", []Command{&Rethrow{}}, "RuntimeError", "no active exception to rethrow"},
		{"not_iterable", []Command{&ForEach{Var: "x", Iter: num(1)}}, "TypeError", "'int' object is not iterable"},
		{"no_attribute", []Command{&Attr{Object: num(1), Name: "x"}}, "AttributeError", "'int' object has no attribute 'x'"},
		{"unknown_operator", []Command{bin("<>", num(1), num(2))}, "SyntaxError", "unknown binary operator '<>'"},
		{"unregistered_external", []Command{&ExternalCall{Name: "nope"}}, "NameError", "external 'nope' is not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := testProcessor(nil)
			le := uncaught(t, p, tt.cmds...)
			if le.Class.Name != tt.class {
				t.Errorf("class = %s, want %s", le.Class.Name, tt.class)
			}
			if diff := cmp.Diff(tt.msg, le.Message); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
			if p.Depth() != 0 || p.ContextDepth() != 0 {
				t.Errorf("stacks not reset after fatal error:\n%s", p.Dump())
			}
		})
	}
}

func TestErrorCarriesLocation(t *testing.T) {
	p, _ := testProcessor(nil)
	loc := types.Location{File: "calc.yaml", Line: 3, Column: 5}
	le := uncaught(t, p, &Binary{Pos: loc, Op: "//", Left: num(1), Right: num(0)})
	if le.Location != loc {
		t.Errorf("location = %s, want %s", le.Location, loc)
	}
	if le.Message != "integer division or modulo by zero" {
		t.Errorf("message = %q", le.Message)
	}
}

func TestEventsEscapingTopLevel(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"return", ret(num(1)), "'return' outside function"},
		{"break", &Break{}, "'break' outside loop"},
		{"continue", &Continue{}, "'continue' not properly in loop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := testProcessor(nil)
			_, err := p.Eval(tt.cmd, printc(str("unreachable")))
			var pe *ProcessorError
			if !errors.As(err, &pe) {
				t.Fatalf("expected a processor error, got %v", err)
			}
			if pe.Msg != tt.want {
				t.Errorf("message = %q, want %q", pe.Msg, tt.want)
			}
			if len(*out) != 0 {
				t.Errorf("commands after the event ran: %v", *out)
			}
		})
	}
}

func TestUncaughtExceptionTraceback(t *testing.T) {
	p, _ := testProcessor(nil)
	le := uncaught(t, p,
		fn("inner", nil, raise("ValueError", "deep")),
		fn("outer", nil, call(get("inner"))),
		call(get("outer")),
	)
	var names []string
	for _, f := range le.Traceback {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"outer", "inner"}, names); diff != "" {
		t.Errorf("traceback mismatch (-want +got):\n%s", diff)
	}
	if le.Error() != "ValueError: deep" {
		t.Errorf("Error() = %q", le.Error())
	}
}

func TestRecursionLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 50
	p, _ := testProcessor(opts)
	le := uncaught(t, p,
		fn("f", nil, ret(call(get("f")))),
		call(get("f")),
	)
	if le.Class != p.Classes.RecursionError {
		t.Fatalf("class = %s, want RecursionError", le.Class.Name)
	}
	if !errors.Is(le, p.Classes.RuntimeError) {
		t.Error("RecursionError should derive from RuntimeError")
	}
	if p.ContextDepth() != 0 {
		t.Errorf("context stack not unwound: %d", p.ContextDepth())
	}

	// a recursion error is catchable like any other exception
	got := mustEval(t, p, &Try{
		Body:    []Command{call(get("f"))},
		Catches: []*Catch{catch([]string{"RecursionError"}, "", str("caught"))},
	})
	if !got.Equal(types.NewStr("caught")) {
		t.Errorf("got %s", got)
	}
}

func TestTickLimitIsFatal(t *testing.T) {
	opts := DefaultOptions()
	opts.TickLimit = 500
	p, out := testProcessor(opts)
	_, err := p.Eval(&Try{
		Body:    []Command{&While{Cond: boolean(true)}},
		Finally: []Command{printc(str("finally"))},
	})
	var pe *ProcessorError
	if !errors.As(err, &pe) || pe.Msg != "tick limit of 500 exceeded" {
		t.Fatalf("expected tick limit error, got %v", err)
	}
	if len(*out) != 0 {
		t.Errorf("finally code ran after a fatal error: %v", *out)
	}
	if p.Depth() != 0 || p.ContextDepth() != 0 {
		t.Errorf("stacks not reset:\n%s", p.Dump())
	}
}

func TestRunContextCancellation(t *testing.T) {
	p, out := testProcessor(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.RegisterExternal("cancel", func(*Processor, []types.Value) (any, error) {
		cancel()
		return nil, nil
	})

	err := p.RunContext(ctx, Nodes([]Command{
		&Try{
			Body: []Command{
				&ExternalCall{Name: "cancel"},
				&While{Cond: boolean(true)},
			},
			Finally: []Command{printc(str("cleanup"))},
		},
		printc(str("after")),
	})...)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if diff := cmp.Diff([]string{"cleanup"}, *out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if p.Depth() != 0 || p.ContextDepth() != 0 {
		t.Errorf("stacks not balanced after cleanup:\n%s", p.Dump())
	}
}

func TestCleanupDropsPendingOperands(t *testing.T) {
	stop := func(cancel context.CancelFunc) ExternalFunc {
		return func(p *Processor, _ []types.Value) (any, error) {
			if cancel != nil {
				cancel()
				return nil, nil
			}
			return nil, p.Abort()
		}
	}

	t.Run("cancel", func(t *testing.T) {
		p, _ := testProcessor(nil)
		mustEval(t, p, fn("f", []string{"a", "b"}, ret(get("a"))))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.RegisterExternal("stop", stop(cancel))

		err := p.RunContext(ctx, Node(call(get("f"), num(1), &ExternalCall{Name: "stop"})))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
		if p.Depth() != 0 || p.ContextDepth() != 0 {
			t.Errorf("operands left behind:\n%s", p.Dump())
		}
	})

	t.Run("abort", func(t *testing.T) {
		p, _ := testProcessor(nil)
		mustEval(t, p, fn("f", []string{"a", "b"}, ret(get("a"))))
		p.RegisterExternal("stop", stop(nil))

		if err := p.Run(Node(call(get("f"), num(1), &ExternalCall{Name: "stop"}))); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if p.Depth() != 0 || p.ContextDepth() != 0 {
			t.Errorf("operands left behind:\n%s", p.Dump())
		}

		// the processor stays usable
		if got := mustEval(t, p, call(get("f"), num(7), num(8))); !got.Equal(types.NewInt(7)) {
			t.Errorf("f(7, 8) = %s", got)
		}
	})
}

func TestAbortRunsFinallyAndDiscardsRest(t *testing.T) {
	p, out := testProcessor(nil)
	p.RegisterExternal("abort", func(p *Processor, _ []types.Value) (any, error) {
		return nil, p.Abort()
	})

	v := mustEval(t, p,
		&Try{
			Body:    []Command{&ExternalCall{Name: "abort"}, printc(str("body"))},
			Finally: []Command{printc(str("finally"))},
		},
		printc(str("after")),
	)
	if diff := cmp.Diff([]string{"finally"}, *out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if !types.IsNull(v) {
		t.Errorf("aborted run should leave null, got %s", v)
	}
	if p.Depth() != 0 || p.ContextDepth() != 0 {
		t.Errorf("stacks not balanced after abort:\n%s", p.Dump())
	}

	// with nothing queued, Abort is a no-op
	if err := p.Abort(); err != nil {
		t.Errorf("idle Abort: %v", err)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name  string
		cmd   Command
		kind  EventKind
		value string
	}{
		{"normal", num(3), EventNone, "3"},
		{"return", ret(num(5)), EventReturn, "5"},
		{"break", &Break{}, EventBreak, ""},
		{"exception", raise("KeyError", "k"), EventException, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := testProcessor(nil)
			ev, acc, err := p.Probe(tt.cmd)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if ev.Kind != tt.kind {
				t.Errorf("event = %s, want %s", ev.Kind, tt.kind)
			}
			switch tt.kind {
			case EventNone:
				if acc.String() != tt.value {
					t.Errorf("acc = %s, want %s", acc, tt.value)
				}
			case EventReturn:
				if ev.Value.String() != tt.value {
					t.Errorf("returned %s, want %s", ev.Value, tt.value)
				}
			case EventException:
				if ev.Err.Class != p.Classes.KeyError {
					t.Errorf("caught %v", ev.Err)
				}
			}
			if p.ContextDepth() != 0 {
				t.Errorf("probe left %d contexts", p.ContextDepth())
			}
		})
	}
}

func TestExternalResults(t *testing.T) {
	p, _ := testProcessor(nil)
	p.RegisterExternal("nothing", func(*Processor, []types.Value) (any, error) {
		return nil, nil
	})
	p.RegisterExternal("double", func(_ *Processor, args []types.Value) (any, error) {
		// hand back a command; it runs on the queue like any other node
		return &Binary{Op: "*", Left: &Const{Value: args[0]}, Right: num(2)}, nil
	})
	p.RegisterExternal("fail", func(*Processor, []types.Value) (any, error) {
		return nil, fmt.Errorf("disk full")
	})
	p.RegisterExternal("fatal", func(*Processor, []types.Value) (any, error) {
		return nil, &ProcessorError{Msg: "host gave up"}
	})
	p.RegisterExternal("reenter", func(p *Processor, _ []types.Value) (any, error) {
		return nil, p.Run()
	})

	if v := mustEval(t, p, &ExternalCall{Name: "nothing"}); !types.IsNull(v) {
		t.Errorf("nothing() = %s", v)
	}
	if v := mustEval(t, p, call(get("double"), num(21))); !v.Equal(types.NewInt(42)) {
		t.Errorf("double(21) = %s", v)
	}

	loc := types.Location{File: "host.yaml", Line: 9}
	le := uncaught(t, p, &ExternalCall{Pos: loc, Name: "fail"})
	if le.Class != p.Classes.RuntimeError || le.Message != "fail: disk full" || le.Location != loc {
		t.Errorf("fail() raised %v at %s", le, le.Location)
	}

	for name, want := range map[string]string{
		"fatal":   "host gave up",
		"reenter": "processor is already running",
	} {
		_, err := p.Eval(&ExternalCall{Name: name})
		var pe *ProcessorError
		if !errors.As(err, &pe) || pe.Msg != want {
			t.Errorf("%s(): err = %v, want %q", name, err, want)
		}
	}
}

func TestTracerSeesCallsAndEvents(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Tracer = trace.New(true, nil, &buf)
	p, _ := testProcessor(opts)
	mustEval(t, p,
		fn("add", []string{"a", "b"}, ret(bin("+", get("a"), get("b")))),
		call(get("add"), num(1), num(2)),
	)
	got := buf.String()
	for _, want := range []string{
		"[TRACE] CALL add args=[1, 2]",
		"[TRACE] EVENT return",
		"[TRACE] RETURN add => 3",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("trace missing %q:\n%s", want, got)
		}
	}
}

func TestDumpDescribesState(t *testing.T) {
	p, _ := testProcessor(nil)
	mustEval(t, p, num(4))
	dump := p.Dump()
	for _, want := range []string{"accumulator: 4", "values (0):", "contexts (0):", "queue: 0 items"} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}
