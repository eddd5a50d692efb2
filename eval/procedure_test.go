package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"tram/types"
)

func TestProcedures(t *testing.T) {
	tests := []struct {
		name string
		cmds []Command
		want string
	}{
		{
			name: "return_value",
			cmds: []Command{
				fn("add", []string{"a", "b"}, ret(bin("+", get("a"), get("b")))),
				call(get("add"), num(2), num(3)),
			},
			want: "5",
		},
		{
			name: "no_return_is_null",
			cmds: []Command{fn("f", nil, num(1)), call(get("f"))},
			want: "null",
		},
		{
			name: "bare_return_is_null",
			cmds: []Command{fn("f", nil, &Return{}, num(1)), call(get("f"))},
			want: "null",
		},
		{
			name: "vararg_collects_rest",
			cmds: []Command{
				&Function{Name: "g", Params: []string{"a", "rest"}, Vararg: true, Body: []Command{ret(get("rest"))}},
				call(get("g"), num(1), num(2), num(3)),
			},
			want: "[2, 3]",
		},
		{
			name: "vararg_may_be_empty",
			cmds: []Command{
				&Function{Name: "g", Params: []string{"a", "rest"}, Vararg: true, Body: []Command{ret(get("rest"))}},
				call(get("g"), num(1)),
			},
			want: "[]",
		},
		{
			name: "closure_captures_defining_scope",
			cmds: []Command{
				fn("adder", []string{"n"}, ret(&Lambda{Params: []string{"x"}, Body: bin("+", get("x"), get("n"))})),
				set("add10", call(get("adder"), num(10))),
				call(get("add10"), num(5)),
			},
			want: "15",
		},
		{
			name: "locals_do_not_leak",
			cmds: []Command{
				set("x", num(1)),
				fn("f", nil, set("x", num(2))),
				call(get("f")),
				get("x"),
			},
			want: "1",
		},
		{
			name: "recursion",
			cmds: []Command{
				fn("fact", []string{"n"},
					iff(bin("<=", get("n"), num(1)), ret(num(1))),
					ret(bin("*", get("n"), call(get("fact"), bin("-", get("n"), num(1))))),
				),
				call(get("fact"), num(10)),
			},
			want: "3628800",
		},
		{
			name: "return_exits_loop",
			cmds: []Command{
				fn("first_even", []string{"xs"},
					&ForEach{Var: "x", Iter: get("xs"), Body: []Command{
						iff(bin("==", bin("%", get("x"), num(2)), num(0)), ret(get("x"))),
					}},
					ret(num(-1)),
				),
				call(get("first_even"), list(num(3), num(8), num(6))),
			},
			want: "8",
		},
		{
			name: "nested_names_are_qualified",
			cmds: []Command{
				fn("outer", nil, fn("inner", nil), ret(get("inner"))),
				call(get("outer")),
			},
			want: "<procedure outer.inner>",
		},
		{
			name: "exception_class_call_builds_instance",
			cmds: []Command{&Attr{Object: call(get("ValueError"), num(42)), Name: "message"}},
			want: `"42"`,
		},
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

func TestArityErrors(t *testing.T) {
	tests := []struct {
		name string
		def  Command
		args []Command
		want string
	}{
		{
			name: "too_few_plural",
			def:  fn("f", []string{"a", "b"}),
			args: []Command{num(1)},
			want: "f() takes 2 positional arguments but 1 was given",
		},
		{
			name: "too_many_singular",
			def:  fn("f", []string{"a"}),
			args: []Command{num(1), num(2)},
			want: "f() takes 1 positional argument but 2 were given",
		},
		{
			name: "none_expected",
			def:  fn("f", nil),
			args: []Command{num(1)},
			want: "f() takes 0 positional arguments but 1 was given",
		},
		{
			name: "vararg_minimum",
			def:  &Function{Name: "f", Params: []string{"a", "rest"}, Vararg: true},
			args: nil,
			want: "f() takes at least 1 positional argument but 0 were given",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := testProcessor(nil)
			le := uncaught(t, p, tt.def, call(get("f"), tt.args...))
			if le.Class != p.Classes.TypeError {
				t.Errorf("class = %s, want TypeError", le.Class.Name)
			}
			if diff := cmp.Diff(tt.want, le.Message); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExceptionClassCallArity(t *testing.T) {
	p, _ := testProcessor(nil)
	le := uncaught(t, p, call(get("ValueError"), num(1), num(2)))
	if le.Message != "ValueError() takes at most 1 argument but 2 were given" {
		t.Errorf("message = %q", le.Message)
	}
}

func TestCallValueFromHost(t *testing.T) {
	p, _ := testProcessor(nil)
	mustEval(t, p, fn("sq", []string{"x"}, ret(bin("*", get("x"), get("x")))))
	sq, err := p.Globals().Lookup("sq")
	if err != nil {
		t.Fatal(err)
	}
	got := mustEval(t, p, CallValue(types.Internal, sq, types.NewInt(7)))
	if !got.Equal(types.NewInt(49)) {
		t.Errorf("sq(7) = %s", got)
	}
}

func TestEnvironmentMetadata(t *testing.T) {
	p, _ := testProcessor(nil)
	loc := types.Location{File: "defs.yaml", Line: 4}
	mustEval(t, p, &SetVar{Pos: loc, Name: "x", Value: num(1)}, set("x", num(2)))

	b, ok := p.Globals().Meta("x")
	if !ok {
		t.Fatal("no metadata for x")
	}
	// metadata records the first definition only
	if b.Location != loc || b.QualName != "x" {
		t.Errorf("binding = %+v", b)
	}
	v, _ := p.Globals().LookupLocal("x")
	if !v.Equal(types.NewInt(2)) {
		t.Errorf("x = %s", v)
	}
}
