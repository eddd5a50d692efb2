package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"tram/types"
)

func TestTryCatch(t *testing.T) {
	tests := []struct {
		name string
		cmds []Command
		want string
	}{
		{
			name: "body_value_without_exception",
			cmds: []Command{&Try{Body: []Command{num(1)}, Catches: []*Catch{catch(nil, "", num(2))}}},
			want: "1",
		},
		{
			name: "handler_value_replaces_body",
			cmds: []Command{&Try{
				Body:    []Command{raise("ValueError", "bad"), num(1)},
				Catches: []*Catch{catch([]string{"ValueError"}, "e", &Attr{Object: get("e"), Name: "message"})},
			}},
			want: `"bad"`,
		},
		{
			name: "base_class_catches_derived",
			cmds: []Command{&Try{
				Body:    []Command{raise("KeyError", "k")},
				Catches: []*Catch{catch([]string{"LookupError"}, "e", &Attr{Object: get("e"), Name: "class"})},
			}},
			want: "<class KeyError>",
		},
		{
			name: "first_matching_clause_wins",
			cmds: []Command{&Try{
				Body: []Command{raise("IndexError", "")},
				Catches: []*Catch{
					catch([]string{"KeyError"}, "", str("key")),
					catch([]string{"TypeError", "IndexError"}, "", str("index")),
					catch(nil, "", str("any")),
				},
			}},
			want: `"index"`,
		},
		{
			name: "handler_raising_new_class",
			cmds: []Command{&Try{
				Body: []Command{&Try{
					Body:    []Command{raise("ValueError", "a")},
					Catches: []*Catch{catch([]string{"ValueError"}, "", raise("KeyError", "b"))},
				}},
				Catches: []*Catch{
					catch([]string{"ValueError"}, "", str("wrong")),
					catch([]string{"KeyError"}, "e", &Attr{Object: get("e"), Name: "message"}),
				},
			}},
			want: `"b"`,
		},
		{
			name: "rethrow_keeps_original",
			cmds: []Command{&Try{
				Body: []Command{&Try{
					Body:    []Command{raise("ValueError", "x")},
					Catches: []*Catch{catch(nil, "", &Rethrow{})},
				}},
				Catches: []*Catch{catch([]string{"ValueError"}, "e", &Attr{Object: get("e"), Name: "message"})},
			}},
			want: `"x"`,
		},
		{
			name: "user_class_hierarchy",
			cmds: []Command{
				&DefineClass{Name: "AppError"},
				&DefineClass{Name: "DbError", Base: "AppError"},
				&Try{
					Body:    []Command{raise("DbError", "down")},
					Catches: []*Catch{catch([]string{"AppError"}, "e", &Attr{Object: &Attr{Object: get("e"), Name: "class"}, Name: "base"})},
				},
			},
			want: "<class AppError>",
		},
		{
			name: "throw_class_without_call",
			cmds: []Command{&Try{
				Body:    []Command{throw(get("ValueError"))},
				Catches: []*Catch{catch(nil, "e", &Attr{Object: get("e"), Name: "message"})},
			}},
			want: `""`,
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

func TestUnresolvedCatchClassNeverMatches(t *testing.T) {
	p, _ := testProcessor(nil)
	le := uncaught(t, p, &Try{
		Body:    []Command{raise("ValueError", "v")},
		Catches: []*Catch{catch([]string{"NoSuchClass"}, "", str("caught"))},
	})
	if le.Class != p.Classes.ValueError {
		t.Errorf("escaped %v, want the original ValueError", le)
	}
}

func TestThrowStampsItsOwnSite(t *testing.T) {
	at := func(line int) types.Location { return types.Location{File: "raise.yaml", Line: line, Column: 1} }

	p, _ := testProcessor(nil)
	mustEval(t, p,
		set("e", &Call{Pos: at(1), Fn: get("ValueError"), Args: []Command{str("bad")}}),
		&Try{
			Body:    []Command{&Throw{Pos: at(2), Value: get("e")}},
			Catches: []*Catch{catch([]string{"ValueError"}, "", str("caught"))},
		},
	)
	le := uncaught(t, p, &Throw{Pos: at(3), Value: get("e")})
	if le.Location != at(3) {
		t.Errorf("second throw raised at %s, want %s", le.Location, at(3))
	}
	if le.Message != "bad" {
		t.Errorf("message = %q", le.Message)
	}

	held, err := p.Globals().Lookup("e")
	if err != nil {
		t.Fatal(err)
	}
	if loc := held.(*LangError).Location; loc != at(1) {
		t.Errorf("held error moved to %s, want %s", loc, at(1))
	}
}

func TestExternalErrorsAreStampedPerCall(t *testing.T) {
	at := func(line int) types.Location { return types.Location{File: "ext.yaml", Line: line, Column: 1} }

	p, _ := testProcessor(nil)
	shared := &LangError{Class: p.Classes.ValueError, Message: "nope", Location: types.Internal}
	p.RegisterExternal("fail", func(*Processor, []types.Value) (any, error) {
		return nil, shared
	})

	for _, line := range []int{4, 9} {
		le := uncaught(t, p, &ExternalCall{Pos: at(line), Name: "fail"})
		if le.Location != at(line) {
			t.Errorf("raised at %s, want %s", le.Location, at(line))
		}
	}
	if !shared.Location.IsInternal() || shared.Traceback != nil {
		t.Errorf("shared error was modified: %s %v", shared.Location, shared.Traceback)
	}
}

func TestFinallyRunsOnEveryExit(t *testing.T) {
	tests := []struct {
		name string
		cmds []Command
		out  []string
	}{
		{
			name: "normal",
			cmds: []Command{&Try{Body: []Command{printc(str("body"))}, Finally: []Command{printc(str("finally"))}}},
			out:  []string{"body", "finally"},
		},
		{
			name: "caught",
			cmds: []Command{&Try{
				Body:    []Command{raise("ValueError", ""), printc(str("skipped"))},
				Catches: []*Catch{catch(nil, "", printc(str("handler")))},
				Finally: []Command{printc(str("finally"))},
			}},
			out: []string{"handler", "finally"},
		},
		{
			name: "return_from_procedure",
			cmds: []Command{
				fn("f", nil, &Try{
					Body:    []Command{ret(num(1)), printc(str("skipped"))},
					Finally: []Command{printc(str("finally"))},
				}, printc(str("after try"))),
				call(get("f")),
			},
			out: []string{"finally"},
		},
		{
			name: "nested_finally_order",
			cmds: []Command{&Try{
				Body: []Command{&Try{
					Body:    []Command{raise("KeyError", "")},
					Finally: []Command{printc(str("inner"))},
				}},
				Catches: []*Catch{catch(nil, "", printc(str("handler")))},
				Finally: []Command{printc(str("outer"))},
			}},
			out: []string{"inner", "handler", "outer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := testProcessor(nil)
			mustEval(t, p, tt.cmds...)
			if diff := cmp.Diff(tt.out, *out); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFinallyEventOverrides(t *testing.T) {
	p, out := testProcessor(nil)

	got := mustEval(t, p,
		fn("f", nil, &Try{
			Body:    []Command{ret(num(1))},
			Finally: []Command{ret(num(2))},
		}),
		call(get("f")),
	)
	if !got.Equal(types.NewInt(2)) {
		t.Errorf("return in finally should win, got %s", got)
	}

	le := uncaught(t, p, &Try{
		Body:    []Command{raise("ValueError", "first")},
		Finally: []Command{printc(str("finally")), raise("KeyError", "second")},
	})
	if le.Class != p.Classes.KeyError || le.Message != "second" {
		t.Errorf("finally exception should replace the original, got %v", le)
	}

	// a finally that returns swallows the pending exception
	got = mustEval(t, p,
		fn("g", nil, &Try{
			Body:    []Command{raise("ValueError", "lost")},
			Finally: []Command{ret(str("kept"))},
		}),
		call(get("g")),
	)
	if !got.Equal(types.NewStr("kept")) {
		t.Errorf("got %s", got)
	}
	if diff := cmp.Diff([]string{"finally"}, *out); diff != "" {
		t.Errorf("finally should run exactly once (-want +got):\n%s", diff)
	}
}

func TestHandlerEventOverridesOriginal(t *testing.T) {
	p, _ := testProcessor(nil)
	got := mustEval(t, p,
		fn("f", nil, &Try{
			Body:    []Command{raise("ValueError", "")},
			Catches: []*Catch{catch(nil, "", ret(str("from handler")))},
		}, str("not reached")),
		call(get("f")),
	)
	if !got.Equal(types.NewStr("from handler")) {
		t.Errorf("got %s", got)
	}
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name string
		cmds []Command
		want string
	}{
		{
			name: "while_counts",
			cmds: []Command{
				set("i", num(0)),
				&While{Cond: bin("<", get("i"), num(5)), Body: []Command{incr("i", num(1))}},
				get("i"),
			},
			want: "5",
		},
		{
			name: "loop_value_is_null",
			cmds: []Command{&While{Cond: boolean(false)}},
			want: "null",
		},
		{
			name: "do_while_runs_once",
			cmds: []Command{
				set("i", num(10)),
				&DoWhile{Body: []Command{incr("i", num(1))}, Cond: boolean(false)},
				get("i"),
			},
			want: "11",
		},
		{
			name: "foreach_continue_skips",
			cmds: []Command{
				set("total", num(0)),
				&ForEach{Var: "x", Iter: list(num(1), num(2), num(3)), Body: []Command{
					iff(bin("==", get("x"), num(2)), &Continue{}),
					incr("total", get("x")),
				}},
				get("total"),
			},
			want: "4",
		},
		{
			name: "foreach_break_stops",
			cmds: []Command{
				set("seen", list()),
				&ForEach{Var: "c", Iter: str("abcd"), Body: []Command{
					iff(bin("==", get("c"), str("c")), &Break{}),
					incr("seen", list(get("c"))),
				}},
				get("seen"),
			},
			want: `["a", "b"]`,
		},
		{
			name: "foreach_map_keys",
			cmds: []Command{
				set("keys", list()),
				&ForEach{
					Var:  "k",
					Iter: &MapLit{Keys: []Command{str("b"), str("a")}, Values: []Command{num(1), num(2)}},
					Body: []Command{incr("keys", list(get("k")))},
				},
				get("keys"),
			},
			want: `["b", "a"]`,
		},
		{
			name: "break_and_continue_through_finally",
			cmds: []Command{
				set("i", num(0)),
				set("n", num(0)),
				&While{Cond: bin("<", get("i"), num(10)), Body: []Command{
					incr("i", num(1)),
					&Try{
						Body: []Command{
							iff(bin("==", bin("%", get("i"), num(2)), num(0)), &Continue{}),
							iff(bin("==", get("i"), num(5)), &Break{}),
						},
						Finally: []Command{incr("n", num(1))},
					},
				}},
				list(get("i"), get("n")),
			},
			want: "[5, 5]",
		},
		{
			name: "break_in_nested_loop_leaves_inner_only",
			cmds: []Command{
				set("count", num(0)),
				&ForEach{Var: "a", Iter: list(num(1), num(2)), Body: []Command{
					&While{Cond: boolean(true), Body: []Command{incr("count", num(1)), &Break{}}},
				}},
				get("count"),
			},
			want: "2",
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

func TestLoopControlAcrossProcedure(t *testing.T) {
	tests := []struct {
		name string
		stmt Command
		msg  string
	}{
		{"break", &Break{}, "'break' outside loop"},
		{"continue", &Continue{}, "'continue' not properly in loop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := testProcessor(nil)
			le := uncaught(t, p,
				fn("f", nil, tt.stmt),
				&While{Cond: boolean(true), Body: []Command{call(get("f"))}},
			)
			if le.Class != p.Classes.SyntaxError || le.Message != tt.msg {
				t.Errorf("got %v", le)
			}
		})
	}
}

func TestCleanupIsNotAnError(t *testing.T) {
	p, out := testProcessor(nil)
	p.RegisterExternal("cleanup", func(p *Processor, _ []types.Value) (any, error) {
		return nil, p.HandleEvent(Event{Kind: EventCleanup})
	})
	mustEval(t, p,
		fn("f", nil, &Try{
			Body:    []Command{&ExternalCall{Name: "cleanup"}},
			Catches: []*Catch{catch(nil, "", printc(str("handler")))},
			Finally: []Command{printc(str("finally"))},
		}),
		call(get("f")),
		printc(str("after")),
	)
	if diff := cmp.Diff([]string{"finally"}, *out); diff != "" {
		t.Errorf("cleanup should only run finally code (-want +got):\n%s", diff)
	}
}
