package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"tram/types"
)

func member(module, name string) Command {
	return &Attr{Object: get(module), Name: name}
}

func TestModuleMembers(t *testing.T) {
	p, _ := testProcessor(nil)
	got := mustEval(t, p,
		&DefineModule{Name: "m", Body: []Command{
			set("x", num(1)),
			fn("f", nil, ret(bin("+", get("x"), num(1)))),
		}},
		call(member("m", "f")),
	)
	if !got.Equal(types.NewInt(2)) {
		t.Errorf("m.f() = %s, want 2", got)
	}
	if x := mustEval(t, p, member("m", "x")); !x.Equal(types.NewInt(1)) {
		t.Errorf("m.x = %s after m.f(), want 1", x)
	}

	m, ok := p.Module("m")
	if !ok {
		t.Fatal("module m not registered")
	}
	if m.State != ModuleInitialized {
		t.Errorf("state = %s", m.State)
	}
	f, _ := m.Member("f")
	if f.(*Procedure).QualName != "m.f" {
		t.Errorf("member qualified as %s", f.(*Procedure).QualName)
	}
	self, _ := m.Member(SelfName)
	if self != m {
		t.Error("self should be bound to the module")
	}
}

func TestModuleBodyRunsOnce(t *testing.T) {
	p, out := testProcessor(nil)
	mustEval(t, p,
		&DefineModule{Name: "counter", Lazy: true, Body: []Command{printc(str("init")), set("n", num(0))}},
		&Import{Name: "counter"},
		&Import{Name: "counter"},
		member("counter", "n"),
	)
	mustEval(t, p, &Import{Name: "counter"})
	if diff := cmp.Diff([]string{"init"}, *out); diff != "" {
		t.Errorf("module body should run once (-want +got):\n%s", diff)
	}
}

func TestLazyModuleInitializesOnAccess(t *testing.T) {
	p, out := testProcessor(nil)
	mustEval(t, p, &DefineModule{Name: "cfg", Lazy: true, Body: []Command{printc(str("loading")), set("port", num(8080))}})
	m, _ := p.Module("cfg")
	if m.State != ModuleInit || len(*out) != 0 {
		t.Fatalf("lazy module ran early: state %s, output %v", m.State, *out)
	}
	got := mustEval(t, p, member("cfg", "port"))
	if !got.Equal(types.NewInt(8080)) {
		t.Errorf("cfg.port = %s", got)
	}
	if m.State != ModuleInitialized {
		t.Errorf("state = %s", m.State)
	}
}

func TestImportYieldsModule(t *testing.T) {
	p, _ := testProcessor(nil)
	got := mustEval(t, p,
		&DefineModule{Name: "m", Lazy: true, Body: []Command{ret(num(5))}},
		&Import{Name: "m"},
	)
	if got.String() != "<module m>" {
		t.Errorf("import yielded %s", got)
	}
	m, _ := p.Module("m")
	if m.State != ModuleInitialized {
		t.Errorf("return from a module body should complete it, state %s", m.State)
	}
}

func TestFailedModule(t *testing.T) {
	p, _ := testProcessor(nil)
	le := uncaught(t, p, &DefineModule{Name: "bad", Body: []Command{raise("ValueError", "broken")}})
	if le.Class != p.Classes.ValueError {
		t.Fatalf("got %v", le)
	}
	m, _ := p.Module("bad")
	if m.State != ModuleFailed {
		t.Fatalf("state = %s, want error", m.State)
	}

	le = uncaught(t, p, &Import{Name: "bad"})
	if le.Class != p.Classes.ModuleError || le.Message != "module 'bad' failed to initialize" {
		t.Errorf("re-import raised %v", le)
	}

	// the failure is catchable and never retried
	got := mustEval(t, p, &Try{
		Body:    []Command{member("bad", "x")},
		Catches: []*Catch{catch([]string{"ModuleError"}, "", str("caught"))},
	})
	if !got.Equal(types.NewStr("caught")) {
		t.Errorf("got %s", got)
	}
}

func TestCyclicImportSeesPartialModule(t *testing.T) {
	p, _ := testProcessor(nil)
	got := mustEval(t, p,
		&DefineModule{Name: "a", Body: []Command{
			set("early", num(1)),
			set("me", &Import{Name: "a"}),
			set("late", num(2)),
		}},
		member("a", "late"),
	)
	if !got.Equal(types.NewInt(2)) {
		t.Errorf("a.late = %s", got)
	}
}

func TestNestedModuleQualification(t *testing.T) {
	p, _ := testProcessor(nil)
	got := mustEval(t, p,
		&DefineModule{Name: "outer", Body: []Command{
			&DefineModule{Name: "inner", Body: []Command{&DefineClass{Name: "Oops"}}},
		}},
		&Attr{Object: &Attr{Object: member("outer", "inner"), Name: "Oops"}, Name: "name"},
	)
	if diff := cmp.Diff(`"outer.inner.Oops"`, got.String()); diff != "" {
		t.Errorf("qualified name mismatch (-want +got):\n%s", diff)
	}
	if _, ok := p.Module("outer.inner"); !ok {
		t.Error("nested module should register under its qualified name")
	}
	if _, ok := p.Registry.Lookup("outer.inner.Oops"); !ok {
		t.Error("class should register under its qualified name")
	}
}

func TestMacroExpansion(t *testing.T) {
	p, _ := testProcessor(nil)
	got := mustEval(t, p,
		&DefineMacro{Name: "add", Params: []string{"x", "y"}, Body: []Command{bin("+", get("x"), get("y"))}},
		&MacroCall{Name: "add", Args: []Command{num(2), num(3)}},
	)
	if !got.Equal(types.NewInt(5)) {
		t.Errorf("add!(2, 3) = %s", got)
	}
}

func TestMacroSubstituteStampsCallSite(t *testing.T) {
	defLoc := types.Location{File: "defs.yaml", Line: 1}
	callLoc := types.Location{File: "main.yaml", Line: 12, Column: 3}
	m := &Macro{
		Name:   "add",
		Params: []string{"x", "y"},
		Body:   []Command{&Binary{Pos: defLoc, Op: "+", Left: &GetVar{Pos: defLoc, Name: "x"}, Right: &GetVar{Pos: defLoc, Name: "y"}}},
	}
	two := &Const{Pos: callLoc, Value: types.NewInt(2)}
	three := &Const{Pos: callLoc, Value: types.NewInt(3)}

	out := m.Substitute([]Command{two, three}, callLoc)
	if len(out) != 1 {
		t.Fatalf("got %d commands", len(out))
	}
	b, ok := out[0].(*Binary)
	if !ok {
		t.Fatalf("got %T", out[0])
	}
	if b.Pos != callLoc {
		t.Errorf("expanded node at %s, want %s", b.Pos, callLoc)
	}
	if b.Left != two || b.Right != three {
		t.Error("parameters should be replaced by the argument trees")
	}
	if b.String() != "(2 + 3)" {
		t.Errorf("String() = %s", b)
	}
	// the template is untouched
	if m.Body[0].Loc() != defLoc {
		t.Error("Substitute mutated the template")
	}
}

func TestMacroAssignsThroughParameter(t *testing.T) {
	p, _ := testProcessor(nil)
	got := mustEval(t, p,
		&DefineMacro{Name: "inc", Params: []string{"v"}, Body: []Command{incr("v", num(1))}},
		set("x", num(1)),
		&MacroCall{Name: "inc", Args: []Command{get("x")}},
		&MacroCall{Name: "inc", Args: []Command{get("x")}},
		get("x"),
	)
	if !got.Equal(types.NewInt(3)) {
		t.Errorf("x = %s, want 3", got)
	}
}

func TestMacroErrors(t *testing.T) {
	p, _ := testProcessor(nil)
	mustEval(t, p, &DefineMacro{Name: "add", Params: []string{"x", "y"}, Body: []Command{bin("+", get("x"), get("y"))}})

	le := uncaught(t, p, &MacroCall{Name: "add", Args: []Command{num(1)}})
	if le.Message != "add() takes 2 positional arguments but 1 was given" {
		t.Errorf("message = %q", le.Message)
	}
	le = uncaught(t, p, set("n", num(1)), &MacroCall{Name: "n"})
	if le.Class != p.Classes.TypeError || le.Message != "'n' is not a macro, it is int" {
		t.Errorf("got %v", le)
	}
}
