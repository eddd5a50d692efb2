package eval

import (
	"fmt"
	"log/slog"

	"tram/types"
)

// ModuleState is the initialization lifecycle of a module
type ModuleState int

const (
	ModuleInit ModuleState = iota
	ModuleInitialized
	ModuleFailed
)

func (s ModuleState) String() string {
	switch s {
	case ModuleInit:
		return "init"
	case ModuleInitialized:
		return "initialized"
	case ModuleFailed:
		return "error"
	default:
		return "unknown"
	}
}

// SelfName is bound to the module object inside its own body
const SelfName = "self"

// Module is a memoized singleton namespace. Its body runs once; after it
// completes the module is Initialized and further activations return it
// unchanged. A body that raises leaves the module Failed for good.
type Module struct {
	Name     string
	QualName string
	Body     []Command
	Env      *Environment // defining scope
	Scope    *Environment // the module's own bindings
	State    ModuleState
	Pos      types.Location

	active bool
}

func (m *Module) Type() types.TypeCode { return types.TYPE_MODULE }

func (m *Module) String() string { return "<module " + m.QualName + ">" }

func (m *Module) Equal(other types.Value) bool {
	o, ok := other.(*Module)
	return ok && o == m
}

func (m *Module) Truthy() bool { return true }

// Member looks up a name bound directly in the module scope
func (m *Module) Member(name string) (types.Value, bool) {
	if m.Scope == nil {
		return nil, false
	}
	return m.Scope.LookupLocal(name)
}

// DefineModule declares a module in the current scope and, unless Lazy,
// initializes it at once. Declaring an already registered module reuses
// it.
type DefineModule struct {
	defaults
	Pos  types.Location
	Name string
	Body []Command
	Lazy bool
}

func (n *DefineModule) Kind() string        { return "module" }
func (n *DefineModule) Loc() types.Location { return n.Pos }

func (n *DefineModule) String() string {
	return fmt.Sprintf("module %s %s", n.Name, blockString(n.Body))
}

func (n *DefineModule) Expand(p *Processor) error {
	qual := p.qualify(n.Name)
	m, ok := p.modules[qual]
	if !ok {
		m = &Module{Name: n.Name, QualName: qual, Body: n.Body, Env: p.Env(), Pos: n.Pos}
		p.modules[qual] = m
	}
	p.Env().DefineAt(n.Name, m, qual, n.Pos)
	if n.Lazy {
		p.acc = m
		return nil
	}
	p.pushFront(Node(&moduleActivation{module: m, pos: n.Pos}))
	return nil
}

func (n *DefineModule) subst(s *substitution) Command {
	return &DefineModule{Pos: s.loc, Name: n.Name, Body: substAll(n.Body, s), Lazy: n.Lazy}
}

// Import initializes a module if needed and yields it. Name is either a
// qualified module name or a name bound to a module in scope.
type Import struct {
	defaults
	Pos  types.Location
	Name string
}

func (n *Import) Kind() string        { return "import" }
func (n *Import) Loc() types.Location { return n.Pos }
func (n *Import) String() string      { return "import " + n.Name }

func (n *Import) Expand(p *Processor) error {
	m, ok := p.modules[n.Name]
	if !ok {
		v, err := p.lookup(n.Name, n.Pos)
		if err != nil {
			return err
		}
		if m, ok = v.(*Module); !ok {
			return p.NewError(p.Classes.TypeError, n.Pos, "'%s' is not a module, it is %s", n.Name, p.TypeOf(v))
		}
	}
	p.pushFront(Node(&moduleActivation{module: m, pos: n.Pos}))
	return nil
}

func (n *Import) subst(s *substitution) Command {
	return &Import{Pos: s.loc, Name: n.Name}
}

// moduleActivation runs a module body
type moduleActivation struct {
	defaults
	module *Module
	pos    types.Location
}

func (a *moduleActivation) Kind() string        { return a.module.Name }
func (a *moduleActivation) Loc() types.Location { return a.pos }
func (a *moduleActivation) String() string      { return a.module.String() }
func (a *moduleActivation) scope() scopeKind    { return scopeFunction }

func (a *moduleActivation) Expand(p *Processor) error {
	m := a.module
	switch {
	case m.State == ModuleInitialized:
		p.acc = m
		return nil
	case m.State == ModuleFailed:
		return p.NewError(p.Classes.ModuleError, a.pos, "module '%s' failed to initialize", m.QualName)
	case m.active:
		// a cyclic import sees the partially initialized module
		p.acc = m
		return nil
	}
	if m.Scope == nil {
		m.Scope = NewEnvironment(m.Env)
	}
	m.Scope.DefineAt(SelfName, m, m.QualName, m.Pos)
	ctx, err := p.Enter(a, m.Scope)
	if err != nil {
		return err
	}
	ctx.Frame = &Frame{Name: m.QualName, Location: a.pos}
	m.active = true
	p.logger.Debug("initializing module", slog.String("module", m.QualName))

	fin := newFinalizer(ctx, nil)
	fin.onThrow = func(p *Processor, err *LangError) {
		m.State = ModuleFailed
		p.logger.Debug("module failed", slog.String("module", m.QualName), slog.String("error", err.Error()))
	}
	p.pushFront(append(Nodes(m.Body), fin)...)
	return nil
}

func (a *moduleActivation) Leave(p *Processor, f *Finalizer) error {
	m := a.module
	m.active = false
	if err := p.leave(f.ctx); err != nil {
		return err
	}
	if k := f.state.Kind; k == EventNone || k == EventReturn {
		m.State = ModuleInitialized
		p.acc = m
	}
	return nil
}

func (a *moduleActivation) subst(*substitution) Command { return a }

// Attr reads a member of a value: a module binding, an exception's
// message or class, a class's name or base
type Attr struct {
	defaults
	Pos    types.Location
	Object Command
	Name   string
}

func (n *Attr) Kind() string        { return "attr" }
func (n *Attr) Loc() types.Location { return n.Pos }
func (n *Attr) String() string      { return n.Object.String() + "." + n.Name }

func (n *Attr) Expand(p *Processor) error {
	p.pushFront(Node(n.Object), Thunk(n.get))
	return nil
}

func (n *Attr) get(p *Processor) error {
	switch v := p.acc.(type) {
	case *Module:
		if v.State == ModuleInit && !v.active {
			p.pushFront(Node(&moduleActivation{module: v, pos: n.Pos}), Thunk(n.get))
			return nil
		}
		if v.State == ModuleFailed {
			return p.NewError(p.Classes.ModuleError, n.Pos, "module '%s' failed to initialize", v.QualName)
		}
		if member, ok := v.Member(n.Name); ok {
			p.acc = member
			return nil
		}
		return p.NewError(p.Classes.AttributeError, n.Pos, "module '%s' has no attribute '%s'", v.QualName, n.Name)
	case *LangError:
		switch n.Name {
		case "message":
			p.acc = types.NewStr(v.Message)
			return nil
		case "class":
			p.acc = v.Class
			return nil
		}
	case *ExceptionClass:
		switch n.Name {
		case "name":
			p.acc = types.NewStr(v.QualName)
			return nil
		case "base":
			if v.Base == nil {
				p.acc = types.Null
			} else {
				p.acc = v.Base
			}
			return nil
		}
	}
	return p.NewError(p.Classes.AttributeError, n.Pos, "'%s' object has no attribute '%s'", p.TypeOf(p.acc), n.Name)
}

func (n *Attr) subst(s *substitution) Command {
	return &Attr{Pos: s.loc, Object: n.Object.subst(s), Name: n.Name}
}
