package eval

import (
	"fmt"
	"sort"

	"tram/types"
)

// ExceptionClass is a named node in the exception forest. Classes are
// values: they can be bound to names, thrown, and called to build an
// instance carrying a message.
type ExceptionClass struct {
	Name     string
	QualName string
	Base     *ExceptionClass
}

// IsDerived walks the base chain of c looking for base
func (c *ExceptionClass) IsDerived(base *ExceptionClass) bool {
	for k := c; k != nil; k = k.Base {
		if k == base {
			return true
		}
	}
	return false
}

func (c *ExceptionClass) Type() types.TypeCode { return types.TYPE_CLASS }

func (c *ExceptionClass) String() string { return "<class " + c.QualName + ">" }

func (c *ExceptionClass) Equal(other types.Value) bool {
	o, ok := other.(*ExceptionClass)
	return ok && o == c
}

func (c *ExceptionClass) Truthy() bool { return true }

// Error makes a class usable as an errors.Is target
func (c *ExceptionClass) Error() string { return c.QualName }

// ClassRegistry holds every exception class known to a processor, keyed
// by qualified name
type ClassRegistry struct {
	classes map[string]*ExceptionClass
}

// NewClassRegistry creates an empty registry
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]*ExceptionClass)}
}

// Define creates and registers a class. Redefining a qualified name
// replaces the registry entry; existing instances keep their old class.
func (r *ClassRegistry) Define(name, qualName string, base *ExceptionClass) *ExceptionClass {
	if qualName == "" {
		qualName = name
	}
	c := &ExceptionClass{Name: name, QualName: qualName, Base: base}
	r.classes[qualName] = c
	return c
}

// Lookup finds a class by qualified name
func (r *ClassRegistry) Lookup(qualName string) (*ExceptionClass, bool) {
	c, ok := r.classes[qualName]
	return c, ok
}

// Names returns all registered qualified names, sorted
func (r *ClassRegistry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StdClasses are the built-in exception classes every processor starts
// with. They are bound by name in the global environment.
type StdClasses struct {
	Exception         *ExceptionClass
	NameError         *ExceptionClass
	TypeError         *ExceptionClass
	ValueError        *ExceptionClass
	LookupError       *ExceptionClass
	IndexError        *ExceptionClass
	KeyError          *ExceptionClass
	ArithmeticError   *ExceptionClass
	ZeroDivisionError *ExceptionClass
	AttributeError    *ExceptionClass
	SyntaxError       *ExceptionClass
	RecursionError    *ExceptionClass
	ModuleError       *ExceptionClass
	RuntimeError      *ExceptionClass
	AssertionError    *ExceptionClass
}

func newStdClasses(r *ClassRegistry) *StdClasses {
	s := &StdClasses{}
	s.Exception = r.Define("Exception", "", nil)
	s.NameError = r.Define("NameError", "", s.Exception)
	s.TypeError = r.Define("TypeError", "", s.Exception)
	s.ValueError = r.Define("ValueError", "", s.Exception)
	s.LookupError = r.Define("LookupError", "", s.Exception)
	s.IndexError = r.Define("IndexError", "", s.LookupError)
	s.KeyError = r.Define("KeyError", "", s.LookupError)
	s.ArithmeticError = r.Define("ArithmeticError", "", s.Exception)
	s.ZeroDivisionError = r.Define("ZeroDivisionError", "", s.ArithmeticError)
	s.AttributeError = r.Define("AttributeError", "", s.Exception)
	s.SyntaxError = r.Define("SyntaxError", "", s.Exception)
	s.RuntimeError = r.Define("RuntimeError", "", s.Exception)
	s.RecursionError = r.Define("RecursionError", "", s.RuntimeError)
	s.ModuleError = r.Define("ModuleError", "", s.Exception)
	s.AssertionError = r.Define("AssertionError", "", s.Exception)
	return s
}

// bind defines every standard class by name in env
func (s *StdClasses) bind(env *Environment) {
	for _, c := range []*ExceptionClass{
		s.Exception, s.NameError, s.TypeError, s.ValueError, s.LookupError,
		s.IndexError, s.KeyError, s.ArithmeticError, s.ZeroDivisionError,
		s.AttributeError, s.SyntaxError, s.RecursionError, s.ModuleError,
		s.RuntimeError, s.AssertionError,
	} {
		env.DefineAt(c.Name, c, c.QualName, types.Internal)
	}
}

// DefineClass declares a user exception class. Base names a class visible
// from the current scope; an empty Base derives from Exception.
type DefineClass struct {
	defaults
	Pos  types.Location
	Name string
	Base string
}

func (n *DefineClass) Kind() string { return "class" }

func (n *DefineClass) Loc() types.Location { return n.Pos }

func (n *DefineClass) String() string {
	if n.Base == "" {
		return fmt.Sprintf("class %s", n.Name)
	}
	return fmt.Sprintf("class %s(%s)", n.Name, n.Base)
}

func (n *DefineClass) Expand(p *Processor) error {
	base := p.Classes.Exception
	if n.Base != "" {
		v, err := p.lookup(n.Base, n.Pos)
		if err != nil {
			return err
		}
		c, ok := v.(*ExceptionClass)
		if !ok {
			return p.NewError(p.Classes.TypeError, n.Pos, "base of class %s must be a class, not %s", n.Name, p.TypeOf(v))
		}
		base = c
	}
	qual := p.qualify(n.Name)
	c := p.Registry.Define(n.Name, qual, base)
	p.Env().DefineAt(n.Name, c, qual, n.Pos)
	p.acc = c
	return nil
}

func (n *DefineClass) subst(s *substitution) Command {
	return &DefineClass{Pos: s.loc, Name: n.Name, Base: n.Base}
}
