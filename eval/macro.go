package eval

import (
	"fmt"
	"strings"

	"tram/types"
)

// Macro is a command template. Expansion is static substitution: every
// reference to a parameter is replaced by the argument tree, and every
// rebuilt node carries the invocation location. Expansion is not hygienic;
// names the template binds are bound in the caller's scope.
type Macro struct {
	Name     string
	QualName string
	Params   []string
	Body     []Command
}

func (m *Macro) Type() types.TypeCode { return types.TYPE_MACRO }

func (m *Macro) String() string { return "<macro " + m.QualName + ">" }

func (m *Macro) Equal(other types.Value) bool {
	o, ok := other.(*Macro)
	return ok && o == m
}

func (m *Macro) Truthy() bool { return true }

// Substitute builds a fresh command tree from the template with params
// bound positionally to args, stamped with loc. Parameters without an
// argument are left as variable references.
func (m *Macro) Substitute(args []Command, loc types.Location) []Command {
	s := &substitution{params: make(map[string]Command, len(m.Params)), loc: loc}
	for i, name := range m.Params {
		if i < len(args) {
			s.params[name] = args[i]
		}
	}
	return substAll(m.Body, s)
}

// DefineMacro binds a macro in the current scope
type DefineMacro struct {
	defaults
	Pos    types.Location
	Name   string
	Params []string
	Body   []Command
}

func (n *DefineMacro) Kind() string        { return "macro" }
func (n *DefineMacro) Loc() types.Location { return n.Pos }

func (n *DefineMacro) String() string {
	return fmt.Sprintf("macro %s(%s) %s", n.Name, strings.Join(n.Params, ", "), blockString(n.Body))
}

func (n *DefineMacro) Expand(p *Processor) error {
	qual := p.qualify(n.Name)
	m := &Macro{Name: n.Name, QualName: qual, Params: n.Params, Body: n.Body}
	p.Env().DefineAt(n.Name, m, qual, n.Pos)
	p.acc = m
	return nil
}

func (n *DefineMacro) subst(s *substitution) Command {
	return &DefineMacro{Pos: s.loc, Name: n.Name, Params: n.Params, Body: n.Body}
}

// MacroCall expands the named macro with unevaluated argument trees and
// runs the result in place
type MacroCall struct {
	defaults
	Pos  types.Location
	Name string
	Args []Command
}

func (n *MacroCall) Kind() string        { return "expand" }
func (n *MacroCall) Loc() types.Location { return n.Pos }

func (n *MacroCall) String() string {
	return fmt.Sprintf("%s!(%s)", n.Name, joinCommands(n.Args, ", "))
}

func (n *MacroCall) Expand(p *Processor) error {
	v, err := p.lookup(n.Name, n.Pos)
	if err != nil {
		return err
	}
	m, ok := v.(*Macro)
	if !ok {
		return p.NewError(p.Classes.TypeError, n.Pos, "'%s' is not a macro, it is %s", n.Name, p.TypeOf(v))
	}
	if err := checkArity(p, m.Name, len(m.Params), false, len(n.Args), n.Pos); err != nil {
		return err
	}
	items := append([]Item{Value(types.Null)}, Nodes(m.Substitute(n.Args, n.Pos))...)
	p.pushFront(items...)
	return nil
}

func (n *MacroCall) subst(s *substitution) Command {
	return &MacroCall{Pos: s.loc, Name: n.Name, Args: substAll(n.Args, s)}
}
