package eval

import (
	"fmt"
	"strings"

	"tram/types"
)

// Const is a literal value
type Const struct {
	defaults
	Pos   types.Location
	Value types.Value
}

func (n *Const) Kind() string        { return "const" }
func (n *Const) Loc() types.Location { return n.Pos }
func (n *Const) String() string      { return n.Value.String() }

func (n *Const) Expand(p *Processor) error {
	p.acc = n.Value
	return nil
}

func (n *Const) subst(s *substitution) Command {
	return &Const{Pos: s.loc, Value: n.Value}
}

// GetVar reads a variable from the current scope chain
type GetVar struct {
	defaults
	Pos  types.Location
	Name string
}

func (n *GetVar) Kind() string        { return "get" }
func (n *GetVar) Loc() types.Location { return n.Pos }
func (n *GetVar) String() string      { return n.Name }

func (n *GetVar) Expand(p *Processor) error {
	v, err := p.lookup(n.Name, n.Pos)
	if err != nil {
		return err
	}
	p.acc = v
	return nil
}

// A parameter reference is replaced by the argument tree as given
func (n *GetVar) subst(s *substitution) Command {
	if arg, ok := s.params[n.Name]; ok {
		return arg
	}
	return &GetVar{Pos: s.loc, Name: n.Name}
}

// SetVar binds a name in the current scope. With Op set it is an augmented
// assignment: the current value is combined with the new one by the named
// binary operator ("x += 1" is SetVar{Name: "x", Op: "+", ...}).
type SetVar struct {
	defaults
	Pos   types.Location
	Name  string
	Op    string
	Value Command
}

func (n *SetVar) Kind() string        { return "set" }
func (n *SetVar) Loc() types.Location { return n.Pos }

func (n *SetVar) String() string {
	if n.Op == "" {
		return fmt.Sprintf("%s = %s", n.Name, n.Value)
	}
	return fmt.Sprintf("%s %s= %s", n.Name, n.Op, n.Value)
}

func (n *SetVar) Expand(p *Processor) error {
	p.pushFront(Node(n.Value), Thunk(n.assign))
	return nil
}

func (n *SetVar) assign(p *Processor) error {
	v := p.acc
	if n.Op != "" {
		cur, err := p.lookup(n.Name, n.Pos)
		if err != nil {
			return err
		}
		if v, err = p.applyOperator(n.Op, n.Pos, cur, v); err != nil {
			return err
		}
	}
	p.Env().DefineAt(n.Name, v, p.qualify(n.Name), n.Pos)
	p.acc = v
	return nil
}

// An assignment to a parameter bound to a plain variable reference assigns
// that variable instead
func (n *SetVar) subst(s *substitution) Command {
	name := n.Name
	if arg, ok := s.params[name]; ok {
		if g, ok := arg.(*GetVar); ok {
			name = g.Name
		}
	}
	return &SetVar{Pos: s.loc, Name: name, Op: n.Op, Value: n.Value.subst(s)}
}

// Unset removes a binding from the current scope
type Unset struct {
	defaults
	Pos  types.Location
	Name string
}

func (n *Unset) Kind() string        { return "unset" }
func (n *Unset) Loc() types.Location { return n.Pos }
func (n *Unset) String() string      { return "unset " + n.Name }

func (n *Unset) Expand(p *Processor) error {
	if !p.Env().Remove(n.Name) {
		return p.NewError(p.Classes.NameError, n.Pos, "name '%s' is not defined", n.Name)
	}
	p.acc = types.Null
	return nil
}

func (n *Unset) subst(s *substitution) Command {
	return &Unset{Pos: s.loc, Name: n.Name}
}

// Block runs its commands in order; its value is the last one's, Null
// when empty. A Scoped block gets its own environment.
type Block struct {
	Pos    types.Location
	Body   []Command
	Scoped bool
	defaults
}

func (n *Block) Kind() string        { return "block" }
func (n *Block) Loc() types.Location { return n.Pos }
func (n *Block) String() string      { return blockString(n.Body) }

func (n *Block) Expand(p *Processor) error {
	items := make([]Item, 0, len(n.Body)+2)
	items = append(items, Value(types.Null))
	items = append(items, Nodes(n.Body)...)
	if !n.Scoped {
		p.pushFront(items...)
		return nil
	}
	ctx, err := p.Enter(n, NewEnvironment(p.Env()))
	if err != nil {
		return err
	}
	p.pushFront(append(items, newFinalizer(ctx, nil))...)
	return nil
}

func (n *Block) subst(s *substitution) Command {
	return &Block{Pos: s.loc, Body: substAll(n.Body, s), Scoped: n.Scoped}
}

// If evaluates Cond and runs one branch
type If struct {
	defaults
	Pos  types.Location
	Cond Command
	Then []Command
	Else []Command
}

func (n *If) Kind() string        { return "if" }
func (n *If) Loc() types.Location { return n.Pos }

func (n *If) String() string {
	s := fmt.Sprintf("if %s %s", n.Cond, blockString(n.Then))
	if len(n.Else) > 0 {
		s += " else " + blockString(n.Else)
	}
	return s
}

func (n *If) Expand(p *Processor) error {
	p.pushFront(Node(n.Cond), Thunk(func(p *Processor) error {
		branch := n.Else
		if p.acc.Truthy() {
			branch = n.Then
		}
		p.pushFront(append([]Item{Value(types.Null)}, Nodes(branch)...)...)
		return nil
	}))
	return nil
}

func (n *If) subst(s *substitution) Command {
	return &If{Pos: s.loc, Cond: n.Cond.subst(s), Then: substAll(n.Then, s), Else: substAll(n.Else, s)}
}

// Print hands its arguments, space separated, to the host print hook
type Print struct {
	defaults
	Pos  types.Location
	Args []Command
}

func (n *Print) Kind() string        { return "print" }
func (n *Print) Loc() types.Location { return n.Pos }
func (n *Print) String() string      { return "print(" + joinCommands(n.Args, ", ") + ")" }

func (n *Print) Expand(p *Processor) error {
	items := evalInto(n.Args)
	items = append(items, Thunk(func(p *Processor) error {
		vals, err := p.popN(len(n.Args))
		if err != nil {
			return err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = types.Display(v)
		}
		p.Print(strings.Join(parts, " "))
		p.acc = types.Null
		return nil
	}))
	p.pushFront(items...)
	return nil
}

func (n *Print) subst(s *substitution) Command {
	return &Print{Pos: s.loc, Args: substAll(n.Args, s)}
}

// Assert raises AssertionError when Cond is falsy. Message is optional.
type Assert struct {
	defaults
	Pos     types.Location
	Cond    Command
	Message Command
}

func (n *Assert) Kind() string        { return "assert" }
func (n *Assert) Loc() types.Location { return n.Pos }

func (n *Assert) String() string {
	if n.Message == nil {
		return "assert " + n.Cond.String()
	}
	return fmt.Sprintf("assert %s, %s", n.Cond, n.Message)
}

func (n *Assert) Expand(p *Processor) error {
	p.pushFront(Node(n.Cond), Thunk(func(p *Processor) error {
		if p.acc.Truthy() {
			p.acc = types.Null
			return nil
		}
		if n.Message == nil {
			return p.NewError(p.Classes.AssertionError, n.Pos, "")
		}
		p.pushFront(Node(n.Message), Thunk(func(p *Processor) error {
			return p.NewError(p.Classes.AssertionError, n.Pos, "%s", types.Display(p.acc))
		}))
		return nil
	}))
	return nil
}

func (n *Assert) subst(s *substitution) Command {
	return &Assert{Pos: s.loc, Cond: n.Cond.subst(s), Message: substOpt(n.Message, s)}
}
