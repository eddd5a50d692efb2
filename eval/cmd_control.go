package eval

import (
	"strings"

	"tram/types"
)

// Return ends the innermost procedure with Value (Null when absent)
type Return struct {
	defaults
	Pos   types.Location
	Value Command
}

func (n *Return) Kind() string        { return "return" }
func (n *Return) Loc() types.Location { return n.Pos }

func (n *Return) String() string {
	if n.Value == nil {
		return "return"
	}
	return "return " + n.Value.String()
}

func (n *Return) Expand(p *Processor) error {
	if n.Value == nil {
		return p.HandleEvent(Event{Kind: EventReturn, Value: types.Null, Location: n.Pos})
	}
	p.pushFront(Node(n.Value), Thunk(func(p *Processor) error {
		return p.HandleEvent(Event{Kind: EventReturn, Value: p.acc, Location: n.Pos})
	}))
	return nil
}

func (n *Return) subst(s *substitution) Command {
	return &Return{Pos: s.loc, Value: substOpt(n.Value, s)}
}

// Break leaves the innermost loop
type Break struct {
	defaults
	Pos types.Location
}

func (n *Break) Kind() string        { return "break" }
func (n *Break) Loc() types.Location { return n.Pos }
func (n *Break) String() string      { return "break" }

func (n *Break) Expand(p *Processor) error {
	return p.HandleEvent(Event{Kind: EventBreak, Location: n.Pos})
}

func (n *Break) subst(s *substitution) Command { return &Break{Pos: s.loc} }

// Continue starts the next iteration of the innermost loop
type Continue struct {
	defaults
	Pos types.Location
}

func (n *Continue) Kind() string        { return "continue" }
func (n *Continue) Loc() types.Location { return n.Pos }
func (n *Continue) String() string      { return "continue" }

func (n *Continue) Expand(p *Processor) error {
	return p.HandleEvent(Event{Kind: EventContinue, Location: n.Pos})
}

func (n *Continue) subst(s *substitution) Command { return &Continue{Pos: s.loc} }

// Catch is one handler clause of a Try. Classes names the exception
// classes it accepts; an empty list accepts everything. Var, when set, is
// bound to the caught exception.
type Catch struct {
	Pos     types.Location
	Classes []string
	Var     string
	Body    []Command
}

func (c *Catch) String() string {
	s := "catch"
	if len(c.Classes) > 0 {
		s += " " + strings.Join(c.Classes, ", ")
	}
	if c.Var != "" {
		s += " as " + c.Var
	}
	return s + " " + blockString(c.Body)
}

// matches resolves the clause's class names in env. A name that does not
// resolve to a class never matches.
func (c *Catch) matches(env *Environment, err *LangError) bool {
	if len(c.Classes) == 0 {
		return true
	}
	for _, name := range c.Classes {
		v, lookupErr := env.Lookup(name)
		if lookupErr != nil {
			continue
		}
		if class, ok := v.(*ExceptionClass); ok && err.Class.IsDerived(class) {
			return true
		}
	}
	return false
}

// Try runs Body; an exception is handed to the first matching Catch, and
// Finally runs on every exit path.
type Try struct {
	defaults
	Pos     types.Location
	Body    []Command
	Catches []*Catch
	Finally []Command
}

func (n *Try) Kind() string        { return "try" }
func (n *Try) Loc() types.Location { return n.Pos }

func (n *Try) String() string {
	var b strings.Builder
	b.WriteString("try " + blockString(n.Body))
	for _, c := range n.Catches {
		b.WriteString(" " + c.String())
	}
	if len(n.Finally) > 0 {
		b.WriteString(" finally " + blockString(n.Finally))
	}
	return b.String()
}

func (n *Try) Expand(p *Processor) error {
	ctx, err := p.Enter(n, nil)
	if err != nil {
		return err
	}
	items := make([]Item, 0, len(n.Body)+2)
	items = append(items, Value(types.Null))
	items = append(items, Nodes(n.Body)...)
	p.pushFront(append(items, newFinalizer(ctx, n.Finally))...)
	return nil
}

func (n *Try) FindExceptionHandler(ctx *CommandContext, err *LangError) Command {
	for _, c := range n.Catches {
		if c.matches(ctx.Env, err) {
			return &handlerBody{clause: c, err: err}
		}
	}
	return nil
}

func (n *Try) subst(s *substitution) Command {
	catches := make([]*Catch, len(n.Catches))
	for i, c := range n.Catches {
		catches[i] = &Catch{Pos: s.loc, Classes: c.Classes, Var: c.Var, Body: substAll(c.Body, s)}
	}
	return &Try{Pos: s.loc, Body: substAll(n.Body, s), Catches: catches, Finally: substAll(n.Finally, s)}
}

// handlerBody is the code a Try hands back for a caught exception
type handlerBody struct {
	defaults
	clause *Catch
	err    *LangError
}

func (h *handlerBody) Kind() string        { return "catch" }
func (h *handlerBody) Loc() types.Location { return h.clause.Pos }
func (h *handlerBody) String() string      { return h.clause.String() }

func (h *handlerBody) Expand(p *Processor) error {
	if h.clause.Var != "" {
		p.Env().DefineAt(h.clause.Var, h.err, p.qualify(h.clause.Var), h.clause.Pos)
	}
	p.pushFront(append([]Item{Value(types.Null)}, Nodes(h.clause.Body)...)...)
	return nil
}

func (h *handlerBody) subst(*substitution) Command { return h }

// Throw raises Value, which must be an exception class or instance
type Throw struct {
	defaults
	Pos   types.Location
	Value Command
}

func (n *Throw) Kind() string        { return "throw" }
func (n *Throw) Loc() types.Location { return n.Pos }
func (n *Throw) String() string      { return "throw " + n.Value.String() }

func (n *Throw) Expand(p *Processor) error {
	p.pushFront(Node(n.Value), Thunk(func(p *Processor) error {
		switch v := p.acc.(type) {
		case *ExceptionClass:
			return &LangError{Class: v, Location: n.Pos}
		case *LangError:
			return v.raisedAt(n.Pos)
		}
		return p.NewError(p.Classes.TypeError, n.Pos, "exceptions must be classes or instances, not %s", p.TypeOf(p.acc))
	}))
	return nil
}

func (n *Throw) subst(s *substitution) Command {
	return &Throw{Pos: s.loc, Value: n.Value.subst(s)}
}

// Rethrow re-raises the exception being handled by the nearest enclosing
// handler
type Rethrow struct {
	defaults
	Pos types.Location
}

func (n *Rethrow) Kind() string        { return "rethrow" }
func (n *Rethrow) Loc() types.Location { return n.Pos }
func (n *Rethrow) String() string      { return "rethrow" }

func (n *Rethrow) Expand(p *Processor) error {
	for i := len(p.contexts) - 1; i >= 0; i-- {
		if err := p.contexts[i].Caught; err != nil {
			return err
		}
	}
	return p.NewError(p.Classes.RuntimeError, n.Pos, "no active exception to rethrow")
}

func (n *Rethrow) subst(s *substitution) Command { return &Rethrow{Pos: s.loc} }
