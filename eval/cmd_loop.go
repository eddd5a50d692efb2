package eval

import (
	"fmt"

	"tram/types"
)

// Loops run their body inside the loop's own context without a fresh
// environment, so assignments in the body land in the enclosing scope.
// A loop's value is always Null.

// While runs Body as long as Cond is truthy
type While struct {
	defaults
	Pos  types.Location
	Cond Command
	Body []Command
}

func (n *While) Kind() string        { return "while" }
func (n *While) Loc() types.Location { return n.Pos }
func (n *While) String() string      { return fmt.Sprintf("while %s %s", n.Cond, blockString(n.Body)) }
func (n *While) scope() scopeKind    { return scopeLoop }

func (n *While) Expand(p *Processor) error {
	ctx, err := p.Enter(n, nil)
	if err != nil {
		return err
	}
	p.pushFront(Node(n.Cond), Thunk(n.test), newFinalizer(ctx, nil))
	return nil
}

func (n *While) test(p *Processor) error {
	if !p.acc.Truthy() {
		p.acc = types.Null
		return nil
	}
	items := append(Nodes(n.Body), Node(n.Cond), Thunk(n.test))
	p.pushFront(items...)
	return nil
}

func (n *While) DoContinue(p *Processor, f *Finalizer) error {
	if err := p.unwind(f.ctx); err != nil {
		return err
	}
	p.pushFront(Node(n.Cond), Thunk(n.test), f)
	return nil
}

func (n *While) subst(s *substitution) Command {
	return &While{Pos: s.loc, Cond: n.Cond.subst(s), Body: substAll(n.Body, s)}
}

// DoWhile runs Body once, then again while Cond is truthy
type DoWhile struct {
	defaults
	Pos  types.Location
	Body []Command
	Cond Command
}

func (n *DoWhile) Kind() string        { return "do" }
func (n *DoWhile) Loc() types.Location { return n.Pos }
func (n *DoWhile) String() string      { return fmt.Sprintf("do %s while %s", blockString(n.Body), n.Cond) }
func (n *DoWhile) scope() scopeKind    { return scopeLoop }

func (n *DoWhile) Expand(p *Processor) error {
	ctx, err := p.Enter(n, nil)
	if err != nil {
		return err
	}
	items := append(Nodes(n.Body), Node(n.Cond), Thunk(n.test), newFinalizer(ctx, nil))
	p.pushFront(items...)
	return nil
}

func (n *DoWhile) test(p *Processor) error {
	if !p.acc.Truthy() {
		p.acc = types.Null
		return nil
	}
	items := append(Nodes(n.Body), Node(n.Cond), Thunk(n.test))
	p.pushFront(items...)
	return nil
}

func (n *DoWhile) DoContinue(p *Processor, f *Finalizer) error {
	if err := p.unwind(f.ctx); err != nil {
		return err
	}
	p.pushFront(Node(n.Cond), Thunk(n.test), f)
	return nil
}

func (n *DoWhile) subst(s *substitution) Command {
	return &DoWhile{Pos: s.loc, Body: substAll(n.Body, s), Cond: n.Cond.subst(s)}
}

// ForEach binds Var to each member of Iter in turn: list and tuple
// elements, string characters or map keys. The sequence is snapshotted
// when the loop starts.
type ForEach struct {
	defaults
	Pos  types.Location
	Var  string
	Iter Command
	Body []Command
}

type forState struct {
	elems []types.Value
	next  int
}

func (n *ForEach) Kind() string        { return "foreach" }
func (n *ForEach) Loc() types.Location { return n.Pos }
func (n *ForEach) scope() scopeKind    { return scopeLoop }

func (n *ForEach) String() string {
	return fmt.Sprintf("foreach %s in %s %s", n.Var, n.Iter, blockString(n.Body))
}

func (n *ForEach) Expand(p *Processor) error {
	p.pushFront(Node(n.Iter), Thunk(n.start))
	return nil
}

func (n *ForEach) start(p *Processor) error {
	elems, ok := types.Elements(p.acc)
	if !ok {
		return p.NewError(p.Classes.TypeError, n.Pos, "'%s' object is not iterable", p.TypeOf(p.acc))
	}
	ctx, err := p.Enter(n, nil)
	if err != nil {
		return err
	}
	ctx.State = &forState{elems: elems}
	p.pushFront(n.step(ctx), newFinalizer(ctx, nil))
	return nil
}

func (n *ForEach) step(ctx *CommandContext) Thunk {
	return func(p *Processor) error {
		st := ctx.State.(*forState)
		if st.next >= len(st.elems) {
			p.acc = types.Null
			return nil
		}
		v := st.elems[st.next]
		st.next++
		ctx.Env.DefineAt(n.Var, v, p.qualify(n.Var), n.Pos)
		p.pushFront(append(Nodes(n.Body), n.step(ctx))...)
		return nil
	}
}

func (n *ForEach) DoContinue(p *Processor, f *Finalizer) error {
	if err := p.unwind(f.ctx); err != nil {
		return err
	}
	p.pushFront(n.step(f.ctx), f)
	return nil
}

func (n *ForEach) subst(s *substitution) Command {
	return &ForEach{Pos: s.loc, Var: n.Var, Iter: n.Iter.subst(s), Body: substAll(n.Body, s)}
}
