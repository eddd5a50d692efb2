package eval

import (
	"log/slog"

	"tram/types"
)

// Finalizer is the terminal queue item of a scoped construct. It runs when
// the construct's body falls through, or earlier when HandleEvent routes
// an event to it; either way it decides how the construct ends.
//
// Handler and finally code run in sandboxes: scoped constructs whose
// finalizer records whatever event ends them instead of propagating it. The
// recorded events are then resolved in precedence order: an event from the
// finally code wins over everything, an event from the handler wins over
// the original one, and the original event propagates only when nothing
// else happened.
type Finalizer struct {
	ctx       *CommandContext
	after     []Command
	sandboxed bool
	onThrow   func(p *Processor, err *LangError)
	state     Event
}

func (*Finalizer) item() {}

func newFinalizer(ctx *CommandContext, after []Command) *Finalizer {
	return &Finalizer{ctx: ctx, after: after}
}

// State returns the event routed to the finalizer, EventNone if none was
func (f *Finalizer) State() Event {
	return f.state
}

// Context returns the activation the finalizer ends
func (f *Finalizer) Context() *CommandContext {
	return f.ctx
}

func (f *Finalizer) execute(p *Processor) error {
	if f.sandboxed {
		if f.state.Pending() {
			p.acc = types.Null
		}
		return f.ctx.Command.Leave(p, f)
	}

	var handler *sandbox
	if f.state.Kind == EventException {
		if code := f.ctx.Command.FindExceptionHandler(f.ctx, f.state.Err); code != nil {
			handler = newSandbox([]Command{code}, f.ctx.Env, f.state.Err, code.Loc())
		}
	}
	if handler == nil && len(f.after) == 0 {
		return f.finalize(p, nil, nil, p.acc)
	}

	items := make([]Item, 0, 4)
	if handler != nil {
		items = append(items, Node(handler))
	}
	items = append(items, pushAcc)
	var after *sandbox
	if len(f.after) > 0 {
		after = newSandbox(f.after, f.ctx.Env, f.ctx.Caught, f.after[0].Loc())
		items = append(items, Node(after))
	}
	items = append(items, Thunk(func(p *Processor) error {
		result, err := p.pop()
		if err != nil {
			return err
		}
		return f.finalize(p, handler, after, result)
	}))
	p.pushFront(items...)
	return nil
}

// finalize resolves the construct once handler and finally code have run.
// result is the accumulator captured before the finally code.
func (f *Finalizer) finalize(p *Processor, handler, after *sandbox, result types.Value) error {
	if after != nil && after.fin.state.Pending() {
		return f.propagate(p, after.fin.state)
	}
	switch f.state.Kind {
	case EventNone:
		p.acc = result
		return f.ctx.Command.Leave(p, f)
	case EventException:
		if handler == nil {
			return f.doThrow(p, f.state.Err)
		}
		if handler.fin.state.Pending() {
			return f.propagate(p, handler.fin.state)
		}
		f.state = Event{}
		p.acc = result
		return f.ctx.Command.Leave(p, f)
	default:
		return f.propagate(p, f.state)
	}
}

// propagate ends the construct with ev. Return stops at the nearest
// function, Break and Continue at the nearest loop; a function boundary
// turns a stray Break or Continue into a SyntaxError.
func (f *Finalizer) propagate(p *Processor, ev Event) error {
	f.state = ev
	scope := f.ctx.Command.scope()
	switch ev.Kind {
	case EventException:
		return f.doThrow(p, ev.Err)
	case EventReturn:
		if scope == scopeFunction {
			p.acc = ev.Value
			if p.acc == nil {
				p.acc = types.Null
			}
			return f.ctx.Command.Leave(p, f)
		}
	case EventBreak:
		switch scope {
		case scopeLoop:
			p.acc = types.Null
			return f.ctx.Command.Leave(p, f)
		case scopeFunction:
			return f.doThrow(p, p.NewError(p.Classes.SyntaxError, ev.Location, "'break' outside loop"))
		}
	case EventContinue:
		switch scope {
		case scopeLoop:
			f.state = Event{}
			return f.ctx.Command.DoContinue(p, f)
		case scopeFunction:
			return f.doThrow(p, p.NewError(p.Classes.SyntaxError, ev.Location, "'continue' not properly in loop"))
		}
	}
	if err := f.ctx.Command.Leave(p, f); err != nil {
		return err
	}
	return p.HandleEvent(ev)
}

// doThrow leaves the construct and re-raises err one level up
func (f *Finalizer) doThrow(p *Processor, err *LangError) error {
	f.state = Event{Kind: EventException, Err: err, Location: err.Location}
	if f.onThrow != nil {
		f.onThrow(p, err)
	}
	if e := f.ctx.Command.Leave(p, f); e != nil {
		return e
	}
	p.logger.Debug("rethrow", slog.String("error", err.Error()), slog.String("from", f.ctx.Command.Kind()))
	p.pushFront(err)
	return nil
}

// sandbox runs a command sequence in its own context and records, rather
// than propagates, whatever event ends it
type sandbox struct {
	defaults
	body   []Command
	env    *Environment
	caught *LangError
	pos    types.Location
	fin    *Finalizer
}

func newSandbox(body []Command, env *Environment, caught *LangError, loc types.Location) *sandbox {
	return &sandbox{
		body:   body,
		env:    env,
		caught: caught,
		pos:    loc,
		fin:    &Finalizer{sandboxed: true},
	}
}

func (s *sandbox) Kind() string { return "sandbox" }

func (s *sandbox) Loc() types.Location { return s.pos }

func (s *sandbox) String() string { return blockString(s.body) }

func (s *sandbox) Expand(p *Processor) error {
	ctx := p.enter(s, s.env)
	ctx.Caught = s.caught
	s.fin.ctx = ctx
	items := make([]Item, 0, len(s.body)+2)
	items = append(items, Value(types.Null))
	items = append(items, Nodes(s.body)...)
	p.pushFront(append(items, s.fin)...)
	return nil
}

func (s *sandbox) subst(*substitution) Command { return s }
