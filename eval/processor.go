package eval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"tram/trace"
	"tram/types"
)

// ExternalFunc is a host-provided callable. Arguments arrive evaluated.
// The result may be a types.Value, a Command or an Item; it is re-entered
// through the run loop. A *LangError return raises a catchable exception,
// a *ProcessorError aborts the run, any other error becomes a RuntimeError.
type ExternalFunc func(p *Processor, args []types.Value) (any, error)

// Options configure a Processor
type Options struct {
	// TickLimit bounds the number of queue items one Run may dispatch.
	// Zero means unlimited.
	TickLimit int64
	// MaxDepth bounds the context stack; entering beyond it raises
	// RecursionError. Zero means unlimited.
	MaxDepth int
	// Print receives text produced by Print commands
	Print func(text string)
	// TypeName answers type-of queries; nil uses the built-in names
	TypeName func(v types.Value) string
	Logger   *slog.Logger
	Tracer   *trace.Tracer
}

// DefaultOptions returns the options NewProcessor uses when given nil
func DefaultOptions() *Options {
	return &Options{
		TickLimit: 0,
		MaxDepth:  10000,
		Print: func(text string) {
			fmt.Fprintln(os.Stdout, text)
		},
	}
}

// Processor is the execution engine: a trampoline over an explicit
// continuation queue. Nothing in the engine recurses natively; commands
// expand into further queue items, values travel through the accumulator
// and the value stack, and activations are recorded on the context stack.
type Processor struct {
	queue    []Item // front of the queue is the end of the slice
	values   []types.Value
	contexts []*CommandContext
	acc      types.Value

	globals   *Environment
	modules   map[string]*Module
	externals map[string]*External

	Registry *ClassRegistry
	Classes  *StdClasses

	opts    Options
	logger  *slog.Logger
	tracer  *trace.Tracer
	running bool

	// stack depths when the current run started
	baseValues, baseContexts int
}

// NewProcessor creates an engine with a fresh global environment holding
// the standard exception classes
func NewProcessor(opts *Options) *Processor {
	if opts == nil {
		opts = DefaultOptions()
	}
	p := &Processor{
		acc:       types.Null,
		globals:   NewEnvironment(nil),
		modules:   make(map[string]*Module),
		externals: make(map[string]*External),
		Registry:  NewClassRegistry(),
		opts:      *opts,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.opts.Print == nil {
		p.opts.Print = func(string) {}
	}
	p.Classes = newStdClasses(p.Registry)
	p.Classes.bind(p.globals)
	return p
}

// RegisterExternal makes a host function callable by name through
// ExternalCall and binds it as a value in the global environment
func (p *Processor) RegisterExternal(name string, fn ExternalFunc) {
	ext := &External{Name: name, Fn: fn}
	p.externals[name] = ext
	p.globals.DefineAt(name, ext, name, types.Internal)
}

// External looks up a registered host function
func (p *Processor) External(name string) (*External, bool) {
	ext, ok := p.externals[name]
	return ext, ok
}

// Accumulator returns the current result register
func (p *Processor) Accumulator() types.Value {
	return p.acc
}

// Globals returns the root environment
func (p *Processor) Globals() *Environment {
	return p.globals
}

// Env returns the environment of the innermost activation
func (p *Processor) Env() *Environment {
	if n := len(p.contexts); n > 0 {
		return p.contexts[n-1].Env
	}
	return p.globals
}

// Module returns a registered module by qualified name
func (p *Processor) Module(qualName string) (*Module, bool) {
	m, ok := p.modules[qualName]
	return m, ok
}

// Depth returns the value stack depth
func (p *Processor) Depth() int {
	return len(p.values)
}

// ContextDepth returns the context stack depth
func (p *Processor) ContextDepth() int {
	return len(p.contexts)
}

// TypeOf answers the host type-of query for v
func (p *Processor) TypeOf(v types.Value) string {
	if p.opts.TypeName != nil {
		return p.opts.TypeName(v)
	}
	if e, ok := v.(*LangError); ok {
		return e.Class.Name
	}
	if v == nil {
		return types.TYPE_NULL.String()
	}
	return v.Type().String()
}

// Print hands text to the host print hook
func (p *Processor) Print(text string) {
	if p.tracer != nil {
		p.tracer.Print(text)
	}
	p.opts.Print(text)
}

// Traceback snapshots the function-like activations on the context stack
func (p *Processor) Traceback() Traceback {
	var tb Traceback
	for _, c := range p.contexts {
		if c.Frame != nil {
			tb = append(tb, *c.Frame)
		}
	}
	return tb
}

// qualify builds the qualified name of something defined in the current
// activation
func (p *Processor) qualify(name string) string {
	for i := len(p.contexts) - 1; i >= 0; i-- {
		if f := p.contexts[i].Frame; f != nil {
			return f.Name + "." + name
		}
	}
	return name
}

// Push pushes a value onto the value stack
func (p *Processor) Push(v types.Value) {
	p.values = append(p.values, v)
}

func (p *Processor) pop() (types.Value, error) {
	n := len(p.values)
	if n == 0 {
		return nil, p.fatalf("value stack underflow")
	}
	v := p.values[n-1]
	p.values = p.values[:n-1]
	return v, nil
}

// popN pops n values, returning them in push order
func (p *Processor) popN(n int) ([]types.Value, error) {
	if len(p.values) < n {
		return nil, p.fatalf("value stack underflow: need %d, have %d", n, len(p.values))
	}
	start := len(p.values) - n
	out := make([]types.Value, n)
	copy(out, p.values[start:])
	p.values = p.values[:start]
	return out, nil
}

// pushFront inserts items at the front of the queue, keeping their order
func (p *Processor) pushFront(items ...Item) {
	for i := len(items) - 1; i >= 0; i-- {
		p.queue = append(p.queue, items[i])
	}
}

func (p *Processor) popFront() Item {
	n := len(p.queue) - 1
	it := p.queue[n]
	p.queue[n] = nil
	p.queue = p.queue[:n]
	return it
}

// Enter pushes a context for cmd. A nil env keeps the current environment.
func (p *Processor) Enter(cmd Command, env *Environment) (*CommandContext, error) {
	if p.opts.MaxDepth > 0 && len(p.contexts) >= p.opts.MaxDepth {
		return nil, p.NewError(p.Classes.RecursionError, cmd.Loc(), "maximum recursion depth exceeded")
	}
	return p.enter(cmd, env), nil
}

func (p *Processor) enter(cmd Command, env *Environment) *CommandContext {
	if env == nil {
		env = p.Env()
	}
	ctx := &CommandContext{Command: cmd, Env: env, Depth: len(p.values), Loc: cmd.Loc()}
	p.contexts = append(p.contexts, ctx)
	return ctx
}

// leave pops the context stack down to and including ctx and restores the
// value stack to the depth recorded when ctx was entered
func (p *Processor) leave(ctx *CommandContext) error {
	if err := p.unwind(ctx); err != nil {
		return err
	}
	p.contexts = p.contexts[:len(p.contexts)-1]
	return nil
}

// unwind pops every context above ctx, leaving ctx on top
func (p *Processor) unwind(ctx *CommandContext) error {
	i := len(p.contexts) - 1
	for i >= 0 && p.contexts[i] != ctx {
		i--
	}
	if i < 0 {
		return p.fatalf("context of %s is not on the context stack", ctx.Command.Kind())
	}
	if ctx.Depth > len(p.values) {
		return p.fatalf("value stack shrank below the depth recorded by %s", ctx.Command.Kind())
	}
	clear(p.values[ctx.Depth:])
	p.values = p.values[:ctx.Depth]
	clear(p.contexts[i+1:])
	p.contexts = p.contexts[:i+1]
	return nil
}

// Run queues items in front of any pending work and drives the loop until
// the queue drains
func (p *Processor) Run(items ...Item) error {
	return p.RunContext(context.Background(), items...)
}

// RunContext is Run with cancellation. Cancelling ctx raises a Cleanup
// event, which unwinds every outstanding activation (running finally
// blocks) before RunContext returns ctx.Err().
func (p *Processor) RunContext(ctx context.Context, items ...Item) error {
	if p.running {
		return p.fatalf("processor is already running")
	}
	p.running = true
	defer func() { p.running = false }()

	baseValues, baseContexts := len(p.values), len(p.contexts)
	p.baseValues, p.baseContexts = baseValues, baseContexts
	p.pushFront(items...)

	var ticks int64
	cancelled := false
	for len(p.queue) > 0 {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			p.logger.DebugContext(ctx, "run cancelled, unwinding", slog.Int("contexts", len(p.contexts)))
			if err := p.HandleEvent(Event{Kind: EventCleanup}); err != nil {
				p.reset(baseValues, baseContexts)
				return err
			}
			continue
		}
		ticks++
		if p.opts.TickLimit > 0 && ticks > p.opts.TickLimit {
			err := p.fatalf("tick limit of %d exceeded", p.opts.TickLimit)
			p.reset(baseValues, baseContexts)
			return err
		}
		if err := p.dispatch(p.popFront()); err != nil {
			p.logger.DebugContext(ctx, "processor error", slog.String("error", err.Error()))
			p.reset(baseValues, baseContexts)
			return err
		}
	}
	if cancelled {
		p.reset(baseValues, baseContexts)
		return ctx.Err()
	}
	return nil
}

// Eval runs cmds and returns the final accumulator
func (p *Processor) Eval(cmds ...Command) (types.Value, error) {
	if err := p.Run(Nodes(cmds)...); err != nil {
		return nil, err
	}
	return p.acc, nil
}

// Abort forces a Cleanup event: every outstanding activation is unwound
// (finally blocks run) and no error is reported for it
func (p *Processor) Abort() error {
	if err := p.HandleEvent(Event{Kind: EventCleanup}); err != nil {
		return err
	}
	if p.running {
		return nil
	}
	return p.Run()
}

// reset discards all pending work after a fatal error
func (p *Processor) reset(values, contexts int) {
	clear(p.queue)
	p.queue = p.queue[:0]
	if values <= len(p.values) {
		p.values = p.values[:values]
	}
	if contexts <= len(p.contexts) {
		p.contexts = p.contexts[:contexts]
	}
}

func (p *Processor) dispatch(it Item) error {
	switch it := it.(type) {
	case nodeItem:
		return p.absorb(it.cmd.Expand(p))
	case Thunk:
		return p.absorb(it(p))
	case *Finalizer:
		return p.absorb(it.execute(p))
	case *LangError:
		return p.HandleEvent(Event{Kind: EventException, Err: it, Location: it.Location})
	case valueItem:
		if it.v == nil {
			return p.fatalf("nil value in queue")
		}
		p.acc = it.v
		return nil
	default:
		return p.fatalf("unknown queue item %T", it)
	}
}

// absorb turns a language error returned by a step into a queued error
// item; anything else passes through as fatal
func (p *Processor) absorb(err error) error {
	if err == nil {
		return nil
	}
	if le, ok := err.(*LangError); ok {
		p.pushFront(le)
		return nil
	}
	var pe *ProcessorError
	if errors.As(err, &pe) {
		return err
	}
	return &ProcessorError{Msg: "internal error", Traceback: p.Traceback(), Cause: err}
}

// HandleEvent routes ev to the nearest pending finalizer. Everything in
// front of that finalizer is the abandoned remainder of the interrupted
// construct and is discarded. An event with no finalizer to receive it
// escapes the top level, which is fatal, except for Cleanup: forced
// teardown never reports an error.
func (p *Processor) HandleEvent(ev Event) error {
	ev.Traceback = p.Traceback()
	if ev.Kind == EventException {
		if ev.Err.Traceback == nil {
			ev.Err.Traceback = ev.Traceback
		}
		ev.Err.raised = true
	}
	if p.tracer != nil {
		p.tracer.Event(ev.Kind.String(), ev.Location.String(), eventDetail(ev))
	}

	for len(p.queue) > 0 {
		if f, ok := p.popFront().(*Finalizer); ok {
			f.state = ev
			p.pushFront(f)
			p.logger.Debug("event routed",
				slog.String("event", ev.Kind.String()),
				slog.String("construct", f.ctx.Command.Kind()))
			return nil
		}
	}

	switch ev.Kind {
	case EventCleanup:
		// operands of half-evaluated top-level commands are dropped too
		if p.running {
			p.reset(p.baseValues, p.baseContexts)
		}
		return nil
	case EventException:
		return &ProcessorError{Msg: "uncaught exception", Traceback: ev.Traceback, Cause: ev.Err}
	case EventReturn:
		return &ProcessorError{Msg: "'return' outside function", Traceback: ev.Traceback}
	case EventBreak:
		return &ProcessorError{Msg: "'break' outside loop", Traceback: ev.Traceback}
	case EventContinue:
		return &ProcessorError{Msg: "'continue' not properly in loop", Traceback: ev.Traceback}
	default:
		return p.fatalf("unroutable %s event", ev.Kind)
	}
}

func eventDetail(ev Event) string {
	switch ev.Kind {
	case EventException:
		return ev.Err.Error()
	case EventReturn:
		if ev.Value != nil {
			return ev.Value.String()
		}
	}
	return ""
}

// lookup resolves a name from the current scope, raising NameError
func (p *Processor) lookup(name string, loc types.Location) (types.Value, error) {
	v, err := p.Env().Lookup(name)
	if err != nil {
		return nil, p.NewError(p.Classes.NameError, loc, "name '%s' is not defined", name)
	}
	return v, nil
}

// Probe runs cmds inside a sandbox that captures, instead of propagating,
// whatever event ends them. It returns the captured event (EventNone on
// normal completion) and the final accumulator.
func (p *Processor) Probe(cmds ...Command) (Event, types.Value, error) {
	sb := newSandbox(cmds, p.Env(), nil, types.Internal)
	if err := p.Run(Node(sb)); err != nil {
		return Event{}, nil, err
	}
	return sb.fin.state, p.acc, nil
}

// Dump renders the engine state for debugging
func (p *Processor) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "accumulator: %s\n", types.Display(p.acc))
	fmt.Fprintf(&b, "values (%d):", len(p.values))
	for _, v := range p.values {
		fmt.Fprintf(&b, " %s", v)
	}
	fmt.Fprintf(&b, "\ncontexts (%d):\n", len(p.contexts))
	for _, c := range p.contexts {
		fmt.Fprintf(&b, "  %s at %s (depth %d)\n", c.Command.Kind(), c.Loc, c.Depth)
	}
	fmt.Fprintf(&b, "queue: %d items\n", len(p.queue))
	return b.String()
}
