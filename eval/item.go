package eval

import "tram/types"

// Item is one entry of the continuation queue. The set is closed:
//
//	Node       a command to expand
//	Thunk      a closure run with the processor
//	Value      an already computed value, stored into the accumulator
//	*LangError a raised error, turned into an Exception event
//	*Finalizer the terminal entry of a scoped construct
type Item interface {
	item()
}

type nodeItem struct {
	cmd Command
}

func (nodeItem) item() {}

// Node wraps a command as a queue item
func Node(cmd Command) Item {
	return nodeItem{cmd: cmd}
}

// Nodes wraps a sequence of commands
func Nodes(cmds []Command) []Item {
	items := make([]Item, len(cmds))
	for i, c := range cmds {
		items[i] = nodeItem{cmd: c}
	}
	return items
}

// Thunk is a closure queued for execution. Returning a *LangError raises
// it as a language exception; any other error is fatal.
type Thunk func(p *Processor) error

func (Thunk) item() {}

type valueItem struct {
	v types.Value
}

func (valueItem) item() {}

// Value wraps a computed value as a queue item
func Value(v types.Value) Item {
	return valueItem{v: v}
}

// pushAcc copies the accumulator onto the value stack
var pushAcc = Thunk(func(p *Processor) error {
	p.Push(p.acc)
	return nil
})

// evalInto queues each command followed by a push of its result, so that
// after the items run the values sit on the value stack in order
func evalInto(cmds []Command) []Item {
	items := make([]Item, 0, 2*len(cmds))
	for _, c := range cmds {
		items = append(items, nodeItem{cmd: c}, pushAcc)
	}
	return items
}
