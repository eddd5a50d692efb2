package eval

import (
	"errors"
	"fmt"
	"strings"

	"tram/types"
)

// ErrUndefined is wrapped by Environment lookups that walk the whole chain
// without finding the name
var ErrUndefined = errors.New("undefined name")

// Frame is one function-like activation (procedure or module) on the
// context stack
type Frame struct {
	Name     string         // qualified name of the procedure or module
	Location types.Location // where the activation was entered from
}

func (f Frame) String() string {
	return fmt.Sprintf("%s (%s)", f.Name, f.Location)
}

// Traceback lists the function-like activations that were live when an
// event was raised, outermost first
type Traceback []Frame

// QualifiedPrefix joins the frame names into the prefix used for names
// defined inside the innermost frame
func (tb Traceback) QualifiedPrefix() string {
	if len(tb) == 0 {
		return ""
	}
	return tb[len(tb)-1].Name
}

func (tb Traceback) String() string {
	lines := make([]string, len(tb))
	for i, f := range tb {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

// LangError is a language-level exception. It is catchable by try/catch,
// travels through the engine as an Exception event and is itself a value
// so handlers can bind it to a variable.
type LangError struct {
	Class     *ExceptionClass
	Message   string
	Location  types.Location
	Traceback Traceback

	raised bool
}

func (e *LangError) Error() string {
	if e.Message == "" {
		return e.Class.Name
	}
	return e.Class.Name + ": " + e.Message
}

func (e *LangError) Type() types.TypeCode { return types.TYPE_EXCEPTION }

func (e *LangError) String() string {
	return fmt.Sprintf("%s(%s)", e.Class.Name, types.NewStr(e.Message))
}

// Equal is identity: two raises of the same class are different errors
func (e *LangError) Equal(other types.Value) bool {
	o, ok := other.(*LangError)
	return ok && o == e
}

func (e *LangError) Truthy() bool { return true }

func (*LangError) item() {}

// raisedAt returns the error to raise at loc. A fresh error that already
// carries a location is raised as is; one without a location, or one that
// was raised before, is raised as a copy stamped with loc so the value a
// program may still hold keeps its own site and traceback.
func (e *LangError) raisedAt(loc types.Location) *LangError {
	if !e.raised && !e.Location.IsInternal() {
		return e
	}
	c := *e
	c.Location = loc
	c.Traceback = nil
	c.raised = false
	return &c
}

// Is lets errors.Is match a LangError against a class: errors.Is(err, classes.TypeError)
func (e *LangError) Is(target error) bool {
	if c, ok := target.(*ExceptionClass); ok {
		return e.Class.IsDerived(c)
	}
	return false
}

// ProcessorError is a runtime-invariant violation: corrupted stacks,
// unknown queue items, or an event escaping the top level. It is never
// catchable by language code.
type ProcessorError struct {
	Msg       string
	Traceback Traceback
	Cause     error
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}

// NewError builds a language error of the given class
func (p *Processor) NewError(class *ExceptionClass, loc types.Location, format string, args ...any) *LangError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &LangError{Class: class, Message: msg, Location: loc}
}

func (p *Processor) fatalf(format string, args ...any) *ProcessorError {
	return &ProcessorError{Msg: fmt.Sprintf(format, args...), Traceback: p.Traceback()}
}

// operandError reports a badly typed operand of an operator or builtin,
// naming its position: "2nd operand of '+' must be int or float, not str"
func (p *Processor) operandError(loc types.Location, op string, pos int, v types.Value, expected string) *LangError {
	return p.NewError(p.Classes.TypeError, loc, "%s operand of '%s' must be %s, not %s",
		types.Ordinal(pos), op, expected, p.TypeOf(v))
}
