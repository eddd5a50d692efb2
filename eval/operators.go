package eval

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
	"strings"

	"tram/types"
)

// opSpec describes one primitive operator. The whole operator family is
// this table; Unary and Binary nodes just evaluate operands and look the
// symbol up here.
type opSpec struct {
	Symbol string
	Name   string
	Arity  int
	Fn     func(p *Processor, loc types.Location, args []types.Value) (types.Value, error)
}

var operators = map[string]*opSpec{}

func init() {
	for _, op := range []*opSpec{
		{"+", "add", 2, opAdd},
		{"-", "sub", 2, arithmetic("-", subInts, subFloats)},
		{"*", "mul", 2, opMul},
		{"/", "div", 2, opDiv},
		{"//", "floordiv", 2, arithmetic("//", floorDivInts, floorDivFloats)},
		{"%", "mod", 2, arithmetic("%", modInts, modFloats)},
		{"**", "pow", 2, arithmetic("**", powInts, powFloats)},
		{"==", "eq", 2, opEq},
		{"!=", "ne", 2, opNe},
		{"<", "lt", 2, comparison("<", func(c int) bool { return c < 0 })},
		{"<=", "le", 2, comparison("<=", func(c int) bool { return c <= 0 })},
		{">", "gt", 2, comparison(">", func(c int) bool { return c > 0 })},
		{">=", "ge", 2, comparison(">=", func(c int) bool { return c >= 0 })},
		{"in", "contains", 2, opIn},
		{"neg", "neg", 1, opNeg},
		{"not", "not", 1, opNot},
	} {
		operators[op.Symbol] = op
	}
}

// OperatorSymbols lists the symbols of all operators with the given arity
func OperatorSymbols(arity int) []string {
	var out []string
	for sym, op := range operators {
		if op.Arity == arity {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// applyOperator evaluates a binary operator on two values
func (p *Processor) applyOperator(symbol string, loc types.Location, a, b types.Value) (types.Value, error) {
	op, ok := operators[symbol]
	if !ok || op.Arity != 2 {
		return nil, p.NewError(p.Classes.SyntaxError, loc, "unknown binary operator '%s'", symbol)
	}
	return op.Fn(p, loc, []types.Value{a, b})
}

type intOp func(p *Processor, loc types.Location, x, y int64) (types.Value, error)
type floatOp func(p *Processor, loc types.Location, x, y float64) (types.Value, error)

// arithmetic builds a numeric operator: int with int stays int, any float
// operand widens both
func arithmetic(symbol string, ints intOp, floats floatOp) func(*Processor, types.Location, []types.Value) (types.Value, error) {
	return func(p *Processor, loc types.Location, args []types.Value) (types.Value, error) {
		a, b := args[0], args[1]
		ai, aInt := a.(types.IntValue)
		bi, bInt := b.(types.IntValue)
		if aInt && bInt {
			return ints(p, loc, ai.Val, bi.Val)
		}
		x, ok := types.ToFloat(a)
		if !ok {
			return nil, p.operandError(loc, symbol, 1, a, "int or float")
		}
		y, ok := types.ToFloat(b)
		if !ok {
			return nil, p.operandError(loc, symbol, 2, b, "int or float")
		}
		return floats(p, loc, x, y)
	}
}

func (p *Processor) overflow(loc types.Location, symbol string) error {
	return p.NewError(p.Classes.ArithmeticError, loc, "integer overflow in '%s'", symbol)
}

// mul64 multiplies two int64s, reporting whether the product fits
func mul64(x, y int64) (int64, bool) {
	neg := (x < 0) != (y < 0)
	hi, lo := bits.Mul64(absUint(x), absUint(y))
	if hi != 0 {
		return 0, false
	}
	if neg {
		if lo > 1<<63 {
			return 0, false
		}
		return int64(-lo), true
	}
	if lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

func absUint(x int64) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}

func addInts(p *Processor, loc types.Location, x, y int64) (types.Value, error) {
	r := x + y
	if (x >= 0) == (y >= 0) && (r >= 0) != (x >= 0) {
		return nil, p.overflow(loc, "+")
	}
	return types.NewInt(r), nil
}

func addFloats(_ *Processor, _ types.Location, x, y float64) (types.Value, error) {
	return types.NewFloat(x + y), nil
}

func subInts(p *Processor, loc types.Location, x, y int64) (types.Value, error) {
	r := x - y
	if (x >= 0) != (y >= 0) && (r >= 0) != (x >= 0) {
		return nil, p.overflow(loc, "-")
	}
	return types.NewInt(r), nil
}

func subFloats(_ *Processor, _ types.Location, x, y float64) (types.Value, error) {
	return types.NewFloat(x - y), nil
}

func mulInts(p *Processor, loc types.Location, x, y int64) (types.Value, error) {
	r, ok := mul64(x, y)
	if !ok {
		return nil, p.overflow(loc, "*")
	}
	return types.NewInt(r), nil
}

func mulFloats(_ *Processor, _ types.Location, x, y float64) (types.Value, error) {
	return types.NewFloat(x * y), nil
}

func floorDivInts(p *Processor, loc types.Location, x, y int64) (types.Value, error) {
	if y == 0 {
		return nil, p.NewError(p.Classes.ZeroDivisionError, loc, "integer division or modulo by zero")
	}
	if x == math.MinInt64 && y == -1 {
		return nil, p.overflow(loc, "//")
	}
	q := x / y
	if x%y != 0 && (x < 0) != (y < 0) {
		q--
	}
	return types.NewInt(q), nil
}

func floorDivFloats(p *Processor, loc types.Location, x, y float64) (types.Value, error) {
	if y == 0 {
		return nil, p.NewError(p.Classes.ZeroDivisionError, loc, "float floor division by zero")
	}
	return types.NewFloat(math.Floor(x / y)), nil
}

func modInts(p *Processor, loc types.Location, x, y int64) (types.Value, error) {
	if y == 0 {
		return nil, p.NewError(p.Classes.ZeroDivisionError, loc, "integer division or modulo by zero")
	}
	r := x % y
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return types.NewInt(r), nil
}

func modFloats(p *Processor, loc types.Location, x, y float64) (types.Value, error) {
	if y == 0 {
		return nil, p.NewError(p.Classes.ZeroDivisionError, loc, "float modulo")
	}
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return types.NewFloat(r), nil
}

func powInts(p *Processor, loc types.Location, x, y int64) (types.Value, error) {
	if y < 0 {
		return powFloats(p, loc, float64(x), float64(y))
	}
	result := int64(1)
	var ok bool
	for base := x; y > 0; y >>= 1 {
		if y&1 == 1 {
			if result, ok = mul64(result, base); !ok {
				return nil, p.overflow(loc, "**")
			}
		}
		if y > 1 {
			if base, ok = mul64(base, base); !ok {
				return nil, p.overflow(loc, "**")
			}
		}
	}
	return types.NewInt(result), nil
}

func powFloats(p *Processor, loc types.Location, x, y float64) (types.Value, error) {
	if x == 0 && y < 0 {
		return nil, p.NewError(p.Classes.ZeroDivisionError, loc, "0.0 cannot be raised to a negative power")
	}
	return types.NewFloat(math.Pow(x, y)), nil
}

var addNumbers = arithmetic("+", addInts, addFloats)

func opAdd(p *Processor, loc types.Location, args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	switch x := a.(type) {
	case types.StrValue:
		y, ok := b.(types.StrValue)
		if !ok {
			return nil, p.operandError(loc, "+", 2, b, "str")
		}
		return types.NewStr(x.Value() + y.Value()), nil
	case types.ListValue:
		y, ok := b.(types.ListValue)
		if !ok {
			return nil, p.operandError(loc, "+", 2, b, "list")
		}
		return x.Concat(y), nil
	case types.TupleValue:
		y, ok := b.(types.TupleValue)
		if !ok {
			return nil, p.operandError(loc, "+", 2, b, "tuple")
		}
		elems := append(append([]types.Value{}, x.Elements()...), y.Elements()...)
		return types.NewTuple(elems), nil
	}
	return addNumbers(p, loc, args)
}

var mulNumbers = arithmetic("*", mulInts, mulFloats)

func opMul(p *Processor, loc types.Location, args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	switch x := a.(type) {
	case types.StrValue, types.ListValue, types.TupleValue:
		n, ok := b.(types.IntValue)
		if !ok {
			return nil, p.operandError(loc, "*", 2, b, "int")
		}
		count := int(max(n.Val, 0))
		switch s := x.(type) {
		case types.StrValue:
			return types.NewStr(strings.Repeat(s.Value(), count)), nil
		case types.ListValue:
			return types.NewList(repeat(s.Elements(), count)), nil
		case types.TupleValue:
			return types.NewTuple(repeat(s.Elements(), count)), nil
		}
	}
	return mulNumbers(p, loc, args)
}

func repeat(elems []types.Value, n int) []types.Value {
	out := make([]types.Value, 0, len(elems)*n)
	for i := 0; i < n; i++ {
		out = append(out, elems...)
	}
	return out
}

func opDiv(p *Processor, loc types.Location, args []types.Value) (types.Value, error) {
	x, ok := types.ToFloat(args[0])
	if !ok {
		return nil, p.operandError(loc, "/", 1, args[0], "int or float")
	}
	y, ok := types.ToFloat(args[1])
	if !ok {
		return nil, p.operandError(loc, "/", 2, args[1], "int or float")
	}
	if y == 0 {
		return nil, p.NewError(p.Classes.ZeroDivisionError, loc, "division by zero")
	}
	return types.NewFloat(x / y), nil
}

func opEq(_ *Processor, _ types.Location, args []types.Value) (types.Value, error) {
	return types.NewBool(args[0].Equal(args[1])), nil
}

func opNe(_ *Processor, _ types.Location, args []types.Value) (types.Value, error) {
	return types.NewBool(!args[0].Equal(args[1])), nil
}

// comparison builds an ordering operator over numbers or strings
func comparison(symbol string, test func(int) bool) func(*Processor, types.Location, []types.Value) (types.Value, error) {
	return func(p *Processor, loc types.Location, args []types.Value) (types.Value, error) {
		c, err := p.compare(loc, symbol, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return types.NewBool(test(c)), nil
	}
}

func (p *Processor) compare(loc types.Location, symbol string, a, b types.Value) (int, error) {
	if ai, ok := a.(types.IntValue); ok {
		if bi, ok := b.(types.IntValue); ok {
			switch {
			case ai.Val < bi.Val:
				return -1, nil
			case ai.Val > bi.Val:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := types.ToFloat(a); ok {
		if y, ok := types.ToFloat(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := a.(types.StrValue); ok {
		if y, ok := b.(types.StrValue); ok {
			return strings.Compare(x.Value(), y.Value()), nil
		}
	}
	return 0, p.NewError(p.Classes.TypeError, loc, "'%s' not supported between instances of '%s' and '%s'",
		symbol, p.TypeOf(a), p.TypeOf(b))
}

func opIn(p *Processor, loc types.Location, args []types.Value) (types.Value, error) {
	needle, hay := args[0], args[1]
	switch h := hay.(type) {
	case types.StrValue:
		s, ok := needle.(types.StrValue)
		if !ok {
			return nil, p.operandError(loc, "in", 1, needle, "str")
		}
		return types.NewBool(strings.Contains(h.Value(), s.Value())), nil
	case types.MapValue:
		if !types.Hashable(needle) {
			return nil, p.NewError(p.Classes.TypeError, loc, "unhashable type: '%s'", p.TypeOf(needle))
		}
		_, ok := h.Get(needle)
		return types.NewBool(ok), nil
	case types.ListValue, types.TupleValue:
		elems, _ := types.Elements(h)
		for _, e := range elems {
			if e.Equal(needle) {
				return types.True, nil
			}
		}
		return types.False, nil
	}
	return nil, p.operandError(loc, "in", 2, hay, "str, list, tuple or map")
}

func opNeg(p *Processor, loc types.Location, args []types.Value) (types.Value, error) {
	switch x := args[0].(type) {
	case types.IntValue:
		if x.Val == math.MinInt64 {
			return nil, p.overflow(loc, "-")
		}
		return types.NewInt(-x.Val), nil
	case types.FloatValue:
		return types.NewFloat(-x.Val), nil
	}
	return nil, p.operandError(loc, "-", 1, args[0], "int or float")
}

func opNot(_ *Processor, _ types.Location, args []types.Value) (types.Value, error) {
	return types.NewBool(!args[0].Truthy()), nil
}

// Binary applies a two-operand operator
type Binary struct {
	defaults
	Pos   types.Location
	Op    string
	Left  Command
	Right Command
}

func (n *Binary) Kind() string        { return "binary" }
func (n *Binary) Loc() types.Location { return n.Pos }
func (n *Binary) String() string      { return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right) }

func (n *Binary) Expand(p *Processor) error {
	op, ok := operators[n.Op]
	if !ok || op.Arity != 2 {
		return p.NewError(p.Classes.SyntaxError, n.Pos, "unknown binary operator '%s'", n.Op)
	}
	items := evalInto([]Command{n.Left, n.Right})
	items = append(items, Thunk(func(p *Processor) error {
		args, err := p.popN(2)
		if err != nil {
			return err
		}
		v, err := op.Fn(p, n.Pos, args)
		if err != nil {
			return err
		}
		p.acc = v
		return nil
	}))
	p.pushFront(items...)
	return nil
}

func (n *Binary) subst(s *substitution) Command {
	return &Binary{Pos: s.loc, Op: n.Op, Left: n.Left.subst(s), Right: n.Right.subst(s)}
}

// Unary applies a one-operand operator: "neg" or "not"
type Unary struct {
	defaults
	Pos     types.Location
	Op      string
	Operand Command
}

func (n *Unary) Kind() string        { return "unary" }
func (n *Unary) Loc() types.Location { return n.Pos }

func (n *Unary) String() string {
	if n.Op == "neg" {
		return "-" + n.Operand.String()
	}
	return n.Op + " " + n.Operand.String()
}

func (n *Unary) Expand(p *Processor) error {
	op, ok := operators[n.Op]
	if !ok || op.Arity != 1 {
		return p.NewError(p.Classes.SyntaxError, n.Pos, "unknown unary operator '%s'", n.Op)
	}
	p.pushFront(Node(n.Operand), Thunk(func(p *Processor) error {
		v, err := op.Fn(p, n.Pos, []types.Value{p.acc})
		if err != nil {
			return err
		}
		p.acc = v
		return nil
	}))
	return nil
}

func (n *Unary) subst(s *substitution) Command {
	return &Unary{Pos: s.loc, Op: n.Op, Operand: n.Operand.subst(s)}
}

// And evaluates Right only when Left is truthy; the value is the last
// operand evaluated
type And struct {
	defaults
	Pos   types.Location
	Left  Command
	Right Command
}

func (n *And) Kind() string        { return "and" }
func (n *And) Loc() types.Location { return n.Pos }
func (n *And) String() string      { return fmt.Sprintf("(%s and %s)", n.Left, n.Right) }

func (n *And) Expand(p *Processor) error {
	p.pushFront(Node(n.Left), Thunk(func(p *Processor) error {
		if p.acc.Truthy() {
			p.pushFront(Node(n.Right))
		}
		return nil
	}))
	return nil
}

func (n *And) subst(s *substitution) Command {
	return &And{Pos: s.loc, Left: n.Left.subst(s), Right: n.Right.subst(s)}
}

// Or evaluates Right only when Left is falsy
type Or struct {
	defaults
	Pos   types.Location
	Left  Command
	Right Command
}

func (n *Or) Kind() string        { return "or" }
func (n *Or) Loc() types.Location { return n.Pos }
func (n *Or) String() string      { return fmt.Sprintf("(%s or %s)", n.Left, n.Right) }

func (n *Or) Expand(p *Processor) error {
	p.pushFront(Node(n.Left), Thunk(func(p *Processor) error {
		if !p.acc.Truthy() {
			p.pushFront(Node(n.Right))
		}
		return nil
	}))
	return nil
}

func (n *Or) subst(s *substitution) Command {
	return &Or{Pos: s.loc, Left: n.Left.subst(s), Right: n.Right.subst(s)}
}
