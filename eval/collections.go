package eval

import (
	"fmt"
	"strings"

	"tram/types"
)

// ListLit builds a list from its element expressions
type ListLit struct {
	defaults
	Pos   types.Location
	Elems []Command
}

func (n *ListLit) Kind() string        { return "list" }
func (n *ListLit) Loc() types.Location { return n.Pos }
func (n *ListLit) String() string      { return "[" + joinCommands(n.Elems, ", ") + "]" }

func (n *ListLit) Expand(p *Processor) error {
	items := evalInto(n.Elems)
	items = append(items, Thunk(func(p *Processor) error {
		vals, err := p.popN(len(n.Elems))
		if err != nil {
			return err
		}
		p.acc = types.NewList(vals)
		return nil
	}))
	p.pushFront(items...)
	return nil
}

func (n *ListLit) subst(s *substitution) Command {
	return &ListLit{Pos: s.loc, Elems: substAll(n.Elems, s)}
}

// TupleLit builds a tuple from its element expressions
type TupleLit struct {
	defaults
	Pos   types.Location
	Elems []Command
}

func (n *TupleLit) Kind() string        { return "tuple" }
func (n *TupleLit) Loc() types.Location { return n.Pos }

func (n *TupleLit) String() string {
	if len(n.Elems) == 1 {
		return "(" + n.Elems[0].String() + ",)"
	}
	return "(" + joinCommands(n.Elems, ", ") + ")"
}

func (n *TupleLit) Expand(p *Processor) error {
	items := evalInto(n.Elems)
	items = append(items, Thunk(func(p *Processor) error {
		vals, err := p.popN(len(n.Elems))
		if err != nil {
			return err
		}
		p.acc = types.NewTuple(vals)
		return nil
	}))
	p.pushFront(items...)
	return nil
}

func (n *TupleLit) subst(s *substitution) Command {
	return &TupleLit{Pos: s.loc, Elems: substAll(n.Elems, s)}
}

// MapLit builds a map; Keys and Values are parallel
type MapLit struct {
	defaults
	Pos    types.Location
	Keys   []Command
	Values []Command
}

func (n *MapLit) Kind() string        { return "map" }
func (n *MapLit) Loc() types.Location { return n.Pos }

func (n *MapLit) String() string {
	parts := make([]string, len(n.Keys))
	for i := range n.Keys {
		parts[i] = fmt.Sprintf("%s: %s", n.Keys[i], n.Values[i])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (n *MapLit) Expand(p *Processor) error {
	if len(n.Keys) != len(n.Values) {
		return p.fatalf("map literal with %d keys and %d values", len(n.Keys), len(n.Values))
	}
	cmds := make([]Command, 0, 2*len(n.Keys))
	for i := range n.Keys {
		cmds = append(cmds, n.Keys[i], n.Values[i])
	}
	items := evalInto(cmds)
	items = append(items, Thunk(func(p *Processor) error {
		vals, err := p.popN(len(cmds))
		if err != nil {
			return err
		}
		pairs := make([][2]types.Value, 0, len(n.Keys))
		for i := 0; i < len(vals); i += 2 {
			if !types.Hashable(vals[i]) {
				return p.NewError(p.Classes.TypeError, n.Keys[i/2].Loc(), "unhashable type: '%s'", p.TypeOf(vals[i]))
			}
			pairs = append(pairs, [2]types.Value{vals[i], vals[i+1]})
		}
		p.acc = types.NewMapFromPairs(pairs)
		return nil
	}))
	p.pushFront(items...)
	return nil
}

func (n *MapLit) subst(s *substitution) Command {
	return &MapLit{Pos: s.loc, Keys: substAll(n.Keys, s), Values: substAll(n.Values, s)}
}

// Index reads an element of a list, tuple or string (negative indices
// count from the end) or the value of a map key
type Index struct {
	defaults
	Pos    types.Location
	Object Command
	Key    Command
}

func (n *Index) Kind() string        { return "index" }
func (n *Index) Loc() types.Location { return n.Pos }
func (n *Index) String() string      { return fmt.Sprintf("%s[%s]", n.Object, n.Key) }

func (n *Index) Expand(p *Processor) error {
	items := evalInto([]Command{n.Object, n.Key})
	items = append(items, Thunk(func(p *Processor) error {
		args, err := p.popN(2)
		if err != nil {
			return err
		}
		v, err := p.index(n.Pos, args[0], args[1])
		if err != nil {
			return err
		}
		p.acc = v
		return nil
	}))
	p.pushFront(items...)
	return nil
}

func (n *Index) subst(s *substitution) Command {
	return &Index{Pos: s.loc, Object: n.Object.subst(s), Key: n.Key.subst(s)}
}

// position normalizes a sequence index
func (p *Processor) position(loc types.Location, container, key types.Value, length int) (int, error) {
	k, ok := key.(types.IntValue)
	if !ok {
		return 0, p.NewError(p.Classes.TypeError, loc, "%s indices must be integers, not %s", p.TypeOf(container), p.TypeOf(key))
	}
	i := int(k.Val)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, p.NewError(p.Classes.IndexError, loc, "%s index out of range", p.TypeOf(container))
	}
	return i, nil
}

func (p *Processor) index(loc types.Location, container, key types.Value) (types.Value, error) {
	switch c := container.(type) {
	case types.ListValue:
		i, err := p.position(loc, c, key, c.Len())
		if err != nil {
			return nil, err
		}
		return c.Get(i), nil
	case types.TupleValue:
		i, err := p.position(loc, c, key, c.Len())
		if err != nil {
			return nil, err
		}
		return c.Get(i), nil
	case types.StrValue:
		chars := c.Chars()
		i, err := p.position(loc, c, key, len(chars))
		if err != nil {
			return nil, err
		}
		return chars[i], nil
	case types.MapValue:
		if !types.Hashable(key) {
			return nil, p.NewError(p.Classes.TypeError, loc, "unhashable type: '%s'", p.TypeOf(key))
		}
		v, ok := c.Get(key)
		if !ok {
			return nil, p.NewError(p.Classes.KeyError, loc, "%s", key.String())
		}
		return v, nil
	}
	return nil, p.NewError(p.Classes.TypeError, loc, "'%s' object is not subscriptable", p.TypeOf(container))
}

// SetIndex replaces an element of the list or map bound to Name. Values
// are copy-on-write, so the variable is rebound to the updated collection
// in the scope that owns it.
type SetIndex struct {
	defaults
	Pos   types.Location
	Name  string
	Key   Command
	Value Command
}

func (n *SetIndex) Kind() string        { return "setindex" }
func (n *SetIndex) Loc() types.Location { return n.Pos }
func (n *SetIndex) String() string      { return fmt.Sprintf("%s[%s] = %s", n.Name, n.Key, n.Value) }

func (n *SetIndex) Expand(p *Processor) error {
	items := evalInto([]Command{n.Key, n.Value})
	items = append(items, Thunk(func(p *Processor) error {
		args, err := p.popN(2)
		if err != nil {
			return err
		}
		key, val := args[0], args[1]
		owner := p.Env().Owner(n.Name)
		if owner == nil {
			return p.NewError(p.Classes.NameError, n.Pos, "name '%s' is not defined", n.Name)
		}
		cur, _ := owner.LookupLocal(n.Name)
		var updated types.Value
		switch c := cur.(type) {
		case types.ListValue:
			i, err := p.position(n.Pos, c, key, c.Len())
			if err != nil {
				return err
			}
			updated = c.Set(i, val)
		case types.MapValue:
			if !types.Hashable(key) {
				return p.NewError(p.Classes.TypeError, n.Pos, "unhashable type: '%s'", p.TypeOf(key))
			}
			updated = c.Set(key, val)
		default:
			return p.NewError(p.Classes.TypeError, n.Pos, "'%s' object does not support item assignment", p.TypeOf(cur))
		}
		owner.DefineAt(n.Name, updated, n.Name, n.Pos)
		p.acc = val
		return nil
	}))
	p.pushFront(items...)
	return nil
}

// A parameter bound to a plain variable reference names the target
func (n *SetIndex) subst(s *substitution) Command {
	name := n.Name
	if arg, ok := s.params[name]; ok {
		if g, ok := arg.(*GetVar); ok {
			name = g.Name
		}
	}
	return &SetIndex{Pos: s.loc, Name: name, Key: n.Key.subst(s), Value: n.Value.subst(s)}
}
