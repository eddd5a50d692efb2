// Package treefile reads command trees written as YAML.
//
// A document is a sequence of commands. A command is either a scalar (a
// constant), a sequence (a list literal) or a mapping with exactly one key
// naming the command kind:
//
//	- set: {name: x, value: 1}
//	- while:
//	    cond: {"<": [{get: x}, 10]}
//	    body:
//	      - set: {name: x, op: "+", value: 1}
//	- print: [{get: x}]
//
// Every decoded node carries the file name and the line and column of the
// YAML node it came from.
package treefile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tram/eval"
	"tram/types"
)

// Error is a decode failure at a position in a command-tree file
type Error struct {
	Loc types.Location
	Msg string
}

func (e *Error) Error() string {
	return e.Loc.String() + ": " + e.Msg
}

// Decode reads a command-tree document. file names the source in locations
// and errors.
func Decode(file string, data []byte) ([]eval.Command, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", displayName(file), err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return DecodeNode(file, &doc)
}

// DecodeFile reads and decodes the command-tree file at path
func DecodeFile(path string) ([]eval.Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, data)
}

// DecodeNode decodes an already parsed YAML node as a command body. A
// single command is accepted where a sequence is expected.
func DecodeNode(file string, n *yaml.Node) ([]eval.Command, error) {
	d := &decoder{file: file}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, nil
		}
		n = n.Content[0]
	}
	return d.body(n)
}

func displayName(file string) string {
	if file == "" {
		return "<input>"
	}
	return file
}

type decoder struct {
	file string
}

func (d *decoder) loc(n *yaml.Node) types.Location {
	return types.Location{File: d.file, Line: n.Line, Column: n.Column}
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	return &Error{Loc: d.loc(n), Msg: fmt.Sprintf(format, args...)}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// body decodes a command sequence; null is the empty body
func (d *decoder) body(n *yaml.Node) ([]eval.Command, error) {
	n = resolve(n)
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		cmd, err := d.command(n)
		if err != nil {
			return nil, err
		}
		return []eval.Command{cmd}, nil
	}
	return d.commands(n.Content)
}

func (d *decoder) commands(nodes []*yaml.Node) ([]eval.Command, error) {
	cmds := make([]eval.Command, 0, len(nodes))
	for _, c := range nodes {
		cmd, err := d.command(c)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (d *decoder) command(n *yaml.Node) (eval.Command, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := d.scalar(n)
		if err != nil {
			return nil, err
		}
		return &eval.Const{Pos: d.loc(n), Value: v}, nil
	case yaml.SequenceNode:
		elems, err := d.commands(n.Content)
		if err != nil {
			return nil, err
		}
		return &eval.ListLit{Pos: d.loc(n), Elems: elems}, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, d.errorf(n, "a command is a mapping with exactly one key, got %d", len(n.Content)/2)
		}
		key := resolve(n.Content[0])
		if key.Kind != yaml.ScalarNode {
			return nil, d.errorf(key, "command kind must be a string")
		}
		return d.kind(key, d.loc(n), n.Content[1])
	}
	return nil, d.errorf(n, "unexpected YAML node")
}

// reference decodes a command where a bare string names a variable
func (d *decoder) reference(n *yaml.Node) (eval.Command, error) {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" {
		return &eval.GetVar{Pos: d.loc(n), Name: n.Value}, nil
	}
	return d.command(n)
}

func (d *decoder) kind(key *yaml.Node, loc types.Location, payload *yaml.Node) (eval.Command, error) {
	payload = resolve(payload)
	switch kind := key.Value; kind {
	case "const":
		v, err := d.value(payload)
		if err != nil {
			return nil, err
		}
		return &eval.Const{Pos: loc, Value: v}, nil
	case "get":
		name, err := d.name(payload, kind)
		if err != nil {
			return nil, err
		}
		return &eval.GetVar{Pos: loc, Name: name}, nil
	case "unset":
		name, err := d.name(payload, kind)
		if err != nil {
			return nil, err
		}
		return &eval.Unset{Pos: loc, Name: name}, nil
	case "import":
		name, err := d.name(payload, kind)
		if err != nil {
			return nil, err
		}
		return &eval.Import{Pos: loc, Name: name}, nil
	case "set":
		return d.set(payload, loc)
	case "block", "scope":
		body, err := d.body(payload)
		if err != nil {
			return nil, err
		}
		return &eval.Block{Pos: loc, Body: body, Scoped: kind == "scope"}, nil
	case "if":
		return d.ifCommand(payload, loc)
	case "while", "do":
		return d.loop(kind, payload, loc)
	case "for":
		return d.forEach(payload, loc)
	case "return":
		if isNull(payload) {
			return &eval.Return{Pos: loc}, nil
		}
		v, err := d.command(payload)
		if err != nil {
			return nil, err
		}
		return &eval.Return{Pos: loc, Value: v}, nil
	case "break", "continue", "rethrow":
		if !isNull(payload) {
			return nil, d.errorf(payload, "%s takes no arguments", kind)
		}
		switch kind {
		case "break":
			return &eval.Break{Pos: loc}, nil
		case "continue":
			return &eval.Continue{Pos: loc}, nil
		}
		return &eval.Rethrow{Pos: loc}, nil
	case "throw":
		v, err := d.command(payload)
		if err != nil {
			return nil, err
		}
		return &eval.Throw{Pos: loc, Value: v}, nil
	case "try":
		return d.try(payload, loc)
	case "print":
		args, err := d.body(payload)
		if err != nil {
			return nil, err
		}
		return &eval.Print{Pos: loc, Args: args}, nil
	case "assert":
		return d.assert(payload, loc)
	case "def":
		return d.function(payload, loc)
	case "lambda":
		return d.lambda(payload, loc)
	case "call":
		return d.call(payload, loc)
	case "external":
		return d.external(payload, loc)
	case "module":
		return d.module(payload, loc)
	case "attr":
		return d.attr(payload, loc)
	case "class":
		return d.class(payload, loc)
	case "macro":
		return d.macro(payload, loc)
	case "expand":
		return d.expand(payload, loc)
	case "and", "or":
		l, r, err := d.pair(payload, kind)
		if err != nil {
			return nil, err
		}
		if kind == "and" {
			return &eval.And{Pos: loc, Left: l, Right: r}, nil
		}
		return &eval.Or{Pos: loc, Left: l, Right: r}, nil
	case "list", "tuple":
		elems, err := d.body(payload)
		if err != nil {
			return nil, err
		}
		if kind == "tuple" {
			return &eval.TupleLit{Pos: loc, Elems: elems}, nil
		}
		return &eval.ListLit{Pos: loc, Elems: elems}, nil
	case "map":
		return d.mapLiteral(payload, loc)
	case "index":
		obj, k, err := d.pair(payload, kind)
		if err != nil {
			return nil, err
		}
		return &eval.Index{Pos: loc, Object: obj, Key: k}, nil
	case "setindex":
		return d.setIndex(payload, loc)
	}

	if op := key.Value; isUnary(op) {
		operand, err := d.command(payload)
		if err != nil {
			return nil, err
		}
		return &eval.Unary{Pos: loc, Op: op, Operand: operand}, nil
	} else if isBinary(op) {
		l, r, err := d.pair(payload, op)
		if err != nil {
			return nil, err
		}
		return &eval.Binary{Pos: loc, Op: op, Left: l, Right: r}, nil
	}
	return nil, d.errorf(key, "unknown command %q", key.Value)
}

func isUnary(op string) bool {
	for _, s := range eval.OperatorSymbols(1) {
		if s == op {
			return true
		}
	}
	return false
}

func isBinary(op string) bool {
	for _, s := range eval.OperatorSymbols(2) {
		if s == op {
			return true
		}
	}
	return false
}

// fields checks that n is a mapping whose keys are among allowed and
// returns the values by key
func (d *decoder) fields(n *yaml.Node, kind string, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "%s expects a mapping with fields %s", kind, strings.Join(allowed, ", "))
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		known := false
		for _, a := range allowed {
			if k.Value == a {
				known = true
				break
			}
		}
		if !known {
			return nil, d.errorf(k, "unknown field %q in %s", k.Value, kind)
		}
		if _, dup := out[k.Value]; dup {
			return nil, d.errorf(k, "duplicate field %q in %s", k.Value, kind)
		}
		out[k.Value] = resolve(n.Content[i+1])
	}
	return out, nil
}

func (d *decoder) required(f map[string]*yaml.Node, n *yaml.Node, kind, field string) (*yaml.Node, error) {
	v, ok := f[field]
	if !ok {
		return nil, d.errorf(n, "%s: missing %q", kind, field)
	}
	return v, nil
}

func (d *decoder) name(n *yaml.Node, kind string) (string, error) {
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) || n.Value == "" {
		at := n
		if at == nil {
			return "", fmt.Errorf("%s: expected a name", kind)
		}
		return "", d.errorf(at, "%s: expected a name", kind)
	}
	return n.Value, nil
}

func (d *decoder) names(n *yaml.Node, kind string) ([]string, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		s, err := d.name(n, kind)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "%s: expected a list of names", kind)
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := d.name(resolve(c), kind)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) flag(n *yaml.Node, kind string) (bool, error) {
	if n == nil {
		return false, nil
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false, d.errorf(n, "%s: expected true or false", kind)
	}
	return b, nil
}

// optional decodes n as a command, or returns nil when the field is absent
func (d *decoder) optional(n *yaml.Node) (eval.Command, error) {
	if n == nil {
		return nil, nil
	}
	return d.command(n)
}

// pair decodes a two element sequence of commands
func (d *decoder) pair(n *yaml.Node, kind string) (eval.Command, eval.Command, error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
		return nil, nil, d.errorf(n, "%s expects two operands", kind)
	}
	l, err := d.command(n.Content[0])
	if err != nil {
		return nil, nil, err
	}
	r, err := d.command(n.Content[1])
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (d *decoder) set(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "set", "name", "value", "op")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "set", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "set")
	if err != nil {
		return nil, err
	}
	valueNode, err := d.required(f, n, "set", "value")
	if err != nil {
		return nil, err
	}
	value, err := d.command(valueNode)
	if err != nil {
		return nil, err
	}
	var op string
	if opNode, ok := f["op"]; ok {
		if !isBinary(opNode.Value) {
			return nil, d.errorf(opNode, "set: unknown operator %q", opNode.Value)
		}
		op = opNode.Value
	}
	return &eval.SetVar{Pos: loc, Name: name, Op: op, Value: value}, nil
}

func (d *decoder) setIndex(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "setindex", "name", "key", "value")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "setindex", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "setindex")
	if err != nil {
		return nil, err
	}
	keyNode, err := d.required(f, n, "setindex", "key")
	if err != nil {
		return nil, err
	}
	valueNode, err := d.required(f, n, "setindex", "value")
	if err != nil {
		return nil, err
	}
	key, err := d.command(keyNode)
	if err != nil {
		return nil, err
	}
	value, err := d.command(valueNode)
	if err != nil {
		return nil, err
	}
	return &eval.SetIndex{Pos: loc, Name: name, Key: key, Value: value}, nil
}

func (d *decoder) ifCommand(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "if", "cond", "then", "else")
	if err != nil {
		return nil, err
	}
	condNode, err := d.required(f, n, "if", "cond")
	if err != nil {
		return nil, err
	}
	cond, err := d.command(condNode)
	if err != nil {
		return nil, err
	}
	then, err := d.body(f["then"])
	if err != nil {
		return nil, err
	}
	els, err := d.body(f["else"])
	if err != nil {
		return nil, err
	}
	return &eval.If{Pos: loc, Cond: cond, Then: then, Else: els}, nil
}

func (d *decoder) loop(kind string, n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, kind, "cond", "body")
	if err != nil {
		return nil, err
	}
	condNode, err := d.required(f, n, kind, "cond")
	if err != nil {
		return nil, err
	}
	cond, err := d.command(condNode)
	if err != nil {
		return nil, err
	}
	body, err := d.body(f["body"])
	if err != nil {
		return nil, err
	}
	if kind == "do" {
		return &eval.DoWhile{Pos: loc, Body: body, Cond: cond}, nil
	}
	return &eval.While{Pos: loc, Cond: cond, Body: body}, nil
}

func (d *decoder) forEach(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "for", "var", "in", "body")
	if err != nil {
		return nil, err
	}
	varNode, err := d.required(f, n, "for", "var")
	if err != nil {
		return nil, err
	}
	name, err := d.name(varNode, "for")
	if err != nil {
		return nil, err
	}
	inNode, err := d.required(f, n, "for", "in")
	if err != nil {
		return nil, err
	}
	iter, err := d.command(inNode)
	if err != nil {
		return nil, err
	}
	body, err := d.body(f["body"])
	if err != nil {
		return nil, err
	}
	return &eval.ForEach{Pos: loc, Var: name, Iter: iter, Body: body}, nil
}

func (d *decoder) try(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "try", "body", "catch", "finally")
	if err != nil {
		return nil, err
	}
	body, err := d.body(f["body"])
	if err != nil {
		return nil, err
	}
	finally, err := d.body(f["finally"])
	if err != nil {
		return nil, err
	}
	var catches []*eval.Catch
	if c := f["catch"]; !isNull(c) {
		clauses := []*yaml.Node{c}
		if c.Kind == yaml.SequenceNode {
			clauses = c.Content
		}
		for _, cn := range clauses {
			clause, err := d.catch(resolve(cn))
			if err != nil {
				return nil, err
			}
			catches = append(catches, clause)
		}
	}
	return &eval.Try{Pos: loc, Body: body, Catches: catches, Finally: finally}, nil
}

// catch decodes {class: Name | [Names], as: var, body: [...]}; no class
// catches everything
func (d *decoder) catch(n *yaml.Node) (*eval.Catch, error) {
	f, err := d.fields(n, "catch", "class", "as", "body")
	if err != nil {
		return nil, err
	}
	classes, err := d.names(f["class"], "catch")
	if err != nil {
		return nil, err
	}
	var v string
	if asNode, ok := f["as"]; ok {
		if v, err = d.name(asNode, "catch"); err != nil {
			return nil, err
		}
	}
	body, err := d.body(f["body"])
	if err != nil {
		return nil, err
	}
	return &eval.Catch{Pos: d.loc(n), Classes: classes, Var: v, Body: body}, nil
}

func (d *decoder) assert(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "assert", "cond", "message")
	if err != nil {
		return nil, err
	}
	condNode, err := d.required(f, n, "assert", "cond")
	if err != nil {
		return nil, err
	}
	cond, err := d.command(condNode)
	if err != nil {
		return nil, err
	}
	msg, err := d.optional(f["message"])
	if err != nil {
		return nil, err
	}
	return &eval.Assert{Pos: loc, Cond: cond, Message: msg}, nil
}

func (d *decoder) function(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "def", "name", "params", "vararg", "bound", "body")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "def", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "def")
	if err != nil {
		return nil, err
	}
	params, err := d.names(f["params"], "def")
	if err != nil {
		return nil, err
	}
	bound, err := d.names(f["bound"], "def")
	if err != nil {
		return nil, err
	}
	vararg, err := d.flag(f["vararg"], "def")
	if err != nil {
		return nil, err
	}
	if vararg && len(params) == 0 {
		return nil, d.errorf(n, "def: vararg needs at least one parameter")
	}
	body, err := d.body(f["body"])
	if err != nil {
		return nil, err
	}
	return &eval.Function{Pos: loc, Name: name, Params: params, Vararg: vararg, Bound: bound, Body: body}, nil
}

func (d *decoder) lambda(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "lambda", "params", "vararg", "body")
	if err != nil {
		return nil, err
	}
	params, err := d.names(f["params"], "lambda")
	if err != nil {
		return nil, err
	}
	vararg, err := d.flag(f["vararg"], "lambda")
	if err != nil {
		return nil, err
	}
	if vararg && len(params) == 0 {
		return nil, d.errorf(n, "lambda: vararg needs at least one parameter")
	}
	bodyNode, err := d.required(f, n, "lambda", "body")
	if err != nil {
		return nil, err
	}
	body, err := d.command(bodyNode)
	if err != nil {
		return nil, err
	}
	return &eval.Lambda{Pos: loc, Params: params, Vararg: vararg, Body: body}, nil
}

func (d *decoder) call(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "call", "fn", "args")
	if err != nil {
		return nil, err
	}
	fnNode, err := d.required(f, n, "call", "fn")
	if err != nil {
		return nil, err
	}
	fn, err := d.reference(fnNode)
	if err != nil {
		return nil, err
	}
	args, err := d.body(f["args"])
	if err != nil {
		return nil, err
	}
	return &eval.Call{Pos: loc, Fn: fn, Args: args}, nil
}

func (d *decoder) external(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "external", "name", "args")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "external", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "external")
	if err != nil {
		return nil, err
	}
	args, err := d.body(f["args"])
	if err != nil {
		return nil, err
	}
	return &eval.ExternalCall{Pos: loc, Name: name, Args: args}, nil
}

func (d *decoder) module(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "module", "name", "lazy", "body")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "module", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "module")
	if err != nil {
		return nil, err
	}
	lazy, err := d.flag(f["lazy"], "module")
	if err != nil {
		return nil, err
	}
	body, err := d.body(f["body"])
	if err != nil {
		return nil, err
	}
	return &eval.DefineModule{Pos: loc, Name: name, Body: body, Lazy: lazy}, nil
}

func (d *decoder) attr(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "attr", "object", "name")
	if err != nil {
		return nil, err
	}
	objNode, err := d.required(f, n, "attr", "object")
	if err != nil {
		return nil, err
	}
	obj, err := d.reference(objNode)
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "attr", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "attr")
	if err != nil {
		return nil, err
	}
	return &eval.Attr{Pos: loc, Object: obj, Name: name}, nil
}

func (d *decoder) class(n *yaml.Node, loc types.Location) (eval.Command, error) {
	// {class: Name} is shorthand for a class deriving from Exception
	if n.Kind == yaml.ScalarNode {
		name, err := d.name(n, "class")
		if err != nil {
			return nil, err
		}
		return &eval.DefineClass{Pos: loc, Name: name}, nil
	}
	f, err := d.fields(n, "class", "name", "base")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "class", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "class")
	if err != nil {
		return nil, err
	}
	var base string
	if b, ok := f["base"]; ok {
		if base, err = d.name(b, "class"); err != nil {
			return nil, err
		}
	}
	return &eval.DefineClass{Pos: loc, Name: name, Base: base}, nil
}

func (d *decoder) macro(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "macro", "name", "params", "body")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "macro", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "macro")
	if err != nil {
		return nil, err
	}
	params, err := d.names(f["params"], "macro")
	if err != nil {
		return nil, err
	}
	body, err := d.body(f["body"])
	if err != nil {
		return nil, err
	}
	return &eval.DefineMacro{Pos: loc, Name: name, Params: params, Body: body}, nil
}

func (d *decoder) expand(n *yaml.Node, loc types.Location) (eval.Command, error) {
	f, err := d.fields(n, "expand", "name", "args")
	if err != nil {
		return nil, err
	}
	nameNode, err := d.required(f, n, "expand", "name")
	if err != nil {
		return nil, err
	}
	name, err := d.name(nameNode, "expand")
	if err != nil {
		return nil, err
	}
	args, err := d.body(f["args"])
	if err != nil {
		return nil, err
	}
	return &eval.MacroCall{Pos: loc, Name: name, Args: args}, nil
}

// mapLiteral accepts a mapping (keys are string constants) or a sequence
// of [key, value] pairs
func (d *decoder) mapLiteral(n *yaml.Node, loc types.Location) (eval.Command, error) {
	lit := &eval.MapLit{Pos: loc}
	switch {
	case isNull(n):
	case n.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := resolve(n.Content[i])
			if k.Kind != yaml.ScalarNode {
				return nil, d.errorf(k, "map: keys must be scalars, use a list of pairs")
			}
			v, err := d.command(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			lit.Keys = append(lit.Keys, &eval.Const{Pos: d.loc(k), Value: types.NewStr(k.Value)})
			lit.Values = append(lit.Values, v)
		}
	case n.Kind == yaml.SequenceNode:
		for _, c := range n.Content {
			k, v, err := d.pair(resolve(c), "map entry")
			if err != nil {
				return nil, err
			}
			lit.Keys = append(lit.Keys, k)
			lit.Values = append(lit.Values, v)
		}
	default:
		return nil, d.errorf(n, "map expects a mapping or a list of pairs")
	}
	return lit, nil
}

func (d *decoder) scalar(n *yaml.Node) (types.Value, error) {
	switch tag := n.ShortTag(); tag {
	case "!!null":
		return types.Null, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, d.errorf(n, "%v", err)
		}
		return types.NewBool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, d.errorf(n, "integer %s out of range", n.Value)
		}
		return types.NewInt(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, d.errorf(n, "%v", err)
		}
		return types.NewFloat(f), nil
	case "!!str":
		return types.NewStr(n.Value), nil
	default:
		return nil, d.errorf(n, "unsupported scalar tag %s", tag)
	}
}

// value converts plain YAML data into a runtime value
func (d *decoder) value(n *yaml.Node) (types.Value, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return d.scalar(n)
	case yaml.SequenceNode:
		elems := make([]types.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.value(c)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		return types.NewList(elems), nil
	case yaml.MappingNode:
		pairs := make([][2]types.Value, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := resolve(n.Content[i])
			if k.Kind != yaml.ScalarNode {
				return nil, d.errorf(k, "const: map keys must be scalars")
			}
			key, err := d.scalar(k)
			if err != nil {
				return nil, err
			}
			v, err := d.value(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, [2]types.Value{key, v})
		}
		return types.NewMapFromPairs(pairs), nil
	}
	return nil, d.errorf(n, "unexpected YAML node")
}

// DecodeValue converts plain YAML data into a runtime value: scalars as
// constants, sequences as lists, mappings as maps
func DecodeValue(file string, n *yaml.Node) (types.Value, error) {
	d := &decoder{file: file}
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	return d.value(n)
}
