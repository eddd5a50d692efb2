package eval

import (
	"fmt"
	"sort"

	"tram/types"
)

// Binding is the metadata recorded the first time a name is defined in an
// environment
type Binding struct {
	QualName string
	Location types.Location
}

// Environment is a lexical scope: name-to-value bindings plus a link to
// the enclosing scope. Lookups walk outward; definitions always land in
// the receiver, so an inner binding shadows an outer one and never
// mutates it.
type Environment struct {
	vars  map[string]types.Value
	meta  map[string]*Binding
	outer *Environment
}

// NewEnvironment creates a scope nested in outer (nil for a root scope)
func NewEnvironment(outer *Environment) *Environment {
	return &Environment{
		vars:  make(map[string]types.Value),
		meta:  make(map[string]*Binding),
		outer: outer,
	}
}

// Outer returns the enclosing scope, nil at the root
func (e *Environment) Outer() *Environment {
	return e.outer
}

// Define binds name in this scope
func (e *Environment) Define(name string, value types.Value) {
	e.DefineAt(name, value, name, types.Internal)
}

// DefineAt binds name in this scope. Metadata is created on the first
// definition only; later definitions just replace the value.
func (e *Environment) DefineAt(name string, value types.Value, qualName string, loc types.Location) {
	e.vars[name] = value
	if _, ok := e.meta[name]; !ok {
		e.meta[name] = &Binding{QualName: qualName, Location: loc}
	}
}

// Lookup searches this scope, then the enclosing ones
func (e *Environment) Lookup(name string) (types.Value, error) {
	for env := e; env != nil; env = env.outer {
		if v, ok := env.vars[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUndefined, name)
}

// LookupLocal searches this scope only
func (e *Environment) LookupLocal(name string) (types.Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Owner returns the innermost scope that binds name
func (e *Environment) Owner(name string) *Environment {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.vars[name]; ok {
			return env
		}
	}
	return nil
}

// Remove deletes a binding from this scope. Outer scopes are untouched.
func (e *Environment) Remove(name string) bool {
	if _, ok := e.vars[name]; !ok {
		return false
	}
	delete(e.vars, name)
	delete(e.meta, name)
	return true
}

// Meta returns the definition metadata of a name bound in this scope
func (e *Environment) Meta(name string) (*Binding, bool) {
	b, ok := e.meta[name]
	return b, ok
}

// Names returns the names bound in this scope, sorted
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.vars))
	for n := range e.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
