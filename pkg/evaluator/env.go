package evaluator

import (
	"sort"
	"strings"
)

// Scope-path markers for loop levels. They are not valid identifiers, so a
// loop level can never be mistaken for a function scope.
const (
	ForiMarker    = "@fori"
	ForeachMarker = "@foreach"
)

// Path addresses a scope in the environment tree. The empty path is the root.
type Path []string

// Push returns a new path with name appended. The receiver is never aliased.
func (p Path) Push(name string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

// Parent returns the path with its last element removed.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

func (p Path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	return strings.Join(p, "/")
}

// Scope is one level of the environment: its own variable bindings, an
// optional function definition, an optional pending return value and the
// nested scopes below it.
type Scope struct {
	vars     map[string]Value
	children map[string]*Scope
	def      *Func
	ret      Value
}

func newScope() *Scope {
	return &Scope{vars: make(map[string]Value)}
}

// Lookup returns the scope's own binding for name.
func (s *Scope) Lookup(name string) (Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Bind sets a binding in this scope.
func (s *Scope) Bind(name string, v Value) {
	s.vars[name] = v
}

// Def returns the function defined at this scope, if any.
func (s *Scope) Def() *Func {
	return s.def
}

// Return returns the pending return value, or nil when none was stored.
func (s *Scope) Return() Value {
	return s.ret
}

// Names returns the scope's own variable names in sorted order.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scope) child(name string) (*Scope, bool) {
	if s.children == nil {
		return nil, false
	}
	c, ok := s.children[name]
	return c, ok
}

// reset clears the transient state left by a call, keeping the definition.
func (s *Scope) reset() {
	s.vars = make(map[string]Value)
	s.children = nil
	s.ret = nil
}

// Env is the environment tree: a root scope with nested scopes addressed
// by Path. One Env belongs to one run at a time.
type Env struct {
	root *Scope
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{root: newScope()}
}

// Root returns the root scope.
func (e *Env) Root() *Scope {
	return e.root
}

// Get returns the scope at path.
func (e *Env) Get(path Path) (*Scope, bool) {
	s := e.root
	for _, name := range path {
		c, ok := s.child(name)
		if !ok {
			return nil, false
		}
		s = c
	}
	return s, true
}

// Ensure returns the scope at path, creating missing levels.
func (e *Env) Ensure(path Path) *Scope {
	s := e.root
	for _, name := range path {
		c, ok := s.child(name)
		if !ok {
			if s.children == nil {
				s.children = make(map[string]*Scope)
			}
			c = newScope()
			s.children[name] = c
		}
		s = c
	}
	return s
}

// Delete removes the scope at path and everything below it. Deleting a
// missing path or the root is a no-op.
func (e *Env) Delete(path Path) {
	if len(path) == 0 {
		return
	}
	parent, ok := e.Get(path.Parent())
	if !ok || parent.children == nil {
		return
	}
	delete(parent.children, path[len(path)-1])
}

// Resolve looks name up along the chain from path to the root, checking
// each level's own bindings. The nearest binding wins.
func (e *Env) Resolve(path Path, name string) (Value, bool) {
	scopes := e.chain(path)
	for i := len(scopes) - 1; i >= 0; i-- {
		if v, ok := scopes[i].Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// chain returns the existing scopes from the root down along path.
func (e *Env) chain(path Path) []*Scope {
	scopes := make([]*Scope, 1, len(path)+1)
	scopes[0] = e.root
	s := e.root
	for _, name := range path {
		c, ok := s.child(name)
		if !ok {
			break
		}
		scopes = append(scopes, c)
		s = c
	}
	return scopes
}

// Define binds name at path, creating the scope if needed.
func (e *Env) Define(path Path, name string, v Value) {
	e.Ensure(path).Bind(name, v)
}

// DefineFunc stores fn as the definition of scope path+[name].
func (e *Env) DefineFunc(path Path, name string, fn *Func) {
	e.Ensure(path.Push(name)).def = fn
}

// ResolveFunc finds the definition of name by checking scope A+[name] for
// each ancestor A of path, nearest first.
func (e *Env) ResolveFunc(path Path, name string) (*Func, bool) {
	scopes := e.chain(path)
	for i := len(scopes) - 1; i >= 0; i-- {
		if c, ok := scopes[i].child(name); ok && c.def != nil {
			return c.def, true
		}
	}
	return nil, false
}

// SetReturn stores v in the return slot of the scope at path.
func (e *Env) SetReturn(path Path, v Value) {
	e.Ensure(path).ret = v
}

// EndCall resets the call scope at path: a scope holding a definition keeps
// it and loses its bindings, nested scopes and return slot; any other scope
// is deleted.
func (e *Env) EndCall(path Path) {
	s, ok := e.Get(path)
	if !ok {
		return
	}
	if s.def == nil {
		e.Delete(path)
		return
	}
	s.reset()
}

// Snapshot returns a copy of the root bindings. Definitions and return
// slots are never part of it.
func (e *Env) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.root.vars))
	for name, v := range e.root.vars {
		out[name] = v
	}
	return out
}

// Names returns the root binding names in sorted order.
func (e *Env) Names() []string {
	return e.root.Names()
}

// Functions returns the names of functions defined directly under the root,
// sorted.
func (e *Env) Functions() []string {
	var names []string
	for name, c := range e.root.children {
		if c.def != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
