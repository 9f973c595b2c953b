// Package vfvar defines Variable, ScopedVariable, and their total order
// (spec.md §3).
package vfvar

import (
	"fmt"
	"sort"
	"strings"
)

// Namespace distinguishes the three kinds of named entity a specification
// can define.
type Namespace int

const (
	Signal Namespace = iota
	Data
	Scale
)

// String renders the namespace the way it appears in diagnostics.
func (n Namespace) String() string {
	switch n {
	case Signal:
		return "signal"
	case Data:
		return "data"
	case Scale:
		return "scale"
	default:
		return "unknown"
	}
}

// Variable is a (namespace, name) pair. Names never contain ':'.
type Variable struct {
	Namespace Namespace
	Name      string
}

// New constructs a Variable, panicking if name contains the reserved ':'
// separator — a caller bug, never a user-input error.
func New(ns Namespace, name string) Variable {
	if strings.Contains(name, ":") {
		panic(fmt.Sprintf("vfvar: variable name %q must not contain ':'", name))
	}
	return Variable{Namespace: ns, Name: name}
}

// String renders "namespace:name", used as a stable map key and in
// diagnostics.
func (v Variable) String() string {
	return fmt.Sprintf("%s:%s", v.Namespace, v.Name)
}

// Less implements the total order: by namespace, then by name.
func (v Variable) Less(other Variable) bool {
	if v.Namespace != other.Namespace {
		return v.Namespace < other.Namespace
	}
	return v.Name < other.Name
}

// Scope is a sequence of group-mark indices; an empty scope denotes the
// top level. Scopes are compared and hashed by value, so callers should
// treat them as immutable once constructed.
type Scope []int

// String renders the scope as e.g. "[0,2]" for diagnostics.
func (s Scope) String() string {
	parts := make([]string, len(s))
	for i, idx := range s {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Equal reports whether two scopes reference the same path.
func (s Scope) Equal(other Scope) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Parent returns the scope one level up, or nil if s is already the root.
func (s Scope) Parent() Scope {
	if len(s) == 0 {
		return nil
	}
	return s[:len(s)-1]
}

// ScopedVariable pairs a Variable with the scope it was referenced from.
type ScopedVariable struct {
	Variable Variable
	Scope    Scope
}

// String renders "scope/namespace:name".
func (sv ScopedVariable) String() string {
	return fmt.Sprintf("%s/%s", sv.Scope, sv.Variable)
}

// Less orders first by scope length (shallower first), then scope path,
// then the underlying Variable order. Used to produce the deterministic
// sorted comm-plan sets required by spec.md §3/§6.
func (sv ScopedVariable) Less(other ScopedVariable) bool {
	if len(sv.Scope) != len(other.Scope) {
		return len(sv.Scope) < len(other.Scope)
	}
	for i := range sv.Scope {
		if sv.Scope[i] != other.Scope[i] {
			return sv.Scope[i] < other.Scope[i]
		}
	}
	return sv.Variable.Less(other.Variable)
}

// SortScopedVariables returns a new, sorted copy of vs.
func SortScopedVariables(vs []ScopedVariable) []ScopedVariable {
	out := make([]ScopedVariable, len(vs))
	copy(out, vs)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Set is a small ordered set of ScopedVariable keyed by their String().
type Set map[string]ScopedVariable

// NewSet builds a Set from a slice.
func NewSet(vs ...ScopedVariable) Set {
	s := make(Set, len(vs))
	for _, v := range vs {
		s[v.String()] = v
	}
	return s
}

// Add inserts v into the set.
func (s Set) Add(v ScopedVariable) { s[v.String()] = v }

// Contains reports whether v is in the set.
func (s Set) Contains(v ScopedVariable) bool {
	_, ok := s[v.String()]
	return ok
}

// Sorted returns the set's members in deterministic order.
func (s Set) Sorted() []ScopedVariable {
	vs := make([]ScopedVariable, 0, len(s))
	for _, v := range s {
		vs = append(vs, v)
	}
	return SortScopedVariables(vs)
}

// Union returns a new Set containing the members of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Intersect returns a new Set containing members present in both.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for k, v := range s {
		if _, ok := other[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Minus returns a new Set containing members of s not present in other.
func (s Set) Minus(other Set) Set {
	out := make(Set)
	for k, v := range s {
		if _, ok := other[k]; !ok {
			out[k] = v
		}
	}
	return out
}
