// Package vfscope implements the task-scope tree used to resolve
// variables referenced at a given nesting level (spec.md §3).
package vfscope

import (
	"fmt"
	"sync"

	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// OutputVar records that a signal name is published as the output of a
// data variable owned by this scope (e.g. an `extent` or `bin` signal).
type OutputVar struct {
	Signal string
	Data   string
}

// Node is one level of the task scope tree. It mirrors one group mark's
// lexical scope: the signals, datasets, and scales it defines directly,
// plus any signal names published as the "output" of one of its data
// variables.
type Node struct {
	mu       sync.RWMutex
	index    int
	parent   *Node
	children map[int]*Node

	signals map[string]struct{}
	datas   map[string]struct{}
	scales  map[string]struct{}
	outputs map[string]string // signal name -> owning data variable name
}

// NewRoot creates the top-level scope node.
func NewRoot() *Node {
	return newNode(nil, 0)
}

func newNode(parent *Node, index int) *Node {
	return &Node{
		index:    index,
		parent:   parent,
		children: make(map[int]*Node),
		signals:  make(map[string]struct{}),
		datas:    make(map[string]struct{}),
		scales:   make(map[string]struct{}),
		outputs:  make(map[string]string),
	}
}

// Child returns (creating if necessary) the child scope at group-mark
// index idx.
func (n *Node) Child(idx int) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.children[idx]
	if !ok {
		c = newNode(n, idx)
		n.children[idx] = c
	}
	return c
}

// Descend walks path from n, creating child nodes as needed, and returns
// the node at the end of the path.
func (n *Node) Descend(path vfvar.Scope) *Node {
	cur := n
	for _, idx := range path {
		cur = cur.Child(idx)
	}
	return cur
}

// DefineSignal records that this scope defines a signal named name.
func (n *Node) DefineSignal(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.signals[name] = struct{}{}
}

// DefineData records that this scope defines a dataset named name.
func (n *Node) DefineData(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.datas[name] = struct{}{}
}

// DefineScale records that this scope defines a scale named name.
func (n *Node) DefineScale(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scales[name] = struct{}{}
}

// DefineOutputSignal records that signal is published by the data
// variable dataName owned by this scope (e.g. `extent` or `bin`
// transforms' signal output).
func (n *Node) DefineOutputSignal(signal, dataName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outputs[signal] = dataName
}

// Resolution describes where a variable reference resolved to.
type Resolution struct {
	// Owner is the scope at which the variable (or its owning data, for
	// an output-var hit) is defined.
	Owner *Node
	// Variable is the resolved variable: for an output-var hit this is
	// the *data* variable, not the originally requested signal.
	Variable vfvar.Variable
	// IsOutput is true when the resolution came from an output-var hit;
	// Requested carries the originally requested signal name in that
	// case.
	IsOutput  bool
	Requested string
}

// Resolve climbs from n toward the root looking for ns:name, stopping at
// the first enclosing scope that either defines it directly or, when ns is
// Signal, has an entry for name in its output-var map; within one scope a
// direct definition wins over an output-var entry. Returns false if no
// scope defines it.
func (n *Node) Resolve(ns vfvar.Namespace, name string) (Resolution, bool) {
	for cur := n; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		var defined bool
		switch ns {
		case vfvar.Signal:
			_, defined = cur.signals[name]
		case vfvar.Data:
			_, defined = cur.datas[name]
		case vfvar.Scale:
			_, defined = cur.scales[name]
		}
		if defined {
			cur.mu.RUnlock()
			return Resolution{Owner: cur, Variable: vfvar.New(ns, name)}, true
		}
		if ns == vfvar.Signal {
			if dataName, ok := cur.outputs[name]; ok {
				cur.mu.RUnlock()
				return Resolution{
					Owner:     cur,
					Variable:  vfvar.New(vfvar.Data, dataName),
					IsOutput:  true,
					Requested: name,
				}, true
			}
		}
		cur.mu.RUnlock()
	}
	return Resolution{}, false
}

// Path returns the scope path from the root to n.
func (n *Node) Path() vfvar.Scope {
	var rev []int
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur.index)
	}
	path := make(vfvar.Scope, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path
}

// String renders the node's path for diagnostics.
func (n *Node) String() string {
	return fmt.Sprintf("scope%s", n.Path())
}
