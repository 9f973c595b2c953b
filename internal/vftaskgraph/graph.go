package vftaskgraph

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// Graph is an immutable task DAG: once built, Nodes never change, but the
// id-fingerprint cache below is populated lazily and concurrently by the
// runtime's parallel parent resolution (spec.md §4.6), so it is guarded by
// a mutex rather than relying on single-writer assumptions.
type Graph struct {
	Nodes         []Node
	MainOutput    int
	OutputSignals map[string]int // signal name -> node index

	mu                sync.Mutex
	idFingerprints    []uint64
	idFingerprintsSet []bool
	dependents        [][]int // reverse edges: dependents[i] = nodes whose Inputs include i
}

// Build validates the graph invariants spec.md §4.4 requires — every edge
// endpoint exists, the graph is acyclic, and there is exactly one main
// output plus one node per declared output signal — and returns the
// constructed Graph.
func Build(nodes []Node, mainOutput int, outputSignals map[string]int) (*Graph, error) {
	n := len(nodes)
	if n == 0 {
		return nil, vferrors.New(vferrors.KindSpecification, "task graph must have at least one node")
	}
	for i, node := range nodes {
		for _, in := range node.Inputs {
			if in < 0 || in >= n {
				return nil, vferrors.Newf(vferrors.KindInternal, "node %d references out-of-range input %d", i, in)
			}
		}
	}
	if mainOutput < 0 || mainOutput >= n {
		return nil, vferrors.Newf(vferrors.KindSpecification, "main output index %d out of range", mainOutput)
	}
	for name, idx := range outputSignals {
		if idx < 0 || idx >= n {
			return nil, vferrors.Newf(vferrors.KindSpecification, "output signal %q references out-of-range node %d", name, idx)
		}
	}
	if err := checkAcyclic(nodes); err != nil {
		return nil, err
	}
	dependents := make([][]int, n)
	for i, node := range nodes {
		for _, in := range node.Inputs {
			dependents[in] = append(dependents[in], i)
		}
	}
	return &Graph{
		Nodes:             nodes,
		MainOutput:        mainOutput,
		OutputSignals:     outputSignals,
		idFingerprints:    make([]uint64, n),
		idFingerprintsSet: make([]bool, n),
		dependents:        dependents,
	}, nil
}

// SetRootValue patches a root Value node's payload in place and
// invalidates the cached id-fingerprint of i and every node that
// transitively depends on it, so the next IDFingerprint/StateFingerprint
// call recomputes against the new value (spec.md §4.7's `update`: "patch
// the root task value ... recompute affected state-fingerprints").
func (g *Graph) SetRootValue(i int, v vfvalue.TaskValue) error {
	if i < 0 || i >= len(g.Nodes) {
		return vferrors.Newf(vferrors.KindInternal, "node index %d out of range", i)
	}
	if g.Nodes[i].Task.Kind != TaskValue {
		return vferrors.Newf(vferrors.KindInternal, "node %d is not a root value node", i)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Nodes[i].Task.Value = v
	g.invalidateFromLocked(i)
	return nil
}

// invalidateFromLocked clears the cached id-fingerprint of i and every
// node reachable from it via dependents edges. Callers must hold g.mu.
func (g *Graph) invalidateFromLocked(i int) {
	stack := []int{i}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		g.idFingerprintsSet[cur] = false
		stack = append(stack, g.dependents[cur]...)
	}
}

// checkAcyclic runs a depth-first search over the Inputs edges, marking
// each node in progress while its inputs are visited; reaching a node that
// is still in progress indicates a cycle.
func checkAcyclic(nodes []Node) error {
	n := len(nodes)
	visited := make([]int, n) // 0=unvisited 1=in-progress 2=done
	var visit func(i int) error
	visit = func(i int) error {
		switch visited[i] {
		case 2:
			return nil
		case 1:
			return vferrors.Newf(vferrors.KindSpecification, "task graph contains a cycle at node %d", i)
		}
		visited[i] = 1
		for _, in := range nodes[i].Inputs {
			if err := visit(in); err != nil {
				return err
			}
		}
		visited[i] = 2
		return nil
	}
	for i := range nodes {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// IDFingerprint returns node i's structural fingerprint: a hash of its own
// task definition combined recursively with its inputs' fingerprints, in
// input order. Two nodes with the same task definition and the same
// input fingerprints (regardless of where they sit in the overall graph)
// always fingerprint identically — the property spec.md §8 calls
// "fingerprint determinism".
func (g *Graph) IDFingerprint(i int) uint64 {
	g.mu.Lock()
	if g.idFingerprintsSet[i] {
		fp := g.idFingerprints[i]
		g.mu.Unlock()
		return fp
	}
	g.mu.Unlock()

	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], g.Nodes[i].Task.fingerprint())
	h.Write(buf[:])
	for _, in := range g.Nodes[i].Inputs {
		binary.LittleEndian.PutUint64(buf[:], g.IDFingerprint(in))
		h.Write(buf[:])
	}
	fp := h.Sum64()

	g.mu.Lock()
	g.idFingerprints[i] = fp
	g.idFingerprintsSet[i] = true
	g.mu.Unlock()
	return fp
}

// StateFingerprint folds the current value of every referenced signal
// (signalValues, keyed by the same names Task.Pipeline.InputVars() can
// report) into node i's IDFingerprint, giving the cache key that changes
// whenever either the task's structure or the live state it closes over
// changes (spec.md §4.4/§4.5).
func (g *Graph) StateFingerprint(i int, signalValues map[string]any) uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], g.IDFingerprint(i))
	h.Write(buf[:])
	for _, name := range g.Nodes[i].Task.Pipeline.InputVars() {
		h.WriteString(name)
		h.WriteString("=")
		h.WriteString(formatSignalValue(signalValues[name]))
		h.WriteString("\x00")
	}
	return h.Sum64()
}

func formatSignalValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v:%T", v, v)
}
