// Package vftaskgraph implements the immutable task DAG (spec.md §4.4): a
// Task sum type over literal values, URL scans, and transform pipelines;
// id/state fingerprints; and the graph-level invariants a compiled plan
// must satisfy before it's handed to the runtime.
package vftaskgraph

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/vegafusion/vegafusion-go/internal/vftransform"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// TaskKind tags the variant of a Task.
type TaskKind int

const (
	TaskValue TaskKind = iota
	TaskScanURL
	TaskTransforms
)

// Task is a single DAG node's unit of work (spec.md §4.4).
type Task struct {
	Kind TaskKind

	// TaskValue
	Value vfvalue.TaskValue

	// TaskScanURL
	URL    string
	Format string

	// TaskTransforms — a pipeline run over the resolved input value(s)
	Pipeline vftransform.Pipeline
}

// fingerprint hashes everything about this task's own definition that
// affects its output, independent of its position in the graph. Parent
// contributions are folded in separately by Graph.IDFingerprint so a
// node's identity reflects its full transitive definition.
func (t Task) fingerprint() uint64 {
	h := xxhash.New()
	writeUint64(h, uint64(t.Kind))
	switch t.Kind {
	case TaskValue:
		writeScalarFingerprint(h, t.Value)
	case TaskScanURL:
		h.WriteString(t.URL)
		h.WriteString("\x00")
		h.WriteString(t.Format)
	case TaskTransforms:
		for _, tr := range t.Pipeline {
			writeUint64(h, uint64(tr.Kind))
			usage, produced := tr.Usage()
			if usage.Unknown {
				h.WriteString("?")
			} else {
				writeSortedStrings(h, keysOf(usage.Columns))
			}
			writeSortedStrings(h, produced)
			frame := tr.WindowFrame
			tr.WindowFrame = [2]*int{}
			h.WriteString(fmt.Sprintf("%v", tr))
			for _, b := range frame {
				if b == nil {
					h.WriteString("unbounded")
				} else {
					writeUint64(h, uint64(*b))
				}
			}
		}
	}
	return h.Sum64()
}

func writeUint64(h *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

func writeSortedStrings(h *xxhash.Digest, ss []string) {
	sorted := append([]string{}, ss...)
	sort.Strings(sorted)
	for _, s := range sorted {
		h.WriteString(s)
		h.WriteString("\x00")
	}
}

func keysOf(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func writeScalarFingerprint(h *xxhash.Digest, v vfvalue.TaskValue) {
	if v.IsTable() {
		h.WriteString("table")
		if v.Table != nil {
			writeUint64(h, uint64(v.Table.NumRows()))
			writeSortedStrings(h, v.Table.Schema.Names())
			for _, col := range v.Table.Columns {
				for _, cell := range col {
					h.WriteString(fmt.Sprintf("%v:%T\x00", cell, cell))
				}
			}
		}
		return
	}
	h.WriteString("scalar:")
	if v.Scalar == nil {
		h.WriteString("null")
		return
	}
	h.WriteString(fmt.Sprintf("%v:%T", v.Scalar, v.Scalar))
}

// Node is one DAG vertex: a variable identity, the task that produces its
// value, and the set of nodes it depends on.
type Node struct {
	Var    vfvar.ScopedVariable
	Task   Task
	Inputs []int // indices into Graph.Nodes
}
