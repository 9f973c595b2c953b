package vftaskgraph

import (
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vftransform"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

func valueNode(v any, inputs ...int) Node {
	return Node{
		Var:  vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Data, "d")},
		Task: Task{Kind: TaskValue, Value: vfvalue.NewScalar(v)},
	}
}

func TestBuildRejectsCycle(t *testing.T) {
	nodes := []Node{
		{Task: Task{Kind: TaskValue}, Inputs: []int{1}},
		{Task: Task{Kind: TaskValue}, Inputs: []int{0}},
	}
	if _, err := Build(nodes, 0, nil); err == nil {
		t.Fatalf("expected cycle detection error")
	}
}

func TestBuildRejectsOutOfRangeInput(t *testing.T) {
	nodes := []Node{
		{Task: Task{Kind: TaskValue}, Inputs: []int{5}},
	}
	if _, err := Build(nodes, 0, nil); err == nil {
		t.Fatalf("expected out-of-range input error")
	}
}

func TestIDFingerprintDeterministicAcrossGraphs(t *testing.T) {
	nodesA := []Node{valueNode(1.0), {Task: Task{Kind: TaskValue, Value: vfvalue.NewScalar(2.0)}, Inputs: []int{0}}}
	nodesB := []Node{valueNode(1.0), {Task: Task{Kind: TaskValue, Value: vfvalue.NewScalar(2.0)}, Inputs: []int{0}}}

	gA, err := Build(nodesA, 1, nil)
	if err != nil {
		t.Fatalf("build A: %v", err)
	}
	gB, err := Build(nodesB, 1, nil)
	if err != nil {
		t.Fatalf("build B: %v", err)
	}
	if gA.IDFingerprint(1) != gB.IDFingerprint(1) {
		t.Fatalf("expected identical fingerprints for structurally identical graphs")
	}
}

func TestIDFingerprintDiffersOnValueChange(t *testing.T) {
	nodesA := []Node{valueNode(1.0)}
	nodesB := []Node{valueNode(2.0)}
	gA, _ := Build(nodesA, 0, nil)
	gB, _ := Build(nodesB, 0, nil)
	if gA.IDFingerprint(0) == gB.IDFingerprint(0) {
		t.Fatalf("expected different fingerprints for different literal values")
	}
}

func TestSetRootValueInvalidatesDependentFingerprints(t *testing.T) {
	nodes := []Node{
		valueNode(1.0),
		{Task: Task{Kind: TaskValue, Value: vfvalue.NewScalar(2.0)}, Inputs: []int{0}},
	}
	g, err := Build(nodes, 1, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	before := g.IDFingerprint(1)
	if err := g.SetRootValue(0, vfvalue.NewScalar(99.0)); err != nil {
		t.Fatalf("SetRootValue: %v", err)
	}
	after := g.IDFingerprint(1)
	if before == after {
		t.Fatalf("expected dependent node's fingerprint to change after its input root was patched")
	}
}

func TestSetRootValueRejectsNonRootNode(t *testing.T) {
	nodes := []Node{
		valueNode(1.0),
		{Task: Task{Kind: TaskTransforms}, Inputs: []int{0}},
	}
	g, err := Build(nodes, 1, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := g.SetRootValue(1, vfvalue.NewScalar(1.0)); err == nil {
		t.Fatalf("expected an error patching a non-root node")
	}
}

func TestStateFingerprintChangesWithSignalValue(t *testing.T) {
	filterExpr := vfexpr.Binary(">", vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false), vfexpr.Identifier("x"))
	pipeline := vftransform.Pipeline{{Kind: vftransform.KindFilter, FilterExpr: filterExpr}}
	nodes := []Node{{Task: Task{Kind: TaskTransforms, Pipeline: pipeline}}}
	g, err := Build(nodes, 0, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a := g.StateFingerprint(0, map[string]any{"x": 1.0})
	b := g.StateFingerprint(0, map[string]any{"x": 2.0})
	if a == b {
		t.Fatalf("expected state fingerprint to change when referenced value changes")
	}
}
