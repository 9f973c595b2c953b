package vfruntime

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfcache"
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine/inmem"
	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vftransform"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

func numTable(col string, values ...float64) *vfvalue.Table {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return vfvalue.NewTable(
		vfvalue.Schema{Fields: []vfvalue.Field{{Name: col, Type: vfvalue.TypeFloat64}}},
		[][]any{cells},
	)
}

func TestGetNodeValueEvaluatesFilterPipeline(t *testing.T) {
	srcTable := numTable("v", 1, 2, 3, 4)
	filterExpr := vfexpr.Binary(">",
		vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
		vfexpr.Number(2.0))
	pipeline := vftransform.Pipeline{{Kind: vftransform.KindFilter, FilterExpr: filterExpr}}

	nodes := []vftaskgraph.Node{
		{Task: vftaskgraph.Task{Kind: vftaskgraph.TaskValue, Value: vfvalue.NewTableValue(srcTable)}},
		{Task: vftaskgraph.Task{Kind: vftaskgraph.TaskTransforms, Pipeline: pipeline}, Inputs: []int{0}},
	}
	graph, err := vftaskgraph.Build(nodes, 1, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rt := New(inmem.New(), vfcache.New(vfconfig.DefaultCacheConfig()), vfconfig.TzConfig{LocalTz: "UTC", DefaultInputTz: "UTC"})
	v, err := rt.GetNodeValue(context.Background(), graph, 1)
	if err != nil {
		t.Fatalf("GetNodeValue: %v", err)
	}
	out, err := v.AsTable()
	if err != nil {
		t.Fatalf("AsTable: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("expected 2 rows > 2, got %d", out.NumRows())
	}
}

func TestGetNodeValueCachesRepeatedResolution(t *testing.T) {
	var evals int32
	srcTable := numTable("v", 1, 2, 3)
	pipeline := vftransform.Pipeline{{Kind: vftransform.KindProject, ProjectFields: []string{"v"}}}
	nodes := []vftaskgraph.Node{
		{Task: vftaskgraph.Task{Kind: vftaskgraph.TaskValue, Value: vfvalue.NewTableValue(srcTable)}},
		{Task: vftaskgraph.Task{Kind: vftaskgraph.TaskTransforms, Pipeline: pipeline}, Inputs: []int{0}},
	}
	graph, err := vftaskgraph.Build(nodes, 1, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ce := &countingEngine{inner: inmem.New(), calls: &evals}
	rt := New(ce, vfcache.New(vfconfig.DefaultCacheConfig()), vfconfig.TzConfig{LocalTz: "UTC", DefaultInputTz: "UTC"})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := rt.GetNodeValue(ctx, graph, 1); err != nil {
			t.Fatalf("GetNodeValue: %v", err)
		}
	}
	if evals != 1 {
		t.Fatalf("expected the transform to evaluate exactly once across repeated resolutions, got %d", evals)
	}
}

func TestStateFingerprintTracksSignalUpdateNotReflectedInIDFingerprint(t *testing.T) {
	srcTable := numTable("v", 1, 2, 3, 4)
	filterExpr := vfexpr.Binary(">",
		vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
		vfexpr.Identifier("threshold"))
	pipeline := vftransform.Pipeline{{Kind: vftransform.KindFilter, FilterExpr: filterExpr}}

	nodes := []vftaskgraph.Node{
		{Task: vftaskgraph.Task{Kind: vftaskgraph.TaskValue, Value: vfvalue.NewTableValue(srcTable)}},
		{Task: vftaskgraph.Task{Kind: vftaskgraph.TaskValue, Value: vfvalue.NewScalar(2.0)}},
		{Task: vftaskgraph.Task{Kind: vftaskgraph.TaskTransforms, Pipeline: pipeline}, Inputs: []int{0}},
	}
	graph, err := vftaskgraph.Build(nodes, 2, map[string]int{"threshold": 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	rt := New(inmem.New(), vfcache.New(vfconfig.DefaultCacheConfig()), vfconfig.TzConfig{LocalTz: "UTC", DefaultInputTz: "UTC"})
	ctx := context.Background()

	idBefore := graph.IDFingerprint(2)
	fpBefore, err := rt.StateFingerprint(ctx, graph, 2)
	if err != nil {
		t.Fatalf("StateFingerprint: %v", err)
	}

	if err := graph.SetRootValue(1, vfvalue.NewScalar(3.0)); err != nil {
		t.Fatalf("SetRootValue: %v", err)
	}

	idAfter := graph.IDFingerprint(2)
	fpAfter, err := rt.StateFingerprint(ctx, graph, 2)
	if err != nil {
		t.Fatalf("StateFingerprint: %v", err)
	}

	if idBefore != idAfter {
		t.Fatalf("expected IDFingerprint to stay stable across a signal-only value change, since the signal isn't wired as an Inputs edge")
	}
	if fpBefore == fpAfter {
		t.Fatalf("expected StateFingerprint to change when a referenced signal's value changes")
	}
}

type countingEngine struct {
	inner engine.Engine
	calls *int32
}

func (e *countingEngine) EvaluateNode(ctx context.Context, req engine.NodeRequest) (vfvalue.TaskValue, error) {
	atomic.AddInt32(e.calls, 1)
	return e.inner.EvaluateNode(ctx, req)
}
