package vfruntime

import (
	"context"
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfcache"
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vfplanner"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine/inmem"
	"github.com/vegafusion/vegafusion-go/internal/vftransform"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

func histogramSpec() *vfplanner.Spec {
	filterExpr := vfexpr.Binary(">",
		vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
		vfexpr.Identifier("threshold"))
	return &vfplanner.Spec{
		Data: []vfplanner.DataDef{
			{Name: "source", Values: []map[string]any{{"v": 1.0}, {"v": 2.0}, {"v": 3.0}, {"v": 4.0}}},
			{Name: "filtered", Source: "source", Transform: vftransform.Pipeline{
				{Kind: vftransform.KindFilter, FilterExpr: filterExpr},
			}},
		},
		Signals: []vfplanner.SignalDef{
			{Name: "threshold", Value: 2.0},
		},
		Marks: []vfplanner.MarkDef{
			{From: "filtered", Encodings: map[string]*vfexpr.Node{
				"x": vfexpr.Member(vfexpr.Identifier("datum"), vfexpr.Identifier("v"), false),
			}},
		},
	}
}

func newTestRuntime() *Runtime {
	return New(inmem.New(), vfcache.New(vfconfig.DefaultCacheConfig()), vfconfig.TzConfig{LocalTz: "UTC", DefaultInputTz: "UTC"})
}

func TestPreTransformSpecInlinesServerDataset(t *testing.T) {
	rt := newTestRuntime()
	result, err := rt.PreTransformSpec(context.Background(), histogramSpec(), vfconfig.DefaultPlannerConfig())
	if err != nil {
		t.Fatalf("PreTransformSpec: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}

	var filtered *vfplanner.DataDef
	for i := range result.Spec.Data {
		if result.Spec.Data[i].Name == "filtered" {
			filtered = &result.Spec.Data[i]
		}
	}
	if filtered == nil {
		t.Fatalf("expected 'filtered' in the transformed client spec")
	}
	if filtered.Source != "" || len(filtered.Transform) != 0 {
		t.Fatalf("expected 'filtered' to be replaced with an inlined literal dataset, got %+v", filtered)
	}
	if len(filtered.Values) != 2 {
		t.Fatalf("expected 2 rows surviving the v>threshold filter, got %d", len(filtered.Values))
	}
}

func TestPreTransformValuesResolvesRequestedDataset(t *testing.T) {
	rt := newTestRuntime()
	spec := histogramSpec()
	requested := []vfvar.ScopedVariable{
		{Variable: vfvar.New(vfvar.Data, "filtered")},
	}
	values, warnings, err := rt.PreTransformValues(context.Background(), spec, requested, vfconfig.DefaultPlannerConfig())
	if err != nil {
		t.Fatalf("PreTransformValues: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(values) != 1 {
		t.Fatalf("expected exactly one resolved value, got %d", len(values))
	}
	table, err := values[0].AsTable()
	if err != nil {
		t.Fatalf("AsTable: %v", err)
	}
	if table.NumRows() != 2 {
		t.Fatalf("expected 2 filtered rows, got %d", table.NumRows())
	}
}

func TestPreTransformValuesRejectsClientOnlyVariable(t *testing.T) {
	rt := newTestRuntime()
	spec := histogramSpec()
	cfg := vfconfig.DefaultPlannerConfig()
	cfg.ClientOnlyVars = []string{"source", "filtered"}
	requested := []vfvar.ScopedVariable{
		{Variable: vfvar.New(vfvar.Data, "filtered")},
	}
	if _, _, err := rt.PreTransformValues(context.Background(), spec, requested, cfg); err == nil {
		t.Fatalf("expected an error requesting a client-only dataset")
	}
}
