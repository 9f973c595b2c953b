package vfchart

import (
	"context"
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfcache"
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vfplanner"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine/inmem"
	"github.com/vegafusion/vegafusion-go/internal/vftransform"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

func interactiveSpec() *vfplanner.Spec {
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

func newChartRuntime() *vfruntime.Runtime {
	return vfruntime.New(inmem.New(), vfcache.New(vfconfig.DefaultCacheConfig()), vfconfig.TzConfig{LocalTz: "UTC", DefaultInputTz: "UTC"})
}

func interactivePlannerConfig() vfconfig.PlannerConfig {
	cfg := vfconfig.DefaultPlannerConfig()
	cfg.ClientOnlyVars = []string{"threshold"}
	return cfg
}

func filteredRows(t *testing.T, spec *vfplanner.Spec) []map[string]any {
	t.Helper()
	for _, d := range spec.Data {
		if d.Name == "filtered" {
			return d.Values
		}
	}
	t.Fatalf("expected a 'filtered' dataset in spec, got %+v", spec.Data)
	return nil
}

func TestTryNewSnapshotsInitialTransformedSpec(t *testing.T) {
	cs, err := TryNew(context.Background(), newChartRuntime(), interactiveSpec(), Options{Planner: interactivePlannerConfig()})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	rows := filteredRows(t, cs.GetTransformedSpec())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows with v>2, got %d: %v", len(rows), rows)
	}
}

func TestUpdateReturnsChangedServerToClientVariables(t *testing.T) {
	cs, err := TryNew(context.Background(), newChartRuntime(), interactiveSpec(), Options{Planner: interactivePlannerConfig()})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}

	updates, err := cs.Update(context.Background(), []Update{
		{Namespace: vfvar.Signal, Name: "threshold", Value: 3.0},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected exactly one changed server->client variable, got %d: %+v", len(updates), updates)
	}
	if updates[0].Name != "filtered" {
		t.Fatalf("expected 'filtered' to be the changed variable, got %q", updates[0].Name)
	}
	rows, ok := updates[0].Value.([]map[string]any)
	if !ok {
		t.Fatalf("expected the export update's value to be row maps, got %T", updates[0].Value)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 row with v>3, got %d: %v", len(rows), rows)
	}

	rows = filteredRows(t, cs.GetTransformedSpec())
	if len(rows) != 1 {
		t.Fatalf("expected the snapshotted transformed spec to reflect the update, got %d rows", len(rows))
	}
}

func TestUpdateIsNoopWhenValueUnchanged(t *testing.T) {
	cs, err := TryNew(context.Background(), newChartRuntime(), interactiveSpec(), Options{Planner: interactivePlannerConfig()})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	updates, err := cs.Update(context.Background(), []Update{
		{Namespace: vfvar.Signal, Name: "threshold", Value: 2.0},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no changed variables when the update value matches the current state, got %+v", updates)
	}
}

func TestUpdateRejectsVariableOutsideCommPlan(t *testing.T) {
	cs, err := TryNew(context.Background(), newChartRuntime(), interactiveSpec(), Options{Planner: interactivePlannerConfig()})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	if _, err := cs.Update(context.Background(), []Update{
		{Namespace: vfvar.Data, Name: "source", Value: []map[string]any{{"v": 99.0}}},
	}); err == nil {
		t.Fatalf("expected an error updating a variable outside the client->server comm plan")
	}
}

func TestRowLimitTruncatesAndWarns(t *testing.T) {
	limit := 1
	cs, err := TryNew(context.Background(), newChartRuntime(), interactiveSpec(), Options{
		Planner:  interactivePlannerConfig(),
		RowLimit: &limit,
	})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}
	rows := filteredRows(t, cs.GetTransformedSpec())
	if len(rows) != 1 {
		t.Fatalf("expected row-limited output to carry exactly 1 row, got %d", len(rows))
	}
	found := false
	for _, w := range cs.GetWarnings() {
		if w.Kind == vfplanner.WarnRowLimit {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a row-limit warning, got %+v", cs.GetWarnings())
	}
}

// TestIsVerbatimInlineDatasetDistinguishesTransformedFromInline exercises
// the carve-out spec.md §4.7 makes for dataset updates: only a dataset whose
// original declaration had inline values and no transform is eligible for
// verbatim (mixed-type-preserving) re-ingestion on update. A dataset with a
// Source/transform, or a signal, must never qualify.
func TestIsVerbatimInlineDatasetDistinguishesTransformedFromInline(t *testing.T) {
	cs, err := TryNew(context.Background(), newChartRuntime(), interactiveSpec(), Options{Planner: interactivePlannerConfig()})
	if err != nil {
		t.Fatalf("TryNew: %v", err)
	}

	if !cs.isVerbatimInlineDataset(vfvar.Data, "source", vfvar.Scope{}) {
		t.Fatalf("expected 'source' (inline values, no transform) to be verbatim-eligible")
	}
	if cs.isVerbatimInlineDataset(vfvar.Data, "filtered", vfvar.Scope{}) {
		t.Fatalf("expected 'filtered' (has a transform) to be ineligible for verbatim re-ingestion")
	}
	if cs.isVerbatimInlineDataset(vfvar.Signal, "threshold", vfvar.Scope{}) {
		t.Fatalf("expected a signal namespace to never be verbatim-eligible")
	}
	if cs.isVerbatimInlineDataset(vfvar.Data, "nonexistent", vfvar.Scope{}) {
		t.Fatalf("expected an unknown dataset name to be ineligible")
	}
}

// TestToTaskValuePreservesMixedTypesWhenVerbatim grounds chart.go's verbatim
// branch directly against vfvalue's TypeMixed tagging, independent of the
// planner comm-plan gate that currently only ever admits signals through
// ChartState.Update's public API.
func TestToTaskValuePreservesMixedTypesWhenVerbatim(t *testing.T) {
	rows := []map[string]any{{"v": 1.0}, {"v": "two"}}

	homogenized, err := toTaskValue(vfvar.Data, rows, false)
	if err != nil {
		t.Fatalf("toTaskValue (non-verbatim): %v", err)
	}
	if idx := homogenized.Table.Schema.IndexOf("v"); homogenized.Table.Schema.Fields[idx].Type == vfvalue.TypeMixed {
		t.Fatalf("expected non-verbatim ingestion to declare a single column type, not TypeMixed")
	}

	verbatim, err := toTaskValue(vfvar.Data, rows, true)
	if err != nil {
		t.Fatalf("toTaskValue (verbatim): %v", err)
	}
	if verbatim.Table.Col("v")[0] != 1.0 || verbatim.Table.Col("v")[1] != "two" {
		t.Fatalf("expected verbatim values to round-trip untouched, got %v", verbatim.Table.Col("v"))
	}
}
