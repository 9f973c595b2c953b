package vfplanner

import (
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

func TestBuildGraphChainsSourceIntoTransformNode(t *testing.T) {
	spec := simpleSpec()
	cg, err := BuildGraph(spec)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	filteredVar := spec.Data[1].Variable()
	idx, ok := cg.NodeFor(filteredVar)
	if !ok {
		t.Fatalf("expected a node for %q", filteredVar)
	}
	node := cg.Graph.Nodes[idx]
	if node.Task.Kind != vftaskgraph.TaskTransforms {
		t.Fatalf("expected 'filtered' to be a transforms node, got kind %d", node.Task.Kind)
	}
	if len(node.Inputs) != 1 {
		t.Fatalf("expected exactly one input edge, got %v", node.Inputs)
	}

	sourceVar := spec.Data[0].Variable()
	sourceIdx, ok := cg.NodeFor(sourceVar)
	if !ok {
		t.Fatalf("expected a node for %q", sourceVar)
	}
	if node.Inputs[0] != sourceIdx {
		t.Fatalf("expected 'filtered' to chain from 'source' node %d, got input %d", sourceIdx, node.Inputs[0])
	}
	if cg.Graph.Nodes[sourceIdx].Task.Kind != vftaskgraph.TaskScanURL {
		t.Fatalf("expected 'source' to be a scan-url node, got kind %d", cg.Graph.Nodes[sourceIdx].Task.Kind)
	}
}

func TestBuildGraphRegistersOutputSignals(t *testing.T) {
	spec := simpleSpec()
	cg, err := BuildGraph(spec)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	idx, ok := cg.Graph.OutputSignals["threshold"]
	if !ok {
		t.Fatalf("expected 'threshold' registered as an output signal")
	}
	if cg.Graph.Nodes[idx].Task.Kind != vftaskgraph.TaskValue {
		t.Fatalf("expected a root signal to lower to a TaskValue node")
	}
}

func TestBuildGraphInlineValuesDataset(t *testing.T) {
	spec := &Spec{
		Data: []DataDef{
			{Name: "inline", Values: []map[string]any{{"v": 1.0}, {"v": 2.0}}},
		},
	}
	cg, err := BuildGraph(spec)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	idx, ok := cg.NodeFor(spec.Data[0].Variable())
	if !ok {
		t.Fatalf("expected a node for the inline dataset")
	}
	val := cg.Graph.Nodes[idx].Task.Value
	if !val.IsTable() || val.Table.NumRows() != 2 {
		t.Fatalf("expected a 2-row inline table, got %+v", val)
	}
}

// TestInlineTableVerbatimPreservesMixedTypeColumns exercises spec.md §4.7's
// dataset-update optimization: a column mixing JSON scalar types must round
// trip rather than being silently coerced onto whichever type its first
// non-null value happened to be.
func TestInlineTableVerbatimPreservesMixedTypeColumns(t *testing.T) {
	rows := []map[string]any{{"v": 1.0}, {"v": "two"}}

	homogenized := InlineTable(rows)
	if typ := homogenized.Schema.Fields[homogenized.Schema.IndexOf("v")].Type; typ != vfvalue.TypeFloat64 {
		t.Fatalf("expected InlineTable to declare the mixed column float64 (first-value inference), got %v", typ)
	}

	verbatim := InlineTableVerbatim(rows)
	if typ := verbatim.Schema.Fields[verbatim.Schema.IndexOf("v")].Type; typ != vfvalue.TypeMixed {
		t.Fatalf("expected InlineTableVerbatim to tag the mixed column TypeMixed, got %v", typ)
	}
	if verbatim.Col("v")[0] != 1.0 || verbatim.Col("v")[1] != "two" {
		t.Fatalf("expected verbatim values to round-trip untouched, got %v", verbatim.Col("v"))
	}
}

func TestInlineTableVerbatimKeepsSingleTypeForHomogeneousColumn(t *testing.T) {
	rows := []map[string]any{{"v": 1.0}, {"v": 2.0}}
	verbatim := InlineTableVerbatim(rows)
	if typ := verbatim.Schema.Fields[verbatim.Schema.IndexOf("v")].Type; typ != vfvalue.TypeFloat64 {
		t.Fatalf("expected a homogeneous column to keep its single type, got %v", typ)
	}
}
