package vfplanner

import (
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// CompiledGraph pairs a built task graph with a lookup from a spec's
// variables to the node that produces them, so a caller holding a Spec can
// resolve by name without knowing the graph's internal indexing.
type CompiledGraph struct {
	Graph *vftaskgraph.Graph
	Nodes map[string]int // vfvar.ScopedVariable.String() -> node index
}

// NodeFor looks up the node index producing v, if any.
func (c *CompiledGraph) NodeFor(v vfvar.ScopedVariable) (int, bool) {
	idx, ok := c.Nodes[v.String()]
	return idx, ok
}

// BuildGraph lowers a (typically server-side) Spec into a task graph
// (spec.md §4.4): "given server_spec, build tasks (one per root signal,
// per URL dataset, per derived dataset) and edges according to the
// resolved input_vars." Root signals become TaskValue nodes directly;
// derived signals only ever arise from a transform's own output_signals
// (e.g. extent, bin), which the runtime resolves through
// Graph.OutputSignals rather than through a standalone signal node.
func BuildGraph(spec *Spec) (*CompiledGraph, error) {
	var nodes []vftaskgraph.Node
	byKey := make(map[string]int, len(spec.Data)+len(spec.Signals))

	for _, s := range spec.Signals {
		idx := len(nodes)
		nodes = append(nodes, vftaskgraph.Node{
			Var:  s.Variable(),
			Task: vftaskgraph.Task{Kind: vftaskgraph.TaskValue, Value: vfvalue.NewScalar(s.Value)},
		})
		byKey[s.Variable().String()] = idx
	}

	byName := make(map[string]DataDef, len(spec.Data))
	for _, d := range spec.Data {
		byName[scopedKey(d.Scope, d.Name)] = d
	}

	built := make(map[string]int, len(spec.Data))
	var build func(key string) (int, error)
	build = func(key string) (int, error) {
		if idx, ok := built[key]; ok {
			return idx, nil
		}
		d, ok := byName[key]
		if !ok {
			return 0, vferrors.Newf(vferrors.KindSpecification, "unknown dataset referenced: %s", key)
		}

		var base int
		switch {
		case d.Source != "":
			parent, err := build(scopedKey(d.Scope, d.Source))
			if err != nil {
				return 0, err
			}
			base = parent
		case d.URL != "":
			base = len(nodes)
			nodes = append(nodes, vftaskgraph.Node{
				Var:  d.Variable(),
				Task: vftaskgraph.Task{Kind: vftaskgraph.TaskScanURL, URL: d.URL, Format: d.Format},
			})
		case d.Values != nil:
			base = len(nodes)
			nodes = append(nodes, vftaskgraph.Node{
				Var:  d.Variable(),
				Task: vftaskgraph.Task{Kind: vftaskgraph.TaskValue, Value: vfvalue.NewTableValue(InlineTable(d.Values))},
			})
		default:
			// A definition-free stub left by the planner's stitching phase
			// (spec.md §4.3 phase 5): an empty table, populated at runtime
			// via the comm plan rather than computed here.
			base = len(nodes)
			nodes = append(nodes, vftaskgraph.Node{
				Var:  d.Variable(),
				Task: vftaskgraph.Task{Kind: vftaskgraph.TaskValue, Value: vfvalue.NewTableValue(vfvalue.NewTable(vfvalue.Schema{}, nil))},
			})
		}

		final := base
		if len(d.Transform) > 0 {
			final = len(nodes)
			nodes = append(nodes, vftaskgraph.Node{
				Var:    d.Variable(),
				Task:   vftaskgraph.Task{Kind: vftaskgraph.TaskTransforms, Pipeline: d.Transform},
				Inputs: []int{base},
			})
		}
		built[key] = final
		byKey[d.Variable().String()] = final
		return final, nil
	}

	for key := range byName {
		if _, err := build(key); err != nil {
			return nil, err
		}
	}

	if len(nodes) == 0 {
		return nil, vferrors.New(vferrors.KindSpecification, "spec has no data or signals to build a task graph from")
	}

	outputSignals := make(map[string]int, len(spec.Signals))
	for _, s := range spec.Signals {
		outputSignals[s.Name] = byKey[s.Variable().String()]
	}

	graph, err := vftaskgraph.Build(nodes, len(nodes)-1, outputSignals)
	if err != nil {
		return nil, err
	}
	return &CompiledGraph{Graph: graph, Nodes: byKey}, nil
}

func scopedKey(scope vfvar.Scope, name string) string {
	return vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Data, name), Scope: scope}.String()
}

// InlineTable converts literal JSON rows (from an inline dataset or an
// incoming dataset update) into the runtime's columnar Table shape,
// inferring each column's type from its first non-null value (spec.md
// §3's inline-value dataset case).
func InlineTable(rows []map[string]any) *vfvalue.Table {
	return columnarTable(rows, inferType)
}

// InlineTableVerbatim converts literal JSON rows the same way InlineTable
// does, except a column holding more than one JSON scalar type is tagged
// TypeMixed rather than collapsed onto whichever type its first non-null
// value happened to be. Use this for a dataset update whose corresponding
// original input declared inline values with no transform: such a dataset
// is opaque client data, never computed over, so round-tripping its literal
// shape matters more than a single declared column type (spec.md §4.7 — the
// "mixed-type arrays" dataset-update optimization).
func InlineTableVerbatim(rows []map[string]any) *vfvalue.Table {
	return columnarTable(rows, inferVerbatimType)
}

func columnarTable(rows []map[string]any, typeOf func([]any) vfvalue.DataType) *vfvalue.Table {
	var order []string
	seen := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				order = append(order, k)
			}
		}
	}
	fields := make([]vfvalue.Field, len(order))
	cols := make([][]any, len(order))
	for i, name := range order {
		col := make([]any, len(rows))
		for r, row := range rows {
			col[r] = row[name]
		}
		cols[i] = col
		fields[i] = vfvalue.Field{Name: name, Type: typeOf(col)}
	}
	return vfvalue.NewTable(vfvalue.Schema{Fields: fields}, cols)
}

func inferType(col []any) vfvalue.DataType {
	for _, v := range col {
		switch v.(type) {
		case bool:
			return vfvalue.TypeBool
		case float64:
			return vfvalue.TypeFloat64
		case string:
			return vfvalue.TypeString
		}
	}
	return vfvalue.TypeNull
}

func inferVerbatimType(col []any) vfvalue.DataType {
	found := vfvalue.TypeNull
	for _, v := range col {
		var t vfvalue.DataType
		switch v.(type) {
		case bool:
			t = vfvalue.TypeBool
		case float64:
			t = vfvalue.TypeFloat64
		case string:
			t = vfvalue.TypeString
		default:
			continue
		}
		if found == vfvalue.TypeNull {
			found = t
		} else if found != t {
			return vfvalue.TypeMixed
		}
	}
	return found
}
