package vfchart

import (
	"context"

	"github.com/vegafusion/vegafusion-go/internal/vfplanner"
	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// RootValue is one root TaskValue node's current payload, the unit a
// ChartState's current_task_graph_state persists and restores (spec.md
// §4.7's note that a chart's server state must survive a process
// restart): a signal carries Scalar, a dataset carries Rows.
type RootValue struct {
	Namespace vfvar.Namespace
	Name      string
	Scope     vfvar.Scope
	Scalar    any
	Rows      []map[string]any
}

// ExportState captures every root node's current value, keyed by its
// ScopedVariable string, so a store can persist it and RestoreState can
// later rehydrate an equivalent ChartState without replaying every Update
// that produced the current state.
func (cs *ChartState) ExportState() map[string]RootValue {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := map[string]RootValue{}
	if cs.graph == nil {
		return out
	}
	for _, idx := range cs.graph.Nodes {
		node := cs.graph.Graph.Nodes[idx]
		if node.Task.Kind != vftaskgraph.TaskValue {
			continue
		}
		rv := RootValue{Namespace: node.Var.Variable.Namespace, Name: node.Var.Variable.Name, Scope: node.Var.Scope}
		if node.Task.Value.IsTable() {
			table := node.Task.Value.Table
			rows := make([]map[string]any, table.NumRows())
			for i := range rows {
				rows[i] = table.Row(i)
			}
			rv.Rows = rows
		} else {
			rv.Scalar = node.Task.Value.Scalar
		}
		out[node.Var.String()] = rv
	}
	return out
}

// RestoreState patches every root node named in state onto the current
// graph via SetRootValue, then re-snapshots the transformed spec — the
// inverse of ExportState. Entries naming a variable the current graph has
// no node for are ignored, since a respecification between save and
// restore may have dropped it.
func (cs *ChartState) RestoreState(ctx context.Context, state map[string]RootValue) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.graph == nil {
		return nil
	}
	for _, rv := range state {
		sv := vfvar.ScopedVariable{Variable: vfvar.New(rv.Namespace, rv.Name), Scope: rv.Scope}
		idx, ok := cs.graph.NodeFor(sv)
		if !ok {
			continue
		}
		var value vfvalue.TaskValue
		if rv.Namespace == vfvar.Data {
			if cs.isVerbatimInlineDataset(rv.Namespace, rv.Name, rv.Scope) {
				value = vfvalue.NewTableValue(vfplanner.InlineTableVerbatim(rv.Rows))
			} else {
				value = vfvalue.NewTableValue(vfplanner.InlineTable(rv.Rows))
			}
		} else {
			value = vfvalue.NewScalar(rv.Scalar)
		}
		if err := cs.graph.Graph.SetRootValue(idx, value); err != nil {
			return err
		}
	}

	transformed, _, err := cs.snapshot(ctx, cs.plan.CommPlan.ServerToClient)
	if err != nil {
		return err
	}
	cs.transformed = transformed
	return nil
}
