// Package vfchart implements the user-facing stateful wrapper around a
// planned spec and its task graph (spec.md §4.7): ChartState plans once,
// snapshots an initial transformed client spec, and thereafter accepts
// signal/dataset updates from a rendering client, returning only the
// server→client variables whose value actually changed.
package vfchart

import (
	"context"
	"sort"
	"sync"

	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfplanner"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// Update is one incoming client->server change (spec.md §6's export update
// record): a signal carries a scalar Value, a dataset carries a slice of
// row maps.
type Update struct {
	Namespace vfvar.Namespace
	Name      string
	Scope     vfvar.Scope
	Value     any
}

// ExportUpdate is one outgoing server->client change: the same shape as
// Update, returned only for variables whose state fingerprint changed.
type ExportUpdate struct {
	Namespace vfvar.Namespace
	Name      string
	Scope     vfvar.Scope
	Value     any
}

// Options configures a ChartState beyond the planner's own switches.
type Options struct {
	Planner  vfconfig.PlannerConfig
	RowLimit *int // nil disables row limiting
}

// ChartState is safe for concurrent use; Update serializes against
// concurrent readers and writers with an internal mutex, matching
// spec.md §5's single-writer-per-node scheduling model applied at the
// chart level.
type ChartState struct {
	mu sync.Mutex

	runtime *vfruntime.Runtime
	opts    Options

	inputSpec *vfplanner.Spec
	plan      *vfplanner.SpecPlan
	graph     *vfplanner.CompiledGraph // nil if the server spec is empty

	transformed   *vfplanner.Spec
	warnings      []vfplanner.Warning
	lastStateFP   map[string]uint64 // ScopedVariable.String() -> state fingerprint as of the last snapshot
	clientToServe map[string]vfvar.ScopedVariable
}

// TryNew plans spec, evaluates every initial server→client variable, and
// returns a ChartState snapshotting the result as its transformed spec
// (spec.md §4.7's try_new).
func TryNew(ctx context.Context, rt *vfruntime.Runtime, spec *vfplanner.Spec, opts Options) (*ChartState, error) {
	plan, err := vfplanner.Plan(spec, opts.Planner)
	if err != nil {
		return nil, err
	}

	cs := &ChartState{
		runtime:       rt,
		opts:          opts,
		inputSpec:     spec,
		plan:          plan,
		warnings:      append([]vfplanner.Warning(nil), plan.Warnings...),
		lastStateFP:   map[string]uint64{},
		clientToServe: map[string]vfvar.ScopedVariable{},
	}
	for _, v := range plan.CommPlan.ClientToServer {
		cs.clientToServe[v.String()] = v
	}

	serverSpec := augmentForClientToServer(plan.ServerSpec, spec, plan.CommPlan.ClientToServer)
	if len(serverSpec.Data) > 0 || len(serverSpec.Signals) > 0 {
		graph, err := vfplanner.BuildGraph(serverSpec)
		if err != nil {
			return nil, err
		}
		cs.graph = graph
	}

	transformed, _, err := cs.snapshot(ctx, plan.CommPlan.ServerToClient)
	if err != nil {
		return nil, err
	}
	cs.transformed = transformed
	return cs, nil
}

// GetInputSpec returns the original, unplanned specification.
func (cs *ChartState) GetInputSpec() *vfplanner.Spec {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.inputSpec
}

// GetServerSpec returns the planner's server-side partition.
func (cs *ChartState) GetServerSpec() *vfplanner.Spec {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.plan.ServerSpec
}

// GetClientSpec returns the planner's client-side partition (stubs only,
// not inlined — see GetTransformedSpec for the renderable snapshot).
func (cs *ChartState) GetClientSpec() *vfplanner.Spec {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.plan.ClientSpec
}

// GetTransformedSpec returns the client spec with every server→client
// variable's current value inlined, as of the most recent Update.
func (cs *ChartState) GetTransformedSpec() *vfplanner.Spec {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.transformed
}

// GetCommPlan returns the server/client comm plan.
func (cs *ChartState) GetCommPlan() vfplanner.CommPlan {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.plan.CommPlan
}

// GetWarnings returns every warning accumulated since try_new, including
// any RowLimit warnings appended by later updates.
func (cs *ChartState) GetWarnings() []vfplanner.Warning {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]vfplanner.Warning(nil), cs.warnings...)
}

// Update applies updates to the underlying task graph's root values and
// returns the sorted export batch of server→client variables whose state
// fingerprint changed (spec.md §4.7). Updating a variable outside the
// comm plan's client→server set is rejected.
func (cs *ChartState) Update(ctx context.Context, updates []Update) ([]ExportUpdate, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.graph == nil {
		return nil, vferrors.New(vferrors.KindPreTransform, "chart has no server-side state to update")
	}

	for _, u := range updates {
		sv := vfvar.ScopedVariable{Variable: vfvar.New(u.Namespace, u.Name), Scope: u.Scope}
		if _, ok := cs.clientToServe[sv.String()]; !ok {
			return nil, vferrors.Newf(vferrors.KindPreTransform, "variable %s is not in the client->server comm plan", sv)
		}
		idx, ok := cs.graph.NodeFor(sv)
		if !ok {
			return nil, vferrors.Newf(vferrors.KindPreTransform, "variable %s has no corresponding server node", sv)
		}
		value, err := toTaskValue(u.Namespace, u.Value, cs.isVerbatimInlineDataset(u.Namespace, u.Name, u.Scope))
		if err != nil {
			return nil, err
		}
		if err := cs.graph.Graph.SetRootValue(idx, value); err != nil {
			return nil, err
		}
	}

	transformed, changed, err := cs.snapshot(ctx, cs.plan.CommPlan.ServerToClient)
	if err != nil {
		return nil, err
	}
	cs.transformed = transformed

	out := make([]ExportUpdate, 0, len(changed))
	for _, v := range changed {
		val, err := cs.resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportUpdate{
			Namespace: v.Variable.Namespace,
			Name:      v.Variable.Name,
			Scope:     v.Scope,
			Value:     exportValue(val),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return vfvar.ScopedVariable{Variable: vfvar.New(out[i].Namespace, out[i].Name), Scope: out[i].Scope}.
			Less(vfvar.ScopedVariable{Variable: vfvar.New(out[j].Namespace, out[j].Name), Scope: out[j].Scope})
	})
	return out, nil
}

// snapshot resolves every variable in vars against the server graph,
// inlines it into a fresh clone of the planner's client spec, and applies
// row limiting, returning the resulting renderable spec alongside the
// subset of vars whose state fingerprint moved since the last snapshot
// (spec.md §4.7's "recompute affected state-fingerprints").
func (cs *ChartState) snapshot(ctx context.Context, vars []vfvar.ScopedVariable) (*vfplanner.Spec, []vfvar.ScopedVariable, error) {
	clone := cloneClientSpec(cs.plan.ClientSpec)
	if cs.graph == nil {
		return clone, nil, nil
	}
	var limited []string
	var changed []vfvar.ScopedVariable
	for _, v := range vars {
		idx, ok := cs.graph.NodeFor(v)
		if !ok {
			continue
		}
		fp, err := cs.runtime.StateFingerprint(ctx, cs.graph.Graph, idx)
		if err != nil {
			return nil, nil, err
		}
		if prev, ok := cs.lastStateFP[v.String()]; !ok || prev != fp {
			cs.lastStateFP[v.String()] = fp
			changed = append(changed, v)
		}

		val, err := cs.runtime.GetNodeValue(ctx, cs.graph.Graph, idx)
		if err != nil {
			return nil, nil, err
		}
		if cs.opts.RowLimit != nil && val.IsTable() && val.Table.NumRows() > *cs.opts.RowLimit {
			cols := truncateColumns(val.Table.Columns, *cs.opts.RowLimit)
			val = vfvalue.NewTableValue(vfvalue.NewTable(val.Table.Schema, cols))
			limited = append(limited, v.Variable.Name)
		}
		if err := inlineVariable(clone, v, val); err != nil {
			return nil, nil, err
		}
	}
	if len(limited) > 0 {
		cs.warnings = append(cs.warnings, vfplanner.Warning{Kind: vfplanner.WarnRowLimit, Datasets: limited})
	}
	return clone, changed, nil
}

// resolve fetches v's current value from the server graph.
func (cs *ChartState) resolve(ctx context.Context, v vfvar.ScopedVariable) (vfvalue.TaskValue, error) {
	idx, ok := cs.graph.NodeFor(v)
	if !ok {
		return vfvalue.TaskValue{}, vferrors.Newf(vferrors.KindInternal, "no server node for %s", v)
	}
	return cs.runtime.GetNodeValue(ctx, cs.graph.Graph, idx)
}

func truncateColumns(cols [][]any, limit int) [][]any {
	out := make([][]any, len(cols))
	for i, c := range cols {
		if len(c) > limit {
			c = c[:limit]
		}
		out[i] = c
	}
	return out
}

// isVerbatimInlineDataset reports whether the original, unplanned spec
// declared name/scope as a dataset with inline values and no transform —
// the one case spec.md §4.7 carves out of dataset-update re-ingestion, so
// that a mixed-type literal array (e.g. [1, "two"]) round-trips instead of
// being homogenized onto a single column type.
func (cs *ChartState) isVerbatimInlineDataset(ns vfvar.Namespace, name string, scope vfvar.Scope) bool {
	if ns != vfvar.Data || cs.inputSpec == nil {
		return false
	}
	for _, d := range cs.inputSpec.Data {
		if d.Name == name && d.Scope.Equal(scope) {
			return len(d.Transform) == 0 && d.Values != nil
		}
	}
	return false
}

func toTaskValue(ns vfvar.Namespace, v any, verbatim bool) (vfvalue.TaskValue, error) {
	switch ns {
	case vfvar.Signal:
		return vfvalue.NewScalar(v), nil
	case vfvar.Data:
		rows, ok := v.([]map[string]any)
		if !ok {
			return vfvalue.TaskValue{}, vferrors.New(vferrors.KindSpecification, "dataset updates must carry a JSON array of row objects")
		}
		if verbatim {
			return vfvalue.NewTableValue(vfplanner.InlineTableVerbatim(rows)), nil
		}
		return vfvalue.NewTableValue(vfplanner.InlineTable(rows)), nil
	}
	return vfvalue.TaskValue{}, vferrors.Newf(vferrors.KindSpecification, "unsupported update namespace %v", ns)
}

func exportValue(v vfvalue.TaskValue) any {
	if v.IsTable() {
		rows := make([]map[string]any, v.Table.NumRows())
		for i := range rows {
			rows[i] = v.Table.Row(i)
		}
		return rows
	}
	return v.Scalar
}

func inlineVariable(spec *vfplanner.Spec, v vfvar.ScopedVariable, val vfvalue.TaskValue) error {
	switch v.Variable.Namespace {
	case vfvar.Data:
		for i := range spec.Data {
			if spec.Data[i].Name != v.Variable.Name || !spec.Data[i].Scope.Equal(v.Scope) {
				continue
			}
			table, err := val.AsTable()
			if err != nil {
				return err
			}
			rows := make([]map[string]any, table.NumRows())
			for r := range rows {
				rows[r] = table.Row(r)
			}
			spec.Data[i] = vfplanner.DataDef{Scope: v.Scope, Name: v.Variable.Name, Values: rows}
			return nil
		}
	case vfvar.Signal:
		for i := range spec.Signals {
			if spec.Signals[i].Name != v.Variable.Name || !spec.Signals[i].Scope.Equal(v.Scope) {
				continue
			}
			scalar, err := val.AsScalar()
			if err != nil {
				return err
			}
			spec.Signals[i].Value = scalar
			return nil
		}
	}
	return nil
}

// augmentForClientToServer adds a root stub for every client→server
// variable the planner left off the server spec (it is, by construction,
// client-owned) but that a server-side dataset or signal still reads. The
// stub seeds its value from the original, unplanned spec so the graph
// starts in sync with what the client is actually showing, and gives
// ChartState.Update a node to patch (spec.md §4.3 phase 5's own
// definition-free-stub idiom, applied in the opposite direction: a stub
// the server owns for the client to feed rather than vice versa).
func augmentForClientToServer(serverSpec, original *vfplanner.Spec, clientToServer []vfvar.ScopedVariable) *vfplanner.Spec {
	if len(clientToServer) == 0 {
		return serverSpec
	}
	have := map[string]bool{}
	for _, d := range serverSpec.Data {
		have[scopedVarKey(vfvar.Data, d.Name, d.Scope)] = true
	}
	for _, s := range serverSpec.Signals {
		have[scopedVarKey(vfvar.Signal, s.Name, s.Scope)] = true
	}

	out := &vfplanner.Spec{
		Data:    append([]vfplanner.DataDef(nil), serverSpec.Data...),
		Signals: append([]vfplanner.SignalDef(nil), serverSpec.Signals...),
		Scales:  serverSpec.Scales,
		Marks:   serverSpec.Marks,
	}
	for _, v := range clientToServer {
		key := scopedVarKey(v.Variable.Namespace, v.Variable.Name, v.Scope)
		if have[key] {
			continue
		}
		switch v.Variable.Namespace {
		case vfvar.Signal:
			var value any
			for _, s := range original.Signals {
				if s.Name == v.Variable.Name && s.Scope.Equal(v.Scope) {
					value = s.Value
					break
				}
			}
			out.Signals = append(out.Signals, vfplanner.SignalDef{Scope: v.Scope, Name: v.Variable.Name, Value: value})
		case vfvar.Data:
			var rows []map[string]any
			for _, d := range original.Data {
				if d.Name == v.Variable.Name && d.Scope.Equal(v.Scope) {
					rows = d.Values
					break
				}
			}
			out.Data = append(out.Data, vfplanner.DataDef{Scope: v.Scope, Name: v.Variable.Name, Values: rows})
		}
		have[key] = true
	}
	return out
}

func scopedVarKey(ns vfvar.Namespace, name string, scope vfvar.Scope) string {
	return vfvar.ScopedVariable{Variable: vfvar.New(ns, name), Scope: scope}.String()
}

func cloneClientSpec(spec *vfplanner.Spec) *vfplanner.Spec {
	out := &vfplanner.Spec{
		Data:    append([]vfplanner.DataDef(nil), spec.Data...),
		Signals: append([]vfplanner.SignalDef(nil), spec.Signals...),
		Scales:  append([]vfplanner.ScaleDef(nil), spec.Scales...),
		Marks:   append([]vfplanner.MarkDef(nil), spec.Marks...),
	}
	return out
}
