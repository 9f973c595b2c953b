package vfruntime

import (
	"context"

	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfplanner"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// PreTransformResult is the output of PreTransformSpec: a client spec with
// every server-resolved variable already inlined, plus the warnings the
// planner collected along the way.
type PreTransformResult struct {
	Spec     *vfplanner.Spec
	Warnings []vfplanner.Warning
}

// PreTransformSpec implements spec.md §4.6's pre_transform_spec: it plans
// fullSpec, evaluates every server-side dataset and signal the comm plan
// says the client needs (server→client, plus any caller-requested
// keep_variables already folded into that set by the planner's stitching
// phase), and inlines the results into the returned client spec so it is
// immediately renderable without a live server round trip.
func (rt *Runtime) PreTransformSpec(ctx context.Context, fullSpec *vfplanner.Spec, cfg vfconfig.PlannerConfig) (*PreTransformResult, error) {
	plan, err := vfplanner.Plan(fullSpec, cfg)
	if err != nil {
		return nil, err
	}
	if len(plan.ServerSpec.Data) == 0 && len(plan.ServerSpec.Signals) == 0 {
		return &PreTransformResult{Spec: plan.ClientSpec, Warnings: plan.Warnings}, nil
	}

	cg, err := vfplanner.BuildGraph(plan.ServerSpec)
	if err != nil {
		return nil, err
	}

	for _, v := range plan.CommPlan.ServerToClient {
		idx, ok := cg.NodeFor(v)
		if !ok {
			continue
		}
		val, err := rt.GetNodeValue(ctx, cg.Graph, idx)
		if err != nil {
			return nil, err
		}
		if err := inlineInto(plan.ClientSpec, v, val); err != nil {
			return nil, err
		}
	}
	return &PreTransformResult{Spec: plan.ClientSpec, Warnings: plan.Warnings}, nil
}

// PreTransformValues implements spec.md §4.6's pre_transform_values: it
// plans fullSpec and resolves each of requested directly against the
// server task graph, in the order requested, without constructing or
// inlining a client spec. Every requested variable must have ended up
// server-eligible; naming a client-only variable is a caller error.
func (rt *Runtime) PreTransformValues(ctx context.Context, fullSpec *vfplanner.Spec, requested []vfvar.ScopedVariable, cfg vfconfig.PlannerConfig) ([]vfvalue.TaskValue, []vfplanner.Warning, error) {
	plan, err := vfplanner.Plan(fullSpec, cfg)
	if err != nil {
		return nil, nil, err
	}
	if len(requested) == 0 {
		return nil, plan.Warnings, nil
	}
	if len(plan.ServerSpec.Data) == 0 && len(plan.ServerSpec.Signals) == 0 {
		return nil, nil, vferrors.Newf(vferrors.KindPreTransform, "requested variable %s is not server-eligible", requested[0])
	}

	cg, err := vfplanner.BuildGraph(plan.ServerSpec)
	if err != nil {
		return nil, nil, err
	}

	out := make([]vfvalue.TaskValue, len(requested))
	for i, v := range requested {
		idx, ok := cg.NodeFor(v)
		if !ok {
			return nil, nil, vferrors.Newf(vferrors.KindPreTransform, "requested variable %s is not server-eligible", v)
		}
		val, err := rt.GetNodeValue(ctx, cg.Graph, idx)
		if err != nil {
			return nil, nil, err
		}
		out[i] = val
	}
	return out, plan.Warnings, nil
}

// inlineInto overwrites def's definition for v in spec with a literal
// value pulled from the server task graph, replacing whatever stub the
// planner's buildClientSpec left behind.
func inlineInto(spec *vfplanner.Spec, v vfvar.ScopedVariable, val vfvalue.TaskValue) error {
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
			spec.Data[i] = vfplanner.DataDef{Scope: v.Scope, Name: v.Variable.Name, Values: tableToRows(table)}
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

func tableToRows(t *vfvalue.Table) []map[string]any {
	rows := make([]map[string]any, t.NumRows())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}
