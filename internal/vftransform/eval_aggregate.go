package vftransform

import (
	"context"

	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfplan"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

func (t Transform) toAggExprs() []vfplan.AggExpr {
	aggs := make([]vfplan.AggExpr, len(t.Ops))
	for i, op := range t.Ops {
		field := ""
		if i < len(t.Fields) {
			field = t.Fields[i]
		}
		alias := ""
		if i < len(t.Aliases) {
			alias = t.Aliases[i]
		} else {
			alias = op + "_" + field
		}
		aggs[i] = vfplan.AggExpr{Op: op, Field: field, Alias: alias}
	}
	return aggs
}

// evalAggregate groups input by GroupBy and replaces it with one row per
// group holding the aggregate outputs (spec.md §4.2 aggregate()).
func (t Transform) evalAggregate(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	plan := vfplan.Aggregate(vfplan.Scan(input), t.GroupBy, t.toAggExprs())
	out, err := (vfplan.InMemoryExecutor{}).ExecutePlan(context.Background(), plan)
	if err != nil {
		return nil, nil, vferrors.Wrap(vferrors.KindCompilation, "aggregate()", err)
	}
	return out, nil, nil
}

// evalJoinAggregate computes the same per-group aggregates as aggregate()
// but broadcasts them back onto every input row instead of collapsing to
// one row per group (spec.md §4.2 joinaggregate()).
func (t Transform) evalJoinAggregate(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	aggs := t.toAggExprs()
	groups := map[string][]int{}
	for i := 0; i < input.NumRows(); i++ {
		k := groupKeyOf(input, t.GroupBy, i)
		groups[k] = append(groups[k], i)
	}
	groupVal := make(map[string][]any, len(groups))
	for k, rows := range groups {
		vals := make([]any, len(aggs))
		for i, a := range aggs {
			v, err := vfplan.ApplyAgg(a.Op, input, a.Field, rows)
			if err != nil {
				return nil, nil, vferrors.Wrap(vferrors.KindCompilation, "joinaggregate()", err)
			}
			vals[i] = v
		}
		groupVal[k] = vals
	}
	out := input.Clone()
	for i, a := range aggs {
		col := make([]any, input.NumRows())
		for row := 0; row < input.NumRows(); row++ {
			k := groupKeyOf(input, t.GroupBy, row)
			col[row] = groupVal[k][i]
		}
		out = out.WithColumn(a.Alias, vfvalue.TypeFloat64, col)
	}
	return out, nil, nil
}
