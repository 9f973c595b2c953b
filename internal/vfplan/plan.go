package vfplan

import (
	"context"
	"fmt"
	"sort"

	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// NodeKind tags a LogicalPlan node's relational operator.
type NodeKind int

const (
	NodeScan NodeKind = iota
	NodeFilter
	NodeProject
	NodeAggregate
	NodeSort
	NodeLimit
)

// AggExpr describes one aggregate output column: Op applied to Field
// (ignored for count), aliased as Alias.
type AggExpr struct {
	Op    string
	Field string
	Alias string
}

// SortKey describes one ORDER BY column.
type SortKey struct {
	Field      string
	Descending bool
}

// LogicalPlan is a relational-algebra tree, the shape the transform
// evaluator hands to a PlanExecutor (spec.md §6). Named scalar/aggregate
// UDFs referenced by Project/Filter/Aggregate nodes match the catalog
// named in spec.md §4.1/§4.2.
type LogicalPlan struct {
	Kind NodeKind
	Source *LogicalPlan // nil for Scan

	// Scan
	ScanTable *vfvalue.Table

	// Filter
	Predicate ScalarExpr

	// Project
	Projections []ScalarExpr

	// Aggregate
	GroupBy []string
	Aggs    []AggExpr

	// Sort
	SortKeys []SortKey

	// Limit
	LimitN int
}

// Scan builds a leaf plan reading directly from an in-memory table.
func Scan(t *vfvalue.Table) *LogicalPlan { return &LogicalPlan{Kind: NodeScan, ScanTable: t} }

// Filter builds a Filter node over source.
func Filter(source *LogicalPlan, pred ScalarExpr) *LogicalPlan {
	return &LogicalPlan{Kind: NodeFilter, Source: source, Predicate: pred}
}

// Project builds a Project node over source.
func Project(source *LogicalPlan, exprs ...ScalarExpr) *LogicalPlan {
	return &LogicalPlan{Kind: NodeProject, Source: source, Projections: exprs}
}

// Aggregate builds an Aggregate node over source.
func Aggregate(source *LogicalPlan, groupBy []string, aggs []AggExpr) *LogicalPlan {
	return &LogicalPlan{Kind: NodeAggregate, Source: source, GroupBy: groupBy, Aggs: aggs}
}

// Sort builds a Sort node over source.
func Sort(source *LogicalPlan, keys []SortKey) *LogicalPlan {
	return &LogicalPlan{Kind: NodeSort, Source: source, SortKeys: keys}
}

// Limit builds a Limit node over source.
func Limit(source *LogicalPlan, n int) *LogicalPlan {
	return &LogicalPlan{Kind: NodeLimit, Source: source, LimitN: n}
}

// PlanExecutor is the externally supplied physical query engine boundary
// (spec.md §6): `PlanExecutor.execute_plan(plan) -> Table`. The core
// never executes a LogicalPlan itself in production; InMemoryExecutor
// below is the reference implementation used by this repository's own
// tests and by deployments that don't plug in a dedicated engine.
type PlanExecutor interface {
	ExecutePlan(ctx context.Context, plan *LogicalPlan) (*vfvalue.Table, error)
}

// InMemoryExecutor executes a LogicalPlan directly over vfvalue.Table
// without a real columnar query engine backing it. It is the executor
// this repository wires by default; a production deployment would
// substitute a dedicated engine behind the same PlanExecutor interface.
type InMemoryExecutor struct{}

// ExecutePlan implements PlanExecutor.
func (InMemoryExecutor) ExecutePlan(_ context.Context, plan *LogicalPlan) (*vfvalue.Table, error) {
	switch plan.Kind {
	case NodeScan:
		return plan.ScanTable, nil
	case NodeFilter:
		src, err := (InMemoryExecutor{}).ExecutePlan(context.Background(), plan.Source)
		if err != nil {
			return nil, err
		}
		keep := make([]bool, src.NumRows())
		for i := 0; i < src.NumRows(); i++ {
			v, err := plan.Predicate.Eval(src.Row(i))
			if err != nil {
				return nil, err
			}
			keep[i] = Truthy(v)
		}
		return src.Filter(keep), nil
	case NodeProject:
		src, err := (InMemoryExecutor{}).ExecutePlan(context.Background(), plan.Source)
		if err != nil {
			return nil, err
		}
		fields := make([]vfvalue.Field, len(plan.Projections))
		cols := make([][]any, len(plan.Projections))
		for i, p := range plan.Projections {
			fields[i] = vfvalue.Field{Name: p.Name, Type: p.Type}
			col, err := EvalColumn(p, src)
			if err != nil {
				return nil, err
			}
			cols[i] = col
		}
		return &vfvalue.Table{Schema: vfvalue.Schema{Fields: fields}, Columns: cols}, nil
	case NodeAggregate:
		src, err := (InMemoryExecutor{}).ExecutePlan(context.Background(), plan.Source)
		if err != nil {
			return nil, err
		}
		return executeAggregate(src, plan.GroupBy, plan.Aggs)
	case NodeSort:
		src, err := (InMemoryExecutor{}).ExecutePlan(context.Background(), plan.Source)
		if err != nil {
			return nil, err
		}
		idx := src.SortIndices(func(i, j int) bool { return lessByKeys(src, i, j, plan.SortKeys) })
		return src.TakeRows(idx), nil
	case NodeLimit:
		src, err := (InMemoryExecutor{}).ExecutePlan(context.Background(), plan.Source)
		if err != nil {
			return nil, err
		}
		return src.Limit(plan.LimitN), nil
	}
	return nil, fmt.Errorf("vfplan: unknown node kind %d", plan.Kind)
}

func lessByKeys(t *vfvalue.Table, i, j int, keys []SortKey) bool {
	for _, k := range keys {
		col := t.Col(k.Field)
		c := compareAny(col[i], col[j])
		if c == 0 {
			continue
		}
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

// compareAny orders two boxed scalars with nulls sorting first.
func compareAny(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Truthy implements JavaScript truthiness: null/false/0/NaN/"" are false,
// everything else is true (spec.md §4.2 filter()).
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0 && x == x // NaN != NaN is false, so NaN is falsy
	case string:
		return x != ""
	default:
		return true
	}
}

func executeAggregate(src *vfvalue.Table, groupBy []string, aggs []AggExpr) (*vfvalue.Table, error) {
	type groupKey string
	groups := map[groupKey][]int{}
	var order []groupKey
	keyOf := func(row int) groupKey {
		var k string
		for _, g := range groupBy {
			k += fmt.Sprintf("%v\x1f", src.Col(g)[row])
		}
		return groupKey(k)
	}
	for i := 0; i < src.NumRows(); i++ {
		k := keyOf(i)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	fields := make([]vfvalue.Field, 0, len(groupBy)+len(aggs))
	for _, g := range groupBy {
		fields = append(fields, vfvalue.Field{Name: g, Type: fieldType(src, g)})
	}
	for _, a := range aggs {
		fields = append(fields, vfvalue.Field{Name: a.Alias, Type: vfvalue.TypeFloat64})
	}
	cols := make([][]any, len(fields))
	for i := range cols {
		cols[i] = make([]any, 0, len(order))
	}
	for _, k := range order {
		rows := groups[k]
		col := 0
		if len(rows) > 0 {
			firstRow := rows[0]
			for _, g := range groupBy {
				cols[col] = append(cols[col], src.Col(g)[firstRow])
				col++
			}
		}
		for _, a := range aggs {
			v, err := ApplyAgg(a.Op, src, a.Field, rows)
			if err != nil {
				return nil, err
			}
			cols[col] = append(cols[col], v)
			col++
		}
	}
	return &vfvalue.Table{Schema: vfvalue.Schema{Fields: fields}, Columns: cols}, nil
}

func fieldType(t *vfvalue.Table, name string) vfvalue.DataType {
	if i := t.Schema.IndexOf(name); i >= 0 {
		return t.Schema.Fields[i].Type
	}
	return vfvalue.TypeNull
}
