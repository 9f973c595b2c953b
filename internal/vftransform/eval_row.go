package vftransform

import (
	"github.com/vegafusion/vegafusion-go/internal/vfcompile"
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfplan"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// evalFilter keeps rows for which FilterExpr evaluates truthy under JS
// truthiness (spec.md §4.2 filter()).
func (t Transform) evalFilter(input *vfvalue.Table, cfg *vfcompile.CompilationConfig) (*vfvalue.Table, []any, error) {
	expr, err := vfcompile.Compile(t.FilterExpr, cfg, input.Schema.Names())
	if err != nil {
		return nil, nil, vferrors.Wrap(vferrors.KindCompilation, "filter expression", err)
	}
	keep := make([]bool, input.NumRows())
	for i := 0; i < input.NumRows(); i++ {
		v, err := expr.Eval(input.Row(i))
		if err != nil {
			return nil, nil, vferrors.Wrap(vferrors.KindCompilation, "evaluating filter", err)
		}
		keep[i] = vfplan.Truthy(v)
	}
	return input.Filter(keep), nil, nil
}

// evalFormula computes FormulaExpr per row and writes it into column As,
// inferring the output type from the evaluated values (spec.md §4.2
// formula()).
func (t Transform) evalFormula(input *vfvalue.Table, cfg *vfcompile.CompilationConfig) (*vfvalue.Table, []any, error) {
	expr, err := vfcompile.Compile(t.FormulaExpr, cfg, input.Schema.Names())
	if err != nil {
		return nil, nil, vferrors.Wrap(vferrors.KindCompilation, "formula expression", err)
	}
	col, err := vfplan.EvalColumn(expr, input)
	if err != nil {
		return nil, nil, vferrors.Wrap(vferrors.KindCompilation, "evaluating formula", err)
	}
	return input.WithColumn(t.As, inferType(col), col), nil, nil
}

// evalProject restricts the output to ProjectFields, renaming to
// ProjectAs positionally when provided (spec.md §4.2 project()).
func (t Transform) evalProject(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	out := input.SelectColumns(t.ProjectFields)
	if len(t.ProjectAs) == 0 {
		return out, nil, nil
	}
	if len(t.ProjectAs) != len(t.ProjectFields) {
		return nil, nil, vferrors.New(vferrors.KindSpecification, "project(): as must have the same length as fields")
	}
	renamed := out.Clone()
	for i, name := range t.ProjectAs {
		renamed.Schema.Fields[i].Name = name
	}
	return renamed, nil, nil
}

// evalCollect stable-sorts rows by the configured sort keys (spec.md §4.2
// collect()).
func (t Transform) evalCollect(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	idx := input.SortIndices(func(i, j int) bool { return lessBySortFields(input, i, j, t.Sort) })
	return input.TakeRows(idx), nil, nil
}

func lessBySortFields(t *vfvalue.Table, i, j int, keys []SortField) bool {
	for _, k := range keys {
		col := t.Col(k.Field)
		c := compareScalar(col[i], col[j])
		if c == 0 {
			continue
		}
		if k.Order == "descending" {
			return c > 0
		}
		return c < 0
	}
	return false
}

func inferType(col []any) vfvalue.DataType {
	for _, v := range col {
		switch v.(type) {
		case bool:
			return vfvalue.TypeBool
		case int64:
			return vfvalue.TypeInt64
		case float64:
			return vfvalue.TypeFloat64
		case string:
			return vfvalue.TypeString
		case []any:
			return vfvalue.TypeList
		}
	}
	return vfvalue.TypeNull
}
