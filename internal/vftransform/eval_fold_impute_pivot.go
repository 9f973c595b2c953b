package vftransform

import (
	"fmt"
	"sort"

	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfplan"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// evalFold melts FoldFields into two columns (key, value), replicating
// every other column once per fold field (spec.md §4.2 fold(), §8
// scenario 2).
func (t Transform) evalFold(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	keep := otherFields(input.Schema.Names(), t.FoldFields)
	keyName, valName := t.FoldAs[0], t.FoldAs[1]
	if keyName == "" {
		keyName = "key"
	}
	if valName == "" {
		valName = "value"
	}
	fields := make([]vfvalue.Field, 0, len(keep)+2)
	for _, name := range keep {
		fields = append(fields, vfvalue.Field{Name: name, Type: input.Schema.Fields[input.Schema.IndexOf(name)].Type})
	}
	fields = append(fields, vfvalue.Field{Name: keyName, Type: vfvalue.TypeString}, vfvalue.Field{Name: valName, Type: vfvalue.TypeNull})

	cols := make([][]any, len(fields))
	n := input.NumRows() * len(t.FoldFields)
	for i := range cols {
		cols[i] = make([]any, 0, n)
	}
	for row := 0; row < input.NumRows(); row++ {
		for _, fold := range t.FoldFields {
			for i, name := range keep {
				cols[i] = append(cols[i], input.Col(name)[row])
			}
			cols[len(keep)] = append(cols[len(keep)], fold)
			cols[len(keep)+1] = append(cols[len(keep)+1], input.Col(fold)[row])
		}
	}
	fields[len(keep)+1].Type = inferType(cols[len(keep)+1])
	return vfvalue.NewTable(vfvalue.Schema{Fields: fields}, cols), nil, nil
}

func otherFields(all, exclude []string) []string {
	excl := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excl[e] = struct{}{}
	}
	var out []string
	for _, f := range all {
		if _, ok := excl[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// evalImpute ensures every (key, groupBy...) combination present anywhere
// in the table exists within each group, filling missing rows' value
// field with ImputeValue (spec.md §4.2 impute()).
func (t Transform) evalImpute(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	keyCol := input.Col(t.ImputeKey)
	allKeys := map[any]struct{}{}
	for _, k := range keyCol {
		allKeys[k] = struct{}{}
	}
	sortedKeys := make([]any, 0, len(allKeys))
	for k := range allKeys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Slice(sortedKeys, func(i, j int) bool { return compareScalar(sortedKeys[i], sortedKeys[j]) < 0 })

	type groupInfo struct {
		rep  map[string]any
		keys map[any]struct{}
	}
	groups := map[string]*groupInfo{}
	var order []string
	for row := 0; row < input.NumRows(); row++ {
		gk := groupKeyOf(input, t.ImputeGroupBy, row)
		g, ok := groups[gk]
		if !ok {
			g = &groupInfo{rep: input.Row(row), keys: map[any]struct{}{}}
			groups[gk] = g
			order = append(order, gk)
		}
		g.keys[keyCol[row]] = struct{}{}
	}

	out := input.Clone()
	valueIdx := out.Schema.IndexOf(t.ImputeField)
	if valueIdx < 0 {
		return nil, nil, vferrors.Newf(vferrors.KindSpecification, "impute(): field %q not found", t.ImputeField)
	}
	for _, gk := range order {
		g := groups[gk]
		for _, k := range sortedKeys {
			if _, present := g.keys[k]; present {
				continue
			}
			for c, f := range out.Schema.Fields {
				switch {
				case f.Name == t.ImputeField:
					out.Columns[c] = append(out.Columns[c], t.ImputeValue)
				case f.Name == t.ImputeKey:
					out.Columns[c] = append(out.Columns[c], k)
				default:
					out.Columns[c] = append(out.Columns[c], g.rep[f.Name])
				}
			}
		}
	}
	return out, nil, nil
}

// evalPivot spreads PivotField's distinct values into their own columns,
// each populated by PivotOp applied to PivotValue within the row's
// GroupBy group (spec.md §4.2 pivot()).
func (t Transform) evalPivot(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	pivotCol := input.Col(t.PivotField)
	distinct := map[any]struct{}{}
	for _, v := range pivotCol {
		distinct[v] = struct{}{}
	}
	names := make([]string, 0, len(distinct))
	for v := range distinct {
		names = append(names, fmt.Sprintf("%v", v))
	}
	sort.Strings(names)
	if t.PivotLimit > 0 && len(names) > t.PivotLimit {
		names = names[:t.PivotLimit]
	}

	groups := map[string][]int{}
	var order []string
	for row := 0; row < input.NumRows(); row++ {
		gk := groupKeyOf(input, t.GroupBy, row)
		if _, ok := groups[gk]; !ok {
			order = append(order, gk)
		}
		groups[gk] = append(groups[gk], row)
	}

	fields := make([]vfvalue.Field, 0, len(t.GroupBy)+len(names))
	for _, g := range t.GroupBy {
		fields = append(fields, vfvalue.Field{Name: g, Type: input.Schema.Fields[input.Schema.IndexOf(g)].Type})
	}
	for _, n := range names {
		fields = append(fields, vfvalue.Field{Name: n, Type: vfvalue.TypeFloat64})
	}
	cols := make([][]any, len(fields))

	op := t.PivotOp
	if op == "" {
		op = "sum"
	}
	for _, gk := range order {
		rows := groups[gk]
		col := 0
		for _, g := range t.GroupBy {
			cols[col] = append(cols[col], input.Col(g)[rows[0]])
			col++
		}
		for _, name := range names {
			var matching []int
			for _, r := range rows {
				if fmt.Sprintf("%v", pivotCol[r]) == name {
					matching = append(matching, r)
				}
			}
			v, err := vfplan.ApplyAgg(op, input, t.PivotValue, matching)
			if err != nil {
				return nil, nil, err
			}
			cols[col] = append(cols[col], v)
			col++
		}
	}
	return vfvalue.NewTable(vfvalue.Schema{Fields: fields}, cols), nil, nil
}
