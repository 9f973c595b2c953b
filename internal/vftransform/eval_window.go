package vftransform

import (
	"github.com/vegafusion/vegafusion-go/internal/vfplan"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// evalWindow computes, for each row, one aggregate per (Ops[i], Fields[i])
// over the rows in WindowFrame relative to its position within its
// GroupBy group ordered by Sort, writing results into Aliases (spec.md
// §4.2 window()). A nil frame bound is unbounded in that direction,
// matching Vega's default [null, 0] cumulative frame.
func (t Transform) evalWindow(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	lo, hi := 0, 0
	frame := t.WindowFrame
	hasLo, hasHi := frame[0] != nil, frame[1] != nil
	if hasLo {
		lo = *frame[0]
	}
	if hasHi {
		hi = *frame[1]
	}

	n := input.NumRows()
	groups := map[string][]int{}
	var order []string
	for row := 0; row < n; row++ {
		gk := groupKeyOf(input, t.GroupBy, row)
		if _, ok := groups[gk]; !ok {
			order = append(order, gk)
		}
		groups[gk] = append(groups[gk], row)
	}

	aggs := t.toAggExprs()
	outCols := make([][]any, len(aggs))
	for i := range outCols {
		outCols[i] = make([]any, n)
	}

	for _, gk := range order {
		rows := append([]int{}, groups[gk]...)
		sortRowsBy(input, rows, t.Sort)
		for pos, r := range rows {
			start := pos + lo
			if !hasLo {
				start = 0
			}
			end := pos + hi
			if !hasHi {
				end = len(rows) - 1
			}
			if start < 0 {
				start = 0
			}
			if end > len(rows)-1 {
				end = len(rows) - 1
			}
			var frameRows []int
			if start <= end {
				frameRows = rows[start : end+1]
			}
			for i, a := range aggs {
				v, err := vfplan.ApplyAgg(a.Op, input, a.Field, frameRows)
				if err != nil {
					return nil, nil, err
				}
				outCols[i][r] = v
			}
		}
	}

	out := input.Clone()
	for i, a := range aggs {
		out = out.WithColumn(a.Alias, vfvalue.TypeFloat64, outCols[i])
	}
	return out, nil, nil
}
