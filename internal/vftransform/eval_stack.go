package vftransform

import "github.com/vegafusion/vegafusion-go/internal/vfvalue"

// evalStack computes running sums of StackField within each GroupBy group,
// ordered by Sort, writing [stackStart, stackEnd) into StackAs. Per
// DESIGN.md's stack-offset decision, "zero" maintains independent running
// totals for positive and negative values within a group so a negative
// value stacks below the group's zero baseline instead of continuing the
// positive running total (spec.md §8 scenario 3).
func (t Transform) evalStack(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	n := input.NumRows()
	startCol := make([]any, n)
	endCol := make([]any, n)
	valCol := input.Col(t.StackField)

	groups := map[string][]int{}
	var order []string
	for row := 0; row < n; row++ {
		gk := groupKeyOf(input, t.GroupBy, row)
		if _, ok := groups[gk]; !ok {
			order = append(order, gk)
		}
		groups[gk] = append(groups[gk], row)
	}

	offset := t.StackOffset
	if offset == "" {
		offset = "zero"
	}

	for _, gk := range order {
		rows := groups[gk]
		sorted := append([]int{}, rows...)
		sortRowsBy(input, sorted, t.Sort)

		var total float64
		for _, r := range sorted {
			f, ok := toFloatScalar(valCol[r])
			if !ok {
				f = 0
			}
			total += absFloat(f)
		}

		var posRunning, negRunning float64
		for _, r := range sorted {
			f, ok := toFloatScalar(valCol[r])
			if !ok {
				f = 0
			}
			var start, end float64
			if f >= 0 {
				start, end = posRunning, posRunning+f
				posRunning = end
			} else {
				start, end = negRunning, negRunning+f
				negRunning = end
			}
			switch offset {
			case "center":
				half := total / 2
				start -= half
				end -= half
			case "normalize":
				if total != 0 {
					start /= total
					end /= total
				}
			}
			startCol[r] = start
			endCol[r] = end
		}
	}

	out := input.WithColumn(t.StackAs[0], vfvalue.TypeFloat64, startCol)
	out = out.WithColumn(t.StackAs[1], vfvalue.TypeFloat64, endCol)
	return out, nil, nil
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func sortRowsBy(t *vfvalue.Table, rows []int, keys []SortField) {
	if len(keys) == 0 {
		return
	}
	less := func(i, j int) bool { return lessBySortFields(t, rows[i], rows[j], keys) }
	insertionSortStable(rows, less)
}

// insertionSortStable sorts rows in place; small groups are the common
// case for stack()/window() ordering, so a stable O(n^2) sort avoids
// building a secondary index slice per group.
func insertionSortStable(rows []int, less func(i, j int) bool) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}
