package vftransform

import "fmt"

// compareScalar orders two boxed scalars with nulls sorting first,
// numerics by value, and everything else by string form — the same total
// order vfplan uses for LogicalPlan sort nodes, duplicated here since
// vftransform's own sort helpers (collect, stack, window, impute) operate
// directly on vfvalue.Table rather than going through a LogicalPlan.
func compareScalar(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	af, aok := toFloatScalar(a)
	bf, bok := toFloatScalar(b)
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

func toFloatScalar(v any) (float64, bool) {
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

func groupKeyOf(t interface{ Col(string) []any }, groupBy []string, row int) string {
	k := ""
	for _, g := range groupBy {
		k += fmt.Sprintf("%v\x1f", t.Col(g)[row])
	}
	return k
}
