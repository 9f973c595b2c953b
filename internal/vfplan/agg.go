package vfplan

import (
	"fmt"
	"math"
	"sort"

	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// ApplyAgg evaluates one of the aggregate ops named in spec.md §4.2 over
// the given rows of field in t. It is shared by aggregate(), joinaggregate(),
// and window() so the op catalog has exactly one implementation.
func ApplyAgg(op string, t *vfvalue.Table, field string, rows []int) (any, error) {
	switch op {
	case "count":
		return int64(len(rows)), nil
	case "valid":
		n := int64(0)
		for _, r := range values(t, field, rows) {
			if r != nil {
				n++
			}
		}
		return n, nil
	case "missing":
		n := int64(0)
		for _, r := range values(t, field, rows) {
			if r == nil {
				n++
			}
		}
		return n, nil
	case "distinct":
		seen := map[any]struct{}{}
		for _, v := range values(t, field, rows) {
			if v != nil {
				seen[v] = struct{}{}
			}
		}
		return int64(len(seen)), nil
	}

	nums := numericValues(t, field, rows)
	switch op {
	case "sum":
		s := 0.0
		for _, n := range nums {
			s += n
		}
		return s, nil
	case "mean", "average":
		if len(nums) == 0 {
			return math.NaN(), nil
		}
		s := 0.0
		for _, n := range nums {
			s += n
		}
		return s / float64(len(nums)), nil
	case "min":
		if len(nums) == 0 {
			return nil, nil
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return m, nil
	case "max":
		if len(nums) == 0 {
			return nil, nil
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return m, nil
	case "variance", "variancep", "stdev", "stdevp":
		v, err := variance(nums, op == "variancep" || op == "stdevp")
		if err != nil {
			return nil, err
		}
		if op == "stdev" || op == "stdevp" {
			return math.Sqrt(v), nil
		}
		return v, nil
	case "median":
		return percentile(nums, 0.5), nil
	case "q1":
		return percentile(nums, 0.25), nil
	case "q3":
		return percentile(nums, 0.75), nil
	}
	return nil, fmt.Errorf("vfplan: unsupported aggregate op %q", op)
}

func values(t *vfvalue.Table, field string, rows []int) []any {
	col := t.Col(field)
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = col[r]
	}
	return out
}

func numericValues(t *vfvalue.Table, field string, rows []int) []float64 {
	col := t.Col(field)
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if f, ok := toFloat(col[r]); ok {
			out = append(out, f)
		}
	}
	return out
}

func variance(nums []float64, population bool) (float64, error) {
	n := len(nums)
	if n == 0 {
		return math.NaN(), nil
	}
	divisor := n - 1
	if population {
		divisor = n
	}
	if divisor <= 0 {
		return math.NaN(), nil
	}
	mean := 0.0
	for _, v := range nums {
		mean += v
	}
	mean /= float64(n)
	sq := 0.0
	for _, v := range nums {
		d := v - mean
		sq += d * d
	}
	return sq / float64(divisor), nil
}

func percentile(nums []float64, p float64) float64 {
	if len(nums) == 0 {
		return math.NaN()
	}
	sorted := append([]float64{}, nums...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
