package vftransform

import (
	"math"

	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// evalExtent computes [min, max] over Field, leaving the table unchanged
// and publishing the pair as a signal when SignalName is set (spec.md
// §4.2 extent()).
func (t Transform) evalExtent(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	min, max := fieldExtent(input, t.Field)
	if t.SignalName == "" {
		return input, nil, nil
	}
	return input, []any{[]any{min, max}}, nil
}

func fieldExtent(t *vfvalue.Table, field string) (float64, float64) {
	col := t.Col(field)
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range col {
		f, ok := toFloatScalar(v)
		if !ok {
			continue
		}
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	if math.IsInf(min, 1) {
		return 0, 0
	}
	return min, max
}

// evalSequence generates a single-column table of [Start, Stop) stepped by
// SeqStep (default 1), matching Vega's sequence() data generator.
func (t Transform) evalSequence() (*vfvalue.Table, []any, error) {
	step := 1.0
	if t.HasSeqStep && t.SeqStep != 0 {
		step = t.SeqStep
	}
	var values []any
	if step > 0 {
		for v := t.Start; v < t.Stop; v += step {
			values = append(values, v)
		}
	} else if step < 0 {
		for v := t.Start; v > t.Stop; v += step {
			values = append(values, v)
		}
	}
	schema := vfvalue.Schema{Fields: []vfvalue.Field{{Name: t.SeqAs, Type: vfvalue.TypeFloat64}}}
	return vfvalue.NewTable(schema, [][]any{values}), nil, nil
}
