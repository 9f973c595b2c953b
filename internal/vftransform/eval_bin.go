package vftransform

import (
	"math"

	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// defaultDivide is Vega's default subdivision ladder: for a base-10 step,
// try dividing by 5 then by 2 before accepting the coarser power-of-base
// step (DESIGN.md bin open-question decision).
var defaultDivide = []float64{5, 2}

// niceStep is a port of Vega's bin() step-selection algorithm
// (vega-statistics/src/bin.js): pick the power of base nearest span/maxBins,
// inflate it until it covers span in at most maxBins steps, then shrink it
// by each factor in divide as long as the result still respects minStep and
// the bin count budget. base and divide generalize the search beyond the
// base-10/[5,2] default spec.md §4.2 calls out (a non-default base or
// divide list is a legal bin() input, not an edge case).
func niceStep(span float64, maxBins int, minStep, base float64, divide []float64) float64 {
	if span <= 0 || math.IsNaN(span) {
		span = 1
	}
	if maxBins <= 0 {
		maxBins = 10
	}
	if base <= 0 {
		base = 10
	}
	if len(divide) == 0 {
		divide = defaultDivide
	}
	logb := math.Log(base)
	level := math.Ceil(math.Log(float64(maxBins)) / logb)
	step := math.Max(minStep, math.Pow(base, math.Round(math.Log(span)/logb)-level))

	for math.Ceil(span/step) > float64(maxBins) {
		step *= base
	}
	for _, d := range divide {
		v := step / d
		if v >= minStep && span/v <= float64(maxBins) {
			step = v
		}
	}
	return step
}

// evalBin computes a nice bin step and boundaries over [ExtentMin,
// ExtentMax] and writes the [binStart, binEnd) pair for each row's Field
// value into BinAs (spec.md §4.2 bin(), §8 scenario 1).
func (t Transform) evalBin(input *vfvalue.Table) (*vfvalue.Table, []any, error) {
	span := t.ExtentMax - t.ExtentMin
	if t.HasSpan {
		span = t.Span
	}
	if span <= 0 {
		span = 1
	}
	maxBins := t.MaxBins
	if maxBins <= 0 {
		maxBins = 10
	}
	base := t.Base
	if base <= 0 {
		base = 10
	}
	divide := t.Divide
	if len(divide) == 0 {
		divide = defaultDivide
	}
	step := t.Step
	if !t.HasStep {
		if t.Nice {
			step = niceStep(span, maxBins, t.MinStep, base, divide)
		} else {
			step = span / float64(maxBins)
		}
		if t.MinStep > 0 && step < t.MinStep {
			step = t.MinStep
		}
	}
	if step <= 0 {
		step = 1
	}
	start := math.Floor(t.ExtentMin/step) * step
	stop := start
	for stop < t.ExtentMax {
		stop += step
	}

	col := input.Col(t.Field)
	startCol := make([]any, len(col))
	endCol := make([]any, len(col))
	for i, v := range col {
		f, ok := toFloatScalar(v)
		if !ok {
			startCol[i] = nil
			endCol[i] = nil
			continue
		}
		idx := math.Floor((f - start) / step)
		binStart := start + idx*step
		startCol[i] = binStart
		endCol[i] = binStart + step
	}
	out := input.WithColumn(t.BinAs[0], vfvalue.TypeFloat64, startCol)
	out = out.WithColumn(t.BinAs[1], vfvalue.TypeFloat64, endCol)

	var signals []any
	if t.SignalName != "" {
		signals = []any{map[string]any{"start": start, "stop": stop, "step": step}}
	}
	return out, signals, nil
}
