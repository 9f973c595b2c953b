package vftransform

import (
	"github.com/vegafusion/vegafusion-go/internal/vfcompile"
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// Pipeline is an ordered sequence of transforms applied to one dataset, the
// shape a dataset node's task holds (spec.md §4.4, GLOSSARY "Transform
// pipeline").
type Pipeline []Transform

// Eval threads table and cfg through each transform in order. A
// transform's published output signals are folded into cfg via
// WithSignal before the next transform runs, so a later transform in the
// same pipeline can reference an earlier one's extent/bin signal
// (spec.md §5). The returned map holds every published signal keyed by
// name; when two transforms publish the same name, the later value wins.
func (p Pipeline) Eval(table *vfvalue.Table, cfg *vfcompile.CompilationConfig) (*vfvalue.Table, map[string]any, error) {
	signals := map[string]any{}
	for i, t := range p {
		if !t.Supported() {
			return nil, nil, vferrors.Newf(vferrors.KindSpecification, "pipeline step %d: %v", i, t.UnsupportedType)
		}
		out, published, err := t.Eval(table, cfg)
		if err != nil {
			return nil, nil, vferrors.Wrap(vferrors.KindCompilation, "evaluating pipeline", err)
		}
		table = out
		names := t.OutputSignals()
		for j, name := range names {
			if j < len(published) {
				signals[name] = published[j]
				cfg = cfg.WithSignal(name, published[j])
			}
		}
	}
	return table, signals, nil
}

// Usage returns the union column usage across every transform in the
// pipeline, the basis for projection pushdown over a dataset node
// (spec.md §4.3).
func (p Pipeline) Usage() ColumnUsage {
	usage := KnownUsage()
	for _, t := range p {
		u, _ := t.Usage()
		usage = usage.Union(u)
	}
	return usage
}

// InputVars returns the union of every transform's signal dependencies.
func (p Pipeline) InputVars() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range p {
		for _, v := range t.InputVars() {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	return out
}
