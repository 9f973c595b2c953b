package vfplanner

import (
	"fmt"

	"github.com/vegafusion/vegafusion-go/internal/vftransform"
)

func pipelineSupported(p vftransform.Pipeline) bool {
	for _, t := range p {
		if !t.Supported() {
			return false
		}
	}
	return true
}

// extractFacets implements phase 8: a group mark's facet is only hoisted
// into an explicit outer-scope dataset when its transform chain is fully
// supported and its underlying data feeds exactly one consumer (the facet
// itself) — lifting a facet shared by several consumers would duplicate
// the transform's cost on every client-side recompute instead of once.
//
// Per spec.md §9's open question, a facet whose underlying data is also the
// source of any other dataset is left unrewritten: it stays evaluated
// client-side inside the group mark, never partially hoisted.
func extractFacets(spec *Spec) {
	usageCount := make(map[string]int, len(spec.Data))
	for _, d := range spec.Data {
		if d.Source != "" {
			usageCount[d.Source]++
		}
	}
	for i, m := range spec.Marks {
		if m.Facet == nil {
			continue
		}
		if !pipelineSupported(m.Facet.Transform) {
			continue
		}
		if usageCount[m.Facet.Data] != 0 {
			// Fed by more than just this facet (also consumed by another
			// dataset's `source`); leave it client-side.
			continue
		}
		liftedName := fmt.Sprintf("_facet_%d", i)
		spec.Data = append(spec.Data, DataDef{
			Scope:     m.Scope,
			Name:      liftedName,
			Source:    m.Facet.Data,
			Transform: m.Facet.Transform,
		})
		spec.Marks[i].Facet = &FacetDef{Data: liftedName, GroupScope: m.Facet.GroupScope}
	}
}
