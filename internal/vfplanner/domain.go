package vfplanner

import "github.com/vegafusion/vegafusion-go/internal/vftransform"

// extractDomains implements phase 2: every scale whose domain reads from a
// dataset gets a synthesized server-side dataset computing the
// distinct/aggregate domain values, and the scale is rewritten to point at
// it instead of the original dataset (spec.md §4.3 phase 2).
//
// The synthesized dataset applies an aggregate-by-field transform grouping
// on the domain field(s) with no aggregate ops — the same shape
// Transform.Usage()'s KindAggregate case already knows how to project —
// giving a minimal distinct-values table.
func extractDomains(spec *Spec) {
	for i, sc := range spec.Scales {
		if !sc.HasDataDomain() {
			continue
		}
		fields := sc.Fields()
		if len(fields) == 0 {
			continue
		}
		domainName := "_domain_" + sc.Name
		spec.Data = append(spec.Data, DataDef{
			Scope:  sc.Scope,
			Name:   domainName,
			Source: sc.DomainData,
			Transform: vftransform.Pipeline{{
				Kind:    vftransform.KindAggregate,
				GroupBy: fields,
			}},
		})
		spec.Scales[i].DomainData = domainName
	}
}
