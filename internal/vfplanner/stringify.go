package vfplanner

import "github.com/vegafusion/vegafusion-go/internal/vftransform"

// stringifyCandidates implements phase 7: identify local-timestamp columns
// a server dataset exports to the client (spec.md §4.3 phase 7). Exact
// timestamp-vs-numeric typing is only known once the pipeline actually
// runs, so this phase works off the one static signal available at plan
// time — a timeunit transform's own output columns are local timestamps
// by construction — and records them in SpecPlan.DatetimeColumns. Only the
// record is made: no code applies a string encoding or a zone tag to those
// columns when the dataset crosses the comm boundary.
func stringifyCandidates(spec *Spec, serverToClient []string) map[string][]string {
	crossing := make(map[string]bool, len(serverToClient))
	for _, name := range serverToClient {
		crossing[name] = true
	}
	out := map[string][]string{}
	for _, d := range spec.Data {
		if !crossing[d.Name] {
			continue
		}
		for _, t := range d.Transform {
			if t.Kind == vftransform.KindTimeUnit {
				out[d.Name] = append(out[d.Name], t.TimeUnitAs[0], t.TimeUnitAs[1])
			}
		}
	}
	return out
}
