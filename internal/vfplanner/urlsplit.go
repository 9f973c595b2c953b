package vfplanner

// splitURLNodes implements phase 6: a server dataset with a URL source
// gets its transform chain partitioned at the first transform referencing
// a signal (the first "external", not-fixed-at-download-time input) — the
// prefix of signal-independent transforms stays with a `_parent_<name>`
// node that keeps the URL (so retransforms triggered by later signal
// changes never re-download), and the remainder becomes a `source`-based
// child carrying the signal-dependent transforms.
func splitURLNodes(spec *Spec) {
	var out []DataDef
	for _, d := range spec.Data {
		if d.URL == "" || len(d.Transform) == 0 {
			out = append(out, d)
			continue
		}
		splitAt := -1
		for i, t := range d.Transform {
			if len(t.InputVars()) > 0 {
				splitAt = i
				break
			}
		}
		if splitAt <= 0 {
			out = append(out, d)
			continue
		}
		parentName := "_parent_" + d.Name
		out = append(out, DataDef{
			Scope:     d.Scope,
			Name:      parentName,
			URL:       d.URL,
			Format:    d.Format,
			Transform: append(d.Transform[:0:0], d.Transform[:splitAt]...),
		})
		out = append(out, DataDef{
			Scope:     d.Scope,
			Name:      d.Name,
			Source:    parentName,
			Transform: append(d.Transform[:0:0], d.Transform[splitAt:]...),
		})
	}
	spec.Data = out
}
