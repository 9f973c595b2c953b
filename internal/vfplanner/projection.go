package vfplanner

import "github.com/vegafusion/vegafusion-go/internal/vftransform"

// pushdownProjections implements phase 3: for each root dataset, compute
// the ColumnUsage closure of everything that consumes its OUTPUT — marks'
// encodings, scales' domains, and every child dataset's own "needed from
// source" requirement (which recurses through the child's own pipeline
// reads and its own consumers in turn) — then append a terminal project
// restricting the root to that closure. A root contributing to an Unknown
// usage anywhere downstream is left unprojected (spec.md §4.3 phase 3's
// soundness rule: Unknown must never be narrowed away by projection).
func pushdownProjections(spec *Spec) {
	byName := make(map[string]*DataDef, len(spec.Data))
	for i := range spec.Data {
		byName[spec.Data[i].Name] = &spec.Data[i]
	}
	children := make(map[string][]string)
	for _, d := range spec.Data {
		if d.Source != "" {
			children[d.Source] = append(children[d.Source], d.Name)
		}
	}

	outputUsage := make(map[string]vftransform.ColumnUsage)
	var output func(name string) vftransform.ColumnUsage
	var neededFromSource func(d DataDef) vftransform.ColumnUsage

	output = func(name string) vftransform.ColumnUsage {
		if u, ok := outputUsage[name]; ok {
			return u
		}
		u := directConsumers(spec, name)
		for _, child := range children[name] {
			u = u.Union(neededFromSource(*byName[child]))
		}
		outputUsage[name] = u
		return u
	}

	neededFromSource = func(d DataDef) vftransform.ColumnUsage {
		ownReads := d.Transform.Usage()
		ownProduced := producedColumns(d.Transform)
		return ownReads.Union(subtractProduced(output(d.Name), ownProduced))
	}

	for i := range spec.Data {
		d := &spec.Data[i]
		if !d.IsRoot() {
			continue
		}
		u := output(d.Name)
		if u.Unknown {
			continue
		}
		cols := keysSorted(u)
		if len(cols) == 0 {
			continue
		}
		d.Transform = append(d.Transform, vftransform.Transform{Kind: vftransform.KindProject, ProjectFields: cols})
	}
}

// directConsumers is the usage contributed by name's own direct consumers:
// marks reading its output rows and scales domaining on it. It excludes
// name's own pipeline reads, which are a requirement on name's *source*,
// not its output.
func directConsumers(spec *Spec, name string) vftransform.ColumnUsage {
	u := vftransform.KnownUsage()
	for _, m := range spec.Marks {
		if m.From == name {
			u = u.Union(vftransform.KnownUsage(m.ColumnsUsed()...))
		}
	}
	for _, sc := range spec.Scales {
		if sc.DomainData == name {
			u = u.Union(vftransform.KnownUsage(sc.Fields()...))
		}
	}
	return u
}

func producedColumns(p vftransform.Pipeline) []string {
	var out []string
	for _, t := range p {
		_, produced := t.Usage()
		out = append(out, produced...)
	}
	return out
}

func subtractProduced(u vftransform.ColumnUsage, produced []string) vftransform.ColumnUsage {
	if u.Unknown || len(produced) == 0 {
		return u
	}
	producedSet := make(map[string]struct{}, len(produced))
	for _, p := range produced {
		producedSet[p] = struct{}{}
	}
	out := vftransform.KnownUsage()
	for c := range u.Columns {
		if _, ok := producedSet[c]; !ok {
			out.Columns[c] = struct{}{}
		}
	}
	return out
}

func keysSorted(u vftransform.ColumnUsage) []string {
	out := make([]string, 0, len(u.Columns))
	for c := range u.Columns {
		out = append(out, c)
	}
	sortStrings(out)
	return out
}
