package vfplanner

// collectWarnings implements phase 1: flag any dataset whose own transform
// chain contains an unsupported transform, or whose ancestor chain does
// (an unsupported ancestor taints every descendant, since none of them can
// run server-side either once their source can't be evaluated there).
func collectWarnings(spec *Spec) []Warning {
	bySource := make(map[string]string, len(spec.Data)) // name -> source
	for _, d := range spec.Data {
		bySource[d.Name] = d.Source
	}
	unsupportedDirect := make(map[string]bool, len(spec.Data))
	for _, d := range spec.Data {
		unsupportedDirect[d.Name] = !d.Supported()
	}
	tainted := make(map[string]bool, len(spec.Data))
	var isTainted func(name string) bool
	isTainted = func(name string) bool {
		if v, ok := tainted[name]; ok {
			return v
		}
		t := unsupportedDirect[name]
		if !t {
			if src, ok := bySource[name]; ok && src != "" {
				t = isTainted(src)
			}
		}
		tainted[name] = t
		return t
	}

	var warnings []Warning
	for _, d := range spec.Data {
		if isTainted(d.Name) {
			msg := "unsupported transform"
			if !unsupportedDirect[d.Name] {
				msg = "ancestor dataset has an unsupported transform"
			}
			warnings = append(warnings, Warning{Kind: WarnUnsupported, Dataset: d.Name, Message: msg})
		}
	}
	return warnings
}
