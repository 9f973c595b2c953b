package vfplanner

import "github.com/vegafusion/vegafusion-go/internal/vfvar"

// partition holds the server/client membership decided by phase 4.
type partition struct {
	serverData   map[string]bool
	serverSignal map[string]bool
}

// partitionServerClient implements phase 4: a dataset is server-eligible
// iff every transform in its own chain is supported() and its source
// dataset (if any) is itself server-eligible — the same "stop at the first
// unsupported boundary" rule collectWarnings's taint check applies, viewed
// from the opposite side. A signal is server-eligible unless the caller
// named it client-only or it transitively depends on a client-only signal.
func partitionServerClient(spec *Spec, clientOnlyVars []string) partition {
	clientOnly := make(map[string]bool, len(clientOnlyVars))
	for _, v := range clientOnlyVars {
		clientOnly[v] = true
	}

	bySource := make(map[string]string, len(spec.Data))
	unsupportedDirect := make(map[string]bool, len(spec.Data))
	for _, d := range spec.Data {
		bySource[d.Name] = d.Source
		unsupportedDirect[d.Name] = !d.Supported()
	}
	serverData := make(map[string]bool, len(spec.Data))
	var dataEligible func(name string) bool
	dataEligible = func(name string) bool {
		if v, ok := serverData[name]; ok {
			return v
		}
		if clientOnly[name] {
			serverData[name] = false
			return false
		}
		ok := !unsupportedDirect[name]
		if ok {
			if src := bySource[name]; src != "" {
				ok = dataEligible(src)
			}
		}
		serverData[name] = ok
		return ok
	}
	for _, d := range spec.Data {
		dataEligible(d.Name)
	}

	bySignal := make(map[string]SignalDef, len(spec.Signals))
	for _, s := range spec.Signals {
		bySignal[s.Name] = s
	}
	serverSignal := make(map[string]bool, len(spec.Signals))
	var signalEligible func(name string) bool
	signalEligible = func(name string) bool {
		if v, ok := serverSignal[name]; ok {
			return v
		}
		if clientOnly[name] {
			serverSignal[name] = false
			return false
		}
		s, ok := bySignal[name]
		if !ok {
			serverSignal[name] = true // unknown/external signal, assume available
			return true
		}
		result := true
		serverSignal[name] = true // break cycles optimistically, corrected below
		for _, dep := range s.InputVars() {
			if !signalEligible(dep.Variable.Name) {
				result = false
				break
			}
		}
		serverSignal[name] = result
		return result
	}
	for _, s := range spec.Signals {
		signalEligible(s.Name)
	}

	return partition{serverData: serverData, serverSignal: serverSignal}
}

// buildServerSpec collects the server-eligible datasets and signals into a
// standalone Spec the runtime can evaluate in isolation — no marks or
// scales, since rendering never happens server-side.
func buildServerSpec(spec *Spec, p partition) *Spec {
	out := &Spec{}
	for _, d := range spec.Data {
		if p.serverData[d.Name] {
			out.Data = append(out.Data, d)
		}
	}
	for _, s := range spec.Signals {
		if p.serverSignal[s.Name] {
			out.Signals = append(out.Signals, s)
		}
	}
	return out
}

// buildClientSpec clones spec for client-side use: datasets and signals
// that moved to the server are replaced with definition-free stubs so the
// client spec is self-consistent on its own (spec.md §4.3 phase 5), to be
// populated at runtime via the comm plan.
func buildClientSpec(spec *Spec, p partition) *Spec {
	out := &Spec{Marks: append([]MarkDef(nil), spec.Marks...), Scales: append([]ScaleDef(nil), spec.Scales...)}
	for _, d := range spec.Data {
		if p.serverData[d.Name] {
			out.Data = append(out.Data, DataDef{Scope: d.Scope, Name: d.Name})
			continue
		}
		out.Data = append(out.Data, d)
	}
	for _, s := range spec.Signals {
		if p.serverSignal[s.Name] {
			out.Signals = append(out.Signals, SignalDef{Scope: s.Scope, Name: s.Name, Value: s.Value})
			continue
		}
		out.Signals = append(out.Signals, s)
	}
	return out
}

// stitch implements phase 5: derive the comm plan from the variable
// reference sets of each side. server→client variables are the server's
// updated (produced) variables that the client actually reads, plus any
// caller-requested keep_variables; client→server is the reverse for
// variables the client updates that the server reads and does not itself
// update.
func stitch(spec *Spec, p partition, keepVariables []string) CommPlan {
	serverUpdates := vfvar.NewSet()
	serverInputs := vfvar.NewSet()
	for _, d := range spec.Data {
		if !p.serverData[d.Name] {
			continue
		}
		serverUpdates.Add(d.Variable())
		for _, in := range d.InputVars() {
			serverInputs.Add(in)
		}
	}
	for _, s := range spec.Signals {
		if !p.serverSignal[s.Name] {
			continue
		}
		serverUpdates.Add(s.Variable())
		for _, in := range s.InputVars() {
			serverInputs.Add(in)
		}
	}

	clientUpdates := vfvar.NewSet()
	clientInputs := vfvar.NewSet()
	for _, d := range spec.Data {
		if p.serverData[d.Name] {
			continue
		}
		clientUpdates.Add(d.Variable())
		for _, in := range d.InputVars() {
			clientInputs.Add(in)
		}
	}
	for _, s := range spec.Signals {
		if p.serverSignal[s.Name] {
			continue
		}
		clientUpdates.Add(s.Variable())
		for _, in := range s.InputVars() {
			clientInputs.Add(in)
		}
	}
	for _, m := range spec.Marks {
		if m.From != "" {
			clientInputs.Add(vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Data, m.From), Scope: m.Scope})
		}
		for _, name := range m.freeSignals() {
			clientInputs.Add(vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Signal, name), Scope: m.Scope})
		}
	}
	for _, sc := range spec.Scales {
		if sc.HasDataDomain() {
			clientInputs.Add(vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Data, sc.DomainData), Scope: sc.Scope})
		}
	}

	keep := vfvar.NewSet()
	for _, name := range keepVariables {
		for _, sv := range serverUpdates.Sorted() {
			if sv.Variable.Name == name {
				keep.Add(sv)
			}
		}
	}

	serverToClient := clientInputs.Intersect(serverUpdates).Union(keep)
	clientToServer := serverInputs.Intersect(clientUpdates).Minus(serverUpdates)

	return CommPlan{
		ServerToClient: serverToClient.Sorted(),
		ClientToServer: clientToServer.Sorted(),
	}
}
