package vfplanner

import (
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// CommPlan lists the variables that must cross the server/client boundary
// in each direction once a spec has been partitioned (spec.md §4.3 phase 5).
type CommPlan struct {
	ServerToClient []vfvar.ScopedVariable
	ClientToServer []vfvar.ScopedVariable
}

// SpecPlan is the planner's output (spec.md §4.3): the partitioned server
// and client specs, the comm plan binding them together, and any
// diagnostics collected along the way.
type SpecPlan struct {
	ServerSpec *Spec
	ClientSpec *Spec
	CommPlan   CommPlan
	Warnings   []Warning

	// DatetimeColumns maps a server→client dataset name to the local-
	// timestamp columns phase 7 flagged for string encoding. Nothing in the
	// runtime reads it: flagged columns cross the boundary unencoded.
	DatetimeColumns map[string][]string
}

// Plan runs the full 8-phase algorithm over spec under cfg, returning the
// partitioned SpecPlan. It mutates a working copy only; the caller's spec
// is left untouched.
func Plan(spec *Spec, cfg vfconfig.PlannerConfig) (*SpecPlan, error) {
	working := cloneSpec(spec)

	warnings := collectWarnings(working)

	if cfg.SplitDomainData {
		extractDomains(working)
	}
	if cfg.ProjectionPushdown {
		pushdownProjections(working)
	}

	clientOnly := cfg.ClientOnlyVars
	p := partitionServerClient(working, clientOnly)
	comm := stitch(working, p, cfg.KeepVariables)

	if !cfg.AllowClientToServer && len(comm.ClientToServer) > 0 {
		extra := make([]string, 0, len(comm.ClientToServer))
		for _, v := range comm.ClientToServer {
			extra = append(extra, v.Variable.Name)
			warnings = append(warnings, Warning{
				Kind:     WarnBrokenInteractivity,
				Variable: v.String(),
				Message:  "client-to-server comms disabled; re-planned with this variable client-only",
			})
		}
		clientOnly = append(append([]string{}, clientOnly...), extra...)
		p = partitionServerClient(working, clientOnly)
		comm = stitch(working, p, cfg.KeepVariables)
		comm.ClientToServer = nil
	}

	if cfg.SplitURLDataNodes {
		splitServerURLNodes(working, p)
	}

	serverNames := make([]string, 0, len(comm.ServerToClient))
	for _, v := range comm.ServerToClient {
		if v.Variable.Namespace == vfvar.Data {
			serverNames = append(serverNames, v.Variable.Name)
		}
	}
	var datetimeCols map[string][]string
	if cfg.StringifyLocalDatetimes {
		datetimeCols = stringifyCandidates(working, serverNames)
	}

	if cfg.ExtractInlineData {
		extractInlineData(working, p)
	}

	extractFacets(working)

	serverSpec := buildServerSpec(working, p)
	clientSpec := buildClientSpec(working, p)

	return &SpecPlan{
		ServerSpec:      serverSpec,
		ClientSpec:      clientSpec,
		CommPlan:        comm,
		Warnings:        warnings,
		DatetimeColumns: datetimeCols,
	}, nil
}

// splitServerURLNodes applies phase 6 only to datasets the partition
// placed server-side; client-side URL datasets are left for the client
// runtime to fetch directly.
func splitServerURLNodes(spec *Spec, p partition) {
	var serverOnly, rest []DataDef
	for _, d := range spec.Data {
		if p.serverData[d.Name] {
			serverOnly = append(serverOnly, d)
		} else {
			rest = append(rest, d)
		}
	}
	tmp := &Spec{Data: serverOnly}
	splitURLNodes(tmp)
	spec.Data = append(tmp.Data, rest...)
	for _, d := range tmp.Data {
		p.serverData[d.Name] = true
	}
}

// extractInlineData implements the extract_inline_data switch: inline-valued
// root datasets referenced only by server-eligible consumers move
// server-side outright, since there is no download to save by leaving them
// on the client. No size check is made: an inline dataset of any row count
// moves.
func extractInlineData(spec *Spec, p partition) {
	for _, d := range spec.Data {
		if d.Values == nil || !d.IsRoot() {
			continue
		}
		if p.serverData[d.Name] {
			continue
		}
		allServerConsumers := true
		for _, c := range spec.Data {
			if c.Source == d.Name && !p.serverData[c.Name] {
				allServerConsumers = false
				break
			}
		}
		if allServerConsumers {
			p.serverData[d.Name] = true
		}
	}
}

func cloneSpec(spec *Spec) *Spec {
	out := &Spec{
		Data:    append([]DataDef(nil), spec.Data...),
		Signals: append([]SignalDef(nil), spec.Signals...),
		Scales:  append([]ScaleDef(nil), spec.Scales...),
		Marks:   append([]MarkDef(nil), spec.Marks...),
	}
	for i := range out.Data {
		out.Data[i].Transform = append(out.Data[i].Transform[:0:0], out.Data[i].Transform...)
	}
	return out
}
