// Package vfplanner implements the 8-phase spec planner (spec.md §4.3): it
// partitions a full specification into a server spec (evaluated by the
// runtime) and a client spec (rendered interactively), inserting the
// comm-plan variables needed to keep them consistent.
package vfplanner

import (
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vftransform"
	"github.com/vegafusion/vegafusion-go/internal/vfvar"
)

// Spec is the Go-native distillation of a Vega specification this planner
// operates over: one entry per dataset/signal/scale/mark, scoped by the
// group-mark path it was declared under (spec.md §3's hierarchical scopes).
type Spec struct {
	Data    []DataDef
	Signals []SignalDef
	Scales  []ScaleDef
	Marks   []MarkDef
}

// DataDef is one named dataset: either a URL/inline source, or derived
// from another dataset (Source) via a transform Pipeline.
type DataDef struct {
	Scope     vfvar.Scope
	Name      string
	URL       string
	Format    string
	Values    []map[string]any // inline literal rows, set instead of URL
	Source    string           // name of the parent dataset, empty for roots
	Transform vftransform.Pipeline
}

// Variable returns d's identity as a ScopedVariable.
func (d DataDef) Variable() vfvar.ScopedVariable {
	return vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Data, d.Name), Scope: d.Scope}
}

// InputVars returns the other variables d's definition reads: its source
// dataset (if derived) plus any signals its transform pipeline references.
func (d DataDef) InputVars() []vfvar.ScopedVariable {
	var out []vfvar.ScopedVariable
	if d.Source != "" {
		out = append(out, vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Data, d.Source), Scope: d.Scope})
	}
	for _, name := range d.Transform.InputVars() {
		out = append(out, vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Signal, name), Scope: d.Scope})
	}
	return out
}

// IsRoot reports whether d has no dataset parent (a URL or inline source).
func (d DataDef) IsRoot() bool { return d.Source == "" }

// Supported reports whether every transform in d's pipeline can run on the
// server (spec.md §4.2's supported() predicate, the planner's phase-4
// extraction criterion).
func (d DataDef) Supported() bool {
	for _, t := range d.Transform {
		if !t.Supported() {
			return false
		}
	}
	return true
}

// SignalDef is a named reactive value with an optional update expression.
type SignalDef struct {
	Scope  vfvar.Scope
	Name   string
	Value  any
	Update *vfexpr.Node // nil for a plain root signal with only an initial Value
}

// Variable returns s's identity as a ScopedVariable.
func (s SignalDef) Variable() vfvar.ScopedVariable {
	return vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Signal, s.Name), Scope: s.Scope}
}

// InputVars returns the other signals s's Update expression reads.
func (s SignalDef) InputVars() []vfvar.ScopedVariable {
	if s.Update == nil {
		return nil
	}
	out := make([]vfvar.ScopedVariable, 0, 4)
	for _, name := range vftransform.FreeIdentifiers(s.Update) {
		out = append(out, vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Signal, name), Scope: s.Scope})
	}
	return out
}

// ScaleDef is a named scale whose domain may be data-driven.
type ScaleDef struct {
	Scope        vfvar.Scope
	Name         string
	DomainData   string   // dataset name, empty if the domain is a literal
	DomainField  string   // single field form
	DomainFields []string // multi-field form, e.g. {data: D, fields: [f1, f2]}
}

// Variable returns sc's identity as a ScopedVariable.
func (sc ScaleDef) Variable() vfvar.ScopedVariable {
	return vfvar.ScopedVariable{Variable: vfvar.New(vfvar.Scale, sc.Name), Scope: sc.Scope}
}

// HasDataDomain reports whether sc's domain is computed from a dataset.
func (sc ScaleDef) HasDataDomain() bool { return sc.DomainData != "" }

// Fields returns the column(s) sc's domain reads from its dataset.
func (sc ScaleDef) Fields() []string {
	if len(sc.DomainFields) > 0 {
		return sc.DomainFields
	}
	if sc.DomainField != "" {
		return []string{sc.DomainField}
	}
	return nil
}

// MarkDef is a visual mark: the dataset it draws rows from, its per-channel
// encoding expressions, and (for group marks) a nested facet.
type MarkDef struct {
	Scope     vfvar.Scope
	From      string // dataset name
	Encodings map[string]*vfexpr.Node
	Facet     *FacetDef
}

// FacetDef describes a group mark's per-group data split: Data is the
// dataset the facet operates over, GroupScope is the child scope the facet
// transform's output is visible in.
type FacetDef struct {
	Data       string
	GroupScope vfvar.Scope
	Transform  vftransform.Pipeline
}

// ColumnsUsed returns the fields m's encodings reference via datum member
// access, used by projection pushdown.
func (m MarkDef) ColumnsUsed() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, expr := range m.Encodings {
		for _, col := range vftransform.ReferencedColumns(expr) {
			if _, ok := seen[col]; !ok {
				seen[col] = struct{}{}
				out = append(out, col)
			}
		}
	}
	return out
}

func (m MarkDef) freeSignals() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, expr := range m.Encodings {
		for _, name := range vftransform.FreeIdentifiers(expr) {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out
}
