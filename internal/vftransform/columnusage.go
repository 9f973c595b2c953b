package vftransform

import "github.com/vegafusion/vegafusion-go/internal/vfexpr"

// ColumnUsage summarizes which columns a transform reads. Unknown is set
// by transforms whose column dependency can't be determined statically
// (spec.md §4.3 "soundness": an Unknown usage must never be narrowed away
// by projection pushdown).
type ColumnUsage struct {
	Unknown bool
	Columns map[string]struct{}
}

// UnknownUsage returns the conservative ColumnUsage meaning "may touch any
// column", the only sound answer for a variant that cannot be statically
// analyzed.
func UnknownUsage() ColumnUsage { return ColumnUsage{Unknown: true} }

// KnownUsage returns a ColumnUsage naming an exact set of columns.
func KnownUsage(cols ...string) ColumnUsage {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return ColumnUsage{Columns: set}
}

// Union merges two usages; Unknown is absorbing.
func (u ColumnUsage) Union(o ColumnUsage) ColumnUsage {
	if u.Unknown || o.Unknown {
		return UnknownUsage()
	}
	merged := make(map[string]struct{}, len(u.Columns)+len(o.Columns))
	for c := range u.Columns {
		merged[c] = struct{}{}
	}
	for c := range o.Columns {
		merged[c] = struct{}{}
	}
	return ColumnUsage{Columns: merged}
}

// Has reports whether col is named by a Known usage; an Unknown usage
// answers true for everything, per its conservative contract.
func (u ColumnUsage) Has(col string) bool {
	if u.Unknown {
		return true
	}
	_, ok := u.Columns[col]
	return ok
}

// Usage reports the set of input columns this transform reads — the basis
// for projection pushdown (spec.md §4.3/§5). Production (columns the
// transform adds) is returned separately since pushdown only prunes reads,
// never writes.
func (t Transform) Usage() (ColumnUsage, []string) {
	switch t.Kind {
	case KindFilter:
		return KnownUsage(referencedColumns(t.FilterExpr)...), nil
	case KindFormula:
		return KnownUsage(referencedColumns(t.FormulaExpr)...), []string{t.As}
	case KindExtent:
		return KnownUsage(t.Field), nil
	case KindCollect:
		cols := make([]string, len(t.Sort))
		for i, s := range t.Sort {
			cols[i] = s.Field
		}
		return KnownUsage(cols...), nil
	case KindAggregate:
		cols := append(append([]string{}, t.GroupBy...), t.Fields...)
		return KnownUsage(cols...), t.Aliases
	case KindJoinAggregate:
		cols := append(append([]string{}, t.GroupBy...), t.Fields...)
		return KnownUsage(cols...), t.Aliases
	case KindBin:
		return KnownUsage(t.Field), []string{t.BinAs[0], t.BinAs[1]}
	case KindFold:
		return KnownUsage(t.FoldFields...), []string{t.FoldAs[0], t.FoldAs[1]}
	case KindImpute:
		cols := append([]string{t.ImputeField, t.ImputeKey}, t.ImputeGroupBy...)
		return KnownUsage(cols...), nil
	case KindPivot:
		return KnownUsage(t.PivotField, t.PivotValue), nil
	case KindSequence:
		return KnownUsage(), []string{t.SeqAs}
	case KindStack:
		cols := append(append([]string{t.StackField}, t.GroupBy...), sortFieldNames(t.Sort)...)
		return KnownUsage(cols...), []string{t.StackAs[0], t.StackAs[1]}
	case KindTimeUnit:
		return KnownUsage(t.TimeUnitField), []string{t.TimeUnitAs[0], t.TimeUnitAs[1]}
	case KindWindow:
		cols := append(append([]string{}, t.GroupBy...), t.Fields...)
		return KnownUsage(cols...), t.Aliases
	case KindProject:
		return KnownUsage(t.ProjectFields...), t.ProjectAs
	case KindUnsupported:
		// An unsupported transform's behavior is opaque to the planner, so
		// it must conservatively be treated as touching every column
		// (spec.md §4.3).
		return UnknownUsage(), nil
	}
	return UnknownUsage(), nil
}

func sortFieldNames(sorts []SortField) []string {
	out := make([]string, len(sorts))
	for i, s := range sorts {
		out[i] = s.Field
	}
	return out
}

// InputVars returns the free signal identifiers this transform's
// expressions reference — best-effort static extraction used by the
// planner's dependency analysis (spec.md §4.3).
func (t Transform) InputVars() []string {
	switch t.Kind {
	case KindFilter:
		return freeIdentifiers(t.FilterExpr)
	case KindFormula:
		return freeIdentifiers(t.FormulaExpr)
	}
	return nil
}

// ReferencedColumns exposes referencedColumns for callers outside this
// package (the planner's mark-encoding column-usage analysis, spec.md §4.3
// phase 3) that need the same `datum.field` extraction transforms use.
func ReferencedColumns(expr *vfexpr.Node) []string { return referencedColumns(expr) }

// FreeIdentifiers exposes freeIdentifiers for the planner's signal
// dependency analysis (spec.md §4.3), the same extraction
// Transform.InputVars uses internally.
func FreeIdentifiers(expr *vfexpr.Node) []string { return freeIdentifiers(expr) }

// referencedColumns walks expr collecting every `datum.field` /
// `datum["field"]` member access, the column-usage contribution of a
// single compiled expression (spec.md §4.1).
func referencedColumns(expr *vfexpr.Node) []string {
	var out []string
	var walk func(n *vfexpr.Node)
	walk = func(n *vfexpr.Node) {
		if n == nil {
			return
		}
		if n.Kind == vfexpr.KindMember {
			if n.Object != nil && n.Object.Kind == vfexpr.KindIdentifier && n.Object.Name == "datum" {
				if !n.Computed && n.Property != nil && n.Property.Kind == vfexpr.KindIdentifier {
					out = append(out, n.Property.Name)
				} else if n.Computed && n.Property != nil && n.Property.Kind == vfexpr.KindLiteral && n.Property.Literal.Kind == vfexpr.LitString {
					out = append(out, n.Property.Literal.Str)
				}
			}
		}
		walkChildren(n, walk)
	}
	walk(expr)
	return out
}

// freeIdentifiers walks expr collecting bare identifier references other
// than "datum" and call callees, a best-effort signal-dependency set.
func freeIdentifiers(expr *vfexpr.Node) []string {
	var out []string
	seen := map[string]struct{}{}
	var walk func(n *vfexpr.Node, isCallee bool)
	walk = func(n *vfexpr.Node, isCallee bool) {
		if n == nil {
			return
		}
		if n.Kind == vfexpr.KindIdentifier && !isCallee && n.Name != "datum" {
			if _, ok := seen[n.Name]; !ok {
				seen[n.Name] = struct{}{}
				out = append(out, n.Name)
			}
			return
		}
		if n.Kind == vfexpr.KindCall {
			walk(n.Callee, true)
			for _, a := range n.Arguments {
				walk(a, false)
			}
			return
		}
		if n.Kind == vfexpr.KindMember {
			walk(n.Object, false)
			if n.Computed {
				walk(n.Property, false)
			}
			return
		}
		walkChildren(n, func(c *vfexpr.Node) { walk(c, false) })
	}
	walk(expr, false)
	return out
}

func walkChildren(n *vfexpr.Node, visit func(*vfexpr.Node)) {
	switch n.Kind {
	case vfexpr.KindUnary:
		visit(n.Arg)
	case vfexpr.KindBinary, vfexpr.KindLogical:
		visit(n.Left)
		visit(n.Right)
	case vfexpr.KindConditional:
		visit(n.Test)
		visit(n.Consequent)
		visit(n.Alternate)
	case vfexpr.KindMember:
		visit(n.Object)
		if n.Computed {
			visit(n.Property)
		}
	case vfexpr.KindCall:
		visit(n.Callee)
		for _, a := range n.Arguments {
			visit(a)
		}
	case vfexpr.KindArray:
		for _, e := range n.Elements {
			visit(e)
		}
	case vfexpr.KindObject:
		for _, p := range n.Properties {
			if p.Computed {
				visit(&p.Key)
			}
			visit(&p.Value)
		}
	}
}
