// Package vftransform implements the curated transform set (spec.md
// §4.2): each variant's column-usage/production summary, input-variable
// dependency set, output-signal set, and eval semantics, composed into a
// TransformPipeline.
package vftransform

import (
	"github.com/vegafusion/vegafusion-go/internal/vfcompile"
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfexpr"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// Kind tags the variant of a Transform.
type Kind int

const (
	KindFilter Kind = iota
	KindFormula
	KindExtent
	KindCollect
	KindAggregate
	KindJoinAggregate
	KindBin
	KindFold
	KindImpute
	KindPivot
	KindSequence
	KindStack
	KindTimeUnit
	KindWindow
	KindProject
	KindUnsupported
)

// SortField is one (field, order) entry in a sort specification, order
// being "ascending" or "descending".
type SortField struct {
	Field string
	Order string
}

// Transform is a tagged union over the curated transform set. Exactly one
// field-group is populated per Kind, following the same flat-struct style
// as vfexpr.Node — a small, fixed set of variants favors an enum with
// per-variant methods over a boxed interface-per-variant (spec.md §9).
type Transform struct {
	Kind Kind

	// filter
	FilterExpr *vfexpr.Node

	// formula
	FormulaExpr *vfexpr.Node
	As          string

	// extent
	Field      string
	SignalName string // extent/bin signal output name, empty if none

	// collect
	Sort []SortField

	// aggregate / joinaggregate / window share these
	GroupBy []string
	Fields  []string
	Ops     []string
	Aliases []string

	// bin
	ExtentMin, ExtentMax float64
	MaxBins              int
	Step                 float64
	HasStep              bool
	Base                 float64
	Divide               []float64
	MinStep              float64
	Nice                 bool
	Span                 float64
	HasSpan              bool
	BinAs                [2]string

	// fold
	FoldFields []string
	FoldAs     [2]string

	// impute
	ImputeField    string
	ImputeKey      string
	ImputeGroupBy  []string
	ImputeValue    any
	ImputeMethod   string

	// pivot
	PivotField   string
	PivotValue   string
	PivotOp      string
	PivotLimit   int

	// sequence
	Start, Stop float64
	HasSeqStep  bool
	SeqStep     float64
	SeqAs       string

	// stack
	StackField   string
	StackAs      [2]string
	StackOffset  string // "zero" | "center" | "normalize"

	// timeunit
	TimeUnitField string
	Units         []string
	TimeUnitAs    [2]string
	UTC           bool

	// window
	WindowFrame  [2]*int // nil means unbounded
	WindowParams []float64

	// project
	ProjectFields []string
	ProjectAs     []string

	// unsupported
	UnsupportedType string
}

// Supported reports whether this transform variant can be evaluated
// server-side (spec.md §4.2's "predicate supported()").
func (t Transform) Supported() bool { return t.Kind != KindUnsupported }

// OutputSignals returns the signal names this transform publishes, in the
// order its eval emits their values.
func (t Transform) OutputSignals() []string {
	switch t.Kind {
	case KindExtent, KindBin:
		if t.SignalName != "" {
			return []string{t.SignalName}
		}
	}
	return nil
}

// Eval applies the transform to input, returning the output table and any
// published signal scalars aligned by position with OutputSignals()
// (spec.md §4.2). cfg carries the signal/data bindings and callable
// catalog the expression compiler needs to lower FilterExpr/FormulaExpr.
func (t Transform) Eval(input *vfvalue.Table, cfg *vfcompile.CompilationConfig) (*vfvalue.Table, []any, error) {
	switch t.Kind {
	case KindFilter:
		return t.evalFilter(input, cfg)
	case KindFormula:
		return t.evalFormula(input, cfg)
	case KindExtent:
		return t.evalExtent(input)
	case KindCollect:
		return t.evalCollect(input)
	case KindAggregate:
		return t.evalAggregate(input)
	case KindJoinAggregate:
		return t.evalJoinAggregate(input)
	case KindBin:
		return t.evalBin(input)
	case KindFold:
		return t.evalFold(input)
	case KindImpute:
		return t.evalImpute(input)
	case KindPivot:
		return t.evalPivot(input)
	case KindSequence:
		return t.evalSequence()
	case KindStack:
		return t.evalStack(input)
	case KindTimeUnit:
		return t.evalTimeUnit(input)
	case KindWindow:
		return t.evalWindow(input)
	case KindProject:
		return t.evalProject(input)
	case KindUnsupported:
		return nil, nil, vferrors.Newf(vferrors.KindSpecification, "transform %q is not supported server-side", t.UnsupportedType)
	}
	return nil, nil, vferrors.Newf(vferrors.KindInternal, "unknown transform kind %d", t.Kind)
}
