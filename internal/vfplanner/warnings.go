package vfplanner

import "fmt"

// WarningKind tags a Warning's variant (spec.md §4.7's row-limit note plus
// the planner's own three diagnostic kinds).
type WarningKind int

const (
	// WarnUnsupported flags a dataset whose transform chain (or whose
	// ancestor's) contains a transform the planner cannot run server-side.
	WarnUnsupported WarningKind = iota
	// WarnBrokenInteractivity flags a client→server comm entry produced
	// while AllowClientToServer is false, meaning that interaction path
	// had to be severed.
	WarnBrokenInteractivity
	// WarnRowLimit flags a server→client dataset truncated to RowLimit.
	WarnRowLimit
	// WarnPlanner covers any other planning-time anomaly.
	WarnPlanner
)

// Warning is a single planner or runtime diagnostic surfaced to the caller
// alongside a SpecPlan or ChartState, never fatal on its own.
type Warning struct {
	Kind     WarningKind
	Dataset  string   // WarnUnsupported
	Datasets []string // WarnRowLimit: every truncated dataset
	Variable string   // WarnBrokenInteractivity
	Message  string   // WarnPlanner, or additional context for any kind
}

// String renders the warning for logging.
func (w Warning) String() string {
	switch w.Kind {
	case WarnUnsupported:
		return fmt.Sprintf("unsupported transform in dataset %q: %s", w.Dataset, w.Message)
	case WarnBrokenInteractivity:
		return fmt.Sprintf("client interaction on %q cannot reach the server: %s", w.Variable, w.Message)
	case WarnRowLimit:
		return fmt.Sprintf("row limit applied to datasets %v", w.Datasets)
	default:
		return w.Message
	}
}
