// Package vfcompile lowers vfexpr IR nodes to vfplan.ScalarExpr values
// (spec.md §4.1), applying the JavaScript-subset semantics the expression
// language requires (string-concatenating `+`, loose/strict equality,
// short-circuiting logical operators, datum member access, and the
// timezone-aware datetime builtin catalog).
package vfcompile

import (
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfplan"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// Callable is a named function in the compiler's registry: it receives the
// (already-compiled) argument expressions, the active config, and the
// input schema names, and returns a compiled scalar expression.
type Callable func(args []*vfplan.ScalarExpr, cfg *CompilationConfig, columns []string) (vfplan.ScalarExpr, error)

// CompilationConfig carries everything a compilation needs beyond the
// expression tree itself (spec.md §4.1).
type CompilationConfig struct {
	// Signals holds current signal scalar values visible to the
	// expression as bare identifiers.
	Signals map[string]any
	// Data holds tables visible as constants (e.g. for vlSelectionTest).
	Data map[string]*dataRef
	// Callables is the registry of named functions (length, datetime
	// builtins, vlSelectionTest, ...).
	Callables map[string]Callable
	// Constants holds JS Math-style constants (NaN, E, PI, ...).
	Constants map[string]any
	Tz        vfconfig.TzConfig
}

type dataRef struct {
	Table *vfvalue.Table
}

// NewConfig returns a CompilationConfig with the standard constant and
// callable catalogs installed.
func NewConfig(tz vfconfig.TzConfig) *CompilationConfig {
	cfg := &CompilationConfig{
		Signals:   map[string]any{},
		Data:      map[string]*dataRef{},
		Callables: map[string]Callable{},
		Constants: standardConstants(),
		Tz:        tz,
	}
	installStandardCallables(cfg)
	return cfg
}

// WithSignal returns a shallow-cloned config with signal name set to
// value — transforms that publish output signals (extent, bin, ...)
// append them to a local clone before invoking the next transform
// (spec.md §5), never mutating the shared config in place.
func (c *CompilationConfig) WithSignal(name string, value any) *CompilationConfig {
	clone := *c
	clone.Signals = cloneAnyMap(c.Signals)
	clone.Signals[name] = value
	return &clone
}

// WithData returns a shallow-cloned config with data variable name bound
// to table, visible to expressions as a constant (e.g. for
// vlSelectionTest's selection-store lookups).
func (c *CompilationConfig) WithData(name string, table *vfvalue.Table) *CompilationConfig {
	clone := *c
	clone.Data = make(map[string]*dataRef, len(c.Data)+1)
	for k, v := range c.Data {
		clone.Data[k] = v
	}
	clone.Data[name] = &dataRef{Table: table}
	return &clone
}

func cloneAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func standardConstants() map[string]any {
	nan := 0.0
	nan = nan / nan
	return map[string]any{
		"NaN":      nan,
		"E":        2.718281828459045,
		"PI":       3.141592653589793,
		"LN2":      0.6931471805599453,
		"LN10":     2.302585092994046,
		"LOG2E":    1.4426950408889634,
		"LOG10E":   0.4342944819032518,
		"SQRT1_2":  0.7071067811865476,
		"SQRT2":    1.4142135623730951,
		"MAX_VALUE": 1.7976931348623157e+308,
	}
}
