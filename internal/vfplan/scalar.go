// Package vfplan defines the logical-plan boundary between the transform
// evaluator/expression compiler and the (externally supplied) physical
// query engine (spec.md §1, §6 "Executor boundary"). ScalarExpr is the
// compiled form the expression compiler (internal/vfcompile) produces;
// LogicalPlan/PlanExecutor is the relational-algebra boundary transforms
// hand off to an execution engine.
package vfplan

import (
	"fmt"

	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// ScalarExpr is a compiled scalar expression: a closure over a row plus
// the declared output type, produced by internal/vfcompile from a
// vfexpr.Node. Transforms that only need row-wise evaluation (filter,
// formula) call Eval directly; transforms that need relational operators
// (aggregate, join) embed ScalarExprs inside a LogicalPlan handed to a
// PlanExecutor.
type ScalarExpr struct {
	// Name is used for diagnostics and as the default output column name.
	Name string
	Type vfvalue.DataType
	Eval func(row map[string]any) (any, error)
}

// EvalColumn evaluates expr over every row of t, returning a column.
func EvalColumn(expr ScalarExpr, t *vfvalue.Table) ([]any, error) {
	n := t.NumRows()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := expr.Eval(t.Row(i))
		if err != nil {
			return nil, fmt.Errorf("vfplan: evaluating %q at row %d: %w", expr.Name, i, err)
		}
		out[i] = v
	}
	return out, nil
}
