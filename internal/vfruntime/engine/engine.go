// Package engine defines the pluggable node-evaluation backend (spec.md
// §4.6): the scheduler resolves a node's already-evaluated parent values
// and hands the node itself off to an Engine, so the same scheduling logic
// runs whether nodes execute as local goroutines or as Temporal activities
// (internal/vfruntime/engine/inmem, internal/vfruntime/engine/temporal).
//
// This mirrors the teacher's runtime/agent/engine pluggability: one small
// interface, swappable backends, generic scheduling code on top.
package engine

import (
	"context"

	"github.com/vegafusion/vegafusion-go/internal/vfcompile"
	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// NodeRequest is everything an Engine needs to evaluate one task graph
// node: the node's own task definition plus its parents' already-resolved
// values, in the same order as the node's Inputs.
type NodeRequest struct {
	Task         vftaskgraph.Task
	ParentValues []vfvalue.TaskValue
	Config       *vfcompile.CompilationConfig
}

// Engine evaluates a single task graph node. Implementations translate
// this generic request into backend-specific execution: a direct function
// call for the in-memory engine, a Temporal activity invocation for the
// durable engine.
type Engine interface {
	EvaluateNode(ctx context.Context, req NodeRequest) (vfvalue.TaskValue, error)
}
