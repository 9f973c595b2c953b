// Package temporal provides a durable Engine backed by Temporal: every node
// evaluation runs as a Temporal activity inside a single-activity workflow,
// so a scheduler that crashes mid-evaluation resumes from Temporal's own
// history instead of losing in-flight work.
//
// Grounded on the teacher's runtime/agent/engine/temporal package, which
// wraps a Temporal client.Client/worker.Worker pair behind the same Engine
// interface this package implements; simplified here because a task graph
// node has no need for child workflows, signals, or queries — only a single
// request/response activity call.
package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/vegafusion/vegafusion-go/internal/vfcompile"
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine"
	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// defaultActivityTimeout bounds a single node evaluation; transform
// pipelines and data fetches are expected to complete well inside this.
const defaultActivityTimeout = 2 * time.Minute

const (
	// WorkflowName is registered on the worker and started once per node
	// evaluation by Engine.EvaluateNode.
	WorkflowName = "vegafusion.EvaluateNode"
	// ActivityName is the activity the workflow above delegates to; it
	// does the actual work via engine.EvaluateTask.
	ActivityName = "vegafusion.EvaluateNodeActivity"
)

// activityRequest is the wire payload for ActivityName. It carries only
// the serializable parts of engine.NodeRequest — a *vfcompile.CompilationConfig
// holds a registry of Go functions (Callables) that cannot cross a Temporal
// data converter boundary, so the activity rebuilds a fresh config from
// Signals and Tz instead of shipping the whole struct.
type activityRequest struct {
	Task         vftaskgraph.Task
	ParentValues []vfvalue.TaskValue
	Signals      map[string]any
	Tz           vfconfig.TzConfig
}

// Engine evaluates task graph nodes as Temporal activities.
type Engine struct {
	client    client.Client
	taskQueue string
}

// Options configures the Temporal-backed engine.
type Options struct {
	// Client is a pre-configured Temporal client; required.
	Client client.Client
	// TaskQueue is the queue node-evaluation workflows and activities run
	// on; required.
	TaskQueue string
}

// New constructs a Temporal-backed Engine. Call RegisterWorker before
// starting any workflows so a worker is actually polling TaskQueue.
func New(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("temporal engine: client is required")
	}
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal engine: task queue is required")
	}
	return &Engine{client: opts.Client, taskQueue: opts.TaskQueue}, nil
}

// RegisterWorker registers the node-evaluation workflow and activity on w.
// Call before w.Run/w.Start.
func RegisterWorker(w worker.Worker) {
	w.RegisterWorkflowWithOptions(evaluateNodeWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(evaluateNodeActivity, activity.RegisterOptions{Name: ActivityName})
}

// EvaluateNode starts (and waits on) a single-activity workflow evaluating
// req's node, satisfying engine.Engine.
func (e *Engine) EvaluateNode(ctx context.Context, req engine.NodeRequest) (vfvalue.TaskValue, error) {
	areq := activityRequest{Task: req.Task, ParentValues: req.ParentValues}
	if req.Config != nil {
		areq.Signals = req.Config.Signals
		areq.Tz = req.Config.Tz
	}
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		TaskQueue: e.taskQueue,
	}, WorkflowName, areq)
	if err != nil {
		return vfvalue.TaskValue{}, fmt.Errorf("temporal engine: starting node evaluation: %w", err)
	}
	var result vfvalue.TaskValue
	if err := run.Get(ctx, &result); err != nil {
		return vfvalue.TaskValue{}, fmt.Errorf("temporal engine: node evaluation %s: %w", run.GetRunID(), err)
	}
	return result, nil
}

func evaluateNodeWorkflow(ctx workflow.Context, req activityRequest) (vfvalue.TaskValue, error) {
	ao := workflow.ActivityOptions{StartToCloseTimeout: defaultActivityTimeout}
	actx := workflow.WithActivityOptions(ctx, ao)
	var result vfvalue.TaskValue
	err := workflow.ExecuteActivity(actx, ActivityName, req).Get(actx, &result)
	return result, err
}

func evaluateNodeActivity(ctx context.Context, req activityRequest) (vfvalue.TaskValue, error) {
	cfg := vfcompile.NewConfig(req.Tz)
	for name, v := range req.Signals {
		cfg = cfg.WithSignal(name, v)
	}
	return engine.EvaluateTask(engine.NodeRequest{
		Task:         req.Task,
		ParentValues: req.ParentValues,
		Config:       cfg,
	})
}
