// Package vfruntime is the scheduler (spec.md §4.6): it walks a task graph,
// resolving each node's parents concurrently before delegating to the
// pluggable engine.Engine and the shared vfcache.Cache.
package vfruntime

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vegafusion/vegafusion-go/internal/vfcache"
	"github.com/vegafusion/vegafusion-go/internal/vfcompile"
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine"
	"github.com/vegafusion/vegafusion-go/internal/vftaskgraph"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

// Runtime ties a node-evaluation Engine to a shared Cache, handing out
// GetNodeValue coordination over any number of independent task graphs.
type Runtime struct {
	Engine engine.Engine
	Cache  *vfcache.Cache
	Tz     vfconfig.TzConfig
}

// New constructs a Runtime. eng may be inmem.New() or a Temporal-backed
// engine; cache is typically shared across many ChartStates.
func New(eng engine.Engine, cache *vfcache.Cache, tz vfconfig.TzConfig) *Runtime {
	return &Runtime{Engine: eng, Cache: cache, Tz: tz}
}

// GetNodeValue is the recursive coordinator described by spec.md §4.6: root
// Value nodes return directly (never cached), everything else spawns its
// parent resolutions and free-signal lookups concurrently, then delegates
// the assembled inputs to the cache under the node's state fingerprint.
func (rt *Runtime) GetNodeValue(ctx context.Context, graph *vftaskgraph.Graph, nodeIndex int) (vfvalue.TaskValue, error) {
	node := graph.Nodes[nodeIndex]
	if node.Task.Kind == vftaskgraph.TaskValue {
		return node.Task.Value, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	parentValues := make([]vfvalue.TaskValue, len(node.Inputs))
	for i, p := range node.Inputs {
		i, p := i, p
		g.Go(func() error {
			v, err := rt.GetNodeValue(gctx, graph, p)
			if err != nil {
				return err
			}
			parentValues[i] = v
			return nil
		})
	}

	signalNames := node.Task.Pipeline.InputVars()
	signalValues := make(map[string]any, len(signalNames))
	var sigMu sync.Mutex
	for _, name := range signalNames {
		idx, ok := graph.OutputSignals[name]
		if !ok {
			continue
		}
		name, idx := name, idx
		g.Go(func() error {
			v, err := rt.GetNodeValue(gctx, graph, idx)
			if err != nil {
				return err
			}
			scalar, err := v.AsScalar()
			if err != nil {
				return err
			}
			sigMu.Lock()
			signalValues[name] = scalar
			sigMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return vfvalue.TaskValue{}, err
	}

	idFP := graph.IDFingerprint(nodeIndex)
	stateFP := graph.StateFingerprint(nodeIndex, signalValues)
	key := vfcache.Key{IDFingerprint: idFP, StateFingerprint: stateFP}

	cfg := vfcompile.NewConfig(rt.Tz)
	for name, v := range signalValues {
		cfg = cfg.WithSignal(name, v)
	}

	return rt.Cache.GetOrCompute(ctx, key, estimateSize(parentValues), func(ctx context.Context) (vfvalue.TaskValue, error) {
		return rt.Engine.EvaluateNode(ctx, engine.NodeRequest{
			Task:         node.Task,
			ParentValues: parentValues,
			Config:       cfg,
		})
	})
}

// StateFingerprint resolves node i's currently-referenced signal values the
// same way GetNodeValue does and folds them into its IDFingerprint. Unlike
// IDFingerprint, this changes when a signal the node's pipeline reads is
// updated even though no Inputs edge names that signal directly — the
// fingerprint ChartState.Update must compare to detect a server→client
// variable's value actually moved (spec.md §4.7).
func (rt *Runtime) StateFingerprint(ctx context.Context, graph *vftaskgraph.Graph, nodeIndex int) (uint64, error) {
	node := graph.Nodes[nodeIndex]
	signalNames := node.Task.Pipeline.InputVars()
	signalValues := make(map[string]any, len(signalNames))
	for _, name := range signalNames {
		idx, ok := graph.OutputSignals[name]
		if !ok {
			continue
		}
		v, err := rt.GetNodeValue(ctx, graph, idx)
		if err != nil {
			return 0, err
		}
		scalar, err := v.AsScalar()
		if err != nil {
			return 0, err
		}
		signalValues[name] = scalar
	}
	return graph.StateFingerprint(nodeIndex, signalValues), nil
}

// MainOutput resolves the graph's designated main output node.
func (rt *Runtime) MainOutput(ctx context.Context, graph *vftaskgraph.Graph) (vfvalue.TaskValue, error) {
	return rt.GetNodeValue(ctx, graph, graph.MainOutput)
}

// Signal resolves the current value of a named output signal, erroring if
// no node publishes it.
func (rt *Runtime) Signal(ctx context.Context, graph *vftaskgraph.Graph, name string) (vfvalue.TaskValue, error) {
	idx, ok := graph.OutputSignals[name]
	if !ok {
		return vfvalue.TaskValue{}, vferrors.Newf(vferrors.KindPreTransform, "no such output signal %q", name)
	}
	return rt.GetNodeValue(ctx, graph, idx)
}

// estimateSize is a rough byte-budget estimate used to weigh a value
// against the cache's capacity (spec.md §4.5): scalars cost a small fixed
// amount, tables cost roughly 8 bytes per cell plus their parents' sizes
// (transforms like join-aggregate retain every input row).
func estimateSize(parents []vfvalue.TaskValue) int64 {
	var size int64 = 64
	for _, p := range parents {
		if p.IsTable() && p.Table != nil {
			size += int64(len(p.Table.Columns)) * int64(p.Table.NumRows()) * 8
		} else {
			size += 16
		}
	}
	return size
}
