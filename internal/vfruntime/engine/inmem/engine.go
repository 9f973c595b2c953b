// Package inmem provides the default, non-durable Engine: it runs each
// node's task in-process on its own goroutine and waits for it, so ctx
// cancellation can still win a race, suitable for local
// development, tests, and single-process deployments.
//
// Grounded on the teacher's runtime/agent/engine/inmem package, which plays
// the identical role for its own pluggable Engine interface.
package inmem

import (
	"context"
	"sync"

	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

type eng struct{}

// New returns an Engine that evaluates every node in-process.
func New() engine.Engine { return &eng{} }

type future struct {
	mu     sync.Mutex
	ready  chan struct{}
	result vfvalue.TaskValue
	err    error
}

func (e *eng) EvaluateNode(ctx context.Context, req engine.NodeRequest) (vfvalue.TaskValue, error) {
	f := &future{ready: make(chan struct{})}
	go func() {
		defer close(f.ready)
		res, err := engine.EvaluateTask(req)
		f.mu.Lock()
		f.result, f.err = res, err
		f.mu.Unlock()
	}()
	select {
	case <-ctx.Done():
		return vfvalue.TaskValue{}, ctx.Err()
	case <-f.ready:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.result, f.err
	}
}
