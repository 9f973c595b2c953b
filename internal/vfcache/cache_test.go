package vfcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New(vfconfig.DefaultCacheConfig())
	var calls int32
	compute := func(ctx context.Context) (vfvalue.TaskValue, error) {
		atomic.AddInt32(&calls, 1)
		return vfvalue.NewScalar(42.0), nil
	}
	key := Key{IDFingerprint: 1, StateFingerprint: 1}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(context.Background(), key, 8, compute)
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		if v.Scalar.(float64) != 42.0 {
			t.Fatalf("expected 42, got %v", v.Scalar)
		}
	}
	if calls != 1 {
		t.Fatalf("expected compute called exactly once, got %d", calls)
	}
}

// TestGetOrComputeDedupsConcurrentMisses exercises spec.md §4.5's
// "cache idempotence" invariant: N concurrent misses on the same key must
// trigger exactly one compute.
func TestGetOrComputeDedupsConcurrentMisses(t *testing.T) {
	c := New(vfconfig.DefaultCacheConfig())
	var calls int32
	start := make(chan struct{})
	block := make(chan struct{})
	compute := func(ctx context.Context) (vfvalue.TaskValue, error) {
		atomic.AddInt32(&calls, 1)
		<-block
		return vfvalue.NewScalar(7.0), nil
	}
	key := Key{IDFingerprint: 2, StateFingerprint: 2}

	var wg sync.WaitGroup
	results := make([]vfvalue.TaskValue, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := c.GetOrCompute(context.Background(), key, 8, compute)
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
			results[i] = v
		}(i)
	}
	close(start)
	close(block)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected exactly 1 compute across concurrent misses, got %d", calls)
	}
	for i, v := range results {
		if v.Scalar.(float64) != 7.0 {
			t.Fatalf("result %d: expected 7.0, got %v", i, v.Scalar)
		}
	}
}

func TestInsertEvictsLeastRecentlyUsedOverCapacity(t *testing.T) {
	c := New(vfconfig.CacheConfig{MaxEntries: 2})
	ctx := context.Background()
	mk := func(v float64) Compute {
		return func(context.Context) (vfvalue.TaskValue, error) { return vfvalue.NewScalar(v), nil }
	}
	k1 := Key{IDFingerprint: 1}
	k2 := Key{IDFingerprint: 2}
	k3 := Key{IDFingerprint: 3}
	if _, err := c.GetOrCompute(ctx, k1, 1, mk(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCompute(ctx, k2, 1, mk(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCompute(ctx, k3, 1, mk(3)); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", c.Len())
	}
	if _, ok := c.Get(k1); ok {
		t.Fatalf("expected k1 to have been evicted as least-recently-used")
	}
}
