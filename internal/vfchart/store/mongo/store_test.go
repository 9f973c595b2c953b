package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion/vegafusion-go/internal/vfcache"
	"github.com/vegafusion/vegafusion-go/internal/vfchart"
	"github.com/vegafusion/vegafusion-go/internal/vfconfig"
	"github.com/vegafusion/vegafusion-go/internal/vfplanner"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime"
	"github.com/vegafusion/vegafusion-go/internal/vfruntime/engine/inmem"
)

// fakeClient is a hand-written Client double: the teacher's own store_test.go
// drives its mock via a codegen'd mocks package this module doesn't carry,
// so delegation is exercised here with a minimal recording fake instead.
type fakeClient struct {
	saved   map[string]map[string]vfchart.RootValue
	loadErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{saved: map[string]map[string]vfchart.RootValue{}}
}

func (f *fakeClient) Name() string                { return "fake" }
func (f *fakeClient) Ping(context.Context) error  { return nil }
func (f *fakeClient) SaveState(_ context.Context, chartID string, state map[string]vfchart.RootValue) error {
	f.saved[chartID] = state
	return nil
}
func (f *fakeClient) LoadState(_ context.Context, chartID string) (map[string]vfchart.RootValue, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	state, ok := f.saved[chartID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return state, nil
}
func (f *fakeClient) DeleteState(_ context.Context, chartID string) error {
	delete(f.saved, chartID)
	return nil
}

func TestNewStoreRequiresClient(t *testing.T) {
	_, err := NewStore(nil)
	require.EqualError(t, err, "client is required")
}

func newTestChart(t *testing.T) *vfchart.ChartState {
	t.Helper()
	rt := vfruntime.New(inmem.New(), vfcache.New(vfconfig.DefaultCacheConfig()), vfconfig.TzConfig{LocalTz: "UTC", DefaultInputTz: "UTC"})
	spec := &vfplanner.Spec{
		Signals: []vfplanner.SignalDef{{Name: "maxbins", Value: 10.0}},
	}
	cs, err := vfchart.TryNew(context.Background(), rt, spec, vfchart.Options{Planner: vfconfig.DefaultPlannerConfig()})
	require.NoError(t, err)
	return cs
}

func TestSaveDelegatesExportedStateToClient(t *testing.T) {
	fc := newFakeClient()
	store, err := NewStore(fc)
	require.NoError(t, err)

	cs := newTestChart(t)
	require.NoError(t, store.Save(context.Background(), "chart-1", cs))
	require.Contains(t, fc.saved, "chart-1")
	require.Equal(t, cs.ExportState(), fc.saved["chart-1"])
}

func TestRestoreAppliesLoadedStateToChart(t *testing.T) {
	fc := newFakeClient()
	store, err := NewStore(fc)
	require.NoError(t, err)

	source := newTestChart(t)
	require.NoError(t, store.Save(context.Background(), "chart-1", source))

	target := newTestChart(t)
	require.NoError(t, store.Restore(context.Background(), "chart-1", target))
	require.Equal(t, source.ExportState(), target.ExportState())
}

func TestDeleteDelegatesToClient(t *testing.T) {
	fc := newFakeClient()
	store, err := NewStore(fc)
	require.NoError(t, err)

	cs := newTestChart(t)
	require.NoError(t, store.Save(context.Background(), "chart-1", cs))
	require.NoError(t, store.Delete(context.Background(), "chart-1"))
	require.NotContains(t, fc.saved, "chart-1")
}
