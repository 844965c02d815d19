package infra

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

func TestMemoryStatsStore_CountsByRoute(t *testing.T) {
	s := NewMemoryStatsStore()
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Method: "GET", Path: "/x"}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: false, Method: "GET", Path: "/x"}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "b", Allowed: true, Path: "/y"}))

	assert.Equal(t, Counters{Admitted: 2, Rejected: 1}, s.Total())

	snap := s.Snapshot()
	assert.Equal(t, Counters{Admitted: 1, Rejected: 1}, snap.ByRoute["GET /x"])
	assert.Equal(t, Counters{Admitted: 1}, snap.ByRoute["/y"])
	assert.Nil(t, snap.ByKey, "keys are not tracked by default")
}

func TestMemoryStatsStore_SnapshotIsACopy(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Path: "/"})
	snap := s.Snapshot()
	snap.ByKey["a"] = Counters{Admitted: 100}

	assert.Equal(t, Counters{Admitted: 1}, s.Snapshot().ByKey["a"])
}

func TestMemoryStatsStore_DistinctPathsStayBounded(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true), WithMaxEntries(10))
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		path := fmt.Sprintf("/a%d", i)
		require.NoError(t, s.Record(ctx, domain.StatsEvent{
			Key:     domain.Key("10.0.0.1:" + path),
			Allowed: true,
			Method:  "GET",
			Path:    path,
		}))
	}

	snap := s.Snapshot()
	assert.Len(t, snap.ByRoute, 11)
	assert.Len(t, snap.ByKey, 11)
	assert.Equal(t, Counters{Admitted: 490}, snap.ByRoute[OverflowBucket])
	assert.Equal(t, Counters{Admitted: 1}, snap.ByRoute["GET /a0"])
	assert.Equal(t, Counters{Admitted: 500}, snap.Total)

	// rota já conhecida continua sendo contada no próprio nome
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Allowed: false, Method: "GET", Path: "/a3"}))
	assert.Equal(t, Counters{Admitted: 1, Rejected: 1}, s.Snapshot().ByRoute["GET /a3"])
}

func TestMemoryStatsStore_MaxEntriesOption(t *testing.T) {
	assert.Equal(t, DefaultMaxStatsEntries, NewMemoryStatsStore().maxEntries)
	assert.Equal(t, DefaultMaxStatsEntries, NewMemoryStatsStore(WithMaxEntries(0)).maxEntries)
	assert.Equal(t, 3, NewMemoryStatsStore(WithMaxEntries(3)).maxEntries)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name && len(mf.GetMetric()) == 1 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestPrometheusStatsStore_CountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusStatsStore(reg)
	require.NoError(t, err)

	ctx := context.Background()
	_ = s.Record(ctx, domain.StatsEvent{Allowed: true, Remaining: 1})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: true, Remaining: 0})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: false})

	assert.Equal(t, 2.0, counterValue(t, reg, "ratelimit_decisions_total", "admitted"))
	assert.Equal(t, 1.0, counterValue(t, reg, "ratelimit_decisions_total", "rejected"))
}

func TestPrometheusStatsStore_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusStatsStore(reg)
	require.NoError(t, err)

	_, err = NewPrometheusStatsStore(reg)
	assert.Error(t, err)
}

func TestRegisterWindowStoreCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := NewSlidingWindowStore(3, 1500*time.Millisecond)
	require.NoError(t, RegisterWindowStoreCollectors(reg, store))

	store.Allow("a", at(0))
	store.Allow("b", at(0))

	assert.Equal(t, 2.0, gaugeValue(t, reg, "ratelimit_tracked_keys"))
	assert.Equal(t, 3.0, gaugeValue(t, reg, "ratelimit_limit"))
	assert.Equal(t, 1.5, gaugeValue(t, reg, "ratelimit_window_seconds"))
}

type recordingStats struct {
	events []domain.StatsEvent
	err    error
}

func (r *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestMultiStatsStore_FansOutAndJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	a := &recordingStats{err: errA}
	b := &recordingStats{}

	m := NewMultiStatsStore(a, nil, b)
	err := m.Record(context.Background(), domain.StatsEvent{Key: "k"})

	assert.ErrorIs(t, err, errA)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestNewMultiStatsStore_Collapses(t *testing.T) {
	assert.Nil(t, NewMultiStatsStore())
	assert.Nil(t, NewMultiStatsStore(nil))

	only := &recordingStats{}
	assert.Same(t, only, NewMultiStatsStore(only))
}
