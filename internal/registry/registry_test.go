package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/promsink/internal/models"
)

func counter(name string, kind models.UpdateKind, value float64) *models.Metric {
	return &models.Metric{Name: name, Kind: kind, Value: models.Counter{Value: value}}
}

func names(metrics []models.Metric) []string {
	out := make([]string, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, m.Name)
	}
	return out
}

func TestRegistry_MergeAbsolute_LastValueWins(t *testing.T) {
	r := New(time.Minute)

	require.NoError(t, r.Merge(counter("hits", models.Absolute, 10)))
	require.NoError(t, r.Merge(counter("hits", models.Absolute, 3)))

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.Counter{Value: 3}, snapshot[0].Value)
}

func TestRegistry_MergeIncremental_CounterSums(t *testing.T) {
	r := New(time.Minute)

	// delivery batching must not matter: the fold is associative
	for _, delta := range []float64{1, 2, 3, 4} {
		require.NoError(t, r.Merge(counter("hits", models.Incremental, delta)))
	}

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.Counter{Value: 10}, snapshot[0].Value)
	assert.Equal(t, models.Absolute, snapshot[0].Kind)
}

func TestRegistry_IterationOrder(t *testing.T) {
	r := New(time.Minute)

	require.NoError(t, r.Merge(counter("a", models.Incremental, 1)))
	require.NoError(t, r.Merge(counter("b", models.Incremental, 1)))
	require.NoError(t, r.Merge(counter("c", models.Incremental, 1)))
	assert.Equal(t, []string{"a", "b", "c"}, names(r.Snapshot()))

	// absolute replacement keeps the original position
	require.NoError(t, r.Merge(counter("a", models.Absolute, 5)))
	assert.Equal(t, []string{"a", "b", "c"}, names(r.Snapshot()))

	// incremental merge moves the entry to the end
	require.NoError(t, r.Merge(counter("a", models.Incremental, 1)))
	assert.Equal(t, []string{"b", "c", "a"}, names(r.Snapshot()))
}

func TestRegistry_MergeDistribution_AppendsSamples(t *testing.T) {
	r := New(time.Minute)

	dist := func(v float64) *models.Metric {
		return &models.Metric{
			Name: "requests",
			Kind: models.Incremental,
			Value: models.Distribution{
				Values:      []float64{v},
				SampleRates: []uint64{1},
				Statistic:   models.StatisticHistogram,
			},
		}
	}

	require.NoError(t, r.Merge(dist(1)))
	require.NoError(t, r.Merge(dist(2)))

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, []float64{1, 2}, snapshot[0].Value.(models.Distribution).Values)
}

func TestRegistry_MergeIncremental_NotFoldable(t *testing.T) {
	r := New(time.Minute)

	require.NoError(t, r.Merge(counter("hits", models.Incremental, 1)))

	err := r.Merge(&models.Metric{Name: "hits", Kind: models.Incremental, Value: models.Gauge{Value: 1}})
	assert.ErrorIs(t, err, models.ErrNotFoldable)

	// the store stays consistent after the contract violation
	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, models.Counter{Value: 1}, snapshot[0].Value)
}

func setUpdate(member string) *models.Metric {
	return &models.Metric{
		Name: "unique_users",
		Kind: models.Incremental,
		Value: models.Set{Values: map[string]struct{}{
			member: {},
		}},
	}
}

func TestRegistry_SetMerge_UnionsMembers(t *testing.T) {
	r := New(time.Minute)

	require.NoError(t, r.Merge(setUpdate("alice")))
	require.NoError(t, r.Merge(setUpdate("bob")))
	require.NoError(t, r.Merge(setUpdate("alice")))

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Len(t, snapshot[0].Value.(models.Set).Values, 2)
}

func TestRegistry_SetMerge_ResetsAfterFlushPeriod(t *testing.T) {
	r := New(time.Minute)

	require.NoError(t, r.Merge(setUpdate("alice")))
	require.NoError(t, r.Merge(setUpdate("bob")))

	// simulate the flush period having elapsed
	r.mu.Lock()
	r.lastReset = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()

	require.NoError(t, r.Merge(setUpdate("carol")))

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)
	values := snapshot[0].Value.(models.Set).Values
	assert.Len(t, values, 1)
	assert.Contains(t, values, "carol")

	// the merge advanced the global reset timestamp
	assert.False(t, r.Expired(time.Now()))
}

func TestRegistry_Expired(t *testing.T) {
	r := New(time.Minute)

	assert.False(t, r.Expired(time.Now()))
	assert.True(t, r.Expired(time.Now().Add(2*time.Minute)))
}

func TestRegistry_Snapshot_IsolatedFromLaterMerges(t *testing.T) {
	r := New(time.Minute)

	require.NoError(t, r.Merge(setUpdate("alice")))
	snapshot := r.Snapshot()
	require.NoError(t, r.Merge(setUpdate("bob")))

	assert.Len(t, snapshot[0].Value.(models.Set).Values, 1)
}
