package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmebro911/panel/pkg/security"
	"github.com/helpmebro911/panel/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreate(t *testing.T, store *BoltStore, node *types.Node) *types.Node {
	t.Helper()
	require.NoError(t, store.CreateNode(node))
	return node
}

func TestCreateNode_Defaults(t *testing.T) {
	store := newTestStore(t)

	node := mustCreate(t, store, &types.Node{Name: "edge-1", Address: "10.0.0.1", Port: 62050})
	assert.NotZero(t, node.ID)

	got, err := store.GetNode(node.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusConnecting, got.Status)
	assert.Equal(t, types.ResetStrategyNoReset, got.ResetStrategy)
	assert.Equal(t, int64(-1), got.ResetTime)
	assert.False(t, got.CreatedAt.IsZero())

	byName, err := store.GetNodeByName("edge-1")
	require.NoError(t, err)
	assert.Equal(t, node.ID, byName.ID)
}

func TestCreateNode_DuplicateName(t *testing.T) {
	store := newTestStore(t)

	mustCreate(t, store, &types.Node{Name: "edge-1"})
	err := store.CreateNode(&types.Node{Name: "edge-1"})
	assert.Error(t, err)
}

func TestGetNode_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetNode(42)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = store.GetNodeByName("ghost")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestListNodes_StatusFilter(t *testing.T) {
	store := newTestStore(t)

	mustCreate(t, store, &types.Node{Name: "a", Status: types.NodeStatusConnected})
	mustCreate(t, store, &types.Node{Name: "b", Status: types.NodeStatusDisabled})
	mustCreate(t, store, &types.Node{Name: "c", Status: types.NodeStatusLimited})

	all, err := store.ListNodes()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := store.ListNodes(types.NodeStatusConnected, types.NodeStatusLimited)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestResetUsage_Transactional(t *testing.T) {
	store := newTestStore(t)

	node := mustCreate(t, store, &types.Node{
		Name:   "edge-1",
		Status: types.NodeStatusLimited,
	})
	_, err := store.AddUsage(node.ID, 1000, 2000)
	require.NoError(t, err)

	resetAt := time.Date(2024, time.June, 15, 1, 0, 0, 0, time.UTC)
	got, err := store.ResetUsage(node.ID, resetAt)
	require.NoError(t, err)

	// Counters are zeroed and the limited node is released.
	assert.Zero(t, got.Uplink)
	assert.Zero(t, got.Downlink)
	assert.Equal(t, types.NodeStatusConnecting, got.Status)

	// The audit row holds the pre-reset totals.
	logs, err := store.ResetLogs(node.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(1000), logs[0].Uplink)
	assert.Equal(t, uint64(2000), logs[0].Downlink)
	assert.Equal(t, resetAt, logs[0].CreatedAt)

	last, err := store.LastResetAt(node.ID)
	require.NoError(t, err)
	assert.Equal(t, resetAt, last)
}

func TestResetUsage_ConnectedStatusUnchanged(t *testing.T) {
	store := newTestStore(t)

	node := mustCreate(t, store, &types.Node{
		Name:   "edge-1",
		Status: types.NodeStatusConnected,
	})

	got, err := store.ResetUsage(node.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusConnected, got.Status)
}

func TestLastResetAt_FallsBackToCreatedAt(t *testing.T) {
	store := newTestStore(t)

	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	node := mustCreate(t, store, &types.Node{Name: "edge-1", CreatedAt: created})

	last, err := store.LastResetAt(node.ID)
	require.NoError(t, err)
	assert.Equal(t, created, last)
}

func TestResetUsageBatch_SkipsDeletedNodes(t *testing.T) {
	store := newTestStore(t)

	a := mustCreate(t, store, &types.Node{Name: "a"})
	b := mustCreate(t, store, &types.Node{Name: "b"})
	_, err := store.AddUsage(a.ID, 10, 10)
	require.NoError(t, err)
	_, err = store.AddUsage(b.ID, 20, 20)
	require.NoError(t, err)

	reset, err := store.ResetUsageBatch([]uint64{a.ID, 999, b.ID}, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, reset, 2)
	for _, node := range reset {
		assert.Zero(t, node.Uplink)
		assert.Zero(t, node.Downlink)
	}
}

func TestResetCandidates(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	// Interval-mode, last reset (creation) two days ago: due.
	dueInterval := mustCreate(t, store, &types.Node{
		Name:          "interval-due",
		Status:        types.NodeStatusConnected,
		ResetStrategy: types.ResetStrategyDay,
		ResetTime:     -1,
		CreatedAt:     now.AddDate(0, 0, -2),
	})

	// Interval-mode, created today: filtered out by the store.
	mustCreate(t, store, &types.Node{
		Name:          "interval-fresh",
		Status:        types.NodeStatusConnected,
		ResetStrategy: types.ResetStrategyWeek,
		ResetTime:     -1,
		CreatedAt:     now.Add(-time.Hour),
	})

	// Absolute-mode nodes pass through for in-process evaluation.
	absolute := mustCreate(t, store, &types.Node{
		Name:          "absolute",
		Status:        types.NodeStatusLimited,
		ResetStrategy: types.ResetStrategyDay,
		ResetTime:     3600,
		CreatedAt:     now.AddDate(0, 0, -10),
	})

	// Disabled nodes and no_reset nodes are never candidates.
	mustCreate(t, store, &types.Node{
		Name:          "disabled",
		Status:        types.NodeStatusDisabled,
		ResetStrategy: types.ResetStrategyDay,
		ResetTime:     -1,
		CreatedAt:     now.AddDate(0, 0, -30),
	})
	mustCreate(t, store, &types.Node{
		Name:          "never",
		Status:        types.NodeStatusConnected,
		ResetStrategy: types.ResetStrategyNoReset,
		ResetTime:     -1,
	})

	candidates, err := store.ResetCandidates(now)
	require.NoError(t, err)

	ids := make([]uint64, 0, len(candidates))
	for _, node := range candidates {
		ids = append(ids, node.ID)
	}
	assert.ElementsMatch(t, []uint64{dueInterval.ID, absolute.ID}, ids)
}

func TestResetCandidates_UsesLastResetNotCreation(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	// Created long ago but reset this morning: the projection wins.
	node := mustCreate(t, store, &types.Node{
		Name:          "edge-1",
		Status:        types.NodeStatusConnected,
		ResetStrategy: types.ResetStrategyDay,
		ResetTime:     -1,
		CreatedAt:     now.AddDate(0, 0, -30),
	})
	_, err := store.ResetUsage(node.ID, now.Add(-2*time.Hour))
	require.NoError(t, err)

	candidates, err := store.ResetCandidates(now)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestPurgeResetLogs(t *testing.T) {
	store := newTestStore(t)

	node := mustCreate(t, store, &types.Node{Name: "edge-1"})
	old := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.ResetUsage(node.ID, old)
	require.NoError(t, err)
	_, err = store.ResetUsage(node.ID, recent)
	require.NoError(t, err)

	purged, err := store.PurgeResetLogs(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	logs, err := store.ResetLogs(node.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, recent, logs[0].CreatedAt)
}

func TestUpdateStatusBatch(t *testing.T) {
	store := newTestStore(t)

	a := mustCreate(t, store, &types.Node{Name: "a"})
	b := mustCreate(t, store, &types.Node{Name: "b"})

	stamp := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	err := store.UpdateStatusBatch([]types.StatusUpdate{
		{NodeID: a.ID, Status: types.NodeStatusConnected, CoreVersion: "1.8.1", NodeVersion: "0.3.0", Timestamp: stamp},
		{NodeID: 999, Status: types.NodeStatusConnected}, // deleted node, skipped
		{NodeID: b.ID, Status: types.NodeStatusError, Message: "probe timeout"},
	})
	require.NoError(t, err)

	got, err := store.GetNode(a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusConnected, got.Status)
	assert.Equal(t, "1.8.1", got.CoreVersion)
	assert.Equal(t, stamp, got.LastStatusChange)

	got, err = store.GetNode(b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusError, got.Status)
	assert.Equal(t, "probe timeout", got.Message)
	assert.False(t, got.LastStatusChange.IsZero(), "zero timestamp defaults to now")
}

func TestAddUsage_Accumulates(t *testing.T) {
	store := newTestStore(t)

	node := mustCreate(t, store, &types.Node{Name: "edge-1", DataLimit: 5000})
	_, err := store.AddUsage(node.ID, 1000, 1500)
	require.NoError(t, err)
	got, err := store.AddUsage(node.ID, 500, 500)
	require.NoError(t, err)

	assert.Equal(t, uint64(1500), got.Uplink)
	assert.Equal(t, uint64(2000), got.Downlink)
	assert.Equal(t, uint64(3500), got.UsedTraffic())
	assert.False(t, got.OverLimit())
}

func TestNodeStats_RangeQuery(t *testing.T) {
	store := newTestStore(t)

	node := mustCreate(t, store, &types.Node{Name: "edge-1"})
	base := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendNodeStat(&types.NodeStat{
			NodeID:    node.ID,
			CPUUsage:  float64(10 * i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	stats, err := store.NodeStats(node.ID, base.Add(30*time.Minute), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Len(t, stats, 2)
}

func TestCAData_Roundtrip(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CAData()
	assert.ErrorIs(t, err, security.ErrCANotFound)

	require.NoError(t, store.SaveCAData([]byte("serialized authority")))
	data, err := store.CAData()
	require.NoError(t, err)
	assert.Equal(t, []byte("serialized authority"), data)
}

// TestConcurrentUsageAndReset interleaves usage accumulation, status
// batches, and resets to exercise the store's transaction isolation.
func TestConcurrentUsageAndReset(t *testing.T) {
	store := newTestStore(t)

	node := mustCreate(t, store, &types.Node{
		Name:   "edge-1",
		Status: types.NodeStatusConnected,
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := store.AddUsage(node.ID, 10, 10); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			if _, err := store.ResetUsage(node.ID, time.Now().UTC()); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			err := store.UpdateStatusBatch([]types.StatusUpdate{
				{NodeID: node.ID, Status: types.NodeStatusConnected},
			})
			if err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()

	// Every write serialized: counters plus audited totals account for
	// all accumulated usage.
	got, err := store.GetNode(node.ID)
	require.NoError(t, err)
	logs, err := store.ResetLogs(node.ID)
	require.NoError(t, err)

	var audited uint64
	for _, row := range logs {
		audited += row.Uplink
	}
	assert.Equal(t, uint64(4*25*10), got.Uplink+audited)
}
