package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmebro911/panel/pkg/events"
	"github.com/helpmebro911/panel/pkg/health"
	"github.com/helpmebro911/panel/pkg/types"
)

type fakeStore struct {
	nodes   []*types.Node
	batches [][]types.StatusUpdate
}

func (f *fakeStore) ListNodes(statuses ...types.NodeStatus) ([]*types.Node, error) {
	return f.nodes, nil
}

func (f *fakeStore) UpdateStatusBatch(updates []types.StatusUpdate) error {
	f.batches = append(f.batches, updates)
	return nil
}

// scriptedChecker returns canned probe results per node id
type scriptedChecker struct {
	healthy map[uint64]bool
}

type cannedChecker struct {
	result health.Result
}

func (c cannedChecker) Check(ctx context.Context) health.Result { return c.result }
func (c cannedChecker) Type() health.CheckType                  { return health.CheckTypeTCP }

func (s *scriptedChecker) fn(node *types.Node) health.Checker {
	if s.healthy[node.ID] {
		return cannedChecker{result: health.Result{Healthy: true, CheckedAt: time.Now()}}
	}
	return cannedChecker{result: health.Result{
		Healthy:   false,
		Message:   "connection refused",
		CheckedAt: time.Now(),
	}}
}

func newMonitor(t *testing.T, store *fakeStore, script *scriptedChecker, retries int) *Monitor {
	t.Helper()
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	config := health.DefaultConfig()
	config.Retries = retries
	config.Timeout = time.Second
	return NewMonitor(store, broker, config).WithChecker(script.fn)
}

func TestSweep_ConnectingNodeBecomesConnected(t *testing.T) {
	store := &fakeStore{
		nodes: []*types.Node{{ID: 1, Status: types.NodeStatusConnecting}},
	}
	m := newMonitor(t, store, &scriptedChecker{healthy: map[uint64]bool{1: true}}, 3)

	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.Sweep(context.Background(), now))

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 1)
	assert.Equal(t, types.NodeStatusConnected, store.batches[0][0].Status)
	assert.Equal(t, now, store.batches[0][0].Timestamp)
}

func TestSweep_ErroredNodeRecovers(t *testing.T) {
	store := &fakeStore{
		nodes: []*types.Node{{ID: 1, Status: types.NodeStatusError}},
	}
	m := newMonitor(t, store, &scriptedChecker{healthy: map[uint64]bool{1: true}}, 3)

	require.NoError(t, m.Sweep(context.Background(), time.Now().UTC()))
	require.Len(t, store.batches, 1)
	assert.Equal(t, types.NodeStatusConnected, store.batches[0][0].Status)
}

func TestSweep_FailuresBelowThresholdDontFlap(t *testing.T) {
	store := &fakeStore{
		nodes: []*types.Node{{ID: 1, Status: types.NodeStatusConnected}},
	}
	m := newMonitor(t, store, &scriptedChecker{healthy: map[uint64]bool{}}, 3)

	// Two failing sweeps: below the retry threshold, the node stays
	// connected and only heartbeat refreshes are withheld.
	require.NoError(t, m.Sweep(context.Background(), time.Now().UTC()))
	require.NoError(t, m.Sweep(context.Background(), time.Now().UTC()))
	assert.Empty(t, store.batches)

	// Third consecutive failure crosses the threshold.
	require.NoError(t, m.Sweep(context.Background(), time.Now().UTC()))
	require.Len(t, store.batches, 1)
	assert.Equal(t, types.NodeStatusError, store.batches[0][0].Status)
	assert.Equal(t, "connection refused", store.batches[0][0].Message)
}

func TestSweep_HealthyConnectedNodeGetsHeartbeat(t *testing.T) {
	last := time.Date(2024, time.June, 15, 11, 0, 0, 0, time.UTC)
	store := &fakeStore{
		nodes: []*types.Node{
			{ID: 1, Status: types.NodeStatusConnected, LastStatusChange: last, CoreVersion: "1.8.1"},
		},
	}
	m := newMonitor(t, store, &scriptedChecker{healthy: map[uint64]bool{1: true}}, 3)

	now := last.Add(time.Minute)
	require.NoError(t, m.Sweep(context.Background(), now))

	require.Len(t, store.batches, 1)
	upd := store.batches[0][0]
	assert.Equal(t, types.NodeStatusConnected, upd.Status)
	assert.Equal(t, now, upd.Timestamp)
	assert.Equal(t, "1.8.1", upd.CoreVersion, "heartbeat preserves reported versions")
}

func TestSweep_PrunesDepartedNodes(t *testing.T) {
	store := &fakeStore{
		nodes: []*types.Node{{ID: 1, Status: types.NodeStatusConnected}},
	}
	script := &scriptedChecker{healthy: map[uint64]bool{}}
	m := newMonitor(t, store, script, 1)

	require.NoError(t, m.Sweep(context.Background(), time.Now().UTC()))
	assert.Len(t, m.statuses, 1)

	store.nodes = nil
	require.NoError(t, m.Sweep(context.Background(), time.Now().UTC()))
	assert.Empty(t, m.statuses, "history for removed nodes is dropped")
}
