package reset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmebro911/panel/pkg/types"
)

// fakeStore implements Store with canned answers for pipeline tests
type fakeStore struct {
	candidates    []*types.Node
	candidatesErr error
	lastResets    map[uint64]time.Time
	lastResetErr  error
	batchErr      error

	batchCalls [][]uint64
}

func (f *fakeStore) ResetCandidates(now time.Time) ([]*types.Node, error) {
	return f.candidates, f.candidatesErr
}

func (f *fakeStore) LastResetAt(id uint64) (time.Time, error) {
	if f.lastResetErr != nil {
		return time.Time{}, f.lastResetErr
	}
	return f.lastResets[id], nil
}

func (f *fakeStore) ResetUsageBatch(ids []uint64, now time.Time) ([]*types.Node, error) {
	f.batchCalls = append(f.batchCalls, ids)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	nodes := make([]*types.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, &types.Node{ID: id, Status: types.NodeStatusConnecting})
	}
	return nodes, nil
}

func candidate(id uint64, strategy types.ResetStrategy, resetTime int64) *types.Node {
	return &types.Node{
		ID:            id,
		Name:          "node",
		Status:        types.NodeStatusConnected,
		ResetStrategy: strategy,
		ResetTime:     resetTime,
	}
}

func TestPipelineRun_MixedDueAndNotDue(t *testing.T) {
	now := ts(2024, time.June, 15, 1, 0, 0)

	store := &fakeStore{
		candidates: []*types.Node{
			// Interval candidates are pre-filtered by the store.
			candidate(1, types.ResetStrategyDay, -1),
			// Absolute daily at 00:30: last reset yesterday, due.
			candidate(2, types.ResetStrategyDay, 1800),
			// Absolute daily at 02:00: not reached yet.
			candidate(3, types.ResetStrategyDay, 7200),
		},
		lastResets: map[uint64]time.Time{
			2: ts(2024, time.June, 14, 0, 30, 0),
			3: ts(2024, time.June, 14, 2, 0, 0),
		},
	}

	reset, err := NewPipeline(store).Run(context.Background(), now)
	require.NoError(t, err)

	require.Len(t, store.batchCalls, 1)
	assert.Equal(t, []uint64{1, 2}, store.batchCalls[0])
	require.Len(t, reset, 2)
}

func TestPipelineRun_NothingDue(t *testing.T) {
	now := ts(2024, time.June, 15, 1, 0, 0)

	store := &fakeStore{
		candidates: []*types.Node{
			candidate(7, types.ResetStrategyDay, 7200),
		},
		lastResets: map[uint64]time.Time{
			7: ts(2024, time.June, 14, 2, 0, 0),
		},
	}

	reset, err := NewPipeline(store).Run(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, reset)
	assert.Empty(t, store.batchCalls, "no batch commit when nothing is due")
}

func TestPipelineRun_IdempotentWithinWindow(t *testing.T) {
	// Two ticks inside the same schedule window: the first resets the
	// node, the second sees the updated last-reset time and skips it.
	firstTick := ts(2024, time.June, 15, 1, 0, 0)
	secondTick := ts(2024, time.June, 15, 1, 5, 0)

	store := &fakeStore{
		candidates: []*types.Node{
			candidate(4, types.ResetStrategyDay, 1800),
		},
		lastResets: map[uint64]time.Time{
			4: ts(2024, time.June, 14, 0, 30, 0),
		},
	}
	p := NewPipeline(store)

	reset, err := p.Run(context.Background(), firstTick)
	require.NoError(t, err)
	require.Len(t, reset, 1)

	store.lastResets[4] = firstTick

	reset, err = p.Run(context.Background(), secondTick)
	require.NoError(t, err)
	assert.Empty(t, reset)
	assert.Len(t, store.batchCalls, 1)
}

func TestPipelineRun_CandidateSelectionError(t *testing.T) {
	store := &fakeStore{candidatesErr: errors.New("db closed")}

	reset, err := NewPipeline(store).Run(context.Background(), time.Now().UTC())
	assert.Error(t, err)
	assert.Nil(t, reset)
	assert.Empty(t, store.batchCalls)
}

func TestPipelineRun_BatchErrorFailsWholeTick(t *testing.T) {
	store := &fakeStore{
		candidates: []*types.Node{candidate(1, types.ResetStrategyDay, -1)},
		batchErr:   errors.New("tx rolled back"),
	}

	reset, err := NewPipeline(store).Run(context.Background(), time.Now().UTC())
	assert.Error(t, err)
	assert.Nil(t, reset)
}

func TestPipelineRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{
		candidates: []*types.Node{candidate(1, types.ResetStrategyDay, -1)},
	}

	_, err := NewPipeline(store).Run(ctx, time.Now().UTC())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.batchCalls)
}
