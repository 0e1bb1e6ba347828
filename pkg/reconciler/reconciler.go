package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpmebro911/panel/pkg/events"
	"github.com/helpmebro911/panel/pkg/log"
	"github.com/helpmebro911/panel/pkg/metrics"
	"github.com/helpmebro911/panel/pkg/types"
)

// DefaultStaleAfter is how long a connected node may go without a
// status report before it is marked errored
const DefaultStaleAfter = 3 * time.Minute

// Store is the subset of the node store the reconciler depends on
type Store interface {
	ListNodes(statuses ...types.NodeStatus) ([]*types.Node, error)
	UpdateStatusBatch(updates []types.StatusUpdate) error
}

// Reconciler converges recorded node state with policy: connected
// nodes that stopped reporting become errored, and nodes that crossed
// their data limit become limited. It never reverses a transition;
// recovery back to connected is the monitor's job.
type Reconciler struct {
	store      Store
	broker     *events.Broker
	staleAfter time.Duration
	logger     zerolog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(store Store, broker *events.Broker, staleAfter time.Duration) *Reconciler {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Reconciler{
		store:      store,
		broker:     broker,
		staleAfter: staleAfter,
		logger:     log.WithComponent("reconciler"),
	}
}

// Reconcile performs one reconciliation cycle at the given instant.
// All transitions decided in a cycle are committed as one status batch.
func (r *Reconciler) Reconcile(ctx context.Context, now time.Time) error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	nodes, err := r.store.ListNodes(
		types.NodeStatusConnecting,
		types.NodeStatusConnected,
		types.NodeStatusError,
	)
	if err != nil {
		return fmt.Errorf("listing nodes: %w", err)
	}

	var updates []types.StatusUpdate
	var staged []*events.Event

	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}

		if upd, ev := r.evaluate(node, now); upd != nil {
			updates = append(updates, *upd)
			staged = append(staged, ev)
		}
	}

	if len(updates) == 0 {
		return nil
	}

	if err := r.store.UpdateStatusBatch(updates); err != nil {
		return fmt.Errorf("committing status batch: %w", err)
	}

	// Events go out only after the batch committed.
	for _, ev := range staged {
		r.broker.Publish(ev)
	}

	r.logger.Info().Int("transitions", len(updates)).Msg("reconciliation cycle applied")
	return nil
}

// evaluate decides at most one transition for a node. Limit
// enforcement wins over staleness: a limited node is excluded from
// proxying either way, and the usage reset that releases it also
// clears the limited status.
func (r *Reconciler) evaluate(node *types.Node, now time.Time) (*types.StatusUpdate, *events.Event) {
	if node.Status != types.NodeStatusLimited && node.OverLimit() {
		r.logger.Warn().
			Uint64("node_id", node.ID).
			Uint64("used", node.UsedTraffic()).
			Uint64("limit", node.DataLimit).
			Msg("node crossed its data limit")
		return &types.StatusUpdate{
				NodeID:      node.ID,
				Status:      types.NodeStatusLimited,
				Message:     "data limit exceeded",
				CoreVersion: node.CoreVersion,
				NodeVersion: node.NodeVersion,
				Timestamp:   now,
			}, &events.Event{
				Type:    events.EventNodeLimited,
				NodeID:  node.ID,
				Message: "data limit exceeded",
			}
	}

	if node.Status == types.NodeStatusConnected && now.Sub(node.LastStatusChange) > r.staleAfter {
		msg := fmt.Sprintf("no status report for %s", now.Sub(node.LastStatusChange).Truncate(time.Second))
		r.logger.Warn().Uint64("node_id", node.ID).Msg("node went stale")
		return &types.StatusUpdate{
				NodeID:      node.ID,
				Status:      types.NodeStatusError,
				Message:     msg,
				CoreVersion: node.CoreVersion,
				NodeVersion: node.NodeVersion,
				Timestamp:   now,
			}, &events.Event{
				Type:    events.EventNodeError,
				NodeID:  node.ID,
				Message: msg,
			}
	}

	return nil, nil
}
