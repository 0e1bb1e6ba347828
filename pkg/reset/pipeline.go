package reset

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpmebro911/panel/pkg/log"
	"github.com/helpmebro911/panel/pkg/metrics"
	"github.com/helpmebro911/panel/pkg/types"
)

// Store is the subset of the node store the reset pipeline depends on
type Store interface {
	ResetCandidates(now time.Time) ([]*types.Node, error)
	LastResetAt(id uint64) (time.Time, error)
	ResetUsageBatch(ids []uint64, now time.Time) ([]*types.Node, error)
}

// Pipeline performs one usage-reset evaluation over the fleet: select
// candidates from the store, decide due-ness per node, and commit all
// due resets as a single batch. It holds no state between ticks, so a
// failed tick is retried naturally on the next invocation.
type Pipeline struct {
	store  Store
	logger zerolog.Logger
}

// NewPipeline creates a new reset pipeline
func NewPipeline(store Store) *Pipeline {
	return &Pipeline{
		store:  store,
		logger: log.WithComponent("reset"),
	}
}

// Run executes one reset tick and returns the nodes actually reset.
// On a store error the whole tick fails with no partial mutation; the
// caller reports the failure and retries on its next tick. Notifying
// observers of resets is the caller's job, using the returned list.
func (p *Pipeline) Run(ctx context.Context, now time.Time) ([]*types.Node, error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ResetTickDuration)
		metrics.ResetTicksTotal.Inc()
	}()

	candidates, err := p.store.ResetCandidates(now)
	if err != nil {
		metrics.ResetTickFailuresTotal.Inc()
		return nil, fmt.Errorf("selecting reset candidates: %w", err)
	}

	var due []uint64
	for _, node := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sched := DecodeSchedule(node.ResetTime)
		if sched.Interval {
			// The store already applied the elapsed-days decision
			// for interval-mode candidates.
			due = append(due, node.ID)
			continue
		}

		lastReset, err := p.store.LastResetAt(node.ID)
		if err != nil {
			metrics.ResetTickFailuresTotal.Inc()
			return nil, fmt.Errorf("resolving last reset for node %d: %w", node.ID, err)
		}

		if IsDue(node.ResetStrategy, sched, lastReset, now) {
			due = append(due, node.ID)
		}
	}

	if len(due) == 0 {
		p.logger.Debug().Int("candidates", len(candidates)).Msg("no nodes due for usage reset")
		return nil, nil
	}

	reset, err := p.store.ResetUsageBatch(due, now)
	if err != nil {
		metrics.ResetTickFailuresTotal.Inc()
		return nil, fmt.Errorf("committing usage reset batch: %w", err)
	}

	metrics.UsageResetsTotal.Add(float64(len(reset)))
	p.logger.Info().
		Int("candidates", len(candidates)).
		Int("reset", len(reset)).
		Msg("usage reset tick complete")

	return reset, nil
}
