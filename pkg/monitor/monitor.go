package monitor

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpmebro911/panel/pkg/events"
	"github.com/helpmebro911/panel/pkg/health"
	"github.com/helpmebro911/panel/pkg/log"
	"github.com/helpmebro911/panel/pkg/metrics"
	"github.com/helpmebro911/panel/pkg/types"
)

// DefaultConcurrency bounds how many nodes are probed at once
const DefaultConcurrency = 16

// Store is the subset of the node store the monitor depends on
type Store interface {
	ListNodes(statuses ...types.NodeStatus) ([]*types.Node, error)
	UpdateStatusBatch(updates []types.StatusUpdate) error
}

// CheckerFunc builds the prober for a node. The default dials the
// node's address and port over TCP; tests swap it out.
type CheckerFunc func(node *types.Node) health.Checker

// Monitor probes every active node each sweep and converges node
// status with reachability: a reachable node in connecting or error
// becomes connected, and a node failing enough consecutive probes
// becomes errored. Probe history is kept between sweeps so a single
// dropped packet does not flap the fleet.
type Monitor struct {
	store   Store
	broker  *events.Broker
	checker CheckerFunc
	config  health.Config

	mu       sync.Mutex
	statuses map[uint64]*health.Status

	concurrency int
	logger      zerolog.Logger
}

// NewMonitor creates a new monitor
func NewMonitor(store Store, broker *events.Broker, config health.Config) *Monitor {
	return &Monitor{
		store:       store,
		broker:      broker,
		checker:     tcpChecker,
		config:      config,
		statuses:    make(map[uint64]*health.Status),
		concurrency: DefaultConcurrency,
		logger:      log.WithComponent("monitor"),
	}
}

// WithChecker overrides the prober construction
func (m *Monitor) WithChecker(fn CheckerFunc) *Monitor {
	m.checker = fn
	return m
}

func tcpChecker(node *types.Node) health.Checker {
	addr := net.JoinHostPort(node.Address, strconv.Itoa(node.Port))
	return health.NewTCPChecker(addr)
}

// Sweep probes the active fleet once and commits all resulting status
// transitions as a single batch. Limited and disabled nodes are not
// probed; the usage-reset pipeline and the operator own those states.
func (m *Monitor) Sweep(ctx context.Context, now time.Time) error {
	nodes, err := m.store.ListNodes(
		types.NodeStatusConnecting,
		types.NodeStatusConnected,
		types.NodeStatusError,
	)
	if err != nil {
		return fmt.Errorf("listing nodes: %w", err)
	}

	m.prune(nodes)
	results := m.probeAll(ctx, nodes)

	var updates []types.StatusUpdate
	var staged []*events.Event
	for _, node := range nodes {
		result, ok := results[node.ID]
		if !ok {
			continue // sweep cancelled mid-flight
		}

		status := m.track(node.ID, result)
		if upd, ev := transition(node, status, result, now); upd != nil {
			updates = append(updates, *upd)
			staged = append(staged, ev)
		}
	}

	if len(updates) == 0 {
		return nil
	}

	if err := m.store.UpdateStatusBatch(updates); err != nil {
		return fmt.Errorf("committing status batch: %w", err)
	}
	for _, ev := range staged {
		if ev != nil {
			m.broker.Publish(ev)
		}
	}
	metrics.StatusUpdatesTotal.Add(float64(len(updates)))

	m.logger.Debug().
		Int("probed", len(nodes)).
		Int("updates", len(updates)).
		Msg("probe sweep applied")
	return nil
}

// probeAll runs the per-node probes with bounded concurrency
func (m *Monitor) probeAll(ctx context.Context, nodes []*types.Node) map[uint64]health.Result {
	results := make(map[uint64]health.Result, len(nodes))
	var resMu sync.Mutex

	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup
	for _, node := range nodes {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(node *types.Node) {
			defer wg.Done()
			defer func() { <-sem }()

			checkCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
			defer cancel()

			result := m.checker(node).Check(checkCtx)
			if result.Healthy {
				metrics.ProbesTotal.WithLabelValues("success").Inc()
			} else {
				metrics.ProbesTotal.WithLabelValues("failure").Inc()
			}

			resMu.Lock()
			results[node.ID] = result
			resMu.Unlock()
		}(node)
	}
	wg.Wait()
	return results
}

// track folds a probe result into the node's persistent probe history
func (m *Monitor) track(id uint64, result health.Result) *health.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[id]
	if !ok {
		status = health.NewStatus()
		m.statuses[id] = status
	}
	status.Update(result, m.config)
	return status
}

// prune drops probe history for nodes that left the active set
func (m *Monitor) prune(nodes []*types.Node) {
	active := make(map[uint64]bool, len(nodes))
	for _, node := range nodes {
		active[node.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.statuses {
		if !active[id] {
			delete(m.statuses, id)
		}
	}
}

// transition maps probe history onto a status row. A healthy probe of
// an already-connected node yields a heartbeat refresh (same status,
// new timestamp, no event) so the reconciler's staleness rule only
// fires when probes actually stop succeeding.
func transition(node *types.Node, status *health.Status, result health.Result, now time.Time) (*types.StatusUpdate, *events.Event) {
	if result.Healthy && node.Status == types.NodeStatusConnected {
		return &types.StatusUpdate{
			NodeID:      node.ID,
			Status:      types.NodeStatusConnected,
			CoreVersion: node.CoreVersion,
			NodeVersion: node.NodeVersion,
			Timestamp:   now,
		}, nil
	}

	if result.Healthy {
		return &types.StatusUpdate{
				NodeID:      node.ID,
				Status:      types.NodeStatusConnected,
				CoreVersion: node.CoreVersion,
				NodeVersion: node.NodeVersion,
				Timestamp:   now,
			}, &events.Event{
				Type:   events.EventNodeConnected,
				NodeID: node.ID,
			}
	}

	if !status.Healthy && node.Status != types.NodeStatusError {
		msg := status.LastResult.Message
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
