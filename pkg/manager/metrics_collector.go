package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/helpmebro911/panel/pkg/metrics"
	"github.com/helpmebro911/panel/pkg/types"
)

// MetricsCollector refreshes the exported fleet gauges from the store.
// It runs as a scheduler job.
type MetricsCollector struct {
	manager *Manager
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(mgr *Manager) *MetricsCollector {
	return &MetricsCollector{manager: mgr}
}

// Collect performs one collection pass
func (c *MetricsCollector) Collect(ctx context.Context, now time.Time) error {
	nodes, err := c.manager.ListNodes()
	if err != nil {
		return err
	}

	counts := make(map[types.NodeStatus]int)
	for _, node := range nodes {
		counts[node.Status]++

		label := fmt.Sprint(node.ID)
		metrics.NodeUplinkBytes.WithLabelValues(label).Set(float64(node.Uplink))
		metrics.NodeDownlinkBytes.WithLabelValues(label).Set(float64(node.Downlink))
	}

	// Every status is set each pass so a count that drops to zero is
	// exported as zero instead of going stale.
	for _, status := range []types.NodeStatus{
		types.NodeStatusConnecting,
		types.NodeStatusConnected,
		types.NodeStatusError,
		types.NodeStatusDisabled,
		types.NodeStatusLimited,
	} {
		metrics.NodesTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
	return nil
}
