package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "panel_nodes_total",
			Help: "Total number of nodes by status",
		},
		[]string{"status"},
	)

	NodeUplinkBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "panel_node_uplink_bytes",
			Help: "Uplink bytes consumed by a node since its last usage reset",
		},
		[]string{"node"},
	)

	NodeDownlinkBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "panel_node_downlink_bytes",
			Help: "Downlink bytes consumed by a node since its last usage reset",
		},
		[]string{"node"},
	)

	// Usage reset pipeline metrics
	UsageResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_usage_resets_total",
			Help: "Total number of node usage resets committed",
		},
	)

	ResetTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_reset_ticks_total",
			Help: "Total number of usage reset evaluation ticks",
		},
	)

	ResetTickFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_reset_tick_failures_total",
			Help: "Total number of usage reset ticks aborted by store errors",
		},
	)

	ResetTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "panel_reset_tick_duration_seconds",
			Help:    "Duration of usage reset evaluation ticks in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ResetLogsPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_reset_logs_purged_total",
			Help: "Total number of usage reset audit rows removed by retention",
		},
	)

	// Status pipeline metrics
	StatusUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_status_updates_total",
			Help: "Total number of node status rows written by bulk updates",
		},
	)

	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_probes_total",
			Help: "Total number of node connectivity probes by outcome",
		},
		[]string{"outcome"},
	)

	// Reconciler metrics
	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles",
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "panel_reconciliation_duration_seconds",
			Help:    "Duration of reconciliation cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(NodeUplinkBytes)
	prometheus.MustRegister(NodeDownlinkBytes)
	prometheus.MustRegister(UsageResetsTotal)
	prometheus.MustRegister(ResetTicksTotal)
	prometheus.MustRegister(ResetTickFailuresTotal)
	prometheus.MustRegister(ResetTickDuration)
	prometheus.MustRegister(ResetLogsPurgedTotal)
	prometheus.MustRegister(StatusUpdatesTotal)
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ReconciliationDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
