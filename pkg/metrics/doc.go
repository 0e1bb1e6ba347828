/*
Package metrics provides Prometheus metrics collection and exposition for the panel.

The metrics package defines and registers all panel metrics using the Prometheus
client library, providing observability into fleet health, traffic consumption,
the usage reset pipeline, and status reconciliation. Metrics are exposed via
HTTP endpoint for scraping by Prometheus servers.

# Architecture

The metrics system follows Prometheus conventions with instrumentation across
all components:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Fleet: node counts, per-node traffic       │          │
	│  │  Resets: ticks, commits, retention purges   │          │
	│  │  Status: probes, bulk status writes         │          │
	│  │  Reconciler: cycle count, duration          │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Fleet Metrics:

panel_nodes_total{status}:
  - Type: Gauge
  - Description: Total nodes by status
  - Example: panel_nodes_total{status="connected"} 5

panel_node_uplink_bytes{node}, panel_node_downlink_bytes{node}:
  - Type: Gauge
  - Description: Traffic consumed by a node since its last usage reset
  - Labels: node (node ID)

Usage Reset Pipeline Metrics:

panel_usage_resets_total:
  - Type: Counter
  - Description: Usage resets committed (scheduled and manual)

panel_reset_ticks_total:
  - Type: Counter
  - Description: Reset evaluation ticks

panel_reset_tick_failures_total:
  - Type: Counter
  - Description: Ticks aborted by store errors

panel_reset_tick_duration_seconds:
  - Type: Histogram
  - Description: Duration of reset evaluation ticks

panel_reset_logs_purged_total:
  - Type: Counter
  - Description: Audit rows removed by retention

Status Pipeline Metrics:

panel_status_updates_total:
  - Type: Counter
  - Description: Node status rows written by bulk updates

panel_probes_total{outcome}:
  - Type: Counter
  - Description: Connectivity probes by outcome (success/failure)

Reconciler Metrics:

panel_reconciliation_cycles_total:
  - Type: Counter
  - Description: Reconciliation cycles completed

panel_reconciliation_duration_seconds:
  - Type: Histogram
  - Description: Reconciliation cycle duration

# Usage

Updating Metrics:

	import "github.com/helpmebro911/panel/pkg/metrics"

	metrics.NodesTotal.WithLabelValues("connected").Set(5)
	metrics.UsageResetsTotal.Inc()
	metrics.ProbesTotal.WithLabelValues("success").Inc()

Recording Histogram Observations:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.ReconciliationDuration)

Exposing the Endpoint:

	http.Handle("/metrics", metrics.Handler())
	http.ListenAndServe(":9090", nil)

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()

Label Discipline:
  - Node ID is the only medium-cardinality label; the node gauges are
    deleted when a node is removed so series do not accumulate
  - All other labels are bounded enums (status, outcome)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration
  - Supports both simple and vector histograms

# Monitoring

Prometheus Queries (PromQL):

Fleet Health:
  - Total nodes: sum(panel_nodes_total)
  - Errored nodes: panel_nodes_total{status="error"}
  - Probe failure rate: rate(panel_probes_total{outcome="failure"}[5m])

Traffic:
  - Fleet throughput: sum(rate(panel_node_uplink_bytes[5m]))
  - Heaviest nodes: topk(5, panel_node_uplink_bytes + panel_node_downlink_bytes)

Reset Pipeline:
  - Reset rate: rate(panel_usage_resets_total[1h])
  - Tick failures: rate(panel_reset_tick_failures_total[5m])
  - p95 tick latency: histogram_quantile(0.95, panel_reset_tick_duration_seconds_bucket)

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
