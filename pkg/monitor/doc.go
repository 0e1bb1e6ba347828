/*
Package monitor probes the node fleet and converges reachability state.

Each sweep dials every active node (connecting, connected, errored) in
parallel, folds the probe outcome into per-node history, and commits
all resulting status rows as one batch:

	┌──────────────────────────────────────────────────────────┐
	│                       Sweep                              │
	│  1. ListNodes(connecting, connected, error)              │
	│  2. probe each node (bounded concurrency, per-probe      │
	│     timeout)                                             │
	│  3. fold results into probe history                      │
	│  4. UpdateStatusBatch + publish events                   │
	└──────────────────────────────────────────────────────────┘

# Transitions

	connecting/error ──(probe succeeds)────────────▶ connected
	connected        ──(Retries consecutive fails)─▶ error
	connected        ──(probe succeeds)────────────▶ heartbeat refresh

A heartbeat refresh rewrites the node's status row with a fresh
timestamp and no event; it is what keeps the reconciler's staleness
rule from firing on a healthy node. The failure threshold comes from
health.Config.Retries, so one dropped probe never flaps the fleet.

Limited and disabled nodes are never probed. The usage-reset pipeline
releases limited nodes, and disabled nodes belong to the operator.

# Probers

By default a node is probed with a TCP dial to its address and port
(see pkg/health). WithChecker swaps the prober, which tests use and
which allows an HTTP probe against nodes exposing a status endpoint.
*/
package monitor
