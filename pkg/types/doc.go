/*
Package types defines the core data structures used throughout the panel.

This package contains the fundamental types that represent the panel's domain
model: proxy nodes, their connection status, traffic counters, usage reset
policies, audit records, and bulk status updates. These types are used by all
other packages for persistence, scheduling, and reporting.

# Core Types

Fleet model:
  - Node: a managed remote proxy process with address, traffic counters,
    data limit and reset policy
  - NodeStatus: connecting, connected, error, disabled, limited
  - NodeStat: point-in-time host metrics sample for a node

Usage reset policy:
  - ResetStrategy: no_reset, day, week, month, year
  - Node.ResetTime: dual-encoded schedule value (-1 = interval mode,
    >= 0 = absolute point within the cycle; decoded by pkg/reset)
  - UsageResetLog: immutable audit row capturing pre-reset counters

Status pipeline:
  - StatusUpdate: one row of a bulk connection-status refresh

# Design Principles

All types are designed to be:
  - Serializable (JSON, for the BoltDB store)
  - Owned by the store (pipelines receive snapshots and return updated
    records; they never mutate shared in-memory state)
  - Closed enumerations (status and strategy sets are fixed by the domain)

# Node Lifecycle

	connecting ──▶ connected ──▶ error ──▶ connecting ...
	     ▲                                     │
	     │              limited ◀── data limit reached
	     └──────────────── reset clears limited

A node whose used traffic reaches its data limit is marked limited by the
reconciler. A usage reset zeroes the counters, writes a UsageResetLog row
and moves a limited node back to connecting. Disabled nodes are ignored by
both pipelines until re-enabled.
*/
package types
