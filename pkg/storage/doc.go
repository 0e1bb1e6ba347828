/*
Package storage provides BoltDB-backed state persistence for the panel's
fleet data.

The storage package implements the Store interface using BoltDB as the
underlying database, providing ACID transactions for fleet state: nodes,
usage reset audit logs, and host metric samples. All data is serialized
as JSON and stored in separate buckets.

# Architecture

The panel uses BoltDB (bbolt) for embedded, transactional storage with
zero external dependencies:

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/panel.db                 │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────┐             │          │
	│  │  │ nodes       (node id)      │             │          │
	│  │  │ reset_logs  (row id)       │             │          │
	│  │  │ node_stats  (row id)       │             │          │
	│  │  └────────────────────────────┘             │          │
	│  └─────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────┘

Keys are big-endian uint64 so bucket iteration follows insertion order;
ids are assigned from the bucket sequence.

# Transactional Guarantees

The usage reset operations carry the panel's audit invariant:

  - ResetUsage / ResetUsageBatch append the audit row and zero the
    counters inside one transaction, so the pre-reset totals can never
    be lost to a crash between the two steps.
  - ResetUsageBatch is all-or-nothing: if the commit fails, no node in
    the batch shows reset counters. A node deleted between candidate
    selection and commit is skipped rather than failing the batch.
  - UpdateStatusBatch runs in its own transaction and touches a
    disjoint field set (except status), so the status and reset
    pipelines compose without deadlock; BoltDB serializes the two
    writers.

# Derived State

A node's last-reset timestamp is not stored on the node; it is the
projection max(reset_logs.created_at) falling back to the node's
creation time. ResetCandidates resolves the projection and the status
filter inside one read transaction so every tick sees a consistent
snapshot.
*/
package storage
