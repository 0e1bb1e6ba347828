/*
Package reconciler converges recorded node state with panel policy.

The reconciler runs as a periodic job over the fleet. Each cycle reads
the active nodes once, decides at most one status transition per node,
and commits every transition in a single store batch. Events are
published only after the batch commits, so observers never see a
transition that was rolled back.

# Transitions

Two policies are enforced:

	connected ──(no status report for staleAfter)──▶ error
	any active ──(usage ≥ data limit)──────────────▶ limited

	┌───────────────────────────────────────────────────────┐
	│                  Reconcile cycle                      │
	│  1. ListNodes(connecting, connected, error)           │
	│  2. evaluate each node against `now`                  │
	│  3. UpdateStatusBatch(all transitions)                │
	│  4. Publish node.error / node.limited events          │
	└───────────────────────────────────────────────────────┘

The reconciler never reverses a transition. An errored node comes back
through the monitor's probe succeeding, and a limited node is released
by the usage-reset pipeline zeroing its counters.

Limit enforcement takes priority over staleness: when a node is both
over its limit and stale, it becomes limited, which already excludes it
from proxying.

# Failure Model

A cycle that cannot list nodes or commit its batch returns an error and
changes nothing; the scheduler retries on the next interval. Decisions
are made against the single instant passed into Reconcile, so a slow
cycle stays coherent.
*/
package reconciler
