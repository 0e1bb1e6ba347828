/*
Package reset implements the node usage-reset scheduling engine.

Every managed node carries a reset policy: a strategy (day, week, month,
year, or no_reset) and an encoded reset_time value. The engine decides,
for every node, whether its accumulated traffic counters must be reset
now, reconciled against the node's last reset timestamp, and commits all
due resets as one atomic batch.

# Architecture

	┌──────────────────── RESET PIPELINE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │        Candidate Selection (store)          │          │
	│  │  - status in {connecting, connected,        │          │
	│  │    error, limited}                          │          │
	│  │  - strategy != no_reset                     │          │
	│  │  - interval mode: elapsed-days filter       │          │
	│  │    applied store-side                       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │       Evaluation (this package)             │          │
	│  │  - decode reset_time into a Schedule        │          │
	│  │  - absolute mode: calendar arithmetic       │          │
	│  │    against the last-reset projection        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │        Batch Commit (store)                 │          │
	│  │  - one transaction, all-or-nothing          │          │
	│  │  - audit row per node, counters zeroed,     │          │
	│  │    limited -> connecting                    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Schedule Encoding

The stored reset_time integer is dual-encoded and decoded into an
explicit Schedule variant:

  - -1: interval mode. A reset is due once the strategy's calendar-day
    interval (day: 1, week: 7, month: 30, year: 365) has elapsed since
    the last reset.
  - >= 0: absolute mode. The value encodes a target point within the
    cycle (seconds-of-day for day; day*86400 + seconds for week, month
    and year). Weeks start on Sunday. The month target day is capped at
    28 so the schedule is reachable in every month.

# Due Rules

Absolute schedules fire once per cycle after the target point has
passed, guarded by the last-reset timestamp so a reset never re-fires
within the same cycle. The weekly rule additionally requires seven
elapsed calendar days and re-arms once when a cycle was skipped between
ticks (more than seven days elapsed); skipped cycles are not replayed.

All calendar arithmetic is performed in UTC. The engine trusts store
timestamps and assumes policy values were validated at node
creation/modification time.

# Concurrency

The pipeline is intended to run as a periodic background job. It holds
no state across ticks: candidates are re-selected fresh every tick, so
a node can never be double-reset by stale due-ness. If the store fails
mid-tick the whole tick aborts with no partial mutation and the next
tick retries naturally.
*/
package reset
