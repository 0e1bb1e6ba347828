/*
Package scheduler runs the panel's periodic background jobs.

Every recurring activity in the panel — the usage-reset tick, probe
sweeps, reconciliation, audit-log retention, fleet metric collection —
is expressed as a named Job with an interval and a tick function. The
scheduler owns the tickers; the jobs own the work.

# Architecture

Each registered job gets its own goroutine and ticker. The serve
command registers six:

	┌────────────────────────────────────────────────────────────┐
	│                       Scheduler                            │
	│                Register → Start → Stop                     │
	└────────────────┬───────────────────────────────────────────┘
	                 │ one goroutine per job
	    ┌────────────┼──────────────┬──────────────────┐
	    ▼            ▼              ▼                  ▼
	usage-reset   probe-sweep   reconcile      metrics-collect
	(every 1m)    (every 30s)   (every 30s)    (every 15s)

plus log-retention (every 1h) and token-cleanup (every 10m) for
housekeeping.

A tick calls the job function with a single UTC instant; the function
uses that instant for every time comparison in the tick so the whole
evaluation is coherent even if the tick itself takes time.

# Usage

	sched := scheduler.NewScheduler()
	sched.Register(scheduler.Job{
		Name:     "usage-reset",
		Interval: time.Minute,
		Fn: func(ctx context.Context, now time.Time) error {
			_, err := pipeline.Run(ctx, now)
			return err
		},
	})
	sched.Start(ctx)
	defer sched.Stop()

# Failure Model

A failing tick is logged and dropped; the job fires again on its next
interval. Jobs are therefore written to be idempotent: a skipped or
repeated tick converges to the same state. The scheduler keeps no
per-job state across ticks.

Stop closes every job loop and waits for in-flight ticks to finish, so
a job never observes a closed store.
*/
package scheduler
