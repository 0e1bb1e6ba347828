/*
Package health provides the probe primitives used to check node
reachability.

Two checker types are implemented, both behind a common interface:

	┌──────────────────────────────────────────────────────────────┐
	│                     Checker Interface                        │
	│  • Check(ctx) Result                                         │
	│  • Type() CheckType                                          │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	    ┌────┴──────┐
	    ▼           ▼
	┌────────┐  ┌───────┐
	│  HTTP  │  │  TCP  │
	│Checker │  │Checker│
	└────────┘  └───────┘
	     │          │
	     ▼          ▼
	  GET a     Dial the node's
	  status    service port
	  endpoint

A Check returns a Result (healthy flag, message, timing); it never
returns an error, since an unreachable node is a result, not a fault
in the prober.

# Probe History

Status accumulates results across probes. A node is marked unhealthy
only after Config.Retries consecutive failures and healthy again on
the first success, which gives hysteresis against transient network
blips:

	status := health.NewStatus()
	status.Update(checker.Check(ctx), config)
	if !status.Healthy { ... }

Config also carries the per-probe timeout and interval; callers wire
those into their own loops (see pkg/monitor).

# Checkers

TCP checks dial the address and report success on connection:

	checker := health.NewTCPChecker("10.0.0.5:62050")

HTTP checks request a URL and accept a configurable status range:

	checker := health.NewHTTPChecker("http://10.0.0.5:62051/status").
		WithAPIKey(key).
		WithStatusRange(200, 299)

Both honor context cancellation and deadlines.
*/
package health
