/*
Package manager is the panel's coordination layer.

Every node lifecycle operation flows through the Manager: it owns the
store, the key vault, the certificate authority, and the event broker,
and it is the only component that writes node records outside the
background pipelines.

	┌──────────────────────────────────────────────────────────┐
	│                        Manager                           │
	│                                                          │
	│  AddNode / ModifyNode / RemoveNode                       │
	│  EnableNode / DisableNode                                │
	│  RecordUsage / ResetNodeUsage                            │
	│  NodeAPIKey / RotateNodeAPIKey / IssueNodeCertificate    │
	└───────┬──────────┬───────────┬──────────────┬────────────┘
	        │          │           │              │
	        ▼          ▼           ▼              ▼
	    storage    security     security       events
	   (bbolt)    (KeyVault)  (CertAuthority) (Broker)

# Invariants

Writes validate before they touch the store: node specs (name,
address, port) and reset policies (strategy plus encoded reset_time)
are rejected up front, so the background pipelines never see malformed
records. API keys are encrypted before storage and decrypted only on
explicit request. Events are published after the store accepted the
change, never before.

Modifying a node's address or port sends an active node back to
connecting, since recorded reachability no longer applies; a disabled
node stays disabled through any modification until explicitly enabled.

# Enrollment

A new node enrolls with a one-time token minted against its record:

	token, _ := mgr.TokenManager().GenerateToken(node.ID, 15*time.Minute)
	// operator hands token to the node host;
	// the node trades it for its API key and certificate bundle

# Background wiring

The scheduler's jobs run against the manager's parts: the reset
pipeline and reconciler use Store(), the monitor publishes through
EventBroker(), and MetricsCollector.Collect refreshes the fleet gauges
from the store on its own interval.
*/
package manager
