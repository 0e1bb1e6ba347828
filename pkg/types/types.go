package types

import (
	"time"
)

// Node represents a managed remote proxy node
type Node struct {
	ID          uint64
	Name        string
	Address     string // Host IP address or domain
	Port        int
	APIKey      string // Encrypted at rest, see pkg/security
	Labels      map[string]string
	Status      NodeStatus
	Message     string // Last status message (e.g. probe failure reason)
	CoreVersion string
	NodeVersion string

	// Traffic accounting. Uplink and Downlink only ever grow between
	// resets; the reset executor is the sole writer that zeroes them.
	Uplink   uint64
	Downlink uint64

	// DataLimit is a byte ceiling; 0 means unlimited.
	DataLimit uint64

	// UsageCoefficient scales reported traffic before accounting.
	UsageCoefficient float64

	// ResetStrategy and ResetTime together encode the usage reset
	// policy. ResetTime carries a dual encoding: -1 selects interval
	// mode, >= 0 an absolute point within the cycle (see pkg/reset).
	ResetStrategy ResetStrategy
	ResetTime     int64

	LastStatusChange time.Time
	CreatedAt        time.Time
}

// UsedTraffic returns the traffic consumed since the last reset
func (n *Node) UsedTraffic() uint64 {
	return n.Uplink + n.Downlink
}

// OverLimit reports whether the node has consumed its data limit
func (n *Node) OverLimit() bool {
	return n.DataLimit > 0 && n.UsedTraffic() >= n.DataLimit
}

// NodeStatus represents the current connection state of a node
type NodeStatus string

const (
	NodeStatusConnecting NodeStatus = "connecting"
	NodeStatusConnected  NodeStatus = "connected"
	NodeStatusError      NodeStatus = "error"
	NodeStatusDisabled   NodeStatus = "disabled"
	NodeStatusLimited    NodeStatus = "limited"
)

// ResetStrategy defines the cycle granularity governing when a node's
// usage counters are zeroed
type ResetStrategy string

const (
	ResetStrategyNoReset ResetStrategy = "no_reset"
	ResetStrategyDay     ResetStrategy = "day"
	ResetStrategyWeek    ResetStrategy = "week"
	ResetStrategyMonth   ResetStrategy = "month"
	ResetStrategyYear    ResetStrategy = "year"
)

// ResetEligibleStatuses are the node statuses considered by the usage
// reset pipeline. Disabled nodes are never reset.
var ResetEligibleStatuses = []NodeStatus{
	NodeStatusConnecting,
	NodeStatusConnected,
	NodeStatusError,
	NodeStatusLimited,
}

// UsageResetLog is an immutable audit record of the counters captured
// at the moment a reset was committed. Rows are appended by the reset
// executor and removed only by retention purges.
type UsageResetLog struct {
	ID        uint64
	NodeID    uint64
	Uplink    uint64
	Downlink  uint64
	CreatedAt time.Time
}

// StatusUpdate is one row of a bulk node status refresh. The status
// pipeline and the reset pipeline touch disjoint fields except Status,
// which composes last-writer-wins.
type StatusUpdate struct {
	NodeID      uint64
	Status      NodeStatus
	Message     string
	CoreVersion string
	NodeVersion string
	Timestamp   time.Time
}

// NodeStat is a point-in-time sample of node host metrics
type NodeStat struct {
	ID                     uint64
	NodeID                 uint64
	MemTotal               uint64
	MemUsed                uint64
	CPUUsage               float64 // Percentage
	IncomingBandwidthSpeed uint64
	OutgoingBandwidthSpeed uint64
	CreatedAt              time.Time
}
