package storage

import (
	"errors"
	"time"

	"github.com/helpmebro911/panel/pkg/types"
)

// ErrNodeNotFound is returned when a node id or name does not exist
var ErrNodeNotFound = errors.New("node not found")

// Store defines the interface for panel state storage
// This is implemented by BoltDB-backed storage
type Store interface {
	// Nodes
	CreateNode(node *types.Node) error
	GetNode(id uint64) (*types.Node, error)
	GetNodeByName(name string) (*types.Node, error)
	ListNodes(statuses ...types.NodeStatus) ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(id uint64) error

	// Usage accounting. AddUsage scales the reported bytes by the
	// node's usage coefficient before accumulating.
	AddUsage(id uint64, uplink, downlink uint64) (*types.Node, error)

	// Usage reset pipeline. ResetCandidates applies the store-side
	// filter: eligible statuses, strategy != no_reset, and for
	// interval-mode nodes the elapsed-days decision. Absolute-mode
	// nodes are returned unfiltered for in-process evaluation.
	ResetCandidates(now time.Time) ([]*types.Node, error)
	LastResetAt(id uint64) (time.Time, error)
	ResetUsage(id uint64, now time.Time) (*types.Node, error)
	ResetUsageBatch(ids []uint64, now time.Time) ([]*types.Node, error)
	ResetLogs(nodeID uint64) ([]*types.UsageResetLog, error)
	PurgeResetLogs(before time.Time) (int, error)

	// Status pipeline, independent of the reset path
	UpdateStatusBatch(updates []types.StatusUpdate) error

	// Host metrics samples
	AppendNodeStat(stat *types.NodeStat) error
	NodeStats(nodeID uint64, start, end time.Time) ([]*types.NodeStat, error)

	// Certificate authority material (see pkg/security). CAData
	// returns security.ErrCANotFound before the first save.
	CAData() ([]byte, error)
	SaveCAData(data []byte) error

	// Utility
	Close() error
}
