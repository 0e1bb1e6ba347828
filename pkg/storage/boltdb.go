package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/helpmebro911/panel/pkg/reset"
	"github.com/helpmebro911/panel/pkg/security"
	"github.com/helpmebro911/panel/pkg/types"
)

var (
	// Bucket names
	bucketNodes     = []byte("nodes")
	bucketResetLogs = []byte("reset_logs")
	bucketNodeStats = []byte("node_stats")
	bucketConfig    = []byte("config")
)

// keyCA holds the serialized certificate authority in bucketConfig
var keyCA = []byte("ca")

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "panel.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketNodes,
			bucketResetLogs,
			bucketNodeStats,
			bucketConfig,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// itob encodes an id as a sortable big-endian key
func itob(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

// Node operations

func (s *BoltStore) CreateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)

		// Node names are unique across the fleet
		var exists bool
		err := b.ForEach(func(k, v []byte) error {
			var n types.Node
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			if n.Name == node.Name {
				exists = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("node name already exists: %s", node.Name)
		}

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		node.ID = id

		if node.CreatedAt.IsZero() {
			node.CreatedAt = time.Now().UTC()
		}
		if node.Status == "" {
			node.Status = types.NodeStatusConnecting
		}
		if node.ResetStrategy == "" {
			node.ResetStrategy = types.ResetStrategyNoReset
			node.ResetTime = -1
		}

		data, err := json.Marshal(node)
		if err != nil {
			return err
		}
		return b.Put(itob(node.ID), data)
	})
}

func (s *BoltStore) GetNode(id uint64) (*types.Node, error) {
	var node types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get(itob(id))
		if data == nil {
			return fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
		}
		return json.Unmarshal(data, &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *BoltStore) GetNodeByName(name string) (*types.Node, error) {
	var found *types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			if node.Name == name {
				found = &node
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: name %q", ErrNodeNotFound, name)
	}
	return found, nil
}

func (s *BoltStore) ListNodes(statuses ...types.NodeStatus) ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			if len(statuses) > 0 && !statusIn(node.Status, statuses) {
				return nil
			}
			nodes = append(nodes, &node)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *BoltStore) UpdateNode(node *types.Node) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b.Get(itob(node.ID)) == nil {
			return fmt.Errorf("%w: id %d", ErrNodeNotFound, node.ID)
		}
		return putNodeTx(tx, node)
	})
}

func (s *BoltStore) DeleteNode(id uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		if b.Get(itob(id)) == nil {
			return fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
		}
		if err := b.Delete(itob(id)); err != nil {
			return err
		}

		// Remove dependent rows so the audit and stats buckets do not
		// accumulate orphans on large fleets.
		if err := deleteWhere(tx.Bucket(bucketResetLogs), func(v []byte) (bool, error) {
			var row types.UsageResetLog
			if err := json.Unmarshal(v, &row); err != nil {
				return false, err
			}
			return row.NodeID == id, nil
		}); err != nil {
			return err
		}
		return deleteWhere(tx.Bucket(bucketNodeStats), func(v []byte) (bool, error) {
			var stat types.NodeStat
			if err := json.Unmarshal(v, &stat); err != nil {
				return false, err
			}
			return stat.NodeID == id, nil
		})
	})
}

// Usage accounting

// AddUsage accumulates reported traffic onto a node's counters, scaled
// by the node's usage coefficient. Returns the refreshed node.
func (s *BoltStore) AddUsage(id uint64, uplink, downlink uint64) (*types.Node, error) {
	var node *types.Node
	err := s.db.Update(func(tx *bolt.Tx) error {
		n, err := getNodeTx(tx, id)
		if err != nil {
			return err
		}

		coef := n.UsageCoefficient
		if coef <= 0 {
			coef = 1
		}
		n.Uplink += uint64(float64(uplink) * coef)
		n.Downlink += uint64(float64(downlink) * coef)

		if err := putNodeTx(tx, n); err != nil {
			return err
		}
		node = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Usage reset pipeline

// ResetCandidates returns nodes eligible for a usage reset at the given
// instant. Interval-mode nodes are fully decided here using the
// elapsed-days rule; absolute-mode nodes are returned unfiltered for
// in-process evaluation by the reset engine. The status filter and the
// last-reset projection are resolved inside one read transaction so a
// tick observes a consistent snapshot.
func (s *BoltStore) ResetCandidates(now time.Time) ([]*types.Node, error) {
	var candidates []*types.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		lastResets, err := lastResetIndexTx(tx)
		if err != nil {
			return err
		}

		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var node types.Node
			if err := json.Unmarshal(v, &node); err != nil {
				return err
			}
			if !statusIn(node.Status, types.ResetEligibleStatuses) {
				return nil
			}
			if node.ResetStrategy == types.ResetStrategyNoReset {
				return nil
			}

			sched := reset.DecodeSchedule(node.ResetTime)
			if sched.Interval {
				days, ok := reset.IntervalDays(node.ResetStrategy)
				if !ok {
					return nil
				}
				lastReset, ok := lastResets[node.ID]
				if !ok {
					lastReset = node.CreatedAt
				}
				if reset.CalendarDaysBetween(now, lastReset) < days {
					return nil
				}
			}

			candidates = append(candidates, &node)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// LastResetAt resolves a node's last reset timestamp: the newest reset
// audit row, or the node's creation time if it was never reset.
func (s *BoltStore) LastResetAt(id uint64) (time.Time, error) {
	var last time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		node, err := getNodeTx(tx, id)
		if err != nil {
			return err
		}

		lastResets, err := lastResetIndexTx(tx)
		if err != nil {
			return err
		}
		if t, ok := lastResets[id]; ok {
			last = t
		} else {
			last = node.CreatedAt
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return last, nil
}

// ResetUsage resets a single node's usage counters within one
// transaction: an audit row capturing the pre-reset totals is appended,
// both counters are zeroed, and a limited node transitions back to
// connecting. Returns the refreshed node.
func (s *BoltStore) ResetUsage(id uint64, now time.Time) (*types.Node, error) {
	var node *types.Node
	err := s.db.Update(func(tx *bolt.Tx) error {
		n, err := resetNodeTx(tx, id, now)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// ResetUsageBatch resets every listed node inside a single transaction.
// If the transaction cannot commit, no node in the batch is reset. A
// node deleted between selection and commit is skipped rather than
// aborting the batch; the next tick re-evaluates from a fresh candidate
// set.
func (s *BoltStore) ResetUsageBatch(ids []uint64, now time.Time) ([]*types.Node, error) {
	var nodes []*types.Node
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, id := range ids {
			node, err := resetNodeTx(tx, id, now)
			if errors.Is(err, ErrNodeNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *BoltStore) ResetLogs(nodeID uint64) ([]*types.UsageResetLog, error) {
	var logs []*types.UsageResetLog
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResetLogs)
		return b.ForEach(func(k, v []byte) error {
			var row types.UsageResetLog
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			if row.NodeID == nodeID {
				logs = append(logs, &row)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// PurgeResetLogs removes audit rows created before the given instant
// and returns the number of rows removed
func (s *BoltStore) PurgeResetLogs(before time.Time) (int, error) {
	purged := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResetLogs)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var row types.UsageResetLog
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			if row.CreatedAt.Before(before) {
				if err := c.Delete(); err != nil {
					return err
				}
				purged++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// Status pipeline

// UpdateStatusBatch applies many independent status rows in one
// transaction. It touches status, message, version fields and the
// status-change timestamp only, so it composes last-writer-wins with
// the reset pipeline on the status field. Rows for deleted nodes are
// skipped.
func (s *BoltStore) UpdateStatusBatch(updates []types.StatusUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, upd := range updates {
			node, err := getNodeTx(tx, upd.NodeID)
			if errors.Is(err, ErrNodeNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			node.Status = upd.Status
			node.Message = upd.Message
			node.CoreVersion = upd.CoreVersion
			node.NodeVersion = upd.NodeVersion
			if upd.Timestamp.IsZero() {
				node.LastStatusChange = time.Now().UTC()
			} else {
				node.LastStatusChange = upd.Timestamp
			}

			if err := putNodeTx(tx, node); err != nil {
				return err
			}
		}
		return nil
	})
}

// Host metrics samples

func (s *BoltStore) AppendNodeStat(stat *types.NodeStat) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodeStats)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		stat.ID = id
		if stat.CreatedAt.IsZero() {
			stat.CreatedAt = time.Now().UTC()
		}
		data, err := json.Marshal(stat)
		if err != nil {
			return err
		}
		return b.Put(itob(id), data)
	})
}

func (s *BoltStore) NodeStats(nodeID uint64, start, end time.Time) ([]*types.NodeStat, error) {
	var stats []*types.NodeStat
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodeStats)
		return b.ForEach(func(k, v []byte) error {
			var stat types.NodeStat
			if err := json.Unmarshal(v, &stat); err != nil {
				return err
			}
			if stat.NodeID != nodeID {
				return nil
			}
			if stat.CreatedAt.Before(start) || stat.CreatedAt.After(end) {
				return nil
			}
			stats = append(stats, &stat)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Certificate authority material

// CAData returns the serialized certificate authority
func (s *BoltStore) CAData() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketConfig).Get(keyCA)
		if v == nil {
			return security.ErrCANotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SaveCAData persists the serialized certificate authority
func (s *BoltStore) SaveCAData(data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConfig).Put(keyCA, data)
	})
}

// Transaction helpers

func getNodeTx(tx *bolt.Tx, id uint64) (*types.Node, error) {
	data := tx.Bucket(bucketNodes).Get(itob(id))
	if data == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}
	var node types.Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func putNodeTx(tx *bolt.Tx, node *types.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketNodes).Put(itob(node.ID), data)
}

// resetNodeTx performs the per-node reset effect inside the caller's
// transaction: audit row first, then counter zeroing, both visible in
// the same commit so pre-reset totals are never lost.
func resetNodeTx(tx *bolt.Tx, id uint64, now time.Time) (*types.Node, error) {
	node, err := getNodeTx(tx, id)
	if err != nil {
		return nil, err
	}

	logs := tx.Bucket(bucketResetLogs)
	logID, err := logs.NextSequence()
	if err != nil {
		return nil, err
	}
	row := types.UsageResetLog{
		ID:        logID,
		NodeID:    node.ID,
		Uplink:    node.Uplink,
		Downlink:  node.Downlink,
		CreatedAt: now.UTC(),
	}
	data, err := json.Marshal(&row)
	if err != nil {
		return nil, err
	}
	if err := logs.Put(itob(logID), data); err != nil {
		return nil, err
	}

	node.Uplink = 0
	node.Downlink = 0
	if node.Status == types.NodeStatusLimited {
		node.Status = types.NodeStatusConnecting
		node.LastStatusChange = now.UTC()
	}

	if err := putNodeTx(tx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// lastResetIndexTx builds the last-reset projection for all nodes in
// one pass over the audit bucket: node id -> max(created_at)
func lastResetIndexTx(tx *bolt.Tx) (map[uint64]time.Time, error) {
	index := make(map[uint64]time.Time)
	b := tx.Bucket(bucketResetLogs)
	err := b.ForEach(func(k, v []byte) error {
		var row types.UsageResetLog
		if err := json.Unmarshal(v, &row); err != nil {
			return err
		}
		if row.CreatedAt.After(index[row.NodeID]) {
			index[row.NodeID] = row.CreatedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

func deleteWhere(b *bolt.Bucket, match func(v []byte) (bool, error)) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		ok, err := match(v)
		if err != nil {
			return err
		}
		if ok {
			if err := c.Delete(); err != nil {
				return err
			}
		}
	}
	return nil
}

func statusIn(status types.NodeStatus, set []types.NodeStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
