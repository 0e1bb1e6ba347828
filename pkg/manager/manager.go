package manager

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helpmebro911/panel/pkg/events"
	"github.com/helpmebro911/panel/pkg/log"
	"github.com/helpmebro911/panel/pkg/metrics"
	"github.com/helpmebro911/panel/pkg/reset"
	"github.com/helpmebro911/panel/pkg/security"
	"github.com/helpmebro911/panel/pkg/storage"
	"github.com/helpmebro911/panel/pkg/types"
)

// Manager is the panel's coordination layer. Every node lifecycle
// operation goes through it: it validates input, keeps secrets
// encrypted, writes through the store, and publishes events after the
// store accepted the change.
type Manager struct {
	dataDir string

	store        storage.Store
	vault        *security.KeyVault
	ca           *security.CertAuthority
	tokenManager *TokenManager
	eventBroker  *events.Broker
	logger       zerolog.Logger
}

// Config holds configuration for creating a Manager
type Config struct {
	DataDir string

	// Secret derives the key that encrypts node API keys and the CA
	// root key at rest
	Secret string
}

// NodeSpec is the operator-supplied part of a node record
type NodeSpec struct {
	Name             string
	Address          string
	Port             int
	Labels           map[string]string
	DataLimit        uint64
	UsageCoefficient float64
	ResetStrategy    types.ResetStrategy
	ResetTime        int64
}

// NewManager creates a new Manager instance
func NewManager(cfg *Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	vault, err := security.NewKeyVaultFromSecret(cfg.Secret)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create key vault: %w", err)
	}

	ca := security.NewCertAuthority(store, vault)
	if err := ca.Ensure(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to set up certificate authority: %w", err)
	}

	eventBroker := events.NewBroker()
	eventBroker.Start()

	return &Manager{
		dataDir:      cfg.DataDir,
		store:        store,
		vault:        vault,
		ca:           ca,
		tokenManager: NewTokenManager(),
		eventBroker:  eventBroker,
		logger:       log.WithComponent("manager"),
	}, nil
}

// Store exposes the underlying node store to the background jobs
func (m *Manager) Store() storage.Store {
	return m.store
}

// EventBroker returns the panel event broker
func (m *Manager) EventBroker() *events.Broker {
	return m.eventBroker
}

// TokenManager returns the enrollment token manager
func (m *Manager) TokenManager() *TokenManager {
	return m.tokenManager
}

// PublishEvent publishes an event to the broker
func (m *Manager) PublishEvent(event *events.Event) {
	m.eventBroker.Publish(event)
}

// Node lifecycle

// AddNode validates a node spec, mints and encrypts its API key, and
// stores the node in connecting state
func (m *Manager) AddNode(spec NodeSpec) (*types.Node, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	strategy := spec.ResetStrategy
	resetTime := spec.ResetTime
	if strategy == "" {
		strategy = types.ResetStrategyNoReset
		resetTime = -1
	}
	if err := reset.ValidatePolicy(strategy, resetTime); err != nil {
		return nil, err
	}

	coefficient := spec.UsageCoefficient
	if coefficient <= 0 {
		coefficient = 1.0
	}

	apiKey, err := m.vault.EncryptAPIKey(security.GenerateAPIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt API key: %w", err)
	}

	node := &types.Node{
		Name:             spec.Name,
		Address:          spec.Address,
		Port:             spec.Port,
		APIKey:           apiKey,
		Labels:           spec.Labels,
		Status:           types.NodeStatusConnecting,
		DataLimit:        spec.DataLimit,
		UsageCoefficient: coefficient,
		ResetStrategy:    strategy,
		ResetTime:        resetTime,
		CreatedAt:        time.Now().UTC(),
	}
	if err := m.store.CreateNode(node); err != nil {
		return nil, err
	}

	m.logger.Info().Uint64("node_id", node.ID).Str("name", node.Name).Msg("node added")
	m.PublishEvent(&events.Event{Type: events.EventNodeJoined, NodeID: node.ID})
	return node, nil
}

// ModifyNode applies an updated spec to an existing node. Recorded
// reachability and the versions reported by the old configuration no
// longer mean anything, so the node's message and versions are cleared
// and any active node goes back to connecting for the monitor to
// re-probe. Disabled nodes stay disabled, and a limited node stays
// limited unless the new limit clears its current usage.
func (m *Manager) ModifyNode(id uint64, spec NodeSpec) (*types.Node, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	if err := reset.ValidatePolicy(spec.ResetStrategy, spec.ResetTime); err != nil {
		return nil, err
	}

	node, err := m.store.GetNode(id)
	if err != nil {
		return nil, err
	}

	if spec.Name != node.Name {
		if _, err := m.store.GetNodeByName(spec.Name); err == nil {
			return nil, fmt.Errorf("node name already exists: %s", spec.Name)
		}
	}

	node.Name = spec.Name
	node.Address = spec.Address
	node.Port = spec.Port
	node.Labels = spec.Labels
	node.DataLimit = spec.DataLimit
	if spec.UsageCoefficient > 0 {
		node.UsageCoefficient = spec.UsageCoefficient
	}
	node.ResetStrategy = spec.ResetStrategy
	node.ResetTime = spec.ResetTime

	node.Message = ""
	node.CoreVersion = ""
	node.NodeVersion = ""

	// Raising the limit above current usage releases a limited node;
	// otherwise limited and disabled statuses survive the modify.
	releaseLimited := node.Status == types.NodeStatusLimited && !node.OverLimit()
	if releaseLimited || (node.Status != types.NodeStatusDisabled && node.Status != types.NodeStatusLimited) {
		node.Status = types.NodeStatusConnecting
		node.LastStatusChange = time.Now().UTC()
	}

	if err := m.store.UpdateNode(node); err != nil {
		return nil, err
	}
	m.PublishEvent(&events.Event{Type: events.EventNodeModified, NodeID: node.ID})
	return node, nil
}

// RemoveNode deletes a node and everything recorded about it
func (m *Manager) RemoveNode(id uint64) error {
	if err := m.store.DeleteNode(id); err != nil {
		return err
	}
	metrics.NodeUplinkBytes.DeleteLabelValues(fmt.Sprint(id))
	metrics.NodeDownlinkBytes.DeleteLabelValues(fmt.Sprint(id))

	m.logger.Info().Uint64("node_id", id).Msg("node removed")
	m.PublishEvent(&events.Event{Type: events.EventNodeRemoved, NodeID: id})
	return nil
}

// DisableNode takes a node out of rotation. Disabled nodes are never
// probed, reconciled, or usage-reset.
func (m *Manager) DisableNode(id uint64) (*types.Node, error) {
	node, err := m.setStatus(id, types.NodeStatusDisabled, "disabled by operator")
	if err != nil {
		return nil, err
	}
	m.PublishEvent(&events.Event{Type: events.EventNodeDisabled, NodeID: id})
	return node, nil
}

// EnableNode puts a disabled node back into rotation in connecting
// state; the monitor promotes it once it answers a probe
func (m *Manager) EnableNode(id uint64) (*types.Node, error) {
	node, err := m.store.GetNode(id)
	if err != nil {
		return nil, err
	}
	if node.Status != types.NodeStatusDisabled {
		return nil, fmt.Errorf("node %d is not disabled", id)
	}

	node, err = m.setStatus(id, types.NodeStatusConnecting, "")
	if err != nil {
		return nil, err
	}
	m.PublishEvent(&events.Event{Type: events.EventNodeEnabled, NodeID: id})
	return node, nil
}

func (m *Manager) setStatus(id uint64, status types.NodeStatus, message string) (*types.Node, error) {
	node, err := m.store.GetNode(id)
	if err != nil {
		return nil, err
	}

	err = m.store.UpdateStatusBatch([]types.StatusUpdate{{
		NodeID:      id,
		Status:      status,
		Message:     message,
		CoreVersion: node.CoreVersion,
		NodeVersion: node.NodeVersion,
		Timestamp:   time.Now().UTC(),
	}})
	if err != nil {
		return nil, err
	}
	return m.store.GetNode(id)
}

// GetNode returns a single node
func (m *Manager) GetNode(id uint64) (*types.Node, error) {
	return m.store.GetNode(id)
}

// GetNodeByName returns a single node by its unique name
func (m *Manager) GetNodeByName(name string) (*types.Node, error) {
	return m.store.GetNodeByName(name)
}

// ListNodes returns nodes, optionally filtered by status
func (m *Manager) ListNodes(statuses ...types.NodeStatus) ([]*types.Node, error) {
	return m.store.ListNodes(statuses...)
}

// Usage accounting

// RecordUsage folds a usage report from a node into its counters and
// the exported gauges. The store scales the report by the node's usage
// coefficient before it is accumulated.
func (m *Manager) RecordUsage(id uint64, uplink, downlink uint64) (*types.Node, error) {
	node, err := m.store.AddUsage(id, uplink, downlink)
	if err != nil {
		return nil, err
	}

	label := fmt.Sprint(node.ID)
	metrics.NodeUplinkBytes.WithLabelValues(label).Set(float64(node.Uplink))
	metrics.NodeDownlinkBytes.WithLabelValues(label).Set(float64(node.Downlink))
	return node, nil
}

// RecordNodeStat stores one host-metric sample reported by a node.
// The sample is stamped with the node's ID, and with the current UTC
// time when the report carries no timestamp of its own.
func (m *Manager) RecordNodeStat(id uint64, stat types.NodeStat) error {
	if _, err := m.store.GetNode(id); err != nil {
		return err
	}
	stat.NodeID = id
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}
	return m.store.AppendNodeStat(&stat)
}

// NodeStats returns the host-metric samples recorded for a node
// between start and end.
func (m *Manager) NodeStats(id uint64, start, end time.Time) ([]*types.NodeStat, error) {
	if _, err := m.store.GetNode(id); err != nil {
		return nil, err
	}
	return m.store.NodeStats(id, start, end)
}

// ResetNodeUsage performs an operator-triggered usage reset for one
// node, independent of its schedule
func (m *Manager) ResetNodeUsage(id uint64) (*types.Node, error) {
	node, err := m.store.ResetUsage(id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	metrics.UsageResetsTotal.Inc()

	m.logger.Info().Uint64("node_id", id).Msg("usage reset by operator")
	m.PublishEvent(&events.Event{Type: events.EventUsageReset, NodeID: id})
	return node, nil
}

// Secrets and certificates

// NodeAPIKey decrypts and returns a node's API key
func (m *Manager) NodeAPIKey(id uint64) (string, error) {
	node, err := m.store.GetNode(id)
	if err != nil {
		return "", err
	}
	return m.vault.DecryptAPIKey(node.APIKey)
}

// RotateNodeAPIKey replaces a node's API key with a fresh one and
// returns the plaintext for delivery to the node
func (m *Manager) RotateNodeAPIKey(id uint64) (string, error) {
	node, err := m.store.GetNode(id)
	if err != nil {
		return "", err
	}

	plain := security.GenerateAPIKey()
	enc, err := m.vault.EncryptAPIKey(plain)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt API key: %w", err)
	}
	node.APIKey = enc
	if err := m.store.UpdateNode(node); err != nil {
		return "", err
	}
	return plain, nil
}

// IssueNodeCertificate issues a TLS certificate for a node and writes
// the PEM bundle under the data directory. Returns the bundle path.
func (m *Manager) IssueNodeCertificate(id uint64) (string, error) {
	node, err := m.store.GetNode(id)
	if err != nil {
		return "", err
	}

	var ips []net.IP
	if ip := net.ParseIP(node.Address); ip != nil {
		ips = append(ips, ip)
	}
	var dnsNames []string
	if len(ips) == 0 && node.Address != "" {
		dnsNames = append(dnsNames, node.Address)
	}

	cert, err := m.ca.IssueNodeCertificate(node.Name, dnsNames, ips)
	if err != nil {
		return "", err
	}

	dir := security.NodeCertDir(m.dataDir, node.Name)
	if err := security.ExportCertBundle(cert, m.ca.RootCertificate(), dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Shutdown releases the manager's resources
func (m *Manager) Shutdown() error {
	m.eventBroker.Stop()
	return m.store.Close()
}

func validateSpec(spec NodeSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("node name is required")
	}
	if spec.Address == "" {
		return fmt.Errorf("node address is required")
	}
	if spec.Port <= 0 || spec.Port > 65535 {
		return fmt.Errorf("node port must be 1-65535, got %d", spec.Port)
	}
	if spec.UsageCoefficient < 0 {
		return fmt.Errorf("usage coefficient must be positive, got %f", spec.UsageCoefficient)
	}
	return nil
}
