package security

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCAStore struct {
	data []byte
}

func (m *memCAStore) CAData() ([]byte, error) {
	if m.data == nil {
		return nil, ErrCANotFound
	}
	return m.data, nil
}

func (m *memCAStore) SaveCAData(data []byte) error {
	m.data = data
	return nil
}

func newCA(t *testing.T, store *memCAStore) *CertAuthority {
	t.Helper()
	vault, err := NewKeyVaultFromSecret("test-secret")
	require.NoError(t, err)
	return NewCertAuthority(store, vault)
}

func TestEnsure_FirstRunGeneratesAndPersists(t *testing.T) {
	store := &memCAStore{}
	ca := newCA(t, store)

	assert.False(t, ca.IsInitialized())
	require.NoError(t, ca.Ensure())
	assert.True(t, ca.IsInitialized())
	assert.NotNil(t, store.data, "authority persisted on first run")
	assert.NotNil(t, ca.RootCertificate())
}

func TestEnsure_ReloadsPersistedAuthority(t *testing.T) {
	store := &memCAStore{}

	first := newCA(t, store)
	require.NoError(t, first.Ensure())

	second := newCA(t, store)
	require.NoError(t, second.Ensure())
	assert.Equal(t, first.RootCertificate(), second.RootCertificate(),
		"reload must not mint a new root")
}

func TestLoadFromStore_WrongVaultSecret(t *testing.T) {
	store := &memCAStore{}
	require.NoError(t, newCA(t, store).Ensure())

	otherVault, err := NewKeyVaultFromSecret("different-secret")
	require.NoError(t, err)
	ca := NewCertAuthority(store, otherVault)
	assert.Error(t, ca.LoadFromStore(), "root key must not decrypt under a different secret")
}

func TestIssueNodeCertificate(t *testing.T) {
	ca := newCA(t, &memCAStore{})
	require.NoError(t, ca.Ensure())

	cert, err := ca.IssueNodeCertificate("edge-1",
		[]string{"edge-1.example.com"},
		[]net.IP{net.ParseIP("10.0.0.5")},
	)
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)

	assert.Equal(t, "node-edge-1", cert.Leaf.Subject.CommonName)
	assert.Contains(t, cert.Leaf.DNSNames, "edge-1.example.com")
	require.NoError(t, ca.VerifyCertificate(cert.Leaf))

	cached, ok := ca.CachedCertificate("edge-1")
	require.True(t, ok)
	assert.Equal(t, cert.Leaf.SerialNumber, cached.Cert.SerialNumber)
}

func TestIssueNodeCertificate_Uninitialized(t *testing.T) {
	ca := newCA(t, &memCAStore{})
	_, err := ca.IssueNodeCertificate("edge-1", nil, nil)
	assert.Error(t, err)
}

func TestVerifyCertificate_ForeignRoot(t *testing.T) {
	ours := newCA(t, &memCAStore{})
	require.NoError(t, ours.Ensure())

	theirs := newCA(t, &memCAStore{})
	require.NoError(t, theirs.Ensure())

	cert, err := theirs.IssueNodeCertificate("impostor", nil, nil)
	require.NoError(t, err)
	assert.Error(t, ours.VerifyCertificate(cert.Leaf))
}
