package security

import (
	"crypto/x509"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportAndLoadCertBundle(t *testing.T) {
	ca := newCA(t, &memCAStore{})
	require.NoError(t, ca.Ensure())

	cert, err := ca.IssueNodeCertificate("edge-1", nil, nil)
	require.NoError(t, err)

	dir := NodeCertDir(t.TempDir(), "edge-1")
	assert.False(t, BundleExists(dir))

	require.NoError(t, ExportCertBundle(cert, ca.RootCertificate(), dir))
	assert.True(t, BundleExists(dir))

	loaded, err := LoadCertBundle(dir)
	require.NoError(t, err)
	assert.Equal(t, cert.Leaf.SerialNumber, loaded.Leaf.SerialNumber)

	root, err := LoadRootCert(dir)
	require.NoError(t, err)
	assert.Equal(t, ca.RootCertificate(), root.Raw)
	require.NoError(t, ca.VerifyCertificate(loaded.Leaf))
}

func TestLoadCertBundle_Missing(t *testing.T) {
	_, err := LoadCertBundle(filepath.Join(t.TempDir(), "nothing"))
	assert.Error(t, err)
}

func TestRemoveBundle(t *testing.T) {
	ca := newCA(t, &memCAStore{})
	require.NoError(t, ca.Ensure())
	cert, err := ca.IssueNodeCertificate("edge-1", nil, nil)
	require.NoError(t, err)

	dir := NodeCertDir(t.TempDir(), "edge-1")
	require.NoError(t, ExportCertBundle(cert, ca.RootCertificate(), dir))
	require.NoError(t, RemoveBundle(dir))
	assert.False(t, BundleExists(dir))
}

func TestCertNeedsRotation(t *testing.T) {
	assert.True(t, CertNeedsRotation(nil))

	fresh := &x509.Certificate{NotAfter: time.Now().Add(60 * 24 * time.Hour)}
	assert.False(t, CertNeedsRotation(fresh))
	assert.Equal(t, fresh.NotAfter, CertExpiry(fresh))

	expiring := &x509.Certificate{NotAfter: time.Now().Add(10 * 24 * time.Hour)}
	assert.True(t, CertNeedsRotation(expiring))

	assert.True(t, CertExpiry(nil).IsZero())
}
