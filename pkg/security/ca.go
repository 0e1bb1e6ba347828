package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"
)

// ErrCANotFound is returned by a CAStore when no authority has been
// persisted yet
var ErrCANotFound = errors.New("certificate authority not found")

// CAStore persists the serialized certificate authority
type CAStore interface {
	CAData() ([]byte, error)
	SaveCAData(data []byte) error
}

// CertAuthority issues the TLS client certificates nodes use to
// authenticate their connection to the panel. The root key is
// encrypted with the panel's key vault before it touches the store.
type CertAuthority struct {
	rootCert  *x509.Certificate
	rootKey   *rsa.PrivateKey
	store     CAStore
	vault     *KeyVault
	certCache map[string]*CachedCert
	mu        sync.RWMutex
}

// CachedCert is an issued certificate kept in memory for re-download
type CachedCert struct {
	Cert      *x509.Certificate
	Key       *rsa.PrivateKey
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type caData struct {
	RootCertDER []byte
	RootKeyDER  []byte // encrypted
}

const (
	// Root CA validity: 10 years
	rootCAValidity = 10 * 365 * 24 * time.Hour
	// Node certificate validity: 90 days
	nodeCertValidity = 90 * 24 * time.Hour
	// Root CA key size: 4096 bits (long-lived)
	rootKeySize = 4096
	// Node key size: 2048 bits (rotated every 90 days)
	nodeKeySize = 2048
)

// NewCertAuthority creates a new certificate authority
func NewCertAuthority(store CAStore, vault *KeyVault) *CertAuthority {
	return &CertAuthority{
		store:     store,
		vault:     vault,
		certCache: make(map[string]*CachedCert),
	}
}

// Ensure loads the persisted authority, generating and saving a fresh
// one on first run
func (ca *CertAuthority) Ensure() error {
	err := ca.LoadFromStore()
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCANotFound) {
		return err
	}
	if err := ca.Initialize(); err != nil {
		return err
	}
	return ca.SaveToStore()
}

// Initialize generates a new self-signed root certificate
func (ca *CertAuthority) Initialize() error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	rootKey, err := rsa.GenerateKey(rand.Reader, rootKeySize)
	if err != nil {
		return fmt.Errorf("failed to generate root key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Panel"},
			CommonName:   "Panel Root CA",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(rootCAValidity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &rootKey.PublicKey, rootKey)
	if err != nil {
		return fmt.Errorf("failed to create root certificate: %w", err)
	}
	rootCert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return fmt.Errorf("failed to parse root certificate: %w", err)
	}

	ca.rootCert = rootCert
	ca.rootKey = rootKey
	return nil
}

// LoadFromStore loads the authority from storage
func (ca *CertAuthority) LoadFromStore() error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	data, err := ca.store.CAData()
	if err != nil {
		return err
	}

	var stored caData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal CA data: %w", err)
	}

	keyDER, err := ca.vault.Decrypt(stored.RootKeyDER)
	if err != nil {
		return fmt.Errorf("failed to decrypt root key: %w", err)
	}

	rootCert, err := x509.ParseCertificate(stored.RootCertDER)
	if err != nil {
		return fmt.Errorf("failed to parse root certificate: %w", err)
	}
	rootKey, err := x509.ParsePKCS1PrivateKey(keyDER)
	if err != nil {
		return fmt.Errorf("failed to parse root key: %w", err)
	}

	ca.rootCert = rootCert
	ca.rootKey = rootKey
	return nil
}

// SaveToStore persists the authority with the root key encrypted
func (ca *CertAuthority) SaveToStore() error {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	if ca.rootCert == nil || ca.rootKey == nil {
		return fmt.Errorf("CA not initialized")
	}

	encryptedKey, err := ca.vault.Encrypt(x509.MarshalPKCS1PrivateKey(ca.rootKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt root key: %w", err)
	}

	data, err := json.Marshal(caData{
		RootCertDER: ca.rootCert.Raw,
		RootKeyDER:  encryptedKey,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal CA data: %w", err)
	}
	return ca.store.SaveCAData(data)
}

// IssueNodeCertificate issues a certificate for a node. Nodes present
// it as a client certificate toward the panel and serve it on their
// own port, so both usages are set.
func (ca *CertAuthority) IssueNodeCertificate(nodeName string, dnsNames []string, ipAddresses []net.IP) (*tls.Certificate, error) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.rootCert == nil || ca.rootKey == nil {
		return nil, fmt.Errorf("CA not initialized")
	}

	nodeKey, err := rsa.GenerateKey(rand.Reader, nodeKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate node key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Panel"},
			CommonName:   fmt.Sprintf("node-%s", nodeName),
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().Add(nodeCertValidity),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		DNSNames:    dnsNames,
		IPAddresses: ipAddresses,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, ca.rootCert, &nodeKey.PublicKey, ca.rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create node certificate: %w", err)
	}
	nodeCert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse node certificate: %w", err)
	}

	ca.certCache[nodeName] = &CachedCert{
		Cert:      nodeCert,
		Key:       nodeKey,
		IssuedAt:  nodeCert.NotBefore,
		ExpiresAt: nodeCert.NotAfter,
	}

	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  nodeKey,
		Leaf:        nodeCert,
	}, nil
}

// VerifyCertificate verifies a certificate against the root
func (ca *CertAuthority) VerifyCertificate(cert *x509.Certificate) error {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	if ca.rootCert == nil {
		return fmt.Errorf("CA not initialized")
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca.rootCert)

	opts := x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}
	if _, err := cert.Verify(opts); err != nil {
		return fmt.Errorf("certificate verification failed: %w", err)
	}
	return nil
}

// RootCertificate returns the root certificate in DER form, or nil
// before initialization
func (ca *CertAuthority) RootCertificate() []byte {
	ca.mu.RLock()
	defer ca.mu.RUnlock()

	if ca.rootCert == nil {
		return nil
	}
	return ca.rootCert.Raw
}

// IsInitialized reports whether the authority holds a root key pair
func (ca *CertAuthority) IsInitialized() bool {
	ca.mu.RLock()
	defer ca.mu.RUnlock()
	return ca.rootCert != nil && ca.rootKey != nil
}

// CachedCertificate retrieves a previously issued certificate by node
// name
func (ca *CertAuthority) CachedCertificate(nodeName string) (*CachedCert, bool) {
	ca.mu.RLock()
	defer ca.mu.RUnlock()
	cert, exists := ca.certCache[nodeName]
	return cert, exists
}
