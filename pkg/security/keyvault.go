package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// KeyVault encrypts node API keys at rest using AES-256-GCM. The
// store only ever sees ciphertext; callers decrypt on the way out.
type KeyVault struct {
	encryptionKey []byte // 32 bytes for AES-256
}

// NewKeyVault creates a key vault from a raw 32-byte key
func NewKeyVault(key []byte) (*KeyVault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d", len(key))
	}
	return &KeyVault{encryptionKey: key}, nil
}

// NewKeyVaultFromSecret creates a key vault from the panel's
// configured secret string, hashed with SHA-256 to derive the key
func NewKeyVaultFromSecret(secret string) (*KeyVault, error) {
	if secret == "" {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	hash := sha256.Sum256([]byte(secret))
	return NewKeyVault(hash[:])
}

// GenerateAPIKey produces a fresh API key for a joining node
func GenerateAPIKey() string {
	return uuid.New().String()
}

// Encrypt encrypts arbitrary data with the vault key, returning the
// ciphertext with the nonce prepended
func (v *KeyVault) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("cannot encrypt empty data")
	}

	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt
func (v *KeyVault) Decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := v.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptAPIKey encrypts a plaintext API key and returns it
// base64-encoded
func (v *KeyVault) EncryptAPIKey(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("cannot encrypt empty key")
	}
	ciphertext, err := v.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptAPIKey reverses EncryptAPIKey
func (v *KeyVault) DecryptAPIKey(encoded string) (string, error) {
	if encoded == "" {
		return "", fmt.Errorf("cannot decrypt empty key")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("malformed encrypted key: %w", err)
	}
	plaintext, err := v.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (v *KeyVault) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
