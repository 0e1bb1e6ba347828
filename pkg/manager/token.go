package manager

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// TokenManager manages one-time node enrollment tokens. An operator
// mints a token for a node record; the node presents it once while
// fetching its API key and certificate bundle.
type TokenManager struct {
	tokens map[string]*EnrollmentToken
	mu     sync.RWMutex
}

// EnrollmentToken authorizes a single node enrollment
type EnrollmentToken struct {
	Token     string
	NodeID    uint64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager() *TokenManager {
	return &TokenManager{
		tokens: make(map[string]*EnrollmentToken),
	}
}

// GenerateToken mints an enrollment token for a node
func (tm *TokenManager) GenerateToken(nodeID uint64, duration time.Duration) (*EnrollmentToken, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to generate random token: %w", err)
	}

	et := &EnrollmentToken{
		Token:     hex.EncodeToString(bytes),
		NodeID:    nodeID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(duration),
	}

	tm.mu.Lock()
	tm.tokens[et.Token] = et
	tm.mu.Unlock()
	return et, nil
}

// ConsumeToken validates a token, returns the node it enrolls, and
// invalidates it. A token authorizes exactly one enrollment.
func (tm *TokenManager) ConsumeToken(token string) (uint64, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	et, exists := tm.tokens[token]
	if !exists {
		return 0, fmt.Errorf("invalid token")
	}
	delete(tm.tokens, token)

	if time.Now().After(et.ExpiresAt) {
		return 0, fmt.Errorf("token expired")
	}
	return et.NodeID, nil
}

// RevokeToken revokes an enrollment token
func (tm *TokenManager) RevokeToken(token string) {
	tm.mu.Lock()
	delete(tm.tokens, token)
	tm.mu.Unlock()
}

// CleanupExpiredTokens removes expired tokens
func (tm *TokenManager) CleanupExpiredTokens() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for token, et := range tm.tokens {
		if now.After(et.ExpiresAt) {
			delete(tm.tokens, token)
		}
	}
}

// ListTokens returns all outstanding tokens
func (tm *TokenManager) ListTokens() []*EnrollmentToken {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tokens := make([]*EnrollmentToken, 0, len(tm.tokens))
	for _, et := range tm.tokens {
		tokens = append(tokens, et)
	}
	return tokens
}
