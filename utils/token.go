package utils

import (
	"sync"
	"time"
)

// TokenBlacklist remembers logged-out tokens until they would have expired
// anyway.
type TokenBlacklist struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

// Revoked is the process-wide blacklist consulted by ParseToken.
var Revoked = NewTokenBlacklist()

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{tokens: make(map[string]time.Time)}
}

func (b *TokenBlacklist) Revoke(token string, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = until
}

func (b *TokenBlacklist) IsRevoked(token string) bool {
	b.mu.RLock()
	until, ok := b.tokens[token]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().Before(until) {
		return true
	}

	b.mu.Lock()
	delete(b.tokens, token)
	b.mu.Unlock()
	return false
}

// Cleanup drops entries that have expired and returns how many remain.
func (b *TokenBlacklist) Cleanup() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	for token, until := range b.tokens {
		if now.After(until) {
			delete(b.tokens, token)
		}
	}
	return len(b.tokens)
}

// RevokeToken blacklists tokenString until its own expiry.
func RevokeToken(tokenString string) error {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return err
	}
	until := time.Now().Add(TokenTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	Revoked.Revoke(tokenString, until)
	return nil
}
