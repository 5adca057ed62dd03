package auth

import "sync"

// TokenBlacklist stores revoked tokens for the lifetime of the process. It
// is constructed at startup and injected wherever revocation is checked; a
// restart clears it, which is acceptable for a single-instance deployment.
type TokenBlacklist struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

// NewTokenBlacklist creates an empty blacklist.
func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{revoked: make(map[string]struct{})}
}

// Revoke marks a token as no longer valid.
func (b *TokenBlacklist) Revoke(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = struct{}{}
}

// Revoked reports whether the token has been revoked.
func (b *TokenBlacklist) Revoked(token string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.revoked[token]
	return ok
}
