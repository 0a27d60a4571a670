package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// TokenBlacklist is the session revocation store. Logout revokes the
// presented access token; refresh revokes the consumed refresh token so a
// captured one cannot be replayed. Entries carry a TTL equal to the token's
// remaining lifetime, so the store cannot grow past the set of live tokens.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisTokenBlacklist stores revoked tokens in Redis. Tokens are keyed by
// their SHA-256 digest so raw JWTs never land in the keyspace.
type RedisTokenBlacklist struct {
	redis *RedisClient
}

// NewRedisTokenBlacklist constructs a Redis-backed revocation store.
func NewRedisTokenBlacklist(redis *RedisClient) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{redis: redis}
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("blacklist:%s", hex.EncodeToString(sum[:]))
}

// Revoke marks a token string as revoked for ttl. A non-positive ttl means
// the token already expired on its own and there is nothing to store.
func (b *RedisTokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.redis.Set(ctx, blacklistKey(token), "1", ttl)
}

// IsRevoked reports whether the token string has been revoked.
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return b.redis.Exists(ctx, blacklistKey(token))
}

// MemoryTokenBlacklist is a mutex-guarded in-process revocation store.
// Single-instance deployments and tests use it; expired entries are purged
// lazily on lookup.
type MemoryTokenBlacklist struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewMemoryTokenBlacklist constructs an empty in-memory revocation store.
func NewMemoryTokenBlacklist() *MemoryTokenBlacklist {
	return &MemoryTokenBlacklist{revoked: make(map[string]time.Time)}
}

// Revoke marks the token as revoked until now+ttl.
func (b *MemoryTokenBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	b.revoked[token] = time.Now().Add(ttl)
	b.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token is revoked and not yet self-expired.
func (b *MemoryTokenBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	until, ok := b.revoked[token]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		b.mu.Lock()
		delete(b.revoked, token)
		b.mu.Unlock()
		return false, nil
	}
	return true, nil
}
