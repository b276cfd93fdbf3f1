package database

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTokenNotFound is returned when an access token is unknown or expired.
var ErrTokenNotFound = errors.New("access token not found")

// AccessGrant is what an access token resolves to.
type AccessGrant struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// TokenCache maps short-lived access tokens to their grant.
type TokenCache interface {
	SetAccessToken(ctx context.Context, token string, grant AccessGrant, ttl time.Duration) error
	GetAccessToken(ctx context.Context, token string) (AccessGrant, error)
	DeleteAccessToken(ctx context.Context, token string) error
}

// MemoryCache is a TokenCache for single-process use and tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	grant   AccessGrant
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) SetAccessToken(_ context.Context, token string, grant AccessGrant, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = memoryEntry{grant: grant, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryCache) GetAccessToken(_ context.Context, token string) (AccessGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return AccessGrant{}, ErrTokenNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, token)
		return AccessGrant{}, ErrTokenNotFound
	}
	return e.grant, nil
}

func (m *MemoryCache) DeleteAccessToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}
