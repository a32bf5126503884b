package federated

import (
	"context"
	"sync"
	"time"
)

// CertCache holds the provider's signing certificates (key id -> PEM) until
// the expiry the provider advertised.
type CertCache interface {
	Get(ctx context.Context) (map[string]string, bool)
	Set(ctx context.Context, certs map[string]string, ttl time.Duration)
}

// MemoryCertCache keeps certificates in process memory.
type MemoryCertCache struct {
	mu        sync.RWMutex
	certs     map[string]string
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryCertCache() *MemoryCertCache {
	return &MemoryCertCache{now: time.Now}
}

func (c *MemoryCertCache) Get(context.Context) (map[string]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.certs == nil || !c.now().Before(c.expiresAt) {
		return nil, false
	}
	return c.certs, true
}

func (c *MemoryCertCache) Set(_ context.Context, certs map[string]string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.certs = certs
	c.expiresAt = c.now().Add(ttl)
}
