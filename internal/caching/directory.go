package caching

import (
	"sync"
	"time"

	"staffhub/internal/models"
)

// DefaultDirectoryTTL bounds how long a resolved tenant may be served without
// re-reading the registry.
const DefaultDirectoryTTL = 30 * time.Minute

// DirectoryCache maps subdomain to tenant metadata so the resolver does not
// hit storage on every request. Only positive results are cached; a miss for a
// just-created tenant must fall through to storage. Reads never block other
// reads.
type DirectoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]directoryEntry
}

type directoryEntry struct {
	tenant    models.Tenant
	expiresAt time.Time
}

func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &DirectoryCache{
		ttl:     ttl,
		entries: make(map[string]directoryEntry),
	}
}

// Get returns the cached tenant for a subdomain. Expired entries count as a miss.
func (c *DirectoryCache) Get(subdomain string) (*models.Tenant, bool) {
	c.mu.RLock()
	entry, ok := c.entries[subdomain]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	t := entry.tenant
	return &t, true
}

// Set caches a successfully resolved tenant. The tenant is copied so later
// mutation by the caller cannot reach other requests.
func (c *DirectoryCache) Set(subdomain string, tenant *models.Tenant) {
	if tenant == nil {
		return
	}
	c.mu.Lock()
	c.entries[subdomain] = directoryEntry{tenant: *tenant, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops a subdomain entry, used after provisioning, rename, or
// deactivation so stale metadata cannot outlive the change.
func (c *DirectoryCache) Invalidate(subdomain string) {
	c.mu.Lock()
	delete(c.entries, subdomain)
	c.mu.Unlock()
}
