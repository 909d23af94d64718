package caching

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"staffhub/internal/models"
)

func TestDirectoryCacheHitAndMiss(t *testing.T) {
	cache := NewDirectoryCache(time.Minute)
	tenant := &models.Tenant{ID: uuid.New(), Subdomain: "acme", IsActive: true}

	_, ok := cache.Get("acme")
	assert.False(t, ok)

	cache.Set("acme", tenant)
	got, ok := cache.Get("acme")
	assert.True(t, ok)
	assert.Equal(t, tenant.ID, got.ID)
}

func TestDirectoryCacheReturnsCopy(t *testing.T) {
	cache := NewDirectoryCache(time.Minute)
	cache.Set("acme", &models.Tenant{ID: uuid.New(), Subdomain: "acme"})

	first, _ := cache.Get("acme")
	first.Subdomain = "mutated"

	second, _ := cache.Get("acme")
	assert.Equal(t, "acme", second.Subdomain)
}

func TestDirectoryCacheExpiry(t *testing.T) {
	cache := NewDirectoryCache(10 * time.Millisecond)
	cache.Set("acme", &models.Tenant{ID: uuid.New(), Subdomain: "acme"})

	time.Sleep(20 * time.Millisecond)
	_, ok := cache.Get("acme")
	assert.False(t, ok)
}

func TestDirectoryCacheInvalidate(t *testing.T) {
	cache := NewDirectoryCache(time.Minute)
	cache.Set("acme", &models.Tenant{ID: uuid.New(), Subdomain: "acme"})

	cache.Invalidate("acme")
	_, ok := cache.Get("acme")
	assert.False(t, ok)
}
