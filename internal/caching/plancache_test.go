package caching

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanCacheCompilesPerSchema(t *testing.T) {
	cache := NewPlanCache()
	cache.Register(map[string]string{
		"users.get": "SELECT id FROM {schema}.users WHERE id = $1",
	})

	acme := cache.Plan("tenant_acme")
	globex := cache.Plan("tenant_globex")

	assert.Equal(t, "SELECT id FROM tenant_acme.users WHERE id = $1", acme.Statement("users.get"))
	assert.Equal(t, "SELECT id FROM tenant_globex.users WHERE id = $1", globex.Statement("users.get"))
}

func TestPlanCacheReusesCompiledPlan(t *testing.T) {
	cache := NewPlanCache()
	cache.Register(map[string]string{"q": "SELECT 1 FROM {schema}.t"})

	first := cache.Plan("tenant_acme")
	second := cache.Plan("tenant_acme")
	assert.Same(t, first, second)
}

func TestPlanCacheInvalidate(t *testing.T) {
	cache := NewPlanCache()
	cache.Register(map[string]string{"q": "SELECT 1 FROM {schema}.t"})

	first := cache.Plan("tenant_acme")
	cache.Invalidate("tenant_acme")
	second := cache.Plan("tenant_acme")

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Statement("q"), second.Statement("q"))
}

func TestPlanCacheDuplicateRegisterPanics(t *testing.T) {
	cache := NewPlanCache()
	cache.Register(map[string]string{"q": "SELECT 1"})
	assert.Panics(t, func() {
		cache.Register(map[string]string{"q": "SELECT 2"})
	})
}

func TestPlanCacheUnknownStatementPanics(t *testing.T) {
	cache := NewPlanCache()
	cache.Register(map[string]string{"q": "SELECT 1"})
	assert.Panics(t, func() {
		cache.Plan("tenant_acme").Statement("missing")
	})
}

func TestPlanCacheConcurrentAccess(t *testing.T) {
	cache := NewPlanCache()
	cache.Register(map[string]string{"q": "SELECT 1 FROM {schema}.t"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			plan := cache.Plan("tenant_acme")
			assert.Equal(t, "SELECT 1 FROM tenant_acme.t", plan.Statement("q"))
		}()
	}
	wg.Wait()
}
