package caching

import (
	"fmt"
	"strings"
	"sync"
)

// SchemaToken is the placeholder repositories use in their SQL templates; it
// is replaced with the tenant's schema name when a plan is compiled.
const SchemaToken = "{schema}"

// CompiledPlan holds the schema-qualified statement set for one tenant schema.
// A plan is immutable once compiled and safe for concurrent use.
type CompiledPlan struct {
	Schema string
	stmts  map[string]string
}

// Statement returns the compiled SQL for a registered statement name. An
// unknown name is a programming error, not a runtime condition.
func (p *CompiledPlan) Statement(name string) string {
	stmt, ok := p.stmts[name]
	if !ok {
		panic(fmt.Sprintf("caching: no statement %q compiled for schema %s", name, p.Schema))
	}
	return stmt
}

// PlanCache keeps one CompiledPlan per schema so statement construction runs
// once per tenant, never shared across schemas. Repositories register their
// templates at startup; plans compile lazily on first use and are dropped only
// when a schema is renamed or removed.
//
// Substituting the schema name directly into SQL is safe here because every
// schema name is produced by common.SchemaNameFor and therefore matches
// [a-z0-9_]+ with a fixed prefix.
type PlanCache struct {
	mu        sync.RWMutex
	templates map[string]string
	plans     map[string]*CompiledPlan
}

func NewPlanCache() *PlanCache {
	return &PlanCache{
		templates: make(map[string]string),
		plans:     make(map[string]*CompiledPlan),
	}
}

// Register adds statement templates. Called from repository constructors
// before the server starts serving; duplicate names are a programming error.
func (c *PlanCache) Register(templates map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, tmpl := range templates {
		if _, exists := c.templates[name]; exists {
			panic(fmt.Sprintf("caching: statement %q registered twice", name))
		}
		c.templates[name] = tmpl
	}
}

// Plan returns the compiled statement set for a schema, compiling it on first
// use. The read path takes only the shared lock.
func (c *PlanCache) Plan(schema string) *CompiledPlan {
	c.mu.RLock()
	plan, ok := c.plans[schema]
	c.mu.RUnlock()
	if ok {
		return plan
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if plan, ok := c.plans[schema]; ok {
		return plan
	}
	plan = &CompiledPlan{Schema: schema, stmts: make(map[string]string, len(c.templates))}
	for name, tmpl := range c.templates {
		plan.stmts[name] = strings.ReplaceAll(tmpl, SchemaToken, schema)
	}
	c.plans[schema] = plan
	return plan
}

// Invalidate drops the plan for a schema after it is renamed or removed.
func (c *PlanCache) Invalidate(schema string) {
	c.mu.Lock()
	delete(c.plans, schema)
	c.mu.Unlock()
}
