package models

import (
	"time"

	"github.com/google/uuid"

	"staffhub/internal/common"
)

type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Subdomain string    `json:"subdomain" db:"subdomain"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SchemaName derives the tenant's schema; it is never stored or read from
// free text.
func (t *Tenant) SchemaName() string {
	return common.SchemaNameFor(t.Subdomain, t.ID)
}

// Context builds the request-scoped TenantContext for this tenant.
func (t *Tenant) Context() common.TenantContext {
	return common.TenantContext{TenantID: t.ID, SchemaName: t.SchemaName()}
}
