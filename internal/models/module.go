package models

import (
	"time"

	"github.com/google/uuid"
)

// Module is shared, tenant-independent reference data in the public schema.
type Module struct {
	Key         string    `json:"key" db:"key"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ModuleCatalog is the fixed catalog upserted idempotently at provisioning time.
var ModuleCatalog = []Module{
	{Key: "core_hr", Name: "Core HR", Description: "Employee records and org structure"},
	{Key: "payroll", Name: "Payroll", Description: "Salary processing and payslips"},
	{Key: "leave", Name: "Leave", Description: "Leave requests and balances"},
	{Key: "attendance", Name: "Attendance", Description: "Time tracking and shifts"},
	{Key: "compliance", Name: "Compliance", Description: "Statutory filings and registers"},
	{Key: "reports", Name: "Reports", Description: "Cross-module reporting"},
}

// DefaultModuleKeys are enabled for every freshly provisioned tenant.
var DefaultModuleKeys = []string{"core_hr", "leave", "attendance"}

// TenantModule records a tenant's subscription to a catalog module; rows live
// in the tenant's schema.
type TenantModule struct {
	ModuleKey string    `json:"module_key" db:"module_key"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TenantConfig is the per-tenant configuration record, created empty at
// provisioning time.
type TenantConfig struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	Settings  map[string]string `json:"settings" db:"settings"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}
