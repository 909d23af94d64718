package repositories

import (
	"context"

	"github.com/google/uuid"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/models"
)

// ModuleRepository covers the shared module catalog (public schema), the
// per-tenant subscriptions, and the per-tenant configuration record.
type ModuleRepository interface {
	UpsertCatalog(ctx context.Context, catalog []models.Module) error
	EnableModules(ctx context.Context, tc common.TenantContext, keys []string) error
	EnabledKeys(ctx context.Context, tc common.TenantContext) ([]string, error)
	EnsureConfig(ctx context.Context, tc common.TenantContext) error
	ConfigExists(ctx context.Context, tc common.TenantContext) (bool, error)
}

var moduleQueries = map[string]string{
	"tenant_modules.enable": `
		INSERT INTO {schema}.tenant_modules (module_key, enabled, created_at)
		VALUES ($1, TRUE, NOW())
		ON CONFLICT (module_key) DO UPDATE SET enabled = TRUE
	`,
	"tenant_modules.enabled_keys": `
		SELECT module_key
		FROM {schema}.tenant_modules
		WHERE enabled = TRUE
		ORDER BY module_key
	`,
	"tenant_config.ensure": `
		INSERT INTO {schema}.tenant_config (id, settings, created_at, updated_at)
		SELECT $1, '{}', NOW(), NOW()
		WHERE NOT EXISTS (SELECT 1 FROM {schema}.tenant_config)
	`,
	"tenant_config.exists": `
		SELECT EXISTS (SELECT 1 FROM {schema}.tenant_config)
	`,
}

type moduleRepo struct {
	db    Database
	plans *caching.PlanCache
}

func NewModuleRepo(db Database, plans *caching.PlanCache) ModuleRepository {
	plans.Register(moduleQueries)
	return &moduleRepo{db: db, plans: plans}
}

// UpsertCatalog is tenant-independent reference data; repeated provisioning
// calls settle on the same catalog.
func (r *moduleRepo) UpsertCatalog(ctx context.Context, catalog []models.Module) error {
	query := `
		INSERT INTO public.modules (key, name, description, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description
	`
	for _, m := range catalog {
		if _, err := r.db.Exec(ctx, query, m.Key, m.Name, m.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *moduleRepo) EnableModules(ctx context.Context, tc common.TenantContext, keys []string) error {
	if !tc.Valid() {
		return common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("tenant_modules.enable")
	for _, key := range keys {
		if _, err := r.db.Exec(ctx, query, key); err != nil {
			return err
		}
	}
	return nil
}

func (r *moduleRepo) EnabledKeys(ctx context.Context, tc common.TenantContext) ([]string, error) {
	if !tc.Valid() {
		return nil, common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("tenant_modules.enabled_keys")
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// EnsureConfig creates the empty configuration record once per schema. The
// config row is written by the last provisioning phase, so its presence doubles
// as the "fully provisioned" marker.
func (r *moduleRepo) EnsureConfig(ctx context.Context, tc common.TenantContext) error {
	if !tc.Valid() {
		return common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("tenant_config.ensure")
	_, err := r.db.Exec(ctx, query, uuid.New())
	return err
}

func (r *moduleRepo) ConfigExists(ctx context.Context, tc common.TenantContext) (bool, error) {
	if !tc.Valid() {
		return false, common.ErrMissingTenantContext
	}
	var exists bool
	query := r.plans.Plan(tc.SchemaName).Statement("tenant_config.exists")
	err := r.db.QueryRow(ctx, query).Scan(&exists)
	return exists, err
}
