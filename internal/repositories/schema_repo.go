package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SchemaRepository owns every DDL operation on tenant schemas. Schema names
// reaching these methods are always derived via common.SchemaNameFor, so they
// match [a-z0-9_]+; pgx.Identifier quoting is kept anyway.
type SchemaRepository interface {
	EnsureRegistry(ctx context.Context) error
	CreateSchemaIfNotExists(ctx context.Context, schema string) error
	SchemaExists(ctx context.Context, schema string) (bool, error)
	ListTables(ctx context.Context, schema string) ([]string, error)
	Migrate(ctx context.Context, schema string) error
	RenameTransfer(ctx context.Context, tenantID uuid.UUID, newSubdomain, oldSchema, newSchema string) error
}

type schemaRepo struct {
	db Database
}

func NewSchemaRepo(db Database) SchemaRepository {
	return &schemaRepo{db: db}
}

// registryDDL creates the shared public-schema tables. The partial unique
// index enforces "at most one active, non-deleted tenant per subdomain" while
// letting soft-deleted rows keep their old subdomain.
var registryDDL = []string{
	`CREATE TABLE IF NOT EXISTS public.tenants (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		subdomain TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tenants_active_subdomain_idx
		ON public.tenants (subdomain)
		WHERE is_active = TRUE AND is_deleted = FALSE`,
	`CREATE TABLE IF NOT EXISTS public.modules (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// tenantDDL is the table set every tenant schema gets; statements are
// idempotent so provisioning can be retried.
var tenantDDL = []string{
	`CREATE TABLE IF NOT EXISTS %s.users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS %s.roles (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS %s.user_roles (
		user_id UUID NOT NULL,
		role_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS %s.refresh_tokens (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL,
		user_id UUID NOT NULL,
		device_id TEXT NOT NULL,
		token_hash TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		is_revoked BOOLEAN NOT NULL DEFAULT FALSE,
		revoked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS refresh_tokens_user_hash_idx
		ON %s.refresh_tokens (user_id, token_hash)`,
	`CREATE TABLE IF NOT EXISTS %s.tenant_modules (
		module_key TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS %s.tenant_config (
		id UUID PRIMARY KEY,
		settings JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func (r *schemaRepo) EnsureRegistry(ctx context.Context) error {
	for _, stmt := range registryDDL {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *schemaRepo) CreateSchemaIfNotExists(ctx context.Context, schema string) error {
	stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schema}.Sanitize())
	_, err := r.db.Exec(ctx, stmt)
	return err
}

func (r *schemaRepo) SchemaExists(ctx context.Context, schema string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`
	err := r.db.QueryRow(ctx, query, schema).Scan(&exists)
	return exists, err
}

func (r *schemaRepo) ListTables(ctx context.Context, schema string) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := r.db.Query(ctx, query, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (r *schemaRepo) Migrate(ctx context.Context, schema string) error {
	quoted := pgx.Identifier{schema}.Sanitize()
	for _, stmt := range tenantDDL {
		if _, err := r.db.Exec(ctx, fmt.Sprintf(stmt, quoted)); err != nil {
			return err
		}
	}
	return nil
}

// RenameTransfer moves every table from oldSchema to newSchema and updates the
// tenant's subdomain, all inside one transaction. Partial failure rolls back
// to the original schema fully intact and the registry row unchanged.
func (r *schemaRepo) RenameTransfer(ctx context.Context, tenantID uuid.UUID, newSubdomain, oldSchema, newSchema string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	quotedNew := pgx.Identifier{newSchema}.Sanitize()
	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quotedNew)); err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, oldSchema)
	if err != nil {
		return err
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return err
	}

	quotedOld := pgx.Identifier{oldSchema}.Sanitize()
	for _, table := range tables {
		stmt := fmt.Sprintf("ALTER TABLE %s.%s SET SCHEMA %s", quotedOld, pgx.Identifier{table}.Sanitize(), quotedNew)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	// Subdomain changes only after every table moved
	if _, err := tx.Exec(ctx, `
		UPDATE public.tenants
		SET subdomain = $1, updated_at = NOW()
		WHERE id = $2
	`, newSubdomain, tenantID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
