package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"staffhub/internal/common"
	"staffhub/internal/models"
)

// TenantRepository is the shared tenant registry in the public schema. It is
// the only repository that does not take a TenantContext: it is what produces
// one.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetActiveBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	GetDefault(ctx context.Context) (*models.Tenant, error)
	ActiveSubdomainExists(ctx context.Context, subdomain string) (bool, error)
	UpdateSubdomain(ctx context.Context, id uuid.UUID, subdomain string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db Database
}

func NewTenantRepo(db Database) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = "id, name, subdomain, is_active, is_deleted, created_at, updated_at"

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO public.tenants (id, name, subdomain, is_active, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, tenant.ID, tenant.Name, tenant.Subdomain, tenant.IsActive, tenant.IsDeleted)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return common.ErrTenantAlreadyExists
	}
	return err
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT ` + tenantColumns + `
		FROM public.tenants
		WHERE id = $1 AND is_deleted = FALSE
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&tenant.ID, &tenant.Name, &tenant.Subdomain, &tenant.IsActive, &tenant.IsDeleted, &tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) GetActiveBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT ` + tenantColumns + `
		FROM public.tenants
		WHERE subdomain = $1 AND is_active = TRUE AND is_deleted = FALSE
	`
	err := r.db.QueryRow(ctx, query, subdomain).Scan(&tenant.ID, &tenant.Name, &tenant.Subdomain, &tenant.IsActive, &tenant.IsDeleted, &tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// GetDefault returns the development fallback tenant: the one named "demo" if
// present, otherwise the oldest active tenant. The ordering makes the fallback
// deterministic across restarts.
func (r *tenantRepo) GetDefault(ctx context.Context) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT ` + tenantColumns + `
		FROM public.tenants
		WHERE is_active = TRUE AND is_deleted = FALSE
		ORDER BY (subdomain <> 'demo'), created_at ASC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query).Scan(&tenant.ID, &tenant.Name, &tenant.Subdomain, &tenant.IsActive, &tenant.IsDeleted, &tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (r *tenantRepo) ActiveSubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM public.tenants
			WHERE subdomain = $1 AND is_active = TRUE AND is_deleted = FALSE
		)
	`
	err := r.db.QueryRow(ctx, query, subdomain).Scan(&exists)
	return exists, err
}

// UpdateSubdomain covers the cosmetic rename where the derived schema name
// does not change; schema-moving renames go through SchemaRepository instead.
func (r *tenantRepo) UpdateSubdomain(ctx context.Context, id uuid.UUID, subdomain string) error {
	query := `
		UPDATE public.tenants
		SET subdomain = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, subdomain, id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return common.ErrTenantAlreadyExists
	}
	return err
}

// Delete soft-deletes; the schema and its data stay behind for retention flows.
func (r *tenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE public.tenants
		SET is_deleted = TRUE, is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM public.tenants
		WHERE is_deleted = FALSE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.Subdomain, &tenant.IsActive, &tenant.IsDeleted, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}
