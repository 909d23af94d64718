package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/models"
	"staffhub/internal/repositories"
)

// TenantService resolves tenants for the request path and provisions or
// renames them for the admin path.
type TenantService interface {
	ResolveSubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetDefaultTenant(ctx context.Context) (*models.Tenant, error)
	CreateTenant(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error)
	RenameTenantSchema(ctx context.Context, tenantID uuid.UUID, newSubdomain string) (*models.Tenant, error)
	DeactivateTenant(ctx context.Context, id uuid.UUID) error
	EnabledModules(ctx context.Context, tc common.TenantContext) ([]string, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	schemaRepo repositories.SchemaRepository
	userRepo   repositories.UserRepository
	roleRepo   repositories.RoleRepository
	moduleRepo repositories.ModuleRepository
	directory  *caching.DirectoryCache
	plans      *caching.PlanCache
}

func NewTenantService(
	tenantRepo repositories.TenantRepository,
	schemaRepo repositories.SchemaRepository,
	userRepo repositories.UserRepository,
	roleRepo repositories.RoleRepository,
	moduleRepo repositories.ModuleRepository,
	directory *caching.DirectoryCache,
	plans *caching.PlanCache,
) TenantService {
	return &tenantService{
		tenantRepo: tenantRepo,
		schemaRepo: schemaRepo,
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		moduleRepo: moduleRepo,
		directory:  directory,
		plans:      plans,
	}
}

type CreateTenantRequest struct {
	Name          string `json:"name" validate:"required"`
	Subdomain     string `json:"subdomain" validate:"required,hostname_rfc1123"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`
}

// ResolveSubdomain is the directory lookup behind the resolver middleware:
// cache first, storage on miss, and only positive results are cached so a
// freshly provisioned tenant becomes visible without a restart.
func (s *tenantService) ResolveSubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	if tenant, ok := s.directory.Get(subdomain); ok {
		return tenant, nil
	}

	tenant, err := s.tenantRepo.GetActiveBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}

	s.directory.Set(subdomain, tenant)
	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *tenantService) GetDefaultTenant(ctx context.Context) (*models.Tenant, error) {
	return s.tenantRepo.GetDefault(ctx)
}

// DeactivateTenant soft-deletes the registry row and drops the tenant from
// the shared caches. The schema and its data stay behind; the subdomain only
// becomes reusable once an operator clears that schema out.
func (s *tenantService) DeactivateTenant(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.directory.Invalidate(tenant.Subdomain)
	s.plans.Invalidate(tenant.SchemaName())
	log.Printf("tenant %s deactivated: subdomain=%s schema retained", tenant.ID, tenant.Subdomain)
	return nil
}

// EnabledModules lists the module keys switched on for the resolved tenant.
func (s *tenantService) EnabledModules(ctx context.Context, tc common.TenantContext) ([]string, error) {
	return s.moduleRepo.EnabledKeys(ctx, tc)
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.tenantRepo.List(ctx, limit, offset)
}

// CreateTenant provisions a tenant end-to-end. Every phase after the tenant
// insert is idempotent, so a ProvisioningError can be retried by calling
// CreateTenant again for the same subdomain -- the duplicate check is skipped
// when the existing row is the one being retried.
func (s *tenantService) CreateTenant(ctx context.Context, req *CreateTenantRequest) (*models.Tenant, error) {
	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))
	if subdomain == "" || req.Name == "" {
		return nil, errors.New("name and subdomain are required")
	}

	tenant, err := s.tenantRepo.GetActiveBySubdomain(ctx, subdomain)
	switch {
	case err == nil:
		// A retry after a mid-provisioning failure lands here; finishing the
		// remaining phases is safe. The config row is written by the final
		// phase, so its presence means the tenant is fully provisioned.
		tables, perr := s.schemaRepo.ListTables(ctx, tenant.SchemaName())
		if perr != nil {
			return nil, common.ProvisioningFailed("schema_verify", perr)
		}
		if containsTable(tables, "tenant_config") {
			done, perr := s.moduleRepo.ConfigExists(ctx, tenant.Context())
			if perr != nil {
				return nil, common.ProvisioningFailed("schema_verify", perr)
			}
			if done {
				return nil, common.ErrTenantAlreadyExists
			}
		}
	case errors.Is(err, common.ErrTenantNotFound):
		tenant = &models.Tenant{
			ID:        uuid.New(),
			Name:      req.Name,
			Subdomain: subdomain,
			IsActive:  true,
		}
		// A deactivated tenant keeps its schema and data behind. A new tenant
		// whose subdomain derives that same schema name must never adopt it:
		// every provisioning phase is idempotent and would silently build on
		// top of the old tenant's users and roles.
		tables, perr := s.schemaRepo.ListTables(ctx, tenant.SchemaName())
		if perr != nil {
			return nil, perr
		}
		if len(tables) > 0 {
			return nil, common.ErrSchemaNotEmpty
		}
		if err := s.tenantRepo.Create(ctx, tenant); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.provisionSchema(ctx, tenant, req.AdminEmail, req.AdminPassword); err != nil {
		return nil, err
	}

	s.directory.Invalidate(subdomain)
	log.Printf("tenant %s provisioned: subdomain=%s schema=%s", tenant.ID, tenant.Subdomain, tenant.SchemaName())
	return tenant, nil
}

func containsTable(tables []string, name string) bool {
	for _, t := range tables {
		if t == name {
			return true
		}
	}
	return false
}

// provisionSchema runs phases 3-5: shared catalog, schema DDL, and seed data.
// Each phase is safe to re-run.
func (s *tenantService) provisionSchema(ctx context.Context, tenant *models.Tenant, adminEmail, adminPassword string) error {
	if err := s.moduleRepo.UpsertCatalog(ctx, models.ModuleCatalog); err != nil {
		return common.ProvisioningFailed("module_catalog", err)
	}

	schema := tenant.SchemaName()
	if err := s.schemaRepo.CreateSchemaIfNotExists(ctx, schema); err != nil {
		return common.ProvisioningFailed("schema_create", err)
	}
	if err := s.schemaRepo.Migrate(ctx, schema); err != nil {
		return common.ProvisioningFailed("schema_migrate", err)
	}

	tc := tenant.Context()
	for _, name := range models.SeedRoleNames {
		role := &models.Role{ID: uuid.New(), Name: name}
		if err := s.roleRepo.CreateIfAbsent(ctx, tc, role); err != nil {
			return common.ProvisioningFailed("seed_roles", err)
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return common.ProvisioningFailed("admin_user", err)
	}
	admin := &models.User{
		ID:           uuid.New(),
		Email:        adminEmail,
		PasswordHash: string(passwordHash),
		Status:       "active",
	}
	if err := s.userRepo.Create(ctx, tc, admin); err != nil {
		return common.ProvisioningFailed("admin_user", err)
	}
	// Re-read so a retried run grants roles to the row that actually exists.
	admin, err = s.userRepo.GetByEmail(ctx, tc, adminEmail)
	if err != nil {
		return common.ProvisioningFailed("admin_user", err)
	}

	for _, roleName := range []string{"Admin", "SuperAdmin"} {
		role, err := s.roleRepo.GetByName(ctx, tc, roleName)
		if err != nil {
			return common.ProvisioningFailed("admin_roles", err)
		}
		if err := s.roleRepo.Grant(ctx, tc, admin.ID, role.ID); err != nil {
			return common.ProvisioningFailed("admin_roles", err)
		}
	}

	if err := s.moduleRepo.EnableModules(ctx, tc, models.DefaultModuleKeys); err != nil {
		return common.ProvisioningFailed("module_subscriptions", err)
	}
	if err := s.moduleRepo.EnsureConfig(ctx, tc); err != nil {
		return common.ProvisioningFailed("tenant_config", err)
	}

	return nil
}

// RenameTenantSchema changes a tenant's subdomain and, when the derived schema
// name changes, moves every table to the new schema in one atomic transfer.
func (s *tenantService) RenameTenantSchema(ctx context.Context, tenantID uuid.UUID, newSubdomain string) (*models.Tenant, error) {
	newSubdomain = strings.ToLower(strings.TrimSpace(newSubdomain))
	if newSubdomain == "" {
		return nil, errors.New("new subdomain is required")
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	oldSubdomain := tenant.Subdomain

	if newSubdomain != oldSubdomain {
		taken, err := s.tenantRepo.ActiveSubdomainExists(ctx, newSubdomain)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, common.ErrTenantAlreadyExists
		}
	}

	oldSchema := common.SchemaNameFor(oldSubdomain, tenant.ID)
	newSchema := common.SchemaNameFor(newSubdomain, tenant.ID)

	if oldSchema == newSchema {
		// Cosmetic rename: the sanitized form is unchanged, no data moves.
		if err := s.tenantRepo.UpdateSubdomain(ctx, tenantID, newSubdomain); err != nil {
			return nil, err
		}
		tenant.Subdomain = newSubdomain
		s.directory.Invalidate(oldSubdomain)
		s.directory.Invalidate(newSubdomain)
		return tenant, nil
	}

	oldTables, err := s.schemaRepo.ListTables(ctx, oldSchema)
	if err != nil {
		return nil, err
	}
	if len(oldTables) == 0 {
		return nil, fmt.Errorf("schema %s holds no tables to transfer", oldSchema)
	}

	newExists, err := s.schemaRepo.SchemaExists(ctx, newSchema)
	if err != nil {
		return nil, err
	}
	if newExists {
		newTables, err := s.schemaRepo.ListTables(ctx, newSchema)
		if err != nil {
			return nil, err
		}
		if len(newTables) > 0 {
			// Never merge into or overwrite an occupied schema.
			return nil, common.ErrSchemaNotEmpty
		}
	}

	if err := s.schemaRepo.RenameTransfer(ctx, tenantID, newSubdomain, oldSchema, newSchema); err != nil {
		return nil, err
	}

	tenant.Subdomain = newSubdomain
	s.plans.Invalidate(oldSchema)
	s.plans.Invalidate(newSchema)
	s.directory.Invalidate(oldSubdomain)
	s.directory.Invalidate(newSubdomain)
	log.Printf("tenant %s renamed: %s -> %s (schema %s -> %s)", tenant.ID, oldSubdomain, newSubdomain, oldSchema, newSchema)
	return tenant, nil
}
