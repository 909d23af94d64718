package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/models"
)

var ErrRoleNotFound = errors.New("role not found")

type RoleRepository interface {
	CreateIfAbsent(ctx context.Context, tc common.TenantContext, role *models.Role) error
	GetByName(ctx context.Context, tc common.TenantContext, name string) (*models.Role, error)
	Grant(ctx context.Context, tc common.TenantContext, userID, roleID uuid.UUID) error
	NamesForUser(ctx context.Context, tc common.TenantContext, userID uuid.UUID) ([]string, error)
}

var roleQueries = map[string]string{
	"roles.insert": `
		INSERT INTO {schema}.roles (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (name) DO NOTHING
	`,
	"roles.get_by_name": `
		SELECT id, name, description, created_at, updated_at
		FROM {schema}.roles
		WHERE name = $1
	`,
	"user_roles.grant": `
		INSERT INTO {schema}.user_roles (user_id, role_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role_id) DO NOTHING
	`,
	"user_roles.names_for_user": `
		SELECT r.name
		FROM {schema}.user_roles ur
		JOIN {schema}.roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`,
}

type roleRepo struct {
	db    Database
	plans *caching.PlanCache
}

func NewRoleRepo(db Database, plans *caching.PlanCache) RoleRepository {
	plans.Register(roleQueries)
	return &roleRepo{db: db, plans: plans}
}

func (r *roleRepo) CreateIfAbsent(ctx context.Context, tc common.TenantContext, role *models.Role) error {
	if !tc.Valid() {
		return common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("roles.insert")
	_, err := r.db.Exec(ctx, query, role.ID, role.Name, role.Description)
	return err
}

func (r *roleRepo) GetByName(ctx context.Context, tc common.TenantContext, name string) (*models.Role, error) {
	if !tc.Valid() {
		return nil, common.ErrMissingTenantContext
	}
	role := &models.Role{}
	query := r.plans.Plan(tc.SchemaName).Statement("roles.get_by_name")
	err := r.db.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roleRepo) Grant(ctx context.Context, tc common.TenantContext, userID, roleID uuid.UUID) error {
	if !tc.Valid() {
		return common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("user_roles.grant")
	_, err := r.db.Exec(ctx, query, userID, roleID)
	return err
}

func (r *roleRepo) NamesForUser(ctx context.Context, tc common.TenantContext, userID uuid.UUID) ([]string, error) {
	if !tc.Valid() {
		return nil, common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("user_roles.names_for_user")
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
