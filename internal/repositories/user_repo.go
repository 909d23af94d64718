package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Create(ctx context.Context, tc common.TenantContext, user *models.User) error
	GetByEmail(ctx context.Context, tc common.TenantContext, email string) (*models.User, error)
}

var userQueries = map[string]string{
	"users.insert": `
		INSERT INTO {schema}.users (id, email, password_hash, first_name, last_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (email) DO NOTHING
	`,
	"users.get_by_email": `
		SELECT id, email, password_hash, first_name, last_name, status, created_at, updated_at
		FROM {schema}.users
		WHERE email = $1
	`,
}

type userRepo struct {
	db    Database
	plans *caching.PlanCache
}

func NewUserRepo(db Database, plans *caching.PlanCache) UserRepository {
	plans.Register(userQueries)
	return &userRepo{db: db, plans: plans}
}

// Create is idempotent on email so provisioning retries do not fail on the
// admin user already existing.
func (r *userRepo) Create(ctx context.Context, tc common.TenantContext, user *models.User) error {
	if !tc.Valid() {
		return common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("users.insert")
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Status)
	return err
}

func (r *userRepo) GetByEmail(ctx context.Context, tc common.TenantContext, email string) (*models.User, error) {
	if !tc.Valid() {
		return nil, common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("users.get_by_email")
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepo) scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
