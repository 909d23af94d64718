package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/models"
)

// ErrTokenNotFound means no row matched the presented hash for that user.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenRepository is the persisted rotation chain per (tenant, user, device).
// Rows live in the tenant's schema; every method requires a TenantContext and
// resolves its SQL through the per-schema plan cache.
type TokenRepository interface {
	Create(ctx context.Context, tc common.TenantContext, token *models.RefreshToken) error
	GetByHash(ctx context.Context, tc common.TenantContext, userID uuid.UUID, tokenHash string) (*models.RefreshToken, error)
	RevokeIfActive(ctx context.Context, tc common.TenantContext, id uuid.UUID, now time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, tc common.TenantContext, userID uuid.UUID, now time.Time) (int64, error)
	PurgeStale(ctx context.Context, tc common.TenantContext, cutoff time.Time) (int64, error)
}

var tokenQueries = map[string]string{
	"refresh_tokens.insert": `
		INSERT INTO {schema}.refresh_tokens (id, tenant_id, user_id, device_id, token_hash, expires_at, is_revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
	`,
	"refresh_tokens.get_by_hash": `
		SELECT id, tenant_id, user_id, device_id, token_hash, expires_at, is_revoked, revoked_at, created_at
		FROM {schema}.refresh_tokens
		WHERE tenant_id = $1 AND user_id = $2 AND token_hash = $3
	`,
	"refresh_tokens.revoke_if_active": `
		UPDATE {schema}.refresh_tokens
		SET is_revoked = TRUE, revoked_at = $2
		WHERE id = $1 AND is_revoked = FALSE
		RETURNING id
	`,
	"refresh_tokens.revoke_all_for_user": `
		UPDATE {schema}.refresh_tokens
		SET is_revoked = TRUE, revoked_at = $2
		WHERE user_id = $1 AND is_revoked = FALSE
	`,
	"refresh_tokens.purge_stale": `
		DELETE FROM {schema}.refresh_tokens
		WHERE (is_revoked = TRUE AND revoked_at < $1) OR expires_at < $1
	`,
}

type tokenRepo struct {
	db    Database
	plans *caching.PlanCache
}

func NewTokenRepo(db Database, plans *caching.PlanCache) TokenRepository {
	plans.Register(tokenQueries)
	return &tokenRepo{db: db, plans: plans}
}

func (r *tokenRepo) Create(ctx context.Context, tc common.TenantContext, token *models.RefreshToken) error {
	if !tc.Valid() {
		return common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("refresh_tokens.insert")
	_, err := r.db.Exec(ctx, query, token.ID, tc.TenantID, token.UserID, token.DeviceID, token.TokenHash, token.ExpiresAt)
	return err
}

// GetByHash returns the row regardless of its state; callers branch on
// revoked/expired themselves.
func (r *tokenRepo) GetByHash(ctx context.Context, tc common.TenantContext, userID uuid.UUID, tokenHash string) (*models.RefreshToken, error) {
	if !tc.Valid() {
		return nil, common.ErrMissingTenantContext
	}
	token := &models.RefreshToken{}
	query := r.plans.Plan(tc.SchemaName).Statement("refresh_tokens.get_by_hash")
	err := r.db.QueryRow(ctx, query, tc.TenantID, userID, tokenHash).Scan(
		&token.ID, &token.TenantID, &token.UserID, &token.DeviceID, &token.TokenHash,
		&token.ExpiresAt, &token.IsRevoked, &token.RevokedAt, &token.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// RevokeIfActive flips a single row to revoked and reports whether this call
// was the one that flipped it. The conditional update makes concurrent
// rotations of the same token race to exactly one winner at the storage level.
func (r *tokenRepo) RevokeIfActive(ctx context.Context, tc common.TenantContext, id uuid.UUID, now time.Time) (bool, error) {
	if !tc.Valid() {
		return false, common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("refresh_tokens.revoke_if_active")
	var revokedID uuid.UUID
	err := r.db.QueryRow(ctx, query, id, now).Scan(&revokedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // someone else won, or the row never existed
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevokeAllForUser kills every live session for the user across all devices,
// the replay-detection response.
func (r *tokenRepo) RevokeAllForUser(ctx context.Context, tc common.TenantContext, userID uuid.UUID, now time.Time) (int64, error) {
	if !tc.Valid() {
		return 0, common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("refresh_tokens.revoke_all_for_user")
	tag, err := r.db.Exec(ctx, query, userID, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeStale physically deletes rows whose forensic value has aged out; only
// the retention job calls this.
func (r *tokenRepo) PurgeStale(ctx context.Context, tc common.TenantContext, cutoff time.Time) (int64, error) {
	if !tc.Valid() {
		return 0, common.ErrMissingTenantContext
	}
	query := r.plans.Plan(tc.SchemaName).Statement("refresh_tokens.purge_stale")
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
