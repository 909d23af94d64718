package common

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey        contextKey = "user_id"
	TenantContextKey contextKey = "tenant_context"
)

// TenantContext carries the resolved tenant identity for exactly one request.
// It is set once by the tenant resolver middleware and never mutated; every
// tenant-scoped repository method takes it as its first argument, so data
// access without a resolved tenant cannot happen by omission.
type TenantContext struct {
	TenantID   uuid.UUID
	SchemaName string
}

// Valid reports whether the context identifies a tenant. Repositories reject
// an invalid TenantContext with ErrMissingTenantContext.
func (tc TenantContext) Valid() bool {
	return tc.TenantID != uuid.Nil && tc.SchemaName != ""
}

// WithTenantContext returns a copy of ctx carrying the resolved tenant.
func WithTenantContext(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, TenantContextKey, tc)
}

// GetTenantContext extracts the resolved tenant from the request context.
func GetTenantContext(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(TenantContextKey).(TenantContext)
	return tc, ok
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext extracts the authenticated user id from the request context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}
