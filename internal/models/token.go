package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one link in a rotation chain for (tenant, user, device).
// Only the SHA-256 hash of the opaque token is ever stored. Rows are flipped
// to revoked and retained for replay forensics, never deleted in the hot path.
type RefreshToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	DeviceID  string     `json:"device_id" db:"device_id"`
	TokenHash string     `json:"-" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	IsRevoked bool       `json:"is_revoked" db:"is_revoked"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports natural expiry relative to now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair is returned on login and on every successful rotation.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	TenantID     string    `json:"tenant_id"`
	IssuedAt     time.Time `json:"issued_at"`
}
