package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/models"
	"staffhub/internal/repositories"
)

// AuthService issues token pairs and runs the refresh rotation protocol.
// Every rejection surfaces as common.ErrUnauthorized so callers cannot tell
// unknown, expired, device-mismatched, and replayed tokens apart.
type AuthService interface {
	Login(ctx context.Context, tc common.TenantContext, email, password, deviceID string) (*models.TokenPair, error)
	Refresh(ctx context.Context, tc common.TenantContext, presentedToken string, userID uuid.UUID, deviceID string) (*models.TokenPair, error)
	Logout(ctx context.Context, tc common.TenantContext, presentedToken string, userID uuid.UUID) error
}

// TokenClaims are the access-token JWT claims.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo   repositories.UserRepository
	tokenRepo  repositories.TokenRepository
	sessions   caching.CacheService
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(userRepo repositories.UserRepository, tokenRepo repositories.TokenRepository, sessions caching.CacheService, jwtSecret string, accessTTL, refreshTTL time.Duration) AuthService {
	return &authService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		sessions:   sessions,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Login verifies credentials inside the tenant's schema and starts a rotation
// chain for (tenant, user, device).
func (s *authService) Login(ctx context.Context, tc common.TenantContext, email, password, deviceID string) (*models.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, tc, email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordHash == "" || user.Status != "active" {
		return nil, common.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrUnauthorized
	}

	return s.issuePair(ctx, tc, user.ID, deviceID)
}

// Refresh runs the rotation state machine for one renewal request. Exactly one
// concurrent caller presenting the same token can win the conditional revoke;
// everyone else observes an already-revoked row and is handled as a replay.
func (s *authService) Refresh(ctx context.Context, tc common.TenantContext, presentedToken string, userID uuid.UUID, deviceID string) (*models.TokenPair, error) {
	hash := hashToken(presentedToken)
	token, err := s.tokenRepo.GetByHash(ctx, tc, userID, hash)
	if errors.Is(err, repositories.ErrTokenNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case token.IsRevoked:
		// Replay of a dead token is the strongest theft signal available:
		// kill every session for the user across all devices.
		if _, err := s.tokenRepo.RevokeAllForUser(ctx, tc, userID, now); err != nil {
			return nil, err
		}
		s.markSessionsRevoked(ctx, tc, userID, now)
		log.Printf("refresh replay detected: revoked all tokens for user %s (tenant %s)", userID, tc.TenantID)
		return nil, common.ErrUnauthorized
	case token.Expired(now):
		// Natural expiry, no mutation. Checked before the device comparison so
		// an expired token can never be flipped to revoked and later read as a
		// replay.
		return nil, common.ErrUnauthorized
	case token.DeviceID != deviceID:
		// Weaker signal than replay: invalidate only the credential in play.
		if _, err := s.tokenRepo.RevokeIfActive(ctx, tc, token.ID, now); err != nil {
			return nil, err
		}
		return nil, common.ErrUnauthorized
	}

	won, err := s.tokenRepo.RevokeIfActive(ctx, tc, token.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent rotation of the same token got there first; from this
		// caller's view the token was already rotated, which is a replay.
		if _, err := s.tokenRepo.RevokeAllForUser(ctx, tc, userID, now); err != nil {
			return nil, err
		}
		s.markSessionsRevoked(ctx, tc, userID, now)
		return nil, common.ErrUnauthorized
	}

	return s.issuePair(ctx, tc, userID, deviceID)
}

// Logout revokes the presented token. Idempotent: an unknown or already
// revoked token is not an error.
func (s *authService) Logout(ctx context.Context, tc common.TenantContext, presentedToken string, userID uuid.UUID) error {
	token, err := s.tokenRepo.GetByHash(ctx, tc, userID, hashToken(presentedToken))
	if errors.Is(err, repositories.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.tokenRepo.RevokeIfActive(ctx, tc, token.ID, s.now())
	return err
}

// markSessionsRevoked drops a Redis marker so access tokens minted before the
// revoke-all stop working immediately instead of living out their TTL. The
// cache being down only loses the early cutoff, never the rotation result.
func (s *authService) markSessionsRevoked(ctx context.Context, tc common.TenantContext, userID uuid.UUID, now time.Time) {
	key := caching.SessionRevocationKey(tc.TenantID, userID)
	if err := s.sessions.SetString(ctx, key, strconv.FormatInt(now.Unix(), 10), s.accessTTL); err != nil {
		log.Printf("WARN: failed to store session revocation marker for user %s: %v", userID, err)
	}
}

// issuePair mints the access JWT, persists the hash of a fresh opaque refresh
// token as a new active row, and returns both.
func (s *authService) issuePair(ctx context.Context, tc common.TenantContext, userID uuid.UUID, deviceID string) (*models.TokenPair, error) {
	now := s.now()

	claims := TokenClaims{
		UserID:   userID.String(),
		TenantID: tc.TenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "staffhub-auth",
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := generateSecureToken()
	row := &models.RefreshToken{
		ID:        uuid.New(),
		TenantID:  tc.TenantID,
		UserID:    userID,
		DeviceID:  deviceID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.tokenRepo.Create(ctx, tc, row); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		RefreshToken: refreshToken,
		UserID:       userID.String(),
		TenantID:     tc.TenantID.String(),
		IssuedAt:     now,
	}, nil
}

// generateSecureToken returns a cryptographically random opaque token.
func generateSecureToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return base64.URLEncoding.EncodeToString(bytes)
}

// hashToken is the irreversible hash stored in place of the raw token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
