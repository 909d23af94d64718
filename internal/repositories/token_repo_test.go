package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"staffhub/internal/caching"
	"staffhub/internal/common"
	"staffhub/internal/models"
)

type TokenRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    TokenRepository
	tc      common.TenantContext
	userID  uuid.UUID
	context context.Context
}

func (suite *TokenRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewTokenRepo(mock, caching.NewPlanCache())
	suite.tc = common.TenantContext{TenantID: uuid.New(), SchemaName: "tenant_acme"}
	suite.userID = uuid.New()
	suite.context = context.Background()
}

func (suite *TokenRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestTokenRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TokenRepoTestSuite))
}

func (suite *TokenRepoTestSuite) TestCreate_Success() {
	token := &models.RefreshToken{
		ID:        uuid.New(),
		TenantID:  suite.tc.TenantID,
		UserID:    suite.userID,
		DeviceID:  "device-1",
		TokenHash: "abc123",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	suite.mock.ExpectExec(`INSERT INTO tenant_acme.refresh_tokens`).
		WithArgs(token.ID, suite.tc.TenantID, token.UserID, token.DeviceID, token.TokenHash, token.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, suite.tc, token)
	assert.NoError(suite.T(), err)
}

func (suite *TokenRepoTestSuite) TestCreate_MissingTenantContext() {
	err := suite.repo.Create(suite.context, common.TenantContext{}, &models.RefreshToken{})
	assert.ErrorIs(suite.T(), err, common.ErrMissingTenantContext)
}

func (suite *TokenRepoTestSuite) TestGetByHash_Found() {
	id := uuid.New()
	expires := time.Now().Add(time.Hour)
	created := time.Now()

	suite.mock.ExpectQuery(`SELECT id, tenant_id, user_id, device_id, token_hash`).
		WithArgs(suite.tc.TenantID, suite.userID, "abc123").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "user_id", "device_id", "token_hash", "expires_at", "is_revoked", "revoked_at", "created_at"}).
			AddRow(id, suite.tc.TenantID, suite.userID, "device-1", "abc123", expires, false, nil, created))

	token, err := suite.repo.GetByHash(suite.context, suite.tc, suite.userID, "abc123")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), id, token.ID)
	assert.Equal(suite.T(), "device-1", token.DeviceID)
	assert.False(suite.T(), token.IsRevoked)
}

func (suite *TokenRepoTestSuite) TestGetByHash_NotFound() {
	suite.mock.ExpectQuery(`SELECT id, tenant_id, user_id, device_id, token_hash`).
		WithArgs(suite.tc.TenantID, suite.userID, "missing").
		WillReturnError(pgx.ErrNoRows)

	token, err := suite.repo.GetByHash(suite.context, suite.tc, suite.userID, "missing")
	assert.ErrorIs(suite.T(), err, ErrTokenNotFound)
	assert.Nil(suite.T(), token)
}

func (suite *TokenRepoTestSuite) TestRevokeIfActive_Winner() {
	id := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`UPDATE tenant_acme.refresh_tokens`).
		WithArgs(id, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	won, err := suite.repo.RevokeIfActive(suite.context, suite.tc, id, now)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), won)
}

func (suite *TokenRepoTestSuite) TestRevokeIfActive_AlreadyRevoked() {
	id := uuid.New()
	now := time.Now()

	suite.mock.ExpectQuery(`UPDATE tenant_acme.refresh_tokens`).
		WithArgs(id, now).
		WillReturnError(pgx.ErrNoRows)

	won, err := suite.repo.RevokeIfActive(suite.context, suite.tc, id, now)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), won)
}

func (suite *TokenRepoTestSuite) TestRevokeAllForUser() {
	now := time.Now()

	suite.mock.ExpectExec(`UPDATE tenant_acme.refresh_tokens`).
		WithArgs(suite.userID, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	revoked, err := suite.repo.RevokeAllForUser(suite.context, suite.tc, suite.userID, now)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), revoked)
}

func (suite *TokenRepoTestSuite) TestPurgeStale() {
	cutoff := time.Now().Add(-90 * 24 * time.Hour)

	suite.mock.ExpectExec(`DELETE FROM tenant_acme.refresh_tokens`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	purged, err := suite.repo.PurgeStale(suite.context, suite.tc, cutoff)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(7), purged)
}
