package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"staffhub/internal/common"
	"staffhub/internal/models"
)

type TenantRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    TenantRepository
	context context.Context
}

func (suite *TenantRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewTenantRepo(mock)
	suite.context = context.Background()
}

func (suite *TenantRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestTenantRepoTestSuite(t *testing.T) {
	suite.Run(t, new(TenantRepoTestSuite))
}

func tenantRows(tenant *models.Tenant) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "subdomain", "is_active", "is_deleted", "created_at", "updated_at"}).
		AddRow(tenant.ID, tenant.Name, tenant.Subdomain, tenant.IsActive, tenant.IsDeleted, tenant.CreatedAt, tenant.UpdatedAt)
}

func (suite *TenantRepoTestSuite) TestCreate_Success() {
	tenant := &models.Tenant{ID: uuid.New(), Name: "Acme", Subdomain: "acme", IsActive: true}

	suite.mock.ExpectExec(`INSERT INTO public.tenants`).
		WithArgs(tenant.ID, tenant.Name, tenant.Subdomain, tenant.IsActive, tenant.IsDeleted).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, tenant)
	assert.NoError(suite.T(), err)
}

func (suite *TenantRepoTestSuite) TestCreate_DuplicateSubdomain() {
	tenant := &models.Tenant{ID: uuid.New(), Name: "Acme", Subdomain: "acme", IsActive: true}

	suite.mock.ExpectExec(`INSERT INTO public.tenants`).
		WithArgs(tenant.ID, tenant.Name, tenant.Subdomain, tenant.IsActive, tenant.IsDeleted).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := suite.repo.Create(suite.context, tenant)
	assert.ErrorIs(suite.T(), err, common.ErrTenantAlreadyExists)
}

func (suite *TenantRepoTestSuite) TestGetActiveBySubdomain_Found() {
	tenant := &models.Tenant{
		ID: uuid.New(), Name: "Acme", Subdomain: "acme",
		IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	suite.mock.ExpectQuery(`SELECT id, name, subdomain, is_active, is_deleted`).
		WithArgs("acme").
		WillReturnRows(tenantRows(tenant))

	got, err := suite.repo.GetActiveBySubdomain(suite.context, "acme")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), tenant.ID, got.ID)
	assert.Equal(suite.T(), "tenant_acme", got.SchemaName())
}

func (suite *TenantRepoTestSuite) TestGetActiveBySubdomain_NotFound() {
	suite.mock.ExpectQuery(`SELECT id, name, subdomain, is_active, is_deleted`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	got, err := suite.repo.GetActiveBySubdomain(suite.context, "ghost")
	assert.ErrorIs(suite.T(), err, common.ErrTenantNotFound)
	assert.Nil(suite.T(), got)
}

func (suite *TenantRepoTestSuite) TestActiveSubdomainExists() {
	suite.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := suite.repo.ActiveSubdomainExists(suite.context, "acme")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), exists)
}

func (suite *TenantRepoTestSuite) TestUpdateSubdomain_Conflict() {
	id := uuid.New()

	suite.mock.ExpectExec(`UPDATE public.tenants`).
		WithArgs("taken", id).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := suite.repo.UpdateSubdomain(suite.context, id, "taken")
	assert.ErrorIs(suite.T(), err, common.ErrTenantAlreadyExists)
}

func (suite *TenantRepoTestSuite) TestGetDefault_PrefersDemo() {
	tenant := &models.Tenant{
		ID: uuid.New(), Name: "Demo", Subdomain: "demo",
		IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	suite.mock.ExpectQuery(`ORDER BY \(subdomain <> 'demo'\), created_at ASC`).
		WillReturnRows(tenantRows(tenant))

	got, err := suite.repo.GetDefault(suite.context)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "demo", got.Subdomain)
}
