package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SchemaRepoTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	repo    SchemaRepository
	context context.Context
}

func (suite *SchemaRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewSchemaRepo(mock)
	suite.context = context.Background()
}

func (suite *SchemaRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestSchemaRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SchemaRepoTestSuite))
}

func (suite *SchemaRepoTestSuite) TestCreateSchemaIfNotExists_QuotesIdentifier() {
	suite.mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "tenant_acme"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err := suite.repo.CreateSchemaIfNotExists(suite.context, "tenant_acme")
	assert.NoError(suite.T(), err)
}

func (suite *SchemaRepoTestSuite) TestListTables() {
	suite.mock.ExpectQuery(`SELECT table_name`).
		WithArgs("tenant_acme").
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("roles").AddRow("users"))

	tables, err := suite.repo.ListTables(suite.context, "tenant_acme")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"roles", "users"}, tables)
}

func (suite *SchemaRepoTestSuite) TestRenameTransfer_CommitsAfterFullTransfer() {
	tenantID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "tenant_globex"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	suite.mock.ExpectQuery(`SELECT table_name`).
		WithArgs("tenant_acme").
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("roles").AddRow("users"))
	suite.mock.ExpectExec(`ALTER TABLE "tenant_acme"."roles" SET SCHEMA "tenant_globex"`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	suite.mock.ExpectExec(`ALTER TABLE "tenant_acme"."users" SET SCHEMA "tenant_globex"`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	suite.mock.ExpectExec(`UPDATE public.tenants`).
		WithArgs("globex", tenantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.RenameTransfer(suite.context, tenantID, "globex", "tenant_acme", "tenant_globex")
	assert.NoError(suite.T(), err)
}

func (suite *SchemaRepoTestSuite) TestRenameTransfer_RollsBackOnMidTransferFailure() {
	tenantID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "tenant_globex"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	suite.mock.ExpectQuery(`SELECT table_name`).
		WithArgs("tenant_acme").
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("roles").AddRow("users"))
	suite.mock.ExpectExec(`ALTER TABLE "tenant_acme"."roles" SET SCHEMA "tenant_globex"`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	suite.mock.ExpectExec(`ALTER TABLE "tenant_acme"."users" SET SCHEMA "tenant_globex"`).
		WillReturnError(assert.AnError)
	// No UPDATE of public.tenants is ever expected: a failed transfer must
	// leave the registry row untouched.
	suite.mock.ExpectRollback()

	err := suite.repo.RenameTransfer(suite.context, tenantID, "globex", "tenant_acme", "tenant_globex")
	assert.ErrorIs(suite.T(), err, assert.AnError)
}

func (suite *SchemaRepoTestSuite) TestRenameTransfer_RollsBackOnSubdomainUpdateFailure() {
	tenantID := uuid.New()

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "tenant_globex"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	suite.mock.ExpectQuery(`SELECT table_name`).
		WithArgs("tenant_acme").
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("users"))
	suite.mock.ExpectExec(`ALTER TABLE "tenant_acme"."users" SET SCHEMA "tenant_globex"`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	suite.mock.ExpectExec(`UPDATE public.tenants`).
		WithArgs("globex", tenantID).
		WillReturnError(assert.AnError)
	suite.mock.ExpectRollback()

	err := suite.repo.RenameTransfer(suite.context, tenantID, "globex", "tenant_acme", "tenant_globex")
	assert.ErrorIs(suite.T(), err, assert.AnError)
}

func (suite *SchemaRepoTestSuite) TestEnsureRegistry() {
	suite.mock.ExpectExec(`CREATE TABLE IF NOT EXISTS public.tenants`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	suite.mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS tenants_active_subdomain_idx`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	suite.mock.ExpectExec(`CREATE TABLE IF NOT EXISTS public.modules`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err := suite.repo.EnsureRegistry(suite.context)
	assert.NoError(suite.T(), err)
}
