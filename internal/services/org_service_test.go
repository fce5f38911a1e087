package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentledger/backend/internal/models"
)

func glAccountColumns() []string {
	return []string{"id", "organization_id", "name", "external_gl_account_id"}
}

func TestOrgService_UserHasAccess(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	service := NewOrgService(db, nil)

	dbMock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	dbMock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-2", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := service.UserHasAccess("user-1", "org-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.UserHasAccess("user-2", "org-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestOrgService_ResolveOrganization(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	service := NewOrgService(db, nil)

	t.Run("preferred organization with membership", func(t *testing.T) {
		dbMock.ExpectQuery("SELECT EXISTS").
			WithArgs("user-1", "org-2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		orgID, err := service.ResolveOrganization("user-1", "org-2")
		require.NoError(t, err)
		assert.Equal(t, "org-2", orgID)
	})

	t.Run("falls back to first membership", func(t *testing.T) {
		dbMock.ExpectQuery("SELECT organization_id FROM organization_members").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))

		orgID, err := service.ResolveOrganization("user-1", "")
		require.NoError(t, err)
		assert.Equal(t, "org-1", orgID)
	})

	t.Run("no memberships", func(t *testing.T) {
		dbMock.ExpectQuery("SELECT organization_id FROM organization_members").
			WithArgs("user-9").
			WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))

		orgID, err := service.ResolveOrganization("user-9", "")
		require.NoError(t, err)
		assert.Equal(t, "", orgID)
	})

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestOrgService_GetProperty(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	service := NewOrgService(db, nil)

	dbMock.ExpectQuery("SELECT (.+) FROM properties").
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "external_property_id"}).
			AddRow("prop-1", "org-1", "Maple Court", 77))
	dbMock.ExpectQuery("SELECT (.+) FROM properties").
		WithArgs("prop-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	property, err := service.GetProperty("prop-1")
	require.NoError(t, err)
	require.NotNil(t, property)
	assert.Equal(t, "org-1", property.OrganizationID)
	require.NotNil(t, property.ExternalPropertyID)
	assert.Equal(t, int64(77), *property.ExternalPropertyID)

	property, err = service.GetProperty("prop-missing")
	require.NoError(t, err)
	assert.Nil(t, property)

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestOrgService_GetGLAccounts_CacheMiss(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewOrgService(db, redisClient)

	externalID := int64(1001)
	orgAccounts := []models.GLAccount{
		{ID: "acct-a", OrganizationID: "org-1", Name: "Cash", ExternalGLAccountID: &externalID},
		{ID: "acct-b", OrganizationID: "org-1", Name: "Rent Income"},
	}
	cachePayload, err := json.Marshal(orgAccounts)
	require.NoError(t, err)

	redisMock.ExpectGet("gl_accounts:org-1").RedisNil()
	dbMock.ExpectQuery("SELECT (.+) FROM gl_accounts").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(glAccountColumns()).
			AddRow("acct-a", "org-1", "Cash", 1001).
			AddRow("acct-b", "org-1", "Rent Income", nil))
	redisMock.ExpectSet("gl_accounts:org-1", cachePayload, 5*time.Minute).SetVal("OK")

	accounts, err := service.GetGLAccounts("org-1", []string{"acct-a"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acct-a", accounts[0].ID)

	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestOrgService_GetGLAccounts_CacheHit(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewOrgService(db, redisClient)

	cached := []models.GLAccount{
		{ID: "acct-a", OrganizationID: "org-1", Name: "Cash"},
		{ID: "acct-b", OrganizationID: "org-1", Name: "Rent Income"},
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)

	redisMock.ExpectGet("gl_accounts:org-1").SetVal(string(payload))

	accounts, err := service.GetGLAccounts("org-1", []string{"acct-b"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acct-b", accounts[0].ID)

	// The cached list satisfied the lookup without touching Postgres.
	assert.NoError(t, dbMock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestOrgService_GetGLAccountsByID(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	service := NewOrgService(db, nil)

	dbMock.ExpectQuery("SELECT (.+) FROM gl_accounts").
		WillReturnRows(sqlmock.NewRows(glAccountColumns()).
			AddRow("acct-a", "org-2", "Cash", nil))

	accounts, err := service.GetGLAccountsByID([]string{"acct-a"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "org-2", accounts[0].OrganizationID)

	assert.NoError(t, dbMock.ExpectationsWereMet())
}
