package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"

	"github.com/rentledger/backend/internal/models"
)

// ScopeResolver provides organization resolution, access checks and the
// collaborator entity reads the saga needs. The journal engine consumes
// this contract; OrgService is the database-backed implementation.
type ScopeResolver interface {
	ResolveOrganization(userID, preferredOrgID string) (string, error)
	UserHasAccess(userID, orgID string) (bool, error)
	GetProperty(id string) (*models.Property, error)
	GetUnit(id string) (*models.Unit, error)
	GetGLAccounts(orgID string, ids []string) ([]models.GLAccount, error)
	GetGLAccountsByID(ids []string) ([]models.GLAccount, error)
}

type OrgService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewOrgService(db *sql.DB, redisClient *redis.Client) *OrgService {
	return &OrgService{db: db, redis: redisClient}
}

// ResolveOrganization returns the preferred organization when the user is a
// member of it, otherwise the user's first membership, otherwise "".
func (s *OrgService) ResolveOrganization(userID, preferredOrgID string) (string, error) {
	if preferredOrgID != "" {
		ok, err := s.UserHasAccess(userID, preferredOrgID)
		if err != nil {
			return "", err
		}
		if ok {
			return preferredOrgID, nil
		}
	}

	var orgID string
	err := s.db.QueryRow(`
		SELECT organization_id FROM organization_members
		WHERE user_id = $1
		ORDER BY organization_id
		LIMIT 1`, userID).Scan(&orgID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return orgID, nil
}

func (s *OrgService) UserHasAccess(userID, orgID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM organization_members
			WHERE user_id = $1 AND organization_id = $2
		)`, userID, orgID).Scan(&exists)
	return exists, err
}

func (s *OrgService) GetProperty(id string) (*models.Property, error) {
	p := &models.Property{}
	err := s.db.QueryRow(`
		SELECT id, organization_id, name, external_property_id
		FROM properties
		WHERE id = $1`, id).Scan(&p.ID, &p.OrganizationID, &p.Name, &p.ExternalPropertyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *OrgService) GetUnit(id string) (*models.Unit, error) {
	u := &models.Unit{}
	err := s.db.QueryRow(`
		SELECT id, property_id, external_unit_id
		FROM units
		WHERE id = $1`, id).Scan(&u.ID, &u.PropertyID, &u.ExternalUnitID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetGLAccounts returns the requested accounts scoped to the organization.
// The organization's full account list is cached in Redis for a short TTL;
// a cache miss or an absent Redis client falls through to Postgres.
func (s *OrgService) GetGLAccounts(orgID string, ids []string) ([]models.GLAccount, error) {
	if cached := s.cachedAccounts(orgID); cached != nil {
		return filterAccounts(cached, ids), nil
	}

	rows, err := s.db.Query(`
		SELECT id, organization_id, name, external_gl_account_id
		FROM gl_accounts
		WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.GLAccount{}
	for rows.Next() {
		var a models.GLAccount
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.ExternalGLAccountID); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cacheAccounts(orgID, accounts)
	return filterAccounts(accounts, ids), nil
}

// GetGLAccountsByID looks accounts up without organization scoping, used to
// distinguish "no such account" from "wrong organization".
func (s *OrgService) GetGLAccountsByID(ids []string) ([]models.GLAccount, error) {
	rows, err := s.db.Query(`
		SELECT id, organization_id, name, external_gl_account_id
		FROM gl_accounts
		WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.GLAccount{}
	for rows.Next() {
		var a models.GLAccount
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.ExternalGLAccountID); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *OrgService) cachedAccounts(orgID string) []models.GLAccount {
	if s.redis == nil {
		return nil
	}

	ctx := context.Background()
	data, err := s.redis.Get(ctx, glAccountCacheKey(orgID)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Printf("[ORG] Redis read failed for org %s: %v", orgID, err)
		return nil
	}

	var accounts []models.GLAccount
	if err := json.Unmarshal(data, &accounts); err != nil {
		log.Printf("[ORG] Corrupt account cache for org %s: %v", orgID, err)
		return nil
	}
	return accounts
}

func (s *OrgService) cacheAccounts(orgID string, accounts []models.GLAccount) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(accounts)
	if err != nil {
		return
	}

	ctx := context.Background()
	if err := s.redis.Set(ctx, glAccountCacheKey(orgID), data, 5*time.Minute).Err(); err != nil {
		log.Printf("[ORG] Redis write failed for org %s: %v", orgID, err)
	}
}

func glAccountCacheKey(orgID string) string {
	return "gl_accounts:" + orgID
}

func filterAccounts(accounts []models.GLAccount, ids []string) []models.GLAccount {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	filtered := []models.GLAccount{}
	for _, a := range accounts {
		if wanted[a.ID] {
			filtered = append(filtered, a)
		}
	}
	return filtered
}
