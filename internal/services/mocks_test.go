package services

import (
	"github.com/stretchr/testify/mock"

	"github.com/rentledger/backend/internal/models"
)

type MockScopeResolver struct {
	mock.Mock
}

func (m *MockScopeResolver) ResolveOrganization(userID, preferredOrgID string) (string, error) {
	args := m.Called(userID, preferredOrgID)
	return args.String(0), args.Error(1)
}

func (m *MockScopeResolver) UserHasAccess(userID, orgID string) (bool, error) {
	args := m.Called(userID, orgID)
	return args.Bool(0), args.Error(1)
}

func (m *MockScopeResolver) GetProperty(id string) (*models.Property, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockScopeResolver) GetUnit(id string) (*models.Unit, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Unit), args.Error(1)
}

func (m *MockScopeResolver) GetGLAccounts(orgID string, ids []string) ([]models.GLAccount, error) {
	args := m.Called(orgID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GLAccount), args.Error(1)
}

func (m *MockScopeResolver) GetGLAccountsByID(ids []string) ([]models.GLAccount, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GLAccount), args.Error(1)
}

type MockExternalLedger struct {
	mock.Mock
}

func (m *MockExternalLedger) CreateEntry(spec *GLEntrySpec) (int64, error) {
	args := m.Called(spec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExternalLedger) UpdateEntry(existingID int64, spec *GLEntrySpec) (int64, error) {
	args := m.Called(existingID, spec)
	return args.Get(0).(int64), args.Error(1)
}
