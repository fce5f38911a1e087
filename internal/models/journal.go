package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingType determines which side of the balance a line contributes to.
type PostingType string

const (
	PostingDebit  PostingType = "Debit"
	PostingCredit PostingType = "Credit"
)

// AccountEntityType scopes a line to a rental property or to the company.
type AccountEntityType string

const (
	EntityRental  AccountEntityType = "Rental"
	EntityCompany AccountEntityType = "Company"
)

// CompanyPropertyID is the reserved propertyId meaning the entry is scoped
// to the organization as a whole rather than to a single property.
const CompanyPropertyID = "company"

const (
	TransactionTypeJournalEntry = "JournalEntry"
	TransactionStatusDue        = "Due"
)

// Transaction is one row per journal posting event. TotalAmount equals the
// sum of the debit lines, which equals the sum of the credit lines.
type Transaction struct {
	ID              string          `json:"id" db:"id"`
	Date            time.Time       `json:"date" db:"date"`
	Memo            *string         `json:"memo" db:"memo"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	OrganizationID  string          `json:"organizationId" db:"organization_id"`
	Status          string          `json:"status" db:"status"`
	TransactionType string          `json:"transactionType" db:"transaction_type"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// TransactionLine is one debit or credit leg, owned exclusively by its
// transaction. The full line set is replaced on every update.
type TransactionLine struct {
	ID                 string            `json:"id" db:"id"`
	TransactionID      string            `json:"transactionId" db:"transaction_id"`
	GLAccountID        string            `json:"glAccountId" db:"gl_account_id"`
	Date               time.Time         `json:"date" db:"date"`
	Memo               *string           `json:"memo" db:"memo"`
	Amount             decimal.Decimal   `json:"amount" db:"amount"`
	PostingType        PostingType       `json:"postingType" db:"posting_type"`
	AccountEntityType  AccountEntityType `json:"accountEntityType" db:"account_entity_type"`
	AccountEntityID    *int64            `json:"accountEntityId" db:"account_entity_id"`
	PropertyID         *string           `json:"propertyId" db:"property_id"`
	UnitID             *string           `json:"unitId" db:"unit_id"`
	ExternalPropertyID *int64            `json:"externalPropertyId" db:"external_property_id"`
	ExternalUnitID     *int64            `json:"externalUnitId" db:"external_unit_id"`
}

// JournalEntry is the 1:1 companion row of a journal transaction. While
// ExternalGLEntryID is null the entry is Draft; once set it is Synced and
// can no longer be deleted through this engine.
type JournalEntry struct {
	ID                string          `json:"id" db:"id"`
	TransactionID     string          `json:"transactionId" db:"transaction_id"`
	Date              time.Time       `json:"date" db:"date"`
	Memo              *string         `json:"memo" db:"memo"`
	TotalAmount       decimal.Decimal `json:"totalAmount" db:"total_amount"`
	ExternalGLEntryID *int64          `json:"externalGlEntryId" db:"external_gl_entry_id"`
}

// Synced reports whether the entry has been posted to the external ledger.
func (e *JournalEntry) Synced() bool {
	return e.ExternalGLEntryID != nil
}

// JournalSnapshot captures the pre-mutation state of a posting for
// compensation after a failed external sync.
type JournalSnapshot struct {
	Transaction  Transaction
	Lines        []TransactionLine
	JournalEntry *JournalEntry
}
