package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rentledger/backend/internal/audit"
	"github.com/rentledger/backend/internal/models"
)

const entryDateLayout = "2006-01-02"

// JournalEntryRequest is the payload for create and update.
type JournalEntryRequest struct {
	PropertyID string           `json:"propertyId" validate:"required"`
	UnitID     string           `json:"unitId,omitempty"`
	Date       string           `json:"date" validate:"required"`
	Memo       string           `json:"memo,omitempty" validate:"max=1000"`
	Lines      []RawJournalLine `json:"lines" validate:"required,min=1,dive"`
}

type CreateResult struct {
	TransactionID  string `json:"transactionId"`
	JournalEntryID string `json:"journalEntryId"`
}

// JournalEntryView is the read-back shape of a posting.
type JournalEntryView struct {
	Transaction  *models.Transaction      `json:"transaction"`
	Lines        []models.TransactionLine `json:"lines"`
	JournalEntry *models.JournalEntry     `json:"journalEntry"`
}

// JournalService is the saga orchestrator for general journal entries. It
// sequences validation, the local three-table write, the optional external
// sync, and compensation when the sync fails after the local commit.
type JournalService struct {
	store    *LedgerStore
	resolver ScopeResolver
	external ExternalLedger
	audit    *audit.Logger
}

func NewJournalService(store *LedgerStore, resolver ScopeResolver, external ExternalLedger) *JournalService {
	return &JournalService{
		store:    store,
		resolver: resolver,
		external: external,
		audit:    audit.NewLogger(),
	}
}

// entryScope is the resolved target of a request: either a property (with
// optional unit) or the company level.
type entryScope struct {
	company  bool
	property *models.Property
	unit     *models.Unit
	orgID    string
}

func (sc *entryScope) syncRequired() bool {
	return sc.property != nil && sc.property.ExternalPropertyID != nil
}

func (sc *entryScope) propertyID() string {
	if sc.company {
		return models.CompanyPropertyID
	}
	return sc.property.ID
}

// Create runs the create flow: validate, write the three local rows in one
// transaction, then sync externally when the property is mapped. A failed
// sync deletes everything written, restoring "nothing persisted".
func (s *JournalService) Create(userID string, req *JournalEntryRequest) (*CreateResult, error) {
	date, err := parseEntryDate(req.Date)
	if err != nil {
		return nil, err
	}

	scope, err := s.resolveScope(userID, req.PropertyID, req.UnitID)
	if err != nil {
		return nil, err
	}

	entry, err := NormalizeLines(req.Lines, req.Memo)
	if err != nil {
		return nil, err
	}

	accounts, err := s.loadAccounts(scope, entry)
	if err != nil {
		return nil, err
	}

	syncRequired := scope.syncRequired()
	if syncRequired {
		if err := requireExternalAccounts(accounts); err != nil {
			return nil, err
		}
	}

	transaction := &models.Transaction{
		ID:              uuid.NewString(),
		Date:            date,
		Memo:            entry.Memo,
		TotalAmount:     entry.Total,
		OrganizationID:  scope.orgID,
		Status:          models.TransactionStatusDue,
		TransactionType: models.TransactionTypeJournalEntry,
	}
	lines := buildLines(transaction.ID, date, scope, entry)
	journalEntry := &models.JournalEntry{
		ID:            uuid.NewString(),
		TransactionID: transaction.ID,
		Date:          date,
		Memo:          entry.Memo,
		TotalAmount:   entry.Total,
	}

	tx, err := s.store.Begin()
	if err != nil {
		return nil, NewInternalError("failed to open ledger transaction", err)
	}
	defer tx.Rollback()

	if err := s.store.InsertTransactionTx(tx, transaction); err != nil {
		s.audit.LogError(transaction.ID, scope.propertyID(), err)
		return nil, NewInternalError("failed to record transaction", err)
	}
	if err := s.store.InsertLinesTx(tx, lines); err != nil {
		s.audit.LogError(transaction.ID, scope.propertyID(), err)
		return nil, NewInternalError("failed to record transaction lines", err)
	}
	if err := s.store.InsertJournalEntryTx(tx, journalEntry); err != nil {
		s.audit.LogError(transaction.ID, scope.propertyID(), err)
		return nil, NewInternalError("failed to record journal entry", err)
	}
	if err := tx.Commit(); err != nil {
		s.audit.LogError(transaction.ID, scope.propertyID(), err)
		return nil, NewInternalError("failed to commit journal entry", err)
	}

	if syncRequired {
		externalID, err := s.external.CreateEntry(buildGLEntrySpec(date, entry, scope, accounts))
		if err != nil {
			// The local rows are already committed; undo them so a failed
			// sync leaves no trace of the attempt.
			if compErr := s.store.DeleteJournalPosting(transaction.ID); compErr != nil {
				log.Printf("[JOURNAL] Compensation failed for transaction %s: %v", transaction.ID, compErr)
			}
			s.audit.LogCompensation(transaction.ID, err.Error())
			return nil, err
		}
		if err := s.store.SetJournalEntryExternalID(journalEntry.ID, externalID); err != nil {
			log.Printf("[JOURNAL] Synced externally as %d but failed to persist id on entry %s: %v",
				externalID, journalEntry.ID, err)
			return nil, NewInternalError("failed to persist external entry id", err)
		}
		s.audit.LogMutation("SYNC", transaction.ID, scope.propertyID(), map[string]int64{"external_id": externalID})
	}

	s.audit.LogMutation("JOURNAL_CREATE", transaction.ID, scope.propertyID(), nil)
	return &CreateResult{
		TransactionID:  transaction.ID,
		JournalEntryID: journalEntry.ID,
	}, nil
}

// Update runs the update flow: validate against the stored posting, capture
// a snapshot, replace the local rows in one transaction, then re-sync. A
// failed sync restores the snapshot byte for byte.
func (s *JournalService) Update(userID, transactionID string, req *JournalEntryRequest) error {
	date, err := parseEntryDate(req.Date)
	if err != nil {
		return err
	}

	transaction, err := s.store.GetTransaction(transactionID)
	if err != nil {
		return NewInternalError("failed to load transaction", err)
	}
	if transaction == nil {
		return NewNotFoundError("transaction not found")
	}
	if transaction.TransactionType != models.TransactionTypeJournalEntry {
		return NewValidationError("transaction is not a general journal entry")
	}

	journalEntry, err := s.store.GetJournalEntryByTransaction(transactionID)
	if err != nil {
		return NewInternalError("failed to load journal entry", err)
	}
	if journalEntry == nil {
		return NewNotFoundError("journal entry not found")
	}

	existingLines, err := s.store.GetLines(transactionID)
	if err != nil {
		return NewInternalError("failed to load transaction lines", err)
	}

	scope, err := s.resolveScope(userID, req.PropertyID, req.UnitID)
	if err != nil {
		return err
	}

	if err := checkLineScope(existingLines, scope); err != nil {
		return err
	}

	entry, err := NormalizeLines(req.Lines, req.Memo)
	if err != nil {
		return err
	}

	accounts, err := s.loadAccounts(scope, entry)
	if err != nil {
		return err
	}

	syncRequired := scope.syncRequired()
	if syncRequired {
		if err := requireExternalAccounts(accounts); err != nil {
			return err
		}
	}

	snapshot, err := s.store.Snapshot(transactionID)
	if err != nil {
		return NewInternalError("failed to snapshot journal entry", err)
	}

	transaction.Date = date
	transaction.Memo = entry.Memo
	transaction.TotalAmount = entry.Total
	if scope.orgID != "" {
		transaction.OrganizationID = scope.orgID
	}
	journalEntry.Date = date
	journalEntry.Memo = entry.Memo
	journalEntry.TotalAmount = entry.Total
	newLines := buildLines(transactionID, date, scope, entry)

	tx, err := s.store.Begin()
	if err != nil {
		return NewInternalError("failed to open ledger transaction", err)
	}
	defer tx.Rollback()

	if err := s.store.UpdateTransactionTx(tx, transaction); err != nil {
		s.audit.LogError(transactionID, scope.propertyID(), err)
		return NewInternalError("failed to update transaction", err)
	}
	if err := s.store.ReplaceLinesTx(tx, transactionID, newLines); err != nil {
		s.audit.LogError(transactionID, scope.propertyID(), err)
		return NewInternalError("failed to replace transaction lines", err)
	}
	if err := s.store.UpdateJournalEntryTx(tx, journalEntry); err != nil {
		s.audit.LogError(transactionID, scope.propertyID(), err)
		return NewInternalError("failed to update journal entry", err)
	}
	if err := tx.Commit(); err != nil {
		s.audit.LogError(transactionID, scope.propertyID(), err)
		return NewInternalError("failed to commit journal entry update", err)
	}

	if syncRequired {
		spec := buildGLEntrySpec(date, entry, scope, accounts)

		var externalID int64
		if journalEntry.ExternalGLEntryID != nil {
			// Re-sync of an already-synced entry is permitted; the external
			// ledger treats it as an upsert against the existing entry.
			externalID, err = s.external.UpdateEntry(*journalEntry.ExternalGLEntryID, spec)
		} else {
			externalID, err = s.external.CreateEntry(spec)
		}
		if err != nil {
			if compErr := s.store.RestoreSnapshot(snapshot); compErr != nil {
				log.Printf("[JOURNAL] Snapshot restore failed for transaction %s: %v", transactionID, compErr)
			}
			s.audit.LogCompensation(transactionID, err.Error())
			return err
		}

		if err := s.store.SetJournalEntryExternalID(journalEntry.ID, externalID); err != nil {
			log.Printf("[JOURNAL] Synced externally as %d but failed to persist id on entry %s: %v",
				externalID, journalEntry.ID, err)
			return NewInternalError("failed to persist external entry id", err)
		}
		s.audit.LogMutation("SYNC", transactionID, scope.propertyID(), map[string]int64{"external_id": externalID})
	}

	s.audit.LogMutation("JOURNAL_UPDATE", transactionID, scope.propertyID(), nil)
	return nil
}

// Delete removes a draft posting. Synced entries are refused: once the
// external ledger holds the entry it is the system of record.
func (s *JournalService) Delete(userID, transactionID, propertyID string) error {
	if propertyID == "" {
		return NewValidationError("propertyId is required")
	}

	transaction, err := s.store.GetTransaction(transactionID)
	if err != nil {
		return NewInternalError("failed to load transaction", err)
	}
	if transaction == nil {
		return NewNotFoundError("transaction not found")
	}
	if transaction.TransactionType != models.TransactionTypeJournalEntry {
		return NewValidationError("transaction is not a general journal entry")
	}

	journalEntry, err := s.store.GetJournalEntryByTransaction(transactionID)
	if err != nil {
		return NewInternalError("failed to load journal entry", err)
	}
	if journalEntry != nil && journalEntry.Synced() {
		return NewConflictError("journal entry has been synced to the external ledger and cannot be deleted")
	}

	scope, err := s.resolveScope(userID, propertyID, "")
	if err != nil {
		return err
	}

	if !scope.company {
		existingLines, err := s.store.GetLines(transactionID)
		if err != nil {
			return NewInternalError("failed to load transaction lines", err)
		}
		for _, line := range existingLines {
			if line.PropertyID == nil || *line.PropertyID != scope.property.ID {
				return NewAuthorizationError("transaction lines belong to a different property")
			}
		}
	}

	tx, err := s.store.Begin()
	if err != nil {
		return NewInternalError("failed to open ledger transaction", err)
	}
	defer tx.Rollback()

	if err := s.store.DeleteLinesTx(tx, transactionID); err != nil {
		s.audit.LogError(transactionID, propertyID, err)
		return NewInternalError("failed to delete transaction lines", err)
	}
	if journalEntry != nil {
		if err := s.store.DeleteJournalEntryTx(tx, journalEntry.ID); err != nil {
			s.audit.LogError(transactionID, propertyID, err)
			return NewInternalError("failed to delete journal entry", err)
		}
	}
	if err := s.store.DeleteTransactionTx(tx, transactionID); err != nil {
		s.audit.LogError(transactionID, propertyID, err)
		return NewInternalError("failed to delete transaction", err)
	}
	if err := tx.Commit(); err != nil {
		s.audit.LogError(transactionID, propertyID, err)
		return NewInternalError("failed to commit journal entry delete", err)
	}

	s.audit.LogMutation("JOURNAL_DELETE", transactionID, propertyID, nil)
	return nil
}

// Get reads a posting back: transaction, lines and journal entry.
func (s *JournalService) Get(userID, transactionID string) (*JournalEntryView, error) {
	transaction, err := s.store.GetTransaction(transactionID)
	if err != nil {
		return nil, NewInternalError("failed to load transaction", err)
	}
	if transaction == nil || transaction.TransactionType != models.TransactionTypeJournalEntry {
		return nil, NewNotFoundError("journal entry not found")
	}

	if transaction.OrganizationID != "" {
		ok, err := s.resolver.UserHasAccess(userID, transaction.OrganizationID)
		if err != nil {
			return nil, NewInternalError("failed to check organization access", err)
		}
		if !ok {
			return nil, NewAuthorizationError("user has no access to this organization")
		}
	}

	lines, err := s.store.GetLines(transactionID)
	if err != nil {
		return nil, NewInternalError("failed to load transaction lines", err)
	}
	journalEntry, err := s.store.GetJournalEntryByTransaction(transactionID)
	if err != nil {
		return nil, NewInternalError("failed to load journal entry", err)
	}

	return &JournalEntryView{
		Transaction:  transaction,
		Lines:        lines,
		JournalEntry: journalEntry,
	}, nil
}

// resolveScope authenticates the request against its target: the property's
// organization, or the user's own organization for company-level entries.
func (s *JournalService) resolveScope(userID, propertyID, unitID string) (*entryScope, error) {
	if propertyID == "" {
		return nil, NewValidationError("propertyId is required")
	}

	if propertyID == models.CompanyPropertyID {
		if unitID != "" {
			return nil, NewValidationError("company-level entries cannot reference a unit")
		}
		orgID, err := s.resolver.ResolveOrganization(userID, "")
		if err != nil {
			return nil, NewInternalError("failed to resolve organization", err)
		}
		if orgID == "" {
			// Best-effort: a company-level entry without a resolvable
			// organization is still accepted.
			log.Printf("[JOURNAL] No organization resolved for user %s on company-level entry", userID)
		}
		return &entryScope{company: true, orgID: orgID}, nil
	}

	property, err := s.resolver.GetProperty(propertyID)
	if err != nil {
		return nil, NewInternalError("failed to load property", err)
	}
	if property == nil {
		return nil, NewNotFoundError("property not found")
	}

	ok, err := s.resolver.UserHasAccess(userID, property.OrganizationID)
	if err != nil {
		return nil, NewInternalError("failed to check organization access", err)
	}
	if !ok {
		return nil, NewAuthorizationError("user has no access to this property's organization")
	}

	scope := &entryScope{property: property, orgID: property.OrganizationID}

	if unitID != "" {
		unit, err := s.resolver.GetUnit(unitID)
		if err != nil {
			return nil, NewInternalError("failed to load unit", err)
		}
		if unit == nil {
			return nil, NewNotFoundError("unit not found")
		}
		if unit.PropertyID != property.ID {
			return nil, NewValidationError("unit does not belong to the requested property")
		}
		scope.unit = unit
	}

	return scope, nil
}

// loadAccounts resolves every referenced GL account. All requested accounts
// must exist and belong to the resolved organization.
func (s *JournalService) loadAccounts(scope *entryScope, entry *NormalizedEntry) (map[string]models.GLAccount, error) {
	ids := uniqueAccountIDs(entry.Lines)

	var accounts []models.GLAccount
	var err error
	if scope.orgID == "" {
		accounts, err = s.resolver.GetGLAccountsByID(ids)
	} else {
		accounts, err = s.resolver.GetGLAccounts(scope.orgID, ids)
	}
	if err != nil {
		return nil, NewInternalError("failed to load GL accounts", err)
	}

	byID := make(map[string]models.GLAccount, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	for _, id := range ids {
		if _, ok := byID[id]; ok {
			continue
		}
		if scope.orgID != "" {
			others, err := s.resolver.GetGLAccountsByID([]string{id})
			if err == nil && len(others) > 0 {
				return nil, NewValidationError(fmt.Sprintf("GL account %s belongs to a different organization", id))
			}
		}
		return nil, NewValidationError(fmt.Sprintf("GL account %s does not exist", id))
	}

	return byID, nil
}

// requireExternalAccounts fails fast when any account lacks an external
// mapping, preventing partial external postings.
func requireExternalAccounts(accounts map[string]models.GLAccount) error {
	for _, a := range accounts {
		if a.ExternalGLAccountID == nil {
			return NewValidationError(fmt.Sprintf(
				"GL account %s must be synced to the external ledger before posting", a.ID))
		}
	}
	return nil
}

// checkLineScope rejects an update whose stored lines are scoped
// differently than the request: wrong property, or a company/property
// mixup in either direction.
func checkLineScope(existing []models.TransactionLine, scope *entryScope) error {
	for _, line := range existing {
		if scope.company {
			if line.PropertyID != nil {
				return NewAuthorizationError("company-level request against a property-scoped journal entry")
			}
			continue
		}
		if line.PropertyID == nil {
			return NewAuthorizationError("property-scoped request against a company-level journal entry")
		}
		if *line.PropertyID != scope.property.ID {
			return NewAuthorizationError("transaction lines belong to a different property")
		}
	}
	return nil
}

func buildLines(transactionID string, date time.Time, scope *entryScope, entry *NormalizedEntry) []models.TransactionLine {
	entityType := models.EntityRental
	var entityID, externalPropertyID, externalUnitID *int64
	var propertyID, unitID *string

	if scope.company {
		entityType = models.EntityCompany
	} else {
		id := scope.property.ID
		propertyID = &id
		entityID = scope.property.ExternalPropertyID
		externalPropertyID = scope.property.ExternalPropertyID
		if scope.unit != nil {
			uid := scope.unit.ID
			unitID = &uid
			externalUnitID = scope.unit.ExternalUnitID
		}
	}

	lines := make([]models.TransactionLine, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		lines = append(lines, models.TransactionLine{
			ID:                 uuid.NewString(),
			TransactionID:      transactionID,
			GLAccountID:        line.AccountID,
			Date:               date,
			Memo:               line.Memo,
			Amount:             line.Amount,
			PostingType:        line.PostingType,
			AccountEntityType:  entityType,
			AccountEntityID:    entityID,
			PropertyID:         propertyID,
			UnitID:             unitID,
			ExternalPropertyID: externalPropertyID,
			ExternalUnitID:     externalUnitID,
		})
	}
	return lines
}

func buildGLEntrySpec(date time.Time, entry *NormalizedEntry, scope *entryScope, accounts map[string]models.GLAccount) *GLEntrySpec {
	entity := GLAccountingEntity{Type: models.EntityCompany}
	if !scope.company {
		entity.Type = models.EntityRental
		entity.ID = scope.property.ExternalPropertyID
		if scope.unit != nil {
			entity.UnitID = scope.unit.ExternalUnitID
		}
	}

	lines := make([]GLEntryLine, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		account := accounts[line.AccountID]
		var externalAccountID int64
		if account.ExternalGLAccountID != nil {
			externalAccountID = *account.ExternalGLAccountID
		}
		lines = append(lines, GLEntryLine{
			GLAccountID: externalAccountID,
			Amount:      line.Amount,
			PostingType: line.PostingType,
			Memo:        line.Memo,
		})
	}

	return &GLEntrySpec{
		Date:             date,
		Memo:             entry.Memo,
		TotalAmount:      entry.Total,
		AccountingEntity: entity,
		Lines:            lines,
	}
}

func parseEntryDate(raw string) (time.Time, error) {
	date, err := time.Parse(entryDateLayout, raw)
	if err != nil {
		return time.Time{}, NewValidationError("date must be in YYYY-MM-DD format")
	}
	return date, nil
}

func uniqueAccountIDs(lines []NormalizedLine) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if !seen[line.AccountID] {
			seen[line.AccountID] = true
			ids = append(ids, line.AccountID)
		}
	}
	return ids
}
