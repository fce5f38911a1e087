package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rentledger/backend/internal/models"
)

// LedgerStore owns the three journal tables: transactions,
// transaction_lines and journal_entries. Each method is atomic per call;
// multi-row flows run inside a *sql.Tx opened by the caller, with manual
// compensation reserved for the external-sync boundary that no local
// transaction can cover.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

func (s *LedgerStore) InsertTransactionTx(tx *sql.Tx, t *models.Transaction) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := tx.Exec(`
		INSERT INTO transactions
		(id, date, memo, total_amount, organization_id, status, transaction_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Date, t.Memo, t.TotalAmount, t.OrganizationID, t.Status, t.TransactionType, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *LedgerStore) InsertLinesTx(tx *sql.Tx, lines []models.TransactionLine) error {
	for i := range lines {
		line := &lines[i]
		_, err := tx.Exec(`
			INSERT INTO transaction_lines
			(id, transaction_id, gl_account_id, date, memo, amount, posting_type,
			 account_entity_type, account_entity_id, property_id, unit_id,
			 external_property_id, external_unit_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			line.ID, line.TransactionID, line.GLAccountID, line.Date, line.Memo,
			line.Amount, line.PostingType, line.AccountEntityType, line.AccountEntityID,
			line.PropertyID, line.UnitID, line.ExternalPropertyID, line.ExternalUnitID)
		if err != nil {
			return fmt.Errorf("insert line %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *LedgerStore) InsertJournalEntryTx(tx *sql.Tx, e *models.JournalEntry) error {
	_, err := tx.Exec(`
		INSERT INTO journal_entries
		(id, transaction_id, date, memo, total_amount, external_gl_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.TransactionID, e.Date, e.Memo, e.TotalAmount, e.ExternalGLEntryID)
	return err
}

func (s *LedgerStore) UpdateTransactionTx(tx *sql.Tx, t *models.Transaction) error {
	t.UpdatedAt = time.Now()
	_, err := tx.Exec(`
		UPDATE transactions
		SET date = $1, memo = $2, total_amount = $3, organization_id = $4, updated_at = $5
		WHERE id = $6`,
		t.Date, t.Memo, t.TotalAmount, t.OrganizationID, t.UpdatedAt, t.ID)
	return err
}

func (s *LedgerStore) UpdateJournalEntryTx(tx *sql.Tx, e *models.JournalEntry) error {
	_, err := tx.Exec(`
		UPDATE journal_entries
		SET date = $1, memo = $2, total_amount = $3, external_gl_entry_id = $4
		WHERE id = $5`,
		e.Date, e.Memo, e.TotalAmount, e.ExternalGLEntryID, e.ID)
	return err
}

// ReplaceLinesTx swaps the full line set of a transaction: delete-all then
// insert-all, never a diff.
func (s *LedgerStore) ReplaceLinesTx(tx *sql.Tx, transactionID string, lines []models.TransactionLine) error {
	if err := s.DeleteLinesTx(tx, transactionID); err != nil {
		return err
	}
	return s.InsertLinesTx(tx, lines)
}

func (s *LedgerStore) DeleteLinesTx(tx *sql.Tx, transactionID string) error {
	_, err := tx.Exec(`DELETE FROM transaction_lines WHERE transaction_id = $1`, transactionID)
	return err
}

func (s *LedgerStore) DeleteJournalEntryTx(tx *sql.Tx, id string) error {
	_, err := tx.Exec(`DELETE FROM journal_entries WHERE id = $1`, id)
	return err
}

func (s *LedgerStore) DeleteTransactionTx(tx *sql.Tx, id string) error {
	_, err := tx.Exec(`DELETE FROM transactions WHERE id = $1`, id)
	return err
}

func (s *LedgerStore) GetTransaction(id string) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := s.db.QueryRow(`
		SELECT id, date, memo, total_amount, organization_id, status, transaction_type, created_at, updated_at
		FROM transactions
		WHERE id = $1`, id).Scan(
		&t.ID, &t.Date, &t.Memo, &t.TotalAmount, &t.OrganizationID, &t.Status,
		&t.TransactionType, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *LedgerStore) GetJournalEntryByTransaction(transactionID string) (*models.JournalEntry, error) {
	e := &models.JournalEntry{}
	err := s.db.QueryRow(`
		SELECT id, transaction_id, date, memo, total_amount, external_gl_entry_id
		FROM journal_entries
		WHERE transaction_id = $1`, transactionID).Scan(
		&e.ID, &e.TransactionID, &e.Date, &e.Memo, &e.TotalAmount, &e.ExternalGLEntryID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *LedgerStore) GetLines(transactionID string) ([]models.TransactionLine, error) {
	rows, err := s.db.Query(`
		SELECT id, transaction_id, gl_account_id, date, memo, amount, posting_type,
		       account_entity_type, account_entity_id, property_id, unit_id,
		       external_property_id, external_unit_id
		FROM transaction_lines
		WHERE transaction_id = $1
		ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.TransactionLine{}
	for rows.Next() {
		var line models.TransactionLine
		err := rows.Scan(
			&line.ID, &line.TransactionID, &line.GLAccountID, &line.Date, &line.Memo,
			&line.Amount, &line.PostingType, &line.AccountEntityType, &line.AccountEntityID,
			&line.PropertyID, &line.UnitID, &line.ExternalPropertyID, &line.ExternalUnitID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Snapshot captures the pre-mutation state of a posting. The update flow
// restores it verbatim if the external sync fails after the local commit.
func (s *LedgerStore) Snapshot(transactionID string) (*models.JournalSnapshot, error) {
	transaction, err := s.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, fmt.Errorf("transaction %s not found", transactionID)
	}

	lines, err := s.GetLines(transactionID)
	if err != nil {
		return nil, err
	}

	entry, err := s.GetJournalEntryByTransaction(transactionID)
	if err != nil {
		return nil, err
	}

	return &models.JournalSnapshot{
		Transaction:  *transaction,
		Lines:        lines,
		JournalEntry: entry,
	}, nil
}

// SetJournalEntryExternalID marks the entry Synced with the id returned by
// the external ledger.
func (s *LedgerStore) SetJournalEntryExternalID(id string, externalID int64) error {
	_, err := s.db.Exec(`
		UPDATE journal_entries SET external_gl_entry_id = $1 WHERE id = $2`,
		externalID, id)
	return err
}

// DeleteJournalPosting removes the lines, the journal entry and the
// transaction in that order. Used both by the delete flow and by create
// compensation after a failed sync.
func (s *LedgerStore) DeleteJournalPosting(transactionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.DeleteLinesTx(tx, transactionID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM journal_entries WHERE transaction_id = $1`, transactionID); err != nil {
		return err
	}
	if err := s.DeleteTransactionTx(tx, transactionID); err != nil {
		return err
	}
	return tx.Commit()
}

// RestoreSnapshot puts the transaction, its lines and its journal entry
// back to their captured values.
func (s *LedgerStore) RestoreSnapshot(snap *models.JournalSnapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t := snap.Transaction
	_, err = tx.Exec(`
		UPDATE transactions
		SET date = $1, memo = $2, total_amount = $3, organization_id = $4, updated_at = $5
		WHERE id = $6`,
		t.Date, t.Memo, t.TotalAmount, t.OrganizationID, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}

	if err := s.DeleteLinesTx(tx, t.ID); err != nil {
		return err
	}
	if err := s.InsertLinesTx(tx, snap.Lines); err != nil {
		return err
	}

	if snap.JournalEntry != nil {
		if err := s.UpdateJournalEntryTx(tx, snap.JournalEntry); err != nil {
			return err
		}
	}

	return tx.Commit()
}
