package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rentledger/backend/internal/models"
)

// balanceTolerance absorbs floating-point drift from clients that sum
// currency in binary floats. 0.01 is one cent; the balance rule is never
// relaxed beyond it.
var balanceTolerance = decimal.New(1, -2)

// RawJournalLine is a debit or credit leg as submitted by the client.
type RawJournalLine struct {
	AccountID   string  `json:"accountId" validate:"required"`
	Amount      float64 `json:"amount" validate:"required"`
	PostingType string  `json:"postingType" validate:"required"`
	Description string  `json:"description,omitempty" validate:"max=500"`
}

// NormalizedLine is a validated leg with its amount rounded to 2dp.
type NormalizedLine struct {
	AccountID   string
	Amount      decimal.Decimal
	PostingType models.PostingType
	Memo        *string
}

// NormalizedEntry is the output of line normalization. Total is the debit
// total, which the balance rule guarantees equals the credit total.
type NormalizedEntry struct {
	Lines []NormalizedLine
	Total decimal.Decimal
	Memo  *string
}

// NormalizeLines validates and balances the submitted lines. Amounts are
// rounded half-away-from-zero to 2 decimal places before comparison so
// that repeated normalizations are stable.
func NormalizeLines(lines []RawJournalLine, memo string) (*NormalizedEntry, error) {
	if len(lines) == 0 {
		return nil, NewValidationError("at least one journal line is required")
	}

	normalized := make([]NormalizedLine, 0, len(lines))
	debitTotal := decimal.Zero
	creditTotal := decimal.Zero

	for i, line := range lines {
		if strings.TrimSpace(line.AccountID) == "" {
			return nil, NewValidationError(fmt.Sprintf("line %d: accountId is required", i+1))
		}

		if math.IsNaN(line.Amount) || math.IsInf(line.Amount, 0) {
			return nil, NewValidationError(fmt.Sprintf("line %d: amount must be a finite number", i+1))
		}

		postingType := models.PostingType(line.PostingType)
		if postingType != models.PostingDebit && postingType != models.PostingCredit {
			return nil, NewValidationError(fmt.Sprintf("line %d: postingType must be Debit or Credit", i+1))
		}

		amount := decimal.NewFromFloat(line.Amount).Round(2)

		switch postingType {
		case models.PostingDebit:
			debitTotal = debitTotal.Add(amount)
		case models.PostingCredit:
			creditTotal = creditTotal.Add(amount)
		}

		normalized = append(normalized, NormalizedLine{
			AccountID:   strings.TrimSpace(line.AccountID),
			Amount:      amount,
			PostingType: postingType,
			Memo:        normalizeMemo(line.Description),
		})
	}

	if debitTotal.Sub(creditTotal).Abs().Cmp(balanceTolerance) > 0 {
		return nil, NewValidationError(fmt.Sprintf(
			"lines must balance: debits %s do not equal credits %s", debitTotal, creditTotal))
	}

	return &NormalizedEntry{
		Lines: normalized,
		Total: debitTotal,
		Memo:  normalizeMemo(memo),
	}, nil
}

// normalizeMemo trims memo text and maps empty strings to null.
func normalizeMemo(memo string) *string {
	trimmed := strings.TrimSpace(memo)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
