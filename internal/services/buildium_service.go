package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentledger/backend/internal/config"
	"github.com/rentledger/backend/internal/models"
)

// ExternalLedger wraps the third-party accounting API's general journal
// entry operations, keyed by externally-mapped account ids.
type ExternalLedger interface {
	CreateEntry(spec *GLEntrySpec) (int64, error)
	UpdateEntry(existingID int64, spec *GLEntrySpec) (int64, error)
}

// GLEntrySpec is the payload for an external general journal entry. Every
// account id in it is the external ledger's id, never a local one.
type GLEntrySpec struct {
	Date             time.Time
	Memo             *string
	TotalAmount      decimal.Decimal
	AccountingEntity GLAccountingEntity
	Lines            []GLEntryLine
}

// GLAccountingEntity scopes the external entry to a rental property (with
// optional unit) or to the company.
type GLAccountingEntity struct {
	Type   models.AccountEntityType
	ID     *int64
	UnitID *int64
}

type GLEntryLine struct {
	GLAccountID int64
	Amount      decimal.Decimal
	PostingType models.PostingType
	Memo        *string
}

// BuildiumService is the external ledger adapter. It performs no
// precondition checks on account mappings; the orchestrator guarantees
// every line carries an external account id before calling it.
type BuildiumService struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	memoLimit    int
}

func NewBuildiumService(cfg *config.BuildiumConfig) *BuildiumService {
	return &BuildiumService{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		memoLimit:    cfg.MemoLimit,
	}
}

type buildiumEntityPayload struct {
	ID         *int64 `json:"Id"`
	EntityType string `json:"AccountingEntityType"`
	UnitID     *int64 `json:"UnitId,omitempty"`
}

type buildiumLinePayload struct {
	GLAccountID int64   `json:"GLAccountId"`
	Amount      float64 `json:"Amount"`
	PostingType string  `json:"PostingType"`
	Memo        *string `json:"Memo,omitempty"`
}

type buildiumEntryPayload struct {
	AccountingEntity buildiumEntityPayload `json:"AccountingEntity"`
	Date             string                `json:"Date"`
	Memo             *string               `json:"Memo,omitempty"`
	TotalAmount      float64               `json:"TotalAmount"`
	Lines            []buildiumLinePayload `json:"Lines"`
}

type buildiumEntryResponse struct {
	ID json.Number `json:"Id"`
}

// CreateEntry posts a new general journal entry and returns its external id.
func (s *BuildiumService) CreateEntry(spec *GLEntrySpec) (int64, error) {
	url := fmt.Sprintf("%s/v1/generalledger/journalentries", s.baseURL)
	return s.send(http.MethodPost, url, spec)
}

// UpdateEntry upserts against an existing external entry.
func (s *BuildiumService) UpdateEntry(existingID int64, spec *GLEntrySpec) (int64, error) {
	url := fmt.Sprintf("%s/v1/generalledger/journalentries/%d", s.baseURL, existingID)
	return s.send(http.MethodPut, url, spec)
}

func (s *BuildiumService) send(method, url string, spec *GLEntrySpec) (int64, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return 0, NewNotConfiguredError("external ledger credentials are not configured")
	}

	payload := s.buildPayload(spec)
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, NewSyncError("failed to encode journal entry payload", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return 0, NewSyncError("failed to build external ledger request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-buildium-client-id", s.clientID)
	req.Header.Set("x-buildium-client-secret", s.clientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, NewSyncError("external ledger request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Printf("[BUILDIUM] %s %s returned %d: %s", method, url, resp.StatusCode, string(detail))
		return 0, NewSyncError(fmt.Sprintf("external ledger returned status %d", resp.StatusCode), nil)
	}

	var entry buildiumEntryResponse
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return 0, NewSyncError("failed to decode external ledger response", err)
	}

	externalID, err := entry.ID.Int64()
	if err != nil || externalID <= 0 {
		return 0, NewSyncError(fmt.Sprintf("external ledger returned an unusable entry id %q", entry.ID), err)
	}

	return externalID, nil
}

func (s *BuildiumService) buildPayload(spec *GLEntrySpec) *buildiumEntryPayload {
	lines := make([]buildiumLinePayload, 0, len(spec.Lines))
	for _, line := range spec.Lines {
		lines = append(lines, buildiumLinePayload{
			GLAccountID: line.GLAccountID,
			Amount:      line.Amount.InexactFloat64(),
			PostingType: string(line.PostingType),
			Memo:        s.truncateMemo(line.Memo),
		})
	}

	return &buildiumEntryPayload{
		AccountingEntity: buildiumEntityPayload{
			ID:         spec.AccountingEntity.ID,
			EntityType: string(spec.AccountingEntity.Type),
			UnitID:     spec.AccountingEntity.UnitID,
		},
		Date:        spec.Date.Format("2006-01-02"),
		Memo:        s.truncateMemo(spec.Memo),
		TotalAmount: spec.TotalAmount.InexactFloat64(),
		Lines:       lines,
	}
}

// truncateMemo enforces the external system's memo length limit.
func (s *BuildiumService) truncateMemo(memo *string) *string {
	if memo == nil {
		return nil
	}
	runes := []rune(*memo)
	if len(runes) <= s.memoLimit {
		return memo
	}
	truncated := string(runes[:s.memoLimit])
	return &truncated
}
