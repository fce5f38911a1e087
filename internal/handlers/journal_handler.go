package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentledger/backend/internal/services"
)

type JournalHandler struct {
	service   *services.JournalService
	validator *services.ValidationHelper
}

func NewJournalHandler(service *services.JournalService) *JournalHandler {
	return &JournalHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateJournalEntry creates a general journal entry
// @Summary Create journal entry
// @Description Create a balanced general journal entry, optionally synced to the external ledger
// @Tags journal-entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param entry body services.JournalEntryRequest true "Journal entry"
// @Success 201 {object} object{data=services.CreateResult}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /journal-entries [post]
func (h *JournalHandler) CreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Create(userID, req)
	if err != nil {
		services.SendAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"data": result})
}

// GetJournalEntry reads a journal entry back
// @Summary Get journal entry
// @Description Retrieve a journal entry with its transaction and lines
// @Tags journal-entries
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} services.JournalEntryView
// @Failure 404 {object} services.ErrorResponse
// @Router /journal-entries/{transactionId} [get]
func (h *JournalHandler) GetJournalEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID := chi.URLParam(r, "transactionId")

	view, err := h.service.Get(userID, transactionID)
	if err != nil {
		services.SendAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// UpdateJournalEntry rewrites a journal entry
// @Summary Update journal entry
// @Description Replace a journal entry's lines and re-sync it when required
// @Tags journal-entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Param entry body services.JournalEntryRequest true "Journal entry"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse
// @Router /journal-entries/{transactionId} [put]
func (h *JournalHandler) UpdateJournalEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID := chi.URLParam(r, "transactionId")

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Update(userID, transactionID, req); err != nil {
		services.SendAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// DeleteJournalEntry deletes a draft journal entry
// @Summary Delete journal entry
// @Description Delete a journal entry that has not been synced to the external ledger
// @Tags journal-entries
// @Produce json
// @Security BearerAuth
// @Param transactionId path string true "Transaction ID"
// @Param propertyId query string true "Property ID or the company sentinel"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /journal-entries/{transactionId} [delete]
func (h *JournalHandler) DeleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok || userID == "" {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactionID := chi.URLParam(r, "transactionId")
	propertyID := r.URL.Query().Get("propertyId")

	if err := h.service.Delete(userID, transactionID, propertyID); err != nil {
		services.SendAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *JournalHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*services.JournalEntryRequest, bool) {
	var req services.JournalEntryRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return nil, false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return nil, false
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return nil, false
	}

	return &req, true
}
