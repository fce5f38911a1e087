package services

import (
	"errors"
	"net/http"
)

// APIError carries the HTTP status a failure maps to. The orchestrator
// returns these for every failure class so handlers stay thin.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

func NewAuthorizationError(message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: message}
}

func NewConflictError(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Message: message}
}

// NewConfigurationError reports a misconfigured deployment (admin write
// access, external settings) as a server-side failure.
func NewConfigurationError(message string, err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// NewNotConfiguredError reports missing external-ledger credentials.
func NewNotConfiguredError(message string) *APIError {
	return &APIError{Status: http.StatusNotImplemented, Message: message}
}

// NewSyncError reports a failed or unusable external ledger call.
func NewSyncError(message string, err error) *APIError {
	return &APIError{Status: http.StatusBadGateway, Message: message, Err: err}
}

func NewInternalError(message string, err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// StatusFor maps an error to its HTTP status, defaulting to 500.
func StatusFor(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
