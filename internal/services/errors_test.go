package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{NewValidationError("bad input"), http.StatusBadRequest},
		{NewAuthorizationError("denied"), http.StatusForbidden},
		{NewNotFoundError("missing"), http.StatusNotFound},
		{NewConflictError("synced"), http.StatusConflict},
		{NewNotConfiguredError("no credentials"), http.StatusNotImplemented},
		{NewSyncError("upstream down", nil), http.StatusBadGateway},
		{NewInternalError("broken", nil), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewConflictError("synced")), http.StatusConflict},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, StatusFor(tc.err), tc.err.Error())
	}
}

func TestSendAPIError(t *testing.T) {
	t.Run("api error keeps its status and message", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		SendAPIError(recorder, NewConflictError("journal entry has been synced"))

		assert.Equal(t, http.StatusConflict, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "journal entry has been synced")
	})

	t.Run("unknown error becomes 500 without leaking detail", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		SendAPIError(recorder, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.NotContains(t, recorder.Body.String(), "pq:")
	})
}
