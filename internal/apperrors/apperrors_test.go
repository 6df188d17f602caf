package apperrors_test

import (
	"net/http"
	"testing"

	"chatcord-backend/internal/apperrors"

	"github.com/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.Code
	}{
		{"forbidden", apperrors.Forbidden("no"), apperrors.CodeForbidden},
		{"not found", apperrors.ErrMemberNotFound, apperrors.CodeNotFound},
		{"plain error defaults to internal", errors.New("boom"), apperrors.CodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := apperrors.CodeOf(tc.err); got != tc.code {
				t.Errorf("got %s, want %s", got, tc.code)
			}
		})
	}
}

// Store layers wrap domain errors with pkg/errors context; the code must
// survive the wrapping.
func TestCodeSurvivesWrapping(t *testing.T) {
	wrapped := errors.Wrap(apperrors.ErrAlreadyDeleted, "ledger.Edit")

	if apperrors.CodeOf(wrapped) != apperrors.CodeConflict {
		t.Errorf("code lost through wrap: got %s", apperrors.CodeOf(wrapped))
	}
	if !apperrors.Is(wrapped, apperrors.CodeConflict) {
		t.Error("Is should see through pkg/errors wrapping")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperrors.Unauthenticated("x"), http.StatusUnauthorized},
		{apperrors.Forbidden("x"), http.StatusForbidden},
		{apperrors.NotFound("x"), http.StatusNotFound},
		{apperrors.Conflict("x"), http.StatusConflict},
		{apperrors.InvalidInput("x"), http.StatusBadRequest},
		{apperrors.Timeout("x"), http.StatusGatewayTimeout},
		{apperrors.Unavailable("x"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		if got := apperrors.HTTPStatus(tc.err); got != tc.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}
