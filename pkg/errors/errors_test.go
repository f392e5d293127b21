package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		err      *AppError
		sentinel error
		code     string
		status   int
	}{
		{NotFound("medication"), ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{Unauthorized("missing token"), ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
		{Forbidden("nope"), ErrForbidden, "FORBIDDEN", http.StatusForbidden},
		{AccessDenied("PHARM02"), ErrAccessDenied, "ACCESS_DENIED", http.StatusForbidden},
		{InsufficientStock("Mycelium Pharmacy", 12), ErrInsufficientStock, "INSUFFICIENT_STOCK", http.StatusBadRequest},
		{BadRequest("bad body"), ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest},
		{Conflict("email taken"), ErrConflict, "CONFLICT", http.StatusConflict},
		{Internal("db down"), ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError},
		{Validation(map[string]string{"quantity": "must be positive"}), ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest},
		{InvalidCredentials(), ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{TokenExpired(), ErrTokenExpired, "TOKEN_EXPIRED", http.StatusUnauthorized},
		{TokenInvalid(), ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
		})
	}
}

func TestInsufficientStock_Details(t *testing.T) {
	err := InsufficientStock("Angel Pharmacy", 7)

	assert.Equal(t, map[string]string{"pharmacy": "Angel Pharmacy", "requested": "7"}, err.Details)
	assert.Contains(t, err.Error(), "insufficient stock at Angel Pharmacy (requested 7)")
}

func TestAs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("record usage: %w", AccessDenied("PHARM01"))

	var appErr *AppError
	require.True(t, As(wrapped, &appErr))
	assert.Equal(t, "ACCESS_DENIED", appErr.Code)
	assert.True(t, Is(wrapped, ErrAccessDenied))
	assert.False(t, Is(wrapped, ErrForbidden))
	assert.False(t, Is(wrapped, ErrNotFound))
}
