package database

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name     string
		err      *pq.Error
		sentinel error
		detail   string
	}{
		{"negative stock", &pq.Error{Code: "23514", Constraint: "inventory_stock_nonnegative"}, errors.ErrValidation, "current_stock"},
		{"non-positive quantity", &pq.Error{Code: "23514", Constraint: "usage_records_quantity_positive"}, errors.ErrValidation, "quantity"},
		{"negative unit cost", &pq.Error{Code: "23514", Constraint: "medications_unit_cost_nonnegative"}, errors.ErrValidation, "unit_cost"},
		{"bad role", &pq.Error{Code: "23514", Constraint: "users_role_valid"}, errors.ErrValidation, "role"},
		{"unknown check", &pq.Error{Code: "23514", Constraint: "something_else"}, errors.ErrBadRequest, ""},
		{"duplicate email", &pq.Error{Code: "23505", Constraint: "users_email_key"}, errors.ErrConflict, ""},
		{"missing reference", &pq.Error{Code: "23503"}, errors.ErrBadRequest, ""},
		{"not null", &pq.Error{Code: "23502", Column: "pharmacy_id"}, errors.ErrValidation, "pharmacy_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapPQError(fmt.Errorf("exec: %w", tt.err))
			require.NotNil(t, appErr)
			assert.True(t, errors.Is(appErr, tt.sentinel))
			if tt.detail != "" {
				assert.Contains(t, appErr.Details, tt.detail)
			}
		})
	}
}

func TestMapPQError_Conflicts(t *testing.T) {
	assert.Equal(t, "a user with this email already exists",
		MapPQError(&pq.Error{Code: "23505", Constraint: "users_email_key"}).Message)
	assert.Equal(t, "an inventory row for this medication and pharmacy already exists",
		MapPQError(&pq.Error{Code: "23505", Constraint: "inventory_medication_pharmacy_key"}).Message)
	assert.Equal(t, "a medication with this code already exists",
		MapPQError(&pq.Error{Code: "23505", Constraint: "medications_code_key"}).Message)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil))

	plain := fmt.Errorf("connection reset")
	assert.Same(t, plain, Translate(plain))

	err := Translate(&pq.Error{Code: "23514", Constraint: "inventory_stock_nonnegative"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	assert.Nil(t, MapPQError(&pq.Error{Code: "40001"}))
}
