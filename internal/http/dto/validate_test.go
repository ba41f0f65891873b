package dto

import (
	"testing"

	"github.com/postertrack/backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	err := Validate(&CreateUserRequest{Email: "bad", Password: "x", Role: "admin", FirstName: "A"})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	fields := apperr.FieldsOf(err)
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])
	assert.Equal(t, "must be one of company_employee, client, contractor", fields["role"])
	assert.NotContains(t, fields, "first_name")
}

func TestValidateOptionalFields(t *testing.T) {
	assert.NoError(t, Validate(&UpdateUserRequest{}))

	bad := "not-a-uuid"
	err := Validate(&UpdateUserRequest{CompanyID: &bad})
	require.Error(t, err)
	assert.Equal(t, "must be a valid id", apperr.FieldsOf(err)["company_id"])
}

func TestValidateReject(t *testing.T) {
	err := Validate(&RejectImageRequest{})
	require.Error(t, err)
	assert.Equal(t, "is required", apperr.FieldsOf(err)["reason"])
	assert.NoError(t, Validate(&RejectImageRequest{Reason: "torn"}))
}
