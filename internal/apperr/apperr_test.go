package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("campaign"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.Equal(t, "campaign not found", PublicMessage(err))

	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestValidationFields(t *testing.T) {
	err := ValidationFields("invalid request", map[string]string{"email": "required"})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "required", FieldsOf(err)["email"])
}

func TestFromDB(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"no rows", pgx.ErrNoRows, KindNotFound, "image not found"},
		{"unique with known constraint", &pgconn.PgError{Code: "23505", ConstraintName: "campaign_assignments_unique"}, KindConflict, "contractor is already assigned to this campaign"},
		{"unique unknown constraint", &pgconn.PgError{Code: "23505"}, KindConflict, "image already exists"},
		{"fk on insert", &pgconn.PgError{Code: "23503", Message: `insert or update on table "images" violates foreign key constraint`}, KindValidation, "referenced record does not exist"},
		{"fk on delete", &pgconn.PgError{Code: "23503", Message: `update or delete on table "companies" violates foreign key constraint`}, KindConflict, "image is still referenced by other records"},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "images_rejection_reason_check"}, KindValidation, "rejection reason is required"},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, KindValidation, "invalid identifier or value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromDB(tt.err, "image")
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.msg, PublicMessage(err))
		})
	}
}

func TestFromDBPassthrough(t *testing.T) {
	assert.NoError(t, FromDB(nil, "x"))

	plain := errors.New("connection reset")
	assert.Same(t, plain, FromDB(plain, "x"))

	deadlock := &pgconn.PgError{Code: "40P01"}
	assert.Equal(t, KindInternal, KindOf(FromDB(deadlock, "x")))
}
