package apperr

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes that map onto domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgInvalidText         = "22P02"
)

// constraintMessages turns well-known constraint names into caller-facing text.
var constraintMessages = map[string]string{
	"users_email_key":               "email is already registered",
	"companies_name_key":            "company name already exists",
	"campaign_assignments_unique":   "contractor is already assigned to this campaign",
	"users_role_company_check":      "company is required for client and contractor users and forbidden for company employees",
	"campaigns_date_range_check":    "end_date must not be before start_date",
	"images_rejection_reason_check": "rejection reason is required",
}

// FromDB classifies a database error. entity names the row being read or written.
func FromDB(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(entity)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	msg := constraintMessages[pgErr.ConstraintName]
	switch pgErr.Code {
	case pgUniqueViolation:
		if msg == "" {
			msg = entity + " already exists"
		}
		return Wrap(KindConflict, msg, err)
	case pgForeignKeyViolation:
		if isDeleteViolation(pgErr) {
			return Wrap(KindConflict, entity+" is still referenced by other records", err)
		}
		if msg == "" {
			msg = "referenced record does not exist"
		}
		return Wrap(KindValidation, msg, err)
	case pgCheckViolation, pgNotNullViolation:
		if msg == "" {
			msg = "invalid " + entity + " data"
		}
		return Wrap(KindValidation, msg, err)
	case pgInvalidText:
		return Wrap(KindValidation, "invalid identifier or value", err)
	}
	return err
}

// isDeleteViolation distinguishes "row is still referenced" from "referenced row is missing".
func isDeleteViolation(pgErr *pgconn.PgError) bool {
	return strings.Contains(pgErr.Message, "update or delete on table")
}
