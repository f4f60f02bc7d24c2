package database

import (
	"strings"

	"github.com/lib/pq"

	"github.com/blunari/blunari-backend/pkg/errors"
)

// Constraint names the error mapper recognizes. They must match the DDL.
const (
	ConstraintTenantSlug     = "tenants_slug_key"
	ConstraintOwnerEmail     = "owner_accounts_email_key"
	ConstraintIdempotencyKey = "auto_provisioning_idempotency_key_key"
)

// IsUniqueViolation reports whether err is a Postgres unique violation on the
// named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	return pqErr.Code == "23505" && pqErr.Constraint == constraint
}

// MapPQError converts a PostgreSQL error to an AppError with a specific
// conflict code where one exists. Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Unique constraint violation (23505)
	case "23505":
		return mapUniqueConstraint(pqErr)

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	default:
		return nil
	}
}

// mapUniqueConstraint picks the conflict code for a unique violation so the
// client can offer a corrective action rather than showing a generic failure.
func mapUniqueConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "tenants_slug"):
		return errors.New(errors.CodeDuplicateSlug, "a tenant with this slug already exists", 409)
	case strings.Contains(constraint, "owner_accounts_email"):
		return errors.New(errors.CodeDuplicateEmail, "an account with this email already exists", 409)
	case strings.Contains(constraint, "idempotency_key"):
		// Replay of an in-flight or completed request; the caller resolves
		// this by re-reading the prior result, never by reporting a conflict.
		return errors.Conflict("duplicate idempotency key")
	case strings.Contains(constraint, "profiles_pkey"):
		return errors.Conflict("a profile for this account already exists")
	default:
		return errors.Conflict("a record with these values already exists")
	}
}

// mapCheckConstraint maps CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "email_format"):
		return errors.Validation(map[string]string{
			"email": "must be a valid email address",
		})

	case strings.Contains(constraint, "role_valid"):
		return errors.Validation(map[string]string{
			"role": "must be one of: SUPER_ADMIN, ADMIN, SUPPORT, OPS, VIEWER",
		})

	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "is not a recognized status value",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}
