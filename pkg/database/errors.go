package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pharmtrace/pharmtrace-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

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

	// Insufficient privilege (42501) / undefined table (42P01): the projection
	// tier is restricted or absent in this deployment, not a caller error
	case "42501", "42P01":
		return errors.ProjectionUnavailable(pqErr)

	default:
		return nil
	}
}

// IsUnavailable reports whether err means the queried relation cannot be
// used at all (missing or permission-restricted), as opposed to a data error.
func IsUnavailable(err error) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	return pqErr.Code == "42501" || pqErr.Code == "42P01"
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "event_type_valid"):
		return errors.Validation(map[string]string{
			"event_type": "must be one of: PUTAWAY, TRANSFER, CONSUME, EMPTY_OUT",
		})

	case strings.Contains(constraint, "quality_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be a known quality status",
		})

	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "label"):
		return "a label with this identifier already exists"
	case strings.Contains(constraint, "location_code"):
		return "a location with this code already exists"
	default:
		return "a record with these values already exists"
	}
}
