// Package services holds the CRUD operations over the voice-clone schema.
package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
	"gorm.io/gorm"
)

// ParseID parses a path or body id. A malformed id is a ValidationError on field.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperrors.NewValidation([]apperrors.FieldError{{Field: field, Reason: "must be a valid UUID"}})
	}
	return id, nil
}

func checkStatus(status string, allowed []string) error {
	if slices.Contains(allowed, status) {
		return nil
	}
	return apperrors.NewValidation([]apperrors.FieldError{{
		Field:  "status",
		Reason: fmt.Sprintf("must be one of [%s]", strings.Join(allowed, " ")),
	}})
}

// notFound maps gorm.ErrRecordNotFound to a NotFoundError and wraps anything else.
func notFound(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound(entity, id.String())
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

// CheckOwner returns a ForbiddenError unless userID is the owner.
func CheckOwner(entity string, owner, userID uuid.UUID) error {
	if owner != userID {
		return apperrors.NewForbidden("you do not own this " + entity)
	}
	return nil
}
