package service

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/generator"
)

// --- Error Definitions ---
var (
	// ErrInvalidParameters is shared with the generator so a single errors.Is
	// check covers caller mistakes caught before and inside generation.
	ErrInvalidParameters = generator.ErrInvalidParameters
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")

	ErrPlanNotFound             = fmt.Errorf("plan %w", ErrNotFound)
	ErrProfileNotFound          = fmt.Errorf("profile %w", ErrNotFound)
	ErrInvalidPlanType          = fmt.Errorf("%w: plan type must be workout or nutrition", ErrInvalidParameters)
	ErrInvalidContent           = fmt.Errorf("%w: plan content does not match its schema", ErrValidation)
	ErrProfileRequired          = fmt.Errorf("%w: complete onboarding before generating plans", ErrInvalidParameters)
	ErrProfileExists            = errors.New("profile already exists for this user")
	ErrReactivationNotSupported = fmt.Errorf("%w: inactive plans cannot be reactivated, generate a new plan instead", ErrValidation)
	ErrExportDisabled           = errors.New("plan export is not configured")
	// ErrInconsistentActiveState is diagnostic: more than one active plan was
	// found for a user and plan type.
	ErrInconsistentActiveState = errors.New("more than one active plan")
)

// StorePersistenceError is returned when the new plan could not be stored
// after the previous active plan was deactivated. PriorActiveID names the plan
// that was active before, so the caller can restore it through repair.
type StorePersistenceError struct {
	PriorActiveID primitive.ObjectID
	Err           error
}

func (e *StorePersistenceError) Error() string {
	if e.PriorActiveID.IsZero() {
		return fmt.Sprintf("failed to persist plan: %v", e.Err)
	}
	return fmt.Sprintf("failed to persist plan (previous active plan %s): %v", e.PriorActiveID.Hex(), e.Err)
}

func (e *StorePersistenceError) Unwrap() error {
	return e.Err
}
