package repository

import (
	"context"
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound = RepositoryError("not found")
	ErrConflict = RepositoryError("already exists")
	// ErrActiveConflict is returned when a write would leave two active plans
	// of the same type for one user, or when a compare-and-swap on the active
	// plan loses a race.
	ErrActiveConflict = RepositoryError("another plan of this type is already active")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ProfileRepository stores at most one profile per user.
type ProfileRepository interface {
	// Create fails with ErrConflict when the user already has a profile.
	Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
}

// ActiveConflict reports a (user, plan type) pair holding more than one active plan.
type ActiveConflict struct {
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	PlanType domain.PlanType    `bson:"planType" json:"planType"`
	Count    int                `bson:"count" json:"count"`
}

// PlanRepository is a thin persistence abstraction for plans. Every operation
// that takes a plan ID is scoped by the owning user: a plan owned by someone
// else is reported as ErrNotFound.
type PlanRepository interface {
	// FindActive returns the active plans of planType for userID, newest first.
	// More than one result means the store is inconsistent.
	FindActive(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error)
	// ListByUser returns every plan of userID, newest first. An empty planType means all types.
	ListByUser(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error)
	GetByID(ctx context.Context, id, userID primitive.ObjectID) (*domain.Plan, error)
	Insert(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	UpdateContent(ctx context.Context, id, userID primitive.ObjectID, content json.RawMessage) error
	// SetActive is idempotent.
	SetActive(ctx context.Context, id, userID primitive.ObjectID, active bool) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	// BulkDeactivate clears the active flag on every plan of planType for userID.
	BulkDeactivate(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) (int64, error)
	// ListInconsistent finds every (user, plan type) pair with more than one active plan.
	ListInconsistent(ctx context.Context) ([]ActiveConflict, error)
}

// PlanSuperseder is implemented by stores that can atomically replace the
// active plan of a (user, plan type) pair.
type PlanSuperseder interface {
	// Supersede inserts plan as the new active plan, deactivating expectedActive
	// in the same step. expectedActive is primitive.NilObjectID when no plan is
	// expected to be active. If the current active plan differs from
	// expectedActive nothing is written and ErrActiveConflict is returned.
	Supersede(ctx context.Context, plan *domain.Plan, expectedActive primitive.ObjectID) error
}
