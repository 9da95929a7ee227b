package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/repository"
)

func newPlan(userID primitive.ObjectID, planType domain.PlanType, active bool) *domain.Plan {
	return &domain.Plan{
		UserID:    userID,
		ProfileID: primitive.NewObjectID(),
		PlanType:  planType,
		Content:   json.RawMessage(`{"k": 1}`),
		IsActive:  active,
	}
}

func TestPlanRepo_InsertRejectsSecondActive(t *testing.T) {
	ctx := context.Background()
	plans := NewStore().Plans()
	user := primitive.NewObjectID()

	_, err := plans.Insert(ctx, newPlan(user, domain.PlanTypeWorkout, true))
	require.NoError(t, err)

	_, err = plans.Insert(ctx, newPlan(user, domain.PlanTypeWorkout, true))
	assert.ErrorIs(t, err, repository.ErrActiveConflict)

	// Other type and inactive plans are unaffected.
	_, err = plans.Insert(ctx, newPlan(user, domain.PlanTypeNutrition, true))
	require.NoError(t, err)
	_, err = plans.Insert(ctx, newPlan(user, domain.PlanTypeWorkout, false))
	require.NoError(t, err)
}

func TestPlanRepo_Supersede(t *testing.T) {
	ctx := context.Background()
	plans := NewStore().Plans()
	user := primitive.NewObjectID()

	first := newPlan(user, domain.PlanTypeWorkout, false)
	require.NoError(t, plans.Supersede(ctx, first, primitive.NilObjectID))
	assert.True(t, first.IsActive)

	second := newPlan(user, domain.PlanTypeWorkout, false)
	require.NoError(t, plans.Supersede(ctx, second, first.ID))

	active, err := plans.FindActive(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	// A stale expectation loses the race and writes nothing.
	stale := newPlan(user, domain.PlanTypeWorkout, false)
	err = plans.Supersede(ctx, stale, first.ID)
	assert.ErrorIs(t, err, repository.ErrActiveConflict)

	all, err := plans.ListByUser(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPlanRepo_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	plans := NewStore().Plans()
	owner, stranger := primitive.NewObjectID(), primitive.NewObjectID()

	id, err := plans.Insert(ctx, newPlan(owner, domain.PlanTypeNutrition, true))
	require.NoError(t, err)

	_, err = plans.GetByID(ctx, id, stranger)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, plans.UpdateContent(ctx, id, stranger, json.RawMessage(`{}`)), repository.ErrNotFound)
	assert.ErrorIs(t, plans.SetActive(ctx, id, stranger, false), repository.ErrNotFound)
	assert.ErrorIs(t, plans.Delete(ctx, id, stranger), repository.ErrNotFound)

	got, err := plans.GetByID(ctx, id, owner)
	require.NoError(t, err)
	assert.JSONEq(t, `{"k": 1}`, string(got.Content))
	assert.True(t, got.IsActive)
}

func TestPlanRepo_SetActiveIdempotent(t *testing.T) {
	ctx := context.Background()
	plans := NewStore().Plans()
	user := primitive.NewObjectID()

	id, err := plans.Insert(ctx, newPlan(user, domain.PlanTypeWorkout, true))
	require.NoError(t, err)

	require.NoError(t, plans.SetActive(ctx, id, user, false))
	require.NoError(t, plans.SetActive(ctx, id, user, false))

	// The slot is free again.
	_, err = plans.Insert(ctx, newPlan(user, domain.PlanTypeWorkout, true))
	require.NoError(t, err)

	// Reactivating the old plan would create a second active one.
	assert.ErrorIs(t, plans.SetActive(ctx, id, user, true), repository.ErrActiveConflict)
}

func TestPlanRepo_ContentStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	plans := NewStore().Plans()
	user := primitive.NewObjectID()

	id, err := plans.Insert(ctx, newPlan(user, domain.PlanTypeWorkout, true))
	require.NoError(t, err)

	raw := json.RawMessage("{\n  \"level\": \"expert\",  \"x\": [1, 2]\n}")
	require.NoError(t, plans.UpdateContent(ctx, id, user, raw))

	got, err := plans.GetByID(ctx, id, user)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(got.Content))
}

func TestPlanRepo_InconsistentAndReindex(t *testing.T) {
	ctx := context.Background()
	plans := NewStore().Plans()
	user := primitive.NewObjectID()

	older := newPlan(user, domain.PlanTypeWorkout, true)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newPlan(user, domain.PlanTypeWorkout, true)
	plans.Seed(older, newer)

	conflicts, err := plans.ListInconsistent(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, user, conflicts[0].UserID)
	assert.Equal(t, 2, conflicts[0].Count)

	active, err := plans.FindActive(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)

	require.NoError(t, plans.SetActive(ctx, older.ID, user, false))
	conflicts, err = plans.ListInconsistent(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// The index follows the survivor, so a CAS against it succeeds.
	require.NoError(t, plans.Supersede(ctx, newPlan(user, domain.PlanTypeWorkout, false), newer.ID))
}

func TestPlanRepo_BulkDeactivate(t *testing.T) {
	ctx := context.Background()
	plans := NewStore().Plans()
	user := primitive.NewObjectID()

	_, err := plans.Insert(ctx, newPlan(user, domain.PlanTypeWorkout, true))
	require.NoError(t, err)
	_, err = plans.Insert(ctx, newPlan(user, domain.PlanTypeNutrition, true))
	require.NoError(t, err)

	n, err := plans.BulkDeactivate(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = plans.BulkDeactivate(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err := plans.FindActive(ctx, user, domain.PlanTypeNutrition)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestProfileRepo_OnePerUser(t *testing.T) {
	ctx := context.Background()
	profiles := NewStore().Profiles()
	user := primitive.NewObjectID()

	_, err := profiles.Create(ctx, &domain.Profile{UserID: user, Goal: domain.GoalMaintain})
	require.NoError(t, err)
	_, err = profiles.Create(ctx, &domain.Profile{UserID: user, Goal: domain.GoalGainMuscle})
	assert.ErrorIs(t, err, repository.ErrConflict)

	p, err := profiles.GetByUserID(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.GoalMaintain, p.Goal)
}

func TestUserRepo_EmailUnique(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()

	_, err := users.Create(ctx, &domain.User{Email: "a@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = users.Create(ctx, &domain.User{Email: "A@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	u, err := users.GetByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "x", u.PasswordHash)
}
