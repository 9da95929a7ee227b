package sqlstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/repository"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, RunMigrations(db.DB, DriverSQLite))
	return db
}

func testPlan(userID primitive.ObjectID, planType domain.PlanType, active bool) *domain.Plan {
	return &domain.Plan{
		UserID:    userID,
		ProfileID: primitive.NewObjectID(),
		PlanType:  planType,
		Content:   json.RawMessage(`{"level":"beginner"}`),
		IsActive:  active,
	}
}

func TestPlanRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	plans := NewPlanRepository(openTestDB(t))
	user := primitive.NewObjectID()

	p := testPlan(user, domain.PlanTypeNutrition, true)
	p.GenerationParams = &domain.GenerationOptions{MealTimes: []string{"breakfast"}, Cuisine: "Italian"}
	id, err := plans.Insert(ctx, p)
	require.NoError(t, err)

	got, err := plans.GetByID(ctx, id, user)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanTypeNutrition, got.PlanType)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.GenerationParams)
	assert.Equal(t, "Italian", got.GenerationParams.Cuisine)
	assert.Equal(t, `{"level":"beginner"}`, string(got.Content))

	active, err := plans.FindActive(ctx, user, domain.PlanTypeNutrition)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)
}

func TestPlanRepository_PartialUniqueIndex(t *testing.T) {
	ctx := context.Background()
	plans := NewPlanRepository(openTestDB(t))
	user := primitive.NewObjectID()

	_, err := plans.Insert(ctx, testPlan(user, domain.PlanTypeWorkout, true))
	require.NoError(t, err)

	_, err = plans.Insert(ctx, testPlan(user, domain.PlanTypeWorkout, true))
	assert.ErrorIs(t, err, repository.ErrActiveConflict)

	_, err = plans.Insert(ctx, testPlan(user, domain.PlanTypeWorkout, false))
	require.NoError(t, err)
}

func TestPlanRepository_Supersede(t *testing.T) {
	ctx := context.Background()
	plans := NewPlanRepository(openTestDB(t))
	user := primitive.NewObjectID()

	first := testPlan(user, domain.PlanTypeWorkout, false)
	require.NoError(t, plans.Supersede(ctx, first, primitive.NilObjectID))

	second := testPlan(user, domain.PlanTypeWorkout, false)
	require.NoError(t, plans.Supersede(ctx, second, first.ID))

	err := plans.Supersede(ctx, testPlan(user, domain.PlanTypeWorkout, false), first.ID)
	assert.ErrorIs(t, err, repository.ErrActiveConflict)

	active, err := plans.FindActive(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	all, err := plans.ListByUser(ctx, user, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.False(t, all[1].IsActive)
}

func TestPlanRepository_OwnershipAndIdempotence(t *testing.T) {
	ctx := context.Background()
	plans := NewPlanRepository(openTestDB(t))
	owner, stranger := primitive.NewObjectID(), primitive.NewObjectID()

	id, err := plans.Insert(ctx, testPlan(owner, domain.PlanTypeWorkout, true))
	require.NoError(t, err)

	assert.ErrorIs(t, plans.UpdateContent(ctx, id, stranger, json.RawMessage(`{}`)), repository.ErrNotFound)
	assert.ErrorIs(t, plans.SetActive(ctx, id, stranger, false), repository.ErrNotFound)
	assert.ErrorIs(t, plans.Delete(ctx, id, stranger), repository.ErrNotFound)
	_, err = plans.GetByID(ctx, id, stranger)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, plans.SetActive(ctx, id, owner, false))
	require.NoError(t, plans.SetActive(ctx, id, owner, false))

	raw := json.RawMessage("{\n  \"level\" : \"expert\"\n}")
	require.NoError(t, plans.UpdateContent(ctx, id, owner, raw))
	got, err := plans.GetByID(ctx, id, owner)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(got.Content))
	assert.False(t, got.IsActive)

	require.NoError(t, plans.Delete(ctx, id, owner))
	assert.ErrorIs(t, plans.Delete(ctx, id, owner), repository.ErrNotFound)
}

func TestPlanRepository_BulkDeactivateAndInconsistent(t *testing.T) {
	ctx := context.Background()
	plans := NewPlanRepository(openTestDB(t))
	user := primitive.NewObjectID()

	_, err := plans.Insert(ctx, testPlan(user, domain.PlanTypeWorkout, true))
	require.NoError(t, err)

	conflicts, err := plans.ListInconsistent(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	n, err := plans.BulkDeactivate(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := plans.FindActive(ctx, user, domain.PlanTypeWorkout)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUserAndProfileRepositories(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	profiles := NewProfileRepository(db)

	u := &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}
	userID, err := users.Create(ctx, u)
	require.NoError(t, err)

	_, err = users.Create(ctx, &domain.User{Email: "ada@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	byEmail, err := users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, byEmail.ID)

	prefs := "vegetarian"
	p := &domain.Profile{
		UserID:             userID,
		Age:                31,
		Gender:             "female",
		HeightInches:       66,
		Weight:             61.5,
		Goal:               domain.GoalImproveFitness,
		AvailableTime:      "3x per week, 1 hour",
		DietaryPreferences: &prefs,
	}
	_, err = profiles.Create(ctx, p)
	require.NoError(t, err)

	_, err = profiles.Create(ctx, &domain.Profile{UserID: userID, Goal: domain.GoalMaintain})
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := profiles.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got.DietaryRestrictions)
	require.NotNil(t, got.DietaryPreferences)
	assert.Equal(t, "vegetarian", *got.DietaryPreferences)

	got.Weight = 60
	require.NoError(t, profiles.Update(ctx, got))
	again, err := profiles.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, again.Weight, 0.001)

	_, err = profiles.GetByUserID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
