package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/repository/memory"
)

func validProfile() domain.Profile {
	restrictions := "  lactose intolerant "
	return domain.Profile{
		Age:                 34,
		Gender:              "female",
		HeightInches:        65,
		Weight:              61.5,
		Goal:                domain.GoalLoseWeight,
		AvailableTime:       "1_hour_3x_week",
		DietaryRestrictions: &restrictions,
	}
}

func TestProfileService_CreateOnce(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()
	userID := primitive.NewObjectID()

	status, err := svc.OnboardingStatus(ctx, userID)
	require.NoError(t, err)
	assert.False(t, status.Completed)

	created, err := svc.CreateProfile(ctx, userID, validProfile())
	require.NoError(t, err)
	assert.Equal(t, userID, created.UserID)
	require.NotNil(t, created.DietaryRestrictions)
	assert.Equal(t, "lactose intolerant", *created.DietaryRestrictions)

	_, err = svc.CreateProfile(ctx, userID, validProfile())
	assert.ErrorIs(t, err, ErrProfileExists)

	status, err = svc.OnboardingStatus(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.Equal(t, created.ID, *status.ProfileID)
}

func TestProfileService_Validation(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())

	tests := []struct {
		name   string
		mutate func(p *domain.Profile)
	}{
		{"age zero", func(p *domain.Profile) { p.Age = 0 }},
		{"age too high", func(p *domain.Profile) { p.Age = 130 }},
		{"blank gender", func(p *domain.Profile) { p.Gender = "  " }},
		{"no height", func(p *domain.Profile) { p.HeightInches = 0 }},
		{"negative weight", func(p *domain.Profile) { p.Weight = -1 }},
		{"unknown goal", func(p *domain.Profile) { p.Goal = "get_famous" }},
		{"unparseable time", func(p *domain.Profile) { p.AvailableTime = "whenever" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			_, err := svc.CreateProfile(context.Background(), primitive.NewObjectID(), p)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestProfileService_Update(t *testing.T) {
	svc := NewProfileService(memory.NewStore().Profiles())
	ctx := context.Background()
	userID := primitive.NewObjectID()

	_, err := svc.UpdateProfile(ctx, userID, domain.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateProfile(ctx, userID, validProfile())
	require.NoError(t, err)

	goal := domain.GoalGainMuscle
	blank := ""
	updated, err := svc.UpdateProfile(ctx, userID, domain.ProfileUpdate{
		Goal:                &goal,
		DietaryRestrictions: &blank,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GoalGainMuscle, updated.Goal)
	assert.Nil(t, updated.DietaryRestrictions)
	assert.Equal(t, 34, updated.Age)

	badAge := -3
	_, err = svc.UpdateProfile(ctx, userID, domain.ProfileUpdate{Age: &badAge})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := svc.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 34, stored.Age)
	assert.Equal(t, domain.GoalGainMuscle, stored.Goal)
}
