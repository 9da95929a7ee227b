package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/generator"
	"nutribyte/fitness-app/internal/generator/generatortest"
	"nutribyte/fitness-app/internal/llm"
	"nutribyte/fitness-app/internal/llm/llmtest"
	"nutribyte/fitness-app/internal/logger"
)

func newRecommendationService(f *planFixture, c llm.Completer) RecommendationService {
	gen := generator.NewGenerator(c, 5*time.Second, nil, logger.Discard())
	return NewRecommendationService(f.store.Profiles(), gen, logger.Discard())
}

func TestRecommend_UsesProfile(t *testing.T) {
	f := newPlanFixture(t)
	profile, err := f.store.Profiles().GetByUserID(context.Background(), f.userID)
	require.NoError(t, err)
	vegan := "vegan"
	domain.ProfileUpdate{DietaryPreferences: &vegan}.Apply(profile)
	require.NoError(t, f.store.Profiles().Update(context.Background(), profile))

	mock := llmtest.NewMockCompleter(generatortest.Recommendations("Breakfast", "Dinner", "Snack"))
	recs, err := newRecommendationService(f, mock).Recommend(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Dinner", recs[1].Time)

	user := mock.LastRequest().Messages[1].Content
	assert.Contains(t, user, "Age: 29")
	assert.Contains(t, user, "Height: 70 inches")
	assert.Contains(t, user, "Fitness Goal: <user_data>gain muscle</user_data>")
	assert.Contains(t, user, "Dietary Preferences: <user_data>vegan</user_data>")

	// Nothing is stored.
	plans, err := f.store.Plans().ListByUser(context.Background(), f.userID, "")
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestRecommend_RequiresProfile(t *testing.T) {
	f := newPlanFixture(t)
	mock := llmtest.NewMockCompleter(generatortest.Recommendations("Breakfast", "Dinner", "Snack"))

	_, err := newRecommendationService(f, mock).Recommend(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrProfileRequired)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Zero(t, mock.Calls())
}

func TestRecommend_UnusableOutput(t *testing.T) {
	f := newPlanFixture(t)
	doc := strings.Replace(generatortest.Recommendations("Breakfast", "Dinner", "Snack"), `"time":"Snack"`, `"time":"Midnight"`, 1)

	_, err := newRecommendationService(f, llmtest.NewMockCompleter(doc)).Recommend(context.Background(), f.userID)
	assert.ErrorIs(t, err, generator.ErrGenerationParse)
}
