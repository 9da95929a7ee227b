package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const indentedNutrition = `{
  "plan_summary": {
    "daily_calories": 2200,
    "notes": "Mac & cheese <lite> on rest days"
  },
  "meals": []
}`

func TestPlan_MarshalVerbatim(t *testing.T) {
	plan := &Plan{
		ID:       primitive.NewObjectID(),
		UserID:   primitive.NewObjectID(),
		PlanType: PlanTypeNutrition,
		Content:  json.RawMessage(indentedNutrition),
		IsActive: true,
		GenerationParams: &GenerationOptions{
			Cuisine:                "Italian",
			AdditionalRequirements: `no "planContent":0 tricks & <tags>`,
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	out, err := plan.MarshalVerbatim()
	require.NoError(t, err)
	require.True(t, json.Valid(out), string(out))
	assert.Contains(t, string(out), `"planContent":`+indentedNutrition)
	assert.Contains(t, string(out), `tricks & <tags>`)

	var decoded struct {
		Plan
		Content json.RawMessage `json:"planContent"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, indentedNutrition, string(decoded.Content))
	assert.Equal(t, plan.ID, decoded.ID)
	assert.Equal(t, plan.GenerationParams, decoded.GenerationParams)
	assert.True(t, decoded.CreatedAt.Equal(plan.CreatedAt))
}

func TestPlan_MarshalVerbatim_NoContent(t *testing.T) {
	out, err := (&Plan{PlanType: PlanTypeWorkout}).MarshalVerbatim()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"planContent":null`)
}

func TestPlan_MarshalVerbatim_RejectsInvalidContent(t *testing.T) {
	_, err := (&Plan{Content: json.RawMessage(`{"level":`)}).MarshalVerbatim()
	assert.Error(t, err)
}
