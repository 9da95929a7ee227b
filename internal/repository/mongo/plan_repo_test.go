package mongo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
)

func TestPlanDocument_ContentSurvivesBSON(t *testing.T) {
	raw := json.RawMessage("{\n  \"plan_summary\": {\"daily_calories\": 2000},\n  \"meals\": []\n}")
	plan := &domain.Plan{
		ID:       primitive.NewObjectID(),
		UserID:   primitive.NewObjectID(),
		PlanType: domain.PlanTypeNutrition,
		Content:  raw,
		IsActive: true,
	}

	b, err := bson.Marshal(newPlanDocument(plan))
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(b, &fields))
	assert.Equal(t, string(raw), fields["planContent"])
	assert.Equal(t, true, fields["isActive"])
	assert.Equal(t, "nutrition", fields["planType"])

	var doc planDocument
	require.NoError(t, bson.Unmarshal(b, &doc))
	got := doc.toDomain()
	assert.Equal(t, plan.ID, got.ID)
	assert.Equal(t, string(raw), string(got.Content))
}
