// internal/domain/plan.go
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanType partitions plans; each user has at most one active plan per type.
type PlanType string

const (
	PlanTypeNutrition PlanType = "nutrition"
	PlanTypeWorkout   PlanType = "workout"
)

// Valid reports whether t is a known plan type.
func (t PlanType) Valid() bool {
	return t == PlanTypeNutrition || t == PlanTypeWorkout
}

// FitnessLevel selects the sets/reps/rest policy of a workout plan.
type FitnessLevel string

const (
	LevelBeginner     FitnessLevel = "beginner"
	LevelIntermediate FitnessLevel = "intermediate"
	LevelExpert       FitnessLevel = "expert"
)

// Valid reports whether l is a known fitness level.
func (l FitnessLevel) Valid() bool {
	return l == LevelBeginner || l == LevelIntermediate || l == LevelExpert
}

// GenerationOptions are the caller-supplied knobs for a generation request.
// They are stored on the plan they produced.
type GenerationOptions struct {
	Level                  FitnessLevel `bson:"level,omitempty" json:"level,omitempty"`                                   // workout only
	MealTimes              []string     `bson:"mealTimes,omitempty" json:"timeOfDay,omitempty"`                           // nutrition only
	Cuisine                string       `bson:"cuisine,omitempty" json:"countryPreference,omitempty"`                     // nutrition only
	AdditionalRequirements string       `bson:"additionalRequirements,omitempty" json:"additionalRequirements,omitempty"` // free text, treated as data
}

// Plan is one generated artifact. Content is the validated JSON document exactly
// as it was last written; it is never re-derived on read.
type Plan struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	ProfileID        primitive.ObjectID `bson:"profileId" json:"profileId"`
	PlanType         PlanType           `bson:"planType" json:"planType"`
	Content          json.RawMessage    `bson:"-" json:"planContent"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	GenerationParams *GenerationOptions `bson:"generationParams,omitempty" json:"generationParams,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// contentSlot marks where MarshalVerbatim splices the content in. Keys and
// escaped string values can never contain it, so the first match is the field.
var contentSlot = []byte(`"planContent":0`)

// MarshalVerbatim encodes p as JSON with Content written byte for byte.
// json.Marshal would compact the document and escape &, < and >.
func (p *Plan) MarshalVerbatim() ([]byte, error) {
	content := []byte("null")
	if len(p.Content) > 0 {
		if !json.Valid(p.Content) {
			return nil, errors.New("plan content is not valid JSON")
		}
		content = p.Content
	}

	meta := *p
	meta.Content = json.RawMessage("0")
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&meta); err != nil {
		return nil, err
	}

	head, tail, ok := bytes.Cut(bytes.TrimRight(buf.Bytes(), "\n"), contentSlot)
	if !ok {
		return nil, errors.New("plan content field missing from encoding")
	}
	out := make([]byte, 0, len(head)+len(content)+len(tail)+len(contentSlot))
	out = append(out, head...)
	out = append(out, `"planContent":`...)
	out = append(out, content...)
	out = append(out, tail...)
	return out, nil
}

// WorkoutParams is the generator input for a workout plan.
type WorkoutParams struct {
	Goal          Goal
	AvailableTime string
	Gender        string
	Level         FitnessLevel
	Notes         string
}

// NutritionParams is the generator input for a nutrition plan.
type NutritionParams struct {
	Goal                Goal
	DietaryRestrictions string
	DietaryPreferences  string
	MealTimes           []string
	Cuisine             string
	Notes               string
}
