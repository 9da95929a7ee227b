// internal/domain/profile.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal is the fitness goal chosen during onboarding.
type Goal string

const (
	GoalLoseWeight     Goal = "lose_weight"
	GoalGainMuscle     Goal = "gain_muscle"
	GoalMaintain       Goal = "maintain"
	GoalImproveFitness Goal = "improve_fitness"
	GoalOther          Goal = "other"
)

// Valid reports whether g is one of the known goals.
func (g Goal) Valid() bool {
	switch g {
	case GoalLoseWeight, GoalGainMuscle, GoalMaintain, GoalImproveFitness, GoalOther:
		return true
	}
	return false
}

// Label renders the goal for humans ("gain_muscle" -> "gain muscle").
func (g Goal) Label() string {
	b := []byte(g)
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	return string(b)
}

// Profile holds the fitness attributes that drive plan generation.
// There is at most one Profile per User.
type Profile struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID              primitive.ObjectID `bson:"userId" json:"userId"`
	Age                 int                `bson:"age" json:"age"`
	Gender              string             `bson:"gender" json:"gender"`
	HeightInches        float64            `bson:"heightInches" json:"heightInches"`
	Weight              float64            `bson:"weight" json:"weight"` // kg
	Goal                Goal               `bson:"goal" json:"goal"`
	AvailableTime       string             `bson:"availableTime" json:"availableTime"` // e.g. "3x per week, 1 hour"
	DietaryRestrictions *string            `bson:"dietaryRestrictions,omitempty" json:"dietaryRestrictions"`
	DietaryPreferences  *string            `bson:"dietaryPreferences,omitempty" json:"dietaryPreferences"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate carries a partial profile edit. Nil fields are left untouched.
type ProfileUpdate struct {
	Age                 *int
	Gender              *string
	HeightInches        *float64
	Weight              *float64
	Goal                *Goal
	AvailableTime       *string
	DietaryRestrictions *string
	DietaryPreferences  *string
}

// Apply copies every non-nil field of u onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.HeightInches != nil {
		p.HeightInches = *u.HeightInches
	}
	if u.Weight != nil {
		p.Weight = *u.Weight
	}
	if u.Goal != nil {
		p.Goal = *u.Goal
	}
	if u.AvailableTime != nil {
		p.AvailableTime = *u.AvailableTime
	}
	if u.DietaryRestrictions != nil {
		p.DietaryRestrictions = u.DietaryRestrictions
	}
	if u.DietaryPreferences != nil {
		p.DietaryPreferences = u.DietaryPreferences
	}
}
