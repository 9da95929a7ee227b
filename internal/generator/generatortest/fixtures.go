// Package generatortest builds provider responses that pass plan validation.
package generatortest

import (
	"encoding/json"
	"fmt"

	"nutribyte/fitness-app/internal/domain"
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func f(v float64) *float64 { return &v }

// Workout returns a workout plan document with the given number of days.
func Workout(level domain.FitnessLevel, days, exercisesPerDay, sets int, reps, rest, duration string) string {
	content := domain.WorkoutPlanContent{Level: level}
	for d := 0; d < days; d++ {
		day := domain.DailyWorkout{
			Day:      weekdays[d%len(weekdays)],
			Focus:    "Full Body",
			Duration: duration,
		}
		for e := 0; e < exercisesPerDay; e++ {
			day.Exercises = append(day.Exercises, domain.WorkoutExercise{
				Name:         fmt.Sprintf("Exercise %d", e+1),
				Sets:         sets,
				Reps:         reps,
				Rest:         rest,
				Description:  "Keep a neutral spine.",
				MuscleGroups: []string{"legs"},
			})
		}
		content.WeeklySchedule = append(content.WeeklySchedule, day)
	}
	return mustJSON(content)
}

// IntermediateWorkout is a 3-day, 60 minute intermediate plan.
func IntermediateWorkout() string {
	return Workout(domain.LevelIntermediate, 3, 5, 3, "8-12", "60 seconds", "60 minutes")
}

// Nutrition returns a nutrition plan document with one meal per type.
func Nutrition(mealTypes ...string) string {
	content := domain.NutritionPlanContent{
		PlanSummary: &domain.NutritionSummary{
			DailyCalories: 2200,
			DailyProtein:  140,
			DailyCarbs:    250,
			DailyFat:      70,
			Notes:         "Stay hydrated.",
		},
	}
	for _, t := range mealTypes {
		content.Meals = append(content.Meals, domain.Meal{
			FoodName:     "Frittata",
			Type:         t,
			Ingredients:  []string{"3 eggs", "spinach", "parmesan"},
			Instructions: "Whisk and bake for 15 minutes.",
			Calories:     f(420),
			Protein:      f(28),
			Carbs:        f(6),
			Sugar:        f(2),
			OtherNutrients: &domain.OtherNutrients{
				Fiber:  f(2.5),
				Fat:    f(30),
				Sodium: f(480),
			},
		})
	}
	return mustJSON(content)
}

// Recommendations returns a recommendation document with one food per time slot.
func Recommendations(times ...string) string {
	var doc domain.FoodRecommendations
	for i, t := range times {
		doc.Recommendations = append(doc.Recommendations, domain.FoodRecommendation{
			Name:     fmt.Sprintf("Food %d", i+1),
			Calories: f(320),
			Protein:  f(24),
			Carbs:    f(30),
			Fat:      f(11),
			Benefits: []string{"High in protein", "Keeps you full"},
			Time:     t,
		})
	}
	return mustJSON(doc)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
