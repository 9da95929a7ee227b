package domain

// The content documents below describe the persisted plan_content schemas.
// Numeric nutrient fields are pointers so that a missing key can be told apart
// from an explicit zero during validation.

// WorkoutPlanContent is the plan_content of a workout plan.
type WorkoutPlanContent struct {
	Level          FitnessLevel   `json:"level" validate:"required,oneof=beginner intermediate expert"`
	WeeklySchedule []DailyWorkout `json:"weeklySchedule" validate:"required,min=1,dive"`
}

// DailyWorkout is one training day.
type DailyWorkout struct {
	Day       string            `json:"day" validate:"required"`
	Focus     string            `json:"focus"`
	Duration  string            `json:"duration"`
	Exercises []WorkoutExercise `json:"exercises" validate:"required,min=1,dive"`
}

// WorkoutExercise is a single prescribed exercise.
type WorkoutExercise struct {
	Name         string   `json:"name" validate:"required"`
	Sets         int      `json:"sets" validate:"gte=1"`
	Reps         string   `json:"reps" validate:"required"` // range, e.g. "8-12"
	Rest         string   `json:"rest"`
	Description  string   `json:"description"`
	MuscleGroups []string `json:"muscleGroups,omitempty"`
}

// NutritionPlanContent is the plan_content of a nutrition plan.
type NutritionPlanContent struct {
	PlanSummary *NutritionSummary `json:"plan_summary" validate:"required"`
	Meals       []Meal            `json:"meals" validate:"required,min=1,dive"`
}

// NutritionSummary holds the daily totals.
type NutritionSummary struct {
	DailyCalories float64 `json:"daily_calories"`
	DailyProtein  float64 `json:"daily_protein"`
	DailyCarbs    float64 `json:"daily_carbs"`
	DailyFat      float64 `json:"daily_fat"`
	Notes         string  `json:"notes"`
}

// Meal is one recipe in a nutrition plan.
type Meal struct {
	FoodName       string          `json:"food_name" validate:"required"`
	Type           string          `json:"type" validate:"required"`
	Ingredients    []string        `json:"ingredients" validate:"required,min=1"`
	Instructions   string          `json:"instructions" validate:"required"`
	Calories       *float64        `json:"calories" validate:"required"`
	Protein        *float64        `json:"protein" validate:"required"`
	Carbs          *float64        `json:"carbs" validate:"required"`
	Sugar          *float64        `json:"sugar" validate:"required"`
	OtherNutrients *OtherNutrients `json:"other_nutrients" validate:"required"`
}

// OtherNutrients is the micro-nutrient block of a Meal.
type OtherNutrients struct {
	Fiber  *float64 `json:"fiber" validate:"required"`
	Fat    *float64 `json:"fat" validate:"required"`
	Sodium *float64 `json:"sodium" validate:"required"`
}
