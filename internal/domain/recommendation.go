package domain

// RecommendationCount is how many foods a recommendation request returns.
const RecommendationCount = 3

// MealSlots are the accepted values of FoodRecommendation.Time.
var MealSlots = []string{"Breakfast", "Lunch", "Dinner", "Snack"}

// RecommendationParams is the generator input for food recommendations.
type RecommendationParams struct {
	Age                 int
	Gender              string
	HeightInches        float64
	Weight              float64 // kg
	Goal                Goal
	AvailableTime       string
	DietaryRestrictions string
	DietaryPreferences  string
}

// FoodRecommendation is one suggested food with its macros.
type FoodRecommendation struct {
	Name     string   `json:"name" validate:"required"`
	Calories *float64 `json:"calories" validate:"required,gte=0"`
	Protein  *float64 `json:"protein" validate:"required,gte=0"`
	Carbs    *float64 `json:"carbs" validate:"required,gte=0"`
	Fat      *float64 `json:"fat" validate:"required,gte=0"`
	Benefits []string `json:"benefits" validate:"required,min=1,dive,required"`
	Time     string   `json:"time" validate:"required,oneof=Breakfast Lunch Dinner Snack"`
}

// FoodRecommendations is the document returned by a recommendation request.
// It is not persisted.
type FoodRecommendations struct {
	Recommendations []FoodRecommendation `json:"recommendations" validate:"required,len=3,dive"`
}
