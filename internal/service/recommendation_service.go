package service

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/generator"
	"nutribyte/fitness-app/internal/repository"
)

// --- Service Interface ---

// RecommendationService suggests foods from the user's profile. Nothing it
// returns is stored.
type RecommendationService interface {
	Recommend(ctx context.Context, userID primitive.ObjectID) ([]domain.FoodRecommendation, error)
}

// --- Service Implementation ---

type recommendationService struct {
	profileRepo repository.ProfileRepository
	generator   generator.Generator
	logger      *slog.Logger
}

// NewRecommendationService creates a new instance of recommendationService.
func NewRecommendationService(profileRepo repository.ProfileRepository, gen generator.Generator, logger *slog.Logger) RecommendationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &recommendationService{profileRepo: profileRepo, generator: gen, logger: logger}
}

func (s *recommendationService) Recommend(ctx context.Context, userID primitive.ObjectID) ([]domain.FoodRecommendation, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, err
	}

	doc, err := s.generator.GenerateRecommendations(ctx, domain.RecommendationParams{
		Age:                 profile.Age,
		Gender:              profile.Gender,
		HeightInches:        profile.HeightInches,
		Weight:              profile.Weight,
		Goal:                profile.Goal,
		AvailableTime:       profile.AvailableTime,
		DietaryRestrictions: deref(profile.DietaryRestrictions),
		DietaryPreferences:  deref(profile.DietaryPreferences),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Food recommendations failed", "userId", userID.Hex(), "error", err)
		return nil, err
	}
	return doc.Recommendations, nil
}
