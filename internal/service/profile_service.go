package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/generator"
	"nutribyte/fitness-app/internal/repository"
)

// OnboardingStatus reports whether a user has completed onboarding.
type OnboardingStatus struct {
	Completed bool                `json:"completed"`
	ProfileID *primitive.ObjectID `json:"profileId,omitempty"`
}

// --- Service Interface ---
type ProfileService interface {
	CreateProfile(ctx context.Context, userID primitive.ObjectID, profile domain.Profile) (*domain.Profile, error)
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, update domain.ProfileUpdate) (*domain.Profile, error)
	OnboardingStatus(ctx context.Context, userID primitive.ObjectID) (*OnboardingStatus, error)
}

// --- Service Implementation ---

type profileService struct {
	profileRepo repository.ProfileRepository
}

// NewProfileService creates a new instance of profileService.
func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// CreateProfile stores the onboarding profile. A user has at most one.
func (s *profileService) CreateProfile(ctx context.Context, userID primitive.ObjectID, profile domain.Profile) (*domain.Profile, error) {
	// 1. Validate Input
	profile.ID = primitive.NilObjectID
	profile.UserID = userID
	normalizeProfile(&profile)
	if err := validateProfile(&profile); err != nil {
		return nil, err
	}

	// 2. Save; the unique user index rejects a second profile
	if _, err := s.profileRepo.Create(ctx, &profile); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrProfileExists
		}
		return nil, err
	}
	return &profile, nil
}

func (s *profileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

// UpdateProfile applies a partial edit. Existing plans are not regenerated.
func (s *profileService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update domain.ProfileUpdate) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	update.Apply(profile)
	normalizeProfile(profile)
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *profileService) OnboardingStatus(ctx context.Context, userID primitive.ObjectID) (*OnboardingStatus, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &OnboardingStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &OnboardingStatus{Completed: true, ProfileID: &profile.ID}, nil
}

func normalizeProfile(p *domain.Profile) {
	p.Gender = strings.TrimSpace(p.Gender)
	p.AvailableTime = strings.TrimSpace(p.AvailableTime)
	for _, field := range []**string{&p.DietaryRestrictions, &p.DietaryPreferences} {
		if *field == nil {
			continue
		}
		v := strings.TrimSpace(**field)
		if v == "" {
			*field = nil
		} else {
			*field = &v
		}
	}
}

func validateProfile(p *domain.Profile) error {
	switch {
	case p.Age < 1 || p.Age > 120:
		return fmt.Errorf("%w: age must be between 1 and 120", ErrValidation)
	case p.Gender == "":
		return fmt.Errorf("%w: gender is required", ErrValidation)
	case p.HeightInches <= 0:
		return fmt.Errorf("%w: height must be positive", ErrValidation)
	case p.Weight <= 0:
		return fmt.Errorf("%w: weight must be positive", ErrValidation)
	case !p.Goal.Valid():
		return fmt.Errorf("%w: unknown goal %q", ErrValidation, p.Goal)
	}
	if _, _, err := generator.ParseAvailableTime(p.AvailableTime); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
