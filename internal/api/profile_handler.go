package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/service"
)

type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// --- DTOs ---

// CreateProfileRequest is the onboarding form.
type CreateProfileRequest struct {
	Age                 int         `json:"age" binding:"required,min=1,max=120"`
	Gender              string      `json:"gender" binding:"required"`
	HeightInches        float64     `json:"heightInches" binding:"required,gt=0"`
	Weight              float64     `json:"weight" binding:"required,gt=0"`
	Goal                domain.Goal `json:"goal" binding:"required,oneof=lose_weight gain_muscle maintain improve_fitness other"`
	AvailableTime       string      `json:"availableTime" binding:"required,max=100"`
	DietaryRestrictions *string     `json:"dietaryRestrictions" binding:"omitempty,max=500"`
	DietaryPreferences  *string     `json:"dietaryPreferences" binding:"omitempty,max=500"`
}

// UpdateProfileRequest is a partial edit; omitted fields keep their value.
type UpdateProfileRequest struct {
	Age                 *int         `json:"age" binding:"omitempty,min=1,max=120"`
	Gender              *string      `json:"gender"`
	HeightInches        *float64     `json:"heightInches" binding:"omitempty,gt=0"`
	Weight              *float64     `json:"weight" binding:"omitempty,gt=0"`
	Goal                *domain.Goal `json:"goal" binding:"omitempty,oneof=lose_weight gain_muscle maintain improve_fitness other"`
	AvailableTime       *string      `json:"availableTime" binding:"omitempty,max=100"`
	DietaryRestrictions *string      `json:"dietaryRestrictions" binding:"omitempty,max=500"`
	DietaryPreferences  *string      `json:"dietaryPreferences" binding:"omitempty,max=500"`
}

// --- Handler Methods ---

// CreateProfile godoc
// @Summary Complete onboarding
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body CreateProfileRequest true "Fitness profile"
// @Success 201 {object} domain.Profile
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 409 {object} ErrorResponse "Profile already exists"
// @Router /profile [post]
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, KindValidation, err)
		return
	}

	profile, err := h.profileService.CreateProfile(c.Request.Context(), userID, domain.Profile{
		Age:                 req.Age,
		Gender:              req.Gender,
		HeightInches:        req.HeightInches,
		Weight:              req.Weight,
		Goal:                req.Goal,
		AvailableTime:       req.AvailableTime,
		DietaryRestrictions: req.DietaryRestrictions,
		DietaryPreferences:  req.DietaryPreferences,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Profile
// @Failure 404 {object} ErrorResponse "No profile yet"
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Edit the caller's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 404 {object} ErrorResponse "No profile yet"
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, KindValidation, err)
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), userID, domain.ProfileUpdate{
		Age:                 req.Age,
		Gender:              req.Gender,
		HeightInches:        req.HeightInches,
		Weight:              req.Weight,
		Goal:                req.Goal,
		AvailableTime:       req.AvailableTime,
		DietaryRestrictions: req.DietaryRestrictions,
		DietaryPreferences:  req.DietaryPreferences,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// OnboardingStatus godoc
// @Summary Check whether onboarding is complete
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.OnboardingStatus
// @Router /profile/onboarding-status [get]
func (h *ProfileHandler) OnboardingStatus(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	status, err := h.profileService.OnboardingStatus(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
