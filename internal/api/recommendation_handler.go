package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/service"
)

type RecommendationHandler struct {
	recommendationService service.RecommendationService
}

func NewRecommendationHandler(recommendationService service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: recommendationService}
}

type RecommendationsResponse struct {
	Recommendations []domain.FoodRecommendation `json:"recommendations"`
}

// GetRecommendations godoc
// @Summary Suggest foods for the caller's profile
// @Description Generates three food suggestions from the stored profile. Nothing is saved.
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RecommendationsResponse
// @Failure 400 {object} ErrorResponse "InvalidParameters"
// @Failure 429 {object} ErrorResponse "RateLimited"
// @Failure 502 {object} ErrorResponse "GenerationParseError"
// @Failure 503 {object} ErrorResponse "GenerationUnavailable"
// @Router /recommendations [get]
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	recs, err := h.recommendationService.Recommend(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, RecommendationsResponse{Recommendations: recs})
}
