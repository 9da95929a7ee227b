package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/service"
)

type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

// GeneratePlanRequest asks for the active plan of a type, generating one when
// needed. Free-text fields are passed to the generator as data only.
type GeneratePlanRequest struct {
	PlanType               domain.PlanType     `json:"planType" binding:"required,oneof=workout nutrition"`
	Regenerate             bool                `json:"regenerate"`
	Level                  domain.FitnessLevel `json:"level" binding:"omitempty,oneof=beginner intermediate expert"`
	TimeOfDay              []string            `json:"timeOfDay" binding:"omitempty,max=6,dive,max=40"`
	CountryPreference      string              `json:"countryPreference" binding:"max=60"`
	AdditionalRequirements string              `json:"additionalRequirements" binding:"max=500"`
}

type PlanResponse struct {
	Plan *domain.Plan `json:"plan"`
}

type UpdateContentRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type RepairRequest struct {
	PlanType      domain.PlanType `json:"planType" binding:"required,oneof=workout nutrition"`
	RestorePlanID string          `json:"restorePlanId"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// writePlan responds with {"plan": ...}, keeping the stored content bytes.
func writePlan(c *gin.Context, plan *domain.Plan) {
	body, err := plan.MarshalVerbatim()
	if err != nil {
		respondWithError(c, err)
		return
	}
	out := make([]byte, 0, len(body)+10)
	out = append(out, `{"plan":`...)
	out = append(out, body...)
	out = append(out, '}')
	c.Data(http.StatusOK, jsonContentType, out)
}

// writePlans responds with a JSON array of plans, keeping the stored content bytes.
func writePlans(c *gin.Context, plans []domain.Plan) {
	out := []byte{'['}
	for i := range plans {
		body, err := plans[i].MarshalVerbatim()
		if err != nil {
			respondWithError(c, err)
			return
		}
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, body...)
	}
	out = append(out, ']')
	c.Data(http.StatusOK, jsonContentType, out)
}

const jsonContentType = "application/json; charset=utf-8"

// parsePlanID reads the :planId path parameter.
func parsePlanID(c *gin.Context) (primitive.ObjectID, bool) {
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, KindInvalidParameters, "Invalid plan ID format")
		return primitive.NilObjectID, false
	}
	return planID, true
}

// --- Handler Methods ---

// GeneratePlan godoc
// @Summary Get or generate the active plan of a type
// @Description Returns the active plan unless regenerate is set or none exists, in which case a new plan is generated and replaces it.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GeneratePlanRequest true "Generation parameters"
// @Success 200 {object} PlanResponse
// @Failure 400 {object} ErrorResponse "InvalidParameters"
// @Failure 429 {object} ErrorResponse "RateLimited"
// @Failure 500 {object} ErrorResponse "StorePersistenceError"
// @Failure 502 {object} ErrorResponse "GenerationParseError"
// @Failure 503 {object} ErrorResponse "GenerationUnavailable"
// @Router /plans/generate [post]
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, KindInvalidParameters, err)
		return
	}

	plan, err := h.planService.EnsureActive(c.Request.Context(), userID, service.GenerateRequest{
		PlanType:   req.PlanType,
		Regenerate: req.Regenerate,
		Options: domain.GenerationOptions{
			Level:                  req.Level,
			MealTimes:              req.TimeOfDay,
			Cuisine:                req.CountryPreference,
			AdditionalRequirements: req.AdditionalRequirements,
		},
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	writePlan(c, plan)
}

// ListPlans godoc
// @Summary List the caller's plans, newest first
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param type query string false "workout or nutrition"
// @Success 200 {array} domain.Plan
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	plans, err := h.planService.ListPlans(c.Request.Context(), userID, domain.PlanType(c.Query("type")))
	if err != nil {
		respondWithError(c, err)
		return
	}
	writePlans(c, plans)
}

// GetActivePlan godoc
// @Summary Get the active plan of a type
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planType path string true "workout or nutrition"
// @Success 200 {object} PlanResponse
// @Failure 404 {object} ErrorResponse "No active plan"
// @Router /plans/active/{planType} [get]
func (h *PlanHandler) GetActivePlan(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetActive(c.Request.Context(), userID, domain.PlanType(c.Param("planType")))
	if err != nil {
		respondWithError(c, err)
		return
	}
	writePlan(c, plan)
}

// GetPlan godoc
// @Summary Get one of the caller's plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} PlanResponse
// @Failure 404 {object} ErrorResponse "NotFound"
// @Router /plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	planID, ok := parsePlanID(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), userID, planID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	writePlan(c, plan)
}

// UpdateContent godoc
// @Summary Replace the content of a plan
// @Description The content must match the plan type's schema and is stored exactly as sent.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param request body UpdateContentRequest true "New content"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "ValidationError"
// @Failure 404 {object} ErrorResponse "NotFound"
// @Router /plans/{planId}/content [put]
func (h *PlanHandler) UpdateContent(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	planID, ok := parsePlanID(c)
	if !ok {
		return
	}
	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, KindValidation, err)
		return
	}

	if _, err := h.planService.UpdateContent(c.Request.Context(), userID, planID, req.Content); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// SetActive godoc
// @Summary Deactivate a plan
// @Description active=false deactivates the plan (idempotent). active=true only succeeds for a plan that is already active.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param request body SetActiveRequest true "Desired state"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "ValidationError"
// @Failure 404 {object} ErrorResponse "NotFound"
// @Router /plans/{planId}/active [put]
func (h *PlanHandler) SetActive(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	planID, ok := parsePlanID(c)
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, KindValidation, err)
		return
	}

	if err := h.planService.SetActive(c.Request.Context(), userID, planID, *req.Active); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// DeletePlan godoc
// @Summary Delete a plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "NotFound"
// @Router /plans/{planId} [delete]
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	planID, ok := parsePlanID(c)
	if !ok {
		return
	}
	if err := h.planService.Delete(c.Request.Context(), userID, planID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// ExportPlan godoc
// @Summary Export a plan to object storage
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} service.PlanExport
// @Failure 404 {object} ErrorResponse "NotFound"
// @Failure 503 {object} ErrorResponse "Export not configured"
// @Router /plans/{planId}/export [post]
func (h *PlanHandler) ExportPlan(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	planID, ok := parsePlanID(c)
	if !ok {
		return
	}
	export, err := h.planService.ExportPlan(c.Request.Context(), userID, planID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}

// RepairPlans godoc
// @Summary Repair the caller's active plan state
// @Description Keeps the newest active plan of the type. With restorePlanId and no active plan, that plan becomes active again.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RepairRequest true "Repair parameters"
// @Success 200 {object} service.RepairReport
// @Failure 400 {object} ErrorResponse "InvalidParameters"
// @Failure 404 {object} ErrorResponse "Restore plan not found"
// @Router /plans/repair [post]
func (h *PlanHandler) RepairPlans(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req RepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, KindInvalidParameters, err)
		return
	}

	var restoreID *primitive.ObjectID
	if req.RestorePlanID != "" {
		id, err := primitive.ObjectIDFromHex(req.RestorePlanID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, KindInvalidParameters, "Invalid restorePlanId format")
			return
		}
		restoreID = &id
	}

	report, err := h.planService.RepairInconsistentState(c.Request.Context(), userID, req.PlanType, restoreID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
