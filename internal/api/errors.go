package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"nutribyte/fitness-app/internal/generator"
	"nutribyte/fitness-app/internal/service"
)

// Error kinds returned in the "kind" field of every error response.
const (
	KindInvalidParameters     = "InvalidParameters"
	KindValidation            = "ValidationError"
	KindNotFound              = "NotFound"
	KindConflict              = "Conflict"
	KindGenerationUnavailable = "GenerationUnavailable"
	KindGenerationParse       = "GenerationParseError"
	KindStorePersistence      = "StorePersistenceError"
	KindUnauthorized          = "Unauthorized"
	KindRateLimited           = "RateLimited"
	KindExportUnavailable     = "ExportUnavailable"
	KindInternal              = "Internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind              string `json:"kind"`
	Message           string `json:"message"`
	PriorActivePlanID string `json:"priorActivePlanId,omitempty"`
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Kind: kind, Message: message})
}

// respondWithError maps a service error to its kind and status code.
// Unexpected errors are logged and reported without detail.
func respondWithError(c *gin.Context, err error) {
	var persistErr *service.StorePersistenceError
	switch {
	case errors.As(err, &persistErr):
		slog.ErrorContext(c.Request.Context(), "Plan persistence failed", "path", c.FullPath(), "error", err)
		resp := ErrorResponse{Kind: KindStorePersistence, Message: "The new plan could not be saved"}
		if !persistErr.PriorActiveID.IsZero() {
			resp.PriorActivePlanID = persistErr.PriorActiveID.Hex()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
	case errors.Is(err, generator.ErrGenerationUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, KindGenerationUnavailable, "The plan generator is unavailable, try again later")
	case errors.Is(err, generator.ErrGenerationParse):
		abortWithError(c, http.StatusBadGateway, KindGenerationParse, "The plan generator returned an unusable plan, try again")
	case errors.Is(err, service.ErrInvalidParameters):
		abortWithError(c, http.StatusBadRequest, KindInvalidParameters, err.Error())
	case errors.Is(err, service.ErrValidation):
		abortWithError(c, http.StatusBadRequest, KindValidation, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, KindNotFound, err.Error())
	case errors.Is(err, service.ErrUserAlreadyExists), errors.Is(err, service.ErrProfileExists):
		abortWithError(c, http.StatusConflict, KindConflict, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed), errors.Is(err, service.ErrInvalidToken):
		abortWithError(c, http.StatusUnauthorized, KindUnauthorized, err.Error())
	case errors.Is(err, service.ErrExportDisabled):
		abortWithError(c, http.StatusServiceUnavailable, KindExportUnavailable, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "Unhandled request error", "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, KindInternal, "An unexpected error occurred")
	}
}

// bindError reports a request body that failed binding.
func bindError(c *gin.Context, kind string, err error) {
	abortWithError(c, http.StatusBadRequest, kind, "Validation error: "+err.Error())
}
