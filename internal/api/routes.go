package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nutribyte/fitness-app/internal/service"
)

// NewRouter returns a gin engine with recovery and request logging.
func NewRouter(logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))
	return router
}

func SetupRoutes(
	router *gin.Engine,
	authService service.AuthService,
	profileService service.ProfileService,
	planService service.PlanService,
	recommendationService service.RecommendationService,
	generateLimiter *UserRateLimiter,
	gatherer prometheus.Gatherer,
) {
	authHandler := NewAuthHandler(authService)
	profileHandler := NewProfileHandler(profileService)
	planHandler := NewPlanHandler(planService)
	recommendationHandler := NewRecommendationHandler(recommendationService)

	authMiddleware := AuthMiddleware(authService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		// --- Profile Routes ---
		profileGroup := protected.Group("/profile")
		{
			profileGroup.POST("", profileHandler.CreateProfile)
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("", profileHandler.UpdateProfile)
			profileGroup.GET("/onboarding-status", profileHandler.OnboardingStatus)
		}

		// --- Plan Routes ---
		planGroup := protected.Group("/plans")
		{
			// Generation calls a paid provider and is rate limited per user.
			planGroup.POST("/generate", generateLimiter.Middleware(), planHandler.GeneratePlan)
			planGroup.POST("/repair", planHandler.RepairPlans)
			planGroup.GET("", planHandler.ListPlans)
			planGroup.GET("/active/:planType", planHandler.GetActivePlan)
			planGroup.GET("/:planId", planHandler.GetPlan)
			planGroup.PUT("/:planId/content", planHandler.UpdateContent)
			planGroup.PUT("/:planId/active", planHandler.SetActive)
			planGroup.DELETE("/:planId", planHandler.DeletePlan)
			planGroup.POST("/:planId/export", planHandler.ExportPlan)
		}

		// --- Recommendation Routes ---
		// Shares the generation budget with /plans/generate.
		protected.GET("/recommendations", generateLimiter.Middleware(), recommendationHandler.GetRecommendations)
	}
}
