package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lumenlearn/lumen-backend/internal/config"
	"github.com/lumenlearn/lumen-backend/internal/handler"
	"github.com/lumenlearn/lumen-backend/internal/middleware"
	"github.com/lumenlearn/lumen-backend/internal/response"
	"github.com/lumenlearn/lumen-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Assessment *handler.AssessmentHandler
	Teaching   *handler.TeachingHandler
	Learner    *handler.LearnerHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// LLM-backed routes get a tighter budget than plain reads.
	generateLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Learner Group (JWT) ────────────────────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(middleware.RequireLearnerJWT(authService))
	{
		// Learner model
		learnerAPI.GET("/profile", handlers.Learner.GetProfile)
		learnerAPI.POST("/profile/refresh", handlers.Learner.RefreshProfile)
		learnerAPI.GET("/gaps", handlers.Assessment.ListGaps)

		// Assessment loop
		assessments := learnerAPI.Group("/assessments")
		{
			assessments.POST("", handlers.Assessment.CreateSession)
			assessments.GET("/:session_id", handlers.Assessment.GetSession)
			assessments.POST("/:session_id/questions", generateLimiter.Middleware(), handlers.Assessment.NextQuestion)
			assessments.GET("/:session_id/questions", handlers.Assessment.ListQuestions)
			assessments.POST("/:session_id/responses", generateLimiter.Middleware(), handlers.Assessment.SubmitResponse)
			assessments.POST("/:session_id/complete", handlers.Assessment.CompleteSession)
			assessments.GET("/:session_id/analytics", handlers.Assessment.ListAnalytics)
		}

		// Teaching adaptation
		teaching := learnerAPI.Group("/teaching")
		{
			teaching.POST("", handlers.Teaching.Initialize)
			teaching.GET("/:session_id", handlers.Teaching.GetSession)
			teaching.PATCH("/:session_id/metrics", handlers.Teaching.UpdateMetrics)
			teaching.POST("/:session_id/content", generateLimiter.Middleware(), handlers.Teaching.GenerateContent)
			teaching.GET("/:session_id/recommendations", handlers.Teaching.GetRecommendations)
			teaching.GET("/:session_id/history", handlers.Teaching.GetHistory)
			teaching.DELETE("/:session_id", handlers.Teaching.End)
		}
	}

	// ─── 2. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/learner/teaching/:session_id/stream", handlers.WS.TeachingStream)
	}

	return router
}
