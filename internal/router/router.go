package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/assesshub/assesshub-backend/internal/config"
	"github.com/assesshub/assesshub-backend/internal/handler"
	"github.com/assesshub/assesshub-backend/internal/middleware"
	"github.com/assesshub/assesshub-backend/internal/response"
	"github.com/assesshub/assesshub-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Question *handler.QuestionHandler
	Test     *handler.TestHandler
	Public   *handler.PublicHandler
	Monitor  *handler.MonitorHandler
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

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuthorJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Author Group (JWT) ─────────────────────────────────────────
	authorAPI := router.Group("/api/v1/author")
	authorAPI.Use(middleware.RequireAuthorJWT(authService))
	{
		authorAPI.GET("/questions", handlers.Question.List)
		authorAPI.POST("/questions", handlers.Question.Create)
		authorAPI.GET("/questions/:id", handlers.Question.Get)
		authorAPI.PUT("/questions/:id", handlers.Question.Update)
		authorAPI.PATCH("/questions/:id/visibility", handlers.Question.ChangeVisibility)
		authorAPI.DELETE("/questions/:id", handlers.Question.Delete)

		authorAPI.GET("/tests", handlers.Test.List)
		authorAPI.POST("/tests", handlers.Test.Create)
		authorAPI.GET("/tests/:id", handlers.Test.Get)
		authorAPI.PUT("/tests/:id", handlers.Test.Update)
		authorAPI.PATCH("/tests/:id/enabled", handlers.Test.SetEnabled)
		authorAPI.PATCH("/tests/:id/visibility", handlers.Test.ChangeVisibility)
		authorAPI.DELETE("/tests/:id", handlers.Test.Archive)
		authorAPI.GET("/tests/:id/questions", handlers.Test.ListQuestions)
		authorAPI.POST("/tests/:id/questions", handlers.Test.AttachQuestion)
		authorAPI.POST("/tests/:id/questions/bulk", handlers.Test.BulkAttachQuestions)
		authorAPI.DELETE("/tests/:id/questions/:question_id", handlers.Test.DetachQuestion)
		authorAPI.GET("/tests/:id/results", handlers.Test.Results)
	}

	// ─── 3. WebSocket Group (Author WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAuthorWSAuth(authService))
	{
		ws.GET("/author/tests/:id/monitor", handlers.Monitor.MonitorTest)
	}

	// ─── 4. Public Candidate Group (Rate Limited) ──────────────────────
	// Candidates are anonymous, so the limiter keys on client IP.
	publicLimiter := middleware.NewRateLimiter(cfg.PublicRateLimit, time.Minute)
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(publicLimiter.Middleware())
	{
		publicAPI.GET("/tests/:slug", handlers.Public.GetTest)
		publicAPI.POST("/tests/:slug/start", handlers.Public.StartAssessment)
		publicAPI.POST("/assessments/:id/answers", handlers.Public.RecordAnswer)
		publicAPI.POST("/assessments/:id/submit", handlers.Public.Submit)
		publicAPI.GET("/assessments/:id/verify", handlers.Public.Verify)
	}

	return router
}
