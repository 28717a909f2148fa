package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/config"
	"github.com/mockprep/coach-gateway/internal/handler"
	"github.com/mockprep/coach-gateway/internal/logger"
	"github.com/mockprep/coach-gateway/internal/middleware"
	"github.com/mockprep/coach-gateway/internal/response"
	"github.com/mockprep/coach-gateway/internal/service"
)

// resourceMaxAge is how long browsers may keep the static catalogs.
const resourceMaxAge = 3600

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Interview *handler.InterviewHandler
	Feedback  *handler.FeedbackHandler
	Flow      *handler.FlowHandler
	WS        *handler.WSHandler
	Resource  *handler.ResourceHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// The returned limiter must be stopped on shutdown.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) (*gin.Engine, *middleware.RateLimiter) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Credentialed requests cannot use the wildcard origin, so an empty
	// list reflects the caller's origin instead.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(logger.Middleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	requireSession := middleware.RequireSession(authService, cfg.SessionCookie)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/signup", handlers.Auth.Signup)
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/forgot-password", handlers.Auth.ForgotPassword)

		auth.POST("/logout", requireSession, handlers.Auth.Logout)
		auth.GET("/me", requireSession, handlers.Auth.Me)
	}

	// ─── 2. User Group (Session) ───────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(requireSession)
	{
		api.GET("/interviews", handlers.Interview.ListInterviews)
		api.POST("/interviews", handlers.Interview.CreateInterview)
		api.GET("/interviews/:id", handlers.Interview.GetInterview)
		api.POST("/interviews/:id/attempts", handlers.Interview.StartAttempt)
		api.GET("/interviews/:id/submissions", handlers.Interview.ListSubmissions)
		api.GET("/interviews/:id/feedback", handlers.Feedback.GetFeedback)

		// Answer flow
		flow := api.Group("/interviews/:id/flow")
		{
			flow.POST("", handlers.Flow.StartFlow)
			flow.GET("", handlers.Flow.GetFlow)
			flow.DELETE("", handlers.Flow.CloseFlow)
			flow.GET("/events", handlers.Flow.StreamEvents)
			flow.PUT("/current", handlers.Flow.SelectQuestion)
			flow.PUT("/answer", handlers.Flow.UpdateAnswer)
			flow.POST("/reset", handlers.Flow.ResetAnswer)
			flow.POST("/advance", handlers.Flow.Advance)
			flow.POST("/finish", handlers.Flow.Finish)
		}

		resources := api.Group("/resources")
		resources.Use(middleware.CacheControl(resourceMaxAge, true))
		{
			resources.GET("/practice", handlers.Resource.Practice)
			resources.GET("/concepts", handlers.Resource.Concepts)
		}
	}

	// ─── 3. WebSocket Group (Session via cookie or ?token=) ────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireSession)
	{
		ws.GET("/interviews/:id/flow", handlers.WS.FlowStream)
	}

	return router, authLimiter
}
