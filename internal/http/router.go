package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/medscribe/medscribe-backend/internal/http/handlers"
	httpMW "github.com/medscribe/medscribe-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	GenerateHandler *httpH.GenerateHandler
	TaskHandler     *httpH.TaskHandler
	ArticleHandler  *httpH.ArticleHandler
	QuotaHandler    *httpH.QuotaHandler
	HealthHandler   *httpH.HealthHandler

	CORSAllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS(cfg.CORSAllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Generation (SSE)
		if cfg.GenerateHandler != nil {
			protected.POST("/generate/title", cfg.GenerateHandler.Title)
			protected.POST("/generate/article", cfg.GenerateHandler.Article)
			protected.POST("/generate/case-summary", cfg.GenerateHandler.CaseSummary)
			protected.POST("/generate/case-topic", cfg.GenerateHandler.CaseTopic)
			protected.POST("/generate/case-report", cfg.GenerateHandler.CaseReport)
			protected.POST("/generate/paragraph", cfg.GenerateHandler.Paragraph)
			protected.POST("/generate/outline", cfg.GenerateHandler.Outline)
		}

		// Task replay
		if cfg.TaskHandler != nil {
			protected.GET("/tasks/:task_id/events", cfg.TaskHandler.Events)
		}

		// Article history
		if cfg.ArticleHandler != nil {
			protected.GET("/articles", cfg.ArticleHandler.List)
			protected.GET("/articles/:id", cfg.ArticleHandler.Get)
			protected.DELETE("/articles/:id", cfg.ArticleHandler.Delete)
		}

		// Quota
		if cfg.QuotaHandler != nil {
			protected.GET("/quotas", cfg.QuotaHandler.List)
		}
	}

	return r
}
