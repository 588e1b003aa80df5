package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/medscribe/medscribe-backend/internal/http"
)

func wireRouter(cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		AuthHandler:        h.Auth,
		AuthMiddleware:     mw.Auth,
		GenerateHandler:    h.Generate,
		TaskHandler:        h.Task,
		ArticleHandler:     h.Article,
		QuotaHandler:       h.Quota,
		HealthHandler:      h.Health,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
}
