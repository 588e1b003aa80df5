package app

import (
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/services"
)

type Services struct {
	Auth    services.AuthService
	Quota   services.QuotaService
	Article services.ArticleService
	Dify    *dify.Service
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) Services {
	return Services{
		Auth:    services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Quota:   services.NewQuotaService(db, log, r.Quota, cfg.QuotaFreeAllowance),
		Article: services.NewArticleService(log, r.Article),
		Dify:    dify.NewService(log, cfg.Dify),
	}
}
