package app

import (
	httpMW "github.com/medscribe/medscribe-backend/internal/http/middleware"
	"github.com/medscribe/medscribe-backend/internal/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, s.Auth),
	}
}
