package app

import (
	httpH "github.com/medscribe/medscribe-backend/internal/http/handlers"
	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/tasks"
)

type Handlers struct {
	Auth     *httpH.AuthHandler
	Generate *httpH.GenerateHandler
	Task     *httpH.TaskHandler
	Article  *httpH.ArticleHandler
	Quota    *httpH.QuotaHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, s Services, store *tasks.Store, bus tasks.Bus) Handlers {
	return Handlers{
		Auth:     httpH.NewAuthHandler(s.Auth),
		Generate: httpH.NewGenerateHandler(log, s.Dify, s.Quota, s.Article, store, bus),
		Task:     httpH.NewTaskHandler(store),
		Article:  httpH.NewArticleHandler(s.Article),
		Quota:    httpH.NewQuotaHandler(s.Quota),
		Health:   httpH.NewHealthHandler(),
	}
}
