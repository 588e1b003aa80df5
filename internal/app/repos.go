package app

import (
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/repos"
)

type Repos struct {
	User      repos.UserRepo
	UserToken repos.UserTokenRepo
	Article   repos.ArticleRepo
	Quota     repos.QuotaRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:      repos.NewUserRepo(db, log),
		UserToken: repos.NewUserTokenRepo(db, log),
		Article:   repos.NewArticleRepo(db, log),
		Quota:     repos.NewQuotaRepo(db, log),
	}
}
