package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/types"
)

type ArticleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, articles []*types.Article) ([]*types.Article, error)
	GetByID(ctx context.Context, tx *gorm.DB, articleID uuid.UUID) (*types.Article, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind string, limit int) ([]*types.Article, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, userID, articleID uuid.UUID) error
}

type articleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return &articleRepo{db: db, log: baseLog.With("repo", "ArticleRepo")}
}

func (ar *articleRepo) Create(ctx context.Context, tx *gorm.DB, articles []*types.Article) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if len(articles) == 0 {
		return []*types.Article{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (ar *articleRepo) GetByID(ctx context.Context, tx *gorm.DB, articleID uuid.UUID) (*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Article
	if err := transaction.WithContext(ctx).
		Where("id = ?", articleID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *articleRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind string, limit int) ([]*types.Article, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if limit <= 0 {
		limit = 50
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var results []*types.Article
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *articleRepo) DeleteByID(ctx context.Context, tx *gorm.DB, userID, articleID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", articleID, userID).
		Delete(&types.Article{}).Error
}
