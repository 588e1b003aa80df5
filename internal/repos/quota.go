package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/types"
)

type QuotaRepo interface {
	GetForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, feature string) (*types.Quota, error)
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, feature string) (*types.Quota, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Quota, error)
	Save(ctx context.Context, tx *gorm.DB, quota *types.Quota) error
}

type quotaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuotaRepo(db *gorm.DB, baseLog *logger.Logger) QuotaRepo {
	return &quotaRepo{db: db, log: baseLog.With("repo", "QuotaRepo")}
}

// GetForUpdate locks the quota row so concurrent consumes serialize.
func (qr *quotaRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, feature string) (*types.Quota, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var result types.Quota
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND feature = ?", userID, feature).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (qr *quotaRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, feature string) (*types.Quota, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var result types.Quota
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND feature = ?", userID, feature).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (qr *quotaRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Quota, error) {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	var results []*types.Quota
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (qr *quotaRepo) Save(ctx context.Context, tx *gorm.DB, quota *types.Quota) error {
	transaction := tx
	if transaction == nil {
		transaction = qr.db
	}
	return transaction.WithContext(ctx).Save(quota).Error
}
