package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/logger"
	pkgerrors "github.com/medscribe/medscribe-backend/internal/pkg/errors"
	"github.com/medscribe/medscribe-backend/internal/repos"
	"github.com/medscribe/medscribe-backend/internal/types"
)

type QuotaService interface {
	// CheckAndConsume atomically takes one credit for the feature, seeding
	// the row with the free allowance on first use.
	CheckAndConsume(ctx context.Context, userID uuid.UUID, feature string) error
	Grant(ctx context.Context, userID uuid.UUID, feature string, amount int) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Quota, error)
}

type quotaService struct {
	db            *gorm.DB
	log           *logger.Logger
	quotaRepo     repos.QuotaRepo
	freeAllowance int
}

func NewQuotaService(db *gorm.DB, log *logger.Logger, quotaRepo repos.QuotaRepo, freeAllowance int) QuotaService {
	if freeAllowance < 0 {
		freeAllowance = 0
	}
	return &quotaService{
		db:            db,
		log:           log.With("service", "QuotaService"),
		quotaRepo:     quotaRepo,
		freeAllowance: freeAllowance,
	}
}

func (qs *quotaService) CheckAndConsume(ctx context.Context, userID uuid.UUID, feature string) error {
	return qs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quota, err := qs.quotaRepo.GetForUpdate(ctx, tx, userID, feature)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load quota: %w", err)
			}
			quota = &types.Quota{
				ID:        uuid.New(),
				UserID:    userID,
				Feature:   feature,
				Remaining: qs.freeAllowance,
			}
		}
		if quota.Remaining <= 0 {
			return pkgerrors.ErrQuotaExceeded
		}
		quota.Remaining--
		quota.Used++
		if err := qs.quotaRepo.Save(ctx, tx, quota); err != nil {
			return fmt.Errorf("save quota: %w", err)
		}
		return nil
	})
}

func (qs *quotaService) Grant(ctx context.Context, userID uuid.UUID, feature string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: grant amount must be positive", pkgerrors.ErrInvalidArgument)
	}
	return qs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quota, err := qs.quotaRepo.GetForUpdate(ctx, tx, userID, feature)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load quota: %w", err)
			}
			quota = &types.Quota{
				ID:      uuid.New(),
				UserID:  userID,
				Feature: feature,
			}
		}
		quota.Remaining += amount
		return qs.quotaRepo.Save(ctx, tx, quota)
	})
}

func (qs *quotaService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Quota, error) {
	return qs.quotaRepo.ListByUser(ctx, nil, userID)
}
