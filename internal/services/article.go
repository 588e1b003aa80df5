package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/logger"
	pkgerrors "github.com/medscribe/medscribe-backend/internal/pkg/errors"
	"github.com/medscribe/medscribe-backend/internal/repos"
	"github.com/medscribe/medscribe-backend/internal/types"
)

type ArticleService interface {
	// SaveResult persists the terminal event of a successful run into the
	// user's history.
	SaveResult(ctx context.Context, userID uuid.UUID, kind, title string, inputs any, ev dify.NormalizedEvent) (*types.Article, error)
	List(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]*types.Article, error)
	Get(ctx context.Context, userID, articleID uuid.UUID) (*types.Article, error)
	Delete(ctx context.Context, userID, articleID uuid.UUID) error
}

type articleService struct {
	log         *logger.Logger
	articleRepo repos.ArticleRepo
}

func NewArticleService(log *logger.Logger, articleRepo repos.ArticleRepo) ArticleService {
	return &articleService{
		log:         log.With("service", "ArticleService"),
		articleRepo: articleRepo,
	}
}

func (s *articleService) SaveResult(ctx context.Context, userID uuid.UUID, kind, title string, inputs any, ev dify.NormalizedEvent) (*types.Article, error) {
	if ev.Event != dify.EventWorkflowFinished || ev.Data.Status != dify.StatusSucceeded {
		return nil, fmt.Errorf("%w: only succeeded terminal events are saved", pkgerrors.ErrInvalidArgument)
	}

	article := &types.Article{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Content: strings.Join(ev.Data.Result, "\n"),
		TaskID:  ev.TaskID,
	}
	if inputs != nil {
		raw, err := json.Marshal(inputs)
		if err != nil {
			return nil, fmt.Errorf("marshal inputs: %w", err)
		}
		article.Inputs = datatypes.JSON(raw)
	}
	if len(ev.Data.Files) > 0 {
		raw, err := json.Marshal(ev.Data.Files)
		if err != nil {
			return nil, fmt.Errorf("marshal file urls: %w", err)
		}
		article.FileURLs = datatypes.JSON(raw)
	}

	created, err := s.articleRepo.Create(ctx, nil, []*types.Article{article})
	if err != nil {
		return nil, fmt.Errorf("save article: %w", err)
	}
	return created[0], nil
}

func (s *articleService) List(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]*types.Article, error) {
	return s.articleRepo.ListByUser(ctx, nil, userID, kind, limit)
}

func (s *articleService) Get(ctx context.Context, userID, articleID uuid.UUID) (*types.Article, error) {
	article, err := s.articleRepo.GetByID(ctx, nil, articleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	if article.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	return article, nil
}

func (s *articleService) Delete(ctx context.Context, userID, articleID uuid.UUID) error {
	return s.articleRepo.DeleteByID(ctx, nil, userID, articleID)
}
