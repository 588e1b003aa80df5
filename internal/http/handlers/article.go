package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medscribe/medscribe-backend/internal/http/response"
	"github.com/medscribe/medscribe-backend/internal/pkg/ctxutil"
	"github.com/medscribe/medscribe-backend/internal/services"
)

type ArticleHandler struct {
	articleService services.ArticleService
}

func NewArticleHandler(articleService services.ArticleService) *ArticleHandler {
	return &ArticleHandler{articleService: articleService}
}

func (ah *ArticleHandler) List(c *gin.Context) {
	userID := ctxutil.GetUserID(c.Request.Context())
	kind := c.Query("kind")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	articles, err := ah.articleService.List(c.Request.Context(), userID, kind, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"articles": articles})
}

func (ah *ArticleHandler) Get(c *gin.Context) {
	userID := ctxutil.GetUserID(c.Request.Context())
	articleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	article, err := ah.articleService.Get(c.Request.Context(), userID, articleID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"article": article})
}

func (ah *ArticleHandler) Delete(c *gin.Context) {
	userID := ctxutil.GetUserID(c.Request.Context())
	articleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	if err := ah.articleService.Delete(c.Request.Context(), userID, articleID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
