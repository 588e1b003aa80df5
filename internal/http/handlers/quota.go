package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/medscribe/medscribe-backend/internal/http/response"
	"github.com/medscribe/medscribe-backend/internal/pkg/ctxutil"
	"github.com/medscribe/medscribe-backend/internal/services"
)

type QuotaHandler struct {
	quotaService services.QuotaService
}

func NewQuotaHandler(quotaService services.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

func (qh *QuotaHandler) List(c *gin.Context) {
	userID := ctxutil.GetUserID(c.Request.Context())
	quotas, err := qh.quotaService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"quotas": quotas})
}
