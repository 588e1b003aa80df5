package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/medscribe-backend/internal/http/response"
	"github.com/medscribe/medscribe-backend/internal/pkg/ctxutil"
	"github.com/medscribe/medscribe-backend/internal/tasks"
)

type TaskHandler struct {
	store *tasks.Store
}

func NewTaskHandler(store *tasks.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

// Events lets a client that lost its SSE connection poll the task history.
// ?after=n skips the first n events it already consumed.
func (th *TaskHandler) Events(c *gin.Context) {
	userID := ctxutil.GetUserID(c.Request.Context())
	taskID := c.Param("task_id")
	after := 0
	if raw := c.Query("after"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_after", err)
			return
		}
		after = n
	}
	events, status, ok := th.store.Snapshot(userID, taskID, after)
	if !ok {
		response.RespondError(c, http.StatusNotFound, "task_not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{
		"task_id": taskID,
		"status":  status,
		"events":  events,
		"next":    after + len(events),
	})
}
