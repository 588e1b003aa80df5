package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/http/response"
	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/pkg/ctxutil"
	"github.com/medscribe/medscribe-backend/internal/services"
	"github.com/medscribe/medscribe-backend/internal/tasks"
)

// GenerateHandler exposes the per-domain generation endpoints. Each endpoint
// consumes one quota credit, runs the upstream workflow, and relays the
// normalized event stream to the browser as SSE while mirroring every event
// into the task store for reconnect polling.
type GenerateHandler struct {
	log            *logger.Logger
	workflows      *dify.Service
	quotaService   services.QuotaService
	articleService services.ArticleService
	taskStore      *tasks.Store
	bus            tasks.Bus // nil on single-replica deploys
}

func NewGenerateHandler(
	log *logger.Logger,
	workflows *dify.Service,
	quotaService services.QuotaService,
	articleService services.ArticleService,
	taskStore *tasks.Store,
	bus tasks.Bus,
) *GenerateHandler {
	return &GenerateHandler{
		log:            log.With("handler", "GenerateHandler"),
		workflows:      workflows,
		quotaService:   quotaService,
		articleService: articleService,
		taskStore:      taskStore,
		bus:            bus,
	}
}

func (gh *GenerateHandler) Title(c *gin.Context) {
	var in dify.TitleInputs
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	gh.stream(c, dify.FeatureTitle, in.Topic, in, func(ctx context.Context, user string, sink dify.Sink) {
		gh.workflows.GenerateTitle(ctx, in, user, sink)
	})
}

func (gh *GenerateHandler) Article(c *gin.Context) {
	var in dify.ArticleInputs
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	gh.stream(c, dify.FeatureArticle, in.Title, in, func(ctx context.Context, user string, sink dify.Sink) {
		gh.workflows.GenerateArticle(ctx, in, user, sink)
	})
}

func (gh *GenerateHandler) CaseSummary(c *gin.Context) {
	var in dify.CaseSummaryInputs
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	// Image payloads never land in the saved inputs; only the description.
	saved := map[string]any{"description": in.Description, "image_count": len(in.Images)}
	gh.stream(c, dify.FeatureCaseSummary, "Case summary", saved, func(ctx context.Context, user string, sink dify.Sink) {
		gh.workflows.GenerateCaseSummary(ctx, in, user, sink)
	})
}

func (gh *GenerateHandler) CaseTopic(c *gin.Context) {
	var in dify.CaseTopicInputs
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	gh.stream(c, dify.FeatureCaseTopic, "Case topic", in, func(ctx context.Context, user string, sink dify.Sink) {
		gh.workflows.GenerateCaseTopic(ctx, in, user, sink)
	})
}

func (gh *GenerateHandler) CaseReport(c *gin.Context) {
	var in dify.CaseReportInputs
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	gh.stream(c, dify.FeatureCaseReport, in.Topic, in, func(ctx context.Context, user string, sink dify.Sink) {
		gh.workflows.GenerateCaseReport(ctx, in, user, sink)
	})
}

func (gh *GenerateHandler) Paragraph(c *gin.Context) {
	var in dify.ParagraphInputs
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	gh.stream(c, dify.FeatureParagraph, "Paragraph optimization", in, func(ctx context.Context, user string, sink dify.Sink) {
		gh.workflows.OptimizeParagraph(ctx, in, user, sink)
	})
}

func (gh *GenerateHandler) Outline(c *gin.Context) {
	var in dify.OutlineInputs
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	gh.stream(c, dify.FeatureOutline, in.Title, in, func(ctx context.Context, user string, sink dify.Sink) {
		gh.workflows.GenerateOutline(ctx, in, user, sink)
	})
}

// stream consumes quota, switches the response to SSE, and pumps normalized
// events from the workflow run to the client. Events are mirrored into the
// task store before being written, so a client that drops mid-run can still
// poll what it missed. With a bus configured the mirror goes through the bus
// alone: pub/sub delivers back to the publishing replica, so the forwarder
// owns every local store write and no event is recorded twice.
func (gh *GenerateHandler) stream(c *gin.Context, feature, title string, inputs any, run func(ctx context.Context, user string, sink dify.Sink)) {
	ctx := c.Request.Context()
	userID := ctxutil.GetUserID(ctx)

	if err := gh.quotaService.CheckAndConsume(ctx, userID, feature); err != nil {
		response.RespondServiceError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	var (
		mu       sync.Mutex
		terminal *dify.NormalizedEvent
	)
	sink := func(ev dify.NormalizedEvent) error {
		if gh.bus != nil {
			if err := gh.bus.Publish(ctx, userID, ev.TaskID, ev); err != nil {
				// Keep the event locally so polling still works on this
				// replica; the other replicas lose it.
				gh.log.Warn("Task bus publish failed, appending locally", "error", err)
				gh.taskStore.Append(userID, ev.TaskID, ev)
			}
		} else {
			gh.taskStore.Append(userID, ev.TaskID, ev)
		}
		if ev.Event == dify.EventWorkflowFinished {
			mu.Lock()
			evCopy := ev
			terminal = &evCopy
			mu.Unlock()
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", raw); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	run(ctx, userID.String(), sink)

	mu.Lock()
	ev := terminal
	mu.Unlock()
	if ev != nil && ev.Data.Status == dify.StatusSucceeded {
		// The request context may already be gone if the browser bailed
		// right after the terminal frame.
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := gh.articleService.SaveResult(saveCtx, userID, feature, title, inputs, *ev); err != nil {
			gh.log.Error("Failed to save generation result",
				"feature", feature, "task_id", ev.TaskID, "error", err)
		}
	}
}
