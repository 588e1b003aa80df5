package dify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medscribe/medscribe-backend/internal/logger"
)

// Feature names, shared with quota accounting and article history.
const (
	FeatureArticle     = "article"
	FeatureTitle       = "title"
	FeatureCaseSummary = "case_summary"
	FeatureCaseTopic   = "case_topic"
	FeatureCaseReport  = "case_report"
	FeatureParagraph   = "paragraph"
	FeatureOutline     = "outline"
)

// domainSpec binds one workflow app to its streaming behavior: step count for
// heuristic progress, framing discipline, and result extraction.
type domainSpec struct {
	name         string
	totalSteps   int
	framing      FramingMode
	textKeys     []string
	textFallback bool
	key          func(Config) string
}

var domains = map[string]domainSpec{
	FeatureArticle: {
		name:       FeatureArticle,
		totalSteps: 19,
		textKeys:   []string{"text", "result"},
		// The article workflow normally returns a file, but some engine
		// versions stream the body as text chunks only.
		textFallback: true,
		key:          func(c Config) string { return c.ArticleKey },
	},
	FeatureTitle: {
		name:         FeatureTitle,
		totalSteps:   9,
		textKeys:     []string{"result", "titles", "text"},
		textFallback: true,
		key:          func(c Config) string { return c.TitleKey },
	},
	FeatureCaseSummary: {
		name:         FeatureCaseSummary,
		totalSteps:   5,
		textKeys:     []string{"result", "summary", "text"},
		textFallback: true,
		key:          func(c Config) string { return c.CaseKey },
	},
	FeatureCaseTopic: {
		name:         FeatureCaseTopic,
		totalSteps:   3,
		textKeys:     []string{"result", "topic", "text"},
		textFallback: true,
		key:          func(c Config) string { return c.CaseKey },
	},
	FeatureCaseReport: {
		name:         FeatureCaseReport,
		totalSteps:   6,
		textKeys:     []string{"result", "text"},
		textFallback: true,
		key:          func(c Config) string { return c.CaseKey },
	},
	FeatureParagraph: {
		name:         FeatureParagraph,
		totalSteps:   4,
		textKeys:     []string{"result", "text"},
		textFallback: true,
		key:          func(c Config) string { return c.ParagraphKey },
	},
	FeatureOutline: {
		name:       FeatureOutline,
		totalSteps: 10,
		framing:    FramingLine,
		textKeys:   []string{"text", "outline", "result"},
		// Outline bodies arrive as text chunks; the terminal payload is often
		// empty, so the accumulated text is the primary result.
		textFallback: true,
		key:          func(c Config) string { return c.OutlineKey },
	},
}

// Service runs one upstream workflow per call and relays its normalized
// events to the supplied sink. Failures after the stream toward the browser
// has begun are always delivered in-band as a failed terminal event.
type Service struct {
	log *logger.Logger
	cfg Config

	// tickInterval overrides the animator cadence in tests.
	tickInterval time.Duration
	uploadLimit  int
}

func NewService(log *logger.Logger, cfg Config) *Service {
	return &Service{
		log:         log.With("service", "DifyService"),
		cfg:         cfg,
		uploadLimit: 3,
	}
}

type TitleInputs struct {
	Topic     string `json:"topic" binding:"required"`
	Keywords  string `json:"keywords"`
	Direction string `json:"direction"`
}

type ArticleInputs struct {
	Title     string `json:"title" binding:"required"`
	Keywords  string `json:"keywords"`
	Journal   string `json:"journal"`
	WordCount int    `json:"word_count"`
}

type CaseImage struct {
	Name     string `json:"name" binding:"required"`
	MimeType string `json:"mime_type"`
	// Data is the base64-encoded file content from the browser.
	Data string `json:"data" binding:"required"`
}

type CaseSummaryInputs struct {
	Images      []CaseImage `json:"images" binding:"required,min=1"`
	Description string      `json:"description"`
}

type CaseTopicInputs struct {
	Summary string `json:"summary" binding:"required"`
}

type CaseReportInputs struct {
	Summary string `json:"summary" binding:"required"`
	Topic   string `json:"topic" binding:"required"`
}

type ParagraphInputs struct {
	Text        string `json:"text" binding:"required"`
	Instruction string `json:"instruction"`
}

type OutlineInputs struct {
	Title     string `json:"title" binding:"required"`
	Direction string `json:"direction"`
}

func (s *Service) GenerateTitle(ctx context.Context, in TitleInputs, user string, sink Sink) {
	s.run(ctx, FeatureTitle, map[string]any{
		"topic":     in.Topic,
		"keywords":  in.Keywords,
		"direction": in.Direction,
	}, user, sink)
}

func (s *Service) GenerateArticle(ctx context.Context, in ArticleInputs, user string, sink Sink) {
	wordCount := in.WordCount
	if wordCount <= 0 {
		wordCount = 3000
	}
	s.run(ctx, FeatureArticle, map[string]any{
		"title":      in.Title,
		"keywords":   in.Keywords,
		"journal":    in.Journal,
		"word_count": strconv.Itoa(wordCount),
	}, user, sink)
}

// GenerateCaseSummary uploads the case images first, then starts the
// workflow with the upload ids. Upload failures surface as a failed terminal
// event before any workflow call is made.
func (s *Service) GenerateCaseSummary(ctx context.Context, in CaseSummaryInputs, user string, sink Sink) {
	spec := domains[FeatureCaseSummary]
	client := NewClient(s.log, s.cfg.APIURL, spec.key(s.cfg))

	fileIDs := make([]string, len(in.Images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.uploadLimit)
	for i, img := range in.Images {
		g.Go(func() error {
			raw, err := base64.StdEncoding.DecodeString(img.Data)
			if err != nil {
				return fmt.Errorf("decode image %q: %w", img.Name, err)
			}
			id, err := client.UploadFile(gctx, FileUpload{
				Name:     img.Name,
				MimeType: img.MimeType,
				Bytes:    raw,
			}, user)
			if err != nil {
				return err
			}
			fileIDs[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("Case image upload failed", "error", err)
		s.abort(spec, sink, fmt.Sprintf("file upload failed: %v", err))
		return
	}

	images := make([]map[string]any, len(fileIDs))
	for i, id := range fileIDs {
		images[i] = map[string]any{
			"transfer_method": "local_file",
			"upload_file_id":  id,
			"type":            "image",
		}
	}
	s.run(ctx, FeatureCaseSummary, map[string]any{
		"images":      images,
		"description": in.Description,
	}, user, sink)
}

func (s *Service) GenerateCaseTopic(ctx context.Context, in CaseTopicInputs, user string, sink Sink) {
	s.run(ctx, FeatureCaseTopic, map[string]any{
		"summary": in.Summary,
	}, user, sink)
}

func (s *Service) GenerateCaseReport(ctx context.Context, in CaseReportInputs, user string, sink Sink) {
	s.run(ctx, FeatureCaseReport, map[string]any{
		"summary": in.Summary,
		"topic":   in.Topic,
	}, user, sink)
}

func (s *Service) OptimizeParagraph(ctx context.Context, in ParagraphInputs, user string, sink Sink) {
	s.run(ctx, FeatureParagraph, map[string]any{
		"text":        in.Text,
		"instruction": in.Instruction,
	}, user, sink)
}

func (s *Service) GenerateOutline(ctx context.Context, in OutlineInputs, user string, sink Sink) {
	s.run(ctx, FeatureOutline, map[string]any{
		"title":     in.Title,
		"direction": in.Direction,
	}, user, sink)
}

func (s *Service) run(ctx context.Context, feature string, inputs map[string]any, user string, sink Sink) {
	spec := domains[feature]
	proc := s.newProcessor(spec, sink)

	client := NewClient(s.log, s.cfg.APIURL, spec.key(s.cfg))
	body, err := client.RunWorkflow(ctx, inputs, user)
	if err != nil {
		s.log.Error("Workflow run request failed", "feature", feature, "error", err)
		proc.Abort(fmt.Sprintf("workflow request failed: %v", err))
		return
	}
	proc.Run(ctx, body)
}

func (s *Service) newProcessor(spec domainSpec, sink Sink) *Processor {
	return NewProcessor(ProcessorConfig{
		Domain:       spec.name,
		TotalSteps:   spec.totalSteps,
		Framing:      spec.framing,
		Extract:      newExtractor(s.cfg.BaseURL, spec.textKeys, spec.textFallback),
		TickInterval: s.tickInterval,
	}, s.log, sink)
}

// abort emits a failed terminal event without ever contacting the engine.
func (s *Service) abort(spec domainSpec, sink Sink, msg string) {
	proc := s.newProcessor(spec, sink)
	proc.Abort(msg)
}
