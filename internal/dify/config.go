package dify

import (
	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/utils"
)

// Config is the full upstream-engine configuration: one shared API endpoint,
// one shared base URL for resolving returned file paths, and one key per
// workflow app.
type Config struct {
	APIURL  string
	BaseURL string

	ArticleKey   string
	TitleKey     string
	CaseKey      string
	ParagraphKey string
	OutlineKey   string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		APIURL:       utils.GetEnv("DIFY_API_URL", "https://api.dify.ai/v1", log),
		BaseURL:      utils.GetEnv("DIFY_BASE_URL", "https://api.dify.ai", log),
		ArticleKey:   utils.GetEnv("DIFY_ARTICLE_API_KEY", "", log),
		TitleKey:     utils.GetEnv("DIFY_TITLE_API_KEY", "", log),
		CaseKey:      utils.GetEnv("DIFY_CASE_API_KEY", "", log),
		ParagraphKey: utils.GetEnv("DIFY_PARAGRAPH_API_KEY", "", log),
		OutlineKey:   utils.GetEnv("DIFY_OUTLINE_API_KEY", "", log),
	}
}
