package core

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/llm"
	"github.com/joseph-ayodele/syllabus-review/internal/llm/gemini"
	"github.com/joseph-ayodele/syllabus-review/internal/llm/openai"
)

// NewProvider selects the completion provider from config. It returns a nil provider
// when the provider is disabled or has no credential; the resolver then answers
// "Unknown" for every fallback field.
func NewProvider(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case common.ProviderNone:
		logger.Info("llm.provider.disabled")
		return nil, nil
	case common.ProviderMock:
		logger.Info("llm.provider.selected", "provider", common.ProviderMock)
		return llm.NewMock(), nil
	case common.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("llm.provider.no_credential", "provider", common.ProviderGemini, "hint", "set GEMINI_API_KEY")
			return nil, nil
		}
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, common.ExternalServiceError(common.ProviderGemini, err)
		}
		logger.Info("llm.provider.selected", "provider", common.ProviderGemini, "model", cfg.GeminiModel)
		return c, nil
	default:
		if cfg.APIKey == "" {
			logger.Warn("llm.provider.no_credential", "provider", common.ProviderOpenAI, "hint", "set OPENAI_API_KEY")
			return nil, nil
		}
		logger.Info("llm.provider.selected", "provider", common.ProviderOpenAI, "model", cfg.Model)
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	}
}
