package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
)

// Pipeline is the batch pipeline wired from config.
type Pipeline struct {
	Processor *Processor
	Resolver  *Resolver
	Catalog   *extract.Catalog
}

// NewPipeline builds the loader, the rule catalog (built-in rules plus RULES_FILE
// entries, which take precedence), the completion provider and the resolver.
func NewPipeline(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	catalog := extract.DefaultCatalog()
	custom, err := extract.LoadRuleFilePath(cfg.Batch.RulesFile)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("RULES_FILE %s", cfg.Batch.RulesFile), fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	if len(custom) > 0 {
		catalog = catalog.Extend(custom...)
		logger.Info("extract.rules.loaded", "path", cfg.Batch.RulesFile, "columns", len(custom))
	}

	provider, err := NewProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(provider, ResolverConfig{
		Timeout:      cfg.LLM.Timeout,
		RetryBackoff: cfg.LLM.RetryBackoff,
		MaxInFlight:  cfg.LLM.MaxInFlight,
		ExcerptChars: cfg.LLM.ExcerptChars,
	}, logger)

	proc := NewProcessor(logger,
		loader.New(loader.Config{MaxMemberBytes: cfg.Batch.ZipMaxMemberBytes}, logger),
		extract.NewExtractor(catalog, logger),
		resolver,
		cfg.Batch.Workers,
		cfg.Batch.PreviewChars,
	)
	return &Pipeline{Processor: proc, Resolver: resolver, Catalog: catalog}, nil
}
