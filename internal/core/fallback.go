package core

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/llm"
)

// ResolverConfig bounds fallback calls. Timeout applies per attempt; with one retry a
// field never takes much longer than 2*Timeout+RetryBackoff.
type ResolverConfig struct {
	Timeout      time.Duration
	RetryBackoff time.Duration
	MaxInFlight  int
	ExcerptChars int
}

// Resolver asks an LLM for fallback-eligible fields the rules left blank. It never
// fails: anything short of a direct answer becomes "Unknown".
type Resolver struct {
	provider llm.Provider
	cfg      ResolverConfig
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

// NewResolver builds a resolver. A nil provider (no credentials) answers "Unknown"
// without calling out.
func NewResolver(provider llm.Provider, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 2
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = 6000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider: provider,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		logger:   logger,
	}
}

// ResolveRow fills row's pending columns in place, in template order. fields maps a
// column to its catalog field.
func (r *Resolver) ResolveRow(ctx context.Context, text, filename string, row *extract.Row, fields map[string]constants.Field) {
	if len(row.Pending) == 0 {
		return
	}
	excerpt := llm.Excerpt(text, r.cfg.ExcerptChars)
	for _, col := range row.Pending {
		v, origin := r.Resolve(ctx, llm.FieldRequest{
			Field:    fields[col],
			Column:   col,
			Filename: filename,
			Excerpt:  excerpt,
		})
		row.Values[col] = v
		row.Origins[col] = origin
	}
	row.Pending = nil
}

// Resolve returns the accepted answer with OriginLLM, or "Unknown" with OriginUnknown.
func (r *Resolver) Resolve(ctx context.Context, req llm.FieldRequest) (string, constants.Origin) {
	log := r.logger.With("doc", req.Filename, "column", req.Column, "field", req.Field)
	if r.provider == nil {
		log.Info("llm.fallback.no_provider")
		return constants.ValueUnknown, constants.OriginUnknown
	}

	start := time.Now()
	for attempt := 1; attempt <= 2; attempt++ {
		ans, err := r.attempt(ctx, req)
		if err == nil {
			if v, ok := llm.AcceptAnswer(ans); ok {
				log.Info("llm.fallback.ok", "attempt", attempt, "elapsed_ms", time.Since(start).Milliseconds())
				return v, constants.OriginLLM
			}
			log.Info("llm.fallback.no_answer", "attempt", attempt, "found", ans.Found)
			return constants.ValueUnknown, constants.OriginUnknown
		}

		appErr := common.ExternalServiceError(r.provider.Name(), err)
		if ctx.Err() != nil || attempt == 2 || !llm.IsTransient(err) {
			log.Warn("llm.fallback.failed",
				"attempt", attempt,
				"kind", llm.ClassifyError(err),
				"error", appErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			break
		}
		log.Warn("llm.fallback.retry", "attempt", attempt, "kind", llm.ClassifyError(err), "error", appErr)
		if !sleep(ctx, r.cfg.RetryBackoff) {
			break
		}
	}
	return constants.ValueUnknown, constants.OriginUnknown
}

func (r *Resolver) attempt(ctx context.Context, req llm.FieldRequest) (llm.FieldAnswer, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return llm.FieldAnswer{}, err
	}
	defer r.sem.Release(1)

	actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	ans, _, err := r.provider.ResolveField(actx, req)
	return ans, err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
