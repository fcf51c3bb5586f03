package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
	"github.com/joseph-ayodele/syllabus-review/internal/table"
)

// Processor coordinates loading, pattern extraction and the LLM fallback for a batch
// of uploads, then aggregates the results into a table.
type Processor struct {
	logger       *slog.Logger
	loader       *loader.Loader
	extractor    *extract.Extractor
	resolver     *Resolver
	workers      int
	previewChars int
}

func NewProcessor(
	logger *slog.Logger,
	ld *loader.Loader,
	extractor *extract.Extractor,
	resolver *Resolver,
	workers int,
	previewChars int,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	if previewChars <= 0 {
		previewChars = constants.DefaultPreviewChars
	}
	return &Processor{
		logger:       logger,
		loader:       ld,
		extractor:    extractor,
		resolver:     resolver,
		workers:      workers,
		previewChars: previewChars,
	}
}

// WithExtractor returns a processor sharing p's loader, resolver and limits that
// extracts with ex instead.
func (p *Processor) WithExtractor(ex *extract.Extractor) *Processor {
	cp := *p
	cp.extractor = ex
	return &cp
}

// item is one document slot in the batch; failed is set when expansion already failed.
type item struct {
	upload loader.Upload
	failed *table.DocumentResult
}

// Process runs the batch. Per-document failures become diagnostic rows and never
// stop the batch; only context cancellation aborts it. Rows keep input order, with
// ZIP members in archive order at the archive's position.
func (p *Processor) Process(ctx context.Context, columns []string, uploads []loader.Upload) (*table.ResultTable, error) {
	if len(columns) == 0 {
		return nil, common.TemplateSchemaError("template has no columns")
	}
	start := time.Now()
	log := common.LoggerFromContext(ctx, p.logger)

	var (
		items    []item
		warnings []string
	)
	for _, up := range uploads {
		members, warns, err := p.loader.Expand(up)
		if err != nil {
			res := table.FailedResult(up.Name, err)
			items = append(items, item{upload: up, failed: &res})
			continue
		}
		warnings = append(warnings, warns...)
		for _, m := range members {
			items = append(items, item{upload: m})
		}
	}

	fields := make(map[string]constants.Field, len(columns))
	for _, plan := range p.extractor.Plan(columns) {
		fields[plan.Column] = plan.Field
	}

	results := make([]table.DocumentResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, it := range items {
		if it.failed != nil {
			results[i] = *it.failed
			continue
		}
		g.Go(func() error {
			res, err := p.processOne(gctx, it.upload, columns, fields, log)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("batch.aborted", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	tbl := table.Build(columns, results, warnings, table.Options{PreviewChars: p.previewChars})
	failed := 0
	for _, r := range tbl.Rows {
		if r.Status != constants.DocumentStatusOK {
			failed++
		}
	}
	log.Info("batch.done",
		"uploads", len(uploads),
		"documents", len(tbl.Rows),
		"failed", failed,
		"warnings", len(warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return tbl, nil
}

// processOne returns an error only when the batch context is done. A panic while
// reading or extracting becomes an unreadable-document row.
func (p *Processor) processOne(ctx context.Context, up loader.Upload, columns []string, fields map[string]constants.Field, log *slog.Logger) (res table.DocumentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("batch.document.panic", "doc", up.Name, "panic", r)
			res = table.FailedResult(up.Name, common.UnreadableDocumentError(up.Name, "document could not be processed", fmt.Errorf("%v", r)))
			err = nil
		}
	}()
	start := time.Now()
	doc, err := p.loader.Load(ctx, up)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return table.DocumentResult{}, err
		}
		log.Warn("batch.document.failed", "doc", up.Name, "code", common.CodeOf(err), "error", err)
		return table.FailedResult(up.Name, err), nil
	}

	row := p.extractor.Extract(doc.Text, up.Name, columns)
	pending := len(row.Pending)
	p.resolver.ResolveRow(ctx, doc.Text, up.Name, &row, fields)
	if err := ctx.Err(); err != nil {
		return table.DocumentResult{}, err
	}

	log.Debug("batch.document.ok",
		"doc", up.Name,
		"format", doc.Format,
		"pages", doc.Pages,
		"fallback_fields", pending,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return table.DocumentResult{
		SourceName: up.Name,
		Status:     constants.DocumentStatusOK,
		Text:       doc.Text,
		Pages:      doc.Pages,
		Values:     row.Values,
		Origins:    row.Origins,
	}, nil
}
