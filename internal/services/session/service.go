package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/core"
	"github.com/joseph-ayodele/syllabus-review/internal/export"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
	"github.com/joseph-ayodele/syllabus-review/internal/repository"
	"github.com/joseph-ayodele/syllabus-review/internal/table"
	"github.com/joseph-ayodele/syllabus-review/internal/template"
)

// maxCellValue is the longest value a reviewer may type into a cell (the xlsx cell limit).
const maxCellValue = 32767

// Session is a review session as the boundaries see it.
type Session struct {
	ID            uuid.UUID          `json:"id"`
	Template      *template.Template `json:"template"`
	CreatedAt     time.Time          `json:"created_at"`
	AccessedAt    time.Time          `json:"accessed_at"`
	ExportedAt    *time.Time         `json:"exported_at,omitempty"`
	DocumentCount int                `json:"document_count"`
}

// Service owns review sessions: a template, the latest batch table, and reviewer edits.
type Service struct {
	sessions  repository.SessionRepository
	documents repository.DocumentRepository
	processor *core.Processor
	catalog   *extract.Catalog
	exporter  *export.Service
	cfg       common.SessionConfig
	logger    *slog.Logger
	now       func() time.Time

	// mu serializes create and eviction so the cap holds.
	mu sync.Mutex
	// locks holds one *sync.Mutex per session; table writes take it.
	locks sync.Map
}

// NewService creates a new session service. catalog is the base rule catalog that
// template rules extend; nil means the built-in catalog.
func NewService(
	sessions repository.SessionRepository,
	documents repository.DocumentRepository,
	processor *core.Processor,
	catalog *extract.Catalog,
	exporter *export.Service,
	cfg common.SessionConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = extract.DefaultCatalog()
	}
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	return &Service{
		sessions:  sessions,
		documents: documents,
		processor: processor,
		catalog:   catalog,
		exporter:  exporter,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ParseID validates a session id taken from a request.
func ParseID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	v := common.NewValidator()
	v.Field("session_id", raw, common.Required, common.UUID)
	if err := v.Error(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

// Create starts a session for tpl. When MaxSessions is reached the least recently
// used sessions are evicted first.
func (s *Service) Create(ctx context.Context, tpl *template.Template) (*Session, error) {
	if tpl == nil || len(tpl.Columns) == 0 {
		return nil, common.TemplateSchemaError("template has no columns")
	}
	if _, err := tpl.Entries(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(tpl)
	if err != nil {
		return nil, common.NewAppError(common.CodeInternal, "encode template", errors.Join(common.ErrInternal, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.evict(ctx); err != nil {
		return nil, err
	}
	rec, err := s.sessions.Create(ctx, raw, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("session.created", "session_id", rec.ID, "template", tpl.Name, "columns", len(tpl.Columns))
	return &Session{
		ID:         rec.ID,
		Template:   tpl,
		CreatedAt:  rec.CreatedAt,
		AccessedAt: rec.AccessedAt,
	}, nil
}

// evict makes room for one more session. Caller holds mu.
func (s *Service) evict(ctx context.Context) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	n, err := s.sessions.Count(ctx)
	if err != nil {
		return err
	}
	if n < s.cfg.MaxSessions {
		return nil
	}
	ids, err := s.sessions.Oldest(ctx, n-s.cfg.MaxSessions+1)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		s.locks.Delete(id)
		s.logger.Info("session.evicted", "session_id", id, "max_sessions", s.cfg.MaxSessions)
	}
	return nil
}

// Get returns a session without refreshing it.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	rec, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

// List returns every live session, oldest first.
func (s *Service) List(ctx context.Context) ([]*Session, error) {
	recs, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(recs))
	for _, rec := range recs {
		sess, err := decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// Process runs a batch with the session's template and replaces its table.
func (s *Service) Process(ctx context.Context, id uuid.UUID, uploads []loader.Upload) (*table.ResultTable, error) {
	return s.ProcessIntake(ctx, id, uploads, nil)
}

// ProcessIntake is Process for callers that gathered the uploads themselves.
// intake lists files skipped before upload; they lead the table's warnings.
func (s *Service) ProcessIntake(ctx context.Context, id uuid.UUID, uploads []loader.Upload, intake []string) (*table.ResultTable, error) {
	ctx = common.WithSessionID(ctx, id.String())
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := sess.Template.Entries()
	if err != nil {
		return nil, err
	}
	proc := s.processor
	if len(entries) > 0 {
		proc = proc.WithExtractor(extract.NewExtractor(s.catalog.Extend(entries...), s.logger))
	}

	tbl, err := proc.Process(ctx, sess.Template.Columns, uploads)
	if err != nil {
		return nil, err
	}
	if len(intake) > 0 {
		tbl.Warnings = append(append([]string(nil), intake...), tbl.Warnings...)
	}
	unlock := s.lock(id)
	defer unlock()
	if err := s.documents.ReplaceTable(ctx, id, tbl); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, id, s.now()); err != nil {
		return nil, err
	}
	common.LoggerFromContext(ctx, s.logger).Info("session.batch.stored", "documents", len(tbl.Rows), "warnings", len(tbl.Warnings))
	return tbl, nil
}

// Table returns the session's current table. A session with no batch yet has an
// empty table with the template's columns.
func (s *Service) Table(ctx context.Context, id uuid.UUID) (*table.ResultTable, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tbl, err := s.documents.LoadTable(ctx, id, sess.Template.Columns)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return tbl, nil
}

// UpdateCell applies a reviewer edit and returns the updated row.
func (s *Service) UpdateCell(ctx context.Context, id uuid.UUID, row int, column, value string) (*table.Row, error) {
	v := common.NewValidator()
	v.Field("column", column, common.Required)
	v.Field("value", value, common.MaxLength(maxCellValue))
	v.Field("row", row, common.NonNegative)
	if err := v.Error(); err != nil {
		return nil, err
	}

	// The edit is read, applied and saved under the session lock so a batch
	// committing in between cannot receive the old table's row.
	unlock := s.lock(id)
	defer unlock()
	tbl, err := s.Table(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := tbl.SetCell(row, column, value)
	if err != nil {
		return nil, err
	}
	if err := s.documents.SaveCells(ctx, id, updated); err != nil {
		return nil, err
	}
	s.logger.Debug("session.cell.updated", "session_id", id, "row", row, "column", column)
	return updated, nil
}

// Text returns the full extracted text of one row.
func (s *Service) Text(ctx context.Context, id uuid.UUID, row int) (string, error) {
	text, err := s.documents.Text(ctx, id, row)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Touch(ctx, id, s.now()); err != nil {
		return "", err
	}
	return text, nil
}

// Export renders the session's table as an xlsx workbook.
func (s *Service) Export(ctx context.Context, id uuid.UUID, opts export.Options) ([]byte, error) {
	tbl, err := s.Table(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.exporter.ExportXLSX(ctx, tbl, opts)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.MarkExported(ctx, id, s.now()); err != nil {
		return nil, err
	}
	s.logger.Info("session.exported", "session_id", id, "rows", len(tbl.Rows), "bytes", len(data))
	return data, nil
}

// KeepAlive refreshes the session's last access time.
func (s *Service) KeepAlive(ctx context.Context, id uuid.UUID) error {
	return s.sessions.Touch(ctx, id, s.now())
}

// Delete ends a session and drops its table.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.locks.Delete(id)
	s.logger.Info("session.deleted", "session_id", id)
	return nil
}

// Cleanup deletes sessions idle for longer than the TTL and reports how many went.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	if s.cfg.TTL <= 0 {
		return 0, nil
	}
	ids, err := s.sessions.IdleBefore(ctx, s.now().Add(-s.cfg.TTL))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if err := s.sessions.Delete(ctx, id); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return n, err
		}
		n++
		s.locks.Delete(id)
		s.logger.Info("session.expired", "session_id", id, "ttl", s.cfg.TTL)
	}
	return n, nil
}

// Run calls Cleanup every CleanupInterval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("session.cleanup.failed", "error", err)
			}
		}
	}
}

func (s *Service) lock(id uuid.UUID) (unlock func()) {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func decode(rec *repository.Session) (*Session, error) {
	var tpl template.Template
	if err := json.Unmarshal(rec.Template, &tpl); err != nil {
		return nil, common.NewAppError(common.CodeInternal, "decode template of session "+rec.ID.String(), errors.Join(common.ErrInternal, err))
	}
	return &Session{
		ID:            rec.ID,
		Template:      &tpl,
		CreatedAt:     rec.CreatedAt,
		AccessedAt:    rec.AccessedAt,
		ExportedAt:    rec.ExportedAt,
		DocumentCount: rec.DocumentCount,
	}, nil
}
