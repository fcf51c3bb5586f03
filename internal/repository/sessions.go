package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
)

// Session is one review session row.
type Session struct {
	ID            uuid.UUID
	Template      []byte // JSON
	CreatedAt     time.Time
	AccessedAt    time.Time
	ExportedAt    *time.Time
	DocumentCount int
}

type SessionRepository interface {
	Create(ctx context.Context, template []byte, now time.Time) (*Session, error)
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Count(ctx context.Context) (int, error)
	Touch(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkExported(ctx context.Context, id uuid.UUID, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	// IdleBefore lists sessions last accessed before cutoff, oldest first.
	IdleBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	// Oldest lists up to n sessions by last access, oldest first.
	Oldest(ctx context.Context, n int) ([]uuid.UUID, error)
}

type sessionRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewSessionRepository(drv *entsql.Driver, logger *slog.Logger) SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionRepository{drv: drv, logger: logger}
}

var sessionColumns = []string{"id", "template", "created_at", "accessed_at", "exported_at", "document_count"}

func (r *sessionRepository) Create(ctx context.Context, template []byte, now time.Time) (*Session, error) {
	s := &Session{
		ID:         uuid.New(),
		Template:   template,
		CreatedAt:  now.UTC(),
		AccessedAt: now.UTC(),
	}
	q, args := builder().Insert("sessions").
		Columns("id", "template", "created_at", "accessed_at", "document_count").
		Values(s.ID.String(), string(template), s.CreatedAt.UnixNano(), s.AccessedAt.UnixNano(), 0).
		Query()
	if _, err := exec(ctx, r.drv, q, args); err != nil {
		r.logger.Error("repo.session.create_failed", "error", err)
		return nil, storeError("create session", err)
	}
	r.logger.Debug("repo.session.created", "session_id", s.ID)
	return s, nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	q, args := builder().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		Where(entsql.EQ("id", id.String())).
		Query()
	list, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sessionNotFound(id)
	}
	return list[0], nil
}

func (r *sessionRepository) List(ctx context.Context) ([]*Session, error) {
	q, args := builder().Select(sessionColumns...).
		From(entsql.Table("sessions")).
		OrderBy("created_at", "id").
		Query()
	return r.query(ctx, q, args)
}

func (r *sessionRepository) Count(ctx context.Context) (int, error) {
	q, args := builder().Select(entsql.Count("*")).From(entsql.Table("sessions")).Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return 0, storeError("count sessions", err)
	}
	defer rows.Close()
	n := 0
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, storeError("count sessions", err)
		}
	}
	return n, rows.Err()
}

func (r *sessionRepository) Touch(ctx context.Context, id uuid.UUID, now time.Time) error {
	q, args := builder().Update("sessions").
		Set("accessed_at", now.UTC().UnixNano()).
		Where(entsql.EQ("id", id.String())).
		Query()
	return r.update(ctx, id, "touch session", q, args)
}

func (r *sessionRepository) MarkExported(ctx context.Context, id uuid.UUID, now time.Time) error {
	q, args := builder().Update("sessions").
		Set("exported_at", now.UTC().UnixNano()).
		Set("accessed_at", now.UTC().UnixNano()).
		Where(entsql.EQ("id", id.String())).
		Query()
	return r.update(ctx, id, "mark exported", q, args)
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted int64
	err := withTx(ctx, r.drv, func(tx dialect.Tx) error {
		for _, t := range []string{"warnings", "documents"} {
			q, args := builder().Delete(t).Where(entsql.EQ("session_id", id.String())).Query()
			if _, err := exec(ctx, tx, q, args); err != nil {
				return err
			}
		}
		q, args := builder().Delete("sessions").Where(entsql.EQ("id", id.String())).Query()
		res, err := exec(ctx, tx, q, args)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return storeError("delete session", err)
	}
	if deleted == 0 {
		return sessionNotFound(id)
	}
	r.logger.Debug("repo.session.deleted", "session_id", id)
	return nil
}

func (r *sessionRepository) IdleBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	q, args := builder().Select("id").
		From(entsql.Table("sessions")).
		Where(entsql.LT("accessed_at", cutoff.UTC().UnixNano())).
		OrderBy("accessed_at").
		Query()
	return r.ids(ctx, q, args)
}

func (r *sessionRepository) Oldest(ctx context.Context, n int) ([]uuid.UUID, error) {
	if n <= 0 {
		return nil, nil
	}
	q, args := builder().Select("id").
		From(entsql.Table("sessions")).
		OrderBy("accessed_at", "created_at").
		Limit(n).
		Query()
	return r.ids(ctx, q, args)
}

func (r *sessionRepository) update(ctx context.Context, id uuid.UUID, op, q string, args []any) error {
	res, err := exec(ctx, r.drv, q, args)
	if err != nil {
		return storeError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeError(op, err)
	}
	if n == 0 {
		return sessionNotFound(id)
	}
	return nil
}

func (r *sessionRepository) query(ctx context.Context, q string, args []any) ([]*Session, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, storeError("query sessions", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var (
			id, tmpl          string
			created, accessed int64
			exported          sql.NullInt64
			count             int
		)
		if err := rows.Scan(&id, &tmpl, &created, &accessed, &exported, &count); err != nil {
			return nil, storeError("scan session", err)
		}
		sid, err := uuid.Parse(id)
		if err != nil {
			return nil, storeError("scan session", err)
		}
		s := &Session{
			ID:            sid,
			Template:      []byte(tmpl),
			CreatedAt:     time.Unix(0, created).UTC(),
			AccessedAt:    time.Unix(0, accessed).UTC(),
			DocumentCount: count,
		}
		if exported.Valid {
			t := time.Unix(0, exported.Int64).UTC()
			s.ExportedAt = &t
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query sessions", err)
	}
	return out, nil
}

func (r *sessionRepository) ids(ctx context.Context, q string, args []any) ([]uuid.UUID, error) {
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, storeError("query sessions", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeError("scan session", err)
		}
		sid, err := uuid.Parse(id)
		if err != nil {
			return nil, storeError("scan session", err)
		}
		out = append(out, sid)
	}
	return out, rows.Err()
}

func sessionNotFound(id uuid.UUID) error {
	return common.NewAppError(common.CodeNotFound, fmt.Sprintf("session %s not found", id), common.ErrNotFound)
}

func storeError(op string, err error) error {
	return common.NewAppError(common.CodeStore, op, fmt.Errorf("%w: %v", common.ErrDatabase, err))
}
