package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/table"
)

// DocumentRepository stores a session's result table: one row per document plus
// the batch warnings.
type DocumentRepository interface {
	// ReplaceTable swaps the session's table for tbl in one transaction.
	ReplaceTable(ctx context.Context, sessionID uuid.UUID, tbl *table.ResultTable) error
	// LoadTable rebuilds the table; full text is not loaded.
	LoadTable(ctx context.Context, sessionID uuid.UUID, columns []string) (*table.ResultTable, error)
	// SaveCells rewrites one row's cells and origins.
	SaveCells(ctx context.Context, sessionID uuid.UUID, row *table.Row) error
	Text(ctx context.Context, sessionID uuid.UUID, index int) (string, error)
}

type documentRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewDocumentRepository(drv *entsql.Driver, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{drv: drv, logger: logger}
}

func (r *documentRepository) ReplaceTable(ctx context.Context, sessionID uuid.UUID, tbl *table.ResultTable) error {
	sid := sessionID.String()
	err := withTx(ctx, r.drv, func(tx dialect.Tx) error {
		q, args := builder().Update("sessions").
			Set("document_count", tbl.DocumentCount).
			Where(entsql.EQ("id", sid)).
			Query()
		res, err := exec(ctx, tx, q, args)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return sessionNotFound(sessionID)
		}

		for _, t := range []string{"warnings", "documents"} {
			q, args := builder().Delete(t).Where(entsql.EQ("session_id", sid)).Query()
			if _, err := exec(ctx, tx, q, args); err != nil {
				return err
			}
		}

		for _, row := range tbl.Rows {
			cells, origins, err := encodeCells(row)
			if err != nil {
				return err
			}
			q, args := builder().Insert("documents").
				Columns("session_id", "idx", "source_name", "display_name", "status", "error_code",
					"note", "pages", "text", "preview", "cells", "origins").
				Values(sid, row.Index, row.SourceName, row.DisplayName, string(row.Status), row.ErrorCode,
					row.Note, row.Pages, row.Text, row.Preview, cells, origins).
				Query()
			if _, err := exec(ctx, tx, q, args); err != nil {
				return err
			}
		}

		for i, w := range tbl.Warnings {
			q, args := builder().Insert("warnings").
				Columns("session_id", "seq", "message").
				Values(sid, i, w).
				Query()
			if _, err := exec(ctx, tx, q, args); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if common.CodeOf(err) == common.CodeNotFound {
			return err
		}
		r.logger.Error("repo.table.replace_failed", "session_id", sessionID, "error", err)
		return storeError("replace table", err)
	}
	r.logger.Debug("repo.table.replaced", "session_id", sessionID, "rows", len(tbl.Rows), "warnings", len(tbl.Warnings))
	return nil
}

func (r *documentRepository) LoadTable(ctx context.Context, sessionID uuid.UUID, columns []string) (*table.ResultTable, error) {
	rows, err := r.loadRows(ctx, sessionID.String())
	if err != nil {
		return nil, err
	}
	warnings, err := r.loadWarnings(ctx, sessionID.String())
	if err != nil {
		return nil, err
	}
	return &table.ResultTable{
		Columns:       append([]string(nil), columns...),
		Rows:          rows,
		Warnings:      warnings,
		DocumentCount: len(rows),
	}, nil
}

// loadRows and loadWarnings each drain their cursor before returning; the store has
// a single connection.
func (r *documentRepository) loadRows(ctx context.Context, sid string) ([]*table.Row, error) {
	q, args := builder().Select("idx", "source_name", "display_name", "status", "error_code", "note",
		"pages", "preview", "cells", "origins").
		From(entsql.Table("documents")).
		Where(entsql.EQ("session_id", sid)).
		OrderBy("idx").
		Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, storeError("load table", err)
	}
	defer rows.Close()

	out := []*table.Row{}
	for rows.Next() {
		var (
			row            table.Row
			status         string
			cells, origins string
		)
		if err := rows.Scan(&row.Index, &row.SourceName, &row.DisplayName, &status, &row.ErrorCode, &row.Note,
			&row.Pages, &row.Preview, &cells, &origins); err != nil {
			return nil, storeError("scan document", err)
		}
		row.Status = constants.DocumentStatus(status)
		if err := json.Unmarshal([]byte(cells), &row.Values); err != nil {
			return nil, storeError("decode cells", err)
		}
		if err := json.Unmarshal([]byte(origins), &row.Origins); err != nil {
			return nil, storeError("decode origins", err)
		}
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("load table", err)
	}
	return out, nil
}

func (r *documentRepository) loadWarnings(ctx context.Context, sid string) ([]string, error) {
	q, args := builder().Select("message").
		From(entsql.Table("warnings")).
		Where(entsql.EQ("session_id", sid)).
		OrderBy("seq").
		Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, storeError("load warnings", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, storeError("scan warning", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("load warnings", err)
	}
	return out, nil
}

func (r *documentRepository) SaveCells(ctx context.Context, sessionID uuid.UUID, row *table.Row) error {
	cells, origins, err := encodeCells(row)
	if err != nil {
		return storeError("encode cells", err)
	}
	q, args := builder().Update("documents").
		Set("cells", cells).
		Set("origins", origins).
		Where(entsql.And(entsql.EQ("session_id", sessionID.String()), entsql.EQ("idx", row.Index))).
		Query()
	res, err := exec(ctx, r.drv, q, args)
	if err != nil {
		return storeError("save cells", err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return rowNotFound(row.Index)
	}
	return nil
}

func (r *documentRepository) Text(ctx context.Context, sessionID uuid.UUID, index int) (string, error) {
	q, args := builder().Select("text").
		From(entsql.Table("documents")).
		Where(entsql.And(entsql.EQ("session_id", sessionID.String()), entsql.EQ("idx", index))).
		Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return "", storeError("load text", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", storeError("load text", err)
		}
		return "", rowNotFound(index)
	}
	var text string
	if err := rows.Scan(&text); err != nil {
		return "", storeError("scan text", err)
	}
	return text, nil
}

func encodeCells(row *table.Row) (string, string, error) {
	values := row.Values
	if values == nil {
		values = map[string]string{}
	}
	origins := row.Origins
	if origins == nil {
		origins = map[string]constants.Origin{}
	}
	c, err := json.Marshal(values)
	if err != nil {
		return "", "", fmt.Errorf("encode cells: %w", err)
	}
	o, err := json.Marshal(origins)
	if err != nil {
		return "", "", fmt.Errorf("encode origins: %w", err)
	}
	return string(c), string(o), nil
}

func rowNotFound(index int) error {
	return common.NewAppError(common.CodeNotFound, fmt.Sprintf("row %d does not exist", index), common.ErrNotFound)
}
