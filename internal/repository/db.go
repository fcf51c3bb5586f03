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
	_ "modernc.org/sqlite"
)

type Config struct {
	// Name identifies the in-memory database; empty picks a fresh one.
	Name        string
	BusyTimeout time.Duration
}

// Open creates a process-local SQLite database, wraps it for Ent's SQL layer and
// creates the schema. Nothing outlives the returned driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*entsql.Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = "sessions-" + uuid.NewString()
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", name, busy.Milliseconds())
	logger.Info("opening session store", "name", name)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		return nil, err
	}
	// One connection keeps the memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := Migrate(ctx, drv); err != nil {
		_ = drv.Close()
		logger.Error("failed to create session schema", "error", err)
		return nil, err
	}
	logger.Info("session store ready")
	return drv, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		template       TEXT NOT NULL,
		created_at     INTEGER NOT NULL,
		accessed_at    INTEGER NOT NULL,
		exported_at    INTEGER,
		document_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		idx          INTEGER NOT NULL,
		source_name  TEXT NOT NULL,
		display_name TEXT NOT NULL,
		status       TEXT NOT NULL,
		error_code   TEXT NOT NULL DEFAULT '',
		note         TEXT NOT NULL DEFAULT '',
		pages        INTEGER NOT NULL DEFAULT 0,
		text         TEXT NOT NULL DEFAULT '',
		preview      TEXT NOT NULL DEFAULT '',
		cells        TEXT NOT NULL,
		origins      TEXT NOT NULL,
		PRIMARY KEY (session_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS warnings (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		message    TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_accessed_at ON sessions(accessed_at)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, drv dialect.ExecQuerier) error {
	for _, stmt := range schema {
		var res sql.Result
		if err := drv.Exec(ctx, stmt, []any{}, &res); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database gracefully; the in-memory data is gone afterwards.
func Close(drv *entsql.Driver, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing session store")
	if drv == nil {
		return
	}
	if err := drv.Close(); err != nil {
		logger.Error("failed to close session store", "error", err)
	}
}

// HealthCheck pings using database/sql.
func HealthCheck(ctx context.Context, drv *entsql.Driver, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := drv.DB().PingContext(ctx)
	logger.Debug("session store ping", "ok", err == nil)
	return err
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func exec(ctx context.Context, x dialect.ExecQuerier, query string, args []any) (sql.Result, error) {
	var res sql.Result
	if err := x.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// withTx runs fn in a transaction and rolls back on error.
func withTx(ctx context.Context, drv *entsql.Driver, fn func(tx dialect.Tx) error) error {
	tx, err := drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
