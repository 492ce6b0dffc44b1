// Package runlog persists the history of indexing runs in PostgreSQL so
// operators can see when the corpus was last rebuilt and why runs failed.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_runs (
    id          UUID PRIMARY KEY,
    trigger     TEXT NOT NULL,
    status      TEXT NOT NULL,
    files       INTEGER NOT NULL,
    indexed     BIGINT NOT NULL,
    failed      BIGINT NOT NULL,
    bytes       BIGINT NOT NULL,
    documents   INTEGER NOT NULL,
    error       TEXT,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
)`

// Store reads and writes the index_runs table.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "index-run-log"),
	}
}

// EnsureSchema creates the index_runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating index_runs table: %w", err)
	}
	return nil
}

// Record inserts run, retrying transient failures. Recording the same run
// twice is a no-op.
func (s *Store) Record(ctx context.Context, run indexer.Run) error {
	err := resilience.Retry(ctx, "record-index-run", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO index_runs
			   (id, trigger, status, files, indexed, failed, bytes, documents, error, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
			 ON CONFLICT (id) DO NOTHING`,
			run.ID, run.Trigger, run.Status, run.Files, run.Indexed, run.Failed,
			run.Bytes, run.Documents, run.Error, run.StartedAt, run.FinishedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("recording index run %s: %w", run.ID, err)
	}
	s.logger.Debug("index run recorded", "run_id", run.ID, "status", run.Status)
	return nil
}

// Recent returns the last limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]indexer.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger, status, files, indexed, failed, bytes, documents,
		        COALESCE(error, ''), started_at, finished_at
		   FROM index_runs
		  ORDER BY started_at DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing index runs: %w", err)
	}
	defer rows.Close()

	runs := make([]indexer.Run, 0, limit)
	for rows.Next() {
		var r indexer.Run
		if err := rows.Scan(&r.ID, &r.Trigger, &r.Status, &r.Files, &r.Indexed, &r.Failed,
			&r.Bytes, &r.Documents, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning index run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Hook returns an indexer.RunHook that records every run. Failures are
// logged; the run log never affects indexing.
func (s *Store) Hook() indexer.RunHook {
	return func(ctx context.Context, run indexer.Run) {
		if err := s.Record(ctx, run); err != nil {
			s.logger.Error("failed to record index run", "run_id", run.ID, "error", err)
		}
	}
}
