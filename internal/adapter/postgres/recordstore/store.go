// Package recordstore contains the PostgreSQL implementation of the record stores
package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

const (
	JobTable    = "job_records"
	ReportTable = "worker_reports"
)

var (
	_ secondary.JobStore    = (*Store[domain.JobRecord])(nil)
	_ secondary.ReportStore = (*Store[domain.WorkerReport])(nil)
	_ secondary.Sweeper     = (*Store[domain.JobRecord])(nil)
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store implements KVStore with PostgreSQL, one JSONB row per id
type Store[T any] struct {
	db     *sqlx.DB
	logger primary.Logger
	table  string
}

// NewStore creates a PostgreSQL store over the given table
func NewStore[T any](db *sqlx.DB, logger primary.Logger, table string) (*Store[T], error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store[T]{
		db:     db,
		logger: logger,
		table:  table,
	}, nil
}

// Migrate creates the backing table when it does not exist yet
func (r *Store[T]) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id         TEXT PRIMARY KEY,
			record     JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS %[1]s_updated_at_idx ON %[1]s (updated_at);
	`, r.table)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.Error("Failed to migrate table", "table", r.table, "error", err)
		return fmt.Errorf("failed to migrate %s: %w", r.table, err)
	}
	return nil
}

// Put upserts a value
func (r *Store[T]) Put(ctx context.Context, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("Failed to marshal record", "id", id, "error", err)
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at
	`, r.table)

	if _, err := r.db.ExecContext(ctx, query, id, data); err != nil {
		r.logger.Error("Failed to save record", "id", id, "error", err)
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Get retrieves a value by ID
func (r *Store[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var v T
	var data []byte

	query := fmt.Sprintf(`SELECT record FROM %s WHERE id = $1`, r.table)
	err := r.db.QueryRowxContext(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, false, nil
		}
		r.logger.Error("Failed to get record", "id", id, "error", err)
		return v, false, fmt.Errorf("failed to get record: %w", err)
	}

	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.Error("Failed to unmarshal record", "id", id, "error", err)
		return v, false, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return v, true, nil
}

// Update locks the row for the duration of fn
func (r *Store[T]) Update(ctx context.Context, id string, fn secondary.UpdateFunc[T]) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if the transaction is committed

	var data []byte
	query := fmt.Sprintf(`SELECT record FROM %s WHERE id = $1 FOR UPDATE`, r.table)
	if err := tx.QueryRowxContext(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound
		}
		return fmt.Errorf("failed to lock record: %w", err)
	}

	var current T
	if err := json.Unmarshal(data, &current); err != nil {
		return fmt.Errorf("failed to unmarshal record: %w", err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	nextData, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	query = fmt.Sprintf(`UPDATE %s SET record = $2, updated_at = now() WHERE id = $1`, r.table)
	if _, err := tx.ExecContext(ctx, query, id, nextData); err != nil {
		r.logger.Error("Failed to update record", "id", id, "error", err)
		return fmt.Errorf("failed to update record: %w", err)
	}

	return tx.Commit()
}

// Sweep deletes rows not written since cutoff
func (r *Store[T]) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE updated_at < $1`, r.table)
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("Failed to sweep records", "table", r.table, "error", err)
		return 0, fmt.Errorf("failed to sweep records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept records: %w", err)
	}
	return int(n), nil
}
