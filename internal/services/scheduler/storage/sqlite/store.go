// Package sqlite provides SQLite-backed scheduler run persistence.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RedaRahmani/doublezero-offchain/internal/platform/storage/sqlitemigrate"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/storage"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/storage/sqlite/migrations"
)

// Store provides SQLite-backed run record persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a scheduler SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordRun persists one worker run record.
func (s *Store) RecordRun(ctx context.Context, run storage.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	run.Worker = strings.TrimSpace(run.Worker)
	run.Outcome = strings.TrimSpace(run.Outcome)
	run.Detail = strings.TrimSpace(run.Detail)
	if run.Worker == "" {
		return fmt.Errorf("worker name is required")
	}
	if run.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO scheduler_runs (
	worker,
	epoch,
	outcome,
	detail,
	created_at
) VALUES (?, ?, ?, ?, ?)
`,
		run.Worker,
		int64(run.Epoch),
		run.Outcome,
		run.Detail,
		run.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns lists newest-first run records.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	worker,
	epoch,
	outcome,
	detail,
	created_at
FROM scheduler_runs
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RunRecord, 0, limit)
	for rows.Next() {
		var record storage.RunRecord
		var epoch int64
		var createdAt int64
		if err := rows.Scan(
			&record.ID,
			&record.Worker,
			&epoch,
			&record.Outcome,
			&record.Detail,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		record.Epoch = uint64(epoch)
		record.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

var _ storage.RunStore = (*Store)(nil)
