// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-06
// Last Modified: 2026-10-09

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/similigh/tuleap-migrate/internal/migrate"
)

// SQLiteLedger implements Ledger on a local SQLite file.
type SQLiteLedger struct {
	db *sqlx.DB
}

var _ Ledger = (*SQLiteLedger)(nil)

// OpenSQLite opens (or creates) the ledger at path and applies pending
// schema migrations.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := l.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		if err := l.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := l.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// CreateRun inserts a run with a generated id.
func (l *SQLiteLedger) CreateRun(ctx context.Context, run Run) (*Run, error) {
	run.ID = uuid.New().String()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, source_url, tracker, target_repo, started_at)
		VALUES (:id, :source_url, :tracker, :target_repo, :started_at)`, run)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	return &run, nil
}

// FinishRun stamps the end time of a run.
func (l *SQLiteLedger) FinishRun(ctx context.Context, runID string) error {
	res, err := l.db.ExecContext(ctx, "UPDATE runs SET finished_at = ? WHERE id = ?", time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	return expectRow(res, "run "+runID)
}

// LatestRun returns the most recently started run.
func (l *SQLiteLedger) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := l.db.GetContext(ctx, &run, "SELECT * FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest run: %w", err)
	}
	return &run, nil
}

// GetRun returns a run by id.
func (l *SQLiteLedger) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := l.db.GetContext(ctx, &run, "SELECT * FROM runs WHERE id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	return &run, nil
}

// SaveResults stores all results of a run in one transaction.
func (l *SQLiteLedger) SaveResults(ctx context.Context, runID string, results []migrate.Result) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO issues (
			run_id, position, artifact_id, title, payload,
			skipped, skip_reason, assemble_error, warnings, publish_status
		) VALUES (
			:run_id, :position, :artifact_id, :title, :payload,
			:skipped, :skip_reason, :assemble_error, :warnings, :publish_status
		)`

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		rec, err := NewRecord(runID, r)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			return fmt.Errorf("saving artifact %d: %w", r.ArtifactID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing results: %w", err)
	}
	return nil
}

// ListIssues lists the records of a run in source order.
func (l *SQLiteLedger) ListIssues(ctx context.Context, runID string, statuses ...PublishStatus) ([]IssueRecord, error) {
	query := "SELECT * FROM issues WHERE run_id = ?"
	args := []interface{}{runID}

	if len(statuses) > 0 {
		in, inArgs, err := sqlx.In(" AND publish_status IN (?)", statuses)
		if err != nil {
			return nil, fmt.Errorf("building status filter: %w", err)
		}
		query += in
		args = append(args, inArgs...)
	}
	query += " ORDER BY position"

	var records []IssueRecord
	if err := l.db.SelectContext(ctx, &records, l.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing issues of run %s: %w", runID, err)
	}
	return records, nil
}

// RecordPublication stores a publish outcome.
func (l *SQLiteLedger) RecordPublication(ctx context.Context, runID string, artifactID int, p Publication) error {
	var (
		res sql.Result
		err error
	)
	if p.Err != nil {
		res, err = l.db.ExecContext(ctx, `
			UPDATE issues SET publish_status = ?, publish_error = ?, target_repo = ?, target_number = ?, target_url = ?
			WHERE run_id = ? AND artifact_id = ?`,
			StatusFailed, p.Err.Error(), p.Repo, p.Number, p.URL, runID, artifactID)
	} else {
		res, err = l.db.ExecContext(ctx, `
			UPDATE issues SET publish_status = ?, publish_error = '', target_repo = ?, target_number = ?, target_url = ?, published_at = ?
			WHERE run_id = ? AND artifact_id = ?`,
			StatusPublished, p.Repo, p.Number, p.URL, time.Now().UTC(), runID, artifactID)
	}
	if err != nil {
		return fmt.Errorf("recording publication of artifact %d: %w", artifactID, err)
	}
	return expectRow(res, fmt.Sprintf("artifact %d in run %s", artifactID, runID))
}

// Stats summarizes a run.
func (l *SQLiteLedger) Stats(ctx context.Context, runID string) (*Stats, error) {
	s := Stats{RunID: runID}
	err := l.db.GetContext(ctx, &s, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN payload != '' THEN 1 ELSE 0 END), 0) AS assembled,
			COALESCE(SUM(skipped), 0) AS skipped,
			COALESCE(SUM(CASE WHEN assemble_error != '' THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN publish_status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN publish_status = 'published' THEN 1 ELSE 0 END), 0) AS published,
			COALESCE(SUM(CASE WHEN publish_status = 'failed' THEN 1 ELSE 0 END), 0) AS publish_failed
		FROM issues WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("computing stats of run %s: %w", runID, err)
	}
	s.RunID = runID
	return &s, nil
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s not found", what)
	}
	return nil
}
