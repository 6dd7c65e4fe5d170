// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-08

// Package state records migration runs: every assembled issue and the
// outcome of publishing it.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/migrate"
)

// PublishStatus is the publishing state of one ledger entry.
type PublishStatus string

const (
	StatusPending   PublishStatus = "pending"
	StatusPublished PublishStatus = "published"
	StatusFailed    PublishStatus = "failed"
	// StatusNone marks entries with nothing to publish (skipped or failed assembly).
	StatusNone PublishStatus = "none"
)

// Run is one assemble pass.
type Run struct {
	ID         string     `db:"id" json:"id"`
	SourceURL  string     `db:"source_url" json:"source_url"`
	Tracker    int        `db:"tracker" json:"tracker"`
	TargetRepo string     `db:"target_repo" json:"target_repo"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// IssueRecord is the ledger row for one artifact of a run.
type IssueRecord struct {
	RunID         string        `db:"run_id" json:"run_id"`
	Position      int           `db:"position" json:"position"`
	ArtifactID    int           `db:"artifact_id" json:"artifact_id"`
	Title         string        `db:"title" json:"title"`
	Payload       string        `db:"payload" json:"-"`
	Skipped       bool          `db:"skipped" json:"skipped"`
	SkipReason    string        `db:"skip_reason" json:"skip_reason,omitempty"`
	AssembleError string        `db:"assemble_error" json:"assemble_error,omitempty"`
	Warnings      string        `db:"warnings" json:"warnings,omitempty"`
	PublishStatus PublishStatus `db:"publish_status" json:"publish_status"`
	TargetRepo    string        `db:"target_repo" json:"target_repo,omitempty"`
	TargetNumber  int           `db:"target_number" json:"target_number,omitempty"`
	TargetURL     string        `db:"target_url" json:"target_url,omitempty"`
	PublishError  string        `db:"publish_error" json:"publish_error,omitempty"`
	PublishedAt   *time.Time    `db:"published_at" json:"published_at,omitempty"`
}

// Issue decodes the stored target issue.
func (r *IssueRecord) Issue() (*pipeline.TargetIssue, error) {
	if r.Payload == "" {
		return nil, fmt.Errorf("artifact %d has no assembled issue", r.ArtifactID)
	}
	var issue pipeline.TargetIssue
	if err := json.Unmarshal([]byte(r.Payload), &issue); err != nil {
		return nil, fmt.Errorf("decoding issue of artifact %d: %w", r.ArtifactID, err)
	}
	return &issue, nil
}

// Publication is the outcome of publishing one issue.
type Publication struct {
	Repo   string
	Number int
	URL    string
	Err    error
}

// Stats summarizes a run.
type Stats struct {
	RunID     string `db:"-" json:"run_id"`
	Total     int    `db:"total" json:"total"`
	Assembled int    `db:"assembled" json:"assembled"`
	Skipped   int    `db:"skipped" json:"skipped"`
	Failed    int    `db:"failed" json:"failed"`
	Pending   int    `db:"pending" json:"pending"`
	Published int    `db:"published" json:"published"`
	Rejected  int    `db:"publish_failed" json:"publish_failed"`
}

// Ledger defines the interface for run bookkeeping.
// This allows for different implementations (SQLite, in-memory, etc.).
type Ledger interface {
	// CreateRun starts a run and returns it with a fresh id.
	CreateRun(ctx context.Context, run Run) (*Run, error)

	// FinishRun stamps the run's end time.
	FinishRun(ctx context.Context, runID string) error

	// LatestRun returns the most recent run, or nil, nil when there is none.
	LatestRun(ctx context.Context) (*Run, error)

	// GetRun returns one run, or nil, nil when it does not exist.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// SaveResults stores the assembly results of a run in order.
	SaveResults(ctx context.Context, runID string, results []migrate.Result) error

	// ListIssues lists a run's records in source order, optionally filtered
	// by publish status.
	ListIssues(ctx context.Context, runID string, statuses ...PublishStatus) ([]IssueRecord, error)

	// RecordPublication stores the outcome of publishing one artifact.
	RecordPublication(ctx context.Context, runID string, artifactID int, p Publication) error

	// Stats summarizes a run.
	Stats(ctx context.Context, runID string) (*Stats, error)

	Close() error
}

// NewRecord converts an assembly result into a ledger row.
func NewRecord(runID string, r migrate.Result) (IssueRecord, error) {
	rec := IssueRecord{
		RunID:         runID,
		Position:      r.Index,
		ArtifactID:    r.ArtifactID,
		Title:         r.Title,
		Skipped:       r.Skipped,
		SkipReason:    r.SkipReason,
		PublishStatus: StatusNone,
	}
	if len(r.Warnings) > 0 {
		w, err := json.Marshal(r.Warnings)
		if err != nil {
			return rec, fmt.Errorf("encoding warnings of artifact %d: %w", r.ArtifactID, err)
		}
		rec.Warnings = string(w)
	}
	if r.Err != nil {
		rec.AssembleError = r.Err.Error()
		return rec, nil
	}
	if r.OK() {
		payload, err := json.Marshal(r.Issue)
		if err != nil {
			return rec, fmt.Errorf("encoding issue of artifact %d: %w", r.ArtifactID, err)
		}
		rec.Payload = string(payload)
		rec.Title = r.Issue.Title
		rec.PublishStatus = StatusPending
	}
	return rec, nil
}
