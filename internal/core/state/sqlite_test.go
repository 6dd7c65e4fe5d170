// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-06
// Last Modified: 2026-10-09

package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/migrate"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func sampleResults() []migrate.Result {
	return []migrate.Result{
		{
			Index:      0,
			ArtifactID: 11,
			Title:      "raw title",
			Issue: &pipeline.TargetIssue{
				SourceID: 11,
				Title:    "First",
				Labels:   []string{"Critical", "zombie"},
				Closed:   true,
				State:    pipeline.StateClosedZombie,
				Comments: []pipeline.TargetComment{{Body: "Submitted by Bob\n\nhi"}},
			},
			Warnings: []string{"attachment \"a.txt\" omitted"},
		},
		{Index: 1, ArtifactID: 12, Title: "Skipped", Skipped: true, SkipReason: "status Done"},
		{Index: 2, ArtifactID: 13, Title: "Broken", Err: errors.New("connection reset")},
		{Index: 3, ArtifactID: 14, Issue: &pipeline.TargetIssue{SourceID: 14, Title: "Second"}},
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	run, err := l.CreateRun(ctx, Run{SourceURL: "https://tuleap.example.org", Tracker: 42, TargetRepo: "acme/issues"})
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == "" {
		t.Fatal("expected a generated run id")
	}

	if err := l.SaveResults(ctx, run.ID, sampleResults()); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}

	records, err := l.ListIssues(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	for i, want := range []int{11, 12, 13, 14} {
		if records[i].ArtifactID != want {
			t.Errorf("record %d is artifact %d, want %d", i, records[i].ArtifactID, want)
		}
	}

	if records[0].PublishStatus != StatusPending || records[1].PublishStatus != StatusNone || records[2].PublishStatus != StatusNone {
		t.Errorf("unexpected statuses: %s %s %s", records[0].PublishStatus, records[1].PublishStatus, records[2].PublishStatus)
	}
	if !records[1].Skipped || records[1].SkipReason != "status Done" {
		t.Errorf("skip not stored: %+v", records[1])
	}
	if records[2].AssembleError != "connection reset" {
		t.Errorf("assemble error not stored: %q", records[2].AssembleError)
	}

	issue, err := records[0].Issue()
	if err != nil {
		t.Fatal(err)
	}
	if issue.Title != "First" || !issue.Closed || len(issue.Labels) != 2 || len(issue.Comments) != 1 {
		t.Errorf("issue not restored: %+v", issue)
	}
	if _, err := records[1].Issue(); err == nil {
		t.Error("skipped record should carry no issue")
	}

	pending, err := l.ListIssues(ctx, run.ID, StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 pending, got %d", len(pending))
	}
}

func TestRecordPublication(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	run, _ := l.CreateRun(ctx, Run{})
	if err := l.SaveResults(ctx, run.ID, sampleResults()); err != nil {
		t.Fatal(err)
	}

	if err := l.RecordPublication(ctx, run.ID, 11, Publication{Repo: "acme/issues", Number: 5, URL: "https://github.com/acme/issues/issues/5"}); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordPublication(ctx, run.ID, 14, Publication{Repo: "acme/issues", Err: errors.New("422 validation failed")}); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordPublication(ctx, run.ID, 999, Publication{}); err == nil {
		t.Error("expected error for unknown artifact")
	}

	published, err := l.ListIssues(ctx, run.ID, StatusPublished)
	if err != nil {
		t.Fatal(err)
	}
	if len(published) != 1 || published[0].TargetNumber != 5 || published[0].PublishedAt == nil {
		t.Errorf("unexpected published records %+v", published)
	}

	failed, err := l.ListIssues(ctx, run.ID, StatusFailed, StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].PublishError != "422 validation failed" {
		t.Errorf("unexpected failed records %+v", failed)
	}

	stats, err := l.Stats(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{RunID: run.ID, Total: 4, Assembled: 2, Skipped: 1, Failed: 1, Pending: 0, Published: 1, Rejected: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	latest, err := l.LatestRun(ctx)
	if err != nil || latest != nil {
		t.Fatalf("expected no run, got %+v, %v", latest, err)
	}

	first, _ := l.CreateRun(ctx, Run{Tracker: 1})
	second, _ := l.CreateRun(ctx, Run{Tracker: 2})

	latest, err = l.LatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest run = %s, want %s", latest.ID, second.ID)
	}

	if err := l.FinishRun(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	got, err := l.GetRun(ctx, first.ID)
	if err != nil || got == nil || got.FinishedAt == nil {
		t.Errorf("finished run not stored: %+v, %v", got, err)
	}

	missing, err := l.GetRun(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil run, got %+v, %v", missing, err)
	}
}

func TestReopenSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()

	l, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer l.Close()

	var versions int
	if err := l.db.Get(&versions, "SELECT COUNT(*) FROM schema_version"); err != nil {
		t.Fatal(err)
	}
	if versions != 1 {
		t.Errorf("expected 1 schema version row, got %d", versions)
	}
}
