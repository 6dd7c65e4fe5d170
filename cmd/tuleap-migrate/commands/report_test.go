// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-02-10
// Last Modified: 2026-10-13

package commands

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/similigh/tuleap-migrate/internal/core/state"
)

func sampleRecords() []state.IssueRecord {
	return []state.IssueRecord{
		{
			RunID:         "run-1",
			ArtifactID:    101,
			Title:         "Crash on save",
			PublishStatus: state.StatusPublished,
			TargetRepo:    "acme/widgets",
			TargetNumber:  7,
			TargetURL:     "https://github.com/acme/widgets/issues/7",
			Warnings:      `["attachment \"a.log\" missing","submitter unknown"]`,
		},
		{
			RunID:         "run-1",
			ArtifactID:    102,
			Title:         "Old request",
			Skipped:       true,
			SkipReason:    "closed before cutoff",
			PublishStatus: state.StatusNone,
		},
		{
			RunID:         "run-1",
			ArtifactID:    103,
			Title:         "Broken, with \"quotes\"",
			PublishStatus: state.StatusFailed,
			TargetRepo:    "acme/widgets",
			PublishError:  "403 Forbidden",
		},
	}
}

func TestReportFormatFor(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		outFile string
		want    string
	}{
		{"default", "", "", "json"},
		{"csv extension", "", "report.csv", "csv"},
		{"upper case extension", "", "REPORT.CSV", "csv"},
		{"json extension", "", "report.json", "json"},
		{"unknown extension", "", "report.txt", "json"},
		{"explicit wins", "json", "report.csv", "json"},
		{"explicit upper case", "CSV", "", "csv"},
		{"explicit unknown", "xml", "", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reportFormatFor(tt.format, tt.outFile); got != tt.want {
				t.Errorf("reportFormatFor(%q, %q) = %q, want %q", tt.format, tt.outFile, got, tt.want)
			}
		})
	}
}

func TestFormatJSON(t *testing.T) {
	run := &state.Run{ID: "run-1", SourceURL: "https://tuleap.example.com", Tracker: 42, TargetRepo: "acme/widgets", StartedAt: time.Now()}
	stats := &state.Stats{RunID: "run-1", Total: 3, Assembled: 2, Skipped: 1, Published: 1, Rejected: 1}

	data, err := formatJSON(run, stats, sampleRecords())
	if err != nil {
		t.Fatalf("formatJSON() error = %v", err)
	}

	var output JSONOutput
	if err := json.Unmarshal(data, &output); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if output.Run == nil || output.Run.ID != "run-1" {
		t.Errorf("Run = %+v, want id run-1", output.Run)
	}
	if output.Stats == nil || output.Stats.Published != 1 || output.Stats.Rejected != 1 {
		t.Errorf("Stats = %+v", output.Stats)
	}
	if len(output.Records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(output.Records))
	}
	if output.Records[0].TargetNumber != 7 {
		t.Errorf("TargetNumber = %d, want 7", output.Records[0].TargetNumber)
	}
	if strings.Contains(string(data), `"payload"`) {
		t.Error("payload should not be part of the report")
	}
}

func TestFormatJSONEmpty(t *testing.T) {
	data, err := formatJSON(&state.Run{ID: "run-1"}, &state.Stats{}, nil)
	if err != nil {
		t.Fatalf("formatJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"records": []`) {
		t.Errorf("expected an empty records array, got %s", data)
	}
}

func TestFormatCSV(t *testing.T) {
	data, err := formatCSV(sampleRecords())
	if err != nil {
		t.Fatalf("formatCSV() error = %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV output: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows (header + 3), got %d", len(rows))
	}

	header := rows[0]
	if header[0] != "artifact_id" || header[len(header)-1] != "publish_error" {
		t.Errorf("unexpected header %v", header)
	}

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %q", name)
		return -1
	}

	published := rows[1]
	if published[col("artifact_id")] != "101" {
		t.Errorf("artifact_id = %q", published[col("artifact_id")])
	}
	if published[col("target_number")] != "7" {
		t.Errorf("target_number = %q", published[col("target_number")])
	}
	if published[col("warnings")] != `attachment "a.log" missing;submitter unknown` {
		t.Errorf("warnings = %q", published[col("warnings")])
	}

	skipped := rows[2]
	if skipped[col("skipped")] != "true" || skipped[col("skip_reason")] != "closed before cutoff" {
		t.Errorf("skipped row = %v", skipped)
	}
	if skipped[col("target_number")] != "" {
		t.Errorf("target_number of an unpublished record = %q, want empty", skipped[col("target_number")])
	}

	failed := rows[3]
	if failed[col("title")] != `Broken, with "quotes"` {
		t.Errorf("title = %q", failed[col("title")])
	}
	if failed[col("publish_status")] != "failed" || failed[col("publish_error")] != "403 Forbidden" {
		t.Errorf("failed row = %v", failed)
	}
}

func TestFormatCSVBadWarnings(t *testing.T) {
	_, err := formatCSV([]state.IssueRecord{{ArtifactID: 1, Warnings: "not json"}})
	if err == nil {
		t.Fatal("expected an error for undecodable warnings")
	}
}

func TestOutputReportToFile(t *testing.T) {
	prevFormat, prevOut := reportFormat, reportOutFile
	t.Cleanup(func() { reportFormat, reportOutFile = prevFormat, prevOut })

	reportFormat = ""
	reportOutFile = filepath.Join(t.TempDir(), "report.csv")

	if err := outputReport(&state.Run{ID: "run-1"}, &state.Stats{}, sampleRecords()); err != nil {
		t.Fatalf("outputReport() error = %v", err)
	}

	data, err := os.ReadFile(reportOutFile)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if !strings.HasPrefix(string(data), "artifact_id,") {
		t.Errorf("expected CSV output, got %q", data)
	}
}

func TestOutputReportUnsupportedFormat(t *testing.T) {
	prevFormat, prevOut := reportFormat, reportOutFile
	t.Cleanup(func() { reportFormat, reportOutFile = prevFormat, prevOut })

	reportFormat = "xml"
	reportOutFile = ""

	if err := outputReport(&state.Run{ID: "run-1"}, &state.Stats{}, nil); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}
