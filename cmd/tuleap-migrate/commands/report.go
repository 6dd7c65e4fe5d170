// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-02-10
// Last Modified: 2026-10-13

package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/similigh/tuleap-migrate/internal/core/state"
)

var (
	reportRunID   string
	reportOutFile string
	reportFormat  string
	reportFilter  []string
)

// JSONOutput represents the JSON output structure
type JSONOutput struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Run         *state.Run          `json:"run"`
	Stats       *state.Stats        `json:"stats"`
	Records     []state.IssueRecord `json:"records"`
}

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the ledger of a run as JSON or CSV",
	Long: `Print the statistics and per-artifact records of a run: skip reasons,
assembly errors, warnings and where each issue was published.

Without --run the latest run is reported. The format is inferred from the
--out-file extension when --format is not given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}

		ledger, err := openLedger(rt.cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		run, err := resolveRun(ctx, ledger, reportRunID)
		if err != nil {
			return err
		}

		statuses := make([]state.PublishStatus, 0, len(reportFilter))
		for _, s := range reportFilter {
			statuses = append(statuses, state.PublishStatus(s))
		}
		records, err := ledger.ListIssues(ctx, run.ID, statuses...)
		if err != nil {
			return err
		}
		stats, err := ledger.Stats(ctx, run.ID)
		if err != nil {
			return err
		}

		return outputReport(run, stats, records)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportRunID, "run", "", "Run id to report (default: latest run)")
	reportCmd.Flags().StringVar(&reportOutFile, "out-file", "", "Output file path (stdout if not specified)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Output format: json or csv")
	reportCmd.Flags().StringSliceVar(&reportFilter, "status", nil, "Only include records with these publish statuses (pending, published, failed, none)")
}

// reportFormatFor picks the output format: the explicit one, else the out
// file extension, else json.
func reportFormatFor(format, outFile string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if strings.ToLower(filepath.Ext(outFile)) == ".csv" {
		return "csv"
	}
	return "json"
}

// outputReport formats and writes the report to the specified output
func outputReport(run *state.Run, stats *state.Stats, records []state.IssueRecord) error {
	var (
		data []byte
		err  error
	)

	switch reportFormatFor(reportFormat, reportOutFile) {
	case "csv":
		data, err = formatCSV(records)
	case "json":
		data, err = formatJSON(run, stats, records)
	default:
		return fmt.Errorf("unsupported format: %s (use json or csv)", reportFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if reportOutFile != "" {
		if err := os.WriteFile(reportOutFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("✓ Report written to %s\n", reportOutFile)
		return nil
	}

	fmt.Println(string(data))
	return nil
}

// formatJSON formats a run report as JSON
func formatJSON(run *state.Run, stats *state.Stats, records []state.IssueRecord) ([]byte, error) {
	if records == nil {
		records = []state.IssueRecord{}
	}
	output := JSONOutput{
		GeneratedAt: time.Now(),
		Run:         run,
		Stats:       stats,
		Records:     records,
	}
	return json.MarshalIndent(output, "", "  ")
}

// formatCSV formats ledger records as CSV
func formatCSV(records []state.IssueRecord) ([]byte, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	// Write header
	header := []string{
		"artifact_id",
		"title",
		"skipped",
		"skip_reason",
		"assemble_error",
		"warnings",
		"publish_status",
		"target_repo",
		"target_number",
		"target_url",
		"publish_error",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	// Write rows
	for _, r := range records {
		warnings, err := decodeWarnings(r.Warnings)
		if err != nil {
			return nil, fmt.Errorf("artifact %d: %w", r.ArtifactID, err)
		}

		row := []string{
			strconv.Itoa(r.ArtifactID),
			r.Title,
			strconv.FormatBool(r.Skipped),
			r.SkipReason,
			r.AssembleError,
			strings.Join(warnings, ";"),
			string(r.PublishStatus),
			r.TargetRepo,
			"",
			r.TargetURL,
			r.PublishError,
		}
		if r.TargetNumber > 0 {
			row[8] = strconv.Itoa(r.TargetNumber)
		}

		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return []byte(buf.String()), nil
}

func decodeWarnings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var w []string
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("decoding warnings: %w", err)
	}
	return w, nil
}
