// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-13

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/similigh/tuleap-migrate/internal/core/state"
	"github.com/similigh/tuleap-migrate/internal/migrate"
	"github.com/similigh/tuleap-migrate/internal/publish"
)

var (
	migrateWorkers     int
	migrateWorkflow    string
	migrateArtifacts   []int
	migrateFailOnError bool
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Assemble the tracker and publish it to GitHub in one go",
	Long: `Run "assemble" followed by "publish" on the new run.

A failing artifact never stops the migration: it is logged, recorded in the
ledger and counted in the summary. With --fail-on-error the command exits
non-zero when at least one artifact failed to assemble or publish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd.Context())
		if err != nil {
			return err
		}
		applyAssembleOverrides(rt.cfg, migrateWorkers, migrateWorkflow)

		lock, err := acquireLock(rt.cfg)
		if err != nil {
			return err
		}
		defer lock.Unlock()

		ledger, err := openLedger(rt.cfg)
		if err != nil {
			return err
		}
		defer ledger.Close()

		var (
			run     *state.Run
			summary migrate.Summary
			out     publish.Outcome
		)
		phases := []string{phaseAssemble, phasePublish}
		err = runWithProgress(cmd.Context(), rt, phases, func(ctx context.Context, sink *progressSink) error {
			var werr error
			run, summary, werr = assemblePhase(ctx, rt, ledger, migrateArtifacts, sink)
			if werr != nil {
				return werr
			}
			out, werr = publishPhase(ctx, rt, ledger, run.ID, false, sink)
			return werr
		})
		printAssembleSummary(run, summary)
		if run != nil {
			printPublishSummary(run.ID, out)
		}
		if err != nil {
			return err
		}

		if migrateFailOnError && (summary.Failed > 0 || out.Failed > 0) {
			return fmt.Errorf("%d artifacts failed to assemble, %d issues failed to publish", summary.Failed, out.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().IntVar(&migrateWorkers, "workers", 0, "Number of concurrent assembly workers (overrides migration.workers)")
	migrateCmd.Flags().StringVar(&migrateWorkflow, "workflow", "", "Workflow preset: full or no-attachments")
	migrateCmd.Flags().IntSliceVar(&migrateArtifacts, "artifact", nil, "Only migrate these artifact ids (repeatable)")
	migrateCmd.Flags().BoolVar(&migrateFailOnError, "fail-on-error", false, "Exit non-zero when any artifact fails")
}
