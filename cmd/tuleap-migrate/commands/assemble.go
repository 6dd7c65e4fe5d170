// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-12
// Last Modified: 2026-10-13

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/similigh/tuleap-migrate/internal/core/config"
	"github.com/similigh/tuleap-migrate/internal/core/state"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
	"github.com/similigh/tuleap-migrate/internal/migrate"
)

var (
	assembleWorkers     int
	assembleWorkflow    string
	assembleArtifacts   []int
	assembleFailOnError bool
)

// assembleCmd represents the assemble command
var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Build GitHub issues from the tracker without publishing them",
	Long: `Fetch every artifact of the configured tracker, download its attachments
and assemble the target issue. The results are stored as a new run in the
ledger; nothing is written to GitHub. Publish the run later with "publish".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd.Context())
		if err != nil {
			return err
		}
		applyAssembleOverrides(rt.cfg, assembleWorkers, assembleWorkflow)

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
		)
		err = runWithProgress(cmd.Context(), rt, []string{phaseAssemble}, func(ctx context.Context, sink *progressSink) error {
			var werr error
			run, summary, werr = assemblePhase(ctx, rt, ledger, assembleArtifacts, sink)
			return werr
		})
		printAssembleSummary(run, summary)
		if err != nil {
			return err
		}

		if assembleFailOnError && summary.Failed > 0 {
			return fmt.Errorf("%d artifacts failed to assemble", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assembleCmd)

	assembleCmd.Flags().IntVar(&assembleWorkers, "workers", 0, "Number of concurrent workers (overrides migration.workers)")
	assembleCmd.Flags().StringVar(&assembleWorkflow, "workflow", "", "Workflow preset: full or no-attachments")
	assembleCmd.Flags().IntSliceVar(&assembleArtifacts, "artifact", nil, "Only assemble these artifact ids (repeatable)")
	assembleCmd.Flags().BoolVar(&assembleFailOnError, "fail-on-error", false, "Exit non-zero when any artifact fails")
}

// applyAssembleOverrides applies command-line flag overrides to the configuration
func applyAssembleOverrides(cfg *config.Config, workers int, workflow string) {
	if workers > 0 {
		cfg.Migration.Workers = workers
	}
	if workflow != "" {
		cfg.Migration.Workflow = workflow
		cfg.Migration.Steps = nil
	}
}

// filterArtifacts keeps the summaries whose id is in ids, in tracker order.
// An empty ids keeps everything.
func filterArtifacts(summaries []tuleap.Artifact, ids []int) []tuleap.Artifact {
	if len(ids) == 0 {
		return summaries
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]tuleap.Artifact, 0, len(ids))
	for _, s := range summaries {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// assemblePhase lists the tracker, assembles every artifact and records the
// results as a new run.
func assemblePhase(ctx context.Context, rt *runtime, ledger state.Ledger, ids []int, sink *progressSink) (*state.Run, migrate.Summary, error) {
	src, err := newSource(rt.cfg)
	if err != nil {
		return nil, migrate.Summary{}, err
	}

	summaries, err := src.ListArtifacts(ctx)
	if err != nil {
		return nil, migrate.Summary{}, err
	}
	summaries = filterArtifacts(summaries, ids)
	rt.log.Info().Int("artifacts", len(summaries)).Int("tracker", rt.cfg.Source.Tracker).Msg("tracker listed")

	asm, err := migrate.NewFromConfig(rt.cfg, src, rt.log, migrate.WithObserver(sink.assembleObserver()))
	if err != nil {
		return nil, migrate.Summary{}, err
	}

	run, err := ledger.CreateRun(ctx, state.Run{
		SourceURL:  rt.cfg.Source.URL,
		Tracker:    rt.cfg.Source.Tracker,
		TargetRepo: rt.cfg.Target.Owner + "/" + rt.cfg.Target.Repo,
	})
	if err != nil {
		return nil, migrate.Summary{}, err
	}

	results := asm.Assemble(ctx, summaries)

	// Saved even when interrupted, so the completed part is not lost.
	if err := ledger.SaveResults(context.WithoutCancel(ctx), run.ID, results); err != nil {
		return run, migrate.Summary{}, err
	}
	if err := ledger.FinishRun(context.WithoutCancel(ctx), run.ID); err != nil {
		return run, migrate.Summary{}, err
	}
	return run, migrate.Summarize(results), ctx.Err()
}

func printAssembleSummary(run *state.Run, s migrate.Summary) {
	if run == nil {
		return
	}
	fmt.Printf("\n✓ Run %s: %d artifacts, %d assembled, %d skipped, %d failed\n",
		run.ID, s.Total, s.Assembled, s.Skipped, s.Failed)
}
