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
	"github.com/similigh/tuleap-migrate/internal/publish"
)

var (
	publishRunID       string
	publishRetryFailed bool
	publishFailOnError bool
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the assembled issues of a run to GitHub",
	Long: `Create the GitHub issues of an assembled run, in tracker order: upload the
attachments, create the issue, post its comments and close it when needed.
Every outcome is recorded in the ledger. Without --run the latest run is used.

Use --retry-failed to resend issues whose publication failed. Issues that were
created but not completed are reported and left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd.Context())
		if err != nil {
			return err
		}

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

		run, err := resolveRun(cmd.Context(), ledger, publishRunID)
		if err != nil {
			return err
		}

		var out publish.Outcome
		err = runWithProgress(cmd.Context(), rt, []string{phasePublish}, func(ctx context.Context, sink *progressSink) error {
			var werr error
			out, werr = publishPhase(ctx, rt, ledger, run.ID, publishRetryFailed, sink)
			return werr
		})
		printPublishSummary(run.ID, out)
		if err != nil {
			return err
		}

		if publishFailOnError && out.Failed > 0 {
			return fmt.Errorf("%d issues failed to publish", out.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishRunID, "run", "", "Run id to publish (default: latest run)")
	publishCmd.Flags().BoolVar(&publishRetryFailed, "retry-failed", false, "Also resend issues whose publication failed")
	publishCmd.Flags().BoolVar(&publishFailOnError, "fail-on-error", false, "Exit non-zero when any issue fails")
}

// publishStatuses returns the ledger states selected for publishing.
func publishStatuses(retryFailed bool) []state.PublishStatus {
	statuses := []state.PublishStatus{state.StatusPending}
	if retryFailed {
		statuses = append(statuses, state.StatusFailed)
	}
	return statuses
}

// publishPhase publishes the selected records of a run.
func publishPhase(ctx context.Context, rt *runtime, ledger state.Ledger, runID string, retryFailed bool, sink *progressSink) (publish.Outcome, error) {
	records, err := ledger.ListIssues(ctx, runID, publishStatuses(retryFailed)...)
	if err != nil {
		return publish.Outcome{}, err
	}
	if len(records) == 0 {
		rt.log.Info().Str("run", runID).Msg("nothing to publish")
		return publish.Outcome{}, nil
	}

	gh, err := newGitHub(ctx, rt.cfg)
	if err != nil {
		return publish.Outcome{}, err
	}

	p := publish.New(gh, rt.cfg, rt.log)
	return p.Records(ctx, ledger, runID, records, sink.publishObserver())
}

func printPublishSummary(runID string, out publish.Outcome) {
	fmt.Printf("\n✓ Run %s: %d published, %d failed", runID, out.Published, out.Failed)
	if out.Stranded > 0 {
		fmt.Printf(", %d created but incomplete (see report)", out.Stranded)
	}
	fmt.Println()
}
