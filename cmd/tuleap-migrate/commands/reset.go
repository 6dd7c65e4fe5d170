// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-13
// Last Modified: 2026-10-13

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/similigh/tuleap-migrate/internal/integrations/github"
	"github.com/similigh/tuleap-migrate/internal/utils/text"
)

var (
	resetRepo       string
	resetIssue      int
	resetMarkedOnly bool
	resetYes        bool
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the issues of the target repository",
	Long: `Delete every issue of the target repository, so a migration can be run
again from scratch. Deletion goes through the GraphQL deleteIssue mutation and
requires admin rights on the repository. Running it twice deletes nothing the
second time.

With --marked-only only issues carrying a Tuleap artifact marker (i.e. issues
created by this tool) are deleted. Nothing is deleted without --yes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}

		owner, repo := rt.cfg.Target.Owner, rt.cfg.Target.Repo
		if resetRepo != "" {
			o, r, ok := strings.Cut(resetRepo, "/")
			if !ok || o == "" || r == "" {
				return fmt.Errorf("invalid --repo %q: expected owner/repo", resetRepo)
			}
			owner, repo = o, r
		}

		gh, err := newGitHub(ctx, rt.cfg)
		if err != nil {
			return err
		}

		var targets []github.IssueRef
		if resetIssue > 0 {
			id, err := gh.IssueNodeID(ctx, owner, repo, resetIssue)
			if err != nil {
				return err
			}
			targets = []github.IssueRef{{Number: resetIssue, NodeID: id}}
		} else {
			issues, err := gh.ListIssues(ctx, owner, repo)
			if err != nil {
				return err
			}
			targets = selectForDeletion(issues, resetMarkedOnly)
		}

		if len(targets) == 0 {
			fmt.Printf("✓ Nothing to delete in %s/%s\n", owner, repo)
			return nil
		}
		if !resetYes {
			fmt.Printf("%d issues would be deleted from %s/%s. Re-run with --yes to delete them.\n", len(targets), owner, repo)
			return nil
		}

		deleted := 0
		for _, issue := range targets {
			if err := gh.DeleteIssue(ctx, issue.NodeID); err != nil {
				rt.log.Error().Err(err).Int("number", issue.Number).Msg("delete failed")
				continue
			}
			deleted++
			rt.log.Info().Int("number", issue.Number).Msg("issue deleted")
		}

		fmt.Printf("✓ Deleted %d of %d issues from %s/%s\n", deleted, len(targets), owner, repo)
		if deleted < len(targets) {
			return fmt.Errorf("%d issues could not be deleted", len(targets)-deleted)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringVar(&resetRepo, "repo", "", "Repository to reset as owner/repo (default: target repository)")
	resetCmd.Flags().IntVar(&resetIssue, "issue", 0, "Delete only this issue number")
	resetCmd.Flags().BoolVar(&resetMarkedOnly, "marked-only", false, "Only delete issues created from Tuleap artifacts")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm the deletion")
}

// selectForDeletion returns the issues to delete. With markedOnly, only issues
// whose body carries an artifact marker are kept.
func selectForDeletion(issues []github.IssueRef, markedOnly bool) []github.IssueRef {
	if !markedOnly {
		return issues
	}
	var out []github.IssueRef
	for _, issue := range issues {
		if _, ok := text.ParseArtifactMarker(issue.Body); ok {
			out = append(out, issue)
		}
	}
	return out
}
