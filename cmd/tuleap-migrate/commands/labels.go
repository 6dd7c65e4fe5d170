// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-13
// Last Modified: 2026-10-13

package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/similigh/tuleap-migrate/internal/core/config"
	"github.com/similigh/tuleap-migrate/internal/integrations/github"
	"github.com/similigh/tuleap-migrate/internal/publish"
	"github.com/similigh/tuleap-migrate/internal/steps"
)

// defaultLabels are the labels the migration can attach.
var defaultLabels = []config.LabelConfig{
	{Name: "Ordinary", Color: "c5def5", Description: "Tuleap severity 1"},
	{Name: "Major", Color: "fbca04", Description: "Tuleap severity 5"},
	{Name: "Critical", Color: "b60205", Description: "Tuleap severity 9"},
	{Name: steps.LabelInvalid, Color: "e4e669", Description: "Declined in Tuleap"},
	{Name: steps.LabelZombie, Color: "cfd3d7", Description: "Left open and untouched since the release cutoff"},
}

var labelsDryRun bool

// labelsCmd represents the labels command
var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Create the migration labels in every target repository",
	Long: `Create the severity, invalid and zombie labels plus any label listed under
"labels" in the configuration. Existing labels are left untouched. Every
repository reachable through "projects" is covered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := loadRuntime(ctx)
		if err != nil {
			return err
		}

		gh, err := newGitHub(ctx, rt.cfg)
		if err != nil {
			return err
		}

		wanted := mergeLabels(defaultLabels, rt.cfg.Labels)
		for _, repo := range targetRepos(rt.cfg) {
			owner, name, _ := strings.Cut(repo, "/")

			existing, err := gh.ListLabels(ctx, owner, name)
			if err != nil {
				return err
			}

			missing := missingLabels(wanted, existing)
			for _, l := range missing {
				if labelsDryRun {
					fmt.Printf("  would create %q in %s\n", l.Name, repo)
					continue
				}
				spec := github.LabelSpec{Name: l.Name, Color: l.Color, Description: l.Description}
				if err := gh.CreateLabel(ctx, owner, name, spec); err != nil {
					return err
				}
			}
			fmt.Printf("✓ %s: %d labels created, %d already present\n", repo, len(missing), len(wanted)-len(missing))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(labelsCmd)

	labelsCmd.Flags().BoolVar(&labelsDryRun, "dry-run", false, "Only print the labels that would be created")
}

// mergeLabels returns defaults overridden and extended by configured labels.
func mergeLabels(defaults, configured []config.LabelConfig) []config.LabelConfig {
	out := make([]config.LabelConfig, 0, len(defaults)+len(configured))
	index := make(map[string]int)
	for _, l := range append(append([]config.LabelConfig(nil), defaults...), configured...) {
		key := strings.ToLower(l.Name)
		if i, ok := index[key]; ok {
			out[i] = l
			continue
		}
		index[key] = len(out)
		out = append(out, l)
	}
	return out
}

// missingLabels returns the wanted labels absent from existing. Label names
// are case-insensitive on GitHub.
func missingLabels(wanted []config.LabelConfig, existing []string) []config.LabelConfig {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[strings.ToLower(name)] = true
	}
	var out []config.LabelConfig
	for _, l := range wanted {
		if !have[strings.ToLower(l.Name)] {
			out = append(out, l)
		}
	}
	return out
}

// targetRepos lists the default repository and every project repository as
// sorted, unique "owner/repo" strings.
func targetRepos(cfg *config.Config) []string {
	p := publish.New(nil, cfg, zerolog.Nop())
	seen := make(map[string]bool)

	add := func(project string) {
		owner, repo := p.ResolveRepo(project)
		if owner != "" && repo != "" {
			seen[owner+"/"+repo] = true
		}
	}
	add("")
	for _, project := range cfg.Projects {
		add(project)
	}

	repos := make([]string, 0, len(seen))
	for r := range seen {
		repos = append(repos, r)
	}
	sort.Strings(repos)
	return repos
}
