// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-13
// Last Modified: 2026-10-13

package commands

import (
	"reflect"
	"testing"

	"github.com/similigh/tuleap-migrate/internal/core/config"
)

func labelNames(labels []config.LabelConfig) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}

func TestMergeLabels(t *testing.T) {
	configured := []config.LabelConfig{
		{Name: "major", Color: "ff0000"},
		{Name: "needs-triage", Color: "ededed"},
	}

	got := mergeLabels(defaultLabels, configured)

	want := []string{"Ordinary", "major", "Critical", "invalid", "zombie", "needs-triage"}
	if names := labelNames(got); !reflect.DeepEqual(names, want) {
		t.Fatalf("mergeLabels() names = %v, want %v", names, want)
	}
	if got[1].Color != "ff0000" {
		t.Errorf("configured label should override the default, got color %q", got[1].Color)
	}
	if defaultLabels[1].Name != "Major" {
		t.Error("mergeLabels() modified the defaults")
	}
}

func TestMissingLabels(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     []string
	}{
		{
			name:     "none exist",
			existing: nil,
			want:     []string{"Ordinary", "Major", "Critical", "invalid", "zombie"},
		},
		{
			name:     "case insensitive",
			existing: []string{"ordinary", "MAJOR", "bug"},
			want:     []string{"Critical", "invalid", "zombie"},
		},
		{
			name:     "all exist",
			existing: []string{"Ordinary", "Major", "Critical", "Invalid", "Zombie"},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := labelNames(missingLabels(defaultLabels, tt.existing))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("missingLabels() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTargetRepos(t *testing.T) {
	cfg := &config.Config{
		Target: config.TargetConfig{Owner: "acme", Repo: "widgets"},
		Projects: map[string]string{
			"web":    "frontend",
			"api":    "other-org/api",
			"legacy": "widgets",
			"blank":  "  ",
		},
	}

	got := targetRepos(cfg)
	want := []string{"acme/frontend", "acme/widgets", "other-org/api"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("targetRepos() = %v, want %v", got, want)
	}
}
