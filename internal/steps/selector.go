// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-08

// Package steps contains the modular "Lego block" pipeline steps.
// Each step implements the pipeline.Step interface.
package steps

import (
	"time"

	"github.com/similigh/tuleap-migrate/internal/core/config"
	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
)

// Selector drops artifacts that are out of scope before any detail is fetched.
// It only looks at the summary record.
type Selector struct {
	selection config.SelectionConfig
	cutoff    time.Time
}

// NewSelector creates a new selector step.
func NewSelector(deps *pipeline.Dependencies) *Selector {
	return &Selector{
		selection: deps.Selection,
		cutoff:    deps.Cutoff,
	}
}

// Name returns the step name.
func (s *Selector) Name() string {
	return "selector"
}

// Run skips the artifact when a selection rule matches.
func (s *Selector) Run(ctx *pipeline.Context) error {
	reason := SkipReason(ctx.Summary, s.selection, s.cutoff)
	if reason == "" {
		return nil
	}

	ctx.Logger.Debug().Str("step", s.Name()).Str("reason", reason).Msg("artifact not selected")
	ctx.Result.Skipped = true
	ctx.Result.SkipReason = reason
	return pipeline.ErrSkipPipeline
}

// SkipReason returns why a summary is excluded, or "" when it is selected.
// With every rule disabled all artifacts are selected.
func SkipReason(a *tuleap.Artifact, sel config.SelectionConfig, cutoff time.Time) string {
	switch a.Status {
	case tuleap.StatusDone:
		if sel.SkipDone {
			return "status Done"
		}
	case tuleap.StatusDeclined:
		if sel.SkipDeclined {
			return "status Declined"
		}
	default:
		if sel.SkipStaleBeforeCutoff && a.LastModified.Before(cutoff) {
			return "not modified since " + cutoff.Format(time.DateOnly)
		}
	}
	return ""
}
