// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-04
// Last Modified: 2026-10-06

package steps

import (
	"time"

	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
)

// Labels added by classification.
const (
	LabelInvalid = "invalid"
	LabelZombie  = "zombie"
)

// StatusClassifier decides whether the target issue is closed.
type StatusClassifier struct {
	cutoff time.Time
}

// NewStatusClassifier creates a new status classifier step.
func NewStatusClassifier(deps *pipeline.Dependencies) *StatusClassifier {
	return &StatusClassifier{cutoff: deps.Cutoff}
}

// Name returns the step name.
func (s *StatusClassifier) Name() string {
	return "status_classifier"
}

// Run classifies the artifact and adds the matching label.
func (s *StatusClassifier) Run(ctx *pipeline.Context) error {
	a := ctx.Record()
	state := Classify(a.Status, a.LastModified, s.cutoff)

	switch state {
	case pipeline.StateClosedDeclined:
		ctx.Issue.AddLabel(LabelInvalid)
	case pipeline.StateClosedZombie:
		ctx.Issue.AddLabel(LabelZombie)
	}

	ctx.Issue.State = state
	ctx.Issue.Closed = state.Closed()

	ctx.Logger.Debug().Str("step", s.Name()).Str("status", a.Status).Str("state", string(state)).Msg("classified")
	return nil
}

// Classify applies, in order: Declined, Done, then the stale cutoff.
// An artifact modified exactly at the cutoff stays open.
func Classify(status string, lastModified, cutoff time.Time) pipeline.IssueState {
	switch {
	case status == tuleap.StatusDeclined:
		return pipeline.StateClosedDeclined
	case status == tuleap.StatusDone:
		return pipeline.StateClosedDone
	case lastModified.Before(cutoff):
		return pipeline.StateClosedZombie
	default:
		return pipeline.StateOpen
	}
}
