// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-04
// Last Modified: 2026-10-09

package steps

import (
	"errors"
	"strings"

	"github.com/similigh/tuleap-migrate/internal/core/config"
	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
	"github.com/similigh/tuleap-migrate/internal/utils/text"
)

// ErrMissingSubmitter is returned when an artifact names no submitter at all.
var ErrMissingSubmitter = errors.New("artifact has no submitter")

// severityLabels maps the leading character of a severity option.
var severityLabels = map[byte]string{
	'1': "Ordinary",
	'5': "Major",
	'9': "Critical",
}

// SeverityLabel returns the label for a severity option such as "9 - Critical".
func SeverityLabel(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	label, ok := severityLabels[code[0]]
	return label, ok
}

// FieldMapper fills title, description, project, assignee and severity label.
// Missing optional field-groups are skipped.
type FieldMapper struct {
	assignees config.Lookup
	projects  config.Lookup
}

// NewFieldMapper creates a new field mapper step.
func NewFieldMapper(deps *pipeline.Dependencies) *FieldMapper {
	return &FieldMapper{
		assignees: deps.Assignees,
		projects:  deps.Projects,
	}
}

// Name returns the step name.
func (s *FieldMapper) Name() string {
	return "field_mapper"
}

// Run maps the artifact onto ctx.Issue.
func (s *FieldMapper) Run(ctx *pipeline.Context) error {
	a := ctx.Record()

	submitter := a.Submitter()
	if submitter == "" {
		return ErrMissingSubmitter
	}

	issue := ctx.Issue
	issue.Title = text.Sanitize(a.Title)
	issue.CreatedAt = a.SubmittedOn
	issue.Project = s.projects.Get(ProjectKey(a))
	issue.Assignee = s.assignees.Get(AssigneeKey(a))

	if f, ok := a.Field(tuleap.KindSeverity); ok {
		if opt, ok := f.FirstOption(); ok {
			if label, ok := SeverityLabel(opt.Label); ok {
				issue.AddLabel(label)
			} else {
				ctx.Logger.Debug().Str("step", s.Name()).Str("severity", opt.Label).Msg("unrecognized severity skipped")
			}
		}
	}

	var body string
	if f, ok := a.Field(tuleap.KindSubmission); ok {
		body = text.Sanitize(f.Text)
	}
	issue.Description = text.BuildDescription(text.Sanitize(submitter), body)

	ctx.Logger.Debug().
		Str("step", s.Name()).
		Str("project", issue.Project).
		Str("assignee", issue.Assignee).
		Strs("labels", issue.Labels).
		Msg("fields mapped")
	return nil
}

// ProjectKey returns the label of the first Platform option.
func ProjectKey(a *tuleap.Artifact) string {
	if f, ok := a.Field(tuleap.KindPlatform); ok {
		if opt, ok := f.FirstOption(); ok {
			return opt.Label
		}
	}
	return ""
}

// AssigneeKey returns the username of the first assignee, falling back to the
// display name for lists that do not carry usernames.
func AssigneeKey(a *tuleap.Artifact) string {
	f, ok := a.Field(tuleap.KindAssignee)
	if !ok {
		return ""
	}
	opt, ok := f.FirstOption()
	if !ok {
		return ""
	}
	if opt.Username != "" {
		return opt.Username
	}
	return opt.DisplayName
}
