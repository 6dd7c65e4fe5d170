// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-19

// Package pipeline provides the per-artifact pipeline engine.
// It defines the Step interface and Context structure used by all pipeline steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
)

// ErrSkipPipeline indicates that the pipeline should stop gracefully.
// This is not an error condition, just an early exit (e.g., filtered out by selection).
var ErrSkipPipeline = errors.New("skip remaining pipeline steps")

// Step defines the interface that all pipeline steps must implement.
type Step interface {
	// Name returns the unique identifier for this step.
	Name() string

	// Run executes the step's logic.
	// It should return ErrSkipPipeline to stop the pipeline gracefully,
	// or any other error to indicate failure.
	Run(ctx *Context) error
}

// Source is the artifact source consumed by the steps.
type Source interface {
	GetArtifact(ctx context.Context, id int) (*tuleap.Artifact, error)
	GetComments(ctx context.Context, id int) ([]tuleap.Comment, error)
	FetchFile(ctx context.Context, url string) ([]byte, error)
}

// IssueState is the outcome of status classification.
type IssueState string

const (
	StateOpen           IssueState = "open"
	StateClosedDone     IssueState = "closed-done"
	StateClosedDeclined IssueState = "closed-declined"
	StateClosedZombie   IssueState = "closed-zombie"
)

// Closed reports whether the state is terminal.
func (s IssueState) Closed() bool {
	return s != StateOpen && s != ""
}

// TargetIssue is one fully assembled GitHub issue.
type TargetIssue struct {
	SourceID    int              `json:"source_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Closed      bool             `json:"closed"`
	State       IssueState       `json:"state"`
	Assignee    string           `json:"assignee,omitempty"`
	Project     string           `json:"project,omitempty"`
	Labels      []string         `json:"labels,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Comments    []TargetComment  `json:"comments,omitempty"`
	Attachments []AttachmentFile `json:"attachments,omitempty"`
}

// AddLabel appends name unless it is already present.
func (t *TargetIssue) AddLabel(name string) {
	for _, l := range t.Labels {
		if l == name {
			return
		}
	}
	t.Labels = append(t.Labels, name)
}

// HasLabel reports whether name is in the label set.
func (t *TargetIssue) HasLabel(name string) bool {
	for _, l := range t.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// TargetComment is one comment to post on the issue.
type TargetComment struct {
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentFile is a downloaded attachment. Reference is the markdown
// fragment inserted in the description.
type AttachmentFile struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	LocalPath string `json:"local_path"`
	Reference string `json:"reference"`
}

// Result holds the accumulated results from pipeline execution.
type Result struct {
	ArtifactID int
	Skipped    bool
	SkipReason string
	Warnings   []string
}

// Context carries data through the pipeline steps.
type Context struct {
	// Ctx is the Go context for cancellation and timeouts.
	Ctx context.Context

	// Summary is the artifact as listed by the tracker.
	Summary *tuleap.Artifact

	// Artifact is the full record, set by the detail fetcher.
	Artifact *tuleap.Artifact

	// Comments are the artifact's changesets, set by the detail fetcher.
	Comments []tuleap.Comment

	// Issue is the target issue under construction.
	Issue *TargetIssue

	// Result accumulates the processing results.
	Result *Result

	// Logger carries the artifact id on every entry.
	Logger zerolog.Logger
}

// NewContext creates a new pipeline context for an artifact summary.
func NewContext(ctx context.Context, summary *tuleap.Artifact, logger zerolog.Logger) *Context {
	return &Context{
		Ctx:     ctx,
		Summary: summary,
		Issue:   &TargetIssue{SourceID: summary.ID, State: StateOpen},
		Result:  &Result{ArtifactID: summary.ID},
		Logger:  logger.With().Int("artifact_id", summary.ID).Logger(),
	}
}

// Record returns the most complete artifact record available.
func (c *Context) Record() *tuleap.Artifact {
	if c.Artifact != nil {
		return c.Artifact
	}
	return c.Summary
}

// Pipeline executes a sequence of steps.
type Pipeline struct {
	steps []Step
}

// New creates a new pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Run executes all steps in order.
// Stops on the first error (unless it's ErrSkipPipeline, which is graceful).
func (p *Pipeline) Run(ctx *Context) error {
	for _, step := range p.steps {
		if err := ctx.Ctx.Err(); err != nil {
			return fmt.Errorf("step '%s' not started: %w", step.Name(), err)
		}
		if err := step.Run(ctx); err != nil {
			if errors.Is(err, ErrSkipPipeline) {
				// Graceful early exit
				return nil
			}
			return fmt.Errorf("step '%s' failed: %w", step.Name(), err)
		}
	}
	return nil
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// Steps returns the list of steps (for introspection).
func (p *Pipeline) Steps() []Step {
	return p.steps
}
