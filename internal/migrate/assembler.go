// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-05
// Last Modified: 2026-10-09

// Package migrate assembles Tuleap artifacts into GitHub issues.
package migrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/similigh/tuleap-migrate/internal/core/config"
	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
	"github.com/similigh/tuleap-migrate/internal/steps"
	"github.com/similigh/tuleap-migrate/internal/utils/text"
)

// Result is the outcome of assembling one artifact.
type Result struct {
	Index      int
	ArtifactID int
	Title      string
	Issue      *pipeline.TargetIssue
	Skipped    bool
	SkipReason string
	Warnings   []string
	Err        error
}

// OK reports whether an issue was produced.
func (r Result) OK() bool {
	return r.Err == nil && !r.Skipped && r.Issue != nil
}

// Observer is notified after each artifact, from a single goroutine.
type Observer func(done, total int, r Result)

// job represents an artifact to process in the worker pool
type job struct {
	index   int
	summary tuleap.Artifact
}

// Assembler runs the step pipeline over every artifact.
type Assembler struct {
	pipeline *pipeline.Pipeline
	workers  int
	logger   zerolog.Logger
	observer Observer
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithWorkers sets the number of artifacts assembled concurrently.
func WithWorkers(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithObserver registers a progress callback.
func WithObserver(o Observer) Option {
	return func(a *Assembler) { a.observer = o }
}

// New creates an assembler around a built pipeline.
func New(p *pipeline.Pipeline, opts ...Option) *Assembler {
	a := &Assembler{
		pipeline: p,
		workers:  1,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildDependencies derives step dependencies from configuration.
func BuildDependencies(cfg *config.Config, src pipeline.Source, logger zerolog.Logger) (*pipeline.Dependencies, error) {
	cutoff, err := cfg.CutoffTime()
	if err != nil {
		return nil, err
	}
	return &pipeline.Dependencies{
		Source:           src,
		Assignees:        cfg.AssigneeMap(),
		Projects:         cfg.ProjectMap(),
		Cutoff:           cutoff,
		AttachmentRoot:   cfg.Migration.AttachmentsRoot,
		AttachmentsFatal: cfg.Migration.AttachmentsFatal,
		Selection:        cfg.Selection,
		Logger:           logger,
	}, nil
}

// NewFromConfig builds the configured pipeline and wraps it in an assembler.
func NewFromConfig(cfg *config.Config, src pipeline.Source, logger zerolog.Logger, opts ...Option) (*Assembler, error) {
	deps, err := BuildDependencies(cfg, src, logger)
	if err != nil {
		return nil, err
	}

	registry := pipeline.NewRegistry()
	steps.RegisterAll(registry)

	names := pipeline.ResolveSteps(cfg.Migration.Steps, cfg.Migration.Workflow)
	p, err := registry.BuildFromNames(names, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	base := []Option{WithWorkers(cfg.Migration.Workers), WithLogger(logger)}
	return New(p, append(base, opts...)...), nil
}

// Assemble processes every summary and returns one Result per summary in
// input order. A failing artifact never stops the others.
func (a *Assembler) Assemble(ctx context.Context, summaries []tuleap.Artifact) []Result {
	total := len(summaries)
	workers := a.workers
	if workers > total {
		workers = total
	}

	jobs := make(chan job, workers)
	results := make(chan Result, workers)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				a.logger.Debug().Int("worker", workerID).Int("artifact_id", j.summary.ID).Msg("assembling")
				r := a.AssembleOne(ctx, j.summary)
				r.Index = j.index
				results <- r
			}
		}(i)
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for i, s := range summaries {
			select {
			case jobs <- job{index: i, summary: s}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Collect results
	go func() {
		wg.Wait()
		close(results)
	}()

	// Gather results in order
	ordered := make([]Result, total)
	seen := make([]bool, total)
	done := 0
	for r := range results {
		ordered[r.Index] = r
		seen[r.Index] = true
		done++
		if a.observer != nil {
			a.observer(done, total, r)
		}
	}

	// Artifacts never dispatched because the context ended
	for i := range ordered {
		if !seen[i] {
			ordered[i] = Result{
				Index:      i,
				ArtifactID: summaries[i].ID,
				Title:      summaries[i].Title,
				Err:        fmt.Errorf("not assembled: %w", ctx.Err()),
			}
		}
	}

	return ordered
}

// AssembleOne runs the pipeline for a single artifact.
func (a *Assembler) AssembleOne(ctx context.Context, summary tuleap.Artifact) Result {
	pctx := pipeline.NewContext(ctx, &summary, a.logger)

	r := Result{
		ArtifactID: summary.ID,
		Title:      summary.Title,
	}

	if err := a.pipeline.Run(pctx); err != nil {
		pctx.Logger.Error().Err(err).Msg("artifact failed")
		r.Err = err
		r.Warnings = pctx.Result.Warnings
		return r
	}

	r.Skipped = pctx.Result.Skipped
	r.SkipReason = pctx.Result.SkipReason
	r.Warnings = pctx.Result.Warnings
	if r.Skipped {
		pctx.Logger.Info().Str("reason", r.SkipReason).Msg("artifact skipped")
		return r
	}

	issue := pctx.Issue
	issue.Description += "\n\n" + text.ArtifactMarker(summary.ID)
	r.Issue = issue

	pctx.Logger.Info().Bool("closed", issue.Closed).Int("comments", len(issue.Comments)).Msg("artifact assembled")
	return r
}

// Issues returns the assembled issues in source order, dropping skipped and
// failed artifacts.
func Issues(results []Result) []pipeline.TargetIssue {
	out := make([]pipeline.TargetIssue, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, *r.Issue)
		}
	}
	return out
}

// Summary counts outcomes.
type Summary struct {
	Total     int
	Assembled int
	Skipped   int
	Failed    int
}

// Summarize counts the outcomes of a run.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case r.Skipped:
			s.Skipped++
		default:
			s.Assembled++
		}
	}
	return s
}
