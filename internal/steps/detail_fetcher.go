// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-04
// Last Modified: 2026-10-07

package steps

import (
	"errors"
	"fmt"

	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
)

// DetailFetcher loads the full artifact record and its comments.
type DetailFetcher struct {
	source pipeline.Source
}

// NewDetailFetcher creates a new detail fetcher step.
func NewDetailFetcher(deps *pipeline.Dependencies) (*DetailFetcher, error) {
	if deps.Source == nil {
		return nil, errors.New("detail_fetcher requires an artifact source")
	}
	return &DetailFetcher{source: deps.Source}, nil
}

// Name returns the step name.
func (s *DetailFetcher) Name() string {
	return "detail_fetcher"
}

// Run fetches the detail record, then the comments.
func (s *DetailFetcher) Run(ctx *pipeline.Context) error {
	id := ctx.Summary.ID

	artifact, err := s.source.GetArtifact(ctx.Ctx, id)
	if err != nil {
		return fmt.Errorf("fetching detail: %w", err)
	}

	comments, err := s.source.GetComments(ctx.Ctx, id)
	if err != nil {
		return fmt.Errorf("fetching comments: %w", err)
	}

	ctx.Artifact = artifact
	ctx.Comments = comments

	ctx.Logger.Debug().
		Str("step", s.Name()).
		Int("fields", len(artifact.Values)).
		Int("changesets", len(comments)).
		Msg("artifact detail loaded")
	return nil
}
