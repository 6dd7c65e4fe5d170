// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-05
// Last Modified: 2026-10-07

package steps

import (
	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
	"github.com/similigh/tuleap-migrate/internal/utils/text"
)

// unknownSubmitter stands in for a comment author the tracker no longer knows.
const unknownSubmitter = "an unknown user"

// CommentTransformer converts changesets into target comments, keeping order.
type CommentTransformer struct{}

// NewCommentTransformer creates a new comment transformer step.
func NewCommentTransformer(_ *pipeline.Dependencies) *CommentTransformer {
	return &CommentTransformer{}
}

// Name returns the step name.
func (s *CommentTransformer) Name() string {
	return "comment_transformer"
}

// Run appends one comment per commented changeset.
func (s *CommentTransformer) Run(ctx *pipeline.Context) error {
	for i := range ctx.Comments {
		c := &ctx.Comments[i]
		if !c.HasComment() {
			continue
		}
		ctx.Issue.Comments = append(ctx.Issue.Comments, TransformComment(c))
	}

	ctx.Logger.Debug().Str("step", s.Name()).Int("comments", len(ctx.Issue.Comments)).Msg("comments transformed")
	return nil
}

// TransformComment builds the attributed, sanitized comment. Empty bodies
// still yield a comment.
func TransformComment(c *tuleap.Comment) pipeline.TargetComment {
	submitter := c.Submitter()
	if submitter == "" {
		submitter = unknownSubmitter
	} else {
		submitter = text.Sanitize(submitter)
	}

	var body string
	if c.LastComment != nil {
		body = text.Sanitize(c.LastComment.Body)
	}

	return pipeline.TargetComment{
		Body:      text.BuildComment(submitter, body),
		CreatedAt: c.SubmittedOn,
	}
}
