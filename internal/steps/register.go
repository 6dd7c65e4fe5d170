// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-08

package steps

import (
	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
)

// RegisterAll registers all built-in steps with the registry.
func RegisterAll(r *pipeline.Registry) {
	r.Register("selector", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewSelector(deps), nil
	})

	r.Register("detail_fetcher", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		step, err := NewDetailFetcher(deps)
		if err != nil {
			return nil, err
		}
		return step, nil
	})

	r.Register("field_mapper", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewFieldMapper(deps), nil
	})

	r.Register("status_classifier", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewStatusClassifier(deps), nil
	})

	r.Register("attachment_resolver", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		step, err := NewAttachmentResolver(deps)
		if err != nil {
			return nil, err
		}
		return step, nil
	})

	r.Register("comment_transformer", func(deps *pipeline.Dependencies) (pipeline.Step, error) {
		return NewCommentTransformer(deps), nil
	})
}
