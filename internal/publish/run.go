// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-11
// Last Modified: 2026-10-11

package publish

import (
	"context"
	"fmt"

	"github.com/similigh/tuleap-migrate/internal/core/state"
)

// Outcome counts the results of publishing a set of ledger records.
type Outcome struct {
	Published int
	Failed    int
	// Stranded records were created on GitHub but not completed; they are
	// never recreated automatically.
	Stranded int
}

// Records publishes records in ledger order and stores every outcome. Records
// that already have a target issue are skipped and counted as stranded.
func (p *Publisher) Records(ctx context.Context, ledger state.Ledger, runID string, records []state.IssueRecord, observe func(done, total int, rec state.IssueRecord, pub state.Publication)) (Outcome, error) {
	var out Outcome

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if rec.TargetNumber > 0 {
			p.logger.Warn().
				Int("artifact_id", rec.ArtifactID).
				Str("url", rec.TargetURL).
				Msg("issue exists but was not completed, skipping")
			out.Stranded++
			continue
		}

		issue, err := rec.Issue()
		var pub state.Publication
		if err != nil {
			pub = state.Publication{Err: err}
		} else {
			pub = p.Publish(ctx, issue)
		}

		if err := ledger.RecordPublication(ctx, runID, rec.ArtifactID, pub); err != nil {
			return out, fmt.Errorf("recording artifact %d: %w", rec.ArtifactID, err)
		}
		if pub.Err != nil {
			p.logger.Error().Err(pub.Err).Int("artifact_id", rec.ArtifactID).Msg("publish failed")
			out.Failed++
		} else {
			out.Published++
		}

		if observe != nil {
			observe(i+1, len(records), rec, pub)
		}
	}
	return out, nil
}
