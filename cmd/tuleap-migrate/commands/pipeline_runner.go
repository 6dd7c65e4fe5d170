// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-13

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/similigh/tuleap-migrate/internal/core/state"
	"github.com/similigh/tuleap-migrate/internal/migrate"
	"github.com/similigh/tuleap-migrate/internal/tui"
)

const (
	phaseAssemble = "assemble"
	phasePublish  = "publish"
)

// progressSink forwards per-artifact progress to the progress view, or to
// the log when there is none.
type progressSink struct {
	ctx     context.Context
	updates chan<- tui.ProgressMsg
	log     zerolog.Logger
}

func (s *progressSink) send(msg tui.ProgressMsg) {
	if s.updates == nil {
		ev := s.log.Info()
		if msg.Status == tui.StatusFailed {
			ev = s.log.Warn()
		}
		ev.Str("phase", msg.Phase).
			Int("artifact_id", msg.ArtifactID).
			Str("status", msg.Status).
			Str("progress", fmt.Sprintf("%d/%d", msg.Done, msg.Total)).
			Msg(msg.Message)
		return
	}

	select {
	case s.updates <- msg:
	case <-s.ctx.Done():
	}
}

func (s *progressSink) assembleObserver() migrate.Observer {
	return func(done, total int, r migrate.Result) {
		msg := tui.ProgressMsg{
			Phase:      phaseAssemble,
			Done:       done,
			Total:      total,
			ArtifactID: r.ArtifactID,
			Status:     tui.StatusOK,
		}
		switch {
		case r.Err != nil:
			msg.Status, msg.Message = tui.StatusFailed, r.Err.Error()
		case r.Skipped:
			msg.Status, msg.Message = tui.StatusSkipped, r.SkipReason
		case len(r.Warnings) > 0:
			msg.Message = strings.Join(r.Warnings, "; ")
		}
		s.send(msg)
	}
}

func (s *progressSink) publishObserver() func(done, total int, rec state.IssueRecord, pub state.Publication) {
	return func(done, total int, rec state.IssueRecord, pub state.Publication) {
		msg := tui.ProgressMsg{
			Phase:      phasePublish,
			Done:       done,
			Total:      total,
			ArtifactID: rec.ArtifactID,
			Status:     tui.StatusOK,
			Message:    pub.URL,
		}
		if pub.Err != nil {
			msg.Status, msg.Message = tui.StatusFailed, pub.Err.Error()
		}
		s.send(msg)
	}
}

func useTUI() bool {
	return !viper.GetBool("no-tui") && isatty.IsTerminal(os.Stdout.Fd())
}

// runWithProgress runs work, showing the progress view when attached to a
// terminal. Quitting the view cancels the work.
func runWithProgress(ctx context.Context, rt *runtime, phases []string, work func(ctx context.Context, sink *progressSink) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !useTUI() {
		return work(ctx, &progressSink{ctx: ctx, log: rt.log})
	}

	restore, err := rt.logToFile(logFileName)
	if err != nil {
		return err
	}
	defer restore()

	updates := make(chan tui.ProgressMsg, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(updates)
		errCh <- work(ctx, &progressSink{ctx: ctx, updates: updates, log: rt.log})
	}()

	final, viewErr := tea.NewProgram(tui.NewModel(phases, updates)).Run()
	if m, ok := final.(tui.Model); viewErr != nil || (ok && m.Interrupted()) {
		cancel()
	}

	// Keep the worker unblocked if the view ended first.
	go func() {
		for range updates {
		}
	}()

	if err := <-errCh; err != nil {
		return err
	}
	if viewErr != nil {
		return fmt.Errorf("progress view: %w", viewErr)
	}
	return nil
}
