// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-04
// Last Modified: 2026-10-19

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/similigh/tuleap-migrate/internal/integrations/tuleap"
)

type fnStep struct {
	name string
	fn   func(*Context) error
}

func (s fnStep) Name() string           { return s.name }
func (s fnStep) Run(ctx *Context) error { return s.fn(ctx) }

func newTestContext() *Context {
	return NewContext(context.Background(), &tuleap.Artifact{ID: 9}, zerolog.Nop())
}

func TestPipelineRun_Order(t *testing.T) {
	var order []string
	record := func(name string) Step {
		return fnStep{name: name, fn: func(*Context) error {
			order = append(order, name)
			return nil
		}}
	}

	p := New(record("a"), record("b"))
	p.AddStep(record("c"))

	if err := p.Run(newTestContext()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Errorf("unexpected order %v", order)
	}
}

func TestPipelineRun_SkipIsGraceful(t *testing.T) {
	ran := false
	p := New(
		fnStep{name: "skip", fn: func(*Context) error { return ErrSkipPipeline }},
		fnStep{name: "after", fn: func(*Context) error { ran = true; return nil }},
	)

	if err := p.Run(newTestContext()); err != nil {
		t.Fatalf("skip should not be an error, got %v", err)
	}
	if ran {
		t.Error("steps after a skip must not run")
	}
}

func TestPipelineRun_ErrorNamesStep(t *testing.T) {
	boom := errors.New("boom")
	p := New(fnStep{name: "mapper", fn: func(*Context) error { return boom }})

	err := p.Run(newTestContext())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err.Error() != "step 'mapper' failed: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestTargetIssueLabelsAreASet(t *testing.T) {
	issue := &TargetIssue{}
	issue.AddLabel("Critical")
	issue.AddLabel("zombie")
	issue.AddLabel("Critical")

	if !reflect.DeepEqual(issue.Labels, []string{"Critical", "zombie"}) {
		t.Errorf("unexpected labels %v", issue.Labels)
	}
	if !issue.HasLabel("zombie") || issue.HasLabel("invalid") {
		t.Error("HasLabel mismatch")
	}
}

func TestResolveSteps(t *testing.T) {
	if got := ResolveSteps([]string{"selector"}, "full"); !reflect.DeepEqual(got, []string{"selector"}) {
		t.Errorf("explicit steps should win, got %v", got)
	}
	if got := ResolveSteps(nil, "no-attachments"); !reflect.DeepEqual(got, Presets["no-attachments"]) {
		t.Errorf("preset not resolved, got %v", got)
	}
	if got := ResolveSteps(nil, "unknown"); !reflect.DeepEqual(got, Presets["full"]) {
		t.Errorf("expected full preset fallback, got %v", got)
	}
}

func TestRegistryBuildFromNames(t *testing.T) {
	r := NewRegistry()
	r.Register("noop", func(*Dependencies) (Step, error) {
		return fnStep{name: "noop", fn: func(*Context) error { return nil }}, nil
	})

	p, err := r.BuildFromNames([]string{"noop", "noop"}, &Dependencies{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Steps()) != 2 {
		t.Errorf("expected 2 steps, got %d", len(p.Steps()))
	}

	if _, err := r.BuildFromNames([]string{"missing"}, &Dependencies{}); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestRegistryBuildFromNames_LogsSteps(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry()
	r.Register("noop", func(*Dependencies) (Step, error) {
		return fnStep{name: "noop", fn: func(*Context) error { return nil }}, nil
	})

	deps := &Dependencies{Logger: zerolog.New(&buf)}
	if _, err := r.BuildFromNames([]string{"noop"}, deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"steps":["noop"]`) {
		t.Errorf("expected the built steps in the log, got %q", buf.String())
	}
}
