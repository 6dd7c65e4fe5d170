// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-10
// Last Modified: 2026-10-11

// Package publish turns assembled issues into GitHub issues.
package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/similigh/tuleap-migrate/internal/core/config"
	"github.com/similigh/tuleap-migrate/internal/core/pipeline"
	"github.com/similigh/tuleap-migrate/internal/core/state"
	"github.com/similigh/tuleap-migrate/internal/integrations/github"
	"github.com/similigh/tuleap-migrate/internal/utils/text"
)

// Close reasons understood by the issues API.
const (
	ReasonCompleted  = "completed"
	ReasonNotPlanned = "not_planned"
)

// Target is the subset of the GitHub client the publisher needs.
type Target interface {
	CreateIssue(ctx context.Context, owner, repo string, req github.IssueRequest) (*github.IssueRef, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
	CloseIssue(ctx context.Context, owner, repo string, number int, reason string) error
	UploadFile(ctx context.Context, owner, repo, branch, path string, content []byte, message string) (string, error)
	EnsureBranch(ctx context.Context, owner, repo, branch string) error
}

// Publisher creates one GitHub issue per assembled issue.
type Publisher struct {
	target      Target
	owner       string
	defaultRepo string
	branch      string
	dir         string
	fatal       bool
	logger      zerolog.Logger

	mu       sync.Mutex
	branches map[string]bool
}

// New creates a publisher for the configured target.
func New(target Target, cfg *config.Config, logger zerolog.Logger) *Publisher {
	return &Publisher{
		target:      target,
		owner:       cfg.Target.Owner,
		defaultRepo: cfg.Target.Repo,
		branch:      cfg.Target.AttachmentsBranch,
		dir:         cfg.Target.AttachmentsPath,
		fatal:       cfg.Migration.AttachmentsFatal,
		logger:      logger,
		branches:    make(map[string]bool),
	}
}

// ResolveRepo maps an issue's project to a repository. "owner/repo" is used
// as is, a bare name belongs to the configured owner, and an empty project
// falls back to the default repository.
func (p *Publisher) ResolveRepo(project string) (owner, repo string) {
	project = strings.TrimSpace(project)
	if project == "" {
		return p.owner, p.defaultRepo
	}
	if o, r, ok := strings.Cut(project, "/"); ok && o != "" && r != "" {
		return o, r
	}
	return p.owner, project
}

// CloseReason returns the state reason used when closing an issue.
func CloseReason(s pipeline.IssueState) string {
	if s == pipeline.StateClosedDone {
		return ReasonCompleted
	}
	return ReasonNotPlanned
}

// Publish uploads the attachments, creates the issue, posts its comments in
// order and closes it when needed. A Publication with a non-zero Number and
// an error means the issue exists but was not completed.
func (p *Publisher) Publish(ctx context.Context, issue *pipeline.TargetIssue) state.Publication {
	owner, repo := p.ResolveRepo(issue.Project)
	pub := state.Publication{Repo: owner + "/" + repo}
	log := p.logger.With().Int("artifact_id", issue.SourceID).Str("repo", pub.Repo).Logger()

	if owner == "" || repo == "" {
		pub.Err = fmt.Errorf("no target repository for project %q", issue.Project)
		return pub
	}

	body, err := p.uploadAttachments(ctx, owner, repo, issue, log)
	if err != nil {
		pub.Err = err
		return pub
	}

	ref, err := p.target.CreateIssue(ctx, owner, repo, github.IssueRequest{
		Title:    issue.Title,
		Body:     body,
		Labels:   issue.Labels,
		Assignee: issue.Assignee,
	})
	if err != nil {
		pub.Err = err
		return pub
	}
	pub.Number = ref.Number
	pub.URL = ref.URL

	for i, c := range issue.Comments {
		if err := p.target.CreateComment(ctx, owner, repo, ref.Number, c.Body); err != nil {
			pub.Err = fmt.Errorf("comment %d of %d: %w", i+1, len(issue.Comments), err)
			return pub
		}
	}

	if issue.Closed {
		if err := p.target.CloseIssue(ctx, owner, repo, ref.Number, CloseReason(issue.State)); err != nil {
			pub.Err = err
			return pub
		}
	}

	log.Info().Int("number", ref.Number).Int("comments", len(issue.Comments)).Bool("closed", issue.Closed).Msg("issue published")
	return pub
}

// uploadAttachments commits every attachment and returns the description
// with local references replaced by the uploaded files.
func (p *Publisher) uploadAttachments(ctx context.Context, owner, repo string, issue *pipeline.TargetIssue, log zerolog.Logger) (string, error) {
	body := issue.Description
	if len(issue.Attachments) == 0 {
		return body, nil
	}

	if p.branch != "" {
		if err := p.ensureBranch(ctx, owner, repo); err != nil {
			return "", err
		}
	}

	for _, a := range issue.Attachments {
		url, err := p.uploadOne(ctx, owner, repo, issue.SourceID, a)
		if err != nil {
			if p.fatal {
				return "", fmt.Errorf("attachment %q: %w", a.Name, err)
			}
			log.Warn().Err(err).Str("attachment", a.Name).Msg("attachment omitted")
			body = strings.Replace(body, a.Reference, "", 1)
			continue
		}
		body = strings.Replace(body, a.Reference, text.AttachmentReference(a.Name, url), 1)
	}
	return body, nil
}

func (p *Publisher) uploadOne(ctx context.Context, owner, repo string, sourceID int, a pipeline.AttachmentFile) (string, error) {
	content, err := os.ReadFile(a.LocalPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", a.LocalPath, err)
	}
	dest := path.Join(p.dir, fmt.Sprint(sourceID), filepath.Base(a.LocalPath))
	msg := fmt.Sprintf("Add attachment %s of Tuleap artifact %d", a.Name, sourceID)
	return p.target.UploadFile(ctx, owner, repo, p.branch, dest, content, msg)
}

func (p *Publisher) ensureBranch(ctx context.Context, owner, repo string) error {
	key := owner + "/" + repo
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.branches[key] {
		return nil
	}
	if err := p.target.EnsureBranch(ctx, owner, repo, p.branch); err != nil {
		return err
	}
	p.branches[key] = true
	return nil
}
