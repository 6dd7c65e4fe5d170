// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-10

package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/tuleap-migrate/internal/utils/retry"
)

// Client wraps the GitHub API client.
type Client struct {
	client  *github.Client
	graphql *GraphQLClient
	retry   retry.Config
}

// IssueRequest is a new issue.
type IssueRequest struct {
	Title    string
	Body     string
	Labels   []string
	Assignee string
}

// IssueRef identifies an existing issue.
type IssueRef struct {
	Number int
	NodeID string
	URL    string
	Title  string
	Body   string
}

// LabelSpec describes a repository label.
type LabelSpec struct {
	Name        string
	Color       string
	Description string
}

// IsTransient reports whether a failed call may succeed when repeated.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		return er.Response != nil && er.Response.StatusCode >= 500
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsRateLimited reports whether GitHub refused the call before acting on it.
// Only these failures are retried for calls that create something.
func IsRateLimited(err error) bool {
	var rl *github.RateLimitError
	var abuse *github.AbuseRateLimitError
	return errors.As(err, &rl) || errors.As(err, &abuse)
}

func statusOf(err error) int {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	return 0
}

// CreateIssue opens an issue and returns its reference.
func (c *Client) CreateIssue(ctx context.Context, owner, repo string, req IssueRequest) (*IssueRef, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("issue title cannot be empty")
	}

	ir := &github.IssueRequest{
		Title: github.String(req.Title),
		Body:  github.String(req.Body),
	}
	if len(req.Labels) > 0 {
		labels := append([]string(nil), req.Labels...)
		ir.Labels = &labels
	}
	if req.Assignee != "" {
		ir.Assignee = github.String(req.Assignee)
	}

	issue, err := retry.Do(ctx, c.retry, "create issue", IsRateLimited, func() (*github.Issue, error) {
		issue, _, err := c.client.Issues.Create(ctx, owner, repo, ir)
		return issue, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue in %s/%s: %w", owner, repo, err)
	}

	return &IssueRef{
		Number: issue.GetNumber(),
		NodeID: issue.GetNodeID(),
		URL:    issue.GetHTMLURL(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
	}, nil
}

// CreateComment posts a comment on an issue.
func (c *Client) CreateComment(ctx context.Context, org, repo string, number int, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("comment body cannot be empty")
	}

	comment := &github.IssueComment{
		Body: github.String(body),
	}
	_, err := retry.Do(ctx, c.retry, "create comment", IsRateLimited, func() (*github.IssueComment, error) {
		created, _, err := c.client.Issues.CreateComment(ctx, org, repo, number, comment)
		return created, err
	})
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// CloseIssue closes an issue with the given state reason
// ("completed" or "not_planned").
func (c *Client) CloseIssue(ctx context.Context, org, repo string, number int, reason string) error {
	req := &github.IssueRequest{State: github.String("closed")}
	if reason != "" {
		req.StateReason = github.String(reason)
	}

	_, err := retry.Do(ctx, c.retry, "close issue", IsTransient, func() (*github.Issue, error) {
		issue, _, err := c.client.Issues.Edit(ctx, org, repo, number, req)
		return issue, err
	})
	if err != nil {
		return fmt.Errorf("failed to close issue #%d: %w", number, err)
	}
	return nil
}

// UploadFile commits content at path and returns its download URL. A file
// already present at path is reused, so repeated publishes do not fail on
// attachments uploaded by an earlier attempt.
func (c *Client) UploadFile(ctx context.Context, owner, repo, branch, path string, content []byte, message string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	if branch != "" {
		opts.Branch = github.String(branch)
	}

	res, err := retry.Do(ctx, c.retry, "upload file", IsRateLimited, func() (*github.RepositoryContentResponse, error) {
		res, _, err := c.client.Repositories.CreateFile(ctx, owner, repo, path, opts)
		return res, err
	})
	if err != nil {
		if statusOf(err) == http.StatusUnprocessableEntity {
			return c.downloadURL(ctx, owner, repo, branch, path)
		}
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return res.GetContent().GetDownloadURL(), nil
}

func (c *Client) downloadURL(ctx context.Context, owner, repo, branch, path string) (string, error) {
	file, err := c.getFile(ctx, owner, repo, branch, path)
	if err != nil {
		return "", err
	}
	return file.GetDownloadURL(), nil
}

func (c *Client) getFile(ctx context.Context, owner, repo, branch, path string) (*github.RepositoryContent, error) {
	var opts *github.RepositoryContentGetOptions
	if branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: branch}
	}

	file, err := retry.Do(ctx, c.retry, "get file", IsTransient, func() (*github.RepositoryContent, error) {
		file, _, _, err := c.client.Repositories.GetContents(ctx, owner, repo, path, opts)
		return file, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return file, nil
}

// GetFileContent returns the decoded content of a repository file.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, branch, path string) ([]byte, error) {
	file, err := c.getFile(ctx, owner, repo, branch, path)
	if err != nil {
		return nil, err
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return []byte(content), nil
}

// EnsureBranch creates branch from the default branch head when it does not
// exist yet.
func (c *Client) EnsureBranch(ctx context.Context, owner, repo, branch string) error {
	_, err := retry.Do(ctx, c.retry, "get ref", IsTransient, func() (*github.Reference, error) {
		ref, _, err := c.client.Git.GetRef(ctx, owner, repo, "heads/"+branch)
		return ref, err
	})
	if err == nil {
		return nil
	}
	if statusOf(err) != http.StatusNotFound {
		return fmt.Errorf("failed to look up branch %s: %w", branch, err)
	}

	repository, err := retry.Do(ctx, c.retry, "get repository", IsTransient, func() (*github.Repository, error) {
		r, _, err := c.client.Repositories.Get(ctx, owner, repo)
		return r, err
	})
	if err != nil {
		return fmt.Errorf("failed to fetch %s/%s: %w", owner, repo, err)
	}

	head, _, err := c.client.Git.GetRef(ctx, owner, repo, "heads/"+repository.GetDefaultBranch())
	if err != nil {
		return fmt.Errorf("failed to read default branch: %w", err)
	}

	_, _, err = c.client.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(head.GetObject().GetSHA())},
	})
	if err != nil {
		return fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return nil
}

// ListLabels returns the names of every label in the repository.
func (c *Client) ListLabels(ctx context.Context, owner, repo string) ([]string, error) {
	var names []string
	opts := &github.ListOptions{PerPage: 100}

	for {
		var resp *github.Response
		labels, err := retry.Do(ctx, c.retry, "list labels", IsTransient, func() ([]*github.Label, error) {
			labels, r, err := c.client.Issues.ListLabels(ctx, owner, repo, opts)
			resp = r
			return labels, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list labels: %w", err)
		}
		for _, l := range labels {
			names = append(names, l.GetName())
		}
		if resp == nil || resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateLabel adds a label to the repository.
func (c *Client) CreateLabel(ctx context.Context, owner, repo string, spec LabelSpec) error {
	label := &github.Label{
		Name:  github.String(spec.Name),
		Color: github.String(strings.TrimPrefix(spec.Color, "#")),
	}
	if spec.Description != "" {
		label.Description = github.String(spec.Description)
	}

	_, err := retry.Do(ctx, c.retry, "create label", IsRateLimited, func() (*github.Label, error) {
		created, _, err := c.client.Issues.CreateLabel(ctx, owner, repo, label)
		return created, err
	})
	if err != nil {
		return fmt.Errorf("failed to create label %q: %w", spec.Name, err)
	}
	return nil
}

// ListIssues returns every issue of the repository, open or closed.
// Pull requests are left out.
func (c *Client) ListIssues(ctx context.Context, owner, repo string) ([]IssueRef, error) {
	var refs []IssueRef
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		var resp *github.Response
		issues, err := retry.Do(ctx, c.retry, "list issues", IsTransient, func() ([]*github.Issue, error) {
			issues, r, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
			resp = r
			return issues, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list issues: %w", err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			refs = append(refs, IssueRef{
				Number: issue.GetNumber(),
				NodeID: issue.GetNodeID(),
				URL:    issue.GetHTMLURL(),
				Title:  issue.GetTitle(),
				Body:   issue.GetBody(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			return refs, nil
		}
		opts.Page = resp.NextPage
	}
}

// DeleteIssue deletes an issue through the GraphQL API.
func (c *Client) DeleteIssue(ctx context.Context, nodeID string) error {
	_, err := retry.Do(ctx, c.retry, "delete issue", IsTransient, func() (struct{}, error) {
		return struct{}{}, c.graphql.DeleteIssue(ctx, nodeID)
	})
	return err
}

// IssueNodeID resolves the GraphQL node id of an issue number.
func (c *Client) IssueNodeID(ctx context.Context, owner, repo string, number int) (string, error) {
	return retry.Do(ctx, c.retry, "get issue node id", IsTransient, func() (string, error) {
		return c.graphql.GetIssueNodeID(ctx, owner, repo, number)
	})
}
