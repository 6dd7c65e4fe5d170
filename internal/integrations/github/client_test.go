// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-10

package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"

	"github.com/similigh/tuleap-migrate/internal/utils/retry"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient(context.Background(), "test-token",
		WithBaseURL(server.URL),
		WithGraphQLURL(server.URL+"/graphql"),
		WithRetry(retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCreateCommentValidation(t *testing.T) {
	// Test that CreateComment rejects empty body
	client := &Client{client: nil} // nil client for validation testing

	err := client.CreateComment(context.Background(), "org", "repo", 1, "")
	if err == nil {
		t.Error("Expected error for empty comment body")
	}

	err = client.CreateComment(context.Background(), "org", "repo", 1, "   ")
	if err == nil {
		t.Error("Expected error for whitespace-only comment body")
	}
}

func TestCreateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/issues/issues", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title    string   `json:"title"`
			Body     string   `json:"body"`
			Labels   []string `json:"labels"`
			Assignee string   `json:"assignee"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body.Title != "Crash" || body.Assignee != "octocat" || len(body.Labels) != 1 || body.Labels[0] != "Major" {
			t.Errorf("unexpected request %+v", body)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"number": 7, "node_id": "I_7", "html_url": "https://github.com/acme/issues/issues/7", "title": "Crash"}`)
	})
	c := newTestClient(t, mux)

	ref, err := c.CreateIssue(context.Background(), "acme", "issues", IssueRequest{
		Title:    "Crash",
		Body:     "body",
		Labels:   []string{"Major"},
		Assignee: "octocat",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ref.Number != 7 || ref.NodeID != "I_7" || ref.URL == "" {
		t.Errorf("unexpected ref %+v", ref)
	}

	if _, err := c.CreateIssue(context.Background(), "acme", "issues", IssueRequest{Title: " "}); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestCreateIssueNotRetriedOnServerError(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/issues/issues", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux)

	if _, err := c.CreateIssue(context.Background(), "acme", "issues", IssueRequest{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("issue creation attempted %d times, want 1", calls)
	}
}

func TestCloseIssueRetriesServerErrors(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /repos/acme/issues/issues/3", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var body struct {
			State       string `json:"state"`
			StateReason string `json:"state_reason"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.State != "closed" || body.StateReason != "not_planned" {
			t.Errorf("unexpected request %+v", body)
		}
		fmt.Fprint(w, `{"number": 3, "state": "closed"}`)
	})
	c := newTestClient(t, mux)

	if err := c.CloseIssue(context.Background(), "acme", "issues", 3, "not_planned"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestUploadFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/acme/issues/contents/tuleap-attachments/42/log.txt", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			Branch  string `json:"branch"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		decoded, _ := base64.StdEncoding.DecodeString(body.Content)
		if string(decoded) != "hello" || body.Branch != "attachments" {
			t.Errorf("unexpected upload %+v", body)
		}
		fmt.Fprint(w, `{"content": {"download_url": "https://raw.example/42/log.txt"}}`)
	})
	c := newTestClient(t, mux)

	got, err := c.UploadFile(context.Background(), "acme", "issues", "attachments", "tuleap-attachments/42/log.txt", []byte("hello"), "add log.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://raw.example/42/log.txt" {
		t.Errorf("download url = %q", got)
	}
}

func TestUploadFileReusesExisting(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/acme/issues/contents/a/b.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Invalid request. \"sha\" wasn't supplied."}`)
	})
	mux.HandleFunc("GET /repos/acme/issues/contents/a/b.png", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type": "file", "name": "b.png", "download_url": "https://raw.example/a/b.png"}`)
	})
	c := newTestClient(t, mux)

	got, err := c.UploadFile(context.Background(), "acme", "issues", "", "a/b.png", []byte("png"), "add b.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://raw.example/a/b.png" {
		t.Errorf("download url = %q", got)
	}
}

func TestGetFileContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/config/contents/tuleap-migrate.yaml", func(w http.ResponseWriter, r *http.Request) {
		if ref := r.URL.Query().Get("ref"); ref != "main" {
			t.Errorf("ref = %q", ref)
		}
		encoded := base64.StdEncoding.EncodeToString([]byte("source:\n  tracker: 15\n"))
		fmt.Fprintf(w, `{"type": "file", "encoding": "base64", "content": %q}`, encoded)
	})
	c := newTestClient(t, mux)

	data, err := c.GetFileContent(context.Background(), "acme", "config", "main", "tuleap-migrate.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "source:\n  tracker: 15\n" {
		t.Errorf("content = %q", data)
	}
}

func TestEnsureBranchCreatesMissingBranch(t *testing.T) {
	var created int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/issues/git/ref/heads/attachments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	mux.HandleFunc("GET /repos/acme/issues", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	mux.HandleFunc("GET /repos/acme/issues/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ref": "refs/heads/main", "object": {"sha": "abc123"}}`)
	})
	mux.HandleFunc("POST /repos/acme/issues/git/refs", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&created, 1)
		var body struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Ref != "refs/heads/attachments" || body.SHA != "abc123" {
			t.Errorf("unexpected ref request %+v", body)
		}
		fmt.Fprint(w, `{"ref": "refs/heads/attachments"}`)
	})
	c := newTestClient(t, mux)

	if err := c.EnsureBranch(context.Background(), "acme", "issues", "attachments"); err != nil {
		t.Fatal(err)
	}
	if created != 1 {
		t.Errorf("branch created %d times", created)
	}
}

func TestListIssuesSkipsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/issues/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("state = %q", r.URL.Query().Get("state"))
		}
		fmt.Fprint(w, `[
			{"number": 1, "node_id": "I_1", "body": "a"},
			{"number": 2, "node_id": "PR_2", "pull_request": {"url": "x"}},
			{"number": 3, "node_id": "I_3"}
		]`)
	})
	c := newTestClient(t, mux)

	refs, err := c.ListIssues(context.Background(), "acme", "issues")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0].NodeID != "I_1" || refs[1].Number != 3 {
		t.Errorf("unexpected refs %+v", refs)
	}
}

func TestLabels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/issues/labels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "bug"}, {"name": "zombie"}]`)
	})
	mux.HandleFunc("POST /repos/acme/issues/labels", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Name != "Critical" || body.Color != "b60205" {
			t.Errorf("unexpected label %+v", body)
		}
		fmt.Fprint(w, `{"name": "Critical"}`)
	})
	c := newTestClient(t, mux)

	names, err := c.ListLabels(context.Background(), "acme", "issues")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[1] != "zombie" {
		t.Errorf("labels = %v", names)
	}
	if err := c.CreateLabel(context.Background(), "acme", "issues", LabelSpec{Name: "Critical", Color: "#b60205"}); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case req.Variables["issueId"] == "I_gone":
			fmt.Fprint(w, `{"data": null, "errors": [{"message": "Could not resolve to a node"}]}`)
		case req.Variables["issueId"] != nil:
			fmt.Fprint(w, `{"data": {"deleteIssue": {"clientMutationId": null}}}`)
		default:
			fmt.Fprint(w, `{"data": {"repository": {"issue": {"id": "I_9"}}}}`)
		}
	})
	c := newTestClient(t, mux)

	id, err := c.IssueNodeID(context.Background(), "acme", "issues", 9)
	if err != nil || id != "I_9" {
		t.Fatalf("IssueNodeID = %q, %v", id, err)
	}
	if err := c.DeleteIssue(context.Background(), "I_9"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteIssue(context.Background(), "I_gone"); err == nil {
		t.Error("expected GraphQL error to surface")
	}
}

func TestGraphQLRequiresToken(t *testing.T) {
	g := NewGraphQLClient(nil, "", "")
	if err := g.DeleteIssue(context.Background(), "I_1"); err == nil {
		t.Error("expected error without token")
	}
}

func TestIsTransient(t *testing.T) {
	resp := func(code int) *http.Response {
		return &http.Response{
			StatusCode: code,
			Request:    &http.Request{Method: http.MethodPost, URL: &url.URL{Path: "/repos/acme/issues/issues"}},
		}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"server error", &github.ErrorResponse{Response: resp(502)}, true},
		{"validation", &github.ErrorResponse{Response: resp(422)}, false},
		{"rate limit", &github.RateLimitError{Response: resp(403)}, true},
		{"abuse", &github.AbuseRateLimitError{Response: resp(403)}, true},
		{"graphql 429", &StatusError{StatusCode: 429}, true},
		{"graphql 401", &StatusError{StatusCode: 401}, false},
		{"wrapped", fmt.Errorf("ctx: %w", &github.ErrorResponse{Response: resp(500)}), true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
