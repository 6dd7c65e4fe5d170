// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-03
// Last Modified: 2026-10-19

// Package tuleap provides a REST client for the Tuleap tracker API.
package tuleap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/similigh/tuleap-migrate/internal/utils/retry"
)

const defaultPageSize = 100

// Client talks to one Tuleap tracker.
type Client struct {
	baseURL    *url.URL
	tracker    int
	accessKey  string
	httpClient *http.Client
	retry      retry.Config
	pageSize   int
}

// Option customizes a Client.
type Option func(*Client)

// WithAccessKey sends the X-Auth-AccessKey header on every request.
func WithAccessKey(key string) Option {
	return func(c *Client) { c.accessKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRetry sets the backoff applied to transient failures.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a client for the given Tuleap base URL and tracker id.
func NewClient(baseURL string, tracker int, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid tuleap url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid tuleap url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL:    u,
		tracker:    tracker,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      retry.DefaultConfig(),
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListArtifacts returns every artifact summary of the tracker in source order.
// Pages are requested until an empty page comes back.
func (c *Client) ListArtifacts(ctx context.Context) ([]Artifact, error) {
	var all []Artifact
	for offset := 0; ; offset += c.pageSize {
		path := fmt.Sprintf("/api/trackers/%d/artifacts", c.tracker)
		query := url.Values{
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(c.pageSize)},
		}

		var page []json.RawMessage
		if err := c.getJSON(ctx, "list artifacts", path, query, &page); err != nil {
			return nil, fmt.Errorf("failed to list artifacts at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, decodeSummaries(page, offset)...)
		log.Debug().Int("offset", offset).Int("count", len(page)).Msg("fetched artifact page")
	}
	return all, nil
}

// decodeSummaries decodes one listing page. A summary that cannot be decoded
// is logged and left out so the rest of the tracker is still migrated.
func decodeSummaries(page []json.RawMessage, offset int) []Artifact {
	out := make([]Artifact, 0, len(page))
	for i, raw := range page {
		var a Artifact
		if err := json.Unmarshal(raw, &a); err != nil {
			var ref struct {
				ID json.RawMessage `json:"id"`
			}
			_ = json.Unmarshal(raw, &ref)
			log.Warn().Err(err).Int("position", offset+i).Int("artifact_id", decodeInt(ref.ID)).
				Msg("skipping artifact summary that could not be decoded")
			continue
		}
		out = append(out, a)
	}
	return out
}

// GetArtifact fetches the full record of one artifact.
func (c *Client) GetArtifact(ctx context.Context, id int) (*Artifact, error) {
	var a Artifact
	if err := c.getJSON(ctx, "get artifact", fmt.Sprintf("/api/artifacts/%d", id), nil, &a); err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %d: %w", id, err)
	}
	return &a, nil
}

// GetComments fetches the commented changesets of an artifact, oldest first.
func (c *Client) GetComments(ctx context.Context, id int) ([]Comment, error) {
	var comments []Comment
	query := url.Values{"fields": {"comments"}}
	if err := c.getJSON(ctx, "get comments", fmt.Sprintf("/api/artifacts/%d/changesets", id), query, &comments); err != nil {
		return nil, fmt.Errorf("failed to fetch comments of artifact %d: %w", id, err)
	}
	return comments, nil
}

// FetchFile downloads an attachment. Relative URLs are resolved against the
// base URL.
func (c *Client) FetchFile(ctx context.Context, fileURL string) ([]byte, error) {
	target, err := c.resolve(fileURL)
	if err != nil {
		return nil, err
	}

	return retry.Do(ctx, c.retry, "fetch file", IsTransient, func() ([]byte, error) {
		resp, err := c.do(ctx, target)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read file body: %w", err)
		}
		return data, nil
	})
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	ref := &url.URL{Path: path}
	if query != nil {
		ref.RawQuery = query.Encode()
	}
	target := c.endpoint(ref)

	_, err := retry.Do(ctx, c.retry, op, IsTransient, func() (struct{}, error) {
		resp, err := c.do(ctx, target)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, fmt.Errorf("failed to decode response: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// do performs a GET and converts non-2xx responses into *StatusError.
func (c *Client) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.accessKey != "" {
		req.Header.Set("X-Auth-AccessKey", c.accessKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		// Truncate response body to avoid leaking sensitive data in logs
		truncated := string(body)
		if len(truncated) > 200 {
			truncated = truncated[:200] + "..."
		}
		return nil, &StatusError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Body: truncated}
	}
	return resp, nil
}

func (c *Client) endpoint(ref *url.URL) string {
	base := *c.baseURL
	base.Path = strings.TrimRight(base.Path, "/") + ref.Path
	base.RawQuery = ref.RawQuery
	return base.String()
}

func (c *Client) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid file url %q: %w", raw, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	return c.endpoint(ref), nil
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, 429 and 5xx responses. Cancellation is never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
