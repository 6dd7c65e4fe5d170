// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-10

package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/similigh/tuleap-migrate/internal/utils/retry"
)

type options struct {
	timeout    time.Duration
	baseURL    string
	graphQLURL string
	retry      retry.Config
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithBaseURL points the REST client at another API root (tests, GitHub Enterprise).
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithGraphQLURL overrides the GraphQL endpoint.
func WithGraphQLURL(u string) Option {
	return func(o *options) { o.graphQLURL = u }
}

// WithRetry sets the backoff used for transient failures.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) { o.retry = cfg }
}

// NewClient creates a new GitHub client using the provided token.
// If token is empty, it returns an unauthenticated client.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	o := options{
		timeout:    30 * time.Second,
		graphQLURL: defaultGraphQLEndpoint,
		retry:      retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	tc := &http.Client{}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc = oauth2.NewClient(ctx, ts)
	}
	tc.Timeout = o.timeout

	client := github.NewClient(tc)
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, err
		}
		client.BaseURL = u
	}

	return &Client{
		client:  client,
		graphql: NewGraphQLClient(tc, token, o.graphQLURL),
		retry:   o.retry,
	}, nil
}
