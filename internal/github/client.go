package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the HTTP request timeout for all GitHub calls.
const DefaultTimeout = 30 * time.Second

// Client wraps the go-github client for one access token.
//
// A proactive limiter keeps the bot polite: pushes are background work on
// a repeating timer, there is no reason to burst against the API.
type Client struct {
	gh  *gh.Client
	lim *rate.Limiter
}

// NewClient builds a client authenticated with a static access token.
// Works for both PAT and OAuth access tokens.
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultTimeout

	return &Client{
		gh:  gh.NewClient(tc),
		lim: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// FileSHA returns the current blob SHA of path, the version token a
// guarded update must carry. A missing file maps to ErrNotFound.
func (c *Client) FileSHA(ctx context.Context, owner, repo, path string) (string, error) {
	if err := c.lim.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	fc, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		return "", wrapError(err, "get contents")
	}
	if fc == nil {
		return "", fmt.Errorf("github: %s is a directory, not a file", path)
	}
	return fc.GetSHA(), nil
}

// UpsertFile writes content to path in a single commit. An empty sha
// requests create semantics; a non-empty sha makes the write conditional
// on the remote file still matching it.
func (c *Client) UpsertFile(ctx context.Context, owner, repo, path string, content []byte, message, sha string) error {
	if err := c.lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}
	if sha == "" {
		if _, _, err := c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts); err != nil {
			return wrapError(err, "create file")
		}
		return nil
	}

	opts.SHA = gh.Ptr(sha)
	if _, _, err := c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts); err != nil {
		return wrapError(err, "update file")
	}
	return nil
}

// Validate checks the token by fetching the authenticated user.
func (c *Client) Validate(ctx context.Context) error {
	if err := c.lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if _, _, err := c.gh.Users.Get(ctx, ""); err != nil {
		return wrapError(err, "validate token")
	}
	return nil
}

// wrapError converts go-github errors to our error types.
func wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{
			ResetAt:   rateErr.Rate.Reset.Time,
			Remaining: rateErr.Rate.Remaining,
			Limit:     rateErr.Rate.Limit,
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		apiErr := &APIError{Message: ghErr.Message}
		if ghErr.Response != nil {
			apiErr.StatusCode = ghErr.Response.StatusCode
			if ghErr.Response.Request != nil && ghErr.Response.Request.URL != nil {
				apiErr.URL = ghErr.Response.Request.URL.String()
			}
		}
		return apiErr
	}

	return fmt.Errorf("%s: %w", operation, err)
}
