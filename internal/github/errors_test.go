package github

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	gh "github.com/google/go-github/v68/github"
)

func TestWrapErrorMapsAPIErrors(t *testing.T) {
	t.Parallel()
	reqURL, _ := url.Parse("https://api.github.com/repos/o/r/contents/log.md")
	tests := []struct {
		name   string
		in     error
		status int
		check  func(error) bool
	}{
		{
			name:   "not found",
			in:     &gh.ErrorResponse{Message: "Not Found", Response: &http.Response{StatusCode: 404, Request: &http.Request{URL: reqURL}}},
			status: 404,
			check:  IsNotFound,
		},
		{
			name:   "unauthorized",
			in:     &gh.ErrorResponse{Message: "Bad credentials", Response: &http.Response{StatusCode: 401}},
			status: 401,
			check:  IsUnauthorized,
		},
		{
			name:   "conflict",
			in:     &gh.ErrorResponse{Message: "log.md does not match", Response: &http.Response{StatusCode: 409}},
			status: 409,
			check:  IsConflict,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError(tt.in, "test op")
			var apiErr *APIError
			if !errors.As(got, &apiErr) {
				t.Fatalf("wrapError returned %T, want *APIError", got)
			}
			if apiErr.StatusCode != tt.status {
				t.Fatalf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if !tt.check(got) {
				t.Fatalf("classifier rejected %v", got)
			}
		})
	}
}

func TestWrapErrorRateLimit(t *testing.T) {
	t.Parallel()
	reset := time.Now().Add(time.Hour)
	in := &gh.RateLimitError{
		Rate: gh.Rate{Limit: 5000, Remaining: 0, Reset: gh.Timestamp{Time: reset}},
	}

	got := wrapError(in, "test op")
	if !IsRateLimited(got) {
		t.Fatalf("IsRateLimited(%v) = false", got)
	}
	var rl *RateLimitError
	if !errors.As(got, &rl) {
		t.Fatalf("wrapError returned %T, want *RateLimitError", got)
	}
	if !rl.ResetAt.Equal(reset) || rl.Limit != 5000 {
		t.Fatalf("unexpected mapping: %+v", rl)
	}
}

func TestWrapErrorPassthrough(t *testing.T) {
	t.Parallel()
	base := errors.New("dial tcp: connection refused")
	got := wrapError(base, "get contents")
	if !errors.Is(got, base) {
		t.Fatalf("wrapped error lost cause: %v", got)
	}
	if IsNotFound(got) || IsUnauthorized(got) || IsRateLimited(got) {
		t.Fatalf("transport error misclassified: %v", got)
	}
}

func TestNotFoundSentinel(t *testing.T) {
	t.Parallel()
	err := error(&APIError{StatusCode: 404, Message: "Not Found"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("404 APIError should match ErrNotFound")
	}

	wrapped := fmt.Errorf("push repo a: %w", err)
	if !IsNotFound(wrapped) {
		t.Fatal("IsNotFound should see through wrapping")
	}

	if errors.Is(error(&APIError{StatusCode: 500}), ErrNotFound) {
		t.Fatal("500 must not match ErrNotFound")
	}
}

func TestFactoryCachesPerToken(t *testing.T) {
	t.Parallel()
	f := NewFactory()

	a := f.Get("tok-a")
	b := f.Get("tok-b")
	if a == b {
		t.Fatal("distinct tokens must get distinct clients")
	}
	if f.Get("tok-a") != a {
		t.Fatal("same token must reuse the cached client")
	}

	f.Evict("tok-a")
	if f.Get("tok-a") == a {
		t.Fatal("evicted token must get a fresh client")
	}
}
