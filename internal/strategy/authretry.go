package strategy

import (
	"context"
	"net/http"

	"github.com/hfauzan/audiotube/internal/constants"
	"github.com/hfauzan/audiotube/internal/domain"
)

// cookieTransport attaches a session cookie to every request, so age-gated
// and throttled videos are fetched as a signed-in session.
type cookieTransport struct {
	base   http.RoundTripper
	cookie string
}

func (t *cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Cookie", t.cookie)
	clone.Header.Set("User-Agent", browserUserAgent)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// AuthenticatedRetry is the library strategy run with a configured session
// cookie. Last in the chain; only available when a cookie is configured.
type AuthenticatedRetry struct {
	inner  *LibraryExtraction
	cookie string
}

func NewAuthenticatedRetry(sessionCookie string) *AuthenticatedRetry {
	if sessionCookie == "" {
		return &AuthenticatedRetry{}
	}
	httpClient := &http.Client{
		Timeout:   constants.LibraryTimeout,
		Transport: &cookieTransport{cookie: sessionCookie},
	}
	return &AuthenticatedRetry{
		inner:  NewLibraryExtraction(httpClient),
		cookie: sessionCookie,
	}
}

func (s *AuthenticatedRetry) Name() string { return "authenticated-retry" }

func (s *AuthenticatedRetry) Available() bool { return s.cookie != "" }

func (s *AuthenticatedRetry) Acquire(ctx context.Context, sourceURL string, meta *domain.Metadata, dest string, report ProgressFunc) error {
	return s.inner.Acquire(ctx, sourceURL, meta, dest, report)
}
