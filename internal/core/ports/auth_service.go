package ports

import (
	"context"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

// ResolveInput carries everything the auth router inspects on a page load:
// URL query signals plus the raw session cookie value (empty when absent).
type ResolveInput struct {
	Params      domain.EntryParams
	CookieValue string
}

// ResolveResult is the router's terminal state plus the instructions the HTTP
// layer executes: a cookie to set and/or a redirect to follow. On AuthError no
// partial session is ever written.
type ResolveResult struct {
	State domain.AuthState
	// Record is non-nil when a session was established; the HTTP layer
	// serializes it into the session cookie.
	Record *domain.SessionRecord
	// RedirectURL, when non-empty, is followed with a full navigation.
	RedirectURL string
	// Message is the user-facing error text when State == AuthError.
	Message string
	// ProfileComplete is surfaced so the dashboard can route first-time
	// subscribers into onboarding.
	ProfileComplete bool
	SubscriberID    string
	Shop            string
}

// AuthService is the entry-path router. Resolve runs once per page load and is
// idempotent for identical URL+cookie state; the Error state exposes only a
// manual retry, never a silent one.
type AuthService interface {
	Resolve(ctx context.Context, input ResolveInput) *ResolveResult
}
