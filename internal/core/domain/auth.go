package domain

import "errors"

// AuthState is the terminal (or intermediate) state of the entry-path router.
type AuthState string

const (
	AuthInit            AuthState = "init"
	AuthSSO             AuthState = "sso"
	AuthAppProxy        AuthState = "app_proxy"
	AuthExistingSession AuthState = "existing_session"
	AuthAuthenticated   AuthState = "authenticated"
	AuthError           AuthState = "error"
)

// ErrNotAuthenticated marks a request that arrived with no usable session.
var ErrNotAuthenticated = errors.New("not authenticated")

// EntryParams are the URL query signals the router inspects. Exactly one
// entry path is chosen per page load.
type EntryParams struct {
	Token              string // compact signed session token (SSO)
	Shop               string
	SubscriberID       string // subscriber-id query parameter (SSO)
	HMAC               string // storefront app-proxy signature
	LoggedInCustomerID string // app-proxy customer id
	TestCustomerID     string // manual override, non-production only
}

// DecideEntryPath picks the entry path from URL signals alone:
//
//	SSO       — token, shop and subscriber id all present
//	AppProxy  — hmac and shop present, and not the SSO set
//	otherwise — fall back to whatever session the cookie holds
//
// Re-running with the same params always yields the same path.
func DecideEntryPath(p EntryParams) AuthState {
	if p.Token != "" && p.Shop != "" && p.SubscriberID != "" {
		return AuthSSO
	}
	if p.HMAC != "" && p.Shop != "" {
		return AuthAppProxy
	}
	return AuthExistingSession
}

// ExtractSubscriberID resolves the subscriber identity for a request, checked
// in strict precedence order, first success wins:
//
//  1. URL query parameter — authoritative on fresh redirects.
//  2. Session record with a nested token: the token's subscriber field.
//  3. Session record with a direct customer id.
//  4. The manual test-override parameter, honored only when allowOverride.
//
// Returns "" when all fail; callers must treat that as not authenticated and
// never substitute a placeholder identity.
func ExtractSubscriberID(params EntryParams, cookieValue string, allowOverride bool) string {
	if params.SubscriberID != "" {
		return params.SubscriberID
	}
	if params.LoggedInCustomerID != "" {
		return params.LoggedInCustomerID
	}
	if cookieValue != "" {
		if record, err := DecodeSessionRecord(cookieValue); err == nil {
			if id := record.SubscriberID(); id != "" {
				return id
			}
		}
	}
	if allowOverride && params.TestCustomerID != "" {
		return params.TestCustomerID
	}
	return ""
}
