package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

const (
	// dashboardPath is where a fresh SSO handoff lands after the session is
	// persisted; the redirect discards the handoff query parameters.
	dashboardPath = "/"

	msgLoginAgain      = "your session could not be verified, please log in again"
	msgNoActiveSession = "no active session"
	msgProxyRejected   = "we could not verify your storefront session, please log in again"
)

// AuthService routes a page load through exactly one entry path: SSO handoff,
// app-proxy handoff, or an existing session cookie. Implements
// ports.AuthService.
type AuthService struct {
	backend ports.BackendClient
	// proxyReturnPath is the app-proxy path a storefront login bounces back to.
	proxyReturnPath string
	logger          zerolog.Logger
	now             func() time.Time
}

func NewAuthService(backend ports.BackendClient, proxyReturnPath string, logger zerolog.Logger) *AuthService {
	if proxyReturnPath == "" {
		proxyReturnPath = "/apps/journey"
	}
	return &AuthService{
		backend:         backend,
		proxyReturnPath: proxyReturnPath,
		logger:          logger,
		now:             time.Now,
	}
}

// Resolve runs the router once. No hidden counters: identical URL+cookie state
// always reaches the same terminal state, and the Error state writes no
// partial session.
func (s *AuthService) Resolve(ctx context.Context, input ports.ResolveInput) *ports.ResolveResult {
	switch domain.DecideEntryPath(input.Params) {
	case domain.AuthSSO:
		return s.resolveSSO(input.Params)
	case domain.AuthAppProxy:
		return s.resolveAppProxy(ctx, input.Params)
	default:
		return s.resolveExisting(input)
	}
}

func (s *AuthService) resolveSSO(p domain.EntryParams) *ports.ResolveResult {
	tok, err := domain.DecodeSessionToken(p.Token)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", p.Shop).Msg("sso token decode failed")
		return authError(msgLoginAgain)
	}

	if err := tok.Verify(p.Shop, p.SubscriberID, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("shop", p.Shop).Str("subscriber_id", p.SubscriberID).Msg("sso token rejected")
		return authError(msgLoginAgain)
	}

	record := &domain.SessionRecord{
		Token:           p.Token,
		ProfileComplete: tok.ProfileComplete,
		AuthType:        domain.AuthTypeSSO,
		Timestamp:       s.now().Unix(),
	}

	s.logger.Info().Str("shop", p.Shop).Str("subscriber_id", p.SubscriberID).Msg("sso handoff accepted")
	return &ports.ResolveResult{
		State:           domain.AuthAuthenticated,
		Record:          record,
		RedirectURL:     dashboardPath,
		ProfileComplete: tok.ProfileComplete,
		SubscriberID:    tok.SubscriberID,
		Shop:            tok.Shop,
	}
}

func (s *AuthService) resolveAppProxy(ctx context.Context, p domain.EntryParams) *ports.ResolveResult {
	if p.LoggedInCustomerID == "" {
		// Not logged into the storefront: bounce through its login with a
		// return path back to this app.
		loginURL := fmt.Sprintf("https://%s/account/login?return_url=%s", p.Shop, url.QueryEscape(s.proxyReturnPath))
		return &ports.ResolveResult{State: domain.AuthAppProxy, RedirectURL: loginURL}
	}

	verification, err := s.backend.VerifyAppProxyHMAC(ctx, p.Shop, p.LoggedInCustomerID, p.HMAC)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", p.Shop).Msg("app proxy verification call failed")
		return authError(msgProxyRejected)
	}

	if verification.RedirectURL != "" {
		// Backend-supplied redirects are followed unconditionally.
		return &ports.ResolveResult{State: domain.AuthAppProxy, RedirectURL: verification.RedirectURL}
	}

	if !verification.Valid {
		s.logger.Warn().Str("shop", p.Shop).Str("customer_id", p.LoggedInCustomerID).Msg("app proxy hmac rejected")
		return authError(msgProxyRejected)
	}

	// Unlike the SSO token, the proxy handoff carries no completion flag, so
	// the gate on onboarded routes needs it looked up here. A lookup failure
	// leaves the flag false; finishing onboarding rewrites the cookie anyway.
	profileComplete := false
	if profile, err := s.backend.FetchProfile(ctx, p.LoggedInCustomerID); err != nil {
		s.logger.Warn().Err(err).Str("customer_id", p.LoggedInCustomerID).Msg("profile completeness lookup failed")
	} else {
		profileComplete = profile.Complete
	}

	record := &domain.SessionRecord{
		CustomerID:      p.LoggedInCustomerID,
		Shop:            p.Shop,
		AuthType:        domain.AuthTypeAppProxy,
		Timestamp:       s.now().Unix(),
		ProfileComplete: profileComplete,
	}

	s.logger.Info().Str("shop", p.Shop).Str("customer_id", p.LoggedInCustomerID).Msg("app proxy handoff accepted")
	return &ports.ResolveResult{
		State:           domain.AuthAuthenticated,
		Record:          record,
		ProfileComplete: profileComplete,
		SubscriberID:    p.LoggedInCustomerID,
		Shop:            p.Shop,
	}
}

func (s *AuthService) resolveExisting(input ports.ResolveInput) *ports.ResolveResult {
	if input.CookieValue == "" {
		return authError(msgNoActiveSession)
	}

	record, err := domain.DecodeSessionRecord(input.CookieValue)
	if err != nil {
		if !errors.Is(err, domain.ErrNoSession) {
			s.logger.Warn().Err(err).Msg("session cookie unreadable")
		}
		return authError(msgNoActiveSession)
	}

	// Detailed profile state is deferred to the dashboard fetch.
	return &ports.ResolveResult{
		State:           domain.AuthAuthenticated,
		Record:          record,
		ProfileComplete: record.ProfileComplete,
		SubscriberID:    record.SubscriberID(),
		Shop:            record.Shop,
	}
}

func authError(msg string) *ports.ResolveResult {
	return &ports.ResolveResult{State: domain.AuthError, Message: msg}
}
