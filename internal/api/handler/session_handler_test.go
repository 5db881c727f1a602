package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

type stubAuthService struct {
	result    *ports.ResolveResult
	lastInput ports.ResolveInput
}

func (s *stubAuthService) Resolve(_ context.Context, input ports.ResolveInput) *ports.ResolveResult {
	s.lastInput = input
	return s.result
}

func resolveContext(target string, cookie *http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSessionResolve_AuthenticatedSetsCookie(t *testing.T) {
	auth := &stubAuthService{result: &ports.ResolveResult{
		State: domain.AuthAuthenticated,
		Record: &domain.SessionRecord{
			CustomerID: "cust_1",
			Shop:       "journey.example.com",
			AuthType:   domain.AuthTypeAppProxy,
		},
		ProfileComplete: true,
		SubscriberID:    "cust_1",
		Shop:            "journey.example.com",
	}}
	h := NewSessionHandler(auth, true)

	c, rec := resolveContext("/v1/session/resolve?shop=journey.example.com&logged_in_customer_id=cust_1&hmac=abc", nil)
	if err := h.Resolve(c); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		State           string `json:"state"`
		ProfileComplete bool   `json:"profile_complete"`
		SubscriberID    string `json:"subscriber_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.State != "authenticated" || !body.ProfileComplete || body.SubscriberID != "cust_1" {
		t.Errorf("unexpected body: %+v", body)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != domain.SessionCookieName {
		t.Errorf("cookie name = %q", cookie.Name)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie attributes = %+v, want HttpOnly+Secure+Lax", cookie)
	}
	rec2, err := domain.DecodeSessionRecord(cookie.Value)
	if err != nil {
		t.Fatalf("stored cookie does not decode: %v", err)
	}
	if rec2.CustomerID != "cust_1" {
		t.Errorf("stored record customer = %q, want cust_1", rec2.CustomerID)
	}

	if auth.lastInput.Params.HMAC != "abc" || auth.lastInput.Params.LoggedInCustomerID != "cust_1" {
		t.Errorf("query params not forwarded: %+v", auth.lastInput.Params)
	}
}

func TestSessionResolve_ErrorWritesNoCookie(t *testing.T) {
	auth := &stubAuthService{result: &ports.ResolveResult{
		State:   domain.AuthError,
		Message: "signature mismatch",
	}}
	h := NewSessionHandler(auth, true)

	c, rec := resolveContext("/v1/session/resolve?shop=journey.example.com&hmac=bad", nil)
	if err := h.Resolve(c); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if n := len(rec.Result().Cookies()); n != 0 {
		t.Errorf("expected no cookie on auth error, got %d", n)
	}
	var body struct {
		State   string `json:"state"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.State != "error" || body.Message != "signature mismatch" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestSessionResolve_ForwardsExistingCookie(t *testing.T) {
	record := &domain.SessionRecord{Token: "tok", ProfileComplete: true}
	value, err := record.Encode()
	if err != nil {
		t.Fatal(err)
	}

	auth := &stubAuthService{result: &ports.ResolveResult{State: domain.AuthAuthenticated}}
	h := NewSessionHandler(auth, false)

	c, _ := resolveContext("/v1/session/resolve", &http.Cookie{Name: domain.SessionCookieName, Value: value})
	if err := h.Resolve(c); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if auth.lastInput.CookieValue != value {
		t.Errorf("cookie value not forwarded to the resolver")
	}
}

func TestSessionLogout_ExpiresCookie(t *testing.T) {
	h := NewSessionHandler(&stubAuthService{}, true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/session", nil)
	rec := httptest.NewRecorder()
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring session cookie, got %+v", cookies)
	}
}
