package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/screentimejourney/dashboard-service/internal/api/metrics"
	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// SessionHandler resolves the entry path on page load and manages the session
// cookie lifecycle.
type SessionHandler struct {
	auth ports.AuthService
	// secureCookies toggles the Secure attribute; disabled only for local
	// development over plain HTTP.
	secureCookies bool
}

func NewSessionHandler(auth ports.AuthService, secureCookies bool) *SessionHandler {
	return &SessionHandler{auth: auth, secureCookies: secureCookies}
}

type resolveResponse struct {
	State           string `json:"state"`
	RedirectURL     string `json:"redirect_url,omitempty"`
	Message         string `json:"message,omitempty"`
	ProfileComplete bool   `json:"profile_complete"`
	SubscriberID    string `json:"subscriber_id,omitempty"`
	Shop            string `json:"shop,omitempty"`
}

// Resolve handles GET /v1/session/resolve — runs the entry-path router over
// the URL signals and the existing cookie, writing the session cookie when a
// session is established.
//
// @Summary      Resolve the entry path and establish a session
// @Tags         session
// @Produce      json
// @Param        token                  query  string  false  "Compact signed session token (SSO entry)"
// @Param        shop                   query  string  false  "Storefront domain"
// @Param        customer_id            query  string  false  "Subscriber id (SSO entry)"
// @Param        hmac                   query  string  false  "App-proxy signature"
// @Param        logged_in_customer_id  query  string  false  "App-proxy customer id"
// @Success      200  {object}  resolveResponse
// @Router       /v1/session/resolve [get]
func (h *SessionHandler) Resolve(c echo.Context) error {
	params := domain.EntryParams{
		Token:              c.QueryParam("token"),
		Shop:               c.QueryParam("shop"),
		SubscriberID:       c.QueryParam("customer_id"),
		HMAC:               c.QueryParam("hmac"),
		LoggedInCustomerID: c.QueryParam("logged_in_customer_id"),
		TestCustomerID:     c.QueryParam("test_customer_id"),
	}

	cookieValue := ""
	if cookie, err := c.Cookie(domain.SessionCookieName); err == nil {
		cookieValue = cookie.Value
	}

	result := h.auth.Resolve(c.Request().Context(), ports.ResolveInput{
		Params:      params,
		CookieValue: cookieValue,
	})

	outcome := "error"
	if result.State == domain.AuthAuthenticated {
		outcome = "authenticated"
	}
	metrics.AuthResolutionsTotal.WithLabelValues(string(domain.DecideEntryPath(params)), outcome).Inc()

	if result.State == domain.AuthAuthenticated && result.Record != nil {
		value, err := result.Record.Encode()
		if err != nil {
			return err
		}
		c.SetCookie(h.sessionCookie(value, int(domain.SessionCookieMaxAge.Seconds())))
	}

	return c.JSON(http.StatusOK, resolveResponse{
		State:           string(result.State),
		RedirectURL:     result.RedirectURL,
		Message:         result.Message,
		ProfileComplete: result.ProfileComplete,
		SubscriberID:    result.SubscriberID,
		Shop:            result.Shop,
	})
}

// Logout handles DELETE /v1/session — expires the session cookie.
//
// @Summary      End the current session
// @Tags         session
// @Success      204  "session cleared"
// @Router       /v1/session [delete]
func (h *SessionHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", -1))
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return sessionCookie(value, maxAge, h.secureCookies)
}

// sessionCookie builds the session cookie; every writer goes through here so
// the attributes never diverge between the resolve, logout and onboarding
// paths.
func sessionCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
