package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

// Session decodes the session cookie and injects the subscriber identity into
// context. Legacy cookie encodings are tolerated by the decoder; a missing or
// undecodable cookie is a 401.
//
// allowTestOverride permits the test_customer_id query parameter to replace
// the resolved subscriber id. It must be false in production.
func Session(allowTestOverride bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(domain.SessionCookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
			}

			record, err := domain.DecodeSessionRecord(cookie.Value)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired, please sign in again")
			}

			// Identity precedence: explicit query params, then the record,
			// then the gated test override as a last resort.
			params := domain.EntryParams{
				SubscriberID:       c.QueryParam("cid"),
				LoggedInCustomerID: c.QueryParam("logged_in_customer_id"),
				TestCustomerID:     c.QueryParam("test_customer_id"),
			}
			subscriberID := domain.ExtractSubscriberID(params, cookie.Value, allowTestOverride)
			if subscriberID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "session carries no subscriber identity")
			}

			c.Set("subscriber_id", subscriberID)
			c.Set("shop", record.Shop)
			c.Set("profile_complete", record.ProfileComplete)
			c.Set("auth_type", string(record.AuthType))

			return next(c)
		}
	}
}
