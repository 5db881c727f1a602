package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxSession extracts the session identity injected by the Session middleware
// and performs a fast-fail check before any service call:
//   - subscriber_id must be non-empty (presence proves the middleware ran and
//     the cookie decoded to a usable record).
func ctxSession(c echo.Context) (subscriberID, shop string, err error) {
	subscriberID, _ = c.Get("subscriber_id").(string)
	if subscriberID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	shop, _ = c.Get("shop").(string)
	return subscriberID, shop, nil
}
