package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireCompleteProfile gates routes that need a finished onboarding. The
// flag comes from the session record; routes behind this gate can assume the
// subscriber has a username and gender on file.
func RequireCompleteProfile() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			complete, _ := c.Get("profile_complete").(bool)
			if !complete {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "complete your profile first"})
			}
			return next(c)
		}
	}
}
