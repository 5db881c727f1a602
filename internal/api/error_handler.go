package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/service"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrNoSession), errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, "no active session"
	case errors.Is(err, domain.ErrFlowNotFound):
		return http.StatusNotFound, "flow not found"
	case errors.Is(err, domain.ErrFlowRunNotFound):
		return http.StatusNotFound, "flow run not found"
	case errors.Is(err, domain.ErrDeviceNotFound):
		return http.StatusNotFound, "device not found"
	case errors.Is(err, domain.ErrDeviceCap):
		return http.StatusConflict, fmt.Sprintf("device limit reached (%d)", domain.MaxDevices)
	case errors.Is(err, domain.ErrEffectInFlight):
		return http.StatusConflict, "a submission is already being processed"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "username already taken"
	case errors.Is(err, domain.ErrStepValidation):
		return http.StatusUnprocessableEntity, "step validation failed"
	case errors.Is(err, domain.ErrStepNotAdvanceable):
		return http.StatusUnprocessableEntity, "this step cannot be advanced directly"
	case errors.Is(err, domain.ErrActionNotReady):
		return http.StatusUnprocessableEntity, "this step is still preparing, try again shortly"
	case errors.Is(err, service.ErrAudioGuideFirst):
		return http.StatusUnprocessableEntity, "generate the audio guide before downloading the profile"
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusBadRequest, "confirmation is required"
	case errors.Is(err, domain.ErrUnknownType):
		return http.StatusUnprocessableEntity, "device type must be iOS or macOS"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
