package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/screentimejourney/dashboard-service/internal/api/metrics"
	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// DeviceHandler exposes the enrolled-device surface of the dashboard.
type DeviceHandler struct {
	service ports.DeviceService
}

func NewDeviceHandler(service ports.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

type directUnlockRequest struct {
	// Confirmed proves the UI collected interactive confirmation; the service
	// refuses to act without it.
	Confirmed       bool `json:"confirmed"`
	DurationMinutes int  `json:"duration_minutes" validate:"omitempty,gt=0"`
}

type deviceListResponse struct {
	Devices []domain.Device `json:"devices"`
}

type directUnlockResponse struct {
	Devices   []domain.Device       `json:"devices"`
	Activity  []ports.ActivityEntry `json:"activity,omitempty"`
	RelocksAt int64                 `json:"relocks_at"`
}

type activityResponse struct {
	Entries []ports.ActivityEntry `json:"entries"`
}

// List handles GET /v1/devices.
//
// @Summary      List enrolled devices
// @Tags         devices
// @Produce      json
// @Success      200  {object}  deviceListResponse
// @Failure      401  {object}  map[string]string
// @Router       /v1/devices [get]
func (h *DeviceHandler) List(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	devices, err := h.service.List(c.Request().Context(), subscriberID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deviceListResponse{Devices: devices})
}

// DirectUnlock handles POST /v1/devices/:device_id/unlock — the dashboard
// unlock without the surrender ritual, for a fixed duration.
//
// @Summary      Unlock a device directly for a fixed duration
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        device_id  path      string               true  "Device identifier"
// @Param        body       body      directUnlockRequest  true  "Confirmation"
// @Success      200        {object}  directUnlockResponse
// @Failure      400        {object}  map[string]string
// @Failure      401        {object}  map[string]string
// @Router       /v1/devices/{device_id}/unlock [post]
func (h *DeviceHandler) DirectUnlock(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req directUnlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.service.DirectUnlock(c.Request().Context(), ports.DirectUnlockInput{
		SubscriberID:    subscriberID,
		DeviceID:        c.Param("device_id"),
		Confirmed:       req.Confirmed,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		metrics.DirectUnlocksTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.DirectUnlocksTotal.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, directUnlockResponse{
		Devices:   result.Devices,
		Activity:  result.Activity,
		RelocksAt: result.RelocksAt,
	})
}

// Activity handles GET /v1/devices/activity.
//
// @Summary      Fetch the device activity log
// @Tags         devices
// @Produce      json
// @Success      200  {object}  activityResponse
// @Failure      401  {object}  map[string]string
// @Router       /v1/devices/activity [get]
func (h *DeviceHandler) Activity(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	entries, err := h.service.ActivityLog(c.Request().Context(), subscriberID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activityResponse{Entries: entries})
}
