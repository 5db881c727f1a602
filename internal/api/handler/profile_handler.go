package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// ProfileHandler exposes the account panel: profile reads, edits, username
// availability, phone verification, notification preferences and
// subscription cancellation.
type ProfileHandler struct {
	service ports.ProfileService
}

func NewProfileHandler(service ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type updateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,min=3,max=30"`
	Gender   string `json:"gender"   validate:"omitempty,oneof=male female other"`
	Phone    string `json:"phone"    validate:"omitempty,e164"`
}

type profileResponse struct {
	Username string `json:"username"`
	Gender   string `json:"gender"`
	Phone    string `json:"phone,omitempty"`
	Complete bool   `json:"complete"`
}

type usernameCheckResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type sendPhoneCodeRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

type verifyPhoneCodeRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code"  validate:"required,len=6,numeric"`
}

type verifyPhoneCodeResponse struct {
	Verified bool `json:"verified"`
}

type notificationSettingsRequest struct {
	WhatsAppEnabled bool `json:"whatsapp_enabled"`
	EmailEnabled    bool `json:"email_enabled"`
}

// Get handles GET /v1/profile.
//
// @Summary      Get the subscriber profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Router       /v1/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	profile, err := h.service.Get(c.Request().Context(), subscriberID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// Update handles PUT /v1/profile. A username conflict detected at save time
// comes back as a 409 with a username-specific message.
//
// @Summary      Update the subscriber profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      updateProfileRequest  true  "Profile edits"
// @Success      200   {object}  profileResponse
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/profile [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	updated, err := h.service.Update(c.Request().Context(), ports.UpdateProfileInput{
		SubscriberID: subscriberID,
		Username:     req.Username,
		Gender:       req.Gender,
		Phone:        req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(updated))
}

// CheckUsername handles GET /v1/profile/username-check?username=…
//
// @Summary      Check username availability
// @Tags         profile
// @Produce      json
// @Param        username  query     string  true  "Username to check"
// @Success      200       {object}  usernameCheckResponse
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  map[string]string
// @Router       /v1/profile/username-check [get]
func (h *ProfileHandler) CheckUsername(c echo.Context) error {
	if _, _, err := ctxSession(c); err != nil {
		return err
	}

	username := c.QueryParam("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	available, err := h.service.CheckUsername(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usernameCheckResponse{Username: username, Available: available})
}

// SendPhoneCode handles POST /v1/profile/phone/send-code — messages a
// verification code to the number over WhatsApp.
//
// @Summary      Send a phone verification code
// @Tags         profile
// @Accept       json
// @Param        body  body  sendPhoneCodeRequest  true  "Phone number in E.164 form"
// @Success      204   "code sent"
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/profile/phone/send-code [post]
func (h *ProfileHandler) SendPhoneCode(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req sendPhoneCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.service.SendPhoneCode(c.Request().Context(), subscriberID, req.Phone); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyPhoneCode handles POST /v1/profile/phone/verify. A wrong code is not
// an HTTP error: the response says verified=false and the client re-renders
// the code field.
//
// @Summary      Verify a phone verification code
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      verifyPhoneCodeRequest  true  "Number and the typed code"
// @Success      200   {object}  verifyPhoneCodeResponse
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/profile/phone/verify [post]
func (h *ProfileHandler) VerifyPhoneCode(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req verifyPhoneCodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	verified, err := h.service.VerifyPhoneCode(c.Request().Context(), subscriberID, req.Phone, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, verifyPhoneCodeResponse{Verified: verified})
}

// UpdateNotifications handles PUT /v1/profile/notifications.
//
// @Summary      Update notification preferences
// @Tags         profile
// @Accept       json
// @Param        body  body  notificationSettingsRequest  true  "Channel toggles"
// @Success      204   "settings saved"
// @Failure      401   {object}  map[string]string
// @Router       /v1/profile/notifications [put]
func (h *ProfileHandler) UpdateNotifications(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req notificationSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	err = h.service.UpdateNotifications(c.Request().Context(), subscriberID, ports.NotificationSettings{
		WhatsAppEnabled: req.WhatsAppEnabled,
		EmailEnabled:    req.EmailEnabled,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelSubscription handles POST /v1/subscription/cancel.
//
// @Summary      Cancel the subscription
// @Tags         profile
// @Accept       json
// @Param        body  body  cancelSubscriptionRequest  true  "Cancellation reason"
// @Success      204   "subscription cancelled"
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/subscription/cancel [post]
func (h *ProfileHandler) CancelSubscription(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req cancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.service.CancelSubscription(c.Request().Context(), subscriberID, req.Reason); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toProfileResponse(p *ports.ProfileData) profileResponse {
	return profileResponse{
		Username: p.Username,
		Gender:   p.Gender,
		Phone:    p.Phone,
		Complete: p.Complete,
	}
}
