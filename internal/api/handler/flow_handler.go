package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/screentimejourney/dashboard-service/internal/api/metrics"
	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// maxRecordingBytes caps the surrender recording upload.
const maxRecordingBytes = 25 << 20 // 25 MiB

// FlowHandler exposes the multi-step flow engine over HTTP.
type FlowHandler struct {
	service ports.FlowService
	// secureCookies toggles the Secure attribute on the onboarding cookie
	// rewrite; disabled only for local development over plain HTTP.
	secureCookies bool
}

func NewFlowHandler(service ports.FlowService, secureCookies bool) *FlowHandler {
	return &FlowHandler{service: service, secureCookies: secureCookies}
}

// Start handles POST /v1/flows/:flow_id/runs.
//
// @Summary      Start a flow run
// @Tags         flows
// @Accept       json
// @Produce      json
// @Param        flow_id  path      string            true   "Flow identifier (e.g. device_setup_flow)"
// @Param        body     body      startFlowRequest  false  "Run options"
// @Success      201      {object}  flowRunResponse
// @Failure      401      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /v1/flows/{flow_id}/runs [post]
func (h *FlowHandler) Start(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req startFlowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	flowID := c.Param("flow_id")
	run, err := h.service.Start(c.Request().Context(), ports.StartFlowInput{
		FlowID:         flowID,
		SubscriberID:   subscriberID,
		TargetDeviceID: req.TargetDeviceID,
	})
	if err != nil {
		return err
	}

	metrics.FlowRunsStartedTotal.WithLabelValues(flowID).Inc()
	return c.JSON(http.StatusCreated, toFlowRunResponse(run))
}

// Get handles GET /v1/flow-runs/:run_id. Loading a run re-applies any pending
// arrival effect for its current step.
//
// @Summary      Get a flow run
// @Tags         flows
// @Produce      json
// @Param        run_id  path      string  true  "Run identifier"
// @Success      200     {object}  flowRunResponse
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Router       /v1/flow-runs/{run_id} [get]
func (h *FlowHandler) Get(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	run, err := h.service.Get(c.Request().Context(), c.Param("run_id"), subscriberID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFlowRunResponse(run))
}

// Advance handles POST /v1/flow-runs/:run_id/advance. Form validation
// failures come back as field errors on the run body with a 200, not as an
// HTTP error: the run did not move, the client re-renders the step.
//
// @Summary      Advance a flow run one step
// @Tags         flows
// @Accept       json
// @Produce      json
// @Param        run_id  path      string          true   "Run identifier"
// @Param        body    body      advanceRequest  false  "Form values collected on the current step"
// @Success      200     {object}  flowRunResponse
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      422     {object}  map[string]string
// @Router       /v1/flow-runs/{run_id}/advance [post]
func (h *FlowHandler) Advance(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req advanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	run, err := h.service.Advance(c.Request().Context(), ports.AdvanceInput{
		RunID:        c.Param("run_id"),
		SubscriberID: subscriberID,
		FormValues:   req.FormValues,
	})
	if err != nil {
		return err
	}

	if run.Completed {
		metrics.FlowCompletionsTotal.WithLabelValues(run.Descriptor.FlowID).Inc()
		if run.Descriptor.FlowID == domain.FlowOnboarding {
			h.refreshProfileComplete(c)
		}
	} else if len(run.FormErrors) == 0 {
		metrics.FlowStepTransitionsTotal.WithLabelValues(run.Descriptor.FlowID, "forward").Inc()
	}
	return c.JSON(http.StatusOK, toFlowRunResponse(run))
}

// refreshProfileComplete rewrites the session cookie with the completion flag
// set. The gate on onboarded routes reads the flag out of the cookie, so a
// finished onboarding has to land there too, not only in the backend profile.
// Works for both record shapes; a missing or unreadable cookie is left alone.
func (h *FlowHandler) refreshProfileComplete(c echo.Context) {
	cookie, err := c.Cookie(domain.SessionCookieName)
	if err != nil {
		return
	}
	record, err := domain.DecodeSessionRecord(cookie.Value)
	if err != nil {
		return
	}
	record.ProfileComplete = true
	value, err := record.Encode()
	if err != nil {
		return
	}
	c.SetCookie(sessionCookie(value, int(domain.SessionCookieMaxAge.Seconds()), h.secureCookies))
}

// Retreat handles POST /v1/flow-runs/:run_id/retreat.
//
// @Summary      Step a flow run back one step
// @Tags         flows
// @Produce      json
// @Param        run_id  path      string  true  "Run identifier"
// @Success      200     {object}  flowRunResponse
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Router       /v1/flow-runs/{run_id}/retreat [post]
func (h *FlowHandler) Retreat(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	run, err := h.service.Retreat(c.Request().Context(), c.Param("run_id"), subscriberID)
	if err != nil {
		return err
	}
	metrics.FlowStepTransitionsTotal.WithLabelValues(run.Descriptor.FlowID, "back").Inc()
	return c.JSON(http.StatusOK, toFlowRunResponse(run))
}

// Cancel handles DELETE /v1/flow-runs/:run_id — abandons the run and discards
// its transient artifacts.
//
// @Summary      Cancel a flow run
// @Tags         flows
// @Param        run_id  path  string  true  "Run identifier"
// @Success      204     "run discarded"
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Router       /v1/flow-runs/{run_id} [delete]
func (h *FlowHandler) Cancel(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	if err := h.service.Cancel(c.Request().Context(), c.Param("run_id"), subscriberID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SubmitSurrender handles POST /v1/flow-runs/:run_id/surrender — multipart
// upload of the recorded pledge.
//
// @Summary      Submit a surrender recording for validation
// @Tags         flows
// @Accept       multipart/form-data
// @Produce      json
// @Param        run_id     path      string  true  "Run identifier"
// @Param        recording  formData  file    true  "Recorded pledge clip"
// @Success      200        {object}  surrenderResponse
// @Failure      401        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Failure      409        {object}  map[string]string
// @Failure      422        {object}  map[string]string
// @Router       /v1/flow-runs/{run_id}/surrender [post]
func (h *FlowHandler) SubmitSurrender(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("recording")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "recording file is required")
	}
	if fileHeader.Size > maxRecordingBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "recording exceeds the size limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "recording file unreadable")
	}
	defer file.Close()

	result, err := h.service.SubmitSurrender(c.Request().Context(), ports.SurrenderInput{
		RunID:        c.Param("run_id"),
		SubscriberID: subscriberID,
		Recording:    file,
		Filename:     fileHeader.Filename,
	})
	if err != nil {
		return err
	}

	verdict := "rejected"
	if result.Approved {
		verdict = "approved"
	}
	metrics.SurrenderValidationsTotal.WithLabelValues(verdict).Inc()

	return c.JSON(http.StatusOK, surrenderResponse{
		Approved: result.Approved,
		Feedback: result.Feedback,
		Run:      toFlowRunResponse(result.Run),
	})
}

// DownloadProfile handles GET /v1/flow-runs/:run_id/profile — streams the
// generated configuration profile as a download.
//
// @Summary      Generate and download the configuration profile
// @Tags         flows
// @Produce      application/x-apple-aspen-config
// @Param        run_id  path  string  true  "Run identifier"
// @Success      200     {file}    file
// @Failure      401     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      422     {object}  map[string]string
// @Router       /v1/flow-runs/{run_id}/profile [get]
func (h *FlowHandler) DownloadProfile(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	artifact, err := h.service.GenerateProfile(c.Request().Context(), c.Param("run_id"), subscriberID)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+artifact.Filename+`"`)
	return c.Blob(http.StatusOK, artifact.ContentType, artifact.Content)
}
