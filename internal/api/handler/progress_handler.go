package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// ProgressHandler serves the gamified dashboard header.
type ProgressHandler struct {
	service ports.ProgressService
}

func NewProgressHandler(service ports.ProgressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

type progressResponse struct {
	Progress   domain.Progress `json:"progress"`
	Percentile float64         `json:"percentile"`
	// PercentileCached flags that the percentile is a cached or default value
	// because the live lookup degraded.
	PercentileCached bool `json:"percentile_cached"`
}

// View handles GET /v1/progress.
//
// @Summary      Milestone progress and community percentile
// @Tags         progress
// @Produce      json
// @Success      200  {object}  progressResponse
// @Failure      401  {object}  map[string]string
// @Router       /v1/progress [get]
func (h *ProgressHandler) View(c echo.Context) error {
	subscriberID, _, err := ctxSession(c)
	if err != nil {
		return err
	}

	view, err := h.service.View(c.Request().Context(), subscriberID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, progressResponse{
		Progress:         view.Progress,
		Percentile:       view.Percentile,
		PercentileCached: view.PercentileCached,
	})
}
