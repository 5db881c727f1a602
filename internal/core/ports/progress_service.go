package ports

import (
	"context"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

// ProgressView is the gamified dashboard header: milestone progress plus the
// community percentile.
type ProgressView struct {
	Progress   domain.Progress
	Percentile float64
	// PercentileCached is true when the live lookup timed out or failed and
	// the cached default was served instead.
	PercentileCached bool
}

// ProgressService computes the milestone view for a subscriber. Ladder and
// percentile fetches are non-critical: failures degrade to built-in defaults
// and never block dashboard rendering.
type ProgressService interface {
	View(ctx context.Context, subscriberID string) (*ProgressView, error)
}
