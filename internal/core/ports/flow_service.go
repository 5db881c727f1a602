package ports

import (
	"context"
	"io"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

// StartFlowInput begins a wizard run for a subscriber. TargetDeviceID is the
// run context for unlock flows.
type StartFlowInput struct {
	FlowID         string
	SubscriberID   string
	TargetDeviceID string
}

// AdvanceInput moves a run forward. FormValues are merged into the run state
// before the current step's validation runs.
type AdvanceInput struct {
	RunID        string
	SubscriberID string
	FormValues   map[string]string
}

// SurrenderInput carries the recorded pledge clip for an unlock run.
type SurrenderInput struct {
	RunID        string
	SubscriberID string
	Recording    io.Reader
	Filename     string
}

// SurrenderResult reports the backend's verdict and the run state after it.
type SurrenderResult struct {
	Approved bool
	Feedback string
	Run      *domain.FlowRun
}

// ProfileArtifact is a generated configuration profile offered as a
// client-side download.
type ProfileArtifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// FlowService is the generic step sequencer plus the effect handlers wired to
// it. Advance behavior is keyed by the current step's type; mandatory effects
// invoked on step arrival gate the primary action until they succeed.
type FlowService interface {
	Start(ctx context.Context, input StartFlowInput) (*domain.FlowRun, error)
	Get(ctx context.Context, runID, subscriberID string) (*domain.FlowRun, error)
	Advance(ctx context.Context, input AdvanceInput) (*domain.FlowRun, error)
	Retreat(ctx context.Context, runID, subscriberID string) (*domain.FlowRun, error)
	// Cancel discards the run and all transient artifacts.
	Cancel(ctx context.Context, runID, subscriberID string) error
	// SubmitSurrender uploads the pledge recording; approval stores the unlock
	// PIN and auto-advances, rejection keeps the run on the same step.
	SubmitSurrender(ctx context.Context, input SurrenderInput) (*SurrenderResult, error)
	// GenerateProfile produces the filtering configuration profile for a setup
	// run (optional step; never required to advance).
	GenerateProfile(ctx context.Context, runID, subscriberID string) (*ProfileArtifact, error)
}

// FlowRunRepository persists wizard runs between requests.
type FlowRunRepository interface {
	Create(ctx context.Context, run *domain.FlowRun) error
	Get(ctx context.Context, runID string) (*domain.FlowRun, error)
	Update(ctx context.Context, run *domain.FlowRun) error
	Delete(ctx context.Context, runID string) error
}
