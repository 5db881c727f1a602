package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// demoApprovalDelay simulates backend transcription latency when demoMode
// auto-approves a surrender.
const demoApprovalDelay = 2 * time.Second

func audioGuideNeeded(run *domain.FlowRun) bool {
	return !run.Artifacts.AudioGuided
}

func unlockProcessingNeeded(run *domain.FlowRun) bool {
	return !run.UnlockProcessed
}

// generateAudioGuide mints the run's PIN and asks the backend to synthesize
// spoken instructions for it. The resulting PIN is the run's shared PIN: a
// later macOS profile generation in the same run reuses it rather than
// minting its own.
func (s *FlowService) generateAudioGuide(ctx context.Context, run *domain.FlowRun) error {
	ensureDeviceID(run)
	if run.Artifacts.Pincode == "" {
		run.Artifacts.Pincode = mintPincode()
	}

	guide, err := s.backend.GenerateAudioGuide(ctx, run.SubscriberID, run.Artifacts.Pincode)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("audio guide generation failed")
		return fmt.Errorf("generate audio guide: %w", err)
	}

	run.Artifacts.AudioURL = guide.AudioURL
	if guide.Pincode != "" {
		run.Artifacts.Pincode = guide.Pincode
	}
	run.Artifacts.AudioGuided = true

	s.log.Info().Str("run_id", run.ID).Str("device_id", run.Artifacts.DeviceID).Msg("audio guide generated")
	return nil
}

// processUnlock runs the unlock flow's terminal sequence: backend unlock, then
// permanent removal, then local consumption of the device. A failed removal is
// logged but does not roll anything back — a voice-unlocked device is always
// consumed from the active list, even under partial backend failure. That is
// an accepted availability-over-consistency trade-off, not a bug.
func (s *FlowService) processUnlock(ctx context.Context, run *domain.FlowRun) error {
	if err := s.backend.UnlockDevice(ctx, run.SubscriberID, run.TargetDeviceID, 0); err != nil {
		s.log.Error().Err(err).Str("device_id", run.TargetDeviceID).Msg("backend unlock failed")
		return fmt.Errorf("unlock device: %w", err)
	}

	if err := s.backend.RemoveDevice(ctx, run.SubscriberID, run.TargetDeviceID); err != nil {
		s.log.Warn().Err(err).Str("device_id", run.TargetDeviceID).Msg("device removal failed after unlock, device consumed anyway")
	}

	run.UnlockProcessed = true
	if markErr := s.guard.MarkDone(ctx, run.ID, effectName(run)); markErr != nil {
		s.log.Warn().Err(markErr).Str("run_id", run.ID).Msg("failed to persist unlock-processed flag")
	}
	return nil
}

// SubmitSurrender uploads the recorded pledge for the current surrender step.
// Approval stores the returned unlock PIN and auto-advances to the reveal
// step; rejection keeps the run in place and surfaces the backend's feedback.
func (s *FlowService) SubmitSurrender(ctx context.Context, input ports.SurrenderInput) (*ports.SurrenderResult, error) {
	run, err := s.load(ctx, input.RunID, input.SubscriberID)
	if err != nil {
		return nil, err
	}

	step := run.CurrentStepDescriptor()
	if step.StepType != domain.StepSurrender && step.StepType != domain.StepVideoSurrender {
		return nil, domain.ErrStepNotAdvanceable
	}

	// One submission at a time per run; the UI disables the action while a
	// validation is pending, the latch enforces it server-side.
	acquired, err := s.guard.Begin(ctx, run.ID, "surrender_submit")
	if err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("surrender latch unavailable, proceeding")
	} else if !acquired {
		return nil, domain.ErrEffectInFlight
	}
	defer func() {
		if endErr := s.guard.End(ctx, run.ID, "surrender_submit"); endErr != nil {
			s.log.Warn().Err(endErr).Str("run_id", run.ID).Msg("surrender latch release failed")
		}
	}()

	verdict, err := s.validateSurrender(ctx, run, input)
	if err != nil {
		return nil, err
	}

	if !verdict.Approved {
		s.log.Info().Str("run_id", run.ID).Msg("surrender rejected")
		return &ports.SurrenderResult{Approved: false, Feedback: verdict.Feedback, Run: run}, nil
	}

	run.Artifacts.UnlockPin = verdict.UnlockPin
	run.CurrentStep++
	run.ActionEnabled = true
	if err := s.applyArrivalEffects(ctx, run); err != nil {
		return nil, err
	}
	if err := s.save(ctx, run); err != nil {
		return nil, err
	}

	s.log.Info().Str("run_id", run.ID).Str("device_id", run.TargetDeviceID).Msg("surrender approved")
	return &ports.SurrenderResult{Approved: true, Run: run}, nil
}

func (s *FlowService) validateSurrender(ctx context.Context, run *domain.FlowRun, input ports.SurrenderInput) (*ports.SurrenderVerdict, error) {
	if s.demoMode {
		// No backend scoring available: auto-approve after a fixed delay.
		select {
		case <-time.After(demoApprovalDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &ports.SurrenderVerdict{Approved: true, UnlockPin: mintPincode()}, nil
	}

	verdict, err := s.backend.ValidateSurrender(ctx, run.SubscriberID, run.TargetDeviceID, input.Recording, input.Filename)
	if err != nil {
		return nil, fmt.Errorf("validate surrender: %w", err)
	}
	return verdict, nil
}

// completeDeviceSetup assembles the Device from the run and commits it. The
// per-subscriber cap is enforced before the mutating backend call, retried
// completions update the existing record instead of duplicating it, and the
// authoritative list re-fetch afterwards (not the optimistic local copy) is
// what the caller renders.
func (s *FlowService) completeDeviceSetup(ctx context.Context, run *domain.FlowRun) error {
	deviceType, err := domain.ParseDeviceType(run.FormValues["device_type"])
	if err != nil {
		run.FormErrors = map[string]string{"device_type": "Device type must be iOS or macOS"}
		return domain.ErrStepValidation
	}

	ensureDeviceID(run)

	devices, err := s.backend.ListDevices(ctx, run.SubscriberID)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	exists := false
	var addedDate time.Time
	for _, d := range devices {
		if d.ID == run.Artifacts.DeviceID {
			exists = true
			addedDate = d.AddedDate
			break
		}
	}
	if !exists && len(devices) >= domain.MaxDevices {
		return domain.ErrDeviceCap
	}
	if addedDate.IsZero() {
		addedDate = time.Now().UTC()
	}

	device := &domain.Device{
		ID:         run.Artifacts.DeviceID,
		Name:       run.FormValues["device_name"],
		Type:       deviceType,
		Status:     domain.DeviceSetupComplete,
		AddedDate:  addedDate,
		Pincode:    run.Artifacts.Pincode,
		AudioURL:   domain.SafeRemoteURL(run.Artifacts.AudioURL),
		ProfileURL: domain.SafeRemoteURL(run.Artifacts.ProfileURL),
	}
	if deviceType == domain.DeviceMacOS {
		device.MDMPincode = run.Artifacts.MDMPincode
	}

	if err := s.backend.UpsertDevice(ctx, run.SubscriberID, device); err != nil {
		return fmt.Errorf("commit device: %w", err)
	}

	// Re-fetch so the dashboard renders the backend's view of the list.
	if _, err := s.backend.ListDevices(ctx, run.SubscriberID); err != nil {
		s.log.Warn().Err(err).Str("subscriber_id", run.SubscriberID).Msg("device list refresh failed after commit")
	}

	s.log.Info().Str("device_id", device.ID).Str("subscriber_id", run.SubscriberID).Msg("device enrolled")
	return nil
}

// ensureDeviceID mints the run's device identifier the first time it is
// needed and keeps it for the remainder of the run; retreating and returning
// does not re-mint.
func ensureDeviceID(run *domain.FlowRun) {
	if run.Artifacts.DeviceID == "" {
		run.Artifacts.DeviceID = uuid.NewString()
	}
}

// mintPincode returns a fresh 4-digit PIN.
func mintPincode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("%04d", time.Now().UnixNano()%10000)
	}
	return fmt.Sprintf("%04d", n.Int64())
}
