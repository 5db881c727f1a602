package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/screentimejourney/dashboard-service/internal/core/domain"
	"github.com/screentimejourney/dashboard-service/internal/core/ports"
)

// EffectGuard abstracts the idempotency store (Redis) that makes per-run step
// effects exactly-once: Begin/End is the in-flight latch against duplicate
// submissions, Done/MarkDone the durable already-processed flag.
type EffectGuard interface {
	Begin(ctx context.Context, runID, effect string) (bool, error)
	End(ctx context.Context, runID, effect string) error
	Done(ctx context.Context, runID, effect string) (bool, error)
	MarkDone(ctx context.Context, runID, effect string) error
	// Clear drops all guard state for a run (on cancel/completion).
	Clear(ctx context.Context, runID string) error
}

// FlowService is the generic step sequencer. Flow-specific behavior lives in
// the effect registry, keyed by (flow id, step index), so new flows and steps
// do not grow conditionals inside the engine itself.
type FlowService struct {
	runs    ports.FlowRunRepository
	backend ports.BackendClient
	guard   EffectGuard
	effects map[effectKey]stepEffect
	log     zerolog.Logger

	// demoMode auto-approves surrender submissions after a fixed delay when no
	// backend validation is available. Development and testing only.
	demoMode bool
}

type effectKey struct {
	flowID string
	step   int
}

// stepEffect is a side effect bound to arrival at a step. Mandatory effects
// are invoked automatically when their precondition is unmet and gate the
// step's primary action until they succeed.
type stepEffect struct {
	mandatory bool
	// needed reports whether the effect still has to run for this run.
	needed func(run *domain.FlowRun) bool
	invoke func(ctx context.Context, run *domain.FlowRun) error
}

func NewFlowService(runs ports.FlowRunRepository, backend ports.BackendClient, guard EffectGuard, demoMode bool, log zerolog.Logger) *FlowService {
	s := &FlowService{
		runs:     runs,
		backend:  backend,
		guard:    guard,
		log:      log,
		demoMode: demoMode,
	}
	s.effects = map[effectKey]stepEffect{
		{domain.FlowDeviceSetup, 4}:  {mandatory: true, needed: audioGuideNeeded, invoke: s.generateAudioGuide},
		{domain.FlowDeviceUnlock, 2}: {mandatory: true, needed: unlockProcessingNeeded, invoke: s.processUnlock},
	}
	return s
}

// Start begins a run at step 1 with empty form state. A missing or
// structurally invalid descriptor falls back to the built-in for setup and
// unlock; any other flow id without a descriptor is a hard failure.
func (s *FlowService) Start(ctx context.Context, input ports.StartFlowInput) (*domain.FlowRun, error) {
	descriptor, err := s.backend.FetchFlowDescriptor(ctx, input.FlowID)
	if err != nil || !descriptor.Valid() {
		if builtin := domain.BuiltinDescriptor(input.FlowID); builtin != nil {
			if err != nil {
				s.log.Warn().Err(err).Str("flow_id", input.FlowID).Msg("descriptor fetch failed, using builtin")
			}
			descriptor = builtin
		} else if err != nil {
			return nil, fmt.Errorf("fetch flow descriptor: %w", err)
		} else {
			return nil, domain.ErrFlowNotFound
		}
	}

	if input.FlowID == domain.FlowDeviceUnlock {
		if input.TargetDeviceID == "" {
			return nil, domain.ErrDeviceNotFound
		}
		// The target must be an enrolled device; an unlock run against a
		// stale or mistyped id would process against nothing.
		if _, err := s.backend.FindDevice(ctx, input.SubscriberID, input.TargetDeviceID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	run := &domain.FlowRun{
		ID:             uuid.NewString(),
		SubscriberID:   input.SubscriberID,
		Descriptor:     *descriptor,
		CurrentStep:    1,
		FormValues:     make(map[string]string),
		TargetDeviceID: input.TargetDeviceID,
		ActionEnabled:  true,
		StartedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create flow run: %w", err)
	}

	s.log.Info().Str("flow_id", input.FlowID).Str("run_id", run.ID).Str("subscriber_id", input.SubscriberID).Msg("flow started")
	return run, nil
}

// Get loads a run and re-applies any pending arrival effect for its current
// step. The guard keeps re-renders from invoking a mandatory effect twice.
func (s *FlowService) Get(ctx context.Context, runID, subscriberID string) (*domain.FlowRun, error) {
	run, err := s.load(ctx, runID, subscriberID)
	if err != nil {
		return nil, err
	}
	if err := s.applyArrivalEffects(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Advance moves the run forward. Behavior is keyed by the current step type:
// form steps validate and refuse to move on errors, surrender steps only move
// through their submission effect, the final step completes the flow, and
// everything else advances unconditionally.
func (s *FlowService) Advance(ctx context.Context, input ports.AdvanceInput) (*domain.FlowRun, error) {
	run, err := s.load(ctx, input.RunID, input.SubscriberID)
	if err != nil {
		return nil, err
	}

	for k, v := range input.FormValues {
		run.FormValues[k] = v
	}

	step := run.CurrentStepDescriptor()
	switch step.StepType {
	case domain.StepForm:
		if errs := domain.ValidateFormStep(step, run.FormValues); len(errs) > 0 {
			run.FormErrors = errs
			if err := s.save(ctx, run); err != nil {
				return nil, err
			}
			return run, nil
		}
		run.FormErrors = nil

	case domain.StepCommitment:
		// The statement is scored by the backend; feedback renders inline on
		// the field just like a form validation error.
		statement := strings.TrimSpace(run.FormValues["commitment"])
		if statement == "" {
			run.FormErrors = map[string]string{"commitment": "write the commitment in your own words"}
			if err := s.save(ctx, run); err != nil {
				return nil, err
			}
			return run, nil
		}
		verdict, err := s.backend.EvaluateCommitment(ctx, run.SubscriberID, statement)
		if err != nil {
			return nil, fmt.Errorf("evaluate commitment: %w", err)
		}
		if !verdict.Approved {
			run.FormErrors = map[string]string{"commitment": verdict.Feedback}
			if err := s.save(ctx, run); err != nil {
				return nil, err
			}
			return run, nil
		}
		run.FormErrors = nil

	case domain.StepSurrender, domain.StepVideoSurrender:
		return nil, domain.ErrStepNotAdvanceable

	case domain.StepPincodeDisplay:
		// A gated step's action stays disabled until its mandatory effect has
		// succeeded; refuse a forced advance before then.
		if !run.ActionEnabled {
			return nil, domain.ErrActionNotReady
		}
	}

	if run.OnLastStep() {
		return s.complete(ctx, run)
	}

	run.CurrentStep++
	run.ActionEnabled = true
	if err := s.applyArrivalEffects(ctx, run); err != nil {
		return nil, err
	}
	if err := s.save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Retreat steps back one, floored at step 1. It clears field errors and never
// triggers effects.
func (s *FlowService) Retreat(ctx context.Context, runID, subscriberID string) (*domain.FlowRun, error) {
	run, err := s.load(ctx, runID, subscriberID)
	if err != nil {
		return nil, err
	}
	run.Retreat()
	if err := s.save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Cancel discards the run and every transient artifact: pincode, generated
// guide, profile, in-flight recording state. Requests already sent to the
// backend are not chased.
func (s *FlowService) Cancel(ctx context.Context, runID, subscriberID string) error {
	run, err := s.load(ctx, runID, subscriberID)
	if err != nil {
		return err
	}
	if err := s.guard.Clear(ctx, run.ID); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("guard cleanup failed on cancel")
	}
	return s.runs.Delete(ctx, run.ID)
}

func (s *FlowService) load(ctx context.Context, runID, subscriberID string) (*domain.FlowRun, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	// A run is only visible to the subscriber who started it.
	if run.SubscriberID != subscriberID {
		return nil, domain.ErrFlowRunNotFound
	}
	return run, nil
}

func (s *FlowService) save(ctx context.Context, run *domain.FlowRun) error {
	run.UpdatedAt = time.Now().UTC()
	if err := s.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("save flow run: %w", err)
	}
	return nil
}

// applyArrivalEffects invokes the registered mandatory effect for the run's
// current step when its precondition is unmet. The guard latch makes the
// invocation exactly-once even across concurrent re-renders; an effect that
// fails releases the latch so the next arrival retries.
func (s *FlowService) applyArrivalEffects(ctx context.Context, run *domain.FlowRun) error {
	effect, ok := s.effects[effectKey{run.Descriptor.FlowID, run.CurrentStep}]
	if !ok || !effect.mandatory || !effect.needed(run) {
		return nil
	}

	// The durable flag covers the case where another instance already ran the
	// effect but this instance holds a stale run snapshot.
	if done, err := s.guard.Done(ctx, run.ID, effectName(run)); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("effect guard lookup failed")
	} else if done {
		run.ActionEnabled = true
		return s.save(ctx, run)
	}

	acquired, err := s.guard.Begin(ctx, run.ID, effectName(run))
	if err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("effect guard unavailable, invoking anyway")
	} else if !acquired {
		// Another request is already running this effect; the action stays
		// gated until it lands.
		run.ActionEnabled = false
		return nil
	}

	run.ActionEnabled = false
	invokeErr := effect.invoke(ctx, run)
	if endErr := s.guard.End(ctx, run.ID, effectName(run)); endErr != nil {
		s.log.Warn().Err(endErr).Str("run_id", run.ID).Msg("effect guard release failed")
	}
	if invokeErr != nil {
		if saveErr := s.save(ctx, run); saveErr != nil {
			return saveErr
		}
		return invokeErr
	}

	if markErr := s.guard.MarkDone(ctx, run.ID, effectName(run)); markErr != nil {
		s.log.Warn().Err(markErr).Str("run_id", run.ID).Msg("effect guard mark failed")
	}
	run.ActionEnabled = true
	return s.save(ctx, run)
}

func effectName(run *domain.FlowRun) string {
	return fmt.Sprintf("step:%d", run.CurrentStep)
}

// complete terminates the run. Flow-specific completion work runs first; on
// success the run record and guard state are discarded.
func (s *FlowService) complete(ctx context.Context, run *domain.FlowRun) (*domain.FlowRun, error) {
	switch run.Descriptor.FlowID {
	case domain.FlowDeviceSetup:
		if err := s.completeDeviceSetup(ctx, run); err != nil {
			return nil, err
		}
	case domain.FlowDeviceUnlock:
		// The device was consumed by the pincode-display effect; nothing to
		// commit here.
	case domain.FlowCancellation:
		reason := run.FormValues["cancel_reason"]
		if err := s.backend.CancelSubscription(ctx, run.SubscriberID, reason); err != nil {
			return nil, fmt.Errorf("cancel subscription: %w", err)
		}
	case domain.FlowOnboarding:
		if err := s.completeOnboarding(ctx, run); err != nil {
			return nil, err
		}
	}

	run.Completed = true
	if err := s.guard.Clear(ctx, run.ID); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("guard cleanup failed on completion")
	}
	if err := s.runs.Delete(ctx, run.ID); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.ID).Msg("run cleanup failed on completion")
	}

	s.log.Info().Str("flow_id", run.Descriptor.FlowID).Str("run_id", run.ID).Msg("flow completed")
	return run, nil
}

// completeOnboarding saves the collected profile. Username availability is
// re-checked immediately before the save; both a failed re-check and a
// conflict from the save itself route back as a username field error.
func (s *FlowService) completeOnboarding(ctx context.Context, run *domain.FlowRun) error {
	username := run.FormValues["username"]
	if username != "" {
		status, err := s.backend.CheckUsername(ctx, username)
		if err == nil && !status.Available {
			run.FormErrors = map[string]string{"username": "that username was just taken, please pick another"}
			return domain.ErrStepValidation
		}
		// A failed availability check does not block: the save below is the
		// real arbiter and reports conflicts explicitly.
		if err != nil {
			s.log.Warn().Err(err).Msg("username availability check failed, proceeding")
		}
	}

	err := s.backend.UpdateProfile(ctx, run.SubscriberID, &ports.ProfileData{
		Username: username,
		Gender:   run.FormValues["gender"],
		Phone:    run.FormValues["phone"],
		Complete: true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			run.FormErrors = map[string]string{"username": "that username was just taken, please pick another"}
			return domain.ErrStepValidation
		}
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
