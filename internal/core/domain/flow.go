package domain

import (
	"errors"
	"strings"
	"time"
)

// StepType determines which validation rule and side effect applies at a step.
type StepType string

const (
	StepForm           StepType = "form"
	StepVideo          StepType = "video"
	StepVideoSurrender StepType = "video_surrender"
	StepSurrender      StepType = "surrender"
	StepPincodeDisplay StepType = "pincode_display"
	StepDownload       StepType = "download"
	StepConfirmation   StepType = "confirmation"
	StepCommitment     StepType = "commitment"
)

// Well-known flow identifiers. Setup and unlock have built-in fallback
// descriptors; any other flow id must be served by the backend.
const (
	FlowDeviceSetup  = "device_setup_flow"
	FlowDeviceUnlock = "device_unlock_flow"
	FlowOnboarding   = "account_onboarding_flow"
	FlowCancellation = "subscription_cancel_flow"
)

var (
	ErrFlowNotFound       = errors.New("flow descriptor not found")
	ErrFlowRunNotFound    = errors.New("flow run not found")
	ErrStepValidation     = errors.New("step validation failed")
	ErrStepNotAdvanceable = errors.New("step advances only through its side effect")
	ErrEffectInFlight     = errors.New("step effect already in progress")
	ErrActionNotReady     = errors.New("step action not yet enabled")
)

// FormField describes one input on a form step.
type FormField struct {
	Name     string   `json:"name" bson:"name"`
	Label    string   `json:"label" bson:"label"`
	Kind     string   `json:"kind" bson:"kind"` // text, select
	Options  []string `json:"options,omitempty" bson:"options,omitempty"`
	Required bool     `json:"required" bson:"required"`
}

// StepDescriptor is one step of a flow, 1-based.
type StepDescriptor struct {
	Step              int         `json:"step" bson:"step"`
	Title             string      `json:"title" bson:"title"`
	Body              string      `json:"body" bson:"body"`
	StepType          StepType    `json:"step_type" bson:"step_type"`
	MediaURL          string      `json:"media_url,omitempty" bson:"media_url,omitempty"`
	FormFields        []FormField `json:"form_fields,omitempty" bson:"form_fields,omitempty"`
	SurrenderText     string      `json:"surrender_text,omitempty" bson:"surrender_text,omitempty"`
	ActionButtonLabel string      `json:"action_button_label" bson:"action_button_label"`
}

// FlowDescriptor is an ordered list of steps describing a wizard. Immutable
// during a run.
type FlowDescriptor struct {
	FlowID     string           `json:"flow_id" bson:"flow_id"`
	FlowName   string           `json:"flow_name" bson:"flow_name"`
	TotalSteps int              `json:"total_steps" bson:"total_steps"`
	Steps      []StepDescriptor `json:"steps" bson:"steps"`
}

// Valid reports whether the descriptor is structurally usable: a non-empty
// step list, contiguous 1..TotalSteps.
func (d *FlowDescriptor) Valid() bool {
	if d == nil || len(d.Steps) == 0 || d.TotalSteps != len(d.Steps) {
		return false
	}
	for i, s := range d.Steps {
		if s.Step != i+1 {
			return false
		}
	}
	return true
}

// Step returns the descriptor for a 1-based index.
func (d *FlowDescriptor) Step(index int) *StepDescriptor {
	if index < 1 || index > len(d.Steps) {
		return nil
	}
	return &d.Steps[index-1]
}

// RunArtifacts are the transient values a run accumulates step by step and
// discards on completion or cancel.
type RunArtifacts struct {
	DeviceID    string `json:"device_id,omitempty" bson:"device_id,omitempty"`
	Pincode     string `json:"pincode,omitempty" bson:"pincode,omitempty"`
	AudioURL    string `json:"audio_url,omitempty" bson:"audio_url,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty" bson:"profile_url,omitempty"`
	MDMPincode  string `json:"mdm_pincode,omitempty" bson:"mdm_pincode,omitempty"`
	UnlockPin   string `json:"unlock_pin,omitempty" bson:"unlock_pin,omitempty"`
	AudioGuided bool   `json:"audio_guided" bson:"audio_guided"`
}

// FlowRun is the runtime state of one wizard execution. Created at step 1,
// mutated step by step, discarded on completion or cancel.
type FlowRun struct {
	ID           string            `json:"id" bson:"_id"`
	SubscriberID string            `json:"subscriber_id" bson:"subscriber_id"`
	Descriptor   FlowDescriptor    `json:"descriptor" bson:"descriptor"`
	CurrentStep  int               `json:"current_step" bson:"current_step"`
	FormValues   map[string]string `json:"form_values" bson:"form_values"`
	FormErrors   map[string]string `json:"form_errors,omitempty" bson:"form_errors,omitempty"`
	Artifacts    RunArtifacts      `json:"artifacts" bson:"artifacts"`

	// TargetDeviceID is the context for unlock flows.
	TargetDeviceID string `json:"target_device_id,omitempty" bson:"target_device_id,omitempty"`

	// UnlockProcessed guards the pincode-display auto-processing so the
	// backend unlock+remove sequence runs exactly once per run.
	UnlockProcessed bool `json:"unlock_processed" bson:"unlock_processed"`

	// ActionEnabled mirrors whether the current step's primary action is
	// usable; mandatory effects gate it until they succeed.
	ActionEnabled bool `json:"action_enabled" bson:"action_enabled"`

	Completed bool      `json:"completed" bson:"completed"`
	StartedAt time.Time `json:"started_at" bson:"started_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// CurrentStepDescriptor returns the descriptor for the run's current step.
func (r *FlowRun) CurrentStepDescriptor() *StepDescriptor {
	return r.Descriptor.Step(r.CurrentStep)
}

// OnLastStep reports whether the run sits on its final step.
func (r *FlowRun) OnLastStep() bool {
	return r.CurrentStep >= r.Descriptor.TotalSteps
}

// minNameLen is the shortest accepted value for a name-like form field.
const minNameLen = 2

// ValidateFormStep checks the given values against the step's field list.
// Returns a map of per-field messages; empty means valid. Validation errors
// are data, never Go errors — they render inline next to the field.
func ValidateFormStep(step *StepDescriptor, values map[string]string) map[string]string {
	errs := make(map[string]string)
	for _, f := range step.FormFields {
		v := strings.TrimSpace(values[f.Name])
		if f.Required && v == "" {
			errs[f.Name] = f.Label + " is required"
			continue
		}
		if v == "" {
			continue
		}
		if strings.Contains(f.Name, "name") && len(v) < minNameLen {
			errs[f.Name] = f.Label + " must be at least 2 characters"
			continue
		}
		if f.Kind == "select" && len(f.Options) > 0 && !contains(f.Options, v) {
			errs[f.Name] = f.Label + " must be one of: " + strings.Join(f.Options, ", ")
		}
	}
	return errs
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// Retreat moves the run one step back, floored at step 1, and clears any
// per-field errors. Retreat never triggers effects.
func (r *FlowRun) Retreat() {
	if r.CurrentStep > 1 {
		r.CurrentStep--
	}
	r.FormErrors = nil
	r.ActionEnabled = true
}

// surrenderPledge is the fixed text the subscriber must record to unlock a
// device.
const surrenderPledge = "I acknowledge that I am choosing to surrender my progress and unlock this device."

// builtinDescriptors are the hardcoded fallbacks substituted when the fetched
// descriptor for setup or unlock is missing or structurally invalid. The user
// must never be blocked by a descriptor outage on these two flows.
var builtinDescriptors = map[string]FlowDescriptor{
	FlowDeviceSetup: {
		FlowID:     FlowDeviceSetup,
		FlowName:   "Device setup",
		TotalSteps: 5,
		Steps: []StepDescriptor{
			{Step: 1, Title: "Welcome", Body: "Let's protect a new device.", StepType: StepVideo, ActionButtonLabel: "Get started"},
			{Step: 2, Title: "Name your device", StepType: StepForm, ActionButtonLabel: "Continue", FormFields: []FormField{
				{Name: "device_name", Label: "Device name", Kind: "text", Required: true},
				{Name: "device_type", Label: "Device type", Kind: "select", Options: []string{string(DeviceIOS), string(DeviceMacOS)}, Required: true},
			}},
			{Step: 3, Title: "Download your filter profile", Body: "Optional: install the content-filtering configuration profile.", StepType: StepDownload, ActionButtonLabel: "Continue"},
			{Step: 4, Title: "Your voice guide", Body: "We generate spoken instructions for your PIN.", StepType: StepPincodeDisplay, ActionButtonLabel: "Continue"},
			{Step: 5, Title: "All set", StepType: StepConfirmation, ActionButtonLabel: "Finish"},
		},
	},
	FlowDeviceUnlock: {
		FlowID:     FlowDeviceUnlock,
		FlowName:   "Device unlock",
		TotalSteps: 2,
		Steps: []StepDescriptor{
			{Step: 1, Title: "Record your surrender", StepType: StepVideoSurrender, SurrenderText: surrenderPledge, ActionButtonLabel: "Submit recording"},
			{Step: 2, Title: "Your unlock PIN", StepType: StepPincodeDisplay, ActionButtonLabel: "Done"},
		},
	},
}

// BuiltinDescriptor returns the hardcoded fallback for the given flow id, or
// nil when the flow has no fallback (a missing descriptor is then a hard
// failure surfaced to the user).
func BuiltinDescriptor(flowID string) *FlowDescriptor {
	if d, ok := builtinDescriptors[flowID]; ok {
		copied := d
		return &copied
	}
	return nil
}

// SurrenderPledge returns the fixed pledge text for unlock recordings.
func SurrenderPledge() string { return surrenderPledge }
