package handler

type startFlowRequest struct {
	// TargetDeviceID is required by flows that operate on an enrolled device
	// (the unlock flow); setup flows ignore it.
	TargetDeviceID string `json:"target_device_id"`
}

type advanceRequest struct {
	FormValues map[string]string `json:"form_values"`
}

type formFieldResponse struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

type stepResponse struct {
	Step              int                 `json:"step"`
	Title             string              `json:"title"`
	Body              string              `json:"body,omitempty"`
	StepType          string              `json:"step_type"`
	MediaURL          string              `json:"media_url,omitempty"`
	SurrenderText     string              `json:"surrender_text,omitempty"`
	ActionButtonLabel string              `json:"action_button_label"`
	FormFields        []formFieldResponse `json:"form_fields,omitempty"`
}

type artifactsResponse struct {
	DeviceID    string `json:"device_id,omitempty"`
	Pincode     string `json:"pincode,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`
	UnlockPin   string `json:"unlock_pin,omitempty"`
	AudioGuided bool   `json:"audio_guided"`
}

type flowRunResponse struct {
	RunID         string            `json:"run_id"`
	FlowID        string            `json:"flow_id"`
	FlowName      string            `json:"flow_name"`
	CurrentStep   int               `json:"current_step"`
	TotalSteps    int               `json:"total_steps"`
	Step          stepResponse      `json:"step"`
	FormValues    map[string]string `json:"form_values,omitempty"`
	FormErrors    map[string]string `json:"form_errors,omitempty"`
	ActionEnabled bool              `json:"action_enabled"`
	Completed     bool              `json:"completed"`
	Artifacts     artifactsResponse `json:"artifacts"`
}

type surrenderResponse struct {
	Approved bool            `json:"approved"`
	Feedback string          `json:"feedback,omitempty"`
	Run      flowRunResponse `json:"run"`
}
