package handler

import (
	"github.com/screentimejourney/dashboard-service/internal/core/domain"
)

// --- Domain → HTTP response ---

func toFlowRunResponse(run *domain.FlowRun) flowRunResponse {
	return flowRunResponse{
		RunID:         run.ID,
		FlowID:        run.Descriptor.FlowID,
		FlowName:      run.Descriptor.FlowName,
		CurrentStep:   run.CurrentStep,
		TotalSteps:    run.Descriptor.TotalSteps,
		Step:          toStepResponse(run.CurrentStepDescriptor()),
		FormValues:    run.FormValues,
		FormErrors:    run.FormErrors,
		ActionEnabled: run.ActionEnabled,
		Completed:     run.Completed,
		Artifacts: artifactsResponse{
			DeviceID:    run.Artifacts.DeviceID,
			Pincode:     run.Artifacts.Pincode,
			AudioURL:    run.Artifacts.AudioURL,
			UnlockPin:   run.Artifacts.UnlockPin,
			AudioGuided: run.Artifacts.AudioGuided,
		},
	}
}

func toStepResponse(step *domain.StepDescriptor) stepResponse {
	if step == nil {
		return stepResponse{}
	}
	fields := make([]formFieldResponse, 0, len(step.FormFields))
	for _, f := range step.FormFields {
		fields = append(fields, formFieldResponse{
			Name:     f.Name,
			Label:    f.Label,
			Kind:     f.Kind,
			Options:  f.Options,
			Required: f.Required,
		})
	}
	return stepResponse{
		Step:              step.Step,
		Title:             step.Title,
		Body:              step.Body,
		StepType:          string(step.StepType),
		MediaURL:          step.MediaURL,
		SurrenderText:     step.SurrenderText,
		ActionButtonLabel: step.ActionButtonLabel,
		FormFields:        fields,
	}
}
