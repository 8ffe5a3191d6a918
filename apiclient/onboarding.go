package apiclient

import (
	"context"
	"time"
)

// OnboardingData is the collected payload plus the computed step.
type OnboardingData struct {
	Payload     map[string]any `json:"payload"`
	CurrentStep int            `json:"current_step"`
	TotalSteps  int            `json:"total_steps"`
	DemoMode    bool           `json:"demo_mode"`
	Completed   bool           `json:"completed"`
	Skipped     bool           `json:"skipped"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// OnboardingStep reports one wizard step for progress displays.
type OnboardingStep struct {
	Step int    `json:"step"`
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// OnboardingProgress is the step ladder plus the completion ratio.
type OnboardingProgress struct {
	CurrentStep int              `json:"current_step"`
	TotalSteps  int              `json:"total_steps"`
	Percent     int              `json:"percent"`
	Steps       []OnboardingStep `json:"steps,omitempty"`
}

// OnboardingStatus is the small poll shape layered pages use.
type OnboardingStatus struct {
	Completed   bool `json:"completed"`
	Skipped     bool `json:"skipped"`
	CurrentStep int  `json:"current_step"`
	DemoMode    bool `json:"demo_mode"`
}

// OnboardingAPI covers the /onboarding endpoints.
type OnboardingAPI struct {
	client *Client
}

// Data returns the full onboarding session.
func (o *OnboardingAPI) Data(ctx context.Context) (*OnboardingData, error) {
	var data OnboardingData
	if err := o.client.get(ctx, "/onboarding/data", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SaveStep merges the given fields into the payload. The server recomputes
// the current step from the merged data.
func (o *OnboardingAPI) SaveStep(ctx context.Context, fields map[string]any) (*OnboardingData, error) {
	var data OnboardingData
	if err := o.client.post(ctx, "/onboarding/step", fields, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Progress returns the step ladder.
func (o *OnboardingAPI) Progress(ctx context.Context) (*OnboardingProgress, error) {
	var progress OnboardingProgress
	if err := o.client.get(ctx, "/onboarding/progress", nil, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// Status returns the completion flags.
func (o *OnboardingAPI) Status(ctx context.Context) (*OnboardingStatus, error) {
	var status OnboardingStatus
	if err := o.client.get(ctx, "/onboarding/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Complete marks onboarding finished.
func (o *OnboardingAPI) Complete(ctx context.Context) (*OnboardingStatus, error) {
	var status OnboardingStatus
	if err := o.client.post(ctx, "/onboarding/complete", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Skip dismisses onboarding without finishing it.
func (o *OnboardingAPI) Skip(ctx context.Context) (*OnboardingStatus, error) {
	var status OnboardingStatus
	if err := o.client.post(ctx, "/onboarding/skip", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reset wipes the session so onboarding starts over.
func (o *OnboardingAPI) Reset(ctx context.Context) error {
	return o.client.post(ctx, "/onboarding/reset", nil, nil)
}
