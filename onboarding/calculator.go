package onboarding

import (
	"strings"

	"github.com/inchronicle/go-stories/pkg/types"
)

// Payload keys read by the step calculator.
const (
	FieldDisplayName       = "display_name"
	FieldTitle             = "title"
	FieldSkills            = "skills"
	FieldToolsConnected    = "tools_connected"
	FieldClustersGenerated = "clusters_generated"
	FieldStoriesDrafted    = "stories_drafted"
	FieldStoriesPublished  = "stories_published"
)

// StepState reports one wizard step for progress displays.
type StepState struct {
	Step int
	Name string
	Done bool
}

// StepCalculator derives the onboarding step from the collected fields.
// Steps four through seven track imported data, so demo mode satisfies them
// outright.
type StepCalculator struct{}

type stepGate struct {
	name string
	demo bool
	met  func(types.OnboardingRecord) bool
}

var stepGates = []stepGate{
	{name: "profile", met: func(r types.OnboardingRecord) bool { return stringField(r, FieldDisplayName) != "" }},
	{name: "role", met: func(r types.OnboardingRecord) bool { return stringField(r, FieldTitle) != "" }},
	{name: "skills", met: func(r types.OnboardingRecord) bool { return countField(r, FieldSkills) >= 1 }},
	{name: "tools", demo: true, met: func(r types.OnboardingRecord) bool { return countField(r, FieldToolsConnected) >= 1 }},
	{name: "cluster", demo: true, met: func(r types.OnboardingRecord) bool { return countField(r, FieldClustersGenerated) >= 1 }},
	{name: "draft", demo: true, met: func(r types.OnboardingRecord) bool { return countField(r, FieldStoriesDrafted) >= 1 }},
	{name: "publish", demo: true, met: func(r types.OnboardingRecord) bool { return countField(r, FieldStoriesPublished) >= 1 }},
}

func (g stepGate) satisfied(record types.OnboardingRecord) bool {
	if g.demo && record.DemoMode {
		return true
	}
	return g.met(record)
}

// CurrentStep returns the 1-based step the user sits on: the first gate whose
// requirement is unmet, capped at the final step. A previously reached step
// is never lowered, so removing a field cannot move the wizard backwards.
func (StepCalculator) CurrentStep(record types.OnboardingRecord) int {
	step := 1
	for _, gate := range stepGates {
		if !gate.satisfied(record) {
			break
		}
		step++
	}
	step = min(step, types.OnboardingSteps)
	if stored := min(record.CurrentStep, types.OnboardingSteps); stored > step {
		step = stored
	}
	return step
}

// Steps reports every gate with its completion state, in wizard order.
func (StepCalculator) Steps(record types.OnboardingRecord) []StepState {
	states := make([]StepState, 0, len(stepGates))
	for i, gate := range stepGates {
		states = append(states, StepState{Step: i + 1, Name: gate.name, Done: gate.satisfied(record)})
	}
	return states
}

func stringField(record types.OnboardingRecord, key string) string {
	value, _ := record.Field(key).(string)
	return strings.TrimSpace(value)
}

// countField reads a numeric or list field, tolerating the shapes a JSON
// round-trip produces.
func countField(record types.OnboardingRecord, key string) int {
	switch value := record.Field(key).(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case bool:
		if value {
			return 1
		}
		return 0
	case string:
		if strings.TrimSpace(value) == "" {
			return 0
		}
		return 1
	case []string:
		return len(value)
	case []any:
		return len(value)
	default:
		return 0
	}
}
