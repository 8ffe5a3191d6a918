package star

import (
	"strings"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

var starLabels = map[types.StarPart]string{
	types.StarSituation: "Situation",
	types.StarTask:      "Task",
	types.StarAction:    "Action",
	types.StarResult:    "Result",
}

var scopeHeadings = map[types.StarPart]struct{ key, label string }{
	types.StarSituation: {"situation", "Situation"},
	types.StarTask:      {"objective", "Objective"},
	types.StarAction:    {"plan", "Plan"},
	types.StarResult:    {"evaluation", "Evaluation"},
}

// BuildSections converts a scored narrative into framework-keyed story
// sections. An empty framework means STAR.
func BuildSections(star types.ScoredStar, framework types.StoryFramework) ([]types.StorySection, error) {
	if framework == "" {
		framework = types.FrameworkSTAR
	}
	switch framework {
	case types.FrameworkSTAR:
		return starSections(star), nil
	case types.FrameworkCAR:
		return carSections(star), nil
	case types.FrameworkSCOPE:
		return scopeSections(star), nil
	}
	return nil, types.ErrInvalidFramework
}

func starSections(star types.ScoredStar) []types.StorySection {
	sections := make([]types.StorySection, 0, 4)
	for _, section := range star.Sections() {
		sections = append(sections, toStorySection(string(section.Part), starLabels[section.Part], section))
	}
	return sections
}

// carSections folds situation and task into a single challenge block.
func carSections(star types.ScoredStar) []types.StorySection {
	return []types.StorySection{
		mergeSections("challenge", "Challenge", star.Situation, star.Task),
		toStorySection("action", "Action", star.Action),
		toStorySection("result", "Result", star.Result),
	}
}

func scopeSections(star types.ScoredStar) []types.StorySection {
	sections := make([]types.StorySection, 0, 4)
	for _, section := range star.Sections() {
		heading := scopeHeadings[section.Part]
		sections = append(sections, toStorySection(heading.key, heading.label, section))
	}
	return sections
}

func toStorySection(key, label string, section types.StarSection) types.StorySection {
	return types.StorySection{
		Key:        key,
		Label:      label,
		Text:       section.Text,
		Sources:    append([]uuid.UUID(nil), section.Sources...),
		Confidence: section.Confidence,
	}
}

func mergeSections(key, label string, first, second types.StarSection) types.StorySection {
	merged := types.StorySection{Key: key, Label: label}

	texts := make([]string, 0, 2)
	if first.Text != "" {
		texts = append(texts, first.Text)
	}
	if second.Text != "" {
		texts = append(texts, second.Text)
	}
	merged.Text = strings.Join(texts, " ")

	seen := make(map[uuid.UUID]struct{}, len(first.Sources)+len(second.Sources))
	for _, id := range append(append([]uuid.UUID(nil), first.Sources...), second.Sources...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged.Sources = append(merged.Sources, id)
	}

	switch {
	case first.Text != "" && second.Text != "":
		merged.Confidence = (first.Confidence + second.Confidence) / 2
	case first.Text != "":
		merged.Confidence = first.Confidence
	case second.Text != "":
		merged.Confidence = second.Confidence
	}
	return merged
}
