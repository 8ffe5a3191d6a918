package star

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// wizardQuestionCount is how many clarifying questions an analysis returns.
const wizardQuestionCount = 3

// ErrWizardInput indicates the wizard got neither journal text nor answers.
var ErrWizardInput = errors.New("star: wizard needs journal text or answers")

// partKeywords map narrative parts to the vocabulary that signals them in
// free-form writing. Matching is by token prefix.
var partKeywords = map[types.StarPart][]string{
	types.StarSituation: {"because", "context", "before", "problem", "needed", "struggl", "background", "broken"},
	types.StarTask:      {"goal", "objective", "asked", "responsib", "aim", "target", "assigned", "wanted"},
	types.StarAction:    {"built", "wrote", "implemented", "designed", "created", "fixed", "organized", "ran", "paired", "refactored"},
	types.StarResult:    {"shipped", "launched", "result", "outcome", "improv", "reduc", "increas", "landed", "completed", "adopted"},
}

// archetypeKeywords drive archetype detection. Order breaks ties.
var archetypeKeywords = []struct {
	archetype types.StoryArchetype
	keywords  []string
}{
	{types.ArchetypeBuilder, []string{"build", "built", "create", "launch", "ship", "design", "implement"}},
	{types.ArchetypeFixer, []string{"fix", "debug", "incident", "outage", "resolve", "repair"}},
	{types.ArchetypeLeader, []string{"led", "organize", "mentor", "coordinate", "drive", "align"}},
	{types.ArchetypeExplorer, []string{"research", "explore", "prototype", "investigate", "experiment", "learn"}},
}

var wizardPrompts = map[types.StarPart]string{
	types.StarSituation: "What was going on before this work started, and why did it matter?",
	types.StarTask:      "What were you specifically trying to accomplish?",
	types.StarAction:    "What did you personally do to move the work forward?",
	types.StarResult:    "How did it end, and what changed because of it?",
}

// WizardQuestion is one clarifying prompt targeting a narrative part.
type WizardQuestion struct {
	Part   types.StarPart
	Prompt string
}

// WizardAnalysis is the wizard's read of a journal entry: the detected
// archetype, per part keyword coverage, and the strongest clarifying
// questions to ask next.
type WizardAnalysis struct {
	Archetype      types.StoryArchetype
	SuggestedTitle string
	Coverage       map[types.StarPart]int
	Questions      []WizardQuestion
}

// WizardRequest carries journal text and clarifying answers into story
// generation. Answers are keyed by part name ("situation", "task", ...).
type WizardRequest struct {
	UserID     uuid.UUID
	Title      string
	Body       string
	Answers    map[string]string
	Framework  types.StoryFramework
	Visibility types.StoryVisibility
}

// AnalyzeJournal detects the entry's archetype and picks the three weakest
// narrative parts to ask about, in narrative order.
func AnalyzeJournal(entry types.JournalEntry) WizardAnalysis {
	text := entry.Title + " " + entry.Body + " " + strings.Join(entry.Tags, " ")
	tokens := wizardTokens(text)

	analysis := WizardAnalysis{
		Archetype:      detectArchetype(tokens),
		SuggestedTitle: suggestTitle(entry),
		Coverage:       make(map[types.StarPart]int, 4),
	}
	for _, part := range types.StarParts() {
		analysis.Coverage[part] = keywordHits(tokens, partKeywords[part])
	}

	weakest := append([]types.StarPart(nil), types.StarParts()...)
	sort.SliceStable(weakest, func(i, j int) bool {
		return analysis.Coverage[weakest[i]] < analysis.Coverage[weakest[j]]
	})
	weakest = weakest[:wizardQuestionCount]
	sort.Slice(weakest, func(i, j int) bool {
		return partOrder(weakest[i]) < partOrder(weakest[j])
	})

	for _, part := range weakest {
		analysis.Questions = append(analysis.Questions, WizardQuestion{Part: part, Prompt: wizardPrompts[part]})
	}
	return analysis
}

// GenerateFromWizard turns journal text plus answers into a draft story.
// Answered parts outrank derived ones; the returned validation only runs the
// narrative gates since wizard stories carry no activity evidence.
func GenerateFromWizard(request WizardRequest) (*types.CareerStory, types.StarValidation, error) {
	if request.UserID == uuid.Nil {
		return nil, types.StarValidation{}, types.ErrUserIDRequired
	}
	if strings.TrimSpace(request.Body) == "" && len(request.Answers) == 0 {
		return nil, types.StarValidation{}, ErrWizardInput
	}
	framework := request.Framework
	if framework == "" {
		framework = types.FrameworkSTAR
	}
	if !framework.Valid() {
		return nil, types.StarValidation{}, types.ErrInvalidFramework
	}
	visibility := request.Visibility
	if visibility == "" {
		visibility = types.VisibilityPrivate
	}
	if !visibility.Valid() {
		return nil, types.StarValidation{}, types.ErrInvalidVisibility
	}

	derived := assignSentences(request.Body)
	star := types.ScoredStar{}
	for _, part := range types.StarParts() {
		star.SetSection(part, wizardSection(part, request.Answers[string(part)], derived[part]))
	}
	star.OverallConfidence = overallConfidence(star)

	fullText := request.Body
	for _, answer := range request.Answers {
		fullText += " " + answer
	}
	archetype := detectArchetype(wizardTokens(fullText))

	sections, err := BuildSections(star, framework)
	if err != nil {
		return nil, types.StarValidation{}, err
	}

	title := strings.TrimSpace(request.Title)
	if title == "" {
		title = suggestTitle(types.JournalEntry{Body: request.Body})
	}

	story := &types.CareerStory{
		UserID:     request.UserID,
		Title:      title,
		Framework:  framework,
		Archetype:  archetype,
		Sections:   sections,
		Confidence: star.OverallConfidence,
		Visibility: visibility,
		State:      types.StoryStateDraft,
	}
	return story, wizardValidation(star, DefaultMinConfidence), nil
}

// wizardSection composes one part from an answer and derived sentences. An
// answer alone scores 0.6, derived text alone 0.4, both 0.7.
func wizardSection(part types.StarPart, answer string, sentences []string) types.StarSection {
	section := types.StarSection{Part: part}
	answer = strings.TrimSpace(answer)

	parts := make([]string, 0, 1+len(sentences))
	if answer != "" {
		parts = append(parts, answer)
	}
	parts = append(parts, sentences...)
	section.Text = strings.Join(parts, " ")

	switch {
	case answer != "" && len(sentences) > 0:
		section.Confidence = 0.7
	case answer != "":
		section.Confidence = 0.6
	case len(sentences) > 0:
		section.Confidence = 0.4
	}
	return section
}

// wizardValidation runs the narrative gates only: wizard stories have no
// source activities to attribute or date range to check.
func wizardValidation(star types.ScoredStar, threshold float64) types.StarValidation {
	nonempty := true
	for _, section := range star.Sections() {
		if section.Text == "" {
			nonempty = false
		}
	}

	gates := []struct {
		name   string
		passed bool
	}{
		{GatePartsNonempty, nonempty},
		{GateMinConfidence, star.OverallConfidence >= threshold},
	}

	result := types.StarValidation{Passed: true}
	passed := 0
	for _, gate := range gates {
		if gate.passed {
			passed++
			continue
		}
		result.Passed = false
		result.FailedGates = append(result.FailedGates, gate.name)
	}
	result.Score = float64(passed) / float64(len(gates))

	for _, section := range star.Sections() {
		if section.Text != "" && section.Confidence < editThreshold {
			result.Warnings = append(result.Warnings, string(section.Part)+" section needs more detail")
		}
	}
	return result
}

// assignSentences routes each sentence of the body to the part whose
// vocabulary it matches best. Sentences with no signal read as context.
func assignSentences(body string) map[types.StarPart][]string {
	assigned := make(map[types.StarPart][]string, 4)
	for _, sentence := range splitSentences(body) {
		part, ok := bestPart(sentence)
		if !ok {
			part = types.StarSituation
		}
		assigned[part] = append(assigned[part], sentence)
	}
	return assigned
}

func splitSentences(body string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		if sentence := strings.TrimSpace(current.String()); sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}
	for _, r := range body {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '\n':
			flush()
		}
	}
	flush()
	return sentences
}

func bestPart(sentence string) (types.StarPart, bool) {
	tokens := wizardTokens(sentence)
	best := types.StarSituation
	bestHits := 0
	for _, part := range types.StarParts() {
		if hits := keywordHits(tokens, partKeywords[part]); hits > bestHits {
			best = part
			bestHits = hits
		}
	}
	return best, bestHits > 0
}

func detectArchetype(tokens []string) types.StoryArchetype {
	best := types.ArchetypeExplorer
	bestHits := 0
	for _, entry := range archetypeKeywords {
		if hits := keywordHits(tokens, entry.keywords); hits > bestHits {
			best = entry.archetype
			bestHits = hits
		}
	}
	return best
}

func keywordHits(tokens []string, keywords []string) int {
	hits := 0
	for _, token := range tokens {
		for _, keyword := range keywords {
			if strings.HasPrefix(token, keyword) {
				hits++
				break
			}
		}
	}
	return hits
}

func partOrder(part types.StarPart) int {
	for i, candidate := range types.StarParts() {
		if candidate == part {
			return i
		}
	}
	return len(types.StarParts())
}

func wizardTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func suggestTitle(entry types.JournalEntry) string {
	if title := strings.TrimSpace(entry.Title); title != "" {
		return title
	}
	sentences := splitSentences(entry.Body)
	if len(sentences) == 0 {
		return "Untitled story"
	}
	title := strings.TrimRight(sentences[0], ".!?")
	runes := []rune(title)
	if len(runes) > 60 {
		title = string(runes[:60])
	}
	return title
}
