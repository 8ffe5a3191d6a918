package star

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/inchronicle/go-stories/pkg/types"
)

func TestAnalyzeJournalDetectsArchetypeAndQuestions(t *testing.T) {
	entry := types.JournalEntry{
		Title: "Payments revamp",
		Body: "We built a new checkout service and shipped it. " +
			"I implemented the billing retries because the old flow was broken.",
	}

	analysis := AnalyzeJournal(entry)

	require.Equal(t, types.ArchetypeBuilder, analysis.Archetype)
	require.Equal(t, "Payments revamp", analysis.SuggestedTitle)
	require.Equal(t, 2, analysis.Coverage[types.StarSituation])
	require.Equal(t, 0, analysis.Coverage[types.StarTask])
	require.Equal(t, 2, analysis.Coverage[types.StarAction])
	require.Equal(t, 1, analysis.Coverage[types.StarResult])

	// The three weakest parts, asked in narrative order.
	require.Len(t, analysis.Questions, 3)
	require.Equal(t, types.StarSituation, analysis.Questions[0].Part)
	require.Equal(t, types.StarTask, analysis.Questions[1].Part)
	require.Equal(t, types.StarResult, analysis.Questions[2].Part)
	require.NotEmpty(t, analysis.Questions[1].Prompt)
}

func TestAnalyzeJournalDefaultsToExplorer(t *testing.T) {
	analysis := AnalyzeJournal(types.JournalEntry{Body: "Quiet week of reading docs."})

	require.Equal(t, types.ArchetypeExplorer, analysis.Archetype)
	require.Equal(t, "Quiet week of reading docs", analysis.SuggestedTitle)
	require.Equal(t, types.StarSituation, analysis.Questions[0].Part)
	require.Equal(t, types.StarTask, analysis.Questions[1].Part)
	require.Equal(t, types.StarAction, analysis.Questions[2].Part)
}

func TestGenerateFromWizardBuildsDraft(t *testing.T) {
	userID := uuid.New()
	request := WizardRequest{
		UserID: userID,
		Title:  "Incident recovery",
		Body: "The checkout page was broken because of a bad deploy. " +
			"I debugged the deploy, fixed the root cause, and wrote a regression test. " +
			"We shipped the patch and reduced error rates.",
		Answers: map[string]string{"task": "Restore checkout within the day."},
	}

	story, evaluation, err := GenerateFromWizard(request)
	require.NoError(t, err)

	require.Equal(t, userID, story.UserID)
	require.Equal(t, "Incident recovery", story.Title)
	require.Equal(t, types.StoryStateDraft, story.State)
	require.Equal(t, types.VisibilityPrivate, story.Visibility)
	require.Equal(t, types.FrameworkSTAR, story.Framework)
	require.Equal(t, types.ArchetypeFixer, story.Archetype)
	require.InDelta(t, 0.44, story.Confidence, 1e-9)

	require.Equal(t, []string{"situation", "task", "action", "result"}, sectionKeys(story.Sections))
	require.Equal(t, "The checkout page was broken because of a bad deploy.", story.Sections[0].Text)
	require.Equal(t, "Restore checkout within the day.", story.Sections[1].Text)
	require.InDelta(t, 0.6, story.Sections[1].Confidence, 1e-9)
	require.Equal(t, "We shipped the patch and reduced error rates.", story.Sections[3].Text)

	require.True(t, evaluation.Passed)
	require.InDelta(t, 1.0, evaluation.Score, 1e-9)
	// Derived-only sections score 0.4 and read as thin.
	require.Len(t, evaluation.Warnings, 3)
}

func TestGenerateFromWizardAnswersBeatDerivedText(t *testing.T) {
	request := WizardRequest{
		UserID: uuid.New(),
		Body:   "I wrote the migration tool.",
		Answers: map[string]string{
			"action": "Designed and wrote the migration tool end to end.",
		},
	}

	story, _, err := GenerateFromWizard(request)
	require.NoError(t, err)

	action := story.Section("action")
	require.NotNil(t, action)
	require.Equal(t, "Designed and wrote the migration tool end to end. I wrote the migration tool.", action.Text)
	require.InDelta(t, 0.7, action.Confidence, 1e-9)
}

func TestGenerateFromWizardValidatesInput(t *testing.T) {
	_, _, err := GenerateFromWizard(WizardRequest{Body: "something"})
	require.ErrorIs(t, err, types.ErrUserIDRequired)

	_, _, err = GenerateFromWizard(WizardRequest{UserID: uuid.New()})
	require.ErrorIs(t, err, ErrWizardInput)

	_, _, err = GenerateFromWizard(WizardRequest{
		UserID: uuid.New(), Body: "something", Framework: types.StoryFramework("epic"),
	})
	require.ErrorIs(t, err, types.ErrInvalidFramework)

	_, _, err = GenerateFromWizard(WizardRequest{
		UserID: uuid.New(), Body: "something", Visibility: types.StoryVisibility("public"),
	})
	require.ErrorIs(t, err, types.ErrInvalidVisibility)
}

func TestGenerateFromWizardCarFramework(t *testing.T) {
	request := WizardRequest{
		UserID:    uuid.New(),
		Body:      "The queue was broken because of a bad config.",
		Answers:   map[string]string{"task": "Get consumers draining again."},
		Framework: types.FrameworkCAR,
	}

	story, _, err := GenerateFromWizard(request)
	require.NoError(t, err)

	require.Equal(t, []string{"challenge", "action", "result"}, sectionKeys(story.Sections))
	require.Equal(t, "The queue was broken because of a bad config. Get consumers draining again.",
		story.Sections[0].Text)
	require.InDelta(t, 0.5, story.Sections[0].Confidence, 1e-9)
}
