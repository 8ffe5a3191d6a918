package command

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/pkg/types"
)

func newBulkImportEnv(t *testing.T) (*BulkImportActivitiesCommand, *auditRecorder) {
	t.Helper()

	db := newCommandTestDB(t)
	applyCommandDDL(t, db, "../data/sql/migrations/sqlite/00002_tool_activity.up.sql")

	activities, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)

	sink := &auditRecorder{}
	importCmd := NewImportActivityCommand(ImportActivityConfig{
		Repository: activities,
		Audit:      sink,
	})
	return NewBulkImportActivitiesCommand(importCmd), sink
}

func bulkActivity(userID uuid.UUID, source types.ActivitySource, sourceID, title string) types.ToolActivity {
	return types.ToolActivity{
		UserID:    userID,
		Source:    source,
		SourceID:  sourceID,
		Title:     title,
		Timestamp: time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestBulkImportActivitiesCommand_ContinueOnError(t *testing.T) {
	ctx := context.Background()
	cmd, sink := newBulkImportEnv(t)

	userID := uuid.New()
	actor := types.ActorRef{ID: userID, Type: "user"}

	var results []BulkImportActivityResult
	err := cmd.Execute(ctx, BulkImportActivitiesInput{
		Activities: []types.ToolActivity{
			bulkActivity(userID, types.SourceJira, "BILL-101", "Billing ticket"),
			bulkActivity(userID, types.SourceGitHub, "", "Pull request missing its id"),
			bulkActivity(userID, types.SourceSlack, "msg-9", "Retro thread"),
		},
		Actor:           actor,
		ContinueOnError: true,
		Results:         &results,
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrActivitySourceIDRequired)

	require.Len(t, results, 3)
	require.True(t, results[0].Created)
	require.NotEqual(t, uuid.Nil, results[0].ActivityID)
	require.NoError(t, results[0].Err)

	require.Error(t, results[1].Err)
	var richErr *goerrors.Error
	require.True(t, errors.As(results[1].Err, &richErr))
	require.Equal(t, goerrors.CategoryValidation, richErr.Category)
	require.Equal(t, 1, richErr.Metadata["index"])

	require.True(t, results[2].Created)

	// The failed record never reached the repository, so only the two good
	// imports were audited.
	verbs := make([]string, 0, len(sink.records))
	for _, record := range sink.records {
		verbs = append(verbs, record.Verb)
	}
	require.Equal(t, []string{"activity.imported", "activity.imported"}, verbs)
}

func TestBulkImportActivitiesCommand_StopsOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	cmd, sink := newBulkImportEnv(t)

	userID := uuid.New()
	actor := types.ActorRef{ID: userID, Type: "user"}

	var results []BulkImportActivityResult
	err := cmd.Execute(ctx, BulkImportActivitiesInput{
		Activities: []types.ToolActivity{
			bulkActivity(userID, types.SourceJira, "BILL-101", "Billing ticket"),
			bulkActivity(userID, types.SourceGitHub, "", "Pull request missing its id"),
			bulkActivity(userID, types.SourceSlack, "msg-9", "Retro thread"),
		},
		Actor:   actor,
		Results: &results,
	})
	require.Error(t, err)

	require.Len(t, results, 2)
	require.True(t, results[0].Created)
	require.Error(t, results[1].Err)
	require.Len(t, sink.records, 1)
}

func TestBulkImportActivitiesCommand_ValidateInputs(t *testing.T) {
	ctx := context.Background()
	cmd, _ := newBulkImportEnv(t)

	err := cmd.Execute(ctx, BulkImportActivitiesInput{
		Actor: types.ActorRef{ID: uuid.New(), Type: "user"},
	})
	require.ErrorIs(t, err, ErrActivitiesRequired)

	err = NewBulkImportActivitiesCommand(nil).Execute(ctx, BulkImportActivitiesInput{
		Activities: []types.ToolActivity{bulkActivity(uuid.New(), types.SourceJira, "BILL-1", "ticket")},
		Actor:      types.ActorRef{ID: uuid.New(), Type: "user"},
	})
	require.Error(t, err)
	var richErr *goerrors.Error
	require.True(t, errors.As(err, &richErr))
	require.Equal(t, goerrors.CategoryInternal, richErr.Category)
}
