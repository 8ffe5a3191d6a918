package crudsvc

import (
	"context"
	"testing"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/command"
	"github.com/inchronicle/go-stories/crudguard"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/query"
	"github.com/stretchr/testify/require"
)

func TestActivityServiceCreateRoutesImport(t *testing.T) {
	t.Helper()
	actorID := uuid.New()
	tenantID := uuid.New()
	importCmd := &stubActivityImportCmd{}
	sink := &recordingAuditSink{}
	svc := NewActivityService(ActivityServiceConfig{
		Guard: &stubGuardAdapter{
			result: crudguard.GuardResult{
				Actor: types.ActorRef{ID: actorID, Type: types.ActorRoleWorkspaceAdmin},
				Scope: types.ScopeFilter{TenantID: tenantID},
			},
		},
		Import: importCmd,
	}, WithAuditEmitter(SinkEmitter{Sink: sink}))
	ctx := newTestCrudContext(context.Background())

	created, err := svc.Create(ctx, &types.ToolActivity{
		Source:    types.SourceGitHub,
		SourceID:  "pr-200",
		Title:     "Hardened the webhook verifier",
		Timestamp: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, 1, importCmd.calls)
	require.Equal(t, actorID, importCmd.lastInput.Activity.UserID)
	require.Equal(t, tenantID, importCmd.lastInput.Activity.TenantID)
	require.Equal(t, "pr-200", created.SourceID)

	require.Len(t, sink.records, 1)
	require.Equal(t, "activity.import", sink.records[0].Verb)
	require.Equal(t, "crud", sink.records[0].Channel)
}

func TestActivityServiceCreateBatch(t *testing.T) {
	t.Helper()
	importCmd := &stubActivityImportCmd{}
	svc := NewActivityService(ActivityServiceConfig{
		Guard: &stubGuardAdapter{
			result: crudguard.GuardResult{
				Actor: types.ActorRef{ID: uuid.New(), Type: types.ActorRoleWorkspaceAdmin},
			},
		},
		Import: importCmd,
	})
	ctx := newTestCrudContext(context.Background())

	records := []*types.ToolActivity{
		{Source: types.SourceJira, SourceID: "PAY-10", Title: "Scoped the rollout"},
		{Source: types.SourceSlack, SourceID: "msg-44", Title: "Handover thread"},
	}
	created, err := svc.CreateBatch(ctx, records)
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, 2, importCmd.calls)
}

func TestActivityServiceUpdateNotSupported(t *testing.T) {
	t.Helper()
	svc := NewActivityService(ActivityServiceConfig{
		Guard: &stubGuardAdapter{},
	})
	ctx := newTestCrudContext(context.Background())

	_, err := svc.Update(ctx, &types.ToolActivity{ID: uuid.New()})
	require.Error(t, err)
	_, err = svc.UpdateBatch(ctx, nil)
	require.Error(t, err)
}

func TestActivityServiceShowInvalidID(t *testing.T) {
	t.Helper()
	svc := NewActivityService(ActivityServiceConfig{
		Guard:  &stubGuardAdapter{},
		Detail: &stubActivityDetailQuery{},
	})
	ctx := newTestCrudContext(context.Background())

	_, err := svc.Show(ctx, "not-a-uuid", nil)
	require.Error(t, err)
}

func TestActivityServiceIndexParsesFilters(t *testing.T) {
	t.Helper()
	actorID := uuid.New()
	feed := &stubActivityFeedQuery{}
	svc := NewActivityService(ActivityServiceConfig{
		Guard: &stubGuardAdapter{
			result: crudguard.GuardResult{
				Actor: types.ActorRef{ID: actorID, Type: types.ActorRoleWorkspaceAdmin},
			},
		},
		Feed: feed,
	})
	ctx := newTestCrudContext(context.Background())
	ctx.queries["source"] = "github,jira,bogus"
	ctx.queries["unclustered"] = "true"
	ctx.queries["q"] = "gateway"
	ctx.queries["limit"] = "10"

	_, _, err := svc.Index(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, actorID, feed.lastFilter.UserID)
	require.Equal(t, []types.ActivitySource{types.SourceGitHub, types.SourceJira}, feed.lastFilter.Sources)
	require.True(t, feed.lastFilter.Unclustered)
	require.Equal(t, "gateway", feed.lastFilter.Keyword)
	require.Equal(t, 10, feed.lastFilter.Pagination.Limit)
}

// ----- activity stubs -----

type stubActivityImportCmd struct {
	calls     int
	lastInput command.ImportActivityInput
	err       error
}

func (s *stubActivityImportCmd) Execute(_ context.Context, input command.ImportActivityInput) error {
	s.calls++
	s.lastInput = input
	if input.Result != nil {
		activity := input.Activity
		if activity.ID == uuid.Nil {
			activity.ID = uuid.New()
		}
		input.Result.Activity = &activity
		input.Result.Created = true
	}
	return s.err
}

type stubActivityDeleteCmd struct {
	calls     int
	lastInput command.DeleteActivityInput
	err       error
}

func (s *stubActivityDeleteCmd) Execute(_ context.Context, input command.DeleteActivityInput) error {
	s.calls++
	s.lastInput = input
	return s.err
}

type stubActivityDetailQuery struct {
	result *types.ToolActivity
}

func (s *stubActivityDetailQuery) Query(context.Context, query.ActivityDetailInput) (*types.ToolActivity, error) {
	return s.result, nil
}

type recordingAuditSink struct {
	records []types.AuditRecord
}

func (s *recordingAuditSink) Log(_ context.Context, record types.AuditRecord) error {
	s.records = append(s.records, record)
	return nil
}

var _ gocommand.Commander[command.ImportActivityInput] = (*stubActivityImportCmd)(nil)
var _ gocommand.Commander[command.DeleteActivityInput] = (*stubActivityDeleteCmd)(nil)
