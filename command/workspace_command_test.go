package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/tokens"
	"github.com/inchronicle/go-stories/workspace"
	"github.com/stretchr/testify/require"
)

// Runs the workspace commands over the real sqlite stores: create, the
// securelink invitation lifecycle, and member administration.
func TestWorkspaceCommands_InviteLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newCommandTestDB(t)
	applyCommandDDL(t, db,
		"../data/sql/migrations/sqlite/00009_workspaces.up.sql",
		"../data/sql/migrations/sqlite/00010_user_tokens.up.sql",
	)

	fixedTime := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clock := frozenClock{t: fixedTime}
	repo, err := workspace.NewRepository(workspace.RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)
	tokenRepo, err := tokens.NewRepository(tokens.RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)
	links := &linkManagerStub{token: "invite-link", expiration: time.Hour}

	var invitationActions []string
	manager, err := workspace.NewManager(workspace.ManagerConfig{
		Workspaces: repo,
		Tokens:     tokenRepo,
		Links:      links,
		Clock:      clock,
		Hooks: types.Hooks{
			AfterInvitation: func(_ context.Context, event types.InvitationEvent) {
				invitationActions = append(invitationActions, event.Action)
			},
		},
	})
	require.NoError(t, err)

	sink := &auditRecorder{}
	cfg := WorkspaceCommandConfig{Manager: manager, Clock: clock, Audit: sink}
	createCmd := NewCreateWorkspaceCommand(cfg)
	inviteCmd := NewInviteToWorkspaceCommand(cfg)
	acceptCmd := NewAcceptInvitationCommand(cfg)
	declineCmd := NewDeclineInvitationCommand(cfg)
	revokeCmd := NewRevokeInvitationCommand(cfg)
	roleCmd := NewChangeMemberRoleCommand(cfg)
	removeCmd := NewRemoveMemberCommand(cfg)

	owner := uuid.New()
	ownerActor := types.ActorRef{ID: owner, Type: "user"}
	scope := types.ScopeFilter{TenantID: uuid.New()}

	created := &WorkspaceResult{}
	err = createCmd.Execute(ctx, CreateWorkspaceInput{
		Workspace: types.Workspace{Name: "Platform Guild", OwnerID: owner},
		Actor:     ownerActor,
		Scope:     scope,
		Result:    created,
	})
	require.NoError(t, err)
	workspaceID := created.Workspace.ID
	require.NotEqual(t, uuid.Nil, workspaceID)

	invited := &InviteToWorkspaceResult{}
	err = inviteCmd.Execute(ctx, InviteToWorkspaceInput{
		WorkspaceID: workspaceID,
		Email:       "jordan@example.com",
		Actor:       ownerActor,
		Scope:       scope,
		Result:      invited,
	})
	require.NoError(t, err)
	require.Equal(t, "invite-link", invited.Link)
	require.Equal(t, types.InvitationPending, invited.Invitation.Status)

	invitee := uuid.New()
	links.validatePayload = links.lastPayloads[0]
	accepted := &AcceptInvitationResult{}
	err = acceptCmd.Execute(ctx, AcceptInvitationInput{
		Token:  invited.Link,
		UserID: invitee,
		Email:  "jordan@example.com",
		Actor:  types.ActorRef{ID: invitee, Type: "user"},
		Scope:  scope,
		Result: accepted,
	})
	require.NoError(t, err)
	require.Equal(t, workspaceID, accepted.Member.WorkspaceID)
	require.Equal(t, types.WorkspaceRoleMember, accepted.Member.Role)

	// The link is single use.
	err = acceptCmd.Execute(ctx, AcceptInvitationInput{
		Token:  invited.Link,
		UserID: uuid.New(),
		Email:  "jordan@example.com",
		Actor:  types.ActorRef{ID: uuid.New()},
		Scope:  scope,
	})
	require.Error(t, err)

	promoted := &MemberResult{}
	err = roleCmd.Execute(ctx, ChangeMemberRoleInput{
		WorkspaceID: workspaceID,
		UserID:      invitee,
		Role:        types.WorkspaceRoleAdmin,
		Actor:       ownerActor,
		Scope:       scope,
		Result:      promoted,
	})
	require.NoError(t, err)
	require.Equal(t, types.WorkspaceRoleAdmin, promoted.Member.Role)

	err = removeCmd.Execute(ctx, RemoveMemberInput{
		WorkspaceID: workspaceID,
		UserID:      invitee,
		Actor:       ownerActor,
		Scope:       scope,
	})
	require.NoError(t, err)

	revocable := &InviteToWorkspaceResult{}
	err = inviteCmd.Execute(ctx, InviteToWorkspaceInput{
		WorkspaceID: workspaceID,
		Email:       "casey@example.com",
		Actor:       ownerActor,
		Scope:       scope,
		Result:      revocable,
	})
	require.NoError(t, err)
	err = revokeCmd.Execute(ctx, RevokeInvitationInput{
		InvitationID: revocable.Invitation.ID,
		Actor:        ownerActor,
		Scope:        scope,
	})
	require.NoError(t, err)

	declined := &InviteToWorkspaceResult{}
	err = inviteCmd.Execute(ctx, InviteToWorkspaceInput{
		WorkspaceID: workspaceID,
		Email:       "riley@example.com",
		Actor:       ownerActor,
		Scope:       scope,
		Result:      declined,
	})
	require.NoError(t, err)
	links.validatePayload = links.lastPayloads[0]
	err = declineCmd.Execute(ctx, DeclineInvitationInput{
		Token: declined.Link,
		Email: "riley@example.com",
		Actor: types.ActorRef{ID: uuid.New()},
		Scope: scope,
	})
	require.NoError(t, err)

	verbs := make([]string, 0, len(sink.records))
	for _, record := range sink.records {
		verbs = append(verbs, record.Verb)
	}
	require.Equal(t, []string{
		"workspace.created",
		"workspace.invited",
		"workspace.invite_accepted",
		"workspace.member_role_changed",
		"workspace.member_removed",
		"workspace.invited",
		"workspace.invite_revoked",
		"workspace.invited",
		"workspace.invite_declined",
	}, verbs)
	require.Equal(t, []string{
		workspace.ActionInvited,
		workspace.ActionAccepted,
		workspace.ActionInvited,
		workspace.ActionRevoked,
		workspace.ActionInvited,
		workspace.ActionDeclined,
	}, invitationActions)
}

func TestWorkspaceCommands_RequireManager(t *testing.T) {
	cmd := NewInviteToWorkspaceCommand(WorkspaceCommandConfig{})
	err := cmd.Execute(context.Background(), InviteToWorkspaceInput{
		WorkspaceID: uuid.New(),
		Email:       "a@example.com",
		Actor:       types.ActorRef{ID: uuid.New()},
	})
	require.ErrorIs(t, err, ErrWorkspaceManagerRequired)
}
