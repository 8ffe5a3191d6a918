package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/workspace"
)

// ChangeMemberRoleInput changes a member's role inside a workspace.
type ChangeMemberRoleInput struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Role        types.WorkspaceMemberRole
	Actor       types.ActorRef
	Scope       types.ScopeFilter
	Result      *MemberResult
}

// Type implements gocommand.Message.
func (ChangeMemberRoleInput) Type() string {
	return "command.workspace.member_role"
}

// Validate implements gocommand.Message.
func (input ChangeMemberRoleInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.WorkspaceID == uuid.Nil:
		return ErrWorkspaceIDRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.Role == "":
		return ErrMemberRoleRequired
	default:
		return nil
	}
}

// MemberResult exposes the membership a mutation produced.
type MemberResult struct {
	Member *types.WorkspaceMember
}

// ChangeMemberRoleCommand promotes or demotes a member. The manager refuses
// to demote the last owner so every workspace keeps one.
type ChangeMemberRoleCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewChangeMemberRoleCommand constructs the role change handler.
func NewChangeMemberRoleCommand(cfg WorkspaceCommandConfig) *ChangeMemberRoleCommand {
	return &ChangeMemberRoleCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[ChangeMemberRoleInput] = (*ChangeMemberRoleCommand)(nil)

// Execute changes the role and records the transition.
func (c *ChangeMemberRoleCommand) Execute(ctx context.Context, input ChangeMemberRoleInput) error {
	if c.manager == nil {
		return ErrWorkspaceManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWorkspacesWrite, input.UserID)
	if err != nil {
		return err
	}

	member, err := c.manager.ChangeMemberRole(ctx, input.Actor.ID, input.WorkspaceID, input.UserID, input.Role)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.member_role_changed",
		ObjectType:  "workspace_member",
		ObjectID:    member.ID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: input.WorkspaceID,
		Data:        map[string]any{"role": string(member.Role)},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Member = member
	}
	return nil
}

// RemoveMemberInput removes a member from a workspace.
type RemoveMemberInput struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Actor       types.ActorRef
	Scope       types.ScopeFilter
}

// Type implements gocommand.Message.
func (RemoveMemberInput) Type() string {
	return "command.workspace.member_remove"
}

// Validate implements gocommand.Message.
func (input RemoveMemberInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.WorkspaceID == uuid.Nil:
		return ErrWorkspaceIDRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// RemoveMemberCommand removes a member. Members may remove themselves;
// removing others takes an owner or admin, and the last owner cannot leave.
type RemoveMemberCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewRemoveMemberCommand constructs the removal handler.
func NewRemoveMemberCommand(cfg WorkspaceCommandConfig) *RemoveMemberCommand {
	return &RemoveMemberCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[RemoveMemberInput] = (*RemoveMemberCommand)(nil)

// Execute removes the member and records the removal.
func (c *RemoveMemberCommand) Execute(ctx context.Context, input RemoveMemberInput) error {
	if c.manager == nil {
		return ErrWorkspaceManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWorkspacesWrite, input.UserID)
	if err != nil {
		return err
	}

	if err := c.manager.RemoveMember(ctx, input.Actor.ID, input.WorkspaceID, input.UserID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.member_removed",
		ObjectType:  "workspace_member",
		ObjectID:    input.UserID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: input.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
