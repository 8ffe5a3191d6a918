package command

import (
	"context"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/workspace"
)

// InviteToWorkspaceInput invites an email address into a workspace.
type InviteToWorkspaceInput struct {
	WorkspaceID uuid.UUID
	Email       string
	Role        types.WorkspaceMemberRole
	Actor       types.ActorRef
	Scope       types.ScopeFilter
	Result      *InviteToWorkspaceResult
}

// Type implements gocommand.Message.
func (InviteToWorkspaceInput) Type() string {
	return "command.workspace.invite"
}

// Validate implements gocommand.Message.
func (input InviteToWorkspaceInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.WorkspaceID == uuid.Nil:
		return ErrWorkspaceIDRequired
	case strings.TrimSpace(input.Email) == "":
		return ErrInviteEmailRequired
	default:
		return nil
	}
}

// InviteToWorkspaceResult exposes the invitation and the signed link to
// deliver to the invitee.
type InviteToWorkspaceResult struct {
	Invitation *types.WorkspaceInvitation
	Link       string
	ExpiresAt  time.Time
}

// InviteToWorkspaceCommand mints a securelink invitation. The manager gates
// the flow on workspaces.invite, enforces inviter roles, and mirrors the
// link's JTI into the tokens ledger for single-use consumption.
type InviteToWorkspaceCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewInviteToWorkspaceCommand constructs the invite handler.
func NewInviteToWorkspaceCommand(cfg WorkspaceCommandConfig) *InviteToWorkspaceCommand {
	return &InviteToWorkspaceCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[InviteToWorkspaceInput] = (*InviteToWorkspaceCommand)(nil)

// Execute creates the invitation and records who was invited.
func (c *InviteToWorkspaceCommand) Execute(ctx context.Context, input InviteToWorkspaceInput) error {
	if c.manager == nil {
		return ErrWorkspaceManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWorkspacesWrite, input.Actor.ID)
	if err != nil {
		return err
	}

	invited, err := c.manager.Invite(ctx, workspace.InviteInput{
		WorkspaceID: input.WorkspaceID,
		Email:       input.Email,
		Role:        input.Role,
		ActorID:     input.Actor.ID,
		Scope:       scopeFilter,
	})
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.Actor.ID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.invited",
		ObjectType:  "workspace_invitation",
		ObjectID:    invited.Invitation.ID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: input.WorkspaceID,
		Data: map[string]any{
			"email": invited.Invitation.Email,
			"role":  string(invited.Invitation.Role),
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Invitation = invited.Invitation
		input.Result.Link = invited.Link
		input.Result.ExpiresAt = invited.ExpiresAt
	}
	return nil
}

// AcceptInvitationInput redeems an invitation link for membership.
type AcceptInvitationInput struct {
	Token  string
	UserID uuid.UUID
	Email  string
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *AcceptInvitationResult
}

// Type implements gocommand.Message.
func (AcceptInvitationInput) Type() string {
	return "command.workspace.invite_accept"
}

// Validate implements gocommand.Message.
func (input AcceptInvitationInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case strings.TrimSpace(input.Token) == "":
		return ErrTokenRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case strings.TrimSpace(input.Email) == "":
		return ErrInviteEmailRequired
	default:
		return nil
	}
}

// AcceptInvitationResult exposes the membership created by the accept.
type AcceptInvitationResult struct {
	Member *types.WorkspaceMember
}

// AcceptInvitationCommand verifies the signed link, consumes its token
// exactly once, and adds the user as a member. A replayed link fails after
// the first accept wins.
type AcceptInvitationCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewAcceptInvitationCommand constructs the accept handler.
func NewAcceptInvitationCommand(cfg WorkspaceCommandConfig) *AcceptInvitationCommand {
	return &AcceptInvitationCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[AcceptInvitationInput] = (*AcceptInvitationCommand)(nil)

// Execute accepts the invitation and records the join.
func (c *AcceptInvitationCommand) Execute(ctx context.Context, input AcceptInvitationInput) error {
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

	member, err := c.manager.Accept(ctx, input.Token, input.UserID, input.Email)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.invite_accepted",
		ObjectType:  "workspace_member",
		ObjectID:    member.ID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: member.WorkspaceID,
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

// DeclineInvitationInput turns an invitation down.
type DeclineInvitationInput struct {
	Token string
	Email string
	Actor types.ActorRef
	Scope types.ScopeFilter
}

// Type implements gocommand.Message.
func (DeclineInvitationInput) Type() string {
	return "command.workspace.invite_decline"
}

// Validate implements gocommand.Message.
func (input DeclineInvitationInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case strings.TrimSpace(input.Token) == "":
		return ErrTokenRequired
	case strings.TrimSpace(input.Email) == "":
		return ErrInviteEmailRequired
	default:
		return nil
	}
}

// DeclineInvitationCommand declines an invitation, revoking its token so
// the link cannot be redeemed later.
type DeclineInvitationCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewDeclineInvitationCommand constructs the decline handler.
func NewDeclineInvitationCommand(cfg WorkspaceCommandConfig) *DeclineInvitationCommand {
	return &DeclineInvitationCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[DeclineInvitationInput] = (*DeclineInvitationCommand)(nil)

// Execute declines the invitation and records the decision.
func (c *DeclineInvitationCommand) Execute(ctx context.Context, input DeclineInvitationInput) error {
	if c.manager == nil {
		return ErrWorkspaceManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWorkspacesWrite, input.Actor.ID)
	if err != nil {
		return err
	}

	if err := c.manager.Decline(ctx, input.Token, input.Email); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.Actor.ID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.invite_declined",
		ObjectType:  "workspace_invitation",
		ObjectID:    strings.ToLower(strings.TrimSpace(input.Email)),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}

// RevokeInvitationInput withdraws a pending invitation.
type RevokeInvitationInput struct {
	InvitationID uuid.UUID
	Actor        types.ActorRef
	Scope        types.ScopeFilter
}

// Type implements gocommand.Message.
func (RevokeInvitationInput) Type() string {
	return "command.workspace.invite_revoke"
}

// Validate implements gocommand.Message.
func (input RevokeInvitationInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.InvitationID == uuid.Nil:
		return ErrInvitationIDRequired
	default:
		return nil
	}
}

// RevokeInvitationCommand withdraws a pending invitation and revokes its
// token. Consumed invitations cannot be revoked.
type RevokeInvitationCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewRevokeInvitationCommand constructs the revoke handler.
func NewRevokeInvitationCommand(cfg WorkspaceCommandConfig) *RevokeInvitationCommand {
	return &RevokeInvitationCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[RevokeInvitationInput] = (*RevokeInvitationCommand)(nil)

// Execute revokes the invitation and records the withdrawal.
func (c *RevokeInvitationCommand) Execute(ctx context.Context, input RevokeInvitationInput) error {
	if c.manager == nil {
		return ErrWorkspaceManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWorkspacesWrite, input.Actor.ID)
	if err != nil {
		return err
	}

	if err := c.manager.Revoke(ctx, input.Actor.ID, input.InvitationID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.Actor.ID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.invite_revoked",
		ObjectType:  "workspace_invitation",
		ObjectID:    input.InvitationID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
