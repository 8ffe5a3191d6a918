package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/network"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// AcceptFollowInput accepts a pending follow request.
type AcceptFollowInput struct {
	// UserID is the recipient making the decision.
	UserID uuid.UUID
	// RequesterID is the user whose request is being accepted.
	RequesterID uuid.UUID
	Actor       types.ActorRef
	Scope       types.ScopeFilter
	Result      *ConnectionResult
}

// Type implements gocommand.Message.
func (AcceptFollowInput) Type() string {
	return "command.network.accept"
}

// Validate implements gocommand.Message.
func (input AcceptFollowInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.RequesterID == uuid.Nil:
		return ErrPeerIDRequired
	default:
		return nil
	}
}

// AcceptFollowCommand accepts a follow request. Only the recipient can
// accept; the requester cannot accept their own request.
type AcceptFollowCommand struct {
	manager *network.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewAcceptFollowCommand constructs the accept handler.
func NewAcceptFollowCommand(cfg NetworkCommandConfig) *AcceptFollowCommand {
	return &AcceptFollowCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[AcceptFollowInput] = (*AcceptFollowCommand)(nil)

// Execute accepts the request and records the decision.
func (c *AcceptFollowCommand) Execute(ctx context.Context, input AcceptFollowInput) error {
	if c.manager == nil {
		return ErrNetworkManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionNetworkWrite, input.UserID)
	if err != nil {
		return err
	}

	conn, err := c.manager.Accept(ctx, input.UserID, input.RequesterID)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "network.follow_accepted",
		ObjectType:  "connection",
		ObjectID:    conn.ID.String(),
		Channel:     "network",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"requester_id": input.RequesterID.String()},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Connection = conn
	}
	return nil
}

// DeclineFollowInput declines a pending follow request.
type DeclineFollowInput struct {
	UserID      uuid.UUID
	RequesterID uuid.UUID
	Actor       types.ActorRef
	Scope       types.ScopeFilter
	Result      *ConnectionResult
}

// Type implements gocommand.Message.
func (DeclineFollowInput) Type() string {
	return "command.network.decline"
}

// Validate implements gocommand.Message.
func (input DeclineFollowInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.RequesterID == uuid.Nil:
		return ErrPeerIDRequired
	default:
		return nil
	}
}

// DeclineFollowCommand declines a follow request. The requester sees the
// declined state; nothing is silently deleted.
type DeclineFollowCommand struct {
	manager *network.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewDeclineFollowCommand constructs the decline handler.
func NewDeclineFollowCommand(cfg NetworkCommandConfig) *DeclineFollowCommand {
	return &DeclineFollowCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[DeclineFollowInput] = (*DeclineFollowCommand)(nil)

// Execute declines the request and records the decision.
func (c *DeclineFollowCommand) Execute(ctx context.Context, input DeclineFollowInput) error {
	if c.manager == nil {
		return ErrNetworkManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionNetworkWrite, input.UserID)
	if err != nil {
		return err
	}

	conn, err := c.manager.Decline(ctx, input.UserID, input.RequesterID)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "network.follow_declined",
		ObjectType:  "connection",
		ObjectID:    conn.ID.String(),
		Channel:     "network",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"requester_id": input.RequesterID.String()},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Connection = conn
	}
	return nil
}
