package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/network"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// NetworkCommandConfig wires the shared dependencies for network commands.
type NetworkCommandConfig struct {
	Manager    *network.Manager
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// ConnectionResult exposes the connection a mutation produced.
type ConnectionResult struct {
	Connection *types.NetworkConnection
}

// FollowPeerInput opens a follow request toward another user.
type FollowPeerInput struct {
	UserID uuid.UUID
	PeerID uuid.UUID
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *ConnectionResult
}

// Type implements gocommand.Message.
func (FollowPeerInput) Type() string {
	return "command.network.follow"
}

// Validate implements gocommand.Message.
func (input FollowPeerInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.PeerID == uuid.Nil:
		return ErrPeerIDRequired
	default:
		return nil
	}
}

// FollowPeerCommand creates a pending follow toward the peer. Following
// yourself or the same peer twice is rejected by the store.
type FollowPeerCommand struct {
	manager *network.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewFollowPeerCommand constructs the follow handler.
func NewFollowPeerCommand(cfg NetworkCommandConfig) *FollowPeerCommand {
	return &FollowPeerCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[FollowPeerInput] = (*FollowPeerCommand)(nil)

// Execute opens the follow and records it.
func (c *FollowPeerCommand) Execute(ctx context.Context, input FollowPeerInput) error {
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

	conn, err := c.manager.Follow(ctx, input.UserID, input.PeerID)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "network.followed",
		ObjectType:  "connection",
		ObjectID:    conn.ID.String(),
		Channel:     "network",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"peer_id": input.PeerID.String()},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Connection = conn
	}
	return nil
}

// UnfollowPeerInput severs an existing follow.
type UnfollowPeerInput struct {
	UserID uuid.UUID
	PeerID uuid.UUID
	Actor  types.ActorRef
	Scope  types.ScopeFilter
}

// Type implements gocommand.Message.
func (UnfollowPeerInput) Type() string {
	return "command.network.unfollow"
}

// Validate implements gocommand.Message.
func (input UnfollowPeerInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.PeerID == uuid.Nil:
		return ErrPeerIDRequired
	default:
		return nil
	}
}

// UnfollowPeerCommand removes the user's follow toward the peer. Interaction
// history for the pair is gone once the edge is deleted.
type UnfollowPeerCommand struct {
	manager *network.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewUnfollowPeerCommand constructs the unfollow handler.
func NewUnfollowPeerCommand(cfg NetworkCommandConfig) *UnfollowPeerCommand {
	return &UnfollowPeerCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UnfollowPeerInput] = (*UnfollowPeerCommand)(nil)

// Execute severs the follow and records the removal.
func (c *UnfollowPeerCommand) Execute(ctx context.Context, input UnfollowPeerInput) error {
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

	if err := c.manager.Unfollow(ctx, input.UserID, input.PeerID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "network.unfollowed",
		ObjectType:  "connection",
		ObjectID:    input.PeerID.String(),
		Channel:     "network",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}

// RecordInteractionInput bumps the interaction counters for a connection.
type RecordInteractionInput struct {
	UserID uuid.UUID
	PeerID uuid.UUID
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *ConnectionResult
}

// Type implements gocommand.Message.
func (RecordInteractionInput) Type() string {
	return "command.network.interaction"
}

// Validate implements gocommand.Message.
func (input RecordInteractionInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.PeerID == uuid.Nil:
		return ErrPeerIDRequired
	default:
		return nil
	}
}

// RecordInteractionCommand notes one interaction with a peer. Counters feed
// the tier assignment, so frequent peers drift toward the inner circle.
type RecordInteractionCommand struct {
	manager *network.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewRecordInteractionCommand constructs the interaction handler.
func NewRecordInteractionCommand(cfg NetworkCommandConfig) *RecordInteractionCommand {
	return &RecordInteractionCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[RecordInteractionInput] = (*RecordInteractionCommand)(nil)

// Execute records the interaction. Tier changes surface through the
// connection hook rather than the audit trail.
func (c *RecordInteractionCommand) Execute(ctx context.Context, input RecordInteractionInput) error {
	if c.manager == nil {
		return ErrNetworkManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if _, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionNetworkWrite, input.UserID); err != nil {
		return err
	}

	conn, err := c.manager.RecordInteraction(ctx, input.UserID, input.PeerID)
	if err != nil {
		return err
	}

	if input.Result != nil {
		input.Result.Connection = conn
	}
	return nil
}
