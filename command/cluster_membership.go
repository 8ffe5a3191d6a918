package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// AddClusterActivityInput moves one activity into a cluster.
type AddClusterActivityInput struct {
	UserID     uuid.UUID
	ClusterID  uuid.UUID
	ActivityID uuid.UUID
	Actor      types.ActorRef
	Scope      types.ScopeFilter
	Result     *ClusterResult
}

// Type implements gocommand.Message.
func (AddClusterActivityInput) Type() string {
	return "command.cluster.activity_add"
}

// Validate implements gocommand.Message.
func (input AddClusterActivityInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.ClusterID == uuid.Nil:
		return ErrClusterIDRequired
	case input.ActivityID == uuid.Nil:
		return ErrActivityIDRequired
	default:
		return nil
	}
}

// AddClusterActivityCommand assigns an activity to a cluster. Activities
// belong to at most one cluster, so adding steals from any previous one.
type AddClusterActivityCommand struct {
	manager *cluster.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewAddClusterActivityCommand constructs the add handler.
func NewAddClusterActivityCommand(cfg ClusterCommandConfig) *AddClusterActivityCommand {
	return &AddClusterActivityCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[AddClusterActivityInput] = (*AddClusterActivityCommand)(nil)

// Execute adds the activity and records the membership change.
func (c *AddClusterActivityCommand) Execute(ctx context.Context, input AddClusterActivityInput) error {
	if c.manager == nil {
		return ErrClusterManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionClustersWrite, input.UserID)
	if err != nil {
		return err
	}

	updated, err := c.manager.AddActivity(ctx, input.UserID, input.ClusterID, input.ActivityID)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "cluster.activity_added",
		ObjectType:  "cluster",
		ObjectID:    input.ClusterID.String(),
		Channel:     "clusters",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"activity_id": input.ActivityID.String(),
			"activities":  updated.ActivityCount,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Cluster = updated
	}
	return nil
}

// RemoveClusterActivityInput returns one activity to the unclustered pool.
type RemoveClusterActivityInput struct {
	UserID     uuid.UUID
	ClusterID  uuid.UUID
	ActivityID uuid.UUID
	// KeepEmpty preserves the cluster when its last member leaves; the
	// default removes the emptied cluster.
	KeepEmpty bool
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *ClusterResult
}

// Type implements gocommand.Message.
func (RemoveClusterActivityInput) Type() string {
	return "command.cluster.activity_remove"
}

// Validate implements gocommand.Message.
func (input RemoveClusterActivityInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.ClusterID == uuid.Nil:
		return ErrClusterIDRequired
	case input.ActivityID == uuid.Nil:
		return ErrActivityIDRequired
	default:
		return nil
	}
}

// RemoveClusterActivityCommand detaches an activity from its cluster. The
// activity itself is never deleted.
type RemoveClusterActivityCommand struct {
	manager *cluster.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewRemoveClusterActivityCommand constructs the remove handler.
func NewRemoveClusterActivityCommand(cfg ClusterCommandConfig) *RemoveClusterActivityCommand {
	return &RemoveClusterActivityCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[RemoveClusterActivityInput] = (*RemoveClusterActivityCommand)(nil)

// Execute removes the activity and records whether the cluster survived.
func (c *RemoveClusterActivityCommand) Execute(ctx context.Context, input RemoveClusterActivityInput) error {
	if c.manager == nil {
		return ErrClusterManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionClustersWrite, input.UserID)
	if err != nil {
		return err
	}

	remaining, err := c.manager.RemoveActivity(ctx, input.UserID, input.ClusterID, input.ActivityID, input.KeepEmpty)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "cluster.activity_removed",
		ObjectType:  "cluster",
		ObjectID:    input.ClusterID.String(),
		Channel:     "clusters",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"activity_id": input.ActivityID.String(),
			"removed":     remaining == nil,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Cluster = remaining
	}
	return nil
}
