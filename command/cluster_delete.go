package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// DeleteClusterInput removes a cluster, releasing its members.
type DeleteClusterInput struct {
	UserID    uuid.UUID
	ClusterID uuid.UUID
	Actor     types.ActorRef
	Scope     types.ScopeFilter
}

// Type implements gocommand.Message.
func (DeleteClusterInput) Type() string {
	return "command.cluster.delete"
}

// Validate implements gocommand.Message.
func (input DeleteClusterInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.ClusterID == uuid.Nil:
		return ErrClusterIDRequired
	default:
		return nil
	}
}

// DeleteClusterCommand deletes a cluster. Member activities return to the
// unclustered pool rather than being deleted with it.
type DeleteClusterCommand struct {
	manager *cluster.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewDeleteClusterCommand constructs the delete handler.
func NewDeleteClusterCommand(cfg ClusterCommandConfig) *DeleteClusterCommand {
	return &DeleteClusterCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[DeleteClusterInput] = (*DeleteClusterCommand)(nil)

// Execute deletes the cluster and records the removal.
func (c *DeleteClusterCommand) Execute(ctx context.Context, input DeleteClusterInput) error {
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

	if err := c.manager.Delete(ctx, input.UserID, input.ClusterID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "cluster.deleted",
		ObjectType:  "cluster",
		ObjectID:    input.ClusterID.String(),
		Channel:     "clusters",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
