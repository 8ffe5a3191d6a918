package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// RenameClusterInput updates a cluster's display name.
type RenameClusterInput struct {
	UserID    uuid.UUID
	ClusterID uuid.UUID
	Name      string
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *ClusterResult
}

// Type implements gocommand.Message.
func (RenameClusterInput) Type() string {
	return "command.cluster.rename"
}

// Validate implements gocommand.Message.
func (input RenameClusterInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.ClusterID == uuid.Nil:
		return ErrClusterIDRequired
	case strings.TrimSpace(input.Name) == "":
		return ErrClusterNameRequired
	default:
		return nil
	}
}

// RenameClusterCommand renames a cluster without touching its membership.
type RenameClusterCommand struct {
	manager *cluster.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewRenameClusterCommand constructs the rename handler.
func NewRenameClusterCommand(cfg ClusterCommandConfig) *RenameClusterCommand {
	return &RenameClusterCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[RenameClusterInput] = (*RenameClusterCommand)(nil)

// Execute renames the cluster and records the change.
func (c *RenameClusterCommand) Execute(ctx context.Context, input RenameClusterInput) error {
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

	renamed, err := c.manager.Rename(ctx, input.UserID, input.ClusterID, input.Name)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "cluster.renamed",
		ObjectType:  "cluster",
		ObjectID:    renamed.ID.String(),
		Channel:     "clusters",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"name": renamed.Name},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Cluster = renamed
	}
	return nil
}

// MergeClustersInput folds several clusters into one.
type MergeClustersInput struct {
	UserID     uuid.UUID
	ClusterIDs []uuid.UUID
	Name       string
	Actor      types.ActorRef
	Scope      types.ScopeFilter
	Result     *ClusterResult
}

// Type implements gocommand.Message.
func (MergeClustersInput) Type() string {
	return "command.cluster.merge"
}

// Validate implements gocommand.Message.
func (input MergeClustersInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case len(input.ClusterIDs) < 2:
		return ErrClusterIDsRequired
	default:
		return nil
	}
}

// MergeClustersCommand combines clusters, moving every member into the
// survivor and deleting the rest. No activity is lost by a merge.
type MergeClustersCommand struct {
	manager *cluster.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewMergeClustersCommand constructs the merge handler.
func NewMergeClustersCommand(cfg ClusterCommandConfig) *MergeClustersCommand {
	return &MergeClustersCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[MergeClustersInput] = (*MergeClustersCommand)(nil)

// Execute merges the clusters and records which ones folded in.
func (c *MergeClustersCommand) Execute(ctx context.Context, input MergeClustersInput) error {
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

	merged, err := c.manager.Merge(ctx, input.UserID, input.ClusterIDs, input.Name)
	if err != nil {
		return err
	}

	sources := make([]string, 0, len(input.ClusterIDs))
	for _, id := range input.ClusterIDs {
		if id != merged.ID {
			sources = append(sources, id.String())
		}
	}
	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "cluster.merged",
		ObjectType:  "cluster",
		ObjectID:    merged.ID.String(),
		Channel:     "clusters",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"merged":     sources,
			"activities": merged.ActivityCount,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Cluster = merged
	}
	return nil
}
