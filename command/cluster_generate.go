package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// ClusterCommandConfig wires the shared dependencies for cluster commands.
type ClusterCommandConfig struct {
	Manager    *cluster.Manager
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// ClusterResult exposes the cluster a mutation produced. Cluster is nil when
// the operation removed it.
type ClusterResult struct {
	Cluster *types.Cluster
}

// GenerateClustersInput runs clustering over the user's unclustered pool.
type GenerateClustersInput struct {
	UserID  uuid.UUID
	Options types.ClusterOptions
	Actor   types.ActorRef
	Scope   types.ScopeFilter
	Result  *GenerateClustersResult
}

// Type implements gocommand.Message.
func (GenerateClustersInput) Type() string {
	return "command.cluster.generate"
}

// Validate implements gocommand.Message.
func (input GenerateClustersInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// GenerateClustersResult exposes the clusters created by one run.
type GenerateClustersResult struct {
	Clusters []types.Cluster
}

// GenerateClustersCommand groups unclustered activities into project
// suggestions. A second run right after finds nothing left to group and
// creates no clusters.
type GenerateClustersCommand struct {
	manager *cluster.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewGenerateClustersCommand constructs the generate handler.
func NewGenerateClustersCommand(cfg ClusterCommandConfig) *GenerateClustersCommand {
	return &GenerateClustersCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[GenerateClustersInput] = (*GenerateClustersCommand)(nil)

// Execute generates clusters and records one audit entry per cluster created.
func (c *GenerateClustersCommand) Execute(ctx context.Context, input GenerateClustersInput) error {
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

	created, err := c.manager.Generate(ctx, input.UserID, scopeFilter, input.Options)
	if err != nil {
		return err
	}

	occurred := now(c.clock)
	for _, generated := range created {
		record := types.AuditRecord{
			UserID:      input.UserID,
			ActorID:     input.Actor.ID,
			Verb:        "cluster.generated",
			ObjectType:  "cluster",
			ObjectID:    generated.ID.String(),
			Channel:     "clusters",
			TenantID:    scopeFilter.TenantID,
			WorkspaceID: scopeFilter.WorkspaceID,
			Data: map[string]any{
				"name":       generated.Name,
				"activities": len(generated.ActivityIDs),
			},
			OccurredAt: occurred,
		}
		logAudit(ctx, c.sink, record)
		emitAuditHook(ctx, c.hooks, record)
	}

	if input.Result != nil {
		input.Result.Clusters = created
	}
	return nil
}
