package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/workspace"
)

// WorkspaceCommandConfig wires the shared dependencies for workspace
// commands.
type WorkspaceCommandConfig struct {
	Manager    *workspace.Manager
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// WorkspaceResult exposes the workspace a mutation produced.
type WorkspaceResult struct {
	Workspace *types.Workspace
}

// CreateWorkspaceInput creates a workspace owned by the actor.
type CreateWorkspaceInput struct {
	Workspace types.Workspace
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *WorkspaceResult
}

// Type implements gocommand.Message.
func (CreateWorkspaceInput) Type() string {
	return "command.workspace.create"
}

// Validate implements gocommand.Message.
func (input CreateWorkspaceInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case strings.TrimSpace(input.Workspace.Name) == "":
		return ErrWorkspaceNameRequired
	default:
		return nil
	}
}

// CreateWorkspaceCommand creates a workspace. The creator becomes its owner
// and first member.
type CreateWorkspaceCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewCreateWorkspaceCommand constructs the create handler.
func NewCreateWorkspaceCommand(cfg WorkspaceCommandConfig) *CreateWorkspaceCommand {
	return &CreateWorkspaceCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[CreateWorkspaceInput] = (*CreateWorkspaceCommand)(nil)

// Execute creates the workspace and records it.
func (c *CreateWorkspaceCommand) Execute(ctx context.Context, input CreateWorkspaceInput) error {
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

	draft := input.Workspace
	if draft.OwnerID == uuid.Nil {
		draft.OwnerID = input.Actor.ID
	}
	if draft.TenantID == uuid.Nil {
		draft.TenantID = scopeFilter.TenantID
	}

	created, err := c.manager.CreateWorkspace(ctx, draft)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      created.OwnerID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.created",
		ObjectType:  "workspace",
		ObjectID:    created.ID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: created.ID,
		Data:        map[string]any{"name": created.Name, "slug": created.Slug},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Workspace = created
	}
	return nil
}

// UpdateWorkspaceInput edits a workspace's display fields.
type UpdateWorkspaceInput struct {
	Workspace types.Workspace
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *WorkspaceResult
}

// Type implements gocommand.Message.
func (UpdateWorkspaceInput) Type() string {
	return "command.workspace.update"
}

// Validate implements gocommand.Message.
func (input UpdateWorkspaceInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.Workspace.ID == uuid.Nil:
		return ErrWorkspaceIDRequired
	default:
		return nil
	}
}

// UpdateWorkspaceCommand updates name, slug, and description. Role checks
// live in the manager; only owners and admins pass.
type UpdateWorkspaceCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewUpdateWorkspaceCommand constructs the update handler.
func NewUpdateWorkspaceCommand(cfg WorkspaceCommandConfig) *UpdateWorkspaceCommand {
	return &UpdateWorkspaceCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UpdateWorkspaceInput] = (*UpdateWorkspaceCommand)(nil)

// Execute applies the edits and records them.
func (c *UpdateWorkspaceCommand) Execute(ctx context.Context, input UpdateWorkspaceInput) error {
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

	updated, err := c.manager.UpdateWorkspace(ctx, input.Actor.ID, input.Workspace)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      updated.OwnerID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.updated",
		ObjectType:  "workspace",
		ObjectID:    updated.ID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: updated.ID,
		Data:        map[string]any{"name": updated.Name},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Workspace = updated
	}
	return nil
}

// DeleteWorkspaceInput removes a workspace.
type DeleteWorkspaceInput struct {
	WorkspaceID uuid.UUID
	Actor       types.ActorRef
	Scope       types.ScopeFilter
}

// Type implements gocommand.Message.
func (DeleteWorkspaceInput) Type() string {
	return "command.workspace.delete"
}

// Validate implements gocommand.Message.
func (input DeleteWorkspaceInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.WorkspaceID == uuid.Nil:
		return ErrWorkspaceIDRequired
	default:
		return nil
	}
}

// DeleteWorkspaceCommand deletes a workspace. The manager restricts this to
// owners.
type DeleteWorkspaceCommand struct {
	manager *workspace.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewDeleteWorkspaceCommand constructs the delete handler.
func NewDeleteWorkspaceCommand(cfg WorkspaceCommandConfig) *DeleteWorkspaceCommand {
	return &DeleteWorkspaceCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[DeleteWorkspaceInput] = (*DeleteWorkspaceCommand)(nil)

// Execute deletes the workspace and records the removal.
func (c *DeleteWorkspaceCommand) Execute(ctx context.Context, input DeleteWorkspaceInput) error {
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

	if err := c.manager.DeleteWorkspace(ctx, input.Actor.ID, input.WorkspaceID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.Actor.ID,
		ActorID:     input.Actor.ID,
		Verb:        "workspace.deleted",
		ObjectType:  "workspace",
		ObjectID:    input.WorkspaceID.String(),
		Channel:     "workspaces",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: input.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
