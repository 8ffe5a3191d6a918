package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// ImportActivityInput carries one tool activity into the store.
type ImportActivityInput struct {
	Activity types.ToolActivity
	Actor    types.ActorRef
	Scope    types.ScopeFilter
	Result   *ImportActivityResult
}

// Type implements gocommand.Message.
func (ImportActivityInput) Type() string {
	return "command.activity.import"
}

// Validate implements gocommand.Message.
func (input ImportActivityInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.Activity.UserID == uuid.Nil:
		return ErrUserIDRequired
	case !input.Activity.Source.Valid():
		return types.ErrUnknownSource
	case strings.TrimSpace(input.Activity.SourceID) == "":
		return ErrActivitySourceIDRequired
	default:
		return nil
	}
}

// ImportActivityResult exposes the stored activity. Created reports whether a
// new row was written; re-imports refresh in place and report false.
type ImportActivityResult struct {
	Activity *types.ToolActivity
	Created  bool
}

// ImportActivityCommand enriches and upserts a tool activity. Re-imports
// dedupe on (user, source, source id) and never disturb cluster assignment.
type ImportActivityCommand struct {
	importer *activity.Importer
	clock    types.Clock
	sink     types.AuditSink
	hooks    types.Hooks
	guard    scope.Guard
}

// ImportActivityConfig holds dependencies for the import flow. Enricher is
// optional; when omitted activities are stored as supplied.
type ImportActivityConfig struct {
	Repository types.ToolActivityRepository
	Enricher   activity.ActivityEnricher
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// NewImportActivityCommand constructs the import handler.
func NewImportActivityCommand(cfg ImportActivityConfig) *ImportActivityCommand {
	return &ImportActivityCommand{
		importer: &activity.Importer{
			Repo:     cfg.Repository,
			Enricher: cfg.Enricher,
			Hooks:    cfg.Hooks,
		},
		clock: safeClock(cfg.Clock),
		sink:  safeAuditSink(cfg.Audit),
		hooks: safeHooks(cfg.Hooks),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[ImportActivityInput] = (*ImportActivityCommand)(nil)

// Execute enriches and stores the activity, logging one audit entry.
func (c *ImportActivityCommand) Execute(ctx context.Context, input ImportActivityInput) error {
	if c.importer == nil || c.importer.Repo == nil {
		return types.ErrMissingActivityRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionActivitiesWrite, input.Activity.UserID)
	if err != nil {
		return err
	}

	incoming := input.Activity
	if incoming.TenantID == uuid.Nil {
		incoming.TenantID = scopeFilter.TenantID
	}
	if incoming.WorkspaceID == uuid.Nil {
		incoming.WorkspaceID = scopeFilter.WorkspaceID
	}

	stored, created, err := c.importer.Import(ctx, incoming)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      stored.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "activity.imported",
		ObjectType:  "tool_activity",
		ObjectID:    stored.ID.String(),
		Channel:     "activities",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"source":    string(stored.Source),
			"source_id": stored.SourceID,
			"created":   created,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Activity = stored
		input.Result.Created = created
	}
	return nil
}

// DeleteActivityInput removes one imported activity.
type DeleteActivityInput struct {
	UserID     uuid.UUID
	ActivityID uuid.UUID
	Actor      types.ActorRef
	Scope      types.ScopeFilter
}

// Type implements gocommand.Message.
func (DeleteActivityInput) Type() string {
	return "command.activity.delete"
}

// Validate implements gocommand.Message.
func (input DeleteActivityInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.ActivityID == uuid.Nil:
		return ErrActivityIDRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	default:
		return nil
	}
}

// DeleteActivityCommand permanently removes an imported activity.
type DeleteActivityCommand struct {
	repo  types.ToolActivityRepository
	clock types.Clock
	sink  types.AuditSink
	hooks types.Hooks
	guard scope.Guard
}

// DeleteActivityConfig holds dependencies for activity deletion.
type DeleteActivityConfig struct {
	Repository types.ToolActivityRepository
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// NewDeleteActivityCommand constructs the delete handler.
func NewDeleteActivityCommand(cfg DeleteActivityConfig) *DeleteActivityCommand {
	return &DeleteActivityCommand{
		repo:  cfg.Repository,
		clock: safeClock(cfg.Clock),
		sink:  safeAuditSink(cfg.Audit),
		hooks: safeHooks(cfg.Hooks),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[DeleteActivityInput] = (*DeleteActivityCommand)(nil)

// Execute deletes the activity and records the removal.
func (c *DeleteActivityCommand) Execute(ctx context.Context, input DeleteActivityInput) error {
	if c.repo == nil {
		return types.ErrMissingActivityRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionActivitiesWrite, input.UserID)
	if err != nil {
		return err
	}
	if err := c.repo.DeleteActivity(ctx, input.UserID, input.ActivityID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "activity.deleted",
		ObjectType:  "tool_activity",
		ObjectID:    input.ActivityID.String(),
		Channel:     "activities",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
