package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/star"
)

// JournalCommandConfig wires the shared dependencies for journal commands.
type JournalCommandConfig struct {
	Repository types.JournalRepository
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// CreateJournalEntryInput stores a free-form journal entry.
type CreateJournalEntryInput struct {
	Entry  types.JournalEntry
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *JournalEntryResult
}

// Type implements gocommand.Message.
func (CreateJournalEntryInput) Type() string {
	return "command.journal.create"
}

// Validate implements gocommand.Message.
func (input CreateJournalEntryInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.Entry.UserID == uuid.Nil:
		return ErrUserIDRequired
	case strings.TrimSpace(input.Entry.Body) == "":
		return ErrJournalBodyRequired
	default:
		return nil
	}
}

// JournalEntryResult exposes the stored entry plus the wizard's reading of
// it, so callers can offer the story flow straight from a fresh entry.
type JournalEntryResult struct {
	Entry    *types.JournalEntry
	Analysis star.WizardAnalysis
}

// CreateJournalEntryCommand persists an entry and analyzes it for narrative
// structure in the same pass.
type CreateJournalEntryCommand struct {
	repo  types.JournalRepository
	clock types.Clock
	sink  types.AuditSink
	hooks types.Hooks
	guard scope.Guard
}

// NewCreateJournalEntryCommand constructs the create handler.
func NewCreateJournalEntryCommand(cfg JournalCommandConfig) *CreateJournalEntryCommand {
	return &CreateJournalEntryCommand{
		repo:  cfg.Repository,
		clock: safeClock(cfg.Clock),
		sink:  safeAuditSink(cfg.Audit),
		hooks: safeHooks(cfg.Hooks),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[CreateJournalEntryInput] = (*CreateJournalEntryCommand)(nil)

// Execute stores the entry and records the creation.
func (c *CreateJournalEntryCommand) Execute(ctx context.Context, input CreateJournalEntryInput) error {
	if c.repo == nil {
		return types.ErrMissingJournalRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionJournalWrite, input.Entry.UserID)
	if err != nil {
		return err
	}

	created, err := c.repo.CreateEntry(ctx, input.Entry)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      created.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "journal.created",
		ObjectType:  "journal_entry",
		ObjectID:    created.ID.String(),
		Channel:     "journal",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"title": created.Title},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Entry = created
		input.Result.Analysis = star.AnalyzeJournal(*created)
	}
	return nil
}

// UpdateJournalEntryInput edits a stored entry.
type UpdateJournalEntryInput struct {
	Entry  types.JournalEntry
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *JournalEntryResult
}

// Type implements gocommand.Message.
func (UpdateJournalEntryInput) Type() string {
	return "command.journal.update"
}

// Validate implements gocommand.Message.
func (input UpdateJournalEntryInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.Entry.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.Entry.ID == uuid.Nil:
		return ErrJournalEntryIDRequired
	case strings.TrimSpace(input.Entry.Body) == "":
		return ErrJournalBodyRequired
	default:
		return nil
	}
}

// UpdateJournalEntryCommand saves edits to an entry and re-analyzes the
// text.
type UpdateJournalEntryCommand struct {
	repo  types.JournalRepository
	clock types.Clock
	sink  types.AuditSink
	hooks types.Hooks
	guard scope.Guard
}

// NewUpdateJournalEntryCommand constructs the update handler.
func NewUpdateJournalEntryCommand(cfg JournalCommandConfig) *UpdateJournalEntryCommand {
	return &UpdateJournalEntryCommand{
		repo:  cfg.Repository,
		clock: safeClock(cfg.Clock),
		sink:  safeAuditSink(cfg.Audit),
		hooks: safeHooks(cfg.Hooks),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UpdateJournalEntryInput] = (*UpdateJournalEntryCommand)(nil)

// Execute saves the edits and records them.
func (c *UpdateJournalEntryCommand) Execute(ctx context.Context, input UpdateJournalEntryInput) error {
	if c.repo == nil {
		return types.ErrMissingJournalRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionJournalWrite, input.Entry.UserID)
	if err != nil {
		return err
	}

	saved, err := c.repo.UpdateEntry(ctx, input.Entry)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      saved.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "journal.updated",
		ObjectType:  "journal_entry",
		ObjectID:    saved.ID.String(),
		Channel:     "journal",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Entry = saved
		input.Result.Analysis = star.AnalyzeJournal(*saved)
	}
	return nil
}

// DeleteJournalEntryInput removes an entry.
type DeleteJournalEntryInput struct {
	UserID  uuid.UUID
	EntryID uuid.UUID
	Actor   types.ActorRef
	Scope   types.ScopeFilter
}

// Type implements gocommand.Message.
func (DeleteJournalEntryInput) Type() string {
	return "command.journal.delete"
}

// Validate implements gocommand.Message.
func (input DeleteJournalEntryInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.EntryID == uuid.Nil:
		return ErrJournalEntryIDRequired
	default:
		return nil
	}
}

// DeleteJournalEntryCommand removes an entry. Stories already created from
// it are standalone and survive the delete.
type DeleteJournalEntryCommand struct {
	repo  types.JournalRepository
	clock types.Clock
	sink  types.AuditSink
	hooks types.Hooks
	guard scope.Guard
}

// NewDeleteJournalEntryCommand constructs the delete handler.
func NewDeleteJournalEntryCommand(cfg JournalCommandConfig) *DeleteJournalEntryCommand {
	return &DeleteJournalEntryCommand{
		repo:  cfg.Repository,
		clock: safeClock(cfg.Clock),
		sink:  safeAuditSink(cfg.Audit),
		hooks: safeHooks(cfg.Hooks),
		guard: safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[DeleteJournalEntryInput] = (*DeleteJournalEntryCommand)(nil)

// Execute deletes the entry and records the removal.
func (c *DeleteJournalEntryCommand) Execute(ctx context.Context, input DeleteJournalEntryInput) error {
	if c.repo == nil {
		return types.ErrMissingJournalRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionJournalWrite, input.UserID)
	if err != nil {
		return err
	}

	if err := c.repo.DeleteEntry(ctx, input.UserID, input.EntryID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "journal.deleted",
		ObjectType:  "journal_entry",
		ObjectID:    input.EntryID.String(),
		Channel:     "journal",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
