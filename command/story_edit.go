package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/story"
)

// EditStoryInput applies manual edits to a story's title, sections, or
// archetype.
type EditStoryInput struct {
	Story  types.CareerStory
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *StoryResult
}

// Type implements gocommand.Message.
func (EditStoryInput) Type() string {
	return "command.story.edit"
}

// Validate implements gocommand.Message.
func (input EditStoryInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.Story.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.Story.ID == uuid.Nil:
		return ErrStoryIDRequired
	default:
		return nil
	}
}

// EditStoryCommand saves user edits. State and publication timestamps are
// owned by the lifecycle commands and never change here.
type EditStoryCommand struct {
	manager *story.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewEditStoryCommand constructs the edit handler.
func NewEditStoryCommand(cfg StoryCommandConfig) *EditStoryCommand {
	return &EditStoryCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[EditStoryInput] = (*EditStoryCommand)(nil)

// Execute persists the edits and records them.
func (c *EditStoryCommand) Execute(ctx context.Context, input EditStoryInput) error {
	if c.manager == nil {
		return ErrStoryManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStoriesWrite, input.Story.UserID)
	if err != nil {
		return err
	}

	saved, err := c.manager.Edit(ctx, input.Story)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.Story.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.edited",
		ObjectType:  "career_story",
		ObjectID:    saved.ID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"title": saved.Title},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Story = saved
	}
	return nil
}

// DeleteStoryInput removes a story.
type DeleteStoryInput struct {
	UserID  uuid.UUID
	StoryID uuid.UUID
	Actor   types.ActorRef
	Scope   types.ScopeFilter
}

// Type implements gocommand.Message.
func (DeleteStoryInput) Type() string {
	return "command.story.delete"
}

// Validate implements gocommand.Message.
func (input DeleteStoryInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.StoryID == uuid.Nil:
		return ErrStoryIDRequired
	default:
		return nil
	}
}

// DeleteStoryCommand deletes a story. The backing cluster and its
// activities are untouched, so the story can be generated again.
type DeleteStoryCommand struct {
	manager *story.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewDeleteStoryCommand constructs the delete handler.
func NewDeleteStoryCommand(cfg StoryCommandConfig) *DeleteStoryCommand {
	return &DeleteStoryCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[DeleteStoryInput] = (*DeleteStoryCommand)(nil)

// Execute deletes the story and records the removal.
func (c *DeleteStoryCommand) Execute(ctx context.Context, input DeleteStoryInput) error {
	if c.manager == nil {
		return ErrStoryManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStoriesWrite, input.UserID)
	if err != nil {
		return err
	}

	if err := c.manager.Delete(ctx, input.UserID, input.StoryID); err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.deleted",
		ObjectType:  "career_story",
		ObjectID:    input.StoryID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	return nil
}
