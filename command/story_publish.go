package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/story"
)

// PublishStoryInput moves a story into the published state.
type PublishStoryInput struct {
	UserID  uuid.UUID
	StoryID uuid.UUID
	Actor   types.ActorRef
	Scope   types.ScopeFilter
	Result  *StoryResult
}

// Type implements gocommand.Message.
func (PublishStoryInput) Type() string {
	return "command.story.publish"
}

// Validate implements gocommand.Message.
func (input PublishStoryInput) Validate() error {
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

// PublishStoryCommand publishes a draft or unpublished story. The transition
// sits behind the stories.publish feature gate and stamps PublishedAt on the
// first publish only.
type PublishStoryCommand struct {
	manager *story.Manager
	gate    featuregate.FeatureGate
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewPublishStoryCommand constructs the publish handler.
func NewPublishStoryCommand(cfg StoryCommandConfig) *PublishStoryCommand {
	return &PublishStoryCommand{
		manager: cfg.Manager,
		gate:    cfg.Gate,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[PublishStoryInput] = (*PublishStoryCommand)(nil)

// Execute publishes the story and records the transition.
func (c *PublishStoryCommand) Execute(ctx context.Context, input PublishStoryInput) error {
	if c.manager == nil {
		return ErrStoryManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStoriesPublish, input.UserID)
	if err != nil {
		return err
	}
	enabled, err := featureEnabled(ctx, c.gate, featureStoriesPublish, scopeFilter, input.UserID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrPublishDisabled
	}

	published, err := c.manager.Publish(ctx, input.UserID, input.StoryID)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.published",
		ObjectType:  "career_story",
		ObjectID:    published.ID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"visibility": string(published.Visibility)},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Story = published
	}
	return nil
}

// UnpublishStoryInput retracts a published story.
type UnpublishStoryInput struct {
	UserID  uuid.UUID
	StoryID uuid.UUID
	Actor   types.ActorRef
	Scope   types.ScopeFilter
	Result  *StoryResult
}

// Type implements gocommand.Message.
func (UnpublishStoryInput) Type() string {
	return "command.story.unpublish"
}

// Validate implements gocommand.Message.
func (input UnpublishStoryInput) Validate() error {
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

// UnpublishStoryCommand retracts a story from public view. PublishedAt is
// preserved as a historical marker.
type UnpublishStoryCommand struct {
	manager *story.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewUnpublishStoryCommand constructs the unpublish handler.
func NewUnpublishStoryCommand(cfg StoryCommandConfig) *UnpublishStoryCommand {
	return &UnpublishStoryCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UnpublishStoryInput] = (*UnpublishStoryCommand)(nil)

// Execute unpublishes the story and records the transition.
func (c *UnpublishStoryCommand) Execute(ctx context.Context, input UnpublishStoryInput) error {
	if c.manager == nil {
		return ErrStoryManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStoriesPublish, input.UserID)
	if err != nil {
		return err
	}

	retracted, err := c.manager.Unpublish(ctx, input.UserID, input.StoryID)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.unpublished",
		ObjectType:  "career_story",
		ObjectID:    retracted.ID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Story = retracted
	}
	return nil
}

// SetStoryVisibilityInput changes who can see a story.
type SetStoryVisibilityInput struct {
	UserID     uuid.UUID
	StoryID    uuid.UUID
	Visibility types.StoryVisibility
	Actor      types.ActorRef
	Scope      types.ScopeFilter
	Result     *StoryResult
}

// Type implements gocommand.Message.
func (SetStoryVisibilityInput) Type() string {
	return "command.story.visibility"
}

// Validate implements gocommand.Message.
func (input SetStoryVisibilityInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	case input.StoryID == uuid.Nil:
		return ErrStoryIDRequired
	case !input.Visibility.Valid():
		return types.ErrInvalidVisibility
	default:
		return nil
	}
}

// SetStoryVisibilityCommand switches a story between private, network, and
// public audiences without touching its publication state.
type SetStoryVisibilityCommand struct {
	manager *story.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewSetStoryVisibilityCommand constructs the visibility handler.
func NewSetStoryVisibilityCommand(cfg StoryCommandConfig) *SetStoryVisibilityCommand {
	return &SetStoryVisibilityCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[SetStoryVisibilityInput] = (*SetStoryVisibilityCommand)(nil)

// Execute updates the visibility and records the change.
func (c *SetStoryVisibilityCommand) Execute(ctx context.Context, input SetStoryVisibilityInput) error {
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

	updated, err := c.manager.SetVisibility(ctx, input.UserID, input.StoryID, input.Visibility)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.visibility_changed",
		ObjectType:  "career_story",
		ObjectID:    updated.ID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"visibility": string(updated.Visibility)},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Story = updated
	}
	return nil
}
