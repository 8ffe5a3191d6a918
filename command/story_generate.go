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

// StoryCommandConfig wires the shared dependencies for story commands.
type StoryCommandConfig struct {
	Manager    *story.Manager
	Gate       featuregate.FeatureGate
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// StoryResult exposes the story a command produced plus, for generation
// flows, the scored narrative behind it.
type StoryResult struct {
	Story *types.CareerStory
	Star  *types.ScoredStar
}

// GenerateStoryInput creates a draft story from a cluster.
type GenerateStoryInput struct {
	UserID    uuid.UUID
	ClusterID uuid.UUID
	Options   story.GenerateOptions
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *StoryResult
}

// Type implements gocommand.Message.
func (GenerateStoryInput) Type() string {
	return "command.story.generate"
}

// Validate implements gocommand.Message.
func (input GenerateStoryInput) Validate() error {
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

// GenerateStoryCommand synthesizes a narrative from a cluster and persists
// it as a draft. When the manager carries a wallet the debit happens before
// the story exists, so a failed charge leaves nothing behind.
type GenerateStoryCommand struct {
	manager *story.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewGenerateStoryCommand constructs the generate handler.
func NewGenerateStoryCommand(cfg StoryCommandConfig) *GenerateStoryCommand {
	return &GenerateStoryCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[GenerateStoryInput] = (*GenerateStoryCommand)(nil)

// Execute generates the story and records the creation.
func (c *GenerateStoryCommand) Execute(ctx context.Context, input GenerateStoryInput) error {
	if c.manager == nil {
		return ErrStoryManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStarsGenerate, input.UserID)
	if err != nil {
		return err
	}

	created, scored, err := c.manager.Generate(ctx, input.UserID, input.ClusterID, input.Options)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.generated",
		ObjectType:  "career_story",
		ObjectID:    created.ID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"cluster_id": input.ClusterID.String(),
			"confidence": scored.OverallConfidence,
			"passed":     scored.Validation.Passed,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Story = created
		input.Result.Star = scored
	}
	return nil
}

// RegenerateStoryInput re-runs synthesis for a cluster-backed story.
type RegenerateStoryInput struct {
	UserID  uuid.UUID
	StoryID uuid.UUID
	Options story.GenerateOptions
	Actor   types.ActorRef
	Scope   types.ScopeFilter
	Result  *StoryResult
}

// Type implements gocommand.Message.
func (RegenerateStoryInput) Type() string {
	return "command.story.regenerate"
}

// Validate implements gocommand.Message.
func (input RegenerateStoryInput) Validate() error {
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

// RegenerateStoryCommand replaces a story's sections with a fresh synthesis
// of its backing cluster. Stories that did not come from a cluster are
// rejected.
type RegenerateStoryCommand struct {
	manager *story.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewRegenerateStoryCommand constructs the regenerate handler.
func NewRegenerateStoryCommand(cfg StoryCommandConfig) *RegenerateStoryCommand {
	return &RegenerateStoryCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[RegenerateStoryInput] = (*RegenerateStoryCommand)(nil)

// Execute regenerates the story and records the refresh.
func (c *RegenerateStoryCommand) Execute(ctx context.Context, input RegenerateStoryInput) error {
	if c.manager == nil {
		return ErrStoryManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStarsGenerate, input.UserID)
	if err != nil {
		return err
	}

	updated, scored, err := c.manager.Regenerate(ctx, input.UserID, input.StoryID, input.Options)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.regenerated",
		ObjectType:  "career_story",
		ObjectID:    updated.ID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"confidence": scored.OverallConfidence,
			"passed":     scored.Validation.Passed,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Story = updated
		input.Result.Star = scored
	}
	return nil
}
