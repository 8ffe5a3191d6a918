package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
	"github.com/inchronicle/go-stories/star"
	"github.com/inchronicle/go-stories/story"
)

// CreateStoryFromWizardInput builds a story from free-form journal text and
// the user's wizard answers.
type CreateStoryFromWizardInput struct {
	Request star.WizardRequest
	Actor   types.ActorRef
	Scope   types.ScopeFilter
	Result  *WizardStoryResult
}

// Type implements gocommand.Message.
func (CreateStoryFromWizardInput) Type() string {
	return "command.story.wizard"
}

// Validate implements gocommand.Message.
func (input CreateStoryFromWizardInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.Request.UserID == uuid.Nil:
		return ErrUserIDRequired
	case strings.TrimSpace(input.Request.Body) == "":
		return ErrWizardBodyRequired
	default:
		return nil
	}
}

// WizardStoryResult exposes the created story and the gate verdict for its
// hand-written narrative.
type WizardStoryResult struct {
	Story      *types.CareerStory
	Validation types.StarValidation
}

// CreateStoryFromWizardCommand turns journal text plus wizard answers into a
// draft story. The flow sits behind the stories.wizard feature gate.
type CreateStoryFromWizardCommand struct {
	manager *story.Manager
	gate    featuregate.FeatureGate
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewCreateStoryFromWizardCommand constructs the wizard handler.
func NewCreateStoryFromWizardCommand(cfg StoryCommandConfig) *CreateStoryFromWizardCommand {
	return &CreateStoryFromWizardCommand{
		manager: cfg.Manager,
		gate:    cfg.Gate,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[CreateStoryFromWizardInput] = (*CreateStoryFromWizardCommand)(nil)

// Execute creates the story and records the wizard run.
func (c *CreateStoryFromWizardCommand) Execute(ctx context.Context, input CreateStoryFromWizardInput) error {
	if c.manager == nil {
		return ErrStoryManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionStoriesWrite, input.Request.UserID)
	if err != nil {
		return err
	}
	enabled, err := featureEnabled(ctx, c.gate, featureStoriesWizard, scopeFilter, input.Request.UserID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrWizardDisabled
	}

	created, evaluation, err := c.manager.CreateFromWizard(ctx, input.Request, scopeFilter)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      input.Request.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "story.wizard_created",
		ObjectType:  "career_story",
		ObjectID:    created.ID.String(),
		Channel:     "stories",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"framework": string(created.Framework),
			"passed":    evaluation.Passed,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.Story = created
		input.Result.Validation = evaluation
	}
	return nil
}
