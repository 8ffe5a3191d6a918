package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/onboarding"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// OnboardingCommandConfig wires the shared dependencies for onboarding
// commands.
type OnboardingCommandConfig struct {
	Manager    *onboarding.Manager
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	ScopeGuard scope.Guard
}

// OnboardingResult exposes the session record after a mutation.
type OnboardingResult struct {
	Record *types.OnboardingRecord
}

// UpdateOnboardingInput merges wizard fields into the user's session.
type UpdateOnboardingInput struct {
	UserID uuid.UUID
	Fields map[string]any
	// DemoMode toggles the demo data flag; nil leaves it unchanged.
	DemoMode *bool
	Actor    types.ActorRef
	Scope    types.ScopeFilter
	Result   *OnboardingResult
}

// Type implements gocommand.Message.
func (UpdateOnboardingInput) Type() string {
	return "command.onboarding.update"
}

// Validate implements gocommand.Message.
func (input UpdateOnboardingInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// UpdateOnboardingCommand advances the wizard by merging answers into the
// session payload. The current step is derived from the payload, never set
// directly.
type UpdateOnboardingCommand struct {
	manager *onboarding.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewUpdateOnboardingCommand constructs the update handler.
func NewUpdateOnboardingCommand(cfg OnboardingCommandConfig) *UpdateOnboardingCommand {
	return &UpdateOnboardingCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UpdateOnboardingInput] = (*UpdateOnboardingCommand)(nil)

// Execute merges the fields and records the step the session landed on.
func (c *UpdateOnboardingCommand) Execute(ctx context.Context, input UpdateOnboardingInput) error {
	if c.manager == nil {
		return ErrOnboardingManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionOnboardingWrite, input.UserID)
	if err != nil {
		return err
	}

	record, err := c.manager.Update(ctx, onboarding.UpdateInput{
		UserID:   input.UserID,
		Fields:   input.Fields,
		DemoMode: input.DemoMode,
		ActorID:  input.Actor.ID,
	})
	if err != nil {
		return err
	}

	audit := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "onboarding.updated",
		ObjectType:  "onboarding_session",
		ObjectID:    input.UserID.String(),
		Channel:     "onboarding",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"step":      record.CurrentStep,
			"demo_mode": record.DemoMode,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, audit)
	emitAuditHook(ctx, c.hooks, audit)

	if input.Result != nil {
		input.Result.Record = record
	}
	return nil
}

// CompleteOnboardingInput marks the wizard finished.
type CompleteOnboardingInput struct {
	UserID uuid.UUID
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *OnboardingResult
}

// Type implements gocommand.Message.
func (CompleteOnboardingInput) Type() string {
	return "command.onboarding.complete"
}

// Validate implements gocommand.Message.
func (input CompleteOnboardingInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// CompleteOnboardingCommand stamps the session complete. Completing twice
// is a no-op that returns the existing record.
type CompleteOnboardingCommand struct {
	manager *onboarding.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewCompleteOnboardingCommand constructs the complete handler.
func NewCompleteOnboardingCommand(cfg OnboardingCommandConfig) *CompleteOnboardingCommand {
	return &CompleteOnboardingCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[CompleteOnboardingInput] = (*CompleteOnboardingCommand)(nil)

// Execute completes the session and records the finish.
func (c *CompleteOnboardingCommand) Execute(ctx context.Context, input CompleteOnboardingInput) error {
	if c.manager == nil {
		return ErrOnboardingManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionOnboardingWrite, input.UserID)
	if err != nil {
		return err
	}

	record, err := c.manager.Complete(ctx, input.UserID, input.Actor.ID)
	if err != nil {
		return err
	}

	audit := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "onboarding.completed",
		ObjectType:  "onboarding_session",
		ObjectID:    input.UserID.String(),
		Channel:     "onboarding",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, audit)
	emitAuditHook(ctx, c.hooks, audit)

	if input.Result != nil {
		input.Result.Record = record
	}
	return nil
}

// SkipOnboardingInput abandons the wizard without finishing it.
type SkipOnboardingInput struct {
	UserID uuid.UUID
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *OnboardingResult
}

// Type implements gocommand.Message.
func (SkipOnboardingInput) Type() string {
	return "command.onboarding.skip"
}

// Validate implements gocommand.Message.
func (input SkipOnboardingInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// SkipOnboardingCommand marks the session skipped, keeping whatever answers
// were collected so a later resume can pick them up.
type SkipOnboardingCommand struct {
	manager *onboarding.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewSkipOnboardingCommand constructs the skip handler.
func NewSkipOnboardingCommand(cfg OnboardingCommandConfig) *SkipOnboardingCommand {
	return &SkipOnboardingCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[SkipOnboardingInput] = (*SkipOnboardingCommand)(nil)

// Execute skips the session and records the abandon.
func (c *SkipOnboardingCommand) Execute(ctx context.Context, input SkipOnboardingInput) error {
	if c.manager == nil {
		return ErrOnboardingManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionOnboardingWrite, input.UserID)
	if err != nil {
		return err
	}

	record, err := c.manager.Skip(ctx, input.UserID, input.Actor.ID)
	if err != nil {
		return err
	}

	audit := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "onboarding.skipped",
		ObjectType:  "onboarding_session",
		ObjectID:    input.UserID.String(),
		Channel:     "onboarding",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        map[string]any{"step": record.CurrentStep},
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, audit)
	emitAuditHook(ctx, c.hooks, audit)

	if input.Result != nil {
		input.Result.Record = record
	}
	return nil
}

// ResetOnboardingInput clears the session entirely.
type ResetOnboardingInput struct {
	UserID uuid.UUID
	Actor  types.ActorRef
	Scope  types.ScopeFilter
}

// Type implements gocommand.Message.
func (ResetOnboardingInput) Type() string {
	return "command.onboarding.reset"
}

// Validate implements gocommand.Message.
func (input ResetOnboardingInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.UserID == uuid.Nil:
		return ErrUserIDRequired
	default:
		return nil
	}
}

// ResetOnboardingCommand wipes the session from the primary and fallback
// stores so the next visit starts the wizard from step one.
type ResetOnboardingCommand struct {
	manager *onboarding.Manager
	clock   types.Clock
	sink    types.AuditSink
	hooks   types.Hooks
	guard   scope.Guard
}

// NewResetOnboardingCommand constructs the reset handler.
func NewResetOnboardingCommand(cfg OnboardingCommandConfig) *ResetOnboardingCommand {
	return &ResetOnboardingCommand{
		manager: cfg.Manager,
		clock:   safeClock(cfg.Clock),
		sink:    safeAuditSink(cfg.Audit),
		hooks:   safeHooks(cfg.Hooks),
		guard:   safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[ResetOnboardingInput] = (*ResetOnboardingCommand)(nil)

// Execute clears the session and records the reset.
func (c *ResetOnboardingCommand) Execute(ctx context.Context, input ResetOnboardingInput) error {
	if c.manager == nil {
		return ErrOnboardingManagerRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionOnboardingWrite, input.UserID)
	if err != nil {
		return err
	}

	if err := c.manager.Reset(ctx, input.UserID, input.Actor.ID); err != nil {
		return err
	}

	audit := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "onboarding.reset",
		ObjectType:  "onboarding_session",
		ObjectID:    input.UserID.String(),
		Channel:     "onboarding",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, audit)
	emitAuditHook(ctx, c.hooks, audit)
	return nil
}
