package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// UserLifecycleTransitionInput asks to move an account to a new state.
type UserLifecycleTransitionInput struct {
	UserID   uuid.UUID
	Target   types.LifecycleState
	Actor    types.ActorRef
	Reason   string
	Metadata map[string]any
	Scope    types.ScopeFilter
	Result   *UserLifecycleTransitionResult
}

// Type implements gocommand.Message.
func (UserLifecycleTransitionInput) Type() string {
	return "command.user.lifecycle.transition"
}

// Validate implements gocommand.Message.
func (input UserLifecycleTransitionInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrLifecycleUserIDRequired
	case input.Target == "":
		return ErrLifecycleTargetRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	default:
		return nil
	}
}

// Describe labels the command in bus diagnostics.
func (UserLifecycleTransitionInput) Describe() string {
	return "user lifecycle transition"
}

// UserLifecycleTransitionResult receives the account after the move.
type UserLifecycleTransitionResult struct {
	User *types.AuthUser
}

// UserLifecycleTransitionCommand moves accounts between states, checking the
// transition policy first and recording an audit entry afterwards.
type UserLifecycleTransitionCommand struct {
	repo   types.AuthRepository
	policy types.TransitionPolicy[types.LifecycleState]
	clock  types.Clock
	logger types.Logger
	hooks  types.Hooks
	sink   types.AuditSink
	guard  scope.Guard
}

// LifecycleCommandConfig collects the dependencies for the handler.
type LifecycleCommandConfig struct {
	Repository types.AuthRepository
	Policy     types.TransitionPolicy[types.LifecycleState]
	Clock      types.Clock
	Logger     types.Logger
	Hooks      types.Hooks
	Audit      types.AuditSink
	ScopeGuard scope.Guard
}

// NewUserLifecycleTransitionCommand builds the handler, defaulting the policy
// to the stock account rules when none is supplied.
func NewUserLifecycleTransitionCommand(cfg LifecycleCommandConfig) *UserLifecycleTransitionCommand {
	policy := cfg.Policy
	if policy == nil {
		policy = types.DefaultAccountTransitionPolicy()
	}
	return &UserLifecycleTransitionCommand{
		repo:   cfg.Repository,
		policy: policy,
		clock:  safeClock(cfg.Clock),
		logger: safeLogger(cfg.Logger),
		hooks:  safeHooks(cfg.Hooks),
		sink:   safeAuditSink(cfg.Audit),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UserLifecycleTransitionInput] = (*UserLifecycleTransitionCommand)(nil)

// Execute runs the scope guard, validates the move, then asks the upstream
// repository to perform it.
func (c *UserLifecycleTransitionCommand) Execute(ctx context.Context, input UserLifecycleTransitionInput) error {
	if c == nil || c.repo == nil {
		return types.ErrMissingAuthRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsersWrite, input.UserID)
	if err != nil {
		return err
	}
	current, err := c.repo.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if err := c.enforcePolicy(current, input.Target); err != nil {
		return err
	}
	opts := make([]types.TransitionOption, 0, 2)
	if input.Reason != "" {
		opts = append(opts, types.WithTransitionReason(input.Reason))
	}
	if len(input.Metadata) > 0 {
		opts = append(opts, types.WithTransitionMetadata(input.Metadata))
	}
	updated, err := c.repo.UpdateStatus(ctx, input.Actor, input.UserID, input.Target, opts...)
	if err != nil {
		return err
	}

	record := types.AuditRecord{
		UserID:      updated.ID,
		ActorID:     input.Actor.ID,
		Verb:        "user.lifecycle.transition",
		ObjectType:  "user",
		ObjectID:    updated.ID.String(),
		Channel:     "lifecycle",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"from_state": current.Status,
			"to_state":   input.Target,
			"reason":     input.Reason,
			"metadata":   input.Metadata,
		},
		OccurredAt: now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil {
		input.Result.User = updated
	}
	return nil
}

func (c *UserLifecycleTransitionCommand) enforcePolicy(current *types.AuthUser, target types.LifecycleState) error {
	if current == nil || c.policy == nil {
		return nil
	}
	if err := c.policy.Validate(current.Status, target); err != nil {
		c.logger.Debug("lifecycle policy rejected transition", "user_id", current.ID, "from", current.Status, "to", target)
		return err
	}
	return nil
}
