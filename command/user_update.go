package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// UserUpdateInput replaces an account's mutable fields.
type UserUpdateInput struct {
	User   *types.AuthUser
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *types.AuthUser
}

// Type implements gocommand.Message.
func (UserUpdateInput) Type() string {
	return "command.user.update"
}

// Validate implements gocommand.Message.
func (input UserUpdateInput) Validate() error {
	if input.User == nil {
		return ErrUserRequired
	}
	if input.User.ID == uuid.Nil {
		return ErrUserIDRequired
	}
	if input.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// UserUpdateCommand updates accounts under scope enforcement. A status
// change riding on the update must pass the lifecycle transition policy,
// same as a standalone transition would.
type UserUpdateCommand struct {
	repo   types.AuthRepository
	policy types.TransitionPolicy[types.LifecycleState]
	clock  types.Clock
	sink   types.AuditSink
	hooks  types.Hooks
	logger types.Logger
	guard  scope.Guard
}

// UserUpdateCommandConfig collects the update handler dependencies.
type UserUpdateCommandConfig struct {
	Repository types.AuthRepository
	Policy     types.TransitionPolicy[types.LifecycleState]
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	Logger     types.Logger
	ScopeGuard scope.Guard
}

// NewUserUpdateCommand wires the update handler.
func NewUserUpdateCommand(cfg UserUpdateCommandConfig) *UserUpdateCommand {
	policy := cfg.Policy
	if policy == nil {
		policy = types.DefaultAccountTransitionPolicy()
	}
	return &UserUpdateCommand{
		repo:   cfg.Repository,
		policy: policy,
		clock:  safeClock(cfg.Clock),
		sink:   safeAuditSink(cfg.Audit),
		hooks:  safeHooks(cfg.Hooks),
		logger: safeLogger(cfg.Logger),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UserUpdateInput] = (*UserUpdateCommand)(nil)

// Execute persists the update and writes the audit entry.
func (c *UserUpdateCommand) Execute(ctx context.Context, input UserUpdateInput) error {
	if c == nil || c.repo == nil {
		return types.ErrMissingAuthRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsersWrite, input.User.ID)
	if err != nil {
		return err
	}

	user := normalizeAuthUser(input.User)
	if err := c.checkStatusChange(ctx, user); err != nil {
		return err
	}
	updated, err := c.repo.Update(ctx, user)
	if err != nil {
		return err
	}

	record := userAuditRecord("user.updated", updated, input.Actor.ID, scopeFilter, now(c.clock))
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil && updated != nil {
		*input.Result = *updated
	}
	return nil
}

func (c *UserUpdateCommand) checkStatusChange(ctx context.Context, user *types.AuthUser) error {
	if user == nil || user.Status == "" || c.policy == nil {
		return nil
	}
	current, err := c.repo.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if current == nil || current.Status == user.Status {
		return nil
	}
	return c.policy.Validate(current.Status, user.Status)
}
