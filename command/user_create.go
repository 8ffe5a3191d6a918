package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// UserCreateInput creates an account directly, bypassing self-registration.
type UserCreateInput struct {
	User   *types.AuthUser
	Status types.LifecycleState
	Actor  types.ActorRef
	Scope  types.ScopeFilter
	Result *types.AuthUser
}

// Type implements gocommand.Message.
func (UserCreateInput) Type() string {
	return "command.user.create"
}

// Validate implements gocommand.Message.
func (input UserCreateInput) Validate() error {
	if input.User == nil {
		return ErrUserRequired
	}
	if strings.TrimSpace(input.User.Email) == "" {
		return ErrUserEmailRequired
	}
	if input.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// UserCreateCommand is the administrative account-creation path. Accounts
// start active unless the input says otherwise.
type UserCreateCommand struct {
	repo   types.AuthRepository
	clock  types.Clock
	sink   types.AuditSink
	hooks  types.Hooks
	logger types.Logger
	guard  scope.Guard
}

// UserCreateCommandConfig collects the create handler dependencies.
type UserCreateCommandConfig struct {
	Repository types.AuthRepository
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	Logger     types.Logger
	ScopeGuard scope.Guard
}

// NewUserCreateCommand wires the create handler.
func NewUserCreateCommand(cfg UserCreateCommandConfig) *UserCreateCommand {
	return &UserCreateCommand{
		repo:   cfg.Repository,
		clock:  safeClock(cfg.Clock),
		sink:   safeAuditSink(cfg.Audit),
		hooks:  safeHooks(cfg.Hooks),
		logger: safeLogger(cfg.Logger),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UserCreateInput] = (*UserCreateCommand)(nil)

// Execute persists the account and writes the creation audit entry.
func (c *UserCreateCommand) Execute(ctx context.Context, input UserCreateInput) error {
	if c.repo == nil {
		return types.ErrMissingAuthRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	scopeFilter, err := c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsersWrite, uuid.Nil)
	if err != nil {
		return err
	}

	user := normalizeAuthUser(input.User)
	user.Status = createStatus(input.Status, user.Status)

	created, err := c.repo.Create(ctx, user)
	if err != nil {
		return err
	}

	record := userAuditRecord("user.created", created, input.Actor.ID, scopeFilter, now(c.clock))
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)

	if input.Result != nil && created != nil {
		*input.Result = *created
	}
	return nil
}

// createStatus picks the explicit input status, then the user's own, then
// active.
func createStatus(requested, existing types.LifecycleState) types.LifecycleState {
	if requested != "" {
		return requested
	}
	if existing != "" {
		return existing
	}
	return types.LifecycleStateActive
}
