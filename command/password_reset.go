package command

import (
	"context"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// UserPasswordResetInput resets a user's password hash. TokenJTI and
// TokenExpiresAt are populated when the reset arrives through a securelink
// confirmation so the audit trail can tie both operations together.
type UserPasswordResetInput struct {
	UserID          uuid.UUID
	NewPasswordHash string
	TokenJTI        string
	TokenExpiresAt  time.Time
	Actor           types.ActorRef
	Scope           types.ScopeFilter
	Result          *UserPasswordResetResult
}

// Type implements gocommand.Message.
func (UserPasswordResetInput) Type() string {
	return "command.user.password_reset"
}

// Validate implements gocommand.Message.
func (input UserPasswordResetInput) Validate() error {
	switch {
	case input.UserID == uuid.Nil:
		return ErrLifecycleUserIDRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	case input.NewPasswordHash == "":
		return ErrPasswordHashRequired
	default:
		return nil
	}
}

// UserPasswordResetResult reports what the reset recorded.
type UserPasswordResetResult struct {
	User *types.AuthUser
}

// UserPasswordResetCommand drives AuthRepository.ResetPassword with auditing.
type UserPasswordResetCommand struct {
	repo   types.AuthRepository
	clock  types.Clock
	sink   types.AuditSink
	hooks  types.Hooks
	logger types.Logger
	guard  scope.Guard
}

// PasswordResetCommandConfig collects the reset handler dependencies.
type PasswordResetCommandConfig struct {
	Repository types.AuthRepository
	Clock      types.Clock
	Audit      types.AuditSink
	Hooks      types.Hooks
	Logger     types.Logger
	ScopeGuard scope.Guard
}

// NewUserPasswordResetCommand wires the handler.
func NewUserPasswordResetCommand(cfg PasswordResetCommandConfig) *UserPasswordResetCommand {
	return &UserPasswordResetCommand{
		repo:   cfg.Repository,
		clock:  safeClock(cfg.Clock),
		sink:   safeAuditSink(cfg.Audit),
		hooks:  safeHooks(cfg.Hooks),
		logger: safeLogger(cfg.Logger),
		guard:  safeScopeGuard(cfg.ScopeGuard),
	}
}

var _ gocommand.Commander[UserPasswordResetInput] = (*UserPasswordResetCommand)(nil)

// Execute swaps the stored hash and writes the audit entry.
func (c *UserPasswordResetCommand) Execute(ctx context.Context, input UserPasswordResetInput) error {
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

	user, err := c.repo.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if err := c.repo.ResetPassword(ctx, input.UserID, input.NewPasswordHash); err != nil {
		return err
	}

	data := map[string]any{
		"user_email": user.Email,
	}
	if input.TokenJTI != "" {
		data["jti"] = input.TokenJTI
	}
	if !input.TokenExpiresAt.IsZero() {
		data["expires_at"] = input.TokenExpiresAt
	}
	record := types.AuditRecord{
		UserID:      input.UserID,
		ActorID:     input.Actor.ID,
		Verb:        "user.password.reset",
		ObjectType:  "user",
		ObjectID:    input.UserID.String(),
		Channel:     "password",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data:        data,
		OccurredAt:  now(c.clock),
	}
	logAudit(ctx, c.sink, record)
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		input.Result.User = user
	}
	return nil
}
