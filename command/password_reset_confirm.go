package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	gocommand "github.com/goliatone/go-command"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/inchronicle/go-stories/pkg/types"
)

// UserPasswordResetConfirmInput carries the signed token and the replacement hash.
type UserPasswordResetConfirmInput struct {
	Token           string
	NewPasswordHash string
	Scope           types.ScopeFilter
	Result          *UserPasswordResetConfirmResult
}

// Type implements gocommand.Message.
func (UserPasswordResetConfirmInput) Type() string {
	return "command.user.password_reset.confirm"
}

// Validate implements gocommand.Message.
func (input UserPasswordResetConfirmInput) Validate() error {
	if strings.TrimSpace(input.Token) == "" {
		return ErrTokenRequired
	}
	if strings.TrimSpace(input.NewPasswordHash) == "" {
		return ErrPasswordHashRequired
	}
	return nil
}

// UserPasswordResetConfirmResult returns the account whose password changed.
type UserPasswordResetConfirmResult struct {
	User *types.AuthUser
}

// UserPasswordResetConfirmCommand burns a reset token and swaps the password.
// The token is consumed before the hash changes so a raced confirm can never
// reset twice; consumption conflicts are re-read to report the precise cause.
type UserPasswordResetConfirmCommand struct {
	manager  types.SecureLinkManager
	resets   types.PasswordResetRepository
	resetCmd *UserPasswordResetCommand
	clock    types.Clock
	enforcer types.ScopeEnforcer
	logger   types.Logger
}

// PasswordResetConfirmConfig wires the reset ledger, token manager, and clock.
type PasswordResetConfirmConfig struct {
	ResetRepository types.PasswordResetRepository
	SecureLinks     types.SecureLinkManager
	ResetCommand    *UserPasswordResetCommand
	Clock           types.Clock
	ScopeEnforcer   types.ScopeEnforcer
	Logger          types.Logger
}

// NewUserPasswordResetConfirmCommand builds the confirm handler with safe fallbacks
// for the clock and logger.
func NewUserPasswordResetConfirmCommand(cfg PasswordResetConfirmConfig) *UserPasswordResetConfirmCommand {
	return &UserPasswordResetConfirmCommand{
		manager:  cfg.SecureLinks,
		resets:   cfg.ResetRepository,
		resetCmd: cfg.ResetCommand,
		clock:    safeClock(cfg.Clock),
		enforcer: cfg.ScopeEnforcer,
		logger:   safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[UserPasswordResetConfirmInput] = (*UserPasswordResetConfirmCommand)(nil)

// Execute verifies the signed token against the reset ledger, consumes it,
// and delegates the actual hash swap to the reset command.
func (c *UserPasswordResetConfirmCommand) Execute(ctx context.Context, input UserPasswordResetConfirmInput) error {
	if c == nil || c.manager == nil {
		return types.ErrMissingSecureLinkManager
	}
	if c.resets == nil {
		return types.ErrMissingPasswordResetRepository
	}
	if c.resetCmd == nil {
		return ErrResetCommandRequired
	}
	if err := input.Validate(); err != nil {
		return err
	}

	payloadMap, err := c.manager.Validate(input.Token)
	if err != nil {
		return err
	}
	payload := types.SecureLinkPayload(payloadMap)
	jti := payloadString(payload, "jti")
	if jti == "" {
		return ErrTokenJTIRequired
	}

	record, err := c.resets.GetResetByJTI(ctx, jti)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrTokenNotFound
	}
	if err := c.checkResetUsable(ctx, record, payload, jti); err != nil {
		return err
	}

	payloadUserID := payloadUUID(payload, "user_id")
	if payloadUserID != uuid.Nil && record.UserID != uuid.Nil && payloadUserID != record.UserID {
		return ErrTokenUserMismatch
	}

	if c.enforcer != nil {
		if err := c.enforcer(ctx, payload, input.Scope); err != nil {
			return err
		}
	}

	consumedAt := now(c.clock)
	if err := c.resets.ConsumeReset(ctx, jti, consumedAt); err != nil {
		return c.explainConsumeFailure(ctx, err, jti, consumedAt)
	}

	expiresAt := record.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = payloadTime(payload, "expires_at")
	}
	resetScope := scopeFromPayload(payload)
	if resetScope.TenantID == uuid.Nil && resetScope.WorkspaceID == uuid.Nil {
		resetScope = input.Scope
	}

	result := &UserPasswordResetResult{}
	if err := c.resetCmd.Execute(ctx, UserPasswordResetInput{
		UserID:          record.UserID,
		NewPasswordHash: strings.TrimSpace(input.NewPasswordHash),
		TokenJTI:        jti,
		TokenExpiresAt:  expiresAt,
		Actor:           types.ActorRef{ID: record.UserID, Type: "user"},
		Scope:           resetScope,
		Result:          result,
	}); err != nil {
		return err
	}

	if err := c.resets.UpdateResetStatus(ctx, jti, types.PasswordResetStatusChanged, now(c.clock)); err != nil {
		return err
	}

	if input.Result != nil {
		input.Result.User = result.User
	}
	return nil
}

// checkResetUsable rejects tokens that were already burned or aged out,
// marking lazily-expired rows in the ledger as it goes.
func (c *UserPasswordResetConfirmCommand) checkResetUsable(ctx context.Context, record *types.PasswordResetRecord, payload types.SecureLinkPayload, jti string) error {
	if record.Status == types.PasswordResetStatusChanged || !record.UsedAt.IsZero() {
		return ErrTokenAlreadyUsed
	}
	if record.Status == types.PasswordResetStatusExpired {
		return ErrTokenExpired
	}

	expiresAt := record.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = payloadTime(payload, "expires_at")
	}
	if !expiresAt.IsZero() && now(c.clock).After(expiresAt) {
		_ = c.resets.UpdateResetStatus(ctx, jti, types.PasswordResetStatusExpired, time.Time{})
		return ErrTokenExpired
	}
	return nil
}

// explainConsumeFailure turns a lost consume race into the error the caller
// would have seen had it arrived second in the first place.
func (c *UserPasswordResetConfirmCommand) explainConsumeFailure(ctx context.Context, err error, jti string, consumedAt time.Time) error {
	if repository.IsSQLExpectedCountViolation(err) {
		latest, lookupErr := c.resets.GetResetByJTI(ctx, jti)
		if lookupErr == nil {
			if latest == nil {
				return ErrTokenNotFound
			}
			if !latest.ExpiresAt.IsZero() && consumedAt.After(latest.ExpiresAt) {
				return ErrTokenExpired
			}
			if latest.Status == types.PasswordResetStatusExpired {
				return ErrTokenExpired
			}
			if latest.Status == types.PasswordResetStatusChanged || !latest.UsedAt.IsZero() {
				return ErrTokenAlreadyUsed
			}
		}
		return ErrTokenAlreadyUsed
	}
	if repository.IsRecordNotFound(err) {
		return ErrTokenNotFound
	}
	return err
}
