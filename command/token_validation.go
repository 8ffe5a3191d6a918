package command

import (
	"context"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// tokenVerifier is the shared check pipeline behind validate and consume:
// signature, ledger row, status, expiry, user binding, then scope.
type tokenVerifier struct {
	tokens   types.UserTokenRepository
	manager  types.SecureLinkManager
	clock    types.Clock
	enforcer types.ScopeEnforcer
}

func newTokenVerifier(clock types.Clock, tokens types.UserTokenRepository, manager types.SecureLinkManager, enforcer types.ScopeEnforcer) tokenVerifier {
	return tokenVerifier{
		tokens:   tokens,
		manager:  manager,
		clock:    safeClock(clock),
		enforcer: enforcer,
	}
}

func (v tokenVerifier) verify(ctx context.Context, token string, tokenType types.UserTokenType, scope types.ScopeFilter) (types.SecureLinkPayload, *types.UserToken, error) {
	if v.manager == nil {
		return nil, nil, types.ErrMissingSecureLinkManager
	}
	if v.tokens == nil {
		return nil, nil, types.ErrMissingUserTokenRepository
	}
	if strings.TrimSpace(token) == "" {
		return nil, nil, ErrTokenRequired
	}
	if tokenType == "" {
		return nil, nil, ErrTokenTypeRequired
	}

	payloadMap, err := v.manager.Validate(token)
	if err != nil {
		return nil, nil, err
	}
	payload := types.SecureLinkPayload(payloadMap)
	jti := payloadString(payload, "jti")
	if jti == "" {
		return nil, nil, ErrTokenJTIRequired
	}

	record, err := v.tokens.GetTokenByJTI(ctx, tokenType, jti)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, ErrTokenNotFound
	}
	if err := v.checkUsable(ctx, record, payload, tokenType, jti); err != nil {
		return nil, nil, err
	}

	payloadUserID := payloadUUID(payload, "user_id")
	if payloadUserID != uuid.Nil && record.UserID != uuid.Nil && payloadUserID != record.UserID {
		return nil, nil, ErrTokenUserMismatch
	}

	if v.enforcer != nil {
		if err := v.enforcer(ctx, payload, scope); err != nil {
			return nil, nil, err
		}
	}

	return payload, record, nil
}

// checkUsable rejects burned or stale tokens. Expiry falls back to the
// payload claim when the ledger row has no timestamp, and lazily-expired
// rows get their status flipped on the way out.
func (v tokenVerifier) checkUsable(ctx context.Context, record *types.UserToken, payload types.SecureLinkPayload, tokenType types.UserTokenType, jti string) error {
	if record.Status == types.UserTokenStatusUsed || !record.UsedAt.IsZero() {
		return ErrTokenAlreadyUsed
	}
	if record.Status == types.UserTokenStatusExpired {
		return ErrTokenExpired
	}
	expiresAt := record.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = payloadTime(payload, "expires_at")
	}
	if !expiresAt.IsZero() && now(v.clock).After(expiresAt) {
		_ = v.tokens.UpdateTokenStatus(ctx, tokenType, jti, types.UserTokenStatusExpired, time.Time{})
		return ErrTokenExpired
	}
	return nil
}

// UserTokenValidateInput checks an onboarding token without burning it.
type UserTokenValidateInput struct {
	Token     string
	TokenType types.UserTokenType
	Scope     types.ScopeFilter
	Result    *UserTokenValidateResult
}

// Type implements gocommand.Message.
func (UserTokenValidateInput) Type() string {
	return "command.user.token.validate"
}

// Validate implements gocommand.Message.
func (input UserTokenValidateInput) Validate() error {
	if strings.TrimSpace(input.Token) == "" {
		return ErrTokenRequired
	}
	if input.TokenType == "" {
		return ErrTokenTypeRequired
	}
	return nil
}

// UserTokenValidateResult carries the decoded payload and the ledger row.
type UserTokenValidateResult struct {
	Token   *types.UserToken
	Payload types.SecureLinkPayload
}

// UserTokenValidateCommand verifies a signed token against its ledger row
// without changing its state. Useful for pre-flight checks on landing pages.
type UserTokenValidateCommand struct {
	verifier tokenVerifier
}

// TokenValidateConfig collects the validation handler dependencies.
type TokenValidateConfig struct {
	TokenRepository types.UserTokenRepository
	SecureLinks     types.SecureLinkManager
	Clock           types.Clock
	ScopeEnforcer   types.ScopeEnforcer
}

// NewUserTokenValidateCommand wires the validation handler.
func NewUserTokenValidateCommand(cfg TokenValidateConfig) *UserTokenValidateCommand {
	return &UserTokenValidateCommand{
		verifier: newTokenVerifier(cfg.Clock, cfg.TokenRepository, cfg.SecureLinks, cfg.ScopeEnforcer),
	}
}

var _ gocommand.Commander[UserTokenValidateInput] = (*UserTokenValidateCommand)(nil)

// Execute runs the verification pipeline and reports the payload.
func (c *UserTokenValidateCommand) Execute(ctx context.Context, input UserTokenValidateInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	payload, record, err := c.verifier.verify(ctx, input.Token, input.TokenType, input.Scope)
	if err != nil {
		return err
	}
	if input.Result != nil {
		input.Result.Token = record
		input.Result.Payload = payload
	}
	return nil
}

// UserTokenConsumeInput validates an onboarding token and burns it.
type UserTokenConsumeInput struct {
	Token     string
	TokenType types.UserTokenType
	Scope     types.ScopeFilter
	Result    *UserTokenConsumeResult
}

// Type implements gocommand.Message.
func (UserTokenConsumeInput) Type() string {
	return "command.user.token.consume"
}

// Validate implements gocommand.Message.
func (input UserTokenConsumeInput) Validate() error {
	if strings.TrimSpace(input.Token) == "" {
		return ErrTokenRequired
	}
	if input.TokenType == "" {
		return ErrTokenTypeRequired
	}
	return nil
}

// UserTokenConsumeResult carries the consumed token and its payload.
type UserTokenConsumeResult struct {
	Token   *types.UserToken
	Payload types.SecureLinkPayload
}

// UserTokenConsumeCommand verifies a token and marks it used in one step.
// The status update uses an expected-count guard so two racing consumers
// cannot both succeed.
type UserTokenConsumeCommand struct {
	verifier tokenVerifier
	tokens   types.UserTokenRepository
	clock    types.Clock
	sink     types.AuditSink
	hooks    types.Hooks
}

// TokenConsumeConfig collects the consumption handler dependencies.
type TokenConsumeConfig struct {
	TokenRepository types.UserTokenRepository
	SecureLinks     types.SecureLinkManager
	Clock           types.Clock
	ScopeEnforcer   types.ScopeEnforcer
	Audit           types.AuditSink
	Hooks           types.Hooks
}

// NewUserTokenConsumeCommand wires the consumption handler.
func NewUserTokenConsumeCommand(cfg TokenConsumeConfig) *UserTokenConsumeCommand {
	clock := safeClock(cfg.Clock)
	return &UserTokenConsumeCommand{
		verifier: newTokenVerifier(clock, cfg.TokenRepository, cfg.SecureLinks, cfg.ScopeEnforcer),
		tokens:   cfg.TokenRepository,
		clock:    clock,
		sink:     safeAuditSink(cfg.Audit),
		hooks:    safeHooks(cfg.Hooks),
	}
}

var _ gocommand.Commander[UserTokenConsumeInput] = (*UserTokenConsumeCommand)(nil)

// Execute verifies the token, burns it, and writes the audit entry.
func (c *UserTokenConsumeCommand) Execute(ctx context.Context, input UserTokenConsumeInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	payload, record, err := c.verifier.verify(ctx, input.Token, input.TokenType, input.Scope)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrTokenNotFound
	}

	usedAt := now(c.clock)
	if err := c.tokens.UpdateTokenStatus(ctx, input.TokenType, record.JTI, types.UserTokenStatusUsed, usedAt); err != nil {
		return c.explainConsumeFailure(ctx, err, input.TokenType, record.JTI, usedAt)
	}
	record.Status = types.UserTokenStatusUsed
	record.UsedAt = usedAt

	verb, channel := tokenConsumeAudit(input.TokenType)
	scopeFilter := scopeFromPayload(payload)
	auditRecord := types.AuditRecord{
		UserID:      record.UserID,
		ActorID:     record.UserID,
		Verb:        verb,
		ObjectType:  "user",
		ObjectID:    record.UserID.String(),
		Channel:     channel,
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"token_type": string(input.TokenType),
			"jti":        record.JTI,
			"expires_at": record.ExpiresAt,
			"email":      payloadString(payload, "email"),
		},
		OccurredAt: usedAt,
	}
	logAudit(ctx, c.sink, auditRecord)
	emitAuditHook(ctx, c.hooks, auditRecord)

	if input.Result != nil {
		input.Result.Token = record
		input.Result.Payload = payload
	}
	return nil
}

// explainConsumeFailure maps a lost consume race onto the error a second
// caller deserves: the row is re-read to tell "used" apart from "expired".
func (c *UserTokenConsumeCommand) explainConsumeFailure(ctx context.Context, err error, tokenType types.UserTokenType, jti string, usedAt time.Time) error {
	if repository.IsSQLExpectedCountViolation(err) {
		latest, lookupErr := c.tokens.GetTokenByJTI(ctx, tokenType, jti)
		if lookupErr == nil {
			if latest == nil {
				return ErrTokenNotFound
			}
			if !latest.ExpiresAt.IsZero() && usedAt.After(latest.ExpiresAt) {
				return ErrTokenExpired
			}
			if latest.Status == types.UserTokenStatusExpired {
				return ErrTokenExpired
			}
			if latest.Status == types.UserTokenStatusUsed || !latest.UsedAt.IsZero() {
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

func tokenConsumeAudit(tokenType types.UserTokenType) (string, string) {
	switch tokenType {
	case types.UserTokenWorkspaceInvite:
		return "user.invite.consumed", "invites"
	case types.UserTokenRegistration:
		return "user.registration.completed", "registration"
	default:
		return "user.token.consumed", "tokens"
	}
}
