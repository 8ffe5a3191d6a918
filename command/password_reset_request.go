package command

import (
	"context"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

const defaultPasswordResetTTL = 1 * time.Hour

// UserPasswordResetRequestInput asks for a reset link by user id or by
// email/username.
type UserPasswordResetRequestInput struct {
	Identifier string
	UserID     uuid.UUID
	Actor      types.ActorRef
	Scope      types.ScopeFilter
	Metadata   map[string]any
	Result     *UserPasswordResetRequestResult
}

// Type implements gocommand.Message.
func (UserPasswordResetRequestInput) Type() string {
	return "command.user.password_reset.request"
}

// Validate implements gocommand.Message.
func (input UserPasswordResetRequestInput) Validate() error {
	if input.UserID == uuid.Nil && strings.TrimSpace(input.Identifier) == "" {
		return ErrResetIdentifierRequired
	}
	return nil
}

// UserPasswordResetRequestResult carries the minted link details.
type UserPasswordResetRequestResult struct {
	User      *types.AuthUser
	Token     string
	ExpiresAt time.Time
}

// UserPasswordResetRequestCommand mints a signed reset link and writes the
// matching row to the reset ledger. The confirm command later checks the
// link against that row.
type UserPasswordResetRequestCommand struct {
	repo     types.AuthRepository
	resets   types.PasswordResetRepository
	manager  types.SecureLinkManager
	gate     featuregate.FeatureGate
	clock    types.Clock
	idGen    types.IDGenerator
	sink     types.AuditSink
	hooks    types.Hooks
	logger   types.Logger
	tokenTTL time.Duration
	route    string
}

// PasswordResetRequestConfig collects the reset issuance dependencies.
type PasswordResetRequestConfig struct {
	Repository      types.AuthRepository
	ResetRepository types.PasswordResetRepository
	SecureLinks     types.SecureLinkManager
	Gate            featuregate.FeatureGate
	Clock           types.Clock
	IDGen           types.IDGenerator
	Audit           types.AuditSink
	Hooks           types.Hooks
	Logger          types.Logger
	TokenTTL        time.Duration
	Route           string
}

// NewUserPasswordResetRequestCommand constructs the request handler. The
// token TTL falls back to the link manager's expiration, then to one hour.
func NewUserPasswordResetRequestCommand(cfg PasswordResetRequestConfig) *UserPasswordResetRequestCommand {
	return &UserPasswordResetRequestCommand{
		repo:     cfg.Repository,
		resets:   cfg.ResetRepository,
		manager:  cfg.SecureLinks,
		gate:     cfg.Gate,
		clock:    safeClock(cfg.Clock),
		idGen:    defaultIDGen(cfg.IDGen),
		sink:     safeAuditSink(cfg.Audit),
		hooks:    safeHooks(cfg.Hooks),
		logger:   safeLogger(cfg.Logger),
		tokenTTL: passwordResetTTL(cfg),
		route:    passwordResetRoute(cfg.Route),
	}
}

func passwordResetTTL(cfg PasswordResetRequestConfig) time.Duration {
	if cfg.TokenTTL != 0 {
		return cfg.TokenTTL
	}
	if cfg.SecureLinks != nil {
		if ttl := cfg.SecureLinks.GetExpiration(); ttl != 0 {
			return ttl
		}
	}
	return defaultPasswordResetTTL
}

func passwordResetRoute(route string) string {
	if route = strings.TrimSpace(route); route != "" {
		return route
	}
	return SecureLinkRoutePasswordReset
}

var _ gocommand.Commander[UserPasswordResetRequestInput] = (*UserPasswordResetRequestCommand)(nil)

// Execute looks the account up, mints a reset link, and logs the request.
func (c *UserPasswordResetRequestCommand) Execute(ctx context.Context, input UserPasswordResetRequestInput) error {
	if c == nil || c.repo == nil {
		return types.ErrMissingAuthRepository
	}
	if c.manager == nil {
		return types.ErrMissingSecureLinkManager
	}
	if c.resets == nil {
		return types.ErrMissingPasswordResetRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	enabled, err := featureEnabled(ctx, c.gate, featureUsersPasswordReset, input.Scope, input.UserID)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrPasswordResetDisabled
	}

	user, err := c.lookup(ctx, input)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	issuedAt := now(c.clock)
	expiresAt := issuedAt.Add(c.tokenTTL)
	jti := c.idGen.UUID().String()

	token, err := c.manager.Generate(c.route, buildSecureLinkPayload(
		SecureLinkActionPasswordReset,
		user,
		input.Scope,
		jti,
		issuedAt,
		expiresAt,
		secureLinkSourceDefault,
	))
	if err != nil {
		return err
	}

	if _, err := c.resets.CreateReset(ctx, types.PasswordResetRecord{
		UserID:    user.ID,
		Email:     user.Email,
		Status:    types.PasswordResetStatusRequested,
		JTI:       jti,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Scope:     input.Scope,
	}); err != nil {
		return err
	}

	actor := input.Actor
	if actor.ID == uuid.Nil {
		actor = types.ActorRef{ID: user.ID, Type: "user"}
	}
	// jti only; the signed token itself stays out of the audit trail.
	data := map[string]any{
		"user_email": user.Email,
		"jti":        jti,
		"expires_at": expiresAt,
	}
	if len(input.Metadata) > 0 {
		data["metadata"] = cloneMap(input.Metadata)
	}
	auditRecord := types.AuditRecord{
		UserID:      user.ID,
		ActorID:     actor.ID,
		Verb:        "user.password.reset.requested",
		ObjectType:  "user",
		ObjectID:    user.ID.String(),
		Channel:     "password",
		TenantID:    input.Scope.TenantID,
		WorkspaceID: input.Scope.WorkspaceID,
		Data:        data,
		OccurredAt:  issuedAt,
	}
	logAudit(ctx, c.sink, auditRecord)
	emitAuditHook(ctx, c.hooks, auditRecord)

	if input.Result != nil {
		*input.Result = UserPasswordResetRequestResult{
			User:      user,
			Token:     token,
			ExpiresAt: expiresAt,
		}
	}
	return nil
}

func (c *UserPasswordResetRequestCommand) lookup(ctx context.Context, input UserPasswordResetRequestInput) (*types.AuthUser, error) {
	if input.UserID != uuid.Nil {
		return c.repo.GetByID(ctx, input.UserID)
	}
	return c.repo.GetByIdentifier(ctx, strings.TrimSpace(input.Identifier))
}
