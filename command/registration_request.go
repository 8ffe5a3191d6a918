package command

import (
	"context"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

const defaultRegistrationTTL = 72 * time.Hour

// UserRegistrationRequestInput starts a self-registration: a pending account
// plus a signed link the applicant completes it with.
type UserRegistrationRequestInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Role      string
	Metadata  map[string]any
	Actor     types.ActorRef
	Scope     types.ScopeFilter
	Result    *UserRegistrationRequestResult
}

// Type implements gocommand.Message.
func (UserRegistrationRequestInput) Type() string {
	return "command.user.registration.request"
}

// Validate implements gocommand.Message.
func (input UserRegistrationRequestInput) Validate() error {
	if strings.TrimSpace(input.Email) == "" {
		return ErrUserEmailRequired
	}
	return nil
}

// UserRegistrationRequestResult carries the pending account and its link.
type UserRegistrationRequestResult struct {
	User      *types.AuthUser
	Token     string
	ExpiresAt time.Time
}

// UserRegistrationRequestCommand creates a pending account, mints a
// registration link, and records the token in the ledger. Consuming the
// token (UserTokenConsumeCommand) finishes the flow.
type UserRegistrationRequestCommand struct {
	repo     types.AuthRepository
	tokens   types.UserTokenRepository
	manager  types.SecureLinkManager
	gate     featuregate.FeatureGate
	clock    types.Clock
	idGen    types.IDGenerator
	sink     types.AuditSink
	hooks    types.Hooks
	logger   types.Logger
	tokenTTL time.Duration
	guard    scope.Guard
	route    string
}

// RegistrationRequestConfig collects the registration flow dependencies.
type RegistrationRequestConfig struct {
	Repository      types.AuthRepository
	TokenRepository types.UserTokenRepository
	SecureLinks     types.SecureLinkManager
	Gate            featuregate.FeatureGate
	Clock           types.Clock
	IDGen           types.IDGenerator
	Audit           types.AuditSink
	Hooks           types.Hooks
	Logger          types.Logger
	TokenTTL        time.Duration
	ScopeGuard      scope.Guard
	Route           string
}

// NewUserRegistrationRequestCommand wires the registration handler.
// The token TTL falls back to the link manager's expiration, then to 72h.
func NewUserRegistrationRequestCommand(cfg RegistrationRequestConfig) *UserRegistrationRequestCommand {
	return &UserRegistrationRequestCommand{
		repo:     cfg.Repository,
		tokens:   cfg.TokenRepository,
		manager:  cfg.SecureLinks,
		gate:     cfg.Gate,
		clock:    safeClock(cfg.Clock),
		idGen:    defaultIDGen(cfg.IDGen),
		sink:     safeAuditSink(cfg.Audit),
		hooks:    safeHooks(cfg.Hooks),
		logger:   safeLogger(cfg.Logger),
		tokenTTL: registrationTTL(cfg),
		guard:    safeScopeGuard(cfg.ScopeGuard),
		route:    registrationRoute(cfg.Route),
	}
}

func registrationTTL(cfg RegistrationRequestConfig) time.Duration {
	if cfg.TokenTTL != 0 {
		return cfg.TokenTTL
	}
	if cfg.SecureLinks != nil {
		if ttl := cfg.SecureLinks.GetExpiration(); ttl != 0 {
			return ttl
		}
	}
	return defaultRegistrationTTL
}

func registrationRoute(route string) string {
	if route = strings.TrimSpace(route); route != "" {
		return route
	}
	return SecureLinkRouteRegister
}

func defaultIDGen(gen types.IDGenerator) types.IDGenerator {
	if gen != nil {
		return gen
	}
	return types.UUIDGenerator{}
}

var _ gocommand.Commander[UserRegistrationRequestInput] = (*UserRegistrationRequestCommand)(nil)

// Execute creates the pending account and issues its registration token.
func (c *UserRegistrationRequestCommand) Execute(ctx context.Context, input UserRegistrationRequestInput) error {
	if c == nil || c.repo == nil {
		return types.ErrMissingAuthRepository
	}
	if c.manager == nil {
		return types.ErrMissingSecureLinkManager
	}
	if c.tokens == nil {
		return types.ErrMissingUserTokenRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}

	// Anonymous signups skip the guard; actor-initiated ones (an admin
	// pre-registering someone) go through the write policy.
	scopeFilter := input.Scope.Clone()
	if input.Actor.ID != uuid.Nil {
		var err error
		scopeFilter, err = c.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionUsersWrite, uuid.Nil)
		if err != nil {
			return err
		}
	}

	enabled, err := featureEnabled(ctx, c.gate, featureUsersSignup, scopeFilter, uuid.Nil)
	if err != nil {
		return err
	}
	if !enabled {
		return ErrSignupDisabled
	}

	created, err := c.repo.Create(ctx, &types.AuthUser{
		Email:     strings.TrimSpace(input.Email),
		Username:  strings.TrimSpace(input.Username),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Role:      input.Role,
		Status:    types.LifecycleStatePending,
		Metadata:  cloneMap(input.Metadata),
	})
	if err != nil {
		return err
	}

	issuedAt := now(c.clock)
	expiresAt := issuedAt.Add(c.tokenTTL)
	jti := c.idGen.UUID().String()

	token, err := c.manager.Generate(c.route, buildSecureLinkPayload(
		SecureLinkActionRegister,
		created,
		scopeFilter,
		jti,
		issuedAt,
		expiresAt,
		secureLinkSourceDefault,
	))
	if err != nil {
		return err
	}

	if _, err := c.tokens.CreateToken(ctx, types.UserToken{
		UserID:    created.ID,
		Type:      types.UserTokenRegistration,
		JTI:       jti,
		Status:    types.UserTokenStatusIssued,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	attachTokenMetadata(created, "registration", tokenMetadata(jti, issuedAt, expiresAt, input.Actor, scopeFilter))
	if updated, err := c.repo.Update(ctx, created); err != nil {
		return err
	} else if updated != nil {
		created = updated
	}

	actor := input.Actor
	if actor.ID == uuid.Nil {
		actor = types.ActorRef{ID: created.ID, Type: "user"}
	}
	// The raw token never lands in the audit trail, only its jti.
	auditRecord := types.AuditRecord{
		UserID:      created.ID,
		ActorID:     actor.ID,
		Verb:        "user.registration.requested",
		ObjectType:  "user",
		ObjectID:    created.ID.String(),
		Channel:     "registration",
		TenantID:    scopeFilter.TenantID,
		WorkspaceID: scopeFilter.WorkspaceID,
		Data: map[string]any{
			"email":      created.Email,
			"role":       created.Role,
			"jti":        jti,
			"expires_at": expiresAt,
		},
		OccurredAt: issuedAt,
	}
	logAudit(ctx, c.sink, auditRecord)
	emitAuditHook(ctx, c.hooks, auditRecord)

	if input.Result != nil {
		*input.Result = UserRegistrationRequestResult{
			User:      created,
			Token:     token,
			ExpiresAt: expiresAt,
		}
	}
	return nil
}
