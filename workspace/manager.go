package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Invitation event actions.
const (
	ActionInvited  = "invited"
	ActionAccepted = "accepted"
	ActionDeclined = "declined"
	ActionRevoked  = "revoked"
)

// DefaultInviteRoute names the securelink route invitation links resolve to.
const DefaultInviteRoute = "workspaces.invite_accept"

const (
	defaultInviteTTL       = 72 * time.Hour
	featureWorkspaceInvite = "workspaces.invite"
	inviteLinkAction       = "workspace_invite"
)

var (
	// ErrInviteDisabled indicates the invite feature gate is off for the scope.
	ErrInviteDisabled = errors.New("workspace: invitations disabled")
	// ErrRoleForbidden indicates the actor's role does not allow the operation.
	ErrRoleForbidden = errors.New("workspace: actor lacks the required role")
	// ErrInvitationNotFound indicates no invitation matches the token.
	ErrInvitationNotFound = errors.New("workspace: invitation not found")
	// ErrEmailMismatch indicates the invitation targets a different address.
	ErrEmailMismatch = errors.New("workspace: invitation issued for a different email")
	// ErrInvalidInviteToken indicates a link payload without a usable JTI.
	ErrInvalidInviteToken = errors.New("workspace: invite token payload invalid")
	// ErrMemberNotFound indicates the user does not belong to the workspace.
	ErrMemberNotFound = errors.New("workspace: member not found")
	// ErrLastOwner indicates the operation would leave the workspace ownerless.
	ErrLastOwner = errors.New("workspace: workspace needs at least one owner")
)

// ManagerConfig wires the workspace manager.
type ManagerConfig struct {
	Workspaces types.WorkspaceRepository
	Tokens     types.UserTokenRepository
	Links      types.SecureLinkManager
	Gate       featuregate.FeatureGate
	Hooks      types.Hooks
	Clock      types.Clock
	IDGen      types.IDGenerator
	Logger     types.Logger
	TokenTTL   time.Duration
	Route      string
}

// Manager runs the workspace lifecycle: creation, membership administration,
// and the securelink invitation flow.
type Manager struct {
	workspaces types.WorkspaceRepository
	tokens     types.UserTokenRepository
	links      types.SecureLinkManager
	gate       featuregate.FeatureGate
	hooks      types.Hooks
	clock      types.Clock
	idGen      types.IDGenerator
	logger     types.Logger
	tokenTTL   time.Duration
	route      string
}

// NewManager validates dependencies and builds the workspace manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Workspaces == nil {
		return nil, types.ErrMissingWorkspaceRepository
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	ttl := cfg.TokenTTL
	if ttl == 0 && cfg.Links != nil {
		ttl = cfg.Links.GetExpiration()
	}
	if ttl == 0 {
		ttl = defaultInviteTTL
	}
	route := strings.TrimSpace(cfg.Route)
	if route == "" {
		route = DefaultInviteRoute
	}
	return &Manager{
		workspaces: cfg.Workspaces,
		tokens:     cfg.Tokens,
		links:      cfg.Links,
		gate:       cfg.Gate,
		hooks:      cfg.Hooks,
		clock:      clock,
		idGen:      idGen,
		logger:     logger,
		tokenTTL:   ttl,
		route:      route,
	}, nil
}

// CreateWorkspace creates the workspace with its owner membership.
func (m *Manager) CreateWorkspace(ctx context.Context, workspace types.Workspace) (*types.Workspace, error) {
	return m.workspaces.CreateWorkspace(ctx, workspace)
}

// UpdateWorkspace applies name, slug, and description changes for owners and
// admins. Ownership never moves through this path.
func (m *Manager) UpdateWorkspace(ctx context.Context, actorID uuid.UUID, workspace types.Workspace) (*types.Workspace, error) {
	if _, err := m.requireRole(ctx, workspace.ID, actorID, types.WorkspaceRoleOwner, types.WorkspaceRoleAdmin); err != nil {
		return nil, err
	}
	workspace.OwnerID = uuid.Nil
	return m.workspaces.UpdateWorkspace(ctx, workspace)
}

// DeleteWorkspace removes the workspace. Owners only.
func (m *Manager) DeleteWorkspace(ctx context.Context, actorID, workspaceID uuid.UUID) error {
	if _, err := m.requireRole(ctx, workspaceID, actorID, types.WorkspaceRoleOwner); err != nil {
		return err
	}
	return m.workspaces.DeleteWorkspace(ctx, workspaceID)
}

// Members lists workspace members.
func (m *Manager) Members(ctx context.Context, workspaceID uuid.UUID, pagination types.Pagination) ([]types.WorkspaceMember, int, error) {
	return m.workspaces.ListMembers(ctx, workspaceID, pagination)
}

// Invitations lists invitations per the filter.
func (m *Manager) Invitations(ctx context.Context, filter types.InvitationFilter) (types.InvitationPage, error) {
	return m.workspaces.ListInvitations(ctx, filter)
}

// InviteInput carries the data required to invite an email address into a
// workspace.
type InviteInput struct {
	WorkspaceID uuid.UUID
	Email       string
	Role        types.WorkspaceMemberRole
	ActorID     uuid.UUID
	Scope       types.ScopeFilter
}

// InviteResult exposes the created invitation and the signed link to send.
type InviteResult struct {
	Invitation *types.WorkspaceInvitation
	Link       string
	ExpiresAt  time.Time
}

// Invite creates the invitation row, mints a signed securelink carrying the
// JTI, and mirrors the JTI into the tokens ledger.
func (m *Manager) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	if m.links == nil {
		return nil, types.ErrMissingSecureLinkManager
	}
	if m.tokens == nil {
		return nil, types.ErrMissingUserTokenRepository
	}
	if input.WorkspaceID == uuid.Nil {
		return nil, ErrWorkspaceIDRequired
	}
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if enabled, err := featureEnabled(ctx, m.gate, featureWorkspaceInvite, input.Scope, input.ActorID); err != nil {
		return nil, err
	} else if !enabled {
		return nil, ErrInviteDisabled
	}
	if _, err := m.requireRole(ctx, input.WorkspaceID, input.ActorID, types.WorkspaceRoleOwner, types.WorkspaceRoleAdmin); err != nil {
		return nil, err
	}

	issuedAt := m.clock.Now()
	expiresAt := issuedAt.Add(m.tokenTTL)
	jti := m.idGen.UUID().String()

	invitation, err := m.workspaces.CreateInvitation(ctx, types.WorkspaceInvitation{
		WorkspaceID: input.WorkspaceID,
		Email:       email,
		Role:        input.Role,
		Status:      types.InvitationPending,
		InvitedBy:   input.ActorID,
		JTI:         jti,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return nil, err
	}

	link, err := m.links.Generate(m.route, types.SecureLinkPayload{
		"action":       inviteLinkAction,
		"jti":          jti,
		"workspace_id": input.WorkspaceID.String(),
		"email":        email,
		"issued_at":    issuedAt.Format(time.RFC3339Nano),
		"expires_at":   expiresAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}

	if _, err := m.tokens.CreateToken(ctx, types.UserToken{
		WorkspaceID: input.WorkspaceID,
		Email:       email,
		Type:        types.UserTokenWorkspaceInvite,
		JTI:         jti,
		Status:      types.UserTokenStatusIssued,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	}); err != nil {
		return nil, err
	}

	m.fireInvitation(ctx, *invitation, ActionInvited, input.ActorID)
	return &InviteResult{
		Invitation: invitation,
		Link:       link,
		ExpiresAt:  expiresAt,
	}, nil
}

// Accept validates an invite link for the authenticated user, consumes the
// token, and adds the membership. The tokens ledger is the serialization
// point: whichever accept consumes the JTI first wins.
func (m *Manager) Accept(ctx context.Context, token string, userID uuid.UUID, email string) (*types.WorkspaceMember, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	invitation, err := m.resolveInviteLink(ctx, token, email)
	if err != nil {
		return nil, err
	}

	if existing, err := m.workspaces.GetMember(ctx, invitation.WorkspaceID, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrAlreadyMember, userID)
	}

	now := m.clock.Now()
	if err := m.tokens.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, invitation.JTI, types.UserTokenStatusUsed, now); err != nil {
		return nil, fmt.Errorf("workspace: invite token no longer valid: %w", err)
	}

	member, err := m.workspaces.AddMember(ctx, types.WorkspaceMember{
		WorkspaceID: invitation.WorkspaceID,
		UserID:      userID,
		Role:        invitation.Role,
		AddedBy:     invitation.InvitedBy,
	})
	if err != nil {
		return nil, err
	}

	if _, err := m.workspaces.UpdateInvitationStatus(ctx, invitation.ID, types.InvitationAccepted, userID, now); err != nil {
		return nil, err
	}
	m.fireInvitation(ctx, *invitation, ActionAccepted, userID)
	return member, nil
}

// Decline settles an invite link without joining. The token is revoked so
// the link cannot be replayed into an accept.
func (m *Manager) Decline(ctx context.Context, token string, email string) error {
	invitation, err := m.resolveInviteLink(ctx, token, email)
	if err != nil {
		return err
	}
	if err := m.tokens.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, invitation.JTI, types.UserTokenStatusRevoked, time.Time{}); err != nil {
		return fmt.Errorf("workspace: invite token no longer valid: %w", err)
	}
	if _, err := m.workspaces.UpdateInvitationStatus(ctx, invitation.ID, types.InvitationDeclined, uuid.Nil, m.clock.Now()); err != nil {
		return err
	}
	m.fireInvitation(ctx, *invitation, ActionDeclined, uuid.Nil)
	return nil
}

// Revoke withdraws a pending invitation. Owners and admins only.
func (m *Manager) Revoke(ctx context.Context, actorID, invitationID uuid.UUID) error {
	if m.tokens == nil {
		return types.ErrMissingUserTokenRepository
	}
	invitation, err := m.workspaces.GetInvitationByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if invitation.Status != types.InvitationPending {
		return types.ErrInvitationConsumed
	}
	if _, err := m.requireRole(ctx, invitation.WorkspaceID, actorID, types.WorkspaceRoleOwner, types.WorkspaceRoleAdmin); err != nil {
		return err
	}
	if err := m.tokens.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, invitation.JTI, types.UserTokenStatusRevoked, time.Time{}); err != nil {
		return fmt.Errorf("workspace: invite token no longer valid: %w", err)
	}
	if _, err := m.workspaces.UpdateInvitationStatus(ctx, invitation.ID, types.InvitationRevoked, uuid.Nil, m.clock.Now()); err != nil {
		return err
	}
	m.fireInvitation(ctx, *invitation, ActionRevoked, actorID)
	return nil
}

// ChangeMemberRole updates a member's role. Owner grants and owner demotions
// require an owner actor, and the last owner can never be demoted.
func (m *Manager) ChangeMemberRole(ctx context.Context, actorID, workspaceID, userID uuid.UUID, role types.WorkspaceMemberRole) (*types.WorkspaceMember, error) {
	if !validRole(string(role)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	actor, err := m.requireRole(ctx, workspaceID, actorID, types.WorkspaceRoleOwner, types.WorkspaceRoleAdmin)
	if err != nil {
		return nil, err
	}
	target, err := m.workspaces.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}
	touchesOwner := role == types.WorkspaceRoleOwner || target.Role == types.WorkspaceRoleOwner
	if touchesOwner && actor.Role != types.WorkspaceRoleOwner {
		return nil, ErrRoleForbidden
	}
	if target.Role == types.WorkspaceRoleOwner && role != types.WorkspaceRoleOwner {
		owners, err := m.countOwners(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
	}
	return m.workspaces.UpdateMemberRole(ctx, workspaceID, userID, role)
}

// RemoveMember removes a membership. Members may leave on their own;
// removing someone else takes an owner or admin, and owners can only be
// removed by owners. The last owner always stays.
func (m *Manager) RemoveMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID) error {
	target, err := m.workspaces.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if actorID != userID {
		actor, err := m.requireRole(ctx, workspaceID, actorID, types.WorkspaceRoleOwner, types.WorkspaceRoleAdmin)
		if err != nil {
			return err
		}
		if target.Role == types.WorkspaceRoleOwner && actor.Role != types.WorkspaceRoleOwner {
			return ErrRoleForbidden
		}
	}
	if target.Role == types.WorkspaceRoleOwner {
		owners, err := m.countOwners(ctx, workspaceID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}
	return m.workspaces.RemoveMember(ctx, workspaceID, userID)
}

// resolveInviteLink validates the signed link, loads the invitation, and
// checks it is still consumable for the given email. Expired invitations are
// settled on the way out.
func (m *Manager) resolveInviteLink(ctx context.Context, token, email string) (*types.WorkspaceInvitation, error) {
	if m.links == nil {
		return nil, types.ErrMissingSecureLinkManager
	}
	if m.tokens == nil {
		return nil, types.ErrMissingUserTokenRepository
	}
	normalized := normalizeEmail(email)
	if normalized == "" {
		return nil, ErrEmailRequired
	}
	payload, err := m.links.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("workspace: invite link rejected: %w", err)
	}
	jti := payloadString(payload, "jti")
	if jti == "" {
		return nil, ErrInvalidInviteToken
	}
	invitation, err := m.workspaces.GetInvitationByJTI(ctx, jti)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, ErrInvitationNotFound
	}
	if err := invitation.Consumable(m.clock.Now()); err != nil {
		if errors.Is(err, types.ErrInvitationExpired) {
			m.expireInvitation(ctx, *invitation)
		}
		return nil, err
	}
	if invitation.Email != normalized {
		return nil, ErrEmailMismatch
	}
	return invitation, nil
}

// expireInvitation settles the row and token so listings stop showing the
// invite as pending.
func (m *Manager) expireInvitation(ctx context.Context, invitation types.WorkspaceInvitation) {
	if _, err := m.workspaces.UpdateInvitationStatus(ctx, invitation.ID, types.InvitationExpired, uuid.Nil, m.clock.Now()); err != nil {
		m.logger.Debug("invitation expiry mark failed", "invitation_id", invitation.ID, "error", err)
	}
	if err := m.tokens.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, invitation.JTI, types.UserTokenStatusExpired, time.Time{}); err != nil {
		m.logger.Debug("invite token expiry mark failed", "jti", invitation.JTI, "error", err)
	}
}

func (m *Manager) requireRole(ctx context.Context, workspaceID, actorID uuid.UUID, roles ...types.WorkspaceMemberRole) (*types.WorkspaceMember, error) {
	if actorID == uuid.Nil {
		return nil, types.ErrActorRequired
	}
	member, err := m.workspaces.GetMember(ctx, workspaceID, actorID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrRoleForbidden
	}
	for _, role := range roles {
		if member.Role == role {
			return member, nil
		}
	}
	return nil, ErrRoleForbidden
}

func (m *Manager) countOwners(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	members, _, err := m.workspaces.ListMembers(ctx, workspaceID, types.Pagination{Limit: 200})
	if err != nil {
		return 0, err
	}
	owners := 0
	for _, member := range members {
		if member.Role == types.WorkspaceRoleOwner {
			owners++
		}
	}
	return owners, nil
}

func (m *Manager) fireInvitation(ctx context.Context, invitation types.WorkspaceInvitation, action string, actorID uuid.UUID) {
	if m.hooks.AfterInvitation == nil {
		return
	}
	m.hooks.AfterInvitation(ctx, types.InvitationEvent{
		WorkspaceID:  invitation.WorkspaceID,
		InvitationID: invitation.ID,
		Email:        invitation.Email,
		Action:       action,
		ActorID:      actorID,
		OccurredAt:   m.clock.Now(),
	})
}

func featureEnabled(ctx context.Context, gate featuregate.FeatureGate, key string, scope types.ScopeFilter, userID uuid.UUID) (bool, error) {
	if gate == nil {
		return true, nil
	}
	scopeSet := featureScopeSet(scope, userID)
	if scopeSet == nil {
		return gate.Enabled(ctx, key)
	}
	return gate.Enabled(ctx, key, featuregate.WithScopeSet(*scopeSet))
}

func featureScopeSet(scope types.ScopeFilter, userID uuid.UUID) *featuregate.ScopeSet {
	tenantID := ""
	workspaceID := ""
	if scope.TenantID != uuid.Nil {
		tenantID = scope.TenantID.String()
	}
	if scope.WorkspaceID != uuid.Nil {
		workspaceID = scope.WorkspaceID.String()
	}
	user := ""
	if userID != uuid.Nil {
		user = userID.String()
	}
	if tenantID == "" && workspaceID == "" && user == "" {
		return nil
	}
	return &featuregate.ScopeSet{
		System:   true,
		TenantID: tenantID,
		OrgID:    workspaceID,
		UserID:   user,
	}
}

func payloadString(payload types.SecureLinkPayload, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}
