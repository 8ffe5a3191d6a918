package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// WorkspaceMemberRole controls what a member can do inside a workspace.
type WorkspaceMemberRole string

const (
	WorkspaceRoleOwner  WorkspaceMemberRole = "owner"
	WorkspaceRoleAdmin  WorkspaceMemberRole = "admin"
	WorkspaceRoleMember WorkspaceMemberRole = "member"
)

// InvitationStatus tracks a workspace invitation through its lifecycle.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

var (
	// ErrAlreadyMember indicates the invited user already belongs to the workspace.
	ErrAlreadyMember = errors.New("go-stories: user already a workspace member")
	// ErrInvitationConsumed indicates the invitation is no longer pending.
	ErrInvitationConsumed = errors.New("go-stories: invitation already consumed")
	// ErrInvitationExpired indicates the invitation passed its expiry.
	ErrInvitationExpired = errors.New("go-stories: invitation expired")
)

// Workspace is a shared space where members see each other's workspace
// visible stories.
type Workspace struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Slug        string
	Description string
	OwnerID     uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceMember links a user to a workspace with a role. AddedBy records
// who brought the member in (the inviter, or the owner for self-joins).
type WorkspaceMember struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Role        WorkspaceMemberRole
	AddedBy     uuid.UUID
	JoinedAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceInvitation is an email invitation into a workspace, backed by a
// signed securelink token identified by JTI.
type WorkspaceInvitation struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Email       string
	Role        WorkspaceMemberRole
	Status      InvitationStatus
	InvitedBy   uuid.UUID
	JTI         string
	ExpiresAt   time.Time
	AcceptedBy  uuid.UUID
	AcceptedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Consumable reports whether the invitation can still be accepted at the
// given time.
func (i WorkspaceInvitation) Consumable(now time.Time) error {
	if i.Status != InvitationPending {
		return ErrInvitationConsumed
	}
	if !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt) {
		return ErrInvitationExpired
	}
	return nil
}

// InvitationEvent is emitted after invitation mutations.
type InvitationEvent struct {
	WorkspaceID  uuid.UUID
	InvitationID uuid.UUID
	Email        string
	Action       string
	ActorID      uuid.UUID
	OccurredAt   time.Time
}

// WorkspaceFilter narrows workspace listing queries.
type WorkspaceFilter struct {
	Actor      ActorRef
	Scope      ScopeFilter
	UserID     uuid.UUID
	Keyword    string
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (WorkspaceFilter) Type() string {
	return "query.workspace.list"
}

// Validate implements gocommand.Message.
func (filter WorkspaceFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// WorkspacePage represents a paginated workspace listing.
type WorkspacePage struct {
	Workspaces []Workspace
	Total      int
	NextOffset int
	HasMore    bool
}

// InvitationFilter narrows invitation listing queries.
type InvitationFilter struct {
	Actor       ActorRef
	Scope       ScopeFilter
	WorkspaceID uuid.UUID
	Email       string
	Status      InvitationStatus
	Pagination  Pagination
}

// Type implements gocommand.Message for query inputs.
func (InvitationFilter) Type() string {
	return "query.workspace.invitations"
}

// Validate implements gocommand.Message.
func (filter InvitationFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// InvitationPage represents a paginated invitation listing.
type InvitationPage struct {
	Invitations []WorkspaceInvitation
	Total       int
	NextOffset  int
	HasMore     bool
}

// WorkspaceRepository is the storage contract for workspaces, memberships,
// and invitations.
type WorkspaceRepository interface {
	CreateWorkspace(ctx context.Context, workspace Workspace) (*Workspace, error)
	GetWorkspaceByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	GetWorkspaceBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Workspace, error)
	ListWorkspaces(ctx context.Context, filter WorkspaceFilter) (WorkspacePage, error)
	UpdateWorkspace(ctx context.Context, workspace Workspace) (*Workspace, error)
	DeleteWorkspace(ctx context.Context, id uuid.UUID) error

	AddMember(ctx context.Context, member WorkspaceMember) (*WorkspaceMember, error)
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*WorkspaceMember, error)
	ListMembers(ctx context.Context, workspaceID uuid.UUID, pagination Pagination) ([]WorkspaceMember, int, error)
	UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role WorkspaceMemberRole) (*WorkspaceMember, error)
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error

	CreateInvitation(ctx context.Context, invitation WorkspaceInvitation) (*WorkspaceInvitation, error)
	GetInvitationByID(ctx context.Context, id uuid.UUID) (*WorkspaceInvitation, error)
	GetInvitationByJTI(ctx context.Context, jti string) (*WorkspaceInvitation, error)
	ListInvitations(ctx context.Context, filter InvitationFilter) (InvitationPage, error)
	UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status InvitationStatus, acceptedBy uuid.UUID, at time.Time) (*WorkspaceInvitation, error)
}
