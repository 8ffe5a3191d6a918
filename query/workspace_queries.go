package query

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

var errWorkspaceIDRequired = errors.New("go-stories: workspace id required")

// WorkspaceListQuery lists the workspaces a user belongs to.
type WorkspaceListQuery struct {
	repo  types.WorkspaceRepository
	guard scope.Guard
}

// NewWorkspaceListQuery constructs the workspace listing helper.
func NewWorkspaceListQuery(repo types.WorkspaceRepository, guard scope.Guard) *WorkspaceListQuery {
	return &WorkspaceListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.WorkspaceFilter, types.WorkspacePage] = (*WorkspaceListQuery)(nil)

// Query fetches a page of workspaces.
func (q *WorkspaceListQuery) Query(ctx context.Context, filter types.WorkspaceFilter) (types.WorkspacePage, error) {
	if q.repo == nil {
		return types.WorkspacePage{}, types.ErrMissingWorkspaceRepository
	}
	if err := filter.Validate(); err != nil {
		return types.WorkspacePage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionWorkspacesRead, filter.UserID)
	if err != nil {
		return types.WorkspacePage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListWorkspaces(ctx, filter)
}

// MemberListInput identifies which workspace's roster to list.
type MemberListInput struct {
	WorkspaceID uuid.UUID
	Pagination  types.Pagination
	Scope       types.ScopeFilter
	Actor       types.ActorRef
}

// Type implements gocommand.Message.
func (MemberListInput) Type() string {
	return "query.workspace.members"
}

// Validate implements gocommand.Message.
func (input MemberListInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.WorkspaceID == uuid.Nil:
		return errWorkspaceIDRequired
	default:
		return nil
	}
}

// MemberList is a page of workspace members.
type MemberList struct {
	Members []types.WorkspaceMember
	Total   int
}

// MemberListQuery lists a workspace's member roster.
type MemberListQuery struct {
	repo  types.WorkspaceRepository
	guard scope.Guard
}

// NewMemberListQuery constructs the member listing helper.
func NewMemberListQuery(repo types.WorkspaceRepository, guard scope.Guard) *MemberListQuery {
	return &MemberListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[MemberListInput, MemberList] = (*MemberListQuery)(nil)

// Query fetches a page of members.
func (q *MemberListQuery) Query(ctx context.Context, input MemberListInput) (MemberList, error) {
	if q.repo == nil {
		return MemberList{}, types.ErrMissingWorkspaceRepository
	}
	if err := input.Validate(); err != nil {
		return MemberList{}, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionWorkspacesRead, input.WorkspaceID); err != nil {
		return MemberList{}, err
	}
	members, total, err := q.repo.ListMembers(ctx, input.WorkspaceID, normalizePagination(input.Pagination))
	if err != nil {
		return MemberList{}, err
	}
	return MemberList{Members: members, Total: total}, nil
}

// InvitationListQuery lists workspace invitations, typically filtered to
// pending ones for the admin screen.
type InvitationListQuery struct {
	repo  types.WorkspaceRepository
	guard scope.Guard
}

// NewInvitationListQuery constructs the invitation listing helper.
func NewInvitationListQuery(repo types.WorkspaceRepository, guard scope.Guard) *InvitationListQuery {
	return &InvitationListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.InvitationFilter, types.InvitationPage] = (*InvitationListQuery)(nil)

// Query fetches a page of invitations.
func (q *InvitationListQuery) Query(ctx context.Context, filter types.InvitationFilter) (types.InvitationPage, error) {
	if q.repo == nil {
		return types.InvitationPage{}, types.ErrMissingWorkspaceRepository
	}
	if err := filter.Validate(); err != nil {
		return types.InvitationPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionWorkspacesRead, filter.WorkspaceID)
	if err != nil {
		return types.InvitationPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListInvitations(ctx, filter)
}
