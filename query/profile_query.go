package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// ProfileQueryInput narrows which profile gets fetched.
type ProfileQueryInput struct {
	UserID uuid.UUID
	Scope  types.ScopeFilter
	Actor  types.ActorRef
}

// Type implements gocommand.Message.
func (ProfileQueryInput) Type() string {
	return "query.profile.detail"
}

// Validate implements gocommand.Message.
func (input ProfileQueryInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	default:
		return nil
	}
}

// ProfileQuery fetches career profile records. A nil result with no error
// means the user never filled in a profile.
type ProfileQuery struct {
	repo  types.ProfileRepository
	guard scope.Guard
}

// NewProfileQuery builds the profile lookup helper.
func NewProfileQuery(repo types.ProfileRepository, guard scope.Guard) *ProfileQuery {
	return &ProfileQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[ProfileQueryInput, *types.UserProfile] = (*ProfileQuery)(nil)

// Query fetches the profile matching the given identifiers.
func (q *ProfileQuery) Query(ctx context.Context, input ProfileQueryInput) (*types.UserProfile, error) {
	if q.repo == nil {
		return nil, types.ErrMissingProfileRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	scope, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionProfilesRead, input.UserID)
	if err != nil {
		return nil, err
	}
	return q.repo.GetProfile(ctx, input.UserID, scope)
}
