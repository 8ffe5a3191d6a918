package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// ConnectionListQuery lists outgoing network connections.
type ConnectionListQuery struct {
	repo  types.NetworkRepository
	guard scope.Guard
}

// NewConnectionListQuery constructs the connection listing helper.
func NewConnectionListQuery(repo types.NetworkRepository, guard scope.Guard) *ConnectionListQuery {
	return &ConnectionListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.ConnectionFilter, types.ConnectionPage] = (*ConnectionListQuery)(nil)

// Query fetches a page of connections.
func (q *ConnectionListQuery) Query(ctx context.Context, filter types.ConnectionFilter) (types.ConnectionPage, error) {
	if q.repo == nil {
		return types.ConnectionPage{}, types.ErrMissingNetworkRepository
	}
	if err := filter.Validate(); err != nil {
		return types.ConnectionPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionNetworkRead, filter.UserID)
	if err != nil {
		return types.ConnectionPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListConnections(ctx, filter)
}

// FollowerListInput identifies whose followers to list.
type FollowerListInput struct {
	UserID     uuid.UUID
	Pagination types.Pagination
	Scope      types.ScopeFilter
	Actor      types.ActorRef
}

// Type implements gocommand.Message.
func (FollowerListInput) Type() string {
	return "query.network.followers"
}

// Validate implements gocommand.Message.
func (input FollowerListInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	default:
		return nil
	}
}

// FollowerList is a page of incoming connections.
type FollowerList struct {
	Followers []types.NetworkConnection
	Total     int
}

// FollowerListQuery lists the edges pointing at a user.
type FollowerListQuery struct {
	repo  types.NetworkRepository
	guard scope.Guard
}

// NewFollowerListQuery constructs the follower listing helper.
func NewFollowerListQuery(repo types.NetworkRepository, guard scope.Guard) *FollowerListQuery {
	return &FollowerListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[FollowerListInput, FollowerList] = (*FollowerListQuery)(nil)

// Query fetches a page of followers.
func (q *FollowerListQuery) Query(ctx context.Context, input FollowerListInput) (FollowerList, error) {
	if q.repo == nil {
		return FollowerList{}, types.ErrMissingNetworkRepository
	}
	if err := input.Validate(); err != nil {
		return FollowerList{}, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionNetworkRead, input.UserID); err != nil {
		return FollowerList{}, err
	}
	followers, total, err := q.repo.ListFollowers(ctx, input.UserID, normalizePagination(input.Pagination))
	if err != nil {
		return FollowerList{}, err
	}
	return FollowerList{Followers: followers, Total: total}, nil
}

// NetworkStatsInput identifies whose stats to compute.
type NetworkStatsInput struct {
	UserID uuid.UUID
	Scope  types.ScopeFilter
	Actor  types.ActorRef
}

// Type implements gocommand.Message.
func (NetworkStatsInput) Type() string {
	return "query.network.stats"
}

// Validate implements gocommand.Message.
func (input NetworkStatsInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	default:
		return nil
	}
}

// NetworkStatsQuery returns follower and tier counts.
type NetworkStatsQuery struct {
	repo  types.NetworkRepository
	guard scope.Guard
}

// NewNetworkStatsQuery constructs the stats query helper.
func NewNetworkStatsQuery(repo types.NetworkRepository, guard scope.Guard) *NetworkStatsQuery {
	return &NetworkStatsQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[NetworkStatsInput, types.NetworkStats] = (*NetworkStatsQuery)(nil)

// Query returns the aggregate connection counts.
func (q *NetworkStatsQuery) Query(ctx context.Context, input NetworkStatsInput) (types.NetworkStats, error) {
	if q.repo == nil {
		return types.NetworkStats{}, types.ErrMissingNetworkRepository
	}
	if err := input.Validate(); err != nil {
		return types.NetworkStats{}, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionNetworkRead, input.UserID); err != nil {
		return types.NetworkStats{}, err
	}
	return q.repo.NetworkStats(ctx, input.UserID)
}

// SuggestionListInput bounds a suggestion lookup.
type SuggestionListInput struct {
	UserID uuid.UUID
	Limit  int
	Scope  types.ScopeFilter
	Actor  types.ActorRef
}

// Type implements gocommand.Message.
func (SuggestionListInput) Type() string {
	return "query.network.suggestions"
}

// Validate implements gocommand.Message.
func (input SuggestionListInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	default:
		return nil
	}
}

// SuggestionListQuery surfaces people the user may want to follow.
// Suggestions are decorative, so graph failures degrade to an empty list
// instead of breaking the page.
type SuggestionListQuery struct {
	repo   types.NetworkRepository
	logger types.Logger
	guard  scope.Guard
}

// NewSuggestionListQuery constructs the suggestion query helper.
func NewSuggestionListQuery(repo types.NetworkRepository, logger types.Logger, guard scope.Guard) *SuggestionListQuery {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &SuggestionListQuery{
		repo:   repo,
		logger: logger,
		guard:  safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[SuggestionListInput, []types.ConnectionSuggestion] = (*SuggestionListQuery)(nil)

// Query returns suggestion candidates, or an empty slice when the graph
// lookup fails.
func (q *SuggestionListQuery) Query(ctx context.Context, input SuggestionListInput) ([]types.ConnectionSuggestion, error) {
	if q.repo == nil {
		return nil, types.ErrMissingNetworkRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionNetworkRead, input.UserID); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	suggestions, err := q.repo.ListSuggestionCandidates(ctx, input.UserID, limit)
	if err != nil {
		q.logger.Error("network suggestions unavailable", err, "user_id", input.UserID)
		return []types.ConnectionSuggestion{}, nil
	}
	if suggestions == nil {
		suggestions = []types.ConnectionSuggestion{}
	}
	return suggestions, nil
}
