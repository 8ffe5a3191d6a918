package query

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

var errActivityIDRequired = errors.New("go-stories: activity id required")

// ActivityFeedQuery renders paginated tool activity feeds for the timeline.
type ActivityFeedQuery struct {
	repo  types.ToolActivityRepository
	guard scope.Guard
}

// NewActivityFeedQuery builds the feed query helper.
func NewActivityFeedQuery(repo types.ToolActivityRepository, guard scope.Guard) *ActivityFeedQuery {
	return &ActivityFeedQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.ToolActivityFilter, types.ToolActivityPage] = (*ActivityFeedQuery)(nil)

// Query fetches a page of tool activity via the injected repository.
func (q *ActivityFeedQuery) Query(ctx context.Context, filter types.ToolActivityFilter) (types.ToolActivityPage, error) {
	if q.repo == nil {
		return types.ToolActivityPage{}, types.ErrMissingActivityRepository
	}
	if err := filter.Validate(); err != nil {
		return types.ToolActivityPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionActivitiesRead, filter.UserID)
	if err != nil {
		return types.ToolActivityPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListActivities(ctx, filter)
}

// ActivityStatsQuery returns aggregate activity counts for dashboard widgets.
type ActivityStatsQuery struct {
	repo  types.ToolActivityRepository
	guard scope.Guard
}

// NewActivityStatsQuery constructs the stats query helper.
func NewActivityStatsQuery(repo types.ToolActivityRepository, guard scope.Guard) *ActivityStatsQuery {
	return &ActivityStatsQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.ToolActivityStatsFilter, types.ToolActivityStats] = (*ActivityStatsQuery)(nil)

// Query returns per-source and clustering counts.
func (q *ActivityStatsQuery) Query(ctx context.Context, filter types.ToolActivityStatsFilter) (types.ToolActivityStats, error) {
	if q.repo == nil {
		return types.ToolActivityStats{}, types.ErrMissingActivityRepository
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionActivitiesRead, filter.UserID)
	if err != nil {
		return types.ToolActivityStats{}, err
	}
	filter.Scope = scope
	return q.repo.ActivityStats(ctx, filter)
}

// ActivityDetailInput identifies one activity for detail views.
type ActivityDetailInput struct {
	UserID     uuid.UUID
	ActivityID uuid.UUID
	Scope      types.ScopeFilter
	Actor      types.ActorRef
}

// Type implements gocommand.Message.
func (ActivityDetailInput) Type() string {
	return "query.activity.detail"
}

// Validate implements gocommand.Message.
func (input ActivityDetailInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	case input.ActivityID == uuid.Nil:
		return errActivityIDRequired
	default:
		return nil
	}
}

// ActivityDetailQuery loads a single activity with its cross-tool references.
type ActivityDetailQuery struct {
	repo  types.ToolActivityRepository
	guard scope.Guard
}

// NewActivityDetailQuery constructs the detail query helper.
func NewActivityDetailQuery(repo types.ToolActivityRepository, guard scope.Guard) *ActivityDetailQuery {
	return &ActivityDetailQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[ActivityDetailInput, *types.ToolActivity] = (*ActivityDetailQuery)(nil)

// Query fetches the activity detail.
func (q *ActivityDetailQuery) Query(ctx context.Context, input ActivityDetailInput) (*types.ToolActivity, error) {
	if q.repo == nil {
		return nil, types.ErrMissingActivityRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionActivitiesRead, input.UserID); err != nil {
		return nil, err
	}
	return q.repo.GetActivityByID(ctx, input.UserID, input.ActivityID)
}
