package query

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

var errClusterIDRequired = errors.New("go-stories: cluster id required")

// ClusterListQuery lists activity clusters for review surfaces.
type ClusterListQuery struct {
	repo  types.ClusterRepository
	guard scope.Guard
}

// NewClusterListQuery constructs the list query helper.
func NewClusterListQuery(repo types.ClusterRepository, guard scope.Guard) *ClusterListQuery {
	return &ClusterListQuery{
		repo:  repo,
		guard: safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[types.ClusterFilter, types.ClusterPage] = (*ClusterListQuery)(nil)

// Query fetches a page of clusters.
func (q *ClusterListQuery) Query(ctx context.Context, filter types.ClusterFilter) (types.ClusterPage, error) {
	if q.repo == nil {
		return types.ClusterPage{}, types.ErrMissingClusterRepository
	}
	if err := filter.Validate(); err != nil {
		return types.ClusterPage{}, err
	}
	scope, err := q.guard.Enforce(ctx, filter.Actor, filter.Scope, types.PolicyActionClustersRead, filter.UserID)
	if err != nil {
		return types.ClusterPage{}, err
	}
	filter.Scope = scope
	filter.Pagination = normalizePagination(filter.Pagination)
	return q.repo.ListClusters(ctx, filter)
}

// ClusterDetailInput identifies one cluster for detail views.
type ClusterDetailInput struct {
	UserID    uuid.UUID
	ClusterID uuid.UUID
	Scope     types.ScopeFilter
	Actor     types.ActorRef
}

// Type implements gocommand.Message.
func (ClusterDetailInput) Type() string {
	return "query.cluster.detail"
}

// Validate implements gocommand.Message.
func (input ClusterDetailInput) Validate() error {
	switch {
	case input.Actor.ID == uuid.Nil:
		return types.ErrActorRequired
	case input.UserID == uuid.Nil:
		return types.ErrUserIDRequired
	case input.ClusterID == uuid.Nil:
		return errClusterIDRequired
	default:
		return nil
	}
}

// ClusterDetail bundles the cluster with its member activities so the review
// screen renders in one round trip.
type ClusterDetail struct {
	Cluster    *types.Cluster
	Activities []types.ToolActivity
}

// ClusterDetailQuery loads a cluster and its member activities.
type ClusterDetailQuery struct {
	clusters   types.ClusterRepository
	activities types.ToolActivityRepository
	guard      scope.Guard
}

// NewClusterDetailQuery constructs the detail query helper. The activity
// repository is optional; without it the detail carries no member activities.
func NewClusterDetailQuery(clusters types.ClusterRepository, activities types.ToolActivityRepository, guard scope.Guard) *ClusterDetailQuery {
	return &ClusterDetailQuery{
		clusters:   clusters,
		activities: activities,
		guard:      safeScopeGuard(guard),
	}
}

var _ gocommand.Querier[ClusterDetailInput, ClusterDetail] = (*ClusterDetailQuery)(nil)

// Query fetches the cluster detail with member activities.
func (q *ClusterDetailQuery) Query(ctx context.Context, input ClusterDetailInput) (ClusterDetail, error) {
	if q.clusters == nil {
		return ClusterDetail{}, types.ErrMissingClusterRepository
	}
	if err := input.Validate(); err != nil {
		return ClusterDetail{}, err
	}
	if _, err := q.guard.Enforce(ctx, input.Actor, input.Scope, types.PolicyActionClustersRead, input.UserID); err != nil {
		return ClusterDetail{}, err
	}

	cluster, err := q.clusters.GetClusterByID(ctx, input.UserID, input.ClusterID)
	if err != nil {
		return ClusterDetail{}, err
	}
	detail := ClusterDetail{Cluster: cluster}
	if q.activities != nil && len(cluster.ActivityIDs) > 0 {
		members, err := q.activities.ListActivitiesByIDs(ctx, input.UserID, cluster.ActivityIDs)
		if err != nil {
			return ClusterDetail{}, err
		}
		detail.Activities = members
	}
	return detail, nil
}
