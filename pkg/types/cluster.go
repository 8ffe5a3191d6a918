package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ClusterMetrics summarizes the evidence binding a cluster together.
type ClusterMetrics struct {
	RefCount  int
	ToolTypes []ActivitySource
	DateRange DateRange
}

// Cluster groups related activities into a single body of work. ActivityCount
// always equals len(ActivityIDs); use SetActivities to keep them in sync.
type Cluster struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	TenantID      uuid.UUID
	WorkspaceID   uuid.UUID
	Name          string
	Description   string
	ActivityIDs   []uuid.UUID
	ActivityCount int
	Metrics       ClusterMetrics
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetActivities replaces the membership list and recomputes the count.
func (c *Cluster) SetActivities(ids []uuid.UUID) {
	c.ActivityIDs = ids
	c.ActivityCount = len(ids)
}

// Contains reports whether the activity belongs to the cluster.
func (c Cluster) Contains(activityID uuid.UUID) bool {
	for _, id := range c.ActivityIDs {
		if id == activityID {
			return true
		}
	}
	return false
}

// ClusterDraft is an engine suggestion that has not been persisted yet.
type ClusterDraft struct {
	Name        string
	Description string
	ActivityIDs []uuid.UUID
	Metrics     ClusterMetrics
}

// ClusterOptions tunes the clustering engine.
type ClusterOptions struct {
	// Window is the maximum gap between activities considered temporally
	// related when no cross-tool reference links them.
	Window time.Duration
	// MinSize drops suggestions smaller than this many activities.
	MinSize int
	// MinSimilarity is the minimum topic token overlap (Jaccard) for two
	// unreferenced activities inside the window to be considered related.
	MinSimilarity float64
	// AllowSingletons keeps one-activity components as suggestions instead of
	// leaving them unclustered.
	AllowSingletons bool
}

// ClusterEngine derives cluster suggestions from a user's unclustered
// activities. Implementations must be deterministic for a given input set.
type ClusterEngine interface {
	BuildClusters(ctx context.Context, activities []ToolActivity, opts ClusterOptions) ([]ClusterDraft, error)
}

// ClusterEvent is emitted after cluster mutations.
type ClusterEvent struct {
	UserID     uuid.UUID
	ClusterID  uuid.UUID
	Action     string
	ActorID    uuid.UUID
	Scope      ScopeFilter
	OccurredAt time.Time
	Cluster    *Cluster
}

// ClusterFilter narrows cluster listing queries.
type ClusterFilter struct {
	Actor      ActorRef
	Scope      ScopeFilter
	UserID     uuid.UUID
	Keyword    string
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (ClusterFilter) Type() string {
	return "query.cluster.list"
}

// Validate implements gocommand.Message.
func (filter ClusterFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// ClusterPage represents a paginated cluster listing.
type ClusterPage struct {
	Clusters   []Cluster
	Total      int
	NextOffset int
	HasMore    bool
}

// ClusterRepository is the storage contract for clusters. SetClusterActivities
// is the only way membership changes so ActivityCount can never drift from the
// membership list.
type ClusterRepository interface {
	CreateCluster(ctx context.Context, cluster Cluster) (*Cluster, error)
	GetClusterByID(ctx context.Context, userID, id uuid.UUID) (*Cluster, error)
	ListClusters(ctx context.Context, filter ClusterFilter) (ClusterPage, error)
	ListClustersByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Cluster, error)
	// UpdateCluster persists name and description changes only.
	UpdateCluster(ctx context.Context, cluster Cluster) (*Cluster, error)
	// SetClusterActivities replaces membership, recomputes ActivityCount, and
	// stores refreshed metrics.
	SetClusterActivities(ctx context.Context, userID, clusterID uuid.UUID, activityIDs []uuid.UUID, metrics ClusterMetrics) (*Cluster, error)
	DeleteCluster(ctx context.Context, userID, id uuid.UUID) error
}
