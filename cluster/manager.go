package cluster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// Cluster change actions reported through Hooks.AfterClusterChange.
const (
	ActionGenerated       = "generated"
	ActionRenamed         = "renamed"
	ActionMerged          = "merged"
	ActionActivityAdded   = "activity_added"
	ActionActivityRemoved = "activity_removed"
	ActionDeleted         = "deleted"
)

var (
	// ErrNameRequired indicates a rename with an empty name.
	ErrNameRequired = errors.New("cluster: name required")
	// ErrMergeRequiresTwo indicates a merge with fewer than two distinct clusters.
	ErrMergeRequiresTwo = errors.New("cluster: merge requires at least two clusters")
)

// ManagerConfig wires the cluster manager.
type ManagerConfig struct {
	Clusters   types.ClusterRepository
	Activities types.ToolActivityRepository
	Engine     types.ClusterEngine
	Clock      types.Clock
	Hooks      types.Hooks
}

// Manager applies cluster mutations while keeping the membership lists and the
// activity table's cluster assignments in lockstep. Activities are never
// deleted by any operation here; removing them from a cluster returns them to
// the unclustered pool.
type Manager struct {
	clusters   types.ClusterRepository
	activities types.ToolActivityRepository
	engine     types.ClusterEngine
	clock      types.Clock
	hooks      types.Hooks
}

// NewManager constructs a Manager. Engine and Clock default when omitted.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Clusters == nil {
		return nil, types.ErrMissingClusterRepository
	}
	if cfg.Activities == nil {
		return nil, types.ErrMissingActivityRepository
	}
	engine := cfg.Engine
	if engine == nil {
		engine = NewEngine()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &Manager{
		clusters:   cfg.Clusters,
		activities: cfg.Activities,
		engine:     engine,
		clock:      clock,
		hooks:      cfg.Hooks,
	}, nil
}

// Generate runs the engine over the user's unclustered activities and persists
// every suggestion, assigning members as it goes. Running it again right away
// finds nothing unclustered and returns an empty slice.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, scope types.ScopeFilter, opts types.ClusterOptions) ([]types.Cluster, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	pool, err := m.unclusteredActivities(ctx, userID, scope)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}
	drafts, err := m.engine.BuildClusters(ctx, pool, opts)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]types.ToolActivity, len(pool))
	for _, activity := range pool {
		byID[activity.ID] = activity
	}

	created := make([]types.Cluster, 0, len(drafts))
	for _, draft := range drafts {
		cluster := types.Cluster{
			UserID:      userID,
			Name:        draft.Name,
			Description: draft.Description,
			Metrics:     draft.Metrics,
		}
		cluster.SetActivities(draft.ActivityIDs)
		if first, ok := byID[draft.ActivityIDs[0]]; ok {
			cluster.TenantID = first.TenantID
			cluster.WorkspaceID = first.WorkspaceID
		}
		stored, err := m.clusters.CreateCluster(ctx, cluster)
		if err != nil {
			return created, err
		}
		if _, err := m.activities.AssignCluster(ctx, userID, draft.ActivityIDs, stored.ID); err != nil {
			return created, err
		}
		m.fireClusterChange(ctx, ActionGenerated, userID, stored.ID, stored)
		created = append(created, *stored)
	}
	return created, nil
}

// Rename updates the cluster's display name.
func (m *Manager) Rename(ctx context.Context, userID, clusterID uuid.UUID, name string) (*types.Cluster, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	existing, err := m.clusters.GetClusterByID(ctx, userID, clusterID)
	if err != nil {
		return nil, err
	}
	existing.Name = name
	updated, err := m.clusters.UpdateCluster(ctx, *existing)
	if err != nil {
		return nil, err
	}
	m.fireClusterChange(ctx, ActionRenamed, userID, clusterID, updated)
	return updated, nil
}

// Merge unions the memberships of the given clusters into a fresh cluster and
// destroys the sources. The merged name is the explicit one when provided,
// otherwise the first source's.
func (m *Manager) Merge(ctx context.Context, userID uuid.UUID, clusterIDs []uuid.UUID, name string) (*types.Cluster, error) {
	unique := dedupeIDs(clusterIDs)
	if len(unique) < 2 {
		return nil, ErrMergeRequiresTwo
	}
	found, err := m.clusters.ListClustersByIDs(ctx, userID, unique)
	if err != nil {
		return nil, err
	}
	if len(found) != len(unique) {
		return nil, fmt.Errorf("cluster: merge found %d of %d clusters", len(found), len(unique))
	}
	byID := make(map[uuid.UUID]types.Cluster, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	// Union preserves caller order: first source's members first.
	union := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]struct{})
	for _, id := range unique {
		for _, activityID := range byID[id].ActivityIDs {
			if _, ok := seen[activityID]; ok {
				continue
			}
			seen[activityID] = struct{}{}
			union = append(union, activityID)
		}
	}

	members, err := m.activities.ListActivitiesByIDs(ctx, userID, union)
	if err != nil {
		return nil, err
	}
	metrics := ComputeMetrics(members)

	first := byID[unique[0]]
	mergedName := strings.TrimSpace(name)
	if mergedName == "" {
		mergedName = first.Name
	}
	merged := types.Cluster{
		UserID:      userID,
		TenantID:    first.TenantID,
		WorkspaceID: first.WorkspaceID,
		Name:        mergedName,
		Description: clusterDescription(members, metrics),
		Metrics:     metrics,
	}
	merged.SetActivities(union)

	stored, err := m.clusters.CreateCluster(ctx, merged)
	if err != nil {
		return nil, err
	}
	if _, err := m.activities.AssignCluster(ctx, userID, union, stored.ID); err != nil {
		return nil, err
	}
	for _, id := range unique {
		if err := m.clusters.DeleteCluster(ctx, userID, id); err != nil {
			return nil, err
		}
	}
	m.fireClusterChange(ctx, ActionMerged, userID, stored.ID, stored)
	return stored, nil
}

// AddActivity inserts the activity into the cluster's membership. An activity
// already assigned elsewhere is moved; its previous cluster shrinks and is
// deleted when the move empties it.
func (m *Manager) AddActivity(ctx context.Context, userID, clusterID, activityID uuid.UUID) (*types.Cluster, error) {
	target, err := m.clusters.GetClusterByID(ctx, userID, clusterID)
	if err != nil {
		return nil, err
	}
	if target.Contains(activityID) {
		return target, nil
	}
	activity, err := m.activities.GetActivityByID(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Clustered() && activity.ClusterID != clusterID {
		// A stale assignment whose cluster row is gone needs no detach.
		if _, getErr := m.clusters.GetClusterByID(ctx, userID, activity.ClusterID); getErr == nil {
			if _, err := m.RemoveActivity(ctx, userID, activity.ClusterID, activityID, false); err != nil {
				return nil, err
			}
		}
	}

	ids := append(cloneUUIDs(target.ActivityIDs), activityID)
	members, err := m.activities.ListActivitiesByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	updated, err := m.clusters.SetClusterActivities(ctx, userID, clusterID, ids, ComputeMetrics(members))
	if err != nil {
		return nil, err
	}
	if _, err := m.activities.AssignCluster(ctx, userID, []uuid.UUID{activityID}, clusterID); err != nil {
		return nil, err
	}
	m.fireClusterChange(ctx, ActionActivityAdded, userID, clusterID, updated)
	return updated, nil
}

// RemoveActivity drops the activity from the cluster and returns it to the
// unclustered pool. Removing the last member deletes the cluster unless
// keepEmpty is set; a deleted cluster is reported as a nil result.
func (m *Manager) RemoveActivity(ctx context.Context, userID, clusterID, activityID uuid.UUID, keepEmpty bool) (*types.Cluster, error) {
	target, err := m.clusters.GetClusterByID(ctx, userID, clusterID)
	if err != nil {
		return nil, err
	}
	if !target.Contains(activityID) {
		return target, nil
	}

	remaining := make([]uuid.UUID, 0, len(target.ActivityIDs)-1)
	for _, id := range target.ActivityIDs {
		if id != activityID {
			remaining = append(remaining, id)
		}
	}
	if _, err := m.activities.AssignCluster(ctx, userID, []uuid.UUID{activityID}, uuid.Nil); err != nil {
		return nil, err
	}

	if len(remaining) == 0 && !keepEmpty {
		if err := m.clusters.DeleteCluster(ctx, userID, clusterID); err != nil {
			return nil, err
		}
		m.fireClusterChange(ctx, ActionDeleted, userID, clusterID, nil)
		return nil, nil
	}

	members, err := m.activities.ListActivitiesByIDs(ctx, userID, remaining)
	if err != nil {
		return nil, err
	}
	updated, err := m.clusters.SetClusterActivities(ctx, userID, clusterID, remaining, ComputeMetrics(members))
	if err != nil {
		return nil, err
	}
	m.fireClusterChange(ctx, ActionActivityRemoved, userID, clusterID, updated)
	return updated, nil
}

// Delete removes the cluster and returns its members to the unclustered pool.
// Member activities are never deleted.
func (m *Manager) Delete(ctx context.Context, userID, clusterID uuid.UUID) error {
	if _, err := m.clusters.GetClusterByID(ctx, userID, clusterID); err != nil {
		return err
	}
	if _, err := m.activities.ReleaseCluster(ctx, userID, clusterID); err != nil {
		return err
	}
	if err := m.clusters.DeleteCluster(ctx, userID, clusterID); err != nil {
		return err
	}
	m.fireClusterChange(ctx, ActionDeleted, userID, clusterID, nil)
	return nil
}

func (m *Manager) unclusteredActivities(ctx context.Context, userID uuid.UUID, scope types.ScopeFilter) ([]types.ToolActivity, error) {
	var out []types.ToolActivity
	offset := 0
	for {
		page, err := m.activities.ListActivities(ctx, types.ToolActivityFilter{
			UserID:      userID,
			Scope:       scope,
			Unclustered: true,
			Pagination:  types.Pagination{Limit: 200, Offset: offset},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Activities...)
		if !page.HasMore || len(page.Activities) == 0 {
			return out, nil
		}
		offset = page.NextOffset
	}
}

func (m *Manager) fireClusterChange(ctx context.Context, action string, userID, clusterID uuid.UUID, cluster *types.Cluster) {
	if m.hooks.AfterClusterChange == nil {
		return
	}
	m.hooks.AfterClusterChange(ctx, types.ClusterEvent{
		UserID:     userID,
		ClusterID:  clusterID,
		Action:     action,
		OccurredAt: m.clock.Now(),
		Cluster:    cluster,
	})
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
