package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestManagerGenerateAssignsMembers(t *testing.T) {
	ctx := context.Background()
	db := newTestClusterDB(t)
	applyDDL(t, db, activityDDL, clusterDDL)
	activities, clusters, manager := newTestManager(t, db, types.Hooks{})

	userID := uuid.New()
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	seed := []types.ToolActivity{
		{UserID: userID, Source: types.SourceGitHub, SourceID: "c1", Title: "Payment retries rollout", Timestamp: base},
		{UserID: userID, Source: types.SourceSlack, SourceID: "m1", Title: "Payment retries incident", Timestamp: base.Add(2 * time.Hour)},
		{UserID: userID, Source: types.SourceJira, SourceID: "PROJ-9", Title: "Search indexing spike", Timestamp: base.Add(240 * time.Hour)},
		{UserID: userID, Source: types.SourceGitHub, SourceID: "c2", Title: "Search indexing benchmarks", Timestamp: base.Add(242 * time.Hour)},
		{UserID: userID, Source: types.SourceFigma, SourceID: "f1", Title: "Offsite logistics", Timestamp: base.Add(500 * time.Hour)},
	}
	for _, item := range seed {
		_, _, err := activities.UpsertActivity(ctx, item)
		require.NoError(t, err)
	}

	created, err := manager.Generate(ctx, userID, types.ScopeFilter{}, types.ClusterOptions{})
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, c := range created {
		require.Equal(t, 2, c.ActivityCount)
		page, err := activities.ListActivities(ctx, types.ToolActivityFilter{
			UserID:     userID,
			ClusterID:  c.ID,
			Pagination: types.Pagination{Limit: 10},
		})
		require.NoError(t, err)
		require.Len(t, page.Activities, 2)
	}

	stats, err := activities.ActivityStats(ctx, types.ToolActivityStatsFilter{UserID: userID})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Unclustered)

	again, err := manager.Generate(ctx, userID, types.ScopeFilter{}, types.ClusterOptions{})
	require.NoError(t, err)
	require.Empty(t, again)

	page, err := clusters.ListClusters(ctx, types.ClusterFilter{UserID: userID, Pagination: types.Pagination{Limit: 10}})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
}

func TestManagerMergeUnionsAndDestroysSources(t *testing.T) {
	ctx := context.Background()
	db := newTestClusterDB(t)
	applyDDL(t, db, activityDDL, clusterDDL)
	activities, clusters, manager := newTestManager(t, db, types.Hooks{})

	userID := uuid.New()
	base := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	first := seedCluster(t, ctx, activities, clusters, userID, "Payment retries", []string{"a1", "a2"}, base)
	second := seedCluster(t, ctx, activities, clusters, userID, "Search indexing", []string{"b1", "b2"}, base.Add(24*time.Hour))

	merged, err := manager.Merge(ctx, userID, []uuid.UUID{first.ID, second.ID}, "")
	require.NoError(t, err)
	require.Equal(t, "Payment retries", merged.Name)
	require.Equal(t, 4, merged.ActivityCount)
	require.ElementsMatch(t, append(first.ActivityIDs, second.ActivityIDs...), merged.ActivityIDs)

	for _, id := range merged.ActivityIDs {
		got, err := activities.GetActivityByID(ctx, userID, id)
		require.NoError(t, err)
		require.Equal(t, merged.ID, got.ClusterID)
	}

	_, err = clusters.GetClusterByID(ctx, userID, first.ID)
	require.Error(t, err)
	_, err = clusters.GetClusterByID(ctx, userID, second.ID)
	require.Error(t, err)

	_, err = manager.Merge(ctx, userID, []uuid.UUID{merged.ID}, "")
	require.ErrorIs(t, err, ErrMergeRequiresTwo)
}

func TestManagerDeleteReturnsActivitiesToPool(t *testing.T) {
	ctx := context.Background()
	db := newTestClusterDB(t)
	applyDDL(t, db, activityDDL, clusterDDL)
	activities, clusters, manager := newTestManager(t, db, types.Hooks{})

	userID := uuid.New()
	base := time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC)
	cluster := seedCluster(t, ctx, activities, clusters, userID, "Doomed", []string{"d1", "d2"}, base)

	require.NoError(t, manager.Delete(ctx, userID, cluster.ID))

	_, err := clusters.GetClusterByID(ctx, userID, cluster.ID)
	require.Error(t, err)

	for _, id := range cluster.ActivityIDs {
		got, err := activities.GetActivityByID(ctx, userID, id)
		require.NoError(t, err)
		require.False(t, got.Clustered())
	}
}

func TestManagerAddRemoveActivity(t *testing.T) {
	ctx := context.Background()
	db := newTestClusterDB(t)
	applyDDL(t, db, activityDDL, clusterDDL)
	activities, clusters, manager := newTestManager(t, db, types.Hooks{})

	userID := uuid.New()
	base := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)
	cluster := seedCluster(t, ctx, activities, clusters, userID, "Growing", []string{"g1", "g2"}, base)

	loose, _, err := activities.UpsertActivity(ctx, types.ToolActivity{
		UserID:    userID,
		Source:    types.SourceConfluence,
		SourceID:  "doc-1",
		Title:     "Growing design doc",
		Timestamp: base.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	updated, err := manager.AddActivity(ctx, userID, cluster.ID, loose.ID)
	require.NoError(t, err)
	require.Equal(t, 3, updated.ActivityCount)
	require.True(t, updated.Contains(loose.ID))

	got, err := activities.GetActivityByID(ctx, userID, loose.ID)
	require.NoError(t, err)
	require.Equal(t, cluster.ID, got.ClusterID)

	// Re-adding is a no-op.
	updated, err = manager.AddActivity(ctx, userID, cluster.ID, loose.ID)
	require.NoError(t, err)
	require.Equal(t, 3, updated.ActivityCount)

	updated, err = manager.RemoveActivity(ctx, userID, cluster.ID, loose.ID, false)
	require.NoError(t, err)
	require.Equal(t, 2, updated.ActivityCount)
	require.False(t, updated.Contains(loose.ID))

	got, err = activities.GetActivityByID(ctx, userID, loose.ID)
	require.NoError(t, err)
	require.False(t, got.Clustered())
}

func TestManagerRemoveLastActivity(t *testing.T) {
	ctx := context.Background()
	db := newTestClusterDB(t)
	applyDDL(t, db, activityDDL, clusterDDL)
	activities, clusters, manager := newTestManager(t, db, types.Hooks{})

	userID := uuid.New()
	base := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)

	doomed := seedCluster(t, ctx, activities, clusters, userID, "Single", []string{"s1"}, base)
	gone, err := manager.RemoveActivity(ctx, userID, doomed.ID, doomed.ActivityIDs[0], false)
	require.NoError(t, err)
	require.Nil(t, gone)
	_, err = clusters.GetClusterByID(ctx, userID, doomed.ID)
	require.Error(t, err)

	kept := seedCluster(t, ctx, activities, clusters, userID, "Kept", []string{"k1"}, base.Add(time.Hour))
	empty, err := manager.RemoveActivity(ctx, userID, kept.ID, kept.ActivityIDs[0], true)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Equal(t, 0, empty.ActivityCount)
}

func TestManagerMoveActivityBetweenClusters(t *testing.T) {
	ctx := context.Background()
	db := newTestClusterDB(t)
	applyDDL(t, db, activityDDL, clusterDDL)
	activities, clusters, manager := newTestManager(t, db, types.Hooks{})

	userID := uuid.New()
	base := time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC)
	from := seedCluster(t, ctx, activities, clusters, userID, "From", []string{"f1", "f2"}, base)
	to := seedCluster(t, ctx, activities, clusters, userID, "To", []string{"t1"}, base.Add(time.Hour))

	moved := from.ActivityIDs[0]
	updated, err := manager.AddActivity(ctx, userID, to.ID, moved)
	require.NoError(t, err)
	require.Equal(t, 2, updated.ActivityCount)
	require.True(t, updated.Contains(moved))

	shrunk, err := clusters.GetClusterByID(ctx, userID, from.ID)
	require.NoError(t, err)
	require.Equal(t, 1, shrunk.ActivityCount)
	require.False(t, shrunk.Contains(moved))
}

func TestManagerRenameAndHooks(t *testing.T) {
	ctx := context.Background()
	db := newTestClusterDB(t)
	applyDDL(t, db, activityDDL, clusterDDL)

	var events []types.ClusterEvent
	hooks := types.Hooks{
		AfterClusterChange: func(_ context.Context, event types.ClusterEvent) {
			events = append(events, event)
		},
	}
	activities, clusters, manager := newTestManager(t, db, hooks)

	userID := uuid.New()
	base := time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)
	cluster := seedCluster(t, ctx, activities, clusters, userID, "Before", []string{"r1", "r2"}, base)

	_, err := manager.Rename(ctx, userID, cluster.ID, "  ")
	require.ErrorIs(t, err, ErrNameRequired)

	renamed, err := manager.Rename(ctx, userID, cluster.ID, "After")
	require.NoError(t, err)
	require.Equal(t, "After", renamed.Name)

	require.NoError(t, manager.Delete(ctx, userID, cluster.ID))

	require.Len(t, events, 2)
	require.Equal(t, ActionRenamed, events[0].Action)
	require.Equal(t, ActionDeleted, events[1].Action)
	require.Equal(t, cluster.ID, events[0].ClusterID)
}

func newTestManager(t *testing.T, db *bun.DB, hooks types.Hooks) (*activity.Repository, *Repository, *Manager) {
	activities, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)
	clusters, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)
	manager, err := NewManager(ManagerConfig{
		Clusters:   clusters,
		Activities: activities,
		Engine:     NewEngine(),
		Hooks:      hooks,
	})
	require.NoError(t, err)
	return activities, clusters, manager
}

func seedCluster(t *testing.T, ctx context.Context, activities *activity.Repository, clusters *Repository, userID uuid.UUID, name string, sourceIDs []string, base time.Time) *types.Cluster {
	ids := make([]uuid.UUID, 0, len(sourceIDs))
	members := make([]types.ToolActivity, 0, len(sourceIDs))
	for i, sourceID := range sourceIDs {
		created, _, err := activities.UpsertActivity(ctx, types.ToolActivity{
			UserID:    userID,
			Source:    types.SourceGitHub,
			SourceID:  sourceID,
			Title:     name + " work item",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
		members = append(members, *created)
	}
	cluster := types.Cluster{
		UserID:  userID,
		Name:    name,
		Metrics: ComputeMetrics(members),
	}
	cluster.SetActivities(ids)
	stored, err := clusters.CreateCluster(ctx, cluster)
	require.NoError(t, err)
	n, err := activities.AssignCluster(ctx, userID, ids, stored.ID)
	require.NoError(t, err)
	require.Equal(t, len(ids), n)
	return stored
}
