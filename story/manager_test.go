package story

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/star"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type walletStub struct {
	balance int64
	applied []types.WalletTransaction
}

func (w *walletStub) GetBalance(_ context.Context, userID uuid.UUID) (types.WalletBalance, error) {
	return types.WalletBalance{UserID: userID, Balance: w.balance}, nil
}

func (w *walletStub) ApplyTransaction(_ context.Context, tx types.WalletTransaction) (*types.WalletBalance, error) {
	if tx.Kind == types.TransactionDebit && tx.Amount > w.balance {
		return nil, types.ErrInsufficientCredits
	}
	w.balance += tx.Delta()
	w.applied = append(w.applied, tx)
	return &types.WalletBalance{UserID: tx.UserID, Balance: w.balance}, nil
}

func (w *walletStub) ListTransactions(_ context.Context, _ types.WalletFilter) (types.WalletPage, error) {
	return types.WalletPage{}, nil
}

func newTestStoryManager(t *testing.T, db *bun.DB, hooks types.Hooks, wallet types.WalletRepository, cost int64) (*activity.Repository, *cluster.Repository, *Repository, *Manager) {
	t.Helper()
	activities, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)
	clusters, err := cluster.NewRepository(cluster.RepositoryConfig{DB: db})
	require.NoError(t, err)
	stories, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)
	manager, err := NewManager(ManagerConfig{
		Stories:     stories,
		Clusters:    clusters,
		Activities:  activities,
		Synthesizer: star.NewSynthesizer(star.SynthesizerConfig{}),
		Wallet:      wallet,
		StarCost:    cost,
		Hooks:       hooks,
	})
	require.NoError(t, err)
	return activities, clusters, stories, manager
}

func seedStoryCluster(t *testing.T, ctx context.Context, activities *activity.Repository, clusters *cluster.Repository, userID uuid.UUID, base time.Time) *types.Cluster {
	t.Helper()
	seed := []types.ToolActivity{
		{UserID: userID, Source: types.SourceJira, SourceID: uuid.NewString(), Title: "Checkout failures piling up", Timestamp: base},
		{UserID: userID, Source: types.SourceGitHub, SourceID: uuid.NewString(), Title: "Add circuit breaker", Timestamp: base.Add(2 * time.Hour)},
		{UserID: userID, Source: types.SourceSlack, SourceID: uuid.NewString(), Title: "Shipped the checkout fix", Timestamp: base.Add(4 * time.Hour)},
	}
	members := make([]types.ToolActivity, 0, len(seed))
	ids := make([]uuid.UUID, 0, len(seed))
	for _, item := range seed {
		created, _, err := activities.UpsertActivity(ctx, item)
		require.NoError(t, err)
		members = append(members, *created)
		ids = append(ids, created.ID)
	}
	draft := types.Cluster{
		UserID:  userID,
		Name:    "Checkout hardening",
		Metrics: cluster.ComputeMetrics(members),
	}
	draft.SetActivities(ids)
	stored, err := clusters.CreateCluster(ctx, draft)
	require.NoError(t, err)
	n, err := activities.AssignCluster(ctx, userID, ids, stored.ID)
	require.NoError(t, err)
	require.Equal(t, len(ids), n)
	return stored
}

func TestManagerGenerateFromCluster(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, activityDDL, clusterDDL, storyDDL)

	var transitions []types.StoryEvent
	var stars []types.StarEvent
	hooks := types.Hooks{
		AfterStoryTransition: func(_ context.Context, event types.StoryEvent) {
			transitions = append(transitions, event)
		},
		AfterStarGenerated: func(_ context.Context, event types.StarEvent) {
			stars = append(stars, event)
		},
	}
	activities, clusters, _, manager := newTestStoryManager(t, db, hooks, nil, 0)

	userID := uuid.New()
	base := time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC)
	seeded := seedStoryCluster(t, ctx, activities, clusters, userID, base)

	created, scored, err := manager.Generate(ctx, userID, seeded.ID, GenerateOptions{})
	require.NoError(t, err)

	require.Equal(t, "Checkout hardening", created.Title)
	require.Equal(t, seeded.ID, created.ClusterID)
	require.Equal(t, types.StoryStateDraft, created.State)
	require.Equal(t, types.VisibilityPrivate, created.Visibility)
	require.Equal(t, types.FrameworkSTAR, created.Framework)
	require.Equal(t, []string{"situation", "task", "action", "result"}, sectionKeys(created.Sections))
	require.Equal(t, seeded.ActivityIDs, created.SourceActivityIDs)
	require.InDelta(t, 0.4, created.Confidence, 1e-9)

	require.True(t, scored.Validation.Passed)
	require.Equal(t, seeded.ActivityIDs[:1], scored.Situation.Sources)

	require.Len(t, stars, 1)
	require.Equal(t, created.ID, stars[0].StoryID)
	require.True(t, stars[0].Passed)
	require.Len(t, transitions, 1)
	require.Equal(t, ActionGenerated, transitions[0].Action)
}

func TestManagerGenerateChargesWallet(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, activityDDL, clusterDDL, storyDDL)

	wallet := &walletStub{balance: 7}
	activities, clusters, stories, manager := newTestStoryManager(t, db, types.Hooks{}, wallet, 5)

	userID := uuid.New()
	base := time.Date(2025, 4, 8, 9, 0, 0, 0, time.UTC)
	seeded := seedStoryCluster(t, ctx, activities, clusters, userID, base)

	_, _, err := manager.Generate(ctx, userID, seeded.ID, GenerateOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(2), wallet.balance)
	require.Len(t, wallet.applied, 1)
	require.Equal(t, WalletReasonStarGeneration, wallet.applied[0].Reason)

	_, _, err = manager.Generate(ctx, userID, seeded.ID, GenerateOptions{})
	require.ErrorIs(t, err, types.ErrInsufficientCredits)

	page, err := stories.ListStories(ctx, types.StoryFilter{
		UserID: userID, Pagination: types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
}

func TestManagerPublishLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, activityDDL, clusterDDL, storyDDL)

	var actions []string
	hooks := types.Hooks{
		AfterStoryTransition: func(_ context.Context, event types.StoryEvent) {
			actions = append(actions, event.Action)
		},
	}
	activities, clusters, stories, manager := newTestStoryManager(t, db, hooks, nil, 0)

	userID := uuid.New()
	base := time.Date(2025, 4, 9, 9, 0, 0, 0, time.UTC)
	seeded := seedStoryCluster(t, ctx, activities, clusters, userID, base)
	created, _, err := manager.Generate(ctx, userID, seeded.ID, GenerateOptions{})
	require.NoError(t, err)

	published, err := manager.Publish(ctx, userID, created.ID)
	require.NoError(t, err)
	require.Equal(t, types.StoryStatePublished, published.State)
	require.False(t, published.PublishedAt.IsZero())

	_, err = manager.Publish(ctx, userID, created.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	unpublished, err := manager.Unpublish(ctx, userID, created.ID)
	require.NoError(t, err)
	require.Equal(t, types.StoryStateUnpublished, unpublished.State)

	_, err = manager.Publish(ctx, userID, created.ID)
	require.NoError(t, err)

	require.NoError(t, manager.Delete(ctx, userID, created.ID))
	_, err = stories.GetStoryByID(ctx, userID, created.ID)
	require.Error(t, err)

	require.Equal(t,
		[]string{ActionGenerated, ActionPublished, ActionUnpublished, ActionPublished, ActionDeleted},
		actions)
}

func TestManagerRegenerateSwitchesFramework(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, activityDDL, clusterDDL, storyDDL)
	activities, clusters, _, manager := newTestStoryManager(t, db, types.Hooks{}, nil, 0)

	userID := uuid.New()
	base := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
	seeded := seedStoryCluster(t, ctx, activities, clusters, userID, base)
	created, _, err := manager.Generate(ctx, userID, seeded.ID, GenerateOptions{})
	require.NoError(t, err)
	require.True(t, created.RegeneratedAt.IsZero())

	regenerated, _, err := manager.Regenerate(ctx, userID, created.ID, GenerateOptions{
		Framework: types.FrameworkCAR,
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, regenerated.ID)
	require.Equal(t, types.FrameworkCAR, regenerated.Framework)
	require.Equal(t, []string{"challenge", "action", "result"}, sectionKeys(regenerated.Sections))
	require.False(t, regenerated.RegeneratedAt.IsZero())
	require.Equal(t, types.StoryStateDraft, regenerated.State)
}

func TestManagerCreateFromWizard(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, activityDDL, clusterDDL, storyDDL)
	_, _, stories, manager := newTestStoryManager(t, db, types.Hooks{}, nil, 0)

	userID := uuid.New()
	scope := types.ScopeFilter{TenantID: uuid.New(), WorkspaceID: uuid.New()}
	created, evaluation, err := manager.CreateFromWizard(ctx, star.WizardRequest{
		UserID: userID,
		Title:  "Incident recovery",
		Body: "The checkout page was broken because of a bad deploy. " +
			"I debugged the deploy, fixed the root cause, and wrote a regression test. " +
			"We shipped the patch and reduced error rates.",
		Answers: map[string]string{"task": "Restore checkout within the day."},
	}, scope)
	require.NoError(t, err)
	require.True(t, evaluation.Passed)
	require.Equal(t, scope.TenantID, created.TenantID)
	require.Equal(t, scope.WorkspaceID, created.WorkspaceID)
	require.Equal(t, types.StoryStateDraft, created.State)

	fetched, err := stories.GetStoryByID(ctx, userID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Sections, fetched.Sections)

	// Wizard stories have no cluster to resynthesize from.
	_, _, err = manager.Regenerate(ctx, userID, created.ID, GenerateOptions{})
	require.ErrorIs(t, err, ErrNotClusterBacked)
}

func TestManagerSetVisibilityAndEdit(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, activityDDL, clusterDDL, storyDDL)
	activities, clusters, _, manager := newTestStoryManager(t, db, types.Hooks{}, nil, 0)

	userID := uuid.New()
	base := time.Date(2025, 4, 11, 9, 0, 0, 0, time.UTC)
	seeded := seedStoryCluster(t, ctx, activities, clusters, userID, base)
	created, _, err := manager.Generate(ctx, userID, seeded.ID, GenerateOptions{})
	require.NoError(t, err)

	shared, err := manager.SetVisibility(ctx, userID, created.ID, types.VisibilityNetwork)
	require.NoError(t, err)
	require.Equal(t, types.VisibilityNetwork, shared.Visibility)

	_, err = manager.SetVisibility(ctx, userID, created.ID, types.StoryVisibility("friends"))
	require.ErrorIs(t, err, types.ErrInvalidVisibility)

	edit := *shared
	edit.Title = "Checkout hardening, quarter recap"
	edited, err := manager.Edit(ctx, edit)
	require.NoError(t, err)
	require.Equal(t, "Checkout hardening, quarter recap", edited.Title)
	require.Equal(t, types.StoryStateDraft, edited.State)

	_, err = manager.Edit(ctx, types.CareerStory{ID: created.ID})
	require.ErrorIs(t, err, types.ErrUserIDRequired)
}

func sectionKeys(sections []types.StorySection) []string {
	keys := make([]string, 0, len(sections))
	for _, section := range sections {
		keys = append(keys, section.Key)
	}
	return keys
}
