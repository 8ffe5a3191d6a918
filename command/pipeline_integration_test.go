package command

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/star"
	"github.com/inchronicle/go-stories/story"
	"github.com/inchronicle/go-stories/wallet"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Walks the full path from raw tool activity to a published story: import,
// cluster generation, wallet-metered synthesis, publication. Uses the real
// sqlite-backed repositories so the commands exercise the same SQL the
// service wires in production.
func TestCommandPipeline_ImportToPublishedStory(t *testing.T) {
	ctx := context.Background()
	db := newCommandTestDB(t)
	applyCommandDDL(t, db,
		"../data/sql/migrations/sqlite/00002_tool_activity.up.sql",
		"../data/sql/migrations/sqlite/00003_clusters.up.sql",
		"../data/sql/migrations/sqlite/00005_career_story.up.sql",
		"../data/sql/migrations/sqlite/00007_wallet.up.sql",
	)

	activities, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)
	clusters, err := cluster.NewRepository(cluster.RepositoryConfig{DB: db})
	require.NoError(t, err)
	stories, err := story.NewRepository(story.RepositoryConfig{DB: db})
	require.NoError(t, err)
	wallets, err := wallet.NewRepository(wallet.RepositoryConfig{DB: db})
	require.NoError(t, err)

	clusterManager, err := cluster.NewManager(cluster.ManagerConfig{
		Clusters:   clusters,
		Activities: activities,
		Engine:     cluster.NewEngine(),
	})
	require.NoError(t, err)
	storyManager, err := story.NewManager(story.ManagerConfig{
		Stories:     stories,
		Clusters:    clusters,
		Activities:  activities,
		Synthesizer: star.NewSynthesizer(star.SynthesizerConfig{}),
		Wallet:      wallets,
		StarCost:    5,
	})
	require.NoError(t, err)

	sink := &auditRecorder{}
	importCmd := NewImportActivityCommand(ImportActivityConfig{
		Repository: activities,
		Audit:      sink,
	})
	walletCmd := NewApplyWalletTransactionCommand(ApplyWalletTransactionConfig{
		Wallet: wallets,
		Audit:  sink,
	})
	clusterCmd := NewGenerateClustersCommand(ClusterCommandConfig{
		Manager: clusterManager,
		Audit:   sink,
	})
	storyCmd := NewGenerateStoryCommand(StoryCommandConfig{
		Manager: storyManager,
		Audit:   sink,
	})
	publishCmd := NewPublishStoryCommand(StoryCommandConfig{
		Manager: storyManager,
		Audit:   sink,
	})

	userID := uuid.New()
	actor := types.ActorRef{ID: userID, Type: "user"}
	scope := types.ScopeFilter{TenantID: uuid.New()}
	base := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)

	seed := []types.ToolActivity{
		{UserID: userID, Source: types.SourceJira, SourceID: "BILL-101", Title: "Billing gateway timeout alert", Timestamp: base},
		{UserID: userID, Source: types.SourceGitHub, SourceID: "pr-2201", Title: "Billing gateway retry patch", Timestamp: base.Add(3 * time.Hour)},
		{UserID: userID, Source: types.SourceSlack, SourceID: "msg-88", Title: "Shipped billing gateway patch rollout", Timestamp: base.Add(6 * time.Hour)},
		{UserID: userID, Source: types.SourceGoogleMeet, SourceID: "meet-14", Title: "Quarterly roadmap planning workshop", Timestamp: base.Add(8 * time.Hour)},
	}
	for _, item := range seed {
		result := &ImportActivityResult{}
		err := importCmd.Execute(ctx, ImportActivityInput{
			Activity: item,
			Actor:    actor,
			Scope:    scope,
			Result:   result,
		})
		require.NoError(t, err)
		require.True(t, result.Created)
		require.Equal(t, scope.TenantID, result.Activity.TenantID)
	}

	// Re-importing the same source record refreshes in place.
	replay := &ImportActivityResult{}
	err = importCmd.Execute(ctx, ImportActivityInput{
		Activity: seed[0],
		Actor:    actor,
		Scope:    scope,
		Result:   replay,
	})
	require.NoError(t, err)
	require.False(t, replay.Created)

	stats, err := activities.ActivityStats(ctx, types.ToolActivityStatsFilter{
		Actor:  actor,
		UserID: userID,
	})
	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)

	walletResult := &WalletResult{}
	err = walletCmd.Execute(ctx, ApplyWalletTransactionInput{
		UserID: userID,
		Kind:   types.TransactionCredit,
		Amount: 12,
		Reason: "signup bonus",
		Actor:  actor,
		Scope:  scope,
		Result: walletResult,
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), walletResult.Balance.Balance)

	clusterResult := &GenerateClustersResult{}
	err = clusterCmd.Execute(ctx, GenerateClustersInput{
		UserID: userID,
		Actor:  actor,
		Scope:  scope,
		Result: clusterResult,
	})
	require.NoError(t, err)
	require.Len(t, clusterResult.Clusters, 1)
	generated := clusterResult.Clusters[0]
	require.Len(t, generated.ActivityIDs, 3)

	// The roadmap workshop shares no topic with the billing work and stays
	// unclustered; a second run finds nothing new to group.
	stats, err = activities.ActivityStats(ctx, types.ToolActivityStatsFilter{
		Actor:  actor,
		UserID: userID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Unclustered)

	rerun := &GenerateClustersResult{}
	err = clusterCmd.Execute(ctx, GenerateClustersInput{
		UserID: userID,
		Actor:  actor,
		Scope:  scope,
		Result: rerun,
	})
	require.NoError(t, err)
	require.Empty(t, rerun.Clusters)

	storyResult := &StoryResult{}
	err = storyCmd.Execute(ctx, GenerateStoryInput{
		UserID:    userID,
		ClusterID: generated.ID,
		Actor:     actor,
		Scope:     scope,
		Result:    storyResult,
	})
	require.NoError(t, err)
	require.NotNil(t, storyResult.Story)
	require.NotNil(t, storyResult.Star)
	require.Equal(t, types.StoryStateDraft, storyResult.Story.State)
	require.Equal(t, types.FrameworkSTAR, storyResult.Story.Framework)
	require.Len(t, storyResult.Story.Sections, 4)
	require.True(t, storyResult.Star.Validation.Passed)

	balance, err := wallets.GetBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(7), balance.Balance, "star generation debits the wallet")

	published := &StoryResult{}
	err = publishCmd.Execute(ctx, PublishStoryInput{
		UserID:  userID,
		StoryID: storyResult.Story.ID,
		Actor:   actor,
		Scope:   scope,
		Result:  published,
	})
	require.NoError(t, err)
	require.Equal(t, types.StoryStatePublished, published.Story.State)
	require.False(t, published.Story.PublishedAt.IsZero())

	verbs := make([]string, 0, len(sink.records))
	for _, record := range sink.records {
		verbs = append(verbs, record.Verb)
	}
	require.Equal(t, []string{
		"activity.imported",
		"activity.imported",
		"activity.imported",
		"activity.imported",
		"activity.imported",
		"wallet.credit",
		"cluster.generated",
		"story.generated",
		"story.published",
	}, verbs)

	for _, record := range sink.records {
		require.Equal(t, scope.TenantID, record.TenantID, "audit %s lost its tenant", record.Verb)
	}
}

func newCommandTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyCommandDDL(t *testing.T, db *bun.DB, paths ...string) {
	t.Helper()
	for _, path := range paths {
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		var builder strings.Builder
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "--") {
				continue
			}
			builder.WriteString(line)
			builder.WriteString(" ")
			if strings.HasSuffix(line, ";") {
				_, err := db.Exec(builder.String())
				require.NoError(t, err)
				builder.Reset()
			}
		}
	}
}
