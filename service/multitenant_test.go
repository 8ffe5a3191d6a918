package service_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/audit"
	"github.com/inchronicle/go-stories/cluster"
	"github.com/inchronicle/go-stories/command"
	"github.com/inchronicle/go-stories/journal"
	"github.com/inchronicle/go-stories/network"
	"github.com/inchronicle/go-stories/onboarding"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/profile"
	"github.com/inchronicle/go-stories/query"
	"github.com/inchronicle/go-stories/service"
	"github.com/inchronicle/go-stories/story"
	"github.com/inchronicle/go-stories/tokens"
	"github.com/inchronicle/go-stories/wallet"
	"github.com/inchronicle/go-stories/workspace"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestService_EndToEndScopeIsolation(t *testing.T) {
	ctx := context.Background()
	db := newServiceTestDB(t)
	applyServiceDDL(t, db,
		"00002_tool_activity.up.sql",
		"00003_clusters.up.sql",
		"00004_audit_log.up.sql",
		"00005_career_story.up.sql",
		"00006_journal_entries.up.sql",
		"00007_wallet.up.sql",
		"00008_network_connections.up.sql",
		"00009_workspaces.up.sql",
		"00010_user_tokens.up.sql",
		"00012_user_profile.up.sql",
	)

	activityRepo, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)
	clusterRepo, err := cluster.NewRepository(cluster.RepositoryConfig{DB: db})
	require.NoError(t, err)
	storyRepo, err := story.NewRepository(story.RepositoryConfig{DB: db})
	require.NoError(t, err)
	journalRepo, err := journal.NewRepository(journal.RepositoryConfig{DB: db})
	require.NoError(t, err)
	walletRepo, err := wallet.NewRepository(wallet.RepositoryConfig{DB: db})
	require.NoError(t, err)
	networkRepo, err := network.NewRepository(network.RepositoryConfig{DB: db})
	require.NoError(t, err)
	workspaceRepo, err := workspace.NewRepository(workspace.RepositoryConfig{DB: db})
	require.NoError(t, err)
	tokenRepo, err := tokens.NewRepository(tokens.RepositoryConfig{DB: db})
	require.NoError(t, err)
	profileRepo, err := profile.NewRepository(profile.RepositoryConfig{DB: db})
	require.NoError(t, err)
	auditRepo, err := audit.NewRepository(audit.RepositoryConfig{DB: db})
	require.NoError(t, err)

	userA := uuid.New()
	userB := uuid.New()
	actorA := types.ActorRef{ID: userA, Type: "user"}
	actorB := types.ActorRef{ID: userB, Type: "user"}

	svc := service.New(service.Config{
		ActivityRepository:  activityRepo,
		ClusterRepository:   clusterRepo,
		StoryRepository:     storyRepo,
		JournalRepository:   journalRepo,
		WalletRepository:    walletRepo,
		NetworkRepository:   networkRepo,
		WorkspaceRepository: workspaceRepo,
		TokenRepository:     tokenRepo,
		ProfileRepository:   profileRepo,
		AuditRepository:     auditRepo,
		AuditSink:           auditRepo,
		OnboardingStore:     onboarding.NewMemoryStore(),
		StarCost:            5,
		AuthorizationPolicy: selfOnlyPolicy{},
	})
	require.True(t, svc.Ready())
	require.NoError(t, svc.HealthCheck(ctx))

	// Import three activities for user A. Two share a topic inside the
	// clustering window, the third sits weeks away and stays unclustered.
	base := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	imports := []types.ToolActivity{
		{UserID: userA, Source: types.SourceGitHub, SourceID: "pr-101", Title: "Payment gateway retry logic", Timestamp: base},
		{UserID: userA, Source: types.SourceJira, SourceID: "PAY-7", Title: "Payment gateway rollout plan", Timestamp: base.Add(4 * time.Hour)},
		{UserID: userA, Source: types.SourceSlack, SourceID: "msg-31", Title: "Oncall handover notes", Timestamp: base.Add(40 * 24 * time.Hour)},
	}
	for _, act := range imports {
		err := svc.Commands().ImportActivity.Execute(ctx, command.ImportActivityInput{
			Activity: act,
			Actor:    actorA,
		})
		require.NoError(t, err)
	}

	clusterResult := &command.GenerateClustersResult{}
	require.NoError(t, svc.Commands().GenerateClusters.Execute(ctx, command.GenerateClustersInput{
		UserID: userA,
		Actor:  actorA,
		Result: clusterResult,
	}))
	require.Len(t, clusterResult.Clusters, 1)
	require.Len(t, clusterResult.Clusters[0].ActivityIDs, 2)

	// Fund the wallet, then generate a story. The configured star cost is
	// debited before the draft lands.
	require.NoError(t, svc.Commands().ApplyWalletTransaction.Execute(ctx, command.ApplyWalletTransactionInput{
		UserID:    userA,
		Kind:      types.TransactionCredit,
		Amount:    10,
		Reason:    "signup bonus",
		Reference: "seed-1",
		Actor:     actorA,
	}))

	storyResult := &command.StoryResult{}
	require.NoError(t, svc.Commands().GenerateStory.Execute(ctx, command.GenerateStoryInput{
		UserID:    userA,
		ClusterID: clusterResult.Clusters[0].ID,
		Actor:     actorA,
		Result:    storyResult,
	}))
	require.NotNil(t, storyResult.Story)
	require.NotNil(t, storyResult.Star)

	balance, err := svc.Queries().WalletBalance.Query(ctx, query.WalletBalanceInput{UserID: userA, Actor: actorA})
	require.NoError(t, err)
	require.EqualValues(t, 5, balance.Balance)

	// Actor B can neither read A's feed nor publish A's stories.
	_, err = svc.Queries().ActivityFeed.Query(ctx, types.ToolActivityFilter{Actor: actorB, UserID: userA})
	require.ErrorIs(t, err, types.ErrUnauthorizedScope)

	err = svc.Commands().PublishStory.Execute(ctx, command.PublishStoryInput{
		UserID:  userA,
		StoryID: storyResult.Story.ID,
		Actor:   actorB,
	})
	require.ErrorIs(t, err, types.ErrUnauthorizedScope)

	// Onboarding and profile run through the same facade and guard.
	require.NoError(t, svc.Commands().UpdateOnboarding.Execute(ctx, command.UpdateOnboardingInput{
		UserID: userA,
		Fields: map[string]any{onboarding.FieldDisplayName: "Jordan Rivera"},
		Actor:  actorA,
	}))
	status, err := svc.Queries().OnboardingStatus.Query(ctx, query.OnboardingStatusInput{UserID: userA, Actor: actorA})
	require.NoError(t, err)
	require.Equal(t, 2, status.Record.CurrentStep)

	displayName := "Jordan Rivera"
	profileResult := &types.UserProfile{}
	require.NoError(t, svc.Commands().UpsertProfile.Execute(ctx, command.UpsertProfileInput{
		UserID: userA,
		Patch:  types.ProfilePatch{DisplayName: &displayName},
		Actor:  actorA,
		Result: profileResult,
	}))
	require.Equal(t, "Jordan Rivera", profileResult.DisplayName)

	// The audit trail captured the writes above, all attributed to user A.
	auditPage, err := svc.Queries().AuditFeed.Query(ctx, types.AuditFilter{
		Actor:      actorA,
		UserID:     userA,
		Pagination: types.Pagination{Limit: 50},
	})
	require.NoError(t, err)
	require.NotEmpty(t, auditPage.Records)
	verbs := make(map[string]bool, len(auditPage.Records))
	for _, rec := range auditPage.Records {
		require.Equal(t, userA, rec.UserID)
		verbs[rec.Verb] = true
	}
	require.True(t, verbs["activity.imported"])
	require.True(t, verbs["cluster.generated"])
	require.True(t, verbs["story.generated"])
}

func TestService_HealthCheckReportsMissingDependency(t *testing.T) {
	svc := service.New(service.Config{})
	require.False(t, svc.Ready())
	require.ErrorIs(t, svc.HealthCheck(context.Background()), types.ErrMissingActivityRepository)
}

// selfOnlyPolicy pins each actor to their own artifacts, the way host
// applications wire non-admin API callers.
type selfOnlyPolicy struct{}

func (selfOnlyPolicy) Authorize(_ context.Context, check types.PolicyCheck) error {
	if check.TargetID != uuid.Nil && check.TargetID != check.Actor.ID {
		return types.ErrUnauthorizedScope
	}
	return nil
}

func newServiceTestDB(t *testing.T) *bun.DB {
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

func applyServiceDDL(t *testing.T, db *bun.DB, files ...string) {
	for _, file := range files {
		content, err := os.ReadFile(filepath.Join("..", "data", "sql", "migrations", "sqlite", file))
		require.NoError(t, err)
		for _, stmt := range splitServiceStatements(string(content)) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err)
		}
	}
}

func splitServiceStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}
