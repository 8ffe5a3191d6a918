package query

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/inchronicle/go-stories/activity"
	"github.com/inchronicle/go-stories/pkg/types"
	"github.com/inchronicle/go-stories/scope"
)

// selfOnlyGuard authorizes reads only when the target is the actor, the way
// host applications wire non-admin API callers.
func selfOnlyGuard() scope.Guard {
	policy := types.AuthorizationPolicyFunc(func(_ context.Context, check types.PolicyCheck) error {
		if check.TargetID != uuid.Nil && check.TargetID != check.Actor.ID {
			return types.ErrUnauthorizedScope
		}
		return nil
	})
	return scope.NewGuard(types.PassthroughScopeResolver{}, policy)
}

func seedQueryActivity(t *testing.T, repo *activity.Repository, userID uuid.UUID, source types.ActivitySource, sourceID, title string, at time.Time) types.ToolActivity {
	t.Helper()
	created, err := repo.CreateActivity(context.Background(), types.ToolActivity{
		UserID:    userID,
		Source:    source,
		SourceID:  sourceID,
		Title:     title,
		Timestamp: at,
	})
	require.NoError(t, err)
	return *created
}

func TestActivityFeedQuerySelfOnlyPolicy(t *testing.T) {
	ctx := context.Background()
	db := newQueryTestDB(t)
	applyQueryDDL(t, db, "../data/sql/migrations/sqlite/00002_tool_activity.up.sql")
	repo, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)

	actorID := uuid.New()
	otherID := uuid.New()
	base := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

	seedQueryActivity(t, repo, actorID, types.SourceJira, "BILL-1", "Own ticket", base)
	seedQueryActivity(t, repo, otherID, types.SourceJira, "BILL-2", "Someone else's ticket", base)

	feed := NewActivityFeedQuery(repo, selfOnlyGuard())

	page, err := feed.Query(ctx, types.ToolActivityFilter{
		Actor:  types.ActorRef{ID: actorID, Type: "user"},
		UserID: actorID,
	})
	require.NoError(t, err)
	require.Len(t, page.Activities, 1)
	require.Equal(t, "Own ticket", page.Activities[0].Title)

	_, err = feed.Query(ctx, types.ToolActivityFilter{
		Actor:  types.ActorRef{ID: actorID, Type: "user"},
		UserID: otherID,
	})
	require.ErrorIs(t, err, types.ErrUnauthorizedScope)
}

func TestActivityFeedQueryNormalizesPagination(t *testing.T) {
	ctx := context.Background()
	db := newQueryTestDB(t)
	applyQueryDDL(t, db, "../data/sql/migrations/sqlite/00002_tool_activity.up.sql")
	repo, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	base := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	for i, sourceID := range []string{"a-1", "a-2", "a-3"} {
		seedQueryActivity(t, repo, userID, types.SourceSlack, sourceID, "Thread "+sourceID, base.Add(time.Duration(i)*time.Hour))
	}

	feed := NewActivityFeedQuery(repo, nil)

	// A negative limit falls back to the default page size.
	page, err := feed.Query(ctx, types.ToolActivityFilter{
		Actor:      types.ActorRef{ID: userID, Type: "user"},
		UserID:     userID,
		Pagination: types.Pagination{Limit: -5},
	})
	require.NoError(t, err)
	require.Len(t, page.Activities, 3)
	require.False(t, page.HasMore)

	page, err = feed.Query(ctx, types.ToolActivityFilter{
		Actor:      types.ActorRef{ID: userID, Type: "user"},
		UserID:     userID,
		Pagination: types.Pagination{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, page.Activities, 2)
	require.True(t, page.HasMore)
}

func TestActivityStatsAndDetailQueries(t *testing.T) {
	ctx := context.Background()
	db := newQueryTestDB(t)
	applyQueryDDL(t, db, "../data/sql/migrations/sqlite/00002_tool_activity.up.sql")
	repo, err := activity.NewRepository(activity.RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	base := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	ticket := seedQueryActivity(t, repo, userID, types.SourceJira, "BILL-1", "Billing ticket", base)
	seedQueryActivity(t, repo, userID, types.SourceGitHub, "pr-1", "Billing fix", base.Add(time.Hour))

	stats, err := NewActivityStatsQuery(repo, nil).Query(ctx, types.ToolActivityStatsFilter{
		Actor:  types.ActorRef{ID: userID, Type: "user"},
		UserID: userID,
	})
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 2, stats.Unclustered)
	require.Equal(t, 1, stats.BySource[types.SourceJira])

	detail, err := NewActivityDetailQuery(repo, nil).Query(ctx, ActivityDetailInput{
		UserID:     userID,
		ActivityID: ticket.ID,
		Actor:      types.ActorRef{ID: userID, Type: "user"},
	})
	require.NoError(t, err)
	require.Equal(t, "Billing ticket", detail.Title)

	_, err = NewActivityDetailQuery(repo, nil).Query(ctx, ActivityDetailInput{
		UserID: userID,
		Actor:  types.ActorRef{ID: userID, Type: "user"},
	})
	require.ErrorIs(t, err, errActivityIDRequired)
}

func TestActivityQueriesRequireRepository(t *testing.T) {
	ctx := context.Background()
	actor := types.ActorRef{ID: uuid.New(), Type: "user"}

	_, err := NewActivityFeedQuery(nil, nil).Query(ctx, types.ToolActivityFilter{Actor: actor})
	require.ErrorIs(t, err, types.ErrMissingActivityRepository)

	_, err = NewActivityStatsQuery(nil, nil).Query(ctx, types.ToolActivityStatsFilter{Actor: actor})
	require.ErrorIs(t, err, types.ErrMissingActivityRepository)
}

func newQueryTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqlDB.Close()
	})
	return db
}

func applyQueryDDL(t *testing.T, db *bun.DB, paths ...string) {
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
			if strings.HasSuffix(line, ";") {
				_, err := db.Exec(builder.String())
				require.NoError(t, err)
				builder.Reset()
			} else {
				builder.WriteString(" ")
			}
		}
	}
}
