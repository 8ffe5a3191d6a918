package story

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	activityDDL  = "../data/sql/migrations/sqlite/00002_tool_activity.up.sql"
	clusterDDL   = "../data/sql/migrations/sqlite/00003_clusters.up.sql"
	storyDDL     = "../data/sql/migrations/sqlite/00005_career_story.up.sql"
	networkDDL   = "../data/sql/migrations/sqlite/00008_network_connections.up.sql"
	workspaceDDL = "../data/sql/migrations/sqlite/00009_workspaces.up.sql"
)

func TestRepository_CreateDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, storyDDL)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	created, err := store.CreateStory(ctx, types.CareerStory{
		UserID: userID,
		Title:  "Checkout hardening",
		Sections: []types.StorySection{
			{Key: "situation", Label: "Situation", Text: "Errors were spiking.", Confidence: 0.4},
		},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, types.StoryStateDraft, created.State)
	require.Equal(t, types.VisibilityPrivate, created.Visibility)
	require.Equal(t, types.FrameworkSTAR, created.Framework)
	require.False(t, created.CreatedAt.IsZero())

	fetched, err := store.GetStoryByID(ctx, userID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Sections, fetched.Sections)

	_, err = store.GetStoryByID(ctx, uuid.New(), created.ID)
	require.Error(t, err)

	_, err = store.CreateStory(ctx, types.CareerStory{
		UserID: userID, Title: "Bad", Visibility: types.StoryVisibility("public"),
	})
	require.ErrorIs(t, err, types.ErrInvalidVisibility)

	_, err = store.CreateStory(ctx, types.CareerStory{
		UserID: userID, Title: "Bad", Framework: types.StoryFramework("epic"),
	})
	require.ErrorIs(t, err, types.ErrInvalidFramework)
}

func TestRepository_StateMachine(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, storyDDL)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	created, err := store.CreateStory(ctx, types.CareerStory{UserID: userID, Title: "Lifecycle"})
	require.NoError(t, err)

	// Drafts cannot be unpublished.
	_, err = store.SetStoryState(ctx, userID, created.ID, types.StoryStateUnpublished, time.Time{})
	require.ErrorIs(t, err, ErrInvalidTransition)

	publishedAt := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	published, err := store.SetStoryState(ctx, userID, created.ID, types.StoryStatePublished, publishedAt)
	require.NoError(t, err)
	require.Equal(t, types.StoryStatePublished, published.State)
	require.True(t, published.PublishedAt.Equal(publishedAt))

	_, err = store.SetStoryState(ctx, userID, created.ID, types.StoryStatePublished, time.Time{})
	require.ErrorIs(t, err, ErrInvalidTransition)

	unpublished, err := store.SetStoryState(ctx, userID, created.ID, types.StoryStateUnpublished, time.Time{})
	require.NoError(t, err)
	require.Equal(t, types.StoryStateUnpublished, unpublished.State)
	// Retracting keeps the historical publish time.
	require.True(t, unpublished.PublishedAt.Equal(publishedAt))

	again, err := store.SetStoryState(ctx, userID, created.ID, types.StoryStatePublished, publishedAt.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, again.PublishedAt.Equal(publishedAt.Add(time.Hour)))
}

func TestRepository_UpdateLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, storyDDL)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	created, err := store.CreateStory(ctx, types.CareerStory{UserID: userID, Title: "Before"})
	require.NoError(t, err)

	edit := *created
	edit.Title = "After"
	edit.Confidence = 0.8
	edit.State = types.StoryStatePublished
	edit.Sections = []types.StorySection{{Key: "situation", Label: "Situation", Text: "New text."}}

	updated, err := store.UpdateStory(ctx, edit)
	require.NoError(t, err)
	require.Equal(t, "After", updated.Title)
	require.InDelta(t, 0.8, updated.Confidence, 1e-9)
	require.Equal(t, edit.Sections, updated.Sections)
	// State changes only go through SetStoryState.
	require.Equal(t, types.StoryStateDraft, updated.State)
}

func TestRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, storyDDL)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	clusterID := uuid.New()
	first, err := store.CreateStory(ctx, types.CareerStory{
		UserID: userID, ClusterID: clusterID, Title: "Payment retries",
	})
	require.NoError(t, err)
	_, err = store.CreateStory(ctx, types.CareerStory{UserID: userID, Title: "Search indexing"})
	require.NoError(t, err)

	page, err := store.ListStories(ctx, types.StoryFilter{
		UserID: userID, Keyword: "payment", Pagination: types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, first.ID, page.Stories[0].ID)

	page, err = store.ListStories(ctx, types.StoryFilter{
		UserID: userID, ClusterID: clusterID, Pagination: types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	page, err = store.ListStories(ctx, types.StoryFilter{
		UserID: userID, States: []types.StoryState{types.StoryStateDraft},
		Pagination: types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
}

func TestRepository_ViewerVisibilityRules(t *testing.T) {
	ctx := context.Background()
	db := newTestStoryDB(t)
	applyDDL(t, db, storyDDL, workspaceDDL, networkDDL)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	owner := uuid.New()
	peer := uuid.New()
	viewer := uuid.New()
	workspaceID := uuid.New()

	addMember(t, db, workspaceID, owner)
	addMember(t, db, workspaceID, viewer)
	addEdge(t, db, peer, viewer, "accepted")

	workspaceStory := mustPublish(t, ctx, store, types.CareerStory{
		UserID: owner, WorkspaceID: workspaceID, Title: "Workspace story",
		Visibility: types.VisibilityWorkspace,
	})
	sharedStory := mustPublish(t, ctx, store, types.CareerStory{
		UserID: owner, Title: "Sharedspace story", Visibility: types.VisibilityWorkspace,
	})
	networkStory := mustPublish(t, ctx, store, types.CareerStory{
		UserID: peer, Title: "Network story", Visibility: types.VisibilityNetwork,
	})
	mustPublish(t, ctx, store, types.CareerStory{
		UserID: owner, Title: "Private story", Visibility: types.VisibilityPrivate,
	})
	// Draft workspace stories stay invisible to other members.
	_, err = store.CreateStory(ctx, types.CareerStory{
		UserID: owner, WorkspaceID: workspaceID, Title: "Workspace draft",
		Visibility: types.VisibilityWorkspace,
	})
	require.NoError(t, err)
	ownDraft, err := store.CreateStory(ctx, types.CareerStory{UserID: viewer, Title: "My draft"})
	require.NoError(t, err)

	feed, err := store.ListStories(ctx, types.StoryFilter{
		ViewerID: viewer, Pagination: types.Pagination{Limit: 20},
	})
	require.NoError(t, err)
	require.ElementsMatch(t,
		[]uuid.UUID{workspaceStory.ID, sharedStory.ID, networkStory.ID, ownDraft.ID},
		storyIDs(feed.Stories))

	ownerOnly, err := store.ListStories(ctx, types.StoryFilter{
		UserID: owner, ViewerID: viewer, Pagination: types.Pagination{Limit: 20},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{workspaceStory.ID, sharedStory.ID}, storyIDs(ownerOnly.Stories))

	// The owner browsing their own stories sees everything.
	self, err := store.ListStories(ctx, types.StoryFilter{
		UserID: owner, ViewerID: owner, Pagination: types.Pagination{Limit: 20},
	})
	require.NoError(t, err)
	require.Equal(t, 4, self.Total)

	// A pending edge grants nothing.
	stranger := uuid.New()
	addEdge(t, db, owner, stranger, "pending")
	nothing, err := store.ListStories(ctx, types.StoryFilter{
		UserID: owner, ViewerID: stranger, Pagination: types.Pagination{Limit: 20},
	})
	require.NoError(t, err)
	require.Equal(t, 0, nothing.Total)
}

func mustPublish(t *testing.T, ctx context.Context, store *Repository, story types.CareerStory) *types.CareerStory {
	t.Helper()
	created, err := store.CreateStory(ctx, story)
	require.NoError(t, err)
	published, err := store.SetStoryState(ctx, created.UserID, created.ID, types.StoryStatePublished, time.Time{})
	require.NoError(t, err)
	return published
}

func addMember(t *testing.T, db *bun.DB, workspaceID, userID uuid.UUID) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO workspace_members (id, workspace_id, user_id, role) VALUES (?, ?, ?, 'member')",
		uuid.NewString(), workspaceID.String(), userID.String(),
	)
	require.NoError(t, err)
}

func addEdge(t *testing.T, db *bun.DB, userID, peerID uuid.UUID, status string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO network_connections (id, user_id, peer_id, status) VALUES (?, ?, ?, ?)",
		uuid.NewString(), userID.String(), peerID.String(), status,
	)
	require.NoError(t, err)
}

func storyIDs(stories []types.CareerStory) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(stories))
	for _, story := range stories {
		ids = append(ids, story.ID)
	}
	return ids
}

func newTestStoryDB(t *testing.T) *bun.DB {
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

func applyDDL(t *testing.T, db *bun.DB, paths ...string) {
	for _, path := range paths {
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		for _, stmt := range splitStatements(string(content)) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err)
		}
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			statements = append(statements, builder.String())
			builder.Reset()
		}
	}
	if rest := strings.TrimSpace(builder.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
