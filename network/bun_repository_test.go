package network

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
	networkDDL   = "../data/sql/migrations/sqlite/00008_network_connections.up.sql"
	workspaceDDL = "../data/sql/migrations/sqlite/00009_workspaces.up.sql"
)

func TestRepository_CreateConnectionDefaultsAndGuards(t *testing.T) {
	repo := newTestNetworkRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	peerID := uuid.New()

	conn, err := repo.CreateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: peerID})
	require.NoError(t, err)
	require.Equal(t, types.TierExtended, conn.Tier)
	require.Equal(t, types.ConnectionPending, conn.Status)
	require.Zero(t, conn.InteractionCount)
	require.False(t, conn.FollowedAt.IsZero())
	require.False(t, conn.Active())

	_, err = repo.CreateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: peerID})
	require.ErrorIs(t, err, types.ErrConnectionExists)

	// the graph is directed, so the reverse edge is a separate row
	reverse, err := repo.CreateConnection(ctx, types.NetworkConnection{UserID: peerID, PeerID: userID})
	require.NoError(t, err)
	require.Equal(t, peerID, reverse.UserID)

	_, err = repo.CreateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: userID})
	require.ErrorIs(t, err, types.ErrSelfConnection)

	_, err = repo.CreateConnection(ctx, types.NetworkConnection{PeerID: peerID})
	require.ErrorIs(t, err, types.ErrUserIDRequired)

	_, err = repo.CreateConnection(ctx, types.NetworkConnection{UserID: userID})
	require.ErrorIs(t, err, ErrPeerRequired)
}

func TestRepository_UpdateConnectionStamps(t *testing.T) {
	repo := newTestNetworkRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	peerID := uuid.New()

	_, err := repo.CreateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: peerID})
	require.NoError(t, err)

	acceptedAt := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	conn, err := repo.UpdateConnection(ctx, types.NetworkConnection{
		UserID:     userID,
		PeerID:     peerID,
		Status:     types.ConnectionAccepted,
		AcceptedAt: acceptedAt,
	})
	require.NoError(t, err)
	require.Equal(t, types.ConnectionAccepted, conn.Status)
	require.True(t, conn.AcceptedAt.Equal(acceptedAt))
	require.True(t, conn.Active())

	// re-accepting never restamps
	conn, err = repo.UpdateConnection(ctx, types.NetworkConnection{
		UserID: userID,
		PeerID: peerID,
		Status: types.ConnectionAccepted,
	})
	require.NoError(t, err)
	require.True(t, conn.AcceptedAt.Equal(acceptedAt))

	promotedAt := acceptedAt.Add(48 * time.Hour)
	conn, err = repo.UpdateConnection(ctx, types.NetworkConnection{
		UserID:     userID,
		PeerID:     peerID,
		Tier:       types.TierCore,
		PromotedAt: promotedAt,
	})
	require.NoError(t, err)
	require.Equal(t, types.TierCore, conn.Tier)
	require.True(t, conn.PromotedAt.Equal(promotedAt))
	require.Equal(t, types.ConnectionAccepted, conn.Status)
	require.Zero(t, conn.InteractionCount)
}

func TestRepository_RecordInteraction(t *testing.T) {
	repo := newTestNetworkRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	peerID := uuid.New()

	connect(t, repo, userID, peerID)

	at := time.Date(2024, 5, 11, 8, 0, 0, 0, time.UTC)
	conn, err := repo.RecordInteraction(ctx, userID, peerID, at)
	require.NoError(t, err)
	require.Equal(t, 1, conn.InteractionCount)
	require.True(t, conn.UpdatedAt.Equal(at))

	conn, err = repo.RecordInteraction(ctx, userID, peerID, at.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, conn.InteractionCount)

	_, err = repo.RecordInteraction(ctx, userID, uuid.New(), at)
	require.Error(t, err)
}

func TestRepository_ListConnectionsAndFollowers(t *testing.T) {
	repo := newTestNetworkRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	corePeer := uuid.New()
	extendedPeer := uuid.New()
	pendingPeer := uuid.New()
	fan := uuid.New()
	requester := uuid.New()
	declined := uuid.New()

	connect(t, repo, userID, corePeer)
	_, err := repo.UpdateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: corePeer, Tier: types.TierCore})
	require.NoError(t, err)
	connect(t, repo, userID, extendedPeer)
	_, err = repo.CreateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: pendingPeer})
	require.NoError(t, err)

	connect(t, repo, fan, userID)
	_, err = repo.CreateConnection(ctx, types.NetworkConnection{UserID: requester, PeerID: userID})
	require.NoError(t, err)
	_, err = repo.CreateConnection(ctx, types.NetworkConnection{UserID: declined, PeerID: userID})
	require.NoError(t, err)
	_, err = repo.UpdateConnection(ctx, types.NetworkConnection{UserID: declined, PeerID: userID, Status: types.ConnectionDeclined})
	require.NoError(t, err)

	page, err := repo.ListConnections(ctx, types.ConnectionFilter{UserID: userID})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)

	core, err := repo.ListConnections(ctx, types.ConnectionFilter{UserID: userID, Tier: types.TierCore})
	require.NoError(t, err)
	require.Equal(t, 1, core.Total)
	require.Equal(t, corePeer, core.Connections[0].PeerID)

	pending, err := repo.ListConnections(ctx, types.ConnectionFilter{UserID: userID, Status: types.ConnectionPending})
	require.NoError(t, err)
	require.Equal(t, 1, pending.Total)
	require.Equal(t, pendingPeer, pending.Connections[0].PeerID)

	followers, total, err := repo.ListFollowers(ctx, userID, types.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	followerIDs := make([]uuid.UUID, 0, len(followers))
	for _, edge := range followers {
		followerIDs = append(followerIDs, edge.UserID)
	}
	require.ElementsMatch(t, []uuid.UUID{fan, requester}, followerIDs)
}

func TestRepository_NetworkStats(t *testing.T) {
	repo := newTestNetworkRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	corePeer := uuid.New()
	extendedPeer := uuid.New()
	fan := uuid.New()
	requester := uuid.New()

	connect(t, repo, userID, corePeer)
	_, err := repo.UpdateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: corePeer, Tier: types.TierCore})
	require.NoError(t, err)
	connect(t, repo, userID, extendedPeer)
	connect(t, repo, fan, userID)
	_, err = repo.CreateConnection(ctx, types.NetworkConnection{UserID: requester, PeerID: userID})
	require.NoError(t, err)

	stats, err := repo.NetworkStats(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, types.NetworkStats{Core: 1, Extended: 1, Followers: 1, Pending: 1}, stats)
}

func TestRepository_SuggestionCandidates(t *testing.T) {
	repo := newTestNetworkRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	peerOne := uuid.New()
	peerTwo := uuid.New()
	doubleMutual := uuid.New()
	singleMutual := uuid.New()
	alreadyInvited := uuid.New()
	coworker := uuid.New()

	connect(t, repo, userID, peerOne)
	connect(t, repo, peerTwo, userID)
	connect(t, repo, peerOne, peerTwo)

	connect(t, repo, doubleMutual, peerOne)
	connect(t, repo, peerTwo, doubleMutual)
	connect(t, repo, singleMutual, peerOne)

	// reachable through peerOne, but a pending invite already exists
	connect(t, repo, alreadyInvited, peerOne)
	_, err := repo.CreateConnection(ctx, types.NetworkConnection{UserID: userID, PeerID: alreadyInvited})
	require.NoError(t, err)

	workspaceID := uuid.New()
	addMember(t, repo.db, workspaceID, userID)
	addMember(t, repo.db, workspaceID, singleMutual)
	addMember(t, repo.db, workspaceID, coworker)
	addMember(t, repo.db, workspaceID, peerOne)

	suggestions, err := repo.ListSuggestionCandidates(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)

	require.Equal(t, doubleMutual, suggestions[0].PeerID)
	require.Equal(t, 2, suggestions[0].MutualConnections)
	require.Zero(t, suggestions[0].SharedWorkspaces)
	require.Equal(t, "knows 2 of your connections", suggestions[0].Reason)

	require.Equal(t, singleMutual, suggestions[1].PeerID)
	require.Equal(t, 1, suggestions[1].MutualConnections)
	require.Equal(t, 1, suggestions[1].SharedWorkspaces)
	require.Equal(t, "knows 1 of your connections; shares a workspace with you", suggestions[1].Reason)

	require.Equal(t, coworker, suggestions[2].PeerID)
	require.Zero(t, suggestions[2].MutualConnections)
	require.Equal(t, 1, suggestions[2].SharedWorkspaces)
	require.Equal(t, "shares a workspace with you", suggestions[2].Reason)

	capped, err := repo.ListSuggestionCandidates(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	require.Equal(t, doubleMutual, capped[0].PeerID)
	require.Equal(t, singleMutual, capped[1].PeerID)
}

func TestRepository_DeleteConnection(t *testing.T) {
	repo := newTestNetworkRepo(t)
	ctx := context.Background()
	userID := uuid.New()
	peerID := uuid.New()

	connect(t, repo, userID, peerID)
	require.NoError(t, repo.DeleteConnection(ctx, userID, peerID))

	_, err := repo.GetConnection(ctx, userID, peerID)
	require.Error(t, err)

	require.Error(t, repo.DeleteConnection(ctx, userID, peerID))
}

func connect(t *testing.T, repo *Repository, from, to uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.CreateConnection(ctx, types.NetworkConnection{UserID: from, PeerID: to})
	require.NoError(t, err)
	_, err = repo.UpdateConnection(ctx, types.NetworkConnection{UserID: from, PeerID: to, Status: types.ConnectionAccepted})
	require.NoError(t, err)
}

func addMember(t *testing.T, db *bun.DB, workspaceID, userID uuid.UUID) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO workspace_members (id, workspace_id, user_id, role) VALUES (?, ?, ?, 'member')",
		uuid.NewString(), workspaceID.String(), userID.String(),
	)
	require.NoError(t, err)
}

func newTestNetworkRepo(t *testing.T) *Repository {
	t.Helper()
	db := newTestNetworkDB(t)
	applyDDL(t, db, networkDDL, workspaceDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)
	return repo
}

func newTestNetworkDB(t *testing.T) *bun.DB {
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
