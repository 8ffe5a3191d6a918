package workspace

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

const workspaceDDL = "../data/sql/migrations/sqlite/00009_workspaces.up.sql"

func TestRepository_CreateWorkspaceWithOwner(t *testing.T) {
	db := newTestWorkspaceDB(t)
	applyDDL(t, db, workspaceDDL)
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: fixedClock{now: now}})
	require.NoError(t, err)

	ctx := context.Background()
	owner := uuid.New()
	tenant := uuid.New()

	ws, err := repo.CreateWorkspace(ctx, types.Workspace{
		TenantID: tenant,
		Name:     "  Design Systems Guild  ",
		OwnerID:  owner,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, ws.ID)
	require.Equal(t, "Design Systems Guild", ws.Name)
	require.Equal(t, "design-systems-guild", ws.Slug)
	require.Equal(t, tenant, ws.TenantID)
	require.True(t, ws.CreatedAt.Equal(now))

	// The owner membership lands in the same transaction.
	member, err := repo.GetMember(ctx, ws.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, member)
	require.Equal(t, types.WorkspaceRoleOwner, member.Role)
	require.Equal(t, owner, member.AddedBy)
	require.True(t, member.JoinedAt.Equal(now))

	_, err = repo.CreateWorkspace(ctx, types.Workspace{Name: "Design Systems Guild", OwnerID: uuid.New()})
	require.ErrorIs(t, err, ErrSlugTaken)

	_, err = repo.CreateWorkspace(ctx, types.Workspace{Name: "   ", OwnerID: owner})
	require.ErrorIs(t, err, ErrNameRequired)

	_, err = repo.CreateWorkspace(ctx, types.Workspace{Name: "No Owner Club"})
	require.ErrorIs(t, err, ErrOwnerRequired)

	custom, err := repo.CreateWorkspace(ctx, types.Workspace{
		Name:    "Custom Slug Space",
		Slug:    "Core Platform!",
		OwnerID: owner,
	})
	require.NoError(t, err)
	require.Equal(t, "core-platform", custom.Slug)
}

func TestRepository_WorkspaceLookupsAndListing(t *testing.T) {
	db := newTestWorkspaceDB(t)
	applyDDL(t, db, workspaceDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()
	tenant := uuid.New()

	alpha, err := repo.CreateWorkspace(ctx, types.Workspace{TenantID: tenant, Name: "Atlas Research", OwnerID: userA})
	require.NoError(t, err)
	_, err = repo.CreateWorkspace(ctx, types.Workspace{TenantID: tenant, Name: "Brightline Docs", OwnerID: userA})
	require.NoError(t, err)
	gamma, err := repo.CreateWorkspace(ctx, types.Workspace{Name: "Casework Collective", OwnerID: userB})
	require.NoError(t, err)

	found, err := repo.GetWorkspaceByID(ctx, alpha.ID)
	require.NoError(t, err)
	require.Equal(t, "atlas-research", found.Slug)

	// Slug lookups normalize, so the display name resolves too.
	found, err = repo.GetWorkspaceBySlug(ctx, tenant, "Atlas Research")
	require.NoError(t, err)
	require.Equal(t, alpha.ID, found.ID)

	_, err = repo.GetWorkspaceBySlug(ctx, uuid.New(), "atlas-research")
	require.Error(t, err)

	page, err := repo.ListWorkspaces(ctx, types.WorkspaceFilter{UserID: userA})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, "Atlas Research", page.Workspaces[0].Name)
	require.Equal(t, "Brightline Docs", page.Workspaces[1].Name)

	page, err = repo.ListWorkspaces(ctx, types.WorkspaceFilter{UserID: userA, Keyword: "bright"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Brightline Docs", page.Workspaces[0].Name)

	// Joining another workspace widens the membership listing.
	_, err = repo.AddMember(ctx, types.WorkspaceMember{WorkspaceID: gamma.ID, UserID: userA, AddedBy: userB})
	require.NoError(t, err)

	page, err = repo.ListWorkspaces(ctx, types.WorkspaceFilter{UserID: userA})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Equal(t, "Casework Collective", page.Workspaces[2].Name)

	page, err = repo.ListWorkspaces(ctx, types.WorkspaceFilter{UserID: userA, Scope: types.ScopeFilter{TenantID: tenant}})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	page, err = repo.ListWorkspaces(ctx, types.WorkspaceFilter{UserID: userA, Pagination: types.Pagination{Limit: 2}})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Workspaces, 2)
	require.True(t, page.HasMore)
	require.Equal(t, 2, page.NextOffset)
}

func TestRepository_UpdateAndDeleteWorkspace(t *testing.T) {
	db := newTestWorkspaceDB(t)
	applyDDL(t, db, workspaceDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	owner := uuid.New()

	ws, err := repo.CreateWorkspace(ctx, types.Workspace{Name: "Delta Skunkworks", OwnerID: owner, Description: "initial"})
	require.NoError(t, err)

	updated, err := repo.UpdateWorkspace(ctx, types.Workspace{ID: ws.ID, Name: "Delta Labs", Description: "renamed"})
	require.NoError(t, err)
	require.Equal(t, "Delta Labs", updated.Name)
	require.Equal(t, "renamed", updated.Description)
	// Renaming keeps the slug stable until one is supplied explicitly.
	require.Equal(t, "delta-skunkworks", updated.Slug)

	updated, err = repo.UpdateWorkspace(ctx, types.Workspace{ID: ws.ID, Slug: "Delta Labs"})
	require.NoError(t, err)
	require.Equal(t, "delta-labs", updated.Slug)
	require.Equal(t, "", updated.Description)

	_, err = repo.UpdateWorkspace(ctx, types.Workspace{Name: "Nameless"})
	require.ErrorIs(t, err, ErrWorkspaceIDRequired)

	echo, err := repo.CreateWorkspace(ctx, types.Workspace{Name: "Echo Chamber", OwnerID: owner})
	require.NoError(t, err)
	_, err = repo.UpdateWorkspace(ctx, types.Workspace{ID: echo.ID, Slug: "delta-labs"})
	require.ErrorIs(t, err, ErrSlugTaken)

	peer := uuid.New()
	_, err = repo.AddMember(ctx, types.WorkspaceMember{WorkspaceID: ws.ID, UserID: peer, AddedBy: owner})
	require.NoError(t, err)
	jti := uuid.NewString()
	_, err = repo.CreateInvitation(ctx, types.WorkspaceInvitation{
		WorkspaceID: ws.ID,
		Email:       "quinn@example.com",
		JTI:         jti,
		InvitedBy:   owner,
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteWorkspace(ctx, ws.ID))

	_, err = repo.GetWorkspaceByID(ctx, ws.ID)
	require.Error(t, err)
	member, err := repo.GetMember(ctx, ws.ID, peer)
	require.NoError(t, err)
	require.Nil(t, member)
	invitation, err := repo.GetInvitationByJTI(ctx, jti)
	require.NoError(t, err)
	require.Nil(t, invitation)

	require.Error(t, repo.DeleteWorkspace(ctx, ws.ID))
}

func TestRepository_MemberLifecycle(t *testing.T) {
	db := newTestWorkspaceDB(t)
	applyDDL(t, db, workspaceDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	owner := uuid.New()
	userOne := uuid.New()
	base := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)

	ws, err := repo.CreateWorkspace(ctx, types.Workspace{Name: "Foxtrot Guild", OwnerID: owner, CreatedAt: base})
	require.NoError(t, err)

	added, err := repo.AddMember(ctx, types.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      userOne,
		AddedBy:     owner,
		CreatedAt:   base.Add(time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, types.WorkspaceRoleMember, added.Role)
	require.True(t, added.JoinedAt.Equal(base.Add(time.Minute)))

	_, err = repo.AddMember(ctx, types.WorkspaceMember{WorkspaceID: ws.ID, UserID: userOne})
	require.ErrorIs(t, err, types.ErrAlreadyMember)

	_, err = repo.AddMember(ctx, types.WorkspaceMember{WorkspaceID: ws.ID, UserID: uuid.New(), Role: "lead"})
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = repo.AddMember(ctx, types.WorkspaceMember{WorkspaceID: ws.ID})
	require.ErrorIs(t, err, types.ErrUserIDRequired)

	_, err = repo.AddMember(ctx, types.WorkspaceMember{UserID: userOne})
	require.ErrorIs(t, err, ErrWorkspaceIDRequired)

	members, total, err := repo.ListMembers(ctx, ws.ID, types.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, owner, members[0].UserID)
	require.Equal(t, userOne, members[1].UserID)

	promoted, err := repo.UpdateMemberRole(ctx, ws.ID, userOne, types.WorkspaceRoleAdmin)
	require.NoError(t, err)
	require.Equal(t, types.WorkspaceRoleAdmin, promoted.Role)

	_, err = repo.UpdateMemberRole(ctx, ws.ID, uuid.New(), types.WorkspaceRoleMember)
	require.Error(t, err)

	require.NoError(t, repo.RemoveMember(ctx, ws.ID, userOne))
	member, err := repo.GetMember(ctx, ws.ID, userOne)
	require.NoError(t, err)
	require.Nil(t, member)
	require.Error(t, repo.RemoveMember(ctx, ws.ID, userOne))
}

func TestRepository_InvitationLifecycle(t *testing.T) {
	db := newTestWorkspaceDB(t)
	applyDDL(t, db, workspaceDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	owner := uuid.New()
	base := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)

	ws, err := repo.CreateWorkspace(ctx, types.Workspace{Name: "Golf House", OwnerID: owner})
	require.NoError(t, err)

	jtiOne := uuid.NewString()
	first, err := repo.CreateInvitation(ctx, types.WorkspaceInvitation{
		WorkspaceID: ws.ID,
		Email:       "  Casey@Example.COM ",
		JTI:         jtiOne,
		InvitedBy:   owner,
		ExpiresAt:   base.Add(72 * time.Hour),
		CreatedAt:   base,
	})
	require.NoError(t, err)
	require.Equal(t, "casey@example.com", first.Email)
	require.Equal(t, types.WorkspaceRoleMember, first.Role)
	require.Equal(t, types.InvitationPending, first.Status)

	_, err = repo.CreateInvitation(ctx, types.WorkspaceInvitation{Email: "x@example.com", JTI: uuid.NewString()})
	require.ErrorIs(t, err, ErrWorkspaceIDRequired)
	_, err = repo.CreateInvitation(ctx, types.WorkspaceInvitation{WorkspaceID: ws.ID, JTI: uuid.NewString()})
	require.ErrorIs(t, err, ErrEmailRequired)
	_, err = repo.CreateInvitation(ctx, types.WorkspaceInvitation{WorkspaceID: ws.ID, Email: "x@example.com"})
	require.ErrorIs(t, err, ErrJTIRequired)
	_, err = repo.CreateInvitation(ctx, types.WorkspaceInvitation{WorkspaceID: ws.ID, Email: "x@example.com", JTI: uuid.NewString(), Role: "lead"})
	require.ErrorIs(t, err, ErrInvalidRole)

	found, err := repo.GetInvitationByJTI(ctx, jtiOne)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, first.ID, found.ID)

	miss, err := repo.GetInvitationByJTI(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, miss)

	_, err = repo.GetInvitationByJTI(ctx, "  ")
	require.ErrorIs(t, err, ErrJTIRequired)

	jtiTwo := uuid.NewString()
	second, err := repo.CreateInvitation(ctx, types.WorkspaceInvitation{
		WorkspaceID: ws.ID,
		Email:       "dana@example.com",
		Role:        types.WorkspaceRoleAdmin,
		JTI:         jtiTwo,
		InvitedBy:   owner,
		CreatedAt:   base.Add(time.Hour),
	})
	require.NoError(t, err)

	page, err := repo.ListInvitations(ctx, types.InvitationFilter{WorkspaceID: ws.ID})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, "dana@example.com", page.Invitations[0].Email)
	require.Equal(t, "casey@example.com", page.Invitations[1].Email)

	page, err = repo.ListInvitations(ctx, types.InvitationFilter{WorkspaceID: ws.ID, Email: "CASEY@example.com"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	acceptedBy := uuid.New()
	acceptedAt := base.Add(2 * time.Hour)
	accepted, err := repo.UpdateInvitationStatus(ctx, first.ID, types.InvitationAccepted, acceptedBy, acceptedAt)
	require.NoError(t, err)
	require.Equal(t, types.InvitationAccepted, accepted.Status)
	require.Equal(t, acceptedBy, accepted.AcceptedBy)
	require.True(t, accepted.AcceptedAt.Equal(acceptedAt))

	declined, err := repo.UpdateInvitationStatus(ctx, second.ID, types.InvitationDeclined, uuid.Nil, acceptedAt)
	require.NoError(t, err)
	require.Equal(t, types.InvitationDeclined, declined.Status)
	require.Equal(t, uuid.Nil, declined.AcceptedBy)
	require.True(t, declined.AcceptedAt.IsZero())

	page, err = repo.ListInvitations(ctx, types.InvitationFilter{WorkspaceID: ws.ID, Status: types.InvitationPending})
	require.NoError(t, err)
	require.Equal(t, 0, page.Total)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestWorkspaceDB(t *testing.T) *bun.DB {
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
