package tokens

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

const tokensDDL = "../data/sql/migrations/sqlite/00010_user_tokens.up.sql"

func TestRepository_CreateTokenDefaults(t *testing.T) {
	db := newTestTokensDB(t)
	applyDDL(t, db, tokensDDL)
	issued := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: fixedClock{now: issued}})
	require.NoError(t, err)

	ctx := context.Background()
	workspaceID := uuid.New()
	jti := uuid.NewString()

	token, err := repo.CreateToken(ctx, types.UserToken{
		WorkspaceID: workspaceID,
		Email:       "invitee@example.com",
		Type:        types.UserTokenWorkspaceInvite,
		JTI:         jti,
		ExpiresAt:   issued.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, token.ID)
	require.Equal(t, uuid.Nil, token.UserID)
	require.Equal(t, workspaceID, token.WorkspaceID)
	require.Equal(t, "invitee@example.com", token.Email)
	require.Equal(t, types.UserTokenStatusIssued, token.Status)
	require.True(t, token.IssuedAt.Equal(issued))
	require.True(t, token.CreatedAt.Equal(issued))

	_, err = repo.CreateToken(ctx, types.UserToken{JTI: uuid.NewString()})
	require.ErrorIs(t, err, ErrTypeRequired)

	_, err = repo.CreateToken(ctx, types.UserToken{Type: types.UserTokenRegistration, JTI: "  "})
	require.ErrorIs(t, err, ErrJTIRequired)
}

func TestRepository_GetTokenByJTI(t *testing.T) {
	db := newTestTokensDB(t)
	applyDDL(t, db, tokensDDL)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	ctx := context.Background()
	jti := uuid.NewString()
	created, err := repo.CreateToken(ctx, types.UserToken{
		WorkspaceID: uuid.New(),
		Email:       "member@example.com",
		Type:        types.UserTokenWorkspaceInvite,
		JTI:         jti,
	})
	require.NoError(t, err)

	found, err := repo.GetTokenByJTI(ctx, types.UserTokenWorkspaceInvite, jti)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, created.Email, found.Email)

	// An empty type matches any token carrying the JTI.
	untyped, err := repo.GetTokenByJTI(ctx, "", jti)
	require.NoError(t, err)
	require.NotNil(t, untyped)
	require.Equal(t, created.ID, untyped.ID)

	miss, err := repo.GetTokenByJTI(ctx, types.UserTokenRegistration, jti)
	require.NoError(t, err)
	require.Nil(t, miss)

	miss, err = repo.GetTokenByJTI(ctx, types.UserTokenWorkspaceInvite, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestRepository_UpdateTokenStatus(t *testing.T) {
	db := newTestTokensDB(t)
	applyDDL(t, db, tokensDDL)
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: fixedClock{now: now}})
	require.NoError(t, err)

	ctx := context.Background()
	jti := uuid.NewString()
	_, err = repo.CreateToken(ctx, types.UserToken{
		WorkspaceID: uuid.New(),
		Email:       "invitee@example.com",
		Type:        types.UserTokenWorkspaceInvite,
		JTI:         jti,
		ExpiresAt:   now.Add(time.Hour),
	})
	require.NoError(t, err)

	usedAt := now.Add(10 * time.Minute)
	require.NoError(t, repo.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, jti, types.UserTokenStatusUsed, usedAt))

	token, err := repo.GetTokenByJTI(ctx, types.UserTokenWorkspaceInvite, jti)
	require.NoError(t, err)
	require.Equal(t, types.UserTokenStatusUsed, token.Status)
	require.True(t, token.UsedAt.Equal(usedAt))

	// Consumed tokens never transition again.
	err = repo.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, jti, types.UserTokenStatusUsed, usedAt)
	require.Error(t, err)

	expiredJTI := uuid.NewString()
	_, err = repo.CreateToken(ctx, types.UserToken{
		Type:      types.UserTokenWorkspaceInvite,
		JTI:       expiredJTI,
		Email:     "late@example.com",
		ExpiresAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	err = repo.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, expiredJTI, types.UserTokenStatusUsed, now)
	require.Error(t, err)

	// Expiring the same token is allowed: only the used transition checks
	// the deadline.
	require.NoError(t, repo.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, expiredJTI, types.UserTokenStatusExpired, time.Time{}))
	token, err = repo.GetTokenByJTI(ctx, types.UserTokenWorkspaceInvite, expiredJTI)
	require.NoError(t, err)
	require.Equal(t, types.UserTokenStatusExpired, token.Status)
	require.True(t, token.UsedAt.IsZero())

	err = repo.UpdateTokenStatus(ctx, types.UserTokenWorkspaceInvite, "  ", types.UserTokenStatusRevoked, time.Time{})
	require.ErrorIs(t, err, ErrJTIRequired)
}

func TestResetRepository_Lifecycle(t *testing.T) {
	db := newTestTokensDB(t)
	applyDDL(t, db, tokensDDL)
	now := time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC)
	repo, err := NewResetRepository(ResetRepositoryConfig{DB: db, Clock: fixedClock{now: now}})
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()
	tenantID := uuid.New()
	jti := uuid.NewString()

	created, err := repo.CreateReset(ctx, types.PasswordResetRecord{
		UserID:    userID,
		Email:     "owner@example.com",
		JTI:       jti,
		ExpiresAt: now.Add(time.Hour),
		Scope:     types.ScopeFilter{TenantID: tenantID},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, types.PasswordResetStatusRequested, created.Status)
	require.True(t, created.IssuedAt.Equal(now))
	require.Equal(t, tenantID, created.Scope.TenantID)

	found, err := repo.GetResetByJTI(ctx, jti)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)

	miss, err := repo.GetResetByJTI(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, miss)

	usedAt := now.Add(5 * time.Minute)
	require.NoError(t, repo.ConsumeReset(ctx, jti, usedAt))

	found, err = repo.GetResetByJTI(ctx, jti)
	require.NoError(t, err)
	require.True(t, found.UsedAt.Equal(usedAt))
	require.Equal(t, types.PasswordResetStatusRequested, found.Status)

	// Single use: a consumed JTI cannot be consumed again.
	require.Error(t, repo.ConsumeReset(ctx, jti, usedAt.Add(time.Minute)))

	require.NoError(t, repo.UpdateResetStatus(ctx, jti, types.PasswordResetStatusChanged, usedAt))
	found, err = repo.GetResetByJTI(ctx, jti)
	require.NoError(t, err)
	require.Equal(t, types.PasswordResetStatusChanged, found.Status)
	require.True(t, found.ResetAt.Equal(usedAt))
}

func TestResetRepository_Guards(t *testing.T) {
	db := newTestTokensDB(t)
	applyDDL(t, db, tokensDDL)
	now := time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC)
	repo, err := NewResetRepository(ResetRepositoryConfig{DB: db, Clock: fixedClock{now: now}})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = repo.CreateReset(ctx, types.PasswordResetRecord{Email: "owner@example.com", JTI: uuid.NewString()})
	require.ErrorIs(t, err, types.ErrUserIDRequired)

	_, err = repo.CreateReset(ctx, types.PasswordResetRecord{UserID: uuid.New(), Email: "owner@example.com"})
	require.ErrorIs(t, err, ErrJTIRequired)

	require.ErrorIs(t, repo.ConsumeReset(ctx, "  ", now), ErrJTIRequired)

	// Expired requests cannot be consumed, only marked expired.
	expiredJTI := uuid.NewString()
	userID := uuid.New()
	_, err = repo.CreateReset(ctx, types.PasswordResetRecord{
		UserID:    userID,
		Email:     "late@example.com",
		JTI:       expiredJTI,
		ExpiresAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)
	require.Error(t, repo.ConsumeReset(ctx, expiredJTI, now))

	require.NoError(t, repo.UpdateResetStatus(ctx, expiredJTI, types.PasswordResetStatusExpired, now))
	found, err := repo.GetResetByJTI(ctx, expiredJTI)
	require.NoError(t, err)
	require.Equal(t, types.PasswordResetStatusExpired, found.Status)
	require.True(t, found.ResetAt.IsZero())
	require.True(t, found.UsedAt.Equal(now))
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestTokensDB(t *testing.T) *bun.DB {
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
