package onboarding

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const onboardingDDL = "../data/sql/migrations/sqlite/00011_onboarding.up.sql"

func TestStore_SetAndGetOnboarding(t *testing.T) {
	ctx := context.Background()
	db := newTestOnboardingDB(t)
	applyDDL(t, db, onboardingDDL)
	now := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	store, err := NewStore(StoreConfig{DB: db, Clock: fixedClock{now: now}})
	require.NoError(t, err)

	userID := uuid.New()
	missing, err := store.GetOnboarding(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, missing)

	saved, err := store.SetOnboarding(ctx, types.OnboardingRecord{
		UserID: userID,
		Payload: map[string]any{
			FieldDisplayName:    "Avery Quinn",
			FieldSkills:         []string{"go", "sql"},
			FieldToolsConnected: 3,
		},
		DemoMode: true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, saved.CurrentStep)
	require.True(t, saved.CreatedAt.Equal(now))
	require.True(t, saved.UpdatedAt.Equal(now))

	got, err := store.GetOnboarding(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, got.DemoMode)
	require.Equal(t, "Avery Quinn", got.Payload[FieldDisplayName])
	// The payload round-trips through JSON: lists come back as []any and
	// numbers as float64.
	require.Equal(t, []any{"go", "sql"}, got.Payload[FieldSkills])
	require.Equal(t, float64(3), got.Payload[FieldToolsConnected])
}

func TestStore_UpsertKeepsCreation(t *testing.T) {
	ctx := context.Background()
	db := newTestOnboardingDB(t)
	applyDDL(t, db, onboardingDDL)
	created := time.Date(2024, 8, 2, 9, 0, 0, 0, time.UTC)
	later := created.Add(2 * time.Hour)

	first, err := NewStore(StoreConfig{DB: db, Clock: fixedClock{now: created}})
	require.NoError(t, err)
	second, err := NewStore(StoreConfig{DB: db, Clock: fixedClock{now: later}})
	require.NoError(t, err)

	userID := uuid.New()
	_, err = first.SetOnboarding(ctx, types.OnboardingRecord{
		UserID:      userID,
		Payload:     map[string]any{FieldDisplayName: "Avery"},
		CurrentStep: 2,
	})
	require.NoError(t, err)

	updated, err := second.SetOnboarding(ctx, types.OnboardingRecord{
		UserID:      userID,
		Payload:     map[string]any{FieldDisplayName: "Avery", FieldTitle: "Engineer"},
		CurrentStep: 3,
		CompletedAt: later,
	})
	require.NoError(t, err)
	require.True(t, updated.CreatedAt.Equal(created))
	require.True(t, updated.UpdatedAt.Equal(later))
	require.True(t, updated.CompletedAt.Equal(later))
	require.Equal(t, 3, updated.CurrentStep)

	got, err := second.GetOnboarding(ctx, userID)
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(created))
	require.Equal(t, "Engineer", got.Payload[FieldTitle])
}

func TestStore_ClearOnboarding(t *testing.T) {
	ctx := context.Background()
	db := newTestOnboardingDB(t)
	applyDDL(t, db, onboardingDDL)
	store, err := NewStore(StoreConfig{DB: db})
	require.NoError(t, err)

	userID := uuid.New()
	_, err = store.SetOnboarding(ctx, types.OnboardingRecord{UserID: userID})
	require.NoError(t, err)

	require.NoError(t, store.ClearOnboarding(ctx, userID))
	gone, err := store.GetOnboarding(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, gone)

	// Clearing an absent session is a no-op.
	require.NoError(t, store.ClearOnboarding(ctx, userID))

	_, err = store.GetOnboarding(ctx, uuid.Nil)
	require.ErrorIs(t, err, types.ErrUserIDRequired)
	_, err = store.SetOnboarding(ctx, types.OnboardingRecord{})
	require.ErrorIs(t, err, types.ErrUserIDRequired)
	require.ErrorIs(t, store.ClearOnboarding(ctx, uuid.Nil), types.ErrUserIDRequired)
}

func TestStore_CacheWrapsRepository(t *testing.T) {
	db := newTestOnboardingDB(t)
	applyDDL(t, db, onboardingDDL)

	base := newBaseOnboardingRepository(db)
	store, err := NewStore(StoreConfig{Repository: base}, WithCache(true))
	require.NoError(t, err)

	_, ok := store.recordStore.(*repositorycache.CachedRepository[*Record])
	require.True(t, ok)
}

func TestStore_CacheDoesNotDoubleWrap(t *testing.T) {
	db := newTestOnboardingDB(t)
	applyDDL(t, db, onboardingDDL)

	base := newBaseOnboardingRepository(db)
	cacheService, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)
	cached := repositorycache.New(base, cacheService, cache.NewDefaultKeySerializer())

	store, err := NewStore(StoreConfig{Repository: cached}, WithCache(true))
	require.NoError(t, err)

	stored, ok := store.recordStore.(*repositorycache.CachedRepository[*Record])
	require.True(t, ok)
	require.Same(t, cached, stored)
}

func TestStore_CachedReadsStayCoherent(t *testing.T) {
	ctx := context.Background()
	db := newTestOnboardingDB(t)
	applyDDL(t, db, onboardingDDL)
	store, err := NewStore(StoreConfig{DB: db}, WithCache(true))
	require.NoError(t, err)

	userID := uuid.New()
	_, err = store.SetOnboarding(ctx, types.OnboardingRecord{
		UserID:  userID,
		Payload: map[string]any{FieldDisplayName: "Before"},
	})
	require.NoError(t, err)

	got, err := store.GetOnboarding(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "Before", got.Payload[FieldDisplayName])

	// Writes invalidate, so reads after an upsert see the new payload.
	_, err = store.SetOnboarding(ctx, types.OnboardingRecord{
		UserID:  userID,
		Payload: map[string]any{FieldDisplayName: "After"},
	})
	require.NoError(t, err)

	got, err = store.GetOnboarding(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "After", got.Payload[FieldDisplayName])
}

func newBaseOnboardingRepository(db *bun.DB) repository.Repository[*Record] {
	return repository.NewRepository(db, repository.ModelHandlers[*Record]{
		NewRecord: func() *Record { return &Record{} },
		GetID: func(rec *Record) uuid.UUID {
			if rec == nil {
				return uuid.Nil
			}
			return rec.UserID
		},
		SetID: func(rec *Record, id uuid.UUID) {
			if rec != nil {
				rec.UserID = id
			}
		},
	})
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestOnboardingDB(t *testing.T) *bun.DB {
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
