package audit

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestRepository_LogAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestAuditDB(t)
	applyAuditDDL(t, db)

	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	event := types.AuditRecord{
		UserID:     uuid.New(),
		ActorID:    uuid.New(),
		Verb:       "story.publish",
		ObjectType: "story",
		ObjectID:   "abc",
		Channel:    "stories",
		Data: map[string]any{
			"from": "draft",
			"to":   "published",
		},
	}
	require.NoError(t, store.Log(ctx, event))

	page, err := store.ListAudit(ctx, types.AuditFilter{
		Verbs:      []string{"story.publish"},
		Pagination: types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "story.publish", page.Records[0].Verb)
	require.Equal(t, "published", page.Records[0].Data["to"])
}

func TestRepository_Stats(t *testing.T) {
	ctx := context.Background()
	db := newTestAuditDB(t)
	applyAuditDDL(t, db)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Log(ctx, types.AuditRecord{
			Verb:       "activity.import",
			ObjectType: "activity",
			Data:       map[string]any{"index": i},
		}))
	}
	require.NoError(t, store.Log(ctx, types.AuditRecord{
		Verb: "cluster.generate",
	}))

	stats, err := store.AuditStats(ctx, types.AuditStatsFilter{})
	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 3, stats.ByVerb["activity.import"])
	require.Equal(t, 1, stats.ByVerb["cluster.generate"])
}

func TestRepository_ChannelFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestAuditDB(t)
	applyAuditDDL(t, db)
	store, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)

	channels := []string{"stories", "ingest", "wallet"}
	for _, channel := range channels {
		require.NoError(t, store.Log(ctx, types.AuditRecord{
			Verb:    "audit." + channel,
			Channel: channel,
		}))
	}

	page, err := store.ListAudit(ctx, types.AuditFilter{
		Channels:        []string{"stories", "ingest"},
		ChannelDenylist: []string{"ingest"},
		Pagination:      types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "stories", page.Records[0].Channel)

	page, err = store.ListAudit(ctx, types.AuditFilter{
		Channel:         "wallet",
		ChannelDenylist: []string{"wallet"},
		Pagination:      types.Pagination{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, page.Records, 0)
}

func newTestAuditDB(t *testing.T) *bun.DB {
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

func applyAuditDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/00004_audit_log.up.sql")
	require.NoError(t, err)
	for _, stmt := range splitStatements(string(content)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
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
