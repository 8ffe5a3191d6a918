package migrations_test

import (
	"context"
	"database/sql"
	"io/fs"
	"path"
	"sort"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inchronicle/go-stories/migrations"
)

func TestMigrationsApplyToSQLite(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	ctx := context.Background()
	for _, fsys := range migrations.Filesystems() {
		if err := applyFilesystem(ctx, db, fsys); err != nil {
			t.Fatalf("failed to apply migrations: %v", err)
		}
	}

	for _, table := range []string{"users", "tool_activity", "activity_clusters", "career_stories", "wallet_transactions", "user_onboarding"} {
		var name string
		if err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name); err != nil {
			t.Fatalf("failed to verify %s table: %v", table, err)
		}
		if name != table {
			t.Fatalf("expected %s table, got %q", table, name)
		}
	}
}

// applyFilesystem runs the up migrations rooted at the filesystem, preferring
// the sqlite/ override when one exists for the same file name.
func applyFilesystem(ctx context.Context, db *sql.DB, filesystem fs.FS) error {
	entries, err := fs.Glob(filesystem, "*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, entry := range entries {
		source := entry
		override := path.Join("sqlite", entry)
		if _, statErr := fs.Stat(filesystem, override); statErr == nil {
			source = override
		}
		sqlBytes, err := fs.ReadFile(filesystem, source)
		if err != nil {
			return err
		}
		statements := splitStatements(string(sqlBytes))
		for _, stmt := range statements {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitStatements breaks a migration script on semicolons. Line comments are
// dropped first so a `--` annotation containing a semicolon cannot shear a
// statement in two.
func splitStatements(script string) []string {
	var stripped strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		stripped.WriteString(line)
		stripped.WriteString("\n")
	}

	parts := strings.Split(stripped.String(), ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func TestSplitStatementsKeepsCommentedSemicolonsWhole(t *testing.T) {
	t.Parallel()

	script := `CREATE TABLE sample (
    id TEXT PRIMARY KEY,
    -- status moves issued; used; expired over the row lifetime
    status TEXT NOT NULL DEFAULT 'issued'
);
CREATE INDEX idx_sample_status ON sample (status);
`
	statements := splitStatements(script)
	if len(statements) != 2 {
		t.Fatalf("statement count = %d, want 2: %q", len(statements), statements)
	}
	if !strings.Contains(statements[0], "DEFAULT 'issued'") {
		t.Fatalf("first statement lost its tail: %q", statements[0])
	}
	if !strings.HasPrefix(statements[1], "CREATE INDEX") {
		t.Fatalf("second statement = %q, want the index DDL", statements[1])
	}
}
