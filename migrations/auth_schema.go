package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AuthSchemaCheck names a table and the columns it must expose.
type AuthSchemaCheck struct {
	Table   string
	Columns []string
}

// DefaultAuthSchemaChecks lists the auth-owned tables and columns the
// library reads directly. The auth provider owns these tables, so startup
// validates them instead of migrating them.
var DefaultAuthSchemaChecks = []AuthSchemaCheck{
	{
		Table: "users",
		Columns: []string{
			"id",
			"email",
			"username",
			"status",
		},
	},
	{
		Table: "password_reset",
		Columns: []string{
			"id",
			"user_id",
			"email",
			"status",
			"jti",
			"issued_at",
			"expires_at",
			"used_at",
			"scope_tenant_id",
			"scope_workspace_id",
		},
	},
}

// AuthSchemaOption adjusts how the schema checks run.
type AuthSchemaOption func(*authSchemaConfig)

type authSchemaConfig struct {
	checks []AuthSchemaCheck
}

// WithAuthSchemaChecks swaps in a caller-defined check list.
func WithAuthSchemaChecks(checks []AuthSchemaCheck) AuthSchemaOption {
	return func(cfg *authSchemaConfig) {
		cfg.checks = checks
	}
}

// AuthSchemaValidationError reports every missing table and column at once
// so operators fix the schema in a single pass.
type AuthSchemaValidationError struct {
	MissingTables  []string
	MissingColumns map[string][]string
}

func (e *AuthSchemaValidationError) Error() string {
	if e == nil {
		return ""
	}
	var parts []string
	if len(e.MissingTables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(e.MissingTables, ", "))
	}
	if summary := e.columnSummary(); summary != "" {
		parts = append(parts, "missing columns: "+summary)
	}
	if len(parts) == 0 {
		return "auth schema validation failed"
	}
	return "auth schema validation failed: " + strings.Join(parts, "; ")
}

func (e *AuthSchemaValidationError) columnSummary() string {
	if len(e.MissingColumns) == 0 {
		return ""
	}
	tables := make([]string, 0, len(e.MissingColumns))
	for table := range e.MissingColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	entries := make([]string, 0, len(tables))
	for _, table := range tables {
		missing := e.MissingColumns[table]
		sort.Strings(missing)
		entries = append(entries, fmt.Sprintf("%s(%s)", table, strings.Join(missing, ", ")))
	}
	return strings.Join(entries, "; ")
}

// ValidateAuthSchema confirms the auth provider's tables carry every column
// this library queries. It never mutates the schema.
func ValidateAuthSchema(ctx context.Context, db *sql.DB, dialect string, opts ...AuthSchemaOption) error {
	if db == nil {
		return errors.New("migrations: db required")
	}
	normalized, err := normalizeDialect(dialect)
	if err != nil {
		return err
	}

	cfg := authSchemaConfig{checks: DefaultAuthSchemaChecks}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if len(cfg.checks) == 0 {
		return nil
	}

	var missingTables []string
	missingColumns := make(map[string][]string)
	for _, check := range cfg.checks {
		if strings.TrimSpace(check.Table) == "" {
			continue
		}
		cols, err := tableColumns(ctx, db, normalized, check.Table)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			missingTables = append(missingTables, check.Table)
			continue
		}
		for _, col := range check.Columns {
			name := strings.ToLower(strings.TrimSpace(col))
			if name != "" && !cols[name] {
				missingColumns[check.Table] = append(missingColumns[check.Table], name)
			}
		}
	}

	if len(missingTables) == 0 && len(missingColumns) == 0 {
		return nil
	}
	sort.Strings(missingTables)
	return &AuthSchemaValidationError{
		MissingTables:  missingTables,
		MissingColumns: missingColumns,
	}
}

func normalizeDialect(dialect string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
}

func tableColumns(ctx context.Context, db *sql.DB, dialect, table string) (map[string]bool, error) {
	switch dialect {
	case "postgres":
		return postgresColumns(ctx, db, table)
	case "sqlite":
		return sqliteColumns(ctx, db, table)
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
}

func postgresColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			defaultV   sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultV, &primaryKey); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}
