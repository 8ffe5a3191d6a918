package stories

import "embed"

// MigrationsFS holds every SQL migration, for PostgreSQL and SQLite alike.
//
// The layout is dialect-aware: data/sql/migrations/*.sql are the PostgreSQL
// files, and data/sql/migrations/sqlite/*.sql override them per dialect. The
// go-persistence-bun loader picks the right set for the connected database:
//
//	migrationsFS, _ := fs.Sub(stories.GetCoreMigrationsFS(), "data/sql/migrations")
//	client.RegisterDialectMigrations(
//	    migrationsFS,
//	    persistence.WithDialectSourceLabel("."),
//	    persistence.WithValidationTargets("postgres", "sqlite"),
//	)
//
//go:embed data/sql/migrations
var MigrationsFS embed.FS

// CoreMigrationsFS contains go-stories migrations that extend the auth users
// table (activities, clusters, stories, wallet, network, workspaces, tokens,
// onboarding, profiles). It omits auth bootstrap tables.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var CoreMigrationsFS embed.FS

// AuthBootstrapMigrationsFS carries just enough auth schema (users table,
// status, scope IDs) to run go-stories without go-auth in front.
//
//go:embed data/sql/migrations/auth
var AuthBootstrapMigrationsFS embed.FS

// GetCoreMigrationsFS exposes the core migrations for registration helpers.
func GetCoreMigrationsFS() embed.FS {
	return CoreMigrationsFS
}

// GetAuthBootstrapMigrationsFS exposes the auth bootstrap migrations.
func GetAuthBootstrapMigrationsFS() embed.FS {
	return AuthBootstrapMigrationsFS
}
