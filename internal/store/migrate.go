package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/prscore/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationsDir returns the embedded directory holding the backend's dialect.
func migrationsDir(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "migrations/sqlite", nil
	case schema.MySQLBackend:
		return "migrations/mysql", nil
	case schema.PostgreSQLBackend:
		return "migrations/postgres", nil
	default:
		return "", fmt.Errorf("migrations are not supported for backend %s", backend)
	}
}

// newMigrator wraps an open database in a migrate instance. Closing the returned
// instance closes db as well.
func newMigrator(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, error) {
	var driver database.Driver
	var err error
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case schema.MySQLBackend:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	dir, err := migrationsDir(backend)
	if err != nil {
		return nil, err
	}
	sourceDriver, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "prscore", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// applyMigrations brings the store database to the latest schema. SQLite reuses
// the open handle so that in-memory databases see the schema; other backends
// migrate over a dedicated connection that is closed afterwards.
func applyMigrations(db *sql.DB, backend schema.DatabaseBackend, connStr string) error {
	migrationDB := db
	if backend != schema.SQLiteBackend {
		var err error
		migrationDB, err = openDB(backend, connStr, "")
		if err != nil {
			return err
		}
	}

	m, err := newMigrator(migrationDB, backend)
	if err != nil {
		if migrationDB != db {
			_ = migrationDB.Close()
		}
		return err
	}
	if migrationDB != db {
		defer func() { _, _ = m.Close() }()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate to latest version: %w", err)
	}
	return nil
}

// schemaVersion reads the applied migration version, or 0 when none.
func schemaVersion(ctx context.Context, q queryer) (uint, error) {
	var version int64
	var dirty bool
	err := q.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return uint(version), nil
}

// MigrateStore runs database migrations for the pipeline store.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
// It returns the version before and after the run.
func MigrateStore(backend schema.DatabaseBackend, connStr string, targetVersion int) (from, to uint, err error) {
	db, err := openDB(backend, connStr, resolveSQLitePath(connStr))
	if err != nil {
		return 0, 0, err
	}

	m, err := newMigrator(db, backend)
	if err != nil {
		_ = db.Close()
		return 0, 0, err
	}
	defer func() { _, _ = m.Close() }()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, 0, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return currentVersion, currentVersion, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return currentVersion, currentVersion, fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
	}

	newVersion, _, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return currentVersion, currentVersion, fmt.Errorf("failed to read migration version: %w", verr)
	}
	return currentVersion, newVersion, nil
}
