package sqlite3

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewDB opens the database with foreign keys enforced. SQLite takes one
// writer at a time, so the pool is limited to a single connection and
// transactions are carried through the context.
func NewDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open sql db: %w", err)
	}

	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping sql db: %w", err)
	}

	return db, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + "_pragma=foreign_keys(1)"
}

func getMigrateInstance(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

func MigrateUp(ctx context.Context, db *sql.DB) error {
	m, err := getMigrateInstance(db)
	if err != nil {
		return fmt.Errorf("failed to get migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migration: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get current active migration version: %w", err)
	}

	slog.InfoContext(ctx, "migration applied successfully", "version", version, "dirty", dirty)

	return nil
}

func MigrateDown(db *sql.DB) error {
	m, err := getMigrateInstance(db)
	if err != nil {
		return fmt.Errorf("failed to get migrate instance: %w", err)
	}

	err = m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migration down: %w", err)
	}

	return nil
}
