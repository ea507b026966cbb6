package persistence

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationStatus is the schema version after a migration run
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Applied bool // false when the schema was already current
}

func migrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	return src, nil
}

// MigrationVersions lists the embedded migration versions in order.
func MigrationVersions() ([]uint, error) {
	src, err := migrationSource()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	v, err := src.First()
	if err != nil {
		return nil, fmt.Errorf("failed to read first migration: %w", err)
	}
	versions := []uint{v}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return versions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read migration after %d: %w", v, err)
		}
		versions = append(versions, next)
		v = next
	}
}

// Migrate applies all pending migrations
func (p *PostgresDB) Migrate(ctx context.Context) (MigrationStatus, error) {
	m, err := p.migrator()
	if err != nil {
		return MigrationStatus{}, err
	}

	p.log.Info().Msg("Running database migrations")

	applied := true
	done := make(chan error, 1)
	go func() { done <- m.Up() }()
	select {
	case <-ctx.Done():
		m.GracefulStop <- true
		<-done
		return MigrationStatus{}, ctx.Err()
	case err = <-done:
	}
	if errors.Is(err, migrate.ErrNoChange) {
		applied = false
	} else if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, fmt.Errorf("failed to get migration version: %w", err)
	}

	p.log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Bool("applied", applied).
		Msg("Migrations completed")

	return MigrationStatus{Version: version, Dirty: dirty, Applied: applied}, nil
}

// MigrateDown rolls back the last migration
func (p *PostgresDB) MigrateDown() error {
	m, err := p.migrator()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	p.log.Info().Msg("Migration rolled back")
	return nil
}

func (p *PostgresDB) migrator() (*migrate.Migrate, error) {
	src, err := migrationSource()
	if err != nil {
		return nil, err
	}
	driver, err := postgres.WithInstance(p.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
