package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/tierd/internal/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// MigratorConfig is the configuration of the schema migrator.
type MigratorConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *MigratorConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "sqlite.Migrator"})

	return nil
}

// Migrator applies the embedded tierd schema (tasks, packages, promotion
// requests, OS releases and the move journal) on a SQLite database.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator returns a new migrator.
func NewMigrator(cfg MigratorConfig) (*Migrator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Migrator{db: cfg.DB, logger: cfg.Logger}, nil
}

// Up migrates the schema to the latest version and returns it. A dirty
// schema (a previous migration failed halfway) is an error.
func (m *Migrator) Up(ctx context.Context) (uint, error) {
	var version uint
	err := m.with(func(inst *migrate.Migrate) error {
		from, _, err := schemaVersion(inst)
		if err != nil {
			return err
		}

		err = inst.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("could not run migrations: %w", err)
		}

		version, _, err = schemaVersion(inst)
		if err != nil {
			return err
		}
		if version != from {
			m.logger.Infof("Database schema migrated from version %d to %d", from, version)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return version, nil
}

// Version returns the current schema version, 0 on an empty database.
func (m *Migrator) Version(ctx context.Context) (uint, error) {
	var version uint
	err := m.with(func(inst *migrate.Migrate) error {
		v, dirty, err := schemaVersion(inst)
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty", v)
		}
		version = v
		return nil
	})
	if err != nil {
		return 0, err
	}

	return version, nil
}

// Down reverts every migration.
func (m *Migrator) Down(ctx context.Context) error {
	return m.with(func(inst *migrate.Migrate) error {
		err := inst.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("could not revert migrations: %w", err)
		}
		m.logger.Warningf("Database schema reverted")
		return nil
	})
}

func schemaVersion(inst *migrate.Migrate) (uint, bool, error) {
	v, dirty, err := inst.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not get schema version: %w", err)
	}

	return v, dirty, nil
}

// with runs fn on a migrate instance backed by the embedded migrations. The
// instance is not closed, closing it would close the shared database.
func (m *Migrator) with(fn func(inst *migrate.Migrate) error) error {
	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("could not load embedded migrations: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			m.logger.Warningf("Could not close migrations source: %s", err)
		}
	}()

	inst, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	return fn(inst)
}
