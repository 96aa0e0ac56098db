package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of the package, promotion, OS release
// and move journal repositories. Tasks are handled by TaskRepository on the same database.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository opens (and migrates) the SQLite database.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db, Logger: cfg.Logger})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	version, err := migrator.Up(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s (schema version %d)", cfg.DBPath, version)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// DB returns the underlying database, used to share it with the task repository.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func isUniqueErr(err error, table string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+table+".")
}

func isForeignKeyErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func checkAffected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not get rows affected: %w", err)
	}
	return rows > 0, nil
}

func newID() string { return ulid.Make().String() }

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }

func timeFromUnixMilli(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullUnix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}

func timePtrFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := timeFromUnix(n.Int64)
	return &t
}
