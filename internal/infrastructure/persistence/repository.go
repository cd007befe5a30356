package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/domain/session"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/persistence/postgres"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/persistence/sqlite"
	"github.com/ruziba3vich/toolshed/migrations"
)

// Repositories holds all repository implementations.
type Repositories struct {
	User    user.Repository
	Session session.Repository

	driver string
	health func(ctx context.Context) error
	sqlDB  *sql.DB
	close  func()
}

// Open connects to the configured store and builds its repositories.
func Open(cfg *config.DatabaseConfig) (*Repositories, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			User:    postgres.NewUserRepository(db.Pool),
			Session: postgres.NewSessionRepository(db.Pool),
			driver:  cfg.Driver,
			health:  db.Health,
			sqlDB:   db.SQLDB(),
			close:   db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			User:    sqlite.NewUserRepository(db),
			Session: sqlite.NewSessionRepository(db),
			driver:  cfg.Driver,
			health:  db.Health,
			sqlDB:   db.SQL,
			close:   func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Driver returns the backend name.
func (r *Repositories) Driver() string {
	return r.driver
}

// Health checks the store is reachable.
func (r *Repositories) Health(ctx context.Context) error {
	return r.health(ctx)
}

// Migrate applies pending schema migrations and returns how many ran.
func (r *Repositories) Migrate(ctx context.Context) (int, error) {
	return migrations.Up(ctx, r.sqlDB, r.driver)
}

// MigrateDown rolls back the latest migration.
func (r *Repositories) MigrateDown(ctx context.Context) error {
	return migrations.Down(ctx, r.sqlDB, r.driver)
}

// SchemaVersion returns the applied migration version.
func (r *Repositories) SchemaVersion(ctx context.Context) (int64, error) {
	return migrations.Version(ctx, r.sqlDB, r.driver)
}

// Close releases the underlying connections.
func (r *Repositories) Close() {
	r.close()
}
