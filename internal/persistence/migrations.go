package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect names the SQL flavor a migration set targets.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) gooseDialect() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return "postgres"
}

func (d Dialect) dir() string {
	return "migrations/" + string(d)
}

// RunMigrations applies the embedded goose migrations for the pgx pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	return MigrateUp(ctx, db, DialectPostgres, logger)
}

// MigrateUp applies pending migrations of dialect on db.
func MigrateUp(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	if err := prepareGoose(dialect); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	if err := goose.UpContext(ctx, db, dialect.dir()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	final, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Info("migrations applied",
		zap.String("dialect", string(dialect)),
		zap.Int64("from_version", current),
		zap.Int64("to_version", final))
	return nil
}

// MigrateDown rolls back the most recent migration of dialect on db.
func MigrateDown(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, dialect.dir()); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// MigrationStatus prints the applied state of each migration through goose's logger.
func MigrationStatus(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if err := prepareGoose(dialect); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, dialect.dir())
}

func prepareGoose(dialect Dialect) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	return nil
}
