// Package bootstrap opens the backing stores shared by the API server and ticketctl.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/config"
	"github.com/spec-kit/atendimento-service/internal/persistence"
	"github.com/spec-kit/atendimento-service/internal/repository"
)

// StoreHandle is an opened entity store plus the raw handle migrations run on.
type StoreHandle struct {
	Store   repository.Store
	DB      *sql.DB
	Dialect persistence.Dialect
	Pinger  interface{ Ping(ctx context.Context) error }

	closers []func()
}

// Close releases every handle in reverse open order.
func (h *StoreHandle) Close() {
	if h == nil {
		return
	}
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}

// OpenStore connects the driver selected by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*StoreHandle, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		lite, err := persistence.NewSQLite(ctx, cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &StoreHandle{
			Store:   repository.NewSQLStore(lite.DB),
			DB:      lite.DB,
			Dialect: persistence.DialectSQLite,
			Pinger:  lite,
			closers: []func(){lite.Close},
		}, nil
	case "postgres":
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if pg.PoolHandle() == nil {
			return nil, errors.New("POSTGRES_DSN is required for the postgres store")
		}
		db := stdlib.OpenDBFromPool(pg.PoolHandle())
		return &StoreHandle{
			Store:   repository.NewPostgresStore(pg.PoolHandle()),
			DB:      db,
			Dialect: persistence.DialectPostgres,
			Pinger:  pg,
			closers: []func(){pg.Close, func() { _ = db.Close() }},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
