package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the repositories over one connection or transaction.
type Store interface {
	Tickets() TicketRepository
	Messages() TicketMessageRepository
	Agents() AgentRepository
	Queues() QueueRepository
	// WithinTx runs fn against a transactional Store. fn's error rolls everything back.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	q       querier
	beginner txBeginner
}

// NewPostgresStore builds a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	conn := pgxPool{pgxConn: pgxConn{q: pool}, pool: pool}
	return &sqlStore{q: conn, beginner: conn}
}

// NewSQLStore builds a Store backed by database/sql. Used for sqlite.
func NewSQLStore(db *sql.DB) Store {
	conn := sqlDB{sqlConn: sqlConn{q: db}, db: db}
	return &sqlStore{q: conn, beginner: conn}
}

func (s *sqlStore) Tickets() TicketRepository { return &ticketRepository{db: s.q} }
func (s *sqlStore) Messages() TicketMessageRepository { return &ticketMessageRepository{db: s.q} }
func (s *sqlStore) Agents() AgentRepository { return &agentRepository{db: s.q} }
func (s *sqlStore) Queues() QueueRepository { return &queueRepository{db: s.q} }

func (s *sqlStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.beginner == nil {
		return fn(s)
	}
	tx, err := s.beginner.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&sqlStore{q: tx}); err != nil {
		_ = tx.rollback(ctx)
		return err
	}
	if err := tx.commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// mapWriteErr normalizes unique violations from either backend.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", ErrDuplicate, err.Error())
	}
	return err
}
