package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations repositories need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same repository code runs inside
// and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStore exposes the repositories that participate in a lifecycle
// transaction: the ticket row and its audit trail commit together.
type TxStore interface {
	Tickets() TicketRepository
	History() HistoryRepository
}

// TxManager runs a function within a single database transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(TxStore) error) error
}

type pgTxStore struct {
	tickets TicketRepository
	history HistoryRepository
}

func (s *pgTxStore) Tickets() TicketRepository { return s.tickets }
func (s *pgTxStore) History() HistoryRepository { return s.history }

type pgTxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager builds a pgx-backed TxManager.
func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &pgTxManager{pool: pool}
}

func (m *pgTxManager) WithinTx(ctx context.Context, fn func(TxStore) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}

	store := &pgTxStore{
		tickets: NewTicketRepository(tx),
		history: NewHistoryRepository(tx),
	}
	if err := fn(store); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
