// Package postgres wraps pgxpool with the squirrel builder preconfigured
// for Dollar placeholders, and exposes the executor seam repositories use
// to run either on the pool or inside a transaction.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	_defaultMaxPoolSize  = 10
	_defaultConnAttempts = 5
	_defaultConnDelay    = time.Second
)

// QueryExecuter is satisfied by *pgxpool.Pool and pgx.Tx, letting a
// repository method run standalone or inside a caller's transaction.
type QueryExecuter interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	Pool    *pgxpool.Pool
	Builder squirrel.StatementBuilderType

	maxPoolSize  int
	connAttempts int
	connDelay    time.Duration
}

type Option func(*Postgres)

func MaxPoolSize(size int) Option {
	return func(p *Postgres) {
		if size > 0 {
			p.maxPoolSize = size
		}
	}
}

func ConnAttempts(attempts int) Option {
	return func(p *Postgres) {
		if attempts > 0 {
			p.connAttempts = attempts
		}
	}
}

func ConnDelay(delay time.Duration) Option {
	return func(p *Postgres) {
		if delay > 0 {
			p.connDelay = delay
		}
	}
}

func New(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	const op = "postgres.New"

	pg := &Postgres{
		Builder:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		maxPoolSize:  _defaultMaxPoolSize,
		connAttempts: _defaultConnAttempts,
		connDelay:    _defaultConnDelay,
	}
	for _, opt := range opts {
		opt(pg)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: parse config: %w", op, err)
	}
	poolCfg.MaxConns = int32(pg.maxPoolSize)

	var lastErr error
	for attempt := 0; attempt < pg.connAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(pg.connDelay):
			}
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			lastErr = err
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = err
			continue
		}
		pg.Pool = pool
		return pg, nil
	}

	return nil, fmt.Errorf("%s: connect after %d attempts: %w", op, pg.connAttempts, lastErr)
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// InTx runs fn inside a transaction, committing on nil and rolling back
// otherwise.
func (p *Postgres) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const op = "postgres.InTx"

	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
