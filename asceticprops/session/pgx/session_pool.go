package pgx

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/session"
)

type SessionPool struct {
	pool *pgxpool.Pool
}

func NewSessionPool(pool *pgxpool.Pool) *SessionPool {
	return &SessionPool{pool: pool}
}

// Connect opens a pool from a postgres:// connection string.
func Connect(ctx context.Context, connString string) (*SessionPool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return NewSessionPool(pool), nil
}

func (p *SessionPool) Session(ctx context.Context, callback session.SessionPoolCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return callback(NewSession(ctx, conn))
}

// Pool exposes the underlying pgx pool, e.g. to run migrations.
func (p *SessionPool) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *SessionPool) Close() {
	p.pool.Close()
}
