package pgx

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/session"
)

// Querier is satisfied by *pgxpool.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// Session reads through q with the context it was opened with. Wrap a
// pgx.Tx to read inside a transaction the caller controls.
type Session struct {
	ctx context.Context
	q   Querier
}

func NewSession(ctx context.Context, q Querier) *Session {
	return &Session{ctx: ctx, q: q}
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Connection() session.DbConnection {
	return &connection{ctx: s.ctx, q: s.q}
}

type connection struct {
	ctx context.Context
	q   Querier
}

func (c *connection) Query(query string, args ...any) (session.Rows, error) {
	rows, err := c.q.Query(c.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &rowsAdapter{rows: rows}, nil
}

func (c *connection) QueryRow(query string, args ...any) session.Row {
	return c.q.QueryRow(c.ctx, query, args...)
}

// rowsAdapter gives pgx.Rows the database/sql shaped Close() error.
type rowsAdapter struct {
	rows pgx.Rows
}

func (r *rowsAdapter) Close() error {
	r.rows.Close()
	return r.rows.Err()
}

func (r *rowsAdapter) Err() error {
	return r.rows.Err()
}

func (r *rowsAdapter) Next() bool {
	return r.rows.Next()
}

func (r *rowsAdapter) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}
