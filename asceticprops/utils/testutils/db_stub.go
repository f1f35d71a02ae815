package testutils

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/session"
)

// NewDbSessionStub returns a session whose queries all yield rows and
// record the last statement seen.
func NewDbSessionStub(rows *RowsStub) *DbSessionStub {
	stub := &DbSessionStub{Rows: rows, ctx: context.Background()}
	stub.conn = &connectionStub{session: stub}
	return stub
}

type DbSessionStub struct {
	Rows         *RowsStub
	QueryErr     error
	ActualQuery  string
	ActualParams []any
	Queries      int
	ctx          context.Context
	conn         *connectionStub
}

// WithContext replaces the context handed to callers.
func (s *DbSessionStub) WithContext(ctx context.Context) *DbSessionStub {
	s.ctx = ctx
	return s
}

func (s *DbSessionStub) Context() context.Context {
	return s.ctx
}

func (s *DbSessionStub) Connection() session.DbConnection {
	return s.conn
}

// SessionPoolStub hands the same stub session to every callback.
type SessionPoolStub struct {
	Sess *DbSessionStub
}

func (p SessionPoolStub) Session(ctx context.Context, callback session.SessionPoolCallback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return callback(p.Sess)
}

type connectionStub struct {
	session *DbSessionStub
}

func (c *connectionStub) Query(query string, args ...any) (session.Rows, error) {
	c.session.ActualQuery = query
	c.session.ActualParams = args
	c.session.Queries++
	if c.session.QueryErr != nil {
		return nil, c.session.QueryErr
	}
	return c.session.Rows, nil
}

func (c *connectionStub) QueryRow(query string, args ...any) session.Row {
	c.session.ActualQuery = query
	c.session.ActualParams = args
	c.session.Queries++
	if c.session.QueryErr != nil {
		return &RowStub{err: c.session.QueryErr}
	}
	return &RowStub{rows: c.session.Rows}
}

func NewRowsStub(rows ...[]any) *RowsStub {
	return &RowsStub{
		rows:   rows,
		idx:    -1,
		Closed: false,
	}
}

type RowsStub struct {
	rows   [][]any
	idx    int
	Closed bool
}

func (r *RowsStub) Close() error {
	r.Closed = true
	return nil
}

func (r *RowsStub) Err() error {
	return nil
}

func (r *RowsStub) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *RowsStub) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.rows) {
		return errors.New("no current row")
	}
	return scanInto(r.rows[r.idx], dest)
}

type RowStub struct {
	rows *RowsStub
	err  error
}

func (r *RowStub) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.rows.Next() {
		return errors.New("no rows in result set")
	}
	return r.rows.Scan(dest...)
}

func scanInto(row []any, dest []any) error {
	for i, val := range row {
		if i >= len(dest) {
			break
		}
		switch d := dest[i].(type) {
		case *int:
			*d = int(toInt64(val))
		case *int64:
			*d = toInt64(val)
		case **int64:
			if val == nil {
				*d = nil
			} else {
				v := toInt64(val)
				*d = &v
			}
		case *string:
			*d = val.(string)
		case **string:
			if val == nil {
				*d = nil
			} else {
				v := val.(string)
				*d = &v
			}
		case *bool:
			*d = val.(bool)
		case *float64:
			*d = val.(float64)
		case *uuid.UUID:
			*d = val.(uuid.UUID)
		case *any:
			*d = val
		default:
			return errors.New("unsupported scan type")
		}
	}
	return nil
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		panic("cannot convert to int64")
	}
}
