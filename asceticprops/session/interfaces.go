// Package session is the read-only database surface used by the store and
// the schema provider.
package session

import (
	"context"
)

type Session interface {
	Context() context.Context
}

type DbSession interface {
	Session
	Connection() DbConnection
}

type SessionPoolCallback func(DbSession) error

type SessionPool interface {
	Session(context.Context, SessionPoolCallback) error
}

type Rows interface {
	Close() error
	Err() error
	Next() bool
	Scan(dest ...any) error
}

type Row interface {
	Scan(dest ...any) error
}

type DbConnection interface {
	Query(query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
}
