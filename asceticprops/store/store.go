// Package store runs compiled tree queries against the object table.
package store

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/facet"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/session"
)

type Compiler interface {
	Compile(ctx context.Context, tq *query.TreeQueryContext) (*facet.Plan, []any, error)
	CompileCount(ctx context.Context, tq *query.TreeQueryContext) (*facet.Plan, []any, error)
}

// ObjectRow is one row of the object table, in facet.ObjectColumns order.
type ObjectRow struct {
	ID       int64
	ParentID option.Option[int64]
	SchemeID int64
	Name     option.Option[string]
	Hash     uuid.UUID
}

type Option func(*Store)

func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

type Store struct {
	compiler Compiler
	logger   log.Logger
}

func NewStore(compiler Compiler, opts ...Option) *Store {
	s := &Store{compiler: compiler, logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns the objects matching tq in plan order.
// It fails with query.ErrDepthLimitExceeded rather than return rows a
// recursion limit cut short.
func (st *Store) Find(s session.DbSession, tq *query.TreeQueryContext) ([]ObjectRow, error) {
	plan, args, err := st.compiler.Compile(s.Context(), tq)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		return nil, nil
	}
	conn := s.Connection()
	if err := st.checkDepth(conn, plan, tq); err != nil {
		return nil, err
	}
	rows, err := conn.Query(plan.SQL(), args...)
	if err != nil {
		level.Error(st.logger).Log("msg", "find failed", "key", plan.Key(), "err", err)
		return nil, errors.Wrap(err, "find objects")
	}
	var result []ObjectRow
	for rows.Next() {
		var (
			r        ObjectRow
			parentID *int64
			name     *string
		)
		if err := rows.Scan(&r.ID, &parentID, &r.SchemeID, &name, &r.Hash); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan object")
		}
		r.ParentID = option.FromPtr(parentID)
		r.Name = option.FromPtr(name)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "find objects")
	}
	rows.Close()
	return result, nil
}

// FindIDs is Find reduced to object ids.
func (st *Store) FindIDs(s session.DbSession, tq *query.TreeQueryContext) ([]int64, error) {
	rows, err := st.Find(s, tq)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// Count returns how many objects match tq, ignoring ordering and paging.
func (st *Store) Count(s session.DbSession, tq *query.TreeQueryContext) (int64, error) {
	plan, args, err := st.compiler.CompileCount(s.Context(), tq)
	if err != nil {
		return 0, err
	}
	if plan.Empty() {
		return 0, nil
	}
	conn := s.Connection()
	if err := st.checkDepth(conn, plan, tq.CountQuery()); err != nil {
		return 0, err
	}
	var n int64
	if err := conn.QueryRow("SELECT count(*) FROM ("+plan.SQL()+") AS q", args...).Scan(&n); err != nil {
		level.Error(st.logger).Log("msg", "count failed", "key", plan.Key(), "err", err)
		return 0, errors.Wrap(err, "count objects")
	}
	return n, nil
}

func (st *Store) checkDepth(conn session.DbConnection, plan *facet.Plan, tq *query.TreeQueryContext) error {
	if plan.DepthCheck() == "" {
		return nil
	}
	args, err := plan.BindDepthCheck(tq)
	if err != nil {
		return err
	}
	var exceeded bool
	if err := conn.QueryRow(plan.DepthCheck(), args...).Scan(&exceeded); err != nil {
		level.Error(st.logger).Log("msg", "depth check failed", "key", plan.Key(), "err", err)
		return errors.Wrap(err, "check recursion depth")
	}
	if exceeded {
		limit := tq.MaxRecursionDepth.UnwrapOr(0)
		level.Warn(st.logger).Log("msg", "recursion limit reached", "key", plan.Key(), "limit", limit)
		return errors.Wrapf(query.ErrDepthLimitExceeded, "hierarchy goes deeper than %d levels", limit)
	}
	return nil
}
