// Package query holds the request side of the props store: a query context
// with filter, ordering, pagination and projection, and its tree-aware
// extension with hierarchical filters.
package query

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

// QueryContext is one query request against a scheme. Treat it as read-only
// once it has been handed to a compiler; derive variants with Clone.
type QueryContext struct {
	SchemeID         int64
	UserID           option.Option[int64]
	CheckPermissions bool
	// ParentIDs restricts results to children of any of these objects.
	ParentIDs []int64
	MaxDepth  option.Option[int]
	Filter    spec.Visitable
	Orderings []spec.Ordering
	Limit     option.Option[int]
	Offset    option.Option[int]
	Distinct  bool
	// UseRedbDistinct makes rows distinct by the stored value hash instead
	// of by every selected column.
	UseRedbDistinct   bool
	DistinctBy        option.Option[string]
	MaxRecursionDepth option.Option[int]
	// IsEmpty short-circuits the query to an empty result.
	IsEmpty               bool
	LazyLoadProps         bool
	ProjectedStructureIDs []int64
	ProjectedPaths        []string
	SkipPropsLoading      bool
	PropsDepth            option.Option[int]
}

func NewQueryContext(schemeID int64) *QueryContext {
	return &QueryContext{SchemeID: schemeID}
}

// Clone copies the ordering list. ParentIDs and the projection sets are
// shared since they are not modified after being set.
func (q *QueryContext) Clone() *QueryContext {
	c := *q
	if q.Orderings != nil {
		c.Orderings = make([]spec.Ordering, len(q.Orderings))
		copy(c.Orderings, q.Orderings)
	}
	return &c
}

// Where AND-combines expr with the current filter.
func (q *QueryContext) Where(expr spec.Visitable) *QueryContext {
	if q.Filter == nil {
		q.Filter = expr
	} else {
		q.Filter = spec.And(q.Filter, expr)
	}
	return q
}

func (q *QueryContext) OrderBy(orderings ...spec.Ordering) *QueryContext {
	q.Orderings = append(q.Orderings, orderings...)
	return q
}

func (q *QueryContext) Take(n int) *QueryContext {
	q.Limit = option.Some(n)
	return q
}

func (q *QueryContext) Skip(n int) *QueryContext {
	q.Offset = option.Some(n)
	return q
}

// CountQuery derives the unordered, unpaged variant of q.
func (q *QueryContext) CountQuery() *QueryContext {
	c := q.Clone()
	c.stripPaging()
	return c
}

// Empty derives a variant that yields no rows without touching storage.
func (q *QueryContext) Empty() *QueryContext {
	c := q.Clone()
	c.IsEmpty = true
	return c
}

func (q *QueryContext) stripPaging() {
	q.Orderings = nil
	q.Limit = option.Nothing[int]()
	q.Offset = option.Nothing[int]()
}

func (q *QueryContext) Validate() error {
	if n, ok := q.Limit.Get(); ok && n < 0 {
		return errors.Wrapf(ErrMalformedQuery, "negative limit %d", n)
	}
	if n, ok := q.Offset.Get(); ok && n < 0 {
		return errors.Wrapf(ErrMalformedQuery, "negative offset %d", n)
	}
	if n, ok := q.MaxDepth.Get(); ok && n < 0 {
		return errors.Wrapf(ErrMalformedQuery, "negative max depth %d", n)
	}
	if n, ok := q.MaxRecursionDepth.Get(); ok && n < 1 {
		return errors.Wrapf(ErrMalformedQuery, "max recursion depth must be positive, got %d", n)
	}
	return nil
}
