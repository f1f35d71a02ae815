package query

import (
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
)

// TreeQueryContext is a QueryContext over a self-referential hierarchy.
type TreeQueryContext struct {
	QueryContext
	// RootObjectID restricts results to the subtree under this object.
	RootObjectID option.Option[int64]
	TreeFilters  []TreeFilter
}

func NewTreeQueryContext(schemeID int64) *TreeQueryContext {
	return &TreeQueryContext{QueryContext: QueryContext{SchemeID: schemeID}}
}

// Clone reproduces every inherited field and owns a fresh tree filter list.
func (tq *TreeQueryContext) Clone() *TreeQueryContext {
	base := tq.QueryContext.Clone()
	c := &TreeQueryContext{
		QueryContext: QueryContext{
			SchemeID:              base.SchemeID,
			UserID:                base.UserID,
			CheckPermissions:      base.CheckPermissions,
			ParentIDs:             base.ParentIDs,
			MaxDepth:              base.MaxDepth,
			Filter:                base.Filter,
			Orderings:             base.Orderings,
			Limit:                 base.Limit,
			Offset:                base.Offset,
			Distinct:              base.Distinct,
			UseRedbDistinct:       base.UseRedbDistinct,
			DistinctBy:            base.DistinctBy,
			MaxRecursionDepth:     base.MaxRecursionDepth,
			IsEmpty:               base.IsEmpty,
			LazyLoadProps:         base.LazyLoadProps,
			ProjectedStructureIDs: base.ProjectedStructureIDs,
			ProjectedPaths:        base.ProjectedPaths,
			SkipPropsLoading:      base.SkipPropsLoading,
			PropsDepth:            base.PropsDepth,
		},
		RootObjectID: tq.RootObjectID,
	}
	if tq.TreeFilters != nil {
		c.TreeFilters = make([]TreeFilter, len(tq.TreeFilters))
		copy(c.TreeFilters, tq.TreeFilters)
	}
	return c
}

func (tq *TreeQueryContext) AddTreeFilter(filters ...TreeFilter) *TreeQueryContext {
	tq.TreeFilters = append(tq.TreeFilters, filters...)
	return tq
}

func (tq *TreeQueryContext) CountQuery() *TreeQueryContext {
	c := tq.Clone()
	c.stripPaging()
	return c
}

// EffectiveDepth is the traversal bound of f: its own MaxDepth, else the
// context MaxDepth. Nothing means unbounded.
func (tq *TreeQueryContext) EffectiveDepth(f TreeFilter) option.Option[int] {
	return f.MaxDepth.Or(tq.MaxDepth)
}

// Validate checks the context and every tree filter. A per-filter MaxDepth
// may not exceed MaxRecursionDepth.
func (tq *TreeQueryContext) Validate() error {
	if err := tq.QueryContext.Validate(); err != nil {
		return err
	}
	limit, bounded := tq.MaxRecursionDepth.Get()
	for i, f := range tq.TreeFilters {
		if err := f.Validate(); err != nil {
			return errors.Wrapf(err, "tree filter %d", i)
		}
		if depth, ok := f.MaxDepth.Get(); ok && bounded && depth > limit {
			return errors.Wrapf(ErrDepthLimitExceeded, "tree filter %d: max depth %d exceeds recursion limit %d", i, depth, limit)
		}
	}
	return nil
}
