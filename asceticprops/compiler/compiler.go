// Package compiler turns tree query contexts into executable plans. Plans
// are cached by the structural shape of the query and re-bound to the
// values of every later query of the same shape.
package compiler

import (
	"context"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/facet"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/fieldpath"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/plancache"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/query"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/signals"
	spec "github.com/krew-solutions/ascetic-props-go/asceticprops/specification/domain"
)

type Resolver interface {
	ResolveMany(ctx context.Context, schemeID int64, paths []string) (map[string]fieldpath.FieldInfo, error)
	ClearCache()
}

type Option func(*Compiler)

func WithLogger(logger log.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

type Compiler struct {
	resolver Resolver
	cache    *plancache.Cache[*facet.Plan]
	builder  facet.PlanBuilder
	logger   log.Logger
}

func New(resolver Resolver, cache *plancache.Cache[*facet.Plan], builder facet.PlanBuilder, opts ...Option) *Compiler {
	c := &Compiler{
		resolver: resolver,
		cache:    cache,
		builder:  builder,
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile returns the plan for tq together with the arguments bound from it.
func (c *Compiler) Compile(ctx context.Context, tq *query.TreeQueryContext) (*facet.Plan, []any, error) {
	if err := tq.Validate(); err != nil {
		return nil, nil, err
	}
	key := plancache.BuildQueryKey(tq)
	if plan, ok := c.cache.TryGet(key); ok {
		level.Debug(c.logger).Log("msg", "plan cache hit", "key", key)
		args, err := plan.Bind(tq)
		return plan, args, err
	}

	generation := c.cache.Generation()
	fields, err := c.resolve(ctx, tq)
	if err != nil {
		return nil, nil, err
	}
	plan, err := c.builder.Build(key, tq, fields)
	if err != nil {
		level.Error(c.logger).Log("msg", "plan build failed", "key", key, "err", err)
		return nil, nil, errors.Wrapf(err, "build plan for scheme %d", tq.SchemeID)
	}
	if c.cache.SetIfCurrent(key, plan, generation) {
		level.Debug(c.logger).Log("msg", "plan compiled", "key", key, "scheme", tq.SchemeID)
	} else {
		level.Debug(c.logger).Log("msg", "plan not cached, schema invalidated while compiling", "key", key)
	}

	args, err := plan.Bind(tq)
	if err != nil {
		return nil, nil, err
	}
	return plan, args, nil
}

// CompileCount compiles the count variant of tq: no ordering, no paging.
func (c *Compiler) CompileCount(ctx context.Context, tq *query.TreeQueryContext) (*facet.Plan, []any, error) {
	return c.Compile(ctx, tq.CountQuery())
}

// InvalidateSchema drops every resolved path and every plan. Call it after
// structures of any scheme were altered.
func (c *Compiler) InvalidateSchema() {
	c.resolver.ClearCache()
	c.cache.ClearAll()
	level.Info(c.logger).Log("msg", "schema caches invalidated")
}

// WatchSchemas invalidates the caches whenever changed fires. Dispose the
// result to stop watching.
func (c *Compiler) WatchSchemas(changed signals.Signal[schema.SchemaChanged]) signals.Disposable {
	return changed.Attach(func(e schema.SchemaChanged) {
		level.Debug(c.logger).Log("msg", "scheme changed", "scheme", e.SchemeID)
		c.InvalidateSchema()
	}, c)
}

func (c *Compiler) resolve(ctx context.Context, tq *query.TreeQueryContext) (facet.Fields, error) {
	required := RequiredPaths(tq)
	schemes := make([]int64, 0, len(required))
	for schemeID := range required {
		schemes = append(schemes, schemeID)
	}
	sort.Slice(schemes, func(i, j int) bool { return schemes[i] < schemes[j] })

	fields := facet.Fields{}
	for _, schemeID := range schemes {
		paths := required[schemeID]
		resolved, err := c.resolver.ResolveMany(ctx, schemeID, paths)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if _, ok := resolved[path]; !ok {
				level.Warn(c.logger).Log("msg", "unresolved path", "scheme", schemeID, "path", path)
				return nil, &UnresolvedPathError{SchemeID: schemeID, Path: path}
			}
		}
		fields.Add(schemeID, resolved)
	}
	return fields, nil
}

// RequiredPaths lists, per scheme, the field paths a plan for tq reads.
// Conditions of tree filters are read in their target scheme.
func RequiredPaths(tq *query.TreeQueryContext) map[int64][]string {
	required := make(map[int64][]string)
	seen := make(map[facet.FieldKey]struct{})
	add := func(schemeID int64, paths ...string) {
		for _, path := range paths {
			k := facet.FieldKey{SchemeID: schemeID, Path: path}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			required[schemeID] = append(required[schemeID], path)
		}
	}
	add(tq.SchemeID, spec.CollectPaths(tq.Filter)...)
	for _, o := range tq.Orderings {
		add(tq.SchemeID, o.Path())
	}
	if path, ok := tq.DistinctBy.Get(); ok {
		add(tq.SchemeID, path)
	}
	for _, f := range tq.TreeFilters {
		if cond, ok := f.Condition.(query.PredicateCondition); ok {
			add(f.TargetSchemeID.UnwrapOr(tq.SchemeID), spec.CollectPaths(cond.Predicate)...)
		}
	}
	return required
}
