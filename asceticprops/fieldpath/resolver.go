package fieldpath

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/option"
	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
)

type cacheKey struct {
	schemeID int64
	path     string
}

// Resolver resolves paths against the current structures of a scheme and
// remembers every answer, including absences, until ClearCache.
type Resolver struct {
	provider   schema.Provider
	mu         sync.RWMutex
	cache      map[cacheKey]option.Option[FieldInfo]
	generation uint64
}

func NewResolver(provider schema.Provider) *Resolver {
	return &Resolver{
		provider: provider,
		cache:    make(map[cacheKey]option.Option[FieldInfo]),
	}
}

// Resolve returns Nothing when path names no structure of the scheme.
// Errors come from the provider or the context only.
func (r *Resolver) Resolve(ctx context.Context, schemeID int64, path string) (option.Option[FieldInfo], error) {
	if cached, ok := r.cached(schemeID, path); ok {
		return cached, nil
	}
	resolved, err := r.ResolveMany(ctx, schemeID, []string{path})
	if err != nil {
		return option.Nothing[FieldInfo](), err
	}
	if info, ok := resolved[path]; ok {
		return option.Some(info), nil
	}
	return option.Nothing[FieldInfo](), nil
}

// ResolveMany fetches the scheme at most once for all uncached paths.
// Unresolved paths are omitted from the result.
func (r *Resolver) ResolveMany(ctx context.Context, schemeID int64, paths []string) (map[string]FieldInfo, error) {
	result := make(map[string]FieldInfo, len(paths))
	var missing []string
	r.mu.RLock()
	generation := r.generation
	for _, path := range paths {
		cached, ok := r.cache[cacheKey{schemeID, path}]
		if !ok {
			missing = append(missing, path)
			continue
		}
		if info, found := cached.Get(); found {
			result[path] = info
		}
	}
	r.mu.RUnlock()

	if len(missing) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := r.provider.Schema(ctx, schemeID)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load scheme %d", schemeID)
	}

	resolved := make(map[cacheKey]option.Option[FieldInfo], len(missing))
	for _, path := range missing {
		info, ok := Lookup(s, path)
		if ok {
			resolved[cacheKey{schemeID, path}] = option.Some(info)
			result[path] = info
		} else {
			resolved[cacheKey{schemeID, path}] = option.Nothing[FieldInfo]()
		}
	}

	// A ClearCache during the fetch means s may predate the change.
	r.mu.Lock()
	if r.generation == generation {
		for key, value := range resolved {
			r.cache[key] = value
		}
	}
	r.mu.Unlock()
	return result, nil
}

// ClearCache forgets every resolution. Call it after a scheme changes.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[cacheKey]option.Option[FieldInfo])
	r.generation++
	r.mu.Unlock()
}

func (r *Resolver) cached(schemeID int64, path string) (option.Option[FieldInfo], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.cache[cacheKey{schemeID, path}]
	return value, ok
}
