package plancache

import (
	"container/list"
	"sync"
	"time"
)

type Option func(*settings)

type settings struct {
	now     func() time.Time
	metrics *Metrics
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry[V any] struct {
	key        string
	value      V
	created    time.Time
	lastAccess time.Time
}

// Cache maps structural keys to compiled plans. A plan is shared by every
// reader once stored and must not be mutated afterwards. Safe for concurrent
// use.
type Cache[V any] struct {
	mu     sync.Mutex
	config Config
	items  map[string]*list.Element
	order  *list.List
	stats  Stats
	// generation counts ClearAll calls.
	generation uint64
	settings
}

func New[V any](config Config, opts ...Option) *Cache[V] {
	c := &Cache[V]{
		config:   config,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		settings: settings{now: time.Now},
	}
	for _, opt := range opts {
		opt(&c.settings)
	}
	return c
}

func (c *Cache[V]) TryGet(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.miss()
		return zero, false
	}
	e := elem.Value.(*entry[V])
	now := c.now()
	if reason, expired := c.expired(e, now); expired {
		c.remove(elem, reason)
		c.miss()
		return zero, false
	}
	e.lastAccess = now
	c.order.MoveToBack(elem)
	c.stats.Hits++
	if c.metrics != nil {
		c.metrics.Hits.Inc()
	}
	return e.value, true
}

// Set stores value under key, replacing any previous plan and restarting
// both expirations.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store(key, value)
}

// Generation identifies the current contents epoch; ClearAll starts a new one.
func (c *Cache[V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation
}

// SetIfCurrent stores value like Set unless the cache was cleared since
// generation was read. It reports whether value was stored.
func (c *Cache[V]) SetIfCurrent(key string, value V, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation {
		return false
	}
	c.store(key, value)
	return true
}

func (c *Cache[V]) store(key string, value V) {
	now := c.now()
	e := &entry[V]{key: key, value: value, created: now, lastAccess: now}
	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToBack(elem)
		return
	}
	c.items[key] = c.order.PushBack(e)
	for c.config.MaxEntries > 0 && len(c.items) > c.config.MaxEntries {
		c.remove(c.order.Front(), ReasonCapacity)
	}
	c.updateGauge()
}

func (c *Cache[V]) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.generation++
	c.updateGauge()
}

// Count returns the number of live plans, dropping expired ones first.
func (c *Cache[V]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	return len(c.items)
}

func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	stats := c.stats
	stats.Entries = len(c.items)
	return stats
}

func (c *Cache[V]) sweep() {
	now := c.now()
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if reason, expired := c.expired(elem.Value.(*entry[V]), now); expired {
			c.remove(elem, reason)
		}
		elem = next
	}
}

// expired reports whichever expiration elapsed first.
func (c *Cache[V]) expired(e *entry[V], now time.Time) (string, bool) {
	var reason string
	var deadline time.Time
	if c.config.SlidingExpiration > 0 {
		reason, deadline = ReasonSliding, e.lastAccess.Add(c.config.SlidingExpiration)
	}
	if c.config.AbsoluteExpiration > 0 {
		absolute := e.created.Add(c.config.AbsoluteExpiration)
		if reason == "" || absolute.Before(deadline) {
			reason, deadline = ReasonAbsolute, absolute
		}
	}
	if reason == "" || now.Before(deadline) {
		return "", false
	}
	return reason, true
}

func (c *Cache[V]) remove(elem *list.Element, reason string) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry[V]).key)
	c.stats.Evictions++
	if c.metrics != nil {
		c.metrics.Evictions.WithLabelValues(reason).Inc()
	}
	c.updateGauge()
}

func (c *Cache[V]) miss() {
	c.stats.Misses++
	if c.metrics != nil {
		c.metrics.Misses.Inc()
	}
}

func (c *Cache[V]) updateGauge() {
	if c.metrics != nil {
		c.metrics.Entries.Set(float64(len(c.items)))
	}
}
