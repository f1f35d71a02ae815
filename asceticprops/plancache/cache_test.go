package plancache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestCacheGetSet(t *testing.T) {
	c := New[string](DefaultConfig())

	_, ok := c.TryGet("1:a")
	assert.False(t, ok)

	c.Set("1:a", "plan a")
	v, ok := c.TryGet("1:a")
	require.True(t, ok)
	assert.Equal(t, "plan a", v)

	c.Set("1:a", "plan a2")
	v, _ = c.TryGet("1:a")
	assert.Equal(t, "plan a2", v)
	assert.Equal(t, 1, c.Count())

	c.ClearAll()
	assert.Equal(t, 0, c.Count())
	_, ok = c.TryGet("1:a")
	assert.False(t, ok)
}

func TestCacheSetIfCurrent(t *testing.T) {
	c := New[string](DefaultConfig())

	generation := c.Generation()
	assert.True(t, c.SetIfCurrent("1:a", "plan a", generation))

	stale := c.Generation()
	c.ClearAll()
	assert.NotEqual(t, stale, c.Generation())
	assert.False(t, c.SetIfCurrent("1:a", "plan a", stale))
	assert.Equal(t, 0, c.Count())

	assert.True(t, c.SetIfCurrent("1:a", "plan b", c.Generation()))
	v, ok := c.TryGet("1:a")
	require.True(t, ok)
	assert.Equal(t, "plan b", v)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](Config{MaxEntries: 2})
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.TryGet("a")
	c.Set("c", 3)

	_, ok := c.TryGet("b")
	assert.False(t, ok)
	_, ok = c.TryGet("a")
	assert.True(t, ok)
	_, ok = c.TryGet("c")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCacheSlidingExpiration(t *testing.T) {
	clock := newClock()
	c := New[int](Config{SlidingExpiration: 10 * time.Minute, AbsoluteExpiration: time.Hour}, WithClock(clock.Now))
	c.Set("a", 1)

	clock.Advance(9 * time.Minute)
	_, ok := c.TryGet("a")
	require.True(t, ok)

	clock.Advance(9 * time.Minute)
	_, ok = c.TryGet("a")
	require.True(t, ok, "a hit restarts the sliding window")

	clock.Advance(10 * time.Minute)
	_, ok = c.TryGet("a")
	assert.False(t, ok)
}

func TestCacheAbsoluteExpiration(t *testing.T) {
	clock := newClock()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := New[int](Config{SlidingExpiration: 10 * time.Minute, AbsoluteExpiration: 25 * time.Minute},
		WithClock(clock.Now), WithMetrics(metrics))
	c.Set("a", 1)

	for i := 0; i < 2; i++ {
		clock.Advance(9 * time.Minute)
		_, ok := c.TryGet("a")
		require.True(t, ok)
	}
	clock.Advance(9 * time.Minute)
	_, ok := c.TryGet("a")
	assert.False(t, ok)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Evictions.WithLabelValues(ReasonAbsolute)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Evictions.WithLabelValues(ReasonSliding)))
}

func TestCacheCountSweepsExpired(t *testing.T) {
	clock := newClock()
	c := New[int](Config{SlidingExpiration: time.Minute}, WithClock(clock.Now))
	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(30 * time.Second)
	c.Set("c", 3)
	clock.Advance(40 * time.Second)

	assert.Equal(t, 1, c.Count())
	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, uint64(2), stats.Evictions)
}

func TestCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := New[int](Config{MaxEntries: 1}, WithMetrics(metrics))

	c.Set("a", 1)
	_, _ = c.TryGet("a")
	_, _ = c.TryGet("missing")
	c.Set("b", 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Misses))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Evictions.WithLabelValues(ReasonCapacity)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Entries))

	stats := c.Stats()
	assert.Equal(t, Stats{Entries: 1, Hits: 1, Misses: 1, Evictions: 1}, stats)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int](Config{MaxEntries: 50})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d:%d", g, i%20)
				c.Set(key, i)
				_, _ = c.TryGet(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Count(), 50)
}
