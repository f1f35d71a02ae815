package plancache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Eviction reasons reported in props_plan_cache_evictions_total.
const (
	ReasonCapacity = "capacity"
	ReasonSliding  = "sliding"
	ReasonAbsolute = "absolute"
)

// Metrics holds the Prometheus metrics of one plan cache.
type Metrics struct {
	Hits      prometheus.Counter
	Misses    prometheus.Counter
	Evictions *prometheus.CounterVec
	Entries   prometheus.Gauge
}

// NewMetrics creates and registers the plan cache metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "props_plan_cache_hits_total",
		Help: "Total plan cache lookups that found a live plan",
	})

	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "props_plan_cache_misses_total",
		Help: "Total plan cache lookups that found no live plan",
	})

	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "props_plan_cache_evictions_total",
		Help: "Total plans removed from the cache by capacity or expiry",
	}, []string{"reason"})

	entries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "props_plan_cache_entries",
		Help: "Current number of cached plans",
	})

	reg.MustRegister(hits, misses, evictions, entries)

	return &Metrics{
		Hits:      hits,
		Misses:    misses,
		Evictions: evictions,
		Entries:   entries,
	}
}
