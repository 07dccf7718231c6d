package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics records price-resolution activity. A nil receiver is a no-op.
type PricingMetrics struct {
	resolutions    *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	cacheResults   *prometheus.CounterVec
	staleDiscards  prometheus.Counter
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listini_resolutions_total",
		Help: "Price resolutions by the branch that produced them.",
	}, []string{"source"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listini_lookup_fallbacks_total",
		Help: "Lookups that failed and fell through to the next resolution step.",
	}, []string{"reason"})
	lookupDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "listini_lookup_duration_seconds",
		Help:    "Duration of backend price lookups in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	cacheResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listini_cache_results_total",
		Help: "Lookup cache hits and misses per cache layer.",
	}, []string{"layer", "result"})
	staleDiscards := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "listini_stale_resolutions_total",
		Help: "Resolutions discarded because the line's article or customer changed while in flight.",
	})
	reg.MustRegister(resolutions, fallbacks, lookupDuration, cacheResults, staleDiscards)
	return &PricingMetrics{
		resolutions:    resolutions,
		fallbacks:      fallbacks,
		lookupDuration: lookupDuration,
		cacheResults:   cacheResults,
		staleDiscards:  staleDiscards,
	}
}

func (m *PricingMetrics) IncResolution(source string) {
	if m == nil || m.resolutions == nil {
		return
	}
	m.resolutions.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *PricingMetrics) IncFallback(reason string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *PricingMetrics) ObserveLookup(op string, duration time.Duration) {
	if m == nil || m.lookupDuration == nil {
		return
	}
	m.lookupDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

func (m *PricingMetrics) IncCacheHit(layer string) {
	if m == nil || m.cacheResults == nil {
		return
	}
	m.cacheResults.WithLabelValues(normalizeLabel(layer), "hit").Inc()
}

func (m *PricingMetrics) IncCacheMiss(layer string) {
	if m == nil || m.cacheResults == nil {
		return
	}
	m.cacheResults.WithLabelValues(normalizeLabel(layer), "miss").Inc()
}

func (m *PricingMetrics) IncStaleDiscard() {
	if m == nil || m.staleDiscards == nil {
		return
	}
	m.staleDiscards.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
