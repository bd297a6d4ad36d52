// Package observability exposes the engine's Prometheus collectors.
package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/fieldwork/internal/fault"
)

var (
	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldwork",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache reads by resource and result (hit or miss).",
	}, []string{"resource", "result"})

	cacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldwork",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Cache invalidations by resource.",
	}, []string{"resource"})

	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldwork",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Requested state transitions by entity, target state and outcome.",
	}, []string{"entity", "to", "outcome"})

	storeCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldwork",
		Subsystem: "store",
		Name:      "calls_total",
		Help:      "Remote store calls by operation and outcome.",
	}, []string{"op", "outcome"})

	storeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldwork",
		Subsystem: "store",
		Name:      "call_duration_seconds",
		Help:      "Remote store call latency by operation.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(cacheLookups, cacheInvalidations, transitions, storeCalls, storeLatency)
}

// CacheHit counts a read served from the cache.
func CacheHit(resource string) {
	cacheLookups.WithLabelValues(resource, "hit").Inc()
}

// CacheMiss counts a read that went to the store.
func CacheMiss(resource string) {
	cacheLookups.WithLabelValues(resource, "miss").Inc()
}

// CacheInvalidated counts an invalidation of a resource's entries.
func CacheInvalidated(resource string) {
	cacheInvalidations.WithLabelValues(resource).Inc()
}

// Transition counts a requested transition with its outcome.
func Transition(entity, to string, err error) {
	transitions.WithLabelValues(entity, to, Outcome(err)).Inc()
}

// StoreCall records one remote store round trip.
func StoreCall(op string, seconds float64, err error) {
	storeCalls.WithLabelValues(op, Outcome(err)).Inc()
	storeLatency.WithLabelValues(op).Observe(seconds)
}

// Outcome maps an error onto a bounded label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, fault.ErrValidation):
		return "validation"
	case errors.Is(err, fault.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, fault.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, fault.ErrTimeout):
		return "timeout"
	case errors.Is(err, fault.ErrNetwork):
		return "network"
	case errors.Is(err, fault.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
