package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheLookups counts lookups by outcome (hit, miss, unavailable, malformed).
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicache_lookups_total",
			Help: "Total number of response cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	cacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apicache_writes_total",
			Help: "Total number of responses persisted to the cache",
		},
	)

	// cacheErrors counts store failures by operation (lookup, store, clear).
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apicache_errors_total",
			Help: "Total number of response cache store errors",
		},
		[]string{"op"},
	)
)
