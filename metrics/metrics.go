// Package metrics exposes Prometheus instrumentation for the bootstrap
// handshake.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BootstrapAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbboot_bootstrap_attempts_total",
			Help: "Total number of bootstrap attempts by outcome",
		},
		[]string{"outcome"},
	)

	DatabasesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dbboot_databases_created_total",
			Help: "Total number of databases created because they were absent",
		},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbboot_step_duration_seconds",
			Help:    "Time taken by each bootstrap step",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
)
