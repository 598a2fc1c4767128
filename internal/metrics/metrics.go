package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of a script engine. Use New to register them
// with a registry, so tests and tools can each have their own.
type Metrics struct {
	// ScriptsLoaded counts script loads by result (ok, error).
	ScriptsLoaded *prometheus.CounterVec
	// Evaluations counts evaluations by result (ok, error, fallback).
	Evaluations *prometheus.CounterVec
	// Actions counts resulting actions by name.
	Actions *prometheus.CounterVec
	// ActionFailures counts actions the host failed to execute.
	ActionFailures *prometheus.CounterVec

	EvaluationDuration prometheus.Histogram
	CachedScripts      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScriptsLoaded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sieve_scripts_loaded_total",
			Help: "Total number of scripts parsed and validated",
		}, []string{"result"}),

		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sieve_evaluations_total",
			Help: "Total number of script evaluations",
		}, []string{"result"}),

		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sieve_actions_total",
			Help: "Total number of actions produced by evaluations",
		}, []string{"action"}),

		ActionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sieve_action_failures_total",
			Help: "Total number of actions that failed to execute",
		}, []string{"action"}),

		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sieve_evaluation_duration_seconds",
			Help:    "Time taken to evaluate a script against a message",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}),

		CachedScripts: f.NewGauge(prometheus.GaugeOpts{
			Name: "sieve_cached_scripts",
			Help: "Number of compiled scripts held in the engine cache",
		}),
	}
}
