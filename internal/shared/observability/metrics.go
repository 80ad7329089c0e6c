package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RuleEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layercheck_rule_evaluations_total",
		Help: "Total number of rule evaluations by rule and outcome.",
	}, []string{"rule", "outcome"})

	RuleViolators = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "layercheck_rule_violators",
		Help: "Number of violating units found by the latest evaluation of a rule.",
	}, []string{"rule"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "layercheck_analysis_seconds",
		Help:    "Time spent on high-level tasks (load, evaluate, report).",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	CodebaseUnits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layercheck_codebase_units",
		Help: "Number of module units in the latest snapshot.",
	})

	CodebaseEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "layercheck_codebase_edges",
		Help: "Number of direct dependency edges in the latest snapshot.",
	})

	CheckRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "layercheck_check_runs_total",
		Help: "Total number of completed check runs by status (passed, failed, error).",
	}, []string{"status"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layercheck_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
