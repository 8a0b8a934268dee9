package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_pipeline_runs_total",
			Help: "Total pipeline runs by terminal outcome.",
		},
		[]string{"outcome", "stage"},
	)
	guardrailRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_guardrail_rejections_total",
			Help: "Total guardrail rejections by category.",
		},
		[]string{"category"},
	)
	scopeViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_scope_violations_total",
			Help: "Total access scope violations by enforcement layer.",
		},
		[]string{"layer"},
	)
	queryExecutionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_query_execution_seconds",
			Help:    "Validated query execution latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	generationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_generation_seconds",
			Help:    "Model call latency in seconds across pipeline stages.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRunsTotal,
		guardrailRejectionsTotal,
		scopeViolationsTotal,
		queryExecutionSeconds,
		generationSeconds,
	)
}

func ObservePipelineRun(stage string, rejected bool) {
	outcome := "done"
	if rejected {
		outcome = "rejected"
	}
	pipelineRunsTotal.WithLabelValues(outcome, stage).Inc()
}

func ObserveGuardrailRejection(category string) {
	guardrailRejectionsTotal.WithLabelValues(category).Inc()
}

func ObserveScopeViolation(layer int) {
	scopeViolationsTotal.WithLabelValues(layerLabel(layer)).Inc()
}

func ObserveQueryExecution(elapsed time.Duration) {
	queryExecutionSeconds.Observe(elapsed.Seconds())
}

func ObserveGeneration(elapsed time.Duration) {
	generationSeconds.Observe(elapsed.Seconds())
}

func layerLabel(layer int) string {
	switch layer {
	case 1:
		return "precheck"
	case 2:
		return "instruction"
	case 3:
		return "postcheck"
	case 4:
		return "lexical"
	default:
		return "unknown"
	}
}
