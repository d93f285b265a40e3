package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

const (
	pitchCoach = "pitch_coach"

	// Pipeline metrics
	jobsSubmittedTotal = "jobs_submitted_total"
	jobsFinishedTotal  = "jobs_finished_total"
	stageDuration      = "stage_duration_seconds"
	queueDepth         = "queue_depth"

	// Labels
	jobStateLabel      = "state"
	pipelineStageLabel = "stage"
)

/**
* Metrics definition
**/
var jobsSubmittedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: pitchCoach,
		Name:      jobsSubmittedTotal,
		Help:      "number of pipeline jobs submitted",
	},
)

var jobsFinishedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: pitchCoach,
		Name:      jobsFinishedTotal,
		Help:      "number of pipeline jobs finished, partitioned by terminal state",
	},
	[]string{jobStateLabel},
)

var stageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: pitchCoach,
		Name:      stageDuration,
		Help:      "time spent in each pipeline stage",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	},
	[]string{pipelineStageLabel},
)

var queueDepthMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: pitchCoach,
		Name:      queueDepth,
		Help:      "number of jobs waiting in the dispatcher queue",
	},
)

func IncreaseJobsSubmittedMetric() {
	jobsSubmittedTotalMetric.Inc()
}

func IncreaseJobsFinishedMetric(state string) {
	jobsFinishedTotalMetric.With(prometheus.Labels{jobStateLabel: state}).Inc()
}

func ObserveStageDurationMetric(stage string, seconds float64) {
	stageDurationMetric.With(prometheus.Labels{pipelineStageLabel: stage}).Observe(seconds)
}

func UpdateQueueDepthMetric(depth int) {
	queueDepthMetric.Set(float64(depth))
}

// MustRegisterPipelineMetrics registers the pipeline collectors on the
// default registry. Call once before serving /metrics.
func MustRegisterPipelineMetrics() {
	prometheus.MustRegister(
		jobsSubmittedTotalMetric,
		jobsFinishedTotalMetric,
		stageDurationMetric,
		queueDepthMetric,
	)
}

type PrometheusMetricsHandler struct{}

func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

func (h *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}
