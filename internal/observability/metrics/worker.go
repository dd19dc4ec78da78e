package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	jobsTotal     *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobsInFlight  prometheus.Gauge
	sectionsTotal *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	jobProgress   *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briefly",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Total finished summarize jobs by terminal status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "briefly",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Summarize job duration in seconds by terminal status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "briefly",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of summarize jobs currently processing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briefly",
			Subsystem: "worker",
			Name:      "sections_total",
			Help:      "Total processed document sections by outcome.",
		},
		[]string{"service", "outcome"},
	)
	providerCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briefly",
			Subsystem: "provider",
			Name:      "summarize_calls_total",
			Help:      "Total successful provider summarize round-trips.",
		},
		[]string{"service"},
	)
	jobProgress := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "briefly",
			Subsystem: "worker",
			Name:      "job_progress_percent",
			Help:      "Per-job section progress percentage.",
		},
		[]string{"service", "job_id"},
	)
	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, sectionsTotal, providerCalls, jobProgress)

	return &WorkerMetrics{
		registry:      registry,
		jobsTotal:     jobsTotal,
		jobDuration:   jobDuration,
		jobsInFlight:  jobsInFlight,
		sectionsTotal: sectionsTotal,
		providerCalls: providerCalls,
		jobProgress:   jobProgress,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service, status string, duration time.Duration) {
	m.jobsInFlight.Dec()
	m.jobsTotal.WithLabelValues(service, status).Inc()
	m.jobDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveSection(service, outcome string) {
	m.sectionsTotal.WithLabelValues(service, outcome).Inc()
}

// RecordSummarize implements the usage tracking hook called once per
// successful provider round-trip.
func (m *WorkerMetrics) RecordSummarize() {
	m.providerCalls.WithLabelValues("worker").Inc()
}

// ProgressNotifier bridges orchestrator progress snapshots to the worker
// metrics and the structured log.
type ProgressNotifier struct {
	service string
	metrics *WorkerMetrics
	logger  *slog.Logger
}

func NewProgressNotifier(service string, metrics *WorkerMetrics, logger *slog.Logger) *ProgressNotifier {
	return &ProgressNotifier{service: service, metrics: metrics, logger: logger}
}

func (n *ProgressNotifier) SetProgress(jobID string, percent float64, current, total int, paused bool) {
	n.metrics.jobProgress.WithLabelValues(n.service, jobID).Set(percent)
	n.logger.Debug("job_progress",
		"job_id", jobID,
		"percent", percent,
		"current", current,
		"total", total,
		"paused", paused,
	)
}

func (n *ProgressNotifier) SectionFinished(jobID string, outcome string) {
	n.metrics.ObserveSection(n.service, outcome)
	n.logger.Debug("job_section_finished", "job_id", jobID, "outcome", outcome)
}

func (n *ProgressNotifier) JobCompleted(jobID string) {
	n.metrics.jobProgress.DeleteLabelValues(n.service, jobID)
	n.logger.Info("job_progress_complete", "job_id", jobID)
}

func (n *ProgressNotifier) JobFailed(jobID string, err error) {
	n.metrics.jobProgress.DeleteLabelValues(n.service, jobID)
	n.logger.Warn("job_progress_failed", "job_id", jobID, "error", err)
}
