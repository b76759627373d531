package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	JobsSubmitted    prometheus.Counter
	JobsFinished     *prometheus.CounterVec
	JobDuration      prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	ProviderOutcomes *prometheus.CounterVec
	RetriesTotal     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		JobsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idvet_pipeline_jobs_submitted_total",
			Help: "Total number of analysis jobs submitted",
		}),
		JobsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idvet_pipeline_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal state",
		}, []string{"outcome"}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idvet_pipeline_job_duration_seconds",
			Help:    "Wall clock duration of finished jobs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idvet_pipeline_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage"}),
		ProviderOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idvet_pipeline_provider_outcomes_total",
			Help: "Screening outcomes recorded per provider",
		}, []string{"provider", "status"}),
		RetriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idvet_pipeline_retries_total",
			Help: "Retry attempts per external service",
		}, []string{"service"}),
	}
}

func (m *Metrics) IncSubmitted() {
	if m == nil {
		return
	}
	m.JobsSubmitted.Inc()
}

func (m *Metrics) IncFinished(outcome string) {
	if m == nil {
		return
	}
	m.JobsFinished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveJobDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.JobDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) IncProviderOutcome(provider, status string) {
	if m == nil {
		return
	}
	m.ProviderOutcomes.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) IncRetry(service string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(service).Inc()
}
